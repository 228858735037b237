package services

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/preceptorly/feedback-backend/internal/logger"
	"github.com/preceptorly/feedback-backend/internal/repos"
	"github.com/preceptorly/feedback-backend/internal/types"
)

const aiOutputBriefLimit = 2048

// recordAICall persists one audit row per capability call. The repo is
// optional; auditing must never fail the call it describes.
func recordAICall(
	ctx context.Context,
	log *logger.Logger,
	repo repos.AICallLogRepo,
	sessionID *uuid.UUID,
	callType string,
	model string,
	started time.Time,
	output any,
	callErr error,
) {
	if repo == nil {
		return
	}

	entry := &types.AICallLog{
		ID:         uuid.New(),
		SessionID:  sessionID,
		CallType:   callType,
		Model:      model,
		DurationMS: time.Since(started).Milliseconds(),
		Success:    callErr == nil,
	}
	if callErr != nil {
		entry.ErrorText = callErr.Error()
	}
	if output != nil {
		if raw, err := json.Marshal(output); err == nil {
			if len(raw) > aiOutputBriefLimit {
				raw = raw[:aiOutputBriefLimit]
			}
			entry.OutputBrief = datatypes.JSON(raw)
		}
	}

	if _, err := repo.Create(ctx, nil, []*types.AICallLog{entry}); err != nil && log != nil {
		log.Warn("Failed to record ai call audit row", "call_type", callType, "error", err)
	}
}
