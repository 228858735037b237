package services

import (
	"context"

	"github.com/google/uuid"

	"github.com/preceptorly/feedback-backend/internal/sse"
	"github.com/preceptorly/feedback-backend/internal/types"
)

// SessionNotifier pushes session lifecycle events to the preceptor's SSE
// channel. All methods are fire-and-forget.
type SessionNotifier interface {
	SessionStarted(preceptorID uuid.UUID, session *types.FeedbackSession)
	SessionProgress(preceptorID uuid.UUID, session *types.FeedbackSession, standardsCompleted, standardsTotal int)
	ReportReady(preceptorID uuid.UUID, sessionID uuid.UUID)
}

type sessionNotifier struct {
	emit SSEEmitter
}

func NewSessionNotifier(emit SSEEmitter) SessionNotifier {
	return &sessionNotifier{emit: emit}
}

func (n *sessionNotifier) SessionStarted(preceptorID uuid.UUID, session *types.FeedbackSession) {
	if n == nil || n.emit == nil || preceptorID == uuid.Nil {
		return
	}
	n.emit.Emit(context.Background(), sse.SSEMessage{
		Channel: preceptorID.String(),
		Event:   sse.SSEEventSessionStarted,
		Data: map[string]any{
			"session_id": session.ID,
			"state":      session.State,
		},
	})
}

func (n *sessionNotifier) SessionProgress(preceptorID uuid.UUID, session *types.FeedbackSession, standardsCompleted, standardsTotal int) {
	if n == nil || n.emit == nil || preceptorID == uuid.Nil {
		return
	}
	n.emit.Emit(context.Background(), sse.SSEMessage{
		Channel: preceptorID.String(),
		Event:   sse.SSEEventSessionProgress,
		Data: map[string]any{
			"session_id":          session.ID,
			"state":               session.State,
			"standard_index":      session.StandardIndex,
			"standards_completed": standardsCompleted,
			"standards_total":     standardsTotal,
		},
	})
}

func (n *sessionNotifier) ReportReady(preceptorID uuid.UUID, sessionID uuid.UUID) {
	if n == nil || n.emit == nil || preceptorID == uuid.Nil {
		return
	}
	n.emit.Emit(context.Background(), sse.SSEMessage{
		Channel: preceptorID.String(),
		Event:   sse.SSEEventReportReady,
		Data: map[string]any{
			"session_id": sessionID,
		},
	})
}
