package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// AICallLog records one capability call (privacy screen, quality
// classification, synthesis) for auditability. Output is truncated before
// storage; inbound feedback text is never stored here.
type AICallLog struct {
	ID          uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	SessionID   *uuid.UUID     `gorm:"type:uuid;index" json:"session_id,omitempty"`
	CallType    string         `gorm:"column:call_type;not null;index" json:"call_type"`
	Model       string         `gorm:"column:model;not null" json:"model"`
	DurationMS  int64          `gorm:"column:duration_ms;not null" json:"duration_ms"`
	Success     bool           `gorm:"column:success;not null" json:"success"`
	ErrorText   string         `gorm:"column:error_text" json:"error_text,omitempty"`
	OutputBrief datatypes.JSON `gorm:"column:output_brief" json:"output_brief,omitempty"`
	CreatedAt   time.Time      `gorm:"not null;autoCreateTime" json:"created_at"`
}

func (AICallLog) TableName() string { return "ai_call_log" }
