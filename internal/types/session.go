package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// SessionState is the conversation phase of a feedback session.
type SessionState string

const (
	SessionStateInitialized        SessionState = "initialized"
	SessionStateCollectingFeedback SessionState = "collecting_feedback"
	SessionStateConfirmingStandard SessionState = "confirming_standard"
	SessionStateCompleted          SessionState = "completed"
)

// FeedbackSession is one preceptor conversation walking the four practice
// standards. It is the aggregate root: records and turns are loaded and
// saved with it, and only the session machine mutates any of it.
type FeedbackSession struct {
	ID          uuid.UUID    `gorm:"type:uuid;primaryKey" json:"id"`
	PreceptorID uuid.UUID    `gorm:"type:uuid;not null;index" json:"preceptor_id"`
	State       SessionState `gorm:"column:state;not null;default:'initialized'" json:"state"`
	// 0-based cursor into the standard order; always in [0, numStandards].
	StandardIndex int     `gorm:"column:standard_index;not null;default:0" json:"standard_index"`
	ContactEmail  *string `gorm:"column:contact_email" json:"contact_email,omitempty"`
	// How many times the post-completion email re-prompt has been issued.
	EmailPrompts int `gorm:"column:email_prompts;not null;default:0" json:"-"`

	Records []StandardRecord `gorm:"constraint:OnDelete:CASCADE;foreignKey:SessionID;references:ID" json:"records,omitempty"`
	Turns   []Turn           `gorm:"constraint:OnDelete:CASCADE;foreignKey:SessionID;references:ID" json:"turns,omitempty"`

	StartedAt   time.Time      `gorm:"column:started_at;not null" json:"started_at"`
	CompletedAt *time.Time     `gorm:"column:completed_at" json:"completed_at,omitempty"`
	CreatedAt   time.Time      `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time      `gorm:"not null;autoUpdateTime" json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (FeedbackSession) TableName() string { return "feedback_session" }

// RecordForStandard returns the record for the given catalog ordinal, or nil.
func (s *FeedbackSession) RecordForStandard(standardID int) *StandardRecord {
	for i := range s.Records {
		if s.Records[i].StandardID == standardID {
			return &s.Records[i]
		}
	}
	return nil
}

// StandardsCompleted counts confirmed records.
func (s *FeedbackSession) StandardsCompleted() int {
	n := 0
	for i := range s.Records {
		if s.Records[i].Confirmed {
			n++
		}
	}
	return n
}
