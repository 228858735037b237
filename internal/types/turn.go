package types

import (
	"time"

	"github.com/google/uuid"
)

type TurnRole string

const (
	TurnRoleUser      TurnRole = "user"
	TurnRoleAssistant TurnRole = "assistant"
)

// Turn is one utterance in a session's conversation history. Turns are
// append-only; Seq is assigned in arrival order and never reused.
type Turn struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	SessionID uuid.UUID `gorm:"type:uuid;not null;index:idx_turn,unique,priority:1" json:"session_id"`
	Seq       int       `gorm:"column:seq;not null;index:idx_turn,unique,priority:2" json:"seq"`
	Role      TurnRole  `gorm:"column:role;not null" json:"role"`
	Text      string    `gorm:"column:text;not null" json:"text"`
	CreatedAt time.Time `gorm:"not null;autoCreateTime" json:"created_at"`
}

func (Turn) TableName() string { return "turn" }
