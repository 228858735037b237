package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// FinalReport is the derived artifact handed to the export/delivery layer.
// It is assembled once per completed session and immutable after that.
type FinalReport struct {
	SessionID    uuid.UUID     `json:"session_id"`
	ContactEmail string        `json:"contact_email,omitempty"`
	GeneratedAt  time.Time     `json:"generated_at"`
	Entries      []ReportEntry `json:"entries"`
}

// ReportEntry is one standard's confirmed outcome, in catalog order.
type ReportEntry struct {
	StandardID   int      `json:"standard_id"`
	StandardName string   `json:"standard_name"`
	Summary      string   `json:"summary"`
	Suggestion   string   `json:"suggestion"`
	KeyPoints    []string `json:"key_points,omitempty"`
}

// ReportRecord persists an assembled FinalReport so repeated report fetches
// return the same artifact.
type ReportRecord struct {
	ID          uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	SessionID   uuid.UUID      `gorm:"type:uuid;not null;uniqueIndex" json:"session_id"`
	Payload     datatypes.JSON `gorm:"column:payload;not null" json:"payload"`
	GeneratedAt time.Time      `gorm:"column:generated_at;not null" json:"generated_at"`
	CreatedAt   time.Time      `gorm:"not null;autoCreateTime" json:"created_at"`
}

func (ReportRecord) TableName() string { return "report_record" }
