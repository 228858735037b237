package types

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// FeedbackQuality buckets the accumulated feedback for a standard.
type FeedbackQuality string

const (
	QualityVague               FeedbackQuality = "vague"
	QualitySpecificNoExample   FeedbackQuality = "specific_no_example"
	QualitySpecificWithExample FeedbackQuality = "specific_with_example"
)

// StandardRecord holds everything collected for one practice standard within
// a session. Fragments only ever grow; summary/suggestion/confirmed are
// cleared together on a revise request.
type StandardRecord struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	SessionID uuid.UUID `gorm:"type:uuid;not null;index:idx_standard_record,unique,priority:1" json:"session_id"`
	// Catalog ordinal (1..4).
	StandardID int `gorm:"column:standard_id;not null;index:idx_standard_record,unique,priority:2" json:"standard_id"`

	// JSON array of user utterances in arrival order.
	Fragments datatypes.JSON `gorm:"column:fragments" json:"fragments,omitempty"`
	// JSON array of key points extracted by the last classification.
	KeyPoints datatypes.JSON `gorm:"column:key_points" json:"key_points,omitempty"`

	LatestQuality *FeedbackQuality `gorm:"column:latest_quality" json:"latest_quality,omitempty"`
	Summary       *string          `gorm:"column:summary" json:"summary,omitempty"`
	Suggestion    *string          `gorm:"column:suggestion" json:"suggestion,omitempty"`
	Confirmed     bool             `gorm:"column:confirmed;not null;default:false" json:"confirmed"`

	CreatedAt time.Time `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime" json:"updated_at"`
}

func (StandardRecord) TableName() string { return "standard_record" }

func (r *StandardRecord) FragmentList() []string {
	return decodeStringList(r.Fragments)
}

func (r *StandardRecord) AppendFragment(text string) {
	list := append(r.FragmentList(), text)
	r.Fragments = encodeStringList(list)
}

func (r *StandardRecord) KeyPointList() []string {
	return decodeStringList(r.KeyPoints)
}

func (r *StandardRecord) SetKeyPoints(points []string) {
	r.KeyPoints = encodeStringList(points)
}

func decodeStringList(raw datatypes.JSON) []string {
	if len(raw) == 0 {
		return nil
	}
	var out []string
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil
	}
	return out
}

func encodeStringList(list []string) datatypes.JSON {
	raw, err := json.Marshal(list)
	if err != nil {
		return nil
	}
	return datatypes.JSON(raw)
}
