package types

import (
	"time"

	"github.com/google/uuid"
)

type PreceptorToken struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	PreceptorID  uuid.UUID `gorm:"type:uuid;not null;index" json:"preceptor_id"`
	AccessToken  string    `gorm:"column:access_token;not null;index" json:"-"`
	RefreshToken string    `gorm:"column:refresh_token;not null;index" json:"-"`
	ExpiresAt    time.Time `gorm:"column:expires_at;not null" json:"expires_at"`
	CreatedAt    time.Time `gorm:"not null;autoCreateTime" json:"created_at"`
}

func (PreceptorToken) TableName() string { return "preceptor_token" }
