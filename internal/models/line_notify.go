package models

import (
	"time"
)

// LineNotify holds the notification grant for a user: one row per user,
// upserted on re-grant, never duplicated. The token has no expiry; it
// stays valid until revoked.
type LineNotify struct {
	UserID      int64  `gorm:"primaryKey"`
	AccessToken string `gorm:"size:300;not null"`
	IsRevoked   bool   `gorm:"not null;default:false"`

	CreateAt time.Time `gorm:"not null"`
	UpdateAt *time.Time
}

func (LineNotify) TableName() string {
	return "line_notify"
}
