package models

import (
	"time"
)

// LineLogin holds the LINE Login identity for a user. At most one user
// exists per provider subject, enforced by the unique index on Sub.
type LineLogin struct {
	UserID int64  `gorm:"primaryKey"`
	Sub    string `gorm:"size:200;uniqueIndex;not null"` // provider's user id from the ID token

	AccessToken  string    `gorm:"size:300;not null"`
	RefreshToken string    `gorm:"size:300;not null"`
	ExpiresIn    time.Time `gorm:"not null"` // absolute expiry of the access token

	// Profile snapshot from the last login
	Name    string  `gorm:"size:50;not null"`
	Picture string  `gorm:"size:200"`
	Email   *string `gorm:"size:128"`

	UpdateAt *time.Time
}

func (LineLogin) TableName() string {
	return "line_login"
}
