package models

import (
	"time"
)

type User struct {
	ID           int64  `gorm:"primaryKey;autoIncrement"`
	Name         string `gorm:"size:50;not null"`
	Email        *string `gorm:"size:128;uniqueIndex"`
	PasswordHash *string `gorm:"size:128"` // OAuth-only users have no password

	CreateAt    time.Time  `gorm:"not null"`
	LastLoginAt *time.Time

	Line              *LineLogin     `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
	LineNotify        *LineNotify    `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
	LineNotifyRecords []NotifyRecord `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
}

func (User) TableName() string {
	return "users"
}
