package models

import (
	"time"
)

// NotifyRecord is the append-only log of sent notification messages.
type NotifyRecord struct {
	ID       int64     `gorm:"primaryKey;autoIncrement"`
	UserID   int64     `gorm:"index;not null"`
	CreateAt time.Time `gorm:"index;not null"`

	Message        string  `gorm:"type:text;not null"`
	ImageThumbnail *string `gorm:"type:text"`
	ImageFullSize  *string `gorm:"type:text"`
}

func (NotifyRecord) TableName() string {
	return "line_notify_records"
}
