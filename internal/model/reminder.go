package model

import "time"

// Reminder fires DaysBefore days ahead of its birthday (0 means the day itself).
type Reminder struct {
	ID         uint `gorm:"primaryKey"`
	BirthdayID uint `gorm:"index;not null"`
	DaysBefore int  `gorm:"not null"`
	IsActive   bool `gorm:"default:true"`
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// JoinedReminder is a reminder together with the birthday and owner it belongs to.
type JoinedReminder struct {
	ReminderID uint
	BirthdayID uint
	DaysBefore int
	IsActive   bool

	Name      string
	Month     int
	Day       int
	Year      *int
	GiftIdeas string

	UserID     uint
	TelegramID int64
}
