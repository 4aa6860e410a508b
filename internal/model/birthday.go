package model

import "time"

// Birthday is an annual date recorded by a user, with optional birth year and gift ideas.
type Birthday struct {
	ID        uint   `gorm:"primaryKey"`
	UserID    uint   `gorm:"index;not null"`
	Name      string `gorm:"not null"`
	Month     int    `gorm:"not null"`
	Day       int    `gorm:"not null"`
	Year      *int
	GiftIdeas string
	CreatedAt time.Time
	UpdatedAt time.Time
	Reminders []Reminder `gorm:"foreignKey:BirthdayID;constraint:OnDelete:CASCADE"`
}

// HasYear reports whether the birth year is known.
func (b Birthday) HasYear() bool {
	return b.Year != nil
}
