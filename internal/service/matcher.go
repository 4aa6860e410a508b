package service

import (
	"time"

	"birthday-reminder/internal/dates"
	"birthday-reminder/internal/model"
)

// Firing is a reminder whose lead time matches today.
type Firing struct {
	Reminder model.JoinedReminder
	DaysLeft int
}

// Match selects the reminders that fire on today's calendar date.
// A reminder fires only when the days left equal its lead time exactly;
// a skipped day is not caught up later.
func Match(today time.Time, reminders []model.JoinedReminder) []Firing {
	var firings []Firing
	for _, r := range reminders {
		if !r.IsActive {
			continue
		}
		daysLeft := dates.DaysUntilNextOccurrence(r.Month, r.Day, today)
		if daysLeft == r.DaysBefore {
			firings = append(firings, Firing{Reminder: r, DaysLeft: daysLeft})
		}
	}
	return firings
}
