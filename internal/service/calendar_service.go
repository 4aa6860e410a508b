package service

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/emersion/go-ical"
	"github.com/teambition/rrule-go"

	"birthday-reminder/internal/dates"
	"birthday-reminder/internal/model"
	"birthday-reminder/internal/repository"
)

const (
	icalProdID   = "-//birthday-reminder//bot//RU"
	icalCalName  = "Дни рождения"
	icalDomain   = "birthday-reminder"
	propCalName  = "X-WR-CALNAME"
	alarmDisplay = "DISPLAY"
)

// emptyCalendar is written when the user has no birthdays; an encoder refuses a calendar without children.
const emptyCalendar = "BEGIN:VCALENDAR\r\nVERSION:2.0\r\nPRODID:" + icalProdID + "\r\nEND:VCALENDAR\r\n"

// CalendarService renders a user's birthdays as an iCalendar feed.
type CalendarService struct {
	birthdayRepo *repository.BirthdayRepository
	reminderRepo *repository.ReminderRepository
}

func NewCalendarService(birthdayRepo *repository.BirthdayRepository, reminderRepo *repository.ReminderRepository) *CalendarService {
	return &CalendarService{birthdayRepo: birthdayRepo, reminderRepo: reminderRepo}
}

// Export writes one yearly event per birthday, with an alarm per active reminder.
// It returns the number of events written.
func (s *CalendarService) Export(ctx context.Context, user *model.User, w io.Writer, now time.Time) (int, error) {
	birthdays, err := s.birthdayRepo.ListByUser(ctx, user.ID)
	if err != nil {
		return 0, fmt.Errorf("list birthdays: %w", err)
	}
	if len(birthdays) == 0 {
		_, err := io.WriteString(w, emptyCalendar)
		return 0, err
	}

	cal := ical.NewCalendar()
	cal.Props.SetText(ical.PropVersion, "2.0")
	cal.Props.SetText(ical.PropProductID, icalProdID)
	cal.Props.SetText(ical.PropCalendarScale, "GREGORIAN")
	cal.Props.SetText(propCalName, icalCalName)

	stamp := ical.NewProp(ical.PropDateTimeStamp)
	stamp.SetDateTime(now.UTC())

	for _, b := range birthdays {
		reminders, err := s.reminderRepo.ListByBirthday(ctx, b.ID)
		if err != nil {
			return 0, fmt.Errorf("list reminders for birthday %d: %w", b.ID, err)
		}
		event := birthdayEvent(b, reminders, now)
		event.Props.Set(stamp)
		cal.Children = append(cal.Children, event.Component)
	}

	if err := ical.NewEncoder(w).Encode(cal); err != nil {
		return 0, fmt.Errorf("encode calendar: %w", err)
	}
	return len(birthdays), nil
}

func birthdayEvent(b model.Birthday, reminders []model.Reminder, now time.Time) *ical.Event {
	event := ical.NewEvent()
	event.Props.SetText(ical.PropUID, fmt.Sprintf("birthday-%d@%s", b.ID, icalDomain))

	summary := "🎂 " + b.Name
	event.Props.SetText(ical.PropSummary, summary)
	var notes []string
	if b.HasYear() {
		notes = append(notes, fmt.Sprintf("Год рождения: %d", *b.Year))
	}
	if gifts := strings.TrimSpace(b.GiftIdeas); gifts != "" {
		notes = append(notes, "Идеи подарков: "+gifts)
	}
	if len(notes) > 0 {
		event.Props.SetText(ical.PropDescription, strings.Join(notes, "\n"))
	}

	start := ical.NewProp(ical.PropDateTimeStart)
	start.SetDate(dates.NextOccurrence(b.Month, b.Day, now))
	event.Props.Set(start)

	rule := ical.NewProp(ical.PropRecurrenceRule)
	rule.Value = yearlyRule(b.Month, b.Day).RRuleString()
	event.Props.Set(rule)

	for _, r := range reminders {
		alarm := ical.NewComponent(ical.CompAlarm)
		alarm.Props.SetText(ical.PropAction, alarmDisplay)
		alarm.Props.SetText(ical.PropDescription, summary)
		trigger := ical.NewProp(ical.PropTrigger)
		trigger.Value = alarmTrigger(r.DaysBefore)
		alarm.Props.Set(trigger)
		event.Children = append(event.Children, alarm)
	}
	return event
}

// yearlyRule makes leap-day birthdays land on the last day of February every year.
func yearlyRule(month, day int) *rrule.ROption {
	if month == 2 && day == 29 {
		return &rrule.ROption{Freq: rrule.YEARLY, Bymonth: []int{2}, Bymonthday: []int{-1}}
	}
	return &rrule.ROption{Freq: rrule.YEARLY}
}

func alarmTrigger(daysBefore int) string {
	if daysBefore <= 0 {
		return "PT0S"
	}
	return fmt.Sprintf("-P%dD", daysBefore)
}
