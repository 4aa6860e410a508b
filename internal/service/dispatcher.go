package service

import (
	"context"
	"fmt"
	"html"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"birthday-reminder/internal/dates"
	"birthday-reminder/internal/model"
)

// Sender delivers a text message to a recipient. The Telegram bot implements it.
type Sender interface {
	SendMessage(ctx context.Context, recipientID int64, text string) error
}

// Report summarises one dispatch run.
type Report struct {
	Sent     int
	Failures []*DeliveryError
}

// Dispatcher formats firings and sends them, isolating failures per recipient.
type Dispatcher struct {
	sender      Sender
	timeout     time.Duration
	concurrency int
	log         *zap.Logger
}

func NewDispatcher(sender Sender, timeout time.Duration, concurrency int, log *zap.Logger) *Dispatcher {
	if concurrency < 1 {
		concurrency = 1
	}
	return &Dispatcher{
		sender:      sender,
		timeout:     timeout,
		concurrency: concurrency,
		log:         log.Named("dispatcher"),
	}
}

// Dispatch sends every firing. A failed send is logged and recorded but never stops the others.
func (d *Dispatcher) Dispatch(ctx context.Context, today time.Time, firings []Firing) Report {
	results := make([]error, len(firings))

	var g errgroup.Group
	g.SetLimit(d.concurrency)
	for i, f := range firings {
		g.Go(func() error {
			results[i] = d.send(ctx, today, f)
			return nil
		})
	}
	_ = g.Wait()

	var report Report
	for i, err := range results {
		r := firings[i].Reminder
		if err == nil {
			report.Sent++
			continue
		}
		derr := &DeliveryError{Recipient: r.TelegramID, ReminderID: r.ReminderID, Err: err}
		report.Failures = append(report.Failures, derr)
		d.log.Warn("reminder not delivered",
			zap.Uint("reminder_id", r.ReminderID),
			zap.Int64("recipient", r.TelegramID),
			zap.Error(err))
	}
	return report
}

func (d *Dispatcher) send(ctx context.Context, today time.Time, f Firing) error {
	sendCtx := ctx
	if d.timeout > 0 {
		var cancel context.CancelFunc
		sendCtx, cancel = context.WithTimeout(ctx, d.timeout)
		defer cancel()
	}
	text := FormatMessage(f.Reminder, today)
	if err := d.sender.SendMessage(sendCtx, f.Reminder.TelegramID, text); err != nil {
		return err
	}
	d.log.Debug("reminder delivered",
		zap.Uint("reminder_id", f.Reminder.ReminderID),
		zap.Int64("recipient", f.Reminder.TelegramID),
		zap.Int("days_before", f.Reminder.DaysBefore))
	return nil
}

// FormatMessage renders the notification text (Telegram HTML) for a firing reminder.
func FormatMessage(r model.JoinedReminder, today time.Time) string {
	name := html.EscapeString(strings.TrimSpace(r.Name))

	var sb strings.Builder
	switch r.DaysBefore {
	case 0:
		sb.WriteString("🎉 <b>СЕГОДНЯ ДЕНЬ РОЖДЕНИЯ!</b>\n\n")
		sb.WriteString(fmt.Sprintf("У %s сегодня день рождения! 🎂", name))
	case 1:
		sb.WriteString("🔥 <b>Завтра день рождения!</b>\n\n")
		sb.WriteString(fmt.Sprintf("У %s завтра день рождения! 🎂", name))
	default:
		sb.WriteString("🔔 <b>Напоминание о дне рождения</b>\n\n")
		sb.WriteString(fmt.Sprintf("У %s день рождения через %d %s! 🎂", name, r.DaysBefore, dates.PluralDays(r.DaysBefore)))
	}

	sb.WriteString(fmt.Sprintf("\n📅 %s", dates.DisplayDate(r.Month, r.Day, nil)))
	if r.Year != nil {
		turning := dates.NextOccurrence(r.Month, r.Day, today).Year() - *r.Year
		if turning > 0 {
			sb.WriteString(fmt.Sprintf("\n🎈 Исполнится: %d", turning))
		}
	}

	if gifts := strings.TrimSpace(r.GiftIdeas); gifts != "" {
		sb.WriteString(fmt.Sprintf("\n\n🎁 Идеи подарков: %s", html.EscapeString(gifts)))
	}
	return sb.String()
}

// firingsByRecipient is used for log summaries.
func firingsByRecipient(firings []Firing) map[int64]int {
	out := make(map[int64]int)
	for _, f := range firings {
		out[f.Reminder.TelegramID]++
	}
	return out
}
