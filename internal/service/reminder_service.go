package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"birthday-reminder/internal/model"
)

// ReminderSource is the read path the pipeline needs from storage.
type ReminderSource interface {
	ListActiveWithContext(ctx context.Context) ([]model.JoinedReminder, error)
}

// CycleResult describes one evaluation of all reminders.
type CycleResult struct {
	Today   time.Time
	Checked int
	Firings []Firing
	Report  Report
}

// ReminderService runs the daily pipeline: read reminders, match against today, dispatch.
type ReminderService struct {
	source     ReminderSource
	dispatcher *Dispatcher
	loc        *time.Location
	log        *zap.Logger
	now        func() time.Time
}

func NewReminderService(source ReminderSource, dispatcher *Dispatcher, loc *time.Location, log *zap.Logger) *ReminderService {
	if loc == nil {
		loc = time.UTC
	}
	return &ReminderService{
		source:     source,
		dispatcher: dispatcher,
		loc:        loc,
		log:        log.Named("reminders"),
		now:        time.Now,
	}
}

// Preview returns the reminders that would fire at now without sending anything.
func (s *ReminderService) Preview(ctx context.Context, now time.Time) (CycleResult, error) {
	today := now.In(s.loc)
	reminders, err := s.source.ListActiveWithContext(ctx)
	if err != nil {
		return CycleResult{Today: today}, fmt.Errorf("load reminders: %w", err)
	}
	return CycleResult{
		Today:   today,
		Checked: len(reminders),
		Firings: Match(today, reminders),
	}, nil
}

// RunCycle evaluates every active reminder for the calendar date of now and sends the matches.
// Storage errors abort the cycle and are returned; delivery errors only show up in the report.
func (s *ReminderService) RunCycle(ctx context.Context, now time.Time) (CycleResult, error) {
	start := time.Now()
	res, err := s.Preview(ctx, now)
	if err != nil {
		s.log.Error("reminder cycle aborted", zap.Error(err))
		return res, err
	}

	res.Report = s.dispatcher.Dispatch(ctx, res.Today, res.Firings)

	s.log.Info("reminder cycle finished",
		zap.String("date", res.Today.Format("2006-01-02")),
		zap.Int("checked", res.Checked),
		zap.Int("fired", len(res.Firings)),
		zap.Int("recipients", len(firingsByRecipient(res.Firings))),
		zap.Int("sent", res.Report.Sent),
		zap.Int("failed", len(res.Report.Failures)),
		zap.Duration("took", time.Since(start)))
	return res, nil
}

// Job adapts RunCycle to a scheduler callback bounded by timeout.
// Errors are logged; the next trigger is the only retry.
func (s *ReminderService) Job(timeout time.Duration) func() {
	return func() {
		ctx := context.Background()
		if timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, timeout)
			defer cancel()
		}
		if _, err := s.RunCycle(ctx, s.now()); err != nil {
			s.log.Warn("waiting for next trigger", zap.Error(err))
		}
	}
}
