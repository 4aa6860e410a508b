package service

import (
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// SchedulerState is the lifecycle state of the scheduler.
type SchedulerState int

const (
	StateStopped SchedulerState = iota
	StateRunning
)

func (s SchedulerState) String() string {
	if s == StateRunning {
		return "running"
	}
	return "stopped"
}

// SchedulerService wraps cron-based jobs pinned to one location.
// Jobs never overlap: a trigger that arrives while the previous run is busy is skipped.
type SchedulerService struct {
	cron  *cron.Cron
	loc   *time.Location
	log   *zap.Logger
	mu    sync.Mutex
	state SchedulerState
}

func NewSchedulerService(loc *time.Location, log *zap.Logger) *SchedulerService {
	if loc == nil {
		loc = time.UTC
	}
	log = log.Named("scheduler")
	cronLog := cron.PrintfLogger(zap.NewStdLog(log))
	return &SchedulerService{
		cron: cron.New(
			cron.WithLocation(loc),
			cron.WithSeconds(),
			cron.WithLogger(cronLog),
			cron.WithChain(cron.SkipIfStillRunning(cronLog), cron.Recover(cronLog)),
		),
		loc: loc,
		log: log,
	}
}

// ScheduleDaily registers a job firing every day at hour:minute in the scheduler's location.
func (s *SchedulerService) ScheduleDaily(hour, minute int, job func()) (cron.EntryID, error) {
	spec, err := buildDailySpec(hour, minute)
	if err != nil {
		return 0, err
	}
	id, err := s.cron.AddFunc(spec, job)
	if err != nil {
		return 0, fmt.Errorf("schedule %q: %w", spec, err)
	}
	s.log.Info("daily job registered",
		zap.String("spec", spec),
		zap.String("location", s.loc.String()))
	return id, nil
}

// Start moves the scheduler to running. Calling it while running does nothing.
func (s *SchedulerService) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateRunning {
		return
	}
	s.cron.Start()
	s.state = StateRunning
	if next := s.nextRunLocked(); !next.IsZero() {
		s.log.Info("scheduler started", zap.Time("next_run", next))
	} else {
		s.log.Info("scheduler started")
	}
}

// Stop cancels future triggers and waits for a running job to finish.
// The state reads stopped as soon as Stop is called. Calling it while stopped does nothing.
func (s *SchedulerService) Stop() {
	s.mu.Lock()
	if s.state == StateStopped {
		s.mu.Unlock()
		return
	}
	ctx := s.cron.Stop()
	s.state = StateStopped
	s.mu.Unlock()

	<-ctx.Done()
	s.log.Info("scheduler stopped")
}

func (s *SchedulerService) State() SchedulerState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// NextRun returns the earliest trigger after t, or the zero time when nothing is scheduled.
func (s *SchedulerService) NextRun(t time.Time) time.Time {
	t = t.In(s.loc)
	var next time.Time
	for _, e := range s.cron.Entries() {
		n := e.Schedule.Next(t)
		if next.IsZero() || n.Before(next) {
			next = n
		}
	}
	return next
}

func (s *SchedulerService) nextRunLocked() time.Time {
	return s.NextRun(time.Now())
}

func buildDailySpec(hour, minute int) (string, error) {
	if hour < 0 || hour > 23 {
		return "", fmt.Errorf("invalid hour %d, expected 0-23", hour)
	}
	if minute < 0 || minute > 59 {
		return "", fmt.Errorf("invalid minute %d, expected 0-59", minute)
	}
	// cron format: second minute hour dom month dow
	return fmt.Sprintf("0 %d %d * * *", minute, hour), nil
}
