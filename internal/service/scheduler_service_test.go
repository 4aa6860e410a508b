package service

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"
)

func TestScheduler_StartStopIdempotent(t *testing.T) {
	defer goleak.VerifyNone(t)

	s := NewSchedulerService(time.UTC, zap.NewNop())
	_, err := s.ScheduleDaily(9, 0, func() {})
	require.NoError(t, err)
	assert.Equal(t, StateStopped, s.State())

	s.Start()
	s.Start()
	assert.Equal(t, StateRunning, s.State())
	assert.Equal(t, "running", s.State().String())

	s.Stop()
	s.Stop()
	assert.Equal(t, StateStopped, s.State())
	assert.Equal(t, "stopped", s.State().String())
}

func TestScheduler_StopBeforeStart(t *testing.T) {
	defer goleak.VerifyNone(t)

	s := NewSchedulerService(nil, zap.NewNop())
	s.Stop()
	assert.Equal(t, StateStopped, s.State())
}

func TestScheduler_NextRunUsesLocation(t *testing.T) {
	loc := time.FixedZone("UTC+3", 3*3600)
	s := NewSchedulerService(loc, zap.NewNop())
	_, err := s.ScheduleDaily(9, 0, func() {})
	require.NoError(t, err)

	before := time.Date(2025, 3, 8, 8, 0, 0, 0, loc)
	next := s.NextRun(before)
	assert.True(t, next.Equal(time.Date(2025, 3, 8, 9, 0, 0, 0, loc)), "got %s", next)

	// 07:00 UTC is 10:00 at UTC+3, past today's trigger.
	after := time.Date(2025, 3, 8, 7, 0, 0, 0, time.UTC)
	next = s.NextRun(after)
	assert.True(t, next.Equal(time.Date(2025, 3, 9, 9, 0, 0, 0, loc)), "got %s", next)
}

func TestScheduler_NextRunWithoutJobs(t *testing.T) {
	s := NewSchedulerService(time.UTC, zap.NewNop())
	assert.True(t, s.NextRun(time.Now()).IsZero())
}

func TestScheduler_InvalidTime(t *testing.T) {
	s := NewSchedulerService(time.UTC, zap.NewNop())
	_, err := s.ScheduleDaily(24, 0, func() {})
	assert.Error(t, err)
	_, err = s.ScheduleDaily(-1, 0, func() {})
	assert.Error(t, err)
	_, err = s.ScheduleDaily(9, 60, func() {})
	assert.Error(t, err)
}

func TestBuildDailySpec(t *testing.T) {
	spec, err := buildDailySpec(9, 0)
	require.NoError(t, err)
	assert.Equal(t, "0 0 9 * * *", spec)

	spec, err = buildDailySpec(23, 30)
	require.NoError(t, err)
	assert.Equal(t, "0 30 23 * * *", spec)
}

func TestScheduler_SkipsOverlappingRuns(t *testing.T) {
	defer goleak.VerifyNone(t)

	var runs atomic.Int32
	started := make(chan struct{})
	release := make(chan struct{})

	s := NewSchedulerService(time.UTC, zap.NewNop())
	_, err := s.ScheduleDaily(9, 0, func() {
		runs.Add(1)
		close(started)
		<-release
	})
	require.NoError(t, err)

	entries := s.cron.Entries()
	require.Len(t, entries, 1)
	job := entries[0].WrappedJob

	done := make(chan struct{})
	go func() {
		job.Run()
		close(done)
	}()
	<-started

	// The second trigger arrives while the first is still busy.
	job.Run()
	assert.Equal(t, int32(1), runs.Load())

	close(release)
	<-done
	assert.Equal(t, int32(1), runs.Load())
}

func TestScheduler_RecoversFromPanickingJob(t *testing.T) {
	var runs atomic.Int32
	s := NewSchedulerService(time.UTC, zap.NewNop())
	_, err := s.ScheduleDaily(9, 0, func() {
		if runs.Add(1) == 1 {
			panic("boom")
		}
	})
	require.NoError(t, err)

	job := s.cron.Entries()[0].WrappedJob
	assert.NotPanics(t, job.Run)
	// A panic must not leave the job marked as running.
	job.Run()
	assert.Equal(t, int32(2), runs.Load())
}

func TestScheduler_StateDoesNotWaitForRunningJob(t *testing.T) {
	defer goleak.VerifyNone(t)

	s := NewSchedulerService(time.UTC, zap.NewNop())
	started := make(chan struct{})
	release := make(chan struct{})
	var once sync.Once
	_, err := s.cron.AddFunc("* * * * * *", func() {
		once.Do(func() { close(started) })
		<-release
	})
	require.NoError(t, err)

	s.Start()
	select {
	case <-started:
	case <-time.After(3 * time.Second):
		t.Fatal("job did not start")
	}

	stopped := make(chan struct{})
	go func() {
		s.Stop()
		close(stopped)
	}()

	require.Eventually(t, func() bool { return s.State() == StateStopped }, time.Second, 5*time.Millisecond)
	select {
	case <-stopped:
		t.Fatal("Stop returned while the job was still running")
	default:
	}

	close(release)
	select {
	case <-stopped:
	case <-time.After(2 * time.Second):
		t.Fatal("Stop did not return after the job finished")
	}
}
