package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"

	"birthday-reminder/internal/model"
	"birthday-reminder/internal/repository"
)

func TestRunCycle_SevenDaysAhead(t *testing.T) {
	env := newTestEnv(t)
	u := env.user(t, 501)
	env.birthday(t, u, "Оля", 3, 15, "", 7)

	sender := newRecordingSender()
	svc := NewReminderService(env.reminders, NewDispatcher(sender, time.Second, 2, zap.NewNop()), time.UTC, zaptest.NewLogger(t))

	res, err := svc.RunCycle(context.Background(), date(2025, 3, 8))
	require.NoError(t, err)
	require.Len(t, res.Firings, 1)
	assert.Equal(t, 7, res.Firings[0].DaysLeft)
	assert.Equal(t, 1, res.Report.Sent)

	msgs := sender.messages(501)
	require.Len(t, msgs, 1)
	assert.Contains(t, msgs[0], "через 7 дней")
}

func TestRunCycle_DayOfWithGiftIdeas(t *testing.T) {
	env := newTestEnv(t)
	u := env.user(t, 502)
	env.birthday(t, u, "Ник", 1, 1, "конструктор", 0, 7)

	sender := newRecordingSender()
	svc := NewReminderService(env.reminders, NewDispatcher(sender, time.Second, 1, zap.NewNop()), time.UTC, zap.NewNop())

	res, err := svc.RunCycle(context.Background(), date(2025, 1, 1))
	require.NoError(t, err)
	assert.Equal(t, 2, res.Checked)
	require.Len(t, res.Firings, 1)

	msgs := sender.messages(502)
	require.Len(t, msgs, 1)
	assert.Contains(t, msgs[0], "СЕГОДНЯ")
	assert.Contains(t, msgs[0], "конструктор")
}

func TestRunCycle_OneBadRecipientDoesNotBlockOthers(t *testing.T) {
	env := newTestEnv(t)
	alice := env.user(t, 1)
	bob := env.user(t, 2)
	env.birthday(t, alice, "Friend A", 6, 1, "", 0)
	env.birthday(t, bob, "Friend B", 6, 1, "", 0)

	sender := newRecordingSender()
	sender.failFor[1] = errors.New("chat not found")
	svc := NewReminderService(env.reminders, NewDispatcher(sender, time.Second, 1, zap.NewNop()), time.UTC, zap.NewNop())

	res, err := svc.RunCycle(context.Background(), date(2025, 6, 1))
	require.NoError(t, err)
	assert.Equal(t, 1, res.Report.Sent)
	require.Len(t, res.Report.Failures, 1)
	assert.Equal(t, int64(1), res.Report.Failures[0].Recipient)
	assert.Len(t, sender.messages(2), 1)
}

func TestRunCycle_UsesConfiguredLocation(t *testing.T) {
	loc := time.FixedZone("UTC+3", 3*3600)
	source := staticSource{reminders: []model.JoinedReminder{joined(1, 3, 15, 0)}}
	sender := newRecordingSender()
	svc := NewReminderService(source, NewDispatcher(sender, time.Second, 1, zap.NewNop()), loc, zap.NewNop())

	// 22:30 UTC on March 14 is already March 15 at UTC+3.
	res, err := svc.RunCycle(context.Background(), time.Date(2025, 3, 14, 22, 30, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Len(t, res.Firings, 1)
}

func TestRunCycle_StorageUnavailable(t *testing.T) {
	sender := new(mockSender)
	source := staticSource{err: repository.ErrStorageUnavailable}
	svc := NewReminderService(source, NewDispatcher(sender, time.Second, 1, zap.NewNop()), time.UTC, zap.NewNop())

	_, err := svc.RunCycle(context.Background(), date(2025, 1, 1))
	assert.ErrorIs(t, err, repository.ErrStorageUnavailable)
	sender.AssertNotCalled(t, "SendMessage", mock.Anything, mock.Anything, mock.Anything)
}

func TestJob_SurvivesStorageFailure(t *testing.T) {
	env := newTestEnv(t)
	sqlDB, err := env.db.DB()
	require.NoError(t, err)
	require.NoError(t, sqlDB.Close())

	svc := NewReminderService(env.reminders, NewDispatcher(new(mockSender), time.Second, 1, zap.NewNop()), time.UTC, zap.NewNop())
	assert.NotPanics(t, svc.Job(time.Second))
}

func TestPreview_DoesNotSend(t *testing.T) {
	sender := new(mockSender)
	source := staticSource{reminders: []model.JoinedReminder{joined(1, 3, 15, 7)}}
	svc := NewReminderService(source, NewDispatcher(sender, time.Second, 1, zap.NewNop()), time.UTC, zap.NewNop())

	res, err := svc.Preview(context.Background(), date(2025, 3, 8))
	require.NoError(t, err)
	assert.Len(t, res.Firings, 1)
	sender.AssertNotCalled(t, "SendMessage", mock.Anything, mock.Anything, mock.Anything)
}
