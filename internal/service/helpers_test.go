package service

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"birthday-reminder/internal/model"
	"birthday-reminder/internal/repository"
)

type testEnv struct {
	db        *gorm.DB
	users     *repository.UserRepository
	birthdays *repository.BirthdayRepository
	reminders *repository.ReminderRepository
	svc       *BirthdayService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := repository.NewDB(fmt.Sprintf("file:svc_%s?mode=memory&cache=shared", name), zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	birthdays := repository.NewBirthdayRepository(db)
	reminders := repository.NewReminderRepository(db)
	return &testEnv{
		db:        db,
		users:     repository.NewUserRepository(db),
		birthdays: birthdays,
		reminders: reminders,
		svc:       NewBirthdayService(birthdays, reminders),
	}
}

func (e *testEnv) user(t *testing.T, telegramID int64) *model.User {
	t.Helper()
	u, err := e.users.UpsertFromTelegram(context.Background(), telegramID, "User", "", "")
	require.NoError(t, err)
	return u
}

func (e *testEnv) birthday(t *testing.T, u *model.User, name string, month, day int, gifts string, lead ...int) *model.Birthday {
	t.Helper()
	ctx := context.Background()
	b, err := e.svc.AddBirthday(ctx, u, BirthdayInput{Name: name, Month: month, Day: day, GiftIdeas: gifts})
	require.NoError(t, err)
	for _, d := range lead {
		_, err := e.svc.AddReminder(ctx, u, b.ID, d)
		require.NoError(t, err)
	}
	return b
}

// mockSender simulates the delivery channel using testify/mock.
type mockSender struct {
	mock.Mock
}

func (m *mockSender) SendMessage(ctx context.Context, recipientID int64, text string) error {
	args := m.Called(ctx, recipientID, text)
	return args.Error(0)
}

// recordingSender keeps every delivered message and fails for chosen recipients.
type recordingSender struct {
	mu      sync.Mutex
	sent    map[int64][]string
	failFor map[int64]error
}

func newRecordingSender() *recordingSender {
	return &recordingSender{sent: make(map[int64][]string), failFor: make(map[int64]error)}
}

func (r *recordingSender) SendMessage(_ context.Context, recipientID int64, text string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err, ok := r.failFor[recipientID]; ok {
		return err
	}
	r.sent[recipientID] = append(r.sent[recipientID], text)
	return nil
}

func (r *recordingSender) messages(recipientID int64) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.sent[recipientID]...)
}

// blockingSender never answers on its own and gives up when ctx is done.
type blockingSender struct{}

func (blockingSender) SendMessage(ctx context.Context, _ int64, _ string) error {
	<-ctx.Done()
	return ctx.Err()
}

type staticSource struct {
	reminders []model.JoinedReminder
	err       error
}

func (s staticSource) ListActiveWithContext(context.Context) ([]model.JoinedReminder, error) {
	return s.reminders, s.err
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 10, 0, 0, 0, time.UTC)
}

func intPtr(v int) *int { return &v }
