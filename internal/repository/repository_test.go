package repository

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"birthday-reminder/internal/model"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := NewDB(fmt.Sprintf("file:%s?mode=memory&cache=shared", name), zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

func seedBirthday(t *testing.T, db *gorm.DB, telegramID int64, name string, month, day int) (*model.User, *model.Birthday) {
	t.Helper()
	ctx := context.Background()
	user, err := NewUserRepository(db).UpsertFromTelegram(ctx, telegramID, "Ann", "", "ann")
	require.NoError(t, err)
	b := &model.Birthday{UserID: user.ID, Name: name, Month: month, Day: day, GiftIdeas: "book"}
	require.NoError(t, NewBirthdayRepository(db).Create(ctx, b))
	return user, b
}

func TestUserRepository_Upsert(t *testing.T) {
	db := newTestDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()

	first, err := repo.UpsertFromTelegram(ctx, 42, "Ann", "Lee", "ann")
	require.NoError(t, err)
	second, err := repo.UpsertFromTelegram(ctx, 42, "Anna", "Lee", "anna")
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	found, err := repo.FindByTelegramID(ctx, 42)
	require.NoError(t, err)
	assert.Equal(t, "Anna", found.FirstName)
	assert.Equal(t, "anna", found.Username)
}

func TestUserRepository_UpsertKeepsOneRowPerAccount(t *testing.T) {
	db := newTestDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()

	first, err := repo.UpsertFromTelegram(ctx, 7, "Ann", "", "ann")
	require.NoError(t, err)
	for i := 0; i < 3; i++ {
		_, err := repo.UpsertFromTelegram(ctx, 7, "Ann", "", fmt.Sprintf("ann%d", i))
		require.NoError(t, err)
	}
	_, err = repo.UpsertFromTelegram(ctx, 8, "Bob", "", "bob")
	require.NoError(t, err)

	var count int64
	require.NoError(t, db.Model(&model.User{}).Where("telegram_id = ?", 7).Count(&count).Error)
	assert.Equal(t, int64(1), count)

	found, err := repo.FindByTelegramID(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, first.ID, found.ID)
	assert.Equal(t, "ann2", found.Username)
	assert.True(t, found.CreatedAt.Equal(first.CreatedAt))
}

func TestUserRepository_UpsertStorageFailure(t *testing.T) {
	db := newTestDB(t)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	require.NoError(t, sqlDB.Close())

	_, err = NewUserRepository(db).UpsertFromTelegram(context.Background(), 1, "Ann", "", "ann")
	assert.ErrorContains(t, err, "register owner 1")
}

func TestReminderRepository_ListActiveWithContext(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	reminders := NewReminderRepository(db)

	user, b := seedBirthday(t, db, 100, "Bob", 3, 15)
	active := &model.Reminder{BirthdayID: b.ID, DaysBefore: 7}
	inactive := &model.Reminder{BirthdayID: b.ID, DaysBefore: 1}
	duplicate := &model.Reminder{BirthdayID: b.ID, DaysBefore: 7}
	require.NoError(t, reminders.Create(ctx, active))
	require.NoError(t, reminders.Create(ctx, inactive))
	require.NoError(t, reminders.Create(ctx, duplicate))
	require.NoError(t, reminders.Deactivate(ctx, inactive.ID))

	rows, err := reminders.ListActiveWithContext(ctx)
	require.NoError(t, err)
	require.Len(t, rows, 2)

	row := rows[0]
	assert.Equal(t, active.ID, row.ReminderID)
	assert.Equal(t, b.ID, row.BirthdayID)
	assert.Equal(t, 7, row.DaysBefore)
	assert.True(t, row.IsActive)
	assert.Equal(t, "Bob", row.Name)
	assert.Equal(t, 3, row.Month)
	assert.Equal(t, 15, row.Day)
	assert.Nil(t, row.Year)
	assert.Equal(t, "book", row.GiftIdeas)
	assert.Equal(t, user.ID, row.UserID)
	assert.Equal(t, int64(100), row.TelegramID)
	assert.Equal(t, duplicate.ID, rows[1].ReminderID)
}

func TestReminderRepository_StorageUnavailable(t *testing.T) {
	db := newTestDB(t)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	require.NoError(t, sqlDB.Close())

	_, err = NewReminderRepository(db).ListActiveWithContext(context.Background())
	assert.ErrorIs(t, err, ErrStorageUnavailable)
}

func TestBirthdayRepository_DeleteCascadesReminders(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	birthdays := NewBirthdayRepository(db)
	reminders := NewReminderRepository(db)

	user, b := seedBirthday(t, db, 7, "Carol", 1, 1)
	_, other := seedBirthday(t, db, 7, "Dave", 2, 2)
	for _, d := range []int{0, 1, 7} {
		require.NoError(t, reminders.Create(ctx, &model.Reminder{BirthdayID: b.ID, DaysBefore: d}))
	}
	require.NoError(t, reminders.Create(ctx, &model.Reminder{BirthdayID: other.ID, DaysBefore: 3}))

	require.NoError(t, birthdays.Delete(ctx, user.ID, b.ID))

	_, err := birthdays.FindByID(ctx, user.ID, b.ID)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)

	var orphans int64
	require.NoError(t, db.Model(&model.Reminder{}).Where("birthday_id = ?", b.ID).Count(&orphans).Error)
	assert.Zero(t, orphans)

	rows, err := reminders.ListActiveWithContext(ctx)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "Dave", rows[0].Name)
}

func TestBirthdayRepository_DeleteIsOwnerScoped(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	_, b := seedBirthday(t, db, 1, "Eve", 5, 5)
	stranger, err := NewUserRepository(db).UpsertFromTelegram(ctx, 2, "Mallory", "", "")
	require.NoError(t, err)

	err = NewBirthdayRepository(db).Delete(ctx, stranger.ID, b.ID)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestBirthdayRepository_ListOrderAndGiftIdeas(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	repo := NewBirthdayRepository(db)

	user, dec := seedBirthday(t, db, 9, "Zed", 12, 1)
	_, _ = seedBirthday(t, db, 9, "Amy", 4, 20)

	require.NoError(t, repo.UpdateGiftIdeas(ctx, dec, "scarf"))

	list, err := repo.ListByUser(ctx, user.ID)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "Amy", list[0].Name)
	assert.Equal(t, "Zed", list[1].Name)
	assert.Equal(t, "scarf", list[1].GiftIdeas)
}

func TestReminderRepository_DeleteMissing(t *testing.T) {
	db := newTestDB(t)
	reminders := NewReminderRepository(db)
	assert.ErrorIs(t, reminders.Delete(context.Background(), 999), gorm.ErrRecordNotFound)
	assert.ErrorIs(t, reminders.Deactivate(context.Background(), 999), gorm.ErrRecordNotFound)
}
