package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"birthday-reminder/internal/model"
)

// ReminderRepository handles CRUD for reminder rules and the joined read used by the scheduler.
type ReminderRepository struct {
	db *gorm.DB
}

func NewReminderRepository(db *gorm.DB) *ReminderRepository {
	return &ReminderRepository{db: db}
}

func (r *ReminderRepository) Create(ctx context.Context, reminder *model.Reminder) error {
	if err := r.db.WithContext(ctx).Create(reminder).Error; err != nil {
		return fmt.Errorf("create reminder: %w", err)
	}
	return nil
}

// ListByBirthday returns active reminders of a birthday, nearest lead time first.
func (r *ReminderRepository) ListByBirthday(ctx context.Context, birthdayID uint) ([]model.Reminder, error) {
	var reminders []model.Reminder
	if err := r.db.WithContext(ctx).Where("birthday_id = ? AND is_active = ?", birthdayID, true).
		Order("days_before ASC, id ASC").
		Find(&reminders).Error; err != nil {
		return nil, err
	}
	return reminders, nil
}

func (r *ReminderRepository) FindByID(ctx context.Context, reminderID uint) (*model.Reminder, error) {
	var reminder model.Reminder
	if err := r.db.WithContext(ctx).First(&reminder, reminderID).Error; err != nil {
		return nil, err
	}
	return &reminder, nil
}

// ListActiveWithContext returns every active reminder joined with its birthday and owner.
// Any failure is reported as ErrStorageUnavailable.
func (r *ReminderRepository) ListActiveWithContext(ctx context.Context) ([]model.JoinedReminder, error) {
	var rows []model.JoinedReminder
	err := r.db.WithContext(ctx).
		Table("reminders").
		Select(`reminders.id AS reminder_id, reminders.birthday_id, reminders.days_before, reminders.is_active,
			birthdays.name, birthdays.month, birthdays.day, birthdays.year, birthdays.gift_ideas,
			birthdays.user_id, users.telegram_id`).
		Joins("JOIN birthdays ON birthdays.id = reminders.birthday_id").
		Joins("JOIN users ON users.id = birthdays.user_id").
		Where("reminders.is_active = ?", true).
		Order("reminders.id ASC").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("list active reminders: %w: %w", ErrStorageUnavailable, err)
	}
	return rows, nil
}

func (r *ReminderRepository) Deactivate(ctx context.Context, reminderID uint) error {
	res := r.db.WithContext(ctx).Model(&model.Reminder{}).Where("id = ?", reminderID).Update("is_active", false)
	if res.Error != nil {
		return fmt.Errorf("deactivate reminder: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *ReminderRepository) Delete(ctx context.Context, reminderID uint) error {
	res := r.db.WithContext(ctx).Delete(&model.Reminder{}, reminderID)
	if res.Error != nil {
		return fmt.Errorf("delete reminder: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
