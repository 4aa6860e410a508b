package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"birthday-reminder/internal/model"
)

// BirthdayRepository handles CRUD for birthday records.
type BirthdayRepository struct {
	db *gorm.DB
}

func NewBirthdayRepository(db *gorm.DB) *BirthdayRepository {
	return &BirthdayRepository{db: db}
}

func (r *BirthdayRepository) Create(ctx context.Context, birthday *model.Birthday) error {
	if err := r.db.WithContext(ctx).Create(birthday).Error; err != nil {
		return fmt.Errorf("create birthday: %w", err)
	}
	return nil
}

// ListByUser returns the user's birthdays in calendar order.
func (r *BirthdayRepository) ListByUser(ctx context.Context, userID uint) ([]model.Birthday, error) {
	var birthdays []model.Birthday
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).
		Order("month ASC, day ASC, name ASC").
		Find(&birthdays).Error; err != nil {
		return nil, err
	}
	return birthdays, nil
}

func (r *BirthdayRepository) FindByID(ctx context.Context, userID, birthdayID uint) (*model.Birthday, error) {
	var birthday model.Birthday
	if err := r.db.WithContext(ctx).Where("user_id = ? AND id = ?", userID, birthdayID).First(&birthday).Error; err != nil {
		return nil, err
	}
	return &birthday, nil
}

func (r *BirthdayRepository) UpdateGiftIdeas(ctx context.Context, birthday *model.Birthday, giftIdeas string) error {
	if err := r.db.WithContext(ctx).Model(birthday).Update("gift_ideas", giftIdeas).Error; err != nil {
		return fmt.Errorf("update gift ideas: %w", err)
	}
	return nil
}

// Delete removes a birthday and all of its reminders.
func (r *BirthdayRepository) Delete(ctx context.Context, userID, birthdayID uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var birthday model.Birthday
		if err := tx.Where("user_id = ? AND id = ?", userID, birthdayID).First(&birthday).Error; err != nil {
			return err
		}
		// The foreign key cascades too; explicit delete keeps databases created without it clean.
		if err := tx.Where("birthday_id = ?", birthday.ID).Delete(&model.Reminder{}).Error; err != nil {
			return fmt.Errorf("delete reminders: %w", err)
		}
		if err := tx.Delete(&birthday).Error; err != nil {
			return fmt.Errorf("delete birthday: %w", err)
		}
		return nil
	})
}
