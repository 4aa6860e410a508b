package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"golang.org/x/text/cases"

	"birthday-reminder/internal/dates"
	"birthday-reminder/internal/model"
	"birthday-reminder/internal/repository"
)

const (
	maxNameLength    = 100
	maxGiftIdeasSize = 1000
	maxDaysBefore    = 365
)

// ReminderPresets are the lead times offered in the bot menus.
var ReminderPresets = []int{0, 1, 3, 7, 14, 30}

// BirthdayInput represents data required to record a birthday.
type BirthdayInput struct {
	Name      string
	Month     int
	Day       int
	Year      *int
	GiftIdeas string
}

// Upcoming is a birthday with its distance from today.
type Upcoming struct {
	Birthday model.Birthday
	DaysLeft int
	Turning  *int
}

// BirthdayService wraps birthday and reminder business logic.
type BirthdayService struct {
	birthdayRepo *repository.BirthdayRepository
	reminderRepo *repository.ReminderRepository
}

func NewBirthdayService(birthdayRepo *repository.BirthdayRepository, reminderRepo *repository.ReminderRepository) *BirthdayService {
	return &BirthdayService{birthdayRepo: birthdayRepo, reminderRepo: reminderRepo}
}

func (s *BirthdayService) AddBirthday(ctx context.Context, user *model.User, input BirthdayInput) (*model.Birthday, error) {
	name, err := ValidateName(input.Name)
	if err != nil {
		return nil, err
	}
	if err := dates.Validate(input.Month, input.Day); err != nil {
		return nil, err
	}
	if input.Year != nil && input.Month == 2 && input.Day == 29 && !dates.IsLeap(*input.Year) {
		return nil, fmt.Errorf("%w: %d is not a leap year", dates.ErrInvalidDate, *input.Year)
	}
	gifts, err := validateGiftIdeas(input.GiftIdeas)
	if err != nil {
		return nil, err
	}

	birthday := model.Birthday{
		UserID:    user.ID,
		Name:      name,
		Month:     input.Month,
		Day:       input.Day,
		Year:      input.Year,
		GiftIdeas: gifts,
	}
	if err := s.birthdayRepo.Create(ctx, &birthday); err != nil {
		return nil, err
	}
	return &birthday, nil
}

func (s *BirthdayService) ListBirthdays(ctx context.Context, user *model.User) ([]model.Birthday, error) {
	return s.birthdayRepo.ListByUser(ctx, user.ID)
}

func (s *BirthdayService) GetBirthday(ctx context.Context, user *model.User, birthdayID uint) (*model.Birthday, error) {
	birthday, err := s.birthdayRepo.FindByID(ctx, user.ID, birthdayID)
	if err != nil {
		return nil, notFound(err, "birthday", birthdayID)
	}
	return birthday, nil
}

// HasName reports whether the user already recorded someone with this name, ignoring case.
func (s *BirthdayService) HasName(ctx context.Context, user *model.User, name string) (bool, error) {
	birthdays, err := s.birthdayRepo.ListByUser(ctx, user.ID)
	if err != nil {
		return false, err
	}
	want := foldName(name)
	for _, b := range birthdays {
		if foldName(b.Name) == want {
			return true, nil
		}
	}
	return false, nil
}

func (s *BirthdayService) UpdateGiftIdeas(ctx context.Context, user *model.User, birthdayID uint, giftIdeas string) (*model.Birthday, error) {
	gifts, err := validateGiftIdeas(giftIdeas)
	if err != nil {
		return nil, err
	}
	birthday, err := s.GetBirthday(ctx, user, birthdayID)
	if err != nil {
		return nil, err
	}
	if err := s.birthdayRepo.UpdateGiftIdeas(ctx, birthday, gifts); err != nil {
		return nil, err
	}
	birthday.GiftIdeas = gifts
	return birthday, nil
}

// DeleteBirthday removes a birthday together with its reminders.
func (s *BirthdayService) DeleteBirthday(ctx context.Context, user *model.User, birthdayID uint) error {
	if err := s.birthdayRepo.Delete(ctx, user.ID, birthdayID); err != nil {
		return notFound(err, "birthday", birthdayID)
	}
	return nil
}

// AddReminder attaches a lead time to one of the user's birthdays. Duplicates are allowed.
func (s *BirthdayService) AddReminder(ctx context.Context, user *model.User, birthdayID uint, daysBefore int) (*model.Reminder, error) {
	if daysBefore < 0 || daysBefore > maxDaysBefore {
		return nil, fmt.Errorf("%w: days before must be between 0 and %d", ErrValidation, maxDaysBefore)
	}
	birthday, err := s.GetBirthday(ctx, user, birthdayID)
	if err != nil {
		return nil, err
	}
	reminder := model.Reminder{BirthdayID: birthday.ID, DaysBefore: daysBefore, IsActive: true}
	if err := s.reminderRepo.Create(ctx, &reminder); err != nil {
		return nil, err
	}
	return &reminder, nil
}

func (s *BirthdayService) ListReminders(ctx context.Context, user *model.User, birthdayID uint) ([]model.Reminder, error) {
	birthday, err := s.GetBirthday(ctx, user, birthdayID)
	if err != nil {
		return nil, err
	}
	return s.reminderRepo.ListByBirthday(ctx, birthday.ID)
}

func (s *BirthdayService) DeleteReminder(ctx context.Context, user *model.User, reminderID uint) error {
	reminder, err := s.ownedReminder(ctx, user, reminderID)
	if err != nil {
		return err
	}
	if err := s.reminderRepo.Delete(ctx, reminder.ID); err != nil {
		return notFound(err, "reminder", reminderID)
	}
	return nil
}

func (s *BirthdayService) DeactivateReminder(ctx context.Context, user *model.User, reminderID uint) error {
	reminder, err := s.ownedReminder(ctx, user, reminderID)
	if err != nil {
		return err
	}
	if err := s.reminderRepo.Deactivate(ctx, reminder.ID); err != nil {
		return notFound(err, "reminder", reminderID)
	}
	return nil
}

// Upcoming lists birthdays occurring within the given number of days, nearest first.
func (s *BirthdayService) Upcoming(ctx context.Context, user *model.User, today time.Time, within int) ([]Upcoming, error) {
	birthdays, err := s.birthdayRepo.ListByUser(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	var out []Upcoming
	for _, b := range birthdays {
		left := dates.DaysUntilNextOccurrence(b.Month, b.Day, today)
		if left > within {
			continue
		}
		item := Upcoming{Birthday: b, DaysLeft: left}
		if b.Year != nil {
			turning := dates.NextOccurrence(b.Month, b.Day, today).Year() - *b.Year
			item.Turning = &turning
		}
		out = append(out, item)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].DaysLeft != out[j].DaysLeft {
			return out[i].DaysLeft < out[j].DaysLeft
		}
		return out[i].Birthday.Name < out[j].Birthday.Name
	})
	return out, nil
}

func (s *BirthdayService) ownedReminder(ctx context.Context, user *model.User, reminderID uint) (*model.Reminder, error) {
	reminder, err := s.reminderRepo.FindByID(ctx, reminderID)
	if err != nil {
		return nil, notFound(err, "reminder", reminderID)
	}
	if _, err := s.GetBirthday(ctx, user, reminder.BirthdayID); err != nil {
		return nil, err
	}
	return reminder, nil
}

// ValidateName trims a person's name and checks its length.
func ValidateName(raw string) (string, error) {
	name := strings.TrimSpace(raw)
	if name == "" {
		return "", fmt.Errorf("%w: name is required", ErrValidation)
	}
	if utf8.RuneCountInString(name) > maxNameLength {
		return "", fmt.Errorf("%w: name is longer than %d characters", ErrValidation, maxNameLength)
	}
	return name, nil
}

func foldName(name string) string {
	return cases.Fold().String(strings.TrimSpace(name))
}

func validateGiftIdeas(raw string) (string, error) {
	gifts := strings.TrimSpace(raw)
	if utf8.RuneCountInString(gifts) > maxGiftIdeasSize {
		return "", fmt.Errorf("%w: gift ideas are longer than %d characters", ErrValidation, maxGiftIdeasSize)
	}
	return gifts, nil
}
