package main

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"birthday-reminder/internal/bot"
	"birthday-reminder/internal/config"
	"birthday-reminder/internal/model"
	"birthday-reminder/internal/repository"
	"birthday-reminder/internal/service"
)

// app holds the storage and services shared by every command.
type app struct {
	db           *gorm.DB
	users        *repository.UserRepository
	birthdayRepo *repository.BirthdayRepository
	reminderRepo *repository.ReminderRepository
	birthdays    *service.BirthdayService
	contacts     *service.ContactsService
	calendar     *service.CalendarService
}

func openApp(cfg config.Config, log *zap.Logger) (*app, error) {
	db, err := repository.NewDB(cfg.DatabaseURL, log)
	if err != nil {
		return nil, fmt.Errorf("db: %w", err)
	}

	birthdayRepo := repository.NewBirthdayRepository(db)
	reminderRepo := repository.NewReminderRepository(db)
	birthdays := service.NewBirthdayService(birthdayRepo, reminderRepo)

	return &app{
		db:           db,
		users:        repository.NewUserRepository(db),
		birthdayRepo: birthdayRepo,
		reminderRepo: reminderRepo,
		birthdays:    birthdays,
		contacts:     service.NewContactsService(birthdays),
		calendar:     service.NewCalendarService(birthdayRepo, reminderRepo),
	}, nil
}

func (a *app) services() bot.Services {
	return bot.Services{
		Users:     a.users,
		Birthdays: a.birthdays,
		Contacts:  a.contacts,
		Calendar:  a.calendar,
	}
}

func (a *app) owner(ctx context.Context, telegramID int64) (*model.User, error) {
	user, err := a.users.FindByTelegramID(ctx, telegramID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("telegram id %d has not started the bot yet", telegramID)
	}
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}
	return user, nil
}

func (a *app) close() {
	if sqlDB, err := a.db.DB(); err == nil {
		_ = sqlDB.Close()
	}
}
