package service

import (
	"errors"
	"fmt"

	"gorm.io/gorm"
)

var (
	// ErrNotFound is returned when a record does not exist or belongs to another user.
	ErrNotFound = errors.New("not found")
	// ErrDeliveryFailure marks a single failed notification send.
	ErrDeliveryFailure = errors.New("delivery failure")
	// ErrValidation marks user input the services refuse to store.
	ErrValidation = errors.New("validation failed")
)

// DeliveryError describes a notification that could not be sent to one recipient.
type DeliveryError struct {
	Recipient  int64
	ReminderID uint
	Err        error
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("deliver reminder %d to %d: %v", e.ReminderID, e.Recipient, e.Err)
}

func (e *DeliveryError) Unwrap() []error {
	return []error{ErrDeliveryFailure, e.Err}
}

func notFound(err error, what string, id uint) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%s %d: %w: %w", what, id, ErrNotFound, err)
	}
	return fmt.Errorf("find %s %d: %w", what, id, err)
}
