package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/emersion/go-vcard"

	"birthday-reminder/internal/dates"
	"birthday-reminder/internal/model"
)

// ImportResult counts what happened to each card in an import.
type ImportResult struct {
	Imported   int
	Duplicates int
	Skipped    int
}

// ContactsService imports birthdays from vCard files.
type ContactsService struct {
	birthdays *BirthdayService
}

func NewContactsService(birthdays *BirthdayService) *ContactsService {
	return &ContactsService{birthdays: birthdays}
}

// Import adds every card with a usable BDAY as a birthday with a day-of reminder.
// Cards without a birthday, and names the user already has, are skipped.
func (s *ContactsService) Import(ctx context.Context, user *model.User, r io.Reader) (ImportResult, error) {
	var res ImportResult
	dec := vcard.NewDecoder(r)
	for {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		card, err := dec.Decode()
		if errors.Is(err, io.EOF) {
			return res, nil
		}
		if err != nil {
			return res, fmt.Errorf("decode vcard: %w", err)
		}

		input, ok := birthdayFromCard(card)
		if !ok {
			res.Skipped++
			continue
		}
		exists, err := s.birthdays.HasName(ctx, user, input.Name)
		if err != nil {
			return res, err
		}
		if exists {
			res.Duplicates++
			continue
		}
		birthday, err := s.birthdays.AddBirthday(ctx, user, input)
		if err != nil {
			if errors.Is(err, ErrValidation) || errors.Is(err, dates.ErrInvalidDate) {
				res.Skipped++
				continue
			}
			return res, err
		}
		if _, err := s.birthdays.AddReminder(ctx, user, birthday.ID, 0); err != nil {
			return res, err
		}
		res.Imported++
	}
}

func birthdayFromCard(card vcard.Card) (BirthdayInput, bool) {
	name := strings.TrimSpace(card.PreferredValue(vcard.FieldFormattedName))
	if name == "" {
		if n := card.Name(); n != nil {
			name = strings.TrimSpace(n.GivenName + " " + n.FamilyName)
		}
	}
	if name == "" {
		return BirthdayInput{}, false
	}

	month, day, year, err := parseVCardDate(card.PreferredValue(vcard.FieldBirthday))
	if err != nil {
		return BirthdayInput{}, false
	}

	return BirthdayInput{
		Name:      name,
		Month:     month,
		Day:       day,
		Year:      year,
		GiftIdeas: strings.TrimSpace(card.PreferredValue(vcard.FieldNote)),
	}, true
}

// parseVCardDate accepts full dates (YYYY-MM-DD, YYYYMMDD, optionally with a time part)
// and truncated dates without year (--MM-DD, --MMDD).
func parseVCardDate(value string) (int, int, *int, error) {
	value = strings.TrimSpace(value)
	if i := strings.IndexByte(value, 'T'); i > 0 {
		value = value[:i]
	}

	for _, layout := range []string{"2006-01-02", "20060102"} {
		if t, err := time.Parse(layout, value); err == nil {
			year := t.Year()
			return int(t.Month()), t.Day(), &year, nil
		}
	}
	for _, layout := range []string{"--01-02", "--0102"} {
		if t, err := time.Parse(layout, value); err == nil {
			return int(t.Month()), t.Day(), nil, nil
		}
	}
	return 0, 0, nil, fmt.Errorf("%w: vcard date %q", dates.ErrInvalidDate, value)
}
