package dates

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ErrInvalidDate is returned for malformed or impossible birthday input.
var ErrInvalidDate = errors.New("invalid date")

var monthsGenitive = [12]string{
	"января", "февраля", "марта", "апреля", "мая", "июня",
	"июля", "августа", "сентября", "октября", "ноября", "декабря",
}

// referenceLeapYear is used to validate month/day pairs that must accept Feb 29.
const referenceLeapYear = 2000

// Validate reports whether month/day is a real calendar date in some year.
func Validate(month, day int) error {
	if month < 1 || month > 12 {
		return fmt.Errorf("%w: month %d", ErrInvalidDate, month)
	}
	if day < 1 || day > daysIn(time.Month(month), referenceLeapYear) {
		return fmt.Errorf("%w: day %d of month %d", ErrInvalidDate, day, month)
	}
	return nil
}

// IsLeap reports whether year is a Gregorian leap year.
func IsLeap(year int) bool {
	return year%4 == 0 && (year%100 != 0 || year%400 == 0)
}

// Observed returns the date a birthday is celebrated in the given year.
// Feb 29 falls back to Feb 28 when the year has no leap day.
func Observed(month, day, year int) (time.Month, int) {
	if month == 2 && day == 29 && !IsLeap(year) {
		return time.February, 28
	}
	return time.Month(month), day
}

// NextOccurrence returns the next calendar date (today included) matching month/day.
// The result is midnight UTC; only its calendar fields are meaningful.
func NextOccurrence(month, day int, today time.Time) time.Time {
	base := civil(today)
	m, d := Observed(month, day, base.Year())
	candidate := time.Date(base.Year(), m, d, 0, 0, 0, 0, time.UTC)
	if candidate.Before(base) {
		next := base.Year() + 1
		m, d = Observed(month, day, next)
		candidate = time.Date(next, m, d, 0, 0, 0, 0, time.UTC)
	}
	return candidate
}

// DaysUntilNextOccurrence counts calendar days from today to the next month/day.
// It returns 0 when today is the (observed) date.
func DaysUntilNextOccurrence(month, day int, today time.Time) int {
	next := NextOccurrence(month, day, today)
	return int(next.Sub(civil(today)).Hours() / 24)
}

// Age returns the number of whole years since the birth date, or nil if the year is unknown.
func Age(month, day int, year *int, today time.Time) *int {
	if year == nil {
		return nil
	}
	base := civil(today)
	age := base.Year() - *year
	m, d := Observed(month, day, base.Year())
	if base.Month() < m || (base.Month() == m && base.Day() < d) {
		age--
	}
	if age < 0 {
		age = 0
	}
	return &age
}

// DisplayDate formats a birthday like "15 марта" or "15 марта 1990".
func DisplayDate(month, day int, year *int) string {
	name := "?"
	if month >= 1 && month <= 12 {
		name = monthsGenitive[month-1]
	}
	if year == nil {
		return fmt.Sprintf("%d %s", day, name)
	}
	return fmt.Sprintf("%d %s %d", day, name, *year)
}

// PluralDays returns the Russian word for "days" agreeing with n.
func PluralDays(n int) string {
	return plural(n, "день", "дня", "дней")
}

// PluralYears returns the Russian word for "years" agreeing with n.
func PluralYears(n int) string {
	return plural(n, "год", "года", "лет")
}

func plural(n int, one, few, many string) string {
	if n < 0 {
		n = -n
	}
	switch {
	case n%100 >= 11 && n%100 <= 14:
		return many
	case n%10 == 1:
		return one
	case n%10 >= 2 && n%10 <= 4:
		return few
	default:
		return many
	}
}

// Parse reads DD.MM[.YYYY] with '.', '/' or '-' separators.
// A year, when present, must not lie in the future relative to today.
func Parse(input string, today time.Time) (month, day int, year *int, err error) {
	raw := strings.TrimSpace(input)
	if raw == "" {
		return 0, 0, nil, fmt.Errorf("%w: empty", ErrInvalidDate)
	}

	sep := ""
	for _, s := range []string{".", "/", "-"} {
		if strings.Contains(raw, s) {
			sep = s
			break
		}
	}
	if sep == "" {
		return 0, 0, nil, fmt.Errorf("%w: %q", ErrInvalidDate, input)
	}

	parts := strings.Split(raw, sep)
	if len(parts) != 2 && len(parts) != 3 {
		return 0, 0, nil, fmt.Errorf("%w: %q", ErrInvalidDate, input)
	}

	day, err = strconv.Atoi(parts[0])
	if err != nil {
		return 0, 0, nil, fmt.Errorf("%w: %q", ErrInvalidDate, input)
	}
	month, err = strconv.Atoi(parts[1])
	if err != nil {
		return 0, 0, nil, fmt.Errorf("%w: %q", ErrInvalidDate, input)
	}
	if err := Validate(month, day); err != nil {
		return 0, 0, nil, err
	}

	if len(parts) == 3 {
		y, convErr := strconv.Atoi(parts[2])
		if convErr != nil || len(parts[2]) != 4 {
			return 0, 0, nil, fmt.Errorf("%w: year in %q", ErrInvalidDate, input)
		}
		if month == 2 && day == 29 && !IsLeap(y) {
			return 0, 0, nil, fmt.Errorf("%w: %d is not a leap year", ErrInvalidDate, y)
		}
		born := time.Date(y, time.Month(month), day, 0, 0, 0, 0, time.UTC)
		if y < 1900 || born.After(civil(today)) {
			return 0, 0, nil, fmt.Errorf("%w: year %d out of range", ErrInvalidDate, y)
		}
		year = &y
	}

	return month, day, year, nil
}

// civil strips the clock from t, keeping its calendar date in its own location.
func civil(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func daysIn(month time.Month, year int) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
