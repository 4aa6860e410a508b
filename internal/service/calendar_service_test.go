package service

import (
	"bytes"
	"context"
	"testing"

	"github.com/emersion/go-ical"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCalendarExport(t *testing.T) {
	env := newTestEnv(t)
	u := env.user(t, 1)
	env.birthday(t, u, "Anna", 3, 15, "flowers", 0, 7)
	env.birthday(t, u, "Leap", 2, 29, "")

	var buf bytes.Buffer
	n, err := NewCalendarService(env.birthdays, env.reminders).Export(context.Background(), u, &buf, date(2025, 3, 8))
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	out := buf.String()
	assert.Contains(t, out, "PRODID:"+icalProdID)
	assert.Contains(t, out, "RRULE:FREQ=YEARLY")
	assert.Contains(t, out, "BYMONTH=2")
	assert.Contains(t, out, "BYMONTHDAY=-1")
	assert.Contains(t, out, "DTSTART;VALUE=DATE:20250315")
	assert.Contains(t, out, "TRIGGER:-P7D")
	assert.Contains(t, out, "TRIGGER:PT0S")
	assert.Contains(t, out, "Идеи подарков: flowers")

	cal, err := ical.NewDecoder(&buf).Decode()
	require.NoError(t, err)
	events := cal.Events()
	require.Len(t, events, 2)

	var anna *ical.Event
	for i := range events {
		summary, err := events[i].Props.Text(ical.PropSummary)
		require.NoError(t, err)
		if summary == "🎂 Anna" {
			anna = &events[i]
		}
	}
	require.NotNil(t, anna)
	assert.Len(t, anna.Children, 2)
	uid, err := anna.Props.Text(ical.PropUID)
	require.NoError(t, err)
	assert.Contains(t, uid, "@"+icalDomain)
}

func TestCalendarExport_Empty(t *testing.T) {
	env := newTestEnv(t)
	u := env.user(t, 2)

	var buf bytes.Buffer
	n, err := NewCalendarService(env.birthdays, env.reminders).Export(context.Background(), u, &buf, date(2025, 1, 1))
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Equal(t, emptyCalendar, buf.String())
}

func TestAlarmTrigger(t *testing.T) {
	assert.Equal(t, "PT0S", alarmTrigger(0))
	assert.Equal(t, "-P1D", alarmTrigger(1))
	assert.Equal(t, "-P30D", alarmTrigger(30))
}
