package scheduling_test

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/newcast-health/intakeflow/pkg/adapters/memory"
	"github.com/newcast-health/intakeflow/pkg/domain"
	"github.com/newcast-health/intakeflow/pkg/ports"
	"github.com/newcast-health/intakeflow/pkg/scheduling"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func bufferLogger(buf *bytes.Buffer) *slog.Logger {
	return slog.New(slog.NewTextHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

func validRequest() domain.AppointmentRequest {
	return domain.AppointmentRequest{
		Date:         "2031-03-04",
		Time:         "10:00",
		PatientName:  "Jane Doe",
		PatientEmail: "jane@example.com",
		VisitReasons: []string{"checkup", "  follow   up  "},
	}
}

func TestSchedule_Success(t *testing.T) {
	cal := memory.NewCalendar()
	s := scheduling.NewScheduler(cal, scheduling.WithLocation(time.UTC))

	out, err := s.Schedule(context.Background(), validRequest())
	require.NoError(t, err)
	assert.True(t, out.Success)
	assert.Equal(t, "2031-03-04", out.BookedDate)
	assert.Equal(t, "10:00", out.BookedTime)
	assert.NotEmpty(t, out.EventID)

	events := cal.Events()
	require.Len(t, events, 1)
	ev := events[0]
	assert.Equal(t, "Appointment with Jane Doe", ev.Summary)
	assert.Equal(t, "Reason for visit: Checkup, Follow up", ev.Description)
	assert.Equal(t, []string{"jane@example.com"}, ev.Attendees)
	assert.True(t, ev.SendInvitations)
	assert.Equal(t, "UTC", ev.TimeZone)
	assert.True(t, ev.Start.Equal(at(10, 0)))
	assert.True(t, ev.End.Equal(at(10, 30)))
	assert.Equal(t, []domain.Reminder{{Method: "email", Minutes: 1440}, {Method: "popup", Minutes: 10}}, ev.Reminders)
}

func TestSchedule_MissingEmailNeverCallsBackend(t *testing.T) {
	for _, email := range []string{"", "   "} {
		cal := memory.NewCalendar()
		s := scheduling.NewScheduler(cal)

		req := validRequest()
		req.PatientEmail = email
		out, err := s.Schedule(context.Background(), req)

		var missing *domain.MissingContactError
		require.True(t, errors.As(err, &missing), "expected MissingContactError, got %v", err)
		assert.False(t, out.Success)

		_, create := cal.Calls()
		assert.Zero(t, create)
	}
}

func TestSchedule_UnparseableInstant(t *testing.T) {
	cal := memory.NewCalendar()
	s := scheduling.NewScheduler(cal)

	req := validRequest()
	req.Time = "after lunch"
	_, err := s.Schedule(context.Background(), req)

	var dv *domain.DomainValidationError
	require.True(t, errors.As(err, &dv))
	_, create := cal.Calls()
	assert.Zero(t, create)
}

func TestSchedule_BackendFailureIsNotAnError(t *testing.T) {
	var logs bytes.Buffer
	cal := memory.NewCalendar()
	cal.FailCreate(errors.New("quota exceeded"))
	s := scheduling.NewScheduler(cal, scheduling.WithSchedulerLogger(bufferLogger(&logs)))

	out, err := s.Schedule(context.Background(), validRequest())
	require.NoError(t, err)
	assert.False(t, out.Success)
	assert.Equal(t, "2031-03-04", out.BookedDate)
	assert.Contains(t, logs.String(), "quota exceeded")
	assert.Contains(t, logs.String(), "level=ERROR")
}

func TestSchedule_DefaultsForNameAndReasons(t *testing.T) {
	cal := memory.NewCalendar()
	s := scheduling.NewScheduler(cal)

	req := validRequest()
	req.PatientName = ""
	req.VisitReasons = []string{"", "  "}
	_, err := s.Schedule(context.Background(), req)
	require.NoError(t, err)

	ev := cal.Events()[0]
	assert.Equal(t, "Appointment with Patient", ev.Summary)
	assert.Equal(t, "Reason for visit: General consultation", ev.Description)
}

type failingLocker struct{}

func (failingLocker) Lock(ctx context.Context, key string, ttl time.Duration) (ports.UnlockFunc, error) {
	return nil, errors.New("lock service down")
}

func TestSchedule_SlotLock(t *testing.T) {
	t.Run("lock failure is a booking failure", func(t *testing.T) {
		cal := memory.NewCalendar()
		s := scheduling.NewScheduler(cal, scheduling.WithSlotLocker(failingLocker{}))

		out, err := s.Schedule(context.Background(), validRequest())
		require.NoError(t, err)
		assert.False(t, out.Success)
		_, create := cal.Calls()
		assert.Zero(t, create)
	})

	t.Run("held slot times out", func(t *testing.T) {
		cal := memory.NewCalendar()
		locker := memory.NewLocker()
		unlock, err := locker.Lock(context.Background(), "slot:2031-03-04T10:00", time.Minute)
		require.NoError(t, err)
		defer unlock(context.Background())

		s := scheduling.NewScheduler(cal,
			scheduling.WithSlotLocker(locker),
			scheduling.WithBookingTimeout(50*time.Millisecond))

		out, err := s.Schedule(context.Background(), validRequest())
		require.NoError(t, err)
		assert.False(t, out.Success)
	})

	t.Run("lock released after booking", func(t *testing.T) {
		cal := memory.NewCalendar()
		locker := memory.NewLocker()
		s := scheduling.NewScheduler(cal, scheduling.WithSlotLocker(locker))

		out, err := s.Schedule(context.Background(), validRequest())
		require.NoError(t, err)
		require.True(t, out.Success)

		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		unlock, err := locker.Lock(ctx, "slot:2031-03-04T10:00", time.Minute)
		require.NoError(t, err)
		require.NoError(t, unlock(ctx))
	})
}

func TestSchedule_SlotAlreadyBooked(t *testing.T) {
	var logs bytes.Buffer
	cal := memory.NewCalendar()
	s := scheduling.NewScheduler(cal,
		scheduling.WithLocation(time.UTC),
		scheduling.WithSlotLocker(memory.NewLocker()),
		scheduling.WithSchedulerLogger(bufferLogger(&logs)))

	first, err := s.Schedule(context.Background(), validRequest())
	require.NoError(t, err)
	assert.True(t, first.Success)

	other := validRequest()
	other.PatientName = "John Roe"
	other.PatientEmail = "john@example.com"
	second, err := s.Schedule(context.Background(), other)
	require.NoError(t, err)
	assert.False(t, second.Success)
	assert.Empty(t, second.EventID)
	assert.Len(t, cal.Events(), 1)
	assert.Contains(t, logs.String(), "Booking conflict")

	later := validRequest()
	later.Time = "10:30"
	third, err := s.Schedule(context.Background(), later)
	require.NoError(t, err)
	assert.True(t, third.Success, "adjacent slot is free")
}

func TestSchedule_BusyReadFailureStillBooks(t *testing.T) {
	var logs bytes.Buffer
	cal := memory.NewCalendar()
	cal.FailList(errors.New("connection refused"))
	s := scheduling.NewScheduler(cal,
		scheduling.WithLocation(time.UTC),
		scheduling.WithSchedulerLogger(bufferLogger(&logs)))

	out, err := s.Schedule(context.Background(), validRequest())
	require.NoError(t, err)
	assert.True(t, out.Success)
	assert.Contains(t, logs.String(), "level=WARN")
	assert.Contains(t, logs.String(), "double_book_risk=true")
}

func TestJoinReasons(t *testing.T) {
	assert.Equal(t, "General consultation", scheduling.JoinReasons(nil))
	assert.Equal(t, "Annual physical", scheduling.JoinReasons([]string{"annual physical"}))
	assert.Equal(t, "Headache, Back pain", scheduling.JoinReasons([]string{" headache", "back\tpain "}))
}

func TestAvailability_Slots(t *testing.T) {
	cal := memory.NewCalendar()
	cal.AddBusy(at(9, 0), at(9, 30))
	a := scheduling.NewAvailability(cal)

	slots := a.Slots(context.Background(), testDay, "")
	require.NotEmpty(t, slots)
	assert.Equal(t, domain.Slot("09:30"), slots[0])

	slots = a.Slots(context.Background(), testDay, "3pm")
	assert.Equal(t, domain.Slot("15:00"), slots[0])
}

func TestAvailability_ReadFailureDegradesWithWarning(t *testing.T) {
	var logs bytes.Buffer
	cal := memory.NewCalendar()
	cal.AddBusy(at(9, 0), at(17, 0))
	cal.FailList(errors.New("connection refused"))

	a := scheduling.NewAvailability(cal, scheduling.WithAvailabilityLogger(bufferLogger(&logs)))
	slots := a.Slots(context.Background(), testDay, "")

	assert.Len(t, slots, 16, "read failure degrades to an empty busy set")
	assert.Contains(t, logs.String(), "level=WARN")
	assert.Contains(t, logs.String(), "double_book_risk=true")
	assert.Contains(t, logs.String(), "connection refused")
}
