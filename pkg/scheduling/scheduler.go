package scheduling

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/newcast-health/intakeflow/internal/logging"
	"github.com/newcast-health/intakeflow/pkg/domain"
	"github.com/newcast-health/intakeflow/pkg/ports"
)

const (
	// DefaultTimeZone is the zone of booked events.
	DefaultTimeZone = "America/New_York"

	// DefaultReason is used when no visit reason was collected.
	DefaultReason = "General consultation"

	// DefaultPatientName is used when no name was collected.
	DefaultPatientName = "Patient"

	defaultLockTTL = 30 * time.Second
)

// ScheduleOutcome reports the result of a booking attempt.
type ScheduleOutcome struct {
	Success    bool   `json:"success"`
	BookedDate string `json:"booked_date"`
	BookedTime string `json:"booked_time"`
	EventID    string `json:"event_id,omitempty"`
}

// Scheduler books appointments on a calendar backend.
type Scheduler struct {
	calendar ports.Calendar
	locker   ports.SlotLocker
	location *time.Location
	duration time.Duration
	timeout  time.Duration
	lockTTL  time.Duration
	logger   *slog.Logger
}

// SchedulerOption configures a Scheduler.
type SchedulerOption func(*Scheduler)

// WithSlotLocker guards each booking with a lock on its slot.
func WithSlotLocker(locker ports.SlotLocker) SchedulerOption {
	return func(s *Scheduler) {
		s.locker = locker
	}
}

// WithLocation sets the time zone in which dates and times are interpreted.
func WithLocation(loc *time.Location) SchedulerOption {
	return func(s *Scheduler) {
		if loc != nil {
			s.location = loc
		}
	}
}

// WithAppointmentDuration sets the default event length.
func WithAppointmentDuration(d time.Duration) SchedulerOption {
	return func(s *Scheduler) {
		if d > 0 {
			s.duration = d
		}
	}
}

// WithBookingTimeout bounds the lock and create-event round trips.
func WithBookingTimeout(d time.Duration) SchedulerOption {
	return func(s *Scheduler) {
		s.timeout = d
	}
}

// WithSchedulerLogger sets the logger.
func WithSchedulerLogger(logger *slog.Logger) SchedulerOption {
	return func(s *Scheduler) {
		s.logger = logger
	}
}

// NewScheduler creates a scheduler over the given calendar.
func NewScheduler(calendar ports.Calendar, opts ...SchedulerOption) *Scheduler {
	s := &Scheduler{
		calendar: calendar,
		location: defaultLocation(),
		duration: DefaultSlotDuration,
		timeout:  DefaultBackendTimeout,
		lockTTL:  defaultLockTTL,
		logger:   logging.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func defaultLocation() *time.Location {
	loc, err := time.LoadLocation(DefaultTimeZone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// Schedule validates req and books it.
//
// Precondition failures are returned as errors and never reach the backend:
// *domain.MissingContactError for an empty email and *domain.DomainValidationError for a
// date/time that does not resolve to one instant. Backend and lock failures are not
// errors: they yield Success=false, as does a slot that is already busy.
//
// The busy check and the create run under the slot lock. A failed busy read is
// logged as a double-booking risk and the booking proceeds.
func (s *Scheduler) Schedule(ctx context.Context, req domain.AppointmentRequest) (ScheduleOutcome, error) {
	out := ScheduleOutcome{BookedDate: req.Date, BookedTime: req.Time}

	if strings.TrimSpace(req.PatientEmail) == "" {
		s.logger.Warn("Booking rejected: no patient email", "patient", req.PatientName)
		return out, &domain.MissingContactError{PatientName: req.PatientName}
	}

	start, err := time.ParseInLocation(DateLayout+" "+TimeLayout, req.Date+" "+req.Time, s.location)
	if err != nil {
		return out, domain.NewDomainValidationError("time",
			fmt.Sprintf("Could not read appointment date %q and time %q", req.Date, req.Time))
	}

	duration := req.Duration
	if duration <= 0 {
		duration = s.duration
	}
	event := s.buildEvent(req, start, duration)

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	if s.locker != nil {
		unlock, err := s.locker.Lock(ctx, slotKey(req.Date, req.Time), s.lockTTL)
		if err != nil {
			s.logger.Error("Booking failed: slot lock unavailable",
				"date", req.Date, "time", req.Time, "err", err)
			return out, nil
		}
		defer func() {
			if err := unlock(context.WithoutCancel(ctx)); err != nil {
				s.logger.Warn("Failed to release slot lock (will expire via TTL)",
					"date", req.Date, "time", req.Time, "err", err)
			}
		}()
	}

	if s.slotTaken(ctx, req, event) {
		return out, nil
	}

	id, err := s.calendar.CreateEvent(ctx, event)
	if err != nil {
		s.logger.Error("Booking failed",
			"date", req.Date, "time", req.Time,
			"err", &domain.BackendUnavailableError{Op: "create", Err: err})
		return out, nil
	}

	s.logger.Info("Appointment booked", "date", req.Date, "time", req.Time, "event_id", id)
	out.Success = true
	out.EventID = id
	return out, nil
}

func (s *Scheduler) slotTaken(ctx context.Context, req domain.AppointmentRequest, event domain.CalendarEvent) bool {
	busy, err := s.calendar.ListBusyIntervals(ctx, event.Start, event.End)
	if err != nil {
		s.logger.Warn("Calendar read failed, booking without conflict check",
			"date", req.Date, "time", req.Time,
			"double_book_risk", true,
			"err", &domain.BackendUnavailableError{Op: "list", Err: err},
		)
		return false
	}
	for _, b := range busy {
		if b.Overlaps(event.Start, event.End) {
			s.logger.Info("Booking conflict: slot already taken",
				"date", req.Date, "time", req.Time,
				"busy_start", b.Start, "busy_end", b.End)
			return true
		}
	}
	return false
}

func (s *Scheduler) buildEvent(req domain.AppointmentRequest, start time.Time, d time.Duration) domain.CalendarEvent {
	name := strings.TrimSpace(req.PatientName)
	if name == "" {
		name = DefaultPatientName
	}
	return domain.CalendarEvent{
		Summary:     "Appointment with " + name,
		Description: "Reason for visit: " + JoinReasons(req.VisitReasons),
		Start:       start,
		End:         start.Add(d),
		TimeZone:    s.location.String(),
		Attendees:   []string{strings.TrimSpace(req.PatientEmail)},
		Reminders: []domain.Reminder{
			{Method: "email", Minutes: 24 * 60},
			{Method: "popup", Minutes: 10},
		},
		SendInvitations: true,
	}
}

func slotKey(date, clock string) string {
	return "slot:" + date + "T" + clock
}

// JoinReasons renders visit reasons as a comma-joined list of display names,
// falling back to DefaultReason when none are usable.
func JoinReasons(reasons []string) string {
	names := make([]string, 0, len(reasons))
	for _, r := range reasons {
		if name := DisplayName(r); name != "" {
			names = append(names, name)
		}
	}
	if len(names) == 0 {
		return DefaultReason
	}
	return strings.Join(names, ", ")
}

// DisplayName trims and collapses whitespace and capitalizes the first letter.
func DisplayName(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	if s == "" {
		return ""
	}
	r, size := utf8.DecodeRuneInString(s)
	return string(unicode.ToUpper(r)) + s[size:]
}
