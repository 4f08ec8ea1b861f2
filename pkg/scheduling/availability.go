package scheduling

import (
	"context"
	"log/slog"
	"time"

	"github.com/newcast-health/intakeflow/internal/logging"
	"github.com/newcast-health/intakeflow/pkg/domain"
	"github.com/newcast-health/intakeflow/pkg/ports"
)

// DefaultBackendTimeout bounds every calendar round trip.
const DefaultBackendTimeout = 10 * time.Second

// Availability answers slot queries against a calendar backend.
type Availability struct {
	calendar ports.Calendar
	opts     SlotOptions
	timeout  time.Duration
	logger   *slog.Logger
}

// AvailabilityOption configures Availability.
type AvailabilityOption func(*Availability)

// WithSlotOptions overrides the slot grid.
func WithSlotOptions(opts SlotOptions) AvailabilityOption {
	return func(a *Availability) {
		a.opts = opts.withDefaults()
	}
}

// WithListTimeout bounds the busy-interval query.
func WithListTimeout(d time.Duration) AvailabilityOption {
	return func(a *Availability) {
		a.timeout = d
	}
}

// WithAvailabilityLogger sets the logger used for degraded reads.
func WithAvailabilityLogger(logger *slog.Logger) AvailabilityOption {
	return func(a *Availability) {
		a.logger = logger
	}
}

// NewAvailability creates an availability service over the given calendar.
func NewAvailability(calendar ports.Calendar, opts ...AvailabilityOption) *Availability {
	a := &Availability{
		calendar: calendar,
		opts:     DefaultSlotOptions(),
		timeout:  DefaultBackendTimeout,
		logger:   logging.NewNop(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Options returns the effective slot grid.
func (a *Availability) Options() SlotOptions {
	return a.opts
}

// Slots returns the free slots of day, promoting preferred when available.
//
// A failure to read busy intervals degrades to an empty busy set: every slot of the
// day is offered. The degradation is logged as a warning because it can double-book.
func (a *Availability) Slots(ctx context.Context, day time.Time, preferred string) []domain.Slot {
	opts := a.opts
	opts.PreferredTime = preferred

	start, end := DayWindow(day, opts)

	listCtx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	busy, err := a.calendar.ListBusyIntervals(listCtx, start, end)
	if err != nil {
		a.logger.Warn("Calendar read failed, assuming no conflicts",
			"date", day.Format(DateLayout),
			"double_book_risk", true,
			"err", &domain.BackendUnavailableError{Op: "list", Err: err},
		)
		busy = nil
	}

	return AvailableSlots(day, busy, opts)
}
