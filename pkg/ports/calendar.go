package ports

import (
	"context"
	"time"

	"github.com/newcast-health/intakeflow/pkg/domain"
)

// Calendar is the calendar backend consumed by availability and booking.
// Implementations must be safe for concurrent use; one instance is shared by all sessions.
type Calendar interface {
	// ListBusyIntervals returns the occupied ranges intersecting [start, end).
	ListBusyIntervals(ctx context.Context, start, end time.Time) ([]domain.BusyInterval, error)

	// CreateEvent books the event and returns the backend event id.
	CreateEvent(ctx context.Context, event domain.CalendarEvent) (string, error)
}
