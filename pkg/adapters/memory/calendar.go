package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/newcast-health/intakeflow/pkg/domain"
)

// Calendar implements ports.Calendar in memory.
// Safe for concurrent use. It records calls and supports failure injection for tests.
type Calendar struct {
	mu     sync.RWMutex
	events map[string]domain.CalendarEvent

	listErr   error
	createErr error

	listCalls   int
	createCalls int
}

// NewCalendar creates an empty in-memory calendar.
func NewCalendar() *Calendar {
	return &Calendar{
		events: make(map[string]domain.CalendarEvent),
	}
}

// ListBusyIntervals returns events intersecting [start, end), ordered by start.
func (c *Calendar) ListBusyIntervals(ctx context.Context, start, end time.Time) ([]domain.BusyInterval, error) {
	c.mu.Lock()
	c.listCalls++
	err := c.listErr
	c.mu.Unlock()

	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	var busy []domain.BusyInterval
	for _, ev := range c.events {
		if ev.Start.Before(end) && ev.End.After(start) {
			busy = append(busy, domain.BusyInterval{Start: ev.Start, End: ev.End})
		}
	}
	sort.Slice(busy, func(i, j int) bool { return busy[i].Start.Before(busy[j].Start) })
	return busy, nil
}

// CreateEvent stores the event under a fresh id.
func (c *Calendar) CreateEvent(ctx context.Context, event domain.CalendarEvent) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.createCalls++
	if c.createErr != nil {
		return "", c.createErr
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	id := uuid.NewString()
	c.events[id] = event
	return id, nil
}

// AddBusy seeds an occupied interval.
func (c *Calendar) AddBusy(start, end time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events[uuid.NewString()] = domain.CalendarEvent{Summary: "busy", Start: start, End: end}
}

// FailList makes subsequent ListBusyIntervals calls return err. Nil clears it.
func (c *Calendar) FailList(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.listErr = err
}

// FailCreate makes subsequent CreateEvent calls return err. Nil clears it.
func (c *Calendar) FailCreate(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.createErr = err
}

// Calls returns how many times each operation was invoked.
func (c *Calendar) Calls() (list, create int) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.listCalls, c.createCalls
}

// Events returns the stored events ordered by start.
func (c *Calendar) Events() []domain.CalendarEvent {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]domain.CalendarEvent, 0, len(c.events))
	for _, ev := range c.events {
		out = append(out, ev)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Start.Before(out[j].Start) })
	return out
}
