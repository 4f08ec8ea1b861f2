package scheduling

import (
	"time"

	"github.com/newcast-health/intakeflow/pkg/domain"
)

// Defaults of the slot grid.
const (
	DefaultSlotDuration  = 30 * time.Minute
	DefaultStep          = 30 * time.Minute
	DefaultBusinessStart = 9 * time.Hour
	DefaultBusinessEnd   = 17 * time.Hour
)

// SlotOptions configures slot enumeration. Zero values fall back to the defaults.
type SlotOptions struct {
	Duration time.Duration
	Step     time.Duration
	// BusinessStart and BusinessEnd are offsets from local midnight.
	BusinessStart time.Duration
	BusinessEnd   time.Duration
	// PreferredTime, when available, is moved to the front of the result.
	PreferredTime string
	// Location interprets the day and the business hours. Defaults to UTC.
	Location *time.Location
}

// DefaultSlotOptions returns the 09:00-17:00 grid of 30 minute slots every 30 minutes.
func DefaultSlotOptions() SlotOptions {
	return SlotOptions{}.withDefaults()
}

func (o SlotOptions) withDefaults() SlotOptions {
	if o.Duration <= 0 {
		o.Duration = DefaultSlotDuration
	}
	if o.Step <= 0 {
		o.Step = DefaultStep
	}
	if o.BusinessStart <= 0 && o.BusinessEnd <= 0 {
		o.BusinessStart = DefaultBusinessStart
		o.BusinessEnd = DefaultBusinessEnd
	}
	if o.Location == nil {
		o.Location = time.UTC
	}
	return o
}

// DayWindow returns the business window [start, end) of the given calendar day.
func DayWindow(day time.Time, opts SlotOptions) (time.Time, time.Time) {
	opts = opts.withDefaults()
	return atOffset(day, opts.BusinessStart, opts.Location), atOffset(day, opts.BusinessEnd, opts.Location)
}

// AvailableSlots enumerates free slot start times of day in chronological order.
//
// Candidates start at BusinessStart and advance by Step; the last candidate is the one
// whose end does not exceed BusinessEnd. A candidate overlapping any busy interval
// (half-open) is dropped. An available PreferredTime is promoted to the front; an
// unavailable one is ignored.
func AvailableSlots(day time.Time, busy []domain.BusyInterval, opts SlotOptions) []domain.Slot {
	opts = opts.withDefaults()

	slots := []domain.Slot{}
	for offset := opts.BusinessStart; offset+opts.Duration <= opts.BusinessEnd; offset += opts.Step {
		start := atOffset(day, offset, opts.Location)
		end := start.Add(opts.Duration)
		if conflicts(busy, start, end) {
			continue
		}
		slots = append(slots, domain.Slot(start.Format(TimeLayout)))
	}

	if opts.PreferredTime != "" {
		slots = promote(slots, domain.Slot(NormalizeTime(opts.PreferredTime)))
	}
	return slots
}

func conflicts(busy []domain.BusyInterval, start, end time.Time) bool {
	for _, b := range busy {
		if b.Overlaps(start, end) {
			return true
		}
	}
	return false
}

func promote(slots []domain.Slot, preferred domain.Slot) []domain.Slot {
	for i, s := range slots {
		if s != preferred {
			continue
		}
		out := make([]domain.Slot, 0, len(slots))
		out = append(out, s)
		out = append(out, slots[:i]...)
		return append(out, slots[i+1:]...)
	}
	return slots
}

// atOffset builds the wall-clock instant offset after midnight of day in loc.
// Building through time.Date keeps business hours stable across DST changes.
func atOffset(day time.Time, offset time.Duration, loc *time.Location) time.Time {
	y, m, d := day.Date()
	minutes := int(offset / time.Minute)
	return time.Date(y, m, d, 0, minutes, 0, 0, loc)
}
