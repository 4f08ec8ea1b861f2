package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/newcast-health/intakeflow/pkg/domain"
	backend "github.com/redis/go-redis/v9"
)

// MaxEventLength bounds how far before a range start the busy index is scanned.
// Events longer than this are not reported by ListBusyIntervals.
const MaxEventLength = 24 * time.Hour

// Calendar implements ports.Calendar on Redis. Events are stored as JSON under
// prefix+"event:"+id and indexed by start time in the ZSET prefix+"busy".
// It suits single-clinic deployments that do not use an external calendar.
type Calendar struct {
	client backend.UniversalClient
	prefix string
}

// NewCalendar creates a calendar under the given key prefix.
func NewCalendar(client backend.UniversalClient, prefix string) *Calendar {
	return &Calendar{client: client, prefix: prefix}
}

func (c *Calendar) eventKey(id string) string {
	return c.prefix + "event:" + id
}

func (c *Calendar) indexKey() string {
	return c.prefix + "busy"
}

// CreateEvent stores the event and indexes it by start time.
func (c *Calendar) CreateEvent(ctx context.Context, event domain.CalendarEvent) (string, error) {
	id := uuid.NewString()
	data, err := json.Marshal(event)
	if err != nil {
		return "", fmt.Errorf("failed to marshal event: %w", err)
	}

	pipe := c.client.TxPipeline()
	pipe.Set(ctx, c.eventKey(id), data, 0)
	pipe.ZAdd(ctx, c.indexKey(), backend.Z{
		Score:  float64(event.Start.UnixMilli()),
		Member: id,
	})
	if _, err := pipe.Exec(ctx); err != nil {
		return "", fmt.Errorf("failed to save event to redis: %w", err)
	}
	return id, nil
}

// ListBusyIntervals returns the events overlapping [start, end), ordered by start.
func (c *Calendar) ListBusyIntervals(ctx context.Context, start, end time.Time) ([]domain.BusyInterval, error) {
	ids, err := c.client.ZRangeByScore(ctx, c.indexKey(), &backend.ZRangeBy{
		Min: strconv.FormatInt(start.Add(-MaxEventLength).UnixMilli(), 10),
		Max: "(" + strconv.FormatInt(end.UnixMilli(), 10),
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to query busy index: %w", err)
	}
	if len(ids) == 0 {
		return []domain.BusyInterval{}, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = c.eventKey(id)
	}
	values, err := c.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to load events: %w", err)
	}

	busy := make([]domain.BusyInterval, 0, len(values))
	for i, v := range values {
		raw, ok := v.(string)
		if !ok {
			// Index entry without a body; the event was deleted out of band.
			continue
		}
		var ev domain.CalendarEvent
		if err := json.Unmarshal([]byte(raw), &ev); err != nil {
			return nil, fmt.Errorf("failed to unmarshal event %s: %w", ids[i], err)
		}
		interval := domain.BusyInterval{Start: ev.Start, End: ev.End}
		if interval.Overlaps(start, end) {
			busy = append(busy, interval)
		}
	}
	return busy, nil
}
