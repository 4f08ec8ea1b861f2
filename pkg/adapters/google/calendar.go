// Package google implements the calendar backend on the Google Calendar API.
package google

import (
	"context"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/newcast-health/intakeflow/pkg/domain"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"
)

// DefaultCalendarID is the calendar of the authenticated account.
const DefaultCalendarID = "primary"

// Calendar implements ports.Calendar with the Google Calendar v3 API.
type Calendar struct {
	svc        *calendar.Service
	calendarID string
}

// New creates a calendar client. opts are passed to the API client, e.g.
// option.WithCredentialsFile or option.WithHTTPClient.
func New(ctx context.Context, calendarID string, opts ...option.ClientOption) (*Calendar, error) {
	if calendarID == "" {
		calendarID = DefaultCalendarID
	}
	svc, err := calendar.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create calendar service: %w", err)
	}
	return &Calendar{svc: svc, calendarID: calendarID}, nil
}

// NewFromCredentialsFile authenticates with a service account key or an authorized user
// token file, scoped to calendar events.
func NewFromCredentialsFile(ctx context.Context, calendarID, path string) (*Calendar, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read calendar credentials: %w", err)
	}
	creds, err := google.CredentialsFromJSON(ctx, data, calendar.CalendarEventsScope)
	if err != nil {
		return nil, fmt.Errorf("invalid calendar credentials: %w", err)
	}
	return New(ctx, calendarID, option.WithCredentials(creds))
}

// ListBusyIntervals lists the confirmed, opaque events overlapping [start, end).
func (c *Calendar) ListBusyIntervals(ctx context.Context, start, end time.Time) ([]domain.BusyInterval, error) {
	busy := []domain.BusyInterval{}
	call := c.svc.Events.List(c.calendarID).
		TimeMin(start.Format(time.RFC3339)).
		TimeMax(end.Format(time.RFC3339)).
		SingleEvents(true).
		OrderBy("startTime")

	err := call.Pages(ctx, func(page *calendar.Events) error {
		for _, item := range page.Items {
			if item.Status == "cancelled" || item.Transparency == "transparent" {
				continue
			}
			evStart, err := parseEventTime(item.Start)
			if err != nil {
				return fmt.Errorf("event %s: %w", item.Id, err)
			}
			evEnd, err := parseEventTime(item.End)
			if err != nil {
				return fmt.Errorf("event %s: %w", item.Id, err)
			}
			interval := domain.BusyInterval{Start: evStart, End: evEnd}
			if interval.Overlaps(start, end) {
				busy = append(busy, interval)
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list calendar events: %w", err)
	}

	sort.SliceStable(busy, func(i, j int) bool { return busy[i].Start.Before(busy[j].Start) })
	return busy, nil
}

// parseEventTime reads a timed or all-day boundary. All-day dates are taken as UTC midnight.
func parseEventTime(t *calendar.EventDateTime) (time.Time, error) {
	if t == nil {
		return time.Time{}, fmt.Errorf("missing event time")
	}
	if t.DateTime != "" {
		return time.Parse(time.RFC3339, t.DateTime)
	}
	return time.Parse(time.DateOnly, t.Date)
}

// CreateEvent inserts the appointment and, when requested, emails the invitation.
// Guests may not modify the event, invite others, or see other guests.
func (c *Calendar) CreateEvent(ctx context.Context, ev domain.CalendarEvent) (string, error) {
	no := false
	event := &calendar.Event{
		Summary:     ev.Summary,
		Description: ev.Description,
		Start: &calendar.EventDateTime{
			DateTime: ev.Start.Format(time.RFC3339),
			TimeZone: ev.TimeZone,
		},
		End: &calendar.EventDateTime{
			DateTime: ev.End.Format(time.RFC3339),
			TimeZone: ev.TimeZone,
		},
		Reminders: &calendar.EventReminders{
			UseDefault:      false,
			ForceSendFields: []string{"UseDefault"},
		},
		GuestsCanModify:         false,
		GuestsCanInviteOthers:   &no,
		GuestsCanSeeOtherGuests: &no,
	}
	for _, email := range ev.Attendees {
		event.Attendees = append(event.Attendees, &calendar.EventAttendee{
			Email:          email,
			ResponseStatus: "needsAction",
		})
	}
	for _, r := range ev.Reminders {
		event.Reminders.Overrides = append(event.Reminders.Overrides, &calendar.EventReminder{
			Method:  r.Method,
			Minutes: int64(r.Minutes),
		})
	}

	sendUpdates := "none"
	if ev.SendInvitations {
		sendUpdates = "all"
	}

	created, err := c.svc.Events.Insert(c.calendarID, event).SendUpdates(sendUpdates).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("failed to create calendar event: %w", err)
	}
	return created.Id, nil
}
