package domain

import "time"

// BusyInterval is one occupied range reported by the calendar backend.
type BusyInterval struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Overlaps uses half-open semantics: touching endpoints do not overlap.
func (b BusyInterval) Overlaps(start, end time.Time) bool {
	return start.Before(b.End) && end.After(b.Start)
}

// Slot is a candidate appointment start time in HH:MM form.
type Slot string

// AppointmentRequest carries everything needed to book one appointment.
type AppointmentRequest struct {
	Date         string        `json:"date"` // YYYY-MM-DD
	Time         string        `json:"time"` // HH:MM
	Duration     time.Duration `json:"duration"`
	PatientName  string        `json:"patient_name"`
	PatientEmail string        `json:"patient_email"`
	VisitReasons []string      `json:"visit_reasons,omitempty"`
}

// Reminder is a notification override attached to a calendar event.
type Reminder struct {
	Method  string `json:"method"` // "email" or "popup"
	Minutes int    `json:"minutes"`
}

// CalendarEvent is the event submitted to the calendar backend.
type CalendarEvent struct {
	Summary     string     `json:"summary"`
	Description string     `json:"description"`
	Start       time.Time  `json:"start"`
	End         time.Time  `json:"end"`
	TimeZone    string     `json:"time_zone"`
	Attendees   []string   `json:"attendees"`
	Reminders   []Reminder `json:"reminders"`
	// SendInvitations requests invitation delivery to every attendee.
	SendInvitations bool `json:"send_invitations"`
}
