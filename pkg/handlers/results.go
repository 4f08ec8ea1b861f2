package handlers

import (
	"github.com/newcast-health/intakeflow/pkg/domain"
)

// Prescription is one medication the patient takes.
type Prescription struct {
	Medication string `mapstructure:"medication" json:"medication"`
	Dosage     string `mapstructure:"dosage" json:"dosage"`
}

// NamedItem is an allergy, condition, or visit reason.
type NamedItem struct {
	Name string `mapstructure:"name" json:"name"`
}

// PatientInfoResult is returned by collect_patient_info.
type PatientInfoResult struct {
	Name     string `json:"name"`
	Birthday string `json:"birthday"`
}

// Facts implements domain.FactSource.
func (r PatientInfoResult) Facts() map[string]any {
	return map[string]any{
		domain.FactPatientName: r.Name,
		domain.FactBirthday:    r.Birthday,
	}
}

// RecordResult is returned by the record_* handlers. Only the count is surfaced;
// the items are stored as a fact.
type RecordResult[T any] struct {
	Count int `json:"count"`
	key   string
	items []T
}

func newRecordResult[T any](key string, items []T) RecordResult[T] {
	if items == nil {
		items = []T{}
	}
	return RecordResult[T]{Count: len(items), key: key, items: items}
}

// Facts implements domain.FactSource.
func (r RecordResult[T]) Facts() map[string]any {
	return map[string]any{r.key: r.items}
}

// DateCheckResult is returned by check_availability.
type DateCheckResult struct {
	Date           string        `json:"date"`
	DateFormatted  string        `json:"date_formatted"`
	AvailableSlots []domain.Slot `json:"available_slots"`
	PreferredTime  string        `json:"preferred_time,omitempty"`
}

// Facts implements domain.FactSource.
func (r DateCheckResult) Facts() map[string]any {
	return map[string]any{
		domain.FactRequestedDate:  r.Date,
		domain.FactAvailableSlots: r.AvailableSlots,
	}
}

// AppointmentScheduleResult is returned by schedule_appointment_handler.
type AppointmentScheduleResult struct {
	Scheduled                bool   `json:"scheduled"`
	AppointmentDate          string `json:"appointment_date"`
	AppointmentDateFormatted string `json:"appointment_date_formatted"`
	AppointmentTime          string `json:"appointment_time"`
	email                    string
}

// Facts implements domain.FactSource.
func (r AppointmentScheduleResult) Facts() map[string]any {
	return map[string]any{
		domain.FactAppointmentDate:      r.AppointmentDate,
		domain.FactAppointmentTime:      r.AppointmentTime,
		domain.FactAppointmentEmail:     r.email,
		domain.FactAppointmentScheduled: r.Scheduled,
	}
}
