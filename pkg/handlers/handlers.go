package handlers

import (
	"context"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/newcast-health/intakeflow/pkg/domain"
	"github.com/newcast-health/intakeflow/pkg/registry"
	"github.com/newcast-health/intakeflow/pkg/scheduling"
)

// Deps are the collaborators the scheduling handlers need.
type Deps struct {
	Availability *scheduling.Availability
	Scheduler    *scheduling.Scheduler
	// Clock defines "today". Defaults to the system clock.
	Clock scheduling.Clock
	// Location is the clinic time zone used to decide what "today" is. Defaults to UTC.
	Location *time.Location
}

type intake struct {
	deps Deps
}

// Register adds every intake and scheduling handler to reg.
func Register(reg *registry.Registry, deps Deps) error {
	if deps.Clock == nil {
		deps.Clock = scheduling.SystemClock{}
	}
	if deps.Location == nil {
		deps.Location = time.UTC
	}
	h := &intake{deps: deps}

	all := []registry.Handler{
		{Ref: "collect_patient_info", Fn: h.collectPatientInfo, Next: []string{NodeGetPrescriptions}},
		{Ref: "record_prescriptions", Fn: h.recordPrescriptions, Next: []string{NodeGetAllergies}},
		{Ref: "record_allergies", Fn: recordItems("allergies", domain.FactAllergies, NodeGetConditions), Next: []string{NodeGetConditions}},
		{Ref: "record_conditions", Fn: recordItems("conditions", domain.FactConditions, NodeGetVisitReasons), Next: []string{NodeGetVisitReasons}},
		{Ref: "record_visit_reasons", Fn: recordItems("visit_reasons", domain.FactVisitReasons, NodeVerify), Next: []string{NodeVerify}},
		{Ref: "revise_information", Fn: goTo(NodeGetPrescriptions), Next: []string{NodeGetPrescriptions}},
		{Ref: "confirm_information", Fn: goTo(NodeConfirm), Next: []string{NodeConfirm}},
		{Ref: "complete_intake", Fn: goTo(NodeScheduleDate), Next: []string{NodeScheduleDate}},
		{Ref: "get_current_date", Fn: h.getCurrentDate, Next: []string{NodeScheduleDate}},
		{Ref: "check_availability", Fn: h.checkAvailability, Next: []string{NodeScheduleTime}},
		{
			Ref:  "schedule_appointment_handler",
			Fn:   h.scheduleAppointment,
			Next: []string{NodeConfirmAppointment, NodeRescheduleAppointment},
		},
		{Ref: "reschedule_appointment", Fn: goTo(NodeScheduleDate), Next: []string{NodeScheduleDate}},
		{Ref: "confirm_final_appointment", Fn: goTo(NodeEnd), Next: []string{NodeEnd}},
	}
	for _, handler := range all {
		if err := reg.Register(handler); err != nil {
			return err
		}
	}
	return nil
}

// decode maps validated arguments onto a typed struct.
func decode(call registry.Call, out any) error {
	return decodeValue(call.Function, call.Args, out)
}

func decodeValue(function string, input, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:  out,
		TagName: "mapstructure",
	})
	if err != nil {
		return err
	}
	if err := dec.Decode(input); err != nil {
		return &domain.SchemaValidationError{
			Function: function,
			Mistyped: []domain.FieldError{{Field: "arguments", Reason: err.Error()}},
		}
	}
	return nil
}

func goTo(next string) registry.HandlerFunc {
	return func(context.Context, registry.Call) (domain.HandlerResult, error) {
		return domain.HandlerResult{NextNodeID: next}, nil
	}
}

func (h *intake) today() time.Time {
	now := h.deps.Clock.Now().In(h.deps.Location)
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
}

type patientInfoArgs struct {
	Name     string `mapstructure:"name"`
	Birthday string `mapstructure:"birthday"`
}

func (h *intake) collectPatientInfo(_ context.Context, call registry.Call) (domain.HandlerResult, error) {
	var args patientInfoArgs
	if err := decode(call, &args); err != nil {
		return domain.HandlerResult{}, err
	}

	name := strings.TrimSpace(args.Name)
	if len([]rune(name)) < 2 {
		return domain.HandlerResult{}, domain.NewDomainValidationError("name", "Name must be at least 2 characters long")
	}
	birthday := strings.TrimSpace(args.Birthday)
	born, err := scheduling.ParseDate(birthday)
	if err != nil {
		return domain.HandlerResult{}, domain.NewDomainValidationError("birthday", "Birthday must be in YYYY-MM-DD format")
	}
	if born.After(h.today()) {
		return domain.HandlerResult{}, domain.NewDomainValidationError("birthday", "Birthday cannot be in the future")
	}

	return domain.HandlerResult{
		Payload:    PatientInfoResult{Name: name, Birthday: birthday},
		NextNodeID: NodeGetPrescriptions,
	}, nil
}

func (h *intake) recordPrescriptions(_ context.Context, call registry.Call) (domain.HandlerResult, error) {
	var args struct {
		Prescriptions []Prescription `mapstructure:"prescriptions"`
	}
	if err := decode(call, &args); err != nil {
		return domain.HandlerResult{}, err
	}
	return domain.HandlerResult{
		Payload:    newRecordResult(domain.FactPrescriptions, args.Prescriptions),
		NextNodeID: NodeGetAllergies,
	}, nil
}

// recordItems builds a handler storing a list of named items under fact.
func recordItems(param, fact, next string) registry.HandlerFunc {
	return func(_ context.Context, call registry.Call) (domain.HandlerResult, error) {
		var items []NamedItem
		if err := decodeValue(call.Function, call.Args[param], &items); err != nil {
			return domain.HandlerResult{}, err
		}
		return domain.HandlerResult{
			Payload:    newRecordResult(fact, items),
			NextNodeID: next,
		}, nil
	}
}

func (h *intake) getCurrentDate(context.Context, registry.Call) (domain.HandlerResult, error) {
	return domain.HandlerResult{
		Payload:    scheduling.CurrentDateInfo(h.deps.Clock.Now().In(h.deps.Location)),
		NextNodeID: NodeScheduleDate,
	}, nil
}

type availabilityArgs struct {
	Date          string `mapstructure:"date"`
	PreferredTime string `mapstructure:"preferred_time"`
}

// futureDate parses a YYYY-MM-DD date that must fall strictly after today.
func (h *intake) futureDate(raw string) (time.Time, error) {
	day, err := scheduling.ParseDate(raw)
	if err != nil {
		return time.Time{}, domain.NewDomainValidationError("date", "Date must be in YYYY-MM-DD format")
	}
	if !day.After(h.today()) {
		return time.Time{}, domain.NewDomainValidationError("date", "Please select a future date")
	}
	return day, nil
}

func (h *intake) checkAvailability(ctx context.Context, call registry.Call) (domain.HandlerResult, error) {
	var args availabilityArgs
	if err := decode(call, &args); err != nil {
		return domain.HandlerResult{}, err
	}
	date := strings.TrimSpace(args.Date)
	preferred := strings.TrimSpace(args.PreferredTime)

	day, err := h.futureDate(date)
	if err != nil {
		return domain.HandlerResult{}, err
	}

	return domain.HandlerResult{
		Payload: DateCheckResult{
			Date:           date,
			DateFormatted:  scheduling.FormatUserFriendly(date),
			AvailableSlots: h.deps.Availability.Slots(ctx, day, preferred),
			PreferredTime:  preferred,
		},
		NextNodeID: NodeScheduleTime,
	}, nil
}

type scheduleArgs struct {
	Date         string   `mapstructure:"date"`
	Time         string   `mapstructure:"time"`
	Email        string   `mapstructure:"email"`
	PatientName  string   `mapstructure:"patient_name"`
	VisitReasons []string `mapstructure:"visit_reasons"`
}

func (h *intake) scheduleAppointment(ctx context.Context, call registry.Call) (domain.HandlerResult, error) {
	var args scheduleArgs
	if err := decode(call, &args); err != nil {
		return domain.HandlerResult{}, err
	}
	date := strings.TrimSpace(args.Date)
	if _, err := h.futureDate(date); err != nil {
		return domain.HandlerResult{}, err
	}
	clock := scheduling.NormalizeTime(args.Time)
	if !scheduling.IsCanonicalTime(clock) {
		return domain.HandlerResult{}, domain.NewDomainValidationError("time", "Time must be in HH:MM format")
	}

	name := strings.TrimSpace(args.PatientName)
	if name == "" {
		name, _ = call.Facts[domain.FactPatientName].(string)
	}
	reasons := args.VisitReasons
	if len(reasons) == 0 {
		reasons = reasonNames(call.Facts[domain.FactVisitReasons])
	}

	email := strings.TrimSpace(args.Email)
	outcome, err := h.deps.Scheduler.Schedule(ctx, domain.AppointmentRequest{
		Date:         date,
		Time:         clock,
		PatientName:  name,
		PatientEmail: email,
		VisitReasons: reasons,
	})
	if err != nil {
		return domain.HandlerResult{}, err
	}

	next := NodeConfirmAppointment
	if !outcome.Success {
		next = NodeRescheduleAppointment
	}
	return domain.HandlerResult{
		Payload: AppointmentScheduleResult{
			Scheduled:                outcome.Success,
			AppointmentDate:          date,
			AppointmentDateFormatted: scheduling.FormatUserFriendly(date),
			AppointmentTime:          clock,
			email:                    email,
		},
		NextNodeID: next,
	}, nil
}

// reasonNames extracts visit reason names from the collected fact.
func reasonNames(v any) []string {
	switch items := v.(type) {
	case []NamedItem:
		names := make([]string, 0, len(items))
		for _, it := range items {
			names = append(names, it.Name)
		}
		return names
	case []string:
		return items
	default:
		return nil
	}
}
