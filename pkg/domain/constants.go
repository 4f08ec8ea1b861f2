package domain

// Context strategies a node may carry.
const (
	// StrategyResetWithSummary replaces the message history with a single summary message.
	StrategyResetWithSummary = "reset_with_summary"
)

// Post actions executed after a node's messages are emitted.
const (
	PostActionEndConversation = "end_conversation"
)

// Message roles.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleTool      = "tool"
)

// Fact keys under which handler results are stored in FlowContext.Facts.
const (
	FactPatientName          = "patient_name"
	FactBirthday             = "birthday"
	FactPrescriptions        = "prescriptions"
	FactAllergies            = "allergies"
	FactConditions           = "conditions"
	FactVisitReasons         = "visit_reasons"
	FactRequestedDate        = "requested_date"
	FactAvailableSlots       = "available_slots"
	FactAppointmentDate      = "appointment_date"
	FactAppointmentTime      = "appointment_time"
	FactAppointmentEmail     = "appointment_email"
	FactAppointmentScheduled = "appointment_scheduled"
)

// SystemNamespace is the reserved template key for engine-provided values.
const SystemNamespace = "sys"
