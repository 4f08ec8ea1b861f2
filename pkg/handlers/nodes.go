package handlers

// Node ids of the patient intake flow.
const (
	NodeCollectInfo           = "collect_info"
	NodeGetPrescriptions      = "get_prescriptions"
	NodeGetAllergies          = "get_allergies"
	NodeGetConditions         = "get_conditions"
	NodeGetVisitReasons       = "get_visit_reasons"
	NodeVerify                = "verify"
	NodeConfirm               = "confirm"
	NodeScheduleDate          = "schedule_date"
	NodeScheduleTime          = "schedule_time"
	NodeRescheduleAppointment = "reschedule_appointment"
	NodeConfirmAppointment    = "confirm_appointment"
	NodeEnd                   = "end"
)
