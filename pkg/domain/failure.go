package domain

import "errors"

// FailureKind is the error kind surfaced in the failure payload of the function-call contract.
type FailureKind string

const (
	FailureIllegalFunction    FailureKind = "illegal_function"
	FailureSchemaValidation   FailureKind = "schema_validation"
	FailureDomainValidation   FailureKind = "domain_validation"
	FailureMissingContact     FailureKind = "missing_contact"
	FailureBackendUnavailable FailureKind = "backend_unavailable"
	FailureSession            FailureKind = "session"
	FailureInternal           FailureKind = "internal"
)

// Failure is the transport representation of an invocation error.
type Failure struct {
	Kind    FailureKind `json:"kind"`
	Message string      `json:"message"`
	NodeID  string      `json:"node_id,omitempty"`
}

// Classify maps an error returned by the engine to its failure kind.
func Classify(err error) Failure {
	var (
		illegal *IllegalFunctionError
		schema  *SchemaValidationError
		dom     *DomainValidationError
		contact *MissingContactError
		backend *BackendUnavailableError
		unknown *UnknownNodeError
		kind    FailureKind
	)
	switch {
	case errors.As(err, &illegal):
		kind = FailureIllegalFunction
	case errors.As(err, &schema):
		kind = FailureSchemaValidation
	case errors.As(err, &dom):
		kind = FailureDomainValidation
	case errors.As(err, &contact):
		kind = FailureMissingContact
	case errors.As(err, &backend):
		kind = FailureBackendUnavailable
	case errors.As(err, &unknown):
		kind = FailureInternal
	case errors.Is(err, ErrAlreadyInitialized),
		errors.Is(err, ErrNotInitialized),
		errors.Is(err, ErrSessionEnded),
		errors.Is(err, ErrInvocationInFlight),
		errors.Is(err, ErrSessionNotFound),
		errors.Is(err, ErrSessionExists),
		errors.Is(err, ErrSessionClosed):
		kind = FailureSession
	default:
		kind = FailureInternal
	}
	return Failure{Kind: kind, Message: err.Error()}
}
