package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrAlreadyInitialized is returned when Initialize is called twice on one session.
	ErrAlreadyInitialized = errors.New("session already initialized")

	// ErrNotInitialized is returned when Invoke is called before Initialize.
	ErrNotInitialized = errors.New("session not initialized")

	// ErrSessionEnded is returned when a function is invoked after end_conversation.
	ErrSessionEnded = errors.New("session has ended")

	// ErrInvocationInFlight is returned when a second invocation overlaps the first.
	ErrInvocationInFlight = errors.New("another invocation is in flight")

	// ErrSessionNotFound is returned when a session ID is unknown.
	ErrSessionNotFound = errors.New("session not found")

	// ErrSessionExists is returned when a session is started with an id already in use.
	ErrSessionExists = errors.New("session already exists")

	// ErrSessionClosed is the cancellation cause of invocations abandoned by session teardown.
	ErrSessionClosed = errors.New("session closed")
)

// IllegalFunctionError means the caller invoked a function the current node does not expose.
type IllegalFunctionError struct {
	NodeID   string
	Function string
	Allowed  []string
}

func (e *IllegalFunctionError) Error() string {
	return fmt.Sprintf("function %q is not legal in node %q (allowed: %s)",
		e.Function, e.NodeID, strings.Join(e.Allowed, ", "))
}

// FieldError describes one mistyped argument.
type FieldError struct {
	Field  string `json:"field"`
	Reason string `json:"reason"`
}

// SchemaValidationError lists arguments that are missing or do not match their declared type.
type SchemaValidationError struct {
	Function string
	Missing  []string
	Mistyped []FieldError
}

func (e *SchemaValidationError) Error() string {
	var parts []string
	if len(e.Missing) > 0 {
		parts = append(parts, "missing: "+strings.Join(e.Missing, ", "))
	}
	for _, m := range e.Mistyped {
		parts = append(parts, fmt.Sprintf("%s: %s", m.Field, m.Reason))
	}
	return fmt.Sprintf("invalid arguments for %q: %s", e.Function, strings.Join(parts, "; "))
}

// DomainValidationError is raised by handlers for arguments that are well typed but unacceptable.
type DomainValidationError struct {
	Field   string
	Message string
}

func (e *DomainValidationError) Error() string {
	return e.Message
}

// NewDomainValidationError is a convenience constructor.
func NewDomainValidationError(field, message string) *DomainValidationError {
	return &DomainValidationError{Field: field, Message: message}
}

// MissingContactError is returned when a booking has no patient email.
type MissingContactError struct {
	PatientName string
}

func (e *MissingContactError) Error() string {
	return "patient email is required to schedule appointment and send calendar invitation"
}

// BackendUnavailableError wraps a calendar backend failure.
type BackendUnavailableError struct {
	Op  string
	Err error
}

func (e *BackendUnavailableError) Error() string {
	return fmt.Sprintf("calendar backend %s failed: %v", e.Op, e.Err)
}

func (e *BackendUnavailableError) Unwrap() error {
	return e.Err
}

// UnknownNodeError means a handler returned a next node id absent from the flow.
type UnknownNodeError struct {
	From     string
	Function string
	NodeID   string
}

func (e *UnknownNodeError) Error() string {
	return fmt.Sprintf("function %q in node %q returned unknown next node %q", e.Function, e.From, e.NodeID)
}
