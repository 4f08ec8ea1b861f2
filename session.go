package intakeflow

import (
	"context"

	"github.com/newcast-health/intakeflow/internal/runtime"
	"github.com/newcast-health/intakeflow/pkg/domain"
	"github.com/newcast-health/intakeflow/pkg/registry"
)

// Session is one conversation. Invocations on a session are sequential: a call made
// while another is running fails with domain.ErrInvocationInFlight.
type Session struct {
	rt *runtime.Engine
}

// ID returns the session id.
func (s *Session) ID() string {
	return s.rt.SessionID()
}

// Initialize enters the initial node and returns its messages.
func (s *Session) Initialize(ctx context.Context) (*domain.Outcome, error) {
	return s.rt.Initialize(ctx)
}

// Invoke calls a function of the current node. On error the session stays where it was.
func (s *Session) Invoke(ctx context.Context, name string, args map[string]any) (*domain.Outcome, error) {
	return s.rt.Invoke(ctx, name, args)
}

// Record appends user or assistant turns to the transcript.
func (s *Session) Record(msgs ...domain.Message) error {
	return s.rt.Record(msgs...)
}

// Snapshot returns a copy of the session context.
func (s *Session) Snapshot() *domain.FlowContext {
	return s.rt.Snapshot()
}

// Tools returns the functions legal at the current node.
func (s *Session) Tools() []registry.Tool {
	return s.rt.Tools()
}
