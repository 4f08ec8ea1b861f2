package runtime

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/newcast-health/intakeflow/internal/logging"
	"github.com/newcast-health/intakeflow/pkg/domain"
	"github.com/newcast-health/intakeflow/pkg/ports"
	"github.com/newcast-health/intakeflow/pkg/registry"
)

// Engine is the state machine of one session. It owns the session's FlowContext and
// is driven only through Initialize and Invoke.
type Engine struct {
	table        *registry.Table
	sessionID    string
	summarizer   ports.Summarizer
	fallback     ports.Summarizer
	interpolator Interpolator
	now          func() time.Time
	location     *time.Location
	hooks        domain.LifecycleHooks
	logger       *slog.Logger

	mu       sync.Mutex
	state    *domain.FlowContext
	inFlight atomic.Bool
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithSessionID tags events and logs with the session id.
func WithSessionID(id string) EngineOption {
	return func(e *Engine) {
		e.sessionID = id
	}
}

// WithSummarizer sets the summarizer used by reset-with-summary compaction.
// On failure the engine falls back to the template summarizer.
func WithSummarizer(s ports.Summarizer) EngineOption {
	return func(e *Engine) {
		e.summarizer = s
	}
}

// WithInterpolator replaces the text/template message interpolator.
func WithInterpolator(i Interpolator) EngineOption {
	return func(e *Engine) {
		e.interpolator = i
	}
}

// WithClock sets the time source for the sys.datetime_context value.
func WithClock(now func() time.Time) EngineOption {
	return func(e *Engine) {
		e.now = now
	}
}

// WithLocation sets the time zone that decides the sys.today date. Defaults to UTC.
func WithLocation(loc *time.Location) EngineOption {
	return func(e *Engine) {
		if loc != nil {
			e.location = loc
		}
	}
}

// WithLifecycleHooks registers lifecycle signal callbacks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) EngineOption {
	return func(e *Engine) {
		e.hooks = hooks
	}
}

// WithLogger sets the engine logger.
func WithLogger(logger *slog.Logger) EngineOption {
	return func(e *Engine) {
		e.logger = logger
	}
}

// NewEngine creates an idle engine over a bound flow table.
func NewEngine(table *registry.Table, opts ...EngineOption) *Engine {
	e := &Engine{
		table:        table,
		fallback:     NewTemplateSummarizer(),
		interpolator: TemplateInterpolator,
		now:          time.Now,
		location:     time.UTC,
		logger:       logging.NewNop(),
		state:        domain.NewFlowContext(),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.summarizer == nil {
		e.summarizer = e.fallback
	}
	e.logger = e.logger.With("session_id", e.sessionID)
	return e
}

// SessionID returns the session id the engine was created with.
func (e *Engine) SessionID() string {
	return e.sessionID
}

// Snapshot returns a copy of the current context.
func (e *Engine) Snapshot() *domain.FlowContext {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state.Clone()
}

// Tools returns the model-facing definitions of the current legal call set.
func (e *Engine) Tools() []registry.Tool {
	e.mu.Lock()
	nodeID := e.state.CurrentNodeID
	e.mu.Unlock()
	return e.table.Tools(nodeID)
}

// Record appends externally produced transcript messages (user and assistant turns).
func (e *Engine) Record(msgs ...domain.Message) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.inFlight.Load() {
		return domain.ErrInvocationInFlight
	}
	if e.state.Ended() {
		return domain.ErrSessionEnded
	}
	e.state.Messages = append(e.state.Messages, msgs...)
	return nil
}

// Initialize enters the initial node and emits its messages. It may be called once.
func (e *Engine) Initialize(ctx context.Context) (*domain.Outcome, error) {
	if !e.inFlight.CompareAndSwap(false, true) {
		return nil, domain.ErrInvocationInFlight
	}
	defer e.inFlight.Store(false)

	e.mu.Lock()
	if e.state.Status != domain.StatusIdle {
		e.mu.Unlock()
		return nil, domain.ErrAlreadyInitialized
	}
	before := e.state.Clone()
	e.mu.Unlock()

	initial, _ := e.table.Node(e.table.InitialNode())

	after := before.Clone()
	after.Status = domain.StatusActive
	messages, err := e.enter(ctx, after, initial)
	if err != nil {
		return nil, err
	}

	e.commit(after)

	e.emitNode(ctx, e.hooks.OnInitialize, domain.EventInitialize, initial.ID)
	e.emitNode(ctx, e.hooks.OnNodeEnter, domain.EventNodeEnter, initial.ID)
	if after.Ended() {
		e.emitNode(ctx, e.hooks.OnSessionEnded, domain.EventSessionEnded, initial.ID)
	}

	e.logger.Debug("Session initialized", "node_id", initial.ID)
	return &domain.Outcome{
		NodeID:    initial.ID,
		Messages:  messages,
		Functions: initial.Functions,
		Changes:   domain.Diff(before, after),
		Ended:     after.Ended(),
	}, nil
}

func (e *Engine) commit(next *domain.FlowContext) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.state = next
}

func (e *Engine) emitNode(ctx context.Context, hook func(context.Context, *domain.NodeEvent), kind domain.EventType, nodeID string) {
	if hook == nil {
		return
	}
	hook(ctx, &domain.NodeEvent{
		EventBase: domain.EventBase{Timestamp: e.now(), Type: kind, SessionID: e.sessionID},
		NodeID:    nodeID,
	})
}
