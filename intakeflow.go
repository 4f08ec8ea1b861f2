package intakeflow

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/newcast-health/intakeflow/internal/logging"
	"github.com/newcast-health/intakeflow/internal/runtime"
	"github.com/newcast-health/intakeflow/pkg/adapters/memory"
	"github.com/newcast-health/intakeflow/pkg/domain"
	"github.com/newcast-health/intakeflow/pkg/flows"
	"github.com/newcast-health/intakeflow/pkg/handlers"
	"github.com/newcast-health/intakeflow/pkg/ports"
	"github.com/newcast-health/intakeflow/pkg/registry"
	"github.com/newcast-health/intakeflow/pkg/scheduling"
)

// Engine is the high-level entry point of the library. It holds the bound flow and the
// shared scheduling collaborators, and creates one Session per conversation.
type Engine struct {
	table *registry.Table

	loader          ports.FlowLoader
	calendar        ports.Calendar
	locker          ports.SlotLocker
	summarizer      ports.Summarizer
	interpolator    runtime.Interpolator
	clock           scheduling.Clock
	location        *time.Location
	slotOpts        scheduling.SlotOptions
	calendarTimeout time.Duration
	extra           []registry.Handler
	hooks           domain.LifecycleHooks
	logger          *slog.Logger

	Name string
}

// Option defines a functional option for configuring the Engine.
type Option func(*Engine)

// WithLoader replaces the bundled patient intake flow.
func WithLoader(l ports.FlowLoader) Option {
	return func(e *Engine) {
		e.loader = l
	}
}

// WithCalendar sets the calendar backend. Defaults to an in-memory calendar.
func WithCalendar(c ports.Calendar) Option {
	return func(e *Engine) {
		e.calendar = c
	}
}

// WithSlotLocker serializes concurrent bookings of the same slot.
func WithSlotLocker(l ports.SlotLocker) Option {
	return func(e *Engine) {
		e.locker = l
	}
}

// WithSummarizer sets the summarizer used when a node resets the history.
func WithSummarizer(s ports.Summarizer) Option {
	return func(e *Engine) {
		e.summarizer = s
	}
}

// WithInterpolator sets a custom message interpolator.
func WithInterpolator(interp runtime.Interpolator) Option {
	return func(e *Engine) {
		e.interpolator = interp
	}
}

// WithClock sets the time source that defines "today".
func WithClock(c scheduling.Clock) Option {
	return func(e *Engine) {
		e.clock = c
	}
}

// WithLocation sets the clinic time zone. Defaults to America/New_York.
func WithLocation(loc *time.Location) Option {
	return func(e *Engine) {
		e.location = loc
	}
}

// WithSlotOptions sets slot duration, step and business hours.
func WithSlotOptions(opts scheduling.SlotOptions) Option {
	return func(e *Engine) {
		e.slotOpts = opts
	}
}

// WithCalendarTimeout bounds every calendar round trip.
func WithCalendarTimeout(d time.Duration) Option {
	return func(e *Engine) {
		e.calendarTimeout = d
	}
}

// WithHandlers registers additional handlers for custom flows.
func WithHandlers(hs ...registry.Handler) Option {
	return func(e *Engine) {
		e.extra = append(e.extra, hs...)
	}
}

// WithLifecycleHooks registers observability hooks shared by every session.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(e *Engine) {
		e.hooks = hooks
	}
}

// WithLogger sets a custom structured logger for the engine.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// New loads the flow, registers the handlers and validates the flow against them.
// Referential problems in the flow are reported together as a *registry.LoadError.
func New(ctx context.Context, opts ...Option) (*Engine, error) {
	eng := &Engine{
		calendarTimeout: scheduling.DefaultBackendTimeout,
	}
	for _, opt := range opts {
		opt(eng)
	}

	if eng.logger == nil {
		eng.logger = logging.NewNop()
	}
	if eng.loader == nil {
		eng.loader = flows.Embedded{}
	}
	if eng.calendar == nil {
		eng.logger.Info("No calendar backend configured, bookings are kept in memory")
		eng.calendar = memory.NewCalendar()
	}
	if eng.clock == nil {
		eng.clock = scheduling.SystemClock{}
	}
	if eng.location == nil {
		loc, err := time.LoadLocation(scheduling.DefaultTimeZone)
		if err != nil {
			eng.logger.Warn("Time zone unavailable, falling back to UTC", "tz", scheduling.DefaultTimeZone, "err", err)
			loc = time.UTC
		}
		eng.location = loc
	}

	flow, err := eng.loader.LoadFlow(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load flow: %w", err)
	}
	eng.Name = flow.Name
	if eng.Name != "" {
		eng.logger = eng.logger.With("flow", eng.Name)
	}

	reg := registry.New()
	if err := handlers.Register(reg, eng.deps()); err != nil {
		return nil, fmt.Errorf("failed to register handlers: %w", err)
	}
	for _, h := range eng.extra {
		if err := reg.Register(h); err != nil {
			return nil, fmt.Errorf("failed to register handler: %w", err)
		}
	}

	table, err := reg.Bind(flow)
	if err != nil {
		return nil, err
	}
	for _, id := range table.Unreachable() {
		eng.logger.Warn("Node is unreachable from the initial node", "node_id", id)
	}
	eng.table = table

	eng.logger.Debug("Flow loaded", "nodes", len(flow.Nodes), "initial_node", flow.InitialNode)
	return eng, nil
}

func (e *Engine) deps() handlers.Deps {
	slotOpts := e.slotOpts
	slotOpts.Location = e.location

	schedOpts := []scheduling.SchedulerOption{
		scheduling.WithLocation(e.location),
		scheduling.WithBookingTimeout(e.calendarTimeout),
		scheduling.WithSchedulerLogger(e.logger),
	}
	if slotOpts.Duration > 0 {
		schedOpts = append(schedOpts, scheduling.WithAppointmentDuration(slotOpts.Duration))
	}
	if e.locker != nil {
		schedOpts = append(schedOpts, scheduling.WithSlotLocker(e.locker))
	}

	return handlers.Deps{
		Availability: scheduling.NewAvailability(e.calendar,
			scheduling.WithSlotOptions(slotOpts),
			scheduling.WithListTimeout(e.calendarTimeout),
			scheduling.WithAvailabilityLogger(e.logger),
		),
		Scheduler: scheduling.NewScheduler(e.calendar, schedOpts...),
		Clock:     e.clock,
		Location:  e.location,
	}
}

// NewSession creates an idle session. Call Initialize before invoking functions.
func (e *Engine) NewSession(id string) *Session {
	opts := []runtime.EngineOption{
		runtime.WithSessionID(id),
		runtime.WithClock(e.clock.Now),
		runtime.WithLocation(e.location),
		runtime.WithLifecycleHooks(e.hooks),
		runtime.WithLogger(e.logger),
	}
	if e.summarizer != nil {
		opts = append(opts, runtime.WithSummarizer(e.summarizer))
	}
	if e.interpolator != nil {
		opts = append(opts, runtime.WithInterpolator(e.interpolator))
	}
	return &Session{rt: runtime.NewEngine(e.table, opts...)}
}

// Flow returns the loaded flow definition.
func (e *Engine) Flow() *domain.Flow {
	return e.table.Flow()
}

// Edges returns every declared transition of the flow.
func (e *Engine) Edges() []domain.Edge {
	return e.table.Edges()
}

// Functions lists the legal calls of a node as model-facing tool definitions.
func (e *Engine) Functions(nodeID string) []registry.Tool {
	return e.table.Tools(nodeID)
}
