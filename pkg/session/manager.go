package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/newcast-health/intakeflow/internal/logging"
	"github.com/newcast-health/intakeflow/pkg/domain"
	"github.com/newcast-health/intakeflow/pkg/ports"
	"github.com/newcast-health/intakeflow/pkg/registry"
)

// Conversation is one live session engine.
type Conversation interface {
	ID() string
	Initialize(ctx context.Context) (*domain.Outcome, error)
	Invoke(ctx context.Context, name string, args map[string]any) (*domain.Outcome, error)
	Record(msgs ...domain.Message) error
	Snapshot() *domain.FlowContext
	Tools() []registry.Tool
}

// Factory builds the conversation of a new session.
type Factory func(id string) Conversation

// DefaultIdleTTL is how long a session may sit without requests before it is reaped.
const DefaultIdleTTL = 30 * time.Minute

// lockEntry is a per-session semaphore with a reference count.
type lockEntry struct {
	sem  chan struct{}
	refs int
}

// live is a running session.
type live struct {
	conv     Conversation
	ctx      context.Context // canceled on teardown
	cancel   context.CancelFunc
	lastUsed time.Time // guarded by Manager.mu
	inFlight atomic.Bool
}

// Manager owns the live sessions of a process. Requests on one session are
// queued and run one at a time; different sessions run concurrently.
// Ending a session cancels its in-flight invocation.
type Manager struct {
	factory Factory
	archive ports.SessionArchive
	idleTTL time.Duration
	now     func() time.Time
	logger  *slog.Logger

	mu       sync.Mutex
	sessions map[string]*live
	locks    map[string]*lockEntry
}

// Option configures the Manager.
type Option func(*Manager)

// WithArchive stores a snapshot of every session after each change and on teardown.
func WithArchive(archive ports.SessionArchive) Option {
	return func(m *Manager) {
		m.archive = archive
	}
}

// WithIdleTTL sets the idle time after which Reap tears a session down.
func WithIdleTTL(ttl time.Duration) Option {
	return func(m *Manager) {
		m.idleTTL = ttl
	}
}

// WithClock sets the time source used for idle tracking.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		m.now = now
	}
}

// WithLogger configures a logger for the Manager.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		m.logger = logger
	}
}

// NewManager creates a session manager building conversations with factory.
func NewManager(factory Factory, opts ...Option) *Manager {
	m := &Manager{
		factory:  factory,
		idleTTL:  DefaultIdleTTL,
		now:      time.Now,
		logger:   logging.NewNop(),
		sessions: make(map[string]*live),
		locks:    make(map[string]*lockEntry),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// acquire gets or creates a lock entry and increments its reference count.
// The caller must call release(sessionID) when done with the entry.
func (m *Manager) acquire(sessionID string) *lockEntry {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, exists := m.locks[sessionID]
	if !exists {
		entry = &lockEntry{sem: make(chan struct{}, 1)}
		m.locks[sessionID] = entry
	}
	entry.refs++
	return entry
}

// release decrements the reference count and deletes the entry if it reaches zero.
func (m *Manager) release(sessionID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, exists := m.locks[sessionID]
	if !exists {
		return
	}
	entry.refs--
	if entry.refs <= 0 {
		delete(m.locks, sessionID)
	}
}

// withLock runs fn while holding the session's lock. Waiting for the lock
// honors ctx.
func (m *Manager) withLock(ctx context.Context, sessionID string, fn func() error) error {
	entry := m.acquire(sessionID)
	defer m.release(sessionID)

	select {
	case entry.sem <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	}
	defer func() { <-entry.sem }()

	return fn()
}

func (m *Manager) lookup(sessionID string) (*live, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[sessionID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrSessionNotFound, sessionID)
	}
	s.lastUsed = m.now()
	return s, nil
}

// Start creates and initializes a session. An empty id generates one.
func (m *Manager) Start(ctx context.Context, sessionID string) (string, *domain.Outcome, error) {
	if sessionID == "" {
		sessionID = uuid.NewString()
	}

	var outcome *domain.Outcome
	err := m.withLock(ctx, sessionID, func() error {
		m.mu.Lock()
		if _, exists := m.sessions[sessionID]; exists {
			m.mu.Unlock()
			return fmt.Errorf("%w: %s", domain.ErrSessionExists, sessionID)
		}
		sctx, cancel := context.WithCancelCause(context.Background())
		s := &live{
			conv:     m.factory(sessionID),
			ctx:      sctx,
			cancel:   func() { cancel(domain.ErrSessionClosed) },
			lastUsed: m.now(),
		}
		m.sessions[sessionID] = s
		m.mu.Unlock()

		var err error
		outcome, err = s.conv.Initialize(ctx)
		if err != nil {
			m.remove(sessionID, s)
			s.cancel()
			return err
		}
		m.save(ctx, sessionID, s)
		return nil
	})
	if err != nil {
		return "", nil, err
	}

	m.logger.Info("Session started", "session_id", sessionID, "node_id", outcome.NodeID)
	return sessionID, outcome, nil
}

// Invoke calls a function on the session. Calls on one session run in arrival order.
// If the session is ended while the call runs, Invoke returns an error wrapping
// domain.ErrSessionClosed without waiting for the handler.
// A call that reaches a terminal node completes the session: it is archived and
// removed, and later calls fail with domain.ErrSessionEnded.
func (m *Manager) Invoke(ctx context.Context, sessionID, name string, args map[string]any) (*domain.Outcome, error) {
	var outcome *domain.Outcome
	err := m.withLock(ctx, sessionID, func() error {
		s, err := m.lookup(sessionID)
		if err != nil {
			return m.missing(ctx, sessionID, err)
		}

		ictx, stop := bind(ctx, s.ctx)
		defer stop()

		s.inFlight.Store(true)
		outcome, err = s.conv.Invoke(ictx, name, args)
		s.inFlight.Store(false)

		if errors.Is(context.Cause(ictx), domain.ErrSessionClosed) {
			return fmt.Errorf("%w: %w", domain.ErrSessionClosed, ictx.Err())
		}
		if err != nil {
			return err
		}
		if outcome.Ended {
			m.remove(sessionID, s)
			m.teardown(ctx, sessionID, s, "completed")
			return nil
		}
		m.save(ctx, sessionID, s)
		return nil
	})
	return outcome, err
}

// Record appends transcript turns to the session.
func (m *Manager) Record(ctx context.Context, sessionID string, msgs ...domain.Message) error {
	return m.withLock(ctx, sessionID, func() error {
		s, err := m.lookup(sessionID)
		if err != nil {
			return m.missing(ctx, sessionID, err)
		}
		if err := s.conv.Record(msgs...); err != nil {
			return err
		}
		m.save(ctx, sessionID, s)
		return nil
	})
}

// Get returns the session context: the live one if the session is running,
// otherwise the archived snapshot.
func (m *Manager) Get(ctx context.Context, sessionID string) (*domain.FlowContext, error) {
	m.mu.Lock()
	s, ok := m.sessions[sessionID]
	m.mu.Unlock()
	if ok {
		return s.conv.Snapshot(), nil
	}

	if m.archive == nil {
		return nil, fmt.Errorf("%w: %s", domain.ErrSessionNotFound, sessionID)
	}
	return m.archive.Load(ctx, sessionID)
}

// Tools returns the functions legal at the session's current node.
func (m *Manager) Tools(sessionID string) ([]registry.Tool, error) {
	m.mu.Lock()
	s, ok := m.sessions[sessionID]
	m.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrSessionNotFound, sessionID)
	}
	return s.conv.Tools(), nil
}

// List returns the ids of the live sessions, sorted.
func (m *Manager) List() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	ids := make([]string, 0, len(m.sessions))
	for id := range m.sessions {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// End tears the session down. It does not wait for an in-flight invocation:
// that call is canceled and its result discarded. The final snapshot is archived.
func (m *Manager) End(ctx context.Context, sessionID string) error {
	m.mu.Lock()
	s, ok := m.sessions[sessionID]
	if ok {
		delete(m.sessions, sessionID)
	}
	m.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %s", domain.ErrSessionNotFound, sessionID)
	}

	m.teardown(ctx, sessionID, s, "ended")
	return nil
}

// Reap ends every session idle for longer than the idle TTL and returns how many it removed.
// Sessions with an invocation in flight are never reaped.
func (m *Manager) Reap(ctx context.Context) int {
	cutoff := m.now().Add(-m.idleTTL)

	m.mu.Lock()
	expired := make(map[string]*live)
	for id, s := range m.sessions {
		if s.lastUsed.Before(cutoff) && !s.inFlight.Load() {
			expired[id] = s
			delete(m.sessions, id)
		}
	}
	m.mu.Unlock()

	for id, s := range expired {
		m.teardown(ctx, id, s, "idle")
	}
	return len(expired)
}

// Run reaps idle sessions periodically until ctx is done.
func (m *Manager) Run(ctx context.Context) error {
	interval := m.idleTTL / 2
	if interval < time.Second {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if n := m.Reap(ctx); n > 0 {
				m.logger.Debug("Reaped idle sessions", "count", n)
			}
		}
	}
}

// Close ends every live session.
func (m *Manager) Close(ctx context.Context) {
	m.mu.Lock()
	all := m.sessions
	m.sessions = make(map[string]*live)
	m.mu.Unlock()

	for id, s := range all {
		m.teardown(ctx, id, s, "shutdown")
	}
}

func (m *Manager) teardown(ctx context.Context, sessionID string, s *live, reason string) {
	if s.inFlight.Load() {
		m.logger.Info("Session closed with invocation in flight", "session_id", sessionID, "reason", reason)
	}
	s.cancel()
	m.save(ctx, sessionID, s)
	m.logger.Info("Session closed", "session_id", sessionID, "reason", reason)
}

// missing upgrades a lookup failure to domain.ErrSessionEnded when the session
// has already been archived as finished.
func (m *Manager) missing(ctx context.Context, sessionID string, err error) error {
	if m.archive == nil {
		return err
	}
	fc, lerr := m.archive.Load(ctx, sessionID)
	if lerr != nil || !fc.Ended() {
		return err
	}
	return fmt.Errorf("%w: %s", domain.ErrSessionEnded, sessionID)
}

func (m *Manager) remove(sessionID string, s *live) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.sessions[sessionID] == s {
		delete(m.sessions, sessionID)
	}
}

// save archives a snapshot. Archive failures are logged, never returned:
// the live session stays authoritative.
func (m *Manager) save(ctx context.Context, sessionID string, s *live) {
	if m.archive == nil {
		return
	}
	if err := m.archive.Save(context.WithoutCancel(ctx), sessionID, s.conv.Snapshot()); err != nil {
		m.logger.Warn("Failed to archive session", "session_id", sessionID, "err", err)
	}
}

// bind derives a context canceled when either ctx or the session context is done.
func bind(ctx, session context.Context) (context.Context, context.CancelFunc) {
	out, cancel := context.WithCancelCause(ctx)
	stop := context.AfterFunc(session, func() {
		cancel(context.Cause(session))
	})
	return out, func() {
		stop()
		cancel(nil)
	}
}
