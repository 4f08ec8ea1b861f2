// Package cli wires the configured backends into a running engine for the
// intakeflow commands.
package cli

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/newcast-health/intakeflow"
	"github.com/newcast-health/intakeflow/internal/config"
	"github.com/newcast-health/intakeflow/internal/logging"
	"github.com/newcast-health/intakeflow/pkg/adapters/file"
	"github.com/newcast-health/intakeflow/pkg/adapters/google"
	"github.com/newcast-health/intakeflow/pkg/adapters/memory"
	"github.com/newcast-health/intakeflow/pkg/adapters/openai"
	redisadapter "github.com/newcast-health/intakeflow/pkg/adapters/redis"
	"github.com/newcast-health/intakeflow/pkg/domain"
	"github.com/newcast-health/intakeflow/pkg/observability"
	"github.com/newcast-health/intakeflow/pkg/persistence/middleware"
	"github.com/newcast-health/intakeflow/pkg/ports"
	"github.com/newcast-health/intakeflow/pkg/scheduling"
	"github.com/newcast-health/intakeflow/pkg/session"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
)

// App is a fully wired engine with its session manager.
type App struct {
	Config   *config.Config
	Logger   *slog.Logger
	Engine   *intakeflow.Engine
	Sessions *session.Manager
	Registry *prometheus.Registry
	Metrics  *observability.Metrics

	redis *redis.Client
}

// AppOption customizes NewApp.
type AppOption func(*appOptions)

type appOptions struct {
	logger *slog.Logger
	clock  scheduling.Clock
	debug  bool
}

// WithAppLogger overrides the logger built from log.level.
func WithAppLogger(logger *slog.Logger) AppOption {
	return func(o *appOptions) {
		o.logger = logger
	}
}

// WithAppClock fixes the engine clock.
func WithAppClock(c scheduling.Clock) AppOption {
	return func(o *appOptions) {
		o.clock = c
	}
}

// WithDebugHooks logs every lifecycle signal at debug level.
func WithDebugHooks() AppOption {
	return func(o *appOptions) {
		o.debug = true
	}
}

// NewApp builds the engine and session manager from cfg.
func NewApp(ctx context.Context, cfg *config.Config, opts ...AppOption) (*App, error) {
	var o appOptions
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		level, err := logging.ParseLevel(cfg.Log.Level)
		if err != nil {
			return nil, err
		}
		o.logger = logging.New(level)
	}

	app := &App{
		Config:   cfg,
		Logger:   o.logger,
		Registry: prometheus.NewRegistry(),
	}
	app.Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	metrics, err := observability.NewMetrics(app.Registry)
	if err != nil {
		return nil, fmt.Errorf("failed to register metrics: %w", err)
	}
	app.Metrics = metrics

	loc, err := cfg.Location()
	if err != nil {
		return nil, fmt.Errorf("invalid time zone: %w", err)
	}

	hooks := []domain.LifecycleHooks{metrics.Hooks()}
	if o.debug {
		hooks = append(hooks, DebugHooks(o.logger))
	}

	engineOpts := []intakeflow.Option{
		intakeflow.WithLogger(o.logger),
		intakeflow.WithLocation(loc),
		intakeflow.WithSlotOptions(cfg.SlotOptions()),
		intakeflow.WithCalendarTimeout(cfg.Calendar.Timeout),
		intakeflow.WithLifecycleHooks(domain.ComposeHooks(hooks...)),
	}
	if o.clock != nil {
		engineOpts = append(engineOpts, intakeflow.WithClock(o.clock))
	}
	if cfg.Flow.Path != "" {
		engineOpts = append(engineOpts, intakeflow.WithLoader(file.NewLoader(cfg.Flow.Path)))
	}

	backendOpts, err := app.backends(ctx)
	if err != nil {
		app.Close()
		return nil, err
	}
	engineOpts = append(engineOpts, backendOpts...)

	eng, err := intakeflow.New(ctx, engineOpts...)
	if err != nil {
		app.Close()
		return nil, err
	}
	app.Engine = eng

	archive, err := app.archive()
	if err != nil {
		app.Close()
		return nil, err
	}
	managerOpts := []session.Option{
		session.WithIdleTTL(cfg.Session.IdleTTL),
		session.WithLogger(o.logger),
	}
	if archive != nil {
		managerOpts = append(managerOpts, session.WithArchive(archive))
	}
	app.Sessions = session.NewManager(func(id string) session.Conversation {
		return eng.NewSession(id)
	}, managerOpts...)

	return app, nil
}

// backends selects the calendar, slot locker and summarizer.
func (a *App) backends(ctx context.Context) ([]intakeflow.Option, error) {
	cfg := a.Config
	var opts []intakeflow.Option

	switch cfg.Calendar.Backend {
	case config.BackendRedis:
		client, err := a.redisClient(ctx)
		if err != nil {
			return nil, err
		}
		opts = append(opts,
			intakeflow.WithCalendar(redisadapter.NewCalendar(client, cfg.Redis.Prefix+"calendar:")),
			intakeflow.WithSlotLocker(redisadapter.NewLocker(client, cfg.Redis.Prefix)),
		)
	case config.BackendGoogle:
		cal, err := google.NewFromCredentialsFile(ctx, cfg.Calendar.ID, cfg.Calendar.CredentialsFile)
		if err != nil {
			return nil, err
		}
		opts = append(opts,
			intakeflow.WithCalendar(cal),
			intakeflow.WithSlotLocker(memory.NewLocker()),
		)
	default:
		opts = append(opts,
			intakeflow.WithCalendar(memory.NewCalendar()),
			intakeflow.WithSlotLocker(memory.NewLocker()),
		)
	}

	if cfg.Summary.Backend == config.BackendOpenAI {
		opts = append(opts, intakeflow.WithSummarizer(openai.New(openai.Config{
			APIKey:  cfg.OpenAI.APIKey,
			BaseURL: cfg.OpenAI.BaseURL,
			Model:   cfg.OpenAI.Model,
			Logger:  a.Logger,
		})))
	}
	return opts, nil
}

// archive selects the session archive and wraps it with the configured
// masking and encryption.
func (a *App) archive() (ports.SessionArchive, error) {
	cfg := a.Config
	var archive ports.SessionArchive
	switch cfg.Archive.Backend {
	case config.BackendNone:
		return nil, nil
	case config.BackendFile:
		archive = file.NewArchive(cfg.Archive.Path)
	case config.BackendRedis:
		client, err := a.redisClient(context.Background())
		if err != nil {
			return nil, err
		}
		opts := []redisadapter.Option{redisadapter.WithPrefix(cfg.Redis.Prefix + "session:")}
		if cfg.Archive.TTL > 0 {
			opts = append(opts, redisadapter.WithTTL(cfg.Archive.TTL))
		}
		archive = redisadapter.NewArchive(client, opts...)
	default:
		archive = memory.NewArchive()
	}

	var mws []middleware.Middleware
	if len(cfg.Archive.MaskFacts) > 0 {
		mw, err := middleware.NewPIIMiddleware(cfg.Archive.MaskFacts)
		if err != nil {
			return nil, err
		}
		mws = append(mws, mw)
	}
	active, fallback, err := cfg.Archive.Keys()
	if err != nil {
		return nil, err
	}
	if active != nil {
		mw, err := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: active, FallbackKeys: fallback})
		if err != nil {
			return nil, err
		}
		mws = append(mws, mw)
	}
	return middleware.Chain(archive, mws...), nil
}

// redisClient returns the shared client, dialing it on first use.
func (a *App) redisClient(ctx context.Context) (*redis.Client, error) {
	if a.redis != nil {
		return a.redis, nil
	}
	client := redis.NewClient(&redis.Options{
		Addr:     a.Config.Redis.Addr,
		Password: a.Config.Redis.Password,
		DB:       a.Config.Redis.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", a.Config.Redis.Addr, err)
	}
	a.redis = client
	return client, nil
}

// Close releases the backend connections. Sessions must be closed first.
func (a *App) Close() error {
	if a.redis == nil {
		return nil
	}
	err := a.redis.Close()
	a.redis = nil
	return err
}

// Shutdown archives the live sessions and releases the backends.
func (a *App) Shutdown(ctx context.Context) error {
	if a.Sessions != nil {
		a.Sessions.Close(ctx)
	}
	return a.Close()
}

// DebugHooks logs lifecycle signals at debug level.
func DebugHooks(logger *slog.Logger) domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnNodeEnter: func(ctx context.Context, e *domain.NodeEvent) {
			logger.Debug("Enter Node", "session_id", e.SessionID, "node_id", e.NodeID)
		},
		OnNodeLeave: func(ctx context.Context, e *domain.NodeEvent) {
			logger.Debug("Leave Node", "session_id", e.SessionID, "node_id", e.NodeID)
		},
		OnFunctionInvoked: func(ctx context.Context, e *domain.InvocationEvent) {
			if e.Succeeded() {
				logger.Debug("Function Invoked", "function", e.Function, "next_node_id", e.NextNodeID, "duration", e.Duration)
			} else {
				logger.Debug("Function Failed", "function", e.Function, "node_id", e.NodeID, "err", e.Err)
			}
		},
		OnSessionEnded: func(ctx context.Context, e *domain.NodeEvent) {
			logger.Debug("Session Ended", "session_id", e.SessionID, "node_id", e.NodeID)
		},
	}
}
