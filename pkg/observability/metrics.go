package observability

import (
	"context"

	"github.com/newcast-health/intakeflow/pkg/domain"
	"github.com/prometheus/client_golang/prometheus"
)

// Outcome label values of intakeflow_function_invocations_total.
const (
	OutcomeSuccess = "success"
)

// Metrics holds the collectors fed by lifecycle hooks.
type Metrics struct {
	NodeEnter     *prometheus.CounterVec
	Invocations   *prometheus.CounterVec
	Duration      *prometheus.HistogramVec
	SessionsEnded prometheus.Counter
}

// NewMetrics creates the collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		NodeEnter: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "intakeflow_node_enter_total",
				Help: "Number of times each node became current.",
			},
			[]string{"node"},
		),
		Invocations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "intakeflow_function_invocations_total",
				Help: "Function invocations by outcome (success or failure kind).",
			},
			[]string{"function", "outcome"},
		),
		Duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "intakeflow_function_duration_seconds",
				Help:    "Duration of function invocations, including calendar round trips.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"function"},
		),
		SessionsEnded: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "intakeflow_sessions_ended_total",
			Help: "Sessions that reached end_conversation.",
		}),
	}

	for _, c := range []prometheus.Collector{m.NodeEnter, m.Invocations, m.Duration, m.SessionsEnded} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// Hooks returns lifecycle hooks updating the metrics.
// Combine with other hooks via domain.ComposeHooks.
func (m *Metrics) Hooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnNodeEnter: func(_ context.Context, e *domain.NodeEvent) {
			m.NodeEnter.WithLabelValues(e.NodeID).Inc()
		},
		OnFunctionInvoked: func(_ context.Context, e *domain.InvocationEvent) {
			outcome := OutcomeSuccess
			if !e.Succeeded() {
				outcome = string(domain.Classify(e.Err).Kind)
			}
			m.Invocations.WithLabelValues(e.Function, outcome).Inc()
			m.Duration.WithLabelValues(e.Function).Observe(e.Duration.Seconds())
		},
		OnSessionEnded: func(context.Context, *domain.NodeEvent) {
			m.SessionsEnded.Inc()
		},
	}
}
