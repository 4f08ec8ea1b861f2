package intakeflow_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/newcast-health/intakeflow"
	"github.com/newcast-health/intakeflow/pkg/adapters/memory"
	"github.com/newcast-health/intakeflow/pkg/domain"
	"github.com/newcast-health/intakeflow/pkg/dsl"
	"github.com/newcast-health/intakeflow/pkg/registry"
	"github.com/newcast-health/intakeflow/pkg/scheduling"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_BundledFlow(t *testing.T) {
	eng, err := intakeflow.New(context.Background(), intakeflow.WithLocation(time.UTC))
	require.NoError(t, err)

	assert.Equal(t, "patient_intake", eng.Name)
	assert.Len(t, eng.Flow().Nodes, 12)
	assert.NotEmpty(t, eng.Edges())

	tools := eng.Functions("schedule_date")
	require.Len(t, tools, 2)
	assert.Equal(t, "get_current_date", tools[0].Name)
}

func TestSession_FullConversation(t *testing.T) {
	ctx := context.Background()
	cal := memory.NewCalendar()
	var ended atomic.Int32

	eng, err := intakeflow.New(ctx,
		intakeflow.WithCalendar(cal),
		intakeflow.WithSlotLocker(memory.NewLocker()),
		intakeflow.WithLocation(time.UTC),
		intakeflow.WithClock(scheduling.FixedClock{T: time.Date(2031, 3, 3, 12, 0, 0, 0, time.UTC)}),
		intakeflow.WithLifecycleHooks(domain.LifecycleHooks{
			OnSessionEnded: func(context.Context, *domain.NodeEvent) { ended.Add(1) },
		}),
	)
	require.NoError(t, err)

	sess := eng.NewSession("s-1")
	assert.Equal(t, "s-1", sess.ID())

	out, err := sess.Initialize(ctx)
	require.NoError(t, err)
	assert.Equal(t, "collect_info", out.NodeID)

	steps := []struct {
		fn   string
		args map[string]any
		want string
	}{
		{"collect_patient_info", map[string]any{"name": "Jane Doe", "birthday": "1990-01-01"}, "get_prescriptions"},
		{"record_prescriptions", map[string]any{"prescriptions": []any{}}, "get_allergies"},
		{"record_allergies", map[string]any{"allergies": []any{}}, "get_conditions"},
		{"record_conditions", map[string]any{"conditions": []any{}}, "get_visit_reasons"},
		{"record_visit_reasons", map[string]any{"visit_reasons": []any{map[string]any{"name": "checkup"}}}, "verify"},
		{"confirm_information", nil, "confirm"},
		{"complete_intake", nil, "schedule_date"},
		{"check_availability", map[string]any{"date": "2031-03-04"}, "schedule_time"},
		{"schedule_appointment_handler", map[string]any{"date": "2031-03-04", "time": "9:30", "email": "jane@example.com"}, "confirm_appointment"},
		{"confirm_final_appointment", nil, "end"},
	}
	for _, step := range steps {
		out, err = sess.Invoke(ctx, step.fn, step.args)
		require.NoError(t, err, step.fn)
		assert.Equal(t, step.want, out.NodeID, step.fn)
	}

	assert.True(t, out.Ended)
	assert.Equal(t, int32(1), ended.Load())
	require.Len(t, cal.Events(), 1)
	assert.True(t, cal.Events()[0].Start.Equal(time.Date(2031, 3, 4, 9, 30, 0, 0, time.UTC)))

	_, err = sess.Invoke(ctx, "confirm_final_appointment", nil)
	assert.ErrorIs(t, err, domain.ErrSessionEnded)
}

func TestSession_ScheduleDateRendersDatetimeContext(t *testing.T) {
	ctx := context.Background()
	b := dsl.New("tiny")
	b.Add("schedule_date").Role("IMPORTANT: {{.sys.datetime_context}}").End()

	eng, err := intakeflow.New(ctx,
		intakeflow.WithLoader(mustBuild(t, b)),
		intakeflow.WithClock(scheduling.FixedClock{T: time.Date(2025, 6, 2, 14, 30, 0, 0, time.UTC)}),
	)
	require.NoError(t, err)

	out, err := eng.NewSession("s").Initialize(ctx)
	require.NoError(t, err)
	assert.Contains(t, out.Messages[0].Content, "IMPORTANT: Today is Monday, June 2nd, 2025.")
}

func mustBuild(t *testing.T, b *dsl.Builder) *memory.Loader {
	t.Helper()
	loader, err := b.Build()
	require.NoError(t, err)
	return loader
}

func TestNew_CustomHandlers(t *testing.T) {
	ctx := context.Background()
	b := dsl.New("custom")
	b.Add("ask").Function("done", "finish")
	b.Add("bye").End()

	eng, err := intakeflow.New(ctx,
		intakeflow.WithLoader(mustBuild(t, b)),
		intakeflow.WithHandlers(registry.Handler{
			Ref: "done",
			Fn: func(context.Context, registry.Call) (domain.HandlerResult, error) {
				return domain.HandlerResult{NextNodeID: "bye"}, nil
			},
			Next: []string{"bye"},
		}),
	)
	require.NoError(t, err)

	sess := eng.NewSession("x")
	_, err = sess.Initialize(ctx)
	require.NoError(t, err)
	out, err := sess.Invoke(ctx, "done", nil)
	require.NoError(t, err)
	assert.True(t, out.Ended)
}

func TestNew_InvalidFlowReportsAllProblems(t *testing.T) {
	b := dsl.New("broken")
	b.Add("ask").Function("nope", "no handler").Function("missing", "no handler either")

	_, err := intakeflow.New(context.Background(), intakeflow.WithLoader(mustBuild(t, b)))

	var loadErr *registry.LoadError
	require.ErrorAs(t, err, &loadErr)
	assert.GreaterOrEqual(t, len(loadErr.Problems), 2)
}

type brokenLoader struct{}

func (brokenLoader) LoadFlow(context.Context) (*domain.Flow, error) {
	return nil, errors.New("disk on fire")
}

func TestNew_LoaderError(t *testing.T) {
	_, err := intakeflow.New(context.Background(), intakeflow.WithLoader(brokenLoader{}))
	assert.ErrorContains(t, err, "disk on fire")
}
