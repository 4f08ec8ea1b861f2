package flows

import (
	"context"
	"testing"

	"github.com/newcast-health/intakeflow/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPatientIntake(t *testing.T) {
	flow, err := Embedded{}.LoadFlow(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "collect_info", flow.InitialNode)
	assert.ElementsMatch(t, []string{
		"collect_info", "get_prescriptions", "get_allergies", "get_conditions",
		"get_visit_reasons", "verify", "confirm", "schedule_date", "schedule_time",
		"reschedule_appointment", "confirm_appointment", "end",
	}, flow.NodeIDs())

	for id, node := range flow.Nodes {
		assert.Equal(t, id, node.ID)
	}

	verify := flow.Nodes["verify"]
	assert.True(t, verify.CompactsHistory())
	assert.Contains(t, verify.ContextStrategy.SummaryTemplate, "{{.patient_name}}")
	assert.NotEmpty(t, verify.ContextStrategy.SummaryPrompt)
	assert.Equal(t, []string{"revise_information", "confirm_information"}, verify.FunctionNames())

	assert.True(t, flow.Nodes["end"].IsTerminal())
	assert.Empty(t, flow.Nodes["end"].Functions)

	sched := flow.Nodes["schedule_time"]
	fn, ok := sched.Function("schedule_appointment_handler")
	require.True(t, ok)
	assert.True(t, fn.Parameters["email"].Required)
	assert.False(t, fn.Parameters["patient_name"].Required)
	require.NotNil(t, fn.Parameters["visit_reasons"].Items)
	assert.Equal(t, "string", fn.Parameters["visit_reasons"].Items.Type)

	require.Len(t, flow.Nodes["schedule_date"].RoleMessages, 1)
	assert.Contains(t, flow.Nodes["schedule_date"].RoleMessages[0].Content, "{{.sys.datetime_context}}")
}

func TestPatientIntake_ReturnsFreshCopy(t *testing.T) {
	a, err := PatientIntake()
	require.NoError(t, err)
	delete(a.Nodes, "end")

	b, err := PatientIntake()
	require.NoError(t, err)
	assert.Contains(t, b.Nodes, "end")
}

func TestDecode(t *testing.T) {
	t.Run("json", func(t *testing.T) {
		flow, err := Decode([]byte(`{
			"initial_node": "a",
			"nodes": {"a": {"post_actions": [{"type": "end_conversation"}]}}
		}`), FormatJSON)
		require.NoError(t, err)
		assert.Equal(t, "a", flow.Nodes["a"].ID)
		assert.True(t, flow.Nodes["a"].HasPostAction(domain.PostActionEndConversation))
	})

	t.Run("yaml handler reference", func(t *testing.T) {
		flow, err := Decode([]byte(`
initial_node: a
nodes:
  a:
    functions:
      - name: go
        handler: other
`), FormatYAML)
		require.NoError(t, err)
		assert.Equal(t, "other", flow.Nodes["a"].Functions[0].Handler())
	})

	t.Run("unknown yaml field", func(t *testing.T) {
		_, err := Decode([]byte("initial_node: a\nnodez: {}\n"), FormatYAML)
		assert.Error(t, err)
	})

	t.Run("unknown json field", func(t *testing.T) {
		_, err := Decode([]byte(`{"initial_node":"a","bogus":1}`), FormatJSON)
		assert.Error(t, err)
	})

	t.Run("mismatched id", func(t *testing.T) {
		_, err := Decode([]byte("initial_node: a\nnodes:\n  a:\n    id: b\n"), FormatYAML)
		assert.ErrorContains(t, err, "mismatched id")
	})

	t.Run("unsupported format", func(t *testing.T) {
		_, err := Decode([]byte("{}"), Format("toml"))
		assert.Error(t, err)
	})
}

func TestFormatFromPath(t *testing.T) {
	tests := []struct {
		path    string
		want    Format
		wantErr bool
	}{
		{"flow.yaml", FormatYAML, false},
		{"dir/flow.YML", FormatYAML, false},
		{"flow.json", FormatJSON, false},
		{"flow.toml", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			got, err := FormatFromPath(tt.path)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
