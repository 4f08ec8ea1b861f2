package tui

import (
	"bytes"
	"testing"

	"github.com/newcast-health/intakeflow/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarkdown(t *testing.T) {
	tests := []struct {
		name     string
		outcome  domain.Outcome
		contains []string
		excludes []string
	}{
		{
			name: "node with functions",
			outcome: domain.Outcome{
				NodeID:   "get_allergies",
				Messages: []domain.Message{{Role: domain.RoleSystem, Content: "Ask about allergies."}},
				Functions: []domain.FunctionSpec{
					{Name: "record_allergies", Description: "Record allergies"},
					{Name: "skip"},
				},
			},
			contains: []string{"## get_allergies", "> Ask about allergies.", "- `record_allergies`: Record allergies", "- `skip`\n"},
			excludes: []string{"Conversation ended"},
		},
		{
			name: "ended conversation",
			outcome: domain.Outcome{
				NodeID:    "end",
				Messages:  []domain.Message{{Role: domain.RoleSystem, Content: "Thank the patient."}},
				Functions: []domain.FunctionSpec{{Name: "ignored"}},
				Ended:     true,
			},
			contains: []string{"## end", "*Conversation ended.*"},
			excludes: []string{"**Functions**"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			md := Markdown(&tt.outcome)
			for _, s := range tt.contains {
				assert.Contains(t, md, s)
			}
			for _, s := range tt.excludes {
				assert.NotContains(t, md, s)
			}
		})
	}
}

func TestRenderer(t *testing.T) {
	var buf bytes.Buffer
	r, err := NewRenderer(&buf)
	require.NoError(t, err)

	require.NoError(t, r.RenderOutcome(&domain.Outcome{
		NodeID:    "verify_information",
		Functions: []domain.FunctionSpec{{Name: "confirm_information"}},
	}))
	assert.Contains(t, buf.String(), "verify_information")
	assert.Contains(t, buf.String(), "confirm_information")

	buf.Reset()
	require.NoError(t, r.RenderFailure(&domain.IllegalFunctionError{Function: "book", NodeID: "greeting"}))
	assert.Contains(t, buf.String(), string(domain.FailureIllegalFunction))

	buf.Reset()
	require.NoError(t, r.RenderOutcome(nil))
	assert.Empty(t, buf.String())
}

func TestPrintBanner(t *testing.T) {
	var buf bytes.Buffer
	PrintBanner(&buf, "1.2.3")
	assert.Contains(t, buf.String(), "v1.2.3")
}
