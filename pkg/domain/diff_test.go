package domain

import (
	"reflect"
	"testing"
)

func TestDiff(t *testing.T) {
	active := StatusActive
	ended := StatusEnded
	verify := "verify"

	tests := []struct {
		name     string
		old      *FlowContext
		new      *FlowContext
		wantDiff *ContextDiff
	}{
		{
			name: "Initial Load (Old is Nil)",
			old:  nil,
			new: &FlowContext{
				CurrentNodeID: "collect_info",
				Status:        StatusActive,
				Facts:         map[string]any{"a": 1},
				History:       []string{"collect_info"},
			},
			wantDiff: &ContextDiff{
				CurrentNodeID: &[]string{"collect_info"}[0],
				Status:        &active,
				Facts:         map[string]any{"a": 1},
				Visited:       []string{"collect_info"},
			},
		},
		{
			name: "No Changes",
			old: &FlowContext{
				CurrentNodeID: "collect_info",
				Status:        StatusActive,
				Facts:         map[string]any{"a": 1},
				History:       []string{"collect_info"},
			},
			new: &FlowContext{
				CurrentNodeID: "collect_info",
				Status:        StatusActive,
				Facts:         map[string]any{"a": 1},
				History:       []string{"collect_info"},
			},
			wantDiff: nil,
		},
		{
			name: "Transition With New And Modified Facts",
			old: &FlowContext{
				CurrentNodeID: "get_visit_reasons",
				Status:        StatusActive,
				Facts:         map[string]any{"patient_name": "Jane", "allergies": 0},
				History:       []string{"get_visit_reasons"},
				Messages:      []Message{{Role: RoleSystem, Content: "a"}},
			},
			new: &FlowContext{
				CurrentNodeID: "verify",
				Status:        StatusActive,
				Facts:         map[string]any{"patient_name": "Jane", "allergies": 1, "visit_reasons": 2},
				History:       []string{"get_visit_reasons", "verify"},
				Messages:      []Message{{Role: RoleSystem, Content: "a"}, {Role: RoleSystem, Content: "b"}},
			},
			wantDiff: &ContextDiff{
				CurrentNodeID: &verify,
				Facts:         map[string]any{"allergies": 1, "visit_reasons": 2},
				Visited:       []string{"verify"},
			},
		},
		{
			name: "Status Ended And Compacted",
			old: &FlowContext{
				CurrentNodeID: "end",
				Status:        StatusActive,
				History:       []string{"end"},
				Messages:      []Message{{Content: "1"}, {Content: "2"}},
			},
			new: &FlowContext{
				CurrentNodeID: "end",
				Status:        StatusEnded,
				History:       []string{"end"},
				Messages:      []Message{{Content: "summary"}},
			},
			wantDiff: &ContextDiff{
				Status:            &ended,
				MessagesCompacted: true,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Diff(tt.old, tt.new)
			if !reflect.DeepEqual(got, tt.wantDiff) {
				t.Errorf("Diff() = %+v, want %+v", got, tt.wantDiff)
			}
		})
	}
}

func TestFlowContext_CloneIsolation(t *testing.T) {
	c := NewFlowContext()
	c.CurrentNodeID = "collect_info"
	c.History = append(c.History, "collect_info")
	c.MergeFacts(map[string]any{FactPatientName: "Jane Doe"})

	clone := c.Clone()
	clone.MergeFacts(map[string]any{FactBirthday: "1990-01-01"})
	clone.History = append(clone.History, "get_prescriptions")

	if _, ok := c.Facts[FactBirthday]; ok {
		t.Error("clone facts leaked into original")
	}
	if len(c.History) != 1 {
		t.Errorf("expected original history length 1, got %d", len(c.History))
	}
}

func TestFlowContext_MergeFactsOverwritesOnly(t *testing.T) {
	c := NewFlowContext()
	c.MergeFacts(map[string]any{"a": 1, "b": 2})
	c.MergeFacts(map[string]any{"a": 3})

	if c.Facts["a"] != 3 || c.Facts["b"] != 2 {
		t.Errorf("unexpected facts: %v", c.Facts)
	}
}
