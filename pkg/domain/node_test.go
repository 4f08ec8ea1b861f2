package domain

import (
	"errors"
	"fmt"
	"testing"
	"time"
)

func TestFlow_Normalize(t *testing.T) {
	f := &Flow{
		InitialNode: "a",
		Nodes: map[string]Node{
			"a": {Functions: []FunctionSpec{{Name: "go"}}},
			"b": {ID: "b"},
		},
	}
	if err := f.Normalize(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if f.Nodes["a"].ID != "a" {
		t.Errorf("expected id to be filled, got %q", f.Nodes["a"].ID)
	}

	bad := &Flow{Nodes: map[string]Node{"a": {ID: "z"}}}
	if err := bad.Normalize(); err == nil {
		t.Error("expected mismatched id error")
	}
}

func TestNode_Helpers(t *testing.T) {
	n := Node{
		ID:              "verify",
		Functions:       []FunctionSpec{{Name: "revise_information"}, {Name: "confirm_information", HandlerRef: "confirm"}},
		ContextStrategy: &ContextStrategy{Type: StrategyResetWithSummary},
	}

	if got := n.FunctionNames(); len(got) != 2 || got[0] != "revise_information" {
		t.Errorf("unexpected names %v", got)
	}
	fn, ok := n.Function("confirm_information")
	if !ok || fn.Handler() != "confirm" {
		t.Errorf("expected explicit handler ref, got %q", fn.Handler())
	}
	if fn, _ := n.Function("revise_information"); fn.Handler() != "revise_information" {
		t.Errorf("expected handler to default to name, got %q", fn.Handler())
	}
	if !n.CompactsHistory() {
		t.Error("expected compaction")
	}
	if n.IsTerminal() {
		t.Error("node with functions is not terminal")
	}

	end := Node{PostActions: []PostAction{{Type: PostActionEndConversation}}}
	if !end.IsTerminal() || !end.HasPostAction(PostActionEndConversation) {
		t.Error("expected terminal end node")
	}
}

func TestBusyInterval_OverlapBoundaries(t *testing.T) {
	at := func(h, m int) time.Time { return time.Date(2030, 1, 2, h, m, 0, 0, time.UTC) }
	busy := BusyInterval{Start: at(9, 0), End: at(9, 30)}

	tests := []struct {
		start, end time.Time
		want       bool
	}{
		{at(9, 0), at(9, 30), true},    // exact cover
		{at(8, 30), at(9, 0), false},   // touches start
		{at(9, 30), at(10, 0), false},  // touches end
		{at(9, 15), at(9, 45), true},   // partial
		{at(8, 0), at(10, 0), true},    // contains
		{at(10, 0), at(10, 30), false}, // disjoint
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("%s-%s", tt.start.Format("15:04"), tt.end.Format("15:04")), func(t *testing.T) {
			if got := busy.Overlaps(tt.start, tt.end); got != tt.want {
				t.Errorf("Overlaps() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		err  error
		want FailureKind
	}{
		{&IllegalFunctionError{NodeID: "a", Function: "x"}, FailureIllegalFunction},
		{&SchemaValidationError{Function: "x", Missing: []string{"name"}}, FailureSchemaValidation},
		{fmt.Errorf("handler: %w", NewDomainValidationError("name", "Name must be at least 2 characters long")), FailureDomainValidation},
		{&MissingContactError{}, FailureMissingContact},
		{&BackendUnavailableError{Op: "create", Err: errors.New("boom")}, FailureBackendUnavailable},
		{ErrAlreadyInitialized, FailureSession},
		{fmt.Errorf("invoke: %w", ErrSessionClosed), FailureSession},
		{errors.New("other"), FailureInternal},
	}
	for _, tt := range tests {
		t.Run(string(tt.want), func(t *testing.T) {
			if got := Classify(tt.err); got.Kind != tt.want {
				t.Errorf("Classify() = %s, want %s", got.Kind, tt.want)
			}
		})
	}

	if msg := Classify(NewDomainValidationError("name", "Name must be at least 2 characters long")).Message; msg != "Name must be at least 2 characters long" {
		t.Errorf("unexpected message %q", msg)
	}
}
