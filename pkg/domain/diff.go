package domain

import (
	"reflect"
)

// ContextDiff represents the changes between two FlowContext snapshots.
// It is designed to be serialized to JSON for partial updates on the client.
type ContextDiff struct {
	CurrentNodeID *string          `json:"current_node_id,omitempty"`
	Status        *ExecutionStatus `json:"status,omitempty"`

	// Facts contains only added or modified keys. Facts are never deleted.
	Facts map[string]any `json:"facts,omitempty"`

	// Visited contains node ids appended to the history.
	Visited []string `json:"visited,omitempty"`

	// MessagesCompacted is set when the transcript was replaced by a summary.
	MessagesCompacted bool `json:"messages_compacted,omitempty"`
}

// Diff calculates the difference between before and after.
// If before is nil, it returns a diff representing the entire after context.
func Diff(before, after *FlowContext) *ContextDiff {
	if after == nil {
		return nil
	}

	diff := &ContextDiff{}

	if before == nil || before.CurrentNodeID != after.CurrentNodeID {
		diff.CurrentNodeID = &after.CurrentNodeID
	}
	if before == nil || before.Status != after.Status {
		diff.Status = &after.Status
	}

	diff.Facts = diffFacts(before, after)
	diff.Visited = diffHistory(before, after)

	if before != nil && len(after.Messages) < len(before.Messages) {
		diff.MessagesCompacted = true
	}

	if diff.IsEmpty() {
		return nil
	}
	return diff
}

func diffFacts(before, after *FlowContext) map[string]any {
	delta := make(map[string]any)

	if before == nil {
		for k, v := range after.Facts {
			delta[k] = v
		}
	} else {
		for k, newVal := range after.Facts {
			oldVal, exists := before.Facts[k]
			if !exists || !reflect.DeepEqual(oldVal, newVal) {
				delta[k] = newVal
			}
		}
	}

	if len(delta) == 0 {
		return nil
	}
	return delta
}

// diffHistory assumes append-only history.
func diffHistory(before, after *FlowContext) []string {
	if len(after.History) == 0 {
		return nil
	}
	if before == nil {
		return append([]string(nil), after.History...)
	}
	if len(after.History) > len(before.History) {
		return append([]string(nil), after.History[len(before.History):]...)
	}
	return nil
}

// IsEmpty checks if the diff contains any actionable changes.
func (d *ContextDiff) IsEmpty() bool {
	return d.CurrentNodeID == nil &&
		d.Status == nil &&
		len(d.Facts) == 0 &&
		len(d.Visited) == 0 &&
		!d.MessagesCompacted
}
