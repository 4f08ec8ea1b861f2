package domain

// ExecutionStatus describes where a session is in its lifecycle.
type ExecutionStatus string

const (
	StatusIdle   ExecutionStatus = "idle"   // Not initialized yet
	StatusActive ExecutionStatus = "active" // Accepting invocations
	StatusEnded  ExecutionStatus = "ended"  // end_conversation executed
)

// FlowContext is the mutable state of one session. It is owned by a single engine.
type FlowContext struct {
	// CurrentNodeID is the single active cursor of the session.
	CurrentNodeID string `json:"current_node_id"`

	Status ExecutionStatus `json:"status"`

	// Messages is the conversation transcript handed to the language model.
	Messages []Message `json:"messages"`

	// Facts accumulates handler results under stable keys. Overwrite only.
	Facts map[string]any `json:"facts"`

	// History is the sequence of visited node ids. It is never rewritten,
	// including by the revise transition and by history compaction.
	History []string `json:"history"`
}

// NewFlowContext creates an empty, idle context.
func NewFlowContext() *FlowContext {
	return &FlowContext{
		Status:   StatusIdle,
		Messages: []Message{},
		Facts:    make(map[string]any),
		History:  []string{},
	}
}

// Clone returns a copy whose slices and fact map can be mutated independently.
// Fact values themselves are shared.
func (c *FlowContext) Clone() *FlowContext {
	out := &FlowContext{
		CurrentNodeID: c.CurrentNodeID,
		Status:        c.Status,
		Messages:      make([]Message, len(c.Messages)),
		Facts:         make(map[string]any, len(c.Facts)),
		History:       make([]string, len(c.History)),
	}
	copy(out.Messages, c.Messages)
	copy(out.History, c.History)
	for k, v := range c.Facts {
		out.Facts[k] = v
	}
	return out
}

// MergeFacts writes every key of facts into the context, overwriting existing values.
// Keys are never removed.
func (c *FlowContext) MergeFacts(facts map[string]any) {
	if c.Facts == nil {
		c.Facts = make(map[string]any, len(facts))
	}
	for k, v := range facts {
		c.Facts[k] = v
	}
}

// Ended reports whether the session reached end_conversation.
func (c *FlowContext) Ended() bool {
	return c.Status == StatusEnded
}
