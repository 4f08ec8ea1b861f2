package domain

// FactSource is implemented by handler payloads that contribute collected facts.
type FactSource interface {
	Facts() map[string]any
}

// HandlerResult is what a handler returns on success.
type HandlerResult struct {
	// Payload is the handler specific result surfaced to the caller.
	Payload any
	// NextNodeID is the node to transition to. It must exist in the flow.
	NextNodeID string
}

// CollectedFacts returns the facts contributed by the payload, if any.
func (r HandlerResult) CollectedFacts() map[string]any {
	if src, ok := r.Payload.(FactSource); ok {
		return src.Facts()
	}
	return nil
}

// Outcome is returned to the caller by Initialize and Invoke.
type Outcome struct {
	NodeID string `json:"node_id"`
	// Result is the handler payload. Nil after Initialize.
	Result any `json:"result,omitempty"`
	// Messages are the role and task messages of the node that became current.
	Messages []Message `json:"messages"`
	// Functions is the new legal call set.
	Functions []FunctionSpec `json:"functions"`
	// Changes describes what the invocation changed in the session context.
	Changes *ContextDiff `json:"changes,omitempty"`
	Ended   bool         `json:"ended"`
}
