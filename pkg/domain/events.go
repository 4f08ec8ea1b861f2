package domain

import (
	"context"
	"time"
)

// EventType defines the category of the event.
type EventType string

const (
	EventInitialize       EventType = "initialize"
	EventNodeEnter        EventType = "node_enter"
	EventNodeLeave        EventType = "node_leave"
	EventFunctionInvoked  EventType = "function_invoked"
	EventSessionEnded     EventType = "session_ended"
	EventHistoryCompacted EventType = "history_compacted"
)

// EventBase contains common fields for all events.
type EventBase struct {
	Timestamp time.Time `json:"timestamp"`
	Type      EventType `json:"type"`
	SessionID string    `json:"session_id,omitempty"`
}

// NodeEvent represents initialization, entry into or exit from a node, and session end.
type NodeEvent struct {
	EventBase
	NodeID string `json:"node_id"`
}

// InvocationEvent reports the outcome of one function invocation.
type InvocationEvent struct {
	EventBase
	NodeID     string         `json:"node_id"`
	Function   string         `json:"function"`
	Args       map[string]any `json:"args,omitempty"`
	NextNodeID string         `json:"next_node_id,omitempty"`
	Duration   time.Duration  `json:"duration"`
	Err        error          `json:"-"`
}

// Succeeded reports whether the invocation transitioned.
func (e *InvocationEvent) Succeeded() bool {
	return e.Err == nil
}

// LifecycleHooks defines the session lifecycle signals produced for the surrounding pipeline.
type LifecycleHooks struct {
	OnInitialize      func(context.Context, *NodeEvent)
	OnNodeEnter       func(context.Context, *NodeEvent)
	OnNodeLeave       func(context.Context, *NodeEvent)
	OnFunctionInvoked func(context.Context, *InvocationEvent)
	OnSessionEnded    func(context.Context, *NodeEvent)
}

// ComposeHooks fans every signal out to each of the given hook sets, in order.
func ComposeHooks(sets ...LifecycleHooks) LifecycleHooks {
	var out LifecycleHooks
	for _, h := range sets {
		out.OnInitialize = chainNode(out.OnInitialize, h.OnInitialize)
		out.OnNodeEnter = chainNode(out.OnNodeEnter, h.OnNodeEnter)
		out.OnNodeLeave = chainNode(out.OnNodeLeave, h.OnNodeLeave)
		out.OnSessionEnded = chainNode(out.OnSessionEnded, h.OnSessionEnded)
		out.OnFunctionInvoked = chainInvocation(out.OnFunctionInvoked, h.OnFunctionInvoked)
	}
	return out
}

func chainNode(a, b func(context.Context, *NodeEvent)) func(context.Context, *NodeEvent) {
	if a == nil {
		return b
	}
	if b == nil {
		return a
	}
	return func(ctx context.Context, e *NodeEvent) {
		a(ctx, e)
		b(ctx, e)
	}
}

func chainInvocation(a, b func(context.Context, *InvocationEvent)) func(context.Context, *InvocationEvent) {
	if a == nil {
		return b
	}
	if b == nil {
		return a
	}
	return func(ctx context.Context, e *InvocationEvent) {
		a(ctx, e)
		b(ctx, e)
	}
}
