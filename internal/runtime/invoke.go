package runtime

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/newcast-health/intakeflow/pkg/domain"
	"github.com/newcast-health/intakeflow/pkg/ports"
	"github.com/newcast-health/intakeflow/pkg/registry"
)

type handlerReturn struct {
	result domain.HandlerResult
	err    error
}

// Invoke dispatches a function call of the current node.
//
// Any error leaves the session unchanged on its current node. On success the handler's
// facts are merged, the history is compacted if the node being left requests it, and the
// session transitions to the handler's next node.
//
// If ctx is canceled while the handler runs, Invoke returns ctx.Err() without waiting for
// the handler; its result is discarded.
func (e *Engine) Invoke(ctx context.Context, name string, args map[string]any) (*domain.Outcome, error) {
	if !e.inFlight.CompareAndSwap(false, true) {
		return nil, domain.ErrInvocationInFlight
	}
	defer e.inFlight.Store(false)

	e.mu.Lock()
	before := e.state.Clone()
	e.mu.Unlock()

	switch before.Status {
	case domain.StatusIdle:
		return nil, domain.ErrNotInitialized
	case domain.StatusEnded:
		return nil, domain.ErrSessionEnded
	}

	started := e.now()
	outcome, err := e.invoke(ctx, before, name, args)

	event := &domain.InvocationEvent{
		EventBase: domain.EventBase{Timestamp: started, Type: domain.EventFunctionInvoked, SessionID: e.sessionID},
		NodeID:    before.CurrentNodeID,
		Function:  name,
		Args:      args,
		Duration:  e.now().Sub(started),
		Err:       err,
	}
	if outcome != nil {
		event.NextNodeID = outcome.NodeID
	}
	if e.hooks.OnFunctionInvoked != nil {
		e.hooks.OnFunctionInvoked(ctx, event)
	}

	if err != nil {
		e.logger.Info("Invocation failed", "node_id", before.CurrentNodeID, "function", name, "err", err)
		return nil, err
	}
	return outcome, nil
}

func (e *Engine) invoke(ctx context.Context, before *domain.FlowContext, name string, args map[string]any) (*domain.Outcome, error) {
	current, _ := e.table.Node(before.CurrentNodeID)

	binding, ok := e.table.Binding(current.ID, name)
	if !ok {
		return nil, &domain.IllegalFunctionError{NodeID: current.ID, Function: name, Allowed: current.FunctionNames()}
	}

	if args == nil {
		args = map[string]any{}
	}
	if err := binding.Schema.Validate(args); err != nil {
		return nil, err
	}

	result, err := e.dispatch(ctx, binding, registry.Call{
		NodeID:   current.ID,
		Function: name,
		Args:     args,
		Facts:    before.Clone().Facts,
	})
	if err != nil {
		return nil, err
	}

	next, ok := e.table.Node(result.NextNodeID)
	if !ok || !binding.Handler.Declares(result.NextNodeID) {
		return nil, &domain.UnknownNodeError{From: current.ID, Function: name, NodeID: result.NextNodeID}
	}

	after := before.Clone()
	after.MergeFacts(result.CollectedFacts())
	after.Messages = append(after.Messages, toolMessage(name, result.Payload))

	if current.CompactsHistory() {
		e.compact(ctx, after, current)
	}

	messages, err := e.enter(ctx, after, next)
	if err != nil {
		return nil, err
	}

	e.commit(after)

	e.emitNode(ctx, e.hooks.OnNodeLeave, domain.EventNodeLeave, current.ID)
	e.emitNode(ctx, e.hooks.OnNodeEnter, domain.EventNodeEnter, next.ID)
	if after.Ended() {
		e.logger.Info("Session ended", "node_id", next.ID)
		e.emitNode(ctx, e.hooks.OnSessionEnded, domain.EventSessionEnded, next.ID)
	}

	return &domain.Outcome{
		NodeID:    next.ID,
		Result:    result.Payload,
		Messages:  messages,
		Functions: next.Functions,
		Changes:   domain.Diff(before, after),
		Ended:     after.Ended(),
	}, nil
}

// dispatch runs the handler, abandoning it if ctx is canceled first.
func (e *Engine) dispatch(ctx context.Context, b *registry.Binding, call registry.Call) (domain.HandlerResult, error) {
	done := make(chan handlerReturn, 1)
	go func() {
		res, err := b.Handler.Fn(ctx, call)
		done <- handlerReturn{result: res, err: err}
	}()

	select {
	case <-ctx.Done():
		e.logger.Info("Invocation abandoned", "function", call.Function, "err", ctx.Err())
		return domain.HandlerResult{}, ctx.Err()
	case r := <-done:
		if r.err == nil && ctx.Err() != nil {
			return domain.HandlerResult{}, ctx.Err()
		}
		return r.result, r.err
	}
}

// compact replaces the message history with a single summary message.
func (e *Engine) compact(ctx context.Context, fc *domain.FlowContext, node domain.Node) {
	req := ports.SummaryRequest{
		NodeID:   node.ID,
		Strategy: *node.ContextStrategy,
		Messages: fc.Messages,
		Facts:    templateFacts(fc.Facts),
	}

	summary, err := e.summarizer.Summarize(ctx, req)
	if err != nil && e.summarizer != e.fallback {
		e.logger.Warn("Summarizer failed, using template summary", "node_id", node.ID, "err", err)
		summary, err = e.fallback.Summarize(ctx, req)
	}
	if err != nil {
		summary = fmt.Sprintf("Conversation summary unavailable (%v).", err)
	}

	e.logger.Debug("History compacted", "node_id", node.ID, "messages", len(fc.Messages))
	fc.Messages = []domain.Message{{Role: domain.RoleSystem, Content: summary}}
}

func toolMessage(name string, payload any) domain.Message {
	content := "{}"
	if payload != nil {
		if data, err := json.Marshal(payload); err == nil {
			content = string(data)
		}
	}
	return domain.Message{Role: domain.RoleTool, Name: name, Content: content}
}
