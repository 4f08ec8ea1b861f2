package session

import (
	"context"
	"fmt"
	"testing"

	"github.com/newcast-health/intakeflow/pkg/domain"
	"github.com/newcast-health/intakeflow/pkg/registry"
)

type nopConversation struct{ id string }

func (c nopConversation) ID() string { return c.id }
func (c nopConversation) Initialize(context.Context) (*domain.Outcome, error) {
	return &domain.Outcome{NodeID: "start"}, nil
}
func (c nopConversation) Invoke(context.Context, string, map[string]any) (*domain.Outcome, error) {
	return &domain.Outcome{NodeID: "start"}, nil
}
func (c nopConversation) Record(...domain.Message) error { return nil }
func (c nopConversation) Snapshot() *domain.FlowContext { return domain.NewFlowContext() }
func (c nopConversation) Tools() []registry.Tool { return nil }

func TestManager_LockLifecycle(t *testing.T) {
	mgr := NewManager(func(id string) Conversation { return nopConversation{id: id} })
	ctx := context.Background()
	count := 10000

	for i := 0; i < count; i++ {
		sid := fmt.Sprintf("session-%d", i)
		if _, _, err := mgr.Start(ctx, sid); err != nil {
			t.Fatal(err)
		}
		_, _ = mgr.Invoke(ctx, sid, "next", nil)
		_ = mgr.End(ctx, sid)
	}

	if lockCount := len(mgr.locks); lockCount != 0 {
		t.Errorf("Memory Leak Detected: %d locks remaining in memory after End", lockCount)
	}
	if live := len(mgr.sessions); live != 0 {
		t.Errorf("%d sessions remaining after End", live)
	}
}
