package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/newcast-health/intakeflow/pkg/domain"
)

// Archive implements ports.SessionArchive in memory.
// Safe for concurrent use.
type Archive struct {
	data map[string]*domain.FlowContext
	mu   sync.RWMutex
}

// NewArchive creates an empty in-memory archive.
func NewArchive() *Archive {
	return &Archive{
		data: make(map[string]*domain.FlowContext),
	}
}

// Save stores a copy of the snapshot.
func (a *Archive) Save(ctx context.Context, sessionID string, fc *domain.FlowContext) error {
	copied := fc.Clone()

	a.mu.Lock()
	defer a.mu.Unlock()
	a.data[sessionID] = copied
	return nil
}

// Load returns a copy so callers can't mutate the archive through the pointer.
func (a *Archive) Load(ctx context.Context, sessionID string) (*domain.FlowContext, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	fc, ok := a.data[sessionID]
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	return fc.Clone(), nil
}

// Delete removes the snapshot.
func (a *Archive) Delete(ctx context.Context, sessionID string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.data, sessionID)
	return nil
}

// List returns archived session ids in sorted order.
func (a *Archive) List(ctx context.Context) ([]string, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	ids := make([]string, 0, len(a.data))
	for id := range a.data {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}
