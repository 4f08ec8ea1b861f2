package registry

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/newcast-health/intakeflow/pkg/domain"
)

// Call is the input of a handler invocation.
type Call struct {
	NodeID   string
	Function string
	Args     map[string]any
	// Facts is a read-only snapshot of the collected facts.
	Facts map[string]any
}

// HandlerFunc implements a function. A returned error keeps the session on its current node.
type HandlerFunc func(ctx context.Context, call Call) (domain.HandlerResult, error)

// Handler is a registered function implementation.
type Handler struct {
	Ref string
	Fn  HandlerFunc
	// Next lists every node id Fn may return.
	Next []string
}

// Declares reports whether id is one of the handler's declared next nodes.
func (h Handler) Declares(id string) bool {
	for _, n := range h.Next {
		if n == id {
			return true
		}
	}
	return false
}

// Registry manages the available handlers.
type Registry struct {
	mu       sync.RWMutex
	handlers map[string]Handler
}

// New creates a new empty registry.
func New() *Registry {
	return &Registry{
		handlers: make(map[string]Handler),
	}
}

// Register adds a handler. Registering the same reference twice is an error.
func (r *Registry) Register(h Handler) error {
	if h.Ref == "" {
		return fmt.Errorf("handler reference is empty")
	}
	if h.Fn == nil {
		return fmt.Errorf("handler %q has no implementation", h.Ref)
	}
	if len(h.Next) == 0 {
		return fmt.Errorf("handler %q declares no next nodes", h.Ref)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.handlers[h.Ref]; exists {
		return fmt.Errorf("handler %q already registered", h.Ref)
	}
	r.handlers[h.Ref] = h
	return nil
}

// MustRegister is like Register but panics on error.
func (r *Registry) MustRegister(h Handler) {
	if err := r.Register(h); err != nil {
		panic(err)
	}
}

// Lookup returns the handler registered under ref.
func (r *Registry) Lookup(ref string) (Handler, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.handlers[ref]
	return h, ok
}

// Refs returns the registered references in sorted order.
func (r *Registry) Refs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	refs := make([]string, 0, len(r.handlers))
	for ref := range r.handlers {
		refs = append(refs, ref)
	}
	sort.Strings(refs)
	return refs
}
