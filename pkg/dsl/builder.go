package dsl

import (
	"fmt"

	"github.com/newcast-health/intakeflow/pkg/adapters/memory"
	"github.com/newcast-health/intakeflow/pkg/domain"
)

// Builder manages the flow construction.
type Builder struct {
	name    string
	initial string
	order   []string
	nodes   map[string]*NodeBuilder
}

// New creates a new flow builder. The first node added becomes the initial node
// unless Start is called.
func New(name string) *Builder {
	return &Builder{
		name:  name,
		nodes: make(map[string]*NodeBuilder),
	}
}

// Start sets the initial node.
func (b *Builder) Start(id string) *Builder {
	b.initial = id
	return b
}

// Add creates a new node in the flow.
// If the node already exists, it returns the existing builder.
func (b *Builder) Add(id string) *NodeBuilder {
	if nb, ok := b.nodes[id]; ok {
		return nb
	}
	if b.initial == "" {
		b.initial = id
	}
	nb := &NodeBuilder{
		node: domain.Node{
			ID: id,
		},
		builder: b,
	}
	b.nodes[id] = nb
	b.order = append(b.order, id)
	return nb
}

// Flow returns the flow definition without wrapping it in a loader.
func (b *Builder) Flow() *domain.Flow {
	flow := &domain.Flow{
		Name:        b.name,
		InitialNode: b.initial,
		Nodes:       make(map[string]domain.Node, len(b.nodes)),
	}
	for _, id := range b.order {
		flow.Nodes[id] = b.nodes[id].Build()
	}
	return flow
}

// Build compiles the flow into a memory loader.
func (b *Builder) Build() (*memory.Loader, error) {
	nodes := make([]domain.Node, 0, len(b.nodes))
	for _, id := range b.order {
		nodes = append(nodes, b.nodes[id].Build())
	}

	loader, err := memory.NewFromNodes(b.initial, nodes...)
	if err != nil {
		return nil, fmt.Errorf("failed to build memory loader: %w", err)
	}

	return loader, nil
}
