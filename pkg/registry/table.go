package registry

import (
	"fmt"
	"strings"

	"github.com/newcast-health/intakeflow/internal/validator"
	"github.com/newcast-health/intakeflow/pkg/domain"
	"github.com/newcast-health/intakeflow/pkg/schema"
)

// Binding is a FunctionSpec resolved to its handler and compiled schema.
type Binding struct {
	Spec    domain.FunctionSpec
	Schema  *schema.Schema
	Handler Handler
}

// Table is the immutable result of binding a flow. Safe for concurrent use.
type Table struct {
	flow        *domain.Flow
	bindings    map[string]map[string]*Binding
	edges       []domain.Edge
	unreachable []string
}

// LoadError aggregates every problem found while binding a flow.
type LoadError struct {
	Problems []string
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("invalid flow: found %d errors:\n- %s", len(e.Problems), strings.Join(e.Problems, "\n- "))
}

var knownPostActions = map[string]bool{
	domain.PostActionEndConversation: true,
}

var knownStrategies = map[string]bool{
	domain.StrategyResetWithSummary: true,
}

// Bind resolves flow against the registered handlers.
// It must succeed before any session is started.
func (r *Registry) Bind(flow *domain.Flow) (*Table, error) {
	if flow == nil {
		return nil, &LoadError{Problems: []string{"flow is nil"}}
	}
	if err := flow.Normalize(); err != nil {
		return nil, &LoadError{Problems: []string{err.Error()}}
	}

	t := &Table{
		flow:     flow,
		bindings: make(map[string]map[string]*Binding, len(flow.Nodes)),
	}
	var problems []string
	fail := func(format string, args ...any) {
		problems = append(problems, fmt.Sprintf(format, args...))
	}

	if flow.InitialNode == "" {
		fail("initial node is not set")
	} else if _, ok := flow.Nodes[flow.InitialNode]; !ok {
		fail("initial node %q not found", flow.InitialNode)
	}

	for _, id := range flow.NodeIDs() {
		node := flow.Nodes[id]
		nodeBindings := make(map[string]*Binding, len(node.Functions))
		t.bindings[id] = nodeBindings

		for _, pa := range node.PostActions {
			if !knownPostActions[pa.Type] {
				fail("node %q: unknown post action %q", id, pa.Type)
			}
		}
		if cs := node.ContextStrategy; cs != nil && !knownStrategies[cs.Type] {
			fail("node %q: unknown context strategy %q", id, cs.Type)
		}
		if node.IsTerminal() && !node.HasPostAction(domain.PostActionEndConversation) {
			fail("node %q has no functions and does not end the conversation", id)
		}

		for _, spec := range node.Functions {
			if spec.Name == "" {
				fail("node %q: function without a name", id)
				continue
			}
			if _, dup := nodeBindings[spec.Name]; dup {
				fail("node %q: duplicate function %q", id, spec.Name)
				continue
			}

			h, ok := r.Lookup(spec.Handler())
			if !ok {
				fail("node %q: function %q references unknown handler %q", id, spec.Name, spec.Handler())
				continue
			}

			sch, err := schema.Compile(spec.Name, spec.Parameters)
			if err != nil {
				fail("node %q: %v", id, err)
				continue
			}

			nodeBindings[spec.Name] = &Binding{Spec: spec, Schema: sch, Handler: h}
			for _, next := range h.Next {
				t.edges = append(t.edges, domain.Edge{From: id, Function: spec.Name, To: next})
			}
		}
	}

	report := validator.ValidateGraph(flow.NodeIDs(), t.edges, flow.InitialNode)
	for _, e := range report.Dangling {
		fail("node %q: function %q may return missing node %q", e.From, e.Function, e.To)
	}
	t.unreachable = report.Unreachable

	if len(problems) > 0 {
		return nil, &LoadError{Problems: problems}
	}
	return t, nil
}

// Flow returns the bound flow. Callers must not mutate it.
func (t *Table) Flow() *domain.Flow {
	return t.flow
}

// InitialNode returns the configured entry node.
func (t *Table) InitialNode() string {
	return t.flow.InitialNode
}

// Node looks up a node by id.
func (t *Table) Node(id string) (domain.Node, bool) {
	return t.flow.Node(id)
}

// Binding looks up the binding of function in node.
func (t *Table) Binding(nodeID, function string) (*Binding, bool) {
	b, ok := t.bindings[nodeID][function]
	return b, ok
}

// Edges returns every declared transition.
func (t *Table) Edges() []domain.Edge {
	return t.edges
}

// Unreachable returns nodes that cannot be reached from the initial node.
func (t *Table) Unreachable() []string {
	return t.unreachable
}

// Tools returns the function specs of a node together with their JSON Schema,
// in declaration order. Unknown nodes yield nil.
func (t *Table) Tools(nodeID string) []Tool {
	node, ok := t.flow.Node(nodeID)
	if !ok {
		return nil
	}
	tools := make([]Tool, 0, len(node.Functions))
	for _, spec := range node.Functions {
		b := t.bindings[nodeID][spec.Name]
		tools = append(tools, Tool{Name: spec.Name, Description: spec.Description, Parameters: b.Schema.Raw()})
	}
	return tools
}

// Tool is the model-facing definition of a function.
type Tool struct {
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	Parameters  map[string]any `json:"parameters"`
}
