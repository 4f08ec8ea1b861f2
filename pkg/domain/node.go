package domain

import (
	"fmt"
	"sort"
)

// Message is one entry of the conversation transcript.
type Message struct {
	Role    string `json:"role" yaml:"role"`
	Name    string `json:"name,omitempty" yaml:"name,omitempty"`
	Content string `json:"content" yaml:"content"`
}

// Param describes one parameter of a function, in JSON Schema terms.
type Param struct {
	Type        string           `json:"type" yaml:"type"`
	Description string           `json:"description,omitempty" yaml:"description,omitempty"`
	Required    bool             `json:"required,omitempty" yaml:"required,omitempty"`
	Items       *Param           `json:"items,omitempty" yaml:"items,omitempty"`
	Properties  map[string]Param `json:"properties,omitempty" yaml:"properties,omitempty"`
}

// FunctionSpec is a function the caller may invoke while its owning node is current.
type FunctionSpec struct {
	Name        string           `json:"name" yaml:"name"`
	Description string           `json:"description,omitempty" yaml:"description,omitempty"`
	Parameters  map[string]Param `json:"parameters,omitempty" yaml:"parameters,omitempty"`
	// HandlerRef names the registered handler. Defaults to Name.
	HandlerRef string `json:"handler,omitempty" yaml:"handler,omitempty"`
}

// Handler returns the handler reference, falling back to the function name.
func (f FunctionSpec) Handler() string {
	if f.HandlerRef != "" {
		return f.HandlerRef
	}
	return f.Name
}

// ContextStrategy controls history compaction when leaving a node.
type ContextStrategy struct {
	Type string `json:"type" yaml:"type"`
	// SummaryTemplate is a text/template rendered over the collected facts.
	SummaryTemplate string `json:"summary_template,omitempty" yaml:"summary_template,omitempty"`
	// SummaryPrompt is the instruction handed to a model-backed summarizer.
	SummaryPrompt string `json:"summary_prompt,omitempty" yaml:"summary_prompt,omitempty"`
}

// PostAction is executed after a node's messages have been emitted.
type PostAction struct {
	Type string `json:"type" yaml:"type"`
}

// Node is one stage of the conversation. Nodes are immutable once a Flow is loaded.
type Node struct {
	ID              string           `json:"id" yaml:"id,omitempty"`
	RoleMessages    []Message        `json:"role_messages,omitempty" yaml:"role_messages,omitempty"`
	TaskMessages    []Message        `json:"task_messages,omitempty" yaml:"task_messages,omitempty"`
	Functions       []FunctionSpec   `json:"functions,omitempty" yaml:"functions,omitempty"`
	ContextStrategy *ContextStrategy `json:"context_strategy,omitempty" yaml:"context_strategy,omitempty"`
	PostActions     []PostAction     `json:"post_actions,omitempty" yaml:"post_actions,omitempty"`
}

// Function looks up a function by name.
func (n Node) Function(name string) (FunctionSpec, bool) {
	for _, fn := range n.Functions {
		if fn.Name == name {
			return fn, true
		}
	}
	return FunctionSpec{}, false
}

// FunctionNames returns the legal call set in declaration order.
func (n Node) FunctionNames() []string {
	names := make([]string, 0, len(n.Functions))
	for _, fn := range n.Functions {
		names = append(names, fn.Name)
	}
	return names
}

// HasPostAction reports whether the node carries the given post action.
func (n Node) HasPostAction(kind string) bool {
	for _, pa := range n.PostActions {
		if pa.Type == kind {
			return true
		}
	}
	return false
}

// IsTerminal reports whether the node exposes no functions.
func (n Node) IsTerminal() bool {
	return len(n.Functions) == 0
}

// CompactsHistory reports whether leaving the node resets history with a summary.
func (n Node) CompactsHistory() bool {
	return n.ContextStrategy != nil && n.ContextStrategy.Type == StrategyResetWithSummary
}

// Flow is the static node table of a conversation.
type Flow struct {
	Name        string          `json:"name,omitempty" yaml:"name,omitempty"`
	InitialNode string          `json:"initial_node" yaml:"initial_node"`
	Nodes       map[string]Node `json:"nodes" yaml:"nodes"`
}

// Normalize fills node ids from their map keys and rejects conflicting ids.
func (f *Flow) Normalize() error {
	for key, node := range f.Nodes {
		if node.ID != "" && node.ID != key {
			return fmt.Errorf("node %q declares mismatched id %q", key, node.ID)
		}
		node.ID = key
		f.Nodes[key] = node
	}
	return nil
}

// Node looks up a node by id.
func (f *Flow) Node(id string) (Node, bool) {
	n, ok := f.Nodes[id]
	return n, ok
}

// NodeIDs returns the node ids sorted alphabetically.
func (f *Flow) NodeIDs() []string {
	ids := make([]string, 0, len(f.Nodes))
	for id := range f.Nodes {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Edge is one possible transition: invoking Function in From may move the session to To.
type Edge struct {
	From     string `json:"from"`
	Function string `json:"function"`
	To       string `json:"to"`
}
