package dsl

import "github.com/newcast-health/intakeflow/pkg/domain"

// Arg is a named function parameter.
type Arg struct {
	Name  string
	Param domain.Param
}

// String declares an optional string parameter.
func String(name, description string) Arg {
	return Arg{Name: name, Param: domain.Param{Type: "string", Description: description}}
}

// Array declares an optional array parameter with the given item schema.
func Array(name, description string, items domain.Param) Arg {
	return Arg{Name: name, Param: domain.Param{Type: "array", Description: description, Items: &items}}
}

// Object declares an object schema, usually as array items.
func Object(props ...Arg) domain.Param {
	p := domain.Param{Type: "object", Properties: make(map[string]domain.Param, len(props))}
	for _, a := range props {
		p.Properties[a.Name] = a.Param
	}
	return p
}

// Required marks the parameter as required.
func (a Arg) Required() Arg {
	a.Param.Required = true
	return a
}

// NodeBuilder provides a fluent API for configuring a node.
type NodeBuilder struct {
	node    domain.Node
	builder *Builder
}

// Role appends a role (persona) message. Content may use Go template syntax.
func (n *NodeBuilder) Role(content string) *NodeBuilder {
	n.node.RoleMessages = append(n.node.RoleMessages, domain.Message{Role: domain.RoleSystem, Content: content})
	return n
}

// Task appends a task message. Content may use Go template syntax.
func (n *NodeBuilder) Task(content string) *NodeBuilder {
	n.node.TaskMessages = append(n.node.TaskMessages, domain.Message{Role: domain.RoleSystem, Content: content})
	return n
}

// Function offers a function at this node. The handler reference defaults to the name.
func (n *NodeBuilder) Function(name, description string, args ...Arg) *NodeBuilder {
	spec := domain.FunctionSpec{Name: name, Description: description}
	if len(args) > 0 {
		spec.Parameters = make(map[string]domain.Param, len(args))
		for _, a := range args {
			spec.Parameters[a.Name] = a.Param
		}
	}
	n.node.Functions = append(n.node.Functions, spec)
	return n
}

// Handler overrides the handler reference of the last declared function.
func (n *NodeBuilder) Handler(ref string) *NodeBuilder {
	if len(n.node.Functions) > 0 {
		n.node.Functions[len(n.node.Functions)-1].HandlerRef = ref
	}
	return n
}

// ResetWithSummary compacts the history into a summary once a function succeeds here.
func (n *NodeBuilder) ResetWithSummary(template, prompt string) *NodeBuilder {
	n.node.ContextStrategy = &domain.ContextStrategy{
		Type:            domain.StrategyResetWithSummary,
		SummaryTemplate: template,
		SummaryPrompt:   prompt,
	}
	return n
}

// End marks the node as the end of the conversation.
func (n *NodeBuilder) End() *NodeBuilder {
	n.node.PostActions = append(n.node.PostActions, domain.PostAction{Type: domain.PostActionEndConversation})
	return n
}

// Build returns the underlying domain.Node.
// This is primarily used by the Builder, but exposed for advanced usage.
func (n *NodeBuilder) Build() domain.Node {
	return n.node
}
