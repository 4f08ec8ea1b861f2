package runtime

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"text/template"

	"github.com/newcast-health/intakeflow/pkg/domain"
	"github.com/newcast-health/intakeflow/pkg/scheduling"
)

// Interpolator renders a node message against the session data.
type Interpolator func(ctx context.Context, text string, data map[string]any) (string, error)

// TemplateInterpolator renders messages as text/template. Text without actions is
// returned as is.
func TemplateInterpolator(_ context.Context, text string, data map[string]any) (string, error) {
	if !strings.Contains(text, "{{") {
		return text, nil
	}
	tmpl, err := template.New("message").Option("missingkey=zero").Parse(text)
	if err != nil {
		return "", err
	}
	var sb strings.Builder
	if err := tmpl.Execute(&sb, data); err != nil {
		return "", err
	}
	return sb.String(), nil
}

// enter moves the cursor of fc to node, appends the node's rendered role and task
// messages to the transcript, and runs the node's post actions.
func (e *Engine) enter(ctx context.Context, fc *domain.FlowContext, node domain.Node) ([]domain.Message, error) {
	fc.CurrentNodeID = node.ID
	fc.History = append(fc.History, node.ID)

	data := e.templateData(fc)
	messages := make([]domain.Message, 0, len(node.RoleMessages)+len(node.TaskMessages))
	for _, group := range [][]domain.Message{node.RoleMessages, node.TaskMessages} {
		for _, m := range group {
			content, err := e.interpolator(ctx, m.Content, data)
			if err != nil {
				return nil, fmt.Errorf("rendering node %q failed during interpolation: %w", node.ID, err)
			}
			role := m.Role
			if role == "" {
				role = domain.RoleSystem
			}
			messages = append(messages, domain.Message{Role: role, Name: m.Name, Content: content})
		}
	}
	fc.Messages = append(fc.Messages, messages...)

	if node.HasPostAction(domain.PostActionEndConversation) {
		fc.Status = domain.StatusEnded
	}
	return messages, nil
}

// templateData is the data seen by message templates: the facts in their JSON
// form, so templates address fields by their JSON keys, plus the sys namespace.
func (e *Engine) templateData(fc *domain.FlowContext) map[string]any {
	data := templateFacts(fc.Facts)
	now := e.now()
	data[domain.SystemNamespace] = map[string]any{
		"session_id":       e.sessionID,
		"node_id":          fc.CurrentNodeID,
		"datetime_context": scheduling.DateTimeContext(now),
		"today":            jsonView(scheduling.CurrentDateInfo(now.In(e.location))),
	}
	return data
}

// templateFacts copies facts with every value in its JSON form.
func templateFacts(facts map[string]any) map[string]any {
	out := make(map[string]any, len(facts)+1)
	for k, v := range facts {
		out[k] = jsonView(v)
	}
	return out
}

// jsonView converts v to the generic value its JSON encoding decodes to.
// Values that do not encode are returned unchanged.
func jsonView(v any) any {
	data, err := json.Marshal(v)
	if err != nil {
		return v
	}
	var out any
	if err := json.Unmarshal(data, &out); err != nil {
		return v
	}
	return out
}
