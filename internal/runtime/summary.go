package runtime

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"text/template"

	"github.com/newcast-health/intakeflow/pkg/ports"
)

// TemplateSummarizer renders the strategy's summary template over the collected facts.
// Without a template it lists the facts in key order.
type TemplateSummarizer struct{}

// NewTemplateSummarizer creates the default summarizer.
func NewTemplateSummarizer() *TemplateSummarizer {
	return &TemplateSummarizer{}
}

// Summarize implements ports.Summarizer.
func (s *TemplateSummarizer) Summarize(_ context.Context, req ports.SummaryRequest) (string, error) {
	if req.Strategy.SummaryTemplate == "" {
		return listFacts(req.Facts), nil
	}

	tmpl, err := template.New(req.NodeID + "-summary").Parse(req.Strategy.SummaryTemplate)
	if err != nil {
		return "", fmt.Errorf("invalid summary template: %w", err)
	}
	var sb strings.Builder
	if err := tmpl.Execute(&sb, req.Facts); err != nil {
		return "", fmt.Errorf("summary template failed: %w", err)
	}
	return strings.TrimSpace(sb.String()), nil
}

func listFacts(facts map[string]any) string {
	keys := make([]string, 0, len(facts))
	for k := range facts {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var sb strings.Builder
	sb.WriteString("Conversation summary:")
	for _, k := range keys {
		fmt.Fprintf(&sb, "\n- %s: %v", k, facts[k])
	}
	return sb.String()
}
