package graph

import (
	"fmt"
	"sort"
	"strings"

	"github.com/newcast-health/intakeflow/pkg/domain"
)

// GraphOverlay contains session state to highlight on the graph.
type GraphOverlay struct {
	VisitedNodes []string
	CurrentNode  string
}

// GenerateMermaid produces a Mermaid flowchart of the flow. Node shapes:
// - Initial node: ((Circle))
// - Node compacting history on exit: [[Subroutine]]
// - Node ending the conversation: ([Stadium])
// - Default: [Rectangle]
// Each edge is labeled with the function that takes it.
func GenerateMermaid(flow *domain.Flow, edges []domain.Edge, overlay *GraphOverlay) string {
	var sb strings.Builder
	sb.WriteString("graph TD\n")

	for _, id := range Order(flow, edges) {
		node := flow.Nodes[id]
		safeID := sanitizeMermaidID(id)

		opener, closer := "[", "]"
		switch {
		case id == flow.InitialNode:
			opener, closer = "((", "))"
		case node.CompactsHistory():
			opener, closer = "[[", "]]"
		case node.HasPostAction(domain.PostActionEndConversation):
			opener, closer = "([", "])"
		}

		label := id
		if node.CompactsHistory() {
			label = id + " <br/> " + domain.StrategyResetWithSummary
		}
		fmt.Fprintf(&sb, "    %s%s\"%s\"%s\n", safeID, opener, label, closer)
	}

	for _, e := range edges {
		fmt.Fprintf(&sb, "    %s -- \"%s\" --> %s\n",
			sanitizeMermaidID(e.From),
			strings.ReplaceAll(e.Function, "\"", "'"),
			sanitizeMermaidID(e.To))
	}

	if overlay != nil {
		sb.WriteString("\n    %% Overlay Styles\n")
		// Force black text (color:#000) for contrast regardless of theme.
		sb.WriteString("    classDef visited fill:#e1f5fe,stroke:#01579b,stroke-width:2px,color:#000;\n")
		sb.WriteString("    classDef current fill:#ffeb3b,stroke:#fbc02d,stroke-width:4px,color:#000;\n")

		visitedSet := make(map[string]bool)
		for _, id := range overlay.VisitedNodes {
			safeID := sanitizeMermaidID(id)
			if !visitedSet[safeID] && safeID != "" {
				visitedSet[safeID] = true
				fmt.Fprintf(&sb, "    class %s visited;\n", safeID)
			}
		}

		if overlay.CurrentNode != "" {
			fmt.Fprintf(&sb, "    class %s current;\n", sanitizeMermaidID(overlay.CurrentNode))
		}
	}

	return sb.String()
}

// Order lists node ids breadth-first from the initial node, following edges in
// declaration order. Unreachable nodes follow, sorted.
func Order(flow *domain.Flow, edges []domain.Edge) []string {
	next := make(map[string][]string)
	for _, e := range edges {
		next[e.From] = append(next[e.From], e.To)
	}

	seen := make(map[string]bool, len(flow.Nodes))
	var order []string
	queue := []string{flow.InitialNode}
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		if seen[id] {
			continue
		}
		if _, ok := flow.Nodes[id]; !ok {
			continue
		}
		seen[id] = true
		order = append(order, id)
		queue = append(queue, next[id]...)
	}

	var rest []string
	for id := range flow.Nodes {
		if !seen[id] {
			rest = append(rest, id)
		}
	}
	sort.Strings(rest)
	return append(order, rest...)
}

func sanitizeMermaidID(id string) string {
	s := strings.ReplaceAll(id, ".", "_")
	s = strings.ReplaceAll(s, "-", "_")
	s = strings.ReplaceAll(s, "/", "_")
	s = strings.ReplaceAll(s, "\\", "_")
	return s
}
