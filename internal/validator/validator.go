package validator

import (
	"fmt"
	"sort"
	"strings"

	"github.com/newcast-health/intakeflow/pkg/domain"
)

// Report is the result of crawling a flow graph.
type Report struct {
	// Dangling lists edges whose target node does not exist.
	Dangling []domain.Edge
	// Unreachable lists nodes that cannot be reached from the start node.
	Unreachable []string
}

// Err returns an error describing dangling edges, or nil. Unreachable nodes are not errors.
func (r Report) Err() error {
	if len(r.Dangling) == 0 {
		return nil
	}
	problems := make([]string, 0, len(r.Dangling))
	for _, e := range r.Dangling {
		problems = append(problems, fmt.Sprintf("'%s' --%s--> missing node '%s'", e.From, e.Function, e.To))
	}
	return fmt.Errorf("found %d errors:\n- %s", len(problems), strings.Join(problems, "\n- "))
}

// ValidateGraph crawls the graph breadth-first from start and reports dead links and
// unreachable nodes.
func ValidateGraph(nodes []string, edges []domain.Edge, start string) Report {
	known := make(map[string]bool, len(nodes))
	for _, id := range nodes {
		known[id] = true
	}

	adjacency := make(map[string][]domain.Edge)
	var report Report
	for _, e := range edges {
		if !known[e.To] {
			report.Dangling = append(report.Dangling, e)
			continue
		}
		adjacency[e.From] = append(adjacency[e.From], e)
	}

	visited := make(map[string]bool)
	queue := []string{start}
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		if visited[current] || !known[current] {
			continue
		}
		visited[current] = true

		for _, e := range adjacency[current] {
			if !visited[e.To] {
				queue = append(queue, e.To)
			}
		}
	}

	for _, id := range nodes {
		if !visited[id] {
			report.Unreachable = append(report.Unreachable, id)
		}
	}
	sort.Strings(report.Unreachable)
	return report
}
