package validator

import (
	"testing"

	"github.com/newcast-health/intakeflow/pkg/domain"
	"github.com/stretchr/testify/assert"
)

func TestValidateGraph(t *testing.T) {
	nodes := []string{"start", "middle", "end", "orphan"}
	edges := []domain.Edge{
		{From: "start", Function: "next", To: "middle"},
		{From: "middle", Function: "finish", To: "end"},
		{From: "middle", Function: "back", To: "start"},
		{From: "orphan", Function: "finish", To: "end"},
	}

	report := ValidateGraph(nodes, edges, "start")
	assert.NoError(t, report.Err())
	assert.Equal(t, []string{"orphan"}, report.Unreachable)
}

func TestValidateGraph_Dangling(t *testing.T) {
	nodes := []string{"start"}
	edges := []domain.Edge{{From: "start", Function: "go", To: "nowhere"}}

	report := ValidateGraph(nodes, edges, "start")
	err := report.Err()
	if assert.Error(t, err) {
		assert.Contains(t, err.Error(), "missing node 'nowhere'")
	}
	assert.Empty(t, report.Unreachable)
}
