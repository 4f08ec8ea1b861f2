package ports

import (
	"context"

	"github.com/newcast-health/intakeflow/pkg/domain"
)

// SummaryRequest is the input of a history compaction.
type SummaryRequest struct {
	NodeID   string
	Strategy domain.ContextStrategy
	Messages []domain.Message
	Facts    map[string]any
}

// Summarizer produces the content of the single message that replaces the history.
type Summarizer interface {
	Summarize(ctx context.Context, req SummaryRequest) (string, error)
}
