package ports

import (
	"context"

	"github.com/newcast-health/intakeflow/pkg/domain"
)

// FlowLoader retrieves the flow definition. It is called once, before any session starts.
type FlowLoader interface {
	LoadFlow(ctx context.Context) (*domain.Flow, error)
}
