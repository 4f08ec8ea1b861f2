package file

import (
	"context"
	"fmt"
	"os"

	"github.com/newcast-health/intakeflow/pkg/domain"
	"github.com/newcast-health/intakeflow/pkg/flows"
)

// Loader implements ports.FlowLoader for a YAML or JSON flow file.
// The file is read on every LoadFlow call.
type Loader struct {
	Path string
}

// NewLoader creates a loader for the flow file at path.
func NewLoader(path string) *Loader {
	return &Loader{Path: path}
}

// LoadFlow reads and decodes the flow file.
func (l *Loader) LoadFlow(ctx context.Context) (*domain.Flow, error) {
	format, err := flows.FormatFromPath(l.Path)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(l.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to read flow file: %w", err)
	}

	flow, err := flows.Decode(data, format)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", l.Path, err)
	}
	return flow, nil
}
