// Package flows holds the bundled patient intake flow and the flow file decoder.
package flows

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/newcast-health/intakeflow/pkg/domain"
	"gopkg.in/yaml.v3"
)

//go:embed patient_intake.yaml
var patientIntake []byte

// Format is a flow file encoding.
type Format string

const (
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
)

// FormatFromPath infers the encoding from the file extension.
func FormatFromPath(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".json":
		return FormatJSON, nil
	default:
		return "", fmt.Errorf("unsupported flow file extension %q", filepath.Ext(path))
	}
}

// Decode parses and normalizes a flow definition. Unknown fields are rejected.
func Decode(data []byte, format Format) (*domain.Flow, error) {
	var flow domain.Flow
	switch format {
	case FormatYAML:
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&flow); err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("failed to decode yaml flow: %w", err)
		}
	case FormatJSON:
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&flow); err != nil {
			return nil, fmt.Errorf("failed to decode json flow: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported flow format %q", format)
	}

	if err := flow.Normalize(); err != nil {
		return nil, err
	}
	return &flow, nil
}

// PatientIntake returns a fresh copy of the bundled twelve-node intake flow.
func PatientIntake() (*domain.Flow, error) {
	return Decode(patientIntake, FormatYAML)
}

// PatientIntakeSource returns the raw YAML of the bundled flow.
func PatientIntakeSource() []byte {
	return bytes.Clone(patientIntake)
}

// Embedded is a FlowLoader for the bundled flow.
type Embedded struct{}

// LoadFlow implements ports.FlowLoader.
func (Embedded) LoadFlow(context.Context) (*domain.Flow, error) {
	return PatientIntake()
}
