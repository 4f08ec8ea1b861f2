package schema_test

import (
	"errors"
	"testing"

	"github.com/newcast-health/intakeflow/pkg/domain"
	"github.com/newcast-health/intakeflow/pkg/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func prescriptionParams() map[string]domain.Param {
	return map[string]domain.Param{
		"prescriptions": {
			Type:     "array",
			Required: true,
			Items: &domain.Param{
				Type: "object",
				Properties: map[string]domain.Param{
					"medication": {Type: "string", Required: true},
					"dosage":     {Type: "string", Required: true},
				},
			},
		},
		"note": {Type: "string"},
	}
}

func TestCompile_Raw(t *testing.T) {
	s, err := schema.Compile("record_prescriptions", prescriptionParams())
	require.NoError(t, err)

	raw := s.Raw()
	assert.Equal(t, "object", raw["type"])
	assert.Equal(t, []string{"prescriptions"}, raw["required"])

	props := raw["properties"].(map[string]any)
	items := props["prescriptions"].(map[string]any)["items"].(map[string]any)
	assert.Equal(t, []string{"dosage", "medication"}, items["required"])
}

func TestCompile_Rejects(t *testing.T) {
	tests := []struct {
		name   string
		params map[string]domain.Param
	}{
		{"unknown type", map[string]domain.Param{"x": {Type: "date"}}},
		{"array without items", map[string]domain.Param{"x": {Type: "array"}}},
		{"nested unknown type", map[string]domain.Param{"x": {Type: "array", Items: &domain.Param{Type: "tuple"}}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := schema.Compile("fn", tt.params)
			assert.Error(t, err)
		})
	}
}

func TestValidate(t *testing.T) {
	s := schema.MustCompile("record_prescriptions", prescriptionParams())

	tests := []struct {
		name         string
		args         map[string]any
		wantMissing  []string
		wantMistyped []string
	}{
		{
			name: "valid empty list",
			args: map[string]any{"prescriptions": []any{}},
		},
		{
			name: "valid typed slice",
			args: map[string]any{"prescriptions": []map[string]string{{"medication": "Lisinopril", "dosage": "10mg"}}},
		},
		{
			name: "unknown arguments ignored",
			args: map[string]any{"prescriptions": []any{}, "extra": 1},
		},
		{
			name:        "missing required",
			args:        map[string]any{},
			wantMissing: []string{"prescriptions"},
		},
		{
			name:        "nil counts as missing",
			args:        map[string]any{"prescriptions": nil},
			wantMissing: []string{"prescriptions"},
		},
		{
			name:         "wrong top-level type",
			args:         map[string]any{"prescriptions": "none"},
			wantMistyped: []string{"prescriptions"},
		},
		{
			name:         "item missing dosage",
			args:         map[string]any{"prescriptions": []any{map[string]any{"medication": "Aspirin"}}},
			wantMistyped: []string{"prescriptions"},
		},
		{
			name:         "optional field mistyped",
			args:         map[string]any{"prescriptions": []any{}, "note": 42},
			wantMistyped: []string{"note"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := s.Validate(tt.args)
			if tt.wantMissing == nil && tt.wantMistyped == nil {
				assert.NoError(t, err)
				return
			}

			var verr *domain.SchemaValidationError
			require.True(t, errors.As(err, &verr), "expected SchemaValidationError, got %v", err)
			assert.Equal(t, "record_prescriptions", verr.Function)
			assert.Equal(t, tt.wantMissing, verr.Missing)

			var fields []string
			for _, m := range verr.Mistyped {
				fields = append(fields, m.Field)
				assert.NotEmpty(t, m.Reason)
			}
			assert.Equal(t, tt.wantMistyped, fields)
		})
	}
}

func TestValidate_NilSchema(t *testing.T) {
	var s *schema.Schema
	assert.NoError(t, s.Validate(map[string]any{"anything": true}))
}
