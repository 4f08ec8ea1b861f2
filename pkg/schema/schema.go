package schema

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/newcast-health/intakeflow/pkg/domain"
	"github.com/santhosh-tekuri/jsonschema/v6"
)

var knownTypes = map[string]bool{
	"string":  true,
	"integer": true,
	"number":  true,
	"boolean": true,
	"array":   true,
	"object":  true,
}

// Schema is the compiled parameter schema of one function.
type Schema struct {
	function string
	raw      map[string]any
	required []string
	props    map[string]*jsonschema.Schema
}

// Compile builds and compiles the schema for a function's parameters.
// It fails on unknown types and on arrays without an item declaration.
func Compile(function string, params map[string]domain.Param) (*Schema, error) {
	s := &Schema{
		function: function,
		props:    make(map[string]*jsonschema.Schema, len(params)),
	}

	properties := make(map[string]any, len(params))
	for _, name := range sortedKeys(params) {
		p := params[name]
		raw, err := build(p, name)
		if err != nil {
			return nil, fmt.Errorf("function %q: %w", function, err)
		}
		properties[name] = raw
		if p.Required {
			s.required = append(s.required, name)
		}

		compiled, err := compileRaw(fmt.Sprintf("%s/%s.json", function, name), raw)
		if err != nil {
			return nil, fmt.Errorf("function %q parameter %q: %w", function, name, err)
		}
		s.props[name] = compiled
	}

	s.raw = map[string]any{
		"type":       "object",
		"properties": properties,
	}
	if len(s.required) > 0 {
		s.raw["required"] = s.required
	}
	return s, nil
}

// MustCompile is like Compile but panics on error.
func MustCompile(function string, params map[string]domain.Param) *Schema {
	s, err := Compile(function, params)
	if err != nil {
		panic(err)
	}
	return s
}

// Raw returns the JSON Schema object, suitable for tool definitions handed to a model.
func (s *Schema) Raw() map[string]any {
	if s == nil {
		return nil
	}
	return s.raw
}

// Required returns the required parameter names in sorted order.
func (s *Schema) Required() []string {
	return s.required
}

// Validate checks args against the schema. Unknown arguments are ignored.
func (s *Schema) Validate(args map[string]any) error {
	if s == nil {
		return nil
	}

	verr := &domain.SchemaValidationError{Function: s.function}
	for _, name := range s.required {
		if v, ok := args[name]; !ok || v == nil {
			verr.Missing = append(verr.Missing, name)
		}
	}

	for _, name := range sortedKeys(s.props) {
		v, ok := args[name]
		if !ok || v == nil {
			continue
		}
		inst, err := normalize(v)
		if err != nil {
			verr.Mistyped = append(verr.Mistyped, domain.FieldError{Field: name, Reason: err.Error()})
			continue
		}
		if err := s.props[name].Validate(inst); err != nil {
			verr.Mistyped = append(verr.Mistyped, domain.FieldError{Field: name, Reason: reason(err)})
		}
	}

	if len(verr.Missing) > 0 || len(verr.Mistyped) > 0 {
		return verr
	}
	return nil
}

func build(p domain.Param, path string) (map[string]any, error) {
	if !knownTypes[p.Type] {
		return nil, fmt.Errorf("parameter %q: unknown type %q", path, p.Type)
	}
	m := map[string]any{"type": p.Type}
	if p.Description != "" {
		m["description"] = p.Description
	}

	switch p.Type {
	case "array":
		if p.Items == nil {
			return nil, fmt.Errorf("parameter %q: array requires items", path)
		}
		items, err := build(*p.Items, path+"[]")
		if err != nil {
			return nil, err
		}
		m["items"] = items
	case "object":
		if len(p.Properties) == 0 {
			break
		}
		props := make(map[string]any, len(p.Properties))
		var required []string
		for _, name := range sortedKeys(p.Properties) {
			child := p.Properties[name]
			raw, err := build(child, path+"."+name)
			if err != nil {
				return nil, err
			}
			props[name] = raw
			if child.Required {
				required = append(required, name)
			}
		}
		m["properties"] = props
		if len(required) > 0 {
			m["required"] = required
		}
	}
	return m, nil
}

func compileRaw(url string, raw map[string]any) (*jsonschema.Schema, error) {
	doc, err := normalize(raw)
	if err != nil {
		return nil, err
	}
	c := jsonschema.NewCompiler()
	if err := c.AddResource(url, doc); err != nil {
		return nil, fmt.Errorf("failed to add schema resource: %w", err)
	}
	return c.Compile(url)
}

// normalize round-trips a Go value through JSON so the validator sees the
// representation it expects (json.Number, []any, map[string]any).
func normalize(v any) (any, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("value is not JSON encodable: %w", err)
	}
	return jsonschema.UnmarshalJSON(bytes.NewReader(data))
}

// reason reduces a multi-line validation error to its most specific line.
func reason(err error) string {
	lines := strings.Split(strings.TrimSpace(err.Error()), "\n")
	last := strings.TrimSpace(lines[len(lines)-1])
	return strings.TrimPrefix(last, "- ")
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
