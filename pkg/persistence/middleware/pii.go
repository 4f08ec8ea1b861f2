package middleware

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"

	"github.com/newcast-health/intakeflow/pkg/domain"
	"github.com/newcast-health/intakeflow/pkg/ports"
)

// Mask replaces every masked value.
const Mask = "***"

type piiMiddleware struct {
	next     ports.SessionArchive
	patterns []*regexp.Regexp
}

// NewPIIMiddleware creates a middleware that masks facts whose key matches one of the
// patterns, at any depth. The snapshot handed to Save is not modified.
func NewPIIMiddleware(patternStrings []string) (Middleware, error) {
	patterns := make([]*regexp.Regexp, len(patternStrings))
	for i, p := range patternStrings {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("invalid mask pattern %q: %w", p, err)
		}
		patterns[i] = re
	}
	return func(next ports.SessionArchive) ports.SessionArchive {
		return &piiMiddleware{next: next, patterns: patterns}
	}, nil
}

func (m *piiMiddleware) Save(ctx context.Context, sessionID string, fc *domain.FlowContext) error {
	// Facts hold typed handler payloads; a JSON round trip yields plain maps to walk.
	data, err := json.Marshal(fc)
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}
	var masked domain.FlowContext
	if err := json.Unmarshal(data, &masked); err != nil {
		return fmt.Errorf("failed to unmarshal session: %w", err)
	}

	maskMap(masked.Facts, m.patterns)
	return m.next.Save(ctx, sessionID, &masked)
}

func (m *piiMiddleware) Load(ctx context.Context, sessionID string) (*domain.FlowContext, error) {
	return m.next.Load(ctx, sessionID)
}

func (m *piiMiddleware) Delete(ctx context.Context, sessionID string) error {
	return m.next.Delete(ctx, sessionID)
}

func (m *piiMiddleware) List(ctx context.Context) ([]string, error) {
	return m.next.List(ctx)
}

func maskMap(m map[string]any, patterns []*regexp.Regexp) {
	for k, v := range m {
		if matchesAny(k, patterns) {
			m[k] = Mask
			continue
		}
		maskValue(v, patterns)
	}
}

func maskValue(v any, patterns []*regexp.Regexp) {
	switch val := v.(type) {
	case map[string]any:
		maskMap(val, patterns)
	case []any:
		for _, item := range val {
			maskValue(item, patterns)
		}
	}
}

func matchesAny(key string, patterns []*regexp.Regexp) bool {
	for _, p := range patterns {
		if p.MatchString(key) {
			return true
		}
	}
	return false
}
