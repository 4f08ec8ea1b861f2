package ports

import (
	"context"

	"github.com/newcast-health/intakeflow/pkg/domain"
)

// SessionArchive keeps read-only snapshots of session contexts so transcripts and collected
// facts outlive the in-memory session. Archived contexts are never resumed.
type SessionArchive interface {
	// Save stores the snapshot, replacing any previous one for the session.
	Save(ctx context.Context, sessionID string, fc *domain.FlowContext) error
	// Load returns domain.ErrSessionNotFound for unknown sessions.
	Load(ctx context.Context, sessionID string) (*domain.FlowContext, error)
	Delete(ctx context.Context, sessionID string) error
	List(ctx context.Context) ([]string, error)
}
