package file

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/newcast-health/intakeflow/pkg/domain"
)

// Archive implements ports.SessionArchive using the local filesystem.
// It stores one JSON file per session in a configured directory.
type Archive struct {
	BasePath string
}

// NewArchive creates a new Archive with the given base path.
// If basePath is empty, it defaults to ".intakeflow/sessions".
func NewArchive(basePath string) *Archive {
	if basePath == "" {
		basePath = filepath.Join(".intakeflow", "sessions")
	}
	return &Archive{BasePath: basePath}
}

func (a *Archive) path(sessionID string) (string, error) {
	if sessionID == "" {
		return "", fmt.Errorf("sessionID cannot be empty")
	}
	if strings.ContainsAny(sessionID, `/\`) || sessionID == "." || sessionID == ".." {
		return "", fmt.Errorf("invalid sessionID %q", sessionID)
	}
	return filepath.Join(a.BasePath, sessionID+".json"), nil
}

// Save writes the snapshot through a temporary file and a rename.
func (a *Archive) Save(ctx context.Context, sessionID string, fc *domain.FlowContext) error {
	filePath, err := a.path(sessionID)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(a.BasePath, 0o755); err != nil {
		return fmt.Errorf("failed to ensure session directory: %w", err)
	}

	data, err := json.MarshalIndent(fc, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}

	tmp, err := os.CreateTemp(a.BasePath, sessionID+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create session file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write session file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write session file: %w", err)
	}
	if err := os.Rename(tmp.Name(), filePath); err != nil {
		return fmt.Errorf("failed to replace session file: %w", err)
	}
	return nil
}

// Load reads the snapshot of a session.
func (a *Archive) Load(ctx context.Context, sessionID string) (*domain.FlowContext, error) {
	filePath, err := a.path(sessionID)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, domain.ErrSessionNotFound
		}
		return nil, fmt.Errorf("failed to read session file: %w", err)
	}

	var fc domain.FlowContext
	if err := json.Unmarshal(data, &fc); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session: %w", err)
	}
	return &fc, nil
}

// Delete removes the session file.
func (a *Archive) Delete(ctx context.Context, sessionID string) error {
	filePath, err := a.path(sessionID)
	if err != nil {
		return err
	}

	if err := os.Remove(filePath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete session file: %w", err)
	}
	return nil
}

// List returns all archived session IDs.
func (a *Archive) List(ctx context.Context) ([]string, error) {
	entries, err := os.ReadDir(a.BasePath)
	if err != nil {
		if os.IsNotExist(err) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}

	sessions := []string{}
	for _, entry := range entries {
		if !entry.IsDir() && filepath.Ext(entry.Name()) == ".json" {
			sessions = append(sessions, strings.TrimSuffix(entry.Name(), ".json"))
		}
	}
	sort.Strings(sessions)
	return sessions, nil
}
