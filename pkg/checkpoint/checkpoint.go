// Package checkpoint persists bulk-ingestion progress so interrupted runs can
// resume without re-extracting already processed fragments.
package checkpoint

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// ErrInvalidID is returned when a fragment ID contains path traversal or
// other invalid characters.
var ErrInvalidID = errors.New("invalid fragment ID: contains path traversal or invalid characters")

// ErrNotFound is returned when no checkpoint exists for a fragment.
var ErrNotFound = errors.New("checkpoint not found")

// FragmentCheckpoint records the state of one processed fragment.
type FragmentCheckpoint struct {
	FragmentID   string    `json:"fragment_id"`
	TripleCount  int       `json:"triple_count"`
	FactIDs      []string  `json:"fact_ids,omitempty"`
	CompletedAt  time.Time `json:"completed_at"`
	AttemptCount int       `json:"attempt_count"`
	LastError    string    `json:"last_error,omitempty"`
}

// Manager stores checkpoints as JSON files under a directory.
type Manager struct {
	dir string
}

// NewManager creates a checkpoint manager rooted at dir.
func NewManager(dir string) (*Manager, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create checkpoint directory: %w", err)
	}
	return &Manager{dir: dir}, nil
}

func validateID(id string) error {
	if id == "" || strings.ContainsAny(id, `/\`) || strings.Contains(id, "..") {
		return ErrInvalidID
	}
	return nil
}

func (m *Manager) path(fragmentID string) string {
	return filepath.Join(m.dir, fragmentID+".json")
}

// Save writes a fragment checkpoint atomically via rename.
func (m *Manager) Save(cp *FragmentCheckpoint) error {
	if err := validateID(cp.FragmentID); err != nil {
		return err
	}

	data, err := json.MarshalIndent(cp, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode checkpoint: %w", err)
	}

	tmp := m.path(cp.FragmentID) + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("failed to write checkpoint: %w", err)
	}
	if err := os.Rename(tmp, m.path(cp.FragmentID)); err != nil {
		return fmt.Errorf("failed to commit checkpoint: %w", err)
	}
	return nil
}

// Load reads a fragment checkpoint, or ErrNotFound.
func (m *Manager) Load(fragmentID string) (*FragmentCheckpoint, error) {
	if err := validateID(fragmentID); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(m.path(fragmentID))
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read checkpoint: %w", err)
	}

	var cp FragmentCheckpoint
	if err := json.Unmarshal(data, &cp); err != nil {
		return nil, fmt.Errorf("failed to decode checkpoint: %w", err)
	}
	return &cp, nil
}

// Completed reports whether a fragment has a completed checkpoint.
func (m *Manager) Completed(fragmentID string) bool {
	cp, err := m.Load(fragmentID)
	return err == nil && !cp.CompletedAt.IsZero()
}

// Delete removes a fragment's checkpoint.
func (m *Manager) Delete(fragmentID string) error {
	if err := validateID(fragmentID); err != nil {
		return err
	}
	err := os.Remove(m.path(fragmentID))
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}
