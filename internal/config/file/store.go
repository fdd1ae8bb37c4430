// Package file provides a JSON file preset store.
//
// Presets are persisted as a versioned JSON envelope:
//
//	{"version": 1, "presets": [ ... ]}
//
// Every mutation loads the full file, mutates in memory and atomically
// rewrites the file.
package file

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"

	"logsift/internal/config"
)

const currentVersion = 1

// envelope is the versioned on-disk format.
type envelope struct {
	Version int             `json:"version"`
	Presets []config.Preset `json:"presets"`
}

// Store is a file-backed config.Store. Writes are atomic via temp file
// + rename with round-trip validation.
type Store struct {
	path string
	mu   sync.Mutex
}

var _ config.Store = (*Store)(nil)

// NewStore creates a store persisted at path. The file is created on
// first write.
func NewStore(path string) *Store {
	return &Store{path: path}
}

// load reads and parses the file. A missing file is an empty store.
func (s *Store) load() ([]config.Preset, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read presets file: %w", err)
	}

	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("parse presets file: %w", err)
	}
	if env.Version == 0 {
		return nil, fmt.Errorf("unversioned presets file %s", s.path)
	}
	if env.Version > currentVersion {
		return nil, fmt.Errorf("presets file version %d is newer than supported version %d", env.Version, currentVersion)
	}
	if env.Version < currentVersion {
		if err := migrateFile(s.path, data, env.Version); err != nil {
			return nil, fmt.Errorf("migrate presets: %w", err)
		}
		if data, err = os.ReadFile(s.path); err != nil {
			return nil, fmt.Errorf("read migrated presets: %w", err)
		}
		if err := json.Unmarshal(data, &env); err != nil {
			return nil, fmt.Errorf("parse migrated presets: %w", err)
		}
	}
	return env.Presets, nil
}

// flush atomically writes presets with round-trip validation.
func (s *Store) flush(presets []config.Preset) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o750); err != nil {
		return fmt.Errorf("create presets directory: %w", err)
	}

	config.SortByName(presets)
	data, err := json.MarshalIndent(envelope{Version: currentVersion, Presets: presets}, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal presets: %w", err)
	}

	tmpPath := s.path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o600); err != nil {
		return fmt.Errorf("write temp file: %w", err)
	}
	check, err := os.ReadFile(tmpPath)
	if err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("read-back temp file: %w", err)
	}
	var verify envelope
	if err := json.Unmarshal(check, &verify); err != nil || len(verify.Presets) != len(presets) {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("round-trip validation failed: %v", err)
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("rename presets file: %w", err)
	}
	return nil
}

func (s *Store) GetPreset(_ context.Context, id uuid.UUID) (*config.Preset, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	presets, err := s.load()
	if err != nil {
		return nil, err
	}
	for _, p := range presets {
		if p.ID == id {
			return &p, nil
		}
	}
	return nil, nil
}

func (s *Store) FindPreset(_ context.Context, name string) (*config.Preset, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	presets, err := s.load()
	if err != nil {
		return nil, err
	}
	for _, p := range presets {
		if config.SameName(p.Name, name) {
			return &p, nil
		}
	}
	return nil, nil
}

func (s *Store) ListPresets(_ context.Context) ([]config.Preset, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	presets, err := s.load()
	if err != nil {
		return nil, err
	}
	if presets == nil {
		presets = []config.Preset{}
	}
	config.SortByName(presets)
	return presets, nil
}

func (s *Store) PutPreset(_ context.Context, p config.Preset) error {
	if err := p.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	presets, err := s.load()
	if err != nil {
		return err
	}

	replaced := false
	for i, other := range presets {
		switch {
		case other.ID == p.ID:
			presets[i] = p.Clone()
			replaced = true
		case config.SameName(other.Name, p.Name):
			return fmt.Errorf("%w: %q", config.ErrDuplicateName, p.Name)
		}
	}
	if !replaced {
		presets = append(presets, p.Clone())
	}
	return s.flush(presets)
}

func (s *Store) DeletePreset(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	presets, err := s.load()
	if err != nil {
		return err
	}
	for i, p := range presets {
		if p.ID == id {
			return s.flush(append(presets[:i], presets[i+1:]...))
		}
	}
	return fmt.Errorf("%w: %s", config.ErrNotFound, id)
}
