// Package memory provides an in-memory preset store.
package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"logsift/internal/config"
)

// Store is an in-memory config.Store. Nothing is persisted; used by
// tests and by --config-type memory.
type Store struct {
	mu      sync.RWMutex
	presets map[uuid.UUID]config.Preset
}

var _ config.Store = (*Store)(nil)

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{presets: make(map[uuid.UUID]config.Preset)}
}

func (s *Store) GetPreset(_ context.Context, id uuid.UUID) (*config.Preset, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.presets[id]
	if !ok {
		return nil, nil
	}
	c := p.Clone()
	return &c, nil
}

func (s *Store) FindPreset(_ context.Context, name string) (*config.Preset, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, p := range s.presets {
		if config.SameName(p.Name, name) {
			c := p.Clone()
			return &c, nil
		}
	}
	return nil, nil
}

func (s *Store) ListPresets(_ context.Context) ([]config.Preset, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]config.Preset, 0, len(s.presets))
	for _, p := range s.presets {
		out = append(out, p.Clone())
	}
	config.SortByName(out)
	return out, nil
}

func (s *Store) PutPreset(_ context.Context, p config.Preset) error {
	if err := p.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, other := range s.presets {
		if id != p.ID && config.SameName(other.Name, p.Name) {
			return fmt.Errorf("%w: %q", config.ErrDuplicateName, p.Name)
		}
	}
	s.presets[p.ID] = p.Clone()
	return nil
}

func (s *Store) DeletePreset(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.presets[id]; !ok {
		return fmt.Errorf("%w: %s", config.ErrNotFound, id)
	}
	delete(s.presets, id)
	return nil
}
