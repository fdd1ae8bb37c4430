// Package config persists named filter presets.
//
// A preset is a saved criteria list for one record kind, recalled from
// the CLI with --preset NAME. Stores are keyed by ID; names are unique
// per store, compared case-insensitively.
package config

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"

	"logsift/internal/filter"
	"logsift/internal/record"
)

var (
	ErrInvalidPreset = errors.New("invalid preset")
	ErrDuplicateName = errors.New("preset name already in use")
	ErrNotFound      = errors.New("preset not found")
)

// Store persists presets. Implementations must be safe for concurrent
// use.
type Store interface {
	// GetPreset returns the preset with id, or nil if none exists.
	GetPreset(ctx context.Context, id uuid.UUID) (*Preset, error)
	// FindPreset returns the preset named name, or nil if none exists.
	FindPreset(ctx context.Context, name string) (*Preset, error)
	// ListPresets returns all presets sorted by name.
	ListPresets(ctx context.Context) ([]Preset, error)
	// PutPreset inserts or replaces the preset with p.ID.
	PutPreset(ctx context.Context, p Preset) error
	// DeletePreset removes the preset with id. Deleting a missing preset
	// returns ErrNotFound.
	DeletePreset(ctx context.Context, id uuid.UUID) error
}

// Preset is a named, saved filter.
type Preset struct {
	ID          uuid.UUID          `json:"id"`
	Name        string             `json:"name"`
	Kind        string             `json:"kind"`
	Mode        filter.Mode        `json:"mode"`
	Criteria    []filter.Criterion `json:"criteria"`
	Description string             `json:"description,omitempty"`
	UpdatedAt   time.Time          `json:"updatedAt"`
}

// NewPreset builds a preset with a fresh time-ordered ID.
func NewPreset(name string, kind record.Kind, mode filter.Mode, criteria []filter.Criterion) Preset {
	return Preset{
		ID:        uuid.Must(uuid.NewV7()),
		Name:      name,
		Kind:      kind.String(),
		Mode:      mode,
		Criteria:  slices.Clone(criteria),
		UpdatedAt: time.Now().UTC().Truncate(time.Second),
	}
}

// RecordKind resolves the preset's kind name.
func (p Preset) RecordKind() (record.Kind, bool) {
	return record.ParseKind(p.Kind)
}

// Validate checks the fields every store requires. Criteria are
// validated against a registry by the filter service when the preset is
// used.
func (p Preset) Validate() error {
	switch {
	case p.ID == uuid.Nil:
		return fmt.Errorf("%w: missing id", ErrInvalidPreset)
	case strings.TrimSpace(p.Name) == "":
		return fmt.Errorf("%w: missing name", ErrInvalidPreset)
	}
	if _, ok := p.RecordKind(); !ok {
		return fmt.Errorf("%w: unknown kind %q", ErrInvalidPreset, p.Kind)
	}
	return nil
}

// Clone returns a deep copy of p.
func (p Preset) Clone() Preset {
	p.Criteria = slices.Clone(p.Criteria)
	return p
}

// SameName reports whether two preset names collide.
func SameName(a, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}

// SortByName orders presets by name, case-insensitively.
func SortByName(presets []Preset) {
	slices.SortFunc(presets, func(a, b Preset) int {
		return strings.Compare(strings.ToLower(a.Name), strings.ToLower(b.Name))
	})
}
