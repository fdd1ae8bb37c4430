// Package home manages the logsift home directory layout.
//
// Layout:
//
//	<root>/
//	  presets.json  or  presets.db    (preset store, type-dependent)
//	  lookups/
//	    GeoLite2-City.mmdb            (optional GeoIP database)
package home

import (
	"fmt"
	"os"
	"path/filepath"
)

// GeoIPFile is the database name looked for in LookupDir.
const GeoIPFile = "GeoLite2-City.mmdb"

// Dir represents a logsift home directory.
type Dir struct {
	root string
}

// New creates a Dir with an explicit root path.
func New(root string) Dir {
	return Dir{root: root}
}

// Default returns a Dir using the platform-appropriate default location:
//   - Linux:   ~/.config/logsift
//   - macOS:   ~/Library/Application Support/logsift
//   - Windows: %APPDATA%/logsift
func Default() (Dir, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		return Dir{}, fmt.Errorf("determine config directory: %w", err)
	}
	return Dir{root: filepath.Join(base, "logsift")}, nil
}

// Resolve returns New(root) when root is set, else Default.
func Resolve(root string) (Dir, error) {
	if root != "" {
		return New(root), nil
	}
	return Default()
}

// Root returns the home directory path.
func (d Dir) Root() string {
	return d.root
}

// PresetsPath returns the preset store path for a store type
// ("json" or "sqlite").
func (d Dir) PresetsPath(storeType string) string {
	if storeType == "sqlite" {
		return filepath.Join(d.root, "presets.db")
	}
	return filepath.Join(d.root, "presets.json")
}

// LookupDir returns the directory holding lookup databases.
func (d Dir) LookupDir() string {
	return filepath.Join(d.root, "lookups")
}

// GeoIPPath returns the default GeoIP database location.
func (d Dir) GeoIPPath() string {
	return filepath.Join(d.LookupDir(), GeoIPFile)
}

// EnsureExists creates the home directory (and parents) if it doesn't exist.
func (d Dir) EnsureExists() error {
	if err := os.MkdirAll(d.root, 0o750); err != nil {
		return fmt.Errorf("create home directory %s: %w", d.root, err)
	}
	return nil
}
