package home

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefault(t *testing.T) {
	d, err := Default()
	if err != nil {
		t.Fatalf("Default: %v", err)
	}
	if filepath.Base(d.Root()) != "logsift" {
		t.Errorf("expected root to end with 'logsift', got %s", d.Root())
	}
}

func TestResolve(t *testing.T) {
	d, err := Resolve("/tmp/logsift-test")
	if err != nil || d.Root() != "/tmp/logsift-test" {
		t.Errorf("Resolve explicit = %q, %v", d.Root(), err)
	}
	d, err = Resolve("")
	if err != nil || filepath.Base(d.Root()) != "logsift" {
		t.Errorf("Resolve default = %q, %v", d.Root(), err)
	}
}

func TestPaths(t *testing.T) {
	d := New("/data")
	tests := []struct {
		name, got, want string
	}{
		{"json presets", d.PresetsPath("json"), "/data/presets.json"},
		{"memory presets", d.PresetsPath("memory"), "/data/presets.json"},
		{"sqlite presets", d.PresetsPath("sqlite"), "/data/presets.db"},
		{"lookups", d.LookupDir(), "/data/lookups"},
		{"geoip", d.GeoIPPath(), "/data/lookups/GeoLite2-City.mmdb"},
	}
	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("%s: got %s, want %s", tt.name, tt.got, tt.want)
		}
	}
}

func TestEnsureExists(t *testing.T) {
	root := filepath.Join(t.TempDir(), "nested", "logsift")
	d := New(root)
	if err := d.EnsureExists(); err != nil {
		t.Fatalf("EnsureExists: %v", err)
	}
	info, err := os.Stat(root)
	if err != nil {
		t.Fatalf("Stat: %v", err)
	}
	if !info.IsDir() {
		t.Error("expected directory")
	}
	if err := d.EnsureExists(); err != nil {
		t.Fatalf("EnsureExists (idempotent): %v", err)
	}
}
