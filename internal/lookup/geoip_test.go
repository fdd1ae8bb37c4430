package lookup

import (
	"context"
	"net"
	"os"
	"path/filepath"
	"slices"
	"testing"
	"time"

	"github.com/maxmind/mmdbwriter"
	"github.com/maxmind/mmdbwriter/mmdbtype"
)

// writeTestMMDB writes a small City-style database:
//   - 8.8.8.8/32: country US, city Mountain View
//   - 1.1.1.1/32: country AU only
func writeTestMMDB(t *testing.T, path, dbType string) {
	t.Helper()

	tree, err := mmdbwriter.New(mmdbwriter.Options{
		DatabaseType:            dbType,
		RecordSize:              24,
		IncludeReservedNetworks: true,
	})
	if err != nil {
		t.Fatalf("mmdbwriter.New: %v", err)
	}

	_, net8, _ := net.ParseCIDR("8.8.8.8/32")
	if err := tree.Insert(net8, mmdbtype.Map{
		"country": mmdbtype.Map{"iso_code": mmdbtype.String("US")},
		"city": mmdbtype.Map{
			"names": mmdbtype.Map{"en": mmdbtype.String("Mountain View")},
		},
	}); err != nil {
		t.Fatalf("insert 8.8.8.8: %v", err)
	}
	_, net1, _ := net.ParseCIDR("1.1.1.1/32")
	if err := tree.Insert(net1, mmdbtype.Map{
		"country": mmdbtype.Map{"iso_code": mmdbtype.String("AU")},
	}); err != nil {
		t.Fatalf("insert 1.1.1.1: %v", err)
	}

	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := tree.WriteTo(f); err != nil {
		_ = f.Close()
		t.Fatalf("WriteTo: %v", err)
	}
	if err := f.Close(); err != nil {
		t.Fatal(err)
	}
	if err := os.Rename(tmp, path); err != nil {
		t.Fatal(err)
	}
}

func testMMDB(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "city.mmdb")
	writeTestMMDB(t, path, "Test-City")
	return path
}

func TestGeoIPSuffixes(t *testing.T) {
	g := NewGeoIP(nil)
	defer g.Close()
	if got := g.Suffixes(); !slices.Equal(got, []string{"country", "city"}) {
		t.Errorf("Suffixes() = %v", got)
	}
}

func TestGeoIPMissesWithoutDatabase(t *testing.T) {
	g := NewGeoIP(nil)
	defer g.Close()

	for _, v := range []string{"8.8.8.8", "", "not-an-ip"} {
		if got := g.Lookup(context.Background(), v); got != nil {
			t.Errorf("Lookup(%q) = %v, want nil", v, got)
		}
	}
}

func TestGeoIPLoadErrors(t *testing.T) {
	g := NewGeoIP(nil)
	defer g.Close()

	if _, err := g.Load("/nonexistent/path.mmdb"); err == nil {
		t.Error("Load bad path: expected error")
	}
	bad := filepath.Join(t.TempDir(), "bad.mmdb")
	if err := os.WriteFile(bad, []byte("not a valid mmdb"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := g.Load(bad); err == nil {
		t.Error("Load bad file: expected error")
	}
	if _, err := Inspect(bad); err == nil {
		t.Error("Inspect bad file: expected error")
	}
}

func TestGeoIPLoadAndLookup(t *testing.T) {
	path := testMMDB(t)
	g := NewGeoIP(nil)
	defer g.Close()

	info, err := g.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if info.DatabaseType != "Test-City" || info.BuildTime.IsZero() {
		t.Errorf("info = %+v", info)
	}

	tests := []struct {
		ip   string
		want map[string]string
	}{
		{"8.8.8.8", map[string]string{"country": "US", "city": "Mountain View"}},
		{"1.1.1.1", map[string]string{"country": "AU"}},
		{"9.9.9.9", nil},
	}
	for _, tt := range tests {
		got := g.Lookup(context.Background(), tt.ip)
		if len(got) != len(tt.want) {
			t.Errorf("Lookup(%s) = %v, want %v", tt.ip, got, tt.want)
			continue
		}
		for k, v := range tt.want {
			if got[k] != v {
				t.Errorf("Lookup(%s)[%s] = %q, want %q", tt.ip, k, got[k], v)
			}
		}
	}

	// Reloading swaps readers without breaking lookups.
	if _, err := g.Load(path); err != nil {
		t.Fatalf("second Load: %v", err)
	}
	if got := g.Lookup(context.Background(), "8.8.8.8"); got["country"] != "US" {
		t.Errorf("after reload: %v", got)
	}

	meta, err := Inspect(path)
	if err != nil || meta.DatabaseType != "Test-City" || meta.NodeCount == 0 {
		t.Errorf("Inspect = %+v, %v", meta, err)
	}
}

func TestGeoIPWatchReloads(t *testing.T) {
	path := filepath.Join(t.TempDir(), "city.mmdb")
	writeTestMMDB(t, path, "First")

	g := NewGeoIP(nil)
	defer g.Close()
	if _, err := g.Load(path); err != nil {
		t.Fatal(err)
	}
	if err := g.WatchFile(path); err != nil {
		t.Fatal(err)
	}

	writeTestMMDB(t, path, "Second")

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if r := g.reader.Load(); r != nil && r.Metadata.DatabaseType == "Second" {
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatal("database was not reloaded after replacement")
}
