package lookup

import (
	"context"
	"testing"

	"logsift/internal/record"
)

const chromeOnWindows = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

func TestUserAgentLookup(t *testing.T) {
	u := NewUserAgent()

	got := u.Lookup(context.Background(), chromeOnWindows)
	if got["browser"] != "Chrome" || got["os"] != "Windows" {
		t.Errorf("Lookup = %v", got)
	}
	// Served from cache the second time.
	if again := u.Lookup(context.Background(), chromeOnWindows); again["browser"] != "Chrome" {
		t.Errorf("cached Lookup = %v", again)
	}
	if u.cache.Len() != 1 {
		t.Errorf("cache len = %d, want 1", u.cache.Len())
	}
	if got := u.Lookup(context.Background(), ""); got != nil {
		t.Errorf("empty agent = %v, want nil", got)
	}
}

type fixedTable map[string]map[string]string

func (f fixedTable) Lookup(_ context.Context, v string) map[string]string { return f[v] }
func (f fixedTable) Suffixes() []string                                   { return nil }

func TestRegistryEnrichIIS(t *testing.T) {
	reg := Registry{
		TableGeoIP:     fixedTable{"10.0.0.1": {"country": "NO", "city": "Oslo"}},
		TableUserAgent: fixedTable{"curl/8.0": {"browser": "curl"}},
	}
	if got := reg.Names(); len(got) != 2 || got[0] != TableGeoIP || got[1] != TableUserAgent {
		t.Errorf("Names() = %v", got)
	}

	e := &record.IISEntry{ClientIP: "10.0.0.1", UserAgent: "curl/8.0", City: "Bergen"}
	reg.EnrichIIS(context.Background(), e)
	if e.Country != "NO" || e.City != "Bergen" || e.Browser != "curl" || e.OS != "" {
		t.Errorf("enriched = %+v", e)
	}

	miss := &record.IISEntry{ClientIP: "192.0.2.1"}
	reg.EnrichIIS(context.Background(), miss)
	if miss.Country != "" || miss.Browser != "" {
		t.Errorf("miss enriched = %+v", miss)
	}

	// An empty registry is a no-op.
	Registry{}.EnrichIIS(context.Background(), e)
}
