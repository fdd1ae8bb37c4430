package lookup

import (
	"context"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/mileusna/useragent"
)

// UserAgentCacheSize bounds the parsed user-agent cache. Access logs
// repeat a small set of agents, so hits dominate.
const UserAgentCacheSize = 4096

// UserAgent maps a User-Agent header to browser and operating system.
type UserAgent struct {
	cache *lru.Cache[string, map[string]string]
}

// NewUserAgent creates a user-agent table.
func NewUserAgent() *UserAgent {
	c, _ := lru.New[string, map[string]string](UserAgentCacheSize)
	return &UserAgent{cache: c}
}

// Suffixes returns the output suffixes this table produces.
func (u *UserAgent) Suffixes() []string {
	return []string{"browser", "os"}
}

// Lookup parses value. Returns nil when neither browser nor OS is known.
// The returned map is shared between callers and must not be modified.
func (u *UserAgent) Lookup(_ context.Context, value string) map[string]string {
	if value == "" {
		return nil
	}
	if out, ok := u.cache.Get(value); ok {
		return out
	}

	ua := useragent.Parse(value)
	var out map[string]string
	if ua.Name != "" || ua.OS != "" {
		out = make(map[string]string, 2)
		if ua.Name != "" {
			out["browser"] = ua.Name
		}
		if ua.OS != "" {
			out["os"] = ua.OS
		}
	}
	u.cache.Add(value, out)
	return out
}
