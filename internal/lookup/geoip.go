package lookup

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/oschwald/maxminddb-golang"

	"logsift/internal/logging"
)

// GeoIPInfo describes a loaded MMDB database.
type GeoIPInfo struct {
	DatabaseType string
	BuildTime    time.Time
	NodeCount    uint
}

type mmdbRecord struct {
	Country struct {
		ISOCode string `maxminddb:"iso_code"`
	} `maxminddb:"country"`
	City struct {
		Names map[string]string `maxminddb:"names"`
	} `maxminddb:"city"`
}

// GeoIP maps client addresses to country and city using a MaxMind
// City or Country database. The reader is swapped atomically on reload.
type GeoIP struct {
	reader atomic.Pointer[maxminddb.Reader]
	logger *slog.Logger

	mu        sync.Mutex
	watcher   *fsnotify.Watcher
	watchDone chan struct{}
}

// NewGeoIP creates an empty table; Lookup misses until Load succeeds.
func NewGeoIP(logger *slog.Logger) *GeoIP {
	return &GeoIP{logger: logging.Default(logger).With("component", "geoip")}
}

// Suffixes returns the output suffixes this table produces.
func (g *GeoIP) Suffixes() []string {
	return []string{"country", "city"}
}

// Lookup resolves an IP address. Returns nil on miss, on an unparsable
// address, or when no database is loaded.
func (g *GeoIP) Lookup(_ context.Context, value string) map[string]string {
	r := g.reader.Load()
	if r == nil {
		return nil
	}
	ip := net.ParseIP(value)
	if ip == nil {
		return nil
	}

	var rec mmdbRecord
	if err := r.Lookup(ip, &rec); err != nil {
		return nil
	}
	out := make(map[string]string, 2)
	if rec.Country.ISOCode != "" {
		out["country"] = rec.Country.ISOCode
	}
	if name := rec.City.Names["en"]; name != "" {
		out["city"] = name
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// Load opens an MMDB file and swaps it in, closing the previous reader.
func (g *GeoIP) Load(path string) (GeoIPInfo, error) {
	r, err := maxminddb.Open(path)
	if err != nil {
		return GeoIPInfo{}, fmt.Errorf("open mmdb %q: %w", path, err)
	}
	if old := g.reader.Swap(r); old != nil {
		_ = old.Close()
	}
	info := infoOf(r)
	g.logger.Debug("database loaded", "path", path, "type", info.DatabaseType, "built", info.BuildTime)
	return info, nil
}

// Inspect opens an MMDB file only to read its metadata.
func Inspect(path string) (GeoIPInfo, error) {
	r, err := maxminddb.Open(path)
	if err != nil {
		return GeoIPInfo{}, err
	}
	defer func() { _ = r.Close() }()
	return infoOf(r), nil
}

func infoOf(r *maxminddb.Reader) GeoIPInfo {
	return GeoIPInfo{
		DatabaseType: r.Metadata.DatabaseType,
		BuildTime:    time.Unix(int64(r.Metadata.BuildEpoch), 0), //nolint:gosec // BuildEpoch fits a unix timestamp
		NodeCount:    r.Metadata.NodeCount,
	}
}

// WatchFile reloads the database whenever path is written or replaced.
// The parent directory is watched so atomic renames are seen. Calling
// WatchFile again replaces the previous watch.
func (g *GeoIP) WatchFile(path string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.stopWatchLocked()

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	if err := w.Add(filepath.Dir(path)); err != nil {
		_ = w.Close()
		return fmt.Errorf("watch %q: %w", path, err)
	}
	g.watcher = w
	g.watchDone = make(chan struct{})
	go g.watchLoop(w, filepath.Clean(path), g.watchDone)
	return nil
}

func (g *GeoIP) watchLoop(w *fsnotify.Watcher, path string, done chan struct{}) {
	defer close(done)
	for {
		select {
		case ev, ok := <-w.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != path || !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) {
				continue
			}
			if _, err := g.Load(path); err != nil {
				// A writer may still be mid-copy; the next event retries.
				g.logger.Warn("reload failed", "path", path, "error", err)
			}
		case err, ok := <-w.Errors:
			if !ok {
				return
			}
			g.logger.Warn("fsnotify error", "path", path, "error", err)
		}
	}
}

func (g *GeoIP) stopWatchLocked() {
	if g.watcher != nil {
		_ = g.watcher.Close()
		<-g.watchDone
		g.watcher = nil
		g.watchDone = nil
	}
}

// Close stops the watcher and closes the current reader.
func (g *GeoIP) Close() {
	g.mu.Lock()
	g.stopWatchLocked()
	g.mu.Unlock()

	if r := g.reader.Swap(nil); r != nil {
		_ = r.Close()
	}
}
