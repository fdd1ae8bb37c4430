// Package lookup provides enrichment tables for parsed records. A
// LookupTable maps one field value to suffix→value pairs; the IIS parser
// uses them to fill derived columns (Country, City, Browser, OS).
package lookup

import (
	"context"
	"slices"

	"logsift/internal/record"
)

// Table names understood by Registry.EnrichIIS.
const (
	TableGeoIP     = "geoip"
	TableUserAgent = "useragent"
)

// LookupTable enriches a single field value with additional fields.
// Implementations must be safe for concurrent use.
type LookupTable interface {
	// Lookup returns suffix→value pairs for the given input value.
	// Returns nil on miss (enrichment misses are normal, not errors).
	Lookup(ctx context.Context, value string) map[string]string

	// Suffixes returns the output suffixes this table produces.
	Suffixes() []string
}

// Registry is a static map of table name → LookupTable.
// Built at startup, read-only after.
type Registry map[string]LookupTable

// Resolve returns the table for the given name, or nil if not found.
func (r Registry) Resolve(name string) LookupTable {
	return r[name]
}

// Names returns the registered table names, sorted.
func (r Registry) Names() []string {
	names := make([]string, 0, len(r))
	for n := range r {
		names = append(names, n)
	}
	slices.Sort(names)
	return names
}

// EnrichIIS fills the derived columns of e from the registered tables.
// Columns already set are left alone.
func (r Registry) EnrichIIS(ctx context.Context, e *record.IISEntry) {
	if t := r.Resolve(TableGeoIP); t != nil && e.ClientIP != "" {
		if out := t.Lookup(ctx, e.ClientIP); out != nil {
			setIfEmpty(&e.Country, out["country"])
			setIfEmpty(&e.City, out["city"])
		}
	}
	if t := r.Resolve(TableUserAgent); t != nil && e.UserAgent != "" {
		if out := t.Lookup(ctx, e.UserAgent); out != nil {
			setIfEmpty(&e.Browser, out["browser"])
			setIfEmpty(&e.OS, out["os"])
		}
	}
}

func setIfEmpty(dst *string, v string) {
	if *dst == "" {
		*dst = v
	}
}
