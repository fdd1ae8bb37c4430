// Package stats aggregates filtered record streams into level counts and
// a time histogram.
package stats

import (
	"iter"
	"maps"
	"slices"
	"time"

	"logsift/internal/record"
)

const (
	DefaultBuckets = 50
	MaxBuckets     = 500
)

type sample struct {
	ts    time.Time
	level record.Level
}

// Summary accumulates counts. The zero value is not usable; call
// NewSummary.
type Summary struct {
	total   int
	untimed int
	levels  map[record.Level]int
	first   time.Time
	last    time.Time
	samples []sample
}

// NewSummary creates an empty summary.
func NewSummary() *Summary {
	return &Summary{levels: make(map[record.Level]int)}
}

// Add counts one record. A zero ts counts toward the totals only.
func (s *Summary) Add(ts time.Time, level record.Level) {
	s.total++
	s.levels[level]++
	if ts.IsZero() {
		s.untimed++
		return
	}
	if s.first.IsZero() || ts.Before(s.first) {
		s.first = ts
	}
	if ts.After(s.last) {
		s.last = ts
	}
	s.samples = append(s.samples, sample{ts: ts, level: level})
}

// Observe passes src through unchanged, adding every record to s.
// Errors are passed through and not counted.
func Observe[R any](s *Summary, src iter.Seq2[R, error], ts func(R) time.Time, level func(R) record.Level) iter.Seq2[R, error] {
	return func(yield func(R, error) bool) {
		for r, err := range src {
			if err == nil {
				s.Add(ts(r), level(r))
			}
			if !yield(r, err) {
				return
			}
		}
	}
}

// Total is the number of records added.
func (s *Summary) Total() int { return s.total }

// Untimed is the number of records without a timestamp.
func (s *Summary) Untimed() int { return s.untimed }

// Count returns the number of records at level.
func (s *Summary) Count(level record.Level) int { return s.levels[level] }

// Levels returns the levels seen, most severe first.
func (s *Summary) Levels() []record.Level {
	levels := slices.Collect(maps.Keys(s.levels))
	slices.SortFunc(levels, func(a, b record.Level) int { return b.Severity() - a.Severity() })
	return levels
}

// Span returns the first and last timestamps seen.
func (s *Summary) Span() (first, last time.Time) { return s.first, s.last }

// Bucket is one histogram slot covering [Start, Start+Width).
type Bucket struct {
	Start  time.Time
	Count  int
	Levels map[record.Level]int
}

// Histogram divides the observed span into equal-width buckets.
type Histogram struct {
	Start   time.Time
	Width   time.Duration
	Buckets []Bucket
}

// Histogram bins the timed records into n buckets (clamped to
// 1..MaxBuckets; n <= 0 means DefaultBuckets). The last bucket also
// holds the record at the end of the span. Returns an empty histogram
// when nothing timed was added.
func (s *Summary) Histogram(n int) Histogram {
	if n <= 0 {
		n = DefaultBuckets
	}
	n = min(n, MaxBuckets)
	if len(s.samples) == 0 {
		return Histogram{}
	}

	span := s.last.Sub(s.first)
	if span <= 0 {
		n = 1
	}
	width := span / time.Duration(n)
	if width <= 0 {
		width = time.Second
	}

	h := Histogram{Start: s.first, Width: width, Buckets: make([]Bucket, n)}
	for i := range h.Buckets {
		h.Buckets[i] = Bucket{Start: s.first.Add(time.Duration(i) * width), Levels: make(map[record.Level]int)}
	}
	for _, smp := range s.samples {
		idx := int(smp.ts.Sub(s.first) / width)
		if idx >= n {
			idx = n - 1
		}
		h.Buckets[idx].Count++
		h.Buckets[idx].Levels[smp.level]++
	}
	return h
}
