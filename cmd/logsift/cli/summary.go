package cli

import (
	"strconv"
	"strings"
	"time"

	"logsift/internal/record"
	"logsift/internal/stats"
)

const barWidth = 40

type summaryView struct {
	Records int            `json:"records" msgpack:"records"`
	Untimed int            `json:"untimed" msgpack:"untimed"`
	First   *time.Time     `json:"first,omitempty" msgpack:"first,omitempty"`
	Last    *time.Time     `json:"last,omitempty" msgpack:"last,omitempty"`
	Levels  map[string]int `json:"levels" msgpack:"levels"`
	Buckets []bucketView   `json:"histogram" msgpack:"histogram"`
}

type bucketView struct {
	Start  time.Time      `json:"start" msgpack:"start"`
	Count  int            `json:"count" msgpack:"count"`
	Levels map[string]int `json:"levels,omitempty" msgpack:"levels,omitempty"`
}

func newSummaryView(s *stats.Summary, buckets int) summaryView {
	v := summaryView{
		Records: s.Total(),
		Untimed: s.Untimed(),
		Levels:  make(map[string]int),
	}
	if first, last := s.Span(); !first.IsZero() {
		v.First, v.Last = &first, &last
	}
	for _, l := range s.Levels() {
		v.Levels[levelName(l)] = s.Count(l)
	}
	for _, b := range s.Histogram(buckets).Buckets {
		bv := bucketView{Start: b.Start, Count: b.Count}
		for l, n := range b.Levels {
			if bv.Levels == nil {
				bv.Levels = make(map[string]int)
			}
			bv.Levels[levelName(l)] = n
		}
		v.Buckets = append(v.Buckets, bv)
	}
	return v
}

func printSummary(p *printer, s *stats.Summary, buckets int) error {
	v := newSummaryView(s, buckets)
	if p.structured() {
		return p.encode(map[string]summaryView{"summary": v})
	}

	pairs := [][2]string{
		{"Records", strconv.Itoa(v.Records)},
		{"Untimed", strconv.Itoa(v.Untimed)},
	}
	if v.First != nil {
		pairs = append(pairs,
			[2]string{"First", v.First.Format(time.RFC3339)},
			[2]string{"Last", v.Last.Format(time.RFC3339)},
		)
	}
	_, _ = p.w.Write([]byte("\n"))
	p.kv(pairs)

	if len(v.Levels) > 0 {
		_, _ = p.w.Write([]byte("\n"))
		var rows [][]string
		for _, l := range s.Levels() {
			rows = append(rows, []string{levelName(l), strconv.Itoa(s.Count(l))})
		}
		p.table([]string{"LEVEL", "COUNT"}, rows)
	}

	if len(v.Buckets) > 0 {
		_, _ = p.w.Write([]byte("\n"))
		peak := 0
		for _, b := range v.Buckets {
			peak = max(peak, b.Count)
		}
		rows := make([][]string, 0, len(v.Buckets))
		for _, b := range v.Buckets {
			rows = append(rows, []string{b.Start.Format(time.RFC3339), strconv.Itoa(b.Count), bar(b.Count, peak)})
		}
		p.table([]string{"FROM", "COUNT", ""}, rows)
	}
	return nil
}

func levelName(l record.Level) string {
	if l == record.LevelUnknown {
		return "UNKNOWN"
	}
	return l.String()
}

// bar scales n against peak to at most barWidth cells. Non-zero counts
// always get at least one cell.
func bar(n, peak int) string {
	if n == 0 || peak == 0 {
		return ""
	}
	return strings.Repeat("#", max(1, n*barWidth/peak))
}
