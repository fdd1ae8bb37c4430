package parser

import (
	"context"
	"iter"
	"strconv"
	"strings"
	"time"

	"logsift/internal/record"
)

// defaultIISFields is the column set IIS writes when a file carries no
// #Fields directive.
var defaultIISFields = []string{
	"date", "time", "s-ip", "cs-method", "cs-uri-stem", "cs-uri-query",
	"s-port", "cs-username", "c-ip", "cs(User-Agent)", "cs(Referer)",
	"sc-status", "sc-substatus", "sc-win32-status", "time-taken",
}

// iisColumn assigns one W3C field value to an entry. v is never "-".
type iisColumn func(e *record.IISEntry, v string)

var iisColumns = map[string]iisColumn{
	"s-ip":            func(e *record.IISEntry, v string) { e.ServerIP = v },
	"cs-method":       func(e *record.IISEntry, v string) { e.Method = v },
	"cs-uri-stem":     func(e *record.IISEntry, v string) { e.URIStem = v },
	"cs-uri-query":    func(e *record.IISEntry, v string) { e.URIQuery = v },
	"s-port":          func(e *record.IISEntry, v string) { e.ServerPort = atoi(v) },
	"cs-username":     func(e *record.IISEntry, v string) { e.UserName = v },
	"c-ip":            func(e *record.IISEntry, v string) { e.ClientIP = v },
	"cs(user-agent)":  func(e *record.IISEntry, v string) { e.UserAgent = strings.ReplaceAll(v, "+", " ") },
	"cs(referer)":     func(e *record.IISEntry, v string) { e.Referer = v },
	"sc-status":       func(e *record.IISEntry, v string) { e.Status = atoi(v) },
	"sc-substatus":    func(e *record.IISEntry, v string) { e.SubStatus = atoi(v) },
	"sc-win32-status": func(e *record.IISEntry, v string) { e.Win32Status = atoi(v) },
	"time-taken":      func(e *record.IISEntry, v string) { e.TimeTaken = atoi(v) },
}

// iisLayout is the column order in effect for the current file section.
type iisLayout struct {
	fields []string
	date   string // from the #Date directive, used when there is no date column
}

// IIS parses W3C extended log files as written by IIS. The #Fields
// directive sets the column order and may change mid-file; other
// directives are ignored. "-" marks a missing value: strings stay empty
// and numbers become -1. Timestamps are UTC. Each entry is passed to the
// enricher, when one is configured, before it is yielded.
func (p *Parser) IIS(ctx context.Context, lines Lines) iter.Seq2[*record.IISEntry, error] {
	return func(yield func(*record.IISEntry, error) bool) {
		layouts := make(map[string]*iisLayout)
		for line, err := range lines {
			if err != nil {
				yield(nil, err)
				return
			}
			layout := layouts[line.Path]
			if layout == nil {
				layout = &iisLayout{fields: defaultIISFields}
				layouts[line.Path] = layout
			}

			if strings.HasPrefix(line.Text, "#") {
				layout.directive(line.Text)
				continue
			}
			e, ok := layout.parse(line.Text)
			if !ok {
				p.logger.Debug("skipping malformed iis line", "file", line.Path, "line", line.Number)
				continue
			}
			e.File = line.Path
			e.Line = line.Number
			if p.enrich != nil {
				p.enrich.EnrichIIS(ctx, e)
			}
			if !yield(e, nil) {
				return
			}
		}
	}
}

func (l *iisLayout) directive(text string) {
	name, value, ok := strings.Cut(text[1:], ":")
	if !ok {
		return
	}
	value = strings.TrimSpace(value)
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "fields":
		l.fields = strings.Fields(value)
	case "date":
		if d, _, ok := strings.Cut(value, " "); ok {
			l.date = d
		} else {
			l.date = value
		}
	}
}

func (l *iisLayout) parse(text string) (*record.IISEntry, bool) {
	values := strings.Fields(text)
	if len(values) != len(l.fields) {
		return nil, false
	}
	e := &record.IISEntry{ServerPort: -1, Status: -1, SubStatus: -1, Win32Status: -1, TimeTaken: -1}
	date, clock := l.date, ""
	for i, name := range l.fields {
		v := values[i]
		if v == "-" {
			continue
		}
		switch strings.ToLower(name) {
		case "date":
			date = v
		case "time":
			clock = v
		default:
			if set := iisColumns[strings.ToLower(name)]; set != nil {
				set(e, v)
			}
		}
	}
	if date != "" && clock != "" {
		ts, err := time.Parse("2006-01-02 15:04:05", date+" "+clock)
		if err != nil {
			return nil, false
		}
		e.Timestamp = ts
	}
	return e, true
}

// atoi returns -1 for values that are not integers.
func atoi(v string) int {
	n, err := strconv.Atoi(v)
	if err != nil {
		return -1
	}
	return n
}
