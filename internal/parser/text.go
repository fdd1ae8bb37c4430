package parser

import (
	"iter"
	"strings"

	"logsift/internal/record"
)

// Text parses free-form application logs. A line starts a new entry
// when it begins with a timestamp, or when the stream has no timestamps
// at all. The layout after the timestamp is
//
//	[LEVEL] [source] message
//
// where the level may be bare or bracketed and the source is bracketed.
// Without a level token the level is extracted from the whole line
// (syslog priority, level=..., "level":...). Lines that do not start an
// entry (indented, "at ...", "Caused by: ...", or any unstamped line
// following a stamped entry) are appended to the previous entry's
// StackTrace.
//
// An entry is emitted when the next one starts or the input ends, so a
// followed file holds its newest entry until another line arrives.
func (p *Parser) Text(lines Lines) iter.Seq2[*record.LogEntry, error] {
	return func(yield func(*record.LogEntry, error) bool) {
		var pending *record.LogEntry
		var trace []string
		flush := func() bool {
			if pending == nil {
				return true
			}
			if len(trace) > 0 {
				pending.StackTrace = strings.Join(trace, "\n")
			}
			e := pending
			pending, trace = nil, nil
			return yield(e, nil)
		}

		for line, err := range lines {
			if err != nil {
				if flush() {
					yield(nil, err)
				}
				return
			}
			if pending != nil && isContinuation(line.Text, !pending.Timestamp.IsZero()) {
				trace = append(trace, line.Text)
				continue
			}
			if !flush() {
				return
			}
			pending = parseTextLine(line.Text)
			pending.File = line.Path
			pending.Line = line.Number
		}
		flush()
	}
}

// isContinuation reports whether text belongs to the previous entry.
func isContinuation(text string, stamped bool) bool {
	if text[0] == ' ' || text[0] == '\t' {
		return true
	}
	if strings.HasPrefix(text, "at ") || strings.HasPrefix(text, "Caused by") ||
		strings.HasPrefix(text, "--- End of") || strings.HasPrefix(text, "...") {
		return true
	}
	if !stamped {
		return false
	}
	_, n := leadingTimestamp(text)
	return n == 0
}

func parseTextLine(text string) *record.LogEntry {
	e := &record.LogEntry{}
	ts, n := leadingTimestamp(text)
	e.Timestamp = ts
	rest := strings.TrimLeft(text[n:], " \t")

	tok, after := nextToken(rest)
	if lvl, ok := record.ParseLevel(strings.Trim(tok, "[]:|")); ok {
		e.Level = lvl
		rest = after
	} else {
		e.Level = record.ExtractLevel([]byte(text))
	}

	if strings.HasPrefix(rest, "[") {
		if end := strings.IndexByte(rest, ']'); end > 1 {
			e.Source = strings.TrimSpace(rest[1:end])
			rest = strings.TrimLeft(rest[end+1:], " \t")
		}
	}
	for _, sep := range []string{"- ", ": ", "| "} {
		if strings.HasPrefix(rest, sep) {
			rest = rest[len(sep):]
			break
		}
	}
	e.Message = strings.TrimSpace(rest)
	return e
}

// nextToken splits off the first token. A token starting with "[" runs
// to the closing bracket so that "[INFO ]" stays whole.
func nextToken(s string) (tok, rest string) {
	if strings.HasPrefix(s, "[") {
		if end := strings.IndexByte(s, ']'); end > 0 {
			return s[:end+1], strings.TrimLeft(s[end+1:], " \t")
		}
	}
	if i := strings.IndexAny(s, " \t"); i >= 0 {
		return s[:i], strings.TrimLeft(s[i:], " \t")
	}
	return s, ""
}
