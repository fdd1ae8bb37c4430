package record

import (
	"bytes"
	"strings"
)

// Level is a normalized severity. The zero value is LevelUnknown.
type Level int

const (
	LevelUnknown Level = iota
	LevelTrace
	LevelDebug
	LevelInfo
	LevelWarn
	LevelError
)

func (l Level) String() string {
	switch l {
	case LevelTrace:
		return "TRACE"
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	default:
		return ""
	}
}

// Severity returns an ordering key; higher is more severe.
func (l Level) Severity() int { return int(l) }

// Levels lists the known levels from least to most severe.
func Levels() []Level {
	return []Level{LevelTrace, LevelDebug, LevelInfo, LevelWarn, LevelError}
}

// ParseLevel maps a raw level string to a Level. It accepts the common
// aliases used by syslog, log4net, Serilog and friends.
func ParseLevel(s string) (Level, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "error", "err", "fatal", "critical", "emerg", "emergency", "alert", "crit", "eror", "ftl", "fatl":
		return LevelError, true
	case "warn", "warning", "wrn":
		return LevelWarn, true
	case "info", "notice", "informational", "inf", "information":
		return LevelInfo, true
	case "debug", "dbg", "dbug":
		return LevelDebug, true
	case "trace", "verbose", "vrb", "trc":
		return LevelTrace, true
	default:
		return LevelUnknown, false
	}
}

// ExtractLevel tries multiple strategies to find a severity level in raw:
//   - Syslog:      <priority> where severity = priority % 8
//   - KV format:   level=ERROR, severity=warn
//   - JSON format: "level":"error", "severity":"warn"
//   - Bracketed:   [ERROR], [warn]
//
// Returns LevelUnknown if nothing recognizable is found.
func ExtractLevel(raw []byte) Level {
	if lvl := extractSyslogPriority(raw); lvl != LevelUnknown {
		return lvl
	}
	for _, key := range [][]byte{[]byte("level"), []byte("severity")} {
		if lvl := findKeyValue(raw, key); lvl != LevelUnknown {
			return lvl
		}
	}
	return extractBracketed(raw)
}

// extractSyslogPriority parses <priority> at the start of a message.
func extractSyslogPriority(raw []byte) Level {
	if len(raw) < 3 || raw[0] != '<' {
		return LevelUnknown
	}

	i := 1
	for i < len(raw) && i < 5 && raw[i] >= '0' && raw[i] <= '9' {
		i++
	}
	if i == 1 || i >= len(raw) || raw[i] != '>' {
		return LevelUnknown
	}

	priority := 0
	for _, b := range raw[1:i] {
		priority = priority*10 + int(b-'0')
	}

	switch priority % 8 {
	case 0, 1, 2, 3: // emerg, alert, crit, err
		return LevelError
	case 4:
		return LevelWarn
	case 5, 6: // notice, info
		return LevelInfo
	default:
		return LevelDebug
	}
}

// findKeyValue searches for key=value or "key":"value" patterns.
func findKeyValue(raw, key []byte) Level {
	pos := 0
	for pos < len(raw) {
		idx := bytes.Index(raw[pos:], key)
		if idx < 0 {
			return LevelUnknown
		}
		idx += pos
		keyEnd := idx + len(key)

		// Must start at a word boundary.
		if idx > 0 && isWordChar(raw[idx-1]) {
			pos = keyEnd
			continue
		}

		rest := raw[keyEnd:]
		if len(rest) == 0 {
			return LevelUnknown
		}

		var val string
		switch {
		case rest[0] == '=':
			val = extractValueAfterSep(rest[1:])
		case rest[0] == '"' && len(rest) > 1 && rest[1] == ':':
			val = extractJSONValue(rest[2:])
		case rest[0] == ':':
			val = extractJSONValue(rest[1:])
		default:
			pos = keyEnd
			continue
		}

		if lvl, ok := ParseLevel(val); ok {
			return lvl
		}
		pos = keyEnd
	}
	return LevelUnknown
}

// extractBracketed looks for the first [LEVEL] token in the first 64 bytes.
func extractBracketed(raw []byte) Level {
	if len(raw) > 64 {
		raw = raw[:64]
	}
	for {
		open := bytes.IndexByte(raw, '[')
		if open < 0 {
			return LevelUnknown
		}
		closeIdx := bytes.IndexByte(raw[open+1:], ']')
		if closeIdx < 0 {
			return LevelUnknown
		}
		if lvl, ok := ParseLevel(string(raw[open+1 : open+1+closeIdx])); ok {
			return lvl
		}
		raw = raw[open+1+closeIdx+1:]
	}
}

func extractValueAfterSep(rest []byte) string {
	if len(rest) == 0 {
		return ""
	}
	if rest[0] == '"' || rest[0] == '\'' {
		quote := rest[0]
		end := bytes.IndexByte(rest[1:], quote)
		if end < 0 {
			return ""
		}
		return string(rest[1 : 1+end])
	}
	end := 0
	for end < len(rest) && !isDelimiter(rest[end]) {
		end++
	}
	return string(rest[:end])
}

func extractJSONValue(rest []byte) string {
	i := 0
	for i < len(rest) && (rest[i] == ' ' || rest[i] == '\t') {
		i++
	}
	if i >= len(rest) {
		return ""
	}
	if rest[i] == '"' || rest[i] == '\'' {
		quote := rest[i]
		end := bytes.IndexByte(rest[i+1:], quote)
		if end < 0 {
			return ""
		}
		return string(rest[i+1 : i+1+end])
	}
	start := i
	for i < len(rest) && !isDelimiter(rest[i]) {
		i++
	}
	return string(rest[start:i])
}

func isWordChar(b byte) bool {
	return (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z') || (b >= '0' && b <= '9') || b == '_'
}

func isDelimiter(b byte) bool {
	return b == ' ' || b == '\t' || b == ',' || b == ';' || b == '}' || b == ']' || b == '\n' || b == '\r'
}
