package parser

import (
	"strings"
	"time"
)

// now is replaceable in tests; syslog stamps carry no year.
var now = time.Now

// leadingTimestamp parses a timestamp at the very start of s and returns
// it with the number of bytes consumed. Recognized forms:
//
//	2024-01-15T10:30:45.123Z           RFC 3339 / ISO 8601
//	2024-01-15 10:30:45,123 +0100      log4net / logback style
//	2024/01/15 10:30:45                Go log / Ruby
//	[15/Jan/2024:10:30:45 +0000]       Common Log Format
//	[2024-01-15 10:30:45]              any of the above in brackets
//	Jan  5 15:04:02                    BSD syslog (current year)
//	Mon Jan 15 10:30:45 2024           ctime
func leadingTimestamp(s string) (time.Time, int) {
	if strings.HasPrefix(s, "[") {
		if ts, ok := parseCLF(s); ok {
			return ts, strings.IndexByte(s, ']') + 1
		}
		if ts, n := leadingTimestamp(s[1:]); n > 0 && 1+n < len(s) && s[1+n] == ']' {
			return ts, n + 2
		}
		return time.Time{}, 0
	}
	if ts, n := parseISO(s); n > 0 {
		return ts, n
	}
	if ts, n := parseSyslog(s); n > 0 {
		return ts, n
	}
	if ts, n := parseCtime(s); n > 0 {
		return ts, n
	}
	return time.Time{}, 0
}

// parseISO handles YYYY-MM-DD and YYYY/MM/DD dates with a T or space
// separator, optional fraction ("." or ",") and optional zone.
func parseISO(s string) (time.Time, int) {
	if len(s) < 19 || !digits(s, 0, 4) || !digits(s, 5, 2) || !digits(s, 8, 2) ||
		!digits(s, 11, 2) || !digits(s, 14, 2) || !digits(s, 17, 2) ||
		s[13] != ':' || s[16] != ':' || (s[10] != 'T' && s[10] != ' ') {
		return time.Time{}, 0
	}
	dateSep := s[4]
	if (dateSep != '-' && dateSep != '/') || s[7] != dateSep {
		return time.Time{}, 0
	}

	end := 19
	if end < len(s) && (s[end] == '.' || s[end] == ',') && end+1 < len(s) && isDigit(s[end+1]) {
		end++
		for end < len(s) && isDigit(s[end]) {
			end++
		}
	}
	zone := end
	switch {
	case end < len(s) && s[end] == 'Z':
		end++
	case end+6 <= len(s) && (s[end] == '+' || s[end] == '-') && digits(s, end+1, 2) && s[end+3] == ':' && digits(s, end+4, 2):
		end += 6
	case end+5 <= len(s) && (s[end] == '+' || s[end] == '-') && digits(s, end+1, 4):
		end += 5
	}

	b := []byte(s[:end])
	b[4], b[7], b[10] = '-', '-', ' '
	if zone > 19 {
		b[19] = '.'
	}
	text := string(b)
	for _, layout := range []string{"2006-01-02 15:04:05Z07:00", "2006-01-02 15:04:05Z0700", "2006-01-02 15:04:05"} {
		if ts, err := time.Parse(layout, text); err == nil {
			return ts, end
		}
	}
	return time.Time{}, 0
}

func parseCLF(s string) (time.Time, bool) {
	end := strings.IndexByte(s, ']')
	if end < 0 || end > 32 {
		return time.Time{}, false
	}
	ts, err := time.Parse("02/Jan/2006:15:04:05 -0700", s[1:end])
	return ts, err == nil
}

// parseSyslog handles "Jan  2 15:04:05" and "Jan 02 15:04:05".
func parseSyslog(s string) (time.Time, int) {
	if len(s) < 15 || s[3] != ' ' || s[6] != ' ' || s[9] != ':' || s[12] != ':' {
		return time.Time{}, 0
	}
	for _, layout := range []string{"Jan  2 15:04:05", "Jan 02 15:04:05"} {
		if ts, err := time.Parse(layout, s[:15]); err == nil {
			return withCurrentYear(ts), 15
		}
	}
	return time.Time{}, 0
}

// parseCtime handles "Mon Jan  2 15:04:05 2006" with optional fraction
// and optional year.
func parseCtime(s string) (time.Time, int) {
	if len(s) < 19 || s[3] != ' ' {
		return time.Time{}, 0
	}
	if _, err := time.Parse("Mon", s[:3]); err != nil {
		return time.Time{}, 0
	}
	ts, n := parseSyslog(s[4:])
	if n == 0 {
		return time.Time{}, 0
	}
	rest := s[4+n:]
	end := 4 + n
	frac := 0
	if len(rest) > 1 && rest[0] == '.' && isDigit(rest[1]) {
		frac = 1
		for frac < len(rest) && isDigit(rest[frac]) {
			frac++
		}
		if d, err := time.ParseDuration("0" + rest[:frac] + "s"); err == nil {
			ts = ts.Add(d)
		}
		end += frac
		rest = rest[frac:]
	}
	if len(rest) >= 5 && rest[0] == ' ' && digits(rest, 1, 4) {
		year, _ := time.Parse("2006", rest[1:5])
		ts = time.Date(year.Year(), ts.Month(), ts.Day(), ts.Hour(), ts.Minute(), ts.Second(), ts.Nanosecond(), time.UTC)
		end += 5
	}
	return ts, end
}

// withCurrentYear places a yearless stamp in the current year, or the
// previous one when that would put it more than a day in the future.
func withCurrentYear(ts time.Time) time.Time {
	t := now()
	ts = ts.AddDate(t.Year(), 0, 0)
	if ts.After(t.Add(24 * time.Hour)) {
		ts = ts.AddDate(-1, 0, 0)
	}
	return ts
}

func digits(s string, at, n int) bool {
	if at+n > len(s) {
		return false
	}
	for i := at; i < at+n; i++ {
		if !isDigit(s[i]) {
			return false
		}
	}
	return true
}

func isDigit(b byte) bool { return b >= '0' && b <= '9' }
