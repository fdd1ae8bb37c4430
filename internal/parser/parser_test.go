package parser

import (
	"context"
	"errors"
	"iter"
	"strings"
	"testing"
	"time"

	"logsift/internal/record"
	"logsift/internal/source"
)

func linesOf(text string) Lines {
	return source.Lines(context.Background(), "test.log", strings.NewReader(text))
}

func collect[R any](t *testing.T, seq iter.Seq2[R, error]) []R {
	t.Helper()
	var out []R
	for r, err := range seq {
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		out = append(out, r)
	}
	return out
}

func TestLeadingTimestamp(t *testing.T) {
	defer func(orig func() time.Time) { now = orig }(now)
	now = func() time.Time { return time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC) }

	tests := []struct {
		in   string
		want time.Time
		n    int
	}{
		{"2024-01-15T10:30:45.123Z rest", time.Date(2024, 1, 15, 10, 30, 45, 123e6, time.UTC), 24},
		{"2024-01-15 10:30:45,5+01:00 rest", time.Date(2024, 1, 15, 9, 30, 45, 5e8, time.UTC), 27},
		{"2024-01-15 10:30:45-0200 rest", time.Date(2024, 1, 15, 12, 30, 45, 0, time.UTC), 24},
		{"2024-01-15 10:30:45 rest", time.Date(2024, 1, 15, 10, 30, 45, 0, time.UTC), 19},
		{"2024/01/15 10:30:45 rest", time.Date(2024, 1, 15, 10, 30, 45, 0, time.UTC), 19},
		{"[15/Jan/2024:10:30:45 +0000] rest", time.Date(2024, 1, 15, 10, 30, 45, 0, time.UTC), 28},
		{"[2024-01-15 10:30:45] rest", time.Date(2024, 1, 15, 10, 30, 45, 0, time.UTC), 21},
		{"Mon Jan 15 10:30:45 2024 rest", time.Date(2024, 1, 15, 10, 30, 45, 0, time.UTC), 24},
		{"Mon Jan 15 10:30:45.250 2024", time.Date(2024, 1, 15, 10, 30, 45, 250e6, time.UTC), 28},
		{"Jan  5 15:04:02 host", time.Date(2024, 1, 5, 15, 4, 2, 0, time.UTC), 15},
		{"Dec 31 23:59:59 host", time.Date(2023, 12, 31, 23, 59, 59, 0, time.UTC), 15},
		{"hello world", time.Time{}, 0},
		{"2024-13-45 10:30:45", time.Time{}, 0},
		{"[not a stamp]", time.Time{}, 0},
	}
	for _, tt := range tests {
		got, n := leadingTimestamp(tt.in)
		if n != tt.n || !got.Equal(tt.want) {
			t.Errorf("leadingTimestamp(%q) = %v, %d; want %v, %d", tt.in, got, n, tt.want, tt.n)
		}
	}
}

func TestTextParser(t *testing.T) {
	input := strings.Join([]string{
		"2024-01-15 10:30:45,123 ERROR [Worker] Job failed",
		"System.InvalidOperationException: boom",
		"   at Foo.Bar()",
		"2024-01-15 10:30:46 INFO started",
		"2024-01-15T10:30:47Z [WARN ] [db] - slow query",
	}, "\n")

	got := collect(t, New(nil).Text(linesOf(input)))
	if len(got) != 3 {
		t.Fatalf("got %d entries, want 3", len(got))
	}

	first := got[0]
	if !first.Timestamp.Equal(time.Date(2024, 1, 15, 10, 30, 45, 123e6, time.UTC)) ||
		first.Level != record.LevelError || first.Source != "Worker" || first.Message != "Job failed" ||
		first.Line != 1 || first.File != "test.log" {
		t.Errorf("first = %+v", first)
	}
	if want := "System.InvalidOperationException: boom\n   at Foo.Bar()"; first.StackTrace != want {
		t.Errorf("StackTrace = %q, want %q", first.StackTrace, want)
	}
	if got[1].Level != record.LevelInfo || got[1].Message != "started" || got[1].Line != 4 || got[1].StackTrace != "" {
		t.Errorf("second = %+v", got[1])
	}
	if got[2].Level != record.LevelWarn || got[2].Source != "db" || got[2].Message != "slow query" {
		t.Errorf("third = %+v", got[2])
	}
}

func TestTextParserUnstamped(t *testing.T) {
	input := "level=error something broke\nplain message\n    indented continuation\n"
	got := collect(t, New(nil).Text(linesOf(input)))
	if len(got) != 2 {
		t.Fatalf("got %d entries, want 2", len(got))
	}
	if got[0].Level != record.LevelError || got[0].Message != "level=error something broke" {
		t.Errorf("first = %+v", got[0])
	}
	if got[1].Level != record.LevelUnknown || got[1].Message != "plain message" ||
		got[1].StackTrace != "    indented continuation" {
		t.Errorf("second = %+v", got[1])
	}
}

func TestTextParserUpstreamError(t *testing.T) {
	boom := errors.New("read failed")
	lines := func(yield func(source.Line, error) bool) {
		if !yield(source.Line{Path: "x", Number: 1, Text: "2024-01-15 10:30:45 INFO one"}, nil) {
			return
		}
		yield(source.Line{}, boom)
	}

	var entries int
	var gotErr error
	for e, err := range New(nil).Text(lines) {
		if err != nil {
			gotErr = err
			break
		}
		if e.Message != "one" {
			t.Errorf("entry = %+v", e)
		}
		entries++
	}
	if entries != 1 || !errors.Is(gotErr, boom) {
		t.Errorf("entries = %d, err = %v", entries, gotErr)
	}
}

type countryEnricher struct{ calls int }

func (c *countryEnricher) EnrichIIS(_ context.Context, e *record.IISEntry) {
	c.calls++
	if e.ClientIP == "8.8.8.8" {
		e.Country = "US"
	}
}

func TestIISParser(t *testing.T) {
	input := strings.Join([]string{
		"#Software: Microsoft Internet Information Services 10.0",
		"#Version: 1.0",
		"#Date: 2024-01-15 00:00:00",
		"#Fields: date time s-ip cs-method cs-uri-stem cs-uri-query s-port cs-username c-ip cs(User-Agent) cs(Referer) sc-status sc-substatus sc-win32-status time-taken",
		"2024-01-15 10:00:00 10.0.0.5 GET /api/orders id=7 443 - 8.8.8.8 Mozilla/5.0+(Windows+NT+10.0) - 500 0 0 125",
		"2024-01-15 10:00:01 10.0.0.5 POST /login - 443 alice 1.1.1.1 - https://x/ 200 0 0 15",
		"broken line",
		"#Fields: time c-ip sc-status",
		"10:00:02 9.9.9.9 404",
	}, "\n")

	enricher := &countryEnricher{}
	got := collect(t, New(nil, WithEnricher(enricher)).IIS(context.Background(), linesOf(input)))
	if len(got) != 3 {
		t.Fatalf("got %d entries, want 3", len(got))
	}
	if enricher.calls != 3 {
		t.Errorf("enricher called %d times", enricher.calls)
	}

	a := got[0]
	if !a.Timestamp.Equal(time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC)) || a.Method != "GET" ||
		a.URIStem != "/api/orders" || a.URIQuery != "id=7" || a.ServerPort != 443 || a.UserName != "" ||
		a.UserAgent != "Mozilla/5.0 (Windows NT 10.0)" || a.Referer != "" || a.Status != 500 ||
		a.TimeTaken != 125 || a.Country != "US" || a.Line != 5 {
		t.Errorf("first = %+v", a)
	}

	b := got[1]
	if b.URIQuery != "" || b.UserName != "alice" || b.UserAgent != "" || b.Referer != "https://x/" ||
		b.Status != 200 || b.Country != "" {
		t.Errorf("second = %+v", b)
	}

	c := got[2]
	if !c.Timestamp.Equal(time.Date(2024, 1, 15, 10, 0, 2, 0, time.UTC)) || c.ClientIP != "9.9.9.9" ||
		c.Status != 404 || c.ServerPort != -1 || c.TimeTaken != -1 || c.SubStatus != -1 || c.Line != 9 {
		t.Errorf("third = %+v", c)
	}
}

func TestIISDefaultFields(t *testing.T) {
	line := "2024-01-15 10:00:00 10.0.0.5 GET / - 80 - 10.0.0.9 - - 304 0 0 x"
	got := collect(t, New(nil).IIS(context.Background(), linesOf(line)))
	if len(got) != 1 {
		t.Fatalf("got %d entries", len(got))
	}
	if got[0].Status != 304 || got[0].ServerPort != 80 || got[0].TimeTaken != -1 {
		t.Errorf("entry = %+v", got[0])
	}
}

func TestRabbitJSONParser(t *testing.T) {
	input := strings.Join([]string{
		`{"messageId":"a1","messageType":["urn:message:Orders:Placed"],"sentTime":"2024-01-15T10:00:00Z","message":{"message":"order placed"}}`,
		`not json`,
		`{"messageId":"a2","headers":{"MT-Fault-Message":"boom"}}`,
	}, "\n")

	got := collect(t, New(nil).RabbitJSON(linesOf(input)))
	if len(got) != 2 {
		t.Fatalf("got %d entries, want 2", len(got))
	}
	a := got[0]
	if a.MessageID != "a1" || a.MessageType != "urn:message:Orders:Placed" || a.Message != "order placed" ||
		a.Level != record.LevelInfo || !a.Timestamp.Equal(time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC)) ||
		a.File != "test.log" {
		t.Errorf("first = %+v", a)
	}
	b := got[1]
	if b.MessageID != "a2" || b.Level != record.LevelError || b.FaultMessage != "boom" ||
		b.Message != "boom" || !b.Timestamp.IsZero() {
		t.Errorf("second = %+v", b)
	}
}
