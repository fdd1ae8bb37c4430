package logging

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"sync"
	"testing"
)

func TestDefaultAndDiscard(t *testing.T) {
	if Discard().Enabled(context.Background(), slog.LevelError) {
		t.Error("Discard logger reports errors as enabled")
	}
	if Default(nil).Enabled(context.Background(), slog.LevelError) {
		t.Error("Default(nil) is not a discard logger")
	}
	given := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
	if Default(given) != given {
		t.Error("Default replaced a non-nil logger")
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    slog.Level
		wantErr bool
	}{
		{"debug", slog.LevelDebug, false},
		{"INFO", slog.LevelInfo, false},
		{" warn ", slog.LevelWarn, false},
		{"error", slog.LevelError, false},
		{"info+2", slog.LevelInfo + 2, false},
		{"loud", 0, true},
	}
	for _, tt := range tests {
		got, err := ParseLevel(tt.in)
		if (err != nil) != tt.wantErr || (!tt.wantErr && got != tt.want) {
			t.Errorf("ParseLevel(%q) = %v, %v", tt.in, got, err)
		}
	}
}

// emitAll logs one debug and one warn line from each component the way
// logsift packages scope their loggers, plus one unscoped pair.
func emitAll(logger *slog.Logger) {
	for _, c := range []string{"filter", "source", "rabbit-detector"} {
		scoped := logger.With("component", c)
		scoped.Debug("debug from " + c)
		scoped.Warn("warn from " + c)
	}
	logger.Debug("debug unscoped")
	logger.Warn("warn unscoped")
}

func TestComponentLevels(t *testing.T) {
	tests := []struct {
		name      string
		def       slog.Level
		debug     []string
		cleared   []string
		wantLines []string
	}{
		{
			name: "default info hides debug",
			def:  slog.LevelInfo,
			wantLines: []string{
				"warn from filter", "warn from source", "warn from rabbit-detector", "warn unscoped",
			},
		},
		{
			name:  "one component lowered",
			def:   slog.LevelInfo,
			debug: []string{"rabbit-detector"},
			wantLines: []string{
				"warn from filter", "warn from source",
				"debug from rabbit-detector", "warn from rabbit-detector",
				"warn unscoped",
			},
		},
		{
			name:  "override outlives a raised default",
			def:   slog.LevelError,
			debug: []string{"source"},
			wantLines: []string{
				"debug from source", "warn from source",
			},
		},
		{
			name:    "cleared override falls back",
			def:     slog.LevelInfo,
			debug:   []string{"filter", "source"},
			cleared: []string{"filter", "never-set"},
			wantLines: []string{
				"warn from filter",
				"debug from source", "warn from source",
				"warn from rabbit-detector", "warn unscoped",
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			h := NewComponentFilterHandler(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}), slog.LevelInfo)
			// Loggers built before the levels change must follow them.
			logger := slog.New(h)

			h.SetDefaultLevel(tt.def)
			for _, c := range tt.debug {
				h.SetLevel(c, slog.LevelDebug)
			}
			for _, c := range tt.cleared {
				h.ClearLevel(c)
			}
			emitAll(logger)

			var got []string
			for line := range strings.Lines(buf.String()) {
				_, msg, _ := strings.Cut(line, `msg="`)
				msg, _, _ = strings.Cut(msg, `"`)
				got = append(got, msg)
			}
			if strings.Join(got, "|") != strings.Join(tt.wantLines, "|") {
				t.Errorf("got   %q\nwant %q", got, tt.wantLines)
			}
			if h.DefaultLevel() != tt.def {
				t.Errorf("DefaultLevel = %v, want %v", h.DefaultLevel(), tt.def)
			}
		})
	}
}

func TestComponentFromRecordAttribute(t *testing.T) {
	var buf bytes.Buffer
	h := NewComponentFilterHandler(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}), slog.LevelWarn)
	h.SetLevel("parser", slog.LevelDebug)
	logger := slog.New(h).WithGroup("run")

	// Enabled must admit debug so the record reaches Handle, where the
	// per-record component decides.
	logger.Debug("kept", "component", "parser")
	logger.Debug("dropped", "component", "filter")

	out := buf.String()
	if !strings.Contains(out, "kept") || strings.Contains(out, "dropped") {
		t.Errorf("output:\n%s", out)
	}
	if h.Level("parser") != slog.LevelDebug || h.Level("filter") != slog.LevelWarn {
		t.Errorf("Level = %v / %v", h.Level("parser"), h.Level("filter"))
	}
}

func TestComponentLevelsConcurrentChange(t *testing.T) {
	var (
		mu    sync.Mutex
		lines int
	)
	h := NewComponentFilterHandler(countingHandler{mu: &mu, n: &lines}, slog.LevelInfo)
	logger := slog.New(h).With("component", "source")

	var wg sync.WaitGroup
	for range 4 {
		wg.Go(func() {
			for range 200 {
				logger.Info("line")
			}
		})
		wg.Go(func() {
			for range 200 {
				h.SetLevel("source", slog.LevelDebug)
				h.ClearLevel("source")
				h.SetDefaultLevel(slog.LevelInfo)
			}
		})
	}
	wg.Wait()

	if lines != 800 {
		t.Errorf("got %d info lines, want 800", lines)
	}
}

type countingHandler struct {
	mu *sync.Mutex
	n  *int
}

func (c countingHandler) Enabled(context.Context, slog.Level) bool { return true }
func (c countingHandler) WithAttrs([]slog.Attr) slog.Handler      { return c }
func (c countingHandler) WithGroup(string) slog.Handler           { return c }

func (c countingHandler) Handle(context.Context, slog.Record) error {
	c.mu.Lock()
	*c.n++
	c.mu.Unlock()
	return nil
}
