package cli

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"github.com/spf13/cobra"

	"logsift/internal/config"
	"logsift/internal/home"
	"logsift/internal/logging"
	"logsift/internal/record"
	"logsift/internal/source"
)

const appLog = `2024-06-01 10:00:00 INFO [api] started
2024-06-01 10:00:01 ERROR [db] connection lost
   at Db.Connect()
2024-06-01 10:00:02 WARN [api] slow request
`

// execute runs the command tree with args and captures its output.
func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	root := &cobra.Command{Use: "logsift", SilenceUsage: true, SilenceErrors: true}
	AddCommands(root, &App{
		Logger: logging.Discard(),
		Opener: source.NewOpener(source.RemoteConfig{}, nil),
	})
	var stdout, stderr bytes.Buffer
	root.SetOut(&stdout)
	root.SetErr(&stderr)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), err
}

func writeFile(t *testing.T, path, content string) string {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

// jsonLines decodes newline-delimited JSON objects.
func jsonLines(t *testing.T, out string) []map[string]any {
	t.Helper()
	var rows []map[string]any
	sc := bufio.NewScanner(strings.NewReader(out))
	for sc.Scan() {
		if strings.TrimSpace(sc.Text()) == "" {
			continue
		}
		var m map[string]any
		if err := json.Unmarshal(sc.Bytes(), &m); err != nil {
			t.Fatalf("line %q: %v", sc.Text(), err)
		}
		rows = append(rows, m)
	}
	return rows
}

func TestFilterText(t *testing.T) {
	path := writeFile(t, filepath.Join(t.TempDir(), "app.log"), appLog)

	out, _, err := execute(t, "filter", "-o", "json",
		"--where", "Level atleast warn",
		"--columns", "Level,Source,Message,Line",
		path)
	if err != nil {
		t.Fatal(err)
	}
	rows := jsonLines(t, out)
	if len(rows) != 2 {
		t.Fatalf("got %d records: %s", len(rows), out)
	}
	if rows[0]["Level"] != "ERROR" || rows[0]["Source"] != "db" || rows[0]["Message"] != "connection lost" {
		t.Errorf("first record = %v", rows[0])
	}
	if rows[0]["Line"] != float64(2) {
		t.Errorf("Line = %v", rows[0]["Line"])
	}
	if rows[1]["Level"] != "WARN" {
		t.Errorf("second record = %v", rows[1])
	}
}

func TestFilterTable(t *testing.T) {
	path := writeFile(t, filepath.Join(t.TempDir(), "app.log"), appLog)

	out, _, err := execute(t, "filter", "--where", "Source equals API", "--mode", "or", path)
	if err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) != 3 {
		t.Fatalf("want header + 2 rows, got %q", out)
	}
	if !strings.HasPrefix(lines[0], "Timestamp") || !strings.Contains(lines[2], "slow request") {
		t.Errorf("unexpected table:\n%s", out)
	}
}

func TestFilterValidationErrors(t *testing.T) {
	path := writeFile(t, filepath.Join(t.TempDir(), "app.log"), appLog)

	out, stderr, err := execute(t, "filter",
		"--where", "Nope equals x",
		"--where", "Level atleast loud",
		path)
	if !errors.Is(err, errInvalidFilter) || !Reported(err) {
		t.Fatalf("err = %v", err)
	}
	if out != "" {
		t.Errorf("records printed for an invalid filter: %q", out)
	}
	for _, want := range []string{"2 problems", "1. Nope equals", "2. Level atleast"} {
		if !strings.Contains(stderr, want) {
			t.Errorf("stderr missing %q:\n%s", want, stderr)
		}
	}
}

func TestFilterReportsEveryProblem(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, filepath.Join(dir, "app.log"), appLog)
	if _, _, err := execute(t, "preset", "save", "errors", "--where", "Level equals error", "--home", dir); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name string
		args []string
		want []string
	}{
		{
			name: "unparsable value and unknown field",
			args: []string{"--kind", "iis", "--where", "Status greaterthan abc", "--where", "Nonexistent equals x"},
			want: []string{"2 problems", "1. Status greaterthan:", "not a number", "2. Nonexistent equals:"},
		},
		{
			name: "missing operator",
			args: []string{"--where", "Level", "--where", "Timestamp after yesterday"},
			want: []string{"2 problems", "1. Level:", "2. Timestamp after:", "not a recognized time"},
		},
		{
			name: "numbered after preset criteria",
			args: []string{"--preset", "errors", "--home", dir, "--where", "Line greaterthan many"},
			want: []string{"1 problem", "2. Line greaterthan:"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args := append([]string{"filter"}, tt.args...)
			out, stderr, err := execute(t, append(args, path)...)
			if !errors.Is(err, errInvalidFilter) {
				t.Fatalf("err = %v", err)
			}
			if out != "" {
				t.Errorf("records printed for an invalid filter: %q", out)
			}
			for _, want := range tt.want {
				if !strings.Contains(stderr, want) {
					t.Errorf("stderr missing %q:\n%s", want, stderr)
				}
			}
		})
	}
}

func TestFilterStatsAndLimit(t *testing.T) {
	path := writeFile(t, filepath.Join(t.TempDir(), "app.log"), appLog)

	out, _, err := execute(t, "filter", "-q", "--stats", "--buckets", "5", "-o", "json", path)
	if err != nil {
		t.Fatal(err)
	}
	var got struct {
		Summary summaryView `json:"summary"`
	}
	if err := json.Unmarshal([]byte(out), &got); err != nil {
		t.Fatalf("%v: %s", err, out)
	}
	s := got.Summary
	if s.Records != 3 || s.Levels["ERROR"] != 1 || s.Levels["INFO"] != 1 {
		t.Errorf("summary = %+v", s)
	}
	if len(s.Buckets) != 5 {
		t.Errorf("buckets = %d", len(s.Buckets))
	}

	out, _, err = execute(t, "filter", "-o", "json", "-n", "1", path)
	if err != nil {
		t.Fatal(err)
	}
	if rows := jsonLines(t, out); len(rows) != 1 {
		t.Errorf("limit 1 printed %d records", len(rows))
	}
}

func TestFilterMissingInput(t *testing.T) {
	_, _, err := execute(t, "filter", filepath.Join(t.TempDir(), "*.log"))
	if !errors.Is(err, errNoInput) {
		t.Errorf("err = %v", err)
	}
}

func TestFilterIIS(t *testing.T) {
	const iis = `#Software: Microsoft Internet Information Services 10.0
#Fields: date time s-ip cs-method cs-uri-stem cs-uri-query s-port cs-username c-ip cs(User-Agent) cs(Referer) sc-status sc-substatus sc-win32-status time-taken
2024-06-01 10:00:00 10.0.0.1 GET /index.html - 443 - 8.8.8.8 Mozilla/5.0+(Windows+NT+10.0;+Win64;+x64)+AppleWebKit/537.36+(KHTML,+like+Gecko)+Chrome/120.0.0.0+Safari/537.36 - 200 0 0 15
2024-06-01 10:00:01 10.0.0.1 POST /api/orders - 443 - 1.1.1.1 curl/8.0 - 503 0 0 900
`
	dir := t.TempDir()
	path := writeFile(t, filepath.Join(dir, "logs", "u_ex240601.log"), iis)

	out, _, err := execute(t, "filter", "--home", dir, "-k", "iis", "-o", "json",
		"--where", "Browser equals chrome",
		"--columns", "URIStem,Status,Browser",
		filepath.Join(dir, "logs"))
	if err != nil {
		t.Fatal(err)
	}
	rows := jsonLines(t, out)
	if len(rows) != 1 || rows[0]["URIStem"] != "/index.html" || rows[0]["Status"] != float64(200) {
		t.Errorf("rows = %v (input %s)", rows, path)
	}
}

func TestFilterRabbitDirectory(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "msg-a.json"), `{"messageId":"a","sentTime":"2024-06-01T10:00:00Z","messageType":["urn:message:Orders:Created"],"message":{"processUId":"p1"},"host":{"machineName":"rabbit-1"}}`)
	writeFile(t, filepath.Join(dir, "msg-a-headers+properties.json"), `{"headers":{"MT-Fault-Message":"boom"}}`)
	writeFile(t, filepath.Join(dir, "msg-b.json"), `{"messageId":"b","sentTime":"2024-06-01T10:00:05Z","message":{}}`)

	out, _, err := execute(t, "filter", "-k", "rabbit", "-o", "json",
		"--where", "Level equals error",
		"--columns", "MessageID,Node,FaultMessage",
		dir)
	if err != nil {
		t.Fatal(err)
	}
	rows := jsonLines(t, out)
	if len(rows) != 1 || rows[0]["MessageID"] != "a" || rows[0]["FaultMessage"] != "boom" || rows[0]["Node"] != "rabbit-1" {
		t.Errorf("rows = %v", rows)
	}

	out, _, err = execute(t, "rabbit", "scan", "-o", "json", dir)
	if err != nil {
		t.Fatal(err)
	}
	var pairs []map[string]any
	if err := json.Unmarshal([]byte(out), &pairs); err != nil {
		t.Fatal(err)
	}
	if len(pairs) != 2 || pairs[0]["status"] != "complete" || pairs[1]["status"] != "partial" {
		t.Errorf("pairs = %v", pairs)
	}
}

func TestPresetLifecycle(t *testing.T) {
	for _, storeType := range []string{"json", "sqlite"} {
		t.Run(storeType, func(t *testing.T) {
			dir := t.TempDir()
			path := writeFile(t, filepath.Join(dir, "app.log"), appLog)
			flags := []string{"--home", dir, "--config-type", storeType}
			run := func(args ...string) string {
				t.Helper()
				out, stderr, err := execute(t, append(args, flags...)...)
				if err != nil {
					t.Fatalf("%v: %v\n%s", args, err, stderr)
				}
				return out
			}

			run("preset", "save", "errors", "--where", "Level atleast error", "--description", "only failures")
			run("preset", "save", "Errors", "--where", "Level equals error")

			var presets []config.Preset
			if err := json.Unmarshal([]byte(run("preset", "list", "-o", "json")), &presets); err != nil {
				t.Fatal(err)
			}
			if len(presets) != 1 || presets[0].Name != "Errors" || presets[0].Criteria[0].Operator != "equals" {
				t.Fatalf("presets = %+v", presets)
			}

			rows := jsonLines(t, run("filter", "--preset", "errors", "-o", "json", "--columns", "Message", path))
			if len(rows) != 1 || rows[0]["Message"] != "connection lost" {
				t.Errorf("preset filter rows = %v", rows)
			}

			run("preset", "delete", "errors")
			if out := run("preset", "list", "-o", "json"); strings.TrimSpace(out) != "[]" && strings.TrimSpace(out) != "null" {
				t.Errorf("after delete: %s", out)
			}
		})
	}
}

func TestPresetSaveRejectsInvalid(t *testing.T) {
	_, stderr, err := execute(t, "preset", "save", "bad", "--config-type", "memory", "--where", "Level atleast loud")
	if !errors.Is(err, errInvalidFilter) || !strings.Contains(stderr, "1 problem") {
		t.Errorf("err = %v, stderr = %q", err, stderr)
	}
}

func TestPresetKindMismatch(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, filepath.Join(dir, "app.log"), appLog)
	if _, _, err := execute(t, "preset", "save", "slow", "-k", "iis", "--where", "TimeTaken greaterthan 500", "--home", dir); err != nil {
		t.Fatal(err)
	}
	_, _, err := execute(t, "filter", "-k", "log", "--preset", "slow", "--home", dir, path)
	if err == nil || !strings.Contains(err.Error(), "iis records") {
		t.Errorf("err = %v", err)
	}
}

func TestFieldsCommand(t *testing.T) {
	out, _, err := execute(t, "fields", "-k", "iis", "-o", "json")
	if err != nil {
		t.Fatal(err)
	}
	var views []fieldView
	if err := json.Unmarshal([]byte(out), &views); err != nil {
		t.Fatal(err)
	}
	var status *fieldView
	for i := range views {
		if views[i].Name == "Status" {
			status = &views[i]
		}
	}
	if status == nil || status.Type != record.FieldNumber.String() {
		t.Fatalf("Status field = %+v", status)
	}
	if !strings.Contains(strings.Join(status.Operators, ","), "greaterthan") {
		t.Errorf("operators = %v", status.Operators)
	}
}

func TestOpenPresetStore(t *testing.T) {
	hd := home.New(filepath.Join(t.TempDir(), "nested", "home"))
	for _, typ := range []string{"memory", "json", "sqlite"} {
		store, closer, err := openPresetStore(hd, typ)
		if err != nil {
			t.Fatalf("%s: %v", typ, err)
		}
		if _, err := store.ListPresets(context.Background()); err != nil {
			t.Errorf("%s list: %v", typ, err)
		}
		if err := closer.Close(); err != nil {
			t.Errorf("%s close: %v", typ, err)
		}
	}
	if _, _, err := openPresetStore(hd, "yaml"); err == nil {
		t.Error("expected error for unknown store type")
	}
}

func TestHelpers(t *testing.T) {
	for status, want := range map[int]record.Level{
		200: record.LevelInfo,
		404: record.LevelWarn,
		503: record.LevelError,
		-1:  record.LevelUnknown,
	} {
		if got := statusLevel(status); got != want {
			t.Errorf("statusLevel(%d) = %v", status, got)
		}
	}
	if got := bar(5, 10); got != strings.Repeat("#", barWidth/2) {
		t.Errorf("bar(5, 10) = %q", got)
	}
	if got := bar(1, 1000); got != "#" {
		t.Errorf("bar(1, 1000) = %q", got)
	}
	if got := oneLine("first\nsecond"); got != "first …" {
		t.Errorf("oneLine = %q", got)
	}
	if _, err := newPrinter(nil, "yaml"); err == nil {
		t.Error("expected error for unknown format")
	}
}

func TestLookupUserAgent(t *testing.T) {
	const chrome = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

	out, _, err := execute(t, "lookup", "ua", "-o", "json", chrome)
	if err != nil {
		t.Fatal(err)
	}
	var got map[string]string
	if err := json.Unmarshal([]byte(out), &got); err != nil {
		t.Fatalf("decode %q: %v", out, err)
	}
	if got["browser"] != "Chrome" || got["os"] != "Windows" {
		t.Errorf("lookup ua = %v", got)
	}

	if _, _, err := execute(t, "lookup", "ua", ""); err == nil {
		t.Error("expected error for empty agent")
	}
}

func TestLoggingFlags(t *testing.T) {
	tests := []struct {
		name      string
		args      []string
		wantDef   slog.Level
		wantDebug []string
		wantErr   bool
	}{
		{name: "defaults", wantDef: slog.LevelInfo},
		{name: "raised default", args: []string{"--log-level", "warn"}, wantDef: slog.LevelWarn},
		{
			name:      "debug components",
			args:      []string{"--log-level", "error", "--debug-component", "filter,source", "--debug-component", "rabbit-detector"},
			wantDef:   slog.LevelError,
			wantDebug: []string{"filter", "source", "rabbit-detector"},
		},
		{name: "bad level", args: []string{"--log-level", "loud"}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var logs bytes.Buffer
			levels := logging.NewComponentFilterHandler(slog.NewTextHandler(&logs, &slog.HandlerOptions{Level: slog.LevelDebug}), slog.LevelInfo)
			logger := slog.New(levels)

			root := &cobra.Command{Use: "logsift", SilenceUsage: true, SilenceErrors: true}
			AddCommands(root, &App{Logger: logger, Levels: levels, Opener: source.NewOpener(source.RemoteConfig{}, logger)})
			root.SetOut(&bytes.Buffer{})
			root.SetErr(&bytes.Buffer{})
			root.SetArgs(append([]string{"fields"}, tt.args...))

			err := root.ExecuteContext(context.Background())
			if tt.wantErr {
				if err == nil || !strings.Contains(err.Error(), "--log-level") {
					t.Fatalf("err = %v", err)
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if levels.DefaultLevel() != tt.wantDef {
				t.Errorf("default level = %v, want %v", levels.DefaultLevel(), tt.wantDef)
			}
			for _, c := range tt.wantDebug {
				if levels.Level(c) != slog.LevelDebug {
					t.Errorf("component %s at %v", c, levels.Level(c))
				}
			}
			if len(tt.wantDebug) == 0 && levels.Level("filter") != tt.wantDef {
				t.Errorf("filter level = %v without an override", levels.Level("filter"))
			}

			// A lowered component logs debug; others stay at the default.
			logger.With("component", "filter").Debug("filter detail")
			logger.With("component", "parser").Debug("parser detail")
			out := logs.String()
			if got := strings.Contains(out, "filter detail"); got != slices.Contains(tt.wantDebug, "filter") {
				t.Errorf("filter debug logged = %v:\n%s", got, out)
			}
			if strings.Contains(out, "parser detail") {
				t.Errorf("parser debug leaked:\n%s", out)
			}
		})
	}
}
