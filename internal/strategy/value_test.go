package strategy

import (
	"encoding/json"
	"errors"
	"slices"
	"testing"
	"time"

	"logsift/internal/record"
)

func TestParseValue(t *testing.T) {
	day := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)
	noon := time.Date(2024, 3, 15, 12, 30, 0, 0, time.UTC)

	tests := []struct {
		name     string
		typ      record.FieldType
		op       string
		raw      string
		wantKind ValueKind
		check    func(t *testing.T, v Value)
	}{
		{
			name: "string", typ: record.FieldString, op: OpContains, raw: "timeout",
			wantKind: ValueString,
			check: func(t *testing.T, v Value) {
				if s, _ := v.Str(); s != "timeout" {
					t.Errorf("Str = %q", s)
				}
			},
		},
		{
			name: "set trims blanks", typ: record.FieldString, op: "IN", raw: " a, b ,,c ",
			wantKind: ValueStringSet,
			check: func(t *testing.T, v Value) {
				set, _ := v.Set()
				if !slices.Equal(set, []string{"a", "b", "c"}) {
					t.Errorf("Set = %v", set)
				}
			},
		},
		{
			name: "set via alias", typ: record.FieldLevel, op: "not-in", raw: "debug,trace",
			wantKind: ValueStringSet,
		},
		{
			name: "number", typ: record.FieldNumber, op: OpGreaterThan, raw: " 500 ",
			wantKind: ValueNumber,
			check: func(t *testing.T, v Value) {
				if n, _ := v.Num(); n != 500 {
					t.Errorf("Num = %v", n)
				}
			},
		},
		{
			name: "closed range", typ: record.FieldTime, op: OpBetween, raw: "2024-03-15..2024-03-15 12:30",
			wantKind: ValueDateRange,
			check: func(t *testing.T, v Value) {
				from, to, _ := v.Range()
				if !from.Equal(day) || !to.Equal(noon) {
					t.Errorf("Range = %v..%v", from, to)
				}
			},
		},
		{
			name: "before single bound is upper", typ: record.FieldTime, op: OpBefore, raw: "2024-03-15",
			wantKind: ValueDateRange,
			check: func(t *testing.T, v Value) {
				from, to, _ := v.Range()
				if !from.IsZero() || !to.Equal(day) {
					t.Errorf("Range = %v..%v", from, to)
				}
			},
		},
		{
			name: "after single bound is lower", typ: record.FieldTime, op: OpAfter, raw: "2024-03-15T12:30:00Z",
			wantKind: ValueDateRange,
			check: func(t *testing.T, v Value) {
				from, to, _ := v.Range()
				if !from.Equal(noon) || !to.IsZero() {
					t.Errorf("Range = %v..%v", from, to)
				}
			},
		},
		{
			name: "open ended range", typ: record.FieldTime, op: OpBetween, raw: "..2024-03-15 12:30",
			wantKind: ValueDateRange,
			check: func(t *testing.T, v Value) {
				from, to, _ := v.Range()
				if !from.IsZero() || !to.Equal(noon) {
					t.Errorf("Range = %v..%v", from, to)
				}
			},
		},
		{
			name: "date upper bound covers the day", typ: record.FieldTime, op: OpBetween, raw: "2024-03-14..2024-03-15",
			wantKind: ValueDateRange,
			check: func(t *testing.T, v Value) {
				from, to, _ := v.Range()
				wantTo := day.Add(24*time.Hour - time.Nanosecond)
				if !from.Equal(day.AddDate(0, 0, -1)) || !to.Equal(wantTo) {
					t.Errorf("Range = %v..%v, want upper %v", from, to, wantTo)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, err := ParseValue(tt.typ, tt.op, tt.raw)
			if err != nil {
				t.Fatalf("ParseValue: %v", err)
			}
			if v.Kind() != tt.wantKind {
				t.Fatalf("Kind = %v, want %v", v.Kind(), tt.wantKind)
			}
			if tt.check != nil {
				tt.check(t, v)
			}
		})
	}
}

func TestParseValueErrors(t *testing.T) {
	tests := []struct {
		name string
		typ  record.FieldType
		op   string
		raw  string
	}{
		{"not a number", record.FieldNumber, OpEquals, "abc"},
		{"bad date", record.FieldTime, OpAfter, "yesterday"},
		{"bad upper bound", record.FieldTime, OpBetween, "2024-01-01..soon"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseValue(tt.typ, tt.op, tt.raw)
			if !errors.Is(err, ErrParseValue) {
				t.Fatalf("expected ErrParseValue, got %v", err)
			}
		})
	}
}

func TestStringSetCopiesInput(t *testing.T) {
	items := []string{"a", "b"}
	v := StringSet(items...)
	items[0] = "z"
	set, _ := v.Set()
	if set[0] != "a" {
		t.Errorf("StringSet aliases caller slice: %v", set)
	}
}

func TestValueDisplay(t *testing.T) {
	from := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	tests := []struct {
		v    Value
		want string
	}{
		{String("ERROR"), "ERROR"},
		{StringSet("a", "b"), "[a, b]"},
		{Number(1.5), "1.5"},
		{Number(404), "404"},
		{DateRange(from, time.Time{}), "2024-01-02T03:04:05Z.."},
		{Value{}, "<none>"},
	}
	for _, tt := range tests {
		if got := tt.v.Display(); got != tt.want {
			t.Errorf("Display(%#v) = %q, want %q", tt.v, got, tt.want)
		}
	}
}

func TestValueJSON(t *testing.T) {
	from := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	values := []Value{
		String(""),
		String("x"),
		StringSet("a", "b"),
		Number(0),
		DateRange(from, time.Time{}),
		DateRange(time.Time{}, from),
	}
	for _, v := range values {
		data, err := json.Marshal(v)
		if err != nil {
			t.Fatalf("Marshal(%v): %v", v, err)
		}
		var got Value
		if err := json.Unmarshal(data, &got); err != nil {
			t.Fatalf("Unmarshal(%s): %v", data, err)
		}
		if got.Kind() != v.Kind() || got.Display() != v.Display() {
			t.Errorf("round trip %s: got %v (%v), want %v (%v)", data, got, got.Kind(), v, v.Kind())
		}
	}
}
