package record

import (
	"errors"
	"testing"
	"time"
)

func TestSchemaLookupCaseInsensitive(t *testing.T) {
	s := RabbitSchema()
	for _, name := range []string{"ProcessUID", "processuid", "PROCESSUID"} {
		f, ok := s.Lookup(name)
		if !ok {
			t.Fatalf("Lookup(%q) failed", name)
		}
		if f.Name != "ProcessUID" {
			t.Errorf("Lookup(%q).Name = %q", name, f.Name)
		}
	}
	if _, ok := s.Lookup("Nonexistent"); ok {
		t.Error("Lookup(Nonexistent) should fail")
	}
}

func TestSchemaDuplicateField(t *testing.T) {
	_, err := NewSchema(KindLog,
		StringField("Message", func(e *LogEntry) string { return e.Message }),
		StringField("message", func(e *LogEntry) string { return e.Source }),
	)
	if !errors.Is(err, ErrDuplicateField) {
		t.Fatalf("expected ErrDuplicateField, got %v", err)
	}
}

func TestSchemaMissingGetter(t *testing.T) {
	_, err := NewSchema(KindLog, Field[*LogEntry]{Name: "Broken", Type: FieldTime})
	if !errors.Is(err, ErrFieldGetter) {
		t.Fatalf("expected ErrFieldGetter, got %v", err)
	}
}

func TestFieldMissingValues(t *testing.T) {
	e := &IISEntry{Status: -1, SubStatus: 0, Method: ""}
	s := IISSchema()

	status, _ := s.Lookup("Status")
	if _, ok := status.Number(e); ok {
		t.Error("negative Status should read as missing")
	}
	sub, _ := s.Lookup("SubStatus")
	if n, ok := sub.Number(e); !ok || n != 0 {
		t.Errorf("SubStatus = %v, %v; want 0, true", n, ok)
	}
	method, _ := s.Lookup("Method")
	if _, ok := method.String(e); ok {
		t.Error("empty Method should read as missing")
	}
	ts, _ := s.Lookup("Timestamp")
	if _, ok := ts.Time(e); ok {
		t.Error("zero Timestamp should read as missing")
	}
}

func TestFieldStringRendering(t *testing.T) {
	ts := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	e := &LogEntry{Timestamp: ts, Level: LevelWarn, Line: 42}
	s := LogSchema()

	tests := []struct {
		field string
		want  string
	}{
		{"Timestamp", "2024-03-01T12:00:00Z"},
		{"Level", "WARN"},
		{"Line", "42"},
	}
	for _, tt := range tests {
		t.Run(tt.field, func(t *testing.T) {
			f, _ := s.Lookup(tt.field)
			got, ok := f.String(e)
			if !ok || got != tt.want {
				t.Errorf("String() = %q, %v; want %q", got, ok, tt.want)
			}
		})
	}
}

func TestRabbitEffectiveStackTrace(t *testing.T) {
	e := &RabbitEntry{}
	if e.EffectiveStackTrace() != "" {
		t.Error("expected empty effective stack trace")
	}
	e.StackTrace = "at Foo.Bar()"
	if e.EffectiveStackTrace() != "at Foo.Bar()" {
		t.Errorf("got %q", e.EffectiveStackTrace())
	}
	var nilEntry *RabbitEntry
	if nilEntry.EffectiveStackTrace() != "" {
		t.Error("nil entry should have empty stack trace")
	}
}
