// Package storetest provides a shared conformance suite for config.Store
// implementations. Each backend (memory, file, sqlite) wires this suite
// to verify it satisfies the full Store contract.
package storetest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"logsift/internal/config"
	"logsift/internal/filter"
	"logsift/internal/record"
	"logsift/internal/strategy"
)

func samplePreset(name string) config.Preset {
	return config.NewPreset(name, record.KindLog, filter.ModeOr, []filter.Criterion{
		{Field: "Level", Operator: "equals", Value: strategy.String("ERROR")},
		{Field: "Level", Operator: "in", Value: strategy.StringSet("WARN", "ERROR")},
		{Field: "Line", Operator: "greaterthan", Value: strategy.Number(10)},
		{Field: "Timestamp", Operator: "between", Value: strategy.DateRange(
			time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
			time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC),
		)},
	})
}

func assertSame(t *testing.T, got *config.Preset, want config.Preset) {
	t.Helper()
	if got == nil {
		t.Fatal("expected preset, got nil")
	}
	if got.ID != want.ID || got.Name != want.Name || got.Kind != want.Kind || got.Mode != want.Mode ||
		got.Description != want.Description || !got.UpdatedAt.Equal(want.UpdatedAt) {
		t.Errorf("got %+v, want %+v", *got, want)
	}
	if len(got.Criteria) != len(want.Criteria) {
		t.Fatalf("criteria: got %d, want %d", len(got.Criteria), len(want.Criteria))
	}
	for i := range want.Criteria {
		if got.Criteria[i].String() != want.Criteria[i].String() {
			t.Errorf("criterion %d: got %q, want %q", i, got.Criteria[i], want.Criteria[i])
		}
	}
}

// TestStore runs the full conformance suite. newStore must return a
// fresh, empty store for each sub-test.
func TestStore(t *testing.T, newStore func(t *testing.T) config.Store) {
	ctx := context.Background()

	t.Run("Empty", func(t *testing.T) {
		s := newStore(t)
		list, err := s.ListPresets(ctx)
		if err != nil {
			t.Fatalf("List: %v", err)
		}
		if len(list) != 0 {
			t.Errorf("expected no presets, got %d", len(list))
		}
		if got, err := s.GetPreset(ctx, uuid.Must(uuid.NewV7())); err != nil || got != nil {
			t.Errorf("Get missing = %v, %v", got, err)
		}
		if got, err := s.FindPreset(ctx, "nope"); err != nil || got != nil {
			t.Errorf("Find missing = %v, %v", got, err)
		}
	})

	t.Run("PutGetFind", func(t *testing.T) {
		s := newStore(t)
		p := samplePreset("Errors")
		p.Description = "errors and warnings"
		if err := s.PutPreset(ctx, p); err != nil {
			t.Fatalf("Put: %v", err)
		}

		got, err := s.GetPreset(ctx, p.ID)
		if err != nil {
			t.Fatalf("Get: %v", err)
		}
		assertSame(t, got, p)

		found, err := s.FindPreset(ctx, "  errors ")
		if err != nil {
			t.Fatalf("Find: %v", err)
		}
		assertSame(t, found, p)
	})

	t.Run("Replace", func(t *testing.T) {
		s := newStore(t)
		p := samplePreset("slow")
		if err := s.PutPreset(ctx, p); err != nil {
			t.Fatalf("Put: %v", err)
		}
		p.Name = "slow requests"
		p.Kind = record.KindIIS.String()
		p.Mode = filter.ModeAnd
		p.Criteria = p.Criteria[:1]
		if err := s.PutPreset(ctx, p); err != nil {
			t.Fatalf("Put replace: %v", err)
		}

		list, err := s.ListPresets(ctx)
		if err != nil {
			t.Fatalf("List: %v", err)
		}
		if len(list) != 1 {
			t.Fatalf("expected 1 preset after replace, got %d", len(list))
		}
		assertSame(t, &list[0], p)
	})

	t.Run("ListSortedByName", func(t *testing.T) {
		s := newStore(t)
		for _, name := range []string{"charlie", "Alpha", "bravo"} {
			if err := s.PutPreset(ctx, samplePreset(name)); err != nil {
				t.Fatalf("Put %s: %v", name, err)
			}
		}
		list, err := s.ListPresets(ctx)
		if err != nil {
			t.Fatalf("List: %v", err)
		}
		var names []string
		for _, p := range list {
			names = append(names, p.Name)
		}
		want := []string{"Alpha", "bravo", "charlie"}
		if len(names) != len(want) {
			t.Fatalf("names = %v", names)
		}
		for i := range want {
			if names[i] != want[i] {
				t.Errorf("names = %v, want %v", names, want)
				break
			}
		}
	})

	t.Run("DuplicateName", func(t *testing.T) {
		s := newStore(t)
		if err := s.PutPreset(ctx, samplePreset("dup")); err != nil {
			t.Fatalf("Put: %v", err)
		}
		err := s.PutPreset(ctx, samplePreset("DUP"))
		if !errors.Is(err, config.ErrDuplicateName) {
			t.Errorf("expected ErrDuplicateName, got %v", err)
		}
	})

	t.Run("Invalid", func(t *testing.T) {
		s := newStore(t)
		noName := samplePreset("")
		badKind := samplePreset("x")
		badKind.Kind = "syslog"
		noID := samplePreset("y")
		noID.ID = uuid.Nil
		for _, p := range []config.Preset{noName, badKind, noID} {
			if err := s.PutPreset(ctx, p); !errors.Is(err, config.ErrInvalidPreset) {
				t.Errorf("Put(%+v): expected ErrInvalidPreset, got %v", p, err)
			}
		}
	})

	t.Run("Delete", func(t *testing.T) {
		s := newStore(t)
		keep, drop := samplePreset("keep"), samplePreset("drop")
		for _, p := range []config.Preset{keep, drop} {
			if err := s.PutPreset(ctx, p); err != nil {
				t.Fatalf("Put: %v", err)
			}
		}
		if err := s.DeletePreset(ctx, drop.ID); err != nil {
			t.Fatalf("Delete: %v", err)
		}
		if got, _ := s.GetPreset(ctx, drop.ID); got != nil {
			t.Error("deleted preset still present")
		}
		if got, _ := s.GetPreset(ctx, keep.ID); got == nil {
			t.Error("unrelated preset removed")
		}
		if err := s.DeletePreset(ctx, drop.ID); !errors.Is(err, config.ErrNotFound) {
			t.Errorf("second Delete: expected ErrNotFound, got %v", err)
		}
	})

	t.Run("ReturnedCopies", func(t *testing.T) {
		s := newStore(t)
		p := samplePreset("copy")
		if err := s.PutPreset(ctx, p); err != nil {
			t.Fatalf("Put: %v", err)
		}
		got, err := s.GetPreset(ctx, p.ID)
		if err != nil || got == nil {
			t.Fatalf("Get: %v, %v", got, err)
		}
		got.Criteria[0].Field = "Message"
		again, _ := s.GetPreset(ctx, p.ID)
		assertSame(t, again, p)
	})
}
