package strategy

import "logsift/internal/record"

// levelStrategy implements operators over normalized severities.
type levelStrategy[R any] struct {
	base[R]
}

func (s *levelStrategy[R]) IsValidValue(v Value) bool {
	switch s.op {
	case OpIn, OpNotIn:
		_, ok := parseLevelSet(v)
		return ok
	default:
		_, ok := parseLevelValue(v)
		return ok
	}
}

func (s *levelStrategy[R]) Matches(r R, v Value) bool {
	got, present := s.field.Level(r)
	if !present {
		return false
	}

	switch s.op {
	case OpIn, OpNotIn:
		set, ok := parseLevelSet(v)
		if !ok {
			return false
		}
		found := false
		for _, l := range set {
			if l == got {
				found = true
				break
			}
		}
		return found == (s.op == OpIn)
	}

	want, ok := parseLevelValue(v)
	if !ok {
		return false
	}
	switch s.op {
	case OpEquals:
		return got == want
	case OpNotEquals:
		return got != want
	case OpAtLeast:
		return got.Severity() >= want.Severity()
	default:
		return false
	}
}

func (s *levelStrategy[R]) EstimateSelectivity(v Value) float64 {
	switch s.op {
	case OpEquals:
		return selLevelEquals
	case OpNotEquals:
		return 1 - selLevelEquals
	case OpAtLeast:
		want, ok := parseLevelValue(v)
		if !ok {
			return selUnknown
		}
		return atLeastSelectivity(want)
	case OpIn, OpNotIn:
		set, _ := parseLevelSet(v)
		sel := clamp(selLevelEquals*float64(len(set)), 0, 1)
		if s.op == OpNotIn {
			return 1 - sel
		}
		return sel
	default:
		return selUnknown
	}
}

func parseLevelValue(v Value) (record.Level, bool) {
	str, ok := v.Str()
	if !ok {
		return record.LevelUnknown, false
	}
	return record.ParseLevel(str)
}

func parseLevelSet(v Value) ([]record.Level, bool) {
	items, ok := v.Set()
	if !ok || len(items) == 0 {
		return nil, false
	}
	levels := make([]record.Level, 0, len(items))
	for _, item := range items {
		l, ok := record.ParseLevel(item)
		if !ok {
			return nil, false
		}
		levels = append(levels, l)
	}
	return levels, true
}
