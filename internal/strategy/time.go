package strategy

import "time"

// timeStrategy implements range operators over timestamps. Bounds of a
// between range are inclusive; before/after are strict.
type timeStrategy[R any] struct {
	base[R]
}

func (s *timeStrategy[R]) IsValidValue(v Value) bool {
	from, to, ok := v.Range()
	if !ok {
		return false
	}
	if from.IsZero() && to.IsZero() {
		return false
	}
	if !from.IsZero() && !to.IsZero() && to.Before(from) {
		return false
	}
	return true
}

func (s *timeStrategy[R]) Matches(r R, v Value) bool {
	got, present := s.field.Time(r)
	if !present {
		return false
	}
	from, to, ok := v.Range()
	if !ok {
		return false
	}

	switch s.op {
	case OpBetween:
		if !from.IsZero() && got.Before(from) {
			return false
		}
		if !to.IsZero() && got.After(to) {
			return false
		}
		return !from.IsZero() || !to.IsZero()
	case OpBefore:
		bound := firstSet(to, from)
		return !bound.IsZero() && got.Before(bound)
	case OpAfter:
		bound := firstSet(from, to)
		return !bound.IsZero() && got.After(bound)
	default:
		return false
	}
}

func (s *timeStrategy[R]) EstimateSelectivity(v Value) float64 {
	from, to, _ := v.Range()
	switch s.op {
	case OpBetween:
		if from.IsZero() || to.IsZero() {
			return selOpenRange
		}
		return selClosedRange
	case OpBefore, OpAfter:
		return selOpenRange
	default:
		return selUnknown
	}
}

func firstSet(a, b time.Time) time.Time {
	if !a.IsZero() {
		return a
	}
	return b
}
