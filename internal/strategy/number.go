package strategy

import (
	"strconv"
	"strings"
)

// numberStrategy implements numeric comparisons.
type numberStrategy[R any] struct {
	base[R]
}

func (s *numberStrategy[R]) IsValidValue(v Value) bool {
	if s.op == OpIn {
		_, ok := parseNumberSet(v)
		return ok
	}
	_, ok := v.Num()
	return ok
}

func (s *numberStrategy[R]) Matches(r R, v Value) bool {
	got, present := s.field.Number(r)
	if !present {
		return false
	}

	if s.op == OpIn {
		set, ok := parseNumberSet(v)
		if !ok {
			return false
		}
		for _, n := range set {
			if n == got {
				return true
			}
		}
		return false
	}

	want, ok := v.Num()
	if !ok {
		return false
	}
	switch s.op {
	case OpEquals:
		return got == want
	case OpNotEquals:
		return got != want
	case OpGreaterThan:
		return got > want
	case OpLessThan:
		return got < want
	case OpGreaterOrEqual:
		return got >= want
	case OpLessOrEqual:
		return got <= want
	default:
		return false
	}
}

func (s *numberStrategy[R]) EstimateSelectivity(v Value) float64 {
	switch s.op {
	case OpEquals:
		return selEquals
	case OpNotEquals:
		return 1 - selEquals
	case OpIn:
		set, _ := v.Set()
		return setSelectivity(len(set))
	case OpGreaterThan, OpLessThan, OpGreaterOrEqual, OpLessOrEqual:
		return selComparison
	default:
		return selUnknown
	}
}

func parseNumberSet(v Value) ([]float64, bool) {
	items, ok := v.Set()
	if !ok || len(items) == 0 {
		return nil, false
	}
	out := make([]float64, 0, len(items))
	for _, item := range items {
		n, err := strconv.ParseFloat(strings.TrimSpace(item), 64)
		if err != nil {
			return nil, false
		}
		out = append(out, n)
	}
	return out, true
}
