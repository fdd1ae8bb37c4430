package strategy

import "strings"

// stringStrategy implements the text operators. All comparisons except the
// regex ones ignore case.
type stringStrategy[R any] struct {
	base[R]
	regexes *regexCache
}

func (s *stringStrategy[R]) IsValidValue(v Value) bool {
	switch s.op {
	case OpIn, OpNotIn:
		set, ok := v.Set()
		return ok && len(set) > 0
	case OpRegex, OpNotRegex:
		pattern, ok := v.Str()
		if !ok || pattern == "" {
			return false
		}
		_, err := s.regexes.compile(pattern)
		return err == nil
	case OpEquals, OpNotEquals:
		_, ok := v.Str()
		return ok
	default:
		str, ok := v.Str()
		return ok && str != ""
	}
}

func (s *stringStrategy[R]) Matches(r R, v Value) bool {
	got, present := s.field.String(r)
	if !present {
		return false
	}

	switch s.op {
	case OpIn, OpNotIn:
		set, ok := v.Set()
		if !ok {
			return false
		}
		found := false
		for _, item := range set {
			if strings.EqualFold(got, item) {
				found = true
				break
			}
		}
		return found == (s.op == OpIn)

	case OpRegex, OpNotRegex:
		pattern, ok := v.Str()
		if !ok {
			return false
		}
		re, err := s.regexes.compile(pattern)
		if err != nil {
			return false
		}
		return re.MatchString(got) == (s.op == OpRegex)
	}

	want, ok := v.Str()
	if !ok {
		return false
	}
	switch s.op {
	case OpEquals:
		return strings.EqualFold(got, want)
	case OpNotEquals:
		return !strings.EqualFold(got, want)
	case OpContains:
		return containsFold(got, want)
	case OpNotContains:
		return !containsFold(got, want)
	case OpStartsWith:
		return strings.HasPrefix(strings.ToLower(got), strings.ToLower(want))
	case OpEndsWith:
		return strings.HasSuffix(strings.ToLower(got), strings.ToLower(want))
	default:
		return false
	}
}

func (s *stringStrategy[R]) EstimateSelectivity(v Value) float64 {
	str, _ := v.Str()
	set, _ := v.Set()
	switch s.op {
	case OpEquals:
		return selEquals
	case OpNotEquals:
		return 1 - selEquals
	case OpContains:
		return containsSelectivity(str)
	case OpNotContains:
		return 1 - containsSelectivity(str)
	case OpStartsWith, OpEndsWith:
		return affixSelectivity(str)
	case OpRegex:
		return selRegex
	case OpNotRegex:
		return 1 - selRegex
	case OpIn:
		return setSelectivity(len(set))
	case OpNotIn:
		return 1 - setSelectivity(len(set))
	default:
		return selUnknown
	}
}

// containsFold is a case-insensitive strings.Contains.
func containsFold(s, substr string) bool {
	if substr == "" {
		return true
	}
	if len(substr) > len(s) {
		return false
	}
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}
