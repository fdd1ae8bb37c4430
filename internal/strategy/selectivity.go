package strategy

import (
	"unicode/utf8"

	"logsift/internal/record"
)

// Default selectivity table. These are design-time heuristics, not measured
// statistics; only their relative order matters to the optimizer.
const (
	selEquals      = 0.05
	selLevelEquals = 0.2
	selRegex       = 0.5
	selComparison  = 0.5
	selClosedRange = 0.3
	selOpenRange   = 0.5
	selUnknown     = 0.5

	selSetItem = 0.05
	selSetMax  = 0.9

	selContainsBase = 0.8
	selContainsMin  = 0.25
	selAffixBase    = 0.6
	selAffixMin     = 0.1
	selPerChar      = 0.05
)

// atLeastShares approximates the fraction of records at or above a level
// in typical application logs.
var atLeastShares = map[record.Level]float64{
	record.LevelError: 0.2,
	record.LevelWarn:  0.35,
	record.LevelInfo:  0.8,
	record.LevelDebug: 0.95,
	record.LevelTrace: 1.0,
}

// containsSelectivity: longer needles are rarer.
func containsSelectivity(needle string) float64 {
	n := float64(utf8.RuneCountInString(needle))
	return clamp(selContainsBase-selPerChar*n, selContainsMin, selContainsBase)
}

// affixSelectivity covers startswith/endswith, which anchor the needle and
// so are more selective than contains at equal length.
func affixSelectivity(needle string) float64 {
	n := float64(utf8.RuneCountInString(needle))
	return clamp(selAffixBase-selPerChar*n, selAffixMin, selAffixBase)
}

func setSelectivity(n int) float64 {
	if n <= 0 {
		return 0
	}
	return clamp(selSetItem*float64(n), 0, selSetMax)
}

func atLeastSelectivity(l record.Level) float64 {
	if s, ok := atLeastShares[l]; ok {
		return s
	}
	return selUnknown
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
