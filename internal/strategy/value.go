package strategy

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"logsift/internal/record"
)

// ValueKind tags the variant held by a Value.
type ValueKind int

const (
	ValueNone ValueKind = iota
	ValueString
	ValueStringSet
	ValueNumber
	ValueDateRange
)

func (k ValueKind) String() string {
	switch k {
	case ValueString:
		return "string"
	case ValueStringSet:
		return "set"
	case ValueNumber:
		return "number"
	case ValueDateRange:
		return "daterange"
	default:
		return "none"
	}
}

// Value is the literal a criterion compares against. It is a closed
// variant: String | StringSet | Number | DateRange. The zero Value holds
// nothing and is valid for no operator.
type Value struct {
	kind ValueKind
	str  string
	set  []string
	num  float64
	from time.Time
	to   time.Time
}

// String builds a string Value.
func String(s string) Value { return Value{kind: ValueString, str: s} }

// StringSet builds a set Value. The slice is copied.
func StringSet(items ...string) Value {
	set := make([]string, len(items))
	copy(set, items)
	return Value{kind: ValueStringSet, set: set}
}

// Number builds a numeric Value.
func Number(n float64) Value { return Value{kind: ValueNumber, num: n} }

// DateRange builds a time range Value. A zero bound is open.
func DateRange(from, to time.Time) Value {
	return Value{kind: ValueDateRange, from: from, to: to}
}

// Kind returns the variant tag.
func (v Value) Kind() ValueKind { return v.kind }

// Str returns the string payload.
func (v Value) Str() (string, bool) { return v.str, v.kind == ValueString }

// Set returns the set payload.
func (v Value) Set() ([]string, bool) { return v.set, v.kind == ValueStringSet }

// Num returns the numeric payload.
func (v Value) Num() (float64, bool) { return v.num, v.kind == ValueNumber }

// Range returns the date range payload.
func (v Value) Range() (from, to time.Time, ok bool) {
	return v.from, v.to, v.kind == ValueDateRange
}

// Display renders the value for expression descriptions.
func (v Value) Display() string {
	switch v.kind {
	case ValueString:
		return v.str
	case ValueStringSet:
		return "[" + strings.Join(v.set, ", ") + "]"
	case ValueNumber:
		return strconv.FormatFloat(v.num, 'f', -1, 64)
	case ValueDateRange:
		return formatBound(v.from) + ".." + formatBound(v.to)
	default:
		return "<none>"
	}
}

func (v Value) String() string { return v.Display() }

func formatBound(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(time.RFC3339)
}

type valueJSON struct {
	String *string    `json:"string,omitempty"`
	Set    []string   `json:"set,omitempty"`
	Number *float64   `json:"number,omitempty"`
	From   *time.Time `json:"from,omitempty"`
	To     *time.Time `json:"to,omitempty"`
	Range  bool       `json:"range,omitempty"`
}

// MarshalJSON encodes the variant with one discriminating key.
func (v Value) MarshalJSON() ([]byte, error) {
	var j valueJSON
	switch v.kind {
	case ValueString:
		j.String = &v.str
	case ValueStringSet:
		j.Set = v.set // an empty set is dropped and decodes as no value
	case ValueNumber:
		j.Number = &v.num
	case ValueDateRange:
		j.Range = true
		if !v.from.IsZero() {
			j.From = &v.from
		}
		if !v.to.IsZero() {
			j.To = &v.to
		}
	}
	return json.Marshal(j)
}

// UnmarshalJSON decodes the form written by MarshalJSON.
func (v *Value) UnmarshalJSON(data []byte) error {
	var j valueJSON
	if err := json.Unmarshal(data, &j); err != nil {
		return err
	}
	switch {
	case j.String != nil:
		*v = String(*j.String)
	case j.Set != nil:
		*v = StringSet(j.Set...)
	case j.Number != nil:
		*v = Number(*j.Number)
	case j.Range || j.From != nil || j.To != nil:
		var from, to time.Time
		if j.From != nil {
			from = *j.From
		}
		if j.To != nil {
			to = *j.To
		}
		*v = DateRange(from, to)
	default:
		*v = Value{}
	}
	return nil
}

// ErrParseValue is returned by ParseValue for malformed literals.
var ErrParseValue = errors.New("cannot parse value")

// dateLayouts are the accepted literal formats for time bounds.
var dateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
}

// ParseValue builds a Value from command-line text for a field of type t
// used with operator op. Set operators take comma-separated items; time
// fields take "from..to" with either side optional.
func ParseValue(t record.FieldType, op, raw string) (Value, error) {
	op = CanonicalOperator(op)
	if op == OpIn || op == OpNotIn {
		var items []string
		for _, part := range strings.Split(raw, ",") {
			if p := strings.TrimSpace(part); p != "" {
				items = append(items, p)
			}
		}
		return StringSet(items...), nil
	}

	switch t {
	case record.FieldNumber:
		n, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
		if err != nil {
			return Value{}, fmt.Errorf("%w: %q is not a number", ErrParseValue, raw)
		}
		return Number(n), nil

	case record.FieldTime:
		fromRaw, toRaw, isRange := strings.Cut(raw, "..")
		if !isRange {
			switch op {
			case OpBefore:
				fromRaw, toRaw = "", raw
			default:
				toRaw = ""
			}
		}
		from, _, err := parseBound(fromRaw)
		if err != nil {
			return Value{}, err
		}
		to, dateOnly, err := parseBound(toRaw)
		if err != nil {
			return Value{}, err
		}
		// An inclusive upper bound given as a date covers that whole day.
		if dateOnly && op == OpBetween {
			to = to.Add(24*time.Hour - time.Nanosecond)
		}
		return DateRange(from, to), nil

	default:
		return String(raw), nil
	}
}

// parseBound parses one side of a range. dateOnly reports a bare
// calendar date.
func parseBound(s string) (t time.Time, dateOnly bool, err error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false, nil
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, layout == time.DateOnly, nil
		}
	}
	return time.Time{}, false, fmt.Errorf("%w: %q is not a recognized time", ErrParseValue, s)
}
