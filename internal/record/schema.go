package record

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// FieldType is the semantic type of a record field. It decides which
// operators a field supports.
type FieldType int

const (
	FieldString FieldType = iota
	FieldLevel
	FieldNumber
	FieldTime
)

func (t FieldType) String() string {
	switch t {
	case FieldString:
		return "string"
	case FieldLevel:
		return "level"
	case FieldNumber:
		return "number"
	case FieldTime:
		return "time"
	default:
		return "unknown"
	}
}

// Schema errors.
var (
	ErrDuplicateField = errors.New("duplicate field")
	ErrFieldGetter    = errors.New("field has no getter for its type")
)

// Field is a named, typed accessor into records of type R. Accessors are
// closures built once per record kind; no name lookup happens per record.
type Field[R any] struct {
	Name string
	Type FieldType

	str func(R) string
	num func(R) (float64, bool)
	tm  func(R) time.Time
	lvl func(R) Level
}

// StringField declares a string field. Empty strings read as missing.
func StringField[R any](name string, get func(R) string) Field[R] {
	return Field[R]{Name: name, Type: FieldString, str: get}
}

// NumberField declares a numeric field.
func NumberField[R any](name string, get func(R) (float64, bool)) Field[R] {
	return Field[R]{Name: name, Type: FieldNumber, num: get}
}

// IntField declares an integer field where negative values mean missing.
func IntField[R any](name string, get func(R) int) Field[R] {
	return NumberField(name, func(r R) (float64, bool) {
		n := get(r)
		return float64(n), n >= 0
	})
}

// TimeField declares a timestamp field. Zero times read as missing.
func TimeField[R any](name string, get func(R) time.Time) Field[R] {
	return Field[R]{Name: name, Type: FieldTime, tm: get}
}

// LevelField declares a severity field. LevelUnknown reads as missing.
func LevelField[R any](name string, get func(R) Level) Field[R] {
	return Field[R]{Name: name, Type: FieldLevel, lvl: get}
}

// String returns the field value as a string. Every field type has a
// string rendering, used for display and for string operators.
func (f Field[R]) String(r R) (string, bool) {
	switch f.Type {
	case FieldString:
		s := f.str(r)
		return s, s != ""
	case FieldLevel:
		l := f.lvl(r)
		return l.String(), l != LevelUnknown
	case FieldNumber:
		n, ok := f.num(r)
		if !ok {
			return "", false
		}
		return formatNumber(n), true
	case FieldTime:
		t := f.tm(r)
		if t.IsZero() {
			return "", false
		}
		return t.Format(time.RFC3339Nano), true
	default:
		return "", false
	}
}

// Number returns the numeric value. Only valid for FieldNumber.
func (f Field[R]) Number(r R) (float64, bool) {
	if f.num == nil {
		return 0, false
	}
	return f.num(r)
}

// Time returns the timestamp value. Only valid for FieldTime.
func (f Field[R]) Time(r R) (time.Time, bool) {
	if f.tm == nil {
		return time.Time{}, false
	}
	t := f.tm(r)
	return t, !t.IsZero()
}

// Level returns the severity value. Only valid for FieldLevel.
func (f Field[R]) Level(r R) (Level, bool) {
	if f.lvl == nil {
		return LevelUnknown, false
	}
	l := f.lvl(r)
	return l, l != LevelUnknown
}

func (f Field[R]) hasGetter() bool {
	switch f.Type {
	case FieldString:
		return f.str != nil
	case FieldLevel:
		return f.lvl != nil
	case FieldNumber:
		return f.num != nil
	case FieldTime:
		return f.tm != nil
	default:
		return false
	}
}

// Schema is the ordered, fixed field set of one record kind.
type Schema[R any] struct {
	kind   Kind
	fields []Field[R]
	byName map[string]int
}

// NewSchema validates and indexes a field list. Field names are matched
// case-insensitively.
func NewSchema[R any](kind Kind, fields ...Field[R]) (*Schema[R], error) {
	s := &Schema[R]{
		kind:   kind,
		fields: make([]Field[R], 0, len(fields)),
		byName: make(map[string]int, len(fields)),
	}
	for _, f := range fields {
		key := strings.ToLower(f.Name)
		if _, dup := s.byName[key]; dup {
			return nil, fmt.Errorf("%s schema: %w: %s", kind, ErrDuplicateField, f.Name)
		}
		if !f.hasGetter() {
			return nil, fmt.Errorf("%s schema: %w: %s (%s)", kind, ErrFieldGetter, f.Name, f.Type)
		}
		s.byName[key] = len(s.fields)
		s.fields = append(s.fields, f)
	}
	return s, nil
}

// MustSchema is NewSchema for static schemas; it panics on error.
func MustSchema[R any](kind Kind, fields ...Field[R]) *Schema[R] {
	s, err := NewSchema(kind, fields...)
	if err != nil {
		panic(err)
	}
	return s
}

// Kind returns the record kind this schema describes.
func (s *Schema[R]) Kind() Kind { return s.kind }

// Fields returns the fields in declaration order.
func (s *Schema[R]) Fields() []Field[R] {
	out := make([]Field[R], len(s.fields))
	copy(out, s.fields)
	return out
}

// Lookup finds a field by name (case-insensitive).
func (s *Schema[R]) Lookup(name string) (Field[R], bool) {
	i, ok := s.byName[strings.ToLower(name)]
	if !ok {
		return Field[R]{}, false
	}
	return s.fields[i], true
}

func formatNumber(n float64) string {
	if n == float64(int64(n)) {
		return fmt.Sprintf("%d", int64(n))
	}
	return fmt.Sprintf("%g", n)
}
