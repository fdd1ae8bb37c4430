// Package strategy implements field strategies: predicates bound to one
// record field and one operator, plus the registry that creates them.
//
// A strategy tests a single record against a literal Value and estimates
// how selective that test is. Strategies hold no per-record state; the only
// mutable state is a bounded cache of compiled regular expressions.
//
// This package MUST NOT:
//   - Combine predicates (see package expr)
//   - Pull records from a source
//   - Know about files or parsers
package strategy

import (
	"strings"

	"logsift/internal/record"
)

// Operator names. Comparisons on strings are case-insensitive except for
// the regex operators.
const (
	OpEquals         = "equals"
	OpNotEquals      = "notequals"
	OpContains       = "contains"
	OpNotContains    = "notcontains"
	OpStartsWith     = "startswith"
	OpEndsWith       = "endswith"
	OpRegex          = "regex"
	OpNotRegex       = "notregex"
	OpIn             = "in"
	OpNotIn          = "notin"
	OpAtLeast        = "atleast"
	OpGreaterThan    = "greaterthan"
	OpLessThan       = "lessthan"
	OpGreaterOrEqual = "greaterorequal"
	OpLessOrEqual    = "lessorequal"
	OpBetween        = "between"
	OpBefore         = "before"
	OpAfter          = "after"
)

// operatorsByType lists the operators each field type supports, in the
// order they are presented to users.
var operatorsByType = map[record.FieldType][]string{
	record.FieldString: {
		OpEquals, OpNotEquals, OpContains, OpNotContains,
		OpStartsWith, OpEndsWith, OpRegex, OpNotRegex, OpIn, OpNotIn,
	},
	record.FieldLevel: {
		OpEquals, OpNotEquals, OpIn, OpNotIn, OpAtLeast,
	},
	record.FieldNumber: {
		OpEquals, OpNotEquals, OpGreaterThan, OpLessThan,
		OpGreaterOrEqual, OpLessOrEqual, OpIn,
	},
	record.FieldTime: {
		OpBetween, OpBefore, OpAfter,
	},
}

// operatorAliases maps shorthand spellings to canonical operator names.
var operatorAliases = map[string]string{
	"=":           OpEquals,
	"==":          OpEquals,
	"eq":          OpEquals,
	"!=":          OpNotEquals,
	"<>":          OpNotEquals,
	"ne":          OpNotEquals,
	"~":           OpRegex,
	"=~":          OpRegex,
	"!~":          OpNotRegex,
	">":           OpGreaterThan,
	"gt":          OpGreaterThan,
	"<":           OpLessThan,
	"lt":          OpLessThan,
	">=":          OpGreaterOrEqual,
	"ge":          OpGreaterOrEqual,
	"<=":          OpLessOrEqual,
	"le":          OpLessOrEqual,
	"not-equals":  OpNotEquals,
	"notcontain":  OpNotContains,
	"starts-with": OpStartsWith,
	"ends-with":   OpEndsWith,
	"not-in":      OpNotIn,
	"min":         OpAtLeast,
}

// CanonicalOperator lowercases op and resolves aliases.
func CanonicalOperator(op string) string {
	op = strings.ToLower(strings.TrimSpace(op))
	if canon, ok := operatorAliases[op]; ok {
		return canon
	}
	return op
}

// OperatorsFor returns the operators supported by a field type.
func OperatorsFor(t record.FieldType) []string {
	ops := operatorsByType[t]
	out := make([]string, len(ops))
	copy(out, ops)
	return out
}

func supportsOperator(t record.FieldType, op string) bool {
	for _, o := range operatorsByType[t] {
		if o == op {
			return true
		}
	}
	return false
}

// Strategy is a predicate bound to one field and one operator.
// Implementations are safe for repeated use from one goroutine; a fresh
// instance should be created per pipeline.
type Strategy[R any] interface {
	// Field returns the canonical field name.
	Field() string
	// Operator returns the canonical operator name.
	Operator() string
	// IsValidValue reports whether v is a well-formed literal for this
	// operator. It must be checked before evaluation starts.
	IsValidValue(v Value) bool
	// Matches tests one record. A missing field never matches.
	Matches(r R, v Value) bool
	// EstimateSelectivity returns a heuristic in [0,1]; lower means fewer
	// records are expected to match.
	EstimateSelectivity(v Value) float64
}

// New creates the strategy for field and op. The operator must be
// non-empty and supported by the field's type.
func New[R any](field record.Field[R], op string) (Strategy[R], error) {
	op = CanonicalOperator(op)
	if op == "" {
		return nil, &UnsupportedError{Field: field.Name, Err: ErrEmptyOperator}
	}
	if !supportsOperator(field.Type, op) {
		return nil, &UnsupportedError{Field: field.Name, Operator: op, Err: ErrUnsupportedOperator}
	}

	b := base[R]{field: field, op: op}
	switch field.Type {
	case record.FieldString:
		return &stringStrategy[R]{base: b, regexes: newRegexCache()}, nil
	case record.FieldLevel:
		return &levelStrategy[R]{base: b}, nil
	case record.FieldNumber:
		return &numberStrategy[R]{base: b}, nil
	case record.FieldTime:
		return &timeStrategy[R]{base: b}, nil
	default:
		return nil, &UnsupportedError{Field: field.Name, Operator: op, Err: ErrUnsupportedField}
	}
}

// base carries the identity shared by all concrete strategies.
type base[R any] struct {
	field record.Field[R]
	op    string
}

func (b base[R]) Field() string    { return b.field.Name }
func (b base[R]) Operator() string { return b.op }
