package filter

import (
	"errors"
	"fmt"
	"strings"
)

// Validation reasons. Each ValidationError unwraps to one of these.
var (
	ErrUnsupportedField    = errors.New("unsupported field")
	ErrUnsupportedOperator = errors.New("unsupported operator")
	ErrInvalidValue        = errors.New("invalid value")
	ErrInvalidCriteria     = errors.New("invalid filter criteria")
	ErrUnknownMode         = errors.New("unknown combination mode")
	ErrMalformedCriterion  = errors.New("malformed criterion")
)

// ValidationError describes one rejected criterion.
type ValidationError struct {
	Index    int    // position in the criteria list
	Field    string // as given by the caller
	Operator string // as given by the caller
	Reason   string // human-readable
	Err      error  // wraps one of the reason sentinels
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("criterion %d (%s %s): %s", e.Index, e.Field, e.Operator, e.Reason)
}

func (e *ValidationError) Unwrap() error { return e.Err }

// ValidationResult collects every problem found in a criteria list.
type ValidationResult struct {
	Errors []ValidationError
}

// OK reports whether the criteria are valid.
func (r ValidationResult) OK() bool { return len(r.Errors) == 0 }

// Append adds the problems of other, shifting their indexes by offset.
func (r *ValidationResult) Append(other ValidationResult, offset int) {
	for _, e := range other.Errors {
		e.Index += offset
		r.Errors = append(r.Errors, e)
	}
}

// InvalidCriteriaError is returned by Build and Apply when validation
// fails. It carries the full validation result.
type InvalidCriteriaError struct {
	Result ValidationResult
}

func (e *InvalidCriteriaError) Error() string {
	if len(e.Result.Errors) == 1 {
		return ErrInvalidCriteria.Error() + ": " + e.Result.Errors[0].Error()
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%s: %d problems", ErrInvalidCriteria, len(e.Result.Errors))
	for i := range e.Result.Errors {
		b.WriteString("; ")
		b.WriteString(e.Result.Errors[i].Error())
	}
	return b.String()
}

// Unwrap exposes ErrInvalidCriteria and each per-criterion error.
func (e *InvalidCriteriaError) Unwrap() []error {
	errs := make([]error, 0, len(e.Result.Errors)+1)
	errs = append(errs, ErrInvalidCriteria)
	for i := range e.Result.Errors {
		errs = append(errs, &e.Result.Errors[i])
	}
	return errs
}
