package strategy

import (
	"errors"
	"fmt"
)

// Sentinel errors.
var (
	ErrEmptyOperator       = errors.New("empty operator")
	ErrUnsupportedField    = errors.New("unsupported field")
	ErrUnsupportedOperator = errors.New("unsupported operator")
	ErrInvalidValue        = errors.New("invalid value")
	ErrRegistrySealed      = errors.New("registry is sealed; runtime registration is not supported")
)

// UnsupportedError reports a (field, operator) pair that cannot be turned
// into a strategy.
type UnsupportedError struct {
	Field    string
	Operator string
	Err      error // ErrUnsupportedField, ErrUnsupportedOperator or ErrEmptyOperator
}

func (e *UnsupportedError) Error() string {
	switch {
	case errors.Is(e.Err, ErrUnsupportedField):
		return fmt.Sprintf("unsupported field %q", e.Field)
	case errors.Is(e.Err, ErrEmptyOperator):
		return fmt.Sprintf("field %q: empty operator", e.Field)
	default:
		return fmt.Sprintf("field %q does not support operator %q", e.Field, e.Operator)
	}
}

func (e *UnsupportedError) Unwrap() error {
	return e.Err
}
