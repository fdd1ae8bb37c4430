// Package filter is the entry point for running user criteria over a record
// stream: it validates the criteria, builds and optimizes the expression,
// and evaluates it lazily.
//
// Invalid criteria never run. Validation collects every problem so the
// caller can show an itemized list.
package filter

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"logsift/internal/expr"
	"logsift/internal/logging"
	"logsift/internal/record"
	"logsift/internal/strategy"
)

// Service runs criteria against records of type R.
type Service[R any] struct {
	registry *strategy.Registry[R]
	logger   *slog.Logger
}

// NewService creates a service over registry. A nil logger discards output.
func NewService[R any](registry *strategy.Registry[R], logger *slog.Logger) *Service[R] {
	logger = logging.Default(logger)
	return &Service[R]{
		registry: registry,
		logger:   logger.With("component", "filter", "kind", registry.Kind().String()),
	}
}

// Validate checks every criterion and reports all problems.
func (s *Service[R]) Validate(criteria []Criterion) ValidationResult {
	var res ValidationResult
	for i, c := range criteria {
		if _, verr := s.leaf(i, c); verr != nil {
			res.Errors = append(res.Errors, *verr)
		}
	}
	return res
}

// Build validates criteria and returns the optimized expression.
// An empty list yields a composite that matches everything under ModeAnd
// and nothing under ModeOr.
func (s *Service[R]) Build(criteria []Criterion, mode Mode) (expr.Expr[R], error) {
	var res ValidationResult
	leaves := make([]expr.Expr[R], 0, len(criteria))
	for i, c := range criteria {
		l, verr := s.leaf(i, c)
		if verr != nil {
			res.Errors = append(res.Errors, *verr)
			continue
		}
		leaves = append(leaves, l)
	}
	if !res.OK() {
		return nil, &InvalidCriteriaError{Result: res}
	}

	op := expr.And
	if mode == ModeOr {
		op = expr.Or
	}
	return expr.Optimize[R](expr.NewComposite(op, leaves...)), nil
}

// Apply validates criteria and returns the lazily filtered stream. When
// validation fails the returned error is an *InvalidCriteriaError and no
// record is pulled from src.
func (s *Service[R]) Apply(ctx context.Context, criteria []Criterion, mode Mode, src iter.Seq2[R, error]) (iter.Seq2[R, error], error) {
	e, err := s.Build(criteria, mode)
	if err != nil {
		s.logger.Warn("filter rejected", "error", err)
		return nil, err
	}

	id := uuid.NewString()
	return func(yield func(R, error) bool) {
		start := time.Now()
		s.logger.Debug("pipeline started", "pipeline", id, "mode", mode.String(), "expr", e.Description())

		var pulled, matched int
		counted := func(yield func(R, error) bool) {
			for r, err := range src {
				if err == nil {
					pulled++
				}
				if !yield(r, err) {
					return
				}
			}
		}

		var failure error
		for r, err := range expr.Filter(ctx, e, counted) {
			if err != nil {
				failure = err
				yield(r, err)
				break
			}
			matched++
			if !yield(r, nil) {
				break
			}
		}

		attrs := []any{"pipeline", id, "pulled", pulled, "matched", matched, "elapsed", time.Since(start)}
		switch {
		case failure == nil:
			s.logger.Debug("pipeline finished", attrs...)
		case errors.Is(failure, context.Canceled), errors.Is(failure, context.DeadlineExceeded):
			s.logger.Info("pipeline cancelled", attrs...)
		default:
			s.logger.Warn("pipeline failed", append(attrs, "error", failure)...)
		}
	}, nil
}

// AvailableFields lists the fields criteria may reference.
func (s *Service[R]) AvailableFields() []string {
	return s.registry.Fields()
}

// AvailableOperators lists the operators field supports.
func (s *Service[R]) AvailableOperators(field string) []string {
	return s.registry.Operators(field)
}

// Kind returns the record kind served.
func (s *Service[R]) Kind() record.Kind {
	return s.registry.Kind()
}

// ParseCriterion parses "Field op value" as typed on a command line. The
// value text is everything after the operator and is converted according
// to the field's type. Unknown fields parse as plain strings so Validate
// can report them alongside any other problems.
func (s *Service[R]) ParseCriterion(text string) (Criterion, error) {
	c, verr := s.parse(0, text)
	if verr != nil {
		return Criterion{}, fmt.Errorf("criterion %q: %w", text, verr.Err)
	}
	return c, nil
}

// ParseCriteria parses and validates texts together. Every problem,
// whether in the text itself or in the parsed criterion, is reported in
// the result under the index of its text. The returned criteria are the
// ones that parsed.
func (s *Service[R]) ParseCriteria(texts []string) ([]Criterion, ValidationResult) {
	var res ValidationResult
	criteria := make([]Criterion, 0, len(texts))
	for i, text := range texts {
		c, verr := s.parse(i, text)
		if verr == nil {
			_, verr = s.leaf(i, c)
			criteria = append(criteria, c)
		}
		if verr != nil {
			res.Errors = append(res.Errors, *verr)
		}
	}
	return criteria, res
}

func (s *Service[R]) parse(i int, text string) (Criterion, *ValidationError) {
	fields := strings.Fields(text)
	if len(fields) < 2 {
		field := ""
		if len(fields) == 1 {
			field = fields[0]
		}
		return Criterion{}, &ValidationError{
			Index:  i,
			Field:  field,
			Reason: `want "Field operator value"`,
			Err:    fmt.Errorf("%w: missing operator", ErrMalformedCriterion),
		}
	}
	field, op := fields[0], fields[1]
	rest := strings.TrimSpace(text)
	rest = strings.TrimSpace(rest[len(field):])
	raw := strings.TrimSpace(rest[len(op):])

	typ, ok := s.registry.FieldType(field)
	if !ok {
		return Criterion{Field: field, Operator: op, Value: strategy.String(raw)}, nil
	}
	v, err := strategy.ParseValue(typ, op, raw)
	if err != nil {
		return Criterion{}, &ValidationError{
			Index:    i,
			Field:    field,
			Operator: op,
			Reason:   err.Error(),
			Err:      fmt.Errorf("%w: %w", ErrInvalidValue, err),
		}
	}
	return Criterion{Field: field, Operator: op, Value: v}, nil
}

// leaf turns one criterion into a validated leaf.
func (s *Service[R]) leaf(i int, c Criterion) (*expr.Leaf[R], *ValidationError) {
	verr := func(reason string, err error) *ValidationError {
		return &ValidationError{Index: i, Field: c.Field, Operator: c.Operator, Reason: reason, Err: err}
	}

	st, err := s.registry.CreateStrategy(c.Field, c.Operator)
	if err != nil {
		switch {
		case errors.Is(err, strategy.ErrUnsupportedField):
			return nil, verr(fmt.Sprintf("field %q is not available for %s records", c.Field, s.registry.Kind()), ErrUnsupportedField)
		case errors.Is(err, strategy.ErrEmptyOperator):
			return nil, verr("operator is empty", ErrUnsupportedOperator)
		default:
			return nil, verr(fmt.Sprintf("operator %q is not supported for field %q", c.Operator, c.Field), ErrUnsupportedOperator)
		}
	}

	l, err := expr.NewLeaf(st, c.Value)
	if err != nil {
		return nil, verr(fmt.Sprintf("value %q is not valid for %s", c.Value.Display(), st.Operator()), ErrInvalidValue)
	}
	return l, nil
}
