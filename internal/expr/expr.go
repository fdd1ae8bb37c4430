// Package expr composes field strategies into boolean filter expressions
// and evaluates them over lazy record streams.
//
// Trees are flat in practice (one composite over leaves) but the types
// nest, and the optimizer recurses. All nodes are immutable after
// construction.
package expr

import (
	"errors"
	"fmt"
	"strings"

	"logsift/internal/strategy"
)

// ErrInvalidValue is returned by NewLeaf when the value is not valid for
// the strategy's operator.
var ErrInvalidValue = errors.New("invalid value for operator")

// Expr is a node in a filter expression tree.
type Expr[R any] interface {
	// Matches reports whether r satisfies the expression.
	Matches(r R) bool
	// Description renders the expression for logs and user feedback.
	Description() string
	// EstimatedSelectivity is a heuristic in [0,1]; lower matches fewer records.
	EstimatedSelectivity() float64
}

// Leaf binds a strategy to its literal.
type Leaf[R any] struct {
	strategy strategy.Strategy[R]
	value    strategy.Value
}

// NewLeaf validates value against s and returns the leaf.
func NewLeaf[R any](s strategy.Strategy[R], value strategy.Value) (*Leaf[R], error) {
	if s == nil {
		return nil, errors.New("expr: nil strategy")
	}
	if !s.IsValidValue(value) {
		return nil, fmt.Errorf("%w: %s %s %s", ErrInvalidValue, s.Field(), s.Operator(), value.Display())
	}
	return &Leaf[R]{strategy: s, value: value}, nil
}

func (l *Leaf[R]) Matches(r R) bool {
	return l.strategy.Matches(r, l.value)
}

func (l *Leaf[R]) Description() string {
	if l.strategy.Operator() == strategy.OpEquals {
		return l.strategy.Field() + " = " + l.value.Display()
	}
	return l.strategy.Field() + " " + l.strategy.Operator() + " " + l.value.Display()
}

func (l *Leaf[R]) EstimatedSelectivity() float64 {
	return clamp01(l.strategy.EstimateSelectivity(l.value))
}

// Strategy returns the bound strategy.
func (l *Leaf[R]) Strategy() strategy.Strategy[R] { return l.strategy }

// Value returns the bound literal.
func (l *Leaf[R]) Value() strategy.Value { return l.value }

// Op is a logical combinator.
type Op int

const (
	And Op = iota
	Or
)

func (o Op) String() string {
	if o == Or {
		return "OR"
	}
	return "AND"
}

// Composite combines children with AND or OR. An empty AND matches every
// record; an empty OR matches none.
type Composite[R any] struct {
	op       Op
	children []Expr[R]
}

// NewComposite returns a composite over a copy of children.
func NewComposite[R any](op Op, children ...Expr[R]) *Composite[R] {
	c := make([]Expr[R], len(children))
	copy(c, children)
	return &Composite[R]{op: op, children: c}
}

// Op returns the combinator.
func (c *Composite[R]) Op() Op { return c.op }

// Children returns a copy of the child list.
func (c *Composite[R]) Children() []Expr[R] {
	out := make([]Expr[R], len(c.children))
	copy(out, c.children)
	return out
}

func (c *Composite[R]) Matches(r R) bool {
	if c.op == Or {
		for _, child := range c.children {
			if child.Matches(r) {
				return true
			}
		}
		return false
	}
	for _, child := range c.children {
		if !child.Matches(r) {
			return false
		}
	}
	return true
}

func (c *Composite[R]) Description() string {
	if len(c.children) == 0 {
		if c.op == Or {
			return "<nothing>"
		}
		return "<everything>"
	}
	parts := make([]string, len(c.children))
	for i, child := range c.children {
		parts[i] = "(" + child.Description() + ")"
	}
	return strings.Join(parts, " "+c.op.String()+" ")
}

// EstimatedSelectivity treats children as independent: AND multiplies,
// OR is 1 - Π(1 - s).
func (c *Composite[R]) EstimatedSelectivity() float64 {
	if c.op == Or {
		miss := 1.0
		for _, child := range c.children {
			miss *= 1 - clamp01(child.EstimatedSelectivity())
		}
		return clamp01(1 - miss)
	}
	sel := 1.0
	for _, child := range c.children {
		sel *= clamp01(child.EstimatedSelectivity())
	}
	return sel
}

func clamp01(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
