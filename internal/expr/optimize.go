package expr

import (
	"cmp"
	"slices"
)

// Optimize reorders composite children ascending by estimated selectivity
// so AND rejects early and OR accepts early. The sort is stable: ties keep
// input order. Leaves and unknown node types are returned unchanged. The
// input tree is not modified.
func Optimize[R any](e Expr[R]) Expr[R] {
	c, ok := e.(*Composite[R])
	if !ok {
		return e
	}

	type ranked struct {
		node Expr[R]
		sel  float64
	}
	nodes := make([]ranked, len(c.children))
	for i, child := range c.children {
		opt := Optimize(child)
		nodes[i] = ranked{node: opt, sel: opt.EstimatedSelectivity()}
	}
	slices.SortStableFunc(nodes, func(a, b ranked) int {
		return cmp.Compare(a.sel, b.sel)
	})

	children := make([]Expr[R], len(nodes))
	for i, n := range nodes {
		children[i] = n.node
	}
	return &Composite[R]{op: c.op, children: children}
}
