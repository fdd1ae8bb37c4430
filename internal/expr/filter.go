package expr

import (
	"context"
	"iter"
)

// Filter lazily yields the records of src that match e, in source order.
//
// The context is checked once per pulled record, before the record is
// tested. On cancellation the context error is yielded once and the
// sequence ends, so consumers always see a prefix of the uncancelled
// output. An upstream error is passed through and ends the sequence.
func Filter[R any](ctx context.Context, e Expr[R], src iter.Seq2[R, error]) iter.Seq2[R, error] {
	return func(yield func(R, error) bool) {
		var zero R
		if err := ctx.Err(); err != nil {
			yield(zero, err)
			return
		}
		for rec, err := range src {
			if err != nil {
				yield(zero, err)
				return
			}
			if cerr := ctx.Err(); cerr != nil {
				yield(zero, cerr)
				return
			}
			if !e.Matches(rec) {
				continue
			}
			if !yield(rec, nil) {
				return
			}
		}
	}
}
