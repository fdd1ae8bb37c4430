package cli

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"path/filepath"
	"sync"

	"logsift/internal/source"
)

var errNoInput = errors.New("no input matched")

// expandInputs resolves patterns to concrete locations. Directories are
// kept when keepDirs is set and otherwise expanded to the files below
// them.
func expandInputs(patterns []string, keepDirs bool) ([]string, error) {
	found, err := source.Discover(patterns)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, loc := range found {
		if keepDirs || !source.IsDir(loc) {
			out = append(out, loc)
			continue
		}
		nested, err := source.Discover([]string{filepath.Join(loc, "**", "*")})
		if err != nil {
			return nil, err
		}
		for _, n := range nested {
			if !source.IsDir(n) {
				out = append(out, n)
			}
		}
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%w: %v", errNoInput, patterns)
	}
	return out, nil
}

// concat reads each location in turn. A location that fails to open or
// read is logged and skipped; cancellation ends the stream.
func concat[R any](ctx context.Context, logger *slog.Logger, locations []string, open func(string) iter.Seq2[R, error]) iter.Seq2[R, error] {
	return func(yield func(R, error) bool) {
		for _, loc := range locations {
			for r, err := range open(loc) {
				if err != nil {
					if ctx.Err() != nil {
						yield(r, ctx.Err())
						return
					}
					logger.Warn("skipping source", "location", loc, "error", err)
					break
				}
				if !yield(r, nil) {
					return
				}
			}
		}
	}
}

// merge runs one stream per location concurrently and interleaves their
// records in arrival order. It is used for follow mode, where no stream
// ends on its own. Per-location errors are logged and end only that
// location's stream.
func merge[R any](ctx context.Context, logger *slog.Logger, locations []string, open func(context.Context, string) iter.Seq2[R, error]) iter.Seq2[R, error] {
	if len(locations) == 1 {
		return open(ctx, locations[0])
	}
	return func(yield func(R, error) bool) {
		ctx, cancel := context.WithCancel(ctx)
		defer cancel()

		ch := make(chan R)
		var wg sync.WaitGroup
		for _, loc := range locations {
			wg.Go(func() {
				for r, err := range open(ctx, loc) {
					if err != nil {
						if ctx.Err() == nil {
							logger.Warn("stopped following source", "location", loc, "error", err)
						}
						return
					}
					select {
					case ch <- r:
					case <-ctx.Done():
						return
					}
				}
			})
		}
		go func() {
			wg.Wait()
			close(ch)
		}()

		for {
			select {
			case r, ok := <-ch:
				if !ok {
					return
				}
				if !yield(r, nil) {
					return
				}
			case <-ctx.Done():
				var zero R
				yield(zero, ctx.Err())
				return
			}
		}
	}
}
