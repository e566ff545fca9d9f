package theorem

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// SolveAll solves theorems concurrently with at most limit queries in
// flight. Errors are per theorem and aligned with the input; one failing
// theorem never stops the others.
func SolveAll(ctx context.Context, theorems []*Theorem, limit int) []error {
	errs := make([]error, len(theorems))

	var g errgroup.Group
	if limit > 0 {
		g.SetLimit(limit)
	}
	for i, th := range theorems {
		i, th := i, th
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				errs[i] = err
				return nil
			}
			_, errs[i] = th.Solve(ctx)
			return nil
		})
	}
	_ = g.Wait()

	return errs
}
