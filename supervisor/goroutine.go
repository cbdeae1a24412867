package supervisor

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// runGoroutines runs n listener loops in this process. Whichever returns
// first, with or without an error, cancels the others.
func (s *Supervisor) runGoroutines(ctx context.Context, n int) error {
	g, gctx := errgroup.WithContext(ctx)
	gctx, cancel := context.WithCancel(gctx)
	defer cancel()

	for id := 1; id <= n; id++ {
		g.Go(func() error {
			defer cancel()

			err := s.Run(gctx, id)
			entry := s.Log.WithField("worker", id)
			if err != nil {
				entry.WithError(err).Warn("worker failed, stopping all workers")
			} else {
				entry.Debug("worker stopped")
			}
			return err
		})
	}

	return g.Wait()
}
