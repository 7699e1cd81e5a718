package engine

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"example.com/fitsync/internal/domain"
	"example.com/fitsync/internal/fitapi"
)

// fetchLive reads the uncached activity buckets and the step estimate for
// the report window concurrently. The longest frame skips the bucket query.
func (e *Engine) fetchLive(ctx context.Context, tf domain.TimeFrame, now, start, end time.Time) (live, estimate fitapi.ReadResult, err error) {
	g, gctx := errgroup.WithContext(ctx)

	if !tf.Longest() {
		g.Go(func() error {
			res, err := e.client.Read(gctx, fitapi.QueryActivitySegmentBuckets(now.Add(-e.windows.Uncached), end))
			if err != nil {
				return err
			}
			live = res
			return nil
		})
	}

	g.Go(func() error {
		res, err := e.client.Read(gctx, fitapi.QueryStepEstimate(start, end))
		if err != nil {
			return err
		}
		estimate = res
		return nil
	})

	if err := g.Wait(); err != nil {
		return fitapi.ReadResult{}, fitapi.ReadResult{}, err
	}
	return live, estimate, nil
}
