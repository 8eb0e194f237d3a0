package driver

import (
	"context"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// ProcessAll runs independent requests in parallel, at most jobs at a time
// (GOMAXPROCS when jobs <= 0). Results keep the order of reqs. The first
// request error cancels the rest.
func (d *Driver) ProcessAll(ctx context.Context, reqs []Request, jobs int) ([]Result, error) {
	results := make([]Result, len(reqs))
	if len(reqs) == 0 {
		return results, nil
	}
	if jobs <= 0 {
		jobs = runtime.GOMAXPROCS(0)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(min(jobs, len(reqs)))
	for i, req := range reqs {
		g.Go(func() error {
			select {
			case <-gctx.Done():
				return gctx.Err()
			default:
			}
			// индекс уникален для горутины, мьютекс не нужен
			res, err := d.Process(gctx, req)
			if err != nil {
				return err
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return results, err
	}
	return results, nil
}
