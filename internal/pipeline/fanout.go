package pipeline

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/nao1215/gatewayscan/internal/model"
)

// Fetcher retrieves one document. *crawler.Fetcher implements it.
type Fetcher interface {
	Fetch(ctx context.Context, rawURL string, timeout time.Duration) model.FetchOutcome
}

// fetchAll fetches every URL concurrently and returns the outcomes in
// input order. Each fetch holds one unit of gate while it runs, so the
// gate bounds in-flight fetches across all candidates sharing it.
//
// Tasks never return an error to the group: one failed or slow fetch does
// not cancel its siblings. The call returns after every task finished.
//
// Design decision: the gate is a weighted semaphore passed in by the caller
// rather than a per-call worker count. Sub-pages and assets of every site
// draw from the same budget, so the number of open connections stays fixed
// however many pages a site links.
func fetchAll(ctx context.Context, fetcher Fetcher, gate *semaphore.Weighted, urls []string, timeout time.Duration) []model.FetchOutcome {
	outcomes := make([]model.FetchOutcome, len(urls))
	var g errgroup.Group

	for i, u := range urls {
		g.Go(func() error {
			if err := gate.Acquire(ctx, 1); err != nil {
				outcomes[i] = model.FetchOutcome{Err: &model.FetchError{Kind: model.KindUnexpected, URL: u, Err: err}}
				return nil
			}
			defer gate.Release(1)
			outcomes[i] = fetcher.Fetch(ctx, u, timeout)
			return nil
		})
	}

	_ = g.Wait() //nolint:errcheck // tasks always return nil
	return outcomes
}
