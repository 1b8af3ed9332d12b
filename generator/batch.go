package generator

import (
	"context"

	"golang.org/x/sync/errgroup"

	"metagen/utils"
)

// DefaultBatchConcurrency bounds parallel backend calls in a batch
const DefaultBatchConcurrency = 4

// BatchAltTags runs GenerateAltTag for every request with at most
// concurrency calls in flight. Results keep the request order; each item
// succeeds or falls back on its own.
func (g *Generator) BatchAltTags(ctx context.Context, reqs []AltTagRequest, concurrency int) []AltTagResult {
	if concurrency <= 0 {
		concurrency = DefaultBatchConcurrency
	}
	results := make([]AltTagResult, len(reqs))

	var eg errgroup.Group
	eg.SetLimit(concurrency)
	for i, req := range reqs {
		i, req := i, req
		eg.Go(func() error {
			err := utils.SafeCall(g.logger, "batch alt tag", func() error {
				results[i] = g.GenerateAltTag(ctx, req)
				return nil
			})
			if err != nil {
				results[i] = AltTagResult{Error: err.Error()}
			}
			return nil
		})
	}
	_ = eg.Wait()

	return results
}
