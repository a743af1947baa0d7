package recommend

import (
	"context"
	"errors"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/kailas-cloud/clubrec/internal/domain"
	"github.com/kailas-cloud/clubrec/internal/domain/recommend/candidate"
	"github.com/kailas-cloud/clubrec/internal/domain/recommend/result"
	"github.com/kailas-cloud/clubrec/internal/logger"
	"github.com/kailas-cloud/clubrec/internal/metrics"
)

// enrich attaches display metadata to each ranked candidate. Lookups run
// concurrently and never fail the batch: a miss or error leaves the name nil.
func (s *Service) enrich(ctx context.Context, ranked []candidate.Candidate) []result.Result {
	out := make([]result.Result, len(ranked))
	for i, c := range ranked {
		out[i] = result.New(c.ItemID(), c.Score())
	}
	if s.catalog == nil || len(ranked) == 0 {
		return out
	}

	log := logger.FromContext(ctx, s.logger)

	var g errgroup.Group
	g.SetLimit(s.opts.Concurrency)
	for i := range out {
		g.Go(func() error {
			out[i] = s.lookup(ctx, out[i], log)
			return nil
		})
	}
	_ = g.Wait()

	return out
}

func (s *Service) lookup(ctx context.Context, r result.Result, log *zap.Logger) result.Result {
	lctx, cancel := ctx, context.CancelFunc(func() {})
	if s.opts.LookupTimeout > 0 {
		lctx, cancel = context.WithTimeout(ctx, s.opts.LookupTimeout)
	}
	defer cancel()

	item, err := s.catalog.Lookup(lctx, r.ItemID())
	switch {
	case err == nil:
		metrics.EnrichmentTotal.WithLabelValues("hit").Inc()
		return r.WithDisplay(item.Name(), item.Description())
	case errors.Is(err, domain.ErrNotFound):
		metrics.EnrichmentTotal.WithLabelValues("miss").Inc()
		log.Debug("catalog item not found", zap.String("item_id", r.ItemID()))
	default:
		metrics.EnrichmentTotal.WithLabelValues("error").Inc()
		log.Warn("catalog lookup failed", zap.String("item_id", r.ItemID()), zap.Error(err))
	}
	return r
}
