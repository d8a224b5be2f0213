package job

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/trace"
)

const cacheCleanupTick = time.Hour

type CachePruner interface {
	Prune(ctx context.Context) (int, error)
}

// CacheMaintenance removes expired file-cache entries on a fixed tick.
type CacheMaintenance struct {
	tracer trace.Tracer
	pruner CachePruner
	tick   time.Duration
}

func NewCacheMaintenance(tracer trace.Tracer, pruner CachePruner) *CacheMaintenance {
	return &CacheMaintenance{
		tracer: tracer,
		pruner: pruner,
		tick:   cacheCleanupTick,
	}
}

func (j *CacheMaintenance) Start(ctx context.Context) {
	if j == nil || j.pruner == nil {
		<-ctx.Done()
		return
	}

	log.Info().Dur("tick", j.tick).Msg("cache maintenance starting")
	ticker := time.NewTicker(j.tick)
	defer ticker.Stop()

	j.runCleanup(ctx)
	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("cache maintenance stopped")
			return
		case <-ticker.C:
			j.runCleanup(ctx)
		}
	}
}

func (j *CacheMaintenance) runCleanup(ctx context.Context) {
	if j.tracer != nil {
		var span trace.Span
		ctx, span = j.tracer.Start(ctx, "cache-job.cleanup")
		defer span.End()
	}
	removed, err := j.pruner.Prune(ctx)
	if err != nil {
		log.Error().Err(err).Msg("cache cleanup failed")
		return
	}
	if removed > 0 {
		log.Info().Int("removed", removed).Msg("pruned expired cache entries")
	}
}
