package weather

import (
	"context"
	"log/slog"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/karttrack/karttrack/internal/domain"
	"github.com/karttrack/karttrack/internal/observability"
)

// Source fetches the current conditions from the external weather feed.
type Source interface {
	Current(ctx context.Context) (domain.WeatherSample, error)
}

// Gatherer periodically fetches current weather and appends novel samples to
// the timeline. Samples whose readings are identical to the previous
// accepted sample are discarded. Fetch errors are logged and absorbed; the
// loop always waits the full interval before the next attempt, so errors
// never change the cadence.
type Gatherer struct {
	source   Source
	store    *Store
	interval time.Duration
	clock    clockwork.Clock
	logger   *slog.Logger
	metrics  *observability.Metrics

	lastKey string
	hasLast bool
}

// NewGatherer creates a gatherer polling source every interval.
func NewGatherer(
	source Source,
	store *Store,
	interval time.Duration,
	clock clockwork.Clock,
	logger *slog.Logger,
	metrics *observability.Metrics,
) *Gatherer {
	return &Gatherer{
		source:   source,
		store:    store,
		interval: interval,
		clock:    clock,
		logger:   logger,
		metrics:  metrics,
	}
}

// Run executes the gather loop until the context is cancelled.
func (g *Gatherer) Run(ctx context.Context) error {
	g.logger.Info("weather gatherer started", "interval", g.interval)
	g.metrics.GathererRunning.Set(1)
	defer g.metrics.GathererRunning.Set(0)

	for {
		g.tick(ctx)
		if !waitNext(ctx, g.clock, g.interval) {
			g.logger.Info("weather gatherer stopping", "reason", ctx.Err())
			return nil
		}
	}
}

func (g *Gatherer) tick(ctx context.Context) {
	sample, err := g.source.Current(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		g.metrics.WeatherFetchErrors.Inc()
		g.logger.Warn("weather fetch failed", "error", err)
		return
	}
	g.metrics.WeatherFetches.Inc()

	key := sample.ComparisonKey()
	if g.hasLast && key == g.lastKey {
		g.metrics.WeatherSamplesUnchanged.Inc()
		return
	}

	g.store.Append(sample)
	g.lastKey = key
	g.hasLast = true
	g.metrics.WeatherSamplesStored.Inc()
	g.metrics.WeatherTimelineSize.Set(float64(g.store.Len()))
	g.logger.Debug("weather sample stored",
		"captured_at", sample.CapturedAt,
		"temp_c", sample.TempC,
		"precip_mm", sample.PrecipitationMm,
	)
}

// waitNext sleeps for d on the given clock. Returns false when the context
// is cancelled first.
func waitNext(ctx context.Context, clk clockwork.Clock, d time.Duration) bool {
	timer := clk.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.Chan():
		return true
	}
}
