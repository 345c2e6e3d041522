// Package poller runs the telemetry ingestion loop against the live-timing
// feed.
package poller

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/karttrack/karttrack/internal/domain"
	"github.com/karttrack/karttrack/internal/observability"
)

// Feed fetches the raw timing feed content.
type Feed interface {
	Fetch(ctx context.Context) ([]byte, error)
}

// LapSaver persists parsed lap entries.
type LapSaver interface {
	SaveLap(ctx context.Context, day domain.Day, entry domain.LapEntry) error
}

// Config tunes the poll loop.
type Config struct {
	// Interval between ticks. Ticks are sequential: a slow fetch delays the
	// next poll rather than overlapping it.
	Interval time.Duration

	// Day-end detection. When enabled and the feed has been stale longer
	// than Idle outside the [DayStartHourUTC, DayEndHourUTC) window, the
	// poller slows to DayEndInterval and discards rows for the stale
	// session until a different session number appears. Known edge case: a
	// day with zero sessions can swallow the first session of the next day.
	DayEndDetection bool
	DayEndIdle      time.Duration
	DayEndInterval  time.Duration
	DayStartHourUTC int
	DayEndHourUTC   int
}

// Poller polls the timing feed, skips unchanged content via a fingerprint,
// parses rows into lap entries, and forwards each to the store. Any error
// during a tick is logged and absorbed; the loop never terminates on a
// single bad tick.
type Poller struct {
	feed    Feed
	store   LapSaver
	cfg     Config
	clock   clockwork.Clock
	logger  *slog.Logger
	metrics *observability.Metrics
	ready   atomic.Bool

	prevFingerprint string
	lastTelemetryAt time.Time
	lastSession     string
	dayEnded        bool
}

// New creates a poller.
func New(
	feed Feed,
	store LapSaver,
	cfg Config,
	clock clockwork.Clock,
	logger *slog.Logger,
	metrics *observability.Metrics,
) *Poller {
	return &Poller{
		feed:    feed,
		store:   store,
		cfg:     cfg,
		clock:   clock,
		logger:  logger,
		metrics: metrics,
	}
}

// CheckReadiness returns nil once the poller has fully processed at least
// one changed feed payload.
func (p *Poller) CheckReadiness(_ context.Context) error {
	if !p.ready.Load() {
		return errors.New("poller has not processed telemetry yet")
	}
	return nil
}

// Run executes the poll loop until the context is cancelled.
func (p *Poller) Run(ctx context.Context) error {
	p.logger.Info("telemetry poller started", "interval", p.cfg.Interval)
	p.metrics.PollerRunning.Set(1)
	defer p.metrics.PollerRunning.Set(0)

	for {
		wait := p.cfg.Interval
		if p.cfg.DayEndDetection && p.dayHasEnded() {
			// Frozen feed outside operating hours: no fetch, slow cadence.
			wait = p.cfg.DayEndInterval
		} else {
			p.tick(ctx)
			if p.dayEnded {
				wait = p.cfg.DayEndInterval
			}
		}

		if !waitNext(ctx, p.clock, wait) {
			p.logger.Info("telemetry poller stopping", "reason", ctx.Err())
			return nil
		}
	}
}

// dayHasEnded flags the stale window: outside operating hours with no new
// telemetry for longer than the idle threshold.
func (p *Poller) dayHasEnded() bool {
	now := p.clock.Now().UTC()
	outsideHours := now.Hour() < p.cfg.DayStartHourUTC || now.Hour() >= p.cfg.DayEndHourUTC
	if outsideHours && now.Sub(p.lastTelemetryAt) > p.cfg.DayEndIdle {
		if !p.dayEnded {
			p.logger.Info("day ended, slowing poll cadence", "last_telemetry_at", p.lastTelemetryAt)
		}
		p.dayEnded = true
		return true
	}
	return false
}

func (p *Poller) tick(ctx context.Context) {
	start := p.clock.Now()

	raw, err := p.feed.Fetch(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		p.metrics.PollErrors.Inc()
		p.logger.Warn("timing feed fetch failed", "error", err)
		return
	}
	p.metrics.PollsTotal.Inc()

	sum := sha256.Sum256(raw)
	fingerprint := hex.EncodeToString(sum[:])
	if fingerprint == p.prevFingerprint {
		p.metrics.PollsUnchanged.Inc()
		return
	}
	p.prevFingerprint = fingerprint
	p.lastTelemetryAt = p.clock.Now().UTC()

	feed, err := domain.ParseFeed(raw)
	if err != nil {
		p.metrics.PollErrors.Inc()
		p.logger.Warn("timing feed parse failed", "error", err)
		return
	}

	if p.dayEnded && p.lastSession == feed.HeadInfo.Number {
		// The feed changed but still shows the stale session; do not
		// re-ingest a frozen day.
		return
	}
	if p.dayEnded {
		p.logger.Info("new session observed, resuming normal cadence", "session", feed.HeadInfo.Number)
		p.dayEnded = false
	}
	p.lastSession = feed.HeadInfo.Number

	day := domain.DayOf(p.clock.Now())
	for _, row := range feed.Results {
		entry, err := domain.ParseLapRow(feed.HeadInfo, row)
		if err != nil {
			p.metrics.RowsRejected.Inc()
			p.logger.Warn("dropping unparseable feed row", "error", err)
			continue
		}
		p.metrics.RowsParsed.Inc()

		if err := p.store.SaveLap(ctx, day, entry); err != nil {
			p.logger.Error("lap save failed",
				"error", err,
				"session", entry.Session,
				"kart", entry.Kart,
				"lap", entry.Lap,
			)
			continue
		}
	}

	p.metrics.PollDuration.Observe(p.clock.Since(start).Seconds())
	p.ready.Store(true)
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
