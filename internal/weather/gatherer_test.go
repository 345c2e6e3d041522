package weather

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/karttrack/karttrack/internal/domain"
	"github.com/karttrack/karttrack/internal/observability"
)

type queueSource struct {
	samples []domain.WeatherSample
	errs    []error
	i       int
	fetched chan struct{}
}

func (q *queueSource) Current(_ context.Context) (domain.WeatherSample, error) {
	defer func() {
		q.i++
		if q.fetched != nil {
			q.fetched <- struct{}{}
		}
	}()
	if q.i < len(q.errs) && q.errs[q.i] != nil {
		return domain.WeatherSample{}, q.errs[q.i]
	}
	return q.samples[q.i], nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testSample(capturedAt time.Time, tempC string) domain.WeatherSample {
	return domain.WeatherSample{
		CapturedAt: capturedAt,
		TempC:      decimal.RequireFromString(tempC),
	}
}

func newTestGatherer(src Source, store *Store, clk clockwork.Clock) *Gatherer {
	return NewGatherer(src, store, time.Minute, clk, testLogger(), observability.NewMetricsForTesting())
}

func TestGathererStoresOnlyChangedSamples(t *testing.T) {
	now := time.Date(2024, time.April, 26, 12, 0, 0, 0, time.UTC)
	src := &queueSource{samples: []domain.WeatherSample{
		testSample(now, "21.5"),
		testSample(now.Add(time.Minute), "21.5"), // same readings, later timestamp
		testSample(now.Add(2*time.Minute), "22"),
	}}
	store := NewStore()
	g := newTestGatherer(src, store, clockwork.NewFakeClock())

	ctx := context.Background()
	g.tick(ctx)
	g.tick(ctx)
	g.tick(ctx)

	require.Equal(t, 2, store.Len())
	got, ok := store.MostRecentBefore(now.Add(time.Hour))
	require.True(t, ok)
	assert.Equal(t, now.Add(2*time.Minute), got.CapturedAt)
}

func TestGathererAbsorbsFetchErrors(t *testing.T) {
	now := time.Date(2024, time.April, 26, 12, 0, 0, 0, time.UTC)
	src := &queueSource{
		samples: []domain.WeatherSample{{}, testSample(now, "21.5")},
		errs:    []error{errors.New("upstream down"), nil},
	}
	store := NewStore()
	g := newTestGatherer(src, store, clockwork.NewFakeClock())

	ctx := context.Background()
	g.tick(ctx)
	assert.Equal(t, 0, store.Len())

	// The error did not poison the dedup state; the next sample stores.
	g.tick(ctx)
	assert.Equal(t, 1, store.Len())
}

func TestGathererRunKeepsFixedCadence(t *testing.T) {
	now := time.Date(2024, time.April, 26, 12, 0, 0, 0, time.UTC)
	src := &queueSource{
		samples: []domain.WeatherSample{
			testSample(now, "21.5"),
			{},
			testSample(now.Add(2*time.Minute), "22"),
		},
		errs:    []error{nil, errors.New("flaky"), nil},
		fetched: make(chan struct{}, 8),
	}
	store := NewStore()
	clk := clockwork.NewFakeClock()
	g := newTestGatherer(src, store, clk)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = g.Run(ctx)
	}()

	// First fetch fires immediately, before any wait.
	<-src.fetched
	require.NoError(t, clk.BlockUntilContext(ctx, 1))

	// An error tick waits the same full interval as a success tick.
	clk.Advance(time.Minute)
	<-src.fetched
	require.NoError(t, clk.BlockUntilContext(ctx, 1))

	clk.Advance(time.Minute)
	<-src.fetched
	require.NoError(t, clk.BlockUntilContext(ctx, 1))

	cancel()
	<-done

	assert.Equal(t, 2, store.Len())
}
