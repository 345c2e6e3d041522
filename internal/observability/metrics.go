package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters, histograms, and gauges for the
// telemetry poller, the weather gatherer, and the lap store.
type Metrics struct {
	// Telemetry poller.
	PollsTotal     prometheus.Counter
	PollsUnchanged prometheus.Counter
	PollErrors     prometheus.Counter
	PollDuration   prometheus.Histogram
	RowsParsed     prometheus.Counter
	RowsRejected   prometheus.Counter
	PollerRunning  prometheus.Gauge

	// Lap persistence.
	LapsSaved          prometheus.Counter
	LapsDuplicate      prometheus.Counter
	SessionsCorrelated prometheus.Counter

	// Weather gathering.
	WeatherFetches          prometheus.Counter
	WeatherFetchErrors      prometheus.Counter
	WeatherSamplesStored    prometheus.Counter
	WeatherSamplesUnchanged prometheus.Counter
	WeatherTimelineSize     prometheus.Gauge
	GathererRunning         prometheus.Gauge
}

// NewMetrics creates and registers all service metrics with the default
// Prometheus registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		PollsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "karttrack",
			Name:      "polls_total",
			Help:      "Total timing feed polls that returned a response.",
		}),
		PollsUnchanged: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "karttrack",
			Name:      "polls_unchanged_total",
			Help:      "Polls skipped because the feed content fingerprint was unchanged.",
		}),
		PollErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "karttrack",
			Name:      "poll_errors_total",
			Help:      "Timing feed fetch or top-level parse failures.",
		}),
		PollDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "karttrack",
			Name:      "poll_duration_seconds",
			Help:      "Duration of a complete poll tick including lap saves.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}),
		RowsParsed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "karttrack",
			Name:      "rows_parsed_total",
			Help:      "Feed rows successfully parsed into lap entries.",
		}),
		RowsRejected: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "karttrack",
			Name:      "rows_rejected_total",
			Help:      "Feed rows dropped for missing or malformed fields.",
		}),
		PollerRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "karttrack",
			Name:      "poller_running",
			Help:      "1 when the telemetry poller loop is active.",
		}),
		LapsSaved: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "karttrack",
			Name:      "laps_saved_total",
			Help:      "Lap entries durably persisted for the first time.",
		}),
		LapsDuplicate: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "karttrack",
			Name:      "laps_duplicate_total",
			Help:      "Lap saves dropped as duplicates of an already-seen identity.",
		}),
		SessionsCorrelated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "karttrack",
			Name:      "sessions_correlated_total",
			Help:      "Sessions enriched with a weather snapshot.",
		}),
		WeatherFetches: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "karttrack",
			Name:      "weather_fetches_total",
			Help:      "Successful weather feed fetches.",
		}),
		WeatherFetchErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "karttrack",
			Name:      "weather_fetch_errors_total",
			Help:      "Weather feed fetch or decode failures.",
		}),
		WeatherSamplesStored: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "karttrack",
			Name:      "weather_samples_stored_total",
			Help:      "Weather samples appended to the timeline.",
		}),
		WeatherSamplesUnchanged: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "karttrack",
			Name:      "weather_samples_unchanged_total",
			Help:      "Weather samples discarded because readings were identical to the previous sample.",
		}),
		WeatherTimelineSize: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "karttrack",
			Name:      "weather_timeline_size",
			Help:      "Samples currently held in the in-memory weather timeline.",
		}),
		GathererRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "karttrack",
			Name:      "gatherer_running",
			Help:      "1 when the weather gatherer loop is active.",
		}),
	}

	prometheus.MustRegister(
		m.PollsTotal,
		m.PollsUnchanged,
		m.PollErrors,
		m.PollDuration,
		m.RowsParsed,
		m.RowsRejected,
		m.PollerRunning,
		m.LapsSaved,
		m.LapsDuplicate,
		m.SessionsCorrelated,
		m.WeatherFetches,
		m.WeatherFetchErrors,
		m.WeatherSamplesStored,
		m.WeatherSamplesUnchanged,
		m.WeatherTimelineSize,
		m.GathererRunning,
	)

	return m
}

// NewMetricsForTesting creates Metrics with a fresh registry to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return &Metrics{
		PollsTotal:              prometheus.NewCounter(prometheus.CounterOpts{Namespace: "karttrack", Name: "polls_total"}),
		PollsUnchanged:          prometheus.NewCounter(prometheus.CounterOpts{Namespace: "karttrack", Name: "polls_unchanged_total"}),
		PollErrors:              prometheus.NewCounter(prometheus.CounterOpts{Namespace: "karttrack", Name: "poll_errors_total"}),
		PollDuration:            prometheus.NewHistogram(prometheus.HistogramOpts{Namespace: "karttrack", Name: "poll_duration_seconds"}),
		RowsParsed:              prometheus.NewCounter(prometheus.CounterOpts{Namespace: "karttrack", Name: "rows_parsed_total"}),
		RowsRejected:            prometheus.NewCounter(prometheus.CounterOpts{Namespace: "karttrack", Name: "rows_rejected_total"}),
		PollerRunning:           prometheus.NewGauge(prometheus.GaugeOpts{Namespace: "karttrack", Name: "poller_running"}),
		LapsSaved:               prometheus.NewCounter(prometheus.CounterOpts{Namespace: "karttrack", Name: "laps_saved_total"}),
		LapsDuplicate:           prometheus.NewCounter(prometheus.CounterOpts{Namespace: "karttrack", Name: "laps_duplicate_total"}),
		SessionsCorrelated:      prometheus.NewCounter(prometheus.CounterOpts{Namespace: "karttrack", Name: "sessions_correlated_total"}),
		WeatherFetches:          prometheus.NewCounter(prometheus.CounterOpts{Namespace: "karttrack", Name: "weather_fetches_total"}),
		WeatherFetchErrors:      prometheus.NewCounter(prometheus.CounterOpts{Namespace: "karttrack", Name: "weather_fetch_errors_total"}),
		WeatherSamplesStored:    prometheus.NewCounter(prometheus.CounterOpts{Namespace: "karttrack", Name: "weather_samples_stored_total"}),
		WeatherSamplesUnchanged: prometheus.NewCounter(prometheus.CounterOpts{Namespace: "karttrack", Name: "weather_samples_unchanged_total"}),
		WeatherTimelineSize:     prometheus.NewGauge(prometheus.GaugeOpts{Namespace: "karttrack", Name: "weather_timeline_size"}),
		GathererRunning:         prometheus.NewGauge(prometheus.GaugeOpts{Namespace: "karttrack", Name: "gatherer_running"}),
	}
}
