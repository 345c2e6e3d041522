// Package storage persists lap telemetry and session metadata in an
// embedded SQLite database and guarantees idempotent lap writes.
//
// Deduplication is two-layered. An in-memory identity cache drops repeats
// cheaply within a process lifetime; it is rebuilt from nothing at startup
// and deliberately never reloaded from disk. The UNIQUE index on the lap
// identity tuple is the second line of defense, so re-ingesting an
// already-durable lap after a restart is a no-op rather than an error.
package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite"

	"github.com/karttrack/karttrack/internal/domain"
	"github.com/karttrack/karttrack/internal/observability"
)

// ErrInvalidSessionInfo rejects a session update that carries no fields.
var ErrInvalidSessionInfo = errors.New("session info update carries no fields")

// WeatherLookup resolves the most recent weather sample captured strictly
// before a timestamp.
type WeatherLookup interface {
	MostRecentBefore(t time.Time) (domain.WeatherSample, bool)
}

// LapPublisher fans out freshly persisted laps to live consumers.
type LapPublisher interface {
	PublishLap(entry domain.LapEntry) error
}

// Options tunes the repository.
type Options struct {
	// MinLapTime rejects laps below a plausibility threshold. Zero accepts
	// everything; upstream times are occasionally skewed and no reliable
	// filter exists.
	MinLapTime decimal.Decimal
	// Publisher, when set, receives every newly persisted lap. Best effort.
	Publisher LapPublisher
}

// Repository is the lap deduplication and persistence store.
type Repository struct {
	db         *sql.DB
	weather    WeatherLookup
	logger     *slog.Logger
	metrics    *observability.Metrics
	minLapTime decimal.Decimal
	publisher  LapPublisher

	// mu guards the process-lifetime caches. corrMu serializes the
	// correlate-once gate so concurrent first arrivals for the same brand-new
	// session cannot race.
	mu         sync.Mutex
	corrMu     sync.Mutex
	seen       map[domain.LapIdentity]struct{}
	correlated map[string]struct{}
}

// Open opens or creates the SQLite database at path and prepares the schema.
func Open(
	path string,
	weather WeatherLookup,
	logger *slog.Logger,
	metrics *observability.Metrics,
	opts Options,
) (*Repository, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// WAL lets the read endpoints query while the poller writes.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("enable WAL: %w", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout=5000"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set busy timeout: %w", err)
	}

	if err := createSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	return &Repository{
		db:         db,
		weather:    weather,
		logger:     logger,
		metrics:    metrics,
		minLapTime: opts.MinLapTime,
		publisher:  opts.Publisher,
		seen:       make(map[domain.LapIdentity]struct{}),
		correlated: make(map[string]struct{}),
	}, nil
}

// Close closes the database connection.
func (r *Repository) Close() error {
	return r.db.Close()
}

func createSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS data (
		session_id TEXT NOT NULL,
		day TEXT NOT NULL,
		recorded_at_utc TEXT NOT NULL,
		session INTEGER NOT NULL,
		total_length TEXT NOT NULL,
		kart TEXT NOT NULL,
		lap INTEGER NOT NULL,
		time NUMERIC NOT NULL
	);

	CREATE UNIQUE INDEX IF NOT EXISTS idx_data_identity ON data(day, session, kart, lap);
	CREATE INDEX IF NOT EXISTS idx_data_session_id ON data(session_id);
	CREATE INDEX IF NOT EXISTS idx_data_day ON data(day);
	CREATE INDEX IF NOT EXISTS idx_data_time ON data(time);

	CREATE TABLE IF NOT EXISTS session (
		id TEXT NOT NULL,
		weather INTEGER,
		sky INTEGER,
		wind INTEGER,
		air_temp TEXT,
		track_temp TEXT,
		track_temp_approximation INTEGER,
		track_config INTEGER,
		weather_data TEXT
	);

	CREATE UNIQUE INDEX IF NOT EXISTS idx_session_id ON session(id);
	CREATE INDEX IF NOT EXISTS idx_session_weather ON session(weather);
	CREATE INDEX IF NOT EXISTS idx_session_track_config ON session(track_config);
	`

	_, err := db.Exec(schema)
	return err
}
