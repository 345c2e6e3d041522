package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/karttrack/karttrack/internal/domain"
)

// SaveLap persists one lap idempotently. Duplicates of an already-seen
// identity are silently dropped. The first lap of each distinct session also
// triggers the weather correlation, exactly once per session id; correlation
// failures never prevent the lap itself from being persisted.
func (r *Repository) SaveLap(ctx context.Context, day domain.Day, entry domain.LapEntry) error {
	if entry.Time.LessThan(r.minLapTime) {
		return nil
	}

	identity := entry.Identity(day)
	r.mu.Lock()
	_, dup := r.seen[identity]
	r.mu.Unlock()
	if dup {
		r.metrics.LapsDuplicate.Inc()
		return nil
	}

	r.correlateSession(ctx, entry)

	res, err := r.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO data (session_id, day, recorded_at_utc, session, total_length, kart, lap, time)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.SessionID(),
		string(day),
		entry.RecordedAt.UTC().Format(time.RFC3339Nano),
		entry.Session,
		entry.TotalLength,
		entry.Kart,
		entry.Lap,
		entry.Time.String(),
	)
	if err != nil {
		return fmt.Errorf("insert lap: %w", err)
	}

	r.mu.Lock()
	r.seen[identity] = struct{}{}
	r.mu.Unlock()

	inserted, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("insert lap result: %w", err)
	}
	if inserted == 0 {
		// Already durable from a previous run; the cache just hadn't seen it.
		r.metrics.LapsDuplicate.Inc()
		return nil
	}
	r.metrics.LapsSaved.Inc()

	if r.publisher != nil {
		if err := r.publisher.PublishLap(entry); err != nil {
			r.logger.Warn("lap fan-out failed",
				"error", err,
				"session_id", entry.SessionID(),
				"kart", entry.Kart,
				"lap", entry.Lap,
			)
		}
	}
	return nil
}

// correlateSession pairs a session with the weather observed just before its
// first lap. Runs at most once per session id: the id is marked handled even
// when no sample exists, because older or backfilled sessions will never get
// one and retrying indefinitely wastes work. All errors are absorbed.
func (r *Repository) correlateSession(ctx context.Context, entry domain.LapEntry) {
	sessionID := entry.SessionID()

	r.mu.Lock()
	_, done := r.correlated[sessionID]
	r.mu.Unlock()
	if done {
		return
	}

	r.corrMu.Lock()
	defer r.corrMu.Unlock()

	r.mu.Lock()
	_, done = r.correlated[sessionID]
	r.mu.Unlock()
	if done {
		return
	}
	defer func() {
		r.mu.Lock()
		r.correlated[sessionID] = struct{}{}
		r.mu.Unlock()
	}()

	sample, ok := r.weather.MostRecentBefore(entry.RecordedAt)
	if !ok {
		return
	}

	raw, err := json.Marshal(sample)
	if err != nil {
		r.logger.Warn("serialize weather sample failed", "error", err, "session_id", sessionID)
		return
	}

	info := domain.ClassifySession(sample)
	if err := r.UpdateSessionInfo(ctx, sessionID, info, string(raw)); err != nil {
		r.logger.Warn("session weather correlation failed", "error", err, "session_id", sessionID)
		return
	}
	r.metrics.SessionsCorrelated.Inc()
	r.logger.Info("session correlated with weather",
		"session_id", sessionID,
		"weather", int(*info.Weather),
		"sky", int(*info.Sky),
		"wind", int(*info.Wind),
	)
}

// HistoryForDay returns all laps recorded on the given calendar day.
func (r *Repository) HistoryForDay(ctx context.Context, day domain.Day) ([]domain.LapEntry, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT recorded_at_utc, session, total_length, kart, lap, time
		FROM data
		WHERE day = ?`,
		string(day),
	)
	if err != nil {
		return nil, fmt.Errorf("query laps for day: %w", err)
	}
	defer rows.Close()
	return scanLaps(rows)
}

// TopTimes returns the n globally fastest laps.
func (r *Repository) TopTimes(ctx context.Context, n int) ([]domain.LapEntry, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT recorded_at_utc, session, total_length, kart, lap, time
		FROM data
		ORDER BY time
		LIMIT ?`,
		n,
	)
	if err != nil {
		return nil, fmt.Errorf("query top times: %w", err)
	}
	defer rows.Close()
	return scanLaps(rows)
}

// HistoryForSession returns all laps belonging to the given session id.
func (r *Repository) HistoryForSession(ctx context.Context, sessionID string) ([]domain.LapEntry, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT recorded_at_utc, session, total_length, kart, lap, time
		FROM data
		WHERE session_id = ?`,
		sessionID,
	)
	if err != nil {
		return nil, fmt.Errorf("query laps for session: %w", err)
	}
	defer rows.Close()
	return scanLaps(rows)
}

func scanLaps(rows *sql.Rows) ([]domain.LapEntry, error) {
	var laps []domain.LapEntry
	for rows.Next() {
		var (
			recordedAt  string
			session     int
			totalLength string
			kart        string
			lap         int
			lapTime     float64
		)
		if err := rows.Scan(&recordedAt, &session, &totalLength, &kart, &lap, &lapTime); err != nil {
			return nil, fmt.Errorf("scan lap row: %w", err)
		}
		ts, err := time.Parse(time.RFC3339Nano, recordedAt)
		if err != nil {
			return nil, fmt.Errorf("parse lap timestamp %q: %w", recordedAt, err)
		}
		laps = append(laps, domain.LapEntry{
			RecordedAt:  ts,
			Session:     session,
			TotalLength: totalLength,
			Kart:        kart,
			Lap:         lap,
			Time:        decimal.NewFromFloat(lapTime),
		})
	}
	return laps, rows.Err()
}
