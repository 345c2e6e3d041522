package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/karttrack/karttrack/internal/domain"
)

// UpdateSessionInfo merges the non-nil fields of info into the session row,
// creating it when absent. Nil fields are left untouched, so the automatic
// weather path and the later human-entry path never clobber each other's
// columns. An update with no fields at all returns ErrInvalidSessionInfo.
func (r *Repository) UpdateSessionInfo(ctx context.Context, sessionID string, info domain.SessionInfo, rawWeather string) error {
	if info.IsZero() {
		return ErrInvalidSessionInfo
	}

	cols := []string{"id"}
	args := []any{sessionID}
	add := func(col string, v any) {
		cols = append(cols, col)
		args = append(args, v)
	}

	if rawWeather != "" {
		add("weather_data", rawWeather)
	}
	if info.Weather != nil {
		add("weather", int(*info.Weather))
	}
	if info.Sky != nil {
		add("sky", int(*info.Sky))
	}
	if info.Wind != nil {
		add("wind", int(*info.Wind))
	}
	if info.AirTempC != nil {
		add("air_temp", info.AirTempC.String())
	}
	if info.TrackTempC != nil {
		add("track_temp", info.TrackTempC.String())
	}
	if info.TrackTempApproximation != nil {
		add("track_temp_approximation", int(*info.TrackTempApproximation))
	}
	if info.TrackConfig != nil {
		add("track_config", int(*info.TrackConfig))
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(cols)), ", ")
	assignments := make([]string, 0, len(cols)-1)
	for _, col := range cols[1:] {
		assignments = append(assignments, fmt.Sprintf("%s = excluded.%s", col, col))
	}

	query := fmt.Sprintf(
		"INSERT INTO session (%s) VALUES (%s) ON CONFLICT(id) DO UPDATE SET %s",
		strings.Join(cols, ", "),
		placeholders,
		strings.Join(assignments, ", "),
	)

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("upsert session info: %w", err)
	}
	return nil
}

// SessionInfo returns the stored metadata for a session id, or nil when the
// session has none yet.
func (r *Repository) SessionInfo(ctx context.Context, sessionID string) (*domain.SessionInfo, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT weather, sky, wind, air_temp, track_temp, track_temp_approximation, track_config
		FROM session
		WHERE id = ?`,
		sessionID,
	)

	var (
		weather, sky, wind sql.NullInt64
		airTemp, trackTemp sql.NullString
		tempApprox, config sql.NullInt64
	)
	err := row.Scan(&weather, &sky, &wind, &airTemp, &trackTemp, &tempApprox, &config)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query session info: %w", err)
	}

	var info domain.SessionInfo
	if weather.Valid {
		v := domain.WeatherKind(weather.Int64)
		info.Weather = &v
	}
	if sky.Valid {
		v := domain.SkyKind(sky.Int64)
		info.Sky = &v
	}
	if wind.Valid {
		v := domain.WindKind(wind.Int64)
		info.Wind = &v
	}
	if airTemp.Valid {
		v, err := decimal.NewFromString(airTemp.String)
		if err != nil {
			return nil, fmt.Errorf("parse air temperature %q: %w", airTemp.String, err)
		}
		info.AirTempC = &v
	}
	if trackTemp.Valid {
		v, err := decimal.NewFromString(trackTemp.String)
		if err != nil {
			return nil, fmt.Errorf("parse track temperature %q: %w", trackTemp.String, err)
		}
		info.TrackTempC = &v
	}
	if tempApprox.Valid {
		v := domain.TrackTemp(tempApprox.Int64)
		info.TrackTempApproximation = &v
	}
	if config.Valid {
		v := domain.TrackConfig(config.Int64)
		info.TrackConfig = &v
	}
	return &info, nil
}
