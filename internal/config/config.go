package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
)

// Track operating hours in UTC, used by the optional day-end detection.
// The track opens at 9 AM and closes at 11 PM local time.
const (
	defaultDayStartHourUTC = 5
	defaultDayEndHourUTC   = 19
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	DBPath string

	// Timing feed polling.
	TimingURL          string
	TimingTimeout      time.Duration
	TimingPollInterval time.Duration
	MinLapTime         decimal.Decimal

	// Day/session boundary detection. Disabled by default: the check is
	// present but switched off in production while the zero-session-day
	// edge case is unresolved.
	DayEndDetection    bool
	DayEndIdle         time.Duration
	DayEndPollInterval time.Duration
	DayStartHourUTC    int
	DayEndHourUTC      int

	// Weather feed polling (enabled when an API key is configured).
	WeatherEnabled      bool
	WeatherAPIKey       string
	WeatherQuery        string
	WeatherTimeout      time.Duration
	WeatherPollInterval time.Duration

	// Live lap fan-out (enabled when a NATS URL is configured).
	NATSURL     string
	NATSSubject string
}

// Load reads configuration from environment variables, applying defaults
// where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := durationOrDefault("SHUTDOWN_TIMEOUT", 10*time.Second)
	if err != nil {
		return nil, err
	}
	timingTimeout, err := durationOrDefault("TIMING_TIMEOUT", 10*time.Second)
	if err != nil {
		return nil, err
	}
	timingInterval, err := durationOrDefault("TIMING_POLL_INTERVAL", 3*time.Second)
	if err != nil {
		return nil, err
	}
	dayEndIdle, err := durationOrDefault("DAY_END_IDLE", 90*time.Minute)
	if err != nil {
		return nil, err
	}
	dayEndInterval, err := durationOrDefault("DAY_END_POLL_INTERVAL", 5*time.Minute)
	if err != nil {
		return nil, err
	}
	weatherTimeout, err := durationOrDefault("WEATHER_TIMEOUT", 10*time.Second)
	if err != nil {
		return nil, err
	}
	weatherInterval, err := durationOrDefault("WEATHER_POLL_INTERVAL", time.Minute)
	if err != nil {
		return nil, err
	}

	minLapTime, err := decimalOrDefault("MIN_LAP_TIME", decimal.Zero)
	if err != nil {
		return nil, err
	}

	dayStartHour, err := hourOrDefault("DAY_START_HOUR_UTC", defaultDayStartHourUTC)
	if err != nil {
		return nil, err
	}
	dayEndHour, err := hourOrDefault("DAY_END_HOUR_UTC", defaultDayEndHourUTC)
	if err != nil {
		return nil, err
	}

	weatherKey := os.Getenv("WEATHER_API_KEY")
	weatherEnabled := weatherKey != ""
	if v := os.Getenv("WEATHER_ENABLED"); v != "" {
		weatherEnabled = v == "true"
	}

	cfg := &Config{
		HTTPAddr:        envOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:        envOrDefault("LOG_LEVEL", "info"),
		LogFormat:       envOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,

		DBPath: envOrDefault("DB_PATH", "data.db"),

		TimingURL:          envOrDefault("TIMING_URL", "https://kart-timer.com/drivers/ajax.php?p=livescreen&track=110&target=updaterace"),
		TimingTimeout:      timingTimeout,
		TimingPollInterval: timingInterval,
		MinLapTime:         minLapTime,

		DayEndDetection:    os.Getenv("DAY_END_DETECTION") == "true",
		DayEndIdle:         dayEndIdle,
		DayEndPollInterval: dayEndInterval,
		DayStartHourUTC:    dayStartHour,
		DayEndHourUTC:      dayEndHour,

		WeatherEnabled:      weatherEnabled,
		WeatherAPIKey:       weatherKey,
		WeatherQuery:        envOrDefault("WEATHER_QUERY", "Batumi"),
		WeatherTimeout:      weatherTimeout,
		WeatherPollInterval: weatherInterval,

		NATSURL:     os.Getenv("NATS_URL"),
		NATSSubject: envOrDefault("NATS_SUBJECT", "karttrack.laps"),
	}

	if cfg.DBPath == "" {
		return nil, errors.New("DB_PATH is required")
	}
	if cfg.TimingURL == "" {
		return nil, errors.New("TIMING_URL is required")
	}
	if cfg.WeatherEnabled && cfg.WeatherAPIKey == "" {
		return nil, errors.New("WEATHER_ENABLED is true but WEATHER_API_KEY is not set")
	}
	if cfg.DayStartHourUTC >= cfg.DayEndHourUTC {
		return nil, errors.New("DAY_START_HOUR_UTC must be before DAY_END_HOUR_UTC")
	}

	return cfg, nil
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func durationOrDefault(key string, def time.Duration) (time.Duration, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return d, nil
}

func decimalOrDefault(key string, def decimal.Decimal) (decimal.Decimal, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid %s", key)
	}
	return d, nil
}

func hourOrDefault(key string, def int) (int, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	h, err := strconv.Atoi(s)
	if err != nil || h < 0 || h > 23 {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return h, nil
}
