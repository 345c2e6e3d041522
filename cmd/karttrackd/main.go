package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/jonboulle/clockwork"

	httpadapter "github.com/karttrack/karttrack/internal/adapter/http"
	natsadapter "github.com/karttrack/karttrack/internal/adapter/nats"
	"github.com/karttrack/karttrack/internal/adapter/timing"
	"github.com/karttrack/karttrack/internal/adapter/weatherapi"
	"github.com/karttrack/karttrack/internal/config"
	"github.com/karttrack/karttrack/internal/observability"
	"github.com/karttrack/karttrack/internal/poller"
	"github.com/karttrack/karttrack/internal/storage"
	"github.com/karttrack/karttrack/internal/weather"
)

func main() {
	_ = godotenv.Load() // .env is optional

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg.LogLevel, cfg.LogFormat)
	metrics := observability.NewMetrics()
	clock := clockwork.NewRealClock()

	weatherStore := weather.NewStore()

	// Live lap fan-out (feature-flagged via NATS_URL).
	var publisher storage.LapPublisher
	var natsPub *natsadapter.Publisher
	if cfg.NATSURL != "" {
		natsPub, err = natsadapter.Connect(cfg.NATSURL, cfg.NATSSubject, logger)
		if err != nil {
			logger.Error("failed to connect to nats", "error", err)
			os.Exit(1)
		}
		publisher = natsPub
		logger.Info("live lap fan-out enabled", "subject", cfg.NATSSubject)
	} else {
		logger.Info("live lap fan-out disabled")
	}

	repo, err := storage.Open(cfg.DBPath, weatherStore, logger, metrics, storage.Options{
		MinLapTime: cfg.MinLapTime,
		Publisher:  publisher,
	})
	if err != nil {
		logger.Error("failed to open database", "error", err, "path", cfg.DBPath)
		os.Exit(1)
	}

	feed := timing.NewClient(cfg.TimingURL, cfg.TimingTimeout, logger)
	p := poller.New(feed, repo, poller.Config{
		Interval:        cfg.TimingPollInterval,
		DayEndDetection: cfg.DayEndDetection,
		DayEndIdle:      cfg.DayEndIdle,
		DayEndInterval:  cfg.DayEndPollInterval,
		DayStartHourUTC: cfg.DayStartHourUTC,
		DayEndHourUTC:   cfg.DayEndHourUTC,
	}, clock, logger, metrics)

	srv := httpadapter.NewServer(cfg.HTTPAddr, p, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Start HTTP server.
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	// Start weather gathering (feature-flagged via WEATHER_API_KEY).
	if cfg.WeatherEnabled {
		source := weatherapi.NewClient(cfg.WeatherAPIKey, cfg.WeatherQuery, cfg.WeatherTimeout, logger)
		g := weather.NewGatherer(source, weatherStore, cfg.WeatherPollInterval, clock, logger, metrics)
		go func() {
			if err := g.Run(ctx); err != nil {
				logger.Error("weather gatherer error", "error", err)
			}
		}()
	} else {
		logger.Info("weather gathering disabled")
	}

	// Start telemetry polling.
	go func() {
		if err := p.Run(ctx); err != nil {
			logger.Error("telemetry poller error", "error", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	if natsPub != nil {
		if err := natsPub.Close(); err != nil {
			logger.Error("nats close error", "error", err)
		}
	}
	if err := repo.Close(); err != nil {
		logger.Error("database close error", "error", err)
	}

	logger.Info("shutdown complete")
}
