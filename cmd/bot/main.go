package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"clinicdesk/internal/bot"
	"clinicdesk/internal/clinicapi"
	"clinicdesk/internal/config"
	"clinicdesk/internal/events"
	"clinicdesk/internal/metrics"
	"clinicdesk/internal/session"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

func main() {
	output := zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
	logger := zerolog.New(output).With().Timestamp().Logger()

	if err := config.LoadEnv(); err != nil {
		logger.Fatal().Err(err).Msg("failed to load .env")
	}
	cfgPath := os.Getenv("CLINICDESK_CONFIG")
	cfg, err := config.Load(cfgPath)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}
	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("invalid config")
	}

	client := clinicapi.New(cfg.API.BaseURL, clinicapi.Options{
		Timeout:   cfg.APITimeout(),
		RateLimit: cfg.API.RateLimit,
		RateBurst: cfg.API.RateBurst,
	})
	var rdb *redis.Client
	if cfg.Redis.Address != "" {
		rdb = redis.NewClient(&redis.Options{Addr: cfg.Redis.Address, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
		defer rdb.Close()
		if ttl := cfg.CacheTTL(); ttl > 0 {
			client.UseRedisCache(rdb, ttl)
		}
	}

	var sessions session.Store = session.NewMemoryStore()
	if cfg.Session.Store == "redis" {
		sessions = session.NewRedisStore(rdb, cfg.SessionTTL())
	}

	bus := events.NewBus()
	bus.Subscribe(events.TypeAppointmentAction, func(e events.Event) {
		ev := logger.Info()
		if !e.Succeeded() {
			ev = logger.Warn().Err(e.Err)
		}
		ev.Int64("account_id", e.AccountID).
			Int64("appointment_id", e.AppointmentID).
			Str("action", e.Action).
			Msg("appointment action")
	})
	bus.Subscribe(events.TypeRescheduleDecision, func(e events.Event) {
		logger.Info().
			Int64("account_id", e.AccountID).
			Int64("request_id", e.RequestID).
			Str("decision", e.Action).
			Msg("reschedule decision")
	})

	b, err := bot.New(cfg.Telegram.BotToken, cfg.Telegram.Debug, bot.Deps{
		Auth:     client,
		Backends: bot.ClientFactory(client),
		Sessions: sessions,
		Bus:      bus,
		UI:       cfg.UI,
		Logger:   &logger,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("create bot error")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := config.WatchUI(ctx, cfgPath, cfg.UI.ReloadInterval(), b.SetUI); err != nil {
		logger.Warn().Err(err).Msg("ui hot reload disabled")
	}

	go startHealthServer(ctx, cfg.HealthCheckPort(), client, rdb, &logger)

	if cfg.Monitoring.PrometheusEnabled {
		metrics.Register()
		go startMetricsServer(ctx, cfg.PrometheusPort(), &logger)
	}

	b.StartReminders(ctx)

	logger.Info().Str("api", cfg.API.BaseURL).Msg("clinic bot started")
	b.Start(ctx)
}

func startHealthServer(ctx context.Context, port int, client *clinicapi.Client, rdb *redis.Client, logger *zerolog.Logger) {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.HandleFunc("/readyz", func(w http.ResponseWriter, _ *http.Request) {
		ctxPing, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()
		if err := client.HealthCheck(ctxPing); err != nil {
			http.Error(w, "clinic api not ready", http.StatusServiceUnavailable)
			return
		}
		if rdb != nil {
			if err := rdb.Ping(ctxPing).Err(); err != nil {
				http.Error(w, "redis not ready", http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})

	srv := &http.Server{Addr: fmt.Sprintf(":%d", port), Handler: mux}
	go func() {
		<-ctx.Done()
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctxShutdown)
	}()
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error().Err(err).Msg("health server error")
	}
}

func startMetricsServer(ctx context.Context, port int, logger *zerolog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{Addr: fmt.Sprintf(":%d", port), Handler: mux}
	go func() {
		<-ctx.Done()
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctxShutdown)
	}()
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error().Err(err).Msg("metrics server error")
	}
}
