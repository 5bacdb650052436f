package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/AWS-JaeminJung/sauna-app/internal/bot"
	"github.com/AWS-JaeminJung/sauna-app/internal/config"
	"github.com/AWS-JaeminJung/sauna-app/internal/db"
	"github.com/AWS-JaeminJung/sauna-app/internal/google"
	"github.com/AWS-JaeminJung/sauna-app/internal/metrics"
	"github.com/AWS-JaeminJung/sauna-app/internal/saunaapi"
)

func main() {
	configPath := os.Getenv("SAUNA_CONFIG_PATH")
	if configPath == "" {
		configPath = "configs/config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		boot := zerolog.New(os.Stderr).With().Timestamp().Logger()
		boot.Fatal().Err(err).Msg("failed to load config")
	}

	logger := newLogger(cfg)

	if cfg.Telegram.BotToken == "" || cfg.Telegram.BotToken == "YOUR_BOT_TOKEN_HERE" {
		logger.Fatal().Msg("set telegram.bot_token in config")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dbLogger := logger.With().Str("component", "db").Logger()
	database, err := db.NewDB(cfg.Database.Path, &dbLogger)
	if err != nil {
		logger.Fatal().Err(err).Msg("open db error")
	}
	defer database.Close()

	client := saunaapi.NewClient(cfg.API.BaseURL, cfg.APITimeout())
	client.UseLogger(logger)
	client.UseRateLimit(cfg.API.RateLimitRPS, cfg.API.RateLimitBurst)
	var rdb *redis.Client
	if cfg.Redis.Address != "" && cfg.CacheTTL() > 0 {
		rdb = redis.NewClient(&redis.Options{Addr: cfg.Redis.Address, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
		defer rdb.Close()
		client.UseRedisCache(rdb, cfg.CacheTTL())
	}

	opts := bot.Options{
		Admins:            cfg.Admins,
		SessionTimeout:    cfg.SessionTimeout(),
		UserRate:          cfg.Booking.UserRatePerSecond,
		UserBurst:         cfg.Booking.UserBurst,
		SaunaPageSize:     cfg.Booking.SaunaPageSize,
		RevenuePeriodDays: cfg.Report.RevenuePeriodDays,
		RecentLimit:       cfg.Report.RecentLimit,
		ReportDir:         cfg.Report.Dir,
		Debug:             cfg.Telegram.Debug,
	}

	if cfg.Google.Enabled {
		sheetsLogger := logger.With().Str("component", "sheets").Logger()
		sheets, err := google.NewSheetsService(ctx, cfg.Google.CredentialsFile, cfg.Google.SpreadsheetID,
			cfg.Google.BookingsSheet, cfg.Google.ReportSheet, sheetsLogger)
		if err != nil {
			logger.Error().Err(err).Msg("google sheets disabled")
		} else {
			if err := sheets.TestConnection(ctx); err != nil {
				logger.Warn().Err(err).Msg("google sheets connection check failed")
			}
			opts.Sheets = sheets
			worker := google.NewSyncWorker(database, sheets, cfg.SyncInterval(), sheetsLogger)
			go worker.Run(ctx)
		}
	}

	b, err := bot.New(cfg.Telegram.BotToken, client, database, opts, &logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("create bot error")
	}

	if err := config.Watch(ctx, configPath, 30*time.Second, func(c *config.Config) {
		b.SetAdmins(c.Admins)
		logger.Info().Int("admins", len(c.Admins)).Msg("config reloaded")
	}); err != nil {
		logger.Warn().Err(err).Msg("config watch disabled")
	}

	if cfg.Backup.Enabled {
		backupLogger := logger.With().Str("component", "backup").Logger()
		backups := db.NewBackupService(database, cfg.Backup.Path, cfg.BackupInterval(), cfg.BackupRetention(), &backupLogger)
		go backups.Start(ctx)
	}

	go startHealthServer(ctx, cfg.Monitoring.HealthCheckPort, database, rdb, client, &logger)

	if cfg.Monitoring.PrometheusEnabled {
		metrics.Register()
		go startMetricsServer(ctx, cfg.Monitoring.PrometheusPort, &logger)
	}

	logger.Info().Msg("Sauna bot started")
	b.Start(ctx)
}

func newLogger(cfg *config.Config) zerolog.Logger {
	zerolog.SetGlobalLevel(cfg.LogLevel())
	if cfg.Logging.JSON {
		return zerolog.New(os.Stdout).With().Timestamp().Logger()
	}
	output := zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
	return zerolog.New(output).With().Timestamp().Logger()
}

func startHealthServer(ctx context.Context, port int, database *db.DB, rdb *redis.Client, api *saunaapi.Client, logger *zerolog.Logger) {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.HandleFunc("/readyz", func(w http.ResponseWriter, _ *http.Request) {
		ctxPing, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()
		if err := database.PingContext(ctxPing); err != nil {
			http.Error(w, "db not ready", http.StatusServiceUnavailable)
			return
		}
		if rdb != nil {
			if err := rdb.Ping(ctxPing).Err(); err != nil {
				http.Error(w, "redis not ready", http.StatusServiceUnavailable)
				return
			}
		}
		if err := api.HealthCheck(ctxPing); err != nil {
			http.Error(w, "api not ready", http.StatusServiceUnavailable)
			return
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
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
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
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error().Err(err).Msg("metrics server error")
	}
}
