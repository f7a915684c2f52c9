package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"campusevents/config"
	"campusevents/internal/adapters/notify"
	"campusevents/internal/adapters/sheets"
	"campusevents/internal/domain"
	"campusevents/internal/repository/postgres"
	"campusevents/internal/scheduler"
	"campusevents/internal/services"
)

const serviceTimeout = 10 * time.Second

func main() {
	logger := config.NewLogger()

	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load config", "err", err)
		os.Exit(1)
	}

	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		logger.Error("invalid timezone", "timezone", cfg.Timezone, "err", err)
		os.Exit(1)
	}

	db, err := sql.Open("postgres", cfg.DBUrl)
	if err != nil {
		logger.Error("failed to open database", "err", err)
		os.Exit(1)
	}
	defer db.Close()
	if err := db.Ping(); err != nil {
		logger.Error("failed to ping database", "err", err)
		os.Exit(1)
	}

	ctx := context.Background()
	if err := postgres.CreateTables(ctx, db); err != nil {
		logger.Error("failed to create tables", "err", err)
		os.Exit(1)
	}

	eventRepo := postgres.NewEventRepository(db)
	receiptRepo := postgres.NewReceiptRepository(db)

	clock := domain.NewSystemClock(loc)

	notifier, err := notify.NewNotifier(notify.Config{
		Provider: cfg.NotifyProvider,
		Telegram: notify.TelegramConfig{
			BotToken:    cfg.BotToken,
			MediaChatID: cfg.MediaChatID,
		},
		SES: notify.SESConfig{
			Region:          cfg.SESRegion,
			AccessKeyID:     cfg.SESAccessKeyID,
			SecretAccessKey: cfg.SESSecretAccessKey,
			FromAddress:     cfg.SESFromAddress,
			FromName:        cfg.SESFromName,
			ToAddress:       cfg.SESToAddress,
		},
	}, logger)
	if err != nil {
		logger.Error("failed to create notifier", "err", err)
		os.Exit(1)
	}

	mirror, err := sheets.NewMirror(sheets.Config{
		CredentialsFile: cfg.SheetsCredentialsFile,
		SpreadsheetID:   cfg.SheetsSpreadsheetID,
		SheetName:       cfg.SheetsSheetName,
	}, nil, logger)
	if err != nil {
		logger.Error("failed to create spreadsheet mirror", "err", err)
		os.Exit(1)
	}

	eventService := services.NewEventService(eventRepo, notifier, mirror, clock, logger, serviceTimeout)
	dispatcher := services.NewDispatcher(eventRepo, receiptRepo, notifier, clock, logger)

	sched := scheduler.New(loc, logger)
	if err := sched.AddDispatchJob(cfg.PollInterval, dispatcher); err != nil {
		logger.Error("failed to register dispatch job", "err", err)
		os.Exit(1)
	}
	if err := sched.AddDailySweep(eventService); err != nil {
		logger.Error("failed to register daily sweep", "err", err)
		os.Exit(1)
	}
	sched.Start()

	metricsSrv := &http.Server{Addr: ":" + cfg.MetricsPort, Handler: metricsMux()}
	go func() {
		logger.Info("metrics listener started", "port", cfg.MetricsPort)
		if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics listener failed", "err", err)
		}
	}()

	logger.Info("campusevents started",
		"timezone", cfg.Timezone,
		"poll_interval", cfg.PollInterval.String(),
		"notify_provider", cfg.NotifyProvider,
	)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	logger.Info("signal received, shutting down", "signal", sig.String())

	// Let an in-flight dispatch cycle finish its receipt writes.
	<-sched.Stop().Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := metricsSrv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("metrics listener shutdown failed", "err", err)
	}

	logger.Info("campusevents stopped")
}

func metricsMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	return mux
}
