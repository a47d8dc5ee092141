package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/medports/portwatch/internal/clients/anp"
	"github.com/medports/portwatch/internal/config"
	"github.com/medports/portwatch/internal/database"
	"github.com/medports/portwatch/internal/events"
	"github.com/medports/portwatch/internal/jobs"
	"github.com/medports/portwatch/internal/modules/history"
	"github.com/medports/portwatch/internal/modules/reconcile"
	"github.com/medports/portwatch/internal/modules/report"
	"github.com/medports/portwatch/internal/notify"
	"github.com/medports/portwatch/internal/scheduler"
	"github.com/medports/portwatch/internal/server"
	"github.com/medports/portwatch/internal/statestore"
	"github.com/medports/portwatch/pkg/logger"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fallback := logger.New(logger.Config{Level: "info", Pretty: true})
		fallback.Fatal().Err(err).Msg("Failed to load configuration")
	}

	// Initialize logger
	log := logger.New(logger.Config{
		Level:  cfg.LogLevel,
		Pretty: cfg.DevMode,
	})
	logger.SetGlobalLogger(log)

	log.Info().
		Strs("ports", cfg.AllowedPorts).
		Str("mode", string(cfg.RunMode)).
		Msg("Starting portwatch")

	// Initialize archive database
	db, err := database.New(cfg.DatabasePath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize database")
	}
	defer db.Close()

	if err := db.Migrate(); err != nil {
		log.Fatal().Err(err).Msg("Failed to run migrations")
	}

	// Wire the core
	eventManager := events.NewManager(log)
	states := statestore.New(cfg.StatePath, log)
	archive := history.NewRepository(db.Conn(), log)
	feed := anp.NewClient(cfg.FeedURL, log)
	normalizer := reconcile.NewNormalizer(cfg.AllowedPorts, log)
	engine := reconcile.NewEngine(reconcile.NewGhostPolicy(cfg.GhostRetentionHours), log)
	aggregator := report.NewAggregator(log)

	var notifier notify.Notifier = notify.Nop{}
	if cfg.EmailEnabled && cfg.EmailUser != "" && cfg.EmailTo != "" {
		notifier = notify.NewMailer(notify.MailerConfig{
			Host: cfg.SMTPHost,
			Port: cfg.SMTPPort,
			User: cfg.EmailUser,
			Pass: cfg.EmailPass,
			To:   cfg.EmailTo,
		}, log)
	} else {
		log.Info().Msg("Email delivery disabled")
	}

	monitorJob := jobs.NewMonitorJob(feed, normalizer, engine, states, archive, notifier, eventManager, log)
	reportJob := jobs.NewReportJob(archive, aggregator, notifier, eventManager, log)

	// Initialize scheduler
	sched := scheduler.New(log)

	if err := sched.AddJob(cfg.MonitorSchedule, monitorJob); err != nil {
		log.Fatal().Err(err).Msg("Failed to register monitor job")
	}
	if err := sched.AddJob(cfg.ReportSchedule, reportJob); err != nil {
		log.Fatal().Err(err).Msg("Failed to register report job")
	}

	sched.Start()
	defer sched.Stop()

	// Kick off the configured mode once at startup so a restart does not
	// wait for the next cron tick
	go func() {
		switch cfg.RunMode {
		case config.ModeReport:
			if err := sched.RunNow(reportJob); err != nil {
				log.Error().Err(err).Msg("Initial report run failed")
			}
		default:
			if err := sched.RunNow(monitorJob); err != nil {
				log.Error().Err(err).Msg("Initial monitor run failed")
			}
		}
	}()

	// Initialize HTTP server
	srv := server.New(server.Config{
		Port:       cfg.Port,
		Log:        log,
		States:     states,
		Archive:    archive,
		MonitorJob: monitorJob,
		ReportJob:  reportJob,
		Config:     cfg,
		DevMode:    cfg.DevMode,
	})

	go func() {
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	log.Info().Int("port", cfg.Port).Msg("Server started successfully")

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Stopped")
}
