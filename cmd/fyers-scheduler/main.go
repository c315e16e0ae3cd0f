package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"

	"fyersbot/go_src/configuration"
	"fyersbot/go_src/fyers_app"
	"fyersbot/go_src/logging_helper"
	"fyersbot/go_src/scheduler"

	"github.com/sirupsen/logrus"
)

const appName = "fyers-scheduler"

// newJobs wires the app into the daily jobs. The store stays open for the life of the process.
func newJobs(app *fyers_app.App) (*scheduler.Jobs, error) {
	pipeline, err := app.Pipeline()
	if err != nil {
		return nil, err
	}
	store, err := app.OpenStore(false)
	if err != nil {
		return nil, err
	}
	updater, err := app.Updater(pipeline, store)
	if err != nil {
		return nil, err
	}
	return &scheduler.Jobs{
		Auth:        app.Auth,
		Cache:       app.Cache,
		Updater:     updater,
		Symbols:     app.Symbols,
		ParquetPath: app.Config.History.ParquetPath,
		Notifier:    app.Notifier,
	}, nil
}

func main() {
	log.Printf("Starting %s application...", appName)

	configPath := configuration.ConfigPath()
	cfg, err := configuration.LoadConfig(configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration from %s: %v", configPath, err)
	}
	if err := cfg.ValidateConfig(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}
	if err := logging_helper.SetupLogging(cfg, appName); err != nil {
		log.Fatalf("Failed to setup logging: %v", err)
	}
	if !cfg.SchedulerSettings.Enabled {
		logrus.Warn("scheduler_settings.enabled is false, nothing to do")
		return
	}

	app, err := fyers_app.New(cfg)
	if err != nil {
		logrus.Fatalf("Failed to initialise: %v", err)
	}
	defer app.Close()

	jobs, err := newJobs(app)
	if err != nil {
		logrus.Fatalf("Failed to wire jobs: %v", err)
	}

	s, err := scheduler.NewScheduler(cfg.SchedulerSettings)
	if err != nil {
		logrus.Fatalf("Failed to create scheduler: %v", err)
	}
	if err := scheduler.Register(s, cfg.SchedulerSettings, jobs); err != nil {
		logrus.Fatalf("Failed to schedule jobs: %v", err)
	}

	s.Start()
	logrus.Info("Scheduler started. Waiting for jobs...")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit
	logrus.Info("Shutdown signal received...")

	if err := s.Shutdown(); err != nil {
		logrus.Errorf("Scheduler shutdown error: %v", err)
	}
	logrus.Info("Scheduler shut down gracefully.")
}
