package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/taskhive/taskhive/internal/config"
	httpx "github.com/taskhive/taskhive/internal/http"
	"github.com/taskhive/taskhive/internal/hub"
	"github.com/taskhive/taskhive/internal/observability"
	"github.com/taskhive/taskhive/internal/reminder"
	"github.com/taskhive/taskhive/internal/repo/jsonfile"
	"github.com/taskhive/taskhive/internal/store"
)

func main() {
	cfg := config.Load()

	log := observability.NewLogger(cfg.Env)

	// tracing is optional; without a collector endpoint we skip it
	if cfg.OTelEndpoint != "" {
		ctx, cancel := config.WithTimeout(5 * time.Second)
		shutdownTracer, err := observability.InitTracer(ctx, "taskhive", cfg.OTelEndpoint)
		cancel()

		if err != nil {
			log.Error("tracer init failed", "err", err)
		} else {
			defer func() {
				ctx, cancel := config.WithTimeout(5 * time.Second)
				defer cancel()
				_ = shutdownTracer(ctx)
			}()
		}
	}

	registry := prometheus.NewRegistry()
	prom := observability.NewProm(registry)

	st, err := store.Open(cfg.DataDir, prom)

	if err != nil {
		log.Error("store open failed", "err", err)
		os.Exit(1)
	}

	if err := os.MkdirAll(cfg.UploadsDir, 0o755); err != nil {
		log.Error("uploads dir failed", "err", err)
		os.Exit(1)
	}

	if err := store.EnsureSeedUsers(st, cfg, log); err != nil {
		log.Error("seeding failed", "err", err)
		os.Exit(1)
	}

	notifyHub := hub.New(log, prom)

	router, err := httpx.NewRouter(log, cfg, st, notifyHub, prom, registry)

	if err != nil {
		log.Error("router init failed", "err", err)
		os.Exit(1)
	}

	// deadline reminder scanner runs for the life of the process

	scanCtx, stopScanner := context.WithCancel(context.Background())
	defer stopScanner()

	tasksRepo, err := jsonfile.NewTasksRepo(st)
	if err != nil {
		log.Error("tasks repo init failed", "err", err)
		os.Exit(1)
	}

	usersRepo, err := jsonfile.NewUsersRepo(st)
	if err != nil {
		log.Error("users repo init failed", "err", err)
		os.Exit(1)
	}

	scanner := reminder.New(reminder.Config{
		Interval: time.Duration(cfg.ReminderIntervalSeconds) * time.Second,
		Window:   time.Duration(cfg.ReminderWindowHours) * time.Hour,
	}, tasksRepo, usersRepo, notifyHub, log)

	go scanner.Run(scanCtx)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Info("server starting", "port", cfg.Port, "env", cfg.Env)
		err := srv.ListenAndServe()

		if err != nil && err != http.ErrServerClosed {
			log.Error("server failed", "err", err)
			os.Exit(1)
		}
	}()

	// graceful shutdown

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	log.Info("server shutting down")

	stopScanner()

	shutdownCh := make(chan struct{})

	go func() {
		defer close(shutdownCh)

		ctx, cancel := config.WithTimeout(10 * time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			log.Error("graceful shutdown failed", "err", err)
		}
	}()

	select {
	case <-shutdownCh:
		log.Info("shutdown complete")

	case <-time.After(12 * time.Second):
		log.Error("shutdown timed out")
	}
}
