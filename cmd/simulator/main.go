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

	"creator-market-sim/internal/api"
	"creator-market-sim/internal/config"
	"creator-market-sim/internal/database"
	"creator-market-sim/internal/events"
	"creator-market-sim/internal/logger"
	"creator-market-sim/internal/market"
	"creator-market-sim/internal/metrics"
	"creator-market-sim/internal/random"
	"creator-market-sim/internal/service"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
)

func main() {
	// Load application configuration
	cfg, err := config.LoadConfig("./configs")
	if err != nil {
		// We can't use the logger here because it's not initialized yet.
		panic(fmt.Sprintf("could not load config: %v", err))
	}

	// Initialize logger
	log, err := logger.NewLogger("simulator", cfg.Logger.Level, cfg.Logger.Format)
	if err != nil {
		panic(err)
	}
	defer log.Sync()
	log.Info("Configuration loaded", zap.Int("instruments", len(cfg.Instruments)))

	// Metrics
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	rec := metrics.New(reg)

	// Initialize database
	db, err := database.NewDatabase(cfg.Database.DSN)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	journal := database.NewJournal(db, log)
	log.Info("Database connection successful and schema migrated.")

	registry, err := market.NewRegistry(cfg.Catalogue(time.Now()))
	if err != nil {
		log.Fatal("Invalid instrument catalogue", zap.Error(err))
	}

	rng := random.New(cfg.Simulation.Seed)
	bus := events.NewBus(log, rec)
	feed := market.NewFeed(log, cfg.Simulation.FeedConfig(), bus, registry, rng, rec)

	journal.Attach(bus)
	desk := service.NewOrderDesk(log, bus, registry, journal)
	desk.Attach()

	hub := api.NewHub(log, rec, cfg.Server.WSQueueSize)
	hub.Attach(bus)

	svc := service.New(log, service.Config{
		LatencyMin:  cfg.Simulation.LatencyMin,
		LatencyMax:  cfg.Simulation.LatencyMax,
		TradeWindow: cfg.Simulation.TradeWindow,
	}, service.Deps{
		Feed:     feed,
		Bus:      bus,
		Registry: registry,
		Trades:   journal,
		Rand:     rng,
		Metrics:  rec,
	})

	handler := api.NewHandler(log, svc, desk, journal)
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           api.NewRouter(log, handler, hub, reg),
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Setup context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		sigchan := make(chan os.Signal, 1)
		signal.Notify(sigchan, syscall.SIGINT, syscall.SIGTERM)
		<-sigchan
		log.Info("Shutdown signal received, gracefully shutting down...")
		cancel()
	}()

	go hub.Run(ctx)

	go func() {
		log.Info("Starting web server", zap.String("address", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("Web server failed", zap.Error(err))
			cancel()
		}
	}()

	if cfg.Simulation.AutoConnect {
		feed.Connect()
	}

	<-ctx.Done()

	feed.Disconnect()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server shutdown failed", zap.Error(err))
	}

	log.Info("Simulator has been shut down.")
}
