package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/AchilleasB/planbee/clinic-portal-service/internal/adapters/messaging"
	"github.com/AchilleasB/planbee/clinic-portal-service/internal/adapters/outbox"
	"github.com/AchilleasB/planbee/clinic-portal-service/internal/config"
	"github.com/AchilleasB/planbee/clinic-portal-service/internal/logger"
)

func main() {
	cfg, err := config.LoadRelayConfig()
	if err != nil {
		zap.NewExample().Fatal("failed to load relay configuration", zap.Error(err))
	}

	log, err := logger.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		zap.NewExample().Fatal("failed to build logger", zap.Error(err))
	}
	defer func() { _ = log.Sync() }()
	log = log.Named("relay")

	log.Info("starting outbox relay service")

	db, err := sql.Open("postgres", cfg.DatabaseURL)
	if err != nil {
		log.Fatal("failed to open database", zap.Error(err))
	}
	defer db.Close()
	log.Info("database connection initialized - circuit breaker will validate on first operation")

	broker, err := messaging.NewRabbitMQBroker(cfg.RabbitMQURL, cfg.StaffQueueName, log)
	if err != nil {
		log.Fatal("failed to connect to RabbitMQ", zap.Error(err))
	}
	defer broker.Close()
	log.Info("connected to RabbitMQ", zap.String("queue", cfg.StaffQueueName))

	worker := outbox.NewRelay(db, cfg.DatabaseURL, broker, log)

	// Start health check HTTP server
	healthMux := http.NewServeMux()
	healthMux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		status, httpStatus := "UP", http.StatusOK
		if !worker.IsHealthy() {
			status, httpStatus = "DOWN", http.StatusServiceUnavailable
		}
		writeStatus(w, httpStatus, status)
	})
	healthMux.HandleFunc("GET /health/ready", func(w http.ResponseWriter, r *http.Request) {
		status, httpStatus := "UP", http.StatusOK
		if !worker.IsReady() {
			status, httpStatus = "DOWN", http.StatusServiceUnavailable
		}
		writeStatus(w, httpStatus, status)
	})

	healthServer := &http.Server{
		Addr:              ":" + cfg.HealthPort,
		Handler:           healthMux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Info("starting health check server", zap.String("port", cfg.HealthPort))
		if err := healthServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("health server error", zap.Error(err))
		}
	}()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Channel to capture fatal errors from relay worker
	errChan := make(chan error, 1)

	go func() {
		log.Info("starting event processing worker")
		if err := worker.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
			errChan <- err
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		log.Info("received signal, initiating shutdown", zap.String("signal", sig.String()))
	case err := <-errChan:
		log.Error("fatal worker error, shutting down", zap.Error(err))
	}
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := healthServer.Shutdown(shutdownCtx); err != nil {
		log.Error("error shutting down health server", zap.Error(err))
	}

	log.Info("shutdown complete")
}

func writeStatus(w http.ResponseWriter, httpStatus int, status string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(httpStatus)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"status":    status,
		"component": "outbox-relay",
	})
}
