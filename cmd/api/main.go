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
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/AchilleasB/planbee/clinic-portal-service/internal/adapters/completion"
	"github.com/AchilleasB/planbee/clinic-portal-service/internal/adapters/handler"
	"github.com/AchilleasB/planbee/clinic-portal-service/internal/adapters/identity"
	"github.com/AchilleasB/planbee/clinic-portal-service/internal/adapters/middleware"
	"github.com/AchilleasB/planbee/clinic-portal-service/internal/adapters/repository"
	"github.com/AchilleasB/planbee/clinic-portal-service/internal/adapters/session"
	"github.com/AchilleasB/planbee/clinic-portal-service/internal/config"
	"github.com/AchilleasB/planbee/clinic-portal-service/internal/core/ports"
	"github.com/AchilleasB/planbee/clinic-portal-service/internal/core/services"
	"github.com/AchilleasB/planbee/clinic-portal-service/internal/logger"
	"github.com/AchilleasB/planbee/clinic-portal-service/internal/metrics"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		// The logger is configured from cfg, so this one goes to stderr.
		zap.NewExample().Fatal("failed to load configuration", zap.Error(err))
	}

	log, err := logger.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		zap.NewExample().Fatal("failed to build logger", zap.Error(err))
	}
	defer func() { _ = log.Sync() }()

	collector := metrics.NewCollector("planbee")

	// Data provider: PostgreSQL when configured, demo fixtures otherwise.
	var provider ports.DataProvider
	if cfg.UseFixtureData() {
		fixtures := repository.NewFixtureProvider()
		if err := repository.SeedDemoData(fixtures, time.Now()); err != nil {
			log.Fatal("failed to seed demo data", zap.Error(err))
		}
		provider = fixtures
		log.Warn("DB_CONNECTION_STRING not set, serving demo fixture data")
	} else {
		db, err := sql.Open("postgres", cfg.DatabaseURL)
		if err != nil {
			log.Fatal("failed to open database", zap.Error(err))
		}
		defer db.Close()
		db.SetMaxOpenConns(20)
		db.SetConnMaxIdleTime(5 * time.Minute)

		provider = repository.NewPostgresProvider(db, config.NewCircuitBreaker("PostgreSQL", log))
		log.Info("database connection initialized - circuit breaker will validate on first operation")
	}

	// Session store: Redis when configured, process memory otherwise.
	var (
		store       ports.SessionStore
		redisPinger handler.RedisPinger
	)
	if cfg.UseMemorySessions() {
		store = session.NewMemoryStore()
		log.Warn("REDIS_ADDRESS not set, sessions are kept in memory")
	} else {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddress,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		defer redisClient.Close()

		pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := redisClient.Ping(pingCtx).Err(); err != nil {
			log.Warn("redis not reachable at startup", zap.Error(err))
		} else {
			log.Info("connected to redis", zap.String("address", cfg.RedisAddress))
		}
		cancel()

		store = session.NewRedisStore(redisClient, config.NewCircuitBreaker("Redis-Session", log))
		redisPinger = redisClient
	}

	var completionClient ports.CompletionClient
	if cfg.UseCannedCompletions() {
		completionClient = completion.CannedClient{}
		log.Warn("OPENAI_API_KEY not set, chat answers with canned replies")
	} else {
		completionClient = completion.NewOpenAIClient(
			cfg.OpenAIAPIKey,
			cfg.OpenAIModel,
			cfg.OpenAIBaseURL,
			config.NewCircuitBreaker("OpenAI", log),
			log,
		)
	}

	var verifier ports.IdentityVerifier
	if cfg.UseFixtureIdentity() {
		verifier = identity.NewFixtureVerifier(cfg.GoogleRedirectURL)
		log.Warn("GOOGLE_CLIENT_ID not set, google sign-in uses the fixture verifier")
	} else {
		verifier = identity.NewGoogleVerifier(cfg.GoogleClientID, cfg.GoogleClientSecret, cfg.GoogleRedirectURL, identity.GoogleEndpoints)
	}

	sessions := services.NewSessions(store, cfg.SessionTTL)
	patientService := services.NewPatientService(provider.Patients(), collector, log)

	handlers := handler.Handlers{
		Auth: handler.NewAuthHandler(
			services.NewPatientAuthService(provider.Patients(), sessions, collector, log),
			services.NewStaffAuthService(provider.Staff(), verifier, sessions, collector, log),
			sessions,
			cfg.Environment == "production",
			log,
		),
		Registration: handler.NewRegistrationHandler(
			services.NewRegistrationService(provider.Staff(), cfg.DefaultClinicID, log),
			log,
		),
		Patients: handler.NewPatientHandler(patientService, log),
		Catalog: handler.NewCatalogHandler(
			services.NewCatalogService(provider.TreatmentItems(), collector, log),
			log,
		),
		Plans: handler.NewPlanHandler(
			services.NewTreatmentPlanService(provider.TreatmentPlans(), provider.Patients(), provider.TreatmentItems(), log),
			patientService,
			log,
		),
		Chat: handler.NewChatHandler(
			services.NewChatService(provider.Chat(), completionClient, cfg.ChatHistoryLimit, collector, log),
			patientService,
			log,
		),
		Health: handler.NewHealthHandler(provider, redisPinger, os.Getenv("APP_VERSION"), log),
	}

	router := handler.NewRouter(handlers, middleware.NewSessionMiddleware(sessions, log), collector, cfg.AllowedOrigins)

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		// Chat requests wait on the completion API, which has its own 30s limit.
		WriteTimeout: 45 * time.Second,
		IdleTimeout:  2 * time.Minute,
	}

	go func() {
		log.Info("starting server", zap.String("port", cfg.Port), zap.String("environment", cfg.Environment))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("could not start server", zap.Error(err))
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigChan
	log.Info("received signal, shutting down", zap.String("signal", sig.String()))

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("error shutting down server", zap.Error(err))
	}
	log.Info("shutdown complete")
}
