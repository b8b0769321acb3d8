// Package main provides the decode API service entry point.
package main

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/Rkibbe123/app-datafabric/internal/api/handlers"
	"github.com/Rkibbe123/app-datafabric/internal/api/middleware"
	"github.com/Rkibbe123/app-datafabric/internal/config"
	"github.com/Rkibbe123/app-datafabric/internal/infrastructure/postgres"
	"github.com/Rkibbe123/app-datafabric/internal/infrastructure/redpanda"
	"github.com/Rkibbe123/app-datafabric/internal/observability/errsink"
	"github.com/Rkibbe123/app-datafabric/internal/observability/metrics"
	"github.com/Rkibbe123/app-datafabric/internal/observability/tracing"
	"github.com/Rkibbe123/app-datafabric/internal/x12/decode"
	"github.com/Rkibbe123/app-datafabric/pkg/circuitbreaker"
)

const serviceName = "decode-api"

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}
	logger, err := cfg.NewLogger()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	if err := cfg.Validate(); err != nil {
		logger.Fatal("invalid configuration", zap.Error(err))
	}
	apiKeys, _ := cfg.APIKeyMap()
	if len(apiKeys) == 0 {
		logger.Warn("API_KEYS is empty, authentication is disabled")
	}

	ctx := context.Background()

	traceCfg := tracing.DefaultConfig(serviceName)
	traceCfg.Environment = cfg.Env
	traceCfg.OTLPEndpoint = cfg.OTLPEndpoint
	traceCfg.SampleRate = cfg.TraceSampleRate
	tp, err := tracing.Init(ctx, traceCfg)
	if err != nil {
		logger.Fatal("tracing init failed", zap.Error(err))
	}
	defer tp.Shutdown(context.Background())

	m := metrics.New()
	breakers := circuitbreaker.NewManager(logger, func(name string, to circuitbreaker.State) {
		m.CircuitBreakerState.WithLabelValues(name).Set(to.Value())
	})

	sinkCfg := errsink.DefaultConfig(serviceName)
	sinkCfg.MaxMessageLength = cfg.ErrorMessageMaxLen
	opts := []decode.Option{
		decode.WithLogger(logger),
		decode.WithMetrics(m),
		decode.WithErrorSink(errsink.New(sinkCfg, logger)),
	}
	delims, err := cfg.Delimiters()
	if err != nil {
		logger.Fatal("invalid delimiter override", zap.Error(err))
	}
	if delims != nil {
		opts = append(opts, decode.WithDelimiters(*delims))
	}
	decoder := decode.NewDecoder(opts...)

	// persistence is optional; without DATABASE_URL the API only decodes
	var (
		store *postgres.Store
		pool  *pgxpool.Pool
	)
	if cfg.DatabaseURL != "" {
		pool, err = pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			logger.Fatal("failed to connect to database", zap.Error(err))
		}
		defer pool.Close()

		if err := pool.Ping(ctx); err != nil {
			logger.Fatal("database ping failed", zap.Error(err))
		}
		if err := postgres.Migrate(ctx, pool); err != nil {
			logger.Fatal("migration failed", zap.Error(err))
		}
		logger.Info("connected to database")

		cb, err := breakers.GetOrCreate("postgres", circuitbreaker.DefaultConfig("postgres"))
		if err != nil {
			logger.Fatal("circuit breaker creation failed", zap.Error(err))
		}
		store = postgres.NewStore(pool, redpanda.TopicForTransaction, cb, logger)
	}

	var recordStore handlers.RecordStore
	if store != nil {
		recordStore = store
	}
	interchangeHandler := handlers.NewInterchangeHandler(decoder, recordStore, logger)

	r := chi.NewRouter()

	r.Use(chimw.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.CORS)
	r.Use(middleware.Recover(logger))
	r.Use(middleware.Logger(logger))
	r.Use(middleware.Tracing(serviceName))

	r.Get("/health", healthHandler)
	r.Get("/ready", func(w http.ResponseWriter, r *http.Request) {
		if pool != nil {
			if err := pool.Ping(r.Context()); err != nil {
				middleware.WriteError(w, "database unavailable", http.StatusServiceUnavailable)
				return
			}
		}
		status := http.StatusOK
		if !breakers.Healthy() {
			status = http.StatusServiceUnavailable
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		json.NewEncoder(w).Encode(map[string]any{"circuit_breakers": breakers.HealthStatus()})
	})
	r.Handle("/metrics", metrics.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.APIKeyAuth(apiKeys))
		r.Use(middleware.MaxBytes(cfg.MaxBodyBytes))
		r.Mount("/", interchangeHandler.Routes())
	})

	server := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      r,
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		logger.Info("shutting down server")
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := server.Shutdown(ctx); err != nil {
			logger.Error("shutdown error", zap.Error(err))
		}
	}()

	logger.Info("starting decode API",
		zap.String("port", cfg.HTTPPort),
		zap.Bool("persistence", store != nil),
		zap.Strings("transaction_codes", decode.DefaultRegistry().Codes()))
	if err := server.ListenAndServe(); err != http.ErrServerClosed {
		logger.Fatal("server error", zap.Error(err))
	}

	logger.Info("server stopped")
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]string{
		"status":  "healthy",
		"service": serviceName,
		"version": tracing.DefaultConfig(serviceName).ServiceVersion,
	})
}
