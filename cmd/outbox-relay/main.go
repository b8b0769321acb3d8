// Package main provides the outbox relay service entry point.
// Publishes decoded records committed to the outbox table to Redpanda.
package main

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/Rkibbe123/app-datafabric/internal/config"
	"github.com/Rkibbe123/app-datafabric/internal/infrastructure/postgres"
	"github.com/Rkibbe123/app-datafabric/internal/infrastructure/redpanda"
	"github.com/Rkibbe123/app-datafabric/internal/observability/metrics"
	"github.com/Rkibbe123/app-datafabric/internal/observability/tracing"
	"github.com/Rkibbe123/app-datafabric/pkg/circuitbreaker"
)

const serviceName = "outbox-relay"

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

	if err := cfg.Require("DATABASE_URL", "KAFKA_BROKERS"); err != nil {
		logger.Fatal("invalid configuration", zap.Error(err))
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

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Fatal("database connection failed", zap.Error(err))
	}
	defer pool.Close()

	if err := postgres.Migrate(ctx, pool); err != nil {
		logger.Fatal("migration failed", zap.Error(err))
	}
	logger.Info("connected to database")

	producerCfg := redpanda.DefaultProducerConfig()
	producerCfg.Brokers = cfg.KafkaBrokers

	producer, err := redpanda.NewProducer(producerCfg, m, logger)
	if err != nil {
		logger.Fatal("producer creation failed", zap.Error(err))
	}
	defer producer.Close()

	logger.Info("connected to Redpanda", zap.Strings("brokers", cfg.KafkaBrokers))

	breakers := circuitbreaker.NewManager(logger, func(name string, to circuitbreaker.State) {
		m.CircuitBreakerState.WithLabelValues(name).Set(to.Value())
	})
	brokerBreaker, err := breakers.GetOrCreate("redpanda", circuitbreaker.DefaultConfig("redpanda"))
	if err != nil {
		logger.Fatal("circuit breaker creation failed", zap.Error(err))
	}

	// an open breaker fails the publish fast; the entry stays pending and
	// its retry count grows like any other failure
	publisher := postgres.PublisherFunc(func(ctx context.Context, topic, key string, value []byte) error {
		return brokerBreaker.Execute(ctx, func(ctx context.Context) error {
			return producer.Publish(ctx, redpanda.Record{Topic: topic, Key: key, Value: value})
		})
	})

	outboxCfg := postgres.DefaultOutboxConfig()
	outboxCfg.DeadLetterTopic = redpanda.TopicDeadLetter
	outbox := postgres.NewOutbox(pool, publisher, outboxCfg, logger)

	outbox.Start()

	statsCtx, stopStats := context.WithCancel(ctx)
	go reportPending(statsCtx, outbox, m, logger)

	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		stats, err := outbox.GetStats(r.Context())
		status := http.StatusOK
		if err != nil || !breakers.Healthy() {
			status = http.StatusServiceUnavailable
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		json.NewEncoder(w).Encode(map[string]any{
			"outbox":           stats,
			"producer":         producer.Stats(),
			"circuit_breakers": breakers.HealthStatus(),
		})
	})
	server := &http.Server{Addr: ":" + cfg.HTTPPort, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := server.ListenAndServe(); err != http.ErrServerClosed {
			logger.Error("health server error", zap.Error(err))
		}
	}()

	logger.Info("outbox relay started")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	logger.Info("shutting down")
	stopStats()
	outbox.Stop()
	if err := producer.Flush(context.Background()); err != nil {
		logger.Warn("flush failed", zap.Error(err))
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	server.Shutdown(shutdownCtx)
	logger.Info("outbox relay stopped")
}

// reportPending keeps the pending gauge current and prunes relayed entries
// once an hour.
func reportPending(ctx context.Context, outbox *postgres.Outbox, m *metrics.Metrics, logger *zap.Logger) {
	ticker := time.NewTicker(15 * time.Second)
	defer ticker.Stop()
	lastCleanup := time.Now()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if stats, err := outbox.GetStats(ctx); err == nil {
				m.OutboxPending.Set(float64(stats.Pending))
			} else {
				logger.Warn("outbox stats failed", zap.Error(err))
			}
			if time.Since(lastCleanup) >= time.Hour {
				if n, err := outbox.CleanupProcessed(ctx, 7*24*time.Hour); err != nil {
					logger.Warn("outbox cleanup failed", zap.Error(err))
				} else if n > 0 {
					logger.Info("outbox cleaned", zap.Int64("deleted", n))
				}
				lastCleanup = time.Now()
			}
		}
	}
}
