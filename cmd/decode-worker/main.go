// Package main provides the decode worker entry point.
// Consumes raw interchanges, decodes them and stores the records with their
// outbox entries.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
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
	"github.com/Rkibbe123/app-datafabric/internal/observability/errsink"
	"github.com/Rkibbe123/app-datafabric/internal/observability/metrics"
	"github.com/Rkibbe123/app-datafabric/internal/observability/tracing"
	"github.com/Rkibbe123/app-datafabric/internal/x12"
	"github.com/Rkibbe123/app-datafabric/internal/x12/decode"
	"github.com/Rkibbe123/app-datafabric/pkg/circuitbreaker"
	"github.com/Rkibbe123/app-datafabric/pkg/idempotency"
	"github.com/Rkibbe123/app-datafabric/pkg/workerpool"
)

const serviceName = "decode-worker"

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
	if err := cfg.Require("DATABASE_URL", "KAFKA_BROKERS", "KAFKA_GROUP_ID"); err != nil {
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
	inbox := idempotency.NewInbox(pool, idempotency.DefaultInboxConfig(), logger)
	if err := inbox.Migrate(ctx); err != nil {
		logger.Fatal("inbox migration failed", zap.Error(err))
	}
	inbox.StartCleanup()
	defer inbox.Stop()

	admin, err := redpanda.NewAdmin(cfg.KafkaBrokers, logger)
	if err != nil {
		logger.Fatal("admin client creation failed", zap.Error(err))
	}
	if err := admin.EnsureTopics(ctx); err != nil {
		logger.Fatal("topic setup failed", zap.Error(err))
	}
	admin.Close()

	producerCfg := redpanda.DefaultProducerConfig()
	producerCfg.Brokers = cfg.KafkaBrokers
	producer, err := redpanda.NewProducer(producerCfg, m, logger)
	if err != nil {
		logger.Fatal("producer creation failed", zap.Error(err))
	}
	defer producer.Close()

	breakers := circuitbreaker.NewManager(logger, func(name string, to circuitbreaker.State) {
		m.CircuitBreakerState.WithLabelValues(name).Set(to.Value())
	})
	storeBreaker, err := breakers.GetOrCreate("postgres", circuitbreaker.DefaultConfig("postgres"))
	if err != nil {
		logger.Fatal("circuit breaker creation failed", zap.Error(err))
	}
	store := postgres.NewStore(pool, redpanda.TopicForTransaction, storeBreaker, logger)

	// structural errors are logged and also published for operators
	sinkCfg := errsink.DefaultConfig(serviceName)
	sinkCfg.MaxMessageLength = cfg.ErrorMessageMaxLen
	sink := errsink.New(sinkCfg, logger)
	sink.Forward(func(ctx context.Context, r errsink.Report) {
		value, _ := json.Marshal(r)
		if err := producer.Publish(ctx, redpanda.Record{
			Topic: redpanda.TopicStructuralErrors,
			Key:   r.InterchangeControl,
			Value: value,
		}); err != nil {
			logger.Warn("failed to publish structural error", zap.String("error_id", r.ErrorID), zap.Error(err))
		}
	})

	opts := []decode.Option{
		decode.WithLogger(logger),
		decode.WithMetrics(m),
		decode.WithErrorSink(sink),
	}
	delims, err := cfg.Delimiters()
	if err != nil {
		logger.Fatal("invalid delimiter override", zap.Error(err))
	}
	if delims != nil {
		opts = append(opts, decode.WithDelimiters(*delims))
	}
	w := &worker{
		decoder: decode.NewDecoder(opts...),
		store:   store,
		inbox:   inbox,
		logger:  logger,
	}

	poolCfg := workerpool.DefaultConfig()
	poolCfg.Workers = cfg.DecodeWorkers
	poolCfg.QueueSize = cfg.DecodeQueueSize
	poolCfg.MaxRetries = 3
	poolCfg.RetryDelay = 500 * time.Millisecond
	poolCfg.Retryable = func(err error) bool {
		return !idempotency.IsTerminal(err) && !errors.Is(err, circuitbreaker.ErrOpen)
	}
	workerPool, err := workerpool.New(poolCfg, w.process, logger)
	if err != nil {
		logger.Fatal("worker pool creation failed", zap.Error(err))
	}
	workerPool.Start()

	consumerCfg := redpanda.DefaultConsumerConfig()
	consumerCfg.Brokers = cfg.KafkaBrokers
	consumerCfg.GroupID = cfg.KafkaGroupID

	consumer, err := redpanda.NewConsumer(consumerCfg,
		func(ctx context.Context, msg *redpanda.ConsumedMessage) error {
			res, err := workerPool.SubmitWait(ctx, &workerpool.Task[*redpanda.ConsumedMessage]{
				ID:      fmt.Sprintf("%s/%d/%d", msg.Topic, msg.Partition, msg.Offset),
				Payload: msg,
				Context: ctx,
			})
			if err != nil {
				return err
			}
			if !res.Success {
				return res.Error
			}
			return nil
		},
		func(ctx context.Context, msg *redpanda.ConsumedMessage, cause error) error {
			return producer.Publish(ctx, deadLetter(msg, cause, sink))
		},
		m, logger)
	if err != nil {
		logger.Fatal("consumer creation failed", zap.Error(err))
	}

	consumer.Start()

	// health and metrics for the orchestrator
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		status := http.StatusOK
		if !workerPool.IsHealthy() || !breakers.Healthy() {
			status = http.StatusServiceUnavailable
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		json.NewEncoder(w).Encode(map[string]any{
			"pool":             workerPool.Stats(),
			"consumer":         consumer.Stats(),
			"circuit_breakers": breakers.HealthStatus(),
		})
	})
	server := &http.Server{Addr: ":" + cfg.HTTPPort, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := server.ListenAndServe(); err != http.ErrServerClosed {
			logger.Error("health server error", zap.Error(err))
		}
	}()

	logger.Info("decode worker started",
		zap.Strings("brokers", cfg.KafkaBrokers),
		zap.String("group", cfg.KafkaGroupID),
		zap.Int("workers", cfg.DecodeWorkers))

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	logger.Info("shutting down")
	if err := consumer.Stop(); err != nil {
		logger.Error("consumer stop failed", zap.Error(err))
	}
	if err := workerPool.Stop(); err != nil {
		logger.Error("worker pool stop failed", zap.Error(err))
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	server.Shutdown(shutdownCtx)
	logger.Info("decode worker stopped")
}

type worker struct {
	decoder *decode.Decoder
	store   *postgres.Store
	inbox   *idempotency.Inbox
	logger  *zap.Logger
}

// delivery is what the inbox keeps about the message that was processed
type delivery struct {
	Topic     string `json:"topic"`
	Partition int32  `json:"partition"`
	Offset    int64  `json:"offset"`
	Bytes     int    `json:"bytes"`
}

// process decodes one interchange at most once. Redeliveries of an
// interchange that was already stored, or that failed terminally and was
// dead-lettered, succeed without doing anything.
func (w *worker) process(ctx context.Context, task *workerpool.Task[*redpanda.ConsumedMessage]) *workerpool.Result[postgres.SaveSummary] {
	msg := task.Payload
	raw := string(msg.Value)

	header, err := x12.ReadInterchangeHeader(raw)
	if err != nil {
		return &workerpool.Result[postgres.SaveSummary]{TaskID: task.ID, Error: idempotency.Terminal(err)}
	}
	key := idempotency.GenerateKey(header.SenderID, header.ReceiverID, header.ControlNumber, msg.Value)
	meta, _ := json.Marshal(delivery{Topic: msg.Topic, Partition: msg.Partition, Offset: msg.Offset, Bytes: len(msg.Value)})

	var sum postgres.SaveSummary
	out, err := w.inbox.Process(ctx, key, serviceName, meta, func(ctx context.Context, _ json.RawMessage) (json.RawMessage, error) {
		res, err := w.decoder.Decode(ctx, raw)
		if err != nil {
			return nil, idempotency.Terminal(err)
		}
		if sum, err = w.store.SaveResult(ctx, res); err != nil {
			return nil, err
		}
		return json.Marshal(sum)
	})
	switch {
	case errors.Is(err, idempotency.ErrDuplicateMessage),
		errors.Is(err, idempotency.ErrPreviouslyFailed):
		w.logger.Info("interchange already handled",
			zap.String("interchange_control", header.ControlNumber),
			zap.Error(err))
		return &workerpool.Result[postgres.SaveSummary]{TaskID: task.ID, Success: true}
	case err != nil:
		return &workerpool.Result[postgres.SaveSummary]{TaskID: task.ID, Error: err}
	}

	if !out.IsNew && !out.WasRecovered {
		_ = json.Unmarshal(out.Result, &sum)
	}
	w.logger.Info("interchange stored",
		zap.String("interchange_control", header.ControlNumber),
		zap.String("sender", header.SenderID),
		zap.Bool("duplicate", !out.IsNew && !out.WasRecovered),
		zap.Int("inserted", sum.Inserted),
		zap.Int("outbox_entries", sum.OutboxEntries),
		zap.Int("structural_errors", sum.StructuralErrors))
	return &workerpool.Result[postgres.SaveSummary]{TaskID: task.ID, Success: true, Data: sum}
}

// deadLetter wraps a message the worker gave up on. The raw interchange is
// kept so it can be replayed; the error text is sanitized first.
func deadLetter(msg *redpanda.ConsumedMessage, cause error, sink *errsink.Sink) redpanda.Record {
	value, _ := json.Marshal(map[string]any{
		"original_topic": msg.Topic,
		"partition":      msg.Partition,
		"offset":         msg.Offset,
		"error_id":       errsink.ErrorID(cause),
		"error":          sink.Sanitize(cause.Error()),
		"terminal":       idempotency.IsTerminal(cause),
		"payload":        string(msg.Value),
		"failed_at":      time.Now().UTC(),
	})
	return redpanda.Record{
		Topic: redpanda.TopicDeadLetter,
		Key:   string(msg.Key),
		Value: value,
		Headers: map[string]string{
			"x-original-topic": msg.Topic,
		},
	}
}
