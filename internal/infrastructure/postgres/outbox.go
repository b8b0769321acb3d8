package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// outboxLockID serialises relays across replicas
const outboxLockID int64 = 0x7831325f6f7574 // "x12_out"

// OutboxEntry is one decoded record waiting to be published
type OutboxEntry struct {
	ID              int64
	RecordID        string
	TransactionCode string
	EventType       string
	Payload         json.RawMessage
	KafkaTopic      string
	KafkaKey        string
	CreatedAt       time.Time
	RetryCount      int
	LastError       *string
}

// OutboxConfig holds configuration for the outbox relay
type OutboxConfig struct {
	// BatchSize is the number of entries to process per batch
	BatchSize int
	// PollInterval is how often to poll for new entries
	PollInterval time.Duration
	// MaxRetries is the number of failed publishes before dead-lettering
	MaxRetries int
	// DeadLetterTopic receives entries that exhausted their retries
	DeadLetterTopic string
}

// DefaultOutboxConfig returns sensible defaults
func DefaultOutboxConfig() OutboxConfig {
	return OutboxConfig{
		BatchSize:       100,
		PollInterval:    250 * time.Millisecond,
		MaxRetries:      5,
		DeadLetterTopic: "x12.dead.letter",
	}
}

// Publisher sends one outbox payload
type Publisher interface {
	Publish(ctx context.Context, topic, key string, value []byte) error
}

// PublisherFunc adapts a function to Publisher
type PublisherFunc func(ctx context.Context, topic, key string, value []byte) error

func (f PublisherFunc) Publish(ctx context.Context, topic, key string, value []byte) error {
	return f(ctx, topic, key, value)
}

// Outbox relays outbox entries to Kafka
type Outbox struct {
	pool      *pgxpool.Pool
	config    OutboxConfig
	publisher Publisher
	logger    *zap.Logger
	tracer    trace.Tracer

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
}

// NewOutbox creates a new outbox relay
func NewOutbox(pool *pgxpool.Pool, publisher Publisher, cfg OutboxConfig, logger *zap.Logger) *Outbox {
	if logger == nil {
		logger = zap.NewNop()
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Outbox{
		pool:      pool,
		config:    cfg,
		publisher: publisher,
		logger:    logger,
		tracer:    otel.Tracer("outbox"),
		ctx:       ctx,
		cancel:    cancel,
		done:      make(chan struct{}),
	}
}

// Start begins polling and relaying entries
func (o *Outbox) Start() {
	go o.processLoop()
	o.logger.Info("outbox relay started",
		zap.Int("batch_size", o.config.BatchSize),
		zap.Duration("poll_interval", o.config.PollInterval))
}

// Stop gracefully stops the relay
func (o *Outbox) Stop() {
	o.cancel()
	<-o.done
	o.logger.Info("outbox relay stopped")
}

func (o *Outbox) processLoop() {
	defer close(o.done)

	ticker := time.NewTicker(o.config.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-o.ctx.Done():
			return
		case <-ticker.C:
			if _, err := o.ProcessBatch(o.ctx); err != nil {
				o.logger.Error("outbox batch failed", zap.Error(err))
			}
		}
	}
}

// ProcessBatch publishes up to BatchSize pending entries and returns how
// many were published or dead-lettered. It returns 0 without error when
// another relay holds the lock.
func (o *Outbox) ProcessBatch(ctx context.Context) (int, error) {
	ctx, span := o.tracer.Start(ctx, "outbox_process_batch")
	defer span.End()

	done := 0
	err := pgx.BeginFunc(ctx, o.pool, func(tx pgx.Tx) error {
		// released at commit, on the same connection that took it
		var acquired bool
		if err := tx.QueryRow(ctx, "SELECT pg_try_advisory_xact_lock($1)", outboxLockID).Scan(&acquired); err != nil {
			return fmt.Errorf("advisory lock: %w", err)
		}
		if !acquired {
			return nil
		}

		entries, err := fetchPending(ctx, tx, o.config.BatchSize)
		if err != nil {
			return err
		}
		span.SetAttributes(attribute.Int("batch_size", len(entries)))

		for _, e := range entries {
			if o.processEntry(ctx, tx, e) {
				done++
			}
		}
		return nil
	})
	if err != nil {
		span.RecordError(err)
		return 0, err
	}
	return done, nil
}

func fetchPending(ctx context.Context, tx pgx.Tx, limit int) ([]*OutboxEntry, error) {
	query := `
		SELECT id, record_id::text, transaction_code, event_type, payload,
		       kafka_topic, kafka_key, created_at, retry_count, last_error
		FROM outbox
		WHERE processed_at IS NULL
		ORDER BY id
		LIMIT $1
		FOR UPDATE SKIP LOCKED
	`

	rows, err := tx.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	defer rows.Close()

	var entries []*OutboxEntry
	for rows.Next() {
		e := &OutboxEntry{}
		if err := rows.Scan(
			&e.ID, &e.RecordID, &e.TransactionCode, &e.EventType, &e.Payload,
			&e.KafkaTopic, &e.KafkaKey, &e.CreatedAt, &e.RetryCount, &e.LastError,
		); err != nil {
			return nil, fmt.Errorf("scan failed: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// processEntry publishes e, or dead-letters it once its retries are used up.
// It reports whether e left the pending set.
func (o *Outbox) processEntry(ctx context.Context, tx pgx.Tx, e *OutboxEntry) bool {
	ctx, span := o.tracer.Start(ctx, "outbox_process_entry",
		trace.WithAttributes(
			attribute.Int64("entry_id", e.ID),
			attribute.String("record_id", e.RecordID),
			attribute.String("topic", e.KafkaTopic),
		))
	defer span.End()

	topic, payload := e.KafkaTopic, []byte(e.Payload)
	if e.RetryCount >= o.config.MaxRetries {
		topic, payload = o.config.DeadLetterTopic, deadLetterPayload(e)
	}

	if err := o.publisher.Publish(ctx, topic, e.KafkaKey, payload); err != nil {
		span.RecordError(err)
		o.logger.Warn("outbox publish failed",
			zap.Int64("id", e.ID),
			zap.String("topic", topic),
			zap.Int("retry_count", e.RetryCount),
			zap.Error(err))
		if _, uerr := tx.Exec(ctx, `
			UPDATE outbox
			SET retry_count = retry_count + 1, last_error = $1, updated_at = NOW()
			WHERE id = $2`, err.Error(), e.ID); uerr != nil {
			o.logger.Error("failed to update retry count", zap.Error(uerr))
		}
		return false
	}

	if _, err := tx.Exec(ctx, `UPDATE outbox SET processed_at = NOW(), updated_at = NOW() WHERE id = $1`, e.ID); err != nil {
		span.RecordError(err)
		o.logger.Error("failed to mark processed", zap.Int64("id", e.ID), zap.Error(err))
		return false
	}
	if topic == o.config.DeadLetterTopic {
		o.logger.Warn("outbox entry dead-lettered",
			zap.Int64("id", e.ID),
			zap.String("record_id", e.RecordID))
	}
	return true
}

func deadLetterPayload(e *OutboxEntry) []byte {
	b, _ := json.Marshal(map[string]any{
		"original_topic":   e.KafkaTopic,
		"event_type":       e.EventType,
		"record_id":        e.RecordID,
		"transaction_code": e.TransactionCode,
		"payload":          e.Payload,
		"retry_count":      e.RetryCount,
		"last_error":       e.LastError,
		"created_at":       e.CreatedAt,
	})
	return b
}

// CleanupProcessed removes processed entries older than olderThan
func (o *Outbox) CleanupProcessed(ctx context.Context, olderThan time.Duration) (int64, error) {
	query := `
		DELETE FROM outbox
		WHERE processed_at IS NOT NULL
		  AND processed_at < NOW() - make_interval(secs => $1)
	`

	result, err := o.pool.Exec(ctx, query, olderThan.Seconds())
	if err != nil {
		return 0, fmt.Errorf("cleanup failed: %w", err)
	}
	return result.RowsAffected(), nil
}

// OutboxStats counts outbox entries
type OutboxStats struct {
	Pending       int64
	Retrying      int64
	OldestPending *time.Time
}

// GetStats returns current outbox statistics
func (o *Outbox) GetStats(ctx context.Context) (*OutboxStats, error) {
	stats := &OutboxStats{}
	err := o.pool.QueryRow(ctx, `
		SELECT COUNT(*), COUNT(*) FILTER (WHERE retry_count > 0), MIN(created_at)
		FROM outbox
		WHERE processed_at IS NULL`).Scan(&stats.Pending, &stats.Retrying, &stats.OldestPending)
	if err != nil {
		return nil, err
	}
	return stats, nil
}
