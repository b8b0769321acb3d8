package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/Rkibbe123/app-datafabric/internal/x12/decode"
	"github.com/Rkibbe123/app-datafabric/pkg/circuitbreaker"
)

// ErrNotFound is returned when no stored record has the requested ID
var ErrNotFound = errors.New("record not found")

// TopicFunc maps an ST01 code to the topic its records are relayed to
type TopicFunc func(code string) (string, bool)

// StoredRecord is a decoded record as persisted
type StoredRecord struct {
	ID                 string          `json:"id"`
	BatchID            string          `json:"batch_id"`
	TransactionCode    string          `json:"transaction_code"`
	SenderID           string          `json:"sender_id"`
	ReceiverID         string          `json:"receiver_id"`
	InterchangeControl string          `json:"interchange_control_number"`
	GroupControl       string          `json:"group_control_number"`
	TransactionControl string          `json:"transaction_control_number"`
	Sequence           int             `json:"sequence"`
	Document           json.RawMessage `json:"document"`
	CreatedAt          time.Time       `json:"created_at"`
}

// SaveSummary counts what SaveResult wrote
type SaveSummary struct {
	Inserted         int `json:"inserted"`
	Duplicates       int `json:"duplicates"`
	OutboxEntries    int `json:"outbox_entries"`
	StructuralErrors int `json:"structural_errors"`
}

// Store persists decode results
type Store struct {
	pool     *pgxpool.Pool
	topicFor TopicFunc
	breaker  *circuitbreaker.CircuitBreaker
	logger   *zap.Logger
	tracer   trace.Tracer
}

// NewStore creates a store. topicFor and breaker may be nil; without
// topicFor no outbox entries are written.
func NewStore(pool *pgxpool.Pool, topicFor TopicFunc, breaker *circuitbreaker.CircuitBreaker, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{
		pool:     pool,
		topicFor: topicFor,
		breaker:  breaker,
		logger:   logger,
		tracer:   otel.Tracer("postgres-store"),
	}
}

// Ping checks the database connection
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// SaveResult writes every record, its outbox entry and the structural errors
// of res in one transaction. Records whose ID already exists are skipped along
// with their outbox entry, so replaying an interchange publishes nothing new.
func (s *Store) SaveResult(ctx context.Context, res *decode.Result) (SaveSummary, error) {
	if s.breaker == nil {
		return s.saveResult(ctx, res)
	}
	return circuitbreaker.Call(ctx, s.breaker, func(ctx context.Context) (SaveSummary, error) {
		return s.saveResult(ctx, res)
	})
}

func (s *Store) saveResult(ctx context.Context, res *decode.Result) (SaveSummary, error) {
	ctx, span := s.tracer.Start(ctx, "store_save_result",
		trace.WithAttributes(
			attribute.String("batch_id", res.BatchID),
			attribute.Int("records", len(res.Records)),
		))
	defer span.End()

	var sum SaveSummary
	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		batch := &pgx.Batch{}
		outboxed := make([]bool, len(res.Records))

		for i, rec := range res.Records {
			doc, err := rec.Document.ToJSON()
			if err != nil {
				return fmt.Errorf("marshal record %s: %w", rec.ID, err)
			}
			payload, err := json.Marshal(rec)
			if err != nil {
				return fmt.Errorf("marshal record %s: %w", rec.ID, err)
			}

			topic, ok := "", false
			if s.topicFor != nil {
				topic, ok = s.topicFor(rec.TransactionCode)
			}
			outboxed[i] = ok

			args := []any{
				rec.ID, res.BatchID, rec.TransactionCode,
				res.Interchange.SenderID, res.Interchange.ReceiverID,
				rec.InterchangeControl, rec.GroupControl, rec.TransactionControl,
				rec.Sequence, doc,
			}
			if ok {
				batch.Queue(insertRecordWithOutbox, append(args,
					"x12."+rec.TransactionCode+".decoded", payload, topic)...)
			} else {
				batch.Queue(insertRecord, args...)
			}
		}

		for _, se := range res.StructuralErrors {
			batch.Queue(insertStructuralError,
				res.BatchID, res.Interchange.ControlNumber,
				se.Unit, se.ControlNumber, se.Index, se.Expected, se.Found)
		}

		br := tx.SendBatch(ctx, batch)
		for i := range res.Records {
			tag, err := br.Exec()
			if err != nil {
				br.Close()
				return fmt.Errorf("insert record %s: %w", res.Records[i].ID, err)
			}
			if tag.RowsAffected() == 0 {
				sum.Duplicates++
				continue
			}
			sum.Inserted++
			if outboxed[i] {
				sum.OutboxEntries++
			}
		}
		for range res.StructuralErrors {
			if _, err := br.Exec(); err != nil {
				br.Close()
				return fmt.Errorf("insert structural error: %w", err)
			}
			sum.StructuralErrors++
		}
		return br.Close()
	})
	if err != nil {
		span.RecordError(err)
		return SaveSummary{}, err
	}

	s.logger.Debug("decode result stored",
		zap.String("batch_id", res.BatchID),
		zap.Int("inserted", sum.Inserted),
		zap.Int("duplicates", sum.Duplicates))
	return sum, nil
}

const insertRecord = `
	INSERT INTO decoded_transactions (id, batch_id, transaction_code, sender_id, receiver_id,
		interchange_control_number, group_control_number, transaction_control_number, sequence, document)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	ON CONFLICT (id) DO NOTHING
`

// the outbox row is only written when the record row was
const insertRecordWithOutbox = `
	WITH ins AS (
		INSERT INTO decoded_transactions (id, batch_id, transaction_code, sender_id, receiver_id,
			interchange_control_number, group_control_number, transaction_control_number, sequence, document)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (id) DO NOTHING
		RETURNING id, transaction_code
	)
	INSERT INTO outbox (record_id, transaction_code, event_type, payload, kafka_topic, kafka_key)
	SELECT id, transaction_code, $11::text, $12::jsonb, $13::text, id::text FROM ins
`

const insertStructuralError = `
	INSERT INTO structural_errors (batch_id, interchange_control_number, unit, control_number,
		segment_index, expected, found)
	VALUES ($1, $2, $3, $4, $5, $6, $7)
`

// GetRecord returns one stored record
func (s *Store) GetRecord(ctx context.Context, id string) (*StoredRecord, error) {
	ctx, span := s.tracer.Start(ctx, "store_get_record",
		trace.WithAttributes(attribute.String("record_id", id)))
	defer span.End()

	query := `
		SELECT id::text, batch_id::text, transaction_code, sender_id, receiver_id,
		       interchange_control_number, group_control_number, transaction_control_number,
		       sequence, document, created_at
		FROM decoded_transactions
		WHERE id = $1
	`
	r := &StoredRecord{}
	err := s.pool.QueryRow(ctx, query, id).Scan(
		&r.ID, &r.BatchID, &r.TransactionCode, &r.SenderID, &r.ReceiverID,
		&r.InterchangeControl, &r.GroupControl, &r.TransactionControl,
		&r.Sequence, &r.Document, &r.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("get record %s: %w", id, err)
	}
	return r, nil
}
