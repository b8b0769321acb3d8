// Package postgres stores decoded records and relays them to Kafka through a
// transactional outbox.
package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Schema creates the decoded record, structural error and outbox tables.
const Schema = `
CREATE TABLE IF NOT EXISTS decoded_transactions (
	id                          UUID PRIMARY KEY,
	batch_id                    UUID NOT NULL,
	transaction_code            TEXT NOT NULL,
	sender_id                   TEXT NOT NULL,
	receiver_id                 TEXT NOT NULL,
	interchange_control_number  TEXT NOT NULL,
	group_control_number        TEXT NOT NULL,
	transaction_control_number  TEXT NOT NULL,
	sequence                    INT  NOT NULL,
	document                    JSONB NOT NULL,
	created_at                  TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS decoded_transactions_interchange_idx
	ON decoded_transactions (sender_id, interchange_control_number);

CREATE TABLE IF NOT EXISTS structural_errors (
	id                          BIGSERIAL PRIMARY KEY,
	batch_id                    UUID NOT NULL,
	interchange_control_number  TEXT NOT NULL,
	unit                        TEXT NOT NULL,
	control_number              TEXT NOT NULL,
	segment_index               INT  NOT NULL,
	expected                    TEXT NOT NULL,
	found                       TEXT NOT NULL,
	created_at                  TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS outbox (
	id                BIGSERIAL PRIMARY KEY,
	record_id         UUID NOT NULL,
	transaction_code  TEXT NOT NULL,
	event_type        TEXT NOT NULL,
	payload           JSONB NOT NULL,
	kafka_topic       TEXT NOT NULL,
	kafka_key         TEXT NOT NULL,
	created_at        TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at        TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	processed_at      TIMESTAMPTZ,
	retry_count       INT NOT NULL DEFAULT 0,
	last_error        TEXT
);
CREATE INDEX IF NOT EXISTS outbox_pending_idx ON outbox (created_at) WHERE processed_at IS NULL;
`

// Migrate applies Schema
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	if _, err := pool.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}
