// Package integration runs an interchange through the whole decode pipeline
// against an embedded Postgres.
package integration

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/parquet-go/parquet-go"
	"go.uber.org/zap"

	"github.com/Rkibbe123/app-datafabric/internal/export"
	"github.com/Rkibbe123/app-datafabric/internal/infrastructure/postgres"
	"github.com/Rkibbe123/app-datafabric/internal/infrastructure/redpanda"
	"github.com/Rkibbe123/app-datafabric/internal/observability/errsink"
	"github.com/Rkibbe123/app-datafabric/internal/pgtest"
	"github.com/Rkibbe123/app-datafabric/internal/x12"
	"github.com/Rkibbe123/app-datafabric/internal/x12/decode"
	"github.com/Rkibbe123/app-datafabric/pkg/circuitbreaker"
	"github.com/Rkibbe123/app-datafabric/pkg/idempotency"
)

type published struct {
	topic, key string
	value      []byte
}

type recorder struct {
	mu   sync.Mutex
	msgs []published
}

func (r *recorder) Publish(_ context.Context, topic, key string, value []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.msgs = append(r.msgs, published{topic, key, value})
	return nil
}

func (r *recorder) on(topic string) []published {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []published
	for _, m := range r.msgs {
		if m.topic == topic {
			out = append(out, m)
		}
	}
	return out
}

func TestRemittancePipeline(t *testing.T) {
	raw, err := os.ReadFile("../fixtures/remittance_835.x12")
	if err != nil {
		t.Skipf("fixture not found: %v", err)
	}
	pool := pgtest.Start(t, 15444, postgres.Schema, idempotency.Schema)
	ctx := context.Background()

	// structural errors go to the log and to the errors topic
	bus := &recorder{}
	sink := errsink.New(errsink.DefaultConfig("integration"), zap.NewNop())
	sink.Forward(func(ctx context.Context, r errsink.Report) {
		value, _ := json.Marshal(r)
		bus.Publish(ctx, redpanda.TopicStructuralErrors, r.InterchangeControl, value)
	})
	decoder := decode.NewDecoder(decode.WithErrorSink(sink))

	breaker, err := circuitbreaker.New(circuitbreaker.DefaultConfig("postgres"), nil)
	if err != nil {
		t.Fatalf("circuitbreaker.New: %v", err)
	}
	store := postgres.NewStore(pool, redpanda.TopicForTransaction, breaker, nil)
	inbox := idempotency.NewInbox(pool, idempotency.DefaultInboxConfig(), nil)

	header, err := x12.ReadInterchangeHeader(string(raw))
	if err != nil {
		t.Fatalf("ReadInterchangeHeader: %v", err)
	}
	key := idempotency.GenerateKey(header.SenderID, header.ReceiverID, header.ControlNumber, raw)

	var decoded *decode.Result
	deliver := func() *idempotency.ProcessResult {
		t.Helper()
		out, err := inbox.Process(ctx, key, "integration", json.RawMessage(`{}`), func(ctx context.Context, _ json.RawMessage) (json.RawMessage, error) {
			res, err := decoder.Decode(ctx, string(raw))
			if err != nil {
				return nil, idempotency.Terminal(err)
			}
			decoded = res
			sum, err := store.SaveResult(ctx, res)
			if err != nil {
				return nil, err
			}
			return json.Marshal(sum)
		})
		if err != nil {
			t.Fatalf("inbox.Process: %v", err)
		}
		return out
	}

	first := deliver()
	if !first.IsNew {
		t.Fatal("first delivery should be new")
	}
	var sum postgres.SaveSummary
	if err := json.Unmarshal(first.Result, &sum); err != nil {
		t.Fatalf("summary: %v", err)
	}
	if sum.Inserted != 2 || sum.OutboxEntries != 2 || sum.StructuralErrors != 1 {
		t.Errorf("summary = %+v", sum)
	}
	if got := bus.on(redpanda.TopicStructuralErrors); len(got) != 1 || got[0].key != "000004242" {
		t.Errorf("structural error reports = %+v", got)
	}

	// a redelivery is answered from the inbox without decoding again
	decoded = nil
	if again := deliver(); again.IsNew || again.WasRecovered || decoded != nil {
		t.Errorf("redelivery = %+v, decoded again = %v", again, decoded != nil)
	}

	relay := postgres.NewOutbox(pool, bus, postgres.DefaultOutboxConfig(), nil)
	if n, err := relay.ProcessBatch(ctx); err != nil || n != 2 {
		t.Fatalf("ProcessBatch: n=%d err=%v", n, err)
	}
	events := bus.on(redpanda.TopicRemittanceDecoded)
	if len(events) != 2 {
		t.Fatalf("expected 2 remittance events, got %d", len(events))
	}
	var event struct {
		Claim struct {
			CLP struct {
				PatientControlNumber string `json:"patient_control_number"`
			} `json:"clp"`
			Lines []json.RawMessage `json:"claim_lines"`
		} `json:"claim"`
		ProviderAdjustments []struct {
			Amt2 *string `json:"provider_adjustment_amt_2"`
			Amt3 *string `json:"provider_adjustment_amt_3"`
		} `json:"provider_adjustments"`
	}
	if err := json.Unmarshal(events[0].value, &event); err != nil {
		t.Fatalf("event payload: %v", err)
	}
	if event.Claim.CLP.PatientControlNumber != "PCN-1" || len(event.Claim.Lines) != 2 {
		t.Errorf("first event = %s", events[0].value)
	}
	if len(event.ProviderAdjustments) != 1 || event.ProviderAdjustments[0].Amt2 == nil || event.ProviderAdjustments[0].Amt3 != nil {
		t.Errorf("provider adjustments = %s", events[0].value)
	}

	stored, err := store.GetRecord(ctx, events[1].key)
	if err != nil {
		t.Fatalf("GetRecord: %v", err)
	}
	if stored.Sequence != 1 || stored.SenderID != "ACMEHEALTH" {
		t.Errorf("stored = %+v", stored)
	}

	// the same result flattens into the analytics tables
	dir := t.TempDir()
	w, err := export.NewWriter(dir)
	if err != nil {
		t.Fatalf("NewWriter: %v", err)
	}
	res, err := decoder.Decode(ctx, string(raw))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	for _, rec := range res.Records {
		if err := w.WriteRecord(rec); err != nil {
			t.Fatalf("WriteRecord: %v", err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	lines, err := parquet.ReadFile[export.ClaimLineRow](filepath.Join(dir, export.ClaimLinesFile))
	if err != nil {
		t.Fatalf("read claim lines: %v", err)
	}
	if len(lines) != 2 || len(lines[0].AdjustmentReasons) != 2 {
		t.Errorf("claim lines = %+v", lines)
	}
}
