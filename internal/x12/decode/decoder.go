package decode

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/Rkibbe123/app-datafabric/internal/observability/metrics"
	"github.com/Rkibbe123/app-datafabric/internal/x12"
)

// recordNamespace seeds record IDs so that decoding the same interchange
// twice yields the same IDs.
var recordNamespace = uuid.MustParse("6f1c7a5e-2b8d-4c3e-9a41-0d5e8b7f3c21")

// ErrorSink receives structural errors found while framing. Implementations
// must be safe for concurrent use.
type ErrorSink interface {
	Report(ctx context.Context, interchangeControl string, err error)
}

// NopSink discards every report.
type NopSink struct{}

func (NopSink) Report(context.Context, string, error) {}

// Record is one decoded document plus the envelope it came from.
type Record struct {
	ID                  string  `json:"id"`
	TransactionCode     string  `json:"transaction_code"`
	InterchangeControl  string  `json:"interchange_control_number"`
	GroupControl        string  `json:"group_control_number"`
	TransactionControl  string  `json:"transaction_control_number"`
	ConventionReference string  `json:"implementation_convention_reference"`
	Sequence            int     `json:"sequence"`
	Document            Variant `json:"document"`
}

// Skipped names a transaction set that no registered variant handles.
type Skipped struct {
	Code          string `json:"transaction_code"`
	ControlNumber string `json:"control_number"`
}

// Result is everything decoded from one interchange.
type Result struct {
	BatchID          string                 `json:"batch_id"`
	Interchange      x12.InterchangeHeader  `json:"interchange"`
	Records          []Record               `json:"records"`
	StructuralErrors []*x12.StructuralError `json:"structural_errors"`
	Skipped          []Skipped              `json:"skipped"`
}

// Option configures a Decoder.
type Option func(*Decoder)

// WithRegistry replaces the default 835/837 registry.
func WithRegistry(r *Registry) Option { return func(d *Decoder) { d.registry = r } }

// WithErrorSink sets where structural errors are reported.
func WithErrorSink(s ErrorSink) Option { return func(d *Decoder) { d.sink = s } }

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option { return func(d *Decoder) { d.logger = l } }

// WithMetrics enables Prometheus counters.
func WithMetrics(m *metrics.Metrics) Option { return func(d *Decoder) { d.metrics = m } }

// WithDelimiters fixes the separators instead of reading them from ISA.
func WithDelimiters(delims x12.Delimiters) Option {
	return func(d *Decoder) { d.delimiters = &delims }
}

// Decoder frames interchanges and projects each transaction set through the
// registry. A Decoder is safe for concurrent use.
type Decoder struct {
	registry   *Registry
	sink       ErrorSink
	logger     *zap.Logger
	metrics    *metrics.Metrics
	tracer     trace.Tracer
	delimiters *x12.Delimiters
}

// NewDecoder creates a decoder.
func NewDecoder(opts ...Option) *Decoder {
	d := &Decoder{
		registry: DefaultRegistry(),
		sink:     NopSink{},
		logger:   zap.NewNop(),
		tracer:   otel.Tracer("x12-decoder"),
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.logger == nil {
		d.logger = zap.NewNop()
	}
	if d.sink == nil {
		d.sink = NopSink{}
	}
	return d
}

// Decode tokenizes raw and decodes every transaction set in it. The error
// is non-nil only when raw cannot be tokenized at all or a projection
// rejects a framed transaction set; structural errors are in the Result.
func (d *Decoder) Decode(ctx context.Context, raw string) (*Result, error) {
	if d.metrics != nil {
		d.metrics.InterchangesReceived.Inc()
	}

	var (
		segs x12.Stream
		err  error
	)
	if d.delimiters != nil {
		if err = d.delimiters.Validate(); err == nil {
			segs = x12.Tokenize(raw, *d.delimiters)
		}
	} else {
		segs, _, err = x12.TokenizeDetect(raw)
	}
	if err == nil && len(segs) == 0 {
		err = x12.ErrEmptyInterchange
	}
	if err != nil {
		if d.metrics != nil {
			d.metrics.InterchangesRejected.Inc()
		}
		return nil, fmt.Errorf("tokenize interchange: %w", err)
	}
	return d.DecodeSegments(ctx, segs)
}

// DecodeSegments decodes an already tokenized interchange.
func (d *Decoder) DecodeSegments(ctx context.Context, segs x12.Stream) (*Result, error) {
	start := time.Now()
	ctx, span := d.tracer.Start(ctx, "x12.decode",
		trace.WithAttributes(attribute.Int("segments", len(segs))))
	defer span.End()

	ic := x12.Frame(segs)
	res := &Result{
		BatchID:          uuid.NewString(),
		Interchange:      ic.Header,
		Records:          []Record{},
		StructuralErrors: ic.Errors,
		Skipped:          []Skipped{},
	}
	if res.StructuralErrors == nil {
		res.StructuralErrors = []*x12.StructuralError{}
	}
	span.SetAttributes(
		attribute.String("interchange_control_number", ic.Header.ControlNumber),
		attribute.String("batch_id", res.BatchID),
	)

	for _, serr := range ic.Errors {
		d.sink.Report(ctx, ic.Header.ControlNumber, serr)
		if d.metrics != nil {
			d.metrics.StructuralErrors.WithLabelValues(serr.Unit).Inc()
		}
	}

	for _, g := range ic.Groups {
		for _, ts := range g.Transactions {
			variants, err := d.registry.Build(ts)
			if errors.Is(err, ErrUnsupportedTransaction) {
				d.logger.Info("skipping unsupported transaction set",
					zap.String("code", ts.Code),
					zap.String("control_number", ts.ControlNumber),
					zap.String("interchange", ic.Header.ControlNumber))
				res.Skipped = append(res.Skipped, Skipped{Code: ts.Code, ControlNumber: ts.ControlNumber})
				if d.metrics != nil {
					d.metrics.TransactionsSkipped.WithLabelValues(ts.Code).Inc()
				}
				continue
			}
			if err != nil {
				span.RecordError(err)
				span.SetStatus(codes.Error, "projection rejected transaction set")
				return nil, fmt.Errorf("transaction set %s %q: %w", ts.Code, ts.ControlNumber, err)
			}
			for i, v := range variants {
				res.Records = append(res.Records, Record{
					ID:                  recordID(ic.Header, g.Header, ts, i),
					TransactionCode:     ts.Code,
					InterchangeControl:  ic.Header.ControlNumber,
					GroupControl:        g.Header.ControlNumber,
					TransactionControl:  ts.ControlNumber,
					ConventionReference: ts.ConventionReference,
					Sequence:            i,
					Document:            v,
				})
			}
			if d.metrics != nil {
				d.metrics.TransactionsDecoded.WithLabelValues(ts.Code).Inc()
				d.metrics.RecordsDecoded.WithLabelValues(ts.Code).Add(float64(len(variants)))
			}
		}
	}

	if d.metrics != nil {
		d.metrics.DecodeDuration.Observe(time.Since(start).Seconds())
	}
	span.SetAttributes(
		attribute.Int("records", len(res.Records)),
		attribute.Int("structural_errors", len(res.StructuralErrors)),
	)
	d.logger.Debug("interchange decoded",
		zap.String("interchange", ic.Header.ControlNumber),
		zap.String("batch_id", res.BatchID),
		zap.Int("records", len(res.Records)),
		zap.Int("structural_errors", len(res.StructuralErrors)),
		zap.Int("skipped", len(res.Skipped)))
	return res, nil
}

func recordID(isa x12.InterchangeHeader, gs x12.GroupHeader, ts x12.TransactionSet, seq int) string {
	key := fmt.Sprintf("%s|%s|%s|%s|%s|%d|%d",
		isa.SenderID, isa.ReceiverID, isa.ControlNumber, gs.ControlNumber, ts.ControlNumber, ts.Start, seq)
	return uuid.NewSHA1(recordNamespace, []byte(key)).String()
}
