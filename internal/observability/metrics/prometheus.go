// Package metrics provides Prometheus metrics for the X12 decode services.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all application metrics
type Metrics struct {
	InterchangesReceived  prometheus.Counter
	InterchangesRejected  prometheus.Counter
	TransactionsDecoded   *prometheus.CounterVec
	TransactionsSkipped   *prometheus.CounterVec
	StructuralErrors      *prometheus.CounterVec
	RecordsDecoded        *prometheus.CounterVec
	DecodeDuration        prometheus.Histogram
	KafkaMessagesProduced *prometheus.CounterVec
	KafkaMessagesConsumed *prometheus.CounterVec
	OutboxPending         prometheus.Gauge
	CircuitBreakerState   *prometheus.GaugeVec
}

// New creates metrics and registers them with the default registry
func New() *Metrics {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

// NewWithRegistry creates metrics and registers them with reg
func NewWithRegistry(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		InterchangesReceived: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "x12_interchanges_received_total",
			Help: "Total interchanges submitted for decoding",
		}),
		InterchangesRejected: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "x12_interchanges_rejected_total",
			Help: "Interchanges that could not be tokenized",
		}),
		TransactionsDecoded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "x12_transactions_decoded_total",
			Help: "Transaction sets decoded, by ST01 code",
		}, []string{"code"}),
		TransactionsSkipped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "x12_transactions_skipped_total",
			Help: "Transaction sets with no registered projection, by ST01 code",
		}, []string{"code"}),
		StructuralErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "x12_structural_errors_total",
			Help: "Unclosed envelope units, by unit",
		}, []string{"unit"}),
		RecordsDecoded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "x12_records_decoded_total",
			Help: "Decoded records emitted, by ST01 code",
		}, []string{"code"}),
		DecodeDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "x12_decode_duration_seconds",
			Help:    "Interchange decode duration",
			Buckets: []float64{.0005, .001, .005, .01, .025, .05, .1, .25, .5, 1},
		}),
		KafkaMessagesProduced: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "kafka_messages_produced_total",
			Help: "Total Kafka messages produced, by topic",
		}, []string{"topic"}),
		KafkaMessagesConsumed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "kafka_messages_consumed_total",
			Help: "Total Kafka messages consumed, by topic",
		}, []string{"topic"}),
		OutboxPending: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "outbox_pending_entries",
			Help: "Pending outbox entries",
		}),
		CircuitBreakerState: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		}, []string{"name"}),
	}

	reg.MustRegister(
		m.InterchangesReceived,
		m.InterchangesRejected,
		m.TransactionsDecoded,
		m.TransactionsSkipped,
		m.StructuralErrors,
		m.RecordsDecoded,
		m.DecodeDuration,
		m.KafkaMessagesProduced,
		m.KafkaMessagesConsumed,
		m.OutboxPending,
		m.CircuitBreakerState,
	)

	return m
}

// Handler returns the Prometheus HTTP handler
func Handler() http.Handler {
	return promhttp.Handler()
}
