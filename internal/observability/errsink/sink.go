// Package errsink logs decode errors without leaking credentials, hosts or
// personal data. Messages are redacted, truncated and tagged with a short
// error ID that operators can correlate across log lines.
package errsink

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"regexp"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const truncatedSuffix = "... [truncated]"

type rule struct {
	re   *regexp.Regexp
	repl string
}

// Redaction rules, applied in order.
var rules = []rule{
	// connection strings
	{regexp.MustCompile(`(?i)(password|pwd)\s*[=:]\s*[^\s;]+`), "${1}=***REDACTED***"},
	{regexp.MustCompile(`(?i)(server|host)\s*[=:]\s*[^\s;]+`), "${1}=***REDACTED***"},
	{regexp.MustCompile(`(?i)(user\s*id|uid|username)\s*[=:]\s*[^\s;]+`), "${1}=***REDACTED***"},
	{regexp.MustCompile(`(?i)(postgres(?:ql)?://)[^\s]+`), "${1}***REDACTED***"},
	// api keys and tokens
	{regexp.MustCompile(`(?i)(api[_-]?key|apikey)\s*[=:]\s*[^\s]+`), "${1}=***REDACTED***"},
	{regexp.MustCompile(`(?i)(bearer|token)\s+[a-zA-Z0-9\-_.]+`), "${1} ***REDACTED***"},
	{regexp.MustCompile(`(?i)(authorization)\s*[=:]\s*[^\s]+`), "${1}=***REDACTED***"},
	// cloud account keys
	{regexp.MustCompile(`(?i)(AccountKey|SharedAccessSignature)\s*[=:]\s*[^\s;]+`), "${1}=***REDACTED***"},
	{regexp.MustCompile(`(?i)DefaultEndpointsProtocol=https;[^"']+`), "***CONNECTION_STRING_REDACTED***"},
	{regexp.MustCompile(`(?i)(aws[_-]?access[_-]?key[_-]?id|aws[_-]?secret)\s*[=:]\s*[^\s]+`), "${1}=***REDACTED***"},
	// storage paths
	{regexp.MustCompile(`(?i)/dbfs/mnt/[^\s]+`), "/dbfs/mnt/***PATH_REDACTED***"},
	{regexp.MustCompile(`(?i)abfss://[^\s]+`), "abfss://***STORAGE_REDACTED***"},
	{regexp.MustCompile(`(?i)s3a?://[^\s]+`), "s3://***STORAGE_REDACTED***"},
	// addresses
	{regexp.MustCompile(`\b\d{1,3}\.\d{1,3}\.\d{1,3}\.\d{1,3}\b`), "***IP_REDACTED***"},
	{regexp.MustCompile(`[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}`), "***EMAIL_REDACTED***"},
}

// Config holds sink configuration
type Config struct {
	// Process names the component that reports, e.g. "decode-worker"
	Process string
	// MaxMessageLength caps the sanitized message
	MaxMessageLength int
}

// DefaultConfig returns defaults
func DefaultConfig(process string) Config {
	return Config{Process: process, MaxMessageLength: 500}
}

// Report is the safe form of one reported error.
type Report struct {
	Process            string `json:"process"`
	InterchangeControl string `json:"interchange_control_number"`
	ErrorType          string `json:"error_type"`
	ErrorID            string `json:"error_id"`
	Message            string `json:"message"`
}

// Sink logs sanitized error reports. It is safe for concurrent use.
type Sink struct {
	cfg    Config
	logger *zap.Logger
	next   []func(context.Context, Report)
}

// New creates a sink.
func New(cfg Config, logger *zap.Logger) *Sink {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.MaxMessageLength <= 0 {
		cfg.MaxMessageLength = DefaultConfig(cfg.Process).MaxMessageLength
	}
	return &Sink{cfg: cfg, logger: logger}
}

// Forward registers fn to receive every sanitized report after it is
// logged, e.g. to publish it. Call before the sink is shared.
func (s *Sink) Forward(fn func(context.Context, Report)) {
	s.next = append(s.next, fn)
}

// Report logs err at error level with the interchange it came from.
func (s *Sink) Report(ctx context.Context, interchangeControl string, err error) {
	if err == nil {
		return
	}
	r := s.Build(interchangeControl, err)

	fields := []zap.Field{
		zap.String("process", r.Process),
		zap.String("interchange", r.InterchangeControl),
		zap.String("error_type", r.ErrorType),
		zap.String("error_id", r.ErrorID),
		zap.String("message", r.Message),
	}
	if sc := trace.SpanContextFromContext(ctx); sc.HasTraceID() {
		fields = append(fields, zap.String("trace_id", sc.TraceID().String()))
	}
	s.logger.Error("decode error reported", fields...)

	for _, fn := range s.next {
		fn(ctx, r)
	}
}

// Build returns the sanitized report for err without logging it.
func (s *Sink) Build(interchangeControl string, err error) Report {
	return Report{
		Process:            s.cfg.Process,
		InterchangeControl: interchangeControl,
		ErrorType:          fmt.Sprintf("%T", err),
		ErrorID:            ErrorID(err),
		Message:            s.Sanitize(err.Error()),
	}
}

// Sanitize redacts secrets and truncates text to the configured length.
func (s *Sink) Sanitize(text string) string {
	return Sanitize(text, s.cfg.MaxMessageLength)
}

// Sanitize redacts secrets in text and truncates it to maxLen bytes.
func Sanitize(text string, maxLen int) string {
	for _, r := range rules {
		text = r.re.ReplaceAllString(text, r.repl)
	}
	if maxLen > 0 && len(text) > maxLen {
		text = text[:maxLen] + truncatedSuffix
	}
	return text
}

// ErrorID hashes the error type and the first 100 bytes of its message into
// a 12 character correlation ID.
func ErrorID(err error) string {
	msg := err.Error()
	if len(msg) > 100 {
		msg = msg[:100]
	}
	sum := sha256.Sum256([]byte(fmt.Sprintf("%T:%s", err, msg)))
	return hex.EncodeToString(sum[:])[:12]
}
