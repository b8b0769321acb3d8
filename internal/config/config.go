// Package config loads service configuration from the environment and an
// optional .env file.
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/Rkibbe123/app-datafabric/internal/x12"
)

type Config struct {
	HTTPPort              string   `mapstructure:"HTTP_PORT"`
	Env                   string   `mapstructure:"ENV"`
	DatabaseURL           string   `mapstructure:"DATABASE_URL"`
	KafkaBrokers          []string `mapstructure:"KAFKA_BROKERS"`
	KafkaGroupID          string   `mapstructure:"KAFKA_GROUP_ID"`
	LogLevel              string   `mapstructure:"LOG_LEVEL"`
	OTLPEndpoint          string   `mapstructure:"OTLP_ENDPOINT"`
	TraceSampleRate       float64  `mapstructure:"TRACE_SAMPLE_RATE"`
	DecodeWorkers         int      `mapstructure:"DECODE_WORKERS"`
	DecodeQueueSize       int      `mapstructure:"DECODE_QUEUE_SIZE"`
	X12ElementSeparator   string   `mapstructure:"X12_ELEMENT_SEPARATOR"`
	X12CompositeSeparator string   `mapstructure:"X12_COMPOSITE_SEPARATOR"`
	X12SegmentTerminator  string   `mapstructure:"X12_SEGMENT_TERMINATOR"`
	APIKeys               []string `mapstructure:"API_KEYS"`
	MaxBodyBytes          int64    `mapstructure:"MAX_BODY_BYTES"`
	ErrorMessageMaxLen    int      `mapstructure:"ERROR_MESSAGE_MAX_LEN"`
}

var keys = []string{
	"HTTP_PORT", "ENV", "DATABASE_URL", "KAFKA_BROKERS", "KAFKA_GROUP_ID",
	"LOG_LEVEL", "OTLP_ENDPOINT", "TRACE_SAMPLE_RATE", "DECODE_WORKERS",
	"DECODE_QUEUE_SIZE", "X12_ELEMENT_SEPARATOR", "X12_COMPOSITE_SEPARATOR",
	"X12_SEGMENT_TERMINATOR", "API_KEYS", "MAX_BODY_BYTES", "ERROR_MESSAGE_MAX_LEN",
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.AutomaticEnv()

	v.SetDefault("HTTP_PORT", "8081")
	v.SetDefault("ENV", "development")
	v.SetDefault("KAFKA_BROKERS", "localhost:9092")
	v.SetDefault("KAFKA_GROUP_ID", "x12-decode-worker")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("TRACE_SAMPLE_RATE", 1.0)
	v.SetDefault("DECODE_WORKERS", 8)
	v.SetDefault("DECODE_QUEUE_SIZE", 1024)
	v.SetDefault("MAX_BODY_BYTES", 64<<20)
	v.SetDefault("ERROR_MESSAGE_MAX_LEN", 500)

	// Bind env vars explicitly so Unmarshal picks them up
	for _, k := range keys {
		_ = v.BindEnv(k)
	}

	// a missing .env is fine
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	// comma lists arrive from the environment as one string
	cfg.KafkaBrokers = splitList(v.GetString("KAFKA_BROKERS"))
	cfg.APIKeys = splitList(v.GetString("API_KEYS"))

	return cfg, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// Delimiters returns the configured separators, or nil when none are set and
// they should be read from each ISA header.
func (c *Config) Delimiters() (*x12.Delimiters, error) {
	set := 0
	for _, s := range []string{c.X12ElementSeparator, c.X12CompositeSeparator, c.X12SegmentTerminator} {
		if s != "" {
			set++
		}
	}
	if set == 0 {
		return nil, nil
	}
	if set != 3 {
		return nil, fmt.Errorf("X12_ELEMENT_SEPARATOR, X12_COMPOSITE_SEPARATOR and X12_SEGMENT_TERMINATOR must be set together")
	}
	d := x12.Delimiters{}
	for _, f := range []struct {
		name string
		val  string
		dst  *byte
	}{
		{"X12_ELEMENT_SEPARATOR", c.X12ElementSeparator, &d.Element},
		{"X12_COMPOSITE_SEPARATOR", c.X12CompositeSeparator, &d.Composite},
		{"X12_SEGMENT_TERMINATOR", c.X12SegmentTerminator, &d.Segment},
	} {
		if len(f.val) != 1 {
			return nil, fmt.Errorf("%s must be a single byte, got %q", f.name, f.val)
		}
		*f.dst = f.val[0]
	}
	if err := d.Validate(); err != nil {
		return nil, err
	}
	return &d, nil
}

// APIKeyMap parses API_KEYS entries of the form key:client.
func (c *Config) APIKeyMap() (map[string]string, error) {
	m := make(map[string]string, len(c.APIKeys))
	for _, entry := range c.APIKeys {
		key, client, ok := strings.Cut(entry, ":")
		if !ok || key == "" || client == "" {
			return nil, fmt.Errorf("API_KEYS entry %q is not key:client", entry)
		}
		m[key] = client
	}
	return m, nil
}

// Validate checks values every binary relies on.
func (c *Config) Validate() error {
	if _, err := c.Delimiters(); err != nil {
		return err
	}
	if _, err := c.APIKeyMap(); err != nil {
		return err
	}
	if _, err := zapcore.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("LOG_LEVEL: %w", err)
	}
	if c.TraceSampleRate < 0 || c.TraceSampleRate > 1 {
		return fmt.Errorf("TRACE_SAMPLE_RATE must be within [0, 1], got %v", c.TraceSampleRate)
	}
	if c.DecodeWorkers <= 0 || c.DecodeQueueSize <= 0 {
		return fmt.Errorf("DECODE_WORKERS and DECODE_QUEUE_SIZE must be positive")
	}
	if c.MaxBodyBytes <= 0 {
		return fmt.Errorf("MAX_BODY_BYTES must be positive")
	}
	return nil
}

// Require reports the first of keys whose value is empty.
func (c *Config) Require(keys ...string) error {
	for _, k := range keys {
		empty := false
		switch k {
		case "DATABASE_URL":
			empty = c.DatabaseURL == ""
		case "KAFKA_BROKERS":
			empty = len(c.KafkaBrokers) == 0
		case "KAFKA_GROUP_ID":
			empty = c.KafkaGroupID == ""
		case "API_KEYS":
			empty = len(c.APIKeys) == 0
		default:
			return fmt.Errorf("unknown required key %s", k)
		}
		if empty {
			return fmt.Errorf("%s is required", k)
		}
	}
	return nil
}

// NewLogger builds a production zap logger at LOG_LEVEL, or a development
// logger when ENV=development.
func (c *Config) NewLogger() (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(c.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("LOG_LEVEL: %w", err)
	}
	zc := zap.NewProductionConfig()
	if c.IsDev() {
		zc = zap.NewDevelopmentConfig()
	}
	zc.Level = zap.NewAtomicLevelAt(level)
	return zc.Build()
}
