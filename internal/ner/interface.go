// Package ner defines the boundary to an external statistical entity
// recognizer. The scrub pipeline must construct and run correctly with this
// adapter entirely absent: every implementation failure degrades to
// pattern-only scrubbing, never to an error surfaced to the caller.
package ner

import (
	"context"
	"time"

	"github.com/clinsafe/deid/internal/entity"
)

// Recognizer is the narrow adapter contract for statistical entity
// detection. Implementations normalize their output into the same candidate
// span shape the pattern detector produces.
type Recognizer interface {
	// Detect returns candidate spans found in text. Offsets are byte
	// offsets into text. Implementations must respect ctx cancellation.
	Detect(ctx context.Context, text, language string, categories []entity.Category) ([]entity.CandidateSpan, error)
	// Close releases any held resources.
	Close() error
}

// Config contains recognizer configuration.
type Config struct {
	// Type selects the implementation: none, remote, or onnx.
	Type string `yaml:"type" mapstructure:"type"`
	// Timeout bounds a single Detect call. On expiry the pipeline
	// degrades to pattern-only passes.
	Timeout time.Duration `yaml:"timeout" mapstructure:"timeout"`
	Remote  RemoteConfig  `yaml:"remote" mapstructure:"remote"`
	ONNX    ONNXConfig    `yaml:"onnx" mapstructure:"onnx"`
	Cache   CacheConfig   `yaml:"cache" mapstructure:"cache"`
}

// RemoteConfig configures the HTTP client to an external NER service.
type RemoteConfig struct {
	URL               string  `yaml:"url" mapstructure:"url"`
	RequestsPerSecond float64 `yaml:"requests_per_second" mapstructure:"requests_per_second"`
	Burst             int     `yaml:"burst" mapstructure:"burst"`
}

// ONNXConfig configures the in-process token-classification backend.
type ONNXConfig struct {
	ModelPath string `yaml:"model_path" mapstructure:"model_path"`
	VocabPath string `yaml:"vocab_path" mapstructure:"vocab_path"`
	MaxLength int    `yaml:"max_length" mapstructure:"max_length"`
}

// CacheConfig configures the Redis-backed detection cache.
type CacheConfig struct {
	Enabled        bool          `yaml:"enabled" mapstructure:"enabled"`
	RedisURL       string        `yaml:"redis_url" mapstructure:"redis_url"`
	KeyPrefix      string        `yaml:"key_prefix" mapstructure:"key_prefix"`
	TTL            time.Duration `yaml:"ttl" mapstructure:"ttl"`
	MaxConnections int           `yaml:"max_connections" mapstructure:"max_connections"`
	MinIdleConns   int           `yaml:"min_idle_conns" mapstructure:"min_idle_conns"`
}

// Defaults returns recognizer configuration defaults: pattern-only mode.
func Defaults() Config {
	return Config{
		Type:    "none",
		Timeout: 2 * time.Second,
		Remote: RemoteConfig{
			RequestsPerSecond: 20,
			Burst:             5,
		},
		ONNX: ONNXConfig{
			MaxLength: 512,
		},
		Cache: CacheConfig{
			Enabled:        false,
			RedisURL:       "redis://localhost:6379/0",
			KeyPrefix:      "deid",
			TTL:            time.Hour,
			MaxConnections: 10,
			MinIdleConns:   2,
		},
	}
}

// Noop is the always-empty recognizer used when no statistical model is
// configured. It never matches and never fails.
type Noop struct{}

// Detect implements Recognizer.
func (Noop) Detect(ctx context.Context, text, language string, categories []entity.Category) ([]entity.CandidateSpan, error) {
	return nil, nil
}

// Close implements Recognizer.
func (Noop) Close() error { return nil }

var _ Recognizer = Noop{}
