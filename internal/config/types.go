package config

import (
	"github.com/clinsafe/deid/internal/etl"
	"github.com/clinsafe/deid/internal/knowledge"
	"github.com/clinsafe/deid/internal/ner"
	"github.com/clinsafe/deid/internal/termstore"
)

// Config represents the main configuration structure
type Config struct {
	Knowledge   knowledge.Config  `yaml:"knowledge" mapstructure:"knowledge"`
	Suppression SuppressionConfig `yaml:"suppression" mapstructure:"suppression"`
	Recognizer  ner.Config        `yaml:"recognizer" mapstructure:"recognizer"`
	Audit       AuditConfig       `yaml:"audit" mapstructure:"audit"`
	Logging     LoggingConfig     `yaml:"logging" mapstructure:"logging"`
	Database    termstore.Config  `yaml:"database" mapstructure:"database"`
	ETL         etl.Config        `yaml:"etl" mapstructure:"etl"`
}

// SuppressionConfig tunes the suppression guard chain.
type SuppressionConfig struct {
	// MinPersonConfidence is the confidence floor for NER-sourced person
	// spans. Deliberately high: a false negative is recoverable by the
	// pattern pass, a false positive destroys clinical meaning.
	MinPersonConfidence float64 `yaml:"min_person_confidence" mapstructure:"min_person_confidence"`
	// ContextWindow is the number of whitespace tokens inspected on each
	// side of a span by the medical-context guard.
	ContextWindow int `yaml:"context_window" mapstructure:"context_window"`
}

// AuditConfig controls suppression-decision auditing.
type AuditConfig struct {
	Enabled bool `yaml:"enabled" mapstructure:"enabled"`
	// IncludeDenied also records spans the engine decided to preserve,
	// which makes every guard-chain branch observable.
	IncludeDenied bool `yaml:"include_denied" mapstructure:"include_denied"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"` // json or console
	File   struct {
		Enabled bool   `yaml:"enabled" mapstructure:"enabled"`
		Path    string `yaml:"path" mapstructure:"path"`
	} `yaml:"file" mapstructure:"file"`
}

// GetDefaults returns a configuration with sensible defaults
func GetDefaults() *Config {
	return &Config{
		Knowledge: knowledge.Config{},
		Suppression: SuppressionConfig{
			MinPersonConfidence: 0.85,
			ContextWindow:       3,
		},
		Recognizer: ner.Defaults(),
		Audit: AuditConfig{
			Enabled:       true,
			IncludeDenied: true,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Database: termstore.Defaults(),
		ETL:      etl.Defaults(),
	}
}
