package config

import "testing"

func TestDefaultsAreValid(t *testing.T) {
	if err := validateConfig(GetDefaults()); err != nil {
		t.Fatalf("Default configuration must validate: %v", err)
	}
}

func TestValidateConfig(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"ConfidenceAboveOne", func(c *Config) { c.Suppression.MinPersonConfidence = 1.5 }},
		{"NegativeConfidence", func(c *Config) { c.Suppression.MinPersonConfidence = -0.1 }},
		{"NegativeContextWindow", func(c *Config) { c.Suppression.ContextWindow = -1 }},
		{"UnknownRecognizerType", func(c *Config) { c.Recognizer.Type = "transformer" }},
		{"BadLogLevel", func(c *Config) { c.Logging.Level = "verbose" }},
		{"BadLogFormat", func(c *Config) { c.Logging.Format = "xml" }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := GetDefaults()
			tc.mutate(cfg)
			if err := validateConfig(cfg); err == nil {
				t.Error("Expected validation error, got nil")
			}
		})
	}
}
