package ner

import (
	"context"
	"testing"

	"go.uber.org/zap"

	"github.com/clinsafe/deid/internal/entity"
)

func TestNewRecognizerFailsOpen(t *testing.T) {
	cases := []struct {
		name string
		cfg  func() Config
	}{
		{"DefaultIsNone", Defaults},
		{"UnknownType", func() Config {
			cfg := Defaults()
			cfg.Type = "transformer"
			return cfg
		}},
		{"RemoteWithoutURL", func() Config {
			cfg := Defaults()
			cfg.Type = "remote"
			return cfg
		}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			recognizer := NewRecognizer(tc.cfg(), zap.NewNop())
			if _, ok := recognizer.(Noop); !ok {
				t.Fatalf("Got %T, want Noop (misconfiguration must not stop the engine)", recognizer)
			}
		})
	}
}

func TestNoopRecognizer(t *testing.T) {
	spans, err := Noop{}.Detect(context.Background(), "Gregory Marbury", "en", []entity.Category{entity.CategoryName})
	if err != nil {
		t.Fatalf("Noop.Detect returned error: %v", err)
	}
	if len(spans) != 0 {
		t.Errorf("Noop.Detect returned %d spans, want 0", len(spans))
	}
	if err := (Noop{}).Close(); err != nil {
		t.Errorf("Noop.Close returned error: %v", err)
	}
}
