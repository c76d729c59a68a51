package ner

import (
	"fmt"

	"go.uber.org/zap"
)

// NewRecognizer builds a recognizer from configuration, wrapping it with the
// Redis detection cache when enabled. Construction fails open: a recognizer
// that cannot be built degrades to Noop with a warning, so the pipeline still
// runs its pattern passes.
func NewRecognizer(cfg Config, logger *zap.Logger) Recognizer {
	if logger == nil {
		logger = zap.NewNop()
	}

	inner, err := buildRecognizer(cfg, logger)
	if err != nil {
		logger.Warn("Entity recognizer unavailable, running in pattern-only mode",
			zap.String("type", cfg.Type),
			zap.Error(err),
		)
		return Noop{}
	}

	if _, isNoop := inner.(Noop); isNoop || !cfg.Cache.Enabled {
		return inner
	}

	cached, err := NewCachedRecognizer(inner, cfg.Cache, logger)
	if err != nil {
		logger.Warn("Detection cache unavailable, using uncached recognizer", zap.Error(err))
		return inner
	}
	return cached
}

func buildRecognizer(cfg Config, logger *zap.Logger) (Recognizer, error) {
	switch cfg.Type {
	case "", "none":
		return Noop{}, nil
	case "remote":
		return NewRemoteClient(cfg, logger)
	case "onnx":
		return newONNXRecognizer(cfg, logger)
	default:
		return nil, fmt.Errorf("unknown recognizer type: %s", cfg.Type)
	}
}
