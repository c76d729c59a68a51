// Package audit records suppression decisions so that every guard-chain
// branch taken by the de-identification engine is observable after the fact.
package audit

import (
	"context"

	"go.uber.org/zap"

	"github.com/clinsafe/deid/internal/entity"
)

// Sink receives every suppression decision the engine makes.
type Sink interface {
	Record(ctx context.Context, decision entity.Decision)
}

// NoopSink discards all decisions.
type NoopSink struct{}

// Record implements Sink.
func (NoopSink) Record(ctx context.Context, decision entity.Decision) {}

// ZapSink logs reason-tagged decisions. Matched text is logged only at Debug
// level: an audit trail of reasons must never itself become a PHI leak.
type ZapSink struct {
	logger        *zap.Logger
	includeDenied bool
}

// NewZapSink creates a logging sink. When includeDenied is false only
// redactions are recorded.
func NewZapSink(logger *zap.Logger, includeDenied bool) *ZapSink {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ZapSink{logger: logger, includeDenied: includeDenied}
}

// Record implements Sink.
func (s *ZapSink) Record(ctx context.Context, decision entity.Decision) {
	if !decision.Allow && !s.includeDenied {
		return
	}

	fields := []zap.Field{
		zap.Bool("allow", decision.Allow),
		zap.String("reason", decision.Reason),
		zap.String("category", string(decision.Span.Category)),
		zap.String("source", string(decision.Span.Source)),
		zap.Int("start", decision.Span.Start),
		zap.Int("end", decision.Span.End),
		zap.Float64("confidence", decision.Span.Confidence),
	}

	s.logger.Info("Suppression decision", fields...)
	s.logger.Debug("Suppression decision text", zap.String("matched_text", decision.Span.MatchedText))
}

var (
	_ Sink = NoopSink{}
	_ Sink = (*ZapSink)(nil)
)
