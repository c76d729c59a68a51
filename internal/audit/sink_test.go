package audit

import (
	"context"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/clinsafe/deid/internal/entity"
)

func sampleDecision(allow bool) entity.Decision {
	return entity.Decision{
		Span: entity.CandidateSpan{
			Start: 4, End: 15,
			Category:    entity.CategorySSN,
			Source:      entity.DetectorPattern,
			Confidence:  0.99,
			MatchedText: "123-45-6789",
		},
		Allow:  allow,
		Reason: entity.ReasonStructuredIdentifier,
	}
}

func TestZapSinkRecordsRedactions(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	sink := NewZapSink(zap.New(core), false)

	sink.Record(context.Background(), sampleDecision(true))

	entries := logs.All()
	if len(entries) != 1 {
		t.Fatalf("Got %d log entries, want 1", len(entries))
	}

	fields := entries[0].ContextMap()
	if fields["reason"] != entity.ReasonStructuredIdentifier {
		t.Errorf("reason = %v", fields["reason"])
	}
	if fields["category"] != string(entity.CategorySSN) {
		t.Errorf("category = %v", fields["category"])
	}
	if allow, _ := fields["allow"].(bool); !allow {
		t.Errorf("allow = %v", fields["allow"])
	}
}

func TestZapSinkSkipsDeniedByDefault(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	sink := NewZapSink(zap.New(core), false)

	sink.Record(context.Background(), sampleDecision(false))
	if logs.Len() != 0 {
		t.Errorf("Denied decision logged %d entries with includeDenied=false", logs.Len())
	}

	sink = NewZapSink(zap.New(core), true)
	sink.Record(context.Background(), sampleDecision(false))
	if logs.Len() != 1 {
		t.Errorf("Got %d entries, want 1 with includeDenied=true", logs.Len())
	}
}

func TestZapSinkKeepsMatchedTextOutOfInfoLogs(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	sink := NewZapSink(zap.New(core), true)

	sink.Record(context.Background(), sampleDecision(true))

	for _, entry := range logs.All() {
		for name, value := range entry.ContextMap() {
			if value == "123-45-6789" {
				t.Errorf("Matched text leaked into Info-level field %q", name)
			}
		}
	}
}
