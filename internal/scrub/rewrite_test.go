package scrub

import (
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/clinsafe/deid/internal/entity"
)

func allowDecision(start, end int, category entity.Category) entity.Decision {
	return entity.Decision{
		Span: entity.CandidateSpan{
			Start:    start,
			End:      end,
			Category: category,
			Source:   entity.DetectorPattern,
		},
		Allow:  true,
		Reason: entity.ReasonStructuredIdentifier,
	}
}

func TestRewriterOffsetStability(t *testing.T) {
	rewriter := NewRedactionRewriter(zap.NewNop())
	text := "SSN 123-45-6789 phone 555-123-4567 end"

	// Decisions arrive in ascending order; the rewriter must still leave
	// every earlier offset valid while substituting.
	decisions := []entity.Decision{
		allowDecision(4, 15, entity.CategorySSN),
		allowDecision(22, 34, entity.CategoryPhone),
	}

	got := rewriter.Apply(text, decisions)
	want := "SSN [SSN_REDACTED] phone [PHONE_REDACTED] end"
	if got != want {
		t.Errorf("Apply() = %q, want %q", got, want)
	}
}

func TestRewriterSkipsDenied(t *testing.T) {
	rewriter := NewRedactionRewriter(zap.NewNop())
	text := "Heart Failure noted"

	denied := entity.Decision{
		Span: entity.CandidateSpan{
			Start: 0, End: 13,
			Category: entity.CategoryName,
			Source:   entity.DetectorBareName,
		},
		Allow:  false,
		Reason: entity.ReasonWhitelistedPhrase,
	}
	if got := rewriter.Apply(text, []entity.Decision{denied}); got != text {
		t.Errorf("Denied span must not be rewritten, got %q", got)
	}
}

func TestRewriterSkipsInvalidSpans(t *testing.T) {
	rewriter := NewRedactionRewriter(zap.NewNop())
	text := "short text"

	cases := []struct {
		name     string
		decision entity.Decision
	}{
		{"NegativeStart", allowDecision(-1, 5, entity.CategorySSN)},
		{"EndPastText", allowDecision(0, len(text)+10, entity.CategorySSN)},
		{"Inverted", allowDecision(6, 3, entity.CategorySSN)},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := rewriter.Apply(text, []entity.Decision{tc.decision}); got != text {
				t.Errorf("Invalid span must be skipped whole, got %q", got)
			}
		})
	}
}

func TestRewriterSkipsOverlappingSpans(t *testing.T) {
	rewriter := NewRedactionRewriter(zap.NewNop())
	text := "0123456789"

	decisions := []entity.Decision{
		allowDecision(0, 6, entity.CategorySSN),
		allowDecision(4, 10, entity.CategoryPhone),
	}

	// The later-starting span is applied first; the overlapping earlier one
	// must be dropped rather than straddle the replacement.
	got := rewriter.Apply(text, decisions)
	want := "0123[PHONE_REDACTED]"
	if got != want {
		t.Errorf("Apply() = %q, want %q", got, want)
	}
}

func TestPlaceholdersAreFixedPoints(t *testing.T) {
	detector := NewPatternDetector(zap.NewNop())

	// No rule may ever match inside a placeholder, otherwise scrubbing is
	// not idempotent.
	for _, category := range []entity.Category{
		entity.CategoryName, entity.CategoryPhone, entity.CategoryEmail,
		entity.CategorySSN, entity.CategoryCreditCard,
		entity.CategoryMedicalRecordNumber, entity.CategoryInsuranceID,
		entity.CategoryDateOfBirth, entity.CategoryFacilityName,
		entity.CategoryAdmissionNumber, entity.CategoryAge, entity.CategoryOther,
	} {
		placeholder := entity.Placeholder(category)
		if spans := detector.Detect("note " + placeholder + " note"); len(spans) != 0 {
			t.Errorf("Placeholder %s re-matched rule as %q", placeholder, spans[0].MatchedText)
		}
		if strings.ContainsAny(placeholder, "0123456789") {
			t.Errorf("Placeholder %s contains digits", placeholder)
		}
	}
}
