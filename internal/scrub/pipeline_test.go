package scrub

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"go.uber.org/zap"

	"github.com/clinsafe/deid/internal/entity"
	"github.com/clinsafe/deid/internal/knowledge"
)

// stubRecognizer returns canned spans located by substring search, or a fixed
// error when err is set.
type stubRecognizer struct {
	matches    map[string]float64
	err        error
	detections int
}

func (s *stubRecognizer) Detect(_ context.Context, text, _ string, _ []entity.Category) ([]entity.CandidateSpan, error) {
	s.detections++
	if s.err != nil {
		return nil, s.err
	}
	var spans []entity.CandidateSpan
	for matched, confidence := range s.matches {
		start := strings.Index(text, matched)
		if start < 0 {
			continue
		}
		spans = append(spans, entity.CandidateSpan{
			Start:       start,
			End:         start + len(matched),
			Category:    entity.CategoryName,
			Source:      entity.DetectorNER,
			Confidence:  confidence,
			MatchedText: matched,
		})
	}
	return spans, nil
}

func (s *stubRecognizer) Close() error { return nil }

func newTestPipeline(t *testing.T, opts Options) *Pipeline {
	t.Helper()
	base := knowledge.New(knowledge.Config{}, zap.NewNop())
	return NewPipeline(base, opts, zap.NewNop())
}

func TestPipelineScrub(t *testing.T) {
	pipeline := newTestPipeline(t, Options{})
	ctx := context.Background()

	cases := []struct {
		name string
		in   string
		want string
	}{
		{
			"SSN",
			"SSN: 123-45-6789",
			"SSN: [SSN_REDACTED]",
		},
		{
			"TitledNameNearClinicalTerms",
			"Mr. Robert Williams reports chest pain",
			"[NAME_REDACTED] reports chest pain",
		},
		{
			"ClinicalProseUntouched",
			"Patient has hypertension and takes Lisinopril 10mg twice daily",
			"Patient has hypertension and takes Lisinopril 10mg twice daily",
		},
		{
			"WhitelistedPhraseSurvivesCapitalization",
			"Admitted for Heart Failure exacerbation",
			"Admitted for Heart Failure exacerbation",
		},
		{
			"LowercaseVitalsUntouched",
			"blood pressure 120/80 recorded",
			"blood pressure 120/80 recorded",
		},
		{
			"PhoneAndEmail",
			"Call (555) 123-4567 or mail j.doe@clinic.example.com",
			"Call [PHONE_REDACTED] or mail [EMAIL_REDACTED]",
		},
		{
			"FacilityAnchorPreserved",
			"Transferred to Saint Mary Hospital for surgery",
			"Transferred to [HOSPITAL_REDACTED] for surgery",
		},
		{
			"EmptyInput",
			"",
			"",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := pipeline.Scrub(ctx, tc.in); got != tc.want {
				t.Errorf("Scrub(%q) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}

func TestPipelineCustomRulePass(t *testing.T) {
	pipeline := newTestPipeline(t, Options{})
	ctx := context.Background()

	t.Run("SingleTokenPatientField", func(t *testing.T) {
		// A lone surname never matches the two-word name rule; only the
		// labeled-field extractor catches it.
		got := pipeline.Scrub(ctx, "Patient: Smith presented for follow up")
		want := "Patient: [NAME_REDACTED] presented for follow up"
		if got != want {
			t.Errorf("Scrub() = %q, want %q", got, want)
		}
	})

	t.Run("AgeParenthetical", func(t *testing.T) {
		got := pipeline.Scrub(ctx, "Seen today (72 yo) for med review")
		want := "Seen today ([AGE_REDACTED] yo) for med review"
		if got != want {
			t.Errorf("Scrub() = %q, want %q", got, want)
		}
	})
}

func TestPipelineRecognizerFailureDegrades(t *testing.T) {
	recognizer := &stubRecognizer{err: errors.New("model server unreachable")}
	pipeline := newTestPipeline(t, Options{Recognizer: recognizer})

	got := pipeline.Scrub(context.Background(), "SSN: 123-45-6789 noted")
	want := "SSN: [SSN_REDACTED] noted"
	if got != want {
		t.Errorf("Pattern passes must survive recognizer failure, got %q, want %q", got, want)
	}
	if recognizer.detections != 1 {
		t.Errorf("Recognizer called %d times, want 1", recognizer.detections)
	}
}

func TestPipelineLowConfidencePersonSuppressed(t *testing.T) {
	recognizer := &stubRecognizer{matches: map[string]float64{"Gregory House": 0.50}}
	pipeline := newTestPipeline(t, Options{Recognizer: recognizer})

	text := "Gregory House has diabetes"
	result := pipeline.ScrubDetailed(context.Background(), text, DefaultLanguage)

	if result.Scrubbed != text {
		t.Errorf("Low-confidence span must not be redacted, got %q", result.Scrubbed)
	}

	var sawLowConfidence bool
	for _, decision := range result.Applied {
		if decision.Reason == entity.ReasonLowConfidencePerson {
			sawLowConfidence = true
			if decision.Allow {
				t.Error("low_confidence_person decision must deny")
			}
		}
	}
	if !sawLowConfidence {
		t.Error("Decision trail missing low_confidence_person entry")
	}
}

func TestPipelineHighConfidencePersonRedacted(t *testing.T) {
	recognizer := &stubRecognizer{matches: map[string]float64{"Gregory Marbury": 0.95}}
	pipeline := newTestPipeline(t, Options{Recognizer: recognizer})

	got := pipeline.Scrub(context.Background(), "Gregory Marbury called yesterday")
	want := "[NAME_REDACTED] called yesterday"
	if got != want {
		t.Errorf("Scrub() = %q, want %q", got, want)
	}
}

func TestPipelineIdempotence(t *testing.T) {
	pipeline := newTestPipeline(t, Options{})
	ctx := context.Background()

	doc := "Patient: Walker, MRN: 84721953, reached at (555) 123-4567.\n" +
		"Mr. Dennis Walker (67 yo) admitted to Saint Mary Hospital with chest pain.\n" +
		"Has type 2 diabetes, takes Metformin 500mg daily. SSN 123-45-6789 on file."

	once := pipeline.Scrub(ctx, doc)
	twice := pipeline.Scrub(ctx, once)
	if once != twice {
		t.Errorf("Scrubbing is not idempotent:\nonce:  %q\ntwice: %q", once, twice)
	}
	if strings.Contains(once, "Walker") || strings.Contains(once, "123-45-6789") {
		t.Errorf("First pass left identifiers behind: %q", once)
	}
}

func TestScrubMapPreservesShape(t *testing.T) {
	pipeline := newTestPipeline(t, Options{})
	ctx := context.Background()

	in := map[string]any{
		"note":  "Mr. Robert Williams reports chest pain",
		"count": 3,
		"tags":  []string{"SSN: 123-45-6789", "stable"},
		"nested": map[string]any{
			"contact": "Call (555) 123-4567",
			"flag":    true,
		},
		"entries": []any{"MRN: 84721953", 42},
	}

	out := pipeline.ScrubMap(ctx, in)

	if got := out["note"]; got != "[NAME_REDACTED] reports chest pain" {
		t.Errorf("note = %v", got)
	}
	if got := out["count"]; got != 3 {
		t.Errorf("Non-string leaf changed: %v", got)
	}
	tags, ok := out["tags"].([]string)
	if !ok || len(tags) != 2 {
		t.Fatalf("tags shape changed: %v", out["tags"])
	}
	if tags[0] != "SSN: [SSN_REDACTED]" || tags[1] != "stable" {
		t.Errorf("tags = %v", tags)
	}
	nested, ok := out["nested"].(map[string]any)
	if !ok {
		t.Fatalf("nested shape changed: %v", out["nested"])
	}
	if nested["contact"] != "Call [PHONE_REDACTED]" || nested["flag"] != true {
		t.Errorf("nested = %v", nested)
	}
	entries, ok := out["entries"].([]any)
	if !ok || len(entries) != 2 {
		t.Fatalf("entries shape changed: %v", out["entries"])
	}
	if entries[0] != "[MRN_REDACTED]" || entries[1] != 42 {
		t.Errorf("entries = %v", entries)
	}

	// Input map must not be mutated.
	if in["note"] != "Mr. Robert Williams reports chest pain" {
		t.Error("ScrubMap mutated its input")
	}
}

func TestScrubValueNil(t *testing.T) {
	pipeline := newTestPipeline(t, Options{})
	if got := pipeline.ScrubValue(context.Background(), nil); got != nil {
		t.Errorf("ScrubValue(nil) = %v, want nil", got)
	}
	if got := pipeline.ScrubMap(context.Background(), nil); got != nil {
		t.Errorf("ScrubMap(nil) = %v, want nil", got)
	}
}

func TestDefaultPipelineConcurrent(t *testing.T) {
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				got := Scrub("Mrs. Susan Parker, SSN 987-65-4321, stable today")
				want := "[NAME_REDACTED], SSN [SSN_REDACTED], stable today"
				if got != want {
					t.Errorf("Scrub() = %q, want %q", got, want)
					return
				}
			}
		}()
	}
	wg.Wait()
}
