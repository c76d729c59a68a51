// Package scrub implements the de-identification engine core: the pattern
// detector, the suppression guard chain, the offset-stable redaction
// rewriter, and the pipeline that orchestrates detection passes.
package scrub

import (
	"regexp"
	"sort"

	"go.uber.org/zap"

	"github.com/clinsafe/deid/internal/entity"
)

// Rule is a single structured-PII detection rule. Rules are evaluated in
// table order; earlier rules win overlap resolution.
type Rule struct {
	Name       string
	Category   entity.Category
	Source     entity.DetectorID
	Pattern    string
	Confidence float64
	// Group selects the capture group to redact; 0 redacts the whole
	// match. Context-anchored rules use it to preserve their anchor text.
	Group int
}

// compiledRule pairs a rule with its compiled pattern.
type compiledRule struct {
	Rule
	re *regexp.Regexp
}

// defaultRules is the fixed, ordered rule table. Categories with unambiguous
// structure come first; the name-shaped rules come last because they are the
// ones suppression review exists for.
//
// The bare two-word name rule is deliberately case-sensitive. Relaxing it
// turns the pattern into "any two three-letter words", which over-redacts
// catastrophically on clinical text.
var defaultRules = []Rule{
	{
		Name:       "ssn",
		Category:   entity.CategorySSN,
		Source:     entity.DetectorPattern,
		Pattern:    `\b\d{3}[-\s]\d{2}[-\s]\d{4}\b`,
		Confidence: 0.99,
	},
	{
		Name:       "email",
		Category:   entity.CategoryEmail,
		Source:     entity.DetectorPattern,
		Pattern:    `\b[A-Za-z0-9._%+\-]+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,}\b`,
		Confidence: 0.99,
	},
	{
		Name:       "credit_card",
		Category:   entity.CategoryCreditCard,
		Source:     entity.DetectorPattern,
		Pattern:    `\b(?:\d{4}[-\s]){3}\d{4}\b|\b\d{16}\b`,
		Confidence: 0.95,
	},
	{
		Name:       "phone",
		Category:   entity.CategoryPhone,
		Source:     entity.DetectorPattern,
		Pattern:    `\(\d{3}\)\s*\d{3}[-.]?\d{4}\b|\b\d{3}[-.]\d{3}[-.]\d{4}\b|\b\d{10}\b`,
		Confidence: 0.95,
	},
	{
		Name:       "mrn",
		Category:   entity.CategoryMedicalRecordNumber,
		Source:     entity.DetectorPattern,
		Pattern:    `(?i)\bMRN[:\s#]*\d{4,12}\b`,
		Confidence: 0.98,
	},
	{
		Name:       "insurance_id",
		Category:   entity.CategoryInsuranceID,
		Source:     entity.DetectorPattern,
		Pattern:    `(?i)\b(?:policy|member|insurance)\s*(?:id|no|num|number)?\s*[:#]\s*[A-Za-z0-9][A-Za-z0-9\-]{4,19}\b`,
		Confidence: 0.95,
	},
	{
		Name:       "date_of_birth",
		Category:   entity.CategoryDateOfBirth,
		Source:     entity.DetectorPattern,
		Pattern:    `(?i)\b(?:DOB|date\s*of\s*birth)\s*:?\s*\d{1,2}[/\-]\d{1,2}[/\-]\d{2,4}\b`,
		Confidence: 0.98,
	},
	{
		Name:       "admission_number",
		Category:   entity.CategoryAdmissionNumber,
		Source:     entity.DetectorPattern,
		Pattern:    `(?i)\badmission\s*#?\s*:?\s*\d{4,12}\b`,
		Confidence: 0.95,
	},
	{
		// Context-anchored: only facility names introduced by an
		// admission/transfer phrase are candidates; group 1 keeps the
		// anchor prose intact.
		Name:       "facility_name",
		Category:   entity.CategoryFacilityName,
		Source:     entity.DetectorPattern,
		Pattern:    `(?i:\b(?:admitted to|transferred to|discharged from)\s+)([A-Z][A-Za-z]*(?:\s+[A-Z][A-Za-z]*){0,4}\s+(?:Hospital|Medical Center|Clinic|Center|Institute))`,
		Confidence: 0.90,
		Group:      1,
	},
	{
		// Honorific is case-insensitive; the name tokens are not.
		Name:       "titled_name",
		Category:   entity.CategoryName,
		Source:     entity.DetectorTitledName,
		Pattern:    `(?i:\b(?:mrs|ms|mr|dr|prof)\.?)\s+[A-Z][a-z]+(?:\s+[A-Z][a-z]+){0,2}`,
		Confidence: 0.90,
	},
	{
		Name:       "bare_name",
		Category:   entity.CategoryName,
		Source:     entity.DetectorBareName,
		Pattern:    `\b[A-Z][a-z]{2,}\s+[A-Z][a-z]{2,}\b`,
		Confidence: 0.50,
	},
}

// PatternDetector matches the fixed rule table against text and produces
// non-overlapping candidate spans. Compiled once; read-only afterwards.
type PatternDetector struct {
	rules  []compiledRule
	logger *zap.Logger
}

// NewPatternDetector compiles the default rule table. A rule that fails to
// compile is skipped and logged; all other rules still run.
func NewPatternDetector(logger *zap.Logger) *PatternDetector {
	if logger == nil {
		logger = zap.NewNop()
	}

	detector := &PatternDetector{logger: logger}
	for _, rule := range defaultRules {
		re, err := regexp.Compile(rule.Pattern)
		if err != nil {
			logger.Warn("Skipping malformed pattern rule",
				zap.String("rule", rule.Name),
				zap.Error(err),
			)
			continue
		}
		detector.rules = append(detector.rules, compiledRule{Rule: rule, re: re})
	}

	logger.Debug("Pattern detector initialized", zap.Int("rules", len(detector.rules)))
	return detector
}

// Detect returns all candidate spans in text, overlap-resolved by rule
// priority and sorted by start offset.
func (d *PatternDetector) Detect(text string) []entity.CandidateSpan {
	if text == "" {
		return nil
	}

	var accepted []entity.CandidateSpan
	for _, rule := range d.rules {
		for _, loc := range rule.re.FindAllStringSubmatchIndex(text, -1) {
			start, end := loc[0], loc[1]
			if rule.Group > 0 && len(loc) > 2*rule.Group+1 && loc[2*rule.Group] >= 0 {
				start, end = loc[2*rule.Group], loc[2*rule.Group+1]
			}
			if start >= end {
				continue
			}
			span := entity.CandidateSpan{
				Start:       start,
				End:         end,
				Category:    rule.Category,
				Source:      rule.Source,
				Confidence:  rule.Confidence,
				MatchedText: text[start:end],
			}
			if !overlapsAny(accepted, span) {
				accepted = append(accepted, span)
			}
		}
	}

	sort.Slice(accepted, func(i, j int) bool { return accepted[i].Start < accepted[j].Start })
	return accepted
}

// overlapsAny reports whether span overlaps any already-accepted span.
// Earlier rules have higher priority, so the incumbent always wins.
func overlapsAny(accepted []entity.CandidateSpan, span entity.CandidateSpan) bool {
	for _, a := range accepted {
		if span.Start < a.End && a.Start < span.End {
			return true
		}
	}
	return false
}

// ResolveOverlaps drops lower-confidence spans that overlap higher-confidence
// ones. Used for NER-sourced candidates, which arrive without table priority.
func ResolveOverlaps(spans []entity.CandidateSpan) []entity.CandidateSpan {
	if len(spans) <= 1 {
		return spans
	}

	ordered := make([]entity.CandidateSpan, len(spans))
	copy(ordered, spans)
	sort.Slice(ordered, func(i, j int) bool {
		if ordered[i].Confidence != ordered[j].Confidence {
			return ordered[i].Confidence > ordered[j].Confidence
		}
		return ordered[i].Start < ordered[j].Start
	})

	var accepted []entity.CandidateSpan
	for _, span := range ordered {
		if !overlapsAny(accepted, span) {
			accepted = append(accepted, span)
		}
	}

	sort.Slice(accepted, func(i, j int) bool { return accepted[i].Start < accepted[j].Start })
	return accepted
}
