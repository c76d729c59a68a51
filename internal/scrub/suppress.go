package scrub

import (
	"strings"

	"go.uber.org/zap"

	"github.com/clinsafe/deid/internal/entity"
	"github.com/clinsafe/deid/internal/knowledge"
)

// SuppressionEngine adjudicates candidate spans: it converts each detection
// into an Allow/Deny decision with a stable reason tag. The logic is an
// explicit ordered guard chain, first match wins, so every branch is
// independently testable and auditable.
type SuppressionEngine struct {
	base                *knowledge.Base
	minPersonConfidence float64
	contextWindow       int
	guards              []guard
	logger              *zap.Logger
}

// guard inspects one span and either produces a decision or passes.
type guard struct {
	name string
	fn   func(span entity.CandidateSpan, fullText string) (entity.Decision, bool)
}

// NewSuppressionEngine builds the guard chain over the given knowledge base.
func NewSuppressionEngine(base *knowledge.Base, minPersonConfidence float64, contextWindow int, logger *zap.Logger) *SuppressionEngine {
	if logger == nil {
		logger = zap.NewNop()
	}
	if minPersonConfidence <= 0 {
		minPersonConfidence = 0.85
	}
	if contextWindow <= 0 {
		contextWindow = 3
	}

	engine := &SuppressionEngine{
		base:                base,
		minPersonConfidence: minPersonConfidence,
		contextWindow:       contextWindow,
		logger:              logger,
	}

	engine.guards = []guard{
		{"structured_identifier", engine.guardStructured},
		{"low_confidence_person", engine.guardLowConfidencePerson},
		{"drug_suffix_shape", engine.guardDrugSuffix},
		{"whitelist", engine.guardWhitelist},
		{"titled_name_override", engine.guardTitledOverride},
		{"clinical_condition_shape", engine.guardConditionShape},
		{"medical_context", engine.guardMedicalContext},
		{"common_words_only", engine.guardCommonWords},
	}

	return engine
}

// Decide runs the guard chain for one candidate span. The default when no
// guard matches is to redact: an unresolved name-shaped match is treated as
// PII.
func (e *SuppressionEngine) Decide(span entity.CandidateSpan, fullText string) entity.Decision {
	for _, g := range e.guards {
		if decision, matched := g.fn(span, fullText); matched {
			return decision
		}
	}
	return entity.Decision{Span: span, Allow: true, Reason: entity.ReasonUnresolvedNameLike}
}

// DecideAll adjudicates a batch of spans against the same text.
func (e *SuppressionEngine) DecideAll(spans []entity.CandidateSpan, fullText string) []entity.Decision {
	decisions := make([]entity.Decision, 0, len(spans))
	for _, span := range spans {
		decisions = append(decisions, e.Decide(span, fullText))
	}
	return decisions
}

// guardStructured allows every non-name-shaped category outright: structured
// identifiers carry no ambiguity once matched.
func (e *SuppressionEngine) guardStructured(span entity.CandidateSpan, _ string) (entity.Decision, bool) {
	if !entity.IsNameShaped(span.Category) {
		return entity.Decision{Span: span, Allow: true, Reason: entity.ReasonStructuredIdentifier}, true
	}
	return entity.Decision{}, false
}

// guardLowConfidencePerson denies NER-sourced person spans below the
// confidence floor. The bar is deliberately high: a false negative here is
// recoverable by the pattern pass, a false positive destroys clinical
// meaning.
func (e *SuppressionEngine) guardLowConfidencePerson(span entity.CandidateSpan, _ string) (entity.Decision, bool) {
	if span.Source == entity.DetectorNER && span.Category == entity.CategoryName && span.Confidence < e.minPersonConfidence {
		return entity.Decision{Span: span, Allow: false, Reason: entity.ReasonLowConfidencePerson}, true
	}
	return entity.Decision{}, false
}

// guardDrugSuffix denies NER-sourced person spans whose text has drug-name
// morphology; models routinely mislabel novel drug names as people.
func (e *SuppressionEngine) guardDrugSuffix(span entity.CandidateSpan, _ string) (entity.Decision, bool) {
	if span.Source != entity.DetectorNER || span.Category != entity.CategoryName {
		return entity.Decision{}, false
	}
	for _, word := range strings.Fields(span.MatchedText) {
		if e.base.LooksLikeDrugBySuffix(strings.Trim(word, ".,;:()")) {
			return entity.Decision{Span: span, Allow: false, Reason: entity.ReasonDrugSuffixShape}, true
		}
	}
	return entity.Decision{}, false
}

// guardWhitelist denies spans whose phrase, or any constituent word, is known
// clinical vocabulary.
func (e *SuppressionEngine) guardWhitelist(span entity.CandidateSpan, _ string) (entity.Decision, bool) {
	phrase := strings.TrimSpace(span.MatchedText)
	if e.base.IsWhitelisted(phrase) {
		reason := entity.ReasonWhitelistedDrug
		if strings.ContainsAny(phrase, " \t") {
			reason = entity.ReasonWhitelistedPhrase
		}
		return entity.Decision{Span: span, Allow: false, Reason: reason}, true
	}
	for _, word := range strings.Fields(phrase) {
		if e.base.IsWhitelisted(strings.Trim(word, ".,;:()")) {
			return entity.Decision{Span: span, Allow: false, Reason: entity.ReasonWhitelistedDrug}, true
		}
	}
	return entity.Decision{}, false
}

// guardTitledOverride allows titled-name matches unconditionally. A title is
// a stronger signal of a real person than any surrounding medical
// vocabulary, so the context guards below are skipped for this case only.
func (e *SuppressionEngine) guardTitledOverride(span entity.CandidateSpan, _ string) (entity.Decision, bool) {
	if span.Source == entity.DetectorTitledName {
		return entity.Decision{Span: span, Allow: true, Reason: entity.ReasonTitledNameOverride}, true
	}
	return entity.Decision{}, false
}

// guardConditionShape denies phrases with clinical-condition morphology.
func (e *SuppressionEngine) guardConditionShape(span entity.CandidateSpan, _ string) (entity.Decision, bool) {
	if e.base.LooksLikeClinicalCondition(span.MatchedText) {
		return entity.Decision{Span: span, Allow: false, Reason: entity.ReasonClinicalConditionShape}, true
	}
	return entity.Decision{}, false
}

// guardMedicalContext denies spans whose surrounding context window contains
// clinical indicator words.
func (e *SuppressionEngine) guardMedicalContext(span entity.CandidateSpan, fullText string) (entity.Decision, bool) {
	for _, word := range e.contextTokens(span, fullText) {
		if e.base.IsContextKeyword(word) {
			return entity.Decision{Span: span, Allow: false, Reason: entity.ReasonMedicalContext}, true
		}
	}
	return entity.Decision{}, false
}

// guardCommonWords denies spans made up entirely of general English words.
func (e *SuppressionEngine) guardCommonWords(span entity.CandidateSpan, _ string) (entity.Decision, bool) {
	words := strings.Fields(span.MatchedText)
	if len(words) == 0 {
		return entity.Decision{}, false
	}
	for _, word := range words {
		if !e.base.IsCommonWord(strings.Trim(word, ".,;:()")) {
			return entity.Decision{}, false
		}
	}
	return entity.Decision{Span: span, Allow: false, Reason: entity.ReasonCommonWordsOnly}, true
}

// contextTokens collects up to contextWindow lowercased whitespace tokens on
// each side of the span, with edge punctuation stripped.
func (e *SuppressionEngine) contextTokens(span entity.CandidateSpan, fullText string) []string {
	if span.Start < 0 || span.End > len(fullText) || span.Start > span.End {
		return nil
	}

	var tokens []string
	before := strings.Fields(fullText[:span.Start])
	if len(before) > e.contextWindow {
		before = before[len(before)-e.contextWindow:]
	}
	after := strings.Fields(fullText[span.End:])
	if len(after) > e.contextWindow {
		after = after[:e.contextWindow]
	}

	for _, word := range append(before, after...) {
		word = strings.ToLower(strings.Trim(word, ".,;:()!?\"'"))
		if word != "" {
			tokens = append(tokens, word)
		}
	}
	return tokens
}
