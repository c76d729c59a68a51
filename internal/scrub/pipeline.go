package scrub

import (
	"context"
	"regexp"
	"time"

	"go.uber.org/zap"

	"github.com/clinsafe/deid/internal/audit"
	"github.com/clinsafe/deid/internal/entity"
	"github.com/clinsafe/deid/internal/knowledge"
	"github.com/clinsafe/deid/internal/ner"
)

// DefaultLanguage is forwarded to the recognizer when the caller does not
// specify one.
const DefaultLanguage = "en"

// recognizerCategories is what the pipeline asks the external recognizer for.
var recognizerCategories = []entity.Category{
	entity.CategoryName,
	entity.CategoryFacilityName,
	entity.CategoryDateOfBirth,
	entity.CategoryAge,
}

// customRuleTable holds the structured field extractors applied in the final
// pass: shapes that are anchored to a labeled field rather than expressible
// as generic name patterns. The name-field extractors carry titled-name
// strength, so only the whitelist guard can suppress them.
var customRuleTable = []Rule{
	{
		Name:       "patient_field",
		Category:   entity.CategoryName,
		Source:     entity.DetectorTitledName,
		Pattern:    `(?i:\bpatient\s*(?:name)?\s*:\s*)([A-Z][a-z]+(?:\s+[A-Z][a-z]+){0,2})`,
		Confidence: 0.95,
		Group:      1,
	},
	{
		Name:       "doctor_field",
		Category:   entity.CategoryName,
		Source:     entity.DetectorTitledName,
		Pattern:    `(?i:\bdr\.?\s+)([A-Z][a-z]+(?:\s+[A-Z][a-z]+){0,2})`,
		Confidence: 0.95,
		Group:      1,
	},
	{
		Name:       "age_parenthetical",
		Category:   entity.CategoryAge,
		Source:     entity.DetectorCustom,
		Pattern:    `\(\s*(\d{1,3})\s*(?:yo|y/o|y\.o\.|years?\s*old)\s*\)`,
		Confidence: 0.95,
		Group:      1,
	},
	{
		Name:       "admission_field",
		Category:   entity.CategoryAdmissionNumber,
		Source:     entity.DetectorCustom,
		Pattern:    `(?i:\badmission\s*#\s*:?\s*)(\d{4,12})\b`,
		Confidence: 0.95,
		Group:      1,
	},
}

// Pipeline orchestrates the de-identification passes:
// EntityPass -> PatternPass -> CustomRulePass, strictly forward, each pass
// consuming the previous pass's output text. All state is read-only after
// construction, so concurrent Scrub calls share one Pipeline without locking.
type Pipeline struct {
	detector    *PatternDetector
	engine      *SuppressionEngine
	rewriter    *RedactionRewriter
	recognizer  ner.Recognizer
	sink        audit.Sink
	timeout     time.Duration
	customRules []compiledRule
	logger      *zap.Logger
}

// Options configures pipeline construction. Zero values select a
// pattern-only pipeline with no auditing.
type Options struct {
	// Recognizer is the optional statistical entity detector. nil means
	// pattern-only mode.
	Recognizer ner.Recognizer
	// RecognizerTimeout bounds a single entity-detection call.
	RecognizerTimeout time.Duration
	// AuditSink receives every suppression decision.
	AuditSink audit.Sink
	// MinPersonConfidence is the NER person-span confidence floor.
	MinPersonConfidence float64
	// ContextWindow is the medical-context guard window size in tokens.
	ContextWindow int
}

// NewPipeline builds a pipeline over the given knowledge base.
func NewPipeline(base *knowledge.Base, opts Options, logger *zap.Logger) *Pipeline {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.AuditSink == nil {
		opts.AuditSink = audit.NoopSink{}
	}
	if opts.RecognizerTimeout <= 0 {
		opts.RecognizerTimeout = 2 * time.Second
	}

	pipeline := &Pipeline{
		detector:   NewPatternDetector(logger),
		engine:     NewSuppressionEngine(base, opts.MinPersonConfidence, opts.ContextWindow, logger),
		rewriter:   NewRedactionRewriter(logger),
		recognizer: opts.Recognizer,
		sink:       opts.AuditSink,
		timeout:    opts.RecognizerTimeout,
		logger:     logger,
	}

	for _, rule := range customRuleTable {
		re, err := regexp.Compile(rule.Pattern)
		if err != nil {
			logger.Warn("Skipping malformed custom rule",
				zap.String("rule", rule.Name),
				zap.Error(err),
			)
			continue
		}
		pipeline.customRules = append(pipeline.customRules, compiledRule{Rule: rule, re: re})
	}

	logger.Info("Scrub pipeline initialized",
		zap.Bool("recognizer", pipeline.recognizer != nil),
		zap.Int("custom_rules", len(pipeline.customRules)),
	)

	return pipeline
}

// Scrub de-identifies a single document. Empty input is a no-op. The call is
// side-effect free; cancellation of ctx aborts only the entity-detection
// call, never the pattern passes.
func (p *Pipeline) Scrub(ctx context.Context, text string) string {
	return p.ScrubWithLanguage(ctx, text, DefaultLanguage)
}

// ScrubWithLanguage scrubs with an explicit recognizer language hint.
func (p *Pipeline) ScrubWithLanguage(ctx context.Context, text, language string) string {
	return p.ScrubDetailed(ctx, text, language).Scrubbed
}

// ScrubDetailed scrubs and returns the full decision trail.
func (p *Pipeline) ScrubDetailed(ctx context.Context, text, language string) entity.ScrubResult {
	result := entity.ScrubResult{Original: text, Scrubbed: text}
	if text == "" {
		return result
	}
	if language == "" {
		language = DefaultLanguage
	}

	result.Scrubbed = p.entityPass(ctx, result.Scrubbed, language, &result)
	result.Scrubbed = p.patternPass(ctx, result.Scrubbed, &result)
	result.Scrubbed = p.customRulePass(ctx, result.Scrubbed, &result)
	return result
}

// entityPass runs the optional statistical recognizer. Any failure or
// timeout is treated identically to "adapter absent": the text passes
// through unchanged and the remaining passes still run.
func (p *Pipeline) entityPass(ctx context.Context, text, language string, result *entity.ScrubResult) string {
	if p.recognizer == nil {
		return text
	}

	detectCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	spans, err := p.recognizer.Detect(detectCtx, text, language, recognizerCategories)
	if err != nil {
		p.logger.Warn("Entity recognizer failed, degrading to pattern-only passes", zap.Error(err))
		return text
	}

	return p.adjudicate(ctx, text, ResolveOverlaps(spans), result)
}

// patternPass runs the fixed rule table over the current text.
func (p *Pipeline) patternPass(ctx context.Context, text string, result *entity.ScrubResult) string {
	return p.adjudicate(ctx, text, p.detector.Detect(text), result)
}

// customRulePass applies the structured field extractors.
func (p *Pipeline) customRulePass(ctx context.Context, text string, result *entity.ScrubResult) string {
	var accepted []entity.CandidateSpan
	for _, rule := range p.customRules {
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
	return p.adjudicate(ctx, text, accepted, result)
}

// adjudicate runs suppression review over one pass's candidates, records
// every decision, and rewrites the text with the allowed ones.
func (p *Pipeline) adjudicate(ctx context.Context, text string, spans []entity.CandidateSpan, result *entity.ScrubResult) string {
	if len(spans) == 0 {
		return text
	}

	decisions := p.engine.DecideAll(spans, text)
	for _, decision := range decisions {
		p.sink.Record(ctx, decision)
	}
	result.Applied = append(result.Applied, decisions...)

	return p.rewriter.Apply(text, decisions)
}
