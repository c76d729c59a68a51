package scrub

import (
	"sort"

	"go.uber.org/zap"

	"github.com/clinsafe/deid/internal/entity"
)

// RedactionRewriter applies allowed decisions to text in a single
// offset-stable pass. Replacements are made in descending start order so that
// applying one replacement never invalidates the offsets of a pending one.
type RedactionRewriter struct {
	logger *zap.Logger
}

// NewRedactionRewriter creates a rewriter.
func NewRedactionRewriter(logger *zap.Logger) *RedactionRewriter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedactionRewriter{logger: logger}
}

// Apply substitutes every allowed span with its category placeholder.
// Out-of-range, inverted, or overlapping spans are skipped and logged, never
// applied partially. Placeholders contain nothing any rule re-matches, so
// running Apply over already-scrubbed text is a no-op.
func (r *RedactionRewriter) Apply(text string, decisions []entity.Decision) string {
	allowed := make([]entity.Decision, 0, len(decisions))
	for _, d := range decisions {
		if d.Allow {
			allowed = append(allowed, d)
		}
	}
	if len(allowed) == 0 {
		return text
	}

	sort.Slice(allowed, func(i, j int) bool { return allowed[i].Span.Start > allowed[j].Span.Start })

	// lowest start offset already rewritten; spans ending past it would
	// straddle an applied replacement
	applied := len(text) + 1
	for _, d := range allowed {
		span := d.Span
		if span.Start < 0 || span.End > len(text) || span.Start >= span.End {
			r.logger.Warn("Skipping invalid redaction span",
				zap.Int("start", span.Start),
				zap.Int("end", span.End),
				zap.Int("text_len", len(text)),
			)
			continue
		}
		if span.End > applied {
			r.logger.Warn("Skipping overlapping redaction span",
				zap.Int("start", span.Start),
				zap.Int("end", span.End),
			)
			continue
		}
		text = text[:span.Start] + entity.Placeholder(span.Category) + text[span.End:]
		applied = span.Start
	}

	return text
}
