// Package knowledge provides the immutable domain knowledge base used by the
// suppression engine: clinical vocabulary, common English words, and
// morphology-based heuristics for drug names and condition phrases.
package knowledge

import (
	"bufio"
	"fmt"
	"os"
	"regexp"
	"strings"

	"go.uber.org/zap"
)

// Config contains knowledge base configuration.
type Config struct {
	// WhitelistFile is an optional newline-delimited file of clinical terms
	// and phrases. Missing file falls back to the built-in set.
	WhitelistFile string `yaml:"whitelist_file" mapstructure:"whitelist_file"`
	// CommonWordsFile is an optional newline-delimited file of general
	// English words. Missing file falls back to the built-in set.
	CommonWordsFile string `yaml:"common_words_file" mapstructure:"common_words_file"`
	// ContextKeywords overrides the built-in clinical-context indicator
	// words used by the suppression engine's context-window guard.
	ContextKeywords []string `yaml:"context_keywords" mapstructure:"context_keywords"`
}

// Base is the read-only domain knowledge base. Constructed once and never
// mutated, so it is safe to share across concurrent scrub calls.
type Base struct {
	clinicalWhitelist map[string]struct{}
	commonWords       map[string]struct{}
	drugSuffixes      []suffixWeight
	contextKeywords   map[string]struct{}
	conditionQualifier *regexp.Regexp
}

type suffixWeight struct {
	suffix string
	weight float64
}

// conditionQualifierPattern matches the structural shape of a condition
// phrase: "Type 2", "Stage IV", "Chronic Kidney", etc.
const conditionQualifierPattern = `(?i)^(type|stage|grade|class|level|acute|chronic|subacute|severe|mild|moderate)\s+\S+`

// New builds a knowledge base from configuration. Construction never fails:
// absent or unreadable data files degrade to the built-in minimal sets with a
// warning, so the engine can always start.
func New(cfg Config, logger *zap.Logger) *Base {
	if logger == nil {
		logger = zap.NewNop()
	}

	base := &Base{
		clinicalWhitelist: make(map[string]struct{}),
		commonWords:       make(map[string]struct{}),
		drugSuffixes:      builtinDrugSuffixes,
		contextKeywords:   make(map[string]struct{}),
		// Pattern is a compile-time constant; MustCompile is safe here.
		conditionQualifier: regexp.MustCompile(conditionQualifierPattern),
	}

	loadSet(base.clinicalWhitelist, cfg.WhitelistFile, builtinClinicalTerms, "clinical whitelist", logger)
	loadSet(base.commonWords, cfg.CommonWordsFile, builtinCommonWords, "common words", logger)

	keywords := cfg.ContextKeywords
	if len(keywords) == 0 {
		keywords = builtinContextKeywords
	}
	for _, kw := range keywords {
		kw = strings.ToLower(strings.TrimSpace(kw))
		if kw != "" {
			base.contextKeywords[kw] = struct{}{}
		}
	}

	// The two sets must stay disjoint: a term on the clinical whitelist is
	// clinical vocabulary regardless of how common the word is in English.
	for term := range base.clinicalWhitelist {
		delete(base.commonWords, term)
	}

	logger.Info("Knowledge base initialized",
		zap.Int("whitelist_terms", len(base.clinicalWhitelist)),
		zap.Int("common_words", len(base.commonWords)),
		zap.Int("drug_suffixes", len(base.drugSuffixes)),
		zap.Int("context_keywords", len(base.contextKeywords)),
	)

	return base
}

// loadSet fills dst from a newline-delimited file, falling back to the
// built-in terms when the file is absent or unreadable.
func loadSet(dst map[string]struct{}, path string, builtin []string, name string, logger *zap.Logger) {
	if path != "" {
		if err := loadTermFile(dst, path); err != nil {
			logger.Warn("Falling back to built-in vocabulary",
				zap.String("set", name),
				zap.String("file", path),
				zap.Error(err),
			)
		} else if len(dst) > 0 {
			return
		}
	}
	for _, term := range builtin {
		dst[strings.ToLower(term)] = struct{}{}
	}
}

// loadTermFile reads one lowercased term or phrase per line. Blank lines and
// '#' comments are skipped.
func loadTermFile(dst map[string]struct{}, path string) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open term file: %w", err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		dst[strings.ToLower(line)] = struct{}{}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("failed to read term file: %w", err)
	}
	return nil
}

// IsWhitelisted reports whether a term or phrase is known clinical vocabulary.
func (b *Base) IsWhitelisted(term string) bool {
	_, ok := b.clinicalWhitelist[strings.ToLower(strings.TrimSpace(term))]
	return ok
}

// IsCommonWord reports whether a word is general English vocabulary.
func (b *Base) IsCommonWord(word string) bool {
	_, ok := b.commonWords[strings.ToLower(strings.TrimSpace(word))]
	return ok
}

// LooksLikeDrugBySuffix recognizes unseen drug names by morphology: clinical
// drug naming conventions end in a small set of characteristic suffixes
// (-statin, -sartan, -opril, ...).
func (b *Base) LooksLikeDrugBySuffix(term string) bool {
	term = strings.ToLower(strings.TrimSpace(term))
	if len(term) < 5 {
		return false
	}
	for _, sw := range b.drugSuffixes {
		if strings.HasSuffix(term, sw.suffix) {
			return true
		}
	}
	return false
}

// LooksLikeClinicalCondition matches structural cues of condition phrases
// rather than a fixed vocabulary: condition-suffix morphemes on any word, or
// a qualifier pattern like "Type 2 ..." / "Chronic ...".
func (b *Base) LooksLikeClinicalCondition(phrase string) bool {
	phrase = strings.TrimSpace(phrase)
	if phrase == "" {
		return false
	}
	if b.conditionQualifier.MatchString(phrase) {
		return true
	}
	for _, word := range strings.Fields(strings.ToLower(phrase)) {
		word = strings.Trim(word, ".,;:()")
		for _, morpheme := range conditionMorphemes {
			if len(word) > len(morpheme) && strings.HasSuffix(word, morpheme) {
				return true
			}
		}
	}
	return false
}

// IsContextKeyword reports whether a lowercased token is a clinical-context
// indicator word for the suppression engine's context-window guard.
func (b *Base) IsContextKeyword(word string) bool {
	_, ok := b.contextKeywords[word]
	return ok
}
