package scrub

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/clinsafe/deid/internal/knowledge"
)

var (
	defaultOnce     sync.Once
	defaultPipeline *Pipeline
)

// Default returns the process-wide pattern-only pipeline built over the
// built-in vocabulary. It is constructed once behind an initialize-once
// guard and is read-only afterwards, so it is safe for arbitrarily many
// concurrent callers.
func Default() *Pipeline {
	defaultOnce.Do(func() {
		base := knowledge.New(knowledge.Config{}, zap.NewNop())
		defaultPipeline = NewPipeline(base, Options{}, zap.NewNop())
	})
	return defaultPipeline
}

// Scrub de-identifies text with the default pipeline.
func Scrub(text string) string {
	return Default().Scrub(context.Background(), text)
}
