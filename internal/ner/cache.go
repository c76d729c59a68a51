package ner

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"github.com/clinsafe/deid/internal/entity"
)

// CachedRecognizer decorates a Recognizer with a Redis span cache keyed by a
// hash of the input text. Cache failures degrade to a direct call; they never
// fail detection.
type CachedRecognizer struct {
	inner  Recognizer
	client *redis.Client
	cfg    CacheConfig
	logger *zap.Logger
	stats  cacheStats
}

type cacheStats struct {
	hits   int64
	misses int64
}

// cachedSpans is the serialized cache entry. Matched text is rehydrated from
// the input, never persisted.
type cachedSpans struct {
	Spans    []entity.CandidateSpan `json:"spans"`
	CachedAt time.Time              `json:"cached_at"`
}

// NewCachedRecognizer wraps inner with a Redis cache. A failed Redis
// connection is a construction error; callers typically fall back to the
// unwrapped recognizer.
func NewCachedRecognizer(inner Recognizer, cfg CacheConfig, logger *zap.Logger) (*CachedRecognizer, error) {
	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	opts.PoolSize = cfg.MaxConnections
	opts.MinIdleConns = cfg.MinIdleConns

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	logger.Info("Detection cache initialized",
		zap.String("redis_url", maskRedisURL(cfg.RedisURL)),
		zap.Duration("ttl", cfg.TTL),
	)

	return &CachedRecognizer{
		inner:  inner,
		client: client,
		cfg:    cfg,
		logger: logger,
	}, nil
}

// Detect implements Recognizer.
func (c *CachedRecognizer) Detect(ctx context.Context, text, language string, categories []entity.Category) ([]entity.CandidateSpan, error) {
	key := c.cacheKey(text, language)

	cached, err := c.client.Get(ctx, key).Result()
	switch {
	case err == redis.Nil:
		c.stats.misses++
	case err != nil:
		c.logger.Warn("Detection cache lookup failed", zap.Error(err))
	default:
		var stored cachedSpans
		if err := json.Unmarshal([]byte(cached), &stored); err != nil {
			c.logger.Warn("Failed to unmarshal cached spans, dropping entry", zap.Error(err))
			c.client.Del(ctx, key)
		} else {
			c.stats.hits++
			return rehydrate(stored.Spans, text), nil
		}
	}

	spans, err := c.inner.Detect(ctx, text, language, categories)
	if err != nil {
		return nil, err
	}

	data, err := json.Marshal(cachedSpans{Spans: spans, CachedAt: time.Now()})
	if err == nil {
		if err := c.client.Set(ctx, key, data, c.cfg.TTL).Err(); err != nil {
			c.logger.Warn("Failed to cache detection result", zap.Error(err))
		}
	}

	return spans, nil
}

// Close implements Recognizer.
func (c *CachedRecognizer) Close() error {
	if err := c.client.Close(); err != nil {
		return err
	}
	return c.inner.Close()
}

// Stats returns cache hit/miss counts.
func (c *CachedRecognizer) Stats() (hits, misses int64) {
	return c.stats.hits, c.stats.misses
}

// cacheKey hashes the language and text so no document content appears in
// Redis keys.
func (c *CachedRecognizer) cacheKey(text, language string) string {
	hasher := sha256.New()
	hasher.Write([]byte(language))
	hasher.Write([]byte{0})
	hasher.Write([]byte(text))
	hash := hex.EncodeToString(hasher.Sum(nil))
	return fmt.Sprintf("%s:ner:%s", c.cfg.KeyPrefix, hash[:32])
}

// rehydrate restores MatchedText from the current input, since it is
// deliberately excluded from serialization.
func rehydrate(spans []entity.CandidateSpan, text string) []entity.CandidateSpan {
	out := spans[:0]
	for _, span := range spans {
		if span.Start < 0 || span.End > len(text) || span.Start >= span.End {
			continue
		}
		span.MatchedText = text[span.Start:span.End]
		out = append(out, span)
	}
	return out
}

// maskRedisURL masks credentials in a Redis URL for logging.
func maskRedisURL(url string) string {
	if strings.Contains(url, "@") {
		parts := strings.Split(url, "@")
		if len(parts) >= 2 {
			userPart := parts[0]
			if strings.Contains(userPart, ":") {
				userParts := strings.Split(userPart, ":")
				if len(userParts) >= 3 {
					userParts[len(userParts)-1] = "***"
					parts[0] = strings.Join(userParts, ":")
				}
			}
			return strings.Join(parts, "@")
		}
	}
	return url
}

var _ Recognizer = (*CachedRecognizer)(nil)
