package ner

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/clinsafe/deid/internal/entity"
)

// RemoteClient calls an external NER service over JSON/HTTP. Requests are
// rate limited and bounded by the configured timeout; any transport or
// decoding failure is returned to the caller, which treats it identically to
// "adapter absent".
type RemoteClient struct {
	url     string
	client  *http.Client
	limiter *rate.Limiter
	logger  *zap.Logger
}

// NewRemoteClient creates a client for an external NER service.
func NewRemoteClient(cfg Config, logger *zap.Logger) (*RemoteClient, error) {
	if cfg.Remote.URL == "" {
		return nil, fmt.Errorf("remote recognizer requires a URL")
	}

	rps := cfg.Remote.RequestsPerSecond
	if rps <= 0 {
		rps = 20
	}
	burst := cfg.Remote.Burst
	if burst <= 0 {
		burst = 1
	}

	return &RemoteClient{
		url:     cfg.Remote.URL,
		client:  &http.Client{Timeout: cfg.Timeout},
		limiter: rate.NewLimiter(rate.Limit(rps), burst),
		logger:  logger,
	}, nil
}

// detectRequest is the wire request to the NER service.
type detectRequest struct {
	Text       string   `json:"text"`
	Language   string   `json:"language"`
	Categories []string `json:"categories,omitempty"`
}

// detectResponse is the wire response from the NER service.
type detectResponse struct {
	Entities []wireEntity `json:"entities"`
}

type wireEntity struct {
	Start    int     `json:"start"`
	End      int     `json:"end"`
	Category string  `json:"category"`
	Score    float64 `json:"score"`
}

// Detect implements Recognizer.
func (c *RemoteClient) Detect(ctx context.Context, text, language string, categories []entity.Category) ([]entity.CandidateSpan, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter wait: %w", err)
	}

	reqCats := make([]string, 0, len(categories))
	for _, cat := range categories {
		reqCats = append(reqCats, string(cat))
	}

	body, err := json.Marshal(detectRequest{
		Text:       text,
		Language:   language,
		Categories: reqCats,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode detect request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build detect request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("detect request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("detect request returned status %d", resp.StatusCode)
	}

	var decoded detectResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("failed to decode detect response: %w", err)
	}

	spans := make([]entity.CandidateSpan, 0, len(decoded.Entities))
	for _, ent := range decoded.Entities {
		if ent.Start < 0 || ent.End > len(text) || ent.Start >= ent.End {
			c.logger.Warn("Dropping out-of-range entity from NER service",
				zap.Int("start", ent.Start),
				zap.Int("end", ent.End),
				zap.Int("text_len", len(text)),
			)
			continue
		}
		spans = append(spans, entity.CandidateSpan{
			Start:       ent.Start,
			End:         ent.End,
			Category:    normalizeCategory(ent.Category),
			Source:      entity.DetectorNER,
			Confidence:  ent.Score,
			MatchedText: text[ent.Start:ent.End],
		})
	}

	return spans, nil
}

// Close implements Recognizer.
func (c *RemoteClient) Close() error {
	c.client.CloseIdleConnections()
	return nil
}

// normalizeCategory maps external NER labels onto the engine's closed
// category set. Unknown labels become Other, which is still redacted when
// allowed but never mistaken for a name-shaped match.
func normalizeCategory(label string) entity.Category {
	switch strings.ToUpper(strings.TrimSpace(label)) {
	case "PERSON", "PER", "NAME", "PATIENT", "PHYSICIAN":
		return entity.CategoryName
	case "PHONE", "PHONE_NUMBER", "TELEPHONE":
		return entity.CategoryPhone
	case "EMAIL", "EMAIL_ADDRESS":
		return entity.CategoryEmail
	case "SSN", "US_SSN":
		return entity.CategorySSN
	case "CREDIT_CARD", "CC":
		return entity.CategoryCreditCard
	case "MRN", "MEDICAL_RECORD_NUMBER":
		return entity.CategoryMedicalRecordNumber
	case "INSURANCE", "INSURANCE_ID", "HEALTH_PLAN":
		return entity.CategoryInsuranceID
	case "DOB", "DATE_OF_BIRTH", "BIRTHDATE":
		return entity.CategoryDateOfBirth
	case "ORG", "ORGANIZATION", "FACILITY", "HOSPITAL", "LOCATION":
		return entity.CategoryFacilityName
	case "AGE":
		return entity.CategoryAge
	default:
		return entity.CategoryOther
	}
}

var _ Recognizer = (*RemoteClient)(nil)
