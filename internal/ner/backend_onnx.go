//go:build onnx
// +build onnx

package ner

import (
	"bufio"
	"context"
	"fmt"
	"math"
	"os"
	"strings"
	"sync"
	"unicode"

	ort "github.com/yalue/onnxruntime_go"
	"go.uber.org/zap"

	"github.com/clinsafe/deid/internal/entity"
)

// onnxRecognizer runs a BIO token-classification model through ONNX Runtime.
// Requires build tag 'onnx'.
type onnxRecognizer struct {
	session    *ort.DynamicAdvancedSession
	inputNames []string
	vocab      map[string]int64
	unkID      int64
	maxLength  int
	logger     *zap.Logger
	mu         sync.RWMutex
	ready      bool
}

// bioLabels is the label head order the bundled clinical NER models emit.
var bioLabels = []string{
	"O",
	"B-PER", "I-PER",
	"B-ORG", "I-ORG",
	"B-DATE", "I-DATE",
	"B-AGE", "I-AGE",
}

// labelCategory maps a BIO label stem onto the engine's category set.
func labelCategory(stem string) entity.Category {
	switch stem {
	case "PER":
		return entity.CategoryName
	case "ORG":
		return entity.CategoryFacilityName
	case "DATE":
		return entity.CategoryDateOfBirth
	case "AGE":
		return entity.CategoryAge
	default:
		return entity.CategoryOther
	}
}

// newONNXRecognizer initializes the ONNX Runtime recognizer.
func newONNXRecognizer(cfg Config, logger *zap.Logger) (Recognizer, error) {
	if shlib := os.Getenv("ONNXRUNTIME_SHARED_LIB"); shlib != "" {
		ort.SetSharedLibraryPath(shlib)
	} else if shlib := os.Getenv("ORT_SHLIB"); shlib != "" {
		ort.SetSharedLibraryPath(shlib)
	}

	if err := ort.InitializeEnvironment(); err != nil {
		return nil, fmt.Errorf("ONNX Runtime environment init failed: %w", err)
	}

	vocab, unkID, err := loadVocab(cfg.ONNX.VocabPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load vocab: %w", err)
	}

	inputsInfo, outputsInfo, err := ort.GetInputOutputInfo(cfg.ONNX.ModelPath)
	if err != nil {
		return nil, fmt.Errorf("failed to inspect ONNX model IO: %w", err)
	}
	if len(outputsInfo) == 0 {
		return nil, fmt.Errorf("ONNX model reports no outputs")
	}

	preferred := []string{"input_ids", "attention_mask"}
	available := map[string]bool{}
	for _, ii := range inputsInfo {
		available[strings.ToLower(ii.Name)] = true
	}
	var inputNames []string
	for _, name := range preferred {
		if available[name] {
			inputNames = append(inputNames, name)
		}
	}
	if len(inputNames) == 0 {
		for _, ii := range inputsInfo {
			inputNames = append(inputNames, ii.Name)
		}
	}

	sess, err := ort.NewDynamicAdvancedSession(cfg.ONNX.ModelPath, inputNames, []string{outputsInfo[0].Name}, nil)
	if err != nil {
		return nil, fmt.Errorf("ONNX Runtime session creation failed: %w", err)
	}

	logger.Info("ONNX recognizer ready",
		zap.String("model", cfg.ONNX.ModelPath),
		zap.Strings("inputs", inputNames),
		zap.Int("vocab_size", len(vocab)),
	)

	return &onnxRecognizer{
		session:    sess,
		inputNames: inputNames,
		vocab:      vocab,
		unkID:      unkID,
		maxLength:  cfg.ONNX.MaxLength,
		logger:     logger,
		ready:      true,
	}, nil
}

// loadVocab reads a one-token-per-line vocabulary file; line number is the
// token ID, matching the exported tokenizer format.
func loadVocab(path string) (map[string]int64, int64, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, 0, err
	}
	defer file.Close()

	vocab := make(map[string]int64)
	var id int64
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		vocab[scanner.Text()] = id
		id++
	}
	if err := scanner.Err(); err != nil {
		return nil, 0, err
	}

	unkID, ok := vocab["[UNK]"]
	if !ok {
		unkID = 0
	}
	return vocab, unkID, nil
}

// token is a whitespace/punctuation token with its byte offsets preserved so
// label spans can be mapped back onto the original text.
type token struct {
	text  string
	start int
	end   int
}

// tokenize splits text into word tokens with byte offsets.
func tokenize(text string) []token {
	var tokens []token
	start := -1
	for i, r := range text {
		if unicode.IsSpace(r) {
			if start >= 0 {
				tokens = append(tokens, token{text: text[start:i], start: start, end: i})
				start = -1
			}
		} else if start < 0 {
			start = i
		}
	}
	if start >= 0 {
		tokens = append(tokens, token{text: text[start:], start: start, end: len(text)})
	}
	return tokens
}

// Detect implements Recognizer.
func (r *onnxRecognizer) Detect(ctx context.Context, text, language string, categories []entity.Category) ([]entity.CandidateSpan, error) {
	r.mu.RLock()
	ready := r.ready && r.session != nil
	r.mu.RUnlock()
	if !ready {
		return nil, fmt.Errorf("onnx recognizer not ready")
	}

	tokens := tokenize(text)
	if len(tokens) == 0 {
		return nil, nil
	}
	if r.maxLength > 0 && len(tokens) > r.maxLength {
		tokens = tokens[:r.maxLength]
	}

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	seqLen := len(tokens)
	inputIDs := make([]int64, seqLen)
	attention := make([]int64, seqLen)
	for i, tok := range tokens {
		id, ok := r.vocab[strings.ToLower(tok.text)]
		if !ok {
			id = r.unkID
		}
		inputIDs[i] = id
		attention[i] = 1
	}

	shape := ort.NewShape(1, int64(seqLen))
	idsTensor, err := ort.NewTensor[int64](shape, inputIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to create input_ids tensor: %w", err)
	}
	defer idsTensor.Destroy()
	maskTensor, err := ort.NewTensor[int64](shape, attention)
	if err != nil {
		return nil, fmt.Errorf("failed to create attention_mask tensor: %w", err)
	}
	defer maskTensor.Destroy()

	inputs := make([]ort.Value, 0, len(r.inputNames))
	for _, rawName := range r.inputNames {
		if strings.Contains(strings.ToLower(rawName), "mask") {
			inputs = append(inputs, maskTensor)
		} else {
			inputs = append(inputs, idsTensor)
		}
	}

	outputs := make([]ort.Value, 1)
	if err := r.session.Run(inputs, outputs); err != nil {
		return nil, fmt.Errorf("onnx run failed: %w", err)
	}
	if len(outputs) == 0 || outputs[0] == nil {
		return nil, fmt.Errorf("onnx returned no outputs")
	}
	defer outputs[0].Destroy()

	outTensor, ok := outputs[0].(*ort.Tensor[float32])
	if !ok {
		return nil, fmt.Errorf("unexpected output type (want float32 tensor)")
	}
	logits := outTensor.GetData()
	outShape := outTensor.GetShape()
	if len(outShape) != 3 || int(outShape[1]) != seqLen {
		return nil, fmt.Errorf("unsupported output shape %v", outShape)
	}
	numLabels := int(outShape[2])
	if numLabels > len(bioLabels) {
		numLabels = len(bioLabels)
	}

	return decodeBIO(tokens, logits, int(outShape[2]), numLabels, text), nil
}

// decodeBIO converts per-token label logits into merged candidate spans.
func decodeBIO(tokens []token, logits []float32, stride, numLabels int, text string) []entity.CandidateSpan {
	var spans []entity.CandidateSpan
	var current *entity.CandidateSpan
	var currentStem string
	var scoreSum float64
	var scoreCount int

	flush := func() {
		if current != nil {
			current.Confidence = scoreSum / float64(scoreCount)
			current.MatchedText = text[current.Start:current.End]
			spans = append(spans, *current)
			current = nil
		}
	}

	for i, tok := range tokens {
		offset := i * stride
		best, bestScore := 0, math.Inf(-1)
		var sumExp float64
		for l := 0; l < numLabels; l++ {
			v := float64(logits[offset+l])
			sumExp += math.Exp(v)
			if v > bestScore {
				bestScore = v
				best = l
			}
		}
		prob := math.Exp(bestScore) / sumExp

		label := bioLabels[best]
		switch {
		case label == "O":
			flush()
		case strings.HasPrefix(label, "B-"):
			flush()
			stem := strings.TrimPrefix(label, "B-")
			current = &entity.CandidateSpan{
				Start:    tok.start,
				End:      tok.end,
				Category: labelCategory(stem),
				Source:   entity.DetectorNER,
			}
			currentStem = stem
			scoreSum, scoreCount = prob, 1
		case strings.HasPrefix(label, "I-"):
			stem := strings.TrimPrefix(label, "I-")
			if current != nil && stem == currentStem {
				current.End = tok.end
				scoreSum += prob
				scoreCount++
			} else {
				// Dangling I- tag: treat as a fresh span.
				flush()
				current = &entity.CandidateSpan{
					Start:    tok.start,
					End:      tok.end,
					Category: labelCategory(stem),
					Source:   entity.DetectorNER,
				}
				currentStem = stem
				scoreSum, scoreCount = prob, 1
			}
		}
	}
	flush()
	return spans
}

// Close implements Recognizer.
func (r *onnxRecognizer) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.session != nil {
		r.session.Destroy()
		r.session = nil
	}
	ort.DestroyEnvironment()
	r.ready = false
	return nil
}
