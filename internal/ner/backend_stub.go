//go:build !onnx
// +build !onnx

package ner

import (
	"fmt"

	"go.uber.org/zap"
)

// Stub implementation used when the 'onnx' build tag is not set.
func newONNXRecognizer(cfg Config, logger *zap.Logger) (Recognizer, error) {
	return nil, fmt.Errorf("onnx recognizer requires build tag 'onnx'")
}
