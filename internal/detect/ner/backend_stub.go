//go:build !onnx
// +build !onnx

package ner

import (
	"github.com/privsentry/pii-sentinel/internal/logger"
)

// Stub used when the 'onnx' build tag is not set: the NER source is
// absent and detection runs on patterns and keywords alone.
func NewRecognizer(log *logger.Logger, cfg Config) Recognizer {
	return nil
}
