package ner

import (
	"context"
	"fmt"
	"strings"

	"github.com/privsentry/pii-sentinel/internal/detect"
	"github.com/privsentry/pii-sentinel/internal/entity"
	"github.com/privsentry/pii-sentinel/internal/logger"
	"go.uber.org/zap"
)

// Span is one raw entity from the statistical recognizer, offsets in
// bytes of the input text.
type Span struct {
	Text  string
	Label string
	Start int
	End   int
	Score float64
}

// Recognizer is the external statistical NER collaborator. It is the
// only detection source expected to block; callers run it under a
// timeout and treat failure as "unavailable", not fatal.
type Recognizer interface {
	Recognize(ctx context.Context, text string) ([]Span, error)
	Close() error
}

// Adapter normalizes recognizer output into candidate spans. Foreign
// labels with no category mapping are discarded. A nil recognizer
// (no onnx build tag, or no model configured) disables the source.
type Adapter struct {
	recognizer Recognizer
	logger     *logger.Logger
}

// NewAdapter wraps a recognizer; rec may be nil.
func NewAdapter(rec Recognizer, log *logger.Logger) *Adapter {
	return &Adapter{recognizer: rec, logger: log}
}

// Enabled reports whether a recognizer backend is present.
func (a *Adapter) Enabled() bool { return a != nil && a.recognizer != nil }

func (a *Adapter) Name() string { return "ner" }

// Detect runs the recognizer and maps its labels onto the closed
// category set.
func (a *Adapter) Detect(ctx context.Context, text string) ([]entity.Candidate, error) {
	if !a.Enabled() {
		return nil, fmt.Errorf("no recognizer backend: %w", detect.ErrUnavailable)
	}

	spans, err := a.recognizer.Recognize(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("recognizer failed: %w: %v", detect.ErrUnavailable, err)
	}

	var candidates []entity.Candidate
	for _, s := range spans {
		category, ok := MapLabel(s.Label)
		if !ok {
			a.logger.Debug("discarding unmapped NER label", zap.String("label", s.Label))
			continue
		}
		candidates = append(candidates, entity.Candidate{
			Text:       s.Text,
			Category:   category,
			Start:      s.Start,
			End:        s.End,
			Confidence: s.Score,
			Source:     entity.SourceNER,
		})
	}
	return candidates, nil
}

// Close releases the recognizer backend, if any.
func (a *Adapter) Close() error {
	if !a.Enabled() {
		return nil
	}
	return a.recognizer.Close()
}

// MapLabel maps a recognizer label onto the category enumeration.
// The second return is false for labels the engine does not consume.
func MapLabel(label string) (entity.Category, bool) {
	switch strings.ToUpper(strings.TrimPrefix(strings.TrimPrefix(label, "B-"), "I-")) {
	case "PER", "PERSON":
		return entity.PersonName, true
	case "ORG", "ORGANIZATION":
		return entity.Organization, true
	case "LOC", "LOCATION", "GPE", "FAC":
		return entity.Location, true
	default:
		return 0, false
	}
}
