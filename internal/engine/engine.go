package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/privsentry/pii-sentinel/internal/anonymize"
	"github.com/privsentry/pii-sentinel/internal/config"
	"github.com/privsentry/pii-sentinel/internal/detect"
	"github.com/privsentry/pii-sentinel/internal/detect/keyword"
	"github.com/privsentry/pii-sentinel/internal/detect/ner"
	"github.com/privsentry/pii-sentinel/internal/detect/pattern"
	"github.com/privsentry/pii-sentinel/internal/entity"
	"github.com/privsentry/pii-sentinel/internal/fusion"
	"github.com/privsentry/pii-sentinel/internal/logger"
	"github.com/privsentry/pii-sentinel/internal/risk"
	"go.uber.org/zap"
)

// Engine runs one detection request end to end: fan out to the enabled
// sources, join at the fusion barrier, and hand consumers one
// canonical entity set. Engines hold no per-request state; concurrent
// requests share nothing but the immutable rule tables.
type Engine struct {
	cfg       config.DetectionConfig
	detectors []detect.Detector
	nerCloser *ner.Adapter
	logger    *logger.Logger
}

// Summary is the per-category count view of a canonical entity set.
type Summary struct {
	Total              int            `json:"total"`
	Standard           int            `json:"standard"`
	SpeciallySensitive int            `json:"specially_sensitive"`
	ByCategory         map[string]int `json:"by_category"`
}

// Result is one detection outcome.
type Result struct {
	Entities []entity.Entity
	Summary  Summary
	// Degraded names sources that were enabled but could not run.
	Degraded []string
	Duration time.Duration
}

// New builds an engine from configuration. A NER source that fails to
// initialize leaves detection running on the remaining sources.
func New(cfg config.DetectionConfig, log *logger.Logger) *Engine {
	e := &Engine{cfg: cfg, logger: log}

	if cfg.Pattern.Enabled {
		e.detectors = append(e.detectors, pattern.New(log.WithComponent("pattern")))
	}
	if cfg.Keyword.Enabled {
		e.detectors = append(e.detectors, keyword.New(log.WithComponent("keyword")))
	}
	if cfg.NER.Enabled {
		recognizer := ner.NewRecognizer(log.WithComponent("ner"), ner.Config{
			ModelPath:         cfg.NER.ModelPath,
			VocabPath:         cfg.NER.VocabPath,
			Labels:            cfg.NER.Labels,
			MaxSequenceLength: cfg.NER.MaxSequenceLength,
			Timeout:           cfg.NER.Timeout,
		})
		adapter := ner.NewAdapter(recognizer, log.WithComponent("ner"))
		if adapter.Enabled() {
			e.detectors = append(e.detectors, adapter)
			e.nerCloser = adapter
		} else {
			log.Warn("NER source enabled in config but no backend available; continuing without it")
		}
	}

	log.Info("detection engine initialized",
		zap.Int("sources", len(e.detectors)),
		zap.Float64("confidence_floor", cfg.ConfidenceFloor),
	)
	return e
}

// WithDetectors returns an engine using the given sources directly,
// bypassing config-driven construction. Used by tests and embedders.
func WithDetectors(cfg config.DetectionConfig, log *logger.Logger, detectors ...detect.Detector) *Engine {
	return &Engine{cfg: cfg, detectors: detectors, logger: log}
}

// Detect runs all enabled sources concurrently against text and fuses
// their candidates. Empty or whitespace-only input is a successful
// empty result; input that is not valid UTF-8 is rejected.
func (e *Engine) Detect(ctx context.Context, text string) (*Result, error) {
	start := time.Now()

	if strings.TrimSpace(text) == "" {
		return &Result{Summary: summarize(nil), Duration: time.Since(start)}, nil
	}
	if !utf8.ValidString(text) {
		return nil, fmt.Errorf("text is not valid UTF-8: %w", entity.ErrInvalidInput)
	}

	type output struct {
		name       string
		candidates []entity.Candidate
		err        error
	}
	outputs := make([]output, len(e.detectors))

	var wg sync.WaitGroup
	for i, d := range e.detectors {
		wg.Add(1)
		go func(i int, d detect.Detector) {
			defer wg.Done()
			dctx := ctx
			if d.Name() == "ner" && e.cfg.NER.Timeout > 0 {
				var cancel context.CancelFunc
				dctx, cancel = context.WithTimeout(ctx, e.cfg.NER.Timeout)
				defer cancel()
			}
			candidates, err := d.Detect(dctx, text)
			outputs[i] = output{name: d.Name(), candidates: candidates, err: err}
		}(i, d)
	}
	wg.Wait()

	var candidates []entity.Candidate
	var degraded []string
	for _, out := range outputs {
		if out.err != nil {
			if errors.Is(out.err, detect.ErrUnavailable) || errors.Is(out.err, context.DeadlineExceeded) {
				e.logger.Warn("detection source unavailable",
					zap.String("source", out.name),
					zap.Error(out.err),
				)
				degraded = append(degraded, out.name)
				continue
			}
			return nil, fmt.Errorf("detector %s failed: %w", out.name, out.err)
		}
		candidates = append(candidates, out.candidates...)
	}

	entities, err := fusion.Resolve(text, candidates, e.cfg.ConfidenceFloor)
	if err != nil {
		return nil, err
	}

	return &Result{
		Entities: entities,
		Summary:  summarize(entities),
		Degraded: degraded,
		Duration: time.Since(start),
	}, nil
}

// Anonymize detects and rewrites in one call.
func (e *Engine) Anonymize(ctx context.Context, text string, opts anonymize.Options) (*Result, string, error) {
	result, err := e.Detect(ctx, text)
	if err != nil {
		return nil, "", err
	}
	return result, anonymize.Anonymize(text, result.Entities, opts), nil
}

// Assess detects and scores in one call. Compliance issue counts come
// from the external legal-rule collaborator and pass through opaquely.
func (e *Engine) Assess(ctx context.Context, text string, issues risk.Issues) (*Result, risk.Assessment, error) {
	result, err := e.Detect(ctx, text)
	if err != nil {
		return nil, risk.Assessment{}, err
	}
	return result, risk.Assess(result.Entities, issues), nil
}

// Sources returns the names of the active detection sources.
func (e *Engine) Sources() []string {
	names := make([]string, 0, len(e.detectors))
	for _, d := range e.detectors {
		names = append(names, d.Name())
	}
	return names
}

// Close releases detector resources (the NER backend).
func (e *Engine) Close() error {
	if e.nerCloser != nil {
		return e.nerCloser.Close()
	}
	return nil
}

func summarize(entities []entity.Entity) Summary {
	s := Summary{ByCategory: make(map[string]int)}
	for _, e := range entities {
		s.Total++
		if e.Sensitivity.Special {
			s.SpeciallySensitive++
		} else {
			s.Standard++
		}
		s.ByCategory[e.Category.String()]++
	}
	return s
}
