package engine

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/privsentry/pii-sentinel/internal/anonymize"
	"github.com/privsentry/pii-sentinel/internal/config"
	"github.com/privsentry/pii-sentinel/internal/detect"
	"github.com/privsentry/pii-sentinel/internal/entity"
	"github.com/privsentry/pii-sentinel/internal/logger"
	"github.com/privsentry/pii-sentinel/internal/risk"
)

type fakeDetector struct {
	name       string
	candidates []entity.Candidate
	err        error
	delay      time.Duration
}

func (f *fakeDetector) Name() string { return f.name }

func (f *fakeDetector) Detect(ctx context.Context, text string) ([]entity.Candidate, error) {
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return f.candidates, f.err
}

func testConfig() config.DetectionConfig {
	cfg := config.GetDefaults().Detection
	return cfg
}

func TestEngineDetect(t *testing.T) {
	ctx := context.Background()

	t.Run("end to end with real sources", func(t *testing.T) {
		e := New(testConfig(), logger.Nop())
		defer e.Close()

		result, err := e.Detect(ctx, "ID: 123456782, call 050-1234567")
		if err != nil {
			t.Fatal(err)
		}
		if result.Summary.Total != 2 {
			t.Fatalf("Total = %d, want 2: %+v", result.Summary.Total, result.Entities)
		}
		if result.Summary.ByCategory["identification"] != 1 || result.Summary.ByCategory["phone"] != 1 {
			t.Errorf("ByCategory = %v", result.Summary.ByCategory)
		}
		if len(result.Degraded) != 0 {
			t.Errorf("Degraded = %v, want none", result.Degraded)
		}
	})

	t.Run("empty input is a valid empty result", func(t *testing.T) {
		e := New(testConfig(), logger.Nop())
		defer e.Close()

		for _, text := range []string{"", "   \n\t "} {
			result, err := e.Detect(ctx, text)
			if err != nil {
				t.Fatalf("Detect(%q) = %v", text, err)
			}
			if result.Summary.Total != 0 {
				t.Errorf("Detect(%q) found %d entities", text, result.Summary.Total)
			}
		}
	})

	t.Run("invalid UTF-8 is rejected", func(t *testing.T) {
		e := New(testConfig(), logger.Nop())
		defer e.Close()

		_, err := e.Detect(ctx, "bad \xff\xfe bytes")
		if !errors.Is(err, entity.ErrInvalidInput) {
			t.Fatalf("Detect() error = %v, want ErrInvalidInput", err)
		}
	})

	t.Run("unavailable source degrades instead of failing", func(t *testing.T) {
		text := "call 050-1234567 now"
		working := &fakeDetector{name: "pattern", candidates: []entity.Candidate{
			{Text: "050-1234567", Category: entity.Phone, Start: 5, End: 16, Confidence: 0.9, Source: entity.SourcePattern},
		}}
		broken := &fakeDetector{name: "ner", err: detect.ErrUnavailable}

		e := WithDetectors(testConfig(), logger.Nop(), working, broken)
		result, err := e.Detect(ctx, text)
		if err != nil {
			t.Fatal(err)
		}
		if result.Summary.Total != 1 {
			t.Errorf("Total = %d, want 1", result.Summary.Total)
		}
		if !reflect.DeepEqual(result.Degraded, []string{"ner"}) {
			t.Errorf("Degraded = %v, want [ner]", result.Degraded)
		}
	})

	t.Run("slow ner source times out and degrades", func(t *testing.T) {
		cfg := testConfig()
		cfg.NER.Timeout = 20 * time.Millisecond
		slow := &fakeDetector{name: "ner", delay: time.Second}

		e := WithDetectors(cfg, logger.Nop(), slow)
		start := time.Now()
		result, err := e.Detect(ctx, "some text")
		if err != nil {
			t.Fatal(err)
		}
		if time.Since(start) > 500*time.Millisecond {
			t.Error("timeout did not cut the slow source short")
		}
		if !reflect.DeepEqual(result.Degraded, []string{"ner"}) {
			t.Errorf("Degraded = %v, want [ner]", result.Degraded)
		}
	})

	t.Run("non-availability errors are fatal", func(t *testing.T) {
		broken := &fakeDetector{name: "pattern", err: errors.New("rule table corrupted")}
		e := WithDetectors(testConfig(), logger.Nop(), broken)
		if _, err := e.Detect(ctx, "some text"); err == nil {
			t.Fatal("Detect() succeeded, want error")
		}
	})

	t.Run("repeated calls are deterministic", func(t *testing.T) {
		e := New(testConfig(), logger.Nop())
		defer e.Close()

		text := "The doctor saw 123456782. Email a@b.co"
		first, err := e.Detect(ctx, text)
		if err != nil {
			t.Fatal(err)
		}
		for i := 0; i < 5; i++ {
			got, err := e.Detect(ctx, text)
			if err != nil {
				t.Fatal(err)
			}
			if !reflect.DeepEqual(got.Entities, first.Entities) {
				t.Fatalf("entities changed between runs:\ngot  %+v\nwant %+v", got.Entities, first.Entities)
			}
		}
	})
}

func TestEngineAnonymize(t *testing.T) {
	e := New(testConfig(), logger.Nop())
	defer e.Close()

	_, rewritten, err := e.Anonymize(context.Background(),
		"ID: 123456782, call 050-1234567", anonymize.Options{Mode: anonymize.Replace})
	if err != nil {
		t.Fatal(err)
	}
	if rewritten != "ID: [ID_NUMBER], call [PHONE]" {
		t.Fatalf("rewritten = %q", rewritten)
	}
}

func TestEngineAssess(t *testing.T) {
	e := New(testConfig(), logger.Nop())
	defer e.Close()

	result, assessment, err := e.Assess(context.Background(), "ID: 123456782", risk.Issues{})
	if err != nil {
		t.Fatal(err)
	}
	if result.Summary.Total != 1 {
		t.Fatalf("Total = %d, want 1", result.Summary.Total)
	}
	// Identification is in the always-critical set.
	if assessment.Score < 25 {
		t.Errorf("Score = %d, want at least the always-critical addition", assessment.Score)
	}
}

func TestEngineSources(t *testing.T) {
	e := New(testConfig(), logger.Nop())
	defer e.Close()

	sources := e.Sources()
	if !reflect.DeepEqual(sources, []string{"pattern", "keyword"}) {
		t.Errorf("Sources() = %v, want [pattern keyword] with NER disabled", sources)
	}
}
