package ner

import (
	"context"
	"errors"
	"testing"

	"github.com/privsentry/pii-sentinel/internal/detect"
	"github.com/privsentry/pii-sentinel/internal/entity"
	"github.com/privsentry/pii-sentinel/internal/logger"
)

type fakeRecognizer struct {
	spans []Span
	err   error
}

func (f *fakeRecognizer) Recognize(ctx context.Context, text string) ([]Span, error) {
	return f.spans, f.err
}

func (f *fakeRecognizer) Close() error { return nil }

func TestAdapterDetect(t *testing.T) {
	ctx := context.Background()

	t.Run("maps labels onto categories", func(t *testing.T) {
		text := "David works at Acme in Haifa"
		rec := &fakeRecognizer{spans: []Span{
			{Text: "David", Label: "B-PER", Start: 0, End: 5, Score: 0.92},
			{Text: "Acme", Label: "ORG", Start: 15, End: 19, Score: 0.88},
			{Text: "Haifa", Label: "I-LOC", Start: 23, End: 28, Score: 0.81},
			{Text: "works", Label: "MISC", Start: 6, End: 11, Score: 0.95},
		}}
		a := NewAdapter(rec, logger.Nop())

		got, err := a.Detect(ctx, text)
		if err != nil {
			t.Fatal(err)
		}
		if len(got) != 3 {
			t.Fatalf("got %d candidates, want 3 (unmapped label dropped)", len(got))
		}
		want := []entity.Category{entity.PersonName, entity.Organization, entity.Location}
		for i, c := range got {
			if c.Category != want[i] {
				t.Errorf("candidate %d category = %s, want %s", i, c.Category, want[i])
			}
			if c.Source != entity.SourceNER {
				t.Errorf("candidate %d source = %s", i, c.Source)
			}
			if err := c.Validate(text); err != nil {
				t.Errorf("candidate %d fails validation: %v", i, err)
			}
		}
	})

	t.Run("recognizer failure is unavailable, not fatal", func(t *testing.T) {
		a := NewAdapter(&fakeRecognizer{err: errors.New("model crashed")}, logger.Nop())
		_, err := a.Detect(ctx, "text")
		if !errors.Is(err, detect.ErrUnavailable) {
			t.Fatalf("Detect() error = %v, want ErrUnavailable", err)
		}
	})

	t.Run("nil recognizer disables the source", func(t *testing.T) {
		a := NewAdapter(nil, logger.Nop())
		if a.Enabled() {
			t.Error("Enabled() = true for nil recognizer")
		}
		if _, err := a.Detect(ctx, "text"); !errors.Is(err, detect.ErrUnavailable) {
			t.Errorf("Detect() error = %v, want ErrUnavailable", err)
		}
		if err := a.Close(); err != nil {
			t.Errorf("Close() = %v", err)
		}
	})
}

func TestMapLabel(t *testing.T) {
	tests := []struct {
		label    string
		category entity.Category
		ok       bool
	}{
		{"PER", entity.PersonName, true},
		{"B-PERSON", entity.PersonName, true},
		{"I-ORG", entity.Organization, true},
		{"GPE", entity.Location, true},
		{"FAC", entity.Location, true},
		{"loc", entity.Location, true},
		{"MISC", 0, false},
		{"", 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.label, func(t *testing.T) {
			got, ok := MapLabel(tt.label)
			if ok != tt.ok || (ok && got != tt.category) {
				t.Errorf("MapLabel(%q) = %v, %t; want %v, %t", tt.label, got, ok, tt.category, tt.ok)
			}
		})
	}
}

func TestTokenize(t *testing.T) {
	tokens := tokenize("Call me, David!")
	want := []token{
		{text: "Call", start: 0, end: 4},
		{text: "me", start: 5, end: 7},
		{text: ",", start: 7, end: 8},
		{text: "David", start: 9, end: 14},
		{text: "!", start: 14, end: 15},
	}
	if len(tokens) != len(want) {
		t.Fatalf("got %d tokens, want %d: %+v", len(tokens), len(want), tokens)
	}
	for i, tok := range tokens {
		if tok != want[i] {
			t.Errorf("token %d = %+v, want %+v", i, tok, want[i])
		}
	}
}
