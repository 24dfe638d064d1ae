package entity

import (
	"errors"
	"testing"
)

func TestCandidateValidate(t *testing.T) {
	source := "ID: 123456782, done"

	t.Run("valid span", func(t *testing.T) {
		c := Candidate{Text: "123456782", Category: Identification, Start: 4, End: 13, Confidence: 0.95}
		if err := c.Validate(source); err != nil {
			t.Fatalf("Validate() = %v, want nil", err)
		}
	})

	t.Run("span outside bounds", func(t *testing.T) {
		c := Candidate{Text: "x", Category: Phone, Start: 10, End: len(source) + 5}
		var spanErr *SpanError
		if err := c.Validate(source); !errors.As(err, &spanErr) {
			t.Fatalf("Validate() = %v, want SpanError", err)
		}
	})

	t.Run("start after end", func(t *testing.T) {
		c := Candidate{Text: "", Category: Phone, Start: 5, End: 5}
		var spanErr *SpanError
		if err := c.Validate(source); !errors.As(err, &spanErr) {
			t.Fatalf("Validate() = %v, want SpanError", err)
		}
	})

	t.Run("text mismatch", func(t *testing.T) {
		c := Candidate{Text: "999999999", Category: Identification, Start: 4, End: 13}
		var spanErr *SpanError
		if err := c.Validate(source); !errors.As(err, &spanErr) {
			t.Fatalf("Validate() = %v, want SpanError", err)
		}
		if spanErr.Reason != "text does not match source span" {
			t.Errorf("unexpected reason: %s", spanErr.Reason)
		}
	})
}

func TestSensitivityOf(t *testing.T) {
	tests := []struct {
		category Category
		special  bool
		rank     Rank
	}{
		{Identification, false, RankCritical},
		{CreditCard, true, RankCritical},
		{MedicalContext, true, RankCritical},
		{CriminalContext, true, RankCritical},
		{FinancialContext, true, RankHigh},
		{PoliticalContext, true, RankHigh},
		{Phone, false, RankMedium},
		{Email, false, RankMedium},
		{PersonName, false, RankLow},
		{Location, false, RankLow},
	}
	for _, tt := range tests {
		t.Run(tt.category.String(), func(t *testing.T) {
			got := SensitivityOf(tt.category)
			if got.Special != tt.special || got.Rank != tt.rank {
				t.Errorf("SensitivityOf(%s) = %+v, want special=%t rank=%s",
					tt.category, got, tt.special, tt.rank)
			}
		})
	}
}

func TestPlaceholder(t *testing.T) {
	if got := Placeholder(Identification); got != "[ID_NUMBER]" {
		t.Errorf("Placeholder(Identification) = %q", got)
	}
	if got := Placeholder(Phone); got != "[PHONE]" {
		t.Errorf("Placeholder(Phone) = %q", got)
	}
	for _, c := range Categories() {
		if Placeholder(c) == "" {
			t.Errorf("Placeholder(%s) is empty", c)
		}
	}
}

func TestCategories(t *testing.T) {
	cats := Categories()
	if len(cats) != 16 {
		t.Fatalf("Categories() returned %d categories, want 16", len(cats))
	}
	seen := make(map[string]bool)
	for _, c := range cats {
		name := c.String()
		if seen[name] {
			t.Errorf("duplicate category name %q", name)
		}
		seen[name] = true
	}
}
