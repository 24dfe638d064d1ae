package fusion

import (
	"errors"
	"math/rand"
	"reflect"
	"testing"

	"github.com/privsentry/pii-sentinel/internal/entity"
)

func candidate(source string, cat entity.Category, start, end int, conf float64, src entity.Source) entity.Candidate {
	return entity.Candidate{
		Text:       source[start:end],
		Category:   cat,
		Start:      start,
		End:        end,
		Confidence: conf,
		Source:     src,
	}
}

func TestResolve(t *testing.T) {
	t.Run("confidence floor filters candidates", func(t *testing.T) {
		source := "some text here"
		candidates := []entity.Candidate{
			candidate(source, entity.Phone, 0, 4, 0.49, entity.SourcePattern),
			candidate(source, entity.Email, 5, 9, 0.50, entity.SourcePattern),
		}
		got, err := Resolve(source, candidates, DefaultConfidenceFloor)
		if err != nil {
			t.Fatal(err)
		}
		if len(got) != 1 || got[0].Category != entity.Email {
			t.Fatalf("got %+v, want only the 0.50 email", got)
		}
	})

	t.Run("within-category overlap keeps highest confidence", func(t *testing.T) {
		source := "0501234567 extra"
		candidates := []entity.Candidate{
			candidate(source, entity.Phone, 0, 10, 0.90, entity.SourcePattern),
			candidate(source, entity.Phone, 0, 6, 0.70, entity.SourceNER),
		}
		got, err := Resolve(source, candidates, 0)
		if err != nil {
			t.Fatal(err)
		}
		if len(got) != 1 {
			t.Fatalf("got %d entities, want 1", len(got))
		}
		if got[0].Confidence != 0.90 || got[0].End != 10 {
			t.Errorf("kept %+v, want the 0.90 candidate", got[0])
		}
	})

	t.Run("adjacent spans touching at endpoints conflict", func(t *testing.T) {
		// [0,5) and [5,9) share no bytes but the inclusive overlap
		// rule still treats end==start as a conflict.
		source := "aaaaabbbb"
		candidates := []entity.Candidate{
			candidate(source, entity.PersonName, 0, 5, 0.80, entity.SourceNER),
			candidate(source, entity.PersonName, 5, 9, 0.70, entity.SourceNER),
		}
		got, err := Resolve(source, candidates, 0)
		if err != nil {
			t.Fatal(err)
		}
		if len(got) != 1 {
			t.Fatalf("got %d entities, want 1 (touching spans conflict)", len(got))
		}
	})

	t.Run("cross-category overlap coexists", func(t *testing.T) {
		source := "the doctor called 050-1234567 now"
		candidates := []entity.Candidate{
			candidate(source, entity.MedicalContext, 0, 29, 0.70, entity.SourceKeyword),
			candidate(source, entity.Phone, 18, 29, 0.90, entity.SourcePattern),
		}
		got, err := Resolve(source, candidates, 0)
		if err != nil {
			t.Fatal(err)
		}
		if len(got) != 2 {
			t.Fatalf("got %d entities, want 2 overlapping categories", len(got))
		}
	})

	t.Run("deterministic under input permutation", func(t *testing.T) {
		source := "aaaa bbbb cccc dddd eeee"
		base := []entity.Candidate{
			candidate(source, entity.PersonName, 0, 4, 0.80, entity.SourceNER),
			candidate(source, entity.PersonName, 2, 9, 0.80, entity.SourceNER),
			candidate(source, entity.PersonName, 10, 14, 0.60, entity.SourceNER),
			candidate(source, entity.Location, 5, 14, 0.70, entity.SourceNER),
			candidate(source, entity.Location, 15, 19, 0.55, entity.SourceNER),
		}
		want, err := Resolve(source, base, 0)
		if err != nil {
			t.Fatal(err)
		}

		rng := rand.New(rand.NewSource(1))
		for i := 0; i < 20; i++ {
			shuffled := make([]entity.Candidate, len(base))
			copy(shuffled, base)
			rng.Shuffle(len(shuffled), func(a, b int) {
				shuffled[a], shuffled[b] = shuffled[b], shuffled[a]
			})
			got, err := Resolve(source, shuffled, 0)
			if err != nil {
				t.Fatal(err)
			}
			if !reflect.DeepEqual(got, want) {
				t.Fatalf("permutation %d changed the result:\ngot  %+v\nwant %+v", i, got, want)
			}
		}
	})

	t.Run("output sorted by start offset", func(t *testing.T) {
		source := "aaaa bbbb cccc"
		candidates := []entity.Candidate{
			candidate(source, entity.Location, 10, 14, 0.9, entity.SourceNER),
			candidate(source, entity.PersonName, 0, 4, 0.9, entity.SourceNER),
			candidate(source, entity.Organization, 5, 9, 0.9, entity.SourceNER),
		}
		got, err := Resolve(source, candidates, 0)
		if err != nil {
			t.Fatal(err)
		}
		for i := 1; i < len(got); i++ {
			if got[i].Start < got[i-1].Start {
				t.Fatalf("entities not sorted by start: %+v", got)
			}
		}
	})

	t.Run("span violation aborts fusion", func(t *testing.T) {
		source := "short"
		candidates := []entity.Candidate{
			{Text: "missing", Category: entity.Phone, Start: 0, End: 7, Confidence: 0.9},
		}
		_, err := Resolve(source, candidates, 0)
		var spanErr *entity.SpanError
		if !errors.As(err, &spanErr) {
			t.Fatalf("Resolve() error = %v, want SpanError", err)
		}
	})

	t.Run("sensitivity attached from category table", func(t *testing.T) {
		source := "criminal record found"
		candidates := []entity.Candidate{
			candidate(source, entity.CriminalContext, 0, 21, 0.70, entity.SourceKeyword),
		}
		got, err := Resolve(source, candidates, 0)
		if err != nil {
			t.Fatal(err)
		}
		if len(got) != 1 || !got[0].Sensitivity.Special || got[0].Sensitivity.Rank != entity.RankCritical {
			t.Fatalf("unexpected sensitivity: %+v", got)
		}
	})

	t.Run("empty candidates yield empty set", func(t *testing.T) {
		got, err := Resolve("anything", nil, 0)
		if err != nil {
			t.Fatal(err)
		}
		if len(got) != 0 {
			t.Errorf("got %+v, want empty", got)
		}
	})
}
