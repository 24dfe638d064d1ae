package fusion

import (
	"sort"

	"github.com/privsentry/pii-sentinel/internal/entity"
)

// DefaultConfidenceFloor is the global minimum confidence: candidates
// below it never enter the canonical set, whatever their source.
const DefaultConfidenceFloor = 0.5

// Resolve merges candidates from all detectors into the canonical
// entity set. Resolution runs independently per category: overlapping
// spans of different categories legitimately coexist, overlapping
// spans within a category are reduced to the highest-confidence one.
//
// The output is fully deterministic: given the same candidate
// multiset, Resolve returns the same entities regardless of input
// order or which detector finished first. A candidate whose span does
// not slice back to its exact source text aborts fusion with a
// SpanError; that means a detector corrupted offsets upstream and any
// rewrite built from it would be corrupted too.
func Resolve(source string, candidates []entity.Candidate, floor float64) ([]entity.Entity, error) {
	if floor <= 0 {
		floor = DefaultConfidenceFloor
	}
	byCategory := make(map[entity.Category][]entity.Candidate)
	for _, c := range candidates {
		if err := c.Validate(source); err != nil {
			return nil, err
		}
		if c.Confidence < floor {
			continue
		}
		byCategory[c.Category] = append(byCategory[c.Category], c)
	}

	var entities []entity.Entity
	for _, category := range entity.Categories() {
		group := byCategory[category]
		if len(group) == 0 {
			continue
		}
		for _, c := range resolveCategory(group) {
			entities = append(entities, entity.Entity{
				Text:        c.Text,
				Category:    c.Category,
				Start:       c.Start,
				End:         c.End,
				Confidence:  c.Confidence,
				Sensitivity: entity.SensitivityOf(c.Category),
			})
		}
	}

	sort.Slice(entities, func(i, j int) bool {
		if entities[i].Start != entities[j].Start {
			return entities[i].Start < entities[j].Start
		}
		return entities[i].Category < entities[j].Category
	})
	return entities, nil
}

// resolveCategory keeps the greedy non-overlapping subset: candidates
// sorted by confidence descending (earliest start, then shortest span,
// break remaining ties) are accepted unless they touch an already
// retained span.
func resolveCategory(group []entity.Candidate) []entity.Candidate {
	sorted := make([]entity.Candidate, len(group))
	copy(sorted, group)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].Confidence != sorted[j].Confidence {
			return sorted[i].Confidence > sorted[j].Confidence
		}
		if sorted[i].Start != sorted[j].Start {
			return sorted[i].Start < sorted[j].Start
		}
		return sorted[i].End < sorted[j].End
	})

	var retained []entity.Candidate
	for _, c := range sorted {
		if !overlapsAny(c, retained) {
			retained = append(retained, c)
		}
	}
	return retained
}

func overlapsAny(c entity.Candidate, retained []entity.Candidate) bool {
	for _, r := range retained {
		if c.Start <= r.End && c.End >= r.Start {
			return true
		}
	}
	return false
}
