package keyword

import (
	"context"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/privsentry/pii-sentinel/internal/entity"
	"github.com/privsentry/pii-sentinel/internal/logger"
)

// Matcher scans sentence and line units for category keyword hits and
// emits one candidate per category per unit, spanning the whole unit.
type Matcher struct {
	sets   []Set
	logger *logger.Logger

	// Lowered terms, aligned with sets, computed once.
	loweredTerms [][]string
}

// New creates a keyword matcher with the default bilingual sets.
func New(log *logger.Logger) *Matcher {
	sets := DefaultSets()
	lowered := make([][]string, len(sets))
	for i, set := range sets {
		lowered[i] = make([]string, len(set.Terms))
		for j, term := range set.Terms {
			lowered[i][j] = strings.ToLower(term)
		}
	}
	return &Matcher{sets: sets, logger: log, loweredTerms: lowered}
}

func (m *Matcher) Name() string { return "keyword" }

// Detect scans each unit once per set. Units with no hits produce
// nothing; several categories may independently claim the same unit.
func (m *Matcher) Detect(ctx context.Context, text string) ([]entity.Candidate, error) {
	if text == "" {
		return nil, nil
	}

	sentences := splitUnits(text, isSentenceDelim)
	lines := splitUnits(text, isLineDelim)

	var candidates []entity.Candidate
	for i, set := range m.sets {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		units := sentences
		if set.Granularity == Line {
			units = lines
		}
		for _, u := range units {
			unitText := text[u.start:u.end]
			if !containsAny(strings.ToLower(unitText), m.loweredTerms[i]) {
				continue
			}
			candidates = append(candidates, entity.Candidate{
				Text:       unitText,
				Category:   set.Category,
				Start:      u.start,
				End:        u.end,
				Confidence: set.Confidence,
				Source:     entity.SourceKeyword,
			})
		}
	}
	return candidates, nil
}

type span struct {
	start, end int
}

// splitUnits cuts text at delimiter runes, tracking byte offsets so a
// unit's span always slices back to its exact source bytes. Units are
// trimmed of surrounding whitespace; empty units are dropped.
func splitUnits(text string, isDelim func(rune) bool) []span {
	var units []span
	start := 0
	for i, r := range text {
		if !isDelim(r) {
			continue
		}
		if u, ok := trimSpan(text, start, i); ok {
			units = append(units, u)
		}
		start = i + utf8.RuneLen(r)
	}
	if u, ok := trimSpan(text, start, len(text)); ok {
		units = append(units, u)
	}
	return units
}

func trimSpan(text string, start, end int) (span, bool) {
	for start < end {
		r, size := utf8.DecodeRuneInString(text[start:end])
		if !unicode.IsSpace(r) {
			break
		}
		start += size
	}
	for end > start {
		r, size := utf8.DecodeLastRuneInString(text[start:end])
		if !unicode.IsSpace(r) {
			break
		}
		end -= size
	}
	if start >= end {
		return span{}, false
	}
	return span{start: start, end: end}, true
}

func containsAny(lowered string, terms []string) bool {
	for _, term := range terms {
		if strings.Contains(lowered, term) {
			return true
		}
	}
	return false
}

func isSentenceDelim(r rune) bool {
	return r == '.' || r == '!' || r == '?' || r == '\n'
}

func isLineDelim(r rune) bool {
	return r == '\n'
}
