package anonymize

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"

	"github.com/privsentry/pii-sentinel/internal/entity"
)

// Mode selects the replacement strategy.
type Mode string

const (
	// Redact replaces every span with a fixed placeholder.
	Redact Mode = "redact"
	// Mask repeats the mask character to the original span length.
	Mask Mode = "mask"
	// Replace uses a category-specific descriptive placeholder.
	Replace Mode = "replace"
	// Hash replaces with a deterministic short hash of the value, so
	// equal values stay correlatable without being revealed.
	Hash Mode = "hash"
)

const redactedPlaceholder = "[REDACTED]"

// ParseMode maps a config/API string onto a Mode.
func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(s)) {
	case Redact, Mask, Replace, Hash:
		return Mode(strings.ToLower(s)), nil
	default:
		return "", fmt.Errorf("unknown anonymization mode: %q", s)
	}
}

// Options controls replacement behavior. The zero MaskByte and
// HashLength fall back to '*' and 8.
type Options struct {
	Mode           Mode
	MaskByte       byte
	PreserveLength bool
	HashLength     int
}

// Anonymize rewrites text with every entity span replaced according to
// opts. Bytes outside the selected spans are preserved exactly.
//
// Spans are spliced in descending-start order: every splice happens at
// or after the region any unprocessed span points into, so the
// original offsets stay valid throughout the rewrite. Entities of
// different categories may overlap; ties at the same start are ordered
// by descending sensitivity rank, and a later splice absorbing part of
// an earlier replacement is the accepted policy, not an error.
func Anonymize(text string, entities []entity.Entity, opts Options) string {
	if len(entities) == 0 {
		return text
	}

	ordered := make([]entity.Entity, len(entities))
	copy(ordered, entities)
	sort.Slice(ordered, func(i, j int) bool {
		if ordered[i].Start != ordered[j].Start {
			return ordered[i].Start > ordered[j].Start
		}
		if ordered[i].Sensitivity.Rank != ordered[j].Sensitivity.Rank {
			return ordered[i].Sensitivity.Rank > ordered[j].Sensitivity.Rank
		}
		return ordered[i].Category < ordered[j].Category
	})

	out := text
	for _, e := range ordered {
		start, end := e.Start, e.End
		if start > len(out) {
			start = len(out)
		}
		if end > len(out) {
			end = len(out)
		}
		out = out[:start] + replacement(e, opts) + out[end:]
	}
	return out
}

func replacement(e entity.Entity, opts Options) string {
	length := e.End - e.Start

	var repl string
	switch opts.Mode {
	case Mask:
		return strings.Repeat(string(maskByte(opts)), length)
	case Replace:
		repl = entity.Placeholder(e.Category)
	case Hash:
		repl = "[" + shortHash(e.Text, opts.HashLength) + "]"
	default:
		repl = redactedPlaceholder
	}

	if opts.PreserveLength {
		return fitLength(repl, length)
	}
	return repl
}

// fitLength truncates or space-pads to exactly n bytes so absolute
// offsets elsewhere in the document stay stable.
func fitLength(s string, n int) string {
	if len(s) > n {
		return s[:n]
	}
	if len(s) < n {
		return s + strings.Repeat(" ", n-len(s))
	}
	return s
}

func maskByte(opts Options) byte {
	if opts.MaskByte != 0 {
		return opts.MaskByte
	}
	return '*'
}

func shortHash(value string, length int) string {
	if length <= 0 {
		length = 8
	}
	sum := sha256.Sum256([]byte(value))
	digest := hex.EncodeToString(sum[:])
	if length > len(digest) {
		length = len(digest)
	}
	return digest[:length]
}
