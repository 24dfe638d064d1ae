package detect

import (
	"context"
	"errors"

	"github.com/privsentry/pii-sentinel/internal/entity"
)

// Detector is one independent candidate source. Implementations must
// be stateless with respect to the input: the same text always yields
// the same candidates, and concurrent calls on different texts are
// safe without locking.
type Detector interface {
	Name() string
	Detect(ctx context.Context, text string) ([]entity.Candidate, error)
}

// ErrUnavailable marks a detector that cannot run at all (for example
// the NER collaborator timing out or missing its model). Detection
// degrades to the remaining sources; the error is logged, not fatal.
var ErrUnavailable = errors.New("detector unavailable")
