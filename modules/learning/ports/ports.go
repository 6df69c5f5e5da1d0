package ports

import (
	"context"

	"github.com/andreypavlenko/caesub/modules/learning/model"
)

// HintRepository persists LearnedHints as an append-only log plus a
// materialized index for lookup, and tombstones for soft-disable (spec.md
// §4.2.2, §6.2).
type HintRepository interface {
	// Append writes a new hint to the durable log and index. Appending a
	// hint whose HintID already exists is a no-op (idempotent generation).
	Append(ctx context.Context, h *model.LearnedHint) error
	// List returns every hint currently in the index, disabled ones
	// included (callers filter).
	List(ctx context.Context) ([]*model.LearnedHint, error)
	// Disable tombstones a hint so future lookups treat it as disabled
	// without rewriting the append-only log.
	Disable(ctx context.Context, hintID string) error
}
