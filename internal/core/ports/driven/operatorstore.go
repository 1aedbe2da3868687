package driven

import (
	"context"
	"time"

	"github.com/custodia-labs/mnemo/internal/core/domain"
)

// OperatorStore persists the per-operator selection record.
//
// Save writes the whole record except the run guard, so selection edits made
// while a run is in flight never release or steal the guard. Only BeginRun,
// CompleteRun and EndRun touch the guard fields.
type OperatorStore interface {
	// Get returns the operator's record, initialising an empty one if none exists.
	Get(ctx context.Context, operatorID int64) (*domain.OperatorState, error)

	// Save writes the record. Last writer wins on the whole record.
	Save(ctx context.Context, state *domain.OperatorState) error

	// BeginRun takes the operator's run guard for runID. It reports false
	// without error when another run holds a guard younger than staleAfter.
	BeginRun(ctx context.Context, operatorID int64, runID string, now time.Time, staleAfter time.Duration) (bool, error)

	// CompleteRun saves state and releases the guard held by runID atomically.
	CompleteRun(ctx context.Context, state *domain.OperatorState, runID string) error

	// EndRun releases the guard held by runID. It is a no-op if runID no longer holds it.
	EndRun(ctx context.Context, operatorID int64, runID string) error
}
