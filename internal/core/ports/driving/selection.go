package driving

import (
	"context"

	"github.com/custodia-labs/mnemo/internal/core/domain"
)

// SelectionService edits an operator's persisted selection record.
// Every operation initialises an empty record for unknown operators.
type SelectionService interface {
	// Toggle removes id from the basket if present, otherwise adds it.
	// Returns true when the id was added.
	Toggle(ctx context.Context, operatorID, documentID int64) (bool, error)

	// Clear empties the basket.
	Clear(ctx context.Context, operatorID int64) error

	// SetAutoClear sets whether a successful run empties the basket.
	SetAutoClear(ctx context.Context, operatorID int64, on bool) error

	// Get returns the basket in ascending order.
	Get(ctx context.Context, operatorID int64) ([]int64, error)

	// State returns the full record.
	State(ctx context.Context, operatorID int64) (*domain.OperatorState, error)

	// UseCollection makes the named collection active, creating it if needed.
	UseCollection(ctx context.Context, operatorID int64, name string) (*domain.Collection, error)

	// ToggleLink adds or removes a linked collection. Returns true when linked.
	ToggleLink(ctx context.Context, operatorID, collectionID int64) (bool, error)

	// SetScope sets the visibility scope.
	SetScope(ctx context.Context, operatorID int64, mode domain.ScopeMode) error

	// CycleScope advances the scope to the next mode and returns it.
	CycleScope(ctx context.Context, operatorID int64) (domain.ScopeMode, error)

	// Arm marks the operator as ready to send a question. Requires a non-empty basket.
	Arm(ctx context.Context, operatorID int64) error

	// Disarm clears the armed flag.
	Disarm(ctx context.Context, operatorID int64) error

	// SetModel sets the operator's preferred model. Empty restores the configured model.
	SetModel(ctx context.Context, operatorID int64, model string) error
}
