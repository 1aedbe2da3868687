package driving

import (
	"context"

	"github.com/custodia-labs/mnemo/internal/core/domain"
)

// RunInput is one send trigger.
type RunInput struct {
	OperatorID int64
	Question   string

	// TriggerID identifies the front-end event (message id, button press).
	// Repeated triggers with the same id within the debounce window are dropped.
	TriggerID string
}

// RunResult is the outcome of RunRequest.
type RunResult struct {
	RunID         string
	Text          string
	UsedSourceIDs []int64
	Usage         domain.Usage
	Attempts      int

	// Debounced is set when the trigger was dropped. All other fields are empty.
	Debounced bool
}

// Preview describes what a run would send, for display before sending.
type Preview struct {
	Model          string
	Scope          domain.ScopeMode
	CollectionName string
	Budget         int
	SourceIDs      []int64
	ContextTokens  int
	EstimatedCost  float64

	// Line is the rendered one-line summary.
	Line string
}

// PipelineService runs model requests over the operator's basket.
type PipelineService interface {
	// RunRequest dispatches one request. Duplicate or concurrent triggers are
	// reported with Debounced set and a nil error.
	RunRequest(ctx context.Context, in RunInput) (*RunResult, error)

	// Preview computes the budget and context size of the next run without calling the model.
	Preview(ctx context.Context, operatorID int64) (*Preview, error)

	// LastRun returns the most recent successful run.
	LastRun(ctx context.Context, operatorID int64) (*domain.LastRun, error)

	// DeleteLastRun clears the last-run record.
	DeleteLastRun(ctx context.Context, operatorID int64) error

	// SaveLastRun stores the last answer as a document in the active collection.
	// Saving twice returns the same document.
	SaveLastRun(ctx context.Context, operatorID int64) (*domain.Document, error)

	// PinLastRun toggles the pin on the saved answer, saving it first if needed.
	PinLastRun(ctx context.Context, operatorID int64) (bool, error)
}
