package driven

import (
	"time"

	"github.com/custodia-labs/mnemo/internal/core/domain"
)

// RunObserver receives request pipeline events for metrics.
// This is optional; services skip it when nil.
type RunObserver interface {
	// RunStarted is called once the run guard is held.
	RunStarted()

	// RunDebounced is called when a trigger is dropped as a duplicate.
	RunDebounced(reason string)

	// AttemptFailed is called for every failed model attempt.
	AttemptFailed(reason string, transient bool)

	// RunFinished is called when a dispatched run ends.
	RunFinished(state domain.RunState, elapsed time.Duration, usage domain.Usage)
}
