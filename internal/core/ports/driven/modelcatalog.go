package driven

// ModelCatalog answers per-model limits and prices.
// Unknown models resolve to a conservative default entry.
type ModelCatalog interface {
	// ContextWindow returns the model's context size in tokens.
	ContextWindow(model string) int

	// Pricing returns USD per 1k input and output tokens.
	Pricing(model string) (in, out float64)
}
