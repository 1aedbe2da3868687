package driving

// BudgetService exposes token budget arithmetic and display labels.
type BudgetService interface {
	// Budget returns the input tokens available for context for model.
	Budget(model string, maxOutputTokens, systemReserve, safetyMargin int) int

	// AllocatePerSource splits total evenly across n sources.
	AllocatePerSource(total, n int) int

	// EstimateCost returns the USD cost of a call.
	EstimateCost(model string, tokensIn, tokensOut int) float64

	// TokensLabel renders "~N tokens".
	TokensLabel(n int) string

	// CostLabel renders "≈$0.0000".
	CostLabel(usd float64) string
}
