package services

import (
	"fmt"

	"github.com/custodia-labs/mnemo/internal/core/domain"
	"github.com/custodia-labs/mnemo/internal/core/ports/driven"
	"github.com/custodia-labs/mnemo/internal/core/ports/driving"
)

// Ensure BudgetCalculator implements the interface.
var _ driving.BudgetService = (*BudgetCalculator)(nil)

// Fallbacks used when no model catalog is wired.
const (
	fallbackContextWindow = 128_000
	fallbackPriceIn       = 0.002
	fallbackPriceOut      = 0.006
)

// MinOverflowBudget is the floor applied when shrinking a budget after the
// provider rejects a prompt as too long.
const MinOverflowBudget = 1000

// BudgetCalculator derives input-token budgets from model limits.
type BudgetCalculator struct {
	catalog driven.ModelCatalog
}

// NewBudgetCalculator creates a budget calculator. catalog may be nil.
func NewBudgetCalculator(catalog driven.ModelCatalog) *BudgetCalculator {
	return &BudgetCalculator{catalog: catalog}
}

// ContextWindow returns the model's context size.
func (b *BudgetCalculator) ContextWindow(model string) int {
	if b.catalog == nil {
		return fallbackContextWindow
	}
	return b.catalog.ContextWindow(model)
}

// Budget returns the context window minus the output reservation, system
// reservation and safety margin, floored at zero. Negative reservations count as zero.
func (b *BudgetCalculator) Budget(model string, maxOutputTokens, systemReserve, safetyMargin int) int {
	remaining := b.ContextWindow(model) - nonNegative(maxOutputTokens) - nonNegative(systemReserve) - nonNegative(safetyMargin)
	return nonNegative(remaining)
}

// BudgetFor returns the budget for model under settings.
func (b *BudgetCalculator) BudgetFor(model string, settings domain.EngineSettings) int {
	return b.Budget(model, settings.LLM.MaxOutputTokens, settings.Budget.SystemReserve, settings.Budget.SafetyMargin)
}

// AllocatePerSource splits total evenly across n sources.
func (b *BudgetCalculator) AllocatePerSource(total, n int) int {
	return AllocatePerSource(total, n)
}

// EstimateCost returns the USD cost of a call.
func (b *BudgetCalculator) EstimateCost(model string, tokensIn, tokensOut int) float64 {
	in, out := fallbackPriceIn, fallbackPriceOut
	if b.catalog != nil {
		in, out = b.catalog.Pricing(model)
	}
	return float64(tokensIn)/1000*in + float64(tokensOut)/1000*out
}

// TokensLabel renders "~N tokens".
func (b *BudgetCalculator) TokensLabel(n int) string {
	return TokensLabel(n)
}

// CostLabel renders "≈$0.0000".
func (b *BudgetCalculator) CostLabel(usd float64) string {
	return CostLabel(usd)
}

// AllocatePerSource returns total/n, or total when n is not positive.
func AllocatePerSource(total, n int) int {
	if n <= 0 {
		return total
	}
	return total / n
}

// ReduceOnOverflow halves a budget, never going below MinOverflowBudget.
func ReduceOnOverflow(budget int) int {
	return max(MinOverflowBudget, budget/2)
}

// TokensLabel renders a token count for display.
func TokensLabel(n int) string {
	return fmt.Sprintf("~%d tokens", n)
}

// CostLabel renders a USD amount for display.
func CostLabel(usd float64) string {
	return fmt.Sprintf("≈$%.4f", usd)
}

// ContextLine renders the one-line run summary shown before sending.
func ContextLine(collection string, scope domain.ScopeMode, model string, budget int, cost float64) string {
	if collection == "" {
		collection = "-"
	}
	return fmt.Sprintf("Project: %s • Scope: %s • Model: %s • Budget: ~%d • ≈ $%.4f",
		collection, scope, model, budget, cost)
}

func nonNegative(n int) int {
	if n < 0 {
		return 0
	}
	return n
}
