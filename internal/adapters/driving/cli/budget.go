package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/mnemo/internal/core/domain"
	"github.com/custodia-labs/mnemo/internal/core/services"
)

var budgetCmd = &cobra.Command{
	Use:   "budget",
	Short: "Show the token budget and context size of the next question",
	Args:  cobra.NoArgs,
	RunE:  runBudget,
}

var modelCmd = &cobra.Command{
	Use:   "model [name]",
	Short: "Set the model used for this operator's questions",
	Long:  `Sets the model for this operator. With no name the configured model is used again.`,
	Args:  cobra.MaximumNArgs(1),
	RunE:  runModel,
}

func init() {
	rootCmd.AddCommand(budgetCmd)
	rootCmd.AddCommand(modelCmd)
}

func runBudget(cmd *cobra.Command, _ []string) error {
	if err := requireServices(); err != nil {
		return err
	}
	p, err := pipelineService.Preview(cmd.Context(), operatorID)
	if err != nil {
		return err
	}

	cmd.Println(titleStyle.Render(p.Line))
	cmd.Printf("  Sources: %d\n", len(p.SourceIDs))
	if len(p.SourceIDs) > 0 {
		docs := make([]domain.Document, 0, len(p.SourceIDs))
		for _, id := range p.SourceIDs {
			d, err := documentService.Get(cmd.Context(), id)
			if errors.Is(err, domain.ErrNotFound) {
				continue
			}
			if err != nil {
				return err
			}
			docs = append(docs, *d)
		}
		cmd.Println("  " + chips(services.SourceChips(docs)))
	}
	cmd.Printf("  Context: %s of %s\n", budgetService.TokensLabel(p.ContextTokens), budgetService.TokensLabel(p.Budget))
	cmd.Printf("  Estimated cost: %s\n", budgetService.CostLabel(p.EstimatedCost))
	if p.ContextTokens > p.Budget {
		cmd.Println(warningStyle.Render(fmt.Sprintf("  Sources will be trimmed to %s each.",
			budgetService.TokensLabel(budgetService.AllocatePerSource(p.Budget, len(p.SourceIDs))))))
	}
	return nil
}

func runModel(cmd *cobra.Command, args []string) error {
	if err := requireServices(); err != nil {
		return err
	}
	name := ""
	if len(args) == 1 {
		name = args[0]
	}
	if err := selectionService.SetModel(cmd.Context(), operatorID, name); err != nil {
		return err
	}
	if name == "" {
		cmd.Println("Using the configured model.")
		return nil
	}
	cmd.Printf("Model: %s\n", name)
	return nil
}
