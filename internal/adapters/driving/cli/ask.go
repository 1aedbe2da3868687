package cli

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/mnemo/internal/core/domain"
	"github.com/custodia-labs/mnemo/internal/core/ports/driving"
)

var askTrigger string

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Answer a question from the sources in the basket",
	Long: `Sends the question to the configured model with the basket's documents as
context, fitted to the model's token budget. Only transient failures such as
timeouts and rate limits are retried.

A run already in flight for the operator, or a repeated --trigger id, is
reported as debounced and not sent again.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAsk,
}

func init() {
	askCmd.Flags().StringVar(&askTrigger, "trigger", "", "client event id used to drop duplicate sends")
	rootCmd.AddCommand(askCmd)
}

func runAsk(cmd *cobra.Command, args []string) error {
	if err := requireServices(); err != nil {
		return err
	}

	res, err := pipelineService.RunRequest(cmd.Context(), driving.RunInput{
		OperatorID: operatorID,
		Question:   strings.Join(args, " "),
		TriggerID:  askTrigger,
	})
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrEmptySelection):
			return errors.New("no sources selected: add some with 'mnemo basket toggle <id>'")
		case errors.Is(err, domain.ErrModelUnavailable):
			return fmt.Errorf("%w: configure one with 'mnemo settings llm'", err)
		}
		return err
	}
	if res.Debounced {
		cmd.Println(mutedStyle.Render("A request is already in progress; this one was dropped."))
		return nil
	}

	cmd.Println(res.Text)
	cmd.Println()
	cmd.Println(mutedStyle.Render(usageLine(res.Usage, res.UsedSourceIDs)))
	return nil
}

// usageLine renders the footer shown under an answer.
func usageLine(u domain.Usage, sources []int64) string {
	return fmt.Sprintf("%s • in %d / out %d tokens • %s • %s • %d sources",
		u.Model, u.TokensIn, u.TokensOut,
		budgetService.CostLabel(u.CostUSD),
		u.Duration.Round(10*time.Millisecond), len(sources))
}
