package cli

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/mnemo/internal/core/domain"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Inspect and keep the last answer",
}

var runShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the last answer",
	Args:  cobra.NoArgs,
	RunE:  runRunShow,
}

var runDeleteCmd = &cobra.Command{
	Use:   "delete",
	Short: "Forget the last answer",
	Args:  cobra.NoArgs,
	RunE:  runRunDelete,
}

var runSaveCmd = &cobra.Command{
	Use:   "save",
	Short: "Store the last answer as a document in the active collection",
	Args:  cobra.NoArgs,
	RunE:  runRunSave,
}

var runPinCmd = &cobra.Command{
	Use:   "pin",
	Short: "Toggle the pin on the saved answer, saving it first if needed",
	Args:  cobra.NoArgs,
	RunE:  runRunPin,
}

func init() {
	runCmd.AddCommand(runShowCmd)
	runCmd.AddCommand(runDeleteCmd)
	runCmd.AddCommand(runSaveCmd)
	runCmd.AddCommand(runPinCmd)
	rootCmd.AddCommand(runCmd)
}

func runRunShow(cmd *cobra.Command, _ []string) error {
	if err := requireServices(); err != nil {
		return err
	}
	last, err := pipelineService.LastRun(cmd.Context(), operatorID)
	if errors.Is(err, domain.ErrNoLastRun) {
		cmd.Println("No answer yet.")
		return nil
	}
	if err != nil {
		return err
	}

	cmd.Println(titleStyle.Render("Q: " + last.Question))
	cmd.Println(last.Text)
	cmd.Println()
	cmd.Println(mutedStyle.Render(usageLine(last.Usage(), last.UsedSourceIDs)))
	flags := "run " + last.RunID
	if last.Saved {
		flags += " • saved"
	}
	if last.Pinned {
		flags += " • pinned"
	}
	cmd.Println(mutedStyle.Render(flags))
	return nil
}

func runRunDelete(cmd *cobra.Command, _ []string) error {
	if err := requireServices(); err != nil {
		return err
	}
	if err := pipelineService.DeleteLastRun(cmd.Context(), operatorID); err != nil {
		return err
	}
	cmd.Println("Last answer deleted.")
	return nil
}

func runRunSave(cmd *cobra.Command, _ []string) error {
	if err := requireServices(); err != nil {
		return err
	}
	doc, err := pipelineService.SaveLastRun(cmd.Context(), operatorID)
	if err != nil {
		return err
	}
	cmd.Printf("Saved as document #%d.\n", doc.ID)
	return nil
}

func runRunPin(cmd *cobra.Command, _ []string) error {
	if err := requireServices(); err != nil {
		return err
	}
	pinned, err := pipelineService.PinLastRun(cmd.Context(), operatorID)
	if err != nil {
		return err
	}
	if pinned {
		cmd.Println("Answer pinned.")
	} else {
		cmd.Println("Answer unpinned.")
	}
	return nil
}
