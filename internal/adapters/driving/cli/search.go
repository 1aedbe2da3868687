package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/mnemo/internal/core/domain"
)

var (
	searchPage     int
	searchPageSize int
	searchJSON     bool
)

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Search documents in visible collections",
	Long: `Lists documents in the active and linked collections, newest first.

The query shape picks the match:
  (empty)   every visible document
  42        the document with id 42
  #api      documents with a tag containing "api"
  anything  documents whose title contains the text`,
	Args: cobra.ArbitraryArgs,
	RunE: runSearch,
}

func init() {
	searchCmd.Flags().IntVarP(&searchPage, "page", "p", 1, "page number")
	searchCmd.Flags().IntVarP(&searchPageSize, "size", "n", domain.DefaultPageSize, "results per page")
	searchCmd.Flags().BoolVar(&searchJSON, "json", false, "output results as JSON")
	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
	if err := requireServices(); err != nil {
		return err
	}
	ctx := cmd.Context()
	query := strings.Join(args, " ")

	page, err := catalogService.Search(ctx, operatorID, query, searchPage, searchPageSize)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}
	state, err := selectionService.State(ctx, operatorID)
	if err != nil {
		return err
	}

	if searchJSON {
		return outputSearchJSON(cmd, page)
	}
	return outputSearchTable(cmd, page, state)
}

func outputSearchJSON(cmd *cobra.Command, page *domain.SearchPage) error {
	data, err := json.MarshalIndent(page, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal results: %w", err)
	}
	cmd.Println(string(data))
	return nil
}

func outputSearchTable(cmd *cobra.Command, page *domain.SearchPage, state *domain.OperatorState) error {
	if page.NoActiveCollection {
		cmd.Println("No active collection. Run 'mnemo collection use <name>' first.")
		return nil
	}
	if len(page.Documents) == 0 {
		cmd.Println("No documents found.")
		return nil
	}

	cmd.Println(titleStyle.Render(fmt.Sprintf("Documents (page %d/%d, %d total)", page.Page, page.Pages(), page.Total)))
	for i := range page.Documents {
		cmd.Println("  " + documentLine(&page.Documents[i], state.InBasket(page.Documents[i].ID)))
	}
	if page.HasNext() {
		cmd.Println(mutedStyle.Render(fmt.Sprintf("  more: --page %d", page.Page+1)))
	}
	return nil
}
