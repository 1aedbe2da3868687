package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/mnemo/internal/core/domain"
)

var collectionCmd = &cobra.Command{
	Use:     "collection",
	Aliases: []string{"project"},
	Short:   "Choose which collections are visible",
}

var collectionUseCmd = &cobra.Command{
	Use:   "use [name]",
	Short: "Make a collection active, creating it if needed",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runCollectionUse,
}

var collectionLinkCmd = &cobra.Command{
	Use:   "link [collection-id]",
	Short: "Link or unlink a collection so its documents are visible too",
	Args:  cobra.ExactArgs(1),
	RunE:  runCollectionLink,
}

var collectionScopeCmd = &cobra.Command{
	Use:   "scope [active|linked|all|none]",
	Short: "Set the visibility scope, or advance to the next one",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runCollectionScope,
}

var collectionListCmd = &cobra.Command{
	Use:   "list",
	Short: "List collections",
	Args:  cobra.NoArgs,
	RunE:  runCollectionList,
}

func init() {
	collectionCmd.AddCommand(collectionUseCmd)
	collectionCmd.AddCommand(collectionLinkCmd)
	collectionCmd.AddCommand(collectionScopeCmd)
	collectionCmd.AddCommand(collectionListCmd)
	rootCmd.AddCommand(collectionCmd)
}

func runCollectionUse(cmd *cobra.Command, args []string) error {
	if err := requireServices(); err != nil {
		return err
	}
	col, err := selectionService.UseCollection(cmd.Context(), operatorID, strings.Join(args, " "))
	if err != nil {
		return err
	}
	cmd.Printf("Active collection: %s (#%d)\n", col.Name, col.ID)
	return nil
}

func runCollectionLink(cmd *cobra.Command, args []string) error {
	if err := requireServices(); err != nil {
		return err
	}
	id, err := parseID(args[0])
	if err != nil {
		return err
	}
	linked, err := selectionService.ToggleLink(cmd.Context(), operatorID, id)
	if err != nil {
		return err
	}
	if linked {
		cmd.Printf("Linked collection #%d.\n", id)
	} else {
		cmd.Printf("Unlinked collection #%d.\n", id)
	}
	return nil
}

func runCollectionScope(cmd *cobra.Command, args []string) error {
	if err := requireServices(); err != nil {
		return err
	}
	ctx := cmd.Context()
	if len(args) == 0 {
		mode, err := selectionService.CycleScope(ctx, operatorID)
		if err != nil {
			return err
		}
		cmd.Printf("Scope: %s\n", mode)
		return nil
	}

	mode := domain.ScopeMode(strings.ToLower(args[0]))
	if !mode.IsValid() {
		return fmt.Errorf("unknown scope %q: use active, linked, all or none", args[0])
	}
	if err := selectionService.SetScope(ctx, operatorID, mode); err != nil {
		return err
	}
	cmd.Printf("Scope: %s\n", mode)
	return nil
}

func runCollectionList(cmd *cobra.Command, _ []string) error {
	if err := requireServices(); err != nil {
		return err
	}
	ctx := cmd.Context()
	cols, err := documentService.ListCollections(ctx)
	if err != nil {
		return err
	}
	state, err := selectionService.State(ctx, operatorID)
	if err != nil {
		return err
	}
	if len(cols) == 0 {
		cmd.Println("No collections yet. Create one with 'mnemo collection use <name>'.")
		return nil
	}

	cmd.Println(titleStyle.Render("Collections"))
	for _, c := range cols {
		n, err := documentService.CountDocuments(ctx, c.ID)
		if err != nil {
			return err
		}
		marker := "  "
		switch {
		case state.ActiveCollectionID != nil && *state.ActiveCollectionID == c.ID:
			marker = selectedStyle.Render("* ")
		case state.IsLinked(c.ID):
			marker = headerStyle.Render("+ ")
		}
		cmd.Printf("%s#%d %s %s\n", marker, c.ID, c.Name, mutedStyle.Render(fmt.Sprintf("(%d documents)", n)))
	}
	cmd.Println(mutedStyle.Render("* active  + linked  scope: " + state.Scope.String()))
	return nil
}
