package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/mnemo/internal/core/domain"
	"github.com/custodia-labs/mnemo/internal/core/ports/driving"
)

var (
	docAddTitle  string
	docAddKind   string
	docAddTags   []string
	docAddFile   string
	docAddParent int64

	docGetChunks bool

	docCleanupCollection int64
	docCleanupAll        bool
)

var docCmd = &cobra.Command{
	Use:     "doc",
	Aliases: []string{"document"},
	Short:   "Manage stored documents",
}

var docAddCmd = &cobra.Command{
	Use:   "add [text]",
	Short: "Store a note or imported text in the active collection",
	Long: `Stores text as a document in the active collection. The text comes from the
arguments, from --file, or from standard input when neither is given.
Markdown, HTML, Word (.docx) and email (.eml) files are converted to plain
text first. Storing identical text twice returns the existing document.`,
	RunE: runDocAdd,
}

var docGetCmd = &cobra.Command{
	Use:   "get [document-id]",
	Short: "Print a document",
	Args:  cobra.ExactArgs(1),
	RunE:  runDocGet,
}

var docTagCmd = &cobra.Command{
	Use:   "tag [document-id] [tag...]",
	Short: "Replace a document's tags",
	Long: `Replaces a document's tags. Tags are lowercased and de-duplicated.
With no tags the document's tags are cleared.

Common tags: ` + strings.Join(domain.DefaultTagPresets(), ", "),
	Args: cobra.MinimumNArgs(1),
	RunE: runDocTag,
}

var docPinCmd = &cobra.Command{
	Use:   "pin [document-id]",
	Short: "Toggle whether a document survives cleanup",
	Args:  cobra.ExactArgs(1),
	RunE:  runDocPin,
}

var docDeleteCmd = &cobra.Command{
	Use:   "delete [document-id]",
	Short: "Delete a document and its chunks",
	Args:  cobra.ExactArgs(1),
	RunE:  runDocDelete,
}

var docCleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Delete the unpinned documents of a collection",
	Args:  cobra.NoArgs,
	RunE:  runDocCleanup,
}

func init() {
	docAddCmd.Flags().StringVarP(&docAddTitle, "title", "t", "", "document title (default: file name or first line)")
	docAddCmd.Flags().StringVar(&docAddKind, "kind", string(domain.KindNote), "note or import")
	docAddCmd.Flags().StringSliceVar(&docAddTags, "tag", nil, "tag to apply (repeatable)")
	docAddCmd.Flags().StringVarP(&docAddFile, "file", "f", "", "read text from this file")
	docAddCmd.Flags().Int64Var(&docAddParent, "parent", 0, "id of the document this one derives from")

	docGetCmd.Flags().BoolVar(&docGetChunks, "chunks", false, "print chunks instead of the full text")

	docCleanupCmd.Flags().Int64Var(&docCleanupCollection, "collection", 0, "collection id (default: active collection)")
	docCleanupCmd.Flags().BoolVar(&docCleanupAll, "all", false, "delete pinned documents too")

	docCmd.AddCommand(docAddCmd)
	docCmd.AddCommand(docGetCmd)
	docCmd.AddCommand(docTagCmd)
	docCmd.AddCommand(docPinCmd)
	docCmd.AddCommand(docDeleteCmd)
	docCmd.AddCommand(docCleanupCmd)
	rootCmd.AddCommand(docCmd)
}

func runDocAdd(cmd *cobra.Command, args []string) error {
	if err := requireServices(); err != nil {
		return err
	}

	in := driving.NewDocument{
		Kind:  domain.DocumentKind(docAddKind),
		Title: docAddTitle,
		Tags:  docAddTags,
	}
	switch {
	case docAddFile != "":
		data, err := os.ReadFile(docAddFile)
		if err != nil {
			return fmt.Errorf("reading %s: %w", docAddFile, err)
		}
		in.Text = string(data)
		in.BlobRef = docAddFile
		if conv, ok := importers.For(docAddFile); ok {
			title, text, err := conv.Convert(docAddFile, data)
			if err != nil {
				return err
			}
			in.Text = text
			if in.Title == "" {
				in.Title = title
			}
		}
		if in.Title == "" {
			in.Title = filepath.Base(docAddFile)
		}
		if !cmd.Flags().Changed("kind") {
			in.Kind = domain.KindImport
		}
	case len(args) > 0:
		in.Text = strings.Join(args, " ")
	default:
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return fmt.Errorf("reading stdin: %w", err)
		}
		in.Text = string(data)
	}
	if in.Title == "" {
		in.Title = firstLine(in.Text, 60)
	}
	if docAddParent > 0 {
		parent := docAddParent
		in.ParentID = &parent
	}

	res, err := documentService.Create(cmd.Context(), operatorID, in)
	if errors.Is(err, domain.ErrNoActiveCollection) {
		return errors.New("no active collection: run 'mnemo collection use <name>' first")
	}
	if err != nil {
		return err
	}
	if res.Existing {
		cmd.Printf("Already stored as document #%d.\n", res.Document.ID)
		return nil
	}
	cmd.Printf("Stored document #%d (%d chunks).\n", res.Document.ID, res.Chunks)
	return nil
}

func runDocGet(cmd *cobra.Command, args []string) error {
	if err := requireServices(); err != nil {
		return err
	}
	id, err := parseID(args[0])
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	doc, err := documentService.Get(ctx, id)
	if err != nil {
		return err
	}

	cmd.Println(documentLine(doc, false))
	cmd.Println(mutedStyle.Render(fmt.Sprintf("%s • collection #%d • %s", doc.Kind, doc.CollectionID, doc.CreatedAt.Format("2006-01-02 15:04"))))
	cmd.Println()
	if !docGetChunks {
		cmd.Println(doc.Text)
		return nil
	}

	chunks, err := documentService.Chunks(ctx, id)
	if err != nil {
		return err
	}
	for _, c := range chunks {
		cmd.Println(headerStyle.Render(fmt.Sprintf("-- chunk %d (%s)", c.Index, budgetService.TokensLabel(c.Tokens))))
		cmd.Println(c.Text)
	}
	return nil
}

func runDocTag(cmd *cobra.Command, args []string) error {
	if err := requireServices(); err != nil {
		return err
	}
	id, err := parseID(args[0])
	if err != nil {
		return err
	}
	tags := domain.NormaliseTags(args[1:])
	if err := documentService.SetTags(cmd.Context(), id, tags); err != nil {
		return err
	}
	if len(tags) == 0 {
		cmd.Printf("Cleared tags of #%d.\n", id)
		return nil
	}
	cmd.Printf("Tagged #%d: %s\n", id, strings.Join(tags, ", "))
	return nil
}

func runDocPin(cmd *cobra.Command, args []string) error {
	if err := requireServices(); err != nil {
		return err
	}
	id, err := parseID(args[0])
	if err != nil {
		return err
	}
	pinned, err := documentService.TogglePin(cmd.Context(), id)
	if err != nil {
		return err
	}
	if pinned {
		cmd.Printf("Pinned #%d.\n", id)
	} else {
		cmd.Printf("Unpinned #%d.\n", id)
	}
	return nil
}

func runDocDelete(cmd *cobra.Command, args []string) error {
	if err := requireServices(); err != nil {
		return err
	}
	id, err := parseID(args[0])
	if err != nil {
		return err
	}
	if err := documentService.Delete(cmd.Context(), id); err != nil {
		return err
	}
	cmd.Printf("Deleted #%d.\n", id)
	return nil
}

func runDocCleanup(cmd *cobra.Command, _ []string) error {
	if err := requireServices(); err != nil {
		return err
	}
	ctx := cmd.Context()
	colID := docCleanupCollection
	if colID == 0 {
		state, err := selectionService.State(ctx, operatorID)
		if err != nil {
			return err
		}
		if state.ActiveCollectionID == nil {
			return errors.New("no active collection: pass --collection")
		}
		colID = *state.ActiveCollectionID
	}

	n, err := documentService.Cleanup(ctx, colID, !docCleanupAll)
	if err != nil {
		return err
	}
	cmd.Printf("Deleted %d documents from collection #%d.\n", n, colID)
	return nil
}

// firstLine returns the first non-blank line of text, cut to n runes.
func firstLine(text string, n int) string {
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		r := []rune(line)
		if len(r) > n {
			return string(r[:n])
		}
		return line
	}
	return ""
}
