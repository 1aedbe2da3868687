// Package markdown converts Markdown files to plain text on import.
package markdown

import (
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	extast "github.com/yuin/goldmark/extension/ast"
	"github.com/yuin/goldmark/text"

	"github.com/custodia-labs/mnemo/internal/core/ports/driven"
	"github.com/custodia-labs/mnemo/internal/normalisers"
)

// Ensure Normaliser implements the interface.
var _ driven.ImportConverter = (*Normaliser)(nil)

// Normaliser converts Markdown documents by walking the parsed AST.
type Normaliser struct {
	md goldmark.Markdown
}

// New creates a new Markdown normaliser with GitHub Flavored Markdown enabled.
func New() *Normaliser {
	return &Normaliser{md: goldmark.New(goldmark.WithExtensions(extension.GFM))}
}

// Extensions returns the file extensions this normaliser handles.
func (n *Normaliser) Extensions() []string {
	return []string{".md", ".markdown", ".mdown"}
}

// Convert returns the first H1 as title and the text with formatting removed.
// Fenced code is kept without its fences; raw HTML is dropped.
func (n *Normaliser) Convert(name string, data []byte) (title, body string, err error) {
	source := []byte(strings.ReplaceAll(string(data), "\r\n", "\n"))
	doc := n.md.Parser().Parse(text.NewReader(source))

	w := &plainWriter{source: source}
	//nolint:errcheck // walk never returns an error
	ast.Walk(doc, w.walk)

	title = strings.TrimSpace(w.title.String())
	if title == "" {
		title = normalisers.TitleFromFilename(name)
	}
	return title, strings.TrimSpace(w.out.String()), nil
}

// plainWriter collects the text of a Markdown AST.
type plainWriter struct {
	source []byte
	out    strings.Builder
	title  strings.Builder

	inTitle   bool
	haveTitle bool
}

func (w *plainWriter) walk(node ast.Node, entering bool) (ast.WalkStatus, error) {
	switch n := node.(type) {
	case *ast.Heading:
		if entering {
			w.breakLines(2)
			w.inTitle = n.Level == 1 && !w.haveTitle
		} else if w.inTitle {
			w.inTitle = false
			w.haveTitle = true
		}

	case *ast.Paragraph:
		if entering && !firstInItem(n) {
			w.breakLines(2)
		}

	case *ast.List:
		if entering && !firstInItem(n) {
			w.breakLines(2)
		}

	case *ast.ListItem:
		if entering {
			w.breakLines(1)
		}

	case *ast.FencedCodeBlock, *ast.CodeBlock:
		if entering {
			w.breakLines(2)
			lines := node.Lines()
			for i := 0; i < lines.Len(); i++ {
				seg := lines.At(i)
				w.write(string(seg.Value(w.source)))
			}
			return ast.WalkSkipChildren, nil
		}

	case *ast.HTMLBlock, *ast.RawHTML:
		return ast.WalkSkipChildren, nil

	case *ast.Text:
		if entering {
			w.write(string(n.Segment.Value(w.source)))
			switch {
			case n.HardLineBreak():
				w.write("\n")
			case n.SoftLineBreak():
				w.write(" ")
			}
		}

	case *ast.String:
		if entering {
			w.write(string(n.Value))
		}

	case *ast.AutoLink:
		if entering {
			w.write(string(n.Label(w.source)))
		}

	case *extast.Table:
		if entering {
			w.breakLines(2)
		}

	case *extast.TableHeader, *extast.TableRow:
		if entering {
			w.breakLines(1)
		}

	case *extast.TableCell:
		if entering && n.PreviousSibling() != nil {
			w.write(" | ")
		}
	}
	return ast.WalkContinue, nil
}

// write appends s to the body, and to the title while inside the first H1.
func (w *plainWriter) write(s string) {
	w.out.WriteString(s)
	if w.inTitle {
		w.title.WriteString(s)
	}
}

// breakLines ends the body with at least n newlines, unless it is empty.
func (w *plainWriter) breakLines(n int) {
	s := w.out.String()
	if strings.TrimSpace(s) == "" {
		return
	}
	have := len(s) - len(strings.TrimRight(s, "\n"))
	for ; have < n; have++ {
		w.out.WriteByte('\n')
	}
}

// firstInItem reports whether node opens a list item, so the item's own
// line break is enough.
func firstInItem(node ast.Node) bool {
	parent := node.Parent()
	return parent != nil && parent.Kind() == ast.KindListItem && parent.FirstChild() == node
}
