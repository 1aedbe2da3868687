package html

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	xhtml "golang.org/x/net/html"

	"github.com/custodia-labs/mnemo/internal/core/domain"
	"github.com/custodia-labs/mnemo/internal/core/ports/driven"
	"github.com/custodia-labs/mnemo/internal/normalisers"
)

// Ensure Normaliser implements the interface.
var _ driven.ImportConverter = (*Normaliser)(nil)

// Normaliser converts HTML documents.
type Normaliser struct{}

// New creates a new HTML normaliser.
func New() *Normaliser {
	return &Normaliser{}
}

// Extensions returns the file extensions this normaliser handles.
func (n *Normaliser) Extensions() []string {
	return []string{".html", ".htm", ".xhtml"}
}

// dropped lists elements whose content is never text.
const dropped = "head, script, style, noscript, template, svg, iframe, object"

// blockTags end a line before and after their content.
var blockTags = map[string]bool{
	"p": true, "div": true, "section": true, "article": true, "main": true,
	"header": true, "footer": true, "aside": true, "nav": true,
	"h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
	"ul": true, "ol": true, "li": true, "dl": true, "dt": true, "dd": true,
	"table": true, "tr": true, "blockquote": true, "pre": true, "hr": true,
	"figure": true, "figcaption": true, "form": true, "fieldset": true,
}

// Convert returns the <title> (or first <h1>) and the readable text.
func (n *Normaliser) Convert(name string, data []byte) (title, text string, err error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(data))
	if err != nil {
		return "", "", fmt.Errorf("parsing %s: %w: %v", name, domain.ErrInvalidInput, err)
	}

	title = collapse(doc.Find("title").First().Text())
	if title == "" {
		title = collapse(doc.Find("h1").First().Text())
	}
	if title == "" {
		title = normalisers.TitleFromFilename(name)
	}

	doc.Find(dropped).Remove()

	var b strings.Builder
	for _, node := range doc.Selection.Nodes {
		writeText(&b, node)
	}
	return title, tidy(b.String()), nil
}

// writeText appends the text under node, breaking lines at block elements.
func writeText(b *strings.Builder, node *xhtml.Node) {
	switch node.Type {
	case xhtml.TextNode:
		b.WriteString(node.Data)
		return
	case xhtml.CommentNode:
		return
	case xhtml.ElementNode:
		switch node.Data {
		case "br":
			b.WriteByte('\n')
			return
		case "td", "th":
			if node.PrevSibling != nil {
				b.WriteString(" ")
			}
		}
	}

	block := node.Type == xhtml.ElementNode && blockTags[node.Data]
	if block {
		b.WriteByte('\n')
	}
	for c := node.FirstChild; c != nil; c = c.NextSibling {
		writeText(b, c)
	}
	if block {
		b.WriteByte('\n')
	}
}

// tidy collapses runs of spaces and drops empty lines.
func tidy(s string) string {
	lines := strings.Split(s, "\n")
	out := lines[:0]
	for _, line := range lines {
		if line = collapse(line); line != "" {
			out = append(out, line)
		}
	}
	return strings.Join(out, "\n")
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
