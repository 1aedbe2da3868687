// Package docx converts Word (.docx) files to plain text on import.
package docx

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/custodia-labs/mnemo/internal/core/domain"
	"github.com/custodia-labs/mnemo/internal/core/ports/driven"
	"github.com/custodia-labs/mnemo/internal/normalisers"
)

// Ensure Normaliser implements the interface.
var _ driven.ImportConverter = (*Normaliser)(nil)

const (
	documentPart = "word/document.xml"
	corePart     = "docProps/core.xml"

	// maxPartSize bounds a decompressed XML part.
	maxPartSize = 64 << 20
)

// Normaliser converts DOCX documents.
type Normaliser struct{}

// New creates a new DOCX normaliser.
func New() *Normaliser {
	return &Normaliser{}
}

// Extensions returns the file extensions this normaliser handles.
func (n *Normaliser) Extensions() []string {
	return []string{".docx"}
}

// Convert returns the core-properties title and one line per paragraph,
// including paragraphs inside tables.
func (n *Normaliser) Convert(name string, data []byte) (title, text string, err error) {
	reader, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", "", fmt.Errorf("%s is not a docx archive: %w", name, domain.ErrInvalidInput)
	}

	body, err := readPart(reader, documentPart)
	if err != nil {
		return "", "", fmt.Errorf("reading %s: %w", name, err)
	}
	text, err = paragraphs(body)
	if err != nil {
		return "", "", fmt.Errorf("parsing %s: %w: %v", name, domain.ErrInvalidInput, err)
	}

	title = coreTitle(reader)
	if title == "" {
		title = normalisers.TitleFromFilename(name)
	}
	return title, text, nil
}

func readPart(reader *zip.Reader, part string) ([]byte, error) {
	f, err := reader.Open(part)
	if err != nil {
		return nil, fmt.Errorf("missing %s: %w", part, domain.ErrInvalidInput)
	}
	defer f.Close()
	return io.ReadAll(io.LimitReader(f, maxPartSize))
}

// paragraphs walks the WordprocessingML token stream so text keeps its
// document order across runs, tabs, breaks and table cells.
func paragraphs(content []byte) (string, error) {
	dec := xml.NewDecoder(bytes.NewReader(content))
	var (
		out    []string
		line   strings.Builder
		inText bool
	)
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "t":
				inText = true
			case "tab":
				line.WriteByte('\t')
			case "br", "cr":
				line.WriteByte('\n')
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "t":
				inText = false
			case "p":
				if s := strings.TrimSpace(line.String()); s != "" {
					out = append(out, s)
				}
				line.Reset()
			}
		case xml.CharData:
			if inText {
				line.Write(t)
			}
		}
	}
	return strings.Join(out, "\n"), nil
}

// coreXML is the subset of docProps/core.xml read for the title.
type coreXML struct {
	Title string `xml:"title"`
}

func coreTitle(reader *zip.Reader) string {
	content, err := readPart(reader, corePart)
	if err != nil {
		return ""
	}
	var core coreXML
	if err := xml.Unmarshal(content, &core); err != nil {
		return ""
	}
	return strings.TrimSpace(core.Title)
}
