// Package eml converts RFC 822 email files to plain text on import.
package eml

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"mime/quotedprintable"
	"net/mail"
	"strings"

	"github.com/custodia-labs/mnemo/internal/core/domain"
	"github.com/custodia-labs/mnemo/internal/core/ports/driven"
	"github.com/custodia-labs/mnemo/internal/normalisers"
	"github.com/custodia-labs/mnemo/internal/normalisers/html"
)

// Ensure Normaliser implements the interface.
var _ driven.ImportConverter = (*Normaliser)(nil)

// maxDepth bounds nested multipart parsing.
const maxDepth = 8

// Normaliser converts EML documents.
type Normaliser struct {
	html *html.Normaliser
}

// New creates a new EML normaliser.
func New() *Normaliser {
	return &Normaliser{html: html.New()}
}

// Extensions returns the file extensions this normaliser handles.
func (n *Normaliser) Extensions() []string {
	return []string{".eml"}
}

// Convert returns the subject as title and a text made of the From, To,
// Date and Subject headers followed by the body. Plain-text parts are
// preferred over HTML parts.
func (n *Normaliser) Convert(name string, data []byte) (title, text string, err error) {
	msg, err := mail.ReadMessage(bytes.NewReader(data))
	if err != nil {
		return "", "", fmt.Errorf("%s is not an email message: %w", name, domain.ErrInvalidInput)
	}

	subject := decodeHeader(msg.Header.Get("Subject"))
	body, err := n.body(msg.Header.Get("Content-Type"), msg.Header.Get("Content-Transfer-Encoding"), msg.Body, 0)
	if err != nil {
		return "", "", fmt.Errorf("reading %s: %w", name, err)
	}

	var b strings.Builder
	for _, h := range []string{"From", "To", "Date", "Subject"} {
		if v := decodeHeader(msg.Header.Get(h)); v != "" {
			fmt.Fprintf(&b, "%s: %s\n", h, v)
		}
	}
	b.WriteString("\n")
	b.WriteString(body)

	title = subject
	if title == "" {
		title = normalisers.TitleFromFilename(name)
	}
	return title, strings.TrimSpace(b.String()), nil
}

// body extracts the text of one entity, recursing into multipart content.
func (n *Normaliser) body(contentType, encoding string, r io.Reader, depth int) (string, error) {
	if contentType == "" {
		contentType = "text/plain"
	}
	mediaType, params, err := mime.ParseMediaType(contentType)
	if err != nil {
		mediaType = "text/plain"
	}

	if strings.HasPrefix(mediaType, "multipart/") {
		if depth >= maxDepth {
			return "", nil
		}
		return n.multipart(r, params["boundary"], depth+1)
	}

	content, err := io.ReadAll(decodeTransfer(r, encoding))
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
	}
	switch mediaType {
	case "text/html":
		_, text, err := n.html.Convert("", content)
		return text, err
	case "text/plain":
		return strings.TrimSpace(string(content)), nil
	}
	return "", nil
}

func (n *Normaliser) multipart(r io.Reader, boundary string, depth int) (string, error) {
	if boundary == "" {
		return "", nil
	}
	mr := multipart.NewReader(r, boundary)
	var plain, rich []string
	for {
		part, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			// Keep what was read before a malformed part.
			break
		}
		if strings.HasPrefix(part.Header.Get("Content-Disposition"), "attachment") {
			continue
		}

		ct := part.Header.Get("Content-Type")
		text, err := n.body(ct, part.Header.Get("Content-Transfer-Encoding"), part, depth)
		if err != nil || text == "" {
			continue
		}
		if strings.HasPrefix(strings.ToLower(ct), "text/html") {
			rich = append(rich, text)
		} else {
			plain = append(plain, text)
		}
	}
	if len(plain) > 0 {
		return strings.Join(plain, "\n"), nil
	}
	return strings.Join(rich, "\n"), nil
}

func decodeTransfer(r io.Reader, encoding string) io.Reader {
	switch strings.ToLower(strings.TrimSpace(encoding)) {
	case "quoted-printable":
		return quotedprintable.NewReader(r)
	case "base64":
		return base64.NewDecoder(base64.StdEncoding, r)
	}
	return r
}

// decodeHeader decodes RFC 2047 encoded words, returning the raw value
// when decoding fails.
func decodeHeader(header string) string {
	if header == "" {
		return ""
	}
	dec := new(mime.WordDecoder)
	decoded, err := dec.DecodeHeader(header)
	if err != nil {
		return header
	}
	return decoded
}
