package markdown

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtensions(t *testing.T) {
	assert.Contains(t, New().Extensions(), ".md")
	assert.Contains(t, New().Extensions(), ".markdown")
}

func TestConvert_TitleExtraction(t *testing.T) {
	tests := []struct {
		name     string
		file     string
		content  string
		expected string
	}{
		{"first H1", "doc.md", "# Hello World\n\nbody", "Hello World"},
		{"H2 is not a title", "release_notes.md", "## Section\n\nbody", "release notes"},
		{"H1 after text", "x.md", "intro\n\n# Later Title", "Later Title"},
		{"heading inside code ignored", "code-sample.md", "```\n# not a title\n```\n", "code sample"},
		{"empty content", "empty.md", "", "empty"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			title, _, err := New().Convert(tt.file, []byte(tt.content))
			require.NoError(t, err)
			assert.Equal(t, tt.expected, title)
		})
	}
}

func TestConvert_Body(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"heading", "## Setup", "Setup"},
		{"link", "see [the guide](https://example.com)", "see the guide"},
		{"image keeps alt", "![diagram](d.png)", "diagram"},
		{"bold and italic", "**bold** and *italic* and _under_", "bold and italic and under"},
		{"snake_case survives", "call run_request now", "call run_request now"},
		{"inline code keeps text", "run `mnemo ask`", "run mnemo ask"},
		{"list markers", "- one\n- two\n- three", "one\ntwo\nthree"},
		{"ordered list after paragraph", "Steps:\n\n1. first\n2. second", "Steps:\n\nfirst\nsecond"},
		{"table", "| a | b |\n|---|---|\n| 1 | 2 |", "a | b\n1 | 2"},
		{"soft break reflows", "one\ntwo", "one two"},
		{"blockquote", "> quoted", "quoted"},
		{"rule", "above\n\n---\n\nbelow", "above\n\nbelow"},
		{"comment", "a<!-- hidden -->b", "ab"},
		{"collapse blank lines", "a\n\n\n\n\nb", "a\n\nb"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, body, err := New().Convert("x.md", []byte(tt.input))
			require.NoError(t, err)
			assert.Equal(t, tt.expected, body)
		})
	}
}

func TestConvert_KeepsFencedCode(t *testing.T) {
	input := "# API\n\nExample:\n\n```go\nfmt.Println(\"hi\")\n```\n"
	title, text, err := New().Convert("api.md", []byte(input))
	require.NoError(t, err)

	assert.Equal(t, "API", title)
	assert.Contains(t, text, `fmt.Println("hi")`)
	assert.NotContains(t, text, "```")
}

func TestConvert_CRLF(t *testing.T) {
	title, text, err := New().Convert("x.md", []byte("# T\r\n\r\n- item\r\n"))
	require.NoError(t, err)
	assert.Equal(t, "T", title)
	assert.Equal(t, "T\n\nitem", text)
}

func BenchmarkConvert(b *testing.B) {
	n := New()
	data := []byte("# Title\n\nSome **bold** text with a [link](http://x).\n\n- a\n- b\n\n```\ncode\n```\n")
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		n.Convert("bench.md", data)
	}
}
