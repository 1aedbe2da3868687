package services

import (
	"errors"
	"fmt"
	"html"
	"strings"

	"github.com/custodia-labs/mnemo/internal/core/domain"
	"github.com/custodia-labs/mnemo/internal/core/ports/driven"
	"github.com/custodia-labs/mnemo/internal/logger"
)

// DefaultSystemPrompt is sent when no custom system prompt is configured.
const DefaultSystemPrompt = `You are a project knowledge assistant.
Answer using only the SOURCES in the context.
Rules:
- Ground every statement in the sources and cite them as [source_id], e.g. [12].
- If the sources do not contain the answer, say so plainly. Never invent facts, names, numbers or links.
- Keep the answer concise and structured.
- Answer in the language of the question.`

// NoSourcesText replaces the context block when nothing was selected.
const NoSourcesText = "No sources selected."

// chipTitleRunes is the title length shown in source chips.
const chipTitleRunes = 20

// PromptAssembler builds the system, context and user blocks of a run.
type PromptAssembler struct {
	promptStore driven.PromptStore
}

// NewPromptAssembler creates an assembler. promptStore may be nil.
func NewPromptAssembler(promptStore driven.PromptStore) *PromptAssembler {
	return &PromptAssembler{promptStore: promptStore}
}

// SystemPrompt returns the configured system prompt or the default.
func (a *PromptAssembler) SystemPrompt() string {
	if a.promptStore == nil {
		return DefaultSystemPrompt
	}
	text, err := a.promptStore.Load(driven.PromptSystem)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			logger.Warn("prompt: falling back to default system prompt: %v", err)
		}
		return DefaultSystemPrompt
	}
	if strings.TrimSpace(text) == "" {
		return DefaultSystemPrompt
	}
	return text
}

// Build assembles the prompt blocks.
func (a *PromptAssembler) Build(system string, sources []domain.Source, question string) domain.Prompt {
	return domain.Prompt{
		System:  system,
		Context: BuildContext(sources),
		User:    html.EscapeString(question),
	}
}

// BuildContext renders each source header followed by its chunk lines.
// An empty source list renders NoSourcesText.
func BuildContext(sources []domain.Source) string {
	if len(sources) == 0 {
		return NoSourcesText
	}

	var b strings.Builder
	b.WriteString("SOURCES:")
	for i := range sources {
		src := &sources[i]
		fmt.Fprintf(&b, "\n\nSOURCE [%d] - %s", src.ID, src.Title)
		for _, tag := range src.Tags {
			b.WriteString(" #")
			b.WriteString(tag)
		}
		for _, c := range src.Chunks {
			b.WriteString("\n- ")
			b.WriteString(c.Text)
		}
	}
	return b.String()
}

// SourceChips renders "[id] title" labels with titles cut to a short width.
func SourceChips(docs []domain.Document) []string {
	chips := make([]string, 0, len(docs))
	for i := range docs {
		chips = append(chips, fmt.Sprintf("[%d] %s", docs[i].ID, Truncate(docs[i].DisplayTitle(), chipTitleRunes)))
	}
	return chips
}

// Truncate shortens s to n runes, marking the cut with an ellipsis.
func Truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	if n <= 1 {
		return string(r[:n])
	}
	return string(r[:n-1]) + "…"
}
