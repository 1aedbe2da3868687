package cli

import (
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/custodia-labs/mnemo/internal/core/domain"
)

// palette holds the colours used by command output.
var palette = struct {
	Primary, Secondary, Muted, Success, Warning, Error lipgloss.Color
}{
	Primary:   lipgloss.Color("#7C3AED"),
	Secondary: lipgloss.Color("#06B6D4"),
	Muted:     lipgloss.Color("#6C7086"),
	Success:   lipgloss.Color("#A6E3A1"),
	Warning:   lipgloss.Color("#F9E2AF"),
	Error:     lipgloss.Color("#F38BA8"),
}

var (
	titleStyle    = lipgloss.NewStyle().Bold(true).Foreground(palette.Primary)
	headerStyle   = lipgloss.NewStyle().Foreground(palette.Secondary)
	mutedStyle    = lipgloss.NewStyle().Foreground(palette.Muted)
	selectedStyle = lipgloss.NewStyle().Bold(true).Foreground(palette.Success)
	warningStyle  = lipgloss.NewStyle().Foreground(palette.Warning)
	chipStyle     = lipgloss.NewStyle().Foreground(palette.Secondary).PaddingRight(1)
)

// documentLine renders one catalog row: a selection mark, id, title, tags and pin.
func documentLine(d *domain.Document, selected bool) string {
	mark := mutedStyle.Render("[ ]")
	if selected {
		mark = selectedStyle.Render("[x]")
	}
	var b strings.Builder
	b.WriteString(mark)
	b.WriteString(" ")
	b.WriteString(headerStyle.Render("#" + strconv.FormatInt(d.ID, 10)))
	b.WriteString(" ")
	b.WriteString(d.DisplayTitle())
	for _, t := range d.Tags {
		b.WriteString(" ")
		b.WriteString(mutedStyle.Render("#" + t))
	}
	if d.Pinned {
		b.WriteString(" ")
		b.WriteString(warningStyle.Render("(pinned)"))
	}
	return b.String()
}

// chips renders source chips on one line.
func chips(labels []string) string {
	rendered := make([]string, len(labels))
	for i, l := range labels {
		rendered[i] = chipStyle.Render(l)
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, rendered...)
}
