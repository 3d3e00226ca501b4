package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	"github.com/vitruves/dupsense/internal/duplication"
	"github.com/vitruves/dupsense/internal/utils"
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212"))
	labelStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	valueStyle = lipgloss.NewStyle().Bold(true)
	panelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("63")).
			Padding(0, 2)

	riskStyles = map[duplication.RiskLevel]lipgloss.Style{
		duplication.RiskCritical: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("196")),
		duplication.RiskHigh:     lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("208")),
		duplication.RiskMedium:   lipgloss.NewStyle().Foreground(lipgloss.Color("221")),
		duplication.RiskLow:      lipgloss.NewStyle().Foreground(lipgloss.Color("82")),
	}
)

// writeTerminal prints a summary panel followed by the markdown report rendered with glamour.
func writeTerminal(w io.Writer, result *duplication.Result, opts Options) error {
	if _, err := fmt.Fprintln(w, summaryPanel(result)); err != nil {
		return err
	}
	if len(result.Duplications) == 0 {
		_, err := fmt.Fprintln(w, riskStyles[duplication.RiskLow].Render("No duplicates found."))
		return err
	}

	var sb strings.Builder
	writeMarkdown(&sb, result, opts)

	renderer, err := newRenderer(opts)
	if err != nil {
		return fmt.Errorf("error creating terminal renderer: %w", err)
	}
	out, err := renderer.Render(sb.String())
	if err != nil {
		return fmt.Errorf("error rendering report: %w", err)
	}
	_, err = io.WriteString(w, out)
	return err
}

func newRenderer(opts Options) (*glamour.TermRenderer, error) {
	width := opts.Width
	if width <= 0 {
		width = 100
	}
	style := glamour.WithAutoStyle()
	if opts.Style != "" {
		style = glamour.WithStandardStyle(opts.Style)
	}
	return glamour.NewTermRenderer(style, glamour.WithWordWrap(width))
}

func summaryPanel(result *duplication.Result) string {
	s := result.Summary
	row := func(label string, value any) string {
		return labelStyle.Render(fmt.Sprintf("%-14s", label)) + valueStyle.Render(fmt.Sprint(value))
	}

	lines := []string{
		titleStyle.Render("dupsense"),
		"",
		row("Files", s.FilesAnalyzed),
		row("Lines", s.TotalLines),
		row("Exact", s.ExactCount),
		row("Structural", s.StructuralCount),
		row("Cross-file", s.CrossFileCount),
		row("Suggestions", s.SuggestionCount),
		row("Time", utils.FormatDuration(s.Duration)),
	}

	var badges []string
	for _, risk := range riskOrder {
		if n := s.ByRisk[risk.String()]; n > 0 {
			badges = append(badges, riskStyles[risk].Render(fmt.Sprintf("%d %s", n, risk)))
		}
	}
	if len(badges) > 0 {
		lines = append(lines, "", strings.Join(badges, "  "))
	}
	return panelStyle.Render(strings.Join(lines, "\n"))
}
