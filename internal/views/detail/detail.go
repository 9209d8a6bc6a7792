// Package detail renders the candidate info flyout overlay.
package detail

import (
	"fmt"
	"strings"

	"github.com/brainrh/tui/internal/client"
	"github.com/brainrh/tui/internal/theme"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
)

const (
	panelWidth = 72
	labelWidth = 12
)

var (
	stylePanel = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(theme.ColorBorder).
			Padding(0, 1)

	styleLabel = lipgloss.NewStyle().
			Foreground(theme.ColorDimmed).
			Width(labelWidth)

	styleValue = lipgloss.NewStyle().
			Foreground(theme.ColorBright)
)

// Model holds the state for the detail overlay.
type Model struct {
	Candidate *client.MatchCandidate
}

// New creates a detail model for the given candidate.
func New(c *client.MatchCandidate) Model {
	return Model{Candidate: c}
}

// View renders the detail panel. Returns an empty string if no candidate is
// set.
func (m Model) View() string {
	if m.Candidate == nil {
		return ""
	}
	return stylePanel.Width(panelWidth).Render(m.renderInner(m.Candidate))
}

func (m Model) renderInner(c *client.MatchCandidate) string {
	var b strings.Builder

	b.WriteString(theme.StyleTitle.Render("Candidate: " + c.NomCandidat))
	b.WriteByte('\n')
	b.WriteString(strings.Repeat("─", panelWidth-4))
	b.WriteByte('\n')

	writeRow(&b, "CV", c.CVID)
	writeRow(&b, "Title", c.TitreCandidat)
	scoreStyle := lipgloss.NewStyle().Foreground(theme.ScoreColor(c.ScoreFinal))
	writeRow(&b, "Score", scoreStyle.Render(fmt.Sprintf("%.1f", c.ScoreFinal)))
	if c.AppreciationGlobale != "" {
		writeRow(&b, "Overall", c.AppreciationGlobale)
	}

	if c.CommentaireScoring != "" {
		b.WriteByte('\n')
		b.WriteString(theme.StyleDimmed.Render("Rationale"))
		b.WriteByte('\n')
		b.WriteString(renderMarkdown(c.CommentaireScoring))
	}

	if len(c.Evidences) > 0 {
		b.WriteByte('\n')
		b.WriteString(theme.StyleDimmed.Render("Evidence"))
		b.WriteByte('\n')
		for _, e := range c.Evidences {
			b.WriteString("  • " + e + "\n")
		}
	}

	b.WriteByte('\n')
	b.WriteString(theme.StyleDimmed.Render("esc: close"))
	return b.String()
}

// renderMarkdown renders the scoring rationale, falling back to the raw text
// if glamour cannot render it.
func renderMarkdown(md string) string {
	out, err := glamour.Render(md, "dark")
	if err != nil {
		return md
	}
	return strings.TrimRight(out, "\n")
}

func writeRow(b *strings.Builder, label, value string) {
	if value == "" {
		return
	}
	b.WriteString(styleLabel.Render(label))
	b.WriteString(styleValue.Render(value))
	b.WriteByte('\n')
}
