// Package status renders the bottom status bar.
package status

import (
	"fmt"

	"github.com/brainrh/tui/internal/theme"
	"github.com/charmbracelet/lipgloss"
)

// Model holds the status bar state.
type Model struct {
	Width int

	Connected  bool
	RunActive  bool
	Outcome    string // "", "succeeded", "failed"
	FailureMsg string
	Results    int
	Duplicates int
}

// New creates a status bar model.
func New() Model {
	return Model{}
}

// View renders the status bar.
func (m Model) View() string {
	width := m.Width
	if width < 40 {
		width = 40
	}

	var connStr string
	switch {
	case m.Connected:
		connStr = lipgloss.NewStyle().Foreground(theme.ColorHealthy).Render("● Streaming")
	case m.RunActive:
		connStr = lipgloss.NewStyle().Foreground(theme.ColorWarning).Render("◌ Connecting...")
	default:
		connStr = theme.StyleDimmed.Render("○ Idle")
	}

	sep := lipgloss.NewStyle().Foreground(theme.ColorBorder).Render(" | ")
	content := connStr

	switch m.Outcome {
	case "succeeded":
		content += sep + lipgloss.NewStyle().Foreground(theme.ColorSucceeded).Render("✓ done")
	case "failed":
		msg := m.FailureMsg
		if msg == "" {
			msg = "failed"
		}
		content += sep + theme.StyleError.Render("✗ "+msg)
	}

	if m.Results > 0 || m.Duplicates > 0 {
		counts := fmt.Sprintf("%d results", m.Results)
		if m.Duplicates > 0 {
			counts += fmt.Sprintf("  %d duplicates", m.Duplicates)
		}
		content += sep + counts
	}

	return lipgloss.NewStyle().
		Width(width).
		Padding(0, 1).
		BorderStyle(lipgloss.DoubleBorder()).
		BorderForeground(theme.ColorBorder).
		Render(content)
}
