// Package theme provides the Lip Gloss color palette and reusable styles
// for the BrainRH TUI. It is a leaf package with no internal imports to
// avoid import cycles.
package theme

import "github.com/charmbracelet/lipgloss"

// Pipeline step colors.
var (
	ColorStepFiltering = lipgloss.Color("#d97706")
	ColorStepEmbedding = lipgloss.Color("#3b82f6")
	ColorStepReranking = lipgloss.Color("#a855f7")
	ColorStepParsing   = lipgloss.Color("#06b6d4")
	ColorStepDefault   = lipgloss.Color("#9ca3af")
)

// Run outcome colors.
var (
	ColorRunning   = lipgloss.Color("#2563eb")
	ColorSucceeded = lipgloss.Color("#16a34a")
	ColorFailed    = lipgloss.Color("#dc2626")
)

// Score thresholds.
var (
	ColorScoreHigh = lipgloss.Color("#22c55e") // >=75
	ColorScoreMid  = lipgloss.Color("#d97706") // 50-75
	ColorScoreLow  = lipgloss.Color("#dc2626") // <50
)

// UI chrome colors.
var (
	ColorBorder  = lipgloss.Color("#4b5563")
	ColorDimmed  = lipgloss.Color("#6b7280")
	ColorBright  = lipgloss.Color("#f9fafb")
	ColorHealthy = lipgloss.Color("#22c55e")
	ColorWarning = lipgloss.Color("#d97706")
	ColorDanger  = lipgloss.Color("#dc2626")
)

// Shared styles.
var (
	StyleDimmed = lipgloss.NewStyle().Foreground(ColorDimmed)
	StyleBright = lipgloss.NewStyle().Foreground(ColorBright)
	StyleTitle  = lipgloss.NewStyle().Bold(true).Foreground(ColorBright)
	StyleError  = lipgloss.NewStyle().Foreground(ColorDanger)
)

// StepColor returns the color for a pipeline step name.
func StepColor(step string) lipgloss.Color {
	switch step {
	case "must_have_filtering":
		return ColorStepFiltering
	case "embedding":
		return ColorStepEmbedding
	case "reranking":
		return ColorStepReranking
	case "parsing":
		return ColorStepParsing
	default:
		return ColorStepDefault
	}
}

// ScoreColor returns the color for a 0-100 candidate score.
func ScoreColor(score float64) lipgloss.Color {
	switch {
	case score >= 75:
		return ColorScoreHigh
	case score >= 50:
		return ColorScoreMid
	default:
		return ColorScoreLow
	}
}

// StepLabel returns the human label for a pipeline step name.
func StepLabel(step string) string {
	switch step {
	case "must_have_filtering":
		return "Must-have filter"
	case "embedding":
		return "Embedding"
	case "reranking":
		return "Reranking"
	case "parsing":
		return "CV parsing"
	default:
		return step
	}
}
