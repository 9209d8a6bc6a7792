// Package run renders the live progress of a pipeline run: one animated bar
// per step plus the step's latest status message.
package run

import (
	"fmt"
	"strings"

	"github.com/brainrh/tui/internal/progress"
	"github.com/brainrh/tui/internal/theme"
	bar "github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/harmonica"
	"github.com/charmbracelet/lipgloss"
)

const (
	labelWidth  = 18
	minBarWidth = 10

	// Spring tuning for bar animation.
	fps       = 20
	frequency = 6.0
	damping   = 0.9
)

// anim is the spring state of one bar.
type anim struct {
	pos, vel, target float64
}

// Model holds the run view state.
type Model struct {
	Width int

	bar    bar.Model
	spring harmonica.Spring
	steps  []progress.Step
	anims  map[string]*anim
}

// New creates a run view.
func New() Model {
	return Model{
		bar:    bar.New(bar.WithDefaultGradient(), bar.WithoutPercentage()),
		spring: harmonica.NewSpring(harmonica.FPS(fps), frequency, damping),
		anims:  make(map[string]*anim),
	}
}

// FPS is the animation tick rate the app should drive Animate at.
func FPS() int { return fps }

// SetSteps replaces the displayed steps, retargeting each bar's spring.
// Bars animate toward the new fractions; they never jump.
func (m *Model) SetSteps(steps []progress.Step) {
	m.steps = steps
	for _, s := range steps {
		a, ok := m.anims[s.Name]
		if !ok {
			a = &anim{}
			m.anims[s.Name] = a
		}
		a.target = s.Fraction
	}
}

// Animate advances every spring one frame. It reports whether all bars have
// settled on their targets, letting the app stop ticking.
func (m *Model) Animate() (settled bool) {
	settled = true
	for _, a := range m.anims {
		a.pos, a.vel = m.spring.Update(a.pos, a.vel, a.target)
		if a.pos < 0 {
			a.pos = 0
		}
		if diff := a.target - a.pos; diff > 0.001 || diff < -0.001 || a.vel > 0.001 || a.vel < -0.001 {
			settled = false
		}
	}
	return settled
}

// View renders one line per step.
func (m Model) View() string {
	width := m.Width
	if width < 50 {
		width = 50
	}

	var b strings.Builder
	for i, s := range m.steps {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(m.renderStep(s, width))
	}
	return b.String()
}

func (m Model) renderStep(s progress.Step, width int) string {
	label := theme.StepLabel(s.Name)
	if len(label) > labelWidth {
		label = label[:labelWidth-1] + "…"
	}

	shown := s.Fraction
	if a, ok := m.anims[s.Name]; ok {
		shown = a.pos
	}
	pct := fmt.Sprintf("%3d%%", int(shown*100+0.5))

	mark := " "
	if s.Done {
		mark = lipgloss.NewStyle().Foreground(theme.ColorSucceeded).Render("✓")
	}

	// Layout: mark(1) + space + label + space + [bar] + space + pct(4) + space + message
	msg := theme.StyleDimmed.Render(s.Message)
	barWidth := width/2 - labelWidth - 10
	if barWidth < minBarWidth {
		barWidth = minBarWidth
	}
	pb := m.bar
	pb.Width = barWidth

	labelStyle := lipgloss.NewStyle().Foreground(theme.StepColor(s.Name)).Width(labelWidth)

	var b strings.Builder
	b.WriteString(mark)
	b.WriteByte(' ')
	b.WriteString(labelStyle.Render(label))
	b.WriteByte(' ')
	b.WriteString(pb.ViewAs(shown))
	b.WriteByte(' ')
	b.WriteString(pct)
	b.WriteByte(' ')
	b.WriteString(msg)
	return b.String()
}
