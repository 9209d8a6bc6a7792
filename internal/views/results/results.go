// Package results renders the streamed rows of a run: ranked candidates for
// matching, parsed files for CV parsing.
package results

import (
	"fmt"

	"github.com/brainrh/tui/internal/client"
	"github.com/brainrh/tui/internal/theme"
	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// Model wraps the results table.
type Model struct {
	tbl        table.Model
	candidates []client.MatchCandidate
}

// New creates an empty, focused results table.
func New() Model {
	tbl := table.New(
		table.WithColumns(candidateColumns()),
		table.WithHeight(10),
		table.WithFocused(true),
	)
	st := table.DefaultStyles()
	st.Header = st.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(theme.ColorBorder).
		BorderBottom(true).
		Bold(true)
	st.Selected = st.Selected.
		Foreground(theme.ColorBright).
		Bold(true)
	tbl.SetStyles(st)
	return Model{tbl: tbl}
}

func candidateColumns() []table.Column {
	return []table.Column{
		{Title: "#", Width: 3},
		{Title: "Candidate", Width: 24},
		{Title: "Title", Width: 28},
		{Title: "Score", Width: 6},
	}
}

func parsedColumns() []table.Column {
	return []table.Column{
		{Title: "#", Width: 3},
		{Title: "File", Width: 30},
		{Title: "Candidate", Width: 24},
		{Title: "Email", Width: 26},
	}
}

// SetCandidates shows ranked matching results.
func (m *Model) SetCandidates(cs []client.MatchCandidate) {
	m.candidates = cs
	rows := make([]table.Row, len(cs))
	for i, c := range cs {
		rows[i] = table.Row{
			fmt.Sprintf("%d", i+1),
			c.NomCandidat,
			c.TitreCandidat,
			fmt.Sprintf("%.1f", c.ScoreFinal),
		}
	}
	m.tbl.SetColumns(candidateColumns())
	m.tbl.SetRows(rows)
}

// SetParsed shows the files parsed so far.
func (m *Model) SetParsed(cvs []client.ParsedCV) {
	m.candidates = nil
	rows := make([]table.Row, len(cvs))
	for i, cv := range cvs {
		rows[i] = table.Row{
			fmt.Sprintf("%d", i+1),
			cv.Filename,
			cv.NomCandidat,
			cv.EmailCandidat,
		}
	}
	m.tbl.SetColumns(parsedColumns())
	m.tbl.SetRows(rows)
}

// Selected returns the candidate under the cursor, or nil when the table
// shows parse results or is empty.
func (m Model) Selected() *client.MatchCandidate {
	i := m.tbl.Cursor()
	if i < 0 || i >= len(m.candidates) {
		return nil
	}
	c := m.candidates[i]
	return &c
}

// Len returns the number of rows shown.
func (m Model) Len() int { return len(m.tbl.Rows()) }

// SetHeight resizes the visible table area.
func (m *Model) SetHeight(h int) {
	if h < 3 {
		h = 3
	}
	m.tbl.SetHeight(h)
}

// Update forwards navigation keys to the table.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	var cmd tea.Cmd
	m.tbl, cmd = m.tbl.Update(msg)
	return m, cmd
}

// View renders the table.
func (m Model) View() string {
	return m.tbl.View()
}
