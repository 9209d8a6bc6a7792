// Package app wires the stream binding, progress aggregation, and views into
// the root Bubble Tea model.
package app

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/brainrh/tui/internal/client"
	"github.com/brainrh/tui/internal/config"
	"github.com/brainrh/tui/internal/progress"
	"github.com/brainrh/tui/internal/stream"
	"github.com/brainrh/tui/internal/theme"
	"github.com/brainrh/tui/internal/views/detail"
	"github.com/brainrh/tui/internal/views/results"
	"github.com/brainrh/tui/internal/views/run"
	"github.com/brainrh/tui/internal/views/status"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// runKind identifies which pipeline the current run drives.
type runKind int

const (
	runNone runKind = iota
	runMatching
	runParsing
)

// --- Bubble Tea messages ---

// streamMsg delivers one stream event into the update loop.
type streamMsg struct{ ev stream.Event }

// projectsMsg delivers the project list.
type projectsMsg []client.Project

// projectsErrMsg reports a failed project fetch.
type projectsErrMsg struct{ err error }

// animTickMsg drives the progress bar springs.
type animTickMsg time.Time

// Model is the root Bubble Tea model.
type Model struct {
	cfg      *config.Config
	http     *client.HTTPClient
	registry *stream.Registry
	binding  *stream.Binding
	events   chan stream.Event

	keys   KeyMap
	width  int
	height int

	// Project selection.
	projects []client.Project
	selected int
	loadErr  string

	// Current run.
	kind      runKind
	agg       *progress.Aggregator
	connected bool
	ticking   bool

	// Sub-views.
	runView     run.Model
	resultsView results.Model
	statusBar   status.Model
	detailView  detail.Model
	detailOpen  bool
}

// New creates the root model. The binding lives for the whole program; runs
// rebind it to new endpoint identities.
func New(cfg *config.Config, httpClient *client.HTTPClient, registry *stream.Registry) Model {
	events := make(chan stream.Event, 256)

	binding := stream.NewBinding(registry, stream.BindingOptions{
		Topics: []string{
			stream.TopicMessage,
			stream.TopicProgress,
			stream.TopicResult,
			stream.TopicDuplicate,
			stream.TopicDone,
		},
		CloseOn:     []string{stream.TopicDone, stream.TopicError},
		ForceSingle: cfg.UI.ForceSingle,
	})
	binding.SetCallbacks(stream.Callbacks{
		OnEvent: func(ev stream.Event) { events <- ev },
		OnOpen:  func() { events <- stream.Event{Topic: stream.TopicOpen} },
		OnError: func(ev stream.Event) { events <- ev },
	})

	return Model{
		cfg:         cfg,
		http:        httpClient,
		registry:    registry,
		binding:     binding,
		events:      events,
		keys:        DefaultKeyMap(),
		runView:     run.New(),
		resultsView: results.New(),
		statusBar:   status.New(),
	}
}

// Init loads the project list and arms the stream event pump.
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.loadProjects(), m.waitEvent())
}

// waitEvent blocks until the binding delivers the next stream event.
func (m Model) waitEvent() tea.Cmd {
	return func() tea.Msg {
		return streamMsg{ev: <-m.events}
	}
}

func (m Model) loadProjects() tea.Cmd {
	c := m.http
	return func() tea.Msg {
		projects, err := c.ListProjects()
		if err != nil {
			return projectsErrMsg{err: err}
		}
		return projectsMsg(projects)
	}
}

func (m Model) animTick() tea.Cmd {
	return tea.Tick(time.Second/time.Duration(run.FPS()), func(t time.Time) tea.Msg {
		return animTickMsg(t)
	})
}

// Update handles messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.statusBar.Width = msg.Width
		m.runView.Width = msg.Width
		m.resultsView.SetHeight(msg.Height - 12)
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case projectsMsg:
		m.projects = msg
		m.loadErr = ""
		if m.selected >= len(m.projects) {
			m.selected = 0
		}
		return m, nil

	case projectsErrMsg:
		m.loadErr = msg.err.Error()
		return m, nil

	case streamMsg:
		return m.handleStream(msg.ev)

	case animTickMsg:
		settled := m.runView.Animate()
		if m.kind != runNone && !settled {
			return m, m.animTick()
		}
		m.ticking = false
		return m, nil
	}

	return m, nil
}

func (m Model) handleStream(ev stream.Event) (tea.Model, tea.Cmd) {
	switch {
	case ev.Topic == stream.TopicOpen:
		m.connected = true
	case ev.Err != nil:
		m.connected = false
		if m.agg != nil {
			m.agg.Apply(ev)
		}
	default:
		if m.agg != nil {
			m.agg.Apply(ev)
		}
	}
	m.syncRun()

	cmds := []tea.Cmd{m.waitEvent()}
	if !m.ticking && m.kind != runNone {
		m.ticking = true
		cmds = append(cmds, m.animTick())
	}
	return m, tea.Batch(cmds...)
}

// syncRun refreshes the views from the aggregator state.
func (m *Model) syncRun() {
	if m.agg == nil {
		return
	}
	st := m.agg.State()

	m.runView.SetSteps(st.Steps)
	m.statusBar.Results = len(st.Results)
	m.statusBar.Duplicates = len(st.Duplicates)
	m.statusBar.RunActive = m.kind != runNone && st.Outcome == progress.OutcomeNone

	switch st.Outcome {
	case progress.OutcomeSucceeded:
		m.statusBar.Outcome = "succeeded"
		m.connected = false
	case progress.OutcomeFailed:
		m.statusBar.Outcome = "failed"
		if st.Failure != nil {
			m.statusBar.FailureMsg = st.Failure.Message
		}
		m.connected = false
	default:
		m.statusBar.Outcome = ""
		m.statusBar.FailureMsg = ""
	}
	m.statusBar.Connected = m.connected

	switch m.kind {
	case runMatching:
		if st.Outcome == progress.OutcomeSucceeded && st.Summary != nil {
			var sum client.MatchSummary
			if err := json.Unmarshal(st.Summary, &sum); err == nil {
				m.resultsView.SetCandidates(sum.Results)
			}
		}
	case runParsing:
		cvs := make([]client.ParsedCV, 0, len(st.Results))
		for _, raw := range st.Results {
			var cv client.ParsedCV
			if err := json.Unmarshal(raw, &cv); err == nil {
				cvs = append(cvs, cv)
			}
		}
		m.resultsView.SetParsed(cvs)
	}
}

// startRun mints a run id, rebinds the stream, and resets the aggregator.
func (m *Model) startRun(kind runKind) {
	if len(m.projects) == 0 {
		return
	}
	proj := m.projects[m.selected]
	runID := client.NewRunID()

	var identity string
	var steps []string
	switch kind {
	case runMatching:
		identity = m.http.MatchingStreamURL(proj.ID, m.cfg.Run.TopNRerank, m.cfg.Run.Model, runID)
		steps = client.MatchingSteps
	case runParsing:
		identity = m.http.ParseStreamURL(proj.ID, runID)
		steps = client.ParsingSteps
	default:
		return
	}

	m.kind = kind
	m.agg = progress.New(steps...)
	m.runView = run.New()
	m.runView.Width = m.width
	m.resultsView = results.New()
	m.resultsView.SetHeight(m.height - 12)
	m.connected = false
	m.detailOpen = false
	m.syncRun()
	m.binding.Bind(identity)
}

// stopRun unbinds the stream, leaving the last aggregated state on screen.
func (m *Model) stopRun() {
	m.binding.Bind("")
	m.connected = false
	m.statusBar.Connected = false
	m.statusBar.RunActive = false
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.detailOpen {
		if key.Matches(msg, m.keys.Escape) || key.Matches(msg, m.keys.Quit) {
			m.detailOpen = false
		}
		return m, nil
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		m.stopRun()
		m.registry.CloseAll()
		return m, tea.Quit

	case key.Matches(msg, m.keys.Escape):
		if m.kind != runNone {
			m.stopRun()
			m.kind = runNone
			m.agg = nil
		}
		return m, nil

	case key.Matches(msg, m.keys.Stop):
		m.stopRun()
		return m, nil

	case key.Matches(msg, m.keys.Refresh):
		if m.kind == runNone {
			return m, m.loadProjects()
		}
		return m, nil

	case key.Matches(msg, m.keys.Match):
		if m.kind == runNone {
			m.startRun(runMatching)
		}
		return m, nil

	case key.Matches(msg, m.keys.Parse):
		if m.kind == runNone {
			m.startRun(runParsing)
		}
		return m, nil

	case key.Matches(msg, m.keys.Enter):
		if m.kind != runNone {
			if c := m.resultsView.Selected(); c != nil {
				m.detailView = detail.New(c)
				m.detailOpen = true
			}
		}
		return m, nil

	case key.Matches(msg, m.keys.Up):
		if m.kind == runNone {
			if len(m.projects) > 0 {
				m.selected = (m.selected - 1 + len(m.projects)) % len(m.projects)
			}
			return m, nil
		}

	case key.Matches(msg, m.keys.Down):
		if m.kind == runNone {
			if len(m.projects) > 0 {
				m.selected = (m.selected + 1) % len(m.projects)
			}
			return m, nil
		}
	}

	// Anything else (including up/down during a run) drives the results table.
	if m.kind != runNone {
		var cmd tea.Cmd
		m.resultsView, cmd = m.resultsView.Update(msg)
		return m, cmd
	}
	return m, nil
}

// View renders the whole screen.
func (m Model) View() string {
	var b strings.Builder

	b.WriteString(theme.StyleTitle.Render("BrainRH"))
	b.WriteString(theme.StyleDimmed.Render("  recruiting runs"))
	b.WriteString("\n\n")

	switch {
	case m.detailOpen:
		b.WriteString(m.detailView.View())
	case m.kind == runNone:
		b.WriteString(m.viewProjects())
	default:
		b.WriteString(m.runView.View())
		b.WriteString("\n\n")
		b.WriteString(m.resultsView.View())
	}

	b.WriteString("\n")
	b.WriteString(m.statusBar.View())
	b.WriteString("\n")
	b.WriteString(m.helpLine())
	return b.String()
}

func (m Model) viewProjects() string {
	if m.loadErr != "" {
		return theme.StyleError.Render("cannot reach backend: " + m.loadErr)
	}
	if len(m.projects) == 0 {
		return theme.StyleDimmed.Render("no projects")
	}

	var b strings.Builder
	for i, p := range m.projects {
		if i == m.selected {
			b.WriteString(lipgloss.NewStyle().Foreground(theme.ColorBright).Bold(true).Render("> "))
		} else {
			b.WriteString("  ")
		}
		b.WriteString(theme.StyleDimmed.Render(fmt.Sprintf("%2d", i+1)))
		b.WriteString("│ ")
		b.WriteString(theme.StyleBright.Render(p.Nom))
		b.WriteString(theme.StyleDimmed.Render(fmt.Sprintf("  %d CVs  %s", p.CVCount, p.Status)))
		b.WriteByte('\n')
	}
	return b.String()
}

func (m Model) helpLine() string {
	var help string
	switch {
	case m.detailOpen:
		help = "esc close"
	case m.kind == runNone:
		help = "j/k select  m match  p parse CVs  r refresh  q quit"
	default:
		help = "j/k rows  enter detail  s stop  esc back  q quit"
	}
	return theme.StyleDimmed.Render(help)
}
