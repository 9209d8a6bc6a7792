// Package progress folds typed stream events into a resumable run state:
// per-step completion, streamed partial results, and a terminal outcome.
// It knows nothing about which pipeline produced the events.
package progress

import (
	"encoding/json"
	"log"
	"sync"

	"github.com/brainrh/tui/internal/stream"
)

// Outcome is the terminal state of a run.
type Outcome int

const (
	OutcomeNone Outcome = iota
	OutcomeSucceeded
	OutcomeFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSucceeded:
		return "succeeded"
	case OutcomeFailed:
		return "failed"
	default:
		return "running"
	}
}

// Step is one named phase of a run.
type Step struct {
	Name     string
	Fraction float64 // 0..1
	Message  string
	Done     bool
}

// Failure is the structured payload of an application error event.
type Failure struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// State is a point-in-time copy of a run's progress.
type State struct {
	Steps      []Step
	Outcome    Outcome
	Summary    json.RawMessage
	Failure    *Failure
	Results    []json.RawMessage
	Duplicates []json.RawMessage
}

type progressPayload struct {
	Step     string  `json:"step"`
	Current  int     `json:"current"`
	Total    int     `json:"total"`
	Progress float64 `json:"progress"`
	Message  string  `json:"message"`
}

type donePayload struct {
	Summary json.RawMessage `json:"summary"`
}

const placeholderMessage = "waiting"

// Aggregator consumes stream events and maintains the derived run state. It
// is safe to feed from a stream goroutine while the UI reads State.
type Aggregator struct {
	mu         sync.Mutex
	names      []string
	steps      []Step
	index      map[string]int
	outcome    Outcome
	summary    json.RawMessage
	failure    *Failure
	results    []json.RawMessage
	duplicates []json.RawMessage
}

// New creates an aggregator for a run with the given ordered phases, all at
// zero with a placeholder message.
func New(stepNames ...string) *Aggregator {
	a := &Aggregator{names: stepNames}
	a.reset()
	return a
}

// Reset reinitializes the aggregator for a new run. Previous results are
// discarded; callers persist them first if they care.
func (a *Aggregator) Reset() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.reset()
}

func (a *Aggregator) reset() {
	a.steps = make([]Step, len(a.names))
	a.index = make(map[string]int, len(a.names))
	for i, name := range a.names {
		a.steps[i] = Step{Name: name, Message: placeholderMessage}
		a.index[name] = i
	}
	a.outcome = OutcomeNone
	a.summary = nil
	a.failure = nil
	a.results = nil
	a.duplicates = nil
}

// Apply folds one event into the state. Once the outcome is terminal, every
// further event is ignored until Reset.
func (a *Aggregator) Apply(ev stream.Event) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.outcome != OutcomeNone {
		return
	}

	switch ev.Topic {
	case stream.TopicProgress:
		var p progressPayload
		if err := json.Unmarshal(ev.Data, &p); err != nil {
			log.Printf("progress: dropping undecodable progress event: %v", err)
			return
		}
		i, ok := a.index[p.Step]
		if !ok {
			// Server-added phase this client does not know about.
			return
		}
		a.steps[i].Fraction = clamp01(p.Progress)
		a.steps[i].Message = p.Message
		a.steps[i].Done = a.steps[i].Fraction >= 1.0

	case stream.TopicResult:
		a.results = append(a.results, cloneRaw(ev.Data))

	case stream.TopicDuplicate:
		a.duplicates = append(a.duplicates, cloneRaw(ev.Data))

	case stream.TopicDone:
		var d donePayload
		if err := json.Unmarshal(ev.Data, &d); err != nil {
			log.Printf("progress: dropping undecodable done event: %v", err)
			return
		}
		a.outcome = OutcomeSucceeded
		a.summary = cloneRaw(d.Summary)
		// A touched step that never reported 1.0 still finished; a step
		// never started was legitimately skipped and stays at zero.
		for i := range a.steps {
			if a.steps[i].Fraction > 0 {
				a.steps[i].Fraction = 1.0
				a.steps[i].Done = true
			}
		}

	case stream.TopicError:
		f := &Failure{Code: "CONNECTION_LOST", Message: "connection lost"}
		if ev.Err == nil && len(ev.Data) > 0 {
			var decoded Failure
			if err := json.Unmarshal(ev.Data, &decoded); err != nil {
				log.Printf("progress: undecodable error event: %v", err)
			} else {
				f = &decoded
			}
		}
		a.outcome = OutcomeFailed
		a.failure = f
	}
}

// State returns a copy of the current run state.
func (a *Aggregator) State() State {
	a.mu.Lock()
	defer a.mu.Unlock()
	st := State{
		Steps:      make([]Step, len(a.steps)),
		Outcome:    a.outcome,
		Summary:    cloneRaw(a.summary),
		Results:    make([]json.RawMessage, len(a.results)),
		Duplicates: make([]json.RawMessage, len(a.duplicates)),
	}
	copy(st.Steps, a.steps)
	copy(st.Results, a.results)
	copy(st.Duplicates, a.duplicates)
	if a.failure != nil {
		f := *a.failure
		st.Failure = &f
	}
	return st
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func cloneRaw(raw json.RawMessage) json.RawMessage {
	if raw == nil {
		return nil
	}
	out := make(json.RawMessage, len(raw))
	copy(out, raw)
	return out
}
