package results

import (
	"strings"
	"testing"

	"github.com/brainrh/tui/internal/client"
)

func TestSetCandidates(t *testing.T) {
	m := New()
	m.SetCandidates([]client.MatchCandidate{
		{CVID: "cv1", NomCandidat: "Ada Lovelace", TitreCandidat: "Backend Engineer", ScoreFinal: 87.5},
		{CVID: "cv2", NomCandidat: "Alan Turing", TitreCandidat: "Data Scientist", ScoreFinal: 74.2},
	})

	if m.Len() != 2 {
		t.Fatalf("Len = %d, want 2", m.Len())
	}
	out := m.View()
	for _, want := range []string{"Ada Lovelace", "Alan Turing", "87.5"} {
		if !strings.Contains(out, want) {
			t.Errorf("view missing %q", want)
		}
	}

	sel := m.Selected()
	if sel == nil || sel.CVID != "cv1" {
		t.Errorf("Selected = %+v, want first candidate", sel)
	}
}

func TestSetParsedClearsCandidateSelection(t *testing.T) {
	m := New()
	m.SetCandidates([]client.MatchCandidate{{CVID: "cv1", NomCandidat: "Ada"}})
	m.SetParsed([]client.ParsedCV{
		{Filename: "ada.pdf", NomCandidat: "Ada Lovelace", EmailCandidat: "ada@example.com"},
	})

	if m.Len() != 1 {
		t.Fatalf("Len = %d, want 1", m.Len())
	}
	if sel := m.Selected(); sel != nil {
		t.Errorf("Selected = %+v, want nil for parse results", sel)
	}
	if !strings.Contains(m.View(), "ada.pdf") {
		t.Error("view missing parsed filename")
	}
}

func TestSelectedOnEmptyTable(t *testing.T) {
	m := New()
	if sel := m.Selected(); sel != nil {
		t.Errorf("Selected on empty table = %+v, want nil", sel)
	}
}
