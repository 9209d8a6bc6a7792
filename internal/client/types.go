// Package client provides the REST client and stream-endpoint construction
// for the BrainRH backend. Types mirror the backend wire protocol without
// importing backend code.
package client

import "encoding/json"

// Pipeline step names emitted by the backend's progress events.
const (
	StepMustHaveFiltering = "must_have_filtering"
	StepEmbedding         = "embedding"
	StepReranking         = "reranking"
	StepParsing           = "parsing"
)

// MatchingSteps are the phases of a matching run, in pipeline order.
var MatchingSteps = []string{StepMustHaveFiltering, StepEmbedding, StepReranking}

// ParsingSteps are the phases of a CV parsing run.
var ParsingSteps = []string{StepParsing}

// Project is a recruiting project as returned by /api/v1/projects.
type Project struct {
	ID           string `json:"id"`
	Nom          string `json:"nom"`
	EnterpriseID string `json:"enterprise_id,omitempty"`
	Status       string `json:"status"`
	CVCount      int    `json:"cv_count"`
}

// ProjectList is the paginated envelope of the projects endpoint.
type ProjectList struct {
	Projects []Project `json:"projects"`
	Total    int       `json:"total"`
	Skip     int       `json:"skip"`
	Limit    int       `json:"limit"`
}

// MatchCandidate is one row of a matching run's results.
type MatchCandidate struct {
	CVID                string   `json:"cv_id"`
	NomCandidat         string   `json:"nom_candidat"`
	TitreCandidat       string   `json:"titre_candidat,omitempty"`
	ScoreFinal          float64  `json:"score_final"`
	CommentaireScoring  string   `json:"commentaire_scoring,omitempty"`
	AppreciationGlobale string   `json:"appreciation_globale,omitempty"`
	Evidences           []string `json:"evidences,omitempty"`
	OriginalCVURL       string   `json:"original_cv_url,omitempty"`
}

// MatchMetadata summarizes a finished matching run.
type MatchMetadata struct {
	TotalCVs         int     `json:"total_cvs"`
	FilteredMustHave int     `json:"filtered_must_have"`
	TopReranked      int     `json:"top_reranked"`
	DureeTotaleS     float64 `json:"duree_totale_s"`
	Timestamp        string  `json:"timestamp"`
}

// MatchSummary is the payload of a matching run's done event.
type MatchSummary struct {
	Results  []MatchCandidate `json:"results"`
	Metadata MatchMetadata    `json:"metadata"`
}

// ParsedCV is one result event of a CV parsing run.
type ParsedCV struct {
	Filename      string  `json:"filename"`
	NomCandidat   string  `json:"nom_candidat,omitempty"`
	EmailCandidat string  `json:"email_candidat,omitempty"`
	TitreCandidat string  `json:"titre_candidat,omitempty"`
	ScoreFinal    float64 `json:"score_final,omitempty"`
}

// DuplicateCV is the payload of a parsing run's duplicate event.
type DuplicateCV struct {
	Filename string `json:"filename"`
	Existing string `json:"existing,omitempty"`
	Reason   string `json:"reason,omitempty"`
}

// ParseSummary is the payload of a parsing run's done event.
type ParseSummary struct {
	SuccessCount int `json:"success_count"`
	FailedCount  int `json:"failed_count"`
	Total        int `json:"total"`
}

// MatchingRecord is one entry of the matching history endpoint.
type MatchingRecord struct {
	ProjectID string          `json:"project_id"`
	Timestamp string          `json:"timestamp"`
	Summary   json.RawMessage `json:"summary,omitempty"`
}
