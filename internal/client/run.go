package client

import (
	"net/url"
	"strconv"

	"github.com/google/uuid"
)

// NewRunID mints the idempotency token for one user-initiated run. The
// backend keys the triggering work on it, so replaying the same stream open
// never re-triggers the pipeline.
func NewRunID() string {
	return uuid.NewString()
}

// MatchingStreamURL builds the endpoint identity for a matching run. Query
// parameters are encoded in sorted order, so two calls with the same inputs
// produce byte-identical identities.
func (c *HTTPClient) MatchingStreamURL(projectID string, topNRerank int, model, runID string) string {
	q := url.Values{}
	q.Set("project_id", projectID)
	q.Set("top_n_rerank", strconv.Itoa(topNRerank))
	q.Set("model", model)
	q.Set("run_id", runID)
	return c.baseURL + "/api/v1/matching/run/stream?" + q.Encode()
}

// ParseStreamURL builds the endpoint identity for a CV parsing run.
func (c *HTTPClient) ParseStreamURL(projectID, runID string) string {
	q := url.Values{}
	q.Set("project_id", projectID)
	q.Set("run_id", runID)
	return c.baseURL + "/api/v1/cvs/parse/stream?" + q.Encode()
}
