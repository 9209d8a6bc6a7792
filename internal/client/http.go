package client

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// HTTPClient makes REST calls to the BrainRH backend.
type HTTPClient struct {
	baseURL string
	token   string
	client  *http.Client
}

// NewHTTPClient creates a client targeting the given base URL
// (e.g. "http://127.0.0.1:8000").
func NewHTTPClient(baseURL, token string, timeout time.Duration) *HTTPClient {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &HTTPClient{
		baseURL: baseURL,
		token:   token,
		client:  &http.Client{Timeout: timeout},
	}
}

// BaseURL returns the configured backend base URL.
func (c *HTTPClient) BaseURL() string { return c.baseURL }

// ListProjects fetches /api/v1/projects.
func (c *HTTPClient) ListProjects() ([]Project, error) {
	var out ProjectList
	if err := c.get("/api/v1/projects", &out); err != nil {
		return nil, err
	}
	return out.Projects, nil
}

// GetProject fetches /api/v1/projects/{id}.
func (c *HTTPClient) GetProject(id string) (*Project, error) {
	var p Project
	if err := c.get("/api/v1/projects/"+id, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// GetMatchingHistory fetches /api/v1/projects/{id}/history.
func (c *HTTPClient) GetMatchingHistory(projectID string) ([]MatchingRecord, error) {
	var out []MatchingRecord
	if err := c.get("/api/v1/projects/"+projectID+"/history", &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *HTTPClient) get(path string, out interface{}) error {
	req, err := http.NewRequest(http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	c.setAuth(req)
	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("GET %s: %d %s", path, resp.StatusCode, string(body))
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func (c *HTTPClient) setAuth(req *http.Request) {
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
}
