package apify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const (
	// Default base URL for the Apify v2 API.
	defaultBaseURL = "https://api.apify.com/v2"

	// Google Search scraper actor.
	defaultActorID = "apify~google-search-scraper"
)

// Client defines the Apify actor-run operations used by the search pipeline.
type Client interface {
	StartRun(ctx context.Context, input RunInput) (*Run, error)
	GetRun(ctx context.Context, runID string) (*Run, error)
	GetDatasetItems(ctx context.Context, datasetID string) ([]DatasetItem, error)
}

// RunInput is the actor input for POST /acts/{actor}/runs.
type RunInput struct {
	Queries          string `json:"queries"`
	MaxPagesPerQuery int    `json:"maxPagesPerQuery"`
	ResultsPerPage   int    `json:"resultsPerPage"`
	MobileResults    bool   `json:"mobileResults"`
	LanguageCode     string `json:"languageCode"`
	MaxConcurrency   int    `json:"maxConcurrency"`
	SaveHTML         bool   `json:"saveHtml"`
	SaveScreenshots  bool   `json:"saveScreenshots"`
}

// RunStatus is the lifecycle state of an actor run. A run transitions from
// RUNNING to exactly one terminal status and never changes afterwards.
type RunStatus string

const (
	StatusRunning   RunStatus = "RUNNING"
	StatusSucceeded RunStatus = "SUCCEEDED"
	StatusFailed    RunStatus = "FAILED"
	StatusAborted   RunStatus = "ABORTED"
	StatusTimedOut  RunStatus = "TIMED-OUT"
)

// TerminalFailure reports whether the status is a terminal failure state.
func (s RunStatus) TerminalFailure() bool {
	switch s {
	case StatusFailed, StatusAborted, StatusTimedOut:
		return true
	default:
		return false
	}
}

// Run is one actor run: its id, current status and, once succeeded, the
// dataset holding its output.
type Run struct {
	ID               string    `json:"id"`
	Status           RunStatus `json:"status"`
	DefaultDatasetID string    `json:"defaultDatasetId"`
}

// runEnvelope is the wire shape of run responses: the run sits under "data".
type runEnvelope struct {
	Data *Run `json:"data"`
}

// DatasetItem is one item of a search dataset. The scraper nests the actual
// results under organicResults.
type DatasetItem struct {
	OrganicResults []OrganicResult `json:"organicResults"`
}

// OrganicResult is one organic search result inside a dataset item.
type OrganicResult struct {
	Title       string `json:"title"`
	URL         string `json:"url"`
	Description string `json:"description"`
}

// Option configures the httpClient.
type Option func(*httpClient)

// WithBaseURL overrides the default API base URL.
func WithBaseURL(url string) Option {
	return func(c *httpClient) {
		c.baseURL = url
	}
}

// WithActorID overrides the default search actor.
func WithActorID(id string) Option {
	return func(c *httpClient) {
		c.actorID = id
	}
}

// WithHTTPClient sets a custom *http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

// httpClient implements Client using net/http.
type httpClient struct {
	apiToken string
	baseURL  string
	actorID  string
	http     *http.Client
}

// NewClient creates a new Apify client authenticated with the given token.
func NewClient(apiToken string, opts ...Option) Client {
	c := &httpClient{
		apiToken: apiToken,
		baseURL:  defaultBaseURL,
		actorID:  defaultActorID,
		http: &http.Client{
			Timeout: 60 * time.Second,
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 20,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *httpClient) StartRun(ctx context.Context, input RunInput) (*Run, error) {
	var resp runEnvelope
	path := fmt.Sprintf("/acts/%s/runs", c.actorID)
	if err := c.post(ctx, path, input, &resp); err != nil {
		return nil, err
	}
	if resp.Data == nil || resp.Data.ID == "" {
		return nil, &ProtocolError{Reason: "run response is missing the run id"}
	}
	return resp.Data, nil
}

func (c *httpClient) GetRun(ctx context.Context, runID string) (*Run, error) {
	var resp runEnvelope
	path := fmt.Sprintf("/acts/%s/runs/%s", c.actorID, runID)
	if err := c.get(ctx, path, &resp); err != nil {
		return nil, err
	}
	if resp.Data == nil {
		return nil, &ProtocolError{Reason: "run status response is missing the run payload"}
	}
	return resp.Data, nil
}

func (c *httpClient) GetDatasetItems(ctx context.Context, datasetID string) ([]DatasetItem, error) {
	req, err := c.newRequest(ctx, http.MethodGet, fmt.Sprintf("/datasets/%s/items", datasetID), nil)
	if err != nil {
		return nil, err
	}

	data, err := c.do(req)
	if err != nil {
		return nil, err
	}

	// The dataset endpoint returns a bare JSON array; anything else is an
	// upstream contract break.
	var items []DatasetItem
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, &ProtocolError{Reason: "dataset response is not a JSON array"}
	}
	return items, nil
}

func (c *httpClient) post(ctx context.Context, path string, body any, out any) error {
	buf, err := json.Marshal(body)
	if err != nil {
		return &RequestError{Err: err}
	}

	req, err := c.newRequest(ctx, http.MethodPost, path, bytes.NewReader(buf))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	data, err := c.do(req)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, out); err != nil {
		return &ProtocolError{Reason: "response is not valid JSON"}
	}
	return nil
}

func (c *httpClient) get(ctx context.Context, path string, out any) error {
	req, err := c.newRequest(ctx, http.MethodGet, path, nil)
	if err != nil {
		return err
	}

	data, err := c.do(req)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, out); err != nil {
		return &ProtocolError{Reason: "response is not valid JSON"}
	}
	return nil
}

func (c *httpClient) newRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	if c.apiToken == "" {
		return nil, &ValidationError{Msg: "Apify API token is required"}
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, &RequestError{Err: err}
	}
	req.Header.Set("Authorization", "Bearer "+c.apiToken)
	return req, nil
}

func (c *httpClient) do(req *http.Request) ([]byte, error) {
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &TransportError{Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &TransportError{Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &APIError{StatusCode: resp.StatusCode, Body: string(data)}
	}
	return data, nil
}
