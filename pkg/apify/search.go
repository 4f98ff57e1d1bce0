package apify

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/sells-group/leadgen-cli/internal/model"
	"github.com/sells-group/leadgen-cli/internal/resilience"
)

const (
	defaultResultsPerPage = 5
	defaultMaxPages       = 1
	defaultPollInterval   = 5 * time.Second
	defaultMaxPolls       = 24 // 120s ceiling at the default interval
	defaultSubmitTimeout  = 30 * time.Second
	defaultFetchTimeout   = 10 * time.Second
)

// ProgressFunc receives coarse polling progress: the 1-based poll iteration
// and the iteration ceiling.
type ProgressFunc func(iteration, max int)

// SearchOption configures RunSearch.
type SearchOption func(*searchConfig)

type searchConfig struct {
	resultsPerPage int
	maxPages       int
	pollInterval   time.Duration
	maxPolls       int
	submitTimeout  time.Duration
	fetchTimeout   time.Duration
	retry          resilience.RetryConfig
	progress       ProgressFunc
}

func defaultSearchConfig() searchConfig {
	return searchConfig{
		resultsPerPage: defaultResultsPerPage,
		maxPages:       defaultMaxPages,
		pollInterval:   defaultPollInterval,
		maxPolls:       defaultMaxPolls,
		submitTimeout:  defaultSubmitTimeout,
		fetchTimeout:   defaultFetchTimeout,
		retry:          resilience.DefaultRetryConfig(),
	}
}

// WithResultsPerPage sets how many organic results each page returns.
func WithResultsPerPage(n int) SearchOption {
	return func(c *searchConfig) {
		if n > 0 {
			c.resultsPerPage = n
		}
	}
}

// WithMaxPages sets how many result pages the actor scrapes per query.
func WithMaxPages(n int) SearchOption {
	return func(c *searchConfig) {
		if n > 0 {
			c.maxPages = n
		}
	}
}

// WithPollInterval overrides the delay between status polls.
func WithPollInterval(d time.Duration) SearchOption {
	return func(c *searchConfig) {
		c.pollInterval = d
	}
}

// WithMaxPolls overrides the polling iteration ceiling.
func WithMaxPolls(n int) SearchOption {
	return func(c *searchConfig) {
		if n > 0 {
			c.maxPolls = n
		}
	}
}

// WithRetryConfig overrides the per-request retry policy.
func WithRetryConfig(cfg resilience.RetryConfig) SearchOption {
	return func(c *searchConfig) {
		c.retry = cfg
	}
}

// WithRequestTimeouts overrides the per-request timeouts for run submission
// and for status/dataset fetches.
func WithRequestTimeouts(submit, fetch time.Duration) SearchOption {
	return func(c *searchConfig) {
		c.submitTimeout = submit
		c.fetchTimeout = fetch
	}
}

// WithProgress registers a callback reporting polling progress.
func WithProgress(fn ProgressFunc) SearchOption {
	return func(c *searchConfig) {
		c.progress = fn
	}
}

// RunSearch submits a search query to the scraper actor, polls the run to a
// terminal state and returns the flattened organic hits of its dataset.
//
// The run submission and every status/dataset fetch are individually
// retried with exponential backoff. Transport failures while polling are
// swallowed and consume one iteration of the polling budget; only when a
// single iteration of budget remains is the failure surfaced, so a dying
// upstream fails the search instead of silently looping. Terminal failure
// states and protocol violations surface immediately.
func RunSearch(ctx context.Context, client Client, query string, opts ...SearchOption) ([]model.RawHit, error) {
	cfg := defaultSearchConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	if strings.TrimSpace(query) == "" {
		return nil, &ValidationError{Msg: "search query cannot be empty"}
	}

	run, err := submitRun(ctx, client, query, cfg)
	if err != nil {
		return nil, err
	}

	datasetID, err := pollRun(ctx, client, run.ID, cfg)
	if err != nil {
		return nil, err
	}

	return fetchHits(ctx, client, datasetID, cfg)
}

func submitRun(ctx context.Context, client Client, query string, cfg searchConfig) (*Run, error) {
	input := RunInput{
		Queries:          query,
		MaxPagesPerQuery: cfg.maxPages,
		ResultsPerPage:   cfg.resultsPerPage,
		MobileResults:    false,
		LanguageCode:     "en",
		MaxConcurrency:   1,
	}

	retryCfg := cfg.retry
	retryCfg.OnRetry = resilience.RetryLogger("apify", "start run")
	retryCfg.ShouldRetry = isRetryable

	return resilience.DoVal(ctx, retryCfg, func(ctx context.Context) (*Run, error) {
		ctx, cancel := context.WithTimeout(ctx, cfg.submitTimeout)
		defer cancel()
		return client.StartRun(ctx, input)
	})
}

// pollRun drives the run to a terminal state and returns its dataset id.
// The polling budget is an explicit countdown rather than an index
// comparison; each iteration, successful or swallowed, consumes one unit.
func pollRun(ctx context.Context, client Client, runID string, cfg searchConfig) (string, error) {
	retryCfg := cfg.retry
	retryCfg.OnRetry = resilience.RetryLogger("apify", "poll run")
	retryCfg.ShouldRetry = isRetryable

	remaining := cfg.maxPolls
	for remaining > 0 {
		if cfg.progress != nil {
			cfg.progress(cfg.maxPolls-remaining+1, cfg.maxPolls)
		}

		run, err := resilience.DoVal(ctx, retryCfg, func(ctx context.Context) (*Run, error) {
			ctx, cancel := context.WithTimeout(ctx, cfg.fetchTimeout)
			defer cancel()
			return client.GetRun(ctx, runID)
		})

		switch {
		case err != nil:
			// Contract breaks are fatal regardless of remaining budget.
			var protoErr *ProtocolError
			if errors.As(err, &protoErr) {
				return "", err
			}
			// The last unit of budget is reserved for surfacing the
			// error instead of eating it.
			if remaining <= 1 {
				return "", err
			}
			zap.L().Warn("status poll failed, consuming one poll iteration",
				zap.String("run_id", runID),
				zap.Int("remaining", remaining-1),
				zap.Error(err),
			)

		case run.Status == StatusSucceeded:
			if run.DefaultDatasetID == "" {
				return "", &ProtocolError{Reason: "succeeded run is missing its dataset id"}
			}
			return run.DefaultDatasetID, nil

		case run.Status.TerminalFailure():
			return "", &JobError{Status: run.Status}

		default:
			// RUNNING or any unknown status: keep polling.
		}

		remaining--
		if remaining == 0 {
			break
		}

		timer := time.NewTimer(cfg.pollInterval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return "", ctx.Err()
		case <-timer.C:
		}
	}

	return "", &TimeoutError{Polls: cfg.maxPolls}
}

func fetchHits(ctx context.Context, client Client, datasetID string, cfg searchConfig) ([]model.RawHit, error) {
	retryCfg := cfg.retry
	retryCfg.OnRetry = resilience.RetryLogger("apify", "fetch dataset")
	retryCfg.ShouldRetry = isRetryable

	items, err := resilience.DoVal(ctx, retryCfg, func(ctx context.Context) ([]DatasetItem, error) {
		ctx, cancel := context.WithTimeout(ctx, cfg.fetchTimeout)
		defer cancel()
		return client.GetDatasetItems(ctx, datasetID)
	})
	if err != nil {
		return nil, err
	}

	var hits []model.RawHit
	for _, item := range items {
		for _, res := range item.OrganicResults {
			if res.Title == "" || res.URL == "" {
				continue
			}
			hits = append(hits, model.RawHit{
				Title:       res.Title,
				URL:         res.URL,
				Description: res.Description,
			})
		}
	}

	if len(hits) == 0 {
		return nil, &EmptyResultError{}
	}
	return hits, nil
}

// isRetryable declines retries for caller mistakes and upstream contract
// breaks; everything else (transport failures, HTTP errors) gets the full
// attempt budget.
func isRetryable(err error) bool {
	var validationErr *ValidationError
	var protoErr *ProtocolError
	return !errors.As(err, &validationErr) && !errors.As(err, &protoErr)
}
