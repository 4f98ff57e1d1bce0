// Package pipeline composes the web-search scrape and the completion-model
// extraction into one operation, and records each run in the search history.
package pipeline

import (
	"context"
	"sync"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/leadgen-cli/internal/analyzer"
	"github.com/sells-group/leadgen-cli/internal/model"
	"github.com/sells-group/leadgen-cli/internal/store"
	"github.com/sells-group/leadgen-cli/pkg/apify"
)

// Pipeline runs search-then-extract for one query at a time.
type Pipeline struct {
	search     apify.Client
	analyzer   *analyzer.Analyzer
	store      store.Store
	searchOpts []apify.SearchOption
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithStore enables history and result persistence. Without it runs are
// ephemeral.
func WithStore(st store.Store) Option {
	return func(p *Pipeline) {
		p.store = st
	}
}

// WithSearchOptions forwards options to every search run.
func WithSearchOptions(opts ...apify.SearchOption) Option {
	return func(p *Pipeline) {
		p.searchOpts = append(p.searchOpts, opts...)
	}
}

// New creates a Pipeline over the given scrape and completion clients.
func New(searchClient apify.Client, a *analyzer.Analyzer, opts ...Option) *Pipeline {
	p := &Pipeline{
		search:   searchClient,
		analyzer: a,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// RunResult is the outcome of a single query run.
type RunResult struct {
	SearchID string                 `json:"search_id,omitempty"`
	Query    string                 `json:"query"`
	Hits     int                    `json:"hits"`
	Records  []model.BusinessRecord `json:"records"`
}

// Run searches the query, extracts business records from the hits, and
// records the run in history. Search and extraction errors surface
// unchanged; a history write failure only logs, the results are already in
// hand.
func (p *Pipeline) Run(ctx context.Context, query string) (*RunResult, error) {
	return p.run(ctx, query, model.SearchModeDirect, "")
}

func (p *Pipeline) run(ctx context.Context, query string, mode model.SearchMode, fileName string) (*RunResult, error) {
	log := zap.L().With(zap.String("query", query))
	log.Info("pipeline: starting search")

	hits, err := apify.RunSearch(ctx, p.search, query, p.searchOpts...)
	if err != nil {
		return nil, err
	}
	log.Info("pipeline: search complete", zap.Int("hits", len(hits)))

	records, err := p.analyzer.Analyze(ctx, query, hits)
	if err != nil {
		return nil, err
	}
	log.Info("pipeline: extraction complete", zap.Int("records", len(records)))

	result := &RunResult{
		Query:   query,
		Hits:    len(hits),
		Records: records,
	}

	if p.store != nil {
		saved, histErr := p.store.SaveSearch(ctx, model.SearchRecord{
			Query:        query,
			Mode:         mode,
			FileName:     fileName,
			ResultsCount: len(records),
		})
		if histErr != nil {
			log.Warn("pipeline: failed to record history", zap.Error(histErr))
			return result, nil
		}
		result.SearchID = saved.ID

		if saveErr := p.store.SaveResults(ctx, saved.ID, records); saveErr != nil {
			log.Warn("pipeline: failed to save results", zap.Error(saveErr))
		}
	}
	return result, nil
}

// BatchResult is the outcome of a file-driven batch run.
type BatchResult struct {
	FileName  string                 `json:"file_name"`
	Processed int                    `json:"processed"`
	Failed    int                    `json:"failed"`
	Records   []model.BusinessRecord `json:"records"`
}

// RunBatch runs every query with at most concurrency in flight. A failed
// query is counted and logged but does not stop the batch. Record order
// follows query order regardless of completion order.
func (p *Pipeline) RunBatch(ctx context.Context, fileName string, queries []string, concurrency int) (*BatchResult, error) {
	if len(queries) == 0 {
		return nil, eris.New("pipeline: no queries to run")
	}
	if concurrency < 1 {
		concurrency = 1
	}

	perQuery := make([][]model.BusinessRecord, len(queries))
	var mu sync.Mutex
	failed := 0

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	for i, query := range queries {
		g.Go(func() error {
			res, err := p.run(gCtx, query, model.SearchModeFile, fileName)
			if err != nil {
				zap.L().Warn("pipeline: batch query failed",
					zap.String("query", query),
					zap.Error(err),
				)
				mu.Lock()
				failed++
				mu.Unlock()
				return nil
			}
			perQuery[i] = res.Records
			return nil
		})
	}
	// Workers never return errors; Wait only reflects context cancellation.
	if err := g.Wait(); err != nil {
		return nil, eris.Wrap(err, "pipeline: batch")
	}
	if ctx.Err() != nil {
		return nil, eris.Wrap(ctx.Err(), "pipeline: batch")
	}

	result := &BatchResult{
		FileName:  fileName,
		Processed: len(queries) - failed,
		Failed:    failed,
	}
	for _, recs := range perQuery {
		result.Records = append(result.Records, recs...)
	}

	zap.L().Info("pipeline: batch complete",
		zap.String("file", fileName),
		zap.Int("processed", result.Processed),
		zap.Int("failed", result.Failed),
		zap.Int("records", len(result.Records)),
	)
	return result, nil
}
