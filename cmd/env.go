package main

import (
	"context"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/leadgen-cli/internal/analyzer"
	"github.com/sells-group/leadgen-cli/internal/enrich"
	"github.com/sells-group/leadgen-cli/internal/fetcher"
	"github.com/sells-group/leadgen-cli/internal/model"
	"github.com/sells-group/leadgen-cli/internal/pipeline"
	"github.com/sells-group/leadgen-cli/internal/store"
	"github.com/sells-group/leadgen-cli/pkg/apify"
	"github.com/sells-group/leadgen-cli/pkg/claude"
	"github.com/sells-group/leadgen-cli/pkg/openai"
)

// appEnv holds the initialized store, clients, and pipeline shared by the
// search/batch/enrich/serve commands.
type appEnv struct {
	Store    store.Store
	Search   apify.Client
	Analyzer *analyzer.Analyzer
	Pipeline *pipeline.Pipeline
	Enricher *enrich.Enricher
	Loader   *fetcher.Loader
}

// Close releases resources held by the environment.
func (e *appEnv) Close() {
	if e.Store != nil {
		_ = e.Store.Close()
	}
}

// initStore opens the configured store backend and migrates it.
func initStore(ctx context.Context) (store.Store, error) {
	var st store.Store
	var err error

	switch cfg.Store.Driver {
	case "sqlite", "":
		st, err = store.NewSQLite(cfg.Store.Path)
	case "postgres":
		st, err = store.NewPostgres(ctx, cfg.Store.DatabaseURL, &cfg.Store.Pool)
	default:
		return nil, eris.Errorf("unknown store driver %q", cfg.Store.Driver)
	}
	if err != nil {
		return nil, eris.Wrap(err, "open store")
	}

	if err := st.Migrate(ctx); err != nil {
		_ = st.Close()
		return nil, eris.Wrap(err, "migrate store")
	}
	return st, nil
}

// resolveCredentials merges config/env secrets with the stored ones. Config
// wins so a one-off LEADGEN_APIFY_TOKEN can override the saved token.
func resolveCredentials(ctx context.Context, st store.Store) (model.Credentials, error) {
	creds := model.Credentials{
		ApifyToken: cfg.Apify.Token,
		OpenAIKey:  completionKey(),
	}
	if creds.ApifyToken != "" && creds.OpenAIKey != "" {
		return creds, nil
	}

	stored, err := st.GetCredentials(ctx)
	if err != nil {
		return creds, eris.Wrap(err, "load stored credentials")
	}
	if stored != nil {
		if creds.ApifyToken == "" {
			creds.ApifyToken = stored.ApifyToken
		}
		if creds.OpenAIKey == "" {
			creds.OpenAIKey = stored.OpenAIKey
		}
	}

	var missing []string
	if creds.ApifyToken == "" {
		missing = append(missing, "apify token")
	}
	if creds.OpenAIKey == "" {
		missing = append(missing, "completion key")
	}
	if len(missing) > 0 {
		return creds, eris.Errorf("missing credentials: %s (set them via 'leadgen keys set' or the environment)", strings.Join(missing, ", "))
	}
	return creds, nil
}

func completionKey() string {
	if cfg.Batch.Provider == "claude" {
		return cfg.Claude.Key
	}
	return cfg.OpenAI.Key
}

// initEnv sets up the store, API clients, and pipeline. Callers should
// defer env.Close().
func initEnv(ctx context.Context) (*appEnv, error) {
	st, err := initStore(ctx)
	if err != nil {
		return nil, err
	}

	creds, err := resolveCredentials(ctx, st)
	if err != nil {
		_ = st.Close()
		return nil, err
	}

	apifyClient := apify.NewClient(creds.ApifyToken,
		apify.WithBaseURL(cfg.Apify.BaseURL),
		apify.WithActorID(cfg.Apify.ActorID),
	)

	var completion openai.Client
	switch cfg.Batch.Provider {
	case "claude":
		completion = claude.NewClient(creds.OpenAIKey, claude.WithModel(cfg.Claude.Model))
		zap.L().Debug("using claude completion provider", zap.String("model", cfg.Claude.Model))
	default:
		completion = openai.NewClient(creds.OpenAIKey,
			openai.WithBaseURL(cfg.OpenAI.BaseURL),
			openai.WithModel(cfg.OpenAI.Model),
		)
	}

	a := analyzer.New(completion)
	p := pipeline.New(apifyClient, a,
		pipeline.WithStore(st),
		pipeline.WithSearchOptions(
			apify.WithResultsPerPage(cfg.Apify.ResultsPerPage),
			apify.WithMaxPages(cfg.Apify.MaxPages),
		),
	)

	loader := fetcher.NewLoader(
		fetcher.NewHTTPFetcher(fetcher.HTTPOptions{
			UserAgent: cfg.Fetch.UserAgent,
			Timeout:   time.Duration(cfg.Fetch.TimeoutSecs) * time.Second,
		}),
		fetcher.NewFTPFetcher(fetcher.FTPOptions{
			Timeout:  time.Duration(cfg.Fetch.TimeoutSecs) * time.Second,
			User:     cfg.Fetch.FTPUser,
			Password: cfg.Fetch.FTPPassword,
		}),
	)

	return &appEnv{
		Store:    st,
		Search:   apifyClient,
		Analyzer: a,
		Pipeline: p,
		Enricher: enrich.New(completion),
		Loader:   loader,
	}, nil
}
