package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/leadgen-cli/internal/enrich"
	"github.com/sells-group/leadgen-cli/internal/model"
	"github.com/sells-group/leadgen-cli/internal/pipeline"
	"github.com/sells-group/leadgen-cli/internal/store"
	"github.com/sells-group/leadgen-cli/pkg/apify"
)

var servePort int

// searchRunner is the part of the pipeline the HTTP API uses.
type searchRunner interface {
	Run(ctx context.Context, query string) (*pipeline.RunResult, error)
}

// companyEnricher is the part of the enricher the HTTP API uses.
type companyEnricher interface {
	EnrichCompany(ctx context.Context, name, description, location, activity string) (*model.EnrichmentProfile, error)
}

// serverDeps carries the handlers' collaborators so tests can swap in fakes.
type serverDeps struct {
	pipeline searchRunner
	enricher companyEnricher
	store    store.Store
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{
			Addr: fmt.Sprintf(":%d", port),
			Handler: newRouter(serverDeps{
				pipeline: env.Pipeline,
				enricher: env.Enricher,
				store:    env.Store,
			}),
			ReadHeaderTimeout: 10 * time.Second,
		}

		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()

		zap.L().Info("starting server", zap.Int("port", port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return eris.Wrap(err, "server listen")
		}
		return nil
	},
}

func newRouter(deps serverDeps) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
	}))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api", func(r chi.Router) {
		r.Post("/search", handleSearch(deps))
		r.Post("/enrich", handleEnrich(deps))
		r.Get("/history", handleHistoryList(deps))
		r.Delete("/history", handleHistoryClear(deps))
		r.Get("/history/{id}", handleHistoryGet(deps))
		r.Delete("/history/{id}", handleHistoryDelete(deps))
		r.Post("/history/{id}/favorite", handleHistoryFavorite(deps))
	})

	return r
}

func handleSearch(deps serverDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Query string `json:"query"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if req.Query == "" {
			writeError(w, http.StatusBadRequest, "query is required")
			return
		}

		result, err := deps.pipeline.Run(r.Context(), req.Query)
		if err != nil {
			writeUpstreamError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, result)
	}
}

func handleEnrich(deps serverDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Name        string `json:"name"`
			Description string `json:"description"`
			Location    string `json:"location"`
			Activity    string `json:"activity"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		profile, err := deps.enricher.EnrichCompany(r.Context(), req.Name, req.Description, req.Location, req.Activity)
		if err != nil {
			var validationErr *enrich.ValidationError
			if errors.As(err, &validationErr) {
				writeError(w, http.StatusBadRequest, err.Error())
				return
			}
			writeUpstreamError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, profile)
	}
}

func handleHistoryList(deps serverDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		filter := store.SearchFilter{
			Mode:          model.SearchMode(q.Get("mode")),
			FavoritesOnly: q.Get("favorites") == "true",
		}
		if v := q.Get("limit"); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				writeError(w, http.StatusBadRequest, "limit must be an integer")
				return
			}
			filter.Limit = n
		}
		if v := q.Get("offset"); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				writeError(w, http.StatusBadRequest, "offset must be an integer")
				return
			}
			filter.Offset = n
		}

		records, err := deps.store.ListSearches(r.Context(), filter)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		if records == nil {
			records = []model.SearchRecord{}
		}
		writeJSON(w, http.StatusOK, records)
	}
}

func handleHistoryGet(deps serverDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")

		rec, err := deps.store.GetSearch(r.Context(), id)
		if err != nil {
			writeStoreError(w, err)
			return
		}
		results, err := deps.store.GetResults(r.Context(), id)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		if results == nil {
			results = []model.BusinessRecord{}
		}

		writeJSON(w, http.StatusOK, struct {
			Search  *model.SearchRecord    `json:"search"`
			Results []model.BusinessRecord `json:"results"`
		}{rec, results})
	}
}

func handleHistoryFavorite(deps serverDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")

		fav, err := deps.store.ToggleFavorite(r.Context(), id)
		if err != nil {
			writeStoreError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"id": id, "is_favorite": fav})
	}
}

func handleHistoryDelete(deps serverDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")

		if err := deps.store.DeleteSearch(r.Context(), id); err != nil {
			writeStoreError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func handleHistoryClear(deps serverDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		keep := r.URL.Query().Get("keep_favorites") == "true"

		n, err := deps.store.ClearHistory(r.Context(), keep)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, map[string]int{"removed": n})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeUpstreamError maps pipeline failures onto HTTP statuses: empty scrape
// results read as 404, everything else as a bad gateway since the failure
// originates in an upstream API.
func writeUpstreamError(w http.ResponseWriter, err error) {
	var emptyErr *apify.EmptyResultError
	if errors.As(err, &emptyErr) {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	zap.L().Error("request failed", zap.Error(err))
	writeError(w, http.StatusBadGateway, err.Error())
}

func writeStoreError(w http.ResponseWriter, err error) {
	if strings.Contains(err.Error(), "not found") {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	writeError(w, http.StatusInternalServerError, err.Error())
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
