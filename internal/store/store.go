// Package store persists search history, saved results, and API credentials.
// Two implementations exist: SQLite for the single-user CLI default and
// Postgres for shared deployments behind the HTTP server.
package store

import (
	"context"

	"github.com/sells-group/leadgen-cli/internal/model"
)

// SearchFilter specifies criteria for listing history entries.
type SearchFilter struct {
	Mode          model.SearchMode `json:"mode,omitempty"`
	FavoritesOnly bool             `json:"favorites_only,omitempty"`
	Limit         int              `json:"limit,omitempty"`
	Offset        int              `json:"offset,omitempty"`
}

// Store defines the persistence interface for the lead-generation pipeline.
type Store interface {
	// History
	SaveSearch(ctx context.Context, rec model.SearchRecord) (*model.SearchRecord, error)
	GetSearch(ctx context.Context, id string) (*model.SearchRecord, error)
	ListSearches(ctx context.Context, filter SearchFilter) ([]model.SearchRecord, error)
	ToggleFavorite(ctx context.Context, id string) (bool, error)
	DeleteSearch(ctx context.Context, id string) error
	// ClearHistory removes history entries and their results, keeping
	// favorites when asked. Returns the number of entries removed.
	ClearHistory(ctx context.Context, keepFavorites bool) (int, error)

	// Results
	SaveResults(ctx context.Context, searchID string, records []model.BusinessRecord) error
	GetResults(ctx context.Context, searchID string) ([]model.BusinessRecord, error)

	// Credentials. Secrets live only here; nothing else may persist or log
	// them.
	SaveCredentials(ctx context.Context, creds model.Credentials) error
	GetCredentials(ctx context.Context) (*model.Credentials, error)
	DeleteCredentials(ctx context.Context) error

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
