package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/leadgen-cli/internal/model"
)

func newTestSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLite(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	require.NoError(t, s.Migrate(context.Background()))
	return s
}

func TestSQLiteStore_SaveAndGetSearch(t *testing.T) {
	s := newTestSQLiteStore(t)
	ctx := context.Background()

	saved, err := s.SaveSearch(ctx, model.SearchRecord{
		Query:        "bakery, Paris, France",
		Mode:         model.SearchModeDirect,
		ResultsCount: 7,
	})
	require.NoError(t, err)
	assert.NotEmpty(t, saved.ID)
	assert.False(t, saved.Timestamp.IsZero())

	got, err := s.GetSearch(ctx, saved.ID)
	require.NoError(t, err)
	assert.Equal(t, "bakery, Paris, France", got.Query)
	assert.Equal(t, model.SearchModeDirect, got.Mode)
	assert.Equal(t, 7, got.ResultsCount)
	assert.False(t, got.IsFavorite)
}

func TestSQLiteStore_SaveSearch_DefaultsMode(t *testing.T) {
	s := newTestSQLiteStore(t)

	saved, err := s.SaveSearch(context.Background(), model.SearchRecord{Query: "q"})
	require.NoError(t, err)
	assert.Equal(t, model.SearchModeDirect, saved.Mode)
}

func TestSQLiteStore_GetSearch_NotFound(t *testing.T) {
	s := newTestSQLiteStore(t)

	_, err := s.GetSearch(context.Background(), "missing")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestSQLiteStore_ListSearches_NewestFirst(t *testing.T) {
	s := newTestSQLiteStore(t)
	ctx := context.Background()

	base := time.Now().UTC().Add(-time.Hour)
	for i, q := range []string{"first", "second", "third"} {
		_, err := s.SaveSearch(ctx, model.SearchRecord{
			Query:     q,
			Timestamp: base.Add(time.Duration(i) * time.Minute),
		})
		require.NoError(t, err)
	}

	recs, err := s.ListSearches(ctx, SearchFilter{})
	require.NoError(t, err)
	require.Len(t, recs, 3)
	assert.Equal(t, "third", recs[0].Query)
	assert.Equal(t, "first", recs[2].Query)
}

func TestSQLiteStore_ListSearches_Filters(t *testing.T) {
	s := newTestSQLiteStore(t)
	ctx := context.Background()

	_, err := s.SaveSearch(ctx, model.SearchRecord{Query: "direct one", Mode: model.SearchModeDirect})
	require.NoError(t, err)
	fromFile, err := s.SaveSearch(ctx, model.SearchRecord{Query: "file one", Mode: model.SearchModeFile, FileName: "leads.xlsx"})
	require.NoError(t, err)

	_, err = s.ToggleFavorite(ctx, fromFile.ID)
	require.NoError(t, err)

	byMode, err := s.ListSearches(ctx, SearchFilter{Mode: model.SearchModeFile})
	require.NoError(t, err)
	require.Len(t, byMode, 1)
	assert.Equal(t, "leads.xlsx", byMode[0].FileName)

	favs, err := s.ListSearches(ctx, SearchFilter{FavoritesOnly: true})
	require.NoError(t, err)
	require.Len(t, favs, 1)
	assert.Equal(t, fromFile.ID, favs[0].ID)

	limited, err := s.ListSearches(ctx, SearchFilter{Limit: 1})
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func TestSQLiteStore_ToggleFavorite_Roundtrip(t *testing.T) {
	s := newTestSQLiteStore(t)
	ctx := context.Background()

	saved, err := s.SaveSearch(ctx, model.SearchRecord{Query: "q"})
	require.NoError(t, err)

	fav, err := s.ToggleFavorite(ctx, saved.ID)
	require.NoError(t, err)
	assert.True(t, fav)

	fav, err = s.ToggleFavorite(ctx, saved.ID)
	require.NoError(t, err)
	assert.False(t, fav)
}

func TestSQLiteStore_ToggleFavorite_NotFound(t *testing.T) {
	s := newTestSQLiteStore(t)

	_, err := s.ToggleFavorite(context.Background(), "missing")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestSQLiteStore_DeleteSearch_RemovesResults(t *testing.T) {
	s := newTestSQLiteStore(t)
	ctx := context.Background()

	saved, err := s.SaveSearch(ctx, model.SearchRecord{Query: "q"})
	require.NoError(t, err)
	require.NoError(t, s.SaveResults(ctx, saved.ID, []model.BusinessRecord{{CompanyName: "Acme"}}))

	require.NoError(t, s.DeleteSearch(ctx, saved.ID))

	records, err := s.GetResults(ctx, saved.ID)
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestSQLiteStore_ClearHistory_KeepsFavorites(t *testing.T) {
	s := newTestSQLiteStore(t)
	ctx := context.Background()

	kept, err := s.SaveSearch(ctx, model.SearchRecord{Query: "kept"})
	require.NoError(t, err)
	_, err = s.ToggleFavorite(ctx, kept.ID)
	require.NoError(t, err)
	_, err = s.SaveSearch(ctx, model.SearchRecord{Query: "dropped"})
	require.NoError(t, err)

	n, err := s.ClearHistory(ctx, true)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	recs, err := s.ListSearches(ctx, SearchFilter{})
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "kept", recs[0].Query)

	n, err = s.ClearHistory(ctx, false)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestSQLiteStore_ResultsRoundtrip(t *testing.T) {
	s := newTestSQLiteStore(t)
	ctx := context.Background()

	saved, err := s.SaveSearch(ctx, model.SearchRecord{Query: "q"})
	require.NoError(t, err)

	records := []model.BusinessRecord{
		{CompanyName: "Acme", City: "Paris", Searchstring: "acme paris france"},
		{CompanyName: "Globex", City: "Berlin"},
	}
	require.NoError(t, s.SaveResults(ctx, saved.ID, records))

	got, err := s.GetResults(ctx, saved.ID)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "Acme", got[0].CompanyName)
	assert.Equal(t, "Globex", got[1].CompanyName)
}

func TestSQLiteStore_Credentials(t *testing.T) {
	s := newTestSQLiteStore(t)
	ctx := context.Background()

	creds, err := s.GetCredentials(ctx)
	require.NoError(t, err)
	assert.Nil(t, creds)

	require.NoError(t, s.SaveCredentials(ctx, model.Credentials{ApifyToken: "tok", OpenAIKey: "key"}))

	creds, err = s.GetCredentials(ctx)
	require.NoError(t, err)
	require.NotNil(t, creds)
	assert.Equal(t, "tok", creds.ApifyToken)
	assert.Equal(t, "key", creds.OpenAIKey)

	// Upsert replaces, never duplicates.
	require.NoError(t, s.SaveCredentials(ctx, model.Credentials{ApifyToken: "tok2", OpenAIKey: "key2"}))
	creds, err = s.GetCredentials(ctx)
	require.NoError(t, err)
	assert.Equal(t, "tok2", creds.ApifyToken)

	require.NoError(t, s.DeleteCredentials(ctx))
	creds, err = s.GetCredentials(ctx)
	require.NoError(t, err)
	assert.Nil(t, creds)
}
