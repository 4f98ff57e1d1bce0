package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/leadgen-cli/internal/enrich"
	"github.com/sells-group/leadgen-cli/internal/model"
	"github.com/sells-group/leadgen-cli/internal/pipeline"
	"github.com/sells-group/leadgen-cli/internal/store"
	"github.com/sells-group/leadgen-cli/pkg/apify"
)

type fakeRunner struct {
	result *pipeline.RunResult
	err    error
}

func (f *fakeRunner) Run(_ context.Context, query string) (*pipeline.RunResult, error) {
	if f.err != nil {
		return nil, f.err
	}
	res := *f.result
	res.Query = query
	return &res, nil
}

type fakeEnricher struct {
	profile *model.EnrichmentProfile
	err     error
}

func (f *fakeEnricher) EnrichCompany(_ context.Context, name, _, _, _ string) (*model.EnrichmentProfile, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.profile, nil
}

// fakeStore implements store.Store in memory for handler tests.
type fakeStore struct {
	searches map[string]*model.SearchRecord
	results  map[string][]model.BusinessRecord
	cleared  int
	err      error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		searches: make(map[string]*model.SearchRecord),
		results:  make(map[string][]model.BusinessRecord),
	}
}

func (f *fakeStore) SaveSearch(_ context.Context, rec model.SearchRecord) (*model.SearchRecord, error) {
	f.searches[rec.ID] = &rec
	return &rec, nil
}

func (f *fakeStore) GetSearch(_ context.Context, id string) (*model.SearchRecord, error) {
	if f.err != nil {
		return nil, f.err
	}
	rec, ok := f.searches[id]
	if !ok {
		return nil, eris.Errorf("store: search not found: %s", id)
	}
	return rec, nil
}

func (f *fakeStore) ListSearches(_ context.Context, filter store.SearchFilter) ([]model.SearchRecord, error) {
	if f.err != nil {
		return nil, f.err
	}
	var out []model.SearchRecord
	for _, rec := range f.searches {
		if filter.FavoritesOnly && !rec.IsFavorite {
			continue
		}
		out = append(out, *rec)
	}
	return out, nil
}

func (f *fakeStore) ToggleFavorite(_ context.Context, id string) (bool, error) {
	rec, ok := f.searches[id]
	if !ok {
		return false, eris.Errorf("store: search not found: %s", id)
	}
	rec.IsFavorite = !rec.IsFavorite
	return rec.IsFavorite, nil
}

func (f *fakeStore) DeleteSearch(_ context.Context, id string) error {
	if _, ok := f.searches[id]; !ok {
		return eris.Errorf("store: search not found: %s", id)
	}
	delete(f.searches, id)
	delete(f.results, id)
	return nil
}

func (f *fakeStore) ClearHistory(_ context.Context, keepFavorites bool) (int, error) {
	n := 0
	for id, rec := range f.searches {
		if keepFavorites && rec.IsFavorite {
			continue
		}
		delete(f.searches, id)
		n++
	}
	f.cleared = n
	return n, nil
}

func (f *fakeStore) SaveResults(_ context.Context, searchID string, records []model.BusinessRecord) error {
	f.results[searchID] = records
	return nil
}

func (f *fakeStore) GetResults(_ context.Context, searchID string) ([]model.BusinessRecord, error) {
	return f.results[searchID], nil
}

func (f *fakeStore) SaveCredentials(context.Context, model.Credentials) error { return nil }
func (f *fakeStore) GetCredentials(context.Context) (*model.Credentials, error) {
	return nil, nil
}
func (f *fakeStore) DeleteCredentials(context.Context) error { return nil }
func (f *fakeStore) Migrate(context.Context) error           { return nil }
func (f *fakeStore) Close() error                            { return nil }

func testDeps() (serverDeps, *fakeStore) {
	st := newFakeStore()
	deps := serverDeps{
		pipeline: &fakeRunner{result: &pipeline.RunResult{
			SearchID: "s-1",
			Hits:     2,
			Records: []model.BusinessRecord{
				{CompanyName: "Acme Bakery", City: "Lyon", Country: "France"},
			},
		}},
		enricher: &fakeEnricher{profile: &model.EnrichmentProfile{
			Industry: model.Industry{Primary: "Food Production", Confidence: 0.8},
		}},
		store: st,
	}
	return deps, st
}

func doRequest(deps serverDeps, method, path string, body []byte) *httptest.ResponseRecorder {
	router := newRouter(deps)
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	return rr
}

func TestRouter_Health(t *testing.T) {
	deps, _ := testDeps()
	rr := doRequest(deps, http.MethodGet, "/health", nil)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Header().Get("Content-Type"), "application/json")

	var body map[string]string
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
}

func TestRouter_Search(t *testing.T) {
	deps, _ := testDeps()
	rr := doRequest(deps, http.MethodPost, "/api/search", []byte(`{"query":"bakery lyon"}`))

	require.Equal(t, http.StatusOK, rr.Code)

	var result pipeline.RunResult
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &result))
	assert.Equal(t, "bakery lyon", result.Query)
	assert.Equal(t, 2, result.Hits)
	require.Len(t, result.Records, 1)
	assert.Equal(t, "Acme Bakery", result.Records[0].CompanyName)
}

func TestRouter_Search_MissingQuery(t *testing.T) {
	deps, _ := testDeps()
	rr := doRequest(deps, http.MethodPost, "/api/search", []byte(`{}`))

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, rr.Body.String(), "query is required")
}

func TestRouter_Search_InvalidBody(t *testing.T) {
	deps, _ := testDeps()
	rr := doRequest(deps, http.MethodPost, "/api/search", []byte(`not json`))

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, rr.Body.String(), "invalid request body")
}

func TestRouter_Search_EmptyResult(t *testing.T) {
	deps, _ := testDeps()
	deps.pipeline = &fakeRunner{err: &apify.EmptyResultError{}}

	rr := doRequest(deps, http.MethodPost, "/api/search", []byte(`{"query":"nothing"}`))
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestRouter_Search_UpstreamFailure(t *testing.T) {
	deps, _ := testDeps()
	deps.pipeline = &fakeRunner{err: eris.New("scrape job failed")}

	rr := doRequest(deps, http.MethodPost, "/api/search", []byte(`{"query":"bakery"}`))
	assert.Equal(t, http.StatusBadGateway, rr.Code)
}

func TestRouter_Enrich(t *testing.T) {
	deps, _ := testDeps()
	rr := doRequest(deps, http.MethodPost, "/api/enrich", []byte(`{"name":"Acme Bakery"}`))

	require.Equal(t, http.StatusOK, rr.Code)

	var profile model.EnrichmentProfile
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &profile))
	assert.Equal(t, "Food Production", profile.Industry.Primary)
}

func TestRouter_Enrich_ValidationError(t *testing.T) {
	deps, _ := testDeps()
	deps.enricher = &fakeEnricher{err: &enrich.ValidationError{Msg: "company name is required"}}

	rr := doRequest(deps, http.MethodPost, "/api/enrich", []byte(`{"name":""}`))
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, rr.Body.String(), "company name is required")
}

func TestRouter_HistoryList(t *testing.T) {
	deps, st := testDeps()
	st.searches["s-1"] = &model.SearchRecord{ID: "s-1", Query: "bakery lyon", IsFavorite: true}
	st.searches["s-2"] = &model.SearchRecord{ID: "s-2", Query: "plumber paris"}

	rr := doRequest(deps, http.MethodGet, "/api/history", nil)
	require.Equal(t, http.StatusOK, rr.Code)

	var records []model.SearchRecord
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &records))
	assert.Len(t, records, 2)
}

func TestRouter_HistoryList_FavoritesOnly(t *testing.T) {
	deps, st := testDeps()
	st.searches["s-1"] = &model.SearchRecord{ID: "s-1", Query: "bakery lyon", IsFavorite: true}
	st.searches["s-2"] = &model.SearchRecord{ID: "s-2", Query: "plumber paris"}

	rr := doRequest(deps, http.MethodGet, "/api/history?favorites=true", nil)
	require.Equal(t, http.StatusOK, rr.Code)

	var records []model.SearchRecord
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &records))
	require.Len(t, records, 1)
	assert.Equal(t, "s-1", records[0].ID)
}

func TestRouter_HistoryList_Empty(t *testing.T) {
	deps, _ := testDeps()

	rr := doRequest(deps, http.MethodGet, "/api/history", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "[]\n", rr.Body.String())
}

func TestRouter_HistoryList_BadLimit(t *testing.T) {
	deps, _ := testDeps()

	rr := doRequest(deps, http.MethodGet, "/api/history?limit=abc", nil)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestRouter_HistoryGet(t *testing.T) {
	deps, st := testDeps()
	st.searches["s-1"] = &model.SearchRecord{ID: "s-1", Query: "bakery lyon"}
	st.results["s-1"] = []model.BusinessRecord{{CompanyName: "Acme Bakery"}}

	rr := doRequest(deps, http.MethodGet, "/api/history/s-1", nil)
	require.Equal(t, http.StatusOK, rr.Code)

	var body struct {
		Search  *model.SearchRecord    `json:"search"`
		Results []model.BusinessRecord `json:"results"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, "bakery lyon", body.Search.Query)
	require.Len(t, body.Results, 1)
	assert.Equal(t, "Acme Bakery", body.Results[0].CompanyName)
}

func TestRouter_HistoryGet_NotFound(t *testing.T) {
	deps, _ := testDeps()

	rr := doRequest(deps, http.MethodGet, "/api/history/missing", nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestRouter_HistoryFavorite(t *testing.T) {
	deps, st := testDeps()
	st.searches["s-1"] = &model.SearchRecord{ID: "s-1", Query: "bakery lyon"}

	rr := doRequest(deps, http.MethodPost, "/api/history/s-1/favorite", nil)
	require.Equal(t, http.StatusOK, rr.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, true, body["is_favorite"])
}

func TestRouter_HistoryDelete(t *testing.T) {
	deps, st := testDeps()
	st.searches["s-1"] = &model.SearchRecord{ID: "s-1"}

	rr := doRequest(deps, http.MethodDelete, "/api/history/s-1", nil)
	assert.Equal(t, http.StatusNoContent, rr.Code)
	assert.Empty(t, st.searches)
}

func TestRouter_HistoryDelete_NotFound(t *testing.T) {
	deps, _ := testDeps()

	rr := doRequest(deps, http.MethodDelete, "/api/history/missing", nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestRouter_HistoryClear(t *testing.T) {
	deps, st := testDeps()
	st.searches["s-1"] = &model.SearchRecord{ID: "s-1", IsFavorite: true}
	st.searches["s-2"] = &model.SearchRecord{ID: "s-2"}

	rr := doRequest(deps, http.MethodDelete, "/api/history?keep_favorites=true", nil)
	require.Equal(t, http.StatusOK, rr.Code)

	var body map[string]int
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, 1, body["removed"])
	assert.Len(t, st.searches, 1)
}
