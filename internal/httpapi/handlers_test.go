package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"octivary-engine/internal/cache"
	"octivary-engine/internal/config"
	"octivary-engine/internal/events"
	"octivary-engine/internal/listings"
	"octivary-engine/internal/mcda"
	"octivary-engine/internal/ratelimit"
	"octivary-engine/internal/store"
)

const testFilterConfig = `{
  "key": "cars_v1",
  "title": "Cars",
  "filters": [
    {"key": "brand", "type": "categorical", "path": "brand"},
    {"key": "price", "type": "range", "path": "price"}
  ],
  "datasets": {
    "primary": {"data_source": {"type": "local_json", "provider_key": "cars_v1"}}
  }
}`

const testListings = `{
  "listings": [
    {"id": "a", "brand": "Toyota", "price": 120},
    {"id": "b", "brand": "Honda", "price": 90},
    {"id": "c", "brand": "Ford", "price": 150}
  ]
}`

func testDeps(t *testing.T) Deps {
	t.Helper()

	dir := t.TempDir()
	filterDir := filepath.Join(dir, "filters")
	require.NoError(t, os.Mkdir(filterDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(filterDir, "cars_v1.json"), []byte(testFilterConfig), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "cars_v1.json"), []byte(testListings), 0o644))

	cfg := config.Config{}
	cfg.App.DataDir = dir
	cfg.App.FilterConfigDir = filterDir
	cfg.Cache.TTLSeconds = 60
	cfg.Cache.MaxEntries = 16
	cfg.Gamebrain.ScoreSampleSize = 10
	cfg.Gamebrain.FetchLimit = 5

	db, err := store.Open(filepath.Join(dir, "engine.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, store.Migrate(db.Pool))

	var cfgVal atomic.Value
	cfgVal.Store(cfg)

	return Deps{
		Log:               zap.NewNop().Sugar(),
		DB:                db.Pool,
		Hub:               events.NewHub(),
		CfgVal:            &cfgVal,
		Cache:             cache.NewTTL(time.Minute, 16),
		Limiter:           ratelimit.NewPerMinute(1000),
		JWKS:              NewJWKSCache(),
		LoadLocalListings: listings.LoadLocal,
	}
}

func doJSON(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	mux := NewMux(testDeps(t))
	rec := doJSON(t, mux, http.MethodGet, "/api/health", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestGetConfig(t *testing.T) {
	mux := NewMux(testDeps(t))

	rec := doJSON(t, mux, http.MethodGet, "/api/config/cars_v1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var fc config.FilterConfig
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &fc))
	assert.Equal(t, "cars_v1", fc.Key)

	rec = doJSON(t, mux, http.MethodGet, "/api/config/missing", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestListConfigs(t *testing.T) {
	mux := NewMux(testDeps(t))
	rec := doJSON(t, mux, http.MethodGet, "/api/configs", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"configs":["cars_v1"]}`, rec.Body.String())
}

func TestSearchRanksLocalListings(t *testing.T) {
	mux := NewMux(testDeps(t))

	payload := ListingsSearchRequest{
		ConfigKey:     "cars_v1",
		SelectedOrder: map[string][]string{"brand": {"Honda", "Toyota"}},
		SectionOrder:  []string{"brand"},
	}
	rec := doJSON(t, mux, http.MethodPost, "/api/listings/search", payload)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Listings    []mcda.Record `json:"listings"`
		Total       int           `json:"total"`
		PerPage     int           `json:"per_page"`
		CurrentPage int           `json:"current_page"`
		TotalPages  int           `json:"total_pages"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 3, resp.Total)
	assert.Equal(t, 24, resp.PerPage)
	assert.Equal(t, 1, resp.CurrentPage)
	assert.Equal(t, 1, resp.TotalPages)
	require.Len(t, resp.Listings, 3)
	assert.Equal(t, "b", resp.Listings[0]["id"])
	assert.Equal(t, "a", resp.Listings[1]["id"])
	assert.Equal(t, "c", resp.Listings[2]["id"])
}

func TestSearchPagination(t *testing.T) {
	mux := NewMux(testDeps(t))

	payload := ListingsSearchRequest{ConfigKey: "cars_v1", Page: 2, PerPage: 2}
	rec := doJSON(t, mux, http.MethodPost, "/api/listings/search", payload)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Listings   []mcda.Record `json:"listings"`
		Total      int           `json:"total"`
		TotalPages int           `json:"total_pages"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 3, resp.Total)
	assert.Equal(t, 2, resp.TotalPages)
	require.Len(t, resp.Listings, 1)
	assert.Equal(t, "c", resp.Listings[0]["id"])
}

func TestSearchUnknownConfig(t *testing.T) {
	mux := NewMux(testDeps(t))
	rec := doJSON(t, mux, http.MethodPost, "/api/listings/search", ListingsSearchRequest{ConfigKey: "nope"})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSearchPausedService(t *testing.T) {
	t.Setenv("OCTIVARY_PAUSED", "1")
	mux := NewMux(testDeps(t))
	rec := doJSON(t, mux, http.MethodPost, "/api/listings/search", ListingsSearchRequest{ConfigKey: "cars_v1"})
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "monthly budget")
}

func TestSearchRateLimited(t *testing.T) {
	d := testDeps(t)
	d.Limiter = ratelimit.NewPerMinute(1)
	mux := NewMux(d)

	payload := ListingsSearchRequest{ConfigKey: "cars_v1"}
	rec := doJSON(t, mux, http.MethodPost, "/api/listings/search", payload)
	require.Equal(t, http.StatusOK, rec.Code)

	// same user immediately again: cache would serve it, so vary the payload
	payload.PerPage = 7
	rec = doJSON(t, mux, http.MethodPost, "/api/listings/search", payload)
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Contains(t, rec.Body.String(), "Rate limit exceeded")
}

func TestSearchGamebrainSample(t *testing.T) {
	d := testDeps(t)
	require.NoError(t, os.WriteFile(
		filepath.Join(d.Cfg().App.FilterConfigDir, "games_v1.json"),
		[]byte(`{
  "filters": [
    {"key": "genre_tags", "type": "checkboxes", "path": "genre_tags", "options": ["Action"]},
    {"key": "game_title", "type": "text"}
  ],
  "preset_filters": {"query": "arcade"},
  "datasets": {"primary": {"data_source": {"type": "external_api", "provider_key": "gamebrain_v1"}}}
}`), 0o644))

	var gotQuery string
	calls := 0
	d.FetchGamebrain = func(ctx context.Context, query string, offset, limit int, genreOptions []string) ([]mcda.Record, int, error) {
		calls++
		gotQuery = query
		return []mcda.Record{
			{"id": float64(1), "name": "A", "genre_tags": []any{"Action"}},
			{"id": float64(1), "name": "A dup", "genre_tags": []any{}},
			{"id": float64(2), "name": "B", "genre_tags": []any{}},
		}, 3, nil
	}
	mux := NewMux(d)

	payload := ListingsSearchRequest{
		ConfigKey:     "games_v1",
		Filters:       map[string]any{"game_title": []any{"zelda"}},
		SelectedOrder: map[string][]string{"genre_tags": {"Action"}},
		SectionOrder:  []string{"genre_tags"},
	}
	rec := doJSON(t, mux, http.MethodPost, "/api/listings/search", payload)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, calls)
	assert.Equal(t, "arcade zelda", gotQuery)

	var resp struct {
		Listings []mcda.Record `json:"listings"`
		Total    int           `json:"total"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 2, resp.Total) // duplicate id dropped
	require.NotEmpty(t, resp.Listings)
	assert.Equal(t, "A", resp.Listings[0]["name"])
}

func TestSavedSearchLifecycle(t *testing.T) {
	mux := NewMux(testDeps(t))

	create := doJSON(t, mux, http.MethodPost, "/api/saved-searches", store.SavedSearchCreate{
		CategoryKey: "cars",
		ConfigKey:   "cars_v1",
	})
	require.Equal(t, http.StatusOK, create.Code)
	var created store.SavedSearch
	require.NoError(t, json.Unmarshal(create.Body.Bytes(), &created))
	require.NotEmpty(t, created.SearchID)
	assert.Equal(t, "demo-user", created.UserID)

	list := doJSON(t, mux, http.MethodGet, "/api/saved-searches", nil)
	require.Equal(t, http.StatusOK, list.Code)
	var all []store.SavedSearch
	require.NoError(t, json.Unmarshal(list.Body.Bytes(), &all))
	require.Len(t, all, 1)

	get := doJSON(t, mux, http.MethodGet, "/api/saved-searches/"+created.SearchID, nil)
	assert.Equal(t, http.StatusOK, get.Code)

	del := doJSON(t, mux, http.MethodDelete, "/api/saved-searches/"+created.SearchID, nil)
	require.Equal(t, http.StatusOK, del.Code)
	assert.JSONEq(t, `{"deleted":true}`, del.Body.String())

	del = doJSON(t, mux, http.MethodDelete, "/api/saved-searches/"+created.SearchID, nil)
	assert.Equal(t, http.StatusNotFound, del.Code)
}

func TestReverbProxy(t *testing.T) {
	d := testDeps(t)
	var gotParams url.Values
	d.FetchReverb = func(ctx context.Context, params url.Values) (map[string]any, error) {
		gotParams = params
		return map[string]any{"total": float64(1), "listings": []any{}}, nil
	}
	mux := NewMux(d)

	rec := doJSON(t, mux, http.MethodPost, "/api/reverb/listings", ReverbListingsRequest{
		Query:   "jazzmaster",
		Page:    2,
		PerPage: 10,
		Filters: map[string]any{"make": []any{"Fender"}},
	})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "jazzmaster", gotParams.Get("query"))
	assert.Equal(t, "Fender", gotParams.Get("make"))
	assert.Equal(t, "2", gotParams.Get("page"))
	assert.Equal(t, "10", gotParams.Get("per_page"))
}

func TestMethodNotAllowed(t *testing.T) {
	mux := NewMux(testDeps(t))
	rec := doJSON(t, mux, http.MethodDelete, "/api/health", nil)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}
