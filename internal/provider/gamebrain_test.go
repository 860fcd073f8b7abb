package provider

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"octivary-engine/internal/config"
)

func TestRatingBucket(t *testing.T) {
	assert.Equal(t, "Brilliant (95+)", ratingBucket(0.97))
	assert.Equal(t, "Amazing (90+)", ratingBucket(92.0))
	assert.Equal(t, "Great (80+)", ratingBucket(0.85))
	assert.Equal(t, "Good (70+)", ratingBucket(71.0))
	assert.Nil(t, ratingBucket(0.5))
	assert.Nil(t, ratingBucket(nil))
	assert.Nil(t, ratingBucket("high"))
}

func TestExtractGenreTags(t *testing.T) {
	options := []string{"Action", "Role-Playing", "Puzzle", ""}
	tags := extractGenreTags("Action/Adventure, role playing", options)
	assert.Equal(t, []string{"Action", "Role-Playing"}, tags)
	assert.Empty(t, extractGenreTags("", options))
}

func TestMapGamebrainItem(t *testing.T) {
	item := map[string]any{
		"id":     float64(42),
		"name":   "Star Racer",
		"year":   float64(2021),
		"genre":  "Racing, Arcade",
		"rating": map[string]any{"mean": 0.91, "count": float64(1200)},
		"platforms": []any{
			map[string]any{"name": "PC"},
			map[string]any{"value": "Switch"},
			"PC",
		},
		"arcadia":    true,
		"adult_only": float64(0),
	}

	mapped := mapGamebrainItem(item, []string{"Racing", "Arcade"})
	assert.Equal(t, "Star Racer", mapped["name"])
	assert.Equal(t, []string{"Racing", "Arcade"}, mapped["genre_tags"])
	assert.Equal(t, "Amazing (90+)", mapped["rating_bucket"])
	assert.Equal(t, 0.91, mapped["rating_mean"])
	assert.Equal(t, true, mapped["arcade_game"])
	assert.Equal(t, false, mapped["adult_only"])
	assert.Equal(t, []string{"PC", "Switch"}, mapped["platform_names"])
}

func TestFetchListingsMethodFallback(t *testing.T) {
	var sawPost bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		sawPost = true
		assert.Equal(t, "test-key", r.Header.Get("X-API-Key"))
		var payload map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		assert.Equal(t, "zelda", payload["query"])
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"results":[{"id":1,"name":"A","genre":"Action"}],"total_results":37}`))
	}))
	defer srv.Close()

	t.Setenv("PROVIDER_GAMEBRAIN_V1_BASE_URL", srv.URL)
	t.Setenv("PROVIDER_GAMEBRAIN_V1_API_KEY", "test-key")

	client := NewGamebrain(config.Gamebrain{SearchPath: "/v1/games", HTTPMethod: "GET"})
	listings, total, err := client.FetchListings(context.Background(), "zelda", 0, 20, []string{"Action"})
	require.NoError(t, err)
	assert.True(t, sawPost)
	assert.Equal(t, 37, total)
	require.Len(t, listings, 1)
	assert.Equal(t, []string{"Action"}, listings[0]["genre_tags"])
}
