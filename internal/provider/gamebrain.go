package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"octivary-engine/internal/config"
	"octivary-engine/internal/mcda"
)

var nonAlnumRE = regexp.MustCompile(`[^a-z0-9]+`)

func normalizeText(value string) string {
	return strings.TrimSpace(nonAlnumRE.ReplaceAllString(strings.ToLower(value), " "))
}

func dedupe(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	ordered := make([]string, 0, len(values))
	for _, v := range values {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		ordered = append(ordered, v)
	}
	return ordered
}

// ratingBucket maps a mean rating (0..1 or 0..100) to a display bucket.
func ratingBucket(mean any) any {
	score, ok := asFloat(mean)
	if !ok {
		return nil
	}
	percent := score
	if score <= 1 {
		percent = score * 100
	}
	switch {
	case percent >= 95:
		return "Brilliant (95+)"
	case percent >= 90:
		return "Amazing (90+)"
	case percent >= 80:
		return "Great (80+)"
	case percent >= 70:
		return "Good (70+)"
	}
	return nil
}

func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	}
	return 0, false
}

func extractGenreTags(genre string, options []string) []string {
	if genre == "" {
		return []string{}
	}
	normalized := normalizeText(genre)
	var matches []string
	for _, opt := range options {
		if opt == "" {
			continue
		}
		if strings.Contains(normalized, normalizeText(opt)) {
			matches = append(matches, opt)
		}
	}
	return dedupe(matches)
}

func mapGamebrainItem(item map[string]any, genreOptions []string) mcda.Record {
	rating, _ := item["rating"].(map[string]any)
	var ratingMean, ratingCount any
	if rating != nil {
		ratingMean = rating["mean"]
		ratingCount = rating["count"]
	}
	genre, _ := item["genre"].(string)

	platforms, _ := item["platforms"].([]any)
	var platformNames []string
	for _, entry := range platforms {
		switch p := entry.(type) {
		case map[string]any:
			name := p["name"]
			if name == nil {
				name = p["value"]
			}
			if name != nil {
				platformNames = append(platformNames, fmt.Sprint(name))
			}
		case string:
			platformNames = append(platformNames, p)
		}
	}

	arcadeValue := item["arcadia"]
	if arcadeValue == nil {
		arcadeValue = item["arcade_enabled"]
	}
	var arcadeGame any
	if arcadeValue != nil {
		arcadeGame = toBool(arcadeValue)
	}
	var adultOnly any
	if adultValue := item["adult_only"]; adultValue != nil {
		adultOnly = toBool(adultValue)
	}

	screenshots, _ := item["screenshots"].([]any)
	if screenshots == nil {
		screenshots = []any{}
	}
	if platforms == nil {
		platforms = []any{}
	}

	return mcda.Record{
		"id":                item["id"],
		"name":              item["name"],
		"year":              item["year"],
		"genre":             genre,
		"genre_tags":        extractGenreTags(genre, genreOptions),
		"rating":            map[string]any{"mean": ratingMean, "count": ratingCount},
		"rating_mean":       ratingMean,
		"rating_count":      ratingCount,
		"rating_bucket":     ratingBucket(ratingMean),
		"adult_only":        adultOnly,
		"arcade_game":       arcadeGame,
		"image":             item["image"],
		"link":              item["link"],
		"screenshots":       screenshots,
		"micro_trailer":     item["micro_trailer"],
		"gameplay":          item["gameplay"],
		"short_description": item["short_description"],
		"platforms":         platforms,
		"platform_names":    dedupe(platformNames),
	}
}

func toBool(v any) bool {
	switch b := v.(type) {
	case bool:
		return b
	case string:
		return b != ""
	case float64:
		return b != 0
	case int:
		return b != 0
	case nil:
		return false
	}
	return true
}

// Gamebrain talks to the external game search API. Requests are
// serialized and throttled; the upstream free tier is touchy about
// concurrency.
type Gamebrain struct {
	mu      sync.Mutex
	http    *http.Client
	limiter *rate.Limiter
	cfg     config.Gamebrain
}

func NewGamebrain(cfg config.Gamebrain) *Gamebrain {
	timeout := time.Duration(cfg.TimeoutSeconds * float64(time.Second))
	if timeout <= 0 {
		timeout = 8 * time.Second
	}
	return &Gamebrain{
		http:    &http.Client{Timeout: timeout},
		limiter: rate.NewLimiter(rate.Every(500*time.Millisecond), 1),
		cfg:     cfg,
	}
}

// FetchListings searches the provider and maps results into records the
// scorer understands. It returns the mapped page and the upstream total.
func (g *Gamebrain) FetchListings(ctx context.Context, query string, offset, limit int, genreOptions []string) ([]mcda.Record, int, error) {
	p, err := Resolve("gamebrain_v1")
	if err != nil {
		return nil, 0, err
	}

	base := strings.TrimRight(p.BaseURL, "/")
	searchPath := strings.TrimLeft(g.cfg.SearchPath, "/")
	endpoint := base + "/" + searchPath

	method := strings.ToUpper(strings.TrimSpace(g.cfg.HTTPMethod))
	if method == "" {
		method = http.MethodGet
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.limiter.Wait(ctx); err != nil {
		return nil, 0, err
	}

	var resp *http.Response
	if method == http.MethodPost {
		resp, err = g.post(ctx, endpoint, p.APIKey, query, offset, limit)
		if err == nil && resp.StatusCode == http.StatusMethodNotAllowed {
			resp.Body.Close()
			resp, err = g.get(ctx, endpoint, p.APIKey, query, offset, limit)
		}
	} else {
		resp, err = g.get(ctx, endpoint, p.APIKey, query, offset, limit)
		if err == nil && resp.StatusCode == http.StatusMethodNotAllowed {
			resp.Body.Close()
			resp, err = g.post(ctx, endpoint, p.APIKey, query, offset, limit)
		}
	}
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, 0, fmt.Errorf("gamebrain search failed: status %d", resp.StatusCode)
	}

	var data map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return nil, 0, fmt.Errorf("gamebrain search failed: %w", err)
	}

	var listings []mcda.Record
	if results, ok := data["results"].([]any); ok {
		for _, entry := range results {
			if item, ok := entry.(map[string]any); ok {
				listings = append(listings, mapGamebrainItem(item, genreOptions))
			}
		}
	}

	total := len(listings)
	if raw, ok := asFloat(data["total_results"]); ok {
		total = int(raw)
	}
	return listings, total, nil
}

func (g *Gamebrain) get(ctx context.Context, endpoint, apiKey, query string, offset, limit int) (*http.Response, error) {
	u, err := url.Parse(endpoint)
	if err != nil {
		return nil, err
	}
	q := u.Query()
	q.Set("query", query)
	q.Set("limit", fmt.Sprint(limit))
	q.Set("offset", fmt.Sprint(offset))
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}
	setGamebrainHeaders(req, apiKey)
	return g.http.Do(req)
}

func (g *Gamebrain) post(ctx context.Context, endpoint, apiKey, query string, offset, limit int) (*http.Response, error) {
	body, err := json.Marshal(map[string]any{"query": query, "limit": limit, "offset": offset})
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	setGamebrainHeaders(req, apiKey)
	return g.http.Do(req)
}

func setGamebrainHeaders(req *http.Request, apiKey string) {
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")
	if apiKey != "" {
		req.Header.Set("X-API-Key", apiKey)
	}
}
