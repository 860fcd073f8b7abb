package httpapi

import (
	"fmt"
	"net/http"
	"strings"

	"octivary-engine/internal/config"
	"octivary-engine/internal/events"
	"octivary-engine/internal/mcda"
)

type ListingsHandler struct {
	Deps
}

func dedupeTerms(terms []string) []string {
	seen := make(map[string]struct{}, len(terms))
	var ordered []string
	for _, term := range terms {
		if term == "" {
			continue
		}
		if _, ok := seen[term]; ok {
			continue
		}
		seen[term] = struct{}{}
		ordered = append(ordered, term)
	}
	return ordered
}

// collectTextTerms gathers free-text search terms from both the filter
// values and the per-term selection keys.
func collectTextTerms(filters map[string]any, selectedOrder map[string][]string, textKeys []string) []string {
	textKeySet := make(map[string]struct{}, len(textKeys))
	for _, key := range textKeys {
		textKeySet[key] = struct{}{}
	}

	var terms []string
	for _, key := range textKeys {
		switch raw := filters[key].(type) {
		case []any:
			for _, term := range raw {
				if s := strings.TrimSpace(stringifyTerm(term)); s != "" {
					terms = append(terms, s)
				}
			}
		case string:
			if s := strings.TrimSpace(raw); s != "" {
				terms = append(terms, s)
			}
		}
	}

	for key, values := range selectedOrder {
		baseKey, term, ok := mcda.ParseSearchTermKey(key)
		if !ok {
			continue
		}
		if _, tracked := textKeySet[baseKey]; !tracked {
			continue
		}
		if len(values) > 0 {
			for _, v := range values {
				if s := strings.TrimSpace(v); s != "" {
					terms = append(terms, s)
				}
			}
		} else if term != "" {
			terms = append(terms, term)
		}
	}

	return dedupeTerms(terms)
}

func stringifyTerm(v any) string {
	switch s := v.(type) {
	case string:
		return s
	case nil:
		return ""
	}
	return fmt.Sprint(v)
}

func buildGamebrainQuery(payload ListingsSearchRequest, fc config.FilterConfig) string {
	var textKeys []string
	for _, entry := range fc.Filters {
		if entry.Type == "text" && entry.Key != "" {
			textKeys = append(textKeys, entry.Key)
		}
	}
	terms := collectTextTerms(payload.Filters, payload.SelectedOrder, textKeys)

	var parts []string
	if preset, ok := fc.PresetFilters["query"].(string); ok {
		if trimmed := strings.TrimSpace(preset); trimmed != "" {
			parts = append(parts, trimmed)
		}
	}
	parts = append(parts, terms...)
	return strings.Join(parts, " ")
}

func genreOptionsFromConfig(fc config.FilterConfig) []string {
	for _, entry := range fc.Filters {
		if entry.Key == "genre_tags" {
			var options []string
			for _, opt := range entry.Options {
				if opt != "" {
					options = append(options, opt)
				}
			}
			return options
		}
	}
	return nil
}

func paginate(scored []mcda.Record, page, perPage int) ([]mcda.Record, int, int) {
	total := len(scored)
	totalPages := (total + perPage - 1) / perPage
	if totalPages < 1 {
		totalPages = 1
	}
	start := (page - 1) * perPage
	if start >= total {
		return []mcda.Record{}, total, totalPages
	}
	end := start + perPage
	if end > total {
		end = total
	}
	return scored[start:end], total, totalPages
}

// Search scores a provider's catalog against the caller's filter
// selections and returns one page of ranked listings. Responses are
// cached per user and payload; external providers additionally share a
// page-independent scored sample.
func (h ListingsHandler) Search(w http.ResponseWriter, r *http.Request) {
	if guardPaused(w, r) {
		return
	}
	userID, ok := authenticate(h.Deps, w, r)
	if !ok {
		return
	}
	if enforceRateLimit(h.Deps, w, r, userID) {
		return
	}

	var payload ListingsSearchRequest
	if !decodeJSON(w, r, &payload) {
		return
	}
	payload.applyDefaults()

	cacheKey := payloadCacheKey(payload, userID)
	if cached, ok := h.Cache.Get(cacheKey); ok {
		if resp, ok := cached.(ListingsSearchResponse); ok {
			WriteJSON(w, http.StatusOK, resp)
			return
		}
	}

	cfg := h.Cfg()
	fc, err := config.LoadFilterConfig(cfg.App.FilterConfigDir, payload.ConfigKey)
	if err != nil {
		WriteError(w, r, http.StatusNotFound, "not_found", err.Error())
		return
	}
	source := fc.PrimarySource()

	perPage := clamp(payload.PerPage, 1, 200)
	page := payload.Page
	if page < 1 {
		page = 1
	}

	var scored []mcda.Record
	switch {
	case source.Type == "local_json":
		items, err := h.LoadLocalListings(cfg.App.DataDir, source.ProviderKey)
		if err != nil {
			WriteError(w, r, http.StatusNotFound, "not_found", err.Error())
			return
		}
		scored, _ = mcda.Score(items, fc, payload.Filters, payload.SelectedOrder, payload.SectionOrder)

	case source.Type == "external_api" && source.ProviderKey == "gamebrain_v1":
		sampleKey := payloadSampleCacheKey(payload, userID)
		if cached, ok := h.Cache.Get(sampleKey); ok {
			scored, _ = cached.([]mcda.Record)
		}
		if scored == nil {
			items, err := h.fetchGamebrainSample(w, r, payload, fc, cfg.Gamebrain.ScoreSampleSize, cfg.Gamebrain.FetchLimit)
			if err != nil {
				return // response already written
			}
			scored, _ = mcda.Score(items, fc, payload.Filters, payload.SelectedOrder, payload.SectionOrder)
			h.Cache.Set(sampleKey, scored)
		}

	default:
		WriteError(w, r, http.StatusBadRequest, "bad_request", "Unsupported data source for server-side scoring.")
		return
	}

	pageListings, total, totalPages := paginate(scored, page, perPage)
	resp := ListingsSearchResponse{
		Listings:    pageListings,
		Total:       total,
		PerPage:     perPage,
		CurrentPage: page,
		TotalPages:  totalPages,
	}
	h.Cache.Set(cacheKey, resp)

	if h.Hub != nil {
		h.Hub.Publish(events.MakeEvent(RequestIDFrom(r.Context()), events.TypeListingsSearch, 1, map[string]any{
			"config_key": payload.ConfigKey,
			"total":      total,
		}))
	}
	WriteJSON(w, http.StatusOK, resp)
}

// fetchGamebrainSample pulls pages from the provider until the sample is
// full, deduplicating by item id. On upstream failure a partial sample is
// kept; an empty one is a 502.
func (h ListingsHandler) fetchGamebrainSample(
	w http.ResponseWriter, r *http.Request,
	payload ListingsSearchRequest, fc config.FilterConfig,
	sampleSize, fetchLimit int,
) ([]mcda.Record, error) {
	query := buildGamebrainQuery(payload, fc)
	genreOptions := genreOptionsFromConfig(fc)
	if sampleSize < 1 {
		sampleSize = 1
	}
	if fetchLimit < 1 {
		fetchLimit = 1
	}

	var items []mcda.Record
	seenIDs := make(map[string]struct{})
	offset := 0
	for len(items) < sampleSize {
		pageLimit := fetchLimit
		if remaining := sampleSize - len(items); remaining < pageLimit {
			pageLimit = remaining
		}
		pageItems, totalAvailable, err := h.FetchGamebrain(r.Context(), query, offset, pageLimit, genreOptions)
		if err != nil {
			if len(items) > 0 {
				break
			}
			WriteError(w, r, http.StatusBadGateway, "upstream_error", "Failed to reach Gamebrain API.")
			return nil, err
		}
		if len(pageItems) == 0 {
			break
		}
		for _, item := range pageItems {
			if id := item["id"]; id != nil {
				idStr := fmt.Sprint(id)
				if _, seen := seenIDs[idStr]; seen {
					continue
				}
				seenIDs[idStr] = struct{}{}
			}
			items = append(items, item)
		}
		offset += len(pageItems)
		if offset >= totalAvailable {
			break
		}
	}
	return items, nil
}
