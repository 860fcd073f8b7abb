package httpapi

import (
	"errors"
	"net/http"
	"strconv"

	"octivary-engine/internal/config"
	"octivary-engine/internal/provider"
)

type ReverbHandler struct {
	Deps
}

func (h ReverbHandler) loadConfig(w http.ResponseWriter, r *http.Request, configKey string) (*config.FilterConfig, bool) {
	if configKey == "" {
		return nil, true
	}
	fc, err := config.LoadFilterConfig(h.Cfg().App.FilterConfigDir, configKey)
	if err != nil {
		WriteError(w, r, http.StatusNotFound, "not_found", err.Error())
		return nil, false
	}
	return &fc, true
}

func (h ReverbHandler) proxy(w http.ResponseWriter, r *http.Request, fc *config.FilterConfig, payload ReverbListingsRequest) {
	params := provider.BuildReverbParams(fc, payload.Query, payload.CategoryUUID, payload.Page, payload.PerPage, payload.Filters)
	data, err := h.FetchReverb(r.Context(), params)
	if err != nil {
		var upstream *provider.UpstreamError
		if errors.As(err, &upstream) {
			WriteError(w, r, upstream.Status, "upstream_error", upstream.Body)
			return
		}
		WriteError(w, r, http.StatusBadGateway, "upstream_error", err.Error())
		return
	}
	WriteJSON(w, http.StatusOK, data)
}

// Get proxies a query-string listings search.
func (h ReverbHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID, ok := authenticate(h.Deps, w, r)
	if !ok {
		return
	}
	if enforceRateLimit(h.Deps, w, r, userID) {
		return
	}

	q := r.URL.Query()
	payload := ReverbListingsRequest{
		ConfigKey:    q.Get("config_key"),
		Query:        q.Get("query"),
		CategoryUUID: q.Get("category_uuid"),
		Page:         intParam(q.Get("page"), 1),
		PerPage:      intParam(q.Get("per_page"), 24),
		Filters:      map[string]any{},
	}

	fc, ok := h.loadConfig(w, r, payload.ConfigKey)
	if !ok {
		return
	}
	h.proxy(w, r, fc, payload)
}

// Post proxies a listings search with structured filters in the body.
func (h ReverbHandler) Post(w http.ResponseWriter, r *http.Request) {
	userID, ok := authenticate(h.Deps, w, r)
	if !ok {
		return
	}
	if enforceRateLimit(h.Deps, w, r, userID) {
		return
	}

	var payload ReverbListingsRequest
	if !decodeJSON(w, r, &payload) {
		return
	}
	payload.applyDefaults()

	fc, ok := h.loadConfig(w, r, payload.ConfigKey)
	if !ok {
		return
	}
	h.proxy(w, r, fc, payload)
}

func intParam(raw string, fallback int) int {
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return n
}
