package httpapi

import (
	"net/http"
	"strings"

	"octivary-engine/internal/events"
	"octivary-engine/internal/store"
)

type SavedSearchesHandler struct {
	Deps
}

func (h SavedSearchesHandler) List(w http.ResponseWriter, r *http.Request) {
	if guardPaused(w, r) {
		return
	}
	userID, ok := authenticate(h.Deps, w, r)
	if !ok {
		return
	}
	searches, err := store.ListSavedSearches(r.Context(), h.DB, userID)
	if err != nil {
		WriteError(w, r, http.StatusInternalServerError, "internal_error", "unable to list saved searches")
		return
	}
	WriteJSON(w, http.StatusOK, searches)
}

func (h SavedSearchesHandler) Create(w http.ResponseWriter, r *http.Request) {
	if guardPaused(w, r) {
		return
	}
	userID, ok := authenticate(h.Deps, w, r)
	if !ok {
		return
	}
	var payload store.SavedSearchCreate
	if !decodeJSON(w, r, &payload) {
		return
	}
	created, err := store.CreateSavedSearch(r.Context(), h.DB, userID, payload)
	if err != nil {
		WriteError(w, r, http.StatusInternalServerError, "internal_error", "unable to save search")
		return
	}
	if h.Hub != nil {
		h.Hub.Publish(events.MakeEvent(RequestIDFrom(r.Context()), events.TypeSavedSearch, 1, map[string]any{
			"action":    "created",
			"search_id": created.SearchID,
		}))
	}
	WriteJSON(w, http.StatusOK, created)
}

// GetByPath serves GET /api/saved-searches/{search_id}.
func (h SavedSearchesHandler) GetByPath(w http.ResponseWriter, r *http.Request) {
	if guardPaused(w, r) {
		return
	}
	if _, ok := authenticate(h.Deps, w, r); !ok {
		return
	}
	searchID := strings.TrimPrefix(r.URL.Path, "/api/saved-searches/")
	search, err := store.GetSavedSearch(r.Context(), h.DB, searchID)
	if err != nil {
		WriteError(w, r, http.StatusNotFound, "not_found", "Search not found")
		return
	}
	WriteJSON(w, http.StatusOK, search)
}

// DeleteByPath serves DELETE /api/saved-searches/{search_id}.
func (h SavedSearchesHandler) DeleteByPath(w http.ResponseWriter, r *http.Request) {
	if guardPaused(w, r) {
		return
	}
	if _, ok := authenticate(h.Deps, w, r); !ok {
		return
	}
	searchID := strings.TrimPrefix(r.URL.Path, "/api/saved-searches/")
	deleted, err := store.DeleteSavedSearch(r.Context(), h.DB, searchID)
	if err != nil {
		WriteError(w, r, http.StatusInternalServerError, "internal_error", "unable to delete search")
		return
	}
	if !deleted {
		WriteError(w, r, http.StatusNotFound, "not_found", "Search not found")
		return
	}
	WriteJSON(w, http.StatusOK, map[string]bool{"deleted": true})
}
