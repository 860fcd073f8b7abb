package httpapi

import (
	"net/http"
	"strings"

	"octivary-engine/internal/config"
)

type ConfigHandler struct {
	Deps
}

func (h ConfigHandler) Health(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// List returns the available filter config keys.
func (h ConfigHandler) List(w http.ResponseWriter, r *http.Request) {
	keys, err := config.ListConfigKeys(h.Cfg().App.FilterConfigDir)
	if err != nil {
		WriteError(w, r, http.StatusInternalServerError, "internal_error", "unable to list configs")
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{"configs": keys})
}

// GetByPath serves /api/config/{config_key}.
func (h ConfigHandler) GetByPath(w http.ResponseWriter, r *http.Request) {
	key := strings.TrimPrefix(r.URL.Path, "/api/config/")
	fc, err := config.LoadFilterConfig(h.Cfg().App.FilterConfigDir, key)
	if err != nil {
		WriteError(w, r, http.StatusNotFound, "not_found", err.Error())
		return
	}
	WriteJSON(w, http.StatusOK, fc)
}
