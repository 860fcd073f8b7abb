package httpapi

import "net/http"

// NewMux returns the raw mux so main() can wrap it with middleware.
func NewMux(d Deps) *http.ServeMux {
	mux := http.NewServeMux()

	ch := ConfigHandler{Deps: d}
	mux.HandleFunc("/api/health", methodMux(map[string]http.HandlerFunc{
		http.MethodGet: ch.Health,
	}))
	mux.HandleFunc("/api/configs", methodMux(map[string]http.HandlerFunc{
		http.MethodGet: ch.List,
	}))
	mux.HandleFunc("/api/config/", methodMux(map[string]http.HandlerFunc{
		http.MethodGet: ch.GetByPath, // expects /api/config/{config_key}
	}))

	lh := ListingsHandler{Deps: d}
	mux.HandleFunc("/api/listings/search", methodMux(map[string]http.HandlerFunc{
		http.MethodPost: lh.Search,
	}))

	rh := ReverbHandler{Deps: d}
	mux.HandleFunc("/api/reverb/listings", methodMux(map[string]http.HandlerFunc{
		http.MethodGet:  rh.Get,
		http.MethodPost: rh.Post,
	}))

	sh := SavedSearchesHandler{Deps: d}
	mux.HandleFunc("/api/saved-searches", methodMux(map[string]http.HandlerFunc{
		http.MethodGet:  sh.List,
		http.MethodPost: sh.Create,
	}))
	mux.HandleFunc("/api/saved-searches/", methodMux(map[string]http.HandlerFunc{
		http.MethodGet:    sh.GetByPath,
		http.MethodDelete: sh.DeleteByPath,
	}))

	// SSE events
	eh := EventsHandler{Hub: d.Hub}
	mux.HandleFunc("/events", methodMux(map[string]http.HandlerFunc{
		http.MethodGet: eh.ServeSSE,
	}))

	return mux
}
