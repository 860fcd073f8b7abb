package httpapi

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/http"
)

func methodMux(m map[string]http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if h, ok := m[r.Method]; ok {
			h(w, r)
			return
		}
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		WriteError(w, r, http.StatusBadRequest, "bad_request", "invalid JSON body")
		return false
	}
	return true
}

// payloadCacheKey is stable across equivalent payloads: struct fields
// marshal in declaration order and Go sorts map keys.
func payloadCacheKey(payload ListingsSearchRequest, userID string) string {
	b, _ := json.Marshal(payload)
	digest := sha256.Sum256(b)
	return "listings:" + userID + ":" + hex.EncodeToString(digest[:])
}

// payloadSampleCacheKey ignores paging so every page of the same search
// shares one scored sample.
func payloadSampleCacheKey(payload ListingsSearchRequest, userID string) string {
	payload.Page = 0
	payload.PerPage = 0
	b, _ := json.Marshal(payload)
	digest := sha256.Sum256(b)
	return "listings:sample:" + userID + ":" + hex.EncodeToString(digest[:])
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
