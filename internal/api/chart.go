package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
)

// handleGetChart serves cached chart bytes. Expired or unknown ids answer a
// structured 404 carrying the requested id so report renderers can tell a
// stale link from a malformed one.
func handleGetChart(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")

		entry, ok := deps.Cache.Get(id)
		if !ok {
			chartNotFound(w, id)
			return
		}

		format := entry.Format
		if format == "" {
			format = "bin"
		}
		contentType := entry.ContentType
		if contentType == "" {
			contentType = "application/octet-stream"
		}

		w.Header().Set("Content-Type", contentType)
		w.Header().Set("Content-Length", strconv.Itoa(len(entry.Data)))
		w.Header().Set("Cache-Control", "private, max-age=300")
		w.Header().Set("X-Chart-Expires", entry.ExpiresAt.UTC().Format(time.RFC3339))
		w.Header().Set("Content-Disposition", fmt.Sprintf("inline; filename=%q", id+"."+format))
		w.Write(entry.Data)
	}
}

// chartNotFound carries the requested id as its own field so clients can
// match it without parsing the message.
func chartNotFound(w http.ResponseWriter, id string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusNotFound)
	json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]any{
			"message": fmt.Sprintf("chart asset %q not found or expired", id),
			"type":    "not_found",
			"id":      id,
		},
	})
}
