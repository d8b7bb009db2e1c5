package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/DHCross/WovenWebApp-sub001/internal/storage"
)

type windowSummary struct {
	ID           string    `json:"id"`
	CreatedAt    time.Time `json:"created_at"`
	SubjectName  string    `json:"subject_name"`
	StartDate    string    `json:"start_date"`
	EndDate      string    `json:"end_date"`
	Timezone     string    `json:"timezone,omitempty"`
	SampleCount  int       `json:"sample_count"`
	AspectCount  int       `json:"aspect_count"`
	WheelAssetID string    `json:"wheel_asset_id,omitempty"`
	Status       string    `json:"status"`
}

func summarize(r storage.WindowRun) windowSummary {
	return windowSummary{
		ID:           r.ID,
		CreatedAt:    r.CreatedAt,
		SubjectName:  r.SubjectName,
		StartDate:    r.StartDate,
		EndDate:      r.EndDate,
		Timezone:     r.Timezone,
		SampleCount:  r.SampleCount,
		AspectCount:  r.AspectCount,
		WheelAssetID: r.WheelAssetID,
		Status:       r.Status,
	}
}

func handleListWindows(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if deps.Store == nil {
			httpError(w, http.StatusServiceUnavailable, "api_error", "run history is not enabled")
			return
		}

		limit := parseIntParam(r, "limit", 20, 100)

		runs, err := deps.Store.ListWindowRuns(limit)
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to list runs: %v", err)
			return
		}

		summaries := make([]windowSummary, len(runs))
		for i, run := range runs {
			summaries[i] = summarize(run)
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(summaries)
	}
}

func handleGetWindow(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if deps.Store == nil {
			httpError(w, http.StatusServiceUnavailable, "api_error", "run history is not enabled")
			return
		}

		id := chi.URLParam(r, "id")

		run, err := deps.Store.GetWindowRun(id)
		if errors.Is(err, storage.ErrNotFound) {
			httpError(w, http.StatusNotFound, "not_found", "window run %q not found", id)
			return
		}
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to get run: %v", err)
			return
		}

		out := struct {
			windowSummary
			Result json.RawMessage `json:"result,omitempty"`
		}{windowSummary: summarize(run)}
		if run.ResultJSON != "" {
			out.Result = json.RawMessage(run.ResultJSON)
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(out)
	}
}

func handleGetProvenance(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if deps.Store == nil {
			httpError(w, http.StatusServiceUnavailable, "api_error", "run history is not enabled")
			return
		}

		id := chi.URLParam(r, "id")

		if _, err := deps.Store.GetWindowRun(id); errors.Is(err, storage.ErrNotFound) {
			httpError(w, http.StatusNotFound, "not_found", "window run %q not found", id)
			return
		} else if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to get run: %v", err)
			return
		}

		records, err := deps.Store.ListProvenance(id)
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to list provenance: %v", err)
			return
		}

		type provenanceOut struct {
			Date        string `json:"date"`
			Strategy    string `json:"strategy"`
			Endpoint    string `json:"endpoint,omitempty"`
			Attempts    int    `json:"attempts"`
			AspectCount int    `json:"aspect_count"`
		}
		out := make([]provenanceOut, len(records))
		for i, rec := range records {
			out[i] = provenanceOut{
				Date:        rec.Date,
				Strategy:    rec.Strategy,
				Endpoint:    rec.Endpoint,
				Attempts:    rec.Attempts,
				AspectCount: rec.AspectCount,
			}
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(out)
	}
}
