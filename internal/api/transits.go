package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sort"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/DHCross/WovenWebApp-sub001/internal/assetcache"
	"github.com/DHCross/WovenWebApp-sub001/internal/compress"
	"github.com/DHCross/WovenWebApp-sub001/internal/provider"
	"github.com/DHCross/WovenWebApp-sub001/internal/storage"
	"github.com/DHCross/WovenWebApp-sub001/internal/subject"
	"github.com/DHCross/WovenWebApp-sub001/internal/transit"
)

const maxRequestBodySize = 1 << 20 // 1MB

// TransitRunner abstracts the fetch orchestrator for the API layer.
type TransitRunner interface {
	GetTransits(ctx context.Context, params transit.Params) (*transit.Result, error)
}

type AppDeps struct {
	Runner     TransitRunner
	Cache      *assetcache.Cache
	Store      *storage.Store // optional; if nil, runs are not recorded
	Token      string
	MaxAspects int // per-day compression cap; 0 means compress.DefaultMaxAspects
}

// NewAppHandler builds the HTTP surface. Chart byte-serving and health stay
// unauthenticated; chart URLs are embedded in rendered reports and must
// resolve without credentials.
func NewAppHandler(deps AppDeps) http.Handler {
	r := chi.NewRouter()

	r.Get("/health", handleHealth)
	r.Get("/chart/{id}", handleGetChart(deps))

	r.Group(func(r chi.Router) {
		if deps.Token != "" {
			r.Use(BearerAuth(deps.Token))
		}
		r.Post("/transits", handleTransits(deps))
		r.Get("/windows", handleListWindows(deps))
		r.Get("/windows/{id}", handleGetWindow(deps))
		r.Get("/windows/{id}/provenance", handleGetProvenance(deps))
	})

	return r
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}

type SubjectPayload struct {
	Name      string   `json:"name"`
	Year      int      `json:"year"`
	Month     int      `json:"month"`
	Day       int      `json:"day"`
	Hour      int      `json:"hour"`
	Minute    int      `json:"minute"`
	Second    int      `json:"second"`
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
	Timezone  string   `json:"timezone"`
	City      string   `json:"city"`
	Nation    string   `json:"nation"`
}

type TransitsRequest struct {
	Subject      SubjectPayload `json:"subject"`
	StartDate    string         `json:"start_date"`
	EndDate      string         `json:"end_date"`
	Step         string         `json:"step"`     // Go duration, default 24h
	Timezone     string         `json:"timezone"` // window timezone; defaults to the subject's
	CaptureWheel bool           `json:"capture_wheel"`
	Compress     bool           `json:"compress"`
	ZodiacType   string         `json:"zodiac_type"`
	HousesSystem string         `json:"houses_system"`
}

type TransitsResponse struct {
	WindowID         string                        `json:"window_id,omitempty"`
	TransitsByDate   map[string][]provider.Aspect  `json:"transits_by_date"`
	RetroFlagsByDate map[string]map[string]bool    `json:"retro_flags_by_date,omitempty"`
	ProvenanceByDate map[string]transit.Provenance `json:"provenance_by_date"`
	ChartAssets      []assetcache.Entry            `json:"chart_assets,omitempty"`
	Compressed       *CompressedWindow             `json:"compressed,omitempty"`
}

// CompressedWindow is the codebook encoding of one window: full per-day
// entry lists plus day-over-day deltas keyed by the later day.
type CompressedWindow struct {
	Codebook *compress.Codebook          `json:"codebook"`
	Days     map[string][]compress.Entry `json:"days"`
	Deltas   map[string]compress.Delta   `json:"deltas,omitempty"`
}

// requestError marks a validation failure so the HTTP layer can answer 400
// instead of 502.
type requestError struct {
	msg string
}

func (e requestError) Error() string { return e.msg }

func handleTransits(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
		defer r.Body.Close()

		var req TransitsRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
			return
		}
		if r.URL.Query().Get("compress") == "1" {
			req.Compress = true
		}

		resp, err := executeWindow(r.Context(), deps, req)
		var reqErr requestError
		if errors.As(err, &reqErr) {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "%s", reqErr.msg)
			return
		}
		if err != nil {
			httpError(w, http.StatusBadGateway, "api_error", "transit fetch failed: %v", err)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	}
}

// executeWindow is the shared run path behind both the HTTP handler and the
// MCP fetch_transits tool: validate, build the window, run the
// orchestrator, cache extracted graphics, optionally compress, and record
// the run.
func executeWindow(ctx context.Context, deps AppDeps, req TransitsRequest) (*TransitsResponse, error) {
	if req.Subject.Name == "" {
		return nil, requestError{"subject.name is required"}
	}
	if req.StartDate == "" || req.EndDate == "" {
		return nil, requestError{"start_date and end_date are required"}
	}

	var step time.Duration
	if req.Step != "" {
		d, err := time.ParseDuration(req.Step)
		if err != nil {
			return nil, requestError{fmt.Sprintf("invalid step %q: %v", req.Step, err)}
		}
		step = d
	}

	tz := req.Timezone
	if tz == "" {
		tz = req.Subject.Timezone
	}
	samples, err := transit.BuildWindow(req.StartDate, req.EndDate, step, tz)
	if err != nil {
		return nil, requestError{err.Error()}
	}

	sub := subject.Subject{
		Name:      req.Subject.Name,
		Year:      req.Subject.Year,
		Month:     req.Subject.Month,
		Day:       req.Subject.Day,
		Hour:      req.Subject.Hour,
		Minute:    req.Subject.Minute,
		Second:    req.Subject.Second,
		Latitude:  req.Subject.Latitude,
		Longitude: req.Subject.Longitude,
		Timezone:  req.Subject.Timezone,
		City:      req.Subject.City,
		Nation:    req.Subject.Nation,
	}

	result, err := deps.Runner.GetTransits(ctx, transit.Params{
		Subject: sub,
		Samples: samples,
		Options: subject.Options{
			ZodiacType:   req.ZodiacType,
			HousesSystem: req.HousesSystem,
		},
		CaptureWheel: req.CaptureWheel,
	})
	if err != nil {
		return nil, err
	}

	resp := &TransitsResponse{
		TransitsByDate:   result.TransitsByDate,
		RetroFlagsByDate: result.RetroFlagsByDate,
		ProvenanceByDate: result.ProvenanceByDate,
	}

	if deps.Cache != nil && len(result.ChartAssets) > 0 {
		resp.ChartAssets = deps.Cache.Ingest(result.ChartAssets, assetcache.Meta{
			Role:      req.Subject.Name,
			ChartType: "transit-wheel",
			Scope:     req.StartDate + ".." + req.EndDate,
		})
	}

	if req.Compress {
		resp.Compressed = compressWindow(result.TransitsByDate, deps.MaxAspects)
	}

	recordRun(deps, req, samples, resp)

	return resp, nil
}

// compressWindow builds the window codebook and encodes every day, plus the
// delta from each day to the next.
func compressWindow(byDate map[string][]provider.Aspect, maxAspects int) *CompressedWindow {
	dates := make([]string, 0, len(byDate))
	for d := range byDate {
		dates = append(dates, d)
	}
	sort.Strings(dates)

	days := make([][]provider.Aspect, len(dates))
	for i, d := range dates {
		days[i] = byDate[d]
	}

	cb := compress.BuildCodebook(days)
	out := &CompressedWindow{
		Codebook: cb,
		Days:     make(map[string][]compress.Entry, len(dates)),
		Deltas:   make(map[string]compress.Delta),
	}

	var prev []compress.Entry
	for i, d := range dates {
		entries := cb.CompressDay(days[i], maxAspects)
		out.Days[d] = entries
		if i > 0 {
			out.Deltas[d] = compress.Diff(prev, entries)
		}
		prev = entries
	}
	return out
}

// recordRun persists the run to the history store. History is supplementary;
// a write failure is logged and never fails the fetch.
func recordRun(deps AppDeps, req TransitsRequest, samples []transit.Sample, resp *TransitsResponse) {
	if deps.Store == nil {
		return
	}

	runID := uuid.New().String()

	totalAspects := 0
	status := "completed"
	for _, prov := range resp.ProvenanceByDate {
		totalAspects += prov.AspectCount
		if prov.AspectCount == 0 {
			status = "partial"
		}
	}

	wheelAssetID := ""
	for _, e := range resp.ChartAssets {
		if !e.External {
			wheelAssetID = e.ID
			break
		}
	}

	resultJSON, err := json.Marshal(resp)
	if err != nil {
		slog.Warn("marshaling run result", "error", err)
		return
	}

	tz := req.Timezone
	if tz == "" {
		tz = req.Subject.Timezone
	}
	run := storage.WindowRun{
		ID:           runID,
		CreatedAt:    time.Now().UTC(),
		SubjectName:  req.Subject.Name,
		StartDate:    req.StartDate,
		EndDate:      req.EndDate,
		Timezone:     tz,
		SampleCount:  len(samples),
		AspectCount:  totalAspects,
		WheelAssetID: wheelAssetID,
		ResultJSON:   string(resultJSON),
		Status:       status,
	}
	if err := deps.Store.SaveWindowRun(run); err != nil {
		slog.Warn("saving window run", "error", err)
		return
	}

	records := make([]storage.ProvenanceRecord, 0, len(resp.ProvenanceByDate))
	for _, prov := range resp.ProvenanceByDate {
		records = append(records, storage.ProvenanceRecord{
			Date:        prov.Date,
			Strategy:    prov.Strategy,
			Endpoint:    prov.Endpoint,
			Attempts:    prov.Attempts,
			AspectCount: prov.AspectCount,
		})
	}
	if err := deps.Store.SaveProvenance(runID, records); err != nil {
		slog.Warn("saving run provenance", "run_id", runID, "error", err)
		return
	}

	resp.WindowID = runID
}

func parseIntParam(r *http.Request, key string, defaultVal, maxVal int) int {
	s := r.URL.Query().Get(key)
	if s == "" {
		return defaultVal
	}
	v, err := strconv.Atoi(s)
	if err != nil || v < 0 {
		return defaultVal
	}
	if maxVal > 0 && v > maxVal {
		return maxVal
	}
	return v
}

func httpError(w http.ResponseWriter, code int, errType string, format string, args ...any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	msg := fmt.Sprintf(format, args...)
	json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]any{
			"message": msg,
			"type":    errType,
		},
	})
}
