package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/DHCross/WovenWebApp-sub001/internal/assetcache"
	"github.com/DHCross/WovenWebApp-sub001/internal/graphics"
	"github.com/DHCross/WovenWebApp-sub001/internal/provider"
	"github.com/DHCross/WovenWebApp-sub001/internal/storage"
	"github.com/DHCross/WovenWebApp-sub001/internal/transit"
)

const testToken = "test-token-12345"

type stubRunner struct {
	lastParams transit.Params
	result     *transit.Result
	err        error
}

func (s *stubRunner) GetTransits(_ context.Context, params transit.Params) (*transit.Result, error) {
	s.lastParams = params
	if s.err != nil {
		return nil, s.err
	}
	return s.result, nil
}

func orb(v float64) *float64 { return &v }

func cannedResult() *transit.Result {
	return &transit.Result{
		TransitsByDate: map[string][]provider.Aspect{
			"2025-06-01": {
				{P1Name: "Sun", P2Name: "Mars", Aspect: "square", Orb: orb(1.2)},
				{P1Name: "Moon", P2Name: "Venus", Aspect: "trine", Orb: orb(0.4)},
			},
			"2025-06-02": {
				{P1Name: "Sun", P2Name: "Mars", Aspect: "square", Orb: orb(0.8)},
			},
		},
		RetroFlagsByDate: map[string]map[string]bool{
			"2025-06-01": {"Mercury": true},
		},
		ProvenanceByDate: map[string]transit.Provenance{
			"2025-06-01": {Date: "2025-06-01", Strategy: "coordinate", Endpoint: "/transit-aspects-data", Attempts: 1, AspectCount: 2},
			"2025-06-02": {Date: "2025-06-02", Strategy: "coordinate", Endpoint: "/transit-aspects-data", Attempts: 1, AspectCount: 1},
		},
	}
}

func setupAppHandler(t *testing.T, runner TransitRunner) (http.Handler, *storage.Store, *assetcache.Cache) {
	t.Helper()
	store, err := storage.Open(":memory:")
	if err != nil {
		t.Fatalf("Open(:memory:) failed: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	cache := assetcache.New(0, nil)

	handler := NewAppHandler(AppDeps{
		Runner: runner,
		Cache:  cache,
		Store:  store,
		Token:  testToken,
	})
	return handler, store, cache
}

func authReq(method, url, body, token string) *http.Request {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, url, reader)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req
}

const transitsBody = `{
	"subject": {
		"name": "Dan",
		"year": 1973, "month": 7, "day": 24, "hour": 14, "minute": 30,
		"latitude": 40.0167, "longitude": -75.3, "timezone": "America/New_York",
		"city": "Bryn Mawr", "nation": "US"
	},
	"start_date": "2025-06-01",
	"end_date": "2025-06-02"
}`

func TestTransits_HappyPath(t *testing.T) {
	runner := &stubRunner{result: cannedResult()}
	h, store, _ := setupAppHandler(t, runner)

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, authReq(http.MethodPost, "/transits", transitsBody, testToken))

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rr.Code, rr.Body.String())
	}

	var resp TransitsResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if len(resp.TransitsByDate) != 2 {
		t.Errorf("transits_by_date has %d dates, want 2", len(resp.TransitsByDate))
	}
	if resp.ProvenanceByDate["2025-06-01"].Strategy != "coordinate" {
		t.Errorf("provenance = %+v", resp.ProvenanceByDate["2025-06-01"])
	}
	if !resp.RetroFlagsByDate["2025-06-01"]["Mercury"] {
		t.Error("retro flags not carried through")
	}
	if resp.WindowID == "" {
		t.Fatal("window_id missing")
	}
	if len(runner.lastParams.Samples) != 2 {
		t.Errorf("runner received %d samples, want 2", len(runner.lastParams.Samples))
	}

	run, err := store.GetWindowRun(resp.WindowID)
	if err != nil {
		t.Fatalf("run not recorded: %v", err)
	}
	if run.SubjectName != "Dan" || run.SampleCount != 2 || run.AspectCount != 3 {
		t.Errorf("recorded run = %+v", run)
	}
	if run.Status != "completed" {
		t.Errorf("Status = %q, want completed", run.Status)
	}

	records, err := store.ListProvenance(resp.WindowID)
	if err != nil {
		t.Fatalf("ListProvenance: %v", err)
	}
	if len(records) != 2 {
		t.Errorf("got %d provenance records, want 2", len(records))
	}
}

func TestTransits_PartialStatusOnExhaustedDate(t *testing.T) {
	result := cannedResult()
	result.ProvenanceByDate["2025-06-03"] = transit.Provenance{
		Date: "2025-06-03", Strategy: "alternate", Attempts: 3, AspectCount: 0,
	}
	runner := &stubRunner{result: result}
	h, store, _ := setupAppHandler(t, runner)

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, authReq(http.MethodPost, "/transits", transitsBody, testToken))
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rr.Code, rr.Body.String())
	}

	var resp TransitsResponse
	json.NewDecoder(rr.Body).Decode(&resp)

	run, err := store.GetWindowRun(resp.WindowID)
	if err != nil {
		t.Fatalf("GetWindowRun: %v", err)
	}
	if run.Status != "partial" {
		t.Errorf("Status = %q, want partial", run.Status)
	}
}

func TestTransits_CompressQueryParam(t *testing.T) {
	runner := &stubRunner{result: cannedResult()}
	h, _, _ := setupAppHandler(t, runner)

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, authReq(http.MethodPost, "/transits?compress=1", transitsBody, testToken))
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rr.Code, rr.Body.String())
	}

	var resp TransitsResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if resp.Compressed == nil {
		t.Fatal("compressed section missing")
	}
	if len(resp.Compressed.Days) != 2 {
		t.Errorf("compressed days = %d, want 2", len(resp.Compressed.Days))
	}
	if len(resp.Compressed.Days["2025-06-01"]) != 2 {
		t.Errorf("day 1 entries = %d, want 2", len(resp.Compressed.Days["2025-06-01"]))
	}
	if _, ok := resp.Compressed.Deltas["2025-06-02"]; !ok {
		t.Error("delta for second day missing")
	}
	if resp.Compressed.Codebook == nil || len(resp.Compressed.Codebook.Bodies) == 0 {
		t.Error("codebook missing or empty")
	}
}

func TestTransits_ValidationErrors(t *testing.T) {
	runner := &stubRunner{result: cannedResult()}
	h, _, _ := setupAppHandler(t, runner)

	cases := []struct {
		name string
		body string
	}{
		{"missing name", `{"subject":{},"start_date":"2025-06-01","end_date":"2025-06-02"}`},
		{"missing dates", `{"subject":{"name":"Dan"}}`},
		{"inverted dates", `{"subject":{"name":"Dan","timezone":"UTC"},"start_date":"2025-06-05","end_date":"2025-06-01"}`},
		{"bad step", `{"subject":{"name":"Dan","timezone":"UTC"},"start_date":"2025-06-01","end_date":"2025-06-02","step":"fast"}`},
		{"not json", `{{`},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rr := httptest.NewRecorder()
			h.ServeHTTP(rr, authReq(http.MethodPost, "/transits", tc.body, testToken))
			if rr.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400; body = %s", rr.Code, rr.Body.String())
			}
		})
	}
}

func TestTransits_AuthRequired(t *testing.T) {
	runner := &stubRunner{result: cannedResult()}
	h, _, _ := setupAppHandler(t, runner)

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, authReq(http.MethodPost, "/transits", transitsBody, ""))
	if rr.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rr.Code)
	}

	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, authReq(http.MethodPost, "/transits", transitsBody, "wrong-token"))
	if rr.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rr.Code)
	}
}

func TestHealth_Open(t *testing.T) {
	h, _, _ := setupAppHandler(t, &stubRunner{result: cannedResult()})

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, authReq(http.MethodGet, "/health", "", ""))
	if rr.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rr.Code)
	}
}

func TestTransits_ChartAssetsIngested(t *testing.T) {
	result := cannedResult()
	result.ChartAssets = []graphics.Packet{
		{Data: []byte("<svg></svg>"), ContentType: "image/svg+xml", Format: "svg", FieldPath: "chart"},
	}
	runner := &stubRunner{result: result}
	h, _, cache := setupAppHandler(t, runner)

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, authReq(http.MethodPost, "/transits", transitsBody, testToken))
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rr.Code, rr.Body.String())
	}

	var resp TransitsResponse
	json.NewDecoder(rr.Body).Decode(&resp)
	if len(resp.ChartAssets) != 1 {
		t.Fatalf("got %d chart assets, want 1", len(resp.ChartAssets))
	}
	if resp.ChartAssets[0].ID == "" {
		t.Fatal("chart asset missing id")
	}
	if cache.Len() != 1 {
		t.Errorf("cache holds %d entries, want 1", cache.Len())
	}
}

func TestListWindows(t *testing.T) {
	runner := &stubRunner{result: cannedResult()}
	h, _, _ := setupAppHandler(t, runner)

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, authReq(http.MethodPost, "/transits", transitsBody, testToken))
	if rr.Code != http.StatusOK {
		t.Fatalf("seed fetch failed: %s", rr.Body.String())
	}

	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, authReq(http.MethodGet, "/windows", "", testToken))
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rr.Code, rr.Body.String())
	}

	var summaries []windowSummary
	if err := json.NewDecoder(rr.Body).Decode(&summaries); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if len(summaries) != 1 {
		t.Fatalf("got %d runs, want 1", len(summaries))
	}
	if summaries[0].SubjectName != "Dan" {
		t.Errorf("SubjectName = %q", summaries[0].SubjectName)
	}

	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, authReq(http.MethodGet, "/windows/"+summaries[0].ID, "", testToken))
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rr.Code, rr.Body.String())
	}
	if !strings.Contains(rr.Body.String(), `"transits_by_date"`) {
		t.Error("stored result document not returned")
	}

	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, authReq(http.MethodGet, "/windows/"+summaries[0].ID+"/provenance", "", testToken))
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rr.Code, rr.Body.String())
	}
}

func TestGetWindow_NotFound(t *testing.T) {
	h, _, _ := setupAppHandler(t, &stubRunner{result: cannedResult()})

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, authReq(http.MethodGet, "/windows/nope", "", testToken))
	if rr.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rr.Code)
	}
}
