package api

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/DHCross/WovenWebApp-sub001/internal/storage"
)

func toolText(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	if len(result.Content) == 0 {
		t.Fatal("no content in result")
	}
	tc, ok := result.Content[0].(mcp.TextContent)
	if !ok {
		t.Fatalf("expected TextContent, got %T", result.Content[0])
	}
	return tc.Text
}

func makeCallToolRequest(name string, args map[string]interface{}) mcp.CallToolRequest {
	return mcp.CallToolRequest{
		Params: mcp.CallToolParams{
			Name:      name,
			Arguments: args,
		},
	}
}

func makeReadResourceRequest(uri string) mcp.ReadResourceRequest {
	return mcp.ReadResourceRequest{
		Params: mcp.ReadResourceParams{
			URI: uri,
		},
	}
}

func newTestMCPDeps(t *testing.T) (AppDeps, *storage.Store) {
	t.Helper()
	store, err := storage.Open(":memory:")
	if err != nil {
		t.Fatalf("opening store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	return AppDeps{
		Runner: &stubRunner{result: cannedResult()},
		Store:  store,
	}, store
}

func TestMCPTool_FetchTransits(t *testing.T) {
	deps, store := newTestMCPDeps(t)
	handler := mcpFetchTransits(deps)

	req := makeCallToolRequest("fetch_transits", map[string]interface{}{
		"subject":    `{"name":"Dan","year":1973,"month":7,"day":24,"timezone":"UTC"}`,
		"start_date": "2025-06-01",
		"end_date":   "2025-06-02",
	})

	result, err := handler(context.Background(), req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.IsError {
		t.Fatalf("tool error: %s", toolText(t, result))
	}

	var resp TransitsResponse
	if err := json.Unmarshal([]byte(toolText(t, result)), &resp); err != nil {
		t.Fatalf("parsing tool output: %v", err)
	}
	if len(resp.TransitsByDate) != 2 {
		t.Errorf("transits_by_date has %d dates, want 2", len(resp.TransitsByDate))
	}
	if resp.WindowID == "" {
		t.Fatal("window_id missing")
	}
	if _, err := store.GetWindowRun(resp.WindowID); err != nil {
		t.Errorf("run not recorded: %v", err)
	}
}

func TestMCPTool_FetchTransits_InvalidSubject(t *testing.T) {
	deps, _ := newTestMCPDeps(t)
	handler := mcpFetchTransits(deps)

	req := makeCallToolRequest("fetch_transits", map[string]interface{}{
		"subject":    `not json`,
		"start_date": "2025-06-01",
		"end_date":   "2025-06-02",
	})

	result, err := handler(context.Background(), req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.IsError {
		t.Fatal("expected tool error for invalid subject JSON")
	}
}

func TestMCPTool_FetchTransits_MissingArgs(t *testing.T) {
	deps, _ := newTestMCPDeps(t)
	handler := mcpFetchTransits(deps)

	req := makeCallToolRequest("fetch_transits", map[string]interface{}{
		"subject": `{"name":"Dan"}`,
	})

	result, err := handler(context.Background(), req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.IsError {
		t.Fatal("expected tool error for missing dates")
	}
}

func TestMCPTool_CompressWindow(t *testing.T) {
	deps, _ := newTestMCPDeps(t)
	handler := mcpCompressWindow(deps)

	transits := `{
		"2025-06-01": [
			{"p1_name":"Sun","p2_name":"Mars","aspect":"square","orbit":1.2},
			{"p1_name":"Moon","p2_name":"Venus","aspect":"trine","orbit":0.4}
		],
		"2025-06-02": [
			{"p1_name":"Sun","p2_name":"Mars","aspect":"square","orbit":0.85}
		]
	}`

	req := makeCallToolRequest("compress_window", map[string]interface{}{
		"transits": transits,
	})

	result, err := handler(context.Background(), req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.IsError {
		t.Fatalf("tool error: %s", toolText(t, result))
	}

	var out CompressedWindow
	if err := json.Unmarshal([]byte(toolText(t, result)), &out); err != nil {
		t.Fatalf("parsing tool output: %v", err)
	}
	if len(out.Days["2025-06-01"]) != 2 || len(out.Days["2025-06-02"]) != 1 {
		t.Errorf("days = %+v", out.Days)
	}
	// orb 0.85° → 85 centidegrees
	if out.Days["2025-06-02"][0].Orb != 85 {
		t.Errorf("orb = %d, want 85", out.Days["2025-06-02"][0].Orb)
	}
	delta, ok := out.Deltas["2025-06-02"]
	if !ok {
		t.Fatal("delta for second day missing")
	}
	if len(delta.Updated) != 1 || len(delta.Removed) != 1 {
		t.Errorf("delta = %+v", delta)
	}
}

func TestMCPTool_CompressWindow_EmptyInput(t *testing.T) {
	deps, _ := newTestMCPDeps(t)
	handler := mcpCompressWindow(deps)

	req := makeCallToolRequest("compress_window", map[string]interface{}{
		"transits": `{}`,
	})

	result, err := handler(context.Background(), req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.IsError {
		t.Fatal("expected tool error for empty transits")
	}
}

func TestMCPResource_RecentWindows(t *testing.T) {
	deps, store := newTestMCPDeps(t)

	run := storage.WindowRun{
		ID:          "run-1",
		CreatedAt:   time.Now().UTC(),
		SubjectName: "Dan",
		StartDate:   "2025-06-01",
		EndDate:     "2025-06-07",
		SampleCount: 7,
		Status:      "completed",
	}
	if err := store.SaveWindowRun(run); err != nil {
		t.Fatalf("SaveWindowRun: %v", err)
	}

	handler := mcpResourceRecentWindows(deps)
	contents, err := handler(context.Background(), makeReadResourceRequest("woven://windows/recent"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(contents) != 1 {
		t.Fatalf("got %d contents, want 1", len(contents))
	}

	tc, ok := contents[0].(mcp.TextResourceContents)
	if !ok {
		t.Fatalf("expected TextResourceContents, got %T", contents[0])
	}

	var summaries []windowSummary
	if err := json.Unmarshal([]byte(tc.Text), &summaries); err != nil {
		t.Fatalf("parsing resource: %v", err)
	}
	if len(summaries) != 1 || summaries[0].ID != "run-1" {
		t.Errorf("summaries = %+v", summaries)
	}
}
