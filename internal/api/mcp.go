package api

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/DHCross/WovenWebApp-sub001/internal/compress"
	"github.com/DHCross/WovenWebApp-sub001/internal/provider"
)

// NewMCPServer creates an MCP server exposing window fetching and
// compression as tools, plus recent run history as a resource.
func NewMCPServer(deps AppDeps) *server.MCPServer {
	s := server.NewMCPServer(
		"woven",
		"1.0.0",
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(false, true),
		server.WithInstructions("woven transit window fetcher: resolves per-day transit aspects for a subject and compresses them for report generation."),
		server.WithRecovery(),
	)

	s.AddTool(
		mcp.NewTool("fetch_transits",
			mcp.WithDescription("Fetch per-day transit aspects for a subject over a date window. The subject argument is a JSON object with name, birth date/time fields, and either latitude/longitude/timezone or city/nation."),
			mcp.WithString("subject", mcp.Description("JSON subject object"), mcp.Required()),
			mcp.WithString("start_date", mcp.Description("Window start, YYYY-MM-DD"), mcp.Required()),
			mcp.WithString("end_date", mcp.Description("Window end, YYYY-MM-DD (inclusive)"), mcp.Required()),
			mcp.WithString("step", mcp.Description("Sampling step as a duration (default 24h)")),
			mcp.WithBoolean("capture_wheel", mcp.Description("Also capture one rendered chart wheel for the window")),
			mcp.WithBoolean("compress", mcp.Description("Include the codebook-compressed encoding in the result")),
		),
		mcpFetchTransits(deps),
	)

	s.AddTool(
		mcp.NewTool("compress_window",
			mcp.WithDescription("Compress a map of date → aspect list against a shared window codebook, including day-over-day deltas."),
			mcp.WithString("transits", mcp.Description("JSON object mapping YYYY-MM-DD to arrays of aspects"), mcp.Required()),
			mcp.WithNumber("max_aspects", mcp.Description("Per-day cap, tightest orbs kept (default 40)")),
		),
		mcpCompressWindow(deps),
	)

	s.AddResource(
		mcp.NewResource(
			"woven://windows/recent",
			"Recent Window Runs",
			mcp.WithResourceDescription("Last 10 window fetch runs (summaries only)"),
			mcp.WithMIMEType("application/json"),
		),
		mcpResourceRecentWindows(deps),
	)

	return s
}

func mcpFetchTransits(deps AppDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		subjectJSON, err := req.RequireString("subject")
		if err != nil {
			return mcpError("subject is required"), nil
		}
		startDate, err := req.RequireString("start_date")
		if err != nil {
			return mcpError("start_date is required"), nil
		}
		endDate, err := req.RequireString("end_date")
		if err != nil {
			return mcpError("end_date is required"), nil
		}

		var sub SubjectPayload
		if err := json.Unmarshal([]byte(subjectJSON), &sub); err != nil {
			return mcpError(fmt.Sprintf("invalid subject JSON: %v", err)), nil
		}

		resp, err := executeWindow(ctx, deps, TransitsRequest{
			Subject:      sub,
			StartDate:    startDate,
			EndDate:      endDate,
			Step:         req.GetString("step", ""),
			CaptureWheel: req.GetBool("capture_wheel", false),
			Compress:     req.GetBool("compress", false),
		})
		if err != nil {
			return mcpError(fmt.Sprintf("fetch failed: %v", err)), nil
		}

		b, err := json.Marshal(resp)
		if err != nil {
			return mcpError(fmt.Sprintf("failed to marshal result: %v", err)), nil
		}
		return mcpText(string(b)), nil
	}
}

func mcpCompressWindow(deps AppDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		transitsJSON, err := req.RequireString("transits")
		if err != nil {
			return mcpError("transits is required"), nil
		}

		var byDate map[string][]provider.Aspect
		if err := json.Unmarshal([]byte(transitsJSON), &byDate); err != nil {
			return mcpError(fmt.Sprintf("invalid transits JSON: %v", err)), nil
		}
		if len(byDate) == 0 {
			return mcpError("transits must contain at least one day"), nil
		}

		maxAspects := req.GetInt("max_aspects", deps.MaxAspects)
		if maxAspects <= 0 {
			maxAspects = compress.DefaultMaxAspects
		}

		b, err := json.Marshal(compressWindow(byDate, maxAspects))
		if err != nil {
			return mcpError(fmt.Sprintf("failed to marshal result: %v", err)), nil
		}
		return mcpText(string(b)), nil
	}
}

func mcpResourceRecentWindows(deps AppDeps) server.ResourceHandlerFunc {
	return func(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		if deps.Store == nil {
			return nil, fmt.Errorf("run history is not enabled")
		}

		runs, err := deps.Store.ListWindowRuns(10)
		if err != nil {
			return nil, fmt.Errorf("failed to list runs: %w", err)
		}

		summaries := make([]windowSummary, len(runs))
		for i, run := range runs {
			summaries[i] = summarize(run)
		}

		b, err := json.Marshal(summaries)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal runs: %w", err)
		}

		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      req.Params.URI,
				MIMEType: "application/json",
				Text:     string(b),
			},
		}, nil
	}
}

func mcpText(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: text},
		},
	}
}

func mcpError(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: msg},
		},
		IsError: true,
	}
}
