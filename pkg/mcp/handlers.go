package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/gnana997/apidiff/pkg/analyzer"
)

// handleAnalyze runs the full pipeline and returns the aggregate result.
func (s *Server) handleAnalyze(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	repoRoot, err := req.RequireString("repoRoot")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	beforeRoot, err := req.RequireString("beforeRoot")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	mode := analyzer.ModeExportsOnly
	if m := req.GetString("mode", ""); m == string(analyzer.ModeAPISnapshot) {
		mode = analyzer.ModeAPISnapshot
	}

	result, err := analyzer.Run(analyzer.Options{
		RepoRoot:   repoRoot,
		BeforeRoot: beforeRoot,
		Paths:      splitPaths(req.GetString("paths", "")),
		TSConfig:   req.GetString("tsconfig", ""),
		Mode:       mode,
		Logger:     s.logger,
	})
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("analyze failed: %v", err)), nil
	}

	return jsonResult(result)
}

// handleBuildSnapshot captures the API surface of the given entrypoints.
func (s *Server) handleBuildSnapshot(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	repoRoot, err := req.RequireString("repoRoot")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	snap, err := analyzer.BuildAPISnapshot(analyzer.Options{
		RepoRoot: repoRoot,
		Paths:    splitPaths(req.GetString("paths", "")),
		TSConfig: req.GetString("tsconfig", ""),
		Logger:   s.logger,
	})
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("snapshot failed: %v", err)), nil
	}
	if snap == nil {
		return mcp.NewToolResultError("no analyzable entrypoints"), nil
	}

	return jsonResult(snap)
}

// handleCompareSnapshots diffs two saved snapshots.
func (s *Server) handleCompareSnapshots(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	beforePath, err := req.RequireString("before")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	afterPath, err := req.RequireString("after")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	before, err := analyzer.LoadAPISnapshot(beforePath)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	after, err := analyzer.LoadAPISnapshot(afterPath)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	diff := analyzer.ComputeAPIDiff(before, after)
	findings := analyzer.APIDiffToFindings(diff)

	return jsonResult(map[string]any{
		"diff":     diff,
		"findings": findings,
	})
}

func splitPaths(raw string) []string {
	if raw == "" {
		return nil
	}
	var out []string
	for _, p := range strings.Split(raw, ",") {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to encode result: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}
