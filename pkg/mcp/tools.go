package mcp

import (
	"github.com/mark3labs/mcp-go/mcp"
)

// analyzeTool describes the full-pipeline diff tool.
func analyzeTool() mcp.Tool {
	return mcp.NewTool("analyze_api_diff",
		mcp.WithDescription("Compute the semantic API diff between two versions of a source tree and return the impact report as JSON"),
		mcp.WithString("repoRoot",
			mcp.Required(),
			mcp.Description("Root of the tree under analysis (the after state)"),
		),
		mcp.WithString("beforeRoot",
			mcp.Required(),
			mcp.Description("Root of the baseline tree laid out like repoRoot"),
		),
		mcp.WithString("paths",
			mcp.Description("Comma-separated entrypoint paths relative to repoRoot; empty scans the whole tree"),
		),
		mcp.WithString("tsconfig",
			mcp.Description("Path to a tsconfig.json (allowJs/checkJs gate the JavaScript flavor)"),
		),
		mcp.WithString("mode",
			mcp.Description("Analysis mode: exports-only (default) or api-snapshot"),
		),
	)
}

// buildSnapshotTool describes the snapshot-capture tool.
func buildSnapshotTool() mcp.Tool {
	return mcp.NewTool("build_api_snapshot",
		mcp.WithDescription("Capture the fully-typed API surface of a set of entrypoints as a persistable JSON snapshot"),
		mcp.WithString("repoRoot",
			mcp.Required(),
			mcp.Description("Root of the tree to snapshot"),
		),
		mcp.WithString("paths",
			mcp.Description("Comma-separated entrypoint paths relative to repoRoot; empty scans the whole tree"),
		),
		mcp.WithString("tsconfig",
			mcp.Description("Path to a tsconfig.json"),
		),
	)
}

// compareSnapshotsTool describes the snapshot-diff tool.
func compareSnapshotsTool() mcp.Tool {
	return mcp.NewTool("compare_snapshots",
		mcp.WithDescription("Diff two previously saved API snapshots and return the findings as JSON"),
		mcp.WithString("before",
			mcp.Required(),
			mcp.Description("Path to the baseline snapshot file"),
		),
		mcp.WithString("after",
			mcp.Required(),
			mcp.Description("Path to the current snapshot file"),
		),
	)
}
