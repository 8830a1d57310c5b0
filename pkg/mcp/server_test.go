package mcp

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func callRequest(tool string, args map[string]any) mcp.CallToolRequest {
	req := mcp.CallToolRequest{}
	req.Params.Name = tool
	req.Params.Arguments = args
	return req
}

func resultText(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	require.NotEmpty(t, result.Content)
	text, ok := mcp.AsTextContent(result.Content[0])
	require.True(t, ok)
	return text.Text
}

func writeTree(t *testing.T, files map[string]string) string {
	t.Helper()
	root := t.TempDir()
	for rel, content := range files {
		path := filepath.Join(root, rel)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
	return root
}

func TestHandleAnalyze_MissingArgs(t *testing.T) {
	s := NewServer(nil)

	result, err := s.handleAnalyze(context.Background(), callRequest("analyze_api_diff", map[string]any{}))
	require.NoError(t, err)
	assert.True(t, result.IsError)
}

func TestHandleAnalyze_MethodRemoval(t *testing.T) {
	s := NewServer(nil)

	before := writeTree(t, map[string]string{
		"src/client.ts": "export class Client { ping(): string { return 'ok'; } }\n",
	})
	after := writeTree(t, map[string]string{
		"src/client.ts": "export class Client {}\n",
	})

	result, err := s.handleAnalyze(context.Background(), callRequest("analyze_api_diff", map[string]any{
		"repoRoot":   after,
		"beforeRoot": before,
	}))
	require.NoError(t, err)
	require.False(t, result.IsError)

	var payload struct {
		Findings []struct {
			RuleID string `json:"ruleId"`
			Symbol string `json:"symbol"`
		} `json:"findings"`
	}
	require.NoError(t, json.Unmarshal([]byte(resultText(t, result)), &payload))
	require.Len(t, payload.Findings, 1)
	assert.Equal(t, "TSAPI-CLS-001", payload.Findings[0].RuleID)
	assert.Equal(t, "Client.ping", payload.Findings[0].Symbol)
}

func TestHandleBuildSnapshot(t *testing.T) {
	s := NewServer(nil)

	root := writeTree(t, map[string]string{
		"src/index.ts": "export function f(a: number): void {}\n",
	})

	result, err := s.handleBuildSnapshot(context.Background(), callRequest("build_api_snapshot", map[string]any{
		"repoRoot": root,
	}))
	require.NoError(t, err)
	require.False(t, result.IsError)

	var payload struct {
		Exports map[string]json.RawMessage `json:"exports"`
	}
	require.NoError(t, json.Unmarshal([]byte(resultText(t, result)), &payload))
	assert.Len(t, payload.Exports, 1)
}

func TestSplitPaths(t *testing.T) {
	assert.Nil(t, splitPaths(""))
	assert.Equal(t, []string{"a.ts", "b.ts"}, splitPaths("a.ts, b.ts"))
	assert.Equal(t, []string{"a.ts"}, splitPaths("a.ts,,"))
}
