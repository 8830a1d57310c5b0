package analyzer

import (
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gnana997/apidiff/pkg/diffengine"
	"github.com/gnana997/apidiff/pkg/report"
	"github.com/gnana997/apidiff/pkg/snapshot"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// writeTree lays out files (relative path → content) under a fresh temp dir.
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

func TestRun_MethodRemoval(t *testing.T) {
	before := writeTree(t, map[string]string{
		"src/client.ts": "export class Client { ping(): string { return 'ok'; } }\n",
	})
	after := writeTree(t, map[string]string{
		"src/client.ts": "export class Client {}\n",
	})

	result, err := Run(Options{RepoRoot: after, BeforeRoot: before})
	require.NoError(t, err)
	require.NotNil(t, result)

	require.Len(t, result.Findings, 1)
	f := result.Findings[0]
	assert.Equal(t, diffengine.RuleClassMethodRemoved, f.RuleID)
	assert.Equal(t, report.SeverityBreaking, f.Severity)
	assert.Equal(t, "Client.ping", f.Symbol)
	assert.Equal(t, "Method 'Client.ping' was removed from class", f.Message)

	assert.Equal(t, []string{"Client", "Client.ping"}, result.SymbolNames)
	assert.Equal(t, []string{"src/client.ts"}, result.FilePaths)
	assert.Equal(t, []string{diffengine.RuleClassMethodRemoved}, result.RuleIDs)
	assert.Equal(t, []string{report.SeverityBreaking}, result.Severities)
}

func TestRun_OptionalToRequired(t *testing.T) {
	before := writeTree(t, map[string]string{
		"src/greet.ts": "export function greet(who?: string): string { return ''; }\n",
	})
	after := writeTree(t, map[string]string{
		"src/greet.ts": "export function greet(who: string): string { return ''; }\n",
	})

	result, err := Run(Options{RepoRoot: after, BeforeRoot: before})
	require.NoError(t, err)

	require.Len(t, result.Findings, 1)
	f := result.Findings[0]
	assert.Equal(t, diffengine.RuleFnOptionalToRequired, f.RuleID)
	assert.Equal(t, "greet", f.Symbol)
	assert.Contains(t, f.Before, "who?: string")
	assert.Contains(t, f.After, "who: string")
}

func TestRun_CleanWhenUnchanged(t *testing.T) {
	files := map[string]string{
		"src/api.ts": "export function f(a: number): void {}\n",
	}
	before := writeTree(t, files)
	after := writeTree(t, files)

	result, err := Run(Options{RepoRoot: after, BeforeRoot: before})
	require.NoError(t, err)

	assert.Empty(t, result.Findings)
	assert.Empty(t, result.FilePaths)
}

func TestRun_AddedOptionalParamNotBreaking(t *testing.T) {
	before := writeTree(t, map[string]string{
		"src/api.ts": "export function f(a: number): void {}\n",
	})
	after := writeTree(t, map[string]string{
		"src/api.ts": "export function f(a: number, b?: string): void {}\n",
	})

	result, err := Run(Options{RepoRoot: after, BeforeRoot: before})
	require.NoError(t, err)

	for _, f := range result.Findings {
		assert.NotEqual(t, report.SeverityBreaking, f.Severity,
			"adding an optional parameter is not breaking: %+v", f)
	}
}

func TestRun_Deterministic(t *testing.T) {
	before := writeTree(t, map[string]string{
		"src/a.ts": "export function one(x: number): void {}\nexport const gone = 1;\n",
		"src/b.ts": "export interface Opts { timeout: number; }\n",
	})
	after := writeTree(t, map[string]string{
		"src/a.ts": "export function one(x: string): void {}\n",
		"src/b.ts": "export interface Opts { timeout: string; }\n",
	})

	run := func() []byte {
		result, err := Run(Options{RepoRoot: after, BeforeRoot: before})
		require.NoError(t, err)
		data, merr := json.Marshal(result)
		require.NoError(t, merr)
		return data
	}

	first := run()
	second := run()
	assert.Equal(t, string(first), string(second), "two runs over the same inputs must be byte-identical")
}

func TestRun_InvalidConfigurationYieldsEmptyReport(t *testing.T) {
	result, err := Run(Options{RepoRoot: ""})
	require.NoError(t, err)
	assert.Empty(t, result.Findings)

	result, err = Run(Options{RepoRoot: t.TempDir(), TSConfig: "/does/not/exist.json"})
	require.NoError(t, err)
	assert.Empty(t, result.Findings)
}

func TestRun_IgnoresNodeModules(t *testing.T) {
	before := writeTree(t, map[string]string{
		"src/api.ts":                  "export function f(): void {}\n",
		"node_modules/dep/index.ts":   "export function dep(): void {}\n",
		"dist/api.ts":                 "export function built(): void {}\n",
		"src/api.test.ts":             "export function t(): void {}\n",
	})
	after := writeTree(t, map[string]string{
		"src/api.ts": "export function f(): void {}\n",
	})

	// Scanning the before tree must only surface src/api.ts.
	logger := testLogger()
	files, err := discoverFiles(before, DefaultScanOptions(), logger)
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, filepath.Join(before, "src/api.ts"), files[0])

	_ = after
}

func TestBuildAPISnapshot(t *testing.T) {
	root := writeTree(t, map[string]string{
		"src/index.ts": `export function greet(who?: string): string { return ''; }
export class Client { ping(): string { return 'ok'; } }
export interface Opts { timeout: number; }
export const limit = 10;
`,
	})

	snap, err := BuildAPISnapshot(Options{RepoRoot: root})
	require.NoError(t, err)
	require.NotNil(t, snap)

	names := make(map[string]string)
	for _, shape := range snap.Exports {
		names[shape.Name] = string(shape.Kind)
	}

	assert.Equal(t, "function", names["greet"])
	assert.Equal(t, "class", names["Client"])
	assert.Equal(t, "const", names["limit"])
	assert.Equal(t, "interface", names["Opts"])
}

func TestAPISnapshotRoundTrip(t *testing.T) {
	root := writeTree(t, map[string]string{
		"src/index.ts": "export function f(a: number): void {}\n",
	})

	snap, err := BuildAPISnapshot(Options{RepoRoot: root})
	require.NoError(t, err)
	require.NotNil(t, snap)

	path := filepath.Join(t.TempDir(), "snap.json")
	require.NoError(t, SaveAPISnapshot(path, snap))

	loaded, err := LoadAPISnapshot(path)
	require.NoError(t, err)
	assert.Equal(t, len(snap.Exports), len(loaded.Exports))
	assert.Equal(t, snap.AnalysisMode, loaded.AnalysisMode)
}

func TestComputeExportsDiff(t *testing.T) {
	p1, err := snapshot.NewProject(nil)
	require.NoError(t, err)
	defer p1.Close()
	p2, err := snapshot.NewProject(nil)
	require.NoError(t, err)
	defer p2.Close()

	before, err := snapshot.Build(p1, "/virtual/api.ts", []byte(`export const a = 1;
export const b = 2;
`))
	require.NoError(t, err)

	after, err := snapshot.Build(p2, "/virtual/api.ts", []byte(`export const b = 2;
export const c = 3;
`))
	require.NoError(t, err)

	diff := ComputeExportsDiff(before, after)
	assert.Equal(t, []string{"c"}, diff.Added)
	assert.Equal(t, []string{"a"}, diff.Removed)
	assert.Empty(t, diff.Changed)
}

func TestRun_TSConfigGatesJSFlavor(t *testing.T) {
	root := t.TempDir()
	tsconfig := filepath.Join(root, "tsconfig.json")
	require.NoError(t, os.WriteFile(tsconfig,
		[]byte(`{"compilerOptions": {"allowJs": true, "checkJs": true}}`), 0o644))

	cfg, err := loadTSConfig(tsconfig)
	require.NoError(t, err)
	assert.True(t, cfg.CompilerOptions.AllowJS)
	assert.True(t, cfg.CompilerOptions.CheckJS)

	assert.Equal(t, "TypedJS", string(analysisModeFor("/repo/src/a.js", cfg)))
	assert.Equal(t, "ModuleSurface", string(analysisModeFor("/repo/src/a.js", nil)))
	assert.Equal(t, "TypeScript", string(analysisModeFor("/repo/src/a.ts", nil)))
}
