package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/gnana997/apidiff/pkg/analyzer"
	mcpserver "github.com/gnana997/apidiff/pkg/mcp"
	"github.com/gnana997/apidiff/pkg/util"
)

const version = "0.1.0"

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	command := os.Args[1]
	switch command {
	case "analyze":
		runAnalyze(os.Args[2:])
	case "snapshot":
		runSnapshot(os.Args[2:])
	case "diff":
		runDiff(os.Args[2:])
	case "serve":
		logger := util.NewLogger(util.DefaultLoggerConfig())
		srv := mcpserver.NewServer(logger)
		if err := srv.ServeStdio(); err != nil {
			fmt.Fprintf(os.Stderr, "server error: %v\n", err)
			os.Exit(1)
		}
	case "version":
		fmt.Printf("apidiff %s\n", version)
	case "help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

func runAnalyze(args []string) {
	var repoRoot, beforeRoot, tsconfig, pathsArg string
	mode := analyzer.ModeExportsOnly
	verbose := false

	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "--before":
			if i+1 < len(args) {
				i++
				beforeRoot = args[i]
			}
		case "--tsconfig":
			if i+1 < len(args) {
				i++
				tsconfig = args[i]
			}
		case "--paths":
			if i+1 < len(args) {
				i++
				pathsArg = args[i]
			}
		case "--api-snapshot":
			mode = analyzer.ModeAPISnapshot
		case "--verbose":
			verbose = true
		default:
			if !strings.HasPrefix(args[i], "--") {
				repoRoot = args[i]
			}
		}
	}

	if repoRoot == "" || beforeRoot == "" {
		fmt.Fprintln(os.Stderr, "usage: apidiff analyze <repo-root> --before <baseline-root> [--paths a.ts,b.ts] [--tsconfig path] [--api-snapshot] [--verbose]")
		os.Exit(1)
	}

	logger := newLogger(verbose)

	result, err := analyzer.Run(analyzer.Options{
		RepoRoot:   absPath(repoRoot),
		BeforeRoot: absPath(beforeRoot),
		Paths:      splitList(pathsArg),
		TSConfig:   tsconfig,
		Mode:       mode,
		Logger:     logger,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "analyze failed: %v\n", err)
		os.Exit(1)
	}

	writeJSON(result)

	for _, f := range result.Findings {
		if f.Severity == "breaking" {
			os.Exit(2)
		}
	}
}

func runSnapshot(args []string) {
	var repoRoot, tsconfig, pathsArg, outPath string
	verbose := false

	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "--tsconfig":
			if i+1 < len(args) {
				i++
				tsconfig = args[i]
			}
		case "--paths":
			if i+1 < len(args) {
				i++
				pathsArg = args[i]
			}
		case "--out":
			if i+1 < len(args) {
				i++
				outPath = args[i]
			}
		case "--verbose":
			verbose = true
		default:
			if !strings.HasPrefix(args[i], "--") {
				repoRoot = args[i]
			}
		}
	}

	if repoRoot == "" {
		fmt.Fprintln(os.Stderr, "usage: apidiff snapshot <repo-root> [--paths a.ts,b.ts] [--tsconfig path] [--out snapshot.json]")
		os.Exit(1)
	}

	snap, err := analyzer.BuildAPISnapshot(analyzer.Options{
		RepoRoot: absPath(repoRoot),
		Paths:    splitList(pathsArg),
		TSConfig: tsconfig,
		Logger:   newLogger(verbose),
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "snapshot failed: %v\n", err)
		os.Exit(1)
	}
	if snap == nil {
		fmt.Fprintln(os.Stderr, "no analyzable entrypoints")
		os.Exit(1)
	}

	if outPath != "" {
		if err := analyzer.SaveAPISnapshot(outPath, snap); err != nil {
			fmt.Fprintf(os.Stderr, "failed to write snapshot: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("wrote %s (%d exports)\n", outPath, len(snap.Exports))
		return
	}

	writeJSON(snap)
}

func runDiff(args []string) {
	if len(args) < 2 {
		fmt.Fprintln(os.Stderr, "usage: apidiff diff <before-snapshot.json> <after-snapshot.json>")
		os.Exit(1)
	}

	before, err := analyzer.LoadAPISnapshot(args[0])
	if err != nil {
		fmt.Fprintf(os.Stderr, "cannot read baseline snapshot: %v\n", err)
		os.Exit(1)
	}
	after, err := analyzer.LoadAPISnapshot(args[1])
	if err != nil {
		fmt.Fprintf(os.Stderr, "cannot read current snapshot: %v\n", err)
		os.Exit(1)
	}

	diff := analyzer.ComputeAPIDiff(before, after)
	findings := analyzer.APIDiffToFindings(diff)

	writeJSON(map[string]any{
		"diff":     diff,
		"findings": findings,
	})

	for _, f := range findings {
		if f.Severity == "breaking" {
			os.Exit(2)
		}
	}
}

func newLogger(verbose bool) *slog.Logger {
	config := util.DefaultLoggerConfig()
	if verbose {
		config.Level = util.LevelDebug
	}
	return util.NewLogger(config)
}

func absPath(path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return path
	}
	return abs
}

func splitList(raw string) []string {
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

func writeJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		fmt.Fprintf(os.Stderr, "failed to encode output: %v\n", err)
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("Usage: apidiff <command>")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  analyze    Diff a tree against a baseline and report breaking changes")
	fmt.Println("  snapshot   Capture the typed API surface of a tree as JSON")
	fmt.Println("  diff       Diff two saved API snapshots")
	fmt.Println("  serve      Start the MCP server on stdio")
	fmt.Println("  version    Print version")
	fmt.Println("  help       Show this help message")
}
