package analyzer

import (
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/gnana997/apidiff/pkg/parser"
)

// ScanOptions configures entrypoint discovery under a repo root.
type ScanOptions struct {
	// Include patterns (glob syntax, e.g. "src/**/*.ts"). Empty means every
	// analyzable source file.
	Include []string

	// Exclude patterns (glob syntax). Defaults cover the standard ignore
	// directories.
	Exclude []string

	// SkipTests drops *.test.* / *.spec.* / __tests__ files.
	SkipTests bool
}

// DefaultScanOptions returns the standard discovery configuration.
func DefaultScanOptions() ScanOptions {
	return ScanOptions{
		Exclude: []string{
			"node_modules/**",
			".git/**",
			"dist/**",
			"build/**",
			"out/**",
			".vscode/**",
		},
		SkipTests: true,
	}
}

// discoverFiles walks the tree under rootPath and returns analyzable source
// files, sorted, honoring the include/exclude patterns. Walk errors on
// individual entries are logged and skipped.
func discoverFiles(rootPath string, options ScanOptions, logger *slog.Logger) ([]string, error) {
	for _, pattern := range options.Exclude {
		if !doublestar.ValidatePattern(pattern) {
			return nil, fmt.Errorf("invalid exclude pattern: %s", pattern)
		}
	}
	for _, pattern := range options.Include {
		if !doublestar.ValidatePattern(pattern) {
			return nil, fmt.Errorf("invalid include pattern: %s", pattern)
		}
	}

	var files []string

	err := filepath.WalkDir(rootPath, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			logger.Warn("walk error", "path", path, "error", err)
			return nil
		}

		relPath, rerr := filepath.Rel(rootPath, path)
		if rerr != nil {
			relPath = path
		}
		relPath = filepath.ToSlash(relPath)

		for _, pattern := range options.Exclude {
			matched, _ := doublestar.PathMatch(pattern, relPath)
			if matched {
				if d.IsDir() {
					return filepath.SkipDir
				}
				return nil
			}
		}

		if d.IsDir() {
			return nil
		}

		if !parser.IsSourceFile(path) {
			return nil
		}

		if options.SkipTests && isTestFile(relPath) {
			return nil
		}

		if len(options.Include) > 0 {
			matched := false
			for _, pattern := range options.Include {
				if m, _ := doublestar.PathMatch(pattern, relPath); m {
					matched = true
					break
				}
			}
			if !matched {
				return nil
			}
		}

		files = append(files, path)
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Strings(files)
	return files, nil
}

// isTestFile matches the conventional test-file spellings.
func isTestFile(relPath string) bool {
	lower := strings.ToLower(relPath)
	if strings.Contains(lower, ".test.") || strings.Contains(lower, ".spec.") {
		return true
	}
	return strings.Contains(lower, "__tests__/") || strings.Contains(lower, "__mocks__/")
}
