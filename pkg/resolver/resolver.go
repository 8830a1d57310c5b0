// Package resolver maps module specifiers to concrete files on disk.
//
// TypeScript sources routinely import with rewritten or missing extensions
// ("./util.js" for util.ts, "./util" for util/index.ts); the resolver expands
// each specifier into an ordered candidate list and probes the filesystem.
// Results, including misses, are memoized per (specifier, referrer) pair.
package resolver

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultCacheSize bounds the resolution memo table.
const DefaultCacheSize = 4096

// indexNames are probed, in order, when a candidate resolves to a directory.
var indexNames = []string{"index.ts", "index.tsx", "index.d.ts", "index.js", "index.jsx"}

// Resolver resolves module specifiers relative to a referring file.
//
// A miss is normal and non-fatal: bare specifiers (npm packages) and files
// that genuinely don't exist both resolve to nothing, and callers proceed
// without cross-file enrichment. The cache is append-only within a run.
type Resolver struct {
	cache  *lru.Cache[cacheKey, string]
	logger *slog.Logger

	// statFile allows tests to substitute the filesystem probe.
	statFile func(path string) fileKind
}

type cacheKey struct {
	specifier string
	referrer  string
}

type fileKind int

const (
	fileMissing fileKind = iota
	fileRegular
	fileDirectory
)

// New creates a resolver with the given cache size (0 for the default).
// Logger can be nil.
func New(cacheSize int, logger *slog.Logger) (*Resolver, error) {
	if cacheSize <= 0 {
		cacheSize = DefaultCacheSize
	}
	if logger == nil {
		logger = slog.Default()
	}

	cache, err := lru.New[cacheKey, string](cacheSize)
	if err != nil {
		return nil, err
	}

	return &Resolver{
		cache:    cache,
		logger:   logger,
		statFile: statDisk,
	}, nil
}

// Resolve maps a module specifier plus the path of the importing file to a
// concrete file. The second return is false when nothing resolved; cached
// misses are stored as an empty path.
func (r *Resolver) Resolve(specifier, referrerPath string) (string, bool) {
	key := cacheKey{specifier: specifier, referrer: referrerPath}
	if cached, ok := r.cache.Get(key); ok {
		return cached, cached != ""
	}

	resolved := r.resolveUncached(specifier, referrerPath)
	r.cache.Add(key, resolved)

	if resolved == "" {
		r.logger.Debug("module specifier did not resolve",
			"specifier", specifier,
			"referrer", referrerPath)
		return "", false
	}
	return resolved, true
}

func (r *Resolver) resolveUncached(specifier, referrerPath string) string {
	// Bare specifiers are package imports; the analyzer never follows them
	// into node_modules.
	if !strings.HasPrefix(specifier, ".") && !strings.HasPrefix(specifier, "/") && !filepath.IsAbs(specifier) {
		return ""
	}

	base := filepath.Dir(referrerPath)

	for _, candidate := range expandCandidates(specifier) {
		path := candidate
		if !filepath.IsAbs(path) {
			path = filepath.Join(base, path)
		}
		path = filepath.Clean(path)

		switch r.statFile(path) {
		case fileRegular:
			return path
		case fileDirectory:
			for _, index := range indexNames {
				probe := filepath.Join(path, index)
				if r.statFile(probe) == fileRegular {
					return probe
				}
			}
		}
	}

	return ""
}

// expandCandidates builds the ordered candidate list for a specifier.
//
// Extension rewriting follows the compiler's moduleResolution behavior:
// a ".js" specifier in TypeScript source usually names a ".ts" file on disk,
// and extensionless specifiers try each source extension before index files.
func expandCandidates(specifier string) []string {
	switch {
	case strings.HasSuffix(specifier, ".js"):
		stem := strings.TrimSuffix(specifier, ".js")
		return []string{
			stem + ".ts",
			stem + ".tsx",
			stem + ".d.ts",
			stem + "/index.ts",
			stem + "/index.tsx",
			stem + "/index.d.ts",
			specifier,
		}
	case strings.HasSuffix(specifier, ".jsx"):
		stem := strings.TrimSuffix(specifier, ".jsx")
		return []string{
			stem + ".tsx",
			stem + ".ts",
			stem + ".d.ts",
			specifier,
		}
	case strings.HasSuffix(specifier, ".mjs"):
		stem := strings.TrimSuffix(specifier, ".mjs")
		return []string{
			stem + ".mts",
			specifier,
		}
	case strings.HasSuffix(specifier, ".cjs"):
		stem := strings.TrimSuffix(specifier, ".cjs")
		return []string{
			stem + ".cts",
			specifier,
		}
	case hasSourceExtension(specifier):
		return []string{specifier}
	default:
		// Extensionless: try source extensions, then index files.
		return []string{
			specifier + ".ts",
			specifier + ".tsx",
			specifier + ".d.ts",
			specifier + ".js",
			specifier + ".jsx",
			specifier + "/index.ts",
			specifier + "/index.tsx",
			specifier + "/index.d.ts",
			specifier + "/index.js",
			specifier, // directory probe
		}
	}
}

func hasSourceExtension(specifier string) bool {
	for _, ext := range []string{".ts", ".tsx", ".d.ts", ".mts", ".cts"} {
		if strings.HasSuffix(specifier, ext) {
			return true
		}
	}
	return false
}

func statDisk(path string) fileKind {
	info, err := os.Stat(path)
	if err != nil {
		return fileMissing
	}
	if info.IsDir() {
		return fileDirectory
	}
	return fileRegular
}
