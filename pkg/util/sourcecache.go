package util

import (
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/edsrzf/mmap-go"
	lru "github.com/hashicorp/golang-lru/v2"
)

// SourceCache provides byte-offset access to source files via memory mapping.
//
// The analyzer reads both trees' source files through Bytes; Slice extracts
// text by the byte ranges recorded on declarations. Mapping a file once is
// cheaper than re-reading it on every access. Files that fail to mmap
// (empty files, exotic filesystems) fall back to os.ReadFile.
//
// Thread-safe: reads don't block each other, only loads do. Evicted entries
// are unmapped by the LRU callback.
type SourceCache struct {
	cache  *lru.Cache[string, *mappedSource]
	mutex  sync.Mutex
	logger *slog.Logger
}

// mappedSource is a single cached file. data aliases the mapping when m is
// non-nil; otherwise data is a heap copy from the read fallback.
type mappedSource struct {
	data []byte
	m    mmap.MMap
}

// DefaultSourceCacheSize bounds how many files stay mapped at once.
const DefaultSourceCacheSize = 512

// NewSourceCache creates a source cache holding at most maxFiles mappings.
// Pass 0 for the default size. Logger can be nil.
func NewSourceCache(maxFiles int, logger *slog.Logger) (*SourceCache, error) {
	if maxFiles <= 0 {
		maxFiles = DefaultSourceCacheSize
	}
	if logger == nil {
		logger = slog.Default()
	}

	sc := &SourceCache{logger: logger}

	cache, err := lru.NewWithEvict[string, *mappedSource](maxFiles, func(path string, ms *mappedSource) {
		if ms.m != nil {
			if uerr := ms.m.Unmap(); uerr != nil {
				logger.Warn("failed to unmap evicted source file", "path", path, "error", uerr)
			}
		}
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create source cache: %w", err)
	}
	sc.cache = cache

	return sc, nil
}

// Bytes returns the full content of the file, mapping it on first access.
func (sc *SourceCache) Bytes(path string) ([]byte, error) {
	if ms, ok := sc.cache.Get(path); ok {
		return ms.data, nil
	}

	sc.mutex.Lock()
	defer sc.mutex.Unlock()

	// Double-check: another goroutine may have loaded it.
	if ms, ok := sc.cache.Get(path); ok {
		return ms.data, nil
	}

	ms, err := sc.load(path)
	if err != nil {
		return nil, err
	}
	sc.cache.Add(path, ms)

	return ms.data, nil
}

// Slice extracts source text by byte offsets (startByte inclusive, endByte
// exclusive). Offsets come from tree-sitter node positions.
func (sc *SourceCache) Slice(path string, startByte, endByte uint32) (string, error) {
	data, err := sc.Bytes(path)
	if err != nil {
		return "", err
	}

	if endByte <= startByte || int(endByte) > len(data) {
		return "", fmt.Errorf("invalid byte range [%d:%d) for %s (%d bytes)", startByte, endByte, path, len(data))
	}

	return string(data[startByte:endByte]), nil
}

// Len returns the number of currently cached files.
func (sc *SourceCache) Len() int {
	return sc.cache.Len()
}

// Close unmaps all cached files.
func (sc *SourceCache) Close() error {
	sc.mutex.Lock()
	defer sc.mutex.Unlock()

	sc.cache.Purge() // eviction callback unmaps each entry
	return nil
}

// load maps the file, falling back to a plain read when mmap fails.
func (sc *SourceCache) load(path string) (*mappedSource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	m, err := mmap.Map(f, mmap.RDONLY, 0)
	if err != nil {
		sc.logger.Debug("mmap failed, falling back to read", "path", path, "error", err)
		data, rerr := os.ReadFile(path)
		if rerr != nil {
			return nil, fmt.Errorf("failed to read %s: %w", path, rerr)
		}
		return &mappedSource{data: data}, nil
	}

	return &mappedSource{data: m, m: m}, nil
}
