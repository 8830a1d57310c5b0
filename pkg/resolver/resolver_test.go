package resolver

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeFS builds a statFile func over a fixed set of files and directories.
func fakeFS(files []string, dirs []string) func(string) fileKind {
	fileSet := make(map[string]bool)
	for _, f := range files {
		fileSet[filepath.Clean(f)] = true
	}
	dirSet := make(map[string]bool)
	for _, d := range dirs {
		dirSet[filepath.Clean(d)] = true
	}
	return func(path string) fileKind {
		path = filepath.Clean(path)
		if fileSet[path] {
			return fileRegular
		}
		if dirSet[path] {
			return fileDirectory
		}
		return fileMissing
	}
}

func newTestResolver(t *testing.T, files []string, dirs []string) *Resolver {
	t.Helper()
	r, err := New(0, nil)
	require.NoError(t, err)
	r.statFile = fakeFS(files, dirs)
	return r
}

func TestResolve_JSSpecifierPrefersTS(t *testing.T) {
	r := newTestResolver(t, []string{"/repo/src/util.ts"}, nil)

	resolved, ok := r.Resolve("./util.js", "/repo/src/index.ts")
	require.True(t, ok)
	assert.Equal(t, "/repo/src/util.ts", resolved)
}

func TestResolve_JSAndExplicitTSAgree(t *testing.T) {
	r := newTestResolver(t, []string{"/repo/src/util.ts"}, nil)

	viaJS, ok := r.Resolve("./util.js", "/repo/src/index.ts")
	require.True(t, ok)
	viaTS, ok2 := r.Resolve("./util.ts", "/repo/src/index.ts")
	require.True(t, ok2)

	assert.Equal(t, viaTS, viaJS)
}

func TestResolve_ExtensionlessTriesIndex(t *testing.T) {
	r := newTestResolver(t,
		[]string{"/repo/src/lib/index.ts"},
		[]string{"/repo/src/lib"},
	)

	resolved, ok := r.Resolve("./lib", "/repo/src/main.ts")
	require.True(t, ok)
	assert.Equal(t, "/repo/src/lib/index.ts", resolved)
}

func TestResolve_ExtensionlessPrefersFileOverIndex(t *testing.T) {
	r := newTestResolver(t,
		[]string{"/repo/src/lib.ts", "/repo/src/lib/index.ts"},
		[]string{"/repo/src/lib"},
	)

	resolved, ok := r.Resolve("./lib", "/repo/src/main.ts")
	require.True(t, ok)
	assert.Equal(t, "/repo/src/lib.ts", resolved)
}

func TestResolve_DirectoryProbesIndex(t *testing.T) {
	r := newTestResolver(t,
		[]string{"/repo/src/widgets/index.tsx"},
		[]string{"/repo/src/widgets"},
	)

	resolved, ok := r.Resolve("./widgets", "/repo/src/app.tsx")
	require.True(t, ok)
	assert.Equal(t, "/repo/src/widgets/index.tsx", resolved)
}

func TestResolve_BareSpecifierMisses(t *testing.T) {
	r := newTestResolver(t, []string{"/repo/node_modules/react/index.js"}, nil)

	_, ok := r.Resolve("react", "/repo/src/index.ts")
	assert.False(t, ok, "package imports never resolve into node_modules")
}

func TestResolve_MissIsNonFatalAndCached(t *testing.T) {
	r := newTestResolver(t, nil, nil)

	_, ok := r.Resolve("./missing", "/repo/src/index.ts")
	assert.False(t, ok)

	// The miss is memoized: flip the filesystem and the cached result holds.
	r.statFile = fakeFS([]string{"/repo/src/missing.ts"}, nil)
	_, ok = r.Resolve("./missing", "/repo/src/index.ts")
	assert.False(t, ok, "resolution results are memoized per (specifier, referrer)")
}

func TestResolve_HitIsCached(t *testing.T) {
	r := newTestResolver(t, []string{"/repo/src/util.ts"}, nil)

	first, ok := r.Resolve("./util", "/repo/src/index.ts")
	require.True(t, ok)

	r.statFile = fakeFS(nil, nil)
	second, ok2 := r.Resolve("./util", "/repo/src/index.ts")
	require.True(t, ok2)
	assert.Equal(t, first, second)
}

func TestExpandCandidates_JSX(t *testing.T) {
	candidates := expandCandidates("./comp.jsx")
	assert.Equal(t, "./comp.tsx", candidates[0])
	assert.Equal(t, "./comp.jsx", candidates[len(candidates)-1])
}

func TestExpandCandidates_ExplicitTS(t *testing.T) {
	assert.Equal(t, []string{"./util.ts"}, expandCandidates("./util.ts"))
}
