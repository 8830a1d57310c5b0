package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDetectLanguage(t *testing.T) {
	tests := []struct {
		path     string
		expected Language
	}{
		{"src/app.ts", LanguageTypeScript},
		{"src/app.tsx", LanguageTypeScript},
		{"src/app.mts", LanguageTypeScript},
		{"src/app.d.ts", LanguageTypeScript},
		{"src/app.js", LanguageJavaScript},
		{"src/app.jsx", LanguageJavaScript},
		{"src/app.cjs", LanguageJavaScript},
		{"src/app.mjs", LanguageJavaScript},
		{"README.md", LanguageUnknown},
		{"Makefile", LanguageUnknown},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, DetectLanguage(tt.path), tt.path)
	}
}

func TestIsTSXFile(t *testing.T) {
	assert.True(t, IsTSXFile("src/App.tsx"))
	assert.False(t, IsTSXFile("src/app.ts"))
}

func TestIsDeclarationFile(t *testing.T) {
	assert.True(t, IsDeclarationFile("lib/index.d.ts"))
	assert.False(t, IsDeclarationFile("lib/index.ts"))
}

func TestParserManager_Parse(t *testing.T) {
	pm := NewParserManager(nil)
	defer pm.Close()

	tree, err := pm.Parse([]byte("export const x: number = 1;"), LanguageTypeScript, false)
	require.NoError(t, err)
	require.NotNil(t, tree)
	defer tree.Close()

	assert.Equal(t, "program", tree.RootNode().GrammarName())
	assert.False(t, tree.RootNode().HasError())
}

func TestParserManager_ParseFile(t *testing.T) {
	pm := NewParserManager(nil)
	defer pm.Close()

	tree, err := pm.ParseFile([]byte("module.exports = function () {};"), "legacy.js")
	require.NoError(t, err)
	defer tree.Close()

	_, err = pm.ParseFile([]byte("text"), "notes.txt")
	assert.Error(t, err)
}

func TestParserManager_TSX(t *testing.T) {
	pm := NewParserManager(nil)
	defer pm.Close()

	tree, err := pm.Parse([]byte("export const App = () => <div>hello</div>;"), LanguageTypeScript, true)
	require.NoError(t, err)
	defer tree.Close()

	assert.False(t, tree.RootNode().HasError())
}
