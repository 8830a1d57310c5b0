package queries

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gnana997/apidiff/pkg/parser"
)

func newManagers(t *testing.T) (*parser.ParserManager, *QueryManager) {
	t.Helper()
	pm := parser.NewParserManager(nil)
	qm := NewQueryManager(pm, nil)
	t.Cleanup(func() {
		qm.Close()
		pm.Close()
	})
	return pm, qm
}

func TestGetQuery_AllCombinationsCompile(t *testing.T) {
	_, qm := newManagers(t)

	for _, lang := range []parser.Language{parser.LanguageTypeScript, parser.LanguageJavaScript} {
		for _, qtype := range []QueryType{QueryTypeSymbols, QueryTypeExports} {
			query, err := qm.GetQuery(lang, qtype, false)
			require.NoError(t, err, "query %s/%s must compile", lang, qtype)
			require.NotNil(t, query)
		}
	}

	// TSX variant compiles too.
	_, err := qm.GetQuery(parser.LanguageTypeScript, QueryTypeSymbols, true)
	require.NoError(t, err)
}

func TestGetQuery_Cached(t *testing.T) {
	_, qm := newManagers(t)

	first, err := qm.GetQuery(parser.LanguageTypeScript, QueryTypeSymbols, false)
	require.NoError(t, err)
	second, err := qm.GetQuery(parser.LanguageTypeScript, QueryTypeSymbols, false)
	require.NoError(t, err)
	assert.Same(t, first, second)
}

func TestExecuteQuery_Symbols(t *testing.T) {
	pm, qm := newManagers(t)

	source := []byte(`export function greet(who: string): string { return who; }
export class Client {}
`)
	tree, err := pm.Parse(source, parser.LanguageTypeScript, false)
	require.NoError(t, err)
	defer tree.Close()

	query, err := qm.GetQuery(parser.LanguageTypeScript, QueryTypeSymbols, false)
	require.NoError(t, err)

	matches, err := qm.ExecuteQuery(tree, query, source)
	require.NoError(t, err)
	require.NotEmpty(t, matches)

	var names []string
	for _, m := range matches {
		for _, c := range m.Captures {
			if c.Field == "name" {
				names = append(names, c.Text)
			}
		}
	}
	assert.Contains(t, names, "greet")
	assert.Contains(t, names, "Client")
}

func TestExecuteQuery_ExportStatements(t *testing.T) {
	pm, qm := newManagers(t)

	source := []byte(`import { a } from "./m";
export { b } from "./other";
export * from "./star";
`)
	tree, err := pm.Parse(source, parser.LanguageTypeScript, false)
	require.NoError(t, err)
	defer tree.Close()

	query, err := qm.GetQuery(parser.LanguageTypeScript, QueryTypeExports, false)
	require.NoError(t, err)

	matches, err := qm.ExecuteQuery(tree, query, source)
	require.NoError(t, err)

	imports, exports := 0, 0
	for _, m := range matches {
		for _, c := range m.Captures {
			switch c.Name {
			case "import.stmt":
				imports++
			case "export.stmt":
				exports++
			}
		}
	}
	assert.Equal(t, 1, imports)
	assert.Equal(t, 2, exports)
}

func TestParseCaptureName(t *testing.T) {
	category, field := parseCaptureName("function.name")
	assert.Equal(t, "function", category)
	assert.Equal(t, "name", field)

	category, field = parseCaptureName("export.commonjs.stmt")
	assert.Equal(t, "export", category)
	assert.Equal(t, "commonjs.stmt", field)

	category, field = parseCaptureName("bare")
	assert.Equal(t, "bare", category)
	assert.Equal(t, "", field)
}
