package snapshot

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeTypeString(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"empty", "", ""},
		{"collapses whitespace", "string  |   number", "string | number"},
		{"tightens unions", "string|number", "string | number"},
		{"keeps doubled operators", "a&&b", "a&&b"},
		{"intersections", "A &B", "A & B"},
		{"generics", "Array< string >", "Array<string>"},
		{"nested generics", "Map<string,  number>", "Map<string, number>"},
		{"object type", "{a: string}", "{ a: string }"},
		{"object type multiline", "{\n  a: string;\n  b?: number;\n}", "{ a: string; b?: number; }"},
		{"arrow", "() =>void", "() => void"},
		{"colon spacing", "a:string", "a: string"},
		{"comma spacing", "f(a,b)", "f(a, b)"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, NormalizeTypeString(tt.input))
		})
	}
}

func TestNormalizeTypeString_Idempotent(t *testing.T) {
	inputs := []string{
		"string | number",
		"{ a: string; b?: number; }",
		"Array<Map<string, number>>",
		"(a: string, b?: number) => void",
		"Partial<Observer> & RequestOptions",
		"type X = | A | B",
		"Record<string, unknown>[]",
	}

	for _, input := range inputs {
		once := NormalizeTypeString(input)
		twice := NormalizeTypeString(once)
		assert.Equal(t, once, twice, "normalize should be idempotent for %q", input)
	}
}

func TestParameterString(t *testing.T) {
	assert.Equal(t, "a: string", ParameterString(ParameterInfo{Name: "a", Type: "string"}))
	assert.Equal(t, "b?: number", ParameterString(ParameterInfo{Name: "b", Type: "number", Optional: true}))
	assert.Equal(t, "...rest: string[]", ParameterString(ParameterInfo{Name: "rest", Type: "string[]", Rest: true}))
	assert.Equal(t, "c: number = 1", ParameterString(ParameterInfo{Name: "c", Type: "number", Optional: true, DefaultValue: "1"}))
}

func TestFunctionSignature(t *testing.T) {
	sig := FunctionSignature("greet", []ParameterInfo{
		{Name: "who", Type: "string", Optional: true},
	}, "string")
	assert.Equal(t, "greet(who?: string): string", sig)

	empty := FunctionSignature("noop", nil, "")
	assert.Equal(t, "noop()", empty)
}

func TestOverloadKey(t *testing.T) {
	key := OverloadKey([]ParameterInfo{{Name: "x", Type: "number"}}, "void")
	assert.Equal(t, "(x: number): void", key)
}

func TestClassSignature(t *testing.T) {
	assert.Equal(t, "class Client", ClassSignature("Client", ""))
	assert.Equal(t, "class Client extends Base", ClassSignature("Client", "Base"))
}

func TestEnumSignature(t *testing.T) {
	d := &EnumDetail{Members: []EnumMemberInfo{{Name: "A", Value: "1"}, {Name: "B"}}}
	assert.Equal(t, "enum Color { A = 1, B }", EnumSignature("Color", d))

	d.Const = true
	assert.Equal(t, "const enum Color { A = 1, B }", EnumSignature("Color", d))
}

func TestTypeAliasSignature(t *testing.T) {
	union := &TypeAliasDetail{TypeText: "string | number"}
	assert.Equal(t, "type ID = string | number", TypeAliasSignature("ID", union))

	object := &TypeAliasDetail{Properties: []PropertyInfo{{Name: "id", Type: "string"}}}
	assert.Equal(t, "type Box = { id: string }", TypeAliasSignature("Box", object))
}

func TestExportInfoStrongKey(t *testing.T) {
	local := ExportInfo{Name: "foo", Type: ExportNamed, Kind: "function"}
	assert.Equal(t, "foo|local|named|function", local.StrongKey())

	re := ExportInfo{Name: "foo", Type: ExportNamed, Kind: ReExportKind, SourceModule: "./m"}
	assert.Equal(t, "foo|./m|named|re-export", re.StrongKey())
	assert.True(t, re.IsReExport())
	assert.False(t, local.IsReExport())
}
