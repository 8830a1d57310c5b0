package snapshot

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestProject(t *testing.T) *Project {
	t.Helper()
	p, err := NewProject(nil)
	require.NoError(t, err)
	t.Cleanup(func() { p.Close() })
	return p
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

const sampleTS = `import { helper } from "./helper";

export function greet(who?: string): string {
  return "hi " + (who ?? "there");
}

export class Client {
  name: string;
  private token: string;

  ping(): string {
    return "ok";
  }
}

export interface Opts {
  timeout: number;
  retries?: number;
}

export type ID = string | number;

export enum Color {
  Red = 1,
  Green,
}

export const limit: number = 10;

const internal = () => 1;
`

func TestBuild_Symbols(t *testing.T) {
	p := newTestProject(t)

	snap, err := Build(p, "/virtual/sample.ts", []byte(sampleTS))
	require.NoError(t, err)
	require.NotNil(t, snap)

	// Functions: greet plus the arrow-initialized binding.
	require.Len(t, snap.Functions, 2)
	greet := snap.Functions[0]
	assert.Equal(t, "greet", greet.Name)
	assert.True(t, greet.IsExported)
	require.Len(t, greet.Parameters, 1)
	assert.Equal(t, "who", greet.Parameters[0].Name)
	assert.True(t, greet.Parameters[0].Optional)
	assert.Equal(t, "string", greet.Parameters[0].Type)
	assert.Equal(t, "string", greet.ReturnType)
	assert.Equal(t, "greet(who?: string): string", greet.Signature)

	internal := snap.Functions[1]
	assert.Equal(t, "internal", internal.Name)
	assert.False(t, internal.IsExported)
	require.NotNil(t, internal.Function)
	assert.True(t, internal.Function.IsArrowFunction)

	// Class with members; private members keep their visibility tag.
	require.Len(t, snap.Classes, 1)
	client := snap.Classes[0]
	assert.Equal(t, "Client", client.Name)
	assert.Equal(t, "class Client", client.Signature)
	require.NotNil(t, client.Class)

	members := make(map[string]ClassMemberInfo)
	for _, m := range client.Class.Members {
		members[m.Name] = m
	}
	require.Contains(t, members, "ping")
	assert.Equal(t, MemberMethod, members["ping"].Kind)
	assert.Equal(t, "public", members["ping"].Visibility)
	assert.Equal(t, "ping(): string", members["ping"].Signature)
	require.Contains(t, members, "token")
	assert.Equal(t, "private", members["token"].Visibility)
	require.Contains(t, members, "name")
	assert.Equal(t, "string", members["name"].Type)

	// Interface properties with optionality.
	require.Len(t, snap.Interfaces, 1)
	opts := snap.Interfaces[0]
	require.NotNil(t, opts.Interface)
	require.Len(t, opts.Interface.Properties, 2)
	assert.Equal(t, "timeout", opts.Interface.Properties[0].Name)
	assert.Equal(t, "number", opts.Interface.Properties[0].Type)
	assert.False(t, opts.Interface.Properties[0].Optional)
	assert.True(t, opts.Interface.Properties[1].Optional)

	// Union alias falls back to normalized type text with no properties.
	require.Len(t, snap.Types, 1)
	id := snap.Types[0]
	require.NotNil(t, id.TypeAlias)
	assert.Equal(t, "string | number", id.TypeAlias.TypeText)
	assert.Empty(t, id.TypeAlias.Properties)

	// Enum members in declaration order, values when present.
	require.Len(t, snap.Enums, 1)
	color := snap.Enums[0]
	require.NotNil(t, color.Enum)
	require.Len(t, color.Enum.Members, 2)
	assert.Equal(t, EnumMemberInfo{Name: "Red", Value: "1"}, color.Enum.Members[0])
	assert.Equal(t, "Green", color.Enum.Members[1].Name)

	// Imports.
	require.Len(t, snap.Imports, 1)
	assert.Equal(t, "./helper", snap.Imports[0].Module)
	assert.Equal(t, []string{"helper"}, snap.Imports[0].Symbols)
}

func TestBuild_DirectExports(t *testing.T) {
	p := newTestProject(t)

	snap, err := Build(p, "/virtual/sample.ts", []byte(sampleTS))
	require.NoError(t, err)

	byName := make(map[string]ExportInfo)
	for _, e := range snap.Exports {
		byName[e.Name] = e
	}

	require.Contains(t, byName, "greet")
	assert.Equal(t, ExportNamed, byName["greet"].Type)
	assert.Equal(t, string(KindFunction), byName["greet"].Kind)
	assert.False(t, byName["greet"].IsTypeOnly)
	assert.Equal(t, "/virtual/sample.ts", byName["greet"].DeclFilePath)

	require.Contains(t, byName, "Opts")
	assert.True(t, byName["Opts"].IsTypeOnly, "interfaces are type-only exports")

	require.Contains(t, byName, "ID")
	assert.True(t, byName["ID"].IsTypeOnly)

	require.Contains(t, byName, "Color")
	assert.False(t, byName["Color"].IsTypeOnly, "enums are runtime values")

	require.Contains(t, byName, "limit")
	assert.Equal(t, string(KindVariable), byName["limit"].Kind)

	assert.NotContains(t, byName, "internal", "unexported symbols yield no export entry")
}

func TestBuild_Overloads(t *testing.T) {
	p := newTestProject(t)

	source := `export function parse(raw: string): number;
export function parse(raw: string, strict: boolean): number;
export function parse(raw: string, strict?: boolean): number {
  return 0;
}
`
	snap, err := Build(p, "/virtual/overloads.ts", []byte(source))
	require.NoError(t, err)

	require.Len(t, snap.Functions, 1, "overload group collapses into one symbol")
	parse := snap.Functions[0]
	require.Len(t, parse.Overloads, 3)
	assert.Equal(t, "(raw: string, strict?: boolean): number", parse.Overloads[2],
		"implementation signature comes last")
	require.NotNil(t, parse.Function)
	require.Len(t, parse.Function.Signatures, 3)
}

func TestBuild_DefaultExport(t *testing.T) {
	p := newTestProject(t)

	source := `export default function handler(req: string): void {}
`
	snap, err := Build(p, "/virtual/default.ts", []byte(source))
	require.NoError(t, err)

	require.Len(t, snap.Exports, 1)
	assert.Equal(t, ExportDefault, snap.Exports[0].Type)
	assert.Equal(t, "handler", snap.Exports[0].Name, "default exports keep their local name when present")
}

func TestBuild_LocalExportClauseWithAlias(t *testing.T) {
	p := newTestProject(t)

	source := `function inner(): void {}
export { inner as outer };
`
	snap, err := Build(p, "/virtual/alias.ts", []byte(source))
	require.NoError(t, err)

	require.Len(t, snap.Exports, 1)
	assert.Equal(t, "outer", snap.Exports[0].Name)
	assert.Equal(t, string(KindFunction), snap.Exports[0].Kind)
	assert.Empty(t, snap.Exports[0].SourceModule)

	// The clause marks the local symbol exported.
	require.Len(t, snap.Functions, 1)
	assert.True(t, snap.Functions[0].IsExported)
}

func TestBuild_ReExportsAcrossFiles(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "m.ts", `export const a = 1;
export function b(): void {}
export default function d(): void {}
`)
	writeFile(t, dir, "types.ts", `export interface T { x: number; }
`)
	entry := writeFile(t, dir, "index.ts", `export { a as x } from "./m";
export * from "./m";
export type * from "./types";
`)

	p := newTestProject(t)
	content, err := os.ReadFile(entry)
	require.NoError(t, err)

	snap, err := Build(p, entry, content)
	require.NoError(t, err)

	byName := make(map[string][]ExportInfo)
	for _, e := range snap.Exports {
		byName[e.Name] = append(byName[e.Name], e)
	}

	// Named re-export with alias.
	require.Contains(t, byName, "x")
	x := byName["x"][0]
	assert.Equal(t, "./m", x.SourceModule)
	assert.Equal(t, "a", x.SourceName)
	assert.Equal(t, ReExportKind, x.Kind)

	// Star expansion contributes the target's names but never default.
	require.Contains(t, byName, "a")
	require.Contains(t, byName, "b")
	assert.NotContains(t, byName, "d")
	assert.NotContains(t, byName, "default")

	// Type-only star re-export marks every contributed name type-only.
	require.Contains(t, byName, "T")
	assert.True(t, byName["T"][0].IsTypeOnly)

	// Barrel statistics: no local declarations.
	require.NotNil(t, snap.Stats)
	assert.Equal(t, 0, snap.Stats.DirectExports)
	assert.Equal(t, snap.Stats.ExportsTotal, snap.Stats.ReExportedSymbols+snap.Stats.TypeOnlyExports)
	assert.Equal(t, 0, snap.Stats.ReexportGroupsUnresolved)
}

func TestBuild_UnresolvedReExportCounted(t *testing.T) {
	p := newTestProject(t)

	source := `export * from "./does-not-exist";
`
	snap, err := Build(p, "/virtual/broken.ts", []byte(source))
	require.NoError(t, err, "unresolved re-exports are non-fatal")

	require.NotNil(t, snap.Stats)
	assert.Greater(t, snap.Stats.ReexportGroupsUnresolved, 0)
}

func TestBuild_WhitespacePerturbation(t *testing.T) {
	p := newTestProject(t)

	original := `export function greet(who?: string): string {
  return "hi";
}
export type ID = string | number;
`
	perturbed := `export function greet( who?:   string ):  string {
  return "hi";
}
export type ID = string   |   number;
`

	first, err := Build(p, "/virtual/ws-a.ts", []byte(original))
	require.NoError(t, err)
	second, err := Build(p, "/virtual/ws-b.ts", []byte(perturbed))
	require.NoError(t, err)

	require.Len(t, second.Functions, len(first.Functions))
	for i := range first.Functions {
		assert.Equal(t, first.Functions[i].Signature, second.Functions[i].Signature)
	}
	require.Len(t, second.Types, len(first.Types))
	assert.Equal(t, first.Types[0].TypeAlias.TypeText, second.Types[0].TypeAlias.TypeText)
}

func TestBuild_JavaScriptModuleSystem(t *testing.T) {
	p := newTestProject(t)

	cjs := `const fs = require("fs");

function run() {}

module.exports = run;
exports.helper = function () {};
`
	snap, err := Build(p, "/virtual/legacy.js", []byte(cjs))
	require.NoError(t, err)

	assert.Equal(t, ModuleSystemCJS, snap.ModuleSystem)

	byName := make(map[string]ExportInfo)
	for _, e := range snap.Exports {
		byName[e.Name] = e
	}

	require.Contains(t, byName, "default")
	assert.Equal(t, ExportDefault, byName["default"].Type)
	assert.Equal(t, "cjs:module.exports", byName["default"].SymbolRef)
	require.Contains(t, byName, "helper")
	assert.Equal(t, ExportNamed, byName["helper"].Type)
}

func TestBuild_ESMJavaScript(t *testing.T) {
	p := newTestProject(t)

	esm := `export function go() {}
`
	snap, err := Build(p, "/virtual/modern.js", []byte(esm))
	require.NoError(t, err)
	assert.Equal(t, ModuleSystemESM, snap.ModuleSystem)
}

func TestBuild_PartialOnSyntaxError(t *testing.T) {
	p := newTestProject(t)

	broken := `export function ok(): void {}
function broken( {
`
	snap, err := Build(p, "/virtual/broken.ts", []byte(broken))
	require.NoError(t, err, "parse errors never abort the snapshot")
	require.NotNil(t, snap)

	names := make([]string, 0, len(snap.Functions))
	for _, f := range snap.Functions {
		names = append(names, f.Name)
	}
	assert.Contains(t, names, "ok")
}

func TestProject_ExportsOfCycle(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.ts", `export * from "./b";
export const fromA = 1;
`)
	writeFile(t, dir, "b.ts", `export * from "./a";
export const fromB = 2;
`)

	p := newTestProject(t)

	exports := p.ExportsOf(filepath.Join(dir, "a.ts"), nil, nil)

	names := make(map[string]bool)
	for _, e := range exports {
		names[e.Name] = true
	}
	assert.True(t, names["fromA"])
	assert.True(t, names["fromB"], "cycle-safe star expansion still reaches peer exports")
}
