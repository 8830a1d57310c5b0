// Package snapshot builds immutable per-file descriptions of a module's API
// surface: its top-level symbols, its imports, and its exports with re-export
// chains resolved across files.
package snapshot

import (
	"fmt"
	"time"
)

// SymbolKind identifies the kind of a declared symbol.
type SymbolKind string

const (
	KindFunction  SymbolKind = "function"
	KindClass     SymbolKind = "class"
	KindInterface SymbolKind = "interface"
	KindType      SymbolKind = "type"
	KindEnum      SymbolKind = "enum"
	KindVariable  SymbolKind = "variable"
	KindMethod    SymbolKind = "method"
	KindProperty  SymbolKind = "property"
)

// ModuleSystem tags how a JavaScript file addresses modules.
type ModuleSystem string

const (
	ModuleSystemCJS     ModuleSystem = "cjs"
	ModuleSystemESM     ModuleSystem = "esm"
	ModuleSystemMixed   ModuleSystem = "mixed"
	ModuleSystemUnknown ModuleSystem = "unknown"
)

// ParameterInfo describes one parameter of a function or method.
type ParameterInfo struct {
	Name         string `json:"name"`
	Type         string `json:"type"`
	Optional     bool   `json:"optional"`
	DefaultValue string `json:"defaultValue,omitempty"`
	Rest         bool   `json:"rest,omitempty"`
}

// TypeParamInfo describes one declared generic type parameter.
type TypeParamInfo struct {
	Name       string `json:"name"`
	Constraint string `json:"constraint,omitempty"`
}

// PropertyInfo describes one property of an interface, type alias, or object type.
type PropertyInfo struct {
	Name     string `json:"name"`
	Type     string `json:"type"`
	Optional bool   `json:"optional"`
	Readonly bool   `json:"readonly,omitempty"`
}

// ClassMemberKind identifies the kind of a class member.
type ClassMemberKind string

const (
	MemberMethod      ClassMemberKind = "method"
	MemberProperty    ClassMemberKind = "property"
	MemberGetter      ClassMemberKind = "get"
	MemberSetter      ClassMemberKind = "set"
	MemberConstructor ClassMemberKind = "constructor"
)

// ClassMemberInfo describes one member of a class body.
type ClassMemberInfo struct {
	Name       string          `json:"name"`
	Kind       ClassMemberKind `json:"kind"`
	Visibility string          `json:"visibility"` // public, protected, private
	Static     bool            `json:"static,omitempty"`
	Optional   bool            `json:"optional,omitempty"`
	Readonly   bool            `json:"readonly,omitempty"`
	Abstract   bool            `json:"abstract,omitempty"`
	// Type holds the property type for property members.
	Type string `json:"type,omitempty"`
	// Signature holds the normalized call signature for method/accessor members.
	Signature  string          `json:"signature,omitempty"`
	Parameters []ParameterInfo `json:"parameters,omitempty"`
	ReturnType string          `json:"returnType,omitempty"`
}

// EnumMemberInfo describes one member of an enum in declaration order.
type EnumMemberInfo struct {
	Name  string `json:"name"`
	Value string `json:"value,omitempty"`
}

// CallSignature is one call signature of an overloaded function.
type CallSignature struct {
	Parameters []ParameterInfo `json:"parameters"`
	ReturnType string          `json:"returnType"`
}

// FunctionDetail carries function-specific symbol detail. Signatures is set
// only for overloaded functions, in declaration order with the implementation
// signature last (mirroring the Overloads key list on SymbolInfo).
type FunctionDetail struct {
	IsArrowFunction bool            `json:"isArrowFunction,omitempty"`
	IsAsync         bool            `json:"isAsync,omitempty"`
	TypeParams      []TypeParamInfo `json:"typeParams,omitempty"`
	Signatures      []CallSignature `json:"signatures,omitempty"`
}

// ClassDetail carries class-specific symbol detail.
type ClassDetail struct {
	Extends    string            `json:"extends,omitempty"`
	Implements []string          `json:"implements,omitempty"`
	Members    []ClassMemberInfo `json:"members,omitempty"`
	IsAbstract bool              `json:"isAbstract,omitempty"`
	TypeParams []TypeParamInfo   `json:"typeParams,omitempty"`
}

// InterfaceDetail carries interface-specific symbol detail.
type InterfaceDetail struct {
	Properties      []PropertyInfo  `json:"properties,omitempty"`
	Methods         []ClassMemberInfo `json:"methods,omitempty"`
	IndexSignatures []string        `json:"indexSignatures,omitempty"`
	Extends         []string        `json:"extends,omitempty"`
	TypeParams      []TypeParamInfo `json:"typeParams,omitempty"`
}

// TypeAliasDetail carries type-alias-specific symbol detail. Properties is
// populated for object-shaped aliases; TypeText is the normalized right-hand
// side and is authoritative when the alias is a union, intersection, mapped,
// or conditional type.
type TypeAliasDetail struct {
	Properties      []PropertyInfo  `json:"properties,omitempty"`
	IndexSignatures []string        `json:"indexSignatures,omitempty"`
	TypeText        string          `json:"typeText,omitempty"`
	TypeParams      []TypeParamInfo `json:"typeParams,omitempty"`
}

// EnumDetail carries enum-specific symbol detail.
type EnumDetail struct {
	Members []EnumMemberInfo `json:"members"`
	Const   bool             `json:"const,omitempty"`
}

// VariableDetail carries variable-specific symbol detail.
type VariableDetail struct {
	TypeText string `json:"typeText,omitempty"`
	IsConst  bool   `json:"isConst,omitempty"`
}

// SymbolInfo describes one top-level declaration (or, for qualified names
// like "Class.method", one member surfaced into a finding).
//
// Exactly one of the detail pointers matching Kind is set; the diff engine
// switches on Kind and reads the corresponding detail.
type SymbolInfo struct {
	Name          string     `json:"name"`
	QualifiedName string     `json:"qualifiedName"`
	Line          int        `json:"line"`   // 1-based
	Column        int        `json:"column"` // 1-based
	Signature     string     `json:"signature"`
	Kind          SymbolKind `json:"kind"`
	IsExported    bool       `json:"isExported"`

	Parameters []ParameterInfo `json:"parameters,omitempty"`
	ReturnType string          `json:"returnType,omitempty"`

	// Overloads is either nil (no overloads) or a list of length >= 2 of
	// normalized call-signature keys with the implementation signature last.
	Overloads []string `json:"overloads,omitempty"`

	Function  *FunctionDetail  `json:"function,omitempty"`
	Class     *ClassDetail     `json:"class,omitempty"`
	Interface *InterfaceDetail `json:"interface,omitempty"`
	TypeAlias *TypeAliasDetail `json:"typeAlias,omitempty"`
	Enum      *EnumDetail      `json:"enum,omitempty"`
	Variable  *VariableDetail  `json:"variable,omitempty"`

	// StartByte/EndByte delimit the declaration in the source file.
	StartByte uint32 `json:"startByte"`
	EndByte   uint32 `json:"endByte"`
}

// ExportType identifies how an export is exposed to consumers.
type ExportType string

const (
	ExportNamed     ExportType = "named"
	ExportDefault   ExportType = "default"
	ExportNamespace ExportType = "namespace"
)

// ReExportKind is the Kind recorded on ExportInfo entries whose target lives
// in another module.
const ReExportKind = "re-export"

// ExportInfo describes one export of a module as consumers see it.
type ExportInfo struct {
	// Name is the public name consumers import.
	Name string     `json:"name"`
	Type ExportType `json:"type"`
	// Kind is the declaration kind of the target, or "re-export".
	Kind string `json:"kind"`
	Line int    `json:"line"` // 1-based

	// SourceModule is the unresolved specifier for re-exports ("" for local).
	SourceModule string `json:"sourceModule,omitempty"`
	// SourceName is the property name before any "as" rename.
	SourceName string `json:"sourceName,omitempty"`

	IsTypeOnly bool `json:"isTypeOnly,omitempty"`

	// Resolved declaration location, when known.
	DeclFilePath string `json:"declFilePath,omitempty"`
	DeclPos      uint32 `json:"declPos,omitempty"`
	DeclEnd      uint32 `json:"declEnd,omitempty"`
	// SymbolRef is a stable handle for the originating declaration.
	SymbolRef string `json:"symbolRef,omitempty"`
}

// StrongKey uniquely identifies an export for double-count suppression.
func (e ExportInfo) StrongKey() string {
	module := e.SourceModule
	if module == "" {
		module = "local"
	}
	return fmt.Sprintf("%s|%s|%s|%s", e.Name, module, e.Type, e.Kind)
}

// IsReExport reports whether the export's target lives in another module.
func (e ExportInfo) IsReExport() bool {
	return e.SourceModule != ""
}

// ImportInfo describes one import statement.
type ImportInfo struct {
	Module      string   `json:"module"`
	Symbols     []string `json:"symbols"`
	IsDefault   bool     `json:"isDefault"`
	IsNamespace bool     `json:"isNamespace"`
}

// ExportStats is the diagnostic statistics block computed per snapshot.
type ExportStats struct {
	DirectExports            int `json:"directExports"`
	ReExportedSymbols        int `json:"reExportedSymbols"`
	TypeOnlyExports          int `json:"typeOnlyExports"`
	ExportsTotal             int `json:"exportsTotal"`
	ExportsRuntime           int `json:"exportsRuntime"`
	ExportsType              int `json:"exportsType"`
	ExportsUnique            int `json:"exportsUnique"`
	ExportsWithDeclarations  int `json:"exportsWithDeclarations"`
	ReexportGroupsUnresolved int `json:"reexportGroupsUnresolved"`
}

// PackageSummary summarizes the nearest package manifest (JS mode).
type PackageSummary struct {
	Path string `json:"path"`
	// Type is the manifest "type" field ("module", "commonjs", or "").
	Type string `json:"type,omitempty"`
	// HasExportsMap reports whether the manifest declares an "exports" map.
	HasExportsMap bool `json:"hasExportsMap,omitempty"`
}

// SymbolSnapshot is the immutable per-file API surface description.
//
// The five symbol sequences are in source order as encountered during AST
// traversal; Imports are in statement order. Exports list local exports
// first, then CommonJS assignments, then named and namespace re-exports in
// statement order, then the names contributed by star re-exports.
type SymbolSnapshot struct {
	FilePath  string    `json:"filePath"`
	Timestamp time.Time `json:"timestamp"`

	Functions  []SymbolInfo `json:"functions"`
	Classes    []SymbolInfo `json:"classes"`
	Interfaces []SymbolInfo `json:"interfaces"`
	Types      []SymbolInfo `json:"types"`
	Enums      []SymbolInfo `json:"enums"`

	Exports []ExportInfo `json:"exports"`
	Imports []ImportInfo `json:"imports"`

	Stats *ExportStats `json:"stats,omitempty"`

	ModuleSystem ModuleSystem    `json:"moduleSystem,omitempty"`
	Package      *PackageSummary `json:"package,omitempty"`
}

// AllSymbols returns the five kind sequences flattened, preserving per-kind order.
func (s *SymbolSnapshot) AllSymbols() []SymbolInfo {
	out := make([]SymbolInfo, 0,
		len(s.Functions)+len(s.Classes)+len(s.Interfaces)+len(s.Types)+len(s.Enums))
	out = append(out, s.Functions...)
	out = append(out, s.Classes...)
	out = append(out, s.Interfaces...)
	out = append(out, s.Types...)
	out = append(out, s.Enums...)
	return out
}
