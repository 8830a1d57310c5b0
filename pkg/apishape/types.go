// Package apishape resolves exports to their originating declarations and
// builds normalized, language-agnostic API shapes for them.
package apishape

import (
	"fmt"
	"time"

	"github.com/gnana997/apidiff/pkg/snapshot"
)

// AnalysisMode records which analyzer flavor produced a snapshot.
type AnalysisMode string

const (
	ModeTypeScript    AnalysisMode = "TypeScript"
	ModeTypedJS       AnalysisMode = "TypedJS"
	ModeModuleSurface AnalysisMode = "ModuleSurface"
)

// ShapeKind tags the variant of a Shape.
type ShapeKind string

const (
	ShapeFunction  ShapeKind = "function"
	ShapeClass     ShapeKind = "class"
	ShapeType      ShapeKind = "type"
	ShapeInterface ShapeKind = "interface"
	ShapeEnum      ShapeKind = "enum"
	ShapeVariable  ShapeKind = "variable"
	ShapeConst     ShapeKind = "const"
)

// ExportIdentity is the deterministic key matching exports across versions:
// "{name}|{value|type}|{declFilePath}|{declPos}".
type ExportIdentity string

// Identity builds the ExportIdentity for a resolved export.
func Identity(name string, isTypeOnly bool, declFilePath string, declPos uint32) ExportIdentity {
	level := "value"
	if isTypeOnly {
		level = "type"
	}
	return ExportIdentity(fmt.Sprintf("%s|%s|%s|%d", name, level, declFilePath, declPos))
}

// ResolvedExport is one export traced to its originating declaration.
type ResolvedExport struct {
	Name         string              `json:"name"`
	ExportType   snapshot.ExportType `json:"exportType"`
	Kind         string              `json:"kind"`
	IsTypeOnly   bool                `json:"isTypeOnly"`
	SourceModule string              `json:"sourceModule,omitempty"`
	SourceName   string              `json:"sourceName,omitempty"`
	DeclFilePath string              `json:"declFilePath"`
	DeclPos      uint32              `json:"declPos"`
	DeclEnd      uint32              `json:"declEnd"`
	SymbolRef    string              `json:"symbolRef,omitempty"`
}

// Identity returns the export's identity key.
func (r ResolvedExport) Identity() ExportIdentity {
	return Identity(r.Name, r.IsTypeOnly, r.DeclFilePath, r.DeclPos)
}

// FunctionSignature is one call signature of a function or method.
type FunctionSignature struct {
	Parameters []snapshot.ParameterInfo `json:"parameters"`
	ReturnType string                   `json:"returnType"`
	TypeParams []snapshot.TypeParamInfo `json:"typeParams,omitempty"`
}

// Key renders the normalized comparison key for the signature.
func (s FunctionSignature) Key() string {
	return snapshot.OverloadKey(s.Parameters, s.ReturnType)
}

// FunctionShape describes an exported function: its ordered overload list
// (a single entry when not overloaded, implementation signature last).
type FunctionShape struct {
	Overloads  []FunctionSignature      `json:"overloads"`
	TypeParams []snapshot.TypeParamInfo `json:"typeParams,omitempty"`
}

// ClassShape describes an exported class. Private members are excluded.
type ClassShape struct {
	TypeParams  []snapshot.TypeParamInfo  `json:"typeParams,omitempty"`
	Members     []snapshot.ClassMemberInfo `json:"members"`
	Constructor *FunctionSignature        `json:"constructor,omitempty"`
	Extends     string                    `json:"extends,omitempty"`
	Implements  []string                  `json:"implements,omitempty"`
}

// TypeShape describes an exported interface or type alias. When TypeText is
// non-empty (unions, intersections, mapped types), Properties is empty and
// readers compare by TypeText.
type TypeShape struct {
	TypeParams      []snapshot.TypeParamInfo `json:"typeParams,omitempty"`
	Properties      []snapshot.PropertyInfo  `json:"properties"`
	IndexSignatures []string                 `json:"indexSignatures,omitempty"`
	TypeText        string                   `json:"typeText,omitempty"`
	Extends         []string                 `json:"extends,omitempty"`
}

// EnumShape describes an exported enum in declaration order.
type EnumShape struct {
	Members []snapshot.EnumMemberInfo `json:"members"`
	Const   bool                      `json:"const,omitempty"`
}

// VariableShape describes an exported variable or const binding.
type VariableShape struct {
	Type     string `json:"type"`
	Readonly bool   `json:"readonly,omitempty"`
}

// Shape is the tagged variant describing one exported runtime symbol.
// Exactly one of the variant pointers matching Kind is set.
type Shape struct {
	Name string    `json:"name"`
	Kind ShapeKind `json:"kind"`

	Function *FunctionShape `json:"function,omitempty"`
	Class    *ClassShape    `json:"class,omitempty"`
	Type     *TypeShape     `json:"type,omitempty"`
	Enum     *EnumShape     `json:"enum,omitempty"`
	Variable *VariableShape `json:"variable,omitempty"`
}

// APISnapshot is the fully-shaped export surface of one entrypoint.
type APISnapshot struct {
	EntrypointPath string                       `json:"entrypointPath"`
	Exports        map[ExportIdentity]Shape     `json:"exports"`
	Timestamp      time.Time                    `json:"timestamp"`
	Partial        bool                         `json:"partial,omitempty"`
	FailedShapes   []string                     `json:"failedShapes,omitempty"`
	AnalysisMode   AnalysisMode                 `json:"analysisMode"`
}
