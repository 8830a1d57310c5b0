package apishape

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gnana997/apidiff/pkg/snapshot"
)

func functionShapeFor(name string, params []snapshot.ParameterInfo, returnType string) Shape {
	return Shape{
		Name: name,
		Kind: ShapeFunction,
		Function: &FunctionShape{
			Overloads: []FunctionSignature{{Parameters: params, ReturnType: returnType}},
		},
	}
}

func apiSnapshot(shapes ...Shape) *APISnapshot {
	snap := &APISnapshot{
		EntrypointPath: "/repo/src/index.ts",
		Exports:        make(map[ExportIdentity]Shape),
		AnalysisMode:   ModeTypeScript,
	}
	for i, s := range shapes {
		snap.Exports[Identity(s.Name, false, "/repo/src/index.ts", uint32(i*100))] = s
	}
	return snap
}

func TestIdentity(t *testing.T) {
	id := Identity("greet", false, "/repo/src/api.ts", 42)
	assert.Equal(t, ExportIdentity("greet|value|/repo/src/api.ts|42"), id)

	typeID := Identity("Opts", true, "/repo/src/api.ts", 7)
	assert.Equal(t, ExportIdentity("Opts|type|/repo/src/api.ts|7"), typeID)
}

func TestCompareSnapshots_Empty(t *testing.T) {
	snap := apiSnapshot(functionShapeFor("f", nil, "void"))
	diff := CompareSnapshots(snap, snap)
	assert.True(t, diff.Empty())
}

func TestCompareSnapshots_RemovedAndAdded(t *testing.T) {
	before := apiSnapshot(functionShapeFor("gone", nil, "void"))
	after := apiSnapshot(functionShapeFor("fresh", []snapshot.ParameterInfo{{Name: "x", Type: "number"}}, "void"))

	diff := CompareSnapshots(before, after)

	require.Len(t, diff.Removed, 1)
	assert.Equal(t, "gone", diff.Removed[0].Name)
	require.Len(t, diff.Added, 1)
	assert.Equal(t, "fresh", diff.Added[0].Name)
}

func TestCompareSnapshots_ModifiedByNameFallback(t *testing.T) {
	// Positions differ (the file was edited), so identity matching fails and
	// the name+kind fallback pairs the entries.
	before := &APISnapshot{
		Exports: map[ExportIdentity]Shape{
			Identity("f", false, "/repo/src/a.ts", 10): functionShapeFor("f",
				[]snapshot.ParameterInfo{{Name: "x", Type: "number"}}, "void"),
		},
	}
	after := &APISnapshot{
		Exports: map[ExportIdentity]Shape{
			Identity("f", false, "/repo/src/a.ts", 99): functionShapeFor("f",
				[]snapshot.ParameterInfo{{Name: "x", Type: "string"}}, "void"),
		},
	}

	diff := CompareSnapshots(before, after)

	assert.Empty(t, diff.Removed)
	assert.Empty(t, diff.Added)
	require.Len(t, diff.Modified, 1)
	assert.Equal(t, "f", diff.Modified[0].Name)
	require.NotEmpty(t, diff.Modified[0].Details)
	assert.Contains(t, diff.Modified[0].Details[0], "'x'")
}

func TestCompareSnapshots_RenameDetection(t *testing.T) {
	shape := functionShapeFor("oldName", []snapshot.ParameterInfo{{Name: "x", Type: "number"}}, "void")
	renamed := shape
	renamed.Name = "newName"

	before := &APISnapshot{Exports: map[ExportIdentity]Shape{
		Identity("oldName", false, "/repo/src/a.ts", 10): shape,
	}}
	after := &APISnapshot{Exports: map[ExportIdentity]Shape{
		Identity("newName", false, "/repo/src/a.ts", 10): renamed,
	}}

	diff := CompareSnapshots(before, after)

	assert.Empty(t, diff.Removed)
	assert.Empty(t, diff.Added)
	require.Len(t, diff.Renamed, 1)
	assert.Equal(t, "oldName", diff.Renamed[0].From)
	assert.Equal(t, "newName", diff.Renamed[0].To)
}

func TestCompareShapes_EnumMemberValueChange(t *testing.T) {
	before := Shape{Name: "Color", Kind: ShapeEnum, Enum: &EnumShape{
		Members: []snapshot.EnumMemberInfo{{Name: "Red", Value: "1"}},
	}}
	after := Shape{Name: "Color", Kind: ShapeEnum, Enum: &EnumShape{
		Members: []snapshot.EnumMemberInfo{{Name: "Red", Value: "2"}},
	}}

	change := compareShapes(before, after)
	require.NotNil(t, change)
	assert.Contains(t, change.Details[0], "'Red'")
}

func TestCompareShapes_ClassMemberRemoved(t *testing.T) {
	before := Shape{Name: "C", Kind: ShapeClass, Class: &ClassShape{
		Members: []snapshot.ClassMemberInfo{
			{Name: "run", Kind: snapshot.MemberMethod, Signature: "run(): void"},
		},
	}}
	after := Shape{Name: "C", Kind: ShapeClass, Class: &ClassShape{Members: []snapshot.ClassMemberInfo{}}}

	change := compareShapes(before, after)
	require.NotNil(t, change)
	assert.Contains(t, change.Details[0], "'run' removed")
}

func TestCompareShapes_TypeTextWins(t *testing.T) {
	before := Shape{Name: "ID", Kind: ShapeType, Type: &TypeShape{TypeText: "string | number"}}
	after := Shape{Name: "ID", Kind: ShapeType, Type: &TypeShape{TypeText: "string"}}

	change := compareShapes(before, after)
	require.NotNil(t, change)
	assert.Contains(t, change.Details[0], "string | number")
}

func TestCompareShapes_Unchanged(t *testing.T) {
	s := functionShapeFor("f", []snapshot.ParameterInfo{{Name: "x", Type: "number"}}, "void")
	assert.Nil(t, compareShapes(s, s))
}
