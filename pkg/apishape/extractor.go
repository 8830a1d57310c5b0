package apishape

import (
	"fmt"
	"log/slog"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/gnana997/apidiff/pkg/snapshot"
)

// DefaultShapeCacheSize bounds the per-identity shape memo table.
const DefaultShapeCacheSize = 8192

// Extractor builds API shapes for resolved exports, cached by ExportIdentity.
//
// The cache is append-only within a run and holds misses too (nil shapes), so
// an export that repeatedly fails to shape is only attempted once. The cache
// is owned by the orchestrator and discarded when the project is rebuilt.
type Extractor struct {
	project *snapshot.Project
	cache   *lru.Cache[ExportIdentity, *Shape]
	logger  *slog.Logger
}

// NewExtractor creates a shape extractor bound to a project. Logger can be nil.
func NewExtractor(p *snapshot.Project, logger *slog.Logger) (*Extractor, error) {
	if logger == nil {
		logger = slog.Default()
	}

	cache, err := lru.New[ExportIdentity, *Shape](DefaultShapeCacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create shape cache: %w", err)
	}

	return &Extractor{
		project: p,
		cache:   cache,
		logger:  logger,
	}, nil
}

// BuildShape produces the API shape for one resolved export.
//
// Type-only exports of runtime symbols (functions, classes, enums, variables)
// produce no shape (nil, false); type-only interfaces and type aliases are
// shaped. A nil shape with ok=false is also returned when extraction fails;
// callers record the name in FailedShapes when they expected a runtime shape.
func (x *Extractor) BuildShape(re ResolvedExport) (*Shape, bool) {
	identity := re.Identity()
	if cached, hit := x.cache.Get(identity); hit {
		return cached, cached != nil
	}

	shape := x.buildUncached(re)
	x.cache.Add(identity, shape)
	return shape, shape != nil
}

func (x *Extractor) buildUncached(re ResolvedExport) *Shape {
	if re.IsTypeOnly && re.Kind != string(snapshot.KindInterface) && re.Kind != string(snapshot.KindType) {
		// Type-only view of a runtime symbol: no runtime shape.
		return nil
	}

	sym := x.lookupSymbol(re)
	if sym == nil {
		return x.buildFallback(re)
	}

	switch sym.Kind {
	case snapshot.KindFunction:
		return functionShape(re.Name, sym)
	case snapshot.KindClass:
		return classShape(re.Name, sym.Class)
	case snapshot.KindInterface:
		return interfaceShape(re.Name, sym.Interface)
	case snapshot.KindType:
		return typeAliasShape(re.Name, sym.TypeAlias)
	case snapshot.KindEnum:
		return enumShape(re.Name, sym.Enum)
	case snapshot.KindVariable:
		// Variables typed as interfaces still take the variable path.
		return variableShape(re.Name, sym.Variable)
	default:
		return x.buildFallback(re)
	}
}

// lookupSymbol finds the declaration behind a resolved export in its file,
// preferring the byte position and falling back to the name.
func (x *Extractor) lookupSymbol(re ResolvedExport) *snapshot.SymbolInfo {
	if re.DeclFilePath == "" {
		return nil
	}

	symbols, err := x.project.Symbols(re.DeclFilePath)
	if err != nil {
		x.logger.Debug("failed to load declaration file",
			"path", re.DeclFilePath,
			"error", err)
		return nil
	}

	for i := range symbols {
		if symbols[i].StartByte == re.DeclPos {
			return &symbols[i]
		}
	}

	// Position drift (the declaration byte range may cover the whole export
	// statement): fall back to the declared name. Re-exports are declared
	// under their source name, not the alias consumers see.
	name := re.Name
	if re.SourceModule != "" && re.SourceName != "" && re.SourceName != "*" {
		name = re.SourceName
	}
	for i := range symbols {
		if symbols[i].Name == name {
			return &symbols[i]
		}
	}
	return nil
}

// buildFallback produces a placeholder shape when no syntactic declaration is
// reachable: a namespace re-export becomes a readonly variable typed
// `typeof import("m")`, an interface or type alias an empty property bag, and
// a function, class, enum or variable a variable typed "unknown". Any other
// kind yields nil.
func (x *Extractor) buildFallback(re ResolvedExport) *Shape {
	if re.ExportType == snapshot.ExportNamespace && re.SourceModule != "" {
		return &Shape{
			Name: re.Name,
			Kind: ShapeVariable,
			Variable: &VariableShape{
				Type:     fmt.Sprintf("typeof import(%q)", re.SourceModule),
				Readonly: true,
			},
		}
	}

	switch re.Kind {
	case string(snapshot.KindInterface):
		return &Shape{Name: re.Name, Kind: ShapeInterface, Type: &TypeShape{Properties: []snapshot.PropertyInfo{}}}
	case string(snapshot.KindType):
		return &Shape{Name: re.Name, Kind: ShapeType, Type: &TypeShape{Properties: []snapshot.PropertyInfo{}}}
	case string(snapshot.KindFunction), string(snapshot.KindClass), string(snapshot.KindEnum), string(snapshot.KindVariable):
		return &Shape{Name: re.Name, Kind: ShapeVariable, Variable: &VariableShape{Type: "unknown"}}
	}

	return nil
}

func functionShape(name string, sym *snapshot.SymbolInfo) *Shape {
	fs := &FunctionShape{}
	if sym.Function != nil {
		fs.TypeParams = sym.Function.TypeParams
	}

	if sym.Function != nil && len(sym.Function.Signatures) >= 2 {
		for _, sig := range sym.Function.Signatures {
			fs.Overloads = append(fs.Overloads, FunctionSignature{
				Parameters: sig.Parameters,
				ReturnType: sig.ReturnType,
			})
		}
	} else {
		fs.Overloads = []FunctionSignature{{
			Parameters: sym.Parameters,
			ReturnType: sym.ReturnType,
		}}
	}

	return &Shape{Name: name, Kind: ShapeFunction, Function: fs}
}

func classShape(name string, d *snapshot.ClassDetail) *Shape {
	if d == nil {
		d = &snapshot.ClassDetail{}
	}

	cs := &ClassShape{
		TypeParams: d.TypeParams,
		Extends:    d.Extends,
		Implements: d.Implements,
		Members:    []snapshot.ClassMemberInfo{},
	}

	for _, m := range d.Members {
		if m.Visibility == "private" {
			continue
		}
		if m.Kind == snapshot.MemberConstructor {
			if cs.Constructor == nil {
				cs.Constructor = &FunctionSignature{
					Parameters: m.Parameters,
					ReturnType: m.ReturnType,
				}
			}
			continue
		}
		cs.Members = append(cs.Members, m)
	}

	return &Shape{Name: name, Kind: ShapeClass, Class: cs}
}

func interfaceShape(name string, d *snapshot.InterfaceDetail) *Shape {
	if d == nil {
		d = &snapshot.InterfaceDetail{}
	}

	shape := &TypeShape{
		TypeParams:      d.TypeParams,
		Properties:      append([]snapshot.PropertyInfo{}, d.Properties...),
		IndexSignatures: d.IndexSignatures,
		Extends:         d.Extends,
	}

	// Interface methods fold into the property bag as callable properties.
	for _, m := range d.Methods {
		shape.Properties = append(shape.Properties, snapshot.PropertyInfo{
			Name:     m.Name,
			Type:     snapshot.OverloadKey(m.Parameters, m.ReturnType),
			Optional: m.Optional,
		})
	}

	return &Shape{Name: name, Kind: ShapeInterface, Type: shape}
}

func typeAliasShape(name string, d *snapshot.TypeAliasDetail) *Shape {
	if d == nil {
		d = &snapshot.TypeAliasDetail{}
	}

	shape := &TypeShape{
		TypeParams:      d.TypeParams,
		IndexSignatures: d.IndexSignatures,
	}
	if d.TypeText != "" {
		shape.TypeText = d.TypeText
		shape.Properties = []snapshot.PropertyInfo{}
	} else {
		shape.Properties = append([]snapshot.PropertyInfo{}, d.Properties...)
	}

	return &Shape{Name: name, Kind: ShapeType, Type: shape}
}

func enumShape(name string, d *snapshot.EnumDetail) *Shape {
	if d == nil {
		d = &snapshot.EnumDetail{Members: []snapshot.EnumMemberInfo{}}
	}
	// Enums with zero resolvable members still shape, with an empty list.
	return &Shape{Name: name, Kind: ShapeEnum, Enum: &EnumShape{
		Members: d.Members,
		Const:   d.Const,
	}}
}

func variableShape(name string, d *snapshot.VariableDetail) *Shape {
	if d == nil {
		d = &snapshot.VariableDetail{}
	}

	kind := ShapeVariable
	if d.IsConst {
		kind = ShapeConst
	}
	typeText := d.TypeText
	if typeText == "" {
		typeText = "any"
	}

	return &Shape{Name: name, Kind: kind, Variable: &VariableShape{
		Type:     typeText,
		Readonly: d.IsConst,
	}}
}
