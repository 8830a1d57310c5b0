package snapshot

import (
	"strings"

	ts "github.com/tree-sitter/go-tree-sitter"

	"github.com/gnana997/apidiff/pkg/parser/queries"
)

// exportForm classifies an export statement.
type exportForm int

const (
	exportFormDecl          exportForm = iota // export <declaration>
	exportFormDefault                         // export default <decl|expr>
	exportFormClause                          // export { a as b } [from "m"]
	exportFormStar                            // export * from "m" / export type * from "m"
	exportFormStarNamespace                   // export * as ns from "m"
)

// exportSpec is one name inside an export clause.
type exportSpec struct {
	name     string // property name before any "as"
	alias    string // rename after "as" ("" if none)
	typeOnly bool   // per-specifier "type" marker
}

func (s exportSpec) publicName() string {
	if s.alias != "" {
		return s.alias
	}
	return s.name
}

// exportStmt is the statement-level record of one export statement.
type exportStmt struct {
	form          exportForm
	source        string // unresolved specifier; "" for local statements
	typeOnly      bool   // statement-level "export type" marker
	specifiers    []exportSpec
	namespaceName string // for export * as ns
	declNames     []string
	declKind      string
	line          int
	pos, end      uint32
}

// cjsExport is one CommonJS export assignment (JavaScript only).
type cjsExport struct {
	name string // "default" for module.exports = ..., else the property name
	kind string // declaration kind inferred from the assigned value
	line int
	pos  uint32
	end  uint32
}

// localExport is one export whose declaration lives in the analyzed file.
type localExport struct {
	publicName string
	localName  string
	kind       string
	isTypeOnly bool
	isDefault  bool
	line       int
	declPos    uint32
	declEnd    uint32
}

// fileAnalysis is the memoized raw extraction for one file.
type fileAnalysis struct {
	symbols      []SymbolInfo
	exportStmts  []exportStmt
	cjsExports   []cjsExport
	imports      []ImportInfo
	localExports []localExport
	moduleSystem ModuleSystem
}

// extractRaw runs queries and traversal over one parsed file.
//
// Per-symbol failures are isolated: a declaration that can't be processed is
// skipped and the rest of the file still yields an analysis.
func (p *Project) extractRaw(f *File) *fileAnalysis {
	an := &fileAnalysis{moduleSystem: ModuleSystemUnknown}

	symbolQuery, err := p.queries.GetQuery(f.Lang, queries.QueryTypeSymbols, f.IsTSX)
	if err != nil {
		p.logger.Warn("failed to get symbol query", "file", f.Path, "error", err)
		return an
	}
	exportQuery, err := p.queries.GetQuery(f.Lang, queries.QueryTypeExports, f.IsTSX)
	if err != nil {
		p.logger.Warn("failed to get export query", "file", f.Path, "error", err)
		return an
	}

	symbolMatches, err := p.queries.ExecuteQuery(f.Tree, symbolQuery, f.Source)
	if err != nil {
		p.logger.Warn("symbol query failed", "file", f.Path, "error", err)
	}
	exportMatches, err := p.queries.ExecuteQuery(f.Tree, exportQuery, f.Source)
	if err != nil {
		p.logger.Warn("export query failed", "file", f.Path, "error", err)
	}

	an.symbols = p.buildSymbols(symbolMatches, f)

	hasESM, hasCJS := false, false
	for _, match := range exportMatches {
		for _, capture := range match.Captures {
			switch capture.Name {
			case "import.stmt":
				if imp := classifyImport(capture.Node, f.Source); imp != nil {
					an.imports = append(an.imports, *imp)
				}
				hasESM = true
			case "export.stmt":
				if stmt := classifyExport(capture.Node, f.Source); stmt != nil {
					an.exportStmts = append(an.exportStmts, *stmt)
				}
				hasESM = true
			case "import.commonjs.stmt":
				if imp := classifyRequire(match.Captures, f.Source); imp != nil {
					an.imports = append(an.imports, *imp)
					hasCJS = true
				}
			case "export.commonjs.stmt":
				if ce := classifyCommonJSExport(match.Captures, f.Source); ce != nil {
					an.cjsExports = append(an.cjsExports, *ce)
					hasCJS = true
				}
			}
		}
	}

	switch {
	case hasESM && hasCJS:
		an.moduleSystem = ModuleSystemMixed
	case hasESM:
		an.moduleSystem = ModuleSystemESM
	case hasCJS:
		an.moduleSystem = ModuleSystemCJS
	}

	an.localExports = computeLocalExports(an)
	markClauseExported(an)

	return an
}

// buildSymbols turns symbol query matches into detailed SymbolInfo records,
// filtered to top-level declarations, in source order. Function overload
// groups collapse into a single record with the implementation last.
func (p *Project) buildSymbols(matches []queries.QueryMatch, f *File) []SymbolInfo {
	type rawSymbol struct {
		info SymbolInfo
		node *ts.Node
	}

	var raws []rawSymbol
	seenDefinitions := make(map[uint32]int) // definition start byte → index in raws

	for _, match := range matches {
		var nameCapture, defCapture *queries.QueryCapture
		for i := range match.Captures {
			if match.Captures[i].Field == "name" {
				nameCapture = &match.Captures[i]
			}
			if match.Captures[i].Field == "definition" {
				defCapture = &match.Captures[i]
			}
		}
		if nameCapture == nil || defCapture == nil {
			continue
		}

		decl := defCapture.Node
		if !topLevelDeclaration(decl) {
			continue
		}

		kind := symbolKindFromCategory(nameCapture.Category)

		// A variable_declarator with a function initializer matches both the
		// function pattern and the plain variable pattern; the function
		// classification wins.
		start := uint32(decl.StartByte())
		if idx, dup := seenDefinitions[start]; dup {
			if kind == KindFunction && raws[idx].info.Kind == KindVariable {
				raws[idx] = rawSymbol{info: p.buildSymbol(nameCapture.Text, kind, decl, f), node: decl}
			}
			continue
		}

		raws = append(raws, rawSymbol{info: p.buildSymbol(nameCapture.Text, kind, decl, f), node: decl})
		seenDefinitions[start] = len(raws) - 1
	}

	// Collapse overload groups: multiple function declarations/signatures
	// sharing a name become one symbol whose overload list ends with the
	// implementation signature.
	var out []SymbolInfo
	functionIndex := make(map[string]int) // name → index in out

	for _, raw := range raws {
		info := raw.info

		if info.Kind != KindFunction {
			out = append(out, info)
			continue
		}

		idx, exists := functionIndex[info.Name]
		if !exists {
			functionIndex[info.Name] = len(out)
			out = append(out, info)
			continue
		}

		group := &out[idx]
		if group.Overloads == nil {
			group.Overloads = []string{OverloadKey(group.Parameters, group.ReturnType)}
			if group.Function != nil {
				group.Function.Signatures = []CallSignature{{Parameters: group.Parameters, ReturnType: group.ReturnType}}
			}
		}
		group.Overloads = append(group.Overloads, OverloadKey(info.Parameters, info.ReturnType))
		if group.Function != nil {
			group.Function.Signatures = append(group.Function.Signatures, CallSignature{Parameters: info.Parameters, ReturnType: info.ReturnType})
		}
		// The last declaration in source order is the implementation: its
		// parameters and signature become the symbol's primary ones.
		group.Parameters = info.Parameters
		group.ReturnType = info.ReturnType
		group.Signature = info.Signature
		group.EndByte = info.EndByte
	}

	return out
}

// buildSymbol assembles one SymbolInfo with per-kind detail.
func (p *Project) buildSymbol(name string, kind SymbolKind, decl *ts.Node, f *File) SymbolInfo {
	start := decl.StartPosition()
	info := SymbolInfo{
		Name:          name,
		QualifiedName: name,
		Line:          int(start.Row) + 1,
		Column:        int(start.Column) + 1,
		Kind:          kind,
		IsExported:    declarationExported(decl),
		StartByte:     uint32(decl.StartByte()),
		EndByte:       uint32(decl.EndByte()),
	}

	switch kind {
	case KindFunction:
		callable := decl
		detail := &FunctionDetail{}
		if decl.GrammarName() == "variable_declarator" {
			if value := decl.ChildByFieldName("value"); value != nil {
				callable = value
				detail.IsArrowFunction = value.GrammarName() == "arrow_function"
			}
		}
		detail.IsAsync = hasKeywordChild(callable, "async", f.Source)
		detail.TypeParams = extractTypeParams(callable.ChildByFieldName("type_parameters"), f.Source)
		info.Parameters, info.ReturnType = callableDetail(callable, f.Source)
		info.Signature = FunctionSignature(name, info.Parameters, info.ReturnType)
		info.Function = detail

	case KindClass:
		detail := extractClassDetail(decl, f.Source)
		info.Class = detail
		info.Signature = ClassSignature(name, detail.Extends)

	case KindInterface:
		detail := extractInterfaceDetail(decl, f.Source)
		info.Interface = detail
		info.Signature = InterfaceSignature(name, detail)

	case KindType:
		detail := extractTypeAliasDetail(decl, f.Source)
		info.TypeAlias = detail
		info.Signature = TypeAliasSignature(name, detail)

	case KindEnum:
		detail := extractEnumDetail(decl, f.Source)
		info.Enum = detail
		info.Signature = EnumSignature(name, detail)

	case KindVariable:
		detail := &VariableDetail{}
		if decl.GrammarName() == "variable_declarator" {
			detail.TypeText = annotationType(decl.ChildByFieldName("type"), f.Source)
			if parent := decl.Parent(); parent != nil {
				first := parent.Child(0)
				detail.IsConst = first != nil && nodeText(first, f.Source) == "const"
			}
		}
		info.Variable = detail
		info.Signature = VariableSignature(name, detail.TypeText)
	}

	return info
}

func symbolKindFromCategory(category string) SymbolKind {
	switch category {
	case "function":
		return KindFunction
	case "class":
		return KindClass
	case "interface":
		return KindInterface
	case "type":
		return KindType
	case "enum":
		return KindEnum
	default:
		return KindVariable
	}
}

// stringLiteralText unwraps a string node to its fragment text.
func stringLiteralText(n *ts.Node, src []byte) string {
	if n == nil {
		return ""
	}
	if n.GrammarName() == "string" {
		for i := uint(0); i < n.NamedChildCount(); i++ {
			if frag := n.NamedChild(i); frag != nil && frag.GrammarName() == "string_fragment" {
				return nodeText(frag, src)
			}
		}
		return strings.Trim(nodeText(n, src), "\"'`")
	}
	return strings.Trim(nodeText(n, src), "\"'`")
}

// classifyImport turns an import_statement node into an ImportInfo.
func classifyImport(stmt *ts.Node, src []byte) *ImportInfo {
	info := &ImportInfo{Symbols: []string{}}

	if source := stmt.ChildByFieldName("source"); source != nil {
		info.Module = stringLiteralText(source, src)
	}

	for i := uint(0); i < stmt.NamedChildCount(); i++ {
		child := stmt.NamedChild(i)
		if child == nil {
			continue
		}
		switch child.GrammarName() {
		case "import_clause":
			for j := uint(0); j < child.NamedChildCount(); j++ {
				part := child.NamedChild(j)
				if part == nil {
					continue
				}
				switch part.GrammarName() {
				case "identifier":
					info.IsDefault = true
					info.Symbols = append(info.Symbols, nodeText(part, src))
				case "namespace_import":
					info.IsNamespace = true
					if ns := part.NamedChild(0); ns != nil {
						info.Symbols = append(info.Symbols, nodeText(ns, src))
					}
				case "named_imports":
					for k := uint(0); k < part.NamedChildCount(); k++ {
						spec := part.NamedChild(k)
						if spec == nil || spec.GrammarName() != "import_specifier" {
							continue
						}
						local := spec.ChildByFieldName("alias")
						if local == nil {
							local = spec.ChildByFieldName("name")
						}
						if local != nil {
							info.Symbols = append(info.Symbols, nodeText(local, src))
						}
					}
				}
			}
		case "import_require_clause":
			// import X = require("m")
			info.IsDefault = true
			if ident := child.NamedChild(0); ident != nil {
				info.Symbols = append(info.Symbols, nodeText(ident, src))
			}
			if source := child.ChildByFieldName("source"); source != nil {
				info.Module = stringLiteralText(source, src)
			}
		}
	}

	if info.Module == "" {
		return nil
	}
	return info
}

// classifyExport turns an export_statement node into an exportStmt record.
func classifyExport(stmt *ts.Node, src []byte) *exportStmt {
	start := stmt.StartPosition()
	rec := &exportStmt{
		line: int(start.Row) + 1,
		pos:  uint32(stmt.StartByte()),
		end:  uint32(stmt.EndByte()),
	}

	rec.typeOnly = hasKeywordChild(stmt, "type", src)

	if source := stmt.ChildByFieldName("source"); source != nil {
		rec.source = stringLiteralText(source, src)
	}

	// export * as ns from "m"
	for i := uint(0); i < stmt.NamedChildCount(); i++ {
		child := stmt.NamedChild(i)
		if child != nil && child.GrammarName() == "namespace_export" {
			rec.form = exportFormStarNamespace
			if ident := child.NamedChild(0); ident != nil {
				rec.namespaceName = nodeText(ident, src)
			}
			return rec
		}
	}

	// export * from "m" / export type * from "m"
	if hasKeywordChild(stmt, "*", src) {
		if rec.source == "" {
			return nil
		}
		rec.form = exportFormStar
		return rec
	}

	// export { a, b as c } [from "m"]
	for i := uint(0); i < stmt.NamedChildCount(); i++ {
		child := stmt.NamedChild(i)
		if child == nil || child.GrammarName() != "export_clause" {
			continue
		}
		rec.form = exportFormClause
		for j := uint(0); j < child.NamedChildCount(); j++ {
			spec := child.NamedChild(j)
			if spec == nil || spec.GrammarName() != "export_specifier" {
				continue
			}
			es := exportSpec{
				name:     nodeText(spec.ChildByFieldName("name"), src),
				typeOnly: hasKeywordChild(spec, "type", src),
			}
			if alias := spec.ChildByFieldName("alias"); alias != nil {
				es.alias = nodeText(alias, src)
			}
			rec.specifiers = append(rec.specifiers, es)
		}
		return rec
	}

	// export default <decl|expr>
	if hasKeywordChild(stmt, "default", src) {
		rec.form = exportFormDefault
		if decl := stmt.ChildByFieldName("declaration"); decl != nil {
			rec.declKind = declarationKind(decl)
			if name := decl.ChildByFieldName("name"); name != nil {
				rec.declNames = []string{nodeText(name, src)}
			}
		} else if value := stmt.ChildByFieldName("value"); value != nil {
			rec.declKind = valueKind(value)
			if value.GrammarName() == "identifier" {
				rec.declNames = []string{nodeText(value, src)}
			}
		}
		return rec
	}

	// A sourced statement with no clause and no declaration can only be a
	// star re-export, whatever shape the grammar gave the "*" token.
	if rec.source != "" && stmt.ChildByFieldName("declaration") == nil {
		rec.form = exportFormStar
		return rec
	}

	// export <declaration>
	if decl := stmt.ChildByFieldName("declaration"); decl != nil {
		rec.form = exportFormDecl
		rec.declKind = declarationKind(decl)
		switch decl.GrammarName() {
		case "lexical_declaration", "variable_declaration":
			for i := uint(0); i < decl.NamedChildCount(); i++ {
				declarator := decl.NamedChild(i)
				if declarator == nil || declarator.GrammarName() != "variable_declarator" {
					continue
				}
				if name := declarator.ChildByFieldName("name"); name != nil {
					rec.declNames = append(rec.declNames, nodeText(name, src))
				}
			}
		default:
			if name := decl.ChildByFieldName("name"); name != nil {
				rec.declNames = []string{nodeText(name, src)}
			}
		}
		return rec
	}

	return nil
}

// declarationKind maps a declaration node to a SymbolKind string.
func declarationKind(decl *ts.Node) string {
	switch decl.GrammarName() {
	case "function_declaration", "function_signature", "generator_function_declaration":
		return string(KindFunction)
	case "class_declaration", "abstract_class_declaration":
		return string(KindClass)
	case "interface_declaration":
		return string(KindInterface)
	case "type_alias_declaration":
		return string(KindType)
	case "enum_declaration":
		return string(KindEnum)
	case "lexical_declaration", "variable_declaration":
		return string(KindVariable)
	default:
		return string(KindVariable)
	}
}

// valueKind maps a default-exported expression to a kind string.
func valueKind(value *ts.Node) string {
	switch value.GrammarName() {
	case "function_expression", "arrow_function", "generator_function":
		return string(KindFunction)
	case "class":
		return string(KindClass)
	case "object":
		return "object"
	default:
		return string(KindVariable)
	}
}

// classifyRequire turns CommonJS require captures into an ImportInfo.
func classifyRequire(captures []queries.QueryCapture, src []byte) *ImportInfo {
	var binding, callee, source *queries.QueryCapture
	for i := range captures {
		switch captures[i].Name {
		case "import.commonjs.binding":
			binding = &captures[i]
		case "import.commonjs.callee":
			callee = &captures[i]
		case "import.commonjs.source":
			source = &captures[i]
		}
	}
	if callee == nil || callee.Text != "require" || source == nil {
		return nil
	}

	info := &ImportInfo{Module: source.Text, Symbols: []string{}}
	if binding != nil {
		switch binding.Node.GrammarName() {
		case "identifier":
			info.IsNamespace = true
			info.Symbols = append(info.Symbols, binding.Text)
		case "object_pattern":
			for i := uint(0); i < binding.Node.NamedChildCount(); i++ {
				if prop := binding.Node.NamedChild(i); prop != nil {
					info.Symbols = append(info.Symbols, nodeText(prop, src))
				}
			}
		}
	}
	return info
}

// classifyCommonJSExport turns a module.exports / exports.* assignment into a
// cjsExport record. Non-export member assignments return nil.
func classifyCommonJSExport(captures []queries.QueryCapture, src []byte) *cjsExport {
	var target, value, stmt *queries.QueryCapture
	for i := range captures {
		switch captures[i].Name {
		case "export.commonjs.target":
			target = &captures[i]
		case "export.commonjs.value":
			value = &captures[i]
		case "export.commonjs.stmt":
			stmt = &captures[i]
		}
	}
	if target == nil || stmt == nil {
		return nil
	}

	start := stmt.Node.StartPosition()
	rec := &cjsExport{
		line: int(start.Row) + 1,
		pos:  uint32(stmt.Node.StartByte()),
		end:  uint32(stmt.Node.EndByte()),
	}
	if value != nil {
		rec.kind = valueKind(value.Node)
	}

	switch target.Text {
	case "module.exports":
		rec.name = "default"
		return rec
	}
	if after, ok := strings.CutPrefix(target.Text, "module.exports."); ok {
		rec.name = after
		return rec
	}
	if after, ok := strings.CutPrefix(target.Text, "exports."); ok {
		rec.name = after
		return rec
	}
	return nil
}

// computeLocalExports joins export statements against the symbol table to
// produce the exported local declarations with their positions.
func computeLocalExports(an *fileAnalysis) []localExport {
	byName := make(map[string]*SymbolInfo)
	for i := range an.symbols {
		if _, ok := byName[an.symbols[i].Name]; !ok {
			byName[an.symbols[i].Name] = &an.symbols[i]
		}
	}

	var out []localExport
	for _, stmt := range an.exportStmts {
		switch stmt.form {
		case exportFormDecl:
			for _, name := range stmt.declNames {
				le := localExport{
					publicName: name,
					localName:  name,
					kind:       stmt.declKind,
					line:       stmt.line,
					declPos:    stmt.pos,
					declEnd:    stmt.end,
				}
				if sym, ok := byName[name]; ok {
					le.kind = string(sym.Kind)
					le.declPos = sym.StartByte
					le.declEnd = sym.EndByte
					le.line = sym.Line
				}
				le.isTypeOnly = typeLevelKind(le.kind)
				out = append(out, le)
			}

		case exportFormDefault:
			le := localExport{
				publicName: "default",
				kind:       stmt.declKind,
				isDefault:  true,
				line:       stmt.line,
				declPos:    stmt.pos,
				declEnd:    stmt.end,
			}
			if len(stmt.declNames) > 0 {
				le.localName = stmt.declNames[0]
				if sym, ok := byName[le.localName]; ok {
					le.kind = string(sym.Kind)
					le.declPos = sym.StartByte
					le.declEnd = sym.EndByte
				}
			}
			out = append(out, le)

		case exportFormClause:
			if stmt.source != "" {
				continue // re-export, handled by pass 3
			}
			for _, spec := range stmt.specifiers {
				le := localExport{
					publicName: spec.publicName(),
					localName:  spec.name,
					kind:       string(KindVariable),
					isTypeOnly: stmt.typeOnly || spec.typeOnly,
					line:       stmt.line,
					declPos:    stmt.pos,
					declEnd:    stmt.end,
				}
				if sym, ok := byName[spec.name]; ok {
					le.kind = string(sym.Kind)
					le.declPos = sym.StartByte
					le.declEnd = sym.EndByte
				}
				if !le.isTypeOnly {
					le.isTypeOnly = typeLevelKind(le.kind)
				}
				out = append(out, le)
			}
		}
	}
	return out
}

// markClauseExported flags symbols that are exported through a local clause
// (export { x }) rather than an export modifier.
func markClauseExported(an *fileAnalysis) {
	exported := make(map[string]bool)
	for _, le := range an.localExports {
		if le.localName != "" {
			exported[le.localName] = true
		}
	}
	for i := range an.symbols {
		if exported[an.symbols[i].Name] {
			an.symbols[i].IsExported = true
		}
	}
}

// typeLevelKind reports whether a declaration kind exists only in the type
// system (erased at runtime).
func typeLevelKind(kind string) bool {
	return kind == string(KindInterface) || kind == string(KindType)
}
