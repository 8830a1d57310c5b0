package snapshot

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gnana997/apidiff/pkg/parser"
)

// Build produces the SymbolSnapshot for one file, adding (or replacing) the
// file's text in the project so peer files see the current content.
//
// Per-symbol failures never abort the build; the snapshot is simply missing
// the affected symbol. Unresolved re-export groups are counted into the
// statistics block rather than raised.
func Build(p *Project, filePath string, content []byte) (*SymbolSnapshot, error) {
	f, err := p.AddFile(filePath, content)
	if err != nil {
		return nil, err
	}

	an := p.analyze(f)

	snap := &SymbolSnapshot{
		FilePath:  f.Path,
		Timestamp: time.Now(),
		Imports:   an.imports,
	}

	for _, sym := range an.symbols {
		switch sym.Kind {
		case KindFunction:
			snap.Functions = append(snap.Functions, sym)
		case KindClass:
			snap.Classes = append(snap.Classes, sym)
		case KindInterface:
			snap.Interfaces = append(snap.Interfaces, sym)
		case KindType:
			snap.Types = append(snap.Types, sym)
		case KindEnum:
			snap.Enums = append(snap.Enums, sym)
		}
	}

	unresolved := 0
	snap.Exports = buildExports(p, f, an, &unresolved)

	stats := computeStats(snap.Exports, an)
	stats.ReexportGroupsUnresolved = unresolved
	snap.Stats = stats

	if f.Lang == parser.LanguageJavaScript {
		snap.ModuleSystem = an.moduleSystem
		snap.Package = nearestPackageSummary(f.Path)
	}

	p.checkBarrelInvariants(snap, an)

	return snap, nil
}

// buildExports runs the three-pass export algorithm:
//
//  1. Discover re-export statements and collect the public names they
//     contribute, expanding star re-exports through the project.
//  2. Emit direct exports for local declarations whose public name is not
//     already provided by a re-export statement.
//  3. Replay the re-export statements, emitting one record per contributed
//     name.
//
// Re-export statements take precedence: a name that appears both as a local
// declaration and a re-export target yields only the re-export record.
func buildExports(p *Project, f *File, an *fileAnalysis, unresolved *int) []ExportInfo {
	// Pass 1: discover re-export statements and their contributed names.
	type starExpansion struct {
		stmt    exportStmt
		exports []ModuleExport
	}
	var stars []starExpansion
	reExportedNames := make(map[string]bool)

	for _, stmt := range an.exportStmts {
		switch stmt.form {
		case exportFormClause:
			if stmt.source == "" {
				continue
			}
			for _, spec := range stmt.specifiers {
				reExportedNames[spec.publicName()] = true
			}

		case exportFormStar:
			target, ok := p.resolver.Resolve(stmt.source, f.Path)
			if !ok {
				*unresolved++
				stars = append(stars, starExpansion{stmt: stmt})
				continue
			}
			visited := map[string]bool{f.Path: true}
			expansion := p.ExportsOf(target, visited, unresolved)
			for _, me := range expansion {
				if me.Name != "default" {
					reExportedNames[me.Name] = true
				}
			}
			stars = append(stars, starExpansion{stmt: stmt, exports: expansion})

		case exportFormStarNamespace:
			reExportedNames[stmt.namespaceName] = true
		}
	}

	var out []ExportInfo

	// Pass 2: direct exports of local declarations.
	for _, le := range an.localExports {
		if reExportedNames[le.publicName] {
			continue
		}

		info := ExportInfo{
			Name:         le.publicName,
			Type:         ExportNamed,
			Kind:         le.kind,
			Line:         le.line,
			IsTypeOnly:   le.isTypeOnly,
			DeclFilePath: f.Path,
			DeclPos:      le.declPos,
			DeclEnd:      le.declEnd,
			SymbolRef:    symbolRef(f.Path, le.localName, le.kind),
		}
		if le.isDefault {
			info.Type = ExportDefault
			if le.localName != "" {
				info.Name = le.localName
			}
		}
		out = append(out, info)
	}

	// CommonJS export assignments (JavaScript module-surface flavor).
	for _, ce := range an.cjsExports {
		out = append(out, ExportInfo{
			Name:         ce.name,
			Type:         cjsExportType(ce.name),
			Kind:         ce.kind,
			Line:         ce.line,
			DeclFilePath: f.Path,
			DeclPos:      ce.pos,
			DeclEnd:      ce.end,
			SymbolRef:    "cjs:module.exports",
		})
	}

	// Pass 3: replay re-export statements.
	for _, stmt := range an.exportStmts {
		switch stmt.form {
		case exportFormClause:
			if stmt.source == "" {
				continue
			}
			for _, spec := range stmt.specifiers {
				info := ExportInfo{
					Name:         spec.publicName(),
					Type:         ExportNamed,
					Kind:         ReExportKind,
					Line:         stmt.line,
					SourceModule: stmt.source,
					SourceName:   spec.name,
					IsTypeOnly:   stmt.typeOnly || spec.typeOnly,
				}
				if target, ok := p.resolver.Resolve(stmt.source, f.Path); ok {
					visited := map[string]bool{f.Path: true}
					if origin := p.findExport(target, spec.name, visited); origin != nil {
						info.DeclFilePath = origin.DeclFilePath
						info.DeclPos = origin.DeclPos
						info.DeclEnd = origin.DeclEnd
						info.SymbolRef = symbolRef(origin.DeclFilePath, spec.name, origin.Kind)
						if origin.IsTypeOnly {
							info.IsTypeOnly = true
						}
					}
				}
				out = append(out, info)
			}

		case exportFormStarNamespace:
			out = append(out, ExportInfo{
				Name:         stmt.namespaceName,
				Type:         ExportNamespace,
				Kind:         ReExportKind,
				Line:         stmt.line,
				SourceModule: stmt.source,
				SourceName:   "*",
				IsTypeOnly:   stmt.typeOnly,
			})
		}
	}

	for _, star := range stars {
		for _, me := range star.exports {
			if me.Name == "default" {
				continue
			}
			info := ExportInfo{
				Name:         me.Name,
				Type:         ExportNamed,
				Kind:         ReExportKind,
				Line:         star.stmt.line,
				SourceModule: star.stmt.source,
				SourceName:   me.Name,
				IsTypeOnly:   me.IsTypeOnly || star.stmt.typeOnly,
				DeclFilePath: me.DeclFilePath,
				DeclPos:      me.DeclPos,
				DeclEnd:      me.DeclEnd,
			}
			if me.DeclFilePath != "" {
				info.SymbolRef = symbolRef(me.DeclFilePath, me.Name, me.Kind)
			}
			out = append(out, info)
		}
	}

	return out
}

// symbolRef builds the stable symbol handle for a declaration.
func symbolRef(path, name, kind string) string {
	if name == "" {
		return ""
	}
	return fmt.Sprintf("%s#%s#%s", path, name, kind)
}

func cjsExportType(name string) ExportType {
	if name == "default" {
		return ExportDefault
	}
	return ExportNamed
}

// computeStats fills the diagnostic statistics block for a snapshot.
func computeStats(exports []ExportInfo, an *fileAnalysis) *ExportStats {
	stats := &ExportStats{}

	unique := make(map[string]bool)
	for _, e := range exports {
		stats.ExportsTotal++
		switch {
		case !e.IsReExport():
			stats.DirectExports++
		case !e.IsTypeOnly:
			stats.ReExportedSymbols++
		}
		if e.IsTypeOnly {
			stats.TypeOnlyExports++
			stats.ExportsType++
		} else {
			stats.ExportsRuntime++
		}
		if e.DeclFilePath != "" {
			stats.ExportsWithDeclarations++
		}
		unique[e.StrongKey()] = true
	}
	stats.ExportsUnique = len(unique)

	return stats
}

// checkBarrelInvariants runs the deterministic self-checks for barrel files
// (no local declarations, nonzero exports). Violations warn and continue.
func (p *Project) checkBarrelInvariants(snap *SymbolSnapshot, an *fileAnalysis) {
	if len(an.symbols) > 0 || len(snap.Exports) == 0 || snap.Stats == nil {
		return
	}

	stats := snap.Stats
	if stats.DirectExports != 0 {
		p.logger.Warn("barrel file has direct exports",
			"file", snap.FilePath,
			"directExports", stats.DirectExports)
	}
	// One collision is tolerated (a name can legitimately arrive twice
	// through different re-export groups).
	if stats.ExportsTotal-stats.ExportsUnique > 1 {
		p.logger.Warn("barrel file export keys collide",
			"file", snap.FilePath,
			"total", stats.ExportsTotal,
			"unique", stats.ExportsUnique)
	}
	hasTypeStar := false
	for _, stmt := range an.exportStmts {
		if stmt.form == exportFormStar && stmt.typeOnly {
			hasTypeStar = true
		}
	}
	if hasTypeStar && stats.ExportsType < stats.TypeOnlyExports {
		p.logger.Warn("barrel file type export counts inconsistent",
			"file", snap.FilePath,
			"exportsType", stats.ExportsType,
			"typeOnly", stats.TypeOnlyExports)
	}
}

// nearestPackageSummary walks up from the file looking for package.json.
func nearestPackageSummary(filePath string) *PackageSummary {
	dir := filepath.Dir(filePath)
	for {
		manifest := filepath.Join(dir, "package.json")
		if data, err := os.ReadFile(manifest); err == nil {
			var pkg struct {
				Type    string          `json:"type"`
				Exports json.RawMessage `json:"exports"`
			}
			if jerr := json.Unmarshal(data, &pkg); jerr == nil {
				return &PackageSummary{
					Path:          manifest,
					Type:          pkg.Type,
					HasExportsMap: len(pkg.Exports) > 0,
				}
			}
			return &PackageSummary{Path: manifest}
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return nil
		}
		dir = parent
	}
}
