package apishape

import (
	"log/slog"

	"github.com/gnana997/apidiff/pkg/snapshot"
)

// ResolveEntrypointExports traces each export of an entrypoint to its
// originating declaration, chasing alias chains through the project.
//
// The snapshot builder already records declaration locations for everything
// it could trace; resolution here re-attempts the stragglers and applies the
// value-over-type preference: when a name is exported both as a value and as
// a same-named type, only the value survives unless the outer export is
// type-only.
func ResolveEntrypointExports(p *snapshot.Project, entrypointPath string, exports []snapshot.ExportInfo, logger *slog.Logger) []ResolvedExport {
	if logger == nil {
		logger = slog.Default()
	}

	var out []ResolvedExport
	byName := make(map[string]int) // name → index in out

	for _, e := range exports {
		re := ResolvedExport{
			Name:         e.Name,
			ExportType:   e.Type,
			Kind:         e.Kind,
			IsTypeOnly:   e.IsTypeOnly,
			SourceModule: e.SourceModule,
			SourceName:   e.SourceName,
			DeclFilePath: e.DeclFilePath,
			DeclPos:      e.DeclPos,
			DeclEnd:      e.DeclEnd,
			SymbolRef:    e.SymbolRef,
		}

		// Star expansion never re-exports default.
		if e.IsReExport() && e.SourceName == e.Name && e.Name == "default" {
			continue
		}

		// Re-attempt resolution for re-exports the builder could not trace.
		if re.DeclFilePath == "" && e.IsReExport() && e.SourceName != "" && e.SourceName != "*" {
			if target, ok := p.Resolver().Resolve(e.SourceModule, entrypointPath); ok {
				for _, me := range p.ExportsOf(target, nil, nil) {
					if me.Name != e.SourceName {
						continue
					}
					re.Kind = me.Kind
					re.DeclFilePath = me.DeclFilePath
					re.DeclPos = me.DeclPos
					re.DeclEnd = me.DeclEnd
					if me.IsTypeOnly {
						re.IsTypeOnly = true
					}
					break
				}
			}
		}

		if re.DeclFilePath == "" && !e.IsReExport() {
			logger.Debug("export has no declaration location",
				"entrypoint", entrypointPath,
				"name", e.Name)
		}

		idx, dup := byName[re.Name]
		if !dup {
			byName[re.Name] = len(out)
			out = append(out, re)
			continue
		}

		// Value symbols shadow same-named type symbols unless the outer
		// export is type-only.
		existing := &out[idx]
		if existing.IsTypeOnly && !re.IsTypeOnly {
			*existing = re
		}
	}

	return out
}
