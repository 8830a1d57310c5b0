package snapshot

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	ts "github.com/tree-sitter/go-tree-sitter"

	"github.com/gnana997/apidiff/pkg/parser"
	"github.com/gnana997/apidiff/pkg/parser/queries"
	"github.com/gnana997/apidiff/pkg/resolver"
)

// Project is the mutable analysis session shared by snapshot building and
// shape extraction. It owns the parser pool, the compiled-query cache, the
// module resolver, and the set of files loaded so far.
//
// Building a snapshot of one file may transparently pull peer files into the
// project: star re-exports are expanded by loading and analyzing their
// targets. The only mutation the project supports is "add or replace the text
// of a file"; callers must serialize concurrent snapshot builds on the same
// project instance.
type Project struct {
	parsers  *parser.ParserManager
	queries  *queries.QueryManager
	resolver *resolver.Resolver
	logger   *slog.Logger

	mu    sync.Mutex
	files map[string]*File
}

// File is one parsed source file owned by a Project. The tree stays open for
// the life of the project (or until the file's text is replaced).
type File struct {
	Path   string
	Source []byte
	Tree   *ts.Tree
	Lang   parser.Language
	IsTSX  bool

	// analysis is the memoized raw extraction for this file's current text.
	analysis *fileAnalysis
}

// NewProject creates an analysis session. Logger can be nil.
func NewProject(logger *slog.Logger) (*Project, error) {
	if logger == nil {
		logger = slog.Default()
	}

	pm := parser.NewParserManager(logger)
	qm := queries.NewQueryManager(pm, logger)

	res, err := resolver.New(0, logger)
	if err != nil {
		pm.Close()
		return nil, fmt.Errorf("failed to create module resolver: %w", err)
	}

	return &Project{
		parsers:  pm,
		queries:  qm,
		resolver: res,
		logger:   logger,
		files:    make(map[string]*File),
	}, nil
}

// Close releases parser and query resources and all open trees.
func (p *Project) Close() error {
	p.mu.Lock()
	for _, f := range p.files {
		if f.Tree != nil {
			f.Tree.Close()
		}
	}
	p.files = make(map[string]*File)
	p.mu.Unlock()

	p.queries.Close()
	return p.parsers.Close()
}

// Resolver exposes the project's module resolver.
func (p *Project) Resolver() *resolver.Resolver {
	return p.resolver
}

// AddFile parses content and adds it to the project, replacing any previous
// text for the same path. Paths are cleaned but not required to exist on disk.
func (p *Project) AddFile(path string, content []byte) (*File, error) {
	path = filepath.Clean(path)

	lang := parser.DetectLanguage(path)
	if lang == parser.LanguageUnknown {
		return nil, fmt.Errorf("unsupported file extension: %s", path)
	}
	isTSX := parser.IsTSXFile(path)

	tree, err := p.parsers.Parse(content, lang, isTSX)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	f := &File{
		Path:   path,
		Source: content,
		Tree:   tree,
		Lang:   lang,
		IsTSX:  isTSX,
	}

	p.mu.Lock()
	if old, ok := p.files[path]; ok && old.Tree != nil {
		old.Tree.Close()
	}
	p.files[path] = f
	p.mu.Unlock()

	return f, nil
}

// Load returns the project's file for path, reading it from disk on first
// access. Read failures are returned to the caller, which treats them as a
// normal resolution miss.
func (p *Project) Load(path string) (*File, error) {
	path = filepath.Clean(path)

	p.mu.Lock()
	f, ok := p.files[path]
	p.mu.Unlock()
	if ok {
		return f, nil
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	return p.AddFile(path, content)
}

// Get returns the already-loaded file for path, or nil.
func (p *Project) Get(path string) *File {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.files[filepath.Clean(path)]
}

// ModuleExport is one name a module exposes, as seen by "exports of module"
// expansion. Local declarations carry their position; names that arrived
// through further re-export chains carry the chain's final declaration when
// it resolved.
type ModuleExport struct {
	Name         string
	Kind         string // declaration kind, or "re-export" when unresolved
	IsTypeOnly   bool
	DeclFilePath string
	DeclPos      uint32
	DeclEnd      uint32
}

// ExportsOf enumerates the export names of the module at path, chasing star
// re-exports recursively. The visited set stops cycles; pass nil at the top
// of a call chain.
//
// Star expansion never contributes "default". Unresolved re-export groups are
// counted into unresolved (when non-nil) instead of being raised.
func (p *Project) ExportsOf(path string, visited map[string]bool, unresolved *int) []ModuleExport {
	path = filepath.Clean(path)
	if visited == nil {
		visited = make(map[string]bool)
	}
	if visited[path] {
		return nil
	}
	visited[path] = true

	f, err := p.Load(path)
	if err != nil {
		if unresolved != nil {
			*unresolved++
		}
		return nil
	}

	an := p.analyze(f)

	var out []ModuleExport
	seen := make(map[string]int) // name → index in out
	add := func(me ModuleExport) {
		// A value export and a same-named type export collapse to the value
		// entry; later duplicates of the same name are dropped.
		if idx, ok := seen[me.Name]; ok {
			if out[idx].IsTypeOnly && !me.IsTypeOnly {
				out[idx] = me
			}
			return
		}
		seen[me.Name] = len(out)
		out = append(out, me)
	}

	// Local declarations exported from this file.
	for _, le := range an.localExports {
		add(ModuleExport{
			Name:         le.publicName,
			Kind:         le.kind,
			IsTypeOnly:   le.isTypeOnly,
			DeclFilePath: path,
			DeclPos:      le.declPos,
			DeclEnd:      le.declEnd,
		})
	}

	// Named re-exports: export { x as y } from "m".
	for _, stmt := range an.exportStmts {
		if stmt.source == "" || stmt.form != exportFormClause {
			continue
		}
		target, ok := p.resolver.Resolve(stmt.source, path)
		if !ok && unresolved != nil {
			*unresolved++
		}
		for _, spec := range stmt.specifiers {
			me := ModuleExport{
				Name:       spec.publicName(),
				Kind:       ReExportKind,
				IsTypeOnly: stmt.typeOnly || spec.typeOnly,
			}
			if ok {
				if origin := p.findExport(target, spec.name, visited); origin != nil {
					me.Kind = origin.Kind
					me.DeclFilePath = origin.DeclFilePath
					me.DeclPos = origin.DeclPos
					me.DeclEnd = origin.DeclEnd
					if origin.IsTypeOnly {
						me.IsTypeOnly = true
					}
				}
			}
			add(me)
		}
	}

	// Star re-exports: export * from "m" / export type * from "m".
	for _, stmt := range an.exportStmts {
		if stmt.form != exportFormStar {
			continue
		}
		target, ok := p.resolver.Resolve(stmt.source, path)
		if !ok {
			if unresolved != nil {
				*unresolved++
			}
			continue
		}
		for _, me := range p.ExportsOf(target, visited, unresolved) {
			if me.Name == "default" {
				continue
			}
			if stmt.typeOnly {
				me.IsTypeOnly = true
			}
			add(me)
		}
	}

	// Namespace re-exports: export * as ns from "m".
	for _, stmt := range an.exportStmts {
		if stmt.form != exportFormStarNamespace {
			continue
		}
		add(ModuleExport{
			Name:       stmt.namespaceName,
			Kind:       ReExportKind,
			IsTypeOnly: stmt.typeOnly,
		})
	}

	return out
}

// findExport locates the origin of one named export of the module at path,
// following alias chains. Returns nil when the name cannot be traced.
func (p *Project) findExport(path, name string, visited map[string]bool) *ModuleExport {
	// The per-lookup visited set must be independent from the caller's star
	// expansion set: the same module may legitimately appear in both.
	lookupVisited := make(map[string]bool)
	for k := range visited {
		lookupVisited[k] = true
	}
	// Allow looking into the module itself even if the star walk saw it.
	delete(lookupVisited, filepath.Clean(path))

	for _, me := range p.ExportsOf(path, lookupVisited, nil) {
		if me.Name == name {
			return &me
		}
	}
	return nil
}

// Symbols returns the detailed top-level symbols of the file at path,
// loading and analyzing it on first access.
func (p *Project) Symbols(path string) ([]SymbolInfo, error) {
	f, err := p.Load(path)
	if err != nil {
		return nil, err
	}
	return p.analyze(f).symbols, nil
}

// analyze runs (and memoizes) raw extraction for a file.
func (p *Project) analyze(f *File) *fileAnalysis {
	p.mu.Lock()
	if f.analysis != nil {
		defer p.mu.Unlock()
		return f.analysis
	}
	p.mu.Unlock()

	an := p.extractRaw(f)

	p.mu.Lock()
	f.analysis = an
	p.mu.Unlock()

	return an
}
