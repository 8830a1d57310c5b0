// Package analyzer is the public entrypoint: it drives discovery, snapshot
// building, shape extraction, diffing, and report formatting over a repo.
package analyzer

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/gnana997/apidiff/pkg/apishape"
	"github.com/gnana997/apidiff/pkg/diffengine"
	"github.com/gnana997/apidiff/pkg/report"
	"github.com/gnana997/apidiff/pkg/snapshot"
	"github.com/gnana997/apidiff/pkg/util"
)

// Mode selects how much of the pipeline runs.
type Mode string

const (
	// ModeExportsOnly diffs symbol snapshots and export surfaces.
	ModeExportsOnly Mode = "exports-only"
	// ModeAPISnapshot additionally resolves exports and diffs full API shapes.
	ModeAPISnapshot Mode = "api-snapshot"
)

// Options configures one analyzer run.
type Options struct {
	// RepoRoot is the root of the tree under analysis (the "after" state).
	RepoRoot string

	// BeforeRoot optionally names a baseline tree laid out like RepoRoot.
	// Without it the run is an inventory: snapshots and statistics, no diffs.
	BeforeRoot string

	// Paths restricts analysis to specific files (absolute, or relative to
	// RepoRoot). Empty means recursive discovery under RepoRoot.
	Paths []string

	// TSConfig optionally points at a tsconfig.json; allowJs/checkJs gate the
	// JavaScript analysis flavor.
	TSConfig string

	Mode Mode

	// Impact carries the externally-resolved downstream files and affected
	// tests merged into each report.
	Impact report.ImpactBundle

	Logger *slog.Logger
}

// Result is the aggregate, deterministic outcome of a run. No timestamps, no
// random identifiers.
type Result struct {
	Findings    []report.BreakingChange          `json:"findings"`
	RuleIDs     []string                         `json:"ruleIds"`
	SymbolNames []string                         `json:"symbolNames"`
	Severities  []string                         `json:"severities"`
	FilePaths   []string                         `json:"filePaths"`
	ExportStats map[string]*snapshot.ExportStats `json:"exportStats,omitempty"`

	// Reports holds the per-file reports backing the flattened lists.
	Reports []*report.EnhancedImpactReport `json:"reports,omitempty"`
}

// Session owns the mutable analysis state for one run: the before/after
// projects, the shape extractor and its cache, and the mapped-source cache.
// Sessions are not safe for concurrent use; concurrent runs take separate
// sessions.
type Session struct {
	after   *snapshot.Project
	before  *snapshot.Project
	shapes  *apishape.Extractor
	sources *util.SourceCache
	logger  *slog.Logger
}

// NewSession creates an analysis session. Logger can be nil.
func NewSession(logger *slog.Logger) (*Session, error) {
	if logger == nil {
		logger = slog.Default()
	}

	after, err := snapshot.NewProject(logger)
	if err != nil {
		return nil, err
	}

	shapes, err := apishape.NewExtractor(after, logger)
	if err != nil {
		after.Close()
		return nil, err
	}

	sources, err := util.NewSourceCache(0, logger)
	if err != nil {
		after.Close()
		return nil, err
	}

	return &Session{
		after:   after,
		shapes:  shapes,
		sources: sources,
		logger:  logger,
	}, nil
}

// Close releases every resource the session owns.
func (s *Session) Close() error {
	if s.before != nil {
		s.before.Close()
	}
	s.sources.Close()
	return s.after.Close()
}

// beforeProject lazily creates the baseline project; it shares nothing with
// the after project so the two file states never collide.
func (s *Session) beforeProject() (*snapshot.Project, error) {
	if s.before != nil {
		return s.before, nil
	}
	p, err := snapshot.NewProject(s.logger)
	if err != nil {
		return nil, err
	}
	s.before = p
	return p, nil
}

// Run executes the full pipeline. Invalid configuration yields an empty
// result and a log entry; per-file failures are logged and skipped, so the
// returned result is always valid.
func Run(opts Options) (*Result, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	result := emptyResult()

	if opts.RepoRoot == "" {
		logger.Error("analyzer run missing repo root")
		return result, nil
	}

	var cfg *TSConfig
	if opts.TSConfig != "" {
		loaded, err := loadTSConfig(opts.TSConfig)
		if err != nil {
			logger.Error("invalid tsconfig", "path", opts.TSConfig, "error", err)
			return result, nil
		}
		cfg = loaded
	}

	paths, err := resolvePaths(opts, logger)
	if err != nil {
		logger.Error("file discovery failed", "root", opts.RepoRoot, "error", err)
		return result, nil
	}

	session, err := NewSession(logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}
	defer session.Close()

	result.ExportStats = make(map[string]*snapshot.ExportStats)

	var reports []*report.EnhancedImpactReport

	for _, path := range paths {
		content, err := session.sources.Bytes(path)
		if err != nil {
			logger.Warn("skipping unreadable file", "path", path, "error", err)
			continue
		}

		afterSnap, err := snapshot.Build(session.after, path, content)
		if err != nil {
			logger.Warn("snapshot build failed", "path", path, "error", err)
			continue
		}

		rel := report.RelPath(opts.RepoRoot, path)
		if afterSnap.Stats != nil {
			result.ExportStats[rel] = afterSnap.Stats
		}

		if opts.BeforeRoot == "" {
			continue
		}

		beforeSnap, err := session.baselineSnapshot(opts, path)
		if err != nil {
			logger.Debug("no baseline for file", "path", path, "error", err)
			beforeSnap = &snapshot.SymbolSnapshot{FilePath: path}
		}

		diff := diffengine.Diff(beforeSnap, afterSnap)
		if diff.Empty() {
			continue
		}

		rpt := report.Format(path, diff, opts.Impact, opts.RepoRoot)
		reports = append(reports, rpt)
	}

	if opts.Mode == ModeAPISnapshot && opts.BeforeRoot != "" {
		apiFindings, err := session.apiSnapshotFindings(opts, paths, cfg)
		if err != nil {
			logger.Warn("api snapshot diff failed", "error", err)
		} else if len(apiFindings) > 0 {
			reports = append(reports, &report.EnhancedImpactReport{
				FilePath:        report.RelPath(opts.RepoRoot, opts.RepoRoot),
				BreakingChanges: apiFindings,
				ImpactedSymbols: []string{},
				DownstreamFiles: []string{},
				AffectedTests:   []string{},
			})
		}
	}

	aggregate(result, reports)
	return result, nil
}

// baselineSnapshot builds the before-snapshot for one after-path.
func (s *Session) baselineSnapshot(opts Options, afterPath string) (*snapshot.SymbolSnapshot, error) {
	rel, err := filepath.Rel(opts.RepoRoot, afterPath)
	if err != nil {
		return nil, err
	}
	beforePath := filepath.Join(opts.BeforeRoot, rel)

	content, err := s.sources.Bytes(beforePath)
	if err != nil {
		return nil, err
	}

	project, err := s.beforeProject()
	if err != nil {
		return nil, err
	}

	snap, err := snapshot.Build(project, beforePath, content)
	if err != nil {
		return nil, err
	}
	// The diff pairs snapshots by the after path.
	snap.FilePath = afterPath
	return snap, nil
}

// apiSnapshotFindings builds before/after API snapshots over the entrypoint
// set and projects their diff into findings.
func (s *Session) apiSnapshotFindings(opts Options, paths []string, cfg *TSConfig) ([]report.BreakingChange, error) {
	afterAPI, err := s.buildAPISnapshot(s.after, paths, opts.RepoRoot, cfg)
	if err != nil {
		return nil, err
	}

	project, err := s.beforeProject()
	if err != nil {
		return nil, err
	}
	beforeExtractor, err := apishape.NewExtractor(project, s.logger)
	if err != nil {
		return nil, err
	}

	var beforePaths []string
	for _, path := range paths {
		rel, rerr := filepath.Rel(opts.RepoRoot, path)
		if rerr != nil {
			continue
		}
		beforePaths = append(beforePaths, filepath.Join(opts.BeforeRoot, rel))
	}

	beforeAPI, err := buildAPISnapshotWith(project, beforeExtractor, s.sources, beforePaths, opts.BeforeRoot, cfg, s.logger)
	if err != nil {
		return nil, err
	}

	apiDiff := apishape.CompareSnapshots(beforeAPI, afterAPI)
	return report.APIDiffFindings(apiDiff), nil
}

func (s *Session) buildAPISnapshot(project *snapshot.Project, paths []string, root string, cfg *TSConfig) (*apishape.APISnapshot, error) {
	return buildAPISnapshotWith(project, s.shapes, s.sources, paths, root, cfg, s.logger)
}

// buildAPISnapshotWith assembles one APISnapshot across a set of entrypoints.
func buildAPISnapshotWith(project *snapshot.Project, extractor *apishape.Extractor, sources *util.SourceCache, paths []string, root string, cfg *TSConfig, logger *slog.Logger) (*apishape.APISnapshot, error) {
	if len(paths) == 0 {
		return nil, fmt.Errorf("no entrypoints")
	}

	api := &apishape.APISnapshot{
		EntrypointPath: paths[0],
		Exports:        make(map[apishape.ExportIdentity]apishape.Shape),
		Timestamp:      time.Now(),
		AnalysisMode:   analysisModeFor(paths[0], cfg),
	}

	for _, path := range paths {
		content, err := sources.Bytes(path)
		if err != nil {
			logger.Debug("skipping unreadable entrypoint", "path", path, "error", err)
			api.Partial = true
			continue
		}

		snap, err := snapshot.Build(project, path, content)
		if err != nil {
			logger.Warn("snapshot build failed", "path", path, "error", err)
			api.Partial = true
			continue
		}

		resolved := apishape.ResolveEntrypointExports(project, path, snap.Exports, logger)
		for _, re := range resolved {
			shape, ok := extractor.BuildShape(re)
			if !ok {
				// Type-only views of runtime symbols legitimately have no
				// shape; everything else is a failure worth recording.
				if !re.IsTypeOnly {
					api.FailedShapes = append(api.FailedShapes, re.Name)
					api.Partial = true
				}
				continue
			}
			api.Exports[re.Identity()] = *shape
		}
	}

	sort.Strings(api.FailedShapes)
	return api, nil
}

// BuildAPISnapshot is the public single-call form: snapshot the export
// surface of the given entrypoints. Returns nil on invalid configuration.
func BuildAPISnapshot(opts Options) (*apishape.APISnapshot, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	if opts.RepoRoot == "" {
		logger.Error("api snapshot missing repo root")
		return nil, nil
	}

	var cfg *TSConfig
	if opts.TSConfig != "" {
		loaded, err := loadTSConfig(opts.TSConfig)
		if err != nil {
			logger.Error("invalid tsconfig", "path", opts.TSConfig, "error", err)
			return nil, nil
		}
		cfg = loaded
	}

	paths, err := resolvePaths(opts, logger)
	if err != nil || len(paths) == 0 {
		logger.Error("no analyzable entrypoints", "root", opts.RepoRoot)
		return nil, nil
	}

	session, err := NewSession(logger)
	if err != nil {
		return nil, err
	}
	defer session.Close()

	return session.buildAPISnapshot(session.after, paths, opts.RepoRoot, cfg)
}

// ExportsDiff is the regression-harness view of an export surface change.
type ExportsDiff struct {
	Added   []string `json:"added"`
	Removed []string `json:"removed"`
	Changed []string `json:"changed"`
}

// ComputeExportsDiff compares the export surfaces of two snapshots by public
// name. All three lists are sorted.
func ComputeExportsDiff(before, after *snapshot.SymbolSnapshot) ExportsDiff {
	diff := diffengine.Diff(before, after)

	added := make(map[string]bool)
	for _, e := range diff.ExportChanges.Added {
		added[e.Name] = true
	}
	removed := make(map[string]bool)
	for _, e := range diff.ExportChanges.Removed {
		removed[e.Name] = true
	}
	changed := make(map[string]bool)
	for _, m := range diff.ExportChanges.Modified {
		changed[m.After.Name] = true
	}

	return ExportsDiff{
		Added:   sortedKeys(added),
		Removed: sortedKeys(removed),
		Changed: sortedKeys(changed),
	}
}

// ComputeAPIDiff compares two API snapshots.
func ComputeAPIDiff(before, after *apishape.APISnapshot) *apishape.APIDiff {
	return apishape.CompareSnapshots(before, after)
}

// APIDiffToFindings projects an API diff into findings.
func APIDiffToFindings(diff *apishape.APIDiff) []report.BreakingChange {
	return report.APIDiffFindings(diff)
}

// SaveAPISnapshot persists a snapshot as indented JSON.
func SaveAPISnapshot(path string, snap *apishape.APISnapshot) error {
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

// LoadAPISnapshot reads a snapshot persisted by SaveAPISnapshot.
func LoadAPISnapshot(path string) (*apishape.APISnapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read snapshot: %w", err)
	}
	var snap apishape.APISnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("failed to parse snapshot %s: %w", path, err)
	}
	return &snap, nil
}

// resolvePaths normalizes Options.Paths (or discovers files) into absolute
// paths under the repo root.
func resolvePaths(opts Options, logger *slog.Logger) ([]string, error) {
	if len(opts.Paths) == 0 {
		return discoverFiles(opts.RepoRoot, DefaultScanOptions(), logger)
	}

	var out []string
	for _, p := range opts.Paths {
		if !filepath.IsAbs(p) {
			p = filepath.Join(opts.RepoRoot, p)
		}
		out = append(out, filepath.Clean(p))
	}
	sort.Strings(out)
	return out, nil
}

func emptyResult() *Result {
	return &Result{
		Findings:    []report.BreakingChange{},
		RuleIDs:     []string{},
		SymbolNames: []string{},
		Severities:  []string{},
		FilePaths:   []string{},
	}
}

// aggregate flattens per-file reports into the result's sorted lists.
func aggregate(result *Result, reports []*report.EnhancedImpactReport) {
	sort.Slice(reports, func(i, j int) bool { return reports[i].FilePath < reports[j].FilePath })

	ruleIDs := make(map[string]bool)
	symbols := make(map[string]bool)
	severities := make(map[string]bool)

	for _, rpt := range reports {
		if len(rpt.BreakingChanges) == 0 {
			continue
		}
		result.FilePaths = append(result.FilePaths, rpt.FilePath)
		result.Findings = append(result.Findings, rpt.BreakingChanges...)
		for _, f := range rpt.BreakingChanges {
			ruleIDs[f.RuleID] = true
			severities[f.Severity] = true
		}
		for _, s := range rpt.ImpactedSymbols {
			symbols[s] = true
		}
		result.Reports = append(result.Reports, rpt)
	}

	result.RuleIDs = sortedKeys(ruleIDs)
	result.SymbolNames = sortedKeys(symbols)
	result.Severities = sortedKeys(severities)
}

func sortedKeys(set map[string]bool) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
