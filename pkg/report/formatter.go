package report

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/gnana997/apidiff/pkg/diffengine"
	"github.com/gnana997/apidiff/pkg/parser"
	"github.com/gnana997/apidiff/pkg/snapshot"
)

// Context is the metadata bag carried on every finding.
type Context struct {
	ChangeType  string `json:"changeType"`
	IsExported  bool   `json:"isExported"`
	Kind        string `json:"kind,omitempty"`
	IsHeuristic bool   `json:"isHeuristic"`
}

// BreakingChange is one finding in the impact report.
type BreakingChange struct {
	RuleID   string  `json:"ruleId"`
	Severity string  `json:"severity"`
	Symbol   string  `json:"symbol"`
	Message  string  `json:"message"`
	Before   string  `json:"before,omitempty"`
	After    string  `json:"after,omitempty"`
	Line     int     `json:"line"`
	Context  Context `json:"context"`
}

// ImpactBundle carries the externally-supplied impact inputs merged into the
// report: downstream dependents and affected tests.
type ImpactBundle struct {
	DownstreamFiles []string `json:"downstreamFiles"`
	AffectedTests   []string `json:"affectedTests"`
}

// EnhancedImpactReport is the final, deterministic report for one file.
type EnhancedImpactReport struct {
	FilePath        string                `json:"filePath"`
	BreakingChanges []BreakingChange      `json:"breakingChanges"`
	ImpactedSymbols []string              `json:"impactedSymbols"`
	DownstreamFiles []string              `json:"downstreamFiles"`
	AffectedTests   []string              `json:"affectedTests"`
	ExportStats     *snapshot.ExportStats `json:"exportStats,omitempty"`
}

// Format projects a snapshot diff plus the resolved impact bundle into the
// impact report: rule inference for export deltas, the heuristic disclaimer
// policy, transition pairing, priority deduplication, and impacted-symbol
// derivation. File paths in the report are repo-relative with forward slashes.
func Format(filePath string, diff *diffengine.SnapshotDiff, bundle ImpactBundle, projectRoot string) *EnhancedImpactReport {
	relFile := RelPath(projectRoot, filePath)
	isJS := parser.DetectLanguage(filePath) == parser.LanguageJavaScript

	var findings []BreakingChange

	// Symbol-level findings arrive pre-classified from the diff engine.
	for _, sc := range diff.ChangedSymbols {
		ruleID := sc.RuleID
		if isJS {
			ruleID = jsSymbolRule(sc)
		}
		findings = append(findings, BreakingChange{
			RuleID:   ruleID,
			Severity: severityFor(ruleID, sc.IsExported),
			Symbol:   sc.Symbol,
			Message:  sc.Message,
			Before:   sc.Before,
			After:    sc.After,
			Line:     sc.Line,
			Context: Context{
				ChangeType:  string(sc.ChangeType),
				IsExported:  sc.IsExported,
				Kind:        string(sc.Kind),
				IsHeuristic: IsHeuristic(ruleID),
			},
		})
	}

	findings = append(findings, exportFindings(diff, isJS)...)
	findings = append(findings, packageFindings(diff)...)

	// Heuristic disclaimer policy.
	for i := range findings {
		findings[i].Message = applyDisclaimer(findings[i].RuleID, findings[i].Message)
	}

	findings = dedupeByPriority(relFile, findings)

	sort.SliceStable(findings, func(i, j int) bool {
		if findings[i].Symbol != findings[j].Symbol {
			return findings[i].Symbol < findings[j].Symbol
		}
		return findings[i].RuleID < findings[j].RuleID
	})

	report := &EnhancedImpactReport{
		FilePath:        relFile,
		BreakingChanges: findings,
		ImpactedSymbols: impactedSymbols(findings),
		DownstreamFiles: sortedCopy(bundle.DownstreamFiles),
		AffectedTests:   sortedCopy(bundle.AffectedTests),
	}
	if report.BreakingChanges == nil {
		report.BreakingChanges = []BreakingChange{}
	}

	return report
}

// exportFindings infers rules for export-level deltas: transition pairing
// first (named<->default, import-specifier changes, CJS shape changes), then
// the per-entry removal/addition/modification rules.
func exportFindings(diff *diffengine.SnapshotDiff, isJS bool) []BreakingChange {
	var findings []BreakingChange

	removed := diff.ExportChanges.Removed
	added := diff.ExportChanges.Added
	consumedRemoved := make(map[int]bool)
	consumedAdded := make(map[int]bool)

	// Import-specifier change: a removed re-export from "m" paired with an
	// added re-export from "m.js" (or the reverse) for the same name is one
	// specifier rewrite, not a removal plus an addition.
	for ri, r := range removed {
		if !r.IsReExport() {
			continue
		}
		for ai, a := range added {
			if consumedAdded[ai] || !a.IsReExport() || a.Name != r.Name {
				continue
			}
			if sameModuleDifferentSpecifier(r.SourceModule, a.SourceModule) {
				findings = append(findings, BreakingChange{
					RuleID:   RuleJSImportSpecifierChange,
					Severity: SeverityInfo,
					Symbol:   r.SourceModule,
					Message: fmt.Sprintf("Import specifier for '%s' changed from '%s' to '%s'",
						r.Name, r.SourceModule, a.SourceModule),
					Before: r.SourceModule,
					After:  a.SourceModule,
					Line:   a.Line,
					Context: Context{
						ChangeType:  "modified",
						IsExported:  true,
						Kind:        r.Kind,
						IsHeuristic: IsHeuristic(RuleJSImportSpecifierChange),
					},
				})
				consumedRemoved[ri] = true
				consumedAdded[ai] = true
				break
			}
		}
	}

	// Named<->default transitions across removal/addition pairs (anonymous
	// default exports surface as a removed named entry plus an added
	// "default" entry, or the reverse).
	for ri, r := range removed {
		if consumedRemoved[ri] {
			continue
		}
		for ai, a := range added {
			if consumedAdded[ai] {
				continue
			}
			if transition := transitionRule(r, a); transition != "" {
				findings = append(findings, transitionFinding(transition, r, a))
				consumedRemoved[ri] = true
				consumedAdded[ai] = true
				break
			}
		}
	}

	for ri, r := range removed {
		if consumedRemoved[ri] {
			continue
		}
		ruleID := removalRule(r, isJS)
		findings = append(findings, BreakingChange{
			RuleID:   ruleID,
			Severity: severityFor(ruleID, true),
			Symbol:   r.Name,
			Message:  removalMessage(r),
			Before:   exportDisplay(r),
			Line:     r.Line,
			Context: Context{
				ChangeType:  "removed",
				IsExported:  true,
				Kind:        r.Kind,
				IsHeuristic: IsHeuristic(ruleID),
			},
		})
	}

	for ai, a := range added {
		if consumedAdded[ai] {
			continue
		}
		ruleID := RuleExportAdded
		if isJS {
			ruleID = RuleJSExportAdded
		}
		findings = append(findings, BreakingChange{
			RuleID:   ruleID,
			Severity: SeverityInfo,
			Symbol:   a.Name,
			Message:  fmt.Sprintf("Export '%s' was added", a.Name),
			After:    exportDisplay(a),
			Line:     a.Line,
			Context: Context{
				ChangeType:  "added",
				IsExported:  true,
				Kind:        a.Kind,
				IsHeuristic: false,
			},
		})
	}

	for _, m := range diff.ExportChanges.Modified {
		findings = append(findings, modifiedExportFinding(m, isJS))
	}

	return findings
}

// transitionRule classifies a removed/added pair as a named<->default export
// transition. Returns "" when the pair is not a transition.
func transitionRule(r, a snapshot.ExportInfo) string {
	sameSymbol := r.Name == a.Name ||
		(a.Type == snapshot.ExportDefault && a.Name == "default" && r.Type == snapshot.ExportNamed) ||
		(r.Type == snapshot.ExportDefault && r.Name == "default" && a.Type == snapshot.ExportNamed)
	if !sameSymbol {
		return ""
	}
	if r.Type == snapshot.ExportNamed && a.Type == snapshot.ExportDefault {
		return RuleJSNamedToDefault
	}
	if r.Type == snapshot.ExportDefault && a.Type == snapshot.ExportNamed {
		return RuleJSDefaultToNamed
	}
	return ""
}

func transitionFinding(ruleID string, r, a snapshot.ExportInfo) BreakingChange {
	symbol := a.Name
	if symbol == "default" && r.Name != "default" {
		symbol = r.Name
	}

	direction := "named export became the default export"
	if ruleID == RuleJSDefaultToNamed {
		direction = "default export became a named export"
	}

	return BreakingChange{
		RuleID:   ruleID,
		Severity: SeverityBreaking,
		Symbol:   symbol,
		Message:  fmt.Sprintf("Export '%s': %s", symbol, direction),
		Before:   exportDisplay(r),
		After:    exportDisplay(a),
		Line:     a.Line,
		Context: Context{
			ChangeType:  "modified",
			IsExported:  true,
			Kind:        a.Kind,
			IsHeuristic: false,
		},
	}
}

// modifiedExportFinding diagnoses an in-place export modification: a type
// transition, a CJS default shape change, a re-export alias swap, or a
// generic source/type change.
func modifiedExportFinding(m diffengine.ExportModified, isJS bool) BreakingChange {
	b, a := m.Before, m.After

	// Named <-> default transitions (the declaration kept its local name).
	if transition := transitionRule(b, a); transition != "" {
		return transitionFinding(transition, b, a)
	}

	// CJS default-shape change: both sides are module.exports assignments
	// whose assigned kind differs.
	if b.SymbolRef == "cjs:module.exports" && a.SymbolRef == "cjs:module.exports" && b.Kind != a.Kind {
		return BreakingChange{
			RuleID:   RuleJSCJSDefaultKindChange,
			Severity: SeverityBreaking,
			Symbol:   a.Name,
			Message: fmt.Sprintf("module.exports shape changed from %s to %s",
				b.Kind, a.Kind),
			Before: exportDisplay(b),
			After:  exportDisplay(a),
			Line:   a.Line,
			Context: Context{
				ChangeType:  "modified",
				IsExported:  true,
				Kind:        a.Kind,
				IsHeuristic: false,
			},
		}
	}

	// Import-specifier rewrite: same source symbol, same module under a
	// different extension spelling. Informational, not a removal.
	if b.IsReExport() && a.IsReExport() && b.SourceName == a.SourceName &&
		sameModuleDifferentSpecifier(b.SourceModule, a.SourceModule) {
		return BreakingChange{
			RuleID:   RuleJSImportSpecifierChange,
			Severity: SeverityInfo,
			Symbol:   b.SourceModule,
			Message: fmt.Sprintf("Import specifier for '%s' changed from '%s' to '%s'",
				a.Name, b.SourceModule, a.SourceModule),
			Before: b.SourceModule,
			After:  a.SourceModule,
			Line:   a.Line,
			Context: Context{
				ChangeType:  "modified",
				IsExported:  true,
				Kind:        a.Kind,
				IsHeuristic: IsHeuristic(RuleJSImportSpecifierChange),
			},
		}
	}

	// Re-export source swap: same public name now taken from a different
	// source symbol or module.
	if b.IsReExport() && a.IsReExport() && (b.SourceName != a.SourceName || b.SourceModule != a.SourceModule) {
		ruleID := RuleExportChanged
		if isJS {
			ruleID = RuleJSExportAliasChanged
		}
		return BreakingChange{
			RuleID:   ruleID,
			Severity: severityFor(ruleID, true),
			Symbol:   a.Name,
			Message: fmt.Sprintf("Re-export '%s' now resolves to '%s' from \"%s\" (was '%s' from \"%s\")",
				a.Name, a.SourceName, a.SourceModule, b.SourceName, b.SourceModule),
			Before: exportDisplay(b),
			After:  exportDisplay(a),
			Line:   a.Line,
			Context: Context{
				ChangeType:  "modified",
				IsExported:  true,
				Kind:        a.Kind,
				IsHeuristic: IsHeuristic(ruleID),
			},
		}
	}

	ruleID := RuleExportChanged
	return BreakingChange{
		RuleID:   ruleID,
		Severity: severityFor(ruleID, true),
		Symbol:   a.Name,
		Message: fmt.Sprintf("Export '%s' changed from %s to %s",
			a.Name, exportDisplay(b), exportDisplay(a)),
		Before: exportDisplay(b),
		After:  exportDisplay(a),
		Line:   a.Line,
		Context: Context{
			ChangeType:  "modified",
			IsExported:  true,
			Kind:        a.Kind,
			IsHeuristic: false,
		},
	}
}

// removalRule picks the most specific removal rule for an export entry.
func removalRule(r snapshot.ExportInfo, isJS bool) string {
	if !isJS {
		return RuleExportRemoved
	}
	switch {
	case r.Type == snapshot.ExportDefault:
		return RuleJSDefaultRemoved
	case r.SourceName == "*":
		return RuleJSExportStarRemoved
	case r.SymbolRef == "cjs:module.exports":
		return RuleJSCJSExportRemoved
	case r.IsReExport():
		return RuleJSBarrelExportRemoved
	default:
		return RuleJSExportRemoved
	}
}

func removalMessage(r snapshot.ExportInfo) string {
	if r.IsReExport() {
		return fmt.Sprintf("Re-export '%s' from \"%s\" was removed", r.Name, r.SourceModule)
	}
	if r.Type == snapshot.ExportDefault {
		return fmt.Sprintf("Default export '%s' was removed", r.Name)
	}
	return fmt.Sprintf("Export '%s' was removed", r.Name)
}

// exportDisplay renders an export entry for before/after columns.
func exportDisplay(e snapshot.ExportInfo) string {
	if e.IsReExport() {
		if e.SourceName == "*" {
			return fmt.Sprintf("export * as %s from \"%s\"", e.Name, e.SourceModule)
		}
		if e.SourceName != e.Name {
			return fmt.Sprintf("export { %s as %s } from \"%s\"", e.SourceName, e.Name, e.SourceModule)
		}
		return fmt.Sprintf("export { %s } from \"%s\"", e.Name, e.SourceModule)
	}
	if e.Type == snapshot.ExportDefault {
		return fmt.Sprintf("export default %s (%s)", e.Name, e.Kind)
	}
	return fmt.Sprintf("export %s %s", e.Kind, e.Name)
}

// packageFindings projects package-level changes.
func packageFindings(diff *diffengine.SnapshotDiff) []BreakingChange {
	var findings []BreakingChange
	for _, pc := range diff.PackageChanges {
		ruleID := RuleJSPackageTypeChanged
		message := fmt.Sprintf("package.json \"%s\" changed from %q to %q", pc.Field, pc.Before, pc.After)
		if pc.Field == "moduleSystem" {
			ruleID = RuleJSModuleSystemChanged
			message = fmt.Sprintf("Module system changed from %s to %s", pc.Before, pc.After)
		}
		findings = append(findings, BreakingChange{
			RuleID:   ruleID,
			Severity: severityFor(ruleID, true),
			Symbol:   pc.Field,
			Message:  message,
			Before:   pc.Before,
			After:    pc.After,
			Context: Context{
				ChangeType:  "modified",
				IsExported:  true,
				IsHeuristic: IsHeuristic(ruleID),
			},
		})
	}
	return findings
}

// sameModuleDifferentSpecifier reports whether two specifiers name the same
// module with different extension spellings ("./m" vs "./m.js").
func sameModuleDifferentSpecifier(a, b string) bool {
	if a == b {
		return false
	}
	return trimSpecifierExt(a) == trimSpecifierExt(b)
}

func trimSpecifierExt(specifier string) string {
	for _, ext := range []string{".js", ".jsx", ".mjs", ".cjs", ".ts", ".tsx"} {
		if strings.HasSuffix(specifier, ext) {
			return strings.TrimSuffix(specifier, ext)
		}
	}
	return specifier
}

// jsSymbolRule remaps symbol-level rules to their JavaScript heuristic
// counterparts for module-surface analysis.
func jsSymbolRule(sc diffengine.SymbolChange) string {
	switch sc.RuleID {
	case diffengine.RuleClassMethodRemoved:
		return RuleJSClassMethodRemoved
	case diffengine.RuleClassRemoved:
		return RuleJSClassRemoved
	case diffengine.RuleFnParamRemoved:
		return RuleJSFnParamRemoved
	case diffengine.RuleFnOptionalToRequired, diffengine.RuleFnParamTypeChanged,
		diffengine.RuleFnReturnTypeChanged, diffengine.RuleFnOverloadSetChanged,
		diffengine.RuleSignatureChanged:
		return RuleJSFnSignatureChanged
	case diffengine.RuleSymbolRemoved:
		if sc.Kind == snapshot.KindFunction {
			return RuleJSFnRemoved
		}
		return sc.RuleID
	default:
		return sc.RuleID
	}
}

// severityFor applies the breaking-flag policy: TypeScript rules are breaking
// iff the symbol is exported; JavaScript export-level structural rules are
// breaking; JavaScript function/class/module-system rules are warnings.
func severityFor(ruleID string, isExported bool) string {
	switch ruleID {
	case RuleExportAdded, RuleJSExportAdded, RuleJSImportSpecifierChange:
		return SeverityInfo
	case RuleJSExportRemoved, RuleJSDefaultRemoved, RuleJSExportStarRemoved,
		RuleJSBarrelExportRemoved, RuleJSExportAliasChanged,
		RuleJSNamedToDefault, RuleJSDefaultToNamed,
		RuleJSCJSExportRemoved, RuleJSCJSDefaultKindChange,
		RuleExportRemoved, RuleExportChanged:
		return SeverityBreaking
	case RuleJSClassMethodRemoved, RuleJSClassRemoved,
		RuleJSFnSignatureChanged, RuleJSFnParamRemoved, RuleJSFnRemoved,
		RuleJSModuleSystemChanged, RuleJSPackageTypeChanged, RuleJSXPropsChanged:
		return SeverityWarning
	}

	// Symbol-level TypeScript rules.
	if isExported {
		return SeverityBreaking
	}
	return SeverityInfo
}

// dedupeByPriority keeps, per (file, symbol), only the finding with the
// lowest priority number. Ties keep the earliest finding.
func dedupeByPriority(relFile string, findings []BreakingChange) []BreakingChange {
	type key struct {
		file   string
		symbol string
	}

	best := make(map[key]int) // key → index into findings
	var order []key

	for i, f := range findings {
		k := key{file: relFile, symbol: f.Symbol}
		existing, ok := best[k]
		if !ok {
			best[k] = i
			order = append(order, k)
			continue
		}
		if Priority(f.RuleID) < Priority(findings[existing].RuleID) {
			best[k] = i
		}
	}

	out := make([]BreakingChange, 0, len(order))
	for _, k := range order {
		out = append(out, findings[best[k]])
	}
	return out
}

// impactedSymbols derives the symbol list from retained findings. Class
// method removals also surface the container class.
func impactedSymbols(findings []BreakingChange) []string {
	set := make(map[string]bool)
	for _, f := range findings {
		if f.Symbol == "" {
			continue
		}
		set[f.Symbol] = true
		if f.RuleID == diffengine.RuleClassMethodRemoved || f.RuleID == RuleJSClassMethodRemoved {
			if container, _, ok := strings.Cut(f.Symbol, "."); ok {
				set[container] = true
			}
		}
	}

	out := make([]string, 0, len(set))
	for s := range set {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

// RelPath renders a path repo-relative with forward slashes.
func RelPath(projectRoot, path string) string {
	if projectRoot != "" {
		if rel, err := filepath.Rel(projectRoot, path); err == nil && !strings.HasPrefix(rel, "..") {
			return filepath.ToSlash(rel)
		}
	}
	return filepath.ToSlash(path)
}

func sortedCopy(in []string) []string {
	out := append([]string{}, in...)
	sort.Strings(out)
	return out
}
