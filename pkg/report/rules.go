// Package report turns classified snapshot diffs into the final impact report:
// rule inference for export-level deltas, heuristic disclaimers, priority
// deduplication, and impacted-symbol derivation.
package report

import (
	"strings"

	"github.com/gnana997/apidiff/pkg/diffengine"
)

// Severity levels carried on findings.
const (
	SeverityBreaking = "breaking"
	SeverityWarning  = "warning"
	SeverityInfo     = "info"
)

// Export-level and JavaScript-surface rule identifiers. Symbol-level TSAPI
// rules are defined in the diff engine.
const (
	// TypeScript export rules
	RuleExportRemoved = "TSAPI-EXP-001"
	RuleExportChanged = "TSAPI-EXP-002"
	RuleExportAdded   = "EXPORT_ADDED"

	// JavaScript export-surface rules
	RuleJSExportRemoved       = "JSAPI-EXP-001"
	RuleJSDefaultRemoved      = "JSAPI-EXP-002"
	RuleJSExportStarRemoved   = "JSAPI-EXP-003"
	RuleJSBarrelExportRemoved = "JSAPI-EXP-004"
	RuleJSExportAliasChanged  = "JSAPI-EXP-005"
	RuleJSNamedToDefault      = "JSAPI-EXP-006"
	RuleJSDefaultToNamed      = "JSAPI-EXP-007"
	RuleJSExportAdded         = "JSAPI-EXP-008"

	// JavaScript class/function heuristics
	RuleJSClassMethodRemoved = "JSAPI-CLS-002"
	RuleJSClassRemoved       = "JSAPI-CLS-003"
	RuleJSFnSignatureChanged = "JSAPI-FN-001"
	RuleJSFnParamRemoved     = "JSAPI-FN-002"
	RuleJSFnRemoved          = "JSAPI-FN-003"

	// CommonJS rules
	RuleJSCJSExportRemoved     = "JSAPI-CJS-001"
	RuleJSCJSDefaultKindChange = "JSAPI-CJS-002"

	// Module-system rules
	RuleJSModuleSystemChanged   = "JSAPI-MOD-001"
	RuleJSPackageTypeChanged    = "JSAPI-MOD-002"
	RuleJSImportSpecifierChange = "JSAPI-MOD-003"

	// JSX surface
	RuleJSXPropsChanged = "JSAPI-JSX-001"
)

// rulePriority orders overlapping findings for the same (file, symbol):
// lower number wins. Specific export rules precede generic removals; symbol
// level detail sits between them.
var rulePriority = map[string]int{
	RuleJSDefaultRemoved:       1,
	RuleJSExportStarRemoved:    2,
	RuleJSCJSExportRemoved:     3,
	RuleJSBarrelExportRemoved:  4,
	RuleJSExportAliasChanged:   5,
	RuleJSCJSDefaultKindChange: 6,
	RuleExportChanged:          7,
	RuleJSDefaultToNamed:       8,
	RuleJSNamedToDefault:       8,

	diffengine.RuleFnOverloadSetChanged:      20,
	diffengine.RuleFnOptionalToRequired:      20,
	diffengine.RuleFnParamRemoved:            20,
	diffengine.RuleFnParamTypeChanged:        20,
	diffengine.RuleFnReturnTypeChanged:       20,
	diffengine.RuleClassMethodRemoved:        20,
	diffengine.RuleClassMethodSignatureChanged: 20,
	diffengine.RuleClassRemoved:              25,
	diffengine.RuleIfaceMemberRemoved:        20,
	diffengine.RuleIfaceOptionalToRequired:   20,
	diffengine.RuleIfaceTypeChanged:          20,
	diffengine.RuleTypeMemberRemoved:         20,
	diffengine.RuleTypeTextChanged:           20,
	diffengine.RuleTypeOptionalToRequired:    20,
	diffengine.RuleTypePropertyChanged:       20,
	diffengine.RuleEnumRemoved:               25,
	diffengine.RuleEnumMemberRemoved:         20,

	RuleJSExportRemoved: 100,
	RuleExportRemoved:   101,
}

// defaultPriority applies to rules absent from the table.
const defaultPriority = 50

// Priority returns the dedup priority for a rule (lower wins).
func Priority(ruleID string) int {
	if p, ok := rulePriority[ruleID]; ok {
		return p
	}
	return defaultPriority
}

// heuristicRules is the declared set of structural-only JavaScript rules that
// may miss runtime behavior. Membership is by table, not severity.
var heuristicRules = map[string]bool{
	RuleJSClassMethodRemoved:  true,
	RuleJSClassRemoved:        true,
	RuleJSFnSignatureChanged:  true,
	RuleJSFnParamRemoved:      true,
	RuleJSFnRemoved:           true,
	RuleJSModuleSystemChanged: true,
	RuleJSPackageTypeChanged:  true,
	RuleJSXPropsChanged:       true,
}

// disclaimerDenylist names heuristic rules that never receive the suffix
// (their messages are factual statements about the module surface).
var disclaimerDenylist = map[string]bool{
	RuleJSImportSpecifierChange: true,
}

// HeuristicDisclaimer is the literal suffix appended to unhedged heuristic
// findings.
const HeuristicDisclaimer = " (JavaScript heuristic - may miss runtime changes)"

// hedgingWords already signal uncertainty; messages containing one keep
// their text unchanged.
var hedgingWords = []string{"likely", "potential", "may miss"}

// IsHeuristic reports whether a rule is in the declared heuristic set.
func IsHeuristic(ruleID string) bool {
	return heuristicRules[ruleID]
}

// applyDisclaimer appends the heuristic suffix when policy requires it.
func applyDisclaimer(ruleID, message string) string {
	if !heuristicRules[ruleID] || disclaimerDenylist[ruleID] {
		return message
	}
	lower := strings.ToLower(message)
	for _, word := range hedgingWords {
		if strings.Contains(lower, word) {
			return message
		}
	}
	if strings.HasSuffix(message, HeuristicDisclaimer) {
		return message
	}
	return message + HeuristicDisclaimer
}
