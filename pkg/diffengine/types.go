// Package diffengine compares two symbol snapshots and classifies the
// differences against the breaking-change rule catalog.
package diffengine

import (
	"github.com/gnana997/apidiff/pkg/snapshot"
)

// Rule identifiers emitted by the symbol-level diff stages. Export-level
// rules are inferred by the report formatter from the export deltas.
const (
	// Functions
	RuleFnOptionalToRequired = "TSAPI-FN-001"
	RuleFnParamRemoved       = "TSAPI-FN-002"
	RuleFnParamTypeChanged   = "TSAPI-FN-003"
	RuleFnReturnTypeChanged  = "TSAPI-FN-004"
	RuleFnOverloadSetChanged = "TSAPI-FN-007"

	// Classes
	RuleClassMethodRemoved          = "TSAPI-CLS-001"
	RuleClassMethodSignatureChanged = "TSAPI-CLS-002"
	RuleClassRemoved                = "TSAPI-CLS-003"

	// Interfaces
	RuleIfaceMemberRemoved      = "TSAPI-IF-001"
	RuleIfaceOptionalToRequired = "TSAPI-IF-002"
	RuleIfaceTypeChanged        = "TSAPI-IF-003"

	// Type aliases
	RuleTypeMemberRemoved      = "TSAPI-TYPE-001"
	RuleTypeTextChanged        = "TSAPI-TYPE-002"
	RuleTypeOptionalToRequired = "TSAPI-TYPE-003"
	RuleTypePropertyChanged    = "TSAPI-TYPE-004"

	// Enums
	RuleEnumRemoved       = "ENUM_REMOVED"
	RuleEnumMemberRemoved = "ENUM_MEMBER_REMOVED"

	// Generic fallbacks
	RuleSymbolRemoved    = "SYMBOL_REMOVED"
	RuleSignatureChanged = "SIGNATURE_CHANGED"
)

// ChangeType classifies a symbol delta.
type ChangeType string

const (
	ChangeAdded    ChangeType = "added"
	ChangeRemoved  ChangeType = "removed"
	ChangeModified ChangeType = "modified"
)

// SymbolChange is one classified symbol-level difference.
type SymbolChange struct {
	RuleID     string              `json:"ruleId"`
	ChangeType ChangeType          `json:"changeType"`
	// Symbol is the qualified symbol name ("Class.method" for members).
	Symbol     string              `json:"symbol"`
	Kind       snapshot.SymbolKind `json:"kind"`
	Message    string              `json:"message"`
	Before     string              `json:"before,omitempty"`
	After      string              `json:"after,omitempty"`
	Line       int                 `json:"line"`
	IsExported bool                `json:"isExported"`
}

// ExportModified pairs the before/after views of a changed export entry so
// the formatter can diagnose re-export source swaps.
type ExportModified struct {
	Before snapshot.ExportInfo `json:"before"`
	After  snapshot.ExportInfo `json:"after"`
}

// ExportChanges groups export-level deltas.
type ExportChanges struct {
	Added    []snapshot.ExportInfo `json:"added"`
	Removed  []snapshot.ExportInfo `json:"removed"`
	Modified []ExportModified      `json:"modified"`
}

// PackageChange is an opaque package-manifest delta passed through from the
// JavaScript flavor (e.g. "type" flipping, "exports" map changes).
type PackageChange struct {
	Field  string `json:"field"`
	Before string `json:"before"`
	After  string `json:"after"`
}

// SnapshotDiff is the classified difference between two snapshots of a file.
type SnapshotDiff struct {
	FilePath string `json:"filePath"`

	// ChangedSymbols carries every classified symbol-level finding.
	ChangedSymbols []SymbolChange `json:"changedSymbols"`

	// Added/Removed/Modified list the affected symbols per delta class.
	Added    []snapshot.SymbolInfo `json:"added"`
	Removed  []snapshot.SymbolInfo `json:"removed"`
	Modified []snapshot.SymbolInfo `json:"modified"`

	ExportChanges  ExportChanges   `json:"exportChanges"`
	PackageChanges []PackageChange `json:"packageChanges"`
}

// Empty reports whether the diff carries no deltas at all.
func (d *SnapshotDiff) Empty() bool {
	return len(d.ChangedSymbols) == 0 &&
		len(d.Added) == 0 && len(d.Removed) == 0 && len(d.Modified) == 0 &&
		len(d.ExportChanges.Added) == 0 && len(d.ExportChanges.Removed) == 0 &&
		len(d.ExportChanges.Modified) == 0 && len(d.PackageChanges) == 0
}
