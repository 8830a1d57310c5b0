package diffengine

import (
	"fmt"
	"strings"

	"github.com/gnana997/apidiff/pkg/snapshot"
)

// Diff compares two snapshots of the same file. Deterministic: additions
// follow the after snapshot's source order; removals and modifications
// follow the before snapshot's.
//
// Stage 1 diffs exports, stage 2 diffs symbols per kind with the suppression
// rules (a removed export suppresses the removed-symbol finding for the same
// name), stage 3 passes package-level changes through.
func Diff(before, after *snapshot.SymbolSnapshot) *SnapshotDiff {
	d := &SnapshotDiff{FilePath: after.FilePath}
	if d.FilePath == "" {
		d.FilePath = before.FilePath
	}

	diffExports(d, before.Exports, after.Exports)

	removedExportNames := make(map[string]bool)
	for _, e := range d.ExportChanges.Removed {
		removedExportNames[e.Name] = true
	}

	diffSymbolKind(d, before.Functions, after.Functions, removedExportNames)
	diffSymbolKind(d, before.Classes, after.Classes, removedExportNames)
	diffSymbolKind(d, before.Interfaces, after.Interfaces, removedExportNames)
	diffSymbolKind(d, before.Types, after.Types, removedExportNames)
	diffSymbolKind(d, before.Enums, after.Enums, removedExportNames)

	diffPackage(d, before.Package, after.Package)

	if before.ModuleSystem != after.ModuleSystem &&
		before.ModuleSystem != "" && after.ModuleSystem != "" &&
		before.ModuleSystem != snapshot.ModuleSystemUnknown && after.ModuleSystem != snapshot.ModuleSystemUnknown {
		d.PackageChanges = append(d.PackageChanges, PackageChange{
			Field:  "moduleSystem",
			Before: string(before.ModuleSystem),
			After:  string(after.ModuleSystem),
		})
	}

	return d
}

// exportSignature is the stage-1 comparison key for one export entry.
func exportSignature(e snapshot.ExportInfo) string {
	if e.IsReExport() {
		return fmt.Sprintf("reexport:%s:from:%s:name:%s", e.Name, e.SourceModule, e.SourceName)
	}
	return fmt.Sprintf("decl:%s:%s:%s", e.Name, e.Kind, e.Type)
}

// diffExports implements stage 1. Entries group by public name because a name
// may legitimately appear as both a direct export and a re-export entry.
func diffExports(d *SnapshotDiff, before, after []snapshot.ExportInfo) {
	beforeByName := groupExports(before)
	afterByName := groupExports(after)

	for _, e := range before {
		if _, ok := afterByName[e.Name]; !ok {
			d.ExportChanges.Removed = append(d.ExportChanges.Removed, e)
		}
	}
	for _, e := range after {
		if _, ok := beforeByName[e.Name]; !ok {
			d.ExportChanges.Added = append(d.ExportChanges.Added, e)
		}
	}

	// Names present on both sides: compare entry signatures pairwise.
	seen := make(map[string]bool)
	for _, e := range before {
		if seen[e.Name] {
			continue
		}
		seen[e.Name] = true

		afterGroup, ok := afterByName[e.Name]
		if !ok {
			continue
		}
		beforeGroup := beforeByName[e.Name]

		afterSigs := make(map[string]bool)
		for _, a := range afterGroup {
			afterSigs[exportSignature(a)] = true
		}
		beforeSigs := make(map[string]bool)
		for _, b := range beforeGroup {
			beforeSigs[exportSignature(b)] = true
		}

		// A group is modified when its signature sets disagree; pair the
		// first disagreeing entries for display.
		if !sigSetsEqual(beforeSigs, afterSigs) {
			d.ExportChanges.Modified = append(d.ExportChanges.Modified, ExportModified{
				Before: beforeGroup[0],
				After:  afterGroup[0],
			})
		}
	}
}

func groupExports(entries []snapshot.ExportInfo) map[string][]snapshot.ExportInfo {
	grouped := make(map[string][]snapshot.ExportInfo)
	for _, e := range entries {
		grouped[e.Name] = append(grouped[e.Name], e)
	}
	return grouped
}

func sigSetsEqual(a, b map[string]bool) bool {
	if len(a) != len(b) {
		return false
	}
	for k := range a {
		if !b[k] {
			return false
		}
	}
	return true
}

// diffSymbolKind implements stage 2 for one kind sequence.
func diffSymbolKind(d *SnapshotDiff, before, after []snapshot.SymbolInfo, removedExportNames map[string]bool) {
	beforeByName := make(map[string]*snapshot.SymbolInfo)
	for i := range before {
		beforeByName[before[i].QualifiedName] = &before[i]
	}
	afterByName := make(map[string]*snapshot.SymbolInfo)
	for i := range after {
		afterByName[after[i].QualifiedName] = &after[i]
	}

	for i := range after {
		a := &after[i]
		if _, ok := beforeByName[a.QualifiedName]; !ok {
			d.Added = append(d.Added, *a)
		}
	}

	for i := range before {
		b := &before[i]
		if _, ok := afterByName[b.QualifiedName]; ok {
			continue
		}
		d.Removed = append(d.Removed, *b)

		// A removed export covers the removal of its underlying symbol; the
		// export-removed finding carries the report.
		if removedExportNames[b.Name] {
			continue
		}

		d.ChangedSymbols = append(d.ChangedSymbols, removalChange(b))
	}

	for i := range before {
		b := &before[i]
		a, ok := afterByName[b.QualifiedName]
		if !ok {
			continue
		}

		changes := compareSymbol(b, a)
		if len(changes) > 0 {
			d.Modified = append(d.Modified, *a)
			d.ChangedSymbols = append(d.ChangedSymbols, changes...)
		}
	}
}

func removalChange(b *snapshot.SymbolInfo) SymbolChange {
	rule := RuleSymbolRemoved
	message := fmt.Sprintf("%s '%s' was removed", b.Kind, b.QualifiedName)
	switch b.Kind {
	case snapshot.KindClass:
		rule = RuleClassRemoved
		message = fmt.Sprintf("Class '%s' was removed", b.QualifiedName)
	case snapshot.KindEnum:
		rule = RuleEnumRemoved
		message = fmt.Sprintf("Enum '%s' was removed", b.QualifiedName)
	}
	return SymbolChange{
		RuleID:     rule,
		ChangeType: ChangeRemoved,
		Symbol:     b.QualifiedName,
		Kind:       b.Kind,
		Message:    message,
		Before:     b.Signature,
		Line:       b.Line,
		IsExported: b.IsExported,
	}
}

// compareSymbol dispatches the per-kind modification checks.
func compareSymbol(b, a *snapshot.SymbolInfo) []SymbolChange {
	switch b.Kind {
	case snapshot.KindFunction:
		return compareFunction(b, a)
	case snapshot.KindClass:
		return compareClass(b, a)
	case snapshot.KindInterface:
		return compareInterface(b, a)
	case snapshot.KindType:
		return compareTypeAlias(b, a)
	case snapshot.KindEnum:
		return compareEnum(b, a)
	default:
		if b.Signature != a.Signature {
			return []SymbolChange{genericSignatureChange(b, a)}
		}
		return nil
	}
}

func genericSignatureChange(b, a *snapshot.SymbolInfo) SymbolChange {
	return SymbolChange{
		RuleID:     RuleSignatureChanged,
		ChangeType: ChangeModified,
		Symbol:     a.QualifiedName,
		Kind:       a.Kind,
		Message:    fmt.Sprintf("Signature of '%s' changed", a.QualifiedName),
		Before:     b.Signature,
		After:      a.Signature,
		Line:       a.Line,
		IsExported: a.IsExported,
	}
}

// compareFunction checks the overload set first; when it differs nothing else
// is reported for the symbol. Otherwise parameters in declaration order, then
// the return type.
func compareFunction(b, a *snapshot.SymbolInfo) []SymbolChange {
	if overloadSetDiffers(b.Overloads, a.Overloads) {
		return []SymbolChange{{
			RuleID:     RuleFnOverloadSetChanged,
			ChangeType: ChangeModified,
			Symbol:     a.QualifiedName,
			Kind:       a.Kind,
			Message:    overloadMessage(a.QualifiedName, b.Overloads, a.Overloads),
			Before:     strings.Join(b.Overloads, " ; "),
			After:      strings.Join(a.Overloads, " ; "),
			Line:       a.Line,
			IsExported: a.IsExported,
		}}
	}

	changes := compareParameterLists(b, a, b.Parameters, a.Parameters,
		RuleFnParamRemoved, RuleFnOptionalToRequired, RuleFnParamTypeChanged)

	if b.ReturnType != a.ReturnType {
		changes = append(changes, SymbolChange{
			RuleID:     RuleFnReturnTypeChanged,
			ChangeType: ChangeModified,
			Symbol:     a.QualifiedName,
			Kind:       a.Kind,
			Message: fmt.Sprintf("Return type of '%s' changed from '%s' to '%s'",
				a.QualifiedName, displayType(b.ReturnType), displayType(a.ReturnType)),
			Before:     b.Signature,
			After:      a.Signature,
			Line:       a.Line,
			IsExported: a.IsExported,
		})
	}

	return changes
}

func displayType(t string) string {
	if t == "" {
		return "void"
	}
	return t
}

// overloadSetDiffers compares normalized overload key sets.
func overloadSetDiffers(before, after []string) bool {
	if len(before) != len(after) {
		return true
	}
	if len(before) == 0 {
		return false
	}
	set := make(map[string]int)
	for _, k := range before {
		set[k]++
	}
	for _, k := range after {
		set[k]--
	}
	for _, n := range set {
		if n != 0 {
			return true
		}
	}
	return false
}

func overloadMessage(symbol string, before, after []string) string {
	beforeSet := make(map[string]bool)
	for _, k := range before {
		beforeSet[k] = true
	}
	afterSet := make(map[string]bool)
	for _, k := range after {
		afterSet[k] = true
	}

	var removed, added []string
	for _, k := range before {
		if !afterSet[k] {
			removed = append(removed, k)
		}
	}
	for _, k := range after {
		if !beforeSet[k] {
			added = append(added, k)
		}
	}

	var parts []string
	if len(removed) > 0 {
		parts = append(parts, fmt.Sprintf("removed %s", strings.Join(removed, ", ")))
	}
	if len(added) > 0 {
		parts = append(parts, fmt.Sprintf("added %s", strings.Join(added, ", ")))
	}
	if len(parts) == 0 {
		parts = append(parts, fmt.Sprintf("%d overloads before, %d after", len(before), len(after)))
	}

	return fmt.Sprintf("Overload set of '%s' changed: %s", symbol, strings.Join(parts, "; "))
}

// compareParameterLists applies the parameter rules shared by functions and
// class methods: removal by name, optional-to-required, type change. A new
// required parameter also reports as optional-to-required (it went from
// absent to required). New optional parameters are compatible and silent.
func compareParameterLists(b, a *snapshot.SymbolInfo, before, after []snapshot.ParameterInfo, removedRule, requiredRule, typeRule string) []SymbolChange {
	var changes []SymbolChange

	afterByName := make(map[string]snapshot.ParameterInfo)
	for _, p := range after {
		afterByName[p.Name] = p
	}
	beforeByName := make(map[string]snapshot.ParameterInfo)
	for _, p := range before {
		beforeByName[p.Name] = p
	}

	for _, p := range before {
		ap, ok := afterByName[p.Name]
		if !ok {
			changes = append(changes, SymbolChange{
				RuleID:     removedRule,
				ChangeType: ChangeModified,
				Symbol:     a.QualifiedName,
				Kind:       a.Kind,
				Message:    fmt.Sprintf("Parameter '%s' of '%s' was removed", p.Name, a.QualifiedName),
				Before:     b.Signature,
				After:      a.Signature,
				Line:       a.Line,
				IsExported: a.IsExported,
			})
			continue
		}
		if p.Optional && !ap.Optional {
			changes = append(changes, SymbolChange{
				RuleID:     requiredRule,
				ChangeType: ChangeModified,
				Symbol:     a.QualifiedName,
				Kind:       a.Kind,
				Message:    fmt.Sprintf("Parameter '%s' of '%s' is now required", p.Name, a.QualifiedName),
				Before:     b.Signature,
				After:      a.Signature,
				Line:       a.Line,
				IsExported: a.IsExported,
			})
		}
		if p.Type != ap.Type {
			changes = append(changes, SymbolChange{
				RuleID:     typeRule,
				ChangeType: ChangeModified,
				Symbol:     a.QualifiedName,
				Kind:       a.Kind,
				Message: fmt.Sprintf("Parameter '%s' of '%s' changed type from '%s' to '%s'",
					p.Name, a.QualifiedName, p.Type, ap.Type),
				Before:     b.Signature,
				After:      a.Signature,
				Line:       a.Line,
				IsExported: a.IsExported,
			})
		}
	}

	for _, p := range after {
		if _, ok := beforeByName[p.Name]; ok {
			continue
		}
		if p.Optional || p.Rest {
			continue // added optional or rest parameter is compatible
		}
		changes = append(changes, SymbolChange{
			RuleID:     requiredRule,
			ChangeType: ChangeModified,
			Symbol:     a.QualifiedName,
			Kind:       a.Kind,
			Message:    fmt.Sprintf("Required parameter '%s' was added to '%s'", p.Name, a.QualifiedName),
			Before:     b.Signature,
			After:      a.Signature,
			Line:       a.Line,
			IsExported: a.IsExported,
		})
	}

	return changes
}

// compareClass reports removed methods (symbol re-qualified to
// "Class.method", kind method) and method signature changes.
func compareClass(b, a *snapshot.SymbolInfo) []SymbolChange {
	var changes []SymbolChange

	if b.Class == nil || a.Class == nil {
		if b.Signature != a.Signature {
			changes = append(changes, genericSignatureChange(b, a))
		}
		return changes
	}

	afterMembers := make(map[string]snapshot.ClassMemberInfo)
	for _, m := range a.Class.Members {
		afterMembers[m.Name] = m
	}

	for _, m := range b.Class.Members {
		if m.Visibility == "private" {
			continue
		}

		am, ok := afterMembers[m.Name]
		if !ok {
			if m.Kind == snapshot.MemberMethod || m.Kind == snapshot.MemberGetter || m.Kind == snapshot.MemberSetter {
				qualified := a.Name + "." + m.Name
				changes = append(changes, SymbolChange{
					RuleID:     RuleClassMethodRemoved,
					ChangeType: ChangeRemoved,
					Symbol:     qualified,
					Kind:       snapshot.KindMethod,
					Message:    fmt.Sprintf("Method '%s' was removed from class", qualified),
					Before:     m.Signature,
					Line:       a.Line,
					IsExported: a.IsExported,
				})
			}
			continue
		}

		if m.Kind == snapshot.MemberMethod && am.Kind == snapshot.MemberMethod && m.Signature != am.Signature {
			qualified := a.Name + "." + m.Name
			changes = append(changes, SymbolChange{
				RuleID:     RuleClassMethodSignatureChanged,
				ChangeType: ChangeModified,
				Symbol:     qualified,
				Kind:       snapshot.KindMethod,
				Message: fmt.Sprintf("Method '%s' signature changed from '%s' to '%s'",
					qualified, m.Signature, am.Signature),
				Before:     m.Signature,
				After:      am.Signature,
				Line:       a.Line,
				IsExported: a.IsExported,
			})
		}
	}

	return changes
}

// compareInterface checks index signatures first, then properties.
func compareInterface(b, a *snapshot.SymbolInfo) []SymbolChange {
	if b.Interface == nil || a.Interface == nil {
		if b.Signature != a.Signature {
			return []SymbolChange{genericSignatureChange(b, a)}
		}
		return nil
	}

	changes := compareIndexSignatures(b, a,
		b.Interface.IndexSignatures, a.Interface.IndexSignatures,
		RuleIfaceMemberRemoved, RuleIfaceTypeChanged)

	changes = append(changes, compareProperties(b, a,
		b.Interface.Properties, a.Interface.Properties,
		RuleIfaceMemberRemoved, RuleIfaceOptionalToRequired, RuleIfaceTypeChanged)...)

	// Interface methods compare by signature, under the same rules as
	// properties.
	afterMethods := make(map[string]snapshot.ClassMemberInfo)
	for _, m := range a.Interface.Methods {
		afterMethods[m.Name] = m
	}
	for _, m := range b.Interface.Methods {
		am, ok := afterMethods[m.Name]
		if !ok {
			changes = append(changes, SymbolChange{
				RuleID:     RuleIfaceMemberRemoved,
				ChangeType: ChangeModified,
				Symbol:     a.QualifiedName,
				Kind:       a.Kind,
				Message:    fmt.Sprintf("Member '%s' was removed from interface '%s'", m.Name, a.QualifiedName),
				Before:     m.Signature,
				Line:       a.Line,
				IsExported: a.IsExported,
			})
			continue
		}
		if m.Signature != am.Signature {
			changes = append(changes, SymbolChange{
				RuleID:     RuleIfaceTypeChanged,
				ChangeType: ChangeModified,
				Symbol:     a.QualifiedName,
				Kind:       a.Kind,
				Message: fmt.Sprintf("Member '%s' of interface '%s' changed from '%s' to '%s'",
					m.Name, a.QualifiedName, m.Signature, am.Signature),
				Before:     m.Signature,
				After:      am.Signature,
				Line:       a.Line,
				IsExported: a.IsExported,
			})
		}
	}

	return changes
}

// compareTypeAlias mirrors the interface checks with the TSAPI-TYPE rules,
// falling back to normalized type text when properties were not extractable.
func compareTypeAlias(b, a *snapshot.SymbolInfo) []SymbolChange {
	if b.TypeAlias == nil || a.TypeAlias == nil {
		if b.Signature != a.Signature {
			return []SymbolChange{genericSignatureChange(b, a)}
		}
		return nil
	}

	// Property bags were not extractable: compare normalized text.
	if b.TypeAlias.TypeText != "" || a.TypeAlias.TypeText != "" {
		if b.TypeAlias.TypeText != a.TypeAlias.TypeText {
			return []SymbolChange{{
				RuleID:     RuleTypeTextChanged,
				ChangeType: ChangeModified,
				Symbol:     a.QualifiedName,
				Kind:       a.Kind,
				Message: fmt.Sprintf("Type '%s' changed from '%s' to '%s'",
					a.QualifiedName, b.TypeAlias.TypeText, a.TypeAlias.TypeText),
				Before:     b.TypeAlias.TypeText,
				After:      a.TypeAlias.TypeText,
				Line:       a.Line,
				IsExported: a.IsExported,
			}}
		}
		return nil
	}

	changes := compareIndexSignatures(b, a,
		b.TypeAlias.IndexSignatures, a.TypeAlias.IndexSignatures,
		RuleTypeMemberRemoved, RuleTypeTextChanged)

	changes = append(changes, compareProperties(b, a,
		b.TypeAlias.Properties, a.TypeAlias.Properties,
		RuleTypeMemberRemoved, RuleTypeOptionalToRequired, RuleTypePropertyChanged)...)

	return changes
}

func compareIndexSignatures(b, a *snapshot.SymbolInfo, before, after []string, removedRule, changedRule string) []SymbolChange {
	var changes []SymbolChange

	if len(before) > 0 && len(after) == 0 {
		changes = append(changes, SymbolChange{
			RuleID:     removedRule,
			ChangeType: ChangeModified,
			Symbol:     a.QualifiedName,
			Kind:       a.Kind,
			Message:    fmt.Sprintf("Index signature was removed from '%s'", a.QualifiedName),
			Before:     strings.Join(before, "; "),
			Line:       a.Line,
			IsExported: a.IsExported,
		})
		return changes
	}

	if strings.Join(before, ";") != strings.Join(after, ";") {
		changes = append(changes, SymbolChange{
			RuleID:     changedRule,
			ChangeType: ChangeModified,
			Symbol:     a.QualifiedName,
			Kind:       a.Kind,
			Message: fmt.Sprintf("Index signature of '%s' changed from '%s' to '%s'",
				a.QualifiedName, strings.Join(before, "; "), strings.Join(after, "; ")),
			Before:     strings.Join(before, "; "),
			After:      strings.Join(after, "; "),
			Line:       a.Line,
			IsExported: a.IsExported,
		})
	}

	return changes
}

func compareProperties(b, a *snapshot.SymbolInfo, before, after []snapshot.PropertyInfo, removedRule, requiredRule, typeRule string) []SymbolChange {
	var changes []SymbolChange

	afterByName := make(map[string]snapshot.PropertyInfo)
	for _, p := range after {
		afterByName[p.Name] = p
	}

	for _, p := range before {
		ap, ok := afterByName[p.Name]
		if !ok {
			changes = append(changes, SymbolChange{
				RuleID:     removedRule,
				ChangeType: ChangeModified,
				Symbol:     a.QualifiedName,
				Kind:       a.Kind,
				Message:    fmt.Sprintf("Property '%s' was removed from '%s'", p.Name, a.QualifiedName),
				Before:     snapshot.ParameterString(snapshot.ParameterInfo{Name: p.Name, Type: p.Type, Optional: p.Optional}),
				Line:       a.Line,
				IsExported: a.IsExported,
			})
			continue
		}
		if p.Optional && !ap.Optional {
			changes = append(changes, SymbolChange{
				RuleID:     requiredRule,
				ChangeType: ChangeModified,
				Symbol:     a.QualifiedName,
				Kind:       a.Kind,
				Message:    fmt.Sprintf("Property '%s' of '%s' is now required", p.Name, a.QualifiedName),
				Before:     snapshot.ParameterString(snapshot.ParameterInfo{Name: p.Name, Type: p.Type, Optional: true}),
				After:      snapshot.ParameterString(snapshot.ParameterInfo{Name: ap.Name, Type: ap.Type}),
				Line:       a.Line,
				IsExported: a.IsExported,
			})
		}
		if p.Type != ap.Type {
			changes = append(changes, SymbolChange{
				RuleID:     typeRule,
				ChangeType: ChangeModified,
				Symbol:     a.QualifiedName,
				Kind:       a.Kind,
				Message: fmt.Sprintf("Property '%s' of '%s' changed type from '%s' to '%s'",
					p.Name, a.QualifiedName, p.Type, ap.Type),
				Before:     snapshot.ParameterString(snapshot.ParameterInfo{Name: p.Name, Type: p.Type, Optional: p.Optional}),
				After:      snapshot.ParameterString(snapshot.ParameterInfo{Name: ap.Name, Type: ap.Type, Optional: ap.Optional}),
				Line:       a.Line,
				IsExported: a.IsExported,
			})
		}
	}

	return changes
}

// compareEnum reports missing members.
func compareEnum(b, a *snapshot.SymbolInfo) []SymbolChange {
	if b.Enum == nil || a.Enum == nil {
		return nil
	}

	var changes []SymbolChange

	afterNames := make(map[string]bool)
	for _, m := range a.Enum.Members {
		afterNames[m.Name] = true
	}

	for _, m := range b.Enum.Members {
		if !afterNames[m.Name] {
			changes = append(changes, SymbolChange{
				RuleID:     RuleEnumMemberRemoved,
				ChangeType: ChangeModified,
				Symbol:     a.QualifiedName,
				Kind:       a.Kind,
				Message:    fmt.Sprintf("Enum member '%s.%s' was removed", a.QualifiedName, m.Name),
				Before:     m.Name,
				Line:       a.Line,
				IsExported: a.IsExported,
			})
		}
	}

	return changes
}

// diffPackage implements stage 3: manifest deltas pass through opaquely.
func diffPackage(d *SnapshotDiff, before, after *snapshot.PackageSummary) {
	if before == nil && after == nil {
		return
	}

	beforeType, afterType := "", ""
	beforeExports, afterExports := false, false
	if before != nil {
		beforeType, beforeExports = before.Type, before.HasExportsMap
	}
	if after != nil {
		afterType, afterExports = after.Type, after.HasExportsMap
	}

	if beforeType != afterType {
		d.PackageChanges = append(d.PackageChanges, PackageChange{
			Field:  "type",
			Before: beforeType,
			After:  afterType,
		})
	}
	if beforeExports != afterExports {
		d.PackageChanges = append(d.PackageChanges, PackageChange{
			Field:  "exports",
			Before: fmt.Sprintf("%t", beforeExports),
			After:  fmt.Sprintf("%t", afterExports),
		})
	}
}
