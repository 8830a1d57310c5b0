package apishape

import (
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/gnana997/apidiff/pkg/snapshot"
)

// ShapeChange is one modified export in an APIDiff, with per-aspect detail.
type ShapeChange struct {
	Name    string   `json:"name"`
	Kind    ShapeKind `json:"kind"`
	Details []string `json:"details"`
	Before  Shape    `json:"before"`
	After   Shape    `json:"after"`
}

// Rename pairs a removed export with the added export it became.
type Rename struct {
	From string    `json:"from"`
	To   string    `json:"to"`
	Kind ShapeKind `json:"kind"`
}

// APIDiff is the result of comparing two APISnapshots.
type APIDiff struct {
	Removed  []Shape       `json:"removed"`
	Added    []Shape       `json:"added"`
	Modified []ShapeChange `json:"modified"`
	Renamed  []Rename      `json:"renamed"`
}

// Empty reports whether the diff carries no changes.
func (d *APIDiff) Empty() bool {
	return len(d.Removed) == 0 && len(d.Added) == 0 && len(d.Modified) == 0 && len(d.Renamed) == 0
}

// CompareSnapshots diffs two API snapshots.
//
// Matching is by ExportIdentity first; survivors are paired by name+kind
// (positions shift whenever a file is edited, so identity only holds for
// untouched declaration files). Remaining unmatched entries with identical
// shapes under different names become renames. Output order is deterministic:
// sorted by name.
func CompareSnapshots(before, after *APISnapshot) *APIDiff {
	diff := &APIDiff{}
	if before == nil || after == nil {
		return diff
	}

	matchedAfter := make(map[ExportIdentity]bool)
	var unmatchedBefore []Shape

	// Stage 1: identity matches.
	for _, id := range sortedIdentities(before.Exports) {
		b := before.Exports[id]
		if a, ok := after.Exports[id]; ok {
			matchedAfter[id] = true
			if change := compareShapes(b, a); change != nil {
				diff.Modified = append(diff.Modified, *change)
			}
			continue
		}
		unmatchedBefore = append(unmatchedBefore, b)
	}

	var unmatchedAfter []Shape
	for _, id := range sortedIdentities(after.Exports) {
		if !matchedAfter[id] {
			unmatchedAfter = append(unmatchedAfter, after.Exports[id])
		}
	}

	// Stage 2: name+kind fallback.
	afterByNameKind := make(map[string]int)
	usedAfter := make(map[int]bool)
	for i, a := range unmatchedAfter {
		afterByNameKind[a.Name+"|"+string(a.Kind)] = i
	}

	var leftoverBefore []Shape
	for _, b := range unmatchedBefore {
		if i, ok := afterByNameKind[b.Name+"|"+string(b.Kind)]; ok && !usedAfter[i] {
			usedAfter[i] = true
			if change := compareShapes(b, unmatchedAfter[i]); change != nil {
				diff.Modified = append(diff.Modified, *change)
			}
			continue
		}
		leftoverBefore = append(leftoverBefore, b)
	}

	var leftoverAfter []Shape
	for i, a := range unmatchedAfter {
		if !usedAfter[i] {
			leftoverAfter = append(leftoverAfter, a)
		}
	}

	// Stage 3: rename detection — identical shape, different name.
	usedRename := make(map[int]bool)
	var removed []Shape
	for _, b := range leftoverBefore {
		renamed := false
		for i, a := range leftoverAfter {
			if usedRename[i] || a.Kind != b.Kind {
				continue
			}
			if shapeBodiesEqual(b, a) {
				diff.Renamed = append(diff.Renamed, Rename{From: b.Name, To: a.Name, Kind: b.Kind})
				usedRename[i] = true
				renamed = true
				break
			}
		}
		if !renamed {
			removed = append(removed, b)
		}
	}
	diff.Removed = removed

	for i, a := range leftoverAfter {
		if !usedRename[i] {
			diff.Added = append(diff.Added, a)
		}
	}

	sort.Slice(diff.Removed, func(i, j int) bool { return diff.Removed[i].Name < diff.Removed[j].Name })
	sort.Slice(diff.Added, func(i, j int) bool { return diff.Added[i].Name < diff.Added[j].Name })
	sort.Slice(diff.Modified, func(i, j int) bool { return diff.Modified[i].Name < diff.Modified[j].Name })
	sort.Slice(diff.Renamed, func(i, j int) bool { return diff.Renamed[i].From < diff.Renamed[j].From })

	return diff
}

func sortedIdentities(m map[ExportIdentity]Shape) []ExportIdentity {
	ids := make([]ExportIdentity, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// shapeBodiesEqual compares two shapes ignoring their names.
func shapeBodiesEqual(a, b Shape) bool {
	a.Name, b.Name = "", ""
	return reflect.DeepEqual(a, b)
}

// compareShapes returns the modification record for a matched pair, or nil
// when the shapes agree.
func compareShapes(before, after Shape) *ShapeChange {
	var details []string

	if before.Kind != after.Kind {
		details = append(details, fmt.Sprintf("kind changed from %s to %s", before.Kind, after.Kind))
	} else {
		switch before.Kind {
		case ShapeFunction:
			details = compareFunctions(before.Function, after.Function)
		case ShapeClass:
			details = compareClasses(before.Class, after.Class)
		case ShapeInterface, ShapeType:
			details = compareTypes(before.Type, after.Type)
		case ShapeEnum:
			details = compareEnums(before.Enum, after.Enum)
		case ShapeVariable, ShapeConst:
			details = compareVariables(before.Variable, after.Variable)
		}
	}

	if len(details) == 0 {
		return nil
	}

	return &ShapeChange{
		Name:    before.Name,
		Kind:    after.Kind,
		Details: details,
		Before:  before,
		After:   after,
	}
}

func compareFunctions(before, after *FunctionShape) []string {
	if before == nil || after == nil {
		return nil
	}

	var details []string

	if len(before.Overloads) != len(after.Overloads) {
		details = append(details, fmt.Sprintf("overload count changed from %d to %d",
			len(before.Overloads), len(after.Overloads)))
	}

	n := min(len(before.Overloads), len(after.Overloads))
	for i := 0; i < n; i++ {
		details = append(details, compareSignature(before.Overloads[i], after.Overloads[i], overloadLabel(i, n))...)
	}

	return details
}

func overloadLabel(i, total int) string {
	if total == 1 {
		return ""
	}
	return fmt.Sprintf("overload %d: ", i+1)
}

func compareSignature(before, after FunctionSignature, prefix string) []string {
	var details []string

	beforeByName := make(map[string]snapshot.ParameterInfo)
	for _, p := range before.Parameters {
		beforeByName[p.Name] = p
	}
	afterNames := make(map[string]bool)
	for _, p := range after.Parameters {
		afterNames[p.Name] = true
	}

	for _, p := range before.Parameters {
		if !afterNames[p.Name] {
			details = append(details, fmt.Sprintf("%sparameter '%s' removed", prefix, p.Name))
		}
	}
	for _, p := range after.Parameters {
		b, ok := beforeByName[p.Name]
		if !ok {
			if !p.Optional && !p.Rest {
				details = append(details, fmt.Sprintf("%srequired parameter '%s' added", prefix, p.Name))
			}
			continue
		}
		if b.Optional && !p.Optional {
			details = append(details, fmt.Sprintf("%sparameter '%s' became required", prefix, p.Name))
		}
		if b.Type != p.Type {
			details = append(details, fmt.Sprintf("%sparameter '%s' type changed from '%s' to '%s'",
				prefix, p.Name, b.Type, p.Type))
		}
	}

	if before.ReturnType != after.ReturnType {
		details = append(details, fmt.Sprintf("%sreturn type changed from '%s' to '%s'",
			prefix, before.ReturnType, after.ReturnType))
	}

	return details
}

func compareClasses(before, after *ClassShape) []string {
	if before == nil || after == nil {
		return nil
	}

	var details []string

	beforeByName := make(map[string]snapshot.ClassMemberInfo)
	for _, m := range before.Members {
		beforeByName[m.Name] = m
	}
	afterByName := make(map[string]snapshot.ClassMemberInfo)
	for _, m := range after.Members {
		afterByName[m.Name] = m
	}

	for _, m := range before.Members {
		a, ok := afterByName[m.Name]
		if !ok {
			details = append(details, fmt.Sprintf("member '%s' removed", m.Name))
			continue
		}
		if m.Kind != a.Kind {
			details = append(details, fmt.Sprintf("member '%s' kind changed from %s to %s", m.Name, m.Kind, a.Kind))
			continue
		}
		if m.Signature != a.Signature {
			details = append(details, fmt.Sprintf("member '%s' signature changed from '%s' to '%s'",
				m.Name, m.Signature, a.Signature))
		}
		if m.Type != a.Type {
			details = append(details, fmt.Sprintf("member '%s' type changed from '%s' to '%s'",
				m.Name, m.Type, a.Type))
		}
	}
	for _, m := range after.Members {
		if _, ok := beforeByName[m.Name]; !ok {
			details = append(details, fmt.Sprintf("member '%s' added", m.Name))
		}
	}

	if before.Extends != after.Extends {
		details = append(details, fmt.Sprintf("base class changed from '%s' to '%s'", before.Extends, after.Extends))
	}

	if (before.Constructor == nil) != (after.Constructor == nil) {
		details = append(details, "constructor signature changed")
	} else if before.Constructor != nil && before.Constructor.Key() != after.Constructor.Key() {
		details = append(details, fmt.Sprintf("constructor signature changed from '%s' to '%s'",
			before.Constructor.Key(), after.Constructor.Key()))
	}

	return details
}

func compareTypes(before, after *TypeShape) []string {
	if before == nil || after == nil {
		return nil
	}

	// Union-like shapes compare by normalized text.
	if before.TypeText != "" || after.TypeText != "" {
		if before.TypeText != after.TypeText {
			return []string{fmt.Sprintf("type changed from '%s' to '%s'", before.TypeText, after.TypeText)}
		}
		return nil
	}

	var details []string

	beforeByName := make(map[string]snapshot.PropertyInfo)
	for _, p := range before.Properties {
		beforeByName[p.Name] = p
	}
	afterByName := make(map[string]snapshot.PropertyInfo)
	for _, p := range after.Properties {
		afterByName[p.Name] = p
	}

	for _, p := range before.Properties {
		a, ok := afterByName[p.Name]
		if !ok {
			details = append(details, fmt.Sprintf("property '%s' removed", p.Name))
			continue
		}
		if p.Optional && !a.Optional {
			details = append(details, fmt.Sprintf("property '%s' became required", p.Name))
		}
		if p.Type != a.Type {
			details = append(details, fmt.Sprintf("property '%s' type changed from '%s' to '%s'",
				p.Name, p.Type, a.Type))
		}
	}
	for _, p := range after.Properties {
		if _, ok := beforeByName[p.Name]; !ok && !p.Optional {
			details = append(details, fmt.Sprintf("required property '%s' added", p.Name))
		}
	}

	if strings.Join(before.IndexSignatures, ";") != strings.Join(after.IndexSignatures, ";") {
		details = append(details, "index signatures changed")
	}

	return details
}

func compareEnums(before, after *EnumShape) []string {
	if before == nil || after == nil {
		return nil
	}

	var details []string

	afterByName := make(map[string]snapshot.EnumMemberInfo)
	for _, m := range after.Members {
		afterByName[m.Name] = m
	}
	beforeNames := make(map[string]bool)
	for _, m := range before.Members {
		beforeNames[m.Name] = true
	}

	for _, m := range before.Members {
		a, ok := afterByName[m.Name]
		if !ok {
			details = append(details, fmt.Sprintf("member '%s' removed", m.Name))
			continue
		}
		if m.Value != a.Value {
			details = append(details, fmt.Sprintf("member '%s' value changed from '%s' to '%s'",
				m.Name, m.Value, a.Value))
		}
	}
	for _, m := range after.Members {
		if !beforeNames[m.Name] {
			details = append(details, fmt.Sprintf("member '%s' added", m.Name))
		}
	}

	return details
}

func compareVariables(before, after *VariableShape) []string {
	if before == nil || after == nil {
		return nil
	}
	if before.Type != after.Type {
		return []string{fmt.Sprintf("type changed from '%s' to '%s'", before.Type, after.Type)}
	}
	return nil
}
