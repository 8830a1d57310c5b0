package report

import (
	"fmt"
	"strings"

	"github.com/gnana997/apidiff/pkg/apishape"
	"github.com/gnana997/apidiff/pkg/diffengine"
)

// RuleExportRenamed tags rename detections from API-snapshot diffing.
const RuleExportRenamed = "EXPORT_RENAMED"

// APIDiffFindings projects an API-snapshot diff into findings. Removals are
// breaking, additions and renames are informational, and modifications carry
// the comparator's per-aspect detail prose.
func APIDiffFindings(d *apishape.APIDiff) []BreakingChange {
	if d == nil {
		return []BreakingChange{}
	}

	findings := make([]BreakingChange, 0, len(d.Removed)+len(d.Added)+len(d.Modified)+len(d.Renamed))

	for _, s := range d.Removed {
		findings = append(findings, BreakingChange{
			RuleID:   RuleExportRemoved,
			Severity: SeverityBreaking,
			Symbol:   s.Name,
			Message:  fmt.Sprintf("Exported %s '%s' was removed", s.Kind, s.Name),
			Before:   shapeDisplay(s),
			Context: Context{
				ChangeType: "removed",
				IsExported: true,
				Kind:       string(s.Kind),
			},
		})
	}

	for _, s := range d.Added {
		findings = append(findings, BreakingChange{
			RuleID:   RuleExportAdded,
			Severity: SeverityInfo,
			Symbol:   s.Name,
			Message:  fmt.Sprintf("Exported %s '%s' was added", s.Kind, s.Name),
			After:    shapeDisplay(s),
			Context: Context{
				ChangeType: "added",
				IsExported: true,
				Kind:       string(s.Kind),
			},
		})
	}

	for _, c := range d.Modified {
		findings = append(findings, BreakingChange{
			RuleID:   diffengine.RuleSignatureChanged,
			Severity: SeverityBreaking,
			Symbol:   c.Name,
			Message:  fmt.Sprintf("API of %s '%s' changed: %s", c.Kind, c.Name, strings.Join(c.Details, "; ")),
			Before:   shapeDisplay(c.Before),
			After:    shapeDisplay(c.After),
			Context: Context{
				ChangeType: "modified",
				IsExported: true,
				Kind:       string(c.Kind),
			},
		})
	}

	for _, r := range d.Renamed {
		findings = append(findings, BreakingChange{
			RuleID:   RuleExportRenamed,
			Severity: SeverityInfo,
			Symbol:   r.From,
			Message:  fmt.Sprintf("Exported %s '%s' was renamed to '%s'", r.Kind, r.From, r.To),
			Before:   r.From,
			After:    r.To,
			Context: Context{
				ChangeType: "modified",
				IsExported: true,
				Kind:       string(r.Kind),
			},
		})
	}

	return findings
}

// shapeDisplay renders a short one-line view of a shape.
func shapeDisplay(s apishape.Shape) string {
	switch s.Kind {
	case apishape.ShapeFunction:
		if s.Function != nil && len(s.Function.Overloads) > 0 {
			last := s.Function.Overloads[len(s.Function.Overloads)-1]
			return s.Name + last.Key()
		}
	case apishape.ShapeClass:
		if s.Class != nil && s.Class.Extends != "" {
			return "class " + s.Name + " extends " + s.Class.Extends
		}
		return "class " + s.Name
	case apishape.ShapeInterface, apishape.ShapeType:
		if s.Type != nil && s.Type.TypeText != "" {
			return s.Name + " = " + s.Type.TypeText
		}
	case apishape.ShapeEnum:
		return "enum " + s.Name
	case apishape.ShapeVariable, apishape.ShapeConst:
		if s.Variable != nil {
			return s.Name + ": " + s.Variable.Type
		}
	}
	return s.Name
}
