package report

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gnana997/apidiff/pkg/diffengine"
	"github.com/gnana997/apidiff/pkg/snapshot"
)

func TestFormat_EmptyDiff(t *testing.T) {
	diff := &diffengine.SnapshotDiff{FilePath: "/repo/src/api.ts"}
	rpt := Format("/repo/src/api.ts", diff, ImpactBundle{}, "/repo")

	assert.Equal(t, "src/api.ts", rpt.FilePath)
	assert.Empty(t, rpt.BreakingChanges)
	assert.Empty(t, rpt.ImpactedSymbols)
}

func TestFormat_SymbolFindingInvariant(t *testing.T) {
	diff := &diffengine.SnapshotDiff{
		FilePath: "/repo/src/client.ts",
		ChangedSymbols: []diffengine.SymbolChange{{
			RuleID:     diffengine.RuleClassMethodRemoved,
			ChangeType: diffengine.ChangeRemoved,
			Symbol:     "Client.ping",
			Kind:       snapshot.KindMethod,
			Message:    "Method 'Client.ping' was removed from class",
			IsExported: true,
			Line:       1,
		}},
	}

	rpt := Format("/repo/src/client.ts", diff, ImpactBundle{}, "/repo")

	require.Len(t, rpt.BreakingChanges, 1)
	f := rpt.BreakingChanges[0]
	assert.Equal(t, diffengine.RuleClassMethodRemoved, f.RuleID)
	assert.Equal(t, SeverityBreaking, f.Severity)
	assert.Equal(t, "Client.ping", f.Symbol)

	// Source-of-truth invariant: every finding symbol appears in
	// impactedSymbols, and method removals surface the container class.
	assert.Equal(t, []string{"Client", "Client.ping"}, rpt.ImpactedSymbols)
}

func TestFormat_ReExportSourceSwap(t *testing.T) {
	diff := &diffengine.SnapshotDiff{
		FilePath: "/repo/src/index.ts",
		ExportChanges: diffengine.ExportChanges{
			Modified: []diffengine.ExportModified{{
				Before: snapshot.ExportInfo{
					Name: "x", Type: snapshot.ExportNamed, Kind: snapshot.ReExportKind,
					SourceModule: "./m", SourceName: "a", Line: 1,
				},
				After: snapshot.ExportInfo{
					Name: "x", Type: snapshot.ExportNamed, Kind: snapshot.ReExportKind,
					SourceModule: "./m", SourceName: "b", Line: 1,
				},
			}},
		},
	}

	rpt := Format("/repo/src/index.ts", diff, ImpactBundle{}, "/repo")

	require.Len(t, rpt.BreakingChanges, 1)
	f := rpt.BreakingChanges[0]
	assert.Equal(t, RuleExportChanged, f.RuleID)
	assert.Contains(t, f.Message, "'a'")
	assert.Contains(t, f.Message, "'b'")
}

func TestFormat_ImportSpecifierChange(t *testing.T) {
	diff := &diffengine.SnapshotDiff{
		FilePath: "/repo/src/index.ts",
		ExportChanges: diffengine.ExportChanges{
			Modified: []diffengine.ExportModified{{
				Before: snapshot.ExportInfo{
					Name: "foo", Type: snapshot.ExportNamed, Kind: snapshot.ReExportKind,
					SourceModule: "./m", SourceName: "foo", Line: 1,
				},
				After: snapshot.ExportInfo{
					Name: "foo", Type: snapshot.ExportNamed, Kind: snapshot.ReExportKind,
					SourceModule: "./m.js", SourceName: "foo", Line: 1,
				},
			}},
		},
	}

	rpt := Format("/repo/src/index.ts", diff, ImpactBundle{}, "/repo")

	require.Len(t, rpt.BreakingChanges, 1)
	f := rpt.BreakingChanges[0]
	assert.Equal(t, RuleJSImportSpecifierChange, f.RuleID)
	assert.Equal(t, SeverityInfo, f.Severity)
	assert.Equal(t, "./m", f.Symbol)
}

func TestFormat_ImportSpecifierChangeAcrossRemoveAdd(t *testing.T) {
	diff := &diffengine.SnapshotDiff{
		FilePath: "/repo/src/index.ts",
		ExportChanges: diffengine.ExportChanges{
			Removed: []snapshot.ExportInfo{{
				Name: "foo", Type: snapshot.ExportNamed, Kind: snapshot.ReExportKind,
				SourceModule: "./m", SourceName: "foo", Line: 1,
			}},
			Added: []snapshot.ExportInfo{{
				Name: "foo", Type: snapshot.ExportNamed, Kind: snapshot.ReExportKind,
				SourceModule: "./m.js", SourceName: "foo", Line: 1,
			}},
		},
	}

	rpt := Format("/repo/src/index.ts", diff, ImpactBundle{}, "/repo")

	require.Len(t, rpt.BreakingChanges, 1, "pairing must consume both raw entries")
	assert.Equal(t, RuleJSImportSpecifierChange, rpt.BreakingChanges[0].RuleID)
}

func TestFormat_NamedToDefaultTransition(t *testing.T) {
	diff := &diffengine.SnapshotDiff{
		FilePath: "/repo/src/index.ts",
		ExportChanges: diffengine.ExportChanges{
			Modified: []diffengine.ExportModified{{
				Before: snapshot.ExportInfo{Name: "f", Type: snapshot.ExportNamed, Kind: "function", Line: 1},
				After:  snapshot.ExportInfo{Name: "f", Type: snapshot.ExportDefault, Kind: "function", Line: 1},
			}},
		},
	}

	rpt := Format("/repo/src/index.ts", diff, ImpactBundle{}, "/repo")

	require.Len(t, rpt.BreakingChanges, 1)
	f := rpt.BreakingChanges[0]
	assert.Equal(t, RuleJSNamedToDefault, f.RuleID)
	assert.Equal(t, SeverityBreaking, f.Severity)
	assert.Equal(t, "f", f.Symbol)
}

func TestFormat_DefaultToNamedAcrossRemoveAdd(t *testing.T) {
	diff := &diffengine.SnapshotDiff{
		FilePath: "/repo/src/index.ts",
		ExportChanges: diffengine.ExportChanges{
			Removed: []snapshot.ExportInfo{{Name: "default", Type: snapshot.ExportDefault, Kind: "function", Line: 1}},
			Added:   []snapshot.ExportInfo{{Name: "f", Type: snapshot.ExportNamed, Kind: "function", Line: 1}},
		},
	}

	rpt := Format("/repo/src/index.ts", diff, ImpactBundle{}, "/repo")

	require.Len(t, rpt.BreakingChanges, 1, "transition must suppress the raw removal and addition")
	assert.Equal(t, RuleJSDefaultToNamed, rpt.BreakingChanges[0].RuleID)
	assert.Equal(t, "f", rpt.BreakingChanges[0].Symbol)
}

func TestFormat_CJSDefaultShapeChange(t *testing.T) {
	diff := &diffengine.SnapshotDiff{
		FilePath: "/repo/src/legacy.js",
		ExportChanges: diffengine.ExportChanges{
			Modified: []diffengine.ExportModified{{
				Before: snapshot.ExportInfo{
					Name: "default", Type: snapshot.ExportDefault, Kind: "function",
					SymbolRef: "cjs:module.exports", Line: 1,
				},
				After: snapshot.ExportInfo{
					Name: "default", Type: snapshot.ExportDefault, Kind: "object",
					SymbolRef: "cjs:module.exports", Line: 1,
				},
			}},
		},
	}

	rpt := Format("/repo/src/legacy.js", diff, ImpactBundle{}, "/repo")

	require.Len(t, rpt.BreakingChanges, 1)
	f := rpt.BreakingChanges[0]
	assert.Equal(t, RuleJSCJSDefaultKindChange, f.RuleID)
	assert.Contains(t, f.Message, "function")
	assert.Contains(t, f.Message, "object")
}

func TestFormat_JSRemovalPicksSpecificRule(t *testing.T) {
	diff := &diffengine.SnapshotDiff{
		FilePath: "/repo/src/mod.js",
		ExportChanges: diffengine.ExportChanges{
			Removed: []snapshot.ExportInfo{
				{Name: "d", Type: snapshot.ExportDefault, Kind: "function", Line: 1},
				{Name: "named", Type: snapshot.ExportNamed, Kind: "function", Line: 2},
			},
		},
	}

	rpt := Format("/repo/src/mod.js", diff, ImpactBundle{}, "/repo")

	rules := map[string]string{}
	for _, f := range rpt.BreakingChanges {
		rules[f.Symbol] = f.RuleID
	}
	assert.Equal(t, RuleJSDefaultRemoved, rules["d"])
	assert.Equal(t, RuleJSExportRemoved, rules["named"])
}

func TestFormat_HeuristicDisclaimer(t *testing.T) {
	diff := &diffengine.SnapshotDiff{
		FilePath: "/repo/src/legacy.js",
		ChangedSymbols: []diffengine.SymbolChange{{
			RuleID:     diffengine.RuleClassMethodRemoved,
			ChangeType: diffengine.ChangeRemoved,
			Symbol:     "Worker.run",
			Kind:       snapshot.KindMethod,
			Message:    "Method 'Worker.run' was removed from class",
			IsExported: true,
		}},
	}

	rpt := Format("/repo/src/legacy.js", diff, ImpactBundle{}, "/repo")

	require.Len(t, rpt.BreakingChanges, 1)
	f := rpt.BreakingChanges[0]
	assert.Equal(t, RuleJSClassMethodRemoved, f.RuleID, "JS files remap to heuristic rules")
	assert.Equal(t, SeverityWarning, f.Severity)
	assert.True(t, f.Context.IsHeuristic)
	assert.True(t, strings.HasSuffix(f.Message, HeuristicDisclaimer))
}

func TestFormat_HedgedMessageKeepsText(t *testing.T) {
	message := "Function 'f' likely changed behavior"
	assert.Equal(t, message, applyDisclaimer(RuleJSFnSignatureChanged, message))
}

func TestFormat_PriorityDeduplication(t *testing.T) {
	// Same symbol reported by a specific rule and a generic removal: the
	// lower priority number wins.
	diff := &diffengine.SnapshotDiff{
		FilePath: "/repo/src/mod.js",
		ExportChanges: diffengine.ExportChanges{
			Removed: []snapshot.ExportInfo{
				{Name: "thing", Type: snapshot.ExportDefault, Kind: "function", Line: 1},
			},
		},
		ChangedSymbols: []diffengine.SymbolChange{{
			RuleID:     diffengine.RuleSymbolRemoved,
			ChangeType: diffengine.ChangeRemoved,
			Symbol:     "thing",
			Kind:       snapshot.KindFunction,
			Message:    "function 'thing' was removed",
			IsExported: true,
		}},
	}

	rpt := Format("/repo/src/mod.js", diff, ImpactBundle{}, "/repo")

	require.Len(t, rpt.BreakingChanges, 1)
	assert.Equal(t, RuleJSDefaultRemoved, rpt.BreakingChanges[0].RuleID)
}

func TestFormat_PriorityOrderingInvariant(t *testing.T) {
	assert.Less(t, Priority(RuleJSDefaultRemoved), Priority(RuleJSExportRemoved))
	assert.Less(t, Priority(RuleJSExportRemoved), Priority(RuleExportRemoved))
	assert.Less(t, Priority(RuleJSExportStarRemoved), Priority(RuleJSBarrelExportRemoved))
	assert.Less(t, Priority(RuleJSCJSDefaultKindChange), Priority(RuleExportChanged))
}

func TestFormat_BundleAttachedSorted(t *testing.T) {
	diff := &diffengine.SnapshotDiff{
		FilePath: "/repo/src/api.ts",
		ChangedSymbols: []diffengine.SymbolChange{{
			RuleID:     diffengine.RuleFnReturnTypeChanged,
			ChangeType: diffengine.ChangeModified,
			Symbol:     "f",
			Kind:       snapshot.KindFunction,
			Message:    "Return type of 'f' changed from 'string' to 'number'",
			IsExported: true,
		}},
	}
	bundle := ImpactBundle{
		DownstreamFiles: []string{"src/z.ts", "src/a.ts"},
		AffectedTests:   []string{"test/b.test.ts", "test/a.test.ts"},
	}

	rpt := Format("/repo/src/api.ts", diff, bundle, "/repo")

	assert.Equal(t, []string{"src/a.ts", "src/z.ts"}, rpt.DownstreamFiles)
	assert.Equal(t, []string{"test/a.test.ts", "test/b.test.ts"}, rpt.AffectedTests)
}

func TestRelPath(t *testing.T) {
	assert.Equal(t, "src/api.ts", RelPath("/repo", "/repo/src/api.ts"))
	assert.Equal(t, "/elsewhere/api.ts", RelPath("/repo", "/elsewhere/api.ts"))
}
