package exports

// TSQueries contains tree-sitter query patterns for TypeScript import and
// export statement discovery.
//
// Unlike the symbol queries these capture whole statements: export analysis
// needs the statement-level view (re-export sources, type-only markers,
// export clauses) and classifies each captured statement by AST traversal.
const TSQueries = `
; All import statements, including type-only imports and
; import X = require("m") (import_require_clause)
(import_statement) @import.stmt

; All export statements:
;   export { a, b as c };
;   export { a } from "m";
;   export * from "m";
;   export type * from "m";
;   export * as ns from "m";
;   export default expr;
;   export function f() {} / class / interface / type / enum / const
(export_statement) @export.stmt
`
