package exports

// JSQueries contains tree-sitter query patterns for JavaScript import and
// export statement discovery.
//
// Besides ES module statements this also captures the CommonJS surface:
// module.exports / exports.name assignments and require() bindings. The
// captured member expressions are filtered by text in the snapshot builder
// (only module.exports* and exports.* targets count).
const JSQueries = `
; ES module imports: import ... from "m"
(import_statement) @import.stmt

; ES module exports: export { a }; export default f; export * from "m"
(export_statement) @export.stmt

; CommonJS require bindings: const x = require("m"); const { a } = require("m")
(variable_declarator
  name: (_) @import.commonjs.binding
  value: (call_expression
    function: (identifier) @import.commonjs.callee
    arguments: (arguments
      (string (string_fragment) @import.commonjs.source)
    )
  )
) @import.commonjs.stmt

; CommonJS exports: module.exports = ..., exports.foo = ..., module.exports.bar = ...
(expression_statement
  (assignment_expression
    left: (member_expression) @export.commonjs.target
    right: (_) @export.commonjs.value
  )
) @export.commonjs.stmt
`
