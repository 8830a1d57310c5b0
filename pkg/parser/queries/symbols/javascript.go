package symbols

// JSQueries contains tree-sitter query patterns for JavaScript symbol discovery.
//
// JavaScript has no interfaces, type aliases, or enums; the surface is
// functions, classes, and variable bindings. Capture naming mirrors the
// TypeScript queries so the snapshot builder is language-agnostic.
const JSQueries = `
; ============================================================================
; Functions
; ============================================================================

; function myFunction() { ... }
(function_declaration
  name: (identifier) @function.name
) @function.definition

; const myFunc = function() { ... }
(variable_declarator
  name: (identifier) @function.name
  value: (function_expression)
) @function.definition

; const myArrow = () => { ... }
(variable_declarator
  name: (identifier) @function.name
  value: (arrow_function)
) @function.definition

; ============================================================================
; Classes
; ============================================================================

; class MyClass { ... }
(class_declaration
  name: (identifier) @class.name
) @class.definition

; ============================================================================
; Variables & constants
; ============================================================================

; const myVar = 42;
(lexical_declaration
  (variable_declarator
    name: (identifier) @variable.name
  ) @variable.definition
)

; var legacy = 1;
(variable_declaration
  (variable_declarator
    name: (identifier) @variable.name
  ) @variable.definition
)
`
