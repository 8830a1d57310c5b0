package symbols

// TSQueries contains tree-sitter query patterns for TypeScript symbol discovery.
//
// These patterns match declaration nodes; the snapshot builder filters matches
// to top-level declarations and extracts detail (parameters, members,
// modifiers) by walking each captured declaration node.
//
// Each pattern captures:
//   - @{kind}.name - The symbol name
//   - @{kind}.definition - The entire declaration node
const TSQueries = `
; ============================================================================
; Functions
; ============================================================================

; function myFunction() { ... }
(function_declaration
  name: (identifier) @function.name
) @function.definition

; Overload signatures: declare function f(a: string): void;
(function_signature
  name: (identifier) @function.name
) @function.definition

; const myFunc = function() { ... }
(variable_declarator
  name: (identifier) @function.name
  value: (function_expression)
) @function.definition

; const myArrow = () => { ... }
; Arrow-initialized bindings count as functions for API purposes
(variable_declarator
  name: (identifier) @function.name
  value: (arrow_function)
) @function.definition

; ============================================================================
; Classes
; ============================================================================

; class MyClass { ... }
(class_declaration
  name: (type_identifier) @class.name
) @class.definition

; abstract class MyBase { ... }
(abstract_class_declaration
  name: (type_identifier) @class.name
) @class.definition

; ============================================================================
; Interfaces, type aliases, enums
; ============================================================================

; interface MyInterface { ... }
(interface_declaration
  name: (type_identifier) @interface.name
) @interface.definition

; type MyType = string | number;
(type_alias_declaration
  name: (type_identifier) @type.name
) @type.definition

; enum MyEnum { A, B, C }
(enum_declaration
  name: (identifier) @enum.name
) @enum.definition

; ============================================================================
; Variables & constants
; ============================================================================

; const myVar = 42; let other: string;
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
