package snapshot

import (
	"strings"

	ts "github.com/tree-sitter/go-tree-sitter"
)

// AST detail extraction. The symbol queries discover declaration nodes; the
// functions here walk each declaration to pull out parameters, members,
// heritage clauses, and type text. All type text goes through
// NormalizeTypeString on the way out.

func nodeText(n *ts.Node, src []byte) string {
	if n == nil {
		return ""
	}
	return n.Utf8Text(src)
}

// annotationType returns the type node inside a type_annotation ("  : T ").
func annotationType(annotation *ts.Node, src []byte) string {
	if annotation == nil {
		return ""
	}
	for i := uint(0); i < annotation.NamedChildCount(); i++ {
		child := annotation.NamedChild(i)
		if child != nil {
			return NormalizeTypeString(nodeText(child, src))
		}
	}
	return ""
}

// hasKeywordChild reports whether any direct child's text equals the keyword.
func hasKeywordChild(n *ts.Node, keyword string, src []byte) bool {
	for i := uint(0); i < n.ChildCount(); i++ {
		child := n.Child(i)
		if child != nil && nodeText(child, src) == keyword && !child.IsNamed() {
			return true
		}
	}
	return false
}

// extractParameters walks a formal_parameters node.
func extractParameters(params *ts.Node, src []byte) []ParameterInfo {
	if params == nil {
		return nil
	}

	var out []ParameterInfo
	for i := uint(0); i < params.NamedChildCount(); i++ {
		param := params.NamedChild(i)
		if param == nil {
			continue
		}

		switch param.GrammarName() {
		case "required_parameter", "optional_parameter":
			info := ParameterInfo{
				Optional: param.GrammarName() == "optional_parameter",
			}

			pattern := param.ChildByFieldName("pattern")
			if pattern == nil {
				pattern = param.ChildByFieldName("name")
			}
			if pattern == nil {
				continue
			}
			if pattern.GrammarName() == "rest_pattern" {
				info.Rest = true
				if inner := pattern.NamedChild(0); inner != nil {
					info.Name = nodeText(inner, src)
				}
			} else {
				info.Name = nodeText(pattern, src)
			}

			info.Type = annotationType(param.ChildByFieldName("type"), src)
			if value := param.ChildByFieldName("value"); value != nil {
				info.DefaultValue = NormalizeTypeString(nodeText(value, src))
				info.Optional = true
			}

			out = append(out, info)

		case "identifier", "rest_pattern", "object_pattern", "array_pattern", "assignment_pattern":
			// Plain JavaScript parameters carry no wrapper node.
			info := ParameterInfo{}
			node := param
			if node.GrammarName() == "rest_pattern" {
				info.Rest = true
				if inner := node.NamedChild(0); inner != nil {
					node = inner
				}
			}
			if node.GrammarName() == "assignment_pattern" {
				if left := node.ChildByFieldName("left"); left != nil {
					info.Name = nodeText(left, src)
				}
				if right := node.ChildByFieldName("right"); right != nil {
					info.DefaultValue = NormalizeTypeString(nodeText(right, src))
					info.Optional = true
				}
			} else {
				info.Name = nodeText(node, src)
			}
			out = append(out, info)
		}
	}
	return out
}

// extractTypeParams walks a type_parameters node.
func extractTypeParams(typeParams *ts.Node, src []byte) []TypeParamInfo {
	if typeParams == nil {
		return nil
	}

	var out []TypeParamInfo
	for i := uint(0); i < typeParams.NamedChildCount(); i++ {
		tp := typeParams.NamedChild(i)
		if tp == nil || tp.GrammarName() != "type_parameter" {
			continue
		}
		info := TypeParamInfo{
			Name: nodeText(tp.ChildByFieldName("name"), src),
		}
		if constraint := tp.ChildByFieldName("constraint"); constraint != nil {
			// constraint node is "extends T"; strip the keyword.
			text := nodeText(constraint, src)
			text = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(text), "extends"))
			info.Constraint = NormalizeTypeString(text)
		}
		out = append(out, info)
	}
	return out
}

// callableDetail pulls parameters and return type from any node with
// "parameters" and "return_type" fields (functions, methods, arrows,
// signatures).
func callableDetail(n *ts.Node, src []byte) ([]ParameterInfo, string) {
	params := extractParameters(n.ChildByFieldName("parameters"), src)
	ret := annotationType(n.ChildByFieldName("return_type"), src)
	return params, ret
}

// memberVisibility returns the accessibility of a class member.
// Members named with a leading # are private regardless of modifiers.
func memberVisibility(n *ts.Node, src []byte) string {
	if name := n.ChildByFieldName("name"); name != nil && name.GrammarName() == "private_property_identifier" {
		return "private"
	}
	for i := uint(0); i < n.ChildCount(); i++ {
		child := n.Child(i)
		if child != nil && child.GrammarName() == "accessibility_modifier" {
			return nodeText(child, src)
		}
	}
	return "public"
}

// extractClassDetail walks a class_declaration (or abstract_class_declaration).
func extractClassDetail(decl *ts.Node, src []byte) *ClassDetail {
	d := &ClassDetail{
		IsAbstract: decl.GrammarName() == "abstract_class_declaration",
		TypeParams: extractTypeParams(decl.ChildByFieldName("type_parameters"), src),
	}

	// Heritage: extends value and implements list.
	for i := uint(0); i < decl.ChildCount(); i++ {
		child := decl.Child(i)
		if child == nil || child.GrammarName() != "class_heritage" {
			continue
		}
		for j := uint(0); j < child.NamedChildCount(); j++ {
			clause := child.NamedChild(j)
			if clause == nil {
				continue
			}
			switch clause.GrammarName() {
			case "extends_clause":
				if value := clause.ChildByFieldName("value"); value != nil {
					d.Extends = NormalizeTypeString(nodeText(value, src))
				} else if first := clause.NamedChild(0); first != nil {
					d.Extends = NormalizeTypeString(nodeText(first, src))
				}
			case "implements_clause":
				for k := uint(0); k < clause.NamedChildCount(); k++ {
					if t := clause.NamedChild(k); t != nil {
						d.Implements = append(d.Implements, NormalizeTypeString(nodeText(t, src)))
					}
				}
			}
		}
	}

	body := decl.ChildByFieldName("body")
	if body == nil {
		return d
	}

	for i := uint(0); i < body.NamedChildCount(); i++ {
		member := body.NamedChild(i)
		if member == nil {
			continue
		}

		switch member.GrammarName() {
		case "method_definition", "abstract_method_signature", "method_signature":
			m := ClassMemberInfo{
				Kind:       MemberMethod,
				Visibility: memberVisibility(member, src),
				Static:     hasKeywordChild(member, "static", src),
				Abstract:   member.GrammarName() == "abstract_method_signature",
			}
			name := member.ChildByFieldName("name")
			m.Name = nodeText(name, src)
			if hasKeywordChild(member, "get", src) {
				m.Kind = MemberGetter
			} else if hasKeywordChild(member, "set", src) {
				m.Kind = MemberSetter
			} else if m.Name == "constructor" {
				m.Kind = MemberConstructor
			}
			m.Parameters, m.ReturnType = callableDetail(member, src)
			m.Signature = FunctionSignature(m.Name, m.Parameters, m.ReturnType)
			d.Members = append(d.Members, m)

		case "public_field_definition", "abstract_class_field", "field_definition":
			m := ClassMemberInfo{
				Kind:       MemberProperty,
				Visibility: memberVisibility(member, src),
				Static:     hasKeywordChild(member, "static", src),
				Readonly:   hasKeywordChild(member, "readonly", src),
				Optional:   hasKeywordChild(member, "?", src),
				Abstract:   hasKeywordChild(member, "abstract", src),
			}
			m.Name = nodeText(member.ChildByFieldName("name"), src)
			m.Type = annotationType(member.ChildByFieldName("type"), src)
			d.Members = append(d.Members, m)

		case "index_signature":
			// Surfaced as a synthetic public property named by its
			// normalized text, for shape purposes.
			d.Members = append(d.Members, ClassMemberInfo{
				Name:       NormalizeTypeString(nodeText(member, src)),
				Kind:       MemberProperty,
				Visibility: "public",
			})
		}
	}

	return d
}

// extractInterfaceDetail walks an interface_declaration.
func extractInterfaceDetail(decl *ts.Node, src []byte) *InterfaceDetail {
	d := &InterfaceDetail{
		TypeParams: extractTypeParams(decl.ChildByFieldName("type_parameters"), src),
	}

	for i := uint(0); i < decl.ChildCount(); i++ {
		child := decl.Child(i)
		if child == nil {
			continue
		}
		if child.GrammarName() == "extends_type_clause" || child.GrammarName() == "extends_clause" {
			for j := uint(0); j < child.NamedChildCount(); j++ {
				if t := child.NamedChild(j); t != nil {
					d.Extends = append(d.Extends, NormalizeTypeString(nodeText(t, src)))
				}
			}
		}
	}

	body := decl.ChildByFieldName("body")
	if body == nil {
		return d
	}

	props, methods, indexes := extractObjectMembers(body, src)
	d.Properties = props
	d.Methods = methods
	d.IndexSignatures = indexes
	return d
}

// extractObjectMembers walks an interface_body or object_type node.
func extractObjectMembers(body *ts.Node, src []byte) (props []PropertyInfo, methods []ClassMemberInfo, indexes []string) {
	for i := uint(0); i < body.NamedChildCount(); i++ {
		member := body.NamedChild(i)
		if member == nil {
			continue
		}

		switch member.GrammarName() {
		case "property_signature":
			props = append(props, PropertyInfo{
				Name:     nodeText(member.ChildByFieldName("name"), src),
				Type:     annotationType(member.ChildByFieldName("type"), src),
				Optional: hasKeywordChild(member, "?", src),
				Readonly: hasKeywordChild(member, "readonly", src),
			})

		case "method_signature", "construct_signature", "call_signature":
			m := ClassMemberInfo{
				Kind:       MemberMethod,
				Visibility: "public",
				Optional:   hasKeywordChild(member, "?", src),
			}
			m.Name = nodeText(member.ChildByFieldName("name"), src)
			if member.GrammarName() == "construct_signature" {
				m.Name = "new"
			}
			m.Parameters, m.ReturnType = callableDetail(member, src)
			m.Signature = FunctionSignature(m.Name, m.Parameters, m.ReturnType)
			methods = append(methods, m)

		case "index_signature":
			indexes = append(indexes, NormalizeTypeString(nodeText(member, src)))
		}
	}
	return props, methods, indexes
}

// extractTypeAliasDetail walks a type_alias_declaration. Unions,
// intersections, mapped and conditional types cannot be expressed as a
// property bag and fall back to normalized type text.
func extractTypeAliasDetail(decl *ts.Node, src []byte) *TypeAliasDetail {
	d := &TypeAliasDetail{
		TypeParams: extractTypeParams(decl.ChildByFieldName("type_parameters"), src),
	}

	value := decl.ChildByFieldName("value")
	if value == nil {
		return d
	}

	if value.GrammarName() == "object_type" {
		props, _, indexes := extractObjectMembers(value, src)
		if len(props) > 0 || len(indexes) > 0 {
			d.Properties = props
			d.IndexSignatures = indexes
			return d
		}
	}

	// Unions, intersections, mapped and conditional types, and empty object
	// bodies fall back to normalized text.
	d.TypeText = NormalizeTypeString(nodeText(value, src))
	return d
}

// extractEnumDetail walks an enum_declaration.
func extractEnumDetail(decl *ts.Node, src []byte) *EnumDetail {
	d := &EnumDetail{
		Members: []EnumMemberInfo{},
		Const:   hasKeywordChild(decl, "const", src),
	}

	body := decl.ChildByFieldName("body")
	if body == nil {
		return d
	}

	for i := uint(0); i < body.NamedChildCount(); i++ {
		member := body.NamedChild(i)
		if member == nil {
			continue
		}
		switch member.GrammarName() {
		case "enum_assignment":
			d.Members = append(d.Members, EnumMemberInfo{
				Name:  nodeText(member.ChildByFieldName("name"), src),
				Value: NormalizeTypeString(nodeText(member.ChildByFieldName("value"), src)),
			})
		case "property_identifier", "string", "identifier":
			d.Members = append(d.Members, EnumMemberInfo{
				Name: nodeText(member, src),
			})
		}
	}

	return d
}

// topLevelDeclaration reports whether decl sits at the top of the file:
// directly under program, or under an export statement that is.
func topLevelDeclaration(decl *ts.Node) bool {
	parent := decl.Parent()
	if parent == nil {
		return false
	}
	switch parent.GrammarName() {
	case "program":
		return true
	case "export_statement":
		gp := parent.Parent()
		return gp != nil && gp.GrammarName() == "program"
	case "lexical_declaration", "variable_declaration":
		// variable_declarator → lexical_declaration → program|export_statement
		return topLevelDeclaration(parent)
	case "ambient_declaration":
		// declare function f(...): void at file scope
		return topLevelDeclaration(parent)
	}
	return false
}

// declarationExported reports whether decl is syntactically exported
// (wrapped in an export statement).
func declarationExported(decl *ts.Node) bool {
	for n := decl.Parent(); n != nil; n = n.Parent() {
		switch n.GrammarName() {
		case "export_statement":
			return true
		case "program":
			return false
		case "lexical_declaration", "variable_declaration", "ambient_declaration":
			continue
		default:
			return false
		}
	}
	return false
}
