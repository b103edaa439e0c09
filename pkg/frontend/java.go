package frontend

import (
	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/java"

	"github.com/doppelkit/doppel/pkg/entity"
)

// javaFrontend normalizes Java compilation units. Classes become class
// entities with their fields as attributes and their methods and
// constructors as children.
type javaFrontend struct{}

// Java returns the frontend for .java files.
func Java() Frontend { return javaFrontend{} }

func (javaFrontend) Language() Language { return LangJava }

func (javaFrontend) Extensions() []string { return []string{".java"} }

func (javaFrontend) Parse(path string, src []byte) ([]*entity.Entity, error) {
	tree, err := parse(java.GetLanguage(), path, src)
	if err != nil {
		return nil, err
	}
	defer tree.Close()

	var entities []*entity.Entity
	walk(tree.RootNode(), func(n *sitter.Node) bool {
		switch n.Type() {
		case "class_declaration", "interface_declaration", "enum_declaration":
			entities = append(entities, javaClass(n, path, src))
			return false
		default:
			return true
		}
	})
	return entities, nil
}

// javaClass builds a class entity: fields as attributes, methods and
// constructors as children. Nested classes become children too.
func javaClass(node *sitter.Node, path string, src []byte) *entity.Entity {
	cls := &entity.Entity{
		Kind:   entity.KindClass,
		Name:   fieldText(node, "name", src),
		Origin: entity.Origin{File: path, Line: line(node)},
	}

	body := node.ChildByFieldName("body")
	if body == nil {
		return cls
	}
	for i := range int(body.ChildCount()) {
		member := body.Child(i)
		switch member.Type() {
		case "field_declaration":
			cls.Attributes = append(cls.Attributes, javaFields(member, src)...)
		case "method_declaration":
			cls.Children = append(cls.Children, javaMethod(member, entity.KindMethod, path, src))
		case "constructor_declaration":
			cls.Children = append(cls.Children, javaMethod(member, entity.KindConstructor, path, src))
		case "class_declaration", "interface_declaration", "enum_declaration":
			cls.Children = append(cls.Children, javaClass(member, path, src))
		}
	}
	return cls
}

// javaFields expands one field declaration into attributes, one per
// declarator. The declared type is canonicalized so int and Integer
// fields count as the same evidence.
func javaFields(node *sitter.Node, src []byte) []entity.Attribute {
	typ := entity.CanonicalType(fieldText(node, "type", src))
	var attrs []entity.Attribute
	for i := range int(node.ChildCount()) {
		decl := node.Child(i)
		if decl.Type() != "variable_declarator" {
			continue
		}
		attrs = append(attrs, entity.Attribute{
			Name: fieldText(decl, "name", src),
			Type: typ,
		})
	}
	return attrs
}

func javaMethod(node *sitter.Node, kind entity.Kind, path string, src []byte) *entity.Entity {
	m := &entity.Entity{
		Kind:   kind,
		Name:   fieldText(node, "name", src),
		Origin: entity.Origin{File: path, Line: line(node)},
	}

	if params := node.ChildByFieldName("parameters"); params != nil {
		for i := range int(params.ChildCount()) {
			p := params.Child(i)
			if p.Type() != "formal_parameter" && p.Type() != "spread_parameter" {
				continue
			}
			m.Attributes = append(m.Attributes, entity.Attribute{
				Name: fieldText(p, "name", src),
				Type: entity.CanonicalType(fieldText(p, "type", src)),
			})
		}
	}

	m.Body = append(m.Body, javaModifierTokens(node, src)...)
	if body := node.ChildByFieldName("body"); body != nil {
		m.Body = append(m.Body, javaSignature(body, src)...)
	}
	return m
}

// javaModifierTokens folds structural modifiers into the signature.
// Visibility is dropped: public vs private is not copying evidence.
func javaModifierTokens(node *sitter.Node, src []byte) entity.Signature {
	var sig entity.Signature
	for i := range int(node.ChildCount()) {
		c := node.Child(i)
		if c.Type() != "modifiers" {
			continue
		}
		for j := range int(c.ChildCount()) {
			switch m := nodeText(c.Child(j), src); m {
			case "static", "final", "abstract", "synchronized":
				sig = append(sig, entity.Token{Kind: entity.TokOp, Text: m})
			}
		}
	}
	return sig
}

// javaSignature reduces a method body to structural tokens. Loop forms
// collapse to "for" and switch arms to "if" so that mechanical rewrites
// between equivalent constructs do not defeat matching.
func javaSignature(body *sitter.Node, src []byte) entity.Signature {
	var sig entity.Signature
	emit := func(kind entity.TokenKind, text string) {
		sig = append(sig, entity.Token{Kind: kind, Text: text})
	}

	walk(body, func(n *sitter.Node) bool {
		switch n.Type() {
		case "if_statement", "ternary_expression", "switch_expression":
			emit(entity.TokControl, "if")
		case "for_statement", "enhanced_for_statement", "while_statement", "do_statement":
			emit(entity.TokControl, "for")
		case "return_statement":
			emit(entity.TokControl, "return")
		case "try_statement", "try_with_resources_statement":
			emit(entity.TokControl, "try")
		case "catch_clause":
			emit(entity.TokControl, "catch")
		case "throw_statement":
			emit(entity.TokControl, "throw")
		case "break_statement":
			emit(entity.TokControl, "break")
		case "continue_statement":
			emit(entity.TokControl, "continue")
		case "lambda_expression":
			emit(entity.TokControl, "lambda")

		case "method_invocation":
			emit(entity.TokCall, fieldText(n, "name", src))
		case "object_creation_expression":
			emit(entity.TokCall, entity.CanonicalType(fieldText(n, "type", src)))

		case "decimal_integer_literal", "hex_integer_literal",
			"octal_integer_literal", "binary_integer_literal",
			"decimal_floating_point_literal", "hex_floating_point_literal":
			emit(entity.TokLiteral, "number")
		case "string_literal", "character_literal":
			emit(entity.TokLiteral, "string")
		case "true", "false":
			emit(entity.TokLiteral, "bool")
		case "null_literal":
			emit(entity.TokLiteral, "null")

		case "assignment_expression":
			if op := fieldText(n, "operator", src); op != "" {
				emit(entity.TokOp, op)
			} else {
				emit(entity.TokOp, "=")
			}
		case "binary_expression", "unary_expression", "update_expression":
			if op := fieldText(n, "operator", src); op != "" {
				emit(entity.TokOp, op)
			}
		case "instanceof_expression":
			emit(entity.TokOp, "instanceof")

		case "class_declaration":
			// anonymous-class internals are not part of this body's shape
			return false
		}
		return true
	})
	return sig
}
