package frontend

import (
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/python"

	"github.com/doppelkit/doppel/pkg/entity"
)

// pythonFrontend normalizes Python modules. Top-level functions become
// function entities; classes become class entities with methods as
// children and both class-body assignments and self.* assignments from
// __init__ as attributes.
type pythonFrontend struct{}

// Python returns the frontend for .py files.
func Python() Frontend { return pythonFrontend{} }

func (pythonFrontend) Language() Language { return LangPython }

func (pythonFrontend) Extensions() []string { return []string{".py", ".pyw"} }

func (pythonFrontend) Parse(path string, src []byte) ([]*entity.Entity, error) {
	tree, err := parse(python.GetLanguage(), path, src)
	if err != nil {
		return nil, err
	}
	defer tree.Close()

	var entities []*entity.Entity
	root := tree.RootNode()
	for i := range int(root.ChildCount()) {
		if e := pythonTopLevel(root.Child(i), path, src); e != nil {
			entities = append(entities, e)
		}
	}
	return entities, nil
}

// pythonTopLevel maps a module statement to an entity, unwrapping
// decorated definitions. Decorators themselves are dropped; they are
// framework noise, not copying evidence.
func pythonTopLevel(node *sitter.Node, path string, src []byte) *entity.Entity {
	switch node.Type() {
	case "decorated_definition":
		return pythonTopLevel(node.ChildByFieldName("definition"), path, src)
	case "function_definition":
		return pythonFunction(node, entity.KindFunction, path, src)
	case "class_definition":
		return pythonClass(node, path, src)
	default:
		return nil
	}
}

func pythonClass(node *sitter.Node, path string, src []byte) *entity.Entity {
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
		stmt := body.Child(i)
		if stmt.Type() == "decorated_definition" {
			stmt = stmt.ChildByFieldName("definition")
			if stmt == nil {
				continue
			}
		}
		switch stmt.Type() {
		case "function_definition":
			kind := entity.KindMethod
			if fieldText(stmt, "name", src) == "__init__" {
				kind = entity.KindConstructor
			}
			m := pythonFunction(stmt, kind, path, src)
			cls.Children = append(cls.Children, m)
			if kind == entity.KindConstructor {
				cls.Attributes = append(cls.Attributes, pythonSelfFields(stmt, src)...)
			}
		case "expression_statement":
			cls.Attributes = append(cls.Attributes, pythonClassFields(stmt, src)...)
		case "class_definition":
			cls.Children = append(cls.Children, pythonClass(stmt, path, src))
		}
	}
	return cls
}

// pythonClassFields extracts class-body assignments as attributes,
// taking the type family from an annotation when one is present.
func pythonClassFields(stmt *sitter.Node, src []byte) []entity.Attribute {
	var attrs []entity.Attribute
	for i := range int(stmt.ChildCount()) {
		assign := stmt.Child(i)
		if assign.Type() != "assignment" {
			continue
		}
		left := assign.ChildByFieldName("left")
		if left == nil || left.Type() != "identifier" {
			continue
		}
		attrs = append(attrs, entity.Attribute{
			Name: nodeText(left, src),
			Type: entity.CanonicalType(fieldText(assign, "type", src)),
		})
	}
	return attrs
}

// pythonSelfFields collects self.<name> assignment targets from an
// __init__ body. They are the closest analogue of declared fields.
func pythonSelfFields(init *sitter.Node, src []byte) []entity.Attribute {
	body := init.ChildByFieldName("body")
	if body == nil {
		return nil
	}
	var attrs []entity.Attribute
	seen := make(map[string]bool)
	walk(body, func(n *sitter.Node) bool {
		if n.Type() != "assignment" {
			return true
		}
		left := n.ChildByFieldName("left")
		if left == nil || left.Type() != "attribute" {
			return true
		}
		if nodeText(left.ChildByFieldName("object"), src) != "self" {
			return true
		}
		name := nodeText(left.ChildByFieldName("attribute"), src)
		if name != "" && !seen[name] {
			seen[name] = true
			attrs = append(attrs, entity.Attribute{
				Name: name,
				Type: entity.CanonicalType(fieldText(n, "type", src)),
			})
		}
		return true
	})
	return attrs
}

func pythonFunction(node *sitter.Node, kind entity.Kind, path string, src []byte) *entity.Entity {
	fn := &entity.Entity{
		Kind:   kind,
		Name:   fieldText(node, "name", src),
		Origin: entity.Origin{File: path, Line: line(node)},
	}

	fn.Attributes = pythonParams(node, kind, src)
	if body := node.ChildByFieldName("body"); body != nil {
		fn.Body = pythonSignature(body, fn, path, src)
	}
	return fn
}

func pythonParams(node *sitter.Node, kind entity.Kind, src []byte) []entity.Attribute {
	params := node.ChildByFieldName("parameters")
	if params == nil {
		return nil
	}
	var attrs []entity.Attribute
	for i := range int(params.ChildCount()) {
		p := params.Child(i)
		var name, typ string
		switch p.Type() {
		case "identifier":
			name = nodeText(p, src)
		case "typed_parameter":
			// name is the first named child, type is a field
			for j := range int(p.ChildCount()) {
				if c := p.Child(j); c.Type() == "identifier" {
					name = nodeText(c, src)
					break
				}
			}
			typ = fieldText(p, "type", src)
		case "default_parameter", "typed_default_parameter":
			name = fieldText(p, "name", src)
			typ = fieldText(p, "type", src)
		case "list_splat_pattern", "dictionary_splat_pattern":
			name = strings.TrimLeft(nodeText(p, src), "*")
		default:
			continue
		}
		if name == "" {
			continue
		}
		// the receiver is implicit structure, not a declared parameter
		if len(attrs) == 0 && kind != entity.KindFunction && (name == "self" || name == "cls") {
			continue
		}
		attrs = append(attrs, entity.Attribute{Name: name, Type: entity.CanonicalType(typ)})
	}
	return attrs
}

// pythonSignature reduces a body to structural tokens, mirroring the
// Java mapping: while collapses to for, match arms to if, with blocks
// to try, so the two grammars stay comparable downstream. Nested
// function definitions become child entities instead of body tokens.
func pythonSignature(body *sitter.Node, parent *entity.Entity, path string, src []byte) entity.Signature {
	var sig entity.Signature
	emit := func(kind entity.TokenKind, text string) {
		sig = append(sig, entity.Token{Kind: kind, Text: text})
	}

	walk(body, func(n *sitter.Node) bool {
		switch n.Type() {
		case "if_statement", "conditional_expression", "match_statement":
			emit(entity.TokControl, "if")
		case "elif_clause":
			emit(entity.TokControl, "if")
		case "for_statement", "while_statement", "list_comprehension",
			"set_comprehension", "dictionary_comprehension", "generator_expression":
			emit(entity.TokControl, "for")
		case "return_statement":
			emit(entity.TokControl, "return")
		case "try_statement", "with_statement":
			emit(entity.TokControl, "try")
		case "except_clause":
			emit(entity.TokControl, "catch")
		case "raise_statement":
			emit(entity.TokControl, "throw")
		case "break_statement":
			emit(entity.TokControl, "break")
		case "continue_statement":
			emit(entity.TokControl, "continue")
		case "lambda":
			emit(entity.TokControl, "lambda")

		case "call":
			emit(entity.TokCall, pythonCallee(n, src))

		case "integer", "float":
			emit(entity.TokLiteral, "number")
		case "string", "concatenated_string":
			emit(entity.TokLiteral, "string")
			return false // string interpolation internals are not shape
		case "true", "false":
			emit(entity.TokLiteral, "bool")
		case "none":
			emit(entity.TokLiteral, "null")

		case "assignment":
			emit(entity.TokOp, "=")
		case "augmented_assignment":
			if op := fieldText(n, "operator", src); op != "" {
				emit(entity.TokOp, op)
			}
		case "binary_operator", "boolean_operator", "unary_operator":
			if op := fieldText(n, "operator", src); op != "" {
				emit(entity.TokOp, op)
			}
		case "comparison_operator":
			emit(entity.TokOp, "cmp")

		case "function_definition":
			parent.Children = append(parent.Children,
				pythonFunction(n, entity.KindFunction, path, src))
			return false
		case "class_definition":
			parent.Children = append(parent.Children, pythonClass(n, path, src))
			return false
		}
		return true
	})
	return sig
}

// pythonCallee resolves the final name of a call target, ignoring the
// receiver chain so obj.save() and other.save() produce the same token.
func pythonCallee(call *sitter.Node, src []byte) string {
	fn := call.ChildByFieldName("function")
	if fn == nil {
		return ""
	}
	if fn.Type() == "attribute" {
		return nodeText(fn.ChildByFieldName("attribute"), src)
	}
	return entity.CanonicalType(nodeText(fn, src))
}
