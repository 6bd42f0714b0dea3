package storyscope

import (
	"strings"
	"unicode/utf8"

	"github.com/jward/storyscope/syntax"
)

// CollectExamples returns every `export const Name = (...) => expression`
// definition of a companion file in declaration order. Exports of any other
// shape, block-bodied arrows included, are not examples and are skipped.
func CollectExamples(root syntax.Node) []*ExampleDefinition {
	var examples []*ExampleDefinition
	for _, stmt := range syntax.NamedChildren(root) {
		if stmt.Type() != "export_statement" {
			continue
		}
		decl := stmt.ChildByFieldName("declaration")
		if decl == nil || !isConstDeclaration(decl) {
			continue
		}
		for _, d := range syntax.NamedChildren(decl) {
			if ex := exampleFromDeclarator(d); ex != nil {
				examples = append(examples, ex)
			}
		}
	}
	return examples
}

// CamelKey derives an example's map key: the exported name with its first
// character lower-cased and nothing else changed.
func CamelKey(name string) string {
	r, size := utf8.DecodeRuneInString(name)
	if r == utf8.RuneError {
		return name
	}
	return strings.ToLower(string(r)) + name[size:]
}

func isConstDeclaration(decl syntax.Node) bool {
	if decl.Type() != "lexical_declaration" {
		return false
	}
	kind := decl.Child(0)
	return kind != nil && kind.Type() == "const"
}

// hasExampleDeclarator reports whether an exported declaration defines at
// least one example.
func hasExampleDeclarator(decl syntax.Node) bool {
	if !isConstDeclaration(decl) {
		return false
	}
	for _, d := range syntax.NamedChildren(decl) {
		if exampleFromDeclarator(d) != nil {
			return true
		}
	}
	return false
}

func exampleFromDeclarator(d syntax.Node) *ExampleDefinition {
	if d.Type() != "variable_declarator" {
		return nil
	}
	name := d.ChildByFieldName("name")
	value := d.ChildByFieldName("value")
	if name == nil || name.Type() != "identifier" || value == nil || value.Type() != "arrow_function" {
		return nil
	}
	body := value.ChildByFieldName("body")
	if body == nil || body.Type() == "statement_block" {
		return nil
	}
	for body.Type() == "parenthesized_expression" && body.NamedChildCount() == 1 {
		body = body.NamedChild(0)
	}

	var params []syntax.Node
	if p := value.ChildByFieldName("parameter"); p != nil {
		params = append(params, p)
	} else if ps := value.ChildByFieldName("parameters"); ps != nil {
		params = syntax.NamedChildren(ps)
	}

	return &ExampleDefinition{
		ExportedName: name.Text(),
		CamelKey:     CamelKey(name.Text()),
		Body:         body,
		Params:       params,
	}
}
