package storyscope

import (
	"unicode"
	"unicode/utf8"

	"github.com/jward/storyscope/syntax"
)

// AnalyzeUsage resolves an example's free identifiers against the catalog.
//
// An entry is needed when any of its bound names is referenced. An Import
// whose only referenced name is the current unit stays needed but is left out
// of the rendered prelude; the documented unit is in scope implicitly.
func AnalyzeUsage(catalog []*DeclarationEntry, ex *ExampleDefinition, currentUnit string) *UsageResult {
	free := FreeIdentifiers(ex)
	referenced := make(map[string]bool, len(free))
	for _, name := range free {
		referenced[name] = true
	}

	res := &UsageResult{Example: ex, FreeNames: free}
	for _, entry := range catalog {
		var hits []string
		for _, name := range entry.BoundNames {
			if referenced[name] {
				hits = append(hits, name)
			}
		}
		if len(hits) == 0 {
			continue
		}
		res.Needed = append(res.Needed, entry)
		if entry.Kind == Import && currentUnit != "" && len(hits) == 1 && hits[0] == currentUnit {
			continue
		}
		res.Rendered = append(res.Rendered, entry)
	}
	return res
}

// FreeIdentifiers returns the identifiers an example's body references that
// are not bound inside the example itself, in first-reference order.
//
// Locally bound names are tracked with a scope stack: the example's own
// parameters, nested function parameters, destructuring patterns, block
// declarations, catch parameters and loop variables. Matching is by whole
// name only.
func FreeIdentifiers(ex *ExampleDefinition) []string {
	w := &freeWalker{seen: make(map[string]bool)}
	var params []string
	for _, p := range ex.Params {
		params = append(params, patternNames(p)...)
	}
	w.push(params)
	for _, p := range ex.Params {
		w.walk(p)
	}
	w.walk(ex.Body)
	w.pop()
	return w.free
}

// scopeStack is a stack of locally bound name sets.
type scopeStack []map[string]bool

func (s *scopeStack) push(names []string) {
	scope := make(map[string]bool, len(names))
	for _, n := range names {
		scope[n] = true
	}
	*s = append(*s, scope)
}

func (s *scopeStack) pop() {
	*s = (*s)[:len(*s)-1]
}

func (s scopeStack) bound(name string) bool {
	for i := len(s) - 1; i >= 0; i-- {
		if s[i][name] {
			return true
		}
	}
	return false
}

type freeWalker struct {
	scopeStack
	seen map[string]bool
	free []string
}

func (w *freeWalker) ref(name string) {
	if w.bound(name) || w.seen[name] {
		return
	}
	w.seen[name] = true
	w.free = append(w.free, name)
}

// typeOnly lists subtrees that cannot hold runtime references.
var typeOnly = map[string]bool{
	"type_annotation":           true,
	"type_arguments":            true,
	"type_parameters":           true,
	"asserts_annotation":        true,
	"type_predicate_annotation": true,
	"implements_clause":         true,
	"interface_declaration":     true,
	"type_alias_declaration":    true,
	"ambient_declaration":       true,
	"jsx_closing_element":       true,
}

var functionLike = map[string]bool{
	"arrow_function":                 true,
	"function_expression":            true,
	"function":                       true,
	"generator_function":             true,
	"method_definition":              true,
	"function_declaration":           true,
	"generator_function_declaration": true,
}

func (w *freeWalker) walk(n syntax.Node) {
	if n == nil {
		return
	}
	typ := n.Type()
	switch {
	case typeOnly[typ]:
		return

	case typ == "identifier" || typ == "shorthand_property_identifier":
		w.ref(n.Text())
		return

	case typ == "as_expression" || typ == "satisfies_expression":
		w.walk(n.Child(0))
		return

	case functionLike[typ]:
		w.walkFunction(n)
		return

	case typ == "statement_block" || typ == "class_body":
		w.push(blockDeclarations(n))
		w.walkChildren(n)
		w.pop()
		return

	case typ == "catch_clause":
		w.push(patternNames(n.ChildByFieldName("parameter")))
		w.walkChildren(n)
		w.pop()
		return

	case typ == "for_in_statement":
		var names []string
		if syntax.HasToken(n, "const") || syntax.HasToken(n, "let") || syntax.HasToken(n, "var") {
			names = patternNames(n.ChildByFieldName("left"))
		}
		w.push(names)
		w.walkChildren(n)
		w.pop()
		return

	case typ == "for_statement":
		var names []string
		if init := n.ChildByFieldName("initializer"); init != nil {
			names = declaratorNames(init)
		}
		w.push(names)
		w.walkChildren(n)
		w.pop()
		return

	case typ == "class":
		// A named class expression sees its own name.
		var names []string
		if name := n.ChildByFieldName("name"); name != nil {
			names = []string{name.Text()}
		}
		w.push(names)
		w.walkChildren(n)
		w.pop()
		return

	case typ == "jsx_opening_element" || typ == "jsx_self_closing_element":
		w.walkJSXElement(n)
		return
	}

	w.walkChildren(n)
}

func (w *freeWalker) walkChildren(n syntax.Node) {
	for _, c := range syntax.Children(n) {
		w.walk(c)
	}
}

// walkFunction pushes a scope holding the function's parameters, its own
// name for named function expressions, and var declarations hoisted from
// its body.
func (w *freeWalker) walkFunction(n syntax.Node) {
	var names []string
	if p := n.ChildByFieldName("parameter"); p != nil {
		names = append(names, patternNames(p)...)
	}
	if ps := n.ChildByFieldName("parameters"); ps != nil {
		for _, p := range syntax.NamedChildren(ps) {
			names = append(names, patternNames(p)...)
		}
	}
	switch n.Type() {
	case "function_expression", "function", "generator_function":
		if name := n.ChildByFieldName("name"); name != nil {
			names = append(names, name.Text())
		}
	}
	if body := n.ChildByFieldName("body"); body != nil {
		names = append(names, hoistedVars(body)...)
	}

	w.push(names)
	for _, c := range syntax.Children(n) {
		// Method and declaration names are not references.
		if c.Type() == "property_identifier" || isField(n, "name", c) {
			continue
		}
		w.walk(c)
	}
	w.pop()
}

// walkJSXElement counts the tag name as a reference when it names a
// component (capitalized or dotted); lower-case tags are intrinsic elements.
func (w *freeWalker) walkJSXElement(n syntax.Node) {
	name := n.ChildByFieldName("name")
	for _, c := range syntax.NamedChildren(n) {
		if name != nil && sameNode(c, name) {
			w.jsxTag(c)
			continue
		}
		w.walk(c)
	}
}

func (w *freeWalker) jsxTag(n syntax.Node) {
	switch n.Type() {
	case "identifier":
		if isComponentName(n.Text()) {
			w.ref(n.Text())
		}
	case "member_expression":
		w.jsxTag(n.ChildByFieldName("object"))
	case "nested_identifier":
		// <Buttons.Button>: the leftmost identifier is the reference.
		for _, c := range syntax.NamedChildren(n) {
			if c.Type() == "identifier" {
				w.ref(c.Text())
				return
			}
			if c.Type() == "nested_identifier" || c.Type() == "member_expression" {
				w.jsxTag(c)
				return
			}
		}
	}
}

func isComponentName(name string) bool {
	r, _ := utf8.DecodeRuneInString(name)
	return unicode.IsUpper(r) || r == '_' || r == '$'
}

// blockDeclarations returns the let, const, var, function and class names
// declared directly in a block.
func blockDeclarations(block syntax.Node) []string {
	var names []string
	for _, stmt := range syntax.NamedChildren(block) {
		switch stmt.Type() {
		case "lexical_declaration", "variable_declaration":
			names = append(names, declaratorNames(stmt)...)
		case "function_declaration", "generator_function_declaration", "class_declaration":
			names = append(names, declarationName(stmt)...)
		}
	}
	return names
}

// hoistedVars collects var declarations anywhere in a function body without
// crossing into nested functions.
func hoistedVars(n syntax.Node) []string {
	var names []string
	for _, c := range syntax.NamedChildren(n) {
		switch {
		case functionLike[c.Type()]:
			continue
		case c.Type() == "variable_declaration":
			names = append(names, declaratorNames(c)...)
		}
		names = append(names, hoistedVars(c)...)
	}
	return names
}

func isField(parent syntax.Node, field string, c syntax.Node) bool {
	f := parent.ChildByFieldName(field)
	return f != nil && sameNode(f, c)
}

func sameNode(a, b syntax.Node) bool {
	return a.StartByte() == b.StartByte() && a.EndByte() == b.EndByte() && a.Type() == b.Type()
}
