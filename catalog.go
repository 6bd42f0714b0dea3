package storyscope

import "github.com/jward/storyscope/syntax"

// Catalog walks the top-level statements of a companion file and returns its
// Import and Binding entries in source order. Nested statements are never
// catalogued, and neither are examples or type-only declarations. Enums are
// runtime values and are catalogued as bindings.
func Catalog(root syntax.Node) []*DeclarationEntry {
	var entries []*DeclarationEntry
	add := func(kind DeclarationKind, names []string, source string, n syntax.Node) {
		entries = append(entries, &DeclarationEntry{
			Kind:       kind,
			BoundNames: names,
			SourcePath: source,
			Node:       n,
			Index:      len(entries),
		})
	}

	for _, stmt := range syntax.NamedChildren(root) {
		switch stmt.Type() {
		case "import_statement":
			if isTypeOnlyImport(stmt) {
				continue
			}
			add(Import, importNames(stmt), importSource(stmt), stmt)

		case "lexical_declaration", "variable_declaration":
			add(Binding, declaratorNames(stmt), "", stmt)

		case "function_declaration", "generator_function_declaration",
			"class_declaration", "abstract_class_declaration", "enum_declaration":
			add(Binding, declarationName(stmt), "", stmt)

		case "export_statement":
			decl := stmt.ChildByFieldName("declaration")
			if decl == nil {
				continue
			}
			switch decl.Type() {
			case "lexical_declaration", "variable_declaration":
				if !hasExampleDeclarator(decl) {
					add(Binding, declaratorNames(decl), "", decl)
					continue
				}
				// Plain values sharing a declaration with examples are
				// catalogued one declarator at a time.
				keyword := decl.Child(0).Type()
				for _, d := range syntax.NamedChildren(decl) {
					if d.Type() != "variable_declarator" || exampleFromDeclarator(d) != nil {
						continue
					}
					add(Binding, patternNames(d.ChildByFieldName("name")), "", d)
					entries[len(entries)-1].Keyword = keyword
				}
			case "function_declaration", "generator_function_declaration",
				"class_declaration", "abstract_class_declaration", "enum_declaration":
				add(Binding, declarationName(decl), "", decl)
			}
		}
	}
	return entries
}

// isTypeOnlyImport reports `import type ...` and `import typeof ...`.
func isTypeOnlyImport(stmt syntax.Node) bool {
	return syntax.HasToken(stmt, "type") || syntax.HasToken(stmt, "typeof")
}

// importSource returns the unquoted module specifier of an import statement.
func importSource(stmt syntax.Node) string {
	src := stmt.ChildByFieldName("source")
	if src == nil {
		return ""
	}
	return unquote(src)
}

// unquote returns the contents of a string literal node.
func unquote(str syntax.Node) string {
	for _, c := range syntax.NamedChildren(str) {
		if c.Type() == "string_fragment" {
			return c.Text()
		}
	}
	text := str.Text()
	if len(text) >= 2 {
		return text[1 : len(text)-1]
	}
	return text
}

// importNames returns the local names an import statement binds: the default
// name, every named specifier after renaming, and the namespace name.
// Type-only specifiers bind nothing at runtime and are left out.
func importNames(stmt syntax.Node) []string {
	var names []string
	for _, clause := range syntax.NamedChildren(stmt) {
		if clause.Type() != "import_clause" {
			continue
		}
		for _, part := range syntax.NamedChildren(clause) {
			switch part.Type() {
			case "identifier":
				names = append(names, part.Text())
			case "namespace_import":
				for _, id := range syntax.NamedChildren(part) {
					if id.Type() == "identifier" {
						names = append(names, id.Text())
					}
				}
			case "named_imports":
				for _, spec := range syntax.NamedChildren(part) {
					if spec.Type() != "import_specifier" || syntax.HasToken(spec, "type") {
						continue
					}
					local := spec.ChildByFieldName("alias")
					if local == nil {
						local = spec.ChildByFieldName("name")
					}
					if local != nil {
						names = append(names, local.Text())
					}
				}
			}
		}
	}
	return names
}

// declaratorNames returns every name bound by the declarators of a variable
// declaration, destructured, renamed and rest bindings included.
func declaratorNames(decl syntax.Node) []string {
	var names []string
	for _, d := range syntax.NamedChildren(decl) {
		if d.Type() != "variable_declarator" {
			continue
		}
		names = append(names, patternNames(d.ChildByFieldName("name"))...)
	}
	return names
}

func declarationName(decl syntax.Node) []string {
	name := decl.ChildByFieldName("name")
	if name == nil {
		return nil
	}
	return []string{name.Text()}
}

// patternNames returns the identifiers introduced by a binding pattern.
func patternNames(p syntax.Node) []string {
	if p == nil {
		return nil
	}
	switch p.Type() {
	case "identifier", "shorthand_property_identifier_pattern":
		return []string{p.Text()}
	case "required_parameter", "optional_parameter":
		return patternNames(p.ChildByFieldName("pattern"))
	case "assignment_pattern", "object_assignment_pattern":
		return patternNames(p.ChildByFieldName("left"))
	case "pair_pattern":
		return patternNames(p.ChildByFieldName("value"))
	case "object_pattern", "array_pattern", "rest_pattern":
		var names []string
		for _, c := range syntax.NamedChildren(p) {
			names = append(names, patternNames(c)...)
		}
		return names
	}
	return nil
}
