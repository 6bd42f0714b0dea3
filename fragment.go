package storyscope

import (
	"fmt"
	"strings"
)

// Names of the generated bindings merged into the documentation module.
const (
	NamedExamplesBinding = "__namedExamples"
	StoriesScopeBinding  = "__storiesScope"
)

// NamedExample maps an example key to its rendered display source.
type NamedExample struct {
	Key    string `json:"key"`
	Source string `json:"source"`
}

// Fragment is the output the host merges into its compiled documentation
// module: one namespace import per Import entry, then the two bindings.
type Fragment struct {
	// Imports holds one alias per Import entry, duplicates of a source path
	// included, in catalog order.
	Imports []ScopeAlias `json:"imports"`
	// Examples maps camel keys to rendered sources. A repeated key keeps its
	// first position and takes the later value.
	Examples []NamedExample `json:"examples"`
	// Scope maps source paths to aliases with the same last-wins rule.
	Scope []ScopeAlias `json:"scope"`
}

// Assemble builds a Fragment from rendered examples and scope aliases, both
// in declaration order.
func Assemble(examples []NamedExample, aliases []ScopeAlias) *Fragment {
	f := &Fragment{
		Imports:  append([]ScopeAlias(nil), aliases...),
		Examples: []NamedExample{},
		Scope:    []ScopeAlias{},
	}
	if f.Imports == nil {
		f.Imports = []ScopeAlias{}
	}

	byKey := make(map[string]int, len(examples))
	for _, ex := range examples {
		if i, ok := byKey[ex.Key]; ok {
			f.Examples[i].Source = ex.Source
			continue
		}
		byKey[ex.Key] = len(f.Examples)
		f.Examples = append(f.Examples, ex)
	}

	byPath := make(map[string]int, len(aliases))
	for _, a := range aliases {
		if i, ok := byPath[a.SourcePath]; ok {
			f.Scope[i] = a
			continue
		}
		byPath[a.SourcePath] = len(f.Scope)
		f.Scope = append(f.Scope, a)
	}
	return f
}

// EmptyFragment is the fragment of a documentation file without a companion.
func EmptyFragment() *Fragment {
	return Assemble(nil, nil)
}

// Example returns the rendered source for key.
func (f *Fragment) Example(key string) (string, bool) {
	for _, ex := range f.Examples {
		if ex.Key == key {
			return ex.Source, true
		}
	}
	return "", false
}

// AliasFor returns the alias bound to a source path in the scope map.
func (f *Fragment) AliasFor(sourcePath string) (string, bool) {
	for _, a := range f.Scope {
		if a.SourcePath == sourcePath {
			return a.AliasName, true
		}
	}
	return "", false
}

// ImportStatements returns the namespace-handle imports, one per line.
func (f *Fragment) ImportStatements() []string {
	stmts := make([]string, 0, len(f.Imports))
	for _, a := range f.Imports {
		stmts = append(stmts, fmt.Sprintf("import * as %s from %s", a.AliasName, QuoteJS(a.SourcePath)))
	}
	return stmts
}

// ExportStatements returns the two binding declarations.
func (f *Fragment) ExportStatements() []string {
	examples := make([]string, 0, len(f.Examples))
	for _, ex := range f.Examples {
		examples = append(examples, QuoteJS(ex.Key)+": "+QuoteJS(ex.Source))
	}
	scope := make([]string, 0, len(f.Scope))
	for _, a := range f.Scope {
		scope = append(scope, QuoteJS(a.SourcePath)+": "+a.AliasName)
	}
	return []string{
		exportObject(NamedExamplesBinding, examples),
		exportObject(StoriesScopeBinding, scope),
	}
}

// String renders the fragment as module statements, imports first.
func (f *Fragment) String() string {
	var b strings.Builder
	for _, s := range f.ImportStatements() {
		b.WriteString(s)
		b.WriteByte('\n')
	}
	for _, s := range f.ExportStatements() {
		b.WriteString(s)
		b.WriteByte('\n')
	}
	return b.String()
}

func exportObject(name string, entries []string) string {
	if len(entries) == 0 {
		return "export const " + name + " = {};"
	}
	return "export const " + name + " = {\n  " + strings.Join(entries, ",\n  ") + "\n};"
}

// QuoteJS returns s as a single-quoted JavaScript string literal.
func QuoteJS(s string) string {
	var b strings.Builder
	b.Grow(len(s) + 2)
	b.WriteByte('\'')
	for _, r := range s {
		switch r {
		case '\\':
			b.WriteString(`\\`)
		case '\'':
			b.WriteString(`\'`)
		case '\n':
			b.WriteString(`\n`)
		case '\r':
			b.WriteString(`\r`)
		case '\t':
			b.WriteString(`\t`)
		case '\u2028':
			b.WriteString(`\u2028`)
		case '\u2029':
			b.WriteString(`\u2029`)
		default:
			if r < 0x20 {
				fmt.Fprintf(&b, `\x%02x`, r)
				continue
			}
			b.WriteRune(r)
		}
	}
	b.WriteByte('\'')
	return b.String()
}
