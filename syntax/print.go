package syntax

import (
	"sort"
	"strings"
)

// StripPrinter prints a node's source text with type-only syntax removed:
// type annotations, type arguments and parameters, `as`/`satisfies`
// suffixes, non-null assertions, optional-parameter markers, parameter
// accessibility modifiers, implements clauses, nested type declarations and
// type-only import specifiers. All other text is kept byte for byte.
type StripPrinter struct{}

// Compile-time check: StripPrinter satisfies Printer.
var _ Printer = StripPrinter{}

// dropWhole lists node types removed together with everything below them.
var dropWhole = map[string]bool{
	"type_annotation":           true,
	"type_arguments":            true,
	"type_parameters":           true,
	"asserts_annotation":        true,
	"type_predicate_annotation": true,
	"omitting_type_annotation":  true,
	"opting_type_annotation":    true,
	"implements_clause":         true,
	"interface_declaration":     true,
	"type_alias_declaration":    true,
	"ambient_declaration":       true,
}

// dropToNext lists modifiers removed up to the start of the following
// sibling, so the separating blank goes with them.
var dropToNext = map[string]bool{
	"accessibility_modifier": true,
	"override_modifier":      true,
}

// span is a half-open byte range to drop, in absolute source offsets.
type span struct{ start, end uint32 }

// Print implements Printer.
func (StripPrinter) Print(n Node) string {
	if n == nil {
		return ""
	}
	var drops []span
	collectDrops(n, &drops)
	text := n.Text()
	if len(drops) == 0 {
		return text
	}

	sort.Slice(drops, func(i, j int) bool { return drops[i].start < drops[j].start })

	base := n.StartByte()
	var b strings.Builder
	b.Grow(len(text))
	cursor := uint32(0)
	for _, d := range drops {
		start, end := d.start-base, d.end-base
		if start < cursor {
			start = cursor
		}
		if end <= start {
			continue
		}
		b.WriteString(text[cursor:start])
		cursor = end
	}
	b.WriteString(text[cursor:])
	return b.String()
}

func collectDrops(n Node, drops *[]span) {
	typ := n.Type()
	switch {
	case dropWhole[typ]:
		*drops = append(*drops, span{n.StartByte(), n.EndByte()})
		return

	case typ == "as_expression" || typ == "satisfies_expression":
		expr := n.Child(0)
		if expr == nil {
			return
		}
		*drops = append(*drops, span{expr.EndByte(), n.EndByte()})
		collectDrops(expr, drops)
		return

	case typ == "non_null_expression":
		for _, c := range Children(n) {
			if !c.IsNamed() && c.Type() == "!" {
				*drops = append(*drops, span{c.StartByte(), c.EndByte()})
				continue
			}
			collectDrops(c, drops)
		}
		return

	case typ == "optional_parameter":
		for _, c := range Children(n) {
			if !c.IsNamed() && c.Type() == "?" {
				*drops = append(*drops, span{c.StartByte(), c.EndByte()})
				continue
			}
			collectDrops(c, drops)
		}
		return

	case typ == "variable_declarator":
		// `let x!: number` definite assignment marker.
		for _, c := range Children(n) {
			if !c.IsNamed() && c.Type() == "!" {
				*drops = append(*drops, span{c.StartByte(), c.EndByte()})
				continue
			}
			collectDrops(c, drops)
		}
		return

	case typ == "named_imports":
		dropTypeOnlySpecifiers(n, drops)
		return
	}

	children := Children(n)
	for i, c := range children {
		if dropToNext[c.Type()] {
			end := c.EndByte()
			if i+1 < len(children) {
				end = children[i+1].StartByte()
			}
			*drops = append(*drops, span{c.StartByte(), end})
			continue
		}
		collectDrops(c, drops)
	}
}

// dropTypeOnlySpecifiers removes `type X` entries from `{ type X, Y }`
// together with the separating comma.
func dropTypeOnlySpecifiers(n Node, drops *[]span) {
	specs := NamedChildren(n)
	for i, spec := range specs {
		if spec.Type() != "import_specifier" || !HasToken(spec, "type") {
			continue
		}
		switch {
		case i+1 < len(specs):
			*drops = append(*drops, span{spec.StartByte(), specs[i+1].StartByte()})
		case i > 0:
			*drops = append(*drops, span{specs[i-1].EndByte(), spec.EndByte()})
		default:
			*drops = append(*drops, span{spec.StartByte(), spec.EndByte()})
		}
	}
}
