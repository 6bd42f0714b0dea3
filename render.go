package storyscope

import (
	"strings"
	"unicode"

	"github.com/jward/storyscope/syntax"
)

// RenderSource regenerates an example's display text: each declaration
// re-printed and terminated, one per line, then a blank line, then the
// printed body. With no declarations the result is the printed body alone.
func RenderSource(p syntax.Printer, decls []*DeclarationEntry, body syntax.Node) string {
	printed := strings.TrimSpace(p.Print(body))
	if len(decls) == 0 {
		return printed
	}

	lines := make([]string, 0, len(decls))
	for _, d := range decls {
		lines = append(lines, RenderDeclaration(p, d))
	}

	var b strings.Builder
	b.WriteString(strings.Join(lines, "\n"))
	b.WriteString("\n\n")
	b.WriteString(printed)
	return b.String()
}

// RenderDeclaration re-prints a single declaration, appending a statement
// terminator when the source omitted one. The terminator goes before any
// trailing comment. Function, class and enum declarations end in a block and
// are left as printed.
func RenderDeclaration(p syntax.Printer, d *DeclarationEntry) string {
	text := strings.TrimSpace(p.Print(d.Node))
	if d.Keyword != "" {
		text = d.Keyword + " " + text
	}
	switch d.Node.Type() {
	case "function_declaration", "generator_function_declaration",
		"class_declaration", "abstract_class_declaration", "enum_declaration":
		return text
	}

	code, comment := text, ""
	if tail := strings.TrimSpace(trailingComments(d.Node)); tail != "" && strings.HasSuffix(text, tail) {
		code = strings.TrimRightFunc(text[:len(text)-len(tail)], unicode.IsSpace)
		comment = text[len(code):]
	}
	if !strings.HasSuffix(code, ";") {
		code += ";"
	}
	return code + comment
}

// trailingComments returns the source text after n's last non-comment token.
// tree-sitter keeps a comment inside a statement that ends without a
// semicolon.
func trailingComments(n syntax.Node) string {
	end := codeEnd(n)
	if end <= n.StartByte() || end >= n.EndByte() {
		return ""
	}
	return n.Text()[end-n.StartByte():]
}

// codeEnd returns the end offset of the last descendant token of n that is
// not a comment.
func codeEnd(n syntax.Node) uint32 {
	for i := n.ChildCount() - 1; i >= 0; i-- {
		c := n.Child(i)
		if c == nil || c.Type() == "comment" {
			continue
		}
		if c.ChildCount() == 0 {
			return c.EndByte()
		}
		return codeEnd(c)
	}
	return n.EndByte()
}
