package treesitter

import (
	"context"
	"fmt"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/jward/storyscope/syntax"
)

// Parser parses companion source with a single tree-sitter grammar.
type Parser struct {
	grammar string
	lang    *sitter.Language
}

// Compile-time check: *Parser satisfies syntax.Parser.
var _ syntax.Parser = (*Parser)(nil)

// NewParser returns a Parser for the named grammar (TSX, TypeScript or
// JavaScript).
func NewParser(grammar string) (*Parser, error) {
	lang, ok := Language(grammar)
	if !ok {
		return nil, fmt.Errorf("treesitter: unsupported grammar %q", grammar)
	}
	return &Parser{grammar: grammar, lang: lang}, nil
}

// ParserForFile picks the grammar from the companion file extension, falling
// back to TSX for unknown extensions.
func ParserForFile(path string) *Parser {
	grammar, ok := GrammarForFile(path)
	if !ok {
		grammar = TSX
	}
	p, _ := NewParser(grammar)
	return p
}

// Grammar returns the grammar name this parser was built for.
func (p *Parser) Grammar() string {
	return p.grammar
}

// Parse implements syntax.Parser. A tree containing ERROR or MISSING nodes is
// rejected with a *syntax.ParseError.
func (p *Parser) Parse(ctx context.Context, src []byte) (syntax.Tree, error) {
	parser := sitter.NewParser()
	defer parser.Close()
	parser.SetLanguage(p.lang)

	tree, err := parser.ParseCtx(ctx, nil, src)
	if err != nil {
		return nil, fmt.Errorf("treesitter: parse failed: %w", err)
	}

	root := tree.RootNode()
	if root.HasError() {
		perr := firstError(root)
		tree.Close()
		return nil, perr
	}
	return &Tree{tree: tree, src: src}, nil
}

// firstError finds the earliest ERROR or MISSING node below n.
func firstError(n *sitter.Node) *syntax.ParseError {
	if n.IsError() || n.IsMissing() {
		pt := n.StartPoint()
		typ := n.Type()
		if n.IsMissing() {
			typ = "missing " + typ
		}
		return &syntax.ParseError{Line: int(pt.Row) + 1, Column: int(pt.Column) + 1, NodeType: typ}
	}
	count := int(n.ChildCount())
	for i := 0; i < count; i++ {
		c := n.Child(i)
		if c == nil || !(c.HasError() || c.IsMissing()) {
			continue
		}
		if perr := firstError(c); perr != nil {
			return perr
		}
	}
	pt := n.StartPoint()
	return &syntax.ParseError{Line: int(pt.Row) + 1, Column: int(pt.Column) + 1, NodeType: n.Type()}
}

// Tree wraps a tree-sitter tree together with its source bytes, so nodes can
// recover their text without threading the source through every call.
type Tree struct {
	tree *sitter.Tree
	src  []byte
}

// Root implements syntax.Tree.
func (t *Tree) Root() syntax.Node {
	return wrap(t.tree.RootNode(), t.src)
}

// Source implements syntax.Tree.
func (t *Tree) Source() []byte {
	return t.src
}

// Close releases the underlying tree-sitter tree.
func (t *Tree) Close() {
	t.tree.Close()
}

// node adapts *sitter.Node to syntax.Node.
type node struct {
	n   *sitter.Node
	src []byte
}

func wrap(n *sitter.Node, src []byte) syntax.Node {
	if n == nil {
		return nil
	}
	return &node{n: n, src: src}
}

func (w *node) Type() string      { return w.n.Type() }
func (w *node) IsNamed() bool     { return w.n.IsNamed() }
func (w *node) StartByte() uint32 { return w.n.StartByte() }
func (w *node) EndByte() uint32   { return w.n.EndByte() }
func (w *node) Text() string      { return w.n.Content(w.src) }

func (w *node) ChildCount() int      { return int(w.n.ChildCount()) }
func (w *node) NamedChildCount() int { return int(w.n.NamedChildCount()) }

func (w *node) Child(i int) syntax.Node {
	return wrap(w.n.Child(i), w.src)
}

func (w *node) NamedChild(i int) syntax.Node {
	return wrap(w.n.NamedChild(i), w.src)
}

func (w *node) ChildByFieldName(name string) syntax.Node {
	return wrap(w.n.ChildByFieldName(name), w.src)
}
