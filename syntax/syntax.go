// Package syntax defines the narrow parser and printer interfaces the
// storyscope pipeline is written against, plus the default type-stripping
// printer.
//
// Node kinds follow the tree-sitter JavaScript/TypeScript/TSX grammar
// vocabulary ("program", "import_statement", "lexical_declaration",
// "arrow_function", ...). Any backend that produces trees in that vocabulary
// can drive the pipeline.
package syntax

import (
	"context"
	"fmt"
)

// Node is a single node of a concrete syntax tree.
//
// Accessors that can miss (Child, NamedChild, ChildByFieldName) return a nil
// interface, never a typed nil.
type Node interface {
	Type() string
	IsNamed() bool
	StartByte() uint32
	EndByte() uint32
	ChildCount() int
	Child(i int) Node
	NamedChildCount() int
	NamedChild(i int) Node
	ChildByFieldName(name string) Node
	// Text returns the node's exact source slice.
	Text() string
}

// Tree is a parsed companion file.
type Tree interface {
	Root() Node
	Source() []byte
	Close()
}

// Parser turns source text into a Tree.
type Parser interface {
	Parse(ctx context.Context, src []byte) (Tree, error)
}

// Printer re-prints a node to normalized text.
type Printer interface {
	Print(n Node) string
}

// ParseError reports the first syntax error found in a companion file.
// Line and Column are 1-based.
type ParseError struct {
	Line     int
	Column   int
	NodeType string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("syntax error at %d:%d (%s)", e.Line, e.Column, e.NodeType)
}

// NamedChildren returns the named children of n in order.
func NamedChildren(n Node) []Node {
	count := n.NamedChildCount()
	out := make([]Node, 0, count)
	for i := 0; i < count; i++ {
		if c := n.NamedChild(i); c != nil {
			out = append(out, c)
		}
	}
	return out
}

// Children returns all children of n, anonymous tokens included.
func Children(n Node) []Node {
	count := n.ChildCount()
	out := make([]Node, 0, count)
	for i := 0; i < count; i++ {
		if c := n.Child(i); c != nil {
			out = append(out, c)
		}
	}
	return out
}

// HasToken reports whether n has a direct anonymous child with the given text,
// e.g. the "type" keyword of `import type`.
func HasToken(n Node, token string) bool {
	for _, c := range Children(n) {
		if !c.IsNamed() && c.Type() == token {
			return true
		}
	}
	return false
}
