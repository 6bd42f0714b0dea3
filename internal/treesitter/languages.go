// Package treesitter is the default syntax backend: it parses companion files
// with tree-sitter and exposes the result through the syntax interfaces.
package treesitter

import (
	"path/filepath"
	"strings"
	"sync"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/javascript"
	"github.com/smacker/go-tree-sitter/typescript/tsx"
	ts "github.com/smacker/go-tree-sitter/typescript/typescript"
)

// Canonical grammar names.
const (
	TSX        = "tsx"
	TypeScript = "typescript"
	JavaScript = "javascript"
)

// extToGrammar maps companion file extensions to grammar names. Plain .js
// files may carry JSX, so they go through the JavaScript grammar which
// accepts it; .ts cannot, since `<T>x` casts clash with JSX.
var extToGrammar = map[string]string{
	".tsx": TSX,
	".ts":  TypeScript,
	".mts": TypeScript,
	".cts": TypeScript,
	".jsx": JavaScript,
	".js":  JavaScript,
	".mjs": JavaScript,
	".cjs": JavaScript,
}

// Lazily initialized on first call via sync.Once.
var (
	grammars     map[string]*sitter.Language
	grammarsOnce sync.Once
)

func initGrammars() {
	grammarsOnce.Do(func() {
		grammars = map[string]*sitter.Language{
			TSX:        tsx.GetLanguage(),
			TypeScript: ts.GetLanguage(),
			JavaScript: javascript.GetLanguage(),
		}
	})
}

// GrammarForFile returns the grammar name for a companion path based on its
// extension. Returns ("", false) if the extension is not recognized.
func GrammarForFile(path string) (string, bool) {
	ext := strings.ToLower(filepath.Ext(path))
	g, ok := extToGrammar[ext]
	return g, ok
}

// Language returns the tree-sitter Language for a grammar name.
func Language(grammar string) (*sitter.Language, bool) {
	initGrammars()
	l, ok := grammars[grammar]
	return l, ok
}
