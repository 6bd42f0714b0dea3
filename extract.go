package storyscope

import (
	"context"
	"fmt"

	"github.com/jward/storyscope/internal/treesitter"
	"github.com/jward/storyscope/syntax"
)

// Input is everything one documentation-file compilation supplies.
type Input struct {
	// UnitImportPath is the import path of the documented unit.
	UnitImportPath string
	// DocumentationPath is the path of the documentation file; its directory
	// name identifies the current unit.
	DocumentationPath string
	// CompanionPath names the companion file. It selects the grammar and is
	// reported in diagnostics; the file itself is never read here.
	CompanionPath string
	// Companion is the companion file text. Nil means there is no companion.
	Companion []byte
}

// Analysis is the full result of running the pipeline over one companion
// file.
type Analysis struct {
	Input       Input
	CurrentUnit string
	Catalog     []*DeclarationEntry
	Examples    []*ExampleDefinition
	Usage       []*UsageResult
	Aliases     []ScopeAlias
	Fragment    *Fragment

	tree syntax.Tree
}

// Close releases the parsed tree. Catalog and example nodes must not be used
// afterwards; the Fragment stays valid.
func (a *Analysis) Close() {
	if a.tree != nil {
		a.tree.Close()
		a.tree = nil
	}
}

// Extract runs the pipeline over an already parsed companion tree. It is
// pure: identical trees and inputs give identical fragments.
func Extract(tree syntax.Tree, p syntax.Printer, in Input) *Analysis {
	a := &Analysis{
		Input:       in,
		CurrentUnit: CurrentUnit(in.DocumentationPath),
	}
	if tree == nil {
		a.Fragment = EmptyFragment()
		return a
	}

	root := tree.Root()
	a.Catalog = Catalog(root)
	a.Examples = CollectExamples(root)

	named := make([]NamedExample, 0, len(a.Examples))
	for _, ex := range a.Examples {
		use := AnalyzeUsage(a.Catalog, ex, a.CurrentUnit)
		a.Usage = append(a.Usage, use)
		named = append(named, NamedExample{
			Key:    ex.CamelKey,
			Source: RenderSource(p, use.Rendered, ex.Body),
		})
	}

	// Without examples there is nothing to bind the scope for.
	if len(a.Examples) > 0 {
		a.Aliases = BindScope(a.Catalog)
	}
	a.Fragment = Assemble(named, a.Aliases)
	return a
}

// Transformer parses companion files and extracts their fragments.
type Transformer struct {
	parser  syntax.Parser
	printer syntax.Printer
}

// TransformerOption configures a Transformer.
type TransformerOption func(*Transformer)

// WithParser replaces the grammar-by-extension tree-sitter parser.
func WithParser(p syntax.Parser) TransformerOption {
	return func(t *Transformer) {
		t.parser = p
	}
}

// WithPrinter replaces the default type-stripping printer.
func WithPrinter(p syntax.Printer) TransformerOption {
	return func(t *Transformer) {
		t.printer = p
	}
}

// NewTransformer returns a Transformer using tree-sitter and
// syntax.StripPrinter unless overridden.
func NewTransformer(opts ...TransformerOption) *Transformer {
	t := &Transformer{printer: syntax.StripPrinter{}}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Analyze parses the companion text and runs the pipeline. A missing
// companion yields an empty fragment; a parse failure is returned unchanged
// in the error chain and produces no output. The caller owns the returned
// Analysis and must Close it.
func (t *Transformer) Analyze(ctx context.Context, in Input) (*Analysis, error) {
	if in.Companion == nil {
		return Extract(nil, t.printer, in), nil
	}

	parser := t.parser
	if parser == nil {
		parser = treesitter.ParserForFile(in.CompanionPath)
	}
	tree, err := parser.Parse(ctx, in.Companion)
	if err != nil {
		return nil, fmt.Errorf("storyscope: parse %s: %w", companionLabel(in), err)
	}

	a := Extract(tree, t.printer, in)
	a.tree = tree
	return a, nil
}

// Transform is Analyze reduced to the fragment.
func (t *Transformer) Transform(ctx context.Context, in Input) (*Fragment, error) {
	a, err := t.Analyze(ctx, in)
	if err != nil {
		return nil, err
	}
	defer a.Close()
	return a.Fragment, nil
}

func companionLabel(in Input) string {
	if in.CompanionPath != "" {
		return in.CompanionPath
	}
	return "companion for " + in.DocumentationPath
}
