package storyscope

import "github.com/jward/storyscope/syntax"

// DeclarationKind classifies a top-level declaration of a companion file.
type DeclarationKind int

const (
	// Import is an import statement.
	Import DeclarationKind = iota
	// Binding is a variable, function or class declaration.
	Binding
)

func (k DeclarationKind) String() string {
	switch k {
	case Import:
		return "import"
	case Binding:
		return "binding"
	default:
		return "unknown"
	}
}

// DeclarationEntry is one catalogued top-level declaration.
type DeclarationEntry struct {
	Kind DeclarationKind
	// BoundNames lists every local name the declaration introduces, in the
	// order they appear.
	BoundNames []string
	// SourcePath is the module specifier, set for Import entries only.
	SourcePath string
	// Node is the declaration re-printed for display. For exported bindings
	// it is the inner declaration, without the export keyword.
	Node syntax.Node
	// Keyword is set when Node is a single declarator split out of a
	// declaration that also defines examples; it is printed before Node.
	Keyword string
	// Index is the entry's position in the catalog.
	Index int
}

// Binds reports whether name is one of the entry's bound names.
func (d *DeclarationEntry) Binds(name string) bool {
	for _, n := range d.BoundNames {
		if n == name {
			return true
		}
	}
	return false
}

// ExampleDefinition is an exported, expression-bodied example.
type ExampleDefinition struct {
	ExportedName string
	CamelKey     string
	// Body is the arrow function's expression body, parentheses unwrapped.
	Body syntax.Node
	// Params are the arrow function's parameter patterns.
	Params []syntax.Node
}

// ScopeAlias binds an imported module to a generated namespace handle.
type ScopeAlias struct {
	SourcePath string `json:"source_path"`
	AliasName  string `json:"alias"`
	Index      int    `json:"index"`
}

// UsageResult is the outcome of usage analysis for one example.
type UsageResult struct {
	Example *ExampleDefinition
	// FreeNames are the identifiers the body references that it does not bind
	// itself, in first-reference order.
	FreeNames []string
	// Needed are the catalog entries the example depends on, in catalog order.
	Needed []*DeclarationEntry
	// Rendered is the subset of Needed echoed in the example's display text.
	Rendered []*DeclarationEntry
}

// References reports whether the example references name.
func (u *UsageResult) References(name string) bool {
	for _, n := range u.FreeNames {
		if n == name {
			return true
		}
	}
	return false
}
