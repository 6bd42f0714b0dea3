package runtime

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/risor-io/risor/object"
	slogctx "github.com/veqryn/slog-context"

	"github.com/jward/storyscope"
)

// Diagnostic is one problem reported by a check script.
type Diagnostic struct {
	Script string `json:"script"`
	// Example is the camel key of the example the problem belongs to, or
	// empty for file-level diagnostics.
	Example string `json:"example,omitempty"`
	Message string `json:"message"`
}

func (d Diagnostic) String() string {
	if d.Example != "" {
		return fmt.Sprintf("%s: %s: %s", d.Script, d.Example, d.Message)
	}
	return fmt.Sprintf("%s: %s", d.Script, d.Message)
}

// diagnostics collects reports from one script run.
type diagnostics struct {
	mu     sync.Mutex
	script string
	items  []Diagnostic
}

func (d *diagnostics) add(example, message string) {
	d.mu.Lock()
	d.items = append(d.items, Diagnostic{Script: d.script, Example: example, Message: message})
	d.mu.Unlock()
}

func (d *diagnostics) list() []Diagnostic {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]Diagnostic(nil), d.items...)
}

// buildGlobals exposes a read-only view of the analysis to scripts. A nil
// analysis yields empty collections.
func buildGlobals(ctx context.Context, a *storyscope.Analysis, diags *diagnostics) map[string]any {
	globals := map[string]any{
		"report":         makeReportFn(diags),
		"report_example": makeReportExampleFn(diags),
		"log":            mustProxy(&logObject{logger: slogctx.FromCtx(ctx).With("script", diags.script)}),
	}

	var in storyscope.Input
	var currentUnit string
	var catalog []*storyscope.DeclarationEntry
	var usage []*storyscope.UsageResult
	var aliases []storyscope.ScopeAlias
	if a != nil {
		in = a.Input
		currentUnit = a.CurrentUnit
		catalog = a.Catalog
		usage = a.Usage
		aliases = a.Aliases
	}

	globals["companion_path"] = object.NewString(in.CompanionPath)
	globals["documentation_path"] = object.NewString(in.DocumentationPath)
	globals["current_unit"] = object.NewString(currentUnit)
	globals["declarations"] = declarationsList(catalog)
	globals["examples"] = examplesList(usage, a)
	globals["scope"] = scopeList(aliases)
	return globals
}

// declarationsList renders catalog entries as maps with keys index, kind,
// names, source_path and text.
func declarationsList(catalog []*storyscope.DeclarationEntry) *object.List {
	items := make([]object.Object, 0, len(catalog))
	for _, e := range catalog {
		var text string
		if e.Node != nil {
			text = e.Node.Text()
			if e.Keyword != "" {
				text = e.Keyword + " " + text
			}
		}
		items = append(items, object.NewMap(map[string]object.Object{
			"index":       object.NewInt(int64(e.Index)),
			"kind":        object.NewString(e.Kind.String()),
			"names":       stringList(e.BoundNames),
			"source_path": object.NewString(e.SourcePath),
			"text":        object.NewString(text),
		}))
	}
	return object.NewList(items)
}

// examplesList renders each example with its free names, the indexes of the
// entries it needs and of those its source renders, and the rendered source.
func examplesList(usage []*storyscope.UsageResult, a *storyscope.Analysis) *object.List {
	items := make([]object.Object, 0, len(usage))
	for _, u := range usage {
		var source string
		if a != nil && a.Fragment != nil {
			source, _ = a.Fragment.Example(u.Example.CamelKey)
		}
		items = append(items, object.NewMap(map[string]object.Object{
			"name":     object.NewString(u.Example.ExportedName),
			"key":      object.NewString(u.Example.CamelKey),
			"free":     stringList(u.FreeNames),
			"needed":   indexList(u.Needed),
			"rendered": indexList(u.Rendered),
			"source":   object.NewString(source),
		}))
	}
	return object.NewList(items)
}

func scopeList(aliases []storyscope.ScopeAlias) *object.List {
	items := make([]object.Object, 0, len(aliases))
	for _, al := range aliases {
		items = append(items, object.NewMap(map[string]object.Object{
			"source_path": object.NewString(al.SourcePath),
			"alias":       object.NewString(al.AliasName),
			"index":       object.NewInt(int64(al.Index)),
		}))
	}
	return object.NewList(items)
}

func stringList(ss []string) *object.List {
	items := make([]object.Object, 0, len(ss))
	for _, s := range ss {
		items = append(items, object.NewString(s))
	}
	return object.NewList(items)
}

func indexList(entries []*storyscope.DeclarationEntry) *object.List {
	items := make([]object.Object, 0, len(entries))
	for _, e := range entries {
		items = append(items, object.NewInt(int64(e.Index)))
	}
	return object.NewList(items)
}

// makeReportFn creates the "report" host function.
//
// report(message) → nil
func makeReportFn(diags *diagnostics) *object.Builtin {
	return object.NewBuiltin("report", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 1 {
			return object.NewArgsError("report", 1, len(args))
		}
		msg, ok := args[0].(*object.String)
		if !ok {
			return object.Errorf("report: message must be a string, got %s", args[0].Type())
		}
		diags.add("", msg.Value())
		return object.Nil
	})
}

// makeReportExampleFn creates the "report_example" host function.
//
// report_example(key, message) → nil
func makeReportExampleFn(diags *diagnostics) *object.Builtin {
	return object.NewBuiltin("report_example", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 2 {
			return object.NewArgsError("report_example", 2, len(args))
		}
		key, ok := args[0].(*object.String)
		if !ok {
			return object.Errorf("report_example: key must be a string, got %s", args[0].Type())
		}
		msg, ok := args[1].(*object.String)
		if !ok {
			return object.Errorf("report_example: message must be a string, got %s", args[1].Type())
		}
		diags.add(key.Value(), msg.Value())
		return object.Nil
	})
}

func mustProxy(v any) object.Object {
	p, err := object.NewProxy(v)
	if err != nil {
		panic(fmt.Sprintf("runtime: proxy error: %v", err))
	}
	return p
}

// logObject provides log.Info/Warn/Error methods for Risor scripts.
type logObject struct {
	logger *slog.Logger
}

func (l *logObject) Info(msg string) {
	l.logger.Info(msg)
}

func (l *logObject) Warn(msg string) {
	l.logger.Warn(msg)
}

func (l *logObject) Error(msg string) {
	l.logger.Error(msg)
}
