package storyscope

import (
	"bytes"
	"context"
	"strings"
)

// Merger places a fragment into the host's compiled documentation module.
type Merger interface {
	MergeFragment(ctx context.Context, module []byte, f *Fragment) ([]byte, error)
}

// TextMerger merges into compiled module text: the namespace imports go
// after the module's leading import block, so they are bound before any
// code, and the two bindings are appended after that block.
type TextMerger struct{}

// Compile-time check: TextMerger satisfies Merger.
var _ Merger = TextMerger{}

// MergeFragment implements Merger.
func (TextMerger) MergeFragment(_ context.Context, module []byte, f *Fragment) ([]byte, error) {
	lines := strings.SplitAfter(string(module), "\n")
	split := leadingImports(lines)

	var b bytes.Buffer
	b.Grow(len(module) + 256)
	for _, l := range lines[:split] {
		b.WriteString(l)
	}
	if split > 0 && !strings.HasSuffix(lines[split-1], "\n") {
		b.WriteByte('\n')
	}
	for _, s := range f.ImportStatements() {
		b.WriteString(s)
		b.WriteByte('\n')
	}
	for _, s := range f.ExportStatements() {
		b.WriteString(s)
		b.WriteByte('\n')
	}
	for _, l := range lines[split:] {
		b.WriteString(l)
	}
	return b.Bytes(), nil
}

// leadingImports returns the number of lines making up the module's leading
// import block, blank lines and comments included. An import statement may
// span several lines.
func leadingImports(lines []string) int {
	end := 0
	for i := 0; i < len(lines); i++ {
		t := strings.TrimSpace(lines[i])
		switch {
		case t == "", strings.HasPrefix(t, "//"), strings.HasPrefix(t, "/*"), strings.HasPrefix(t, "*"):
			continue
		case strings.HasPrefix(t, "import "), strings.HasPrefix(t, "import{"):
			last, ok := importEnd(lines, i)
			if !ok {
				return end
			}
			end = last + 1
			i = last
		default:
			return end
		}
	}
	return end
}

// importEnd returns the line on which the import statement starting at line
// first ends: its braces are balanced and its module specifier has been seen.
func importEnd(lines []string, first int) (int, bool) {
	depth := 0
	quoted := false
	for i := first; i < len(lines); i++ {
		for _, r := range lines[i] {
			switch r {
			case '{':
				depth++
			case '}':
				depth--
			case '\'', '"':
				quoted = true
			}
		}
		if depth <= 0 && quoted {
			return i, true
		}
	}
	return 0, false
}
