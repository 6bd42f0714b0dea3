package storyscope

import (
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gobwas/glob"
	slogctx "github.com/veqryn/slog-context"

	"github.com/jward/storyscope/internal/store"
	"github.com/jward/storyscope/syntax"
)

// PipelineVersion is mixed into every cache key; bump it whenever rendered
// output changes for identical input.
const PipelineVersion = "1"

// DefaultCompanionSuffixes are tried, in order, after the unit directory name
// when looking for a companion file: Pizza/Pizza.stories.tsx.
var DefaultCompanionSuffixes = []string{".stories.tsx", ".stories.jsx", ".stories.ts", ".stories.js"}

// DefaultDocumentationPatterns match documentation files during discovery.
var DefaultDocumentationPatterns = []string{"**/Readme.md", "**/README.md", "**/Readme.mdx", "**/README.mdx"}

// skipDirs are never descended into during discovery.
var skipDirs = map[string]bool{
	"node_modules": true,
	"vendor":       true,
	"dist":         true,
}

// Engine drives builds for a documentation tree: it finds companion files
// next to documentation files, runs the Transformer and caches fragments in
// SQLite keyed by content hash.
type Engine struct {
	store       *store.Store // nil disables caching
	transformer *Transformer
	suffixes    []string
	tOpts       []TransformerOption
	workers     int // 0 means runtime.NumCPU()
}

// Option configures an Engine.
type Option func(*Engine)

// WithCompanionSuffixes overrides DefaultCompanionSuffixes.
func WithCompanionSuffixes(suffixes ...string) Option {
	return func(e *Engine) {
		e.suffixes = append([]string(nil), suffixes...)
	}
}

// WithWorkers bounds the number of companion files BuildFiles transforms
// concurrently.
func WithWorkers(n int) Option {
	return func(e *Engine) {
		e.workers = n
	}
}

// WithSyntaxParser routes every parse through p instead of the tree-sitter
// backend.
func WithSyntaxParser(p syntax.Parser) Option {
	return func(e *Engine) {
		e.tOpts = append(e.tOpts, WithParser(p))
	}
}

// WithSyntaxPrinter replaces the type-stripping printer.
func WithSyntaxPrinter(p syntax.Printer) Option {
	return func(e *Engine) {
		e.tOpts = append(e.tOpts, WithPrinter(p))
	}
}

// New creates an Engine. A non-empty dbPath enables the SQLite fragment
// cache at that path.
func New(dbPath string, opts ...Option) (*Engine, error) {
	e := &Engine{suffixes: DefaultCompanionSuffixes}
	for _, opt := range opts {
		opt(e)
	}
	e.transformer = NewTransformer(e.tOpts...)

	if dbPath == "" {
		return e, nil
	}
	s, err := store.NewStore(dbPath)
	if err != nil {
		return nil, fmt.Errorf("storyscope: create store: %w", err)
	}
	if err := s.Migrate(); err != nil {
		s.Close()
		return nil, fmt.Errorf("storyscope: migrate: %w", err)
	}
	if err := e.checkVersion(s); err != nil {
		s.Close()
		return nil, err
	}
	e.store = s
	return e, nil
}

// checkVersion drops cached fragments built by another pipeline version.
func (e *Engine) checkVersion(s *store.Store) error {
	stored, err := s.Metadata("pipeline_version")
	if err != nil {
		return fmt.Errorf("storyscope: read version: %w", err)
	}
	if stored == PipelineVersion {
		return nil
	}
	if err := s.Reset(); err != nil {
		return fmt.Errorf("storyscope: reset cache: %w", err)
	}
	return s.SetMetadata("pipeline_version", PipelineVersion)
}

// Close releases the Engine's database resources.
func (e *Engine) Close() error {
	if e.store == nil {
		return nil
	}
	return e.store.Close()
}

// Cached reports whether the Engine has a fragment cache.
func (e *Engine) Cached() bool {
	return e.store != nil
}

// Analyze runs the full pipeline without touching the cache. The caller must
// Close the returned Analysis.
func (e *Engine) Analyze(ctx context.Context, in Input) (*Analysis, error) {
	return e.transformer.Analyze(ctx, in)
}

// Transform returns the fragment for in, from the cache when the same input
// was built before.
func (e *Engine) Transform(ctx context.Context, in Input) (*Fragment, error) {
	f, _, err := e.transform(ctx, in)
	return f, err
}

func (e *Engine) transform(ctx context.Context, in Input) (*Fragment, bool, error) {
	key, f, err := e.lookup(ctx, in)
	if err != nil || f != nil {
		return f, f != nil, err
	}

	f, err = e.transformer.Transform(ctx, in)
	if err != nil {
		return nil, false, err
	}
	if err := e.save(key, in, f); err != nil {
		return nil, false, err
	}
	return f, false, nil
}

// lookup returns the cache key for in and the cached fragment, if any. With
// caching off both are empty.
func (e *Engine) lookup(ctx context.Context, in Input) (string, *Fragment, error) {
	if e.store == nil {
		return "", nil, nil
	}
	key := store.ComputeFragmentKey(PipelineVersion, in.DocumentationPath, in.UnitImportPath, in.CompanionPath, in.Companion)
	cached, err := e.store.FragmentByKey(key)
	if err != nil {
		return "", nil, fmt.Errorf("storyscope: cache lookup: %w", err)
	}
	if cached == nil {
		return key, nil, nil
	}
	var f Fragment
	if err := json.Unmarshal([]byte(cached.Data), &f); err != nil {
		slogctx.Warn(ctx, "discarding unreadable cached fragment", "documentation", in.DocumentationPath)
		return key, nil, nil
	}
	slogctx.Debug(ctx, "fragment cache hit", "documentation", in.DocumentationPath)
	return key, &f, nil
}

func (e *Engine) save(key string, in Input, f *Fragment) error {
	if e.store == nil {
		return nil
	}
	data, err := json.Marshal(f)
	if err != nil {
		return fmt.Errorf("storyscope: encode fragment: %w", err)
	}
	rec := &store.Fragment{
		Key:               key,
		DocumentationPath: in.DocumentationPath,
		CompanionPath:     in.CompanionPath,
		UnitImportPath:    in.UnitImportPath,
		Data:              string(data),
		BuiltAt:           time.Now(),
	}
	examples := make([]*store.Example, 0, len(f.Examples))
	for i, ex := range f.Examples {
		examples = append(examples, &store.Example{Ordinal: i, CamelKey: ex.Key, Source: ex.Source})
	}
	if err := e.store.PutFragment(rec, examples); err != nil {
		return fmt.Errorf("storyscope: cache fragment: %w", err)
	}
	return nil
}

// CompanionFor returns the conventional companion path of a documentation
// file, <dir>/<dir base><suffix>, for the first suffix that exists.
func (e *Engine) CompanionFor(documentationPath string) (string, bool) {
	dir := filepath.Dir(documentationPath)
	base := filepath.Base(dir)
	for _, suffix := range e.suffixes {
		candidate := filepath.Join(dir, base+suffix)
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate, true
		}
	}
	return "", false
}

// IsCompanion reports whether path follows the companion naming convention.
func (e *Engine) IsCompanion(path string) bool {
	base := filepath.Base(filepath.Dir(path))
	name := filepath.Base(path)
	for _, suffix := range e.suffixes {
		if name == base+suffix {
			return true
		}
	}
	return false
}

// Build is the outcome of building one documentation file.
type Build struct {
	DocumentationPath string
	CompanionPath     string // empty when no companion exists
	Fragment          *Fragment
	CacheHit          bool
}

// Input reads the companion of a documentation file and returns the pipeline
// input for it. A missing companion is not an error.
func (e *Engine) Input(documentationPath, unitImportPath string) (Input, error) {
	in := Input{UnitImportPath: unitImportPath, DocumentationPath: documentationPath}
	companion, ok := e.CompanionFor(documentationPath)
	if !ok {
		return in, nil
	}
	src, err := os.ReadFile(companion)
	if err != nil {
		return in, fmt.Errorf("storyscope: read companion: %w", err)
	}
	if src == nil {
		src = []byte{}
	}
	in.CompanionPath = companion
	in.Companion = src
	return in, nil
}

// BuildFile builds the fragment of one documentation file. unitImportPath may
// be empty, in which case "./index" relative to the documentation directory
// is assumed.
func (e *Engine) BuildFile(ctx context.Context, documentationPath, unitImportPath string) (*Build, error) {
	if unitImportPath == "" {
		unitImportPath = "./index"
	}
	in, err := e.Input(documentationPath, unitImportPath)
	if err != nil {
		return nil, err
	}
	f, hit, err := e.transform(ctx, in)
	if err != nil {
		return nil, err
	}
	return &Build{
		DocumentationPath: documentationPath,
		CompanionPath:     in.CompanionPath,
		Fragment:          f,
		CacheHit:          hit,
	}, nil
}

// Matcher selects documentation files by slash-separated path relative to
// the discovery root.
type Matcher struct {
	include []glob.Glob
	exclude []glob.Glob
}

// NewMatcher compiles include and exclude globs. No include patterns means
// DefaultDocumentationPatterns.
func NewMatcher(patterns, excludes []string) (*Matcher, error) {
	if len(patterns) == 0 {
		patterns = DefaultDocumentationPatterns
	}
	include, err := compileGlobs(patterns)
	if err != nil {
		return nil, err
	}
	exclude, err := compileGlobs(excludes)
	if err != nil {
		return nil, err
	}
	return &Matcher{include: include, exclude: exclude}, nil
}

// Match reports whether rel is a documentation path.
func (m *Matcher) Match(rel string) bool {
	return !matchAny(m.exclude, rel) && matchAny(m.include, rel)
}

// Excluded reports whether rel matches an exclude pattern.
func (m *Matcher) Excluded(rel string) bool {
	return matchAny(m.exclude, rel)
}

// Discover walks root and returns documentation files matching any of
// patterns and none of excludes. Patterns are gobwas globs over
// slash-separated paths relative to root; hidden directories, node_modules,
// vendor and dist are skipped.
func Discover(root string, patterns, excludes []string) ([]string, error) {
	m, err := NewMatcher(patterns, excludes)
	if err != nil {
		return nil, err
	}

	var paths []string
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			name := d.Name()
			if path != root && (strings.HasPrefix(name, ".") || skipDirs[name]) {
				return filepath.SkipDir
			}
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return nil
		}
		if !m.Match(filepath.ToSlash(rel)) {
			return nil
		}
		paths = append(paths, path)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("storyscope: walk directory: %w", err)
	}
	return paths, nil
}

func compileGlobs(patterns []string) ([]glob.Glob, error) {
	out := make([]glob.Glob, 0, len(patterns))
	for _, p := range patterns {
		g, err := glob.Compile(p, '/')
		if err != nil {
			return nil, fmt.Errorf("storyscope: invalid pattern %q: %w", p, err)
		}
		out = append(out, g)
		// "**/X" should also match X at the root.
		if rest, ok := strings.CutPrefix(p, "**/"); ok {
			if g, err := glob.Compile(rest, '/'); err == nil {
				out = append(out, g)
			}
		}
	}
	return out, nil
}

func matchAny(globs []glob.Glob, path string) bool {
	for _, g := range globs {
		if g.Match(path) {
			return true
		}
	}
	return false
}

// BuildDirectory discovers documentation files under root and builds them
// with BuildFiles.
func (e *Engine) BuildDirectory(ctx context.Context, root string, patterns, excludes []string) ([]*Build, error) {
	docs, err := Discover(root, patterns, excludes)
	if err != nil {
		return nil, err
	}
	return e.BuildFiles(ctx, docs)
}

// Cache is read access to the fragment cache for listing.
type Cache struct {
	s *store.Store
}

// Cache returns read access to cached fragments, or nil when caching is off.
func (e *Engine) Cache() *Cache {
	if e.store == nil {
		return nil
	}
	return &Cache{s: e.store}
}

// CachedFragment is a fragment together with where it came from.
type CachedFragment struct {
	DocumentationPath string
	CompanionPath     string
	UnitImportPath    string
	BuiltAt           time.Time
	Fragment          *Fragment
}

// Fragments lists every cached fragment ordered by documentation path.
func (c *Cache) Fragments() ([]*CachedFragment, error) {
	recs, err := c.s.Fragments()
	if err != nil {
		return nil, fmt.Errorf("storyscope: list fragments: %w", err)
	}
	out := make([]*CachedFragment, 0, len(recs))
	for _, r := range recs {
		var f Fragment
		if err := json.Unmarshal([]byte(r.Data), &f); err != nil {
			return nil, fmt.Errorf("storyscope: decode fragment for %s: %w", r.DocumentationPath, err)
		}
		out = append(out, &CachedFragment{
			DocumentationPath: r.DocumentationPath,
			CompanionPath:     r.CompanionPath,
			UnitImportPath:    r.UnitImportPath,
			BuiltAt:           r.BuiltAt,
			Fragment:          &f,
		})
	}
	return out, nil
}

// Forget removes a documentation file from the cache.
func (c *Cache) Forget(documentationPath string) error {
	return c.s.DeleteDocumentation(documentationPath)
}

// ExampleLocation is a cached example and the documentation file it belongs
// to.
type ExampleLocation struct {
	DocumentationPath string
	Example           NamedExample
}

// FindExample returns every cached example stored under camelKey.
func (c *Cache) FindExample(camelKey string) ([]ExampleLocation, error) {
	exs, err := c.s.ExamplesByKey(camelKey)
	if err != nil {
		return nil, fmt.Errorf("storyscope: find example: %w", err)
	}
	docs := make(map[string]string)
	out := make([]ExampleLocation, 0, len(exs))
	for _, ex := range exs {
		doc, ok := docs[ex.FragmentKey]
		if !ok {
			rec, err := c.s.FragmentByKey(ex.FragmentKey)
			if err != nil {
				return nil, fmt.Errorf("storyscope: find example: %w", err)
			}
			if rec != nil {
				doc = rec.DocumentationPath
			}
			docs[ex.FragmentKey] = doc
		}
		out = append(out, ExampleLocation{
			DocumentationPath: doc,
			Example:           NamedExample{Key: ex.CamelKey, Source: ex.Source},
		})
	}
	return out, nil
}
