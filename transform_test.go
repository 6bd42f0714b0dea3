package storyscope

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jward/storyscope/syntax"
)

// transform runs the pipeline over a TSX companion of docPath.
func transform(t *testing.T, docPath, src string) *Fragment {
	t.Helper()
	f, err := NewTransformer().Transform(context.Background(), Input{
		UnitImportPath:    "./index",
		DocumentationPath: docPath,
		CompanionPath:     "Companion.stories.tsx",
		Companion:         []byte(src),
	})
	require.NoError(t, err)
	return f
}

// exampleSource returns the rendered source of key, failing when absent.
func exampleSource(t *testing.T, f *Fragment, key string) string {
	t.Helper()
	src, ok := f.Example(key)
	require.True(t, ok, "example %q missing; have %v", key, f.Examples)
	return src
}

func TestTransform_EndToEnd(t *testing.T) {
	t.Parallel()

	f := transform(t, "src/Layout/Readme.md", `import Container from './Container'

export const basic = () => <Container><Button /></Container>
`)

	want := `import * as __story_import_0 from './Container'
export const __namedExamples = {
  'basic': 'import Container from \'./Container\';\n\n<Container><Button /></Container>'
};
export const __storiesScope = {
  './Container': __story_import_0
};
`
	assert.Equal(t, want, f.String())
}

func TestTransform_KeyDerivation(t *testing.T) {
	t.Parallel()

	f := transform(t, "src/A/Readme.md", `
export const camelCaseStory = () => <div />;
export const PascalCaseStory = () => <span />;
`)
	require.Len(t, f.Examples, 2)
	assert.Equal(t, "camelCaseStory", f.Examples[0].Key)
	assert.Equal(t, "pascalCaseStory", f.Examples[1].Key)
	assert.Equal(t, "<span />", f.Examples[1].Source)
}

func TestTransform_UnconditionalScope(t *testing.T) {
	t.Parallel()

	f := transform(t, "src/A/Readme.md", `import a from 'a';
import { b } from 'b';

export const Plain = () => <div />;
`)
	assert.Equal(t, "<div />", exampleSource(t, f, "plain"))
	assert.Equal(t, []string{
		"import * as __story_import_0 from 'a'",
		"import * as __story_import_1 from 'b'",
	}, f.ImportStatements())

	alias, ok := f.AliasFor("b")
	require.True(t, ok)
	assert.Equal(t, "__story_import_1", alias)
}

func TestTransform_MinimalPrelude(t *testing.T) {
	t.Parallel()

	f := transform(t, "src/A/Readme.md", `const used = 1;
const unused = 2;

export const Example = () => <div>{used}</div>;
`)
	assert.Equal(t, "const used = 1;\n\n<div>{used}</div>", exampleSource(t, f, "example"))
}

func TestTransform_DeclarationOrder(t *testing.T) {
	t.Parallel()

	f := transform(t, "src/A/Readme.md", `import { Icon } from '../Icon';
const size = 'large';
import Button from '../Button';

export const Example = () => <Button size={size}><Icon /></Button>;
`)
	assert.Equal(t,
		"import { Icon } from '../Icon';\nconst size = 'large';\nimport Button from '../Button';\n\n<Button size={size}><Icon /></Button>",
		exampleSource(t, f, "example"))
}

func TestTransform_SelfImportElision(t *testing.T) {
	t.Parallel()

	f := transform(t, "src/Pizza/Readme.md", `import Pizza from './Pizza';

export const Basic = () => <Pizza />;
`)
	assert.Equal(t, "<Pizza />", exampleSource(t, f, "basic"))
	_, ok := f.AliasFor("./Pizza")
	assert.True(t, ok, "self import still belongs to the scope map")
}

func TestTransform_SelfImportElision_NamedFromIndex(t *testing.T) {
	t.Parallel()

	f := transform(t, "src/Pizza/Readme.md", `import { Pizza } from '.';

export const Basic = () => <Pizza />;
`)
	assert.Equal(t, "<Pizza />", exampleSource(t, f, "basic"))
	_, ok := f.AliasFor(".")
	assert.True(t, ok)
}

func TestTransform_SelfImportRetainedWhenShared(t *testing.T) {
	t.Parallel()

	f := transform(t, "src/Pizza/Readme.md", `import Pizza, { cheese } from './Pizza';

export const Cheesy = () => <Pizza topping={cheese} />;
`)
	assert.Equal(t,
		"import Pizza, { cheese } from './Pizza';\n\n<Pizza topping={cheese} />",
		exampleSource(t, f, "cheesy"))
}

func TestTransform_SelfNameOnBindingIsRendered(t *testing.T) {
	t.Parallel()

	f := transform(t, "src/Pizza/Readme.md", `const Pizza = () => <div />;

export const Basic = () => <Pizza />;
`)
	assert.Equal(t, "const Pizza = () => <div />;\n\n<Pizza />", exampleSource(t, f, "basic"))
}

func TestTransform_NoSubstringMatch(t *testing.T) {
	t.Parallel()

	f := transform(t, "src/A/Readme.md", `const java = 'java';

export const Lang = () => <Code lang={javascript} />;
`)
	assert.Equal(t, "<Code lang={javascript} />", exampleSource(t, f, "lang"))
}

func TestTransform_TypeSyntaxStripped(t *testing.T) {
	t.Parallel()

	f := transform(t, "src/A/Readme.md", `const sizes = ['s', 'm'] as const
const label: string = 'Size';

export const Sizes = () => <Picker label={label} options={sizes as string[]} />;
`)
	assert.Equal(t,
		"const sizes = ['s', 'm'];\nconst label = 'Size';\n\n<Picker label={label} options={sizes} />",
		exampleSource(t, f, "sizes"))
}

func TestTransform_RestAtomicity(t *testing.T) {
	t.Parallel()

	f := transform(t, "src/A/Readme.md", `const { coffee, ...rest } = drinks;

export const Menu = () => <List items={rest} />;
`)
	assert.Equal(t, "const { coffee, ...rest } = drinks;\n\n<List items={rest} />", exampleSource(t, f, "menu"))
}

func TestTransform_DestructuringRename(t *testing.T) {
	t.Parallel()

	f := transform(t, "src/A/Readme.md", `const { primary: brand } = theme;
const [first] = colors;

export const Swatch = () => <Box color={brand} />;
export const First = () => <Box color={first} />;
`)
	assert.Equal(t, "const { primary: brand } = theme;\n\n<Box color={brand} />", exampleSource(t, f, "swatch"))
	assert.Equal(t, "const [first] = colors;\n\n<Box color={first} />", exampleSource(t, f, "first"))
}

func TestTransform_RenamedAndNamespaceImports(t *testing.T) {
	t.Parallel()

	f := transform(t, "src/A/Readme.md", `import { Button as Btn } from '../Button';
import * as Icons from '../Icons';

export const Renamed = () => <Btn />;
export const Namespaced = () => <Icons.Star />;
`)
	assert.Equal(t, "import { Button as Btn } from '../Button';\n\n<Btn />", exampleSource(t, f, "renamed"))
	assert.Equal(t, "import * as Icons from '../Icons';\n\n<Icons.Star />", exampleSource(t, f, "namespaced"))
}

func TestTransform_ParametersShadowTopLevel(t *testing.T) {
	t.Parallel()

	f := transform(t, "src/A/Readme.md", `const item = 'top';
const props = {};

export const Rows = (props) => <List {...props} render={(item) => <Row value={item} />} />;
`)
	assert.Equal(t, "<List {...props} render={(item) => <Row value={item} />} />", exampleSource(t, f, "rows"))
}

func TestTransform_ExportedBindingsAndFunctions(t *testing.T) {
	t.Parallel()

	f := transform(t, "src/A/Readme.md", `export const options = ['a', 'b'];
function format(x) { return x.toUpperCase(); }

export const Formatted = () => <Select options={options} format={format} />;
`)
	assert.Equal(t,
		"const options = ['a', 'b'];\nfunction format(x) { return x.toUpperCase(); }\n\n<Select options={options} format={format} />",
		exampleSource(t, f, "formatted"))
}

func TestTransform_TypeOnlyImportsIgnored(t *testing.T) {
	t.Parallel()

	f := transform(t, "src/A/Readme.md", `import type { Props } from './types';
import { type Size, Button } from '../Button';

export const Typed = () => <Button />;
`)
	assert.Equal(t, "import { Button } from '../Button';\n\n<Button />", exampleSource(t, f, "typed"))
	assert.Len(t, f.Scope, 1)
	_, ok := f.AliasFor("./types")
	assert.False(t, ok)
}

func TestTransform_ParenthesizedBody(t *testing.T) {
	t.Parallel()

	f := transform(t, "src/A/Readme.md", `export const Wrapped = () => (
  <div>hi</div>
);
`)
	assert.Equal(t, "<div>hi</div>", exampleSource(t, f, "wrapped"))
}

func TestTransform_Idempotent(t *testing.T) {
	t.Parallel()

	src := `import Button from '../Button';
const label = 'Go';
export const Basic = () => <Button>{label}</Button>;
`
	first := transform(t, "src/A/Readme.md", src).String()
	second := transform(t, "src/A/Readme.md", src).String()
	assert.Equal(t, first, second)
}

func TestTransform_DuplicateKeysLastWins(t *testing.T) {
	t.Parallel()

	f := transform(t, "src/A/Readme.md", `export const Basic = () => <First />;
export const Other = () => <Second />;
export const basic = () => <Third />;
`)
	require.Len(t, f.Examples, 2)
	assert.Equal(t, "basic", f.Examples[0].Key)
	assert.Equal(t, "<Third />", f.Examples[0].Source)
	assert.Equal(t, "other", f.Examples[1].Key)
}

func TestTransform_DuplicateSourcePaths(t *testing.T) {
	t.Parallel()

	f := transform(t, "src/A/Readme.md", `import A from './x';
import { B } from './x';

export const Both = () => <A><B /></A>;
`)
	assert.Len(t, f.ImportStatements(), 2)
	require.Len(t, f.Scope, 1)
	assert.Equal(t, "__story_import_1", f.Scope[0].AliasName)
}

func TestTransform_BlockBodySkipped(t *testing.T) {
	t.Parallel()

	f := transform(t, "src/A/Readme.md", `import Button from '../Button';

export const Block = () => { return <Button />; };
export function Declared() { return <Button />; }
`)
	assert.Equal(t, "export const __namedExamples = {};\nexport const __storiesScope = {};\n", f.String())
}

func TestTransform_MissingCompanion(t *testing.T) {
	t.Parallel()

	f, err := NewTransformer().Transform(context.Background(), Input{DocumentationPath: "src/A/Readme.md"})
	require.NoError(t, err)
	assert.Equal(t, EmptyFragment(), f)
	assert.Empty(t, f.ImportStatements())
}

func TestTransform_ParseErrorPropagates(t *testing.T) {
	t.Parallel()

	_, err := NewTransformer().Transform(context.Background(), Input{
		DocumentationPath: "src/A/Readme.md",
		CompanionPath:     "src/A/A.stories.tsx",
		Companion:         []byte("export const Broken = () => {;\n"),
	})
	require.Error(t, err)
	var perr *syntax.ParseError
	assert.True(t, errors.As(err, &perr), "parse error should be recoverable, got %T", err)
	assert.Contains(t, err.Error(), "src/A/A.stories.tsx")
}

// stubParser records calls and fails.
type stubParser struct {
	calls int
	err   error
}

func (p *stubParser) Parse(context.Context, []byte) (syntax.Tree, error) {
	p.calls++
	return nil, p.err
}

func TestTransformer_WithParser(t *testing.T) {
	t.Parallel()

	sentinel := errors.New("parser offline")
	p := &stubParser{err: sentinel}
	_, err := NewTransformer(WithParser(p)).Transform(context.Background(), Input{Companion: []byte("x")})
	require.ErrorIs(t, err, sentinel)
	assert.Equal(t, 1, p.calls)
}

func TestAnalyze_ExposesUsage(t *testing.T) {
	t.Parallel()

	a, err := NewTransformer().Analyze(context.Background(), Input{
		DocumentationPath: "src/Card/Readme.md",
		Companion: []byte(`import Card from './Card';
import { Title } from '../Title';
const text = 'x';

export const Basic = () => <Card><Title>{text}</Title></Card>;
`),
	})
	require.NoError(t, err)
	defer a.Close()

	assert.Equal(t, "Card", a.CurrentUnit)
	require.Len(t, a.Catalog, 3)
	assert.Equal(t, Import, a.Catalog[0].Kind)
	assert.Equal(t, []string{"Card"}, a.Catalog[0].BoundNames)
	assert.Equal(t, Binding, a.Catalog[2].Kind)

	require.Len(t, a.Usage, 1)
	u := a.Usage[0]
	assert.Equal(t, []string{"Card", "Title", "text"}, u.FreeNames)
	assert.Len(t, u.Needed, 3)
	assert.Len(t, u.Rendered, 2, "self import is needed but not rendered")
	assert.True(t, u.References("Title"))
	assert.False(t, u.References("Other"))
	require.Len(t, a.Aliases, 2)
}

func TestTransform_TerminatorBeforeTrailingComment(t *testing.T) {
	t.Parallel()

	f := transform(t, "src/Card/Readme.md", `import Button from './Button' // primary
import { Icon } from '../Icon' // icon set
const size = 'lg' // default size
const tone = 'warm'; // already terminated

export const Sized = () => <Button size={size} tone={tone}><Icon /></Button>
`)
	assert.Equal(t,
		"import Button from './Button'; // primary\n"+
			"import { Icon } from '../Icon'; // icon set\n"+
			"const size = 'lg'; // default size\n"+
			"const tone = 'warm';\n\n"+
			"<Button size={size} tone={tone}><Icon /></Button>",
		exampleSource(t, f, "sized"))
}

func TestFreeIdentifiers_LocalBindings(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		body string
		want []string
	}{
		{
			name: "catch parameter",
			body: `() => <X v={() => { try { go(); } catch (e) { log(e); } return e; }} />`,
			want: []string{"X", "go", "log", "e"},
		},
		{
			name: "for loop variable",
			body: `() => <X v={() => { for (let i = 0; i < n; i++) { use(i); } return i; }} />`,
			want: []string{"X", "n", "use", "i"},
		},
		{
			name: "for of variable",
			body: `() => <X v={() => { for (const k of ks) { use(k); } }} />`,
			want: []string{"X", "ks", "use"},
		},
		{
			name: "block declaration",
			body: `() => <X v={(() => { const y = f(); return y; })()} />`,
			want: []string{"X", "f"},
		},
		{
			name: "block declaration does not leak",
			body: `() => <X v={() => { if (ok) { const z = 1; } return z; }} />`,
			want: []string{"X", "ok", "z"},
		},
		{
			name: "hoisted var",
			body: `() => <X v={() => { if (ok) { var y = 1; } return y; }} />`,
			want: []string{"X", "ok"},
		},
		{
			name: "named function expression",
			body: `() => <X v={function fact(n) { return n ? n * fact(n - 1) : 1; }} />`,
			want: []string{"X"},
		},
		{
			name: "named class expression",
			body: `() => <X v={class Node { next() { return Node; } }} />`,
			want: []string{"X"},
		},
		{
			name: "nested destructured parameters",
			body: `() => <X render={({ a, b: [c] }) => a + c + d} />`,
			want: []string{"X", "d"},
		},
		{
			name: "destructured example parameter",
			body: `({ label }) => <X>{label}</X>`,
			want: []string{"X"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			a, err := NewTransformer().Analyze(context.Background(), Input{
				DocumentationPath: "src/A/Readme.md",
				CompanionPath:     "A.stories.tsx",
				Companion:         []byte("export const Case = " + tt.body + ";\n"),
			})
			require.NoError(t, err)
			defer a.Close()

			require.Len(t, a.Usage, 1)
			assert.Equal(t, tt.want, a.Usage[0].FreeNames)
		})
	}
}

func TestTransform_MixedExampleDeclaration(t *testing.T) {
	t.Parallel()

	f := transform(t, "src/A/Readme.md", `import { X } from '../X';

export const a = 1, Mixed = () => <X v={a} />;
`)
	assert.Equal(t, "import { X } from '../X';\nconst a = 1;\n\n<X v={a} />", exampleSource(t, f, "mixed"))
}

func TestTransform_EnumsAreBindings(t *testing.T) {
	t.Parallel()

	f := transform(t, "src/A/Readme.md", `enum Tone { Warm, Cool }
export enum Size { S, M }

export const Toned = () => <X tone={Tone.Warm} size={Size.M} />;
`)
	assert.Equal(t,
		"enum Tone { Warm, Cool }\nenum Size { S, M }\n\n<X tone={Tone.Warm} size={Size.M} />",
		exampleSource(t, f, "toned"))
}

func TestTransform_SideEffectImport(t *testing.T) {
	t.Parallel()

	in := Input{
		UnitImportPath:    "./index",
		DocumentationPath: "src/A/Readme.md",
		CompanionPath:     "A.stories.tsx",
		Companion: []byte(`import './styles.css';
import Button from '../Button';

export const Styled = () => <Button />;
`),
	}
	a, err := NewTransformer().Analyze(context.Background(), in)
	require.NoError(t, err)
	defer a.Close()

	require.Len(t, a.Catalog, 2)
	assert.Equal(t, Import, a.Catalog[0].Kind)
	assert.Equal(t, "./styles.css", a.Catalog[0].SourcePath)
	assert.Empty(t, a.Catalog[0].BoundNames)

	f := a.Fragment
	assert.Equal(t, "import Button from '../Button';\n\n<Button />", exampleSource(t, f, "styled"))
	assert.Equal(t, []string{
		"import * as __story_import_0 from './styles.css'",
		"import * as __story_import_1 from '../Button'",
	}, f.ImportStatements())
	alias, ok := f.AliasFor("./styles.css")
	require.True(t, ok)
	assert.Equal(t, "__story_import_0", alias)
}
