package storyscope

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleFragment() *Fragment {
	return Assemble(
		[]NamedExample{{Key: "basic", Source: "<Button />"}},
		[]ScopeAlias{{SourcePath: "../Icon", AliasName: "__story_import_0"}},
	)
}

func TestTextMerger_AfterLeadingImports(t *testing.T) {
	t.Parallel()

	module := `// compiled documentation
import React from 'react';
import { Playground } from 'docs-kit';

export default function Doc() {
  return null;
}
`
	got, err := TextMerger{}.MergeFragment(context.Background(), []byte(module), sampleFragment())
	require.NoError(t, err)

	want := `// compiled documentation
import React from 'react';
import { Playground } from 'docs-kit';
import * as __story_import_0 from '../Icon'
export const __namedExamples = {
  'basic': '<Button />'
};
export const __storiesScope = {
  '../Icon': __story_import_0
};

export default function Doc() {
  return null;
}
`
	assert.Equal(t, want, string(got))
}

func TestTextMerger_NoImports(t *testing.T) {
	t.Parallel()

	module := "export default 1;\n"
	got, err := TextMerger{}.MergeFragment(context.Background(), []byte(module), EmptyFragment())
	require.NoError(t, err)
	assert.Equal(t, "export const __namedExamples = {};\nexport const __storiesScope = {};\nexport default 1;\n", string(got))
}

func TestTextMerger_ImportsOnlyWithoutTrailingNewline(t *testing.T) {
	t.Parallel()

	got, err := TextMerger{}.MergeFragment(context.Background(), []byte("import a from 'a'"), EmptyFragment())
	require.NoError(t, err)
	assert.Equal(t, "import a from 'a'\nexport const __namedExamples = {};\nexport const __storiesScope = {};\n", string(got))
}

func TestTextMerger_EmptyModule(t *testing.T) {
	t.Parallel()

	got, err := TextMerger{}.MergeFragment(context.Background(), nil, sampleFragment())
	require.NoError(t, err)
	assert.Equal(t, sampleFragment().String(), string(got))
}

func TestTextMerger_MultiLineImport(t *testing.T) {
	t.Parallel()

	module := `import React from 'react';
import {
  mdx,
  MDXLayout
} from '@mdx-js/react';
import Doc, {
  meta } from './meta'

const layout = MDXLayout;
`
	got, err := TextMerger{}.MergeFragment(context.Background(), []byte(module), sampleFragment())
	require.NoError(t, err)

	want := `import React from 'react';
import {
  mdx,
  MDXLayout
} from '@mdx-js/react';
import Doc, {
  meta } from './meta'
` + sampleFragment().String() + `
const layout = MDXLayout;
`
	assert.Equal(t, want, string(got))
}

func TestTextMerger_UnterminatedImport(t *testing.T) {
	t.Parallel()

	module := "import a from 'a';\nimport {\n  b,\n"
	got, err := TextMerger{}.MergeFragment(context.Background(), []byte(module), EmptyFragment())
	require.NoError(t, err)
	assert.Equal(t,
		"import a from 'a';\nexport const __namedExamples = {};\nexport const __storiesScope = {};\nimport {\n  b,\n",
		string(got))
}
