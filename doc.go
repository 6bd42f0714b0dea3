// Package storyscope compiles the live examples of a component
// documentation file. Each documentation file may have a companion source
// file that exports its examples as arrow functions with expression bodies:
//
//	import Button from './Button';
//	import { Icon } from '../Icon';
//
//	export const WithIcon = () => <Button><Icon /></Button>;
//
// For every example storyscope works out which top-level imports and
// bindings of the companion it references, renders a self-contained display
// source from them, and emits a Fragment holding the rendered sources keyed
// by camel-cased example name plus a scope map from import paths to
// namespace handles:
//
//	import * as __story_import_0 from './Button'
//	import * as __story_import_1 from '../Icon'
//	export const __namedExamples = {
//	  'withIcon': 'import { Icon } from \'../Icon\';\n\n<Button><Icon /></Button>'
//	};
//	export const __storiesScope = {
//	  './Button': __story_import_0,
//	  '../Icon': __story_import_1
//	};
//
// The documented unit itself (the documentation file's directory name) is
// assumed to be in scope, so imports that only bring it in are left out of
// rendered sources.
//
// # Pipeline
//
// A companion file is parsed with tree-sitter, then:
//
//  1. Catalog lists top-level imports and bindings.
//  2. CollectExamples finds exported expression-bodied arrow functions.
//  3. AnalyzeUsage resolves each example's free identifiers against the catalog.
//  4. RenderSource prints the needed declarations and the example body with
//     type syntax stripped.
//  5. BindScope and Assemble produce the Fragment.
//
// # Usage
//
// Transformer runs the pipeline over in-memory input. Engine adds companion
// lookup, directory discovery and a SQLite fragment cache:
//
//	e, err := storyscope.New(".storyscope/cache.db")
//	if err != nil { ... }
//	defer e.Close()
//
//	b, err := e.BuildFile(ctx, "src/Button/Readme.md", "")
//	fmt.Print(b.Fragment)
package storyscope
