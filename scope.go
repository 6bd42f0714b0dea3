package storyscope

import "strconv"

// AliasPrefix prefixes every generated namespace handle.
const AliasPrefix = "__story_import_"

// BindScope assigns a positional alias to every Import entry in catalog
// order, whether or not any example uses it.
func BindScope(catalog []*DeclarationEntry) []ScopeAlias {
	var aliases []ScopeAlias
	for _, entry := range catalog {
		if entry.Kind != Import {
			continue
		}
		idx := len(aliases)
		aliases = append(aliases, ScopeAlias{
			SourcePath: entry.SourcePath,
			AliasName:  AliasPrefix + strconv.Itoa(idx),
			Index:      idx,
		})
	}
	return aliases
}
