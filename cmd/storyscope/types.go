package main

import (
	"time"

	"github.com/jward/storyscope"
	"github.com/jward/storyscope/internal/runtime"
)

// CLIResult is the top-level JSON envelope for all commands.
type CLIResult struct {
	Command string `json:"command"`
	Results any    `json:"results"`
	Error   string `json:"error,omitempty"`
}

// CLIBuild is a JSON-friendly build outcome.
type CLIBuild struct {
	Documentation string               `json:"documentation"`
	Companion     string               `json:"companion,omitempty"`
	CacheHit      bool                 `json:"cache_hit"`
	Fragment      *storyscope.Fragment `json:"fragment,omitempty"`
	Module        string               `json:"module,omitempty"`
}

// CLIIndexSummary summarizes an index run.
type CLIIndexSummary struct {
	Root     string     `json:"root"`
	Builds   []CLIBuild `json:"builds"`
	Error    string     `json:"error,omitempty"`
	Duration string     `json:"duration"`
}

// CLIFragment is a JSON-friendly cached fragment.
type CLIFragment struct {
	Documentation string    `json:"documentation"`
	Companion     string    `json:"companion,omitempty"`
	Unit          string    `json:"unit"`
	BuiltAt       time.Time `json:"built_at"`
	Examples      []string  `json:"examples"`
	Imports       []string  `json:"imports"`
}

// CLIExample is a cached example located by key.
type CLIExample struct {
	Documentation string `json:"documentation"`
	Key           string `json:"key"`
	Source        string `json:"source"`
}

// CLICheck is the outcome of running check scripts over one file.
type CLICheck struct {
	Documentation string               `json:"documentation"`
	Companion     string               `json:"companion,omitempty"`
	Diagnostics   []runtime.Diagnostic `json:"diagnostics"`
}

func toCLIBuild(b *storyscope.Build) CLIBuild {
	return CLIBuild{
		Documentation: b.DocumentationPath,
		Companion:     b.CompanionPath,
		CacheHit:      b.CacheHit,
		Fragment:      b.Fragment,
	}
}

func toCLIFragment(c *storyscope.CachedFragment) CLIFragment {
	out := CLIFragment{
		Documentation: c.DocumentationPath,
		Companion:     c.CompanionPath,
		Unit:          c.UnitImportPath,
		BuiltAt:       c.BuiltAt,
		Examples:      []string{},
		Imports:       []string{},
	}
	for _, ex := range c.Fragment.Examples {
		out.Examples = append(out.Examples, ex.Key)
	}
	for _, a := range c.Fragment.Scope {
		out.Imports = append(out.Imports, a.SourcePath)
	}
	return out
}
