package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var flagExample string

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List cached fragments, or find cached examples by key",
	Args:  cobra.NoArgs,
	RunE:  runList,
}

func init() {
	listCmd.Flags().StringVar(&flagExample, "example", "", "show every cached example with this key")
}

func runList(cmd *cobra.Command, args []string) error {
	if flagNoCache {
		return outputError("list", fmt.Errorf("list reads the cache; drop --no-cache"))
	}
	wd, err := os.Getwd()
	if err != nil {
		return outputError("list", err)
	}
	s, err := openSession(cmd.Context(), wd)
	if err != nil {
		return outputError("list", err)
	}
	defer s.Close()
	cache := s.engine.Cache()

	if flagExample != "" {
		locs, err := cache.FindExample(flagExample)
		if err != nil {
			return outputError("list", err)
		}
		out := make([]CLIExample, 0, len(locs))
		for _, l := range locs {
			out = append(out, CLIExample{
				Documentation: l.DocumentationPath,
				Key:           l.Example.Key,
				Source:        l.Example.Source,
			})
		}
		return outputResult(CLIResult{Command: "list", Results: out})
	}

	frags, err := cache.Fragments()
	if err != nil {
		return outputError("list", err)
	}
	out := make([]CLIFragment, 0, len(frags))
	for _, f := range frags {
		out = append(out, toCLIFragment(f))
	}
	return outputResult(CLIResult{Command: "list", Results: out})
}
