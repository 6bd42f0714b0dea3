package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/jward/storyscope"
)

var (
	flagUnit   string
	flagModule string
)

var buildCmd = &cobra.Command{
	Use:   "build <documentation-file>",
	Short: "Build the example fragment of one documentation file",
	Long:  "Finds the companion file next to the documentation file, renders each example with the declarations it needs, and prints the resulting fragment. With --module the fragment is merged into the given compiled module instead.",
	Args:  cobra.ExactArgs(1),
	RunE:  runBuild,
}

func init() {
	buildCmd.Flags().StringVar(&flagUnit, "unit", "", "import path of the documented unit (default ./index)")
	buildCmd.Flags().StringVar(&flagModule, "module", "", "compiled documentation module to merge the fragment into")
}

func runBuild(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	doc, err := filepath.Abs(args[0])
	if err != nil {
		return outputError("build", fmt.Errorf("resolving path %q: %w", args[0], err))
	}
	if _, err := os.Stat(doc); err != nil {
		return outputError("build", fmt.Errorf("documentation file not found: %s", doc))
	}

	s, err := openSession(ctx, filepath.Dir(doc))
	if err != nil {
		return outputError("build", err)
	}
	defer s.Close()

	b, err := s.engine.BuildFile(ctx, doc, flagUnit)
	if err != nil {
		return outputError("build", err)
	}
	result := toCLIBuild(b)

	if flagModule != "" {
		module, err := os.ReadFile(flagModule)
		if err != nil {
			return outputError("build", fmt.Errorf("reading module: %w", err))
		}
		var m storyscope.Merger = storyscope.TextMerger{}
		merged, err := m.MergeFragment(ctx, module, b.Fragment)
		if err != nil {
			return outputError("build", err)
		}
		result.Module = string(merged)
	}

	return outputResult(CLIResult{Command: "build", Results: result})
}
