package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	slogctx "github.com/veqryn/slog-context"

	"github.com/jward/storyscope/internal/runtime"
)

var flagScripts []string

var checkCmd = &cobra.Command{
	Use:   "check <documentation-file>...",
	Short: "Run Risor check scripts against documentation examples",
	Long:  "Analyzes each documentation file's companion and runs the given check scripts over the result. Scripts see the declarations, examples and scope map and report problems with report() and report_example(). Exits non-zero when any problem is reported.",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runCheck,
}

func init() {
	checkCmd.Flags().StringSliceVar(&flagScripts, "script", nil, "check script to run (repeatable; default: scripts from config)")
	checkCmd.Flags().StringVar(&flagUnit, "unit", "", "import path of the documented unit (default ./index)")
}

func runCheck(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	first, err := filepath.Abs(args[0])
	if err != nil {
		return outputError("check", err)
	}
	s, err := openSession(ctx, filepath.Dir(first))
	if err != nil {
		return outputError("check", err)
	}
	defer s.Close()

	scripts := flagScripts
	if len(scripts) == 0 {
		scripts = s.config.Scripts
	}
	if len(scripts) == 0 {
		return outputError("check", fmt.Errorf("no check scripts given: pass --script or list scripts in %s", ConfigFileName))
	}

	// Relative script paths resolve against the working directory when given
	// on the command line and against the repo root when taken from config.
	scriptsDir := s.root
	if len(flagScripts) > 0 {
		scriptsDir, _ = os.Getwd()
	}
	rt := runtime.NewRuntime(scriptsDir)

	unit := flagUnit
	if unit == "" {
		unit = "./index"
	}

	checks := make([]CLICheck, 0, len(args))
	total := 0
	for _, arg := range args {
		doc, err := filepath.Abs(arg)
		if err != nil {
			return outputError("check", err)
		}
		in, err := s.engine.Input(doc, unit)
		if err != nil {
			return outputError("check", err)
		}
		a, err := s.engine.Analyze(ctx, in)
		if err != nil {
			return outputError("check", err)
		}

		c := CLICheck{Documentation: doc, Companion: in.CompanionPath, Diagnostics: []runtime.Diagnostic{}}
		for _, script := range scripts {
			diags, err := rt.RunCheck(ctx, script, a)
			if err != nil {
				a.Close()
				return outputError("check", err)
			}
			c.Diagnostics = append(c.Diagnostics, diags...)
		}
		a.Close()

		slogctx.Debug(ctx, "checked", "documentation", doc, "diagnostics", len(c.Diagnostics))
		total += len(c.Diagnostics)
		checks = append(checks, c)
	}

	if err := outputResult(CLIResult{Command: "check", Results: checks}); err != nil {
		return err
	}
	if total > 0 {
		errorHandled = true
		return fmt.Errorf("check reported %d problem(s)", total)
	}
	return nil
}
