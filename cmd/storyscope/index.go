package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	slogctx "github.com/veqryn/slog-context"
)

var flagForce bool

var indexCmd = &cobra.Command{
	Use:   "index [path]",
	Short: "Build every documentation file under a directory into the cache",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runIndex,
}

func init() {
	indexCmd.Flags().BoolVar(&flagForce, "force", false, "delete the cache and rebuild from scratch")
}

func runIndex(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	start := time.Now()

	targetDir, err := resolveTargetDir(args)
	if err != nil {
		return outputError("index", err)
	}

	if flagForce && !flagNoCache {
		root := findRepoRoot(targetDir)
		cfg, err := loadConfig(root, flagConfig)
		if err != nil {
			return outputError("index", err)
		}
		dbPath := resolveDBPath(root, cfg)
		if err := os.Remove(dbPath); err != nil && !os.IsNotExist(err) {
			return outputError("index", fmt.Errorf("removing cache for --force: %w", err))
		}
		slogctx.Info(ctx, "cleared cache", "db", dbPath)
	}

	s, err := openSession(ctx, targetDir)
	if err != nil {
		return outputError("index", err)
	}
	defer s.Close()

	builds, buildErr := s.engine.BuildDirectory(ctx, targetDir, s.config.Documentation, s.config.Exclude)

	summary := CLIIndexSummary{Root: targetDir, Builds: []CLIBuild{}}
	hits := 0
	for _, b := range builds {
		summary.Builds = append(summary.Builds, toCLIBuild(b))
		if b.CacheHit {
			hits++
		}
	}
	summary.Duration = time.Since(start).Round(time.Millisecond).String()
	if buildErr != nil {
		summary.Error = buildErr.Error()
		slogctx.Error(ctx, "index incomplete", "err", buildErr)
	}

	fmt.Fprintf(os.Stderr, "Built %d documentation file(s) in %s (%d cached)\n", len(builds), summary.Duration, hits)
	if err := outputResult(CLIResult{Command: "index", Results: summary}); err != nil {
		return err
	}
	if buildErr != nil {
		errorHandled = true
		return buildErr
	}
	return nil
}
