package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/jward/storyscope"
)

var (
	flagDB      string
	flagFormat  string
	flagConfig  string
	flagVerbose bool
	flagNoCache bool
)

// errorHandled is set by outputError so main() doesn't double-print.
var errorHandled bool

func main() {
	if err := rootCmd.Execute(); err != nil {
		if !errorHandled {
			fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		}
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:           "storyscope",
	Short:         "Compile documentation examples with their scope",
	Long:          "Storyscope reads the companion file of a documentation file, works out which imports and bindings each example needs, and emits a fragment holding the rendered example sources and a scope map.",
	SilenceErrors: true,
	SilenceUsage:  true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := validateFormat(flagFormat); err != nil {
			return err
		}
		cmd.SetContext(newLogger(cmd.Context(), os.Stderr, flagVerbose))
		return nil
	},
	// No Run: prints help by default.
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagDB, "db", "", "cache database path (default: .storyscope/cache.db relative to repo root)")
	rootCmd.PersistentFlags().StringVar(&flagFormat, "format", "text", "output format: json|text")
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "config file (default: .storyscope.yaml at repo root)")
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().BoolVar(&flagNoCache, "no-cache", false, "build without reading or writing the cache")

	rootCmd.AddCommand(buildCmd)
	rootCmd.AddCommand(indexCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(listCmd)
}

// session is what every command needs: the resolved repo root, its config
// and an open engine.
type session struct {
	root   string
	config *Config
	engine *storyscope.Engine
}

func (s *session) Close() error {
	return s.engine.Close()
}

// openSession loads configuration for the repo containing startDir and opens
// an engine over its cache.
func openSession(ctx context.Context, startDir string) (*session, error) {
	root := findRepoRoot(startDir)
	cfg, err := loadConfig(root, flagConfig)
	if err != nil {
		return nil, err
	}

	dbPath := ""
	if !flagNoCache {
		dbPath = resolveDBPath(root, cfg)
		if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
			return nil, fmt.Errorf("creating %s: %w", filepath.Dir(dbPath), err)
		}
	}

	var opts []storyscope.Option
	if len(cfg.CompanionSuffixes) > 0 {
		opts = append(opts, storyscope.WithCompanionSuffixes(cfg.CompanionSuffixes...))
	}
	engine, err := storyscope.New(dbPath, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating engine: %w", err)
	}
	return &session{root: root, config: cfg, engine: engine}, nil
}

// resolveTargetDir returns the absolute path of the directory to work on.
func resolveTargetDir(args []string) (string, error) {
	dir := "."
	if len(args) > 0 {
		dir = args[0]
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("resolving path %q: %w", dir, err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return "", fmt.Errorf("directory not found: %s", abs)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("not a directory: %s", abs)
	}
	return abs, nil
}

// findRepoRoot walks up from startDir looking for a .git directory.
// Returns the directory containing .git, or startDir if not found.
func findRepoRoot(startDir string) string {
	dir := startDir
	for {
		if info, err := os.Stat(filepath.Join(dir, ".git")); err == nil && info.IsDir() {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			// Reached filesystem root without finding .git.
			return startDir
		}
		dir = parent
	}
}

// resolveDBPath returns the database path from --db, the config file, or the
// default, in that order.
func resolveDBPath(repoRoot string, cfg *Config) string {
	p := flagDB
	if p == "" && cfg != nil {
		p = cfg.DB
	}
	if p == "" {
		return filepath.Join(repoRoot, ".storyscope", "cache.db")
	}
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(repoRoot, p)
}
