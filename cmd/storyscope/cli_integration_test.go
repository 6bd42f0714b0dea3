package main_test

import (
	"encoding/json"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// buildBinary compiles the storyscope binary and returns the path.
// The binary is placed in t.TempDir() so it's cleaned up automatically.
func buildBinary(t *testing.T) string {
	t.Helper()
	binName := "storyscope"
	if runtime.GOOS == "windows" {
		binName += ".exe"
	}
	bin := filepath.Join(t.TempDir(), binName)
	cmd := exec.Command("go", "build", "-o", bin, ".")
	cmd.Dir = filepath.Join(projectRoot(t), "cmd", "storyscope")
	cmd.Env = append(os.Environ(), "CGO_ENABLED=1")
	out, err := cmd.CombinedOutput()
	require.NoError(t, err, "build failed: %s", string(out))
	return bin
}

// projectRoot returns the root of the project by walking up from the test
// file's directory to find go.mod.
func projectRoot(t *testing.T) string {
	t.Helper()
	_, filename, _, ok := runtime.Caller(0)
	require.True(t, ok, "runtime.Caller failed")
	dir := filepath.Dir(filename)
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		require.NotEqual(t, parent, dir, "could not find project root")
		dir = parent
	}
}

const buttonStories = `import Button from './Button';
import { Icon } from '../Icon';

export const Basic = () => <Button />;
export const WithIcon = () => <Button><Icon /></Button>;
`

// createFixture creates a repo with one documented unit and returns its root.
func createFixture(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(dir, ".git"), 0o755))

	unit := filepath.Join(dir, "src", "Button")
	require.NoError(t, os.MkdirAll(unit, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(unit, "Readme.md"), []byte("# Button\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(unit, "Button.stories.tsx"), []byte(buttonStories), 0o644))

	// A unit without companion.
	card := filepath.Join(dir, "src", "Card")
	require.NoError(t, os.MkdirAll(card, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(card, "Readme.md"), []byte("# Card\n"), 0o644))
	return dir
}

func run(t *testing.T, bin, dir string, args ...string) ([]byte, error) {
	t.Helper()
	cmd := exec.Command(bin, args...)
	cmd.Dir = dir
	return cmd.Output()
}

type envelope struct {
	Command string          `json:"command"`
	Results json.RawMessage `json:"results"`
	Error   string          `json:"error"`
}

type fragmentJSON struct {
	Examples []struct {
		Key    string `json:"key"`
		Source string `json:"source"`
	} `json:"examples"`
	Scope []struct {
		SourcePath string `json:"source_path"`
		AliasName  string `json:"alias"`
	} `json:"scope"`
}

func TestCLI_BuildJSON(t *testing.T) {
	bin := buildBinary(t)
	dir := createFixture(t)

	out, err := run(t, bin, dir, "build", "src/Button/Readme.md", "--format", "json")
	require.NoError(t, err, string(out))

	var env envelope
	require.NoError(t, json.Unmarshal(out, &env))
	assert.Equal(t, "build", env.Command)

	var b struct {
		Companion string       `json:"companion"`
		CacheHit  bool         `json:"cache_hit"`
		Fragment  fragmentJSON `json:"fragment"`
	}
	require.NoError(t, json.Unmarshal(env.Results, &b))
	assert.Equal(t, filepath.Join(dir, "src", "Button", "Button.stories.tsx"), b.Companion)
	assert.False(t, b.CacheHit)
	require.Len(t, b.Fragment.Examples, 2)
	assert.Equal(t, "basic", b.Fragment.Examples[0].Key)
	assert.Equal(t, "<Button />", b.Fragment.Examples[0].Source)
	assert.Equal(t, "withIcon", b.Fragment.Examples[1].Key)
	assert.Equal(t, "import { Icon } from '../Icon';\n\n<Button><Icon /></Button>", b.Fragment.Examples[1].Source)

	// Second build is served from the cache.
	out, err = run(t, bin, dir, "build", "src/Button/Readme.md", "--format", "json")
	require.NoError(t, err, string(out))
	require.NoError(t, json.Unmarshal(out, &env))
	require.NoError(t, json.Unmarshal(env.Results, &b))
	assert.True(t, b.CacheHit)
	assert.FileExists(t, filepath.Join(dir, ".storyscope", "cache.db"))
}

func TestCLI_BuildText(t *testing.T) {
	bin := buildBinary(t)
	dir := createFixture(t)

	out, err := run(t, bin, dir, "build", "src/Button/Readme.md", "--no-cache")
	require.NoError(t, err, string(out))
	assert.Contains(t, string(out), "import * as __story_import_0 from './Button'")
	assert.Contains(t, string(out), "export const __namedExamples = {")
	assert.Contains(t, string(out), "'../Icon': __story_import_1")
	assert.NoFileExists(t, filepath.Join(dir, ".storyscope", "cache.db"))
}

func TestCLI_BuildMergesModule(t *testing.T) {
	bin := buildBinary(t)
	dir := createFixture(t)
	module := filepath.Join(dir, "compiled.js")
	require.NoError(t, os.WriteFile(module, []byte("import React from 'react';\n\nexport default function Doc() {}\n"), 0o644))

	out, err := run(t, bin, dir, "build", "src/Button/Readme.md", "--module", module)
	require.NoError(t, err, string(out))
	s := string(out)
	assert.Regexp(t, `(?s)^import React from 'react';\nimport \* as __story_import_0.*export default function Doc`, s)
}

func TestCLI_IndexAndList(t *testing.T) {
	bin := buildBinary(t)
	dir := createFixture(t)

	out, err := run(t, bin, dir, "index", "--format", "json")
	require.NoError(t, err, string(out))
	var env envelope
	require.NoError(t, json.Unmarshal(out, &env))
	var summary struct {
		Builds []struct {
			Documentation string `json:"documentation"`
		} `json:"builds"`
	}
	require.NoError(t, json.Unmarshal(env.Results, &summary))
	assert.Len(t, summary.Builds, 2)

	out, err = run(t, bin, dir, "list", "--format", "json")
	require.NoError(t, err, string(out))
	require.NoError(t, json.Unmarshal(out, &env))
	var frags []struct {
		Documentation string   `json:"documentation"`
		Examples      []string `json:"examples"`
	}
	require.NoError(t, json.Unmarshal(env.Results, &frags))
	require.Len(t, frags, 2)

	var withExamples int
	for _, f := range frags {
		if len(f.Examples) > 0 {
			withExamples++
			assert.Equal(t, []string{"basic", "withIcon"}, f.Examples)
		}
	}
	assert.Equal(t, 1, withExamples)

	out, err = run(t, bin, dir, "list", "--example", "withIcon")
	require.NoError(t, err, string(out))
	assert.Contains(t, string(out), "# withIcon")
	assert.Contains(t, string(out), "<Button><Icon /></Button>")
}

func TestCLI_Check(t *testing.T) {
	bin := buildBinary(t)
	dir := createFixture(t)
	script := filepath.Join(dir, "rules.risor")
	require.NoError(t, os.WriteFile(script, []byte(`
for _, ex := range examples {
	if len(ex["rendered"]) > 0 {
		report_example(ex["key"], "needs a prelude")
	}
}
`), 0o644))

	out, err := run(t, bin, dir, "check", "src/Button/Readme.md", "--script", script, "--format", "json")
	require.Error(t, err, "problems should exit non-zero")

	var env envelope
	require.NoError(t, json.Unmarshal(out, &env))
	var checks []struct {
		Diagnostics []struct {
			Example string `json:"example"`
			Message string `json:"message"`
		} `json:"diagnostics"`
	}
	require.NoError(t, json.Unmarshal(env.Results, &checks))
	require.Len(t, checks, 1)
	require.Len(t, checks[0].Diagnostics, 1)
	assert.Equal(t, "withIcon", checks[0].Diagnostics[0].Example)

	out, err = run(t, bin, dir, "check", "src/Card/Readme.md", "--script", script)
	require.NoError(t, err, string(out))
}

func TestCLI_InvalidFormat(t *testing.T) {
	bin := buildBinary(t)

	cmd := exec.Command(bin, "list", "--format", "xml")
	out, err := cmd.CombinedOutput()
	require.Error(t, err)
	assert.Contains(t, string(out), "invalid format")
}
