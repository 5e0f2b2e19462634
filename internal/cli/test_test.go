package cli

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const passingScenario = `
name: keep_once
description: "keep raises the refcount"
flow:
  - {op: create, name: r, type: Rectangle, args: {width: 1, height: 1}}
  - {op: keep, target: r}
assertions:
  - {type: refcount, target: r, count: 2}
`

const failingScenario = `
name: wrong_count
description: "asserts a count that does not hold"
flow:
  - {op: create, name: c, type: Circle, args: {radius: 1}}
assertions:
  - {type: count, object: Circle, count: 3}
`

func writeScenario(t *testing.T, dir, name, body string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0o600))
}

func TestTestCommandMissingArgs(t *testing.T) {
	_, stderr, code := runCLI(t, "test")
	assert.Equal(t, ExitFailure, code)
	assert.Contains(t, stderr, "accepts 1 arg")
}

func TestTestCommandNonExistentDir(t *testing.T) {
	_, stderr, code := runCLI(t, "test", "/nonexistent/scenarios")
	assert.Equal(t, ExitCommandError, code)
	assert.Contains(t, stderr, "scenarios directory not found")
}

func TestTestCommandEmptyDir(t *testing.T) {
	stdout, _, code := runCLI(t, "test", t.TempDir())
	assert.Equal(t, ExitSuccess, code)
	assert.Equal(t, "No scenarios found.\n", stdout)
}

func TestTestCommandHarnessScenarios(t *testing.T) {
	stdout, stderr, code := runCLI(t, "test", "../harness/testdata/scenarios")
	require.Equal(t, ExitSuccess, code, stdout+stderr)
	assert.Contains(t, stdout, "✓ nested_graph\n")
	assert.Contains(t, stdout, "Test Summary: 5 passed, 0 failed, 5 total\n")
	assert.Contains(t, stdout, "✓ All scenarios passed\n")
}

func TestTestCommandFailures(t *testing.T) {
	dir := t.TempDir()
	writeScenario(t, dir, "a.yaml", passingScenario)
	writeScenario(t, dir, "b.yaml", failingScenario)
	writeScenario(t, dir, "c.yml", "name: [\n")

	stdout, stderr, code := runCLI(t, "test", dir)
	assert.Equal(t, ExitFailure, code)
	assert.Contains(t, stdout, "✓ keep_once\n")
	assert.Contains(t, stdout, "✗ wrong_count\n")
	assert.Contains(t, stdout, "✗ c.yml\n  failed to load scenario")
	assert.Contains(t, stdout, "Test Summary: 1 passed, 2 failed, 3 total\n")
	assert.Contains(t, stderr, "2 scenario(s) failed")
}

func TestTestCommandFilter(t *testing.T) {
	dir := t.TempDir()
	writeScenario(t, dir, "keep_once.yaml", passingScenario)
	writeScenario(t, dir, "wrong_count.yaml", failingScenario)

	stdout, _, code := runCLI(t, "test", dir, "--filter", "keep*")
	assert.Equal(t, ExitSuccess, code)
	assert.Contains(t, stdout, "1 passed, 0 failed, 1 total")

	_, stderr, code := runCLI(t, "test", dir, "--filter", "[")
	assert.Equal(t, ExitCommandError, code)
	assert.Contains(t, stderr, "invalid filter pattern")
}

func TestTestCommandGoldenUpdate(t *testing.T) {
	dir := t.TempDir()
	writeScenario(t, dir, "keep_once.yaml", passingScenario)

	_, _, code := runCLI(t, "test", dir, "--update")
	require.Equal(t, ExitSuccess, code)

	golden, err := os.ReadFile(filepath.Join(dir, "golden", "keep_once.golden"))
	require.NoError(t, err)
	assert.Equal(t,
		`{"scenario_name":"keep_once","state":{"Rectangle":1},"trace":[`+
			`{"id":1,"op":"create","outcome":"ok","seq":1,"target":"r","type":"Rectangle"},`+
			`{"id":1,"op":"keep","outcome":"ok","seq":2,"target":"r","value":2}]}`,
		string(golden))

	_, _, code = runCLI(t, "test", dir)
	assert.Equal(t, ExitSuccess, code, "matches its golden file")

	require.NoError(t, os.WriteFile(filepath.Join(dir, "golden", "keep_once.golden"), []byte("{}"), 0o600))
	stdout, _, code := runCLI(t, "test", dir)
	assert.Equal(t, ExitFailure, code)
	assert.Contains(t, stdout, "trace does not match golden file")
}

func TestTestCommandJSON(t *testing.T) {
	dir := t.TempDir()
	writeScenario(t, dir, "b.yaml", failingScenario)

	stdout, stderr, code := runCLI(t, "--format", "json", "test", dir)
	assert.Equal(t, ExitFailure, code)
	assert.Empty(t, stderr)

	var resp struct {
		Status string     `json:"status"`
		Data   TestResult `json:"data"`
		Error  *CLIError  `json:"error"`
	}
	require.NoError(t, json.Unmarshal([]byte(stdout), &resp), "a single JSON document")
	assert.Equal(t, "error", resp.Status)
	assert.Equal(t, 1, resp.Data.Failed)
	require.Len(t, resp.Data.Scenarios, 1)
	assert.False(t, resp.Data.Scenarios[0].Pass)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "TEST_FAILED", resp.Error.Code)
}
