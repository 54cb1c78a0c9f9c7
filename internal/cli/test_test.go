package cli

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const inlineScenario = `name: inline
description: Concealed api keys
schema: |
  type: person: fields: {
  	id:     string
  	apiKey: string @visibility(user=concealed)
  }
steps:
  - op: conceal
    type: person
    user_class: user
    input: {id: p1, apiKey: k1}
    expect: {id: p1, apiKey: true}
`

const inlineGolden = `{"scenario_name":"inline","trace":[{"index":0,"op":"conceal","output":{"apiKey":true,"id":"p1"},"type":"person","user_class":"user"}]}`

func writeScenario(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestTestCommandMissingArgs(t *testing.T) {
	_, err := executeCommand(t, NewTestCommand(&RootOptions{Format: "text"}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "accepts 1 arg")
}

func TestTestCommandNonExistentScenariosDir(t *testing.T) {
	_, err := executeCommand(t, NewTestCommand(&RootOptions{Format: "text"}), "/nonexistent/scenarios")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "scenarios directory not found")
}

func TestTestCommandEmptyScenariosDir(t *testing.T) {
	output, err := executeCommand(t, NewTestCommand(&RootOptions{Format: "text"}), t.TempDir())
	require.NoError(t, err)
	assert.Contains(t, output, "No scenarios found")
}

func TestTestCommandEmptyScenariosDirJSON(t *testing.T) {
	output, err := executeCommand(t, NewTestCommand(&RootOptions{Format: "json"}), t.TempDir())
	require.NoError(t, err)

	var resp struct {
		Status string     `json:"status"`
		Data   TestResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(output), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, 0, resp.Data.Total)
}

func TestTestCommandRunsScenariosWithGolden(t *testing.T) {
	output, err := executeCommand(t, NewTestCommand(&RootOptions{Format: "text"}), "testdata/scenarios")
	require.NoError(t, err)
	assert.Contains(t, output, "✓ users (2 step(s))")
	assert.Contains(t, output, "Test Summary: 1 passed, 0 failed, 1 total")
}

func TestTestCommandReportsGoldenStatusJSON(t *testing.T) {
	output, err := executeCommand(t, NewTestCommand(&RootOptions{Format: "json"}), "testdata/scenarios")
	require.NoError(t, err)

	var resp struct {
		Data TestResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(output), &resp))
	require.Len(t, resp.Data.Scenarios, 1)
	assert.Equal(t, "users", resp.Data.Scenarios[0].Name)
	assert.Equal(t, 2, resp.Data.Scenarios[0].Steps)
	assert.Equal(t, "match", resp.Data.Scenarios[0].Golden)
}

func TestTestCommandInvalidFilter(t *testing.T) {
	_, err := executeCommand(t, NewTestCommand(&RootOptions{Format: "text"}), "testdata/scenarios", "--filter", "[")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "invalid filter pattern")
}

func TestTestCommandUpdateWritesGolden(t *testing.T) {
	dir := t.TempDir()
	writeScenario(t, dir, "inline.yaml", inlineScenario)

	output, err := executeCommand(t, NewTestCommand(&RootOptions{Format: "text"}), dir, "--update")
	require.NoError(t, err)
	assert.Contains(t, output, "✓ inline (golden updated)")

	golden, err := os.ReadFile(filepath.Join(dir, "golden", "inline.golden"))
	require.NoError(t, err)
	assert.Equal(t, inlineGolden, string(golden))

	_, err = executeCommand(t, NewTestCommand(&RootOptions{Format: "text"}), dir)
	require.NoError(t, err)
}

func TestTestCommandGoldenMismatch(t *testing.T) {
	dir := t.TempDir()
	writeScenario(t, dir, "inline.yaml", inlineScenario)
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "golden"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "golden", "inline.golden"), []byte(`{}`), 0644))

	output, err := executeCommand(t, NewTestCommand(&RootOptions{Format: "text"}), dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, output, "✗ inline")
	assert.Contains(t, output, "trace does not match golden file")
}

func TestTestCommandFailingExpectationJSON(t *testing.T) {
	dir := t.TempDir()
	writeScenario(t, dir, "wrong.yaml", `name: wrong
description: Wrong expectation
schema: |
  type: person: fields: {
  	id:     string
  	apiKey: string @visibility(user=concealed)
  }
steps:
  - op: conceal
    type: person
    input: {id: p1, apiKey: k1}
    expect: {id: p1, apiKey: k1}
`)

	output, err := executeCommand(t, NewTestCommand(&RootOptions{Format: "json"}), dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	var resp struct {
		Status string     `json:"status"`
		Data   TestResult `json:"data"`
		Error  *CLIError  `json:"error"`
	}
	require.NoError(t, json.Unmarshal([]byte(output), &resp))
	assert.Equal(t, "error", resp.Status)
	assert.Equal(t, "E_TEST_FAILED", resp.Error.Code)
	require.Len(t, resp.Data.Scenarios, 1)
	assert.False(t, resp.Data.Scenarios[0].Pass)
	assert.Contains(t, resp.Data.Scenarios[0].Errors[0], "output mismatch")
}

func TestTestCommandInvalidScenario(t *testing.T) {
	dir := t.TempDir()
	writeScenario(t, dir, "broken.yaml", "name: broken\n")

	output, err := executeCommand(t, NewTestCommand(&RootOptions{Format: "text"}), dir)
	require.Error(t, err)
	assert.Contains(t, output, "✗ broken.yaml")
	assert.Contains(t, output, "failed to load scenario")
}

func TestTestCommandFilter(t *testing.T) {
	dir := t.TempDir()
	writeScenario(t, dir, "inline.yaml", inlineScenario)
	writeScenario(t, dir, "broken.yaml", "name: broken\n")

	output, err := executeCommand(t, NewTestCommand(&RootOptions{Format: "text"}), dir, "--filter", "inl*")
	require.NoError(t, err)
	assert.Contains(t, output, "1 passed, 0 failed, 1 total")
}

func TestGoldenFilePath(t *testing.T) {
	assert.Equal(t, filepath.Join("a", "b", "golden", "users.golden"), goldenFilePath(filepath.Join("a", "b", "users.yaml")))
}
