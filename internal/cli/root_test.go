package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/leapstack-labs/regionmap/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	root := NewRootCmd()
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetArgs(args)
	err := root.ExecuteContext(t.Context())
	return out.String(), errOut.String(), err
}

func dataDir(t *testing.T) string {
	t.Helper()
	return testutil.DataDir(t, []string{"Maykop,Adygeya,100,80,100,90,50,5"}, nil, "Adygeya", "Altai")
}

func TestRoot_Subcommands(t *testing.T) {
	root := NewRootCmd()
	names := make([]string, 0, len(root.Commands()))
	for _, c := range root.Commands() {
		names = append(names, c.Name())
	}
	for _, want := range []string{"serve", "check", "regions", "region", "export", "runs", "version", "completion"} {
		assert.Contains(t, names, want)
	}
	for _, flag := range []string{"config", "data-dir", "regions-dir", "organizations", "analytic", "state", "output", "verbose", "log-level", "log-file"} {
		assert.NotNil(t, root.PersistentFlags().Lookup(flag), "flag %q should exist", flag)
	}
}

func TestRoot_FlagsReachCommands(t *testing.T) {
	dir := dataDir(t)
	state := filepath.Join(t.TempDir(), "state.db")

	out, _, err := run(t, "regions", "--data-dir", dir, "--state", state, "-o", "json")
	require.NoError(t, err)

	var got []map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	require.Len(t, got, 2)
	assert.Equal(t, "Adygeya", got[0]["name"])
	assert.Equal(t, "yellow", got[0]["band"])
}

func TestRoot_ConfigFileAndEnv(t *testing.T) {
	dir := dataDir(t)
	cfgDir := t.TempDir()
	cfgPath := filepath.Join(cfgDir, "regionmap.yaml")
	content := "data_dir: " + dir + "\nstate_path: state.db\noutput: markdown\n"
	require.NoError(t, os.WriteFile(cfgPath, []byte(content), 0o600))

	out, _, err := run(t, "--config", cfgPath, "check")
	require.NoError(t, err)
	assert.Contains(t, out, "# Input check")
	assert.FileExists(t, filepath.Join(cfgDir, "state.db"), "state path resolves against the config file's directory")

	t.Setenv("REGIONMAP_OUTPUT", "json")
	out, _, err = run(t, "--config", cfgPath, "runs")
	require.NoError(t, err)
	assert.Contains(t, out, `"trigger": "check"`)
}

func TestRoot_InvalidConfig(t *testing.T) {
	_, _, err := run(t, "regions", "--data-dir", dataDir(t), "-o", "yaml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid configuration")
}

func TestRoot_JSONLogs(t *testing.T) {
	dir := dataDir(t)
	state := filepath.Join(t.TempDir(), "state.db")

	_, errOut, err := run(t, "check", "--data-dir", dir, "--state", state, "--log-format", "json", "-v")
	require.NoError(t, err)
	assert.Contains(t, errOut, `"level":"DEBUG"`)
}

func TestRoot_LogFile(t *testing.T) {
	dir := dataDir(t)
	logFile := filepath.Join(t.TempDir(), "logs", "regionmap.log")

	_, _, err := run(t, "check", "--data-dir", dir, "--state", ":memory:", "--log-file", logFile, "--log-level", "debug")
	require.NoError(t, err)

	data, err := os.ReadFile(logFile)
	require.NoError(t, err)
	assert.Contains(t, string(data), "level=DEBUG")
}

func TestCompletionCommand(t *testing.T) {
	out, _, err := run(t, "completion", "bash")
	require.NoError(t, err)
	assert.Contains(t, out, "regionmap")

	_, _, err = run(t, "completion", "tcsh")
	require.Error(t, err)
}

func TestVersionCommand(t *testing.T) {
	out, _, err := run(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "regionmap v"+Version)
}
