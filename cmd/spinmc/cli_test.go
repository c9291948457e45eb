package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"spin-mc/internal/config"
	"spin-mc/internal/store"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestModels(t *testing.T) {
	out, err := execute(t, "models")
	require.NoError(t, err)
	assert.Equal(t, "heisenberg\nising\nquantum\nxy\n", out)
}

func TestParamsAppliesFlagsAndSaves(t *testing.T) {
	path := filepath.Join(t.TempDir(), "plan.yaml")
	out, err := execute(t, "params", "--model", "xy", "--rows", "16", "--log-level", "error", "--save", path)
	require.NoError(t, err)
	assert.Contains(t, out, "xy")
	assert.Contains(t, out, "saved "+path)

	p, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, "xy", p.Model)
	assert.Equal(t, 16, p.Topology.Rows)
	assert.Equal(t, 128, p.Topology.Cols)
}

func TestEnvironmentOverridesConfigFile(t *testing.T) {
	dir := t.TempDir()
	plan := config.DefaultPlan()
	plan.Model = "heisenberg"
	plan.LogLevel = "error"
	path := filepath.Join(dir, "plan.yaml")
	require.NoError(t, plan.Save(path))
	t.Setenv("SPINMC_TRIALS", "77")

	saved := filepath.Join(dir, "resolved.yaml")
	_, err := execute(t, "params", "--config", path, "--save", saved)
	require.NoError(t, err)
	p, err := config.Load(saved)
	require.NoError(t, err)
	assert.Equal(t, "heisenberg", p.Model)
	assert.Equal(t, 77, p.Trials)
}

func TestRun(t *testing.T) {
	out, err := execute(t, "run", "--rows", "4", "--cols", "4", "--trials", "40", "--beta", "0.3",
		"--seed", "5", "--log-level", "error")
	require.NoError(t, err)
	assert.Contains(t, out, "ising, 16 sites, beta 0.3")
	assert.Contains(t, out, "samples")
}

func TestRunRejectsUnknownModel(t *testing.T) {
	_, err := execute(t, "run", "--model", "potts", "--log-level", "error")
	require.ErrorIs(t, err, config.ErrInvalidPlan)
}

func TestSweepWritesSeries(t *testing.T) {
	dir := t.TempDir()
	out, err := execute(t, "sweep",
		"--topology", "rect", "--rows", "4", "--cols", "4",
		"--t2-start", "0.5", "--t2-end", "1", "--t2-count", "2",
		"--temp-start", "1", "--temp-end", "3", "--temp-count", "3",
		"--trials", "30", "--workers", "2", "--out", dir, "--log-level", "error")
	require.NoError(t, err)
	assert.Contains(t, out, "rect-ising-0.50000000")

	for _, name := range []string{"rect-ising-0.50000000", "rect-ising-1.00000000"} {
		s, err := store.Load(filepath.Join(dir, name+store.Ext))
		require.NoError(t, err)
		assert.Equal(t, 3, s.Len())
		_, err = os.Stat(filepath.Join(dir, name+".yaml"))
		assert.NoError(t, err)
	}
}
