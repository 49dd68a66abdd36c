package main

import (
	"bytes"
	"encoding/csv"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, args ...string) string {
	t.Helper()
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(append(args, "--log-level", "error", "--log-format", "text"))
	require.NoError(t, root.Execute())
	return out.String()
}

func TestVersion(t *testing.T) {
	assert.Contains(t, execute(t, "version"), version)
}

func TestPresets(t *testing.T) {
	out := execute(t, "presets")
	for _, name := range []string{"classic", "fraction", "composition", "socioeconomic", "runlength"} {
		assert.Contains(t, out, `"preset": "`+name+`"`)
	}
}

func TestRunWritesCSVAndStore(t *testing.T) {
	dir := t.TempDir()
	csvPath := filepath.Join(dir, "steps.csv")
	dbPath := filepath.Join(dir, "runs.db")

	out := execute(t, "run", "--preset", "classic", "--seed", "11", "--steps", "3", "--csv", csvPath, "--db", dbPath)
	assert.Contains(t, out, "seed        11")

	f, err := os.Open(csvPath)
	require.NoError(t, err)
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(rows), 2)
	assert.Equal(t, "step", rows[0][0])
	assert.Equal(t, "0", rows[1][0])
	assert.LessOrEqual(t, len(rows), 5) // header + step 0 + at most 3 steps

	list := execute(t, "runs", "--db", dbPath)
	assert.Contains(t, list, "classic")
	assert.Contains(t, list, "11")
}

// runID extracts the stored run ID from a run summary.
func runID(t *testing.T, out string) string {
	t.Helper()
	for _, line := range strings.Split(out, "\n") {
		if rest, ok := strings.CutPrefix(line, "run "); ok {
			return strings.TrimSpace(rest)
		}
	}
	t.Fatalf("no run id in output:\n%s", out)
	return ""
}

func TestRunResumesFromSnapshot(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "runs.db")
	first := runID(t, execute(t, "run", "--preset", "runlength", "--seed", "5",
		"--steps", "4", "--snapshot-every", "1", "--db", dbPath))

	latest := execute(t, "run", "--resume", first, "--steps", "2", "--db", dbPath)
	second := runID(t, latest)
	assert.NotEqual(t, first, second)

	// Resuming from the same snapshot replays the same steps.
	again := execute(t, "run", "--resume", first, "--steps", "2", "--db", dbPath)
	assert.Equal(t, strings.Split(latest, "\n")[0], strings.Split(again, "\n")[0], "same continuation seed")

	fromOne := execute(t, "run", "--resume", first, "--from-step", "1", "--steps", "1", "--db", dbPath)
	assert.Contains(t, fromOne, "steps       1,")

	list := execute(t, "runs", "--db", dbPath)
	assert.Contains(t, list, second)
}

func TestRunResumeNeedsStoredRun(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "runs.db")
	root := newRootCmd()
	root.SetOut(&bytes.Buffer{})
	root.SetErr(&bytes.Buffer{})
	root.SetArgs([]string{"run", "--resume", "missing", "--db", dbPath, "--log-level", "error"})
	assert.Error(t, root.Execute())

	root = newRootCmd()
	root.SetOut(&bytes.Buffer{})
	root.SetErr(&bytes.Buffer{})
	root.SetArgs([]string{"run", "--resume", "missing", "--log-level", "error"})
	assert.Error(t, root.Execute())
}

func TestBatchWritesResults(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "batch.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte(`
batch:
  preset: fraction
  width: 6
  height: 6
  density: [0.5]
  minority_pc: [0.3]
  homophily: [0.3, 0.6]
  iterations: 2
  max_steps: 5
  seed: 3
`), 0644))
	out := filepath.Join(dir, "results.csv")

	table := execute(t, "batch", "--config", cfgPath, "--out", out)
	assert.Contains(t, table, "homophily")

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	assert.Len(t, lines, 1+2*2)
}
