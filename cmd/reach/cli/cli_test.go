package cli

import (
	"bytes"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/felixgeelhaar/reach/internal/observe"
	"github.com/felixgeelhaar/reach/internal/runtime"
	"github.com/felixgeelhaar/reach/internal/solver"
	"github.com/felixgeelhaar/reach/internal/store"
)

// withHome points the data directory at a fresh temp dir.
func withHome(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv(homeEnv, dir)
	return dir
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := NewRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(io.Discard)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestCLI_Root(t *testing.T) {
	names := map[string]bool{}
	for _, cmd := range NewRootCmd().Commands() {
		names[cmd.Name()] = true
	}
	for _, want := range []string{"solve", "batch", "history", "config", "play"} {
		assert.True(t, names[want], "missing command %s", want)
	}
}

func TestRunner(t *testing.T) {
	dir := withHome(t)
	s, err := store.NewSQLiteStore(filepath.Join(dir, "db"), filepath.Join(dir, "artifacts"))
	require.NoError(t, err)
	defer s.Close()

	r := NewRunner(observe.Discard(), s, nil, nil)
	resp, err := r.Solve(t.Context(), runtime.Request{Numbers: []float64{1, 2, 3, 4}, Target: 10, Level: solver.LevelBasic})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.Solutions)

	rec, err := s.GetSolve(resp.ID)
	require.NoError(t, err)
	assert.Equal(t, store.StatusCompleted, rec.Status)
}

func TestSolve_PrintsTable(t *testing.T) {
	withHome(t)

	out, err := execute(t, "solve", "1", "2", "3", "4", "--target", "10")
	require.NoError(t, err)
	assert.Contains(t, out, "1+2+3+4")
	assert.Contains(t, out, "EXPRESSION")
	assert.Contains(t, out, "Saved as")
}

func TestSolve_JSON(t *testing.T) {
	withHome(t)

	out, err := execute(t, "solve", "1,2,3,4", "-t", "10", "--json", "--no-save")
	require.NoError(t, err)

	var resp runtime.Response
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	require.NotEmpty(t, resp.Solutions)
	assert.Equal(t, "1+2+3+4", resp.Solutions[0].Rendering)
	assert.True(t, resp.Closest.Unreached())
}

func TestSolve_ReportsClosest(t *testing.T) {
	withHome(t)

	out, err := execute(t, "solve", "1", "1", "1", "1", "--target", "100", "--no-save")
	require.NoError(t, err)
	assert.Contains(t, out, "No exact solution. Closest: 1+1+1+1 = 4")
}

func TestSolve_Limit(t *testing.T) {
	withHome(t)

	out, err := execute(t, "solve", "1", "2", "3", "4", "--target", "10", "--limit", "1", "--no-save")
	require.NoError(t, err)
	assert.Regexp(t, regexp.MustCompile(`1 of \d+ solutions shown`), out)
}

func TestSolve_RejectsBadInput(t *testing.T) {
	withHome(t)

	_, err := execute(t, "solve", "1", "2", "3", "--target", "6", "--no-save")
	assert.ErrorIs(t, err, runtime.ErrInvalidRequest)

	_, err = execute(t, "solve", "1", "2", "x", "4", "--target", "6", "--no-save")
	assert.ErrorContains(t, err, `"x" is not a number`)

	_, err = execute(t, "solve", "1", "2", "3", "4", "--target", "6", "--level", "4", "--no-save")
	assert.ErrorContains(t, err, "level must be between 0 and 3")

	_, err = execute(t, "solve", "1", "2", "3", "4")
	assert.Error(t, err, "target is required")
}

func TestConfig_SetGet(t *testing.T) {
	withHome(t)

	out, err := execute(t, "config", "get", keyLevelDefault)
	require.NoError(t, err)
	assert.Equal(t, "(not set)\n", out)

	out, err = execute(t, "config", "set", keyLevelDefault, "2")
	require.NoError(t, err)
	assert.Contains(t, out, "Configuration saved: level.default")

	out, err = execute(t, "config", "get", keyLevelDefault)
	require.NoError(t, err)
	assert.Equal(t, "2\n", out)

	_, err = execute(t, "config", "set", keyLevelDefault, "9")
	assert.Error(t, err)
	_, err = execute(t, "config", "set", keyLimitDefault, "-1")
	assert.Error(t, err)
	_, err = execute(t, "config", "set", "colour", "blue")
	assert.ErrorContains(t, err, "unknown key")
}

func TestSolve_UsesConfiguredLimit(t *testing.T) {
	withHome(t)

	_, err := execute(t, "config", "set", keyLimitDefault, "1")
	require.NoError(t, err)

	out, err := execute(t, "solve", "1", "2", "3", "4", "--target", "10")
	require.NoError(t, err)
	assert.Regexp(t, regexp.MustCompile(`1 of \d+ solutions shown`), out)
}

func TestHistory(t *testing.T) {
	withHome(t)

	out, err := execute(t, "history")
	require.NoError(t, err)
	assert.Contains(t, out, "No solves recorded yet.")

	out, err = execute(t, "solve", "1", "2", "3", "4", "--target", "10")
	require.NoError(t, err)
	m := regexp.MustCompile(`Saved as (\S+)`).FindStringSubmatch(out)
	require.Len(t, m, 2)
	id := m[1]

	out, err = execute(t, "history")
	require.NoError(t, err)
	assert.Contains(t, out, id)
	assert.Contains(t, out, "completed")

	out, err = execute(t, "history", "show", id)
	require.NoError(t, err)
	assert.Contains(t, out, "Numbers  1 2 3 4")
	assert.Contains(t, out, "Status   completed")
	assert.Contains(t, out, "1+2+3+4")

	out, err = execute(t, "history", "show", id, "--raw")
	require.NoError(t, err)
	var resp runtime.Response
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "1+2+3+4", resp.Solutions[0].Rendering)

	_, err = execute(t, "history", "show", "nope")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
}

func TestBatch(t *testing.T) {
	withHome(t)
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "easy.yaml"), "name: easy\nnumbers: [1, 2, 3, 4]\ntarget: 10\nlevel: 0\n")
	writeFile(t, filepath.Join(dir, "far.json"), `{"numbers": [1, 1, 1, 1], "target": 100}`)
	writeFile(t, filepath.Join(dir, "short.yaml"), "numbers: [1, 2, 3]\ntarget: 6\n")
	writeFile(t, filepath.Join(dir, "notes.txt"), "not a puzzle")
	metrics := filepath.Join(dir, "reach.prom")

	out, err := execute(t, "batch", filepath.Join(dir, "*"), "--parallel", "2", "--metrics-file", metrics)
	assert.ErrorContains(t, err, "1 of 3 puzzles could not be solved")

	assert.Contains(t, out, "easy")
	assert.Contains(t, out, "far")
	assert.Contains(t, out, "short")
	assert.NotContains(t, out, "notes")
	assert.Contains(t, out, "1+1+1+1 = 4")

	data, err := os.ReadFile(metrics)
	require.NoError(t, err)
	assert.Contains(t, string(data), `reach_solves_total{level="basic",outcome="solved"} 1`)
	assert.Contains(t, string(data), `reach_solves_total{level="basic",outcome="unsolved"} 1`)
}

func TestBatch_JSON(t *testing.T) {
	withHome(t)
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "a.yaml"), "numbers: [6, 3, 1, 1]\ntarget: 11\n")

	out, err := execute(t, "batch", filepath.Join(dir, "**", "*.yaml"), "--json", "--no-save")
	require.NoError(t, err)

	var results []batchResult
	require.NoError(t, json.Unmarshal([]byte(out), &results))
	require.Len(t, results, 1)
	assert.Equal(t, "a", results[0].Name)
	assert.Equal(t, batchSolved, results[0].Status)
	assert.NotEmpty(t, results[0].Best)
}

func TestBatch_NoMatches(t *testing.T) {
	withHome(t)
	_, err := execute(t, "batch", filepath.Join(t.TempDir(), "*.yaml"))
	assert.ErrorContains(t, err, "no puzzle files match")
}

func TestParseNumbers(t *testing.T) {
	got, err := parseNumbers([]string{"1,2", "3", "4 5"})
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 2, 3, 4, 5}, got)
}

func TestSolve_ProgressOnStderr(t *testing.T) {
	withHome(t)

	root := NewRootCmd()
	var out, errOut bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetArgs([]string{"solve", "1", "2", "3", "4", "--target", "10", "--progress", "--no-save"})
	require.NoError(t, root.Execute())

	assert.Contains(t, errOut.String(), "status: solving")
	assert.Contains(t, errOut.String(), "status: completed")
	assert.NotContains(t, out.String(), "status:")
	assert.Contains(t, out.String(), "1+2+3+4")
}

func TestSummarize_ClosestValueShownOnce(t *testing.T) {
	status, best := summarize(runtime.Response{
		Closest: runtime.Solution{Rendering: "{2}^{3", Value: 8, Complexity: 5.2},
	})
	assert.Equal(t, batchUnsolved, status)
	assert.Equal(t, "{2}^{3 = 8", best)

	status, best = summarize(runtime.Response{
		Closest: runtime.Solution{Rendering: "1+1+1+1", Value: 4, Complexity: 3},
	})
	assert.Equal(t, batchUnsolved, status)
	assert.Equal(t, "1+1+1+1 = 4", best)

	var out bytes.Buffer
	printResponse(&out, runtime.Response{
		Closest: runtime.Solution{Rendering: "{2}^{3", Value: 8, Complexity: 5.2},
	}, 0)
	assert.Equal(t, "No exact solution. Closest: {2}^{3 = 8\n", out.String())
}

func TestResolveTimeout(t *testing.T) {
	dir := withHome(t)
	s, err := store.NewSQLiteStore(filepath.Join(dir, "db"), filepath.Join(dir, "artifacts"))
	require.NoError(t, err)
	defer s.Close()

	assert.Equal(t, defaultTimeout, resolveTimeout(nil, 0, false))
	assert.Equal(t, defaultTimeout, resolveTimeout(s, 0, false))
	assert.Equal(t, time.Duration(0), resolveTimeout(s, 0, true), "an explicit 0 waits indefinitely")

	require.NoError(t, s.SetConfig(keyTimeoutDefault, "30s"))
	assert.Equal(t, 30*time.Second, resolveTimeout(s, 0, false))
	assert.Equal(t, 5*time.Second, resolveTimeout(s, 5*time.Second, true))
}

func TestSolve_StopsAtTimeout(t *testing.T) {
	withHome(t)

	_, err := execute(t, "solve", "2", "3", "4", "5", "6", "--target", "1", "--level", "3", "--timeout", "1ns", "--no-save")
	assert.ErrorContains(t, err, "no answer within 1ns")
}

func TestConfig_Timeout(t *testing.T) {
	withHome(t)

	_, err := execute(t, "config", "set", keyTimeoutDefault, "soon")
	assert.ErrorContains(t, err, "non-negative duration")

	_, err = execute(t, "config", "set", keyTimeoutDefault, "1ns")
	require.NoError(t, err)

	_, err = execute(t, "solve", "2", "3", "4", "5", "6", "--target", "1", "--level", "3")
	assert.ErrorContains(t, err, "no answer within 1ns")
}

func TestBatch_TimeoutPerPuzzle(t *testing.T) {
	withHome(t)
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "hard.yaml"), "name: hard\nnumbers: [2, 3, 4, 5, 6]\ntarget: 1\nlevel: 3\n")

	out, err := execute(t, "batch", filepath.Join(dir, "*.yaml"), "--timeout", "1ns", "--json", "--no-save")
	assert.ErrorContains(t, err, "1 of 1 puzzles could not be solved")

	var results []batchResult
	require.NoError(t, json.Unmarshal([]byte(out), &results))
	require.Len(t, results, 1)
	assert.Equal(t, batchFailed, results[0].Status)
	assert.Contains(t, results[0].Error, "no answer within 1ns")
}
