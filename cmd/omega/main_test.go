package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crystal-mush/omega/pkg/config"
)

const limbo = `+T3095297
+S2
+N256
-R1
!0
"Limbo"
-1
-1
1
-1
-1
-1
1
-1
0
0
0
0
0
0
1700000000
1700000001
<
!1
"Wizard"
0
-1
-1
-1
0
-1
1
-1
0
3
0
0
0
0
1700000000
1700000001
<
***END OF DUMP***
`

func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), errOut.String(), err
}

func writeInput(t *testing.T) (string, string) {
	t.Helper()
	dir := t.TempDir()
	in := filepath.Join(dir, "game.t6h")
	require.NoError(t, os.WriteFile(in, []byte(limbo), 0o644))
	return dir, in
}

func TestRoundTripCommand(t *testing.T) {
	dir, in := writeInput(t)
	out := filepath.Join(dir, "out.t6h")
	report := filepath.Join(dir, "report.json")

	_, _, err := execute(t, "t6h", in, out, "--report", report)
	require.NoError(t, err)

	got, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, limbo, string(got))
	assert.FileExists(t, report)
}

func TestUsageErrors(t *testing.T) {
	out, errOut, err := execute(t, "t6h", "only-one")
	assert.Error(t, err)
	assert.Contains(t, errOut, "accepts 3 arg(s)")
	assert.Contains(t, out+errOut, "Usage:")

	_, errOut, err = execute(t, "x9y", "a", "b")
	assert.Error(t, err)
	assert.Contains(t, errOut, "unknown mode")
}

func TestMissingInputFails(t *testing.T) {
	dir := t.TempDir()
	_, errOut, err := execute(t, "t5x", filepath.Join(dir, "nope"), filepath.Join(dir, "out"))
	assert.Error(t, err)
	assert.Contains(t, errOut, "nope")
}

func TestInspect(t *testing.T) {
	_, in := writeInput(t)
	out, _, err := execute(t, "inspect", "t6h", in, "--players", "--rooms", "--obj", "1", "--validate")
	require.NoError(t, err)
	assert.Contains(t, out, "=== DATABASE SUMMARY ===")
	assert.Contains(t, out, "Loaded objects: 2")
	assert.Contains(t, out, "Total players: 1")
	assert.Contains(t, out, "=== OBJECT #1 ===")
	assert.Contains(t, out, "=== VALIDATION ===")
}

func TestSnapshotCommand(t *testing.T) {
	dir, in := writeInput(t)
	bolt := filepath.Join(dir, "snap.db")
	_, _, err := execute(t, "t6h", in, filepath.Join(dir, "out.t6h"), "--bolt", bolt)
	require.NoError(t, err)

	out, _, err := execute(t, "snapshot", bolt, "--player", "wizard")
	require.NoError(t, err)
	assert.Contains(t, out, "Player wizard is #1")
	assert.Contains(t, out, "Name:       Wizard")

	_, _, err = execute(t, "snapshot", bolt, "--player", "nobody")
	assert.Error(t, err)
}

func TestFlagsOverrideConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "omega.yaml")
	require.NoError(t, os.WriteFile(path, []byte("auto_fix: false\nreport: from-file.json\n"), 0o644))

	cmd := newRootCmd()
	require.NoError(t, cmd.ParseFlags([]string{"--config", path, "--fix", "-v"}))
	f := runFlags{configPath: path, fix: true, verbose: 1}
	cfg, err := loadConfig(cmd, &f)
	require.NoError(t, err)
	assert.True(t, cfg.AutoFix)
	assert.Equal(t, "from-file.json", cfg.Report)
	assert.Equal(t, "debug", cfg.LogLevel)

	log, err := newLogger(cfg)
	require.NoError(t, err)
	assert.NotNil(t, log)

	bad := config.DefaultConfig()
	bad.LogLevel = "loud"
	_, err = newLogger(bad)
	assert.Error(t, err)
}

func TestArchiveCommands(t *testing.T) {
	dir, in := writeInput(t)
	runs := filepath.Join(dir, "runs")
	_, _, err := execute(t, "t6h", in, filepath.Join(dir, "out.t6h"), "--archive", runs)
	require.NoError(t, err)

	out, _, err := execute(t, "archive", "list", runs)
	require.NoError(t, err)
	assert.Contains(t, out, "1 bundles")

	matches, err := filepath.Glob(filepath.Join(runs, "*.tar.gz"))
	require.NoError(t, err)
	require.Len(t, matches, 1)

	out, _, err = execute(t, "archive", "verify", matches[0])
	require.NoError(t, err)
	assert.Contains(t, out, "output/out.t6h")

	dest := filepath.Join(dir, "unpacked")
	_, _, err = execute(t, "archive", "extract", matches[0], dest)
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(dest, "input", "game.t6h"))
}
