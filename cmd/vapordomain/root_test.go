package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	cmd := NewRootCmd()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func sitePath() string {
	return filepath.Join("..", "..", "examples", "site.vd")
}

func TestRunPrintsSummary(t *testing.T) {
	out, _, err := execute(t, "run", sitePath())
	require.NoError(t, err)
	assert.Contains(t, out, "grid:")
	assert.Contains(t, out, `building "house"`)
	assert.Contains(t, out, "crack X=15 along Z [9, 15]")
	assert.NotContains(t, out, "TRIANGLES")
}

func TestRunWithMesh(t *testing.T) {
	out, _, err := execute(t, "run", sitePath(), "--mesh", "--mesh-cells", "16")
	require.NoError(t, err)
	assert.Contains(t, out, "TRIANGLES")
	assert.Contains(t, out, "house")
	assert.Contains(t, out, "pressure")
}

func TestRunJSON(t *testing.T) {
	out, _, err := execute(t, "run", sitePath(), "--json", "--mesh-cells", "16")
	require.NoError(t, err)

	var result EvalResult
	require.NoError(t, json.Unmarshal([]byte(out), &result))
	assert.Empty(t, result.Errors)
	assert.Len(t, result.Meshes, 4)
}

func TestRunScriptError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.vd")
	require.NoError(t, writeFile(path, "(domain :length 10)\n(no-such-builtin)\n"))

	_, stderr, err := execute(t, "run", path)
	assert.ErrorIs(t, err, errScript)
	assert.Contains(t, stderr, "bad.vd:")
}

func TestRunMissingScript(t *testing.T) {
	_, _, err := execute(t, "run", filepath.Join(t.TempDir(), "absent.vd"))
	assert.Error(t, err)
}

func TestStoreCommands(t *testing.T) {
	db := filepath.Join(t.TempDir(), "sites.db")

	out, _, err := execute(t, "run", sitePath(), "--db", db)
	require.NoError(t, err)
	assert.Contains(t, out, `saved "site"`)

	_, _, err = execute(t, "run", sitePath(), "--db", db, "--name", "copy")
	require.NoError(t, err)

	out, _, err = execute(t, "list", "--db", db)
	require.NoError(t, err)
	assert.Contains(t, out, "site")
	assert.Contains(t, out, "copy")

	out, _, err = execute(t, "show", "site", "--db", db)
	require.NoError(t, err)
	assert.Contains(t, out, `building "house"`)
	assert.Contains(t, out, `source "tce"`)

	_, _, err = execute(t, "delete", "copy", "--db", db)
	require.NoError(t, err)
	_, _, err = execute(t, "show", "copy", "--db", db)
	assert.Error(t, err)
}

func TestShowNeedsDatabase(t *testing.T) {
	_, _, err := execute(t, "show", "site")
	assert.ErrorContains(t, err, "no database")
}

func TestBadLogLevel(t *testing.T) {
	_, _, err := execute(t, "run", sitePath(), "--log-level", "loud")
	assert.ErrorContains(t, err, "log.level")
}

func writeFile(path, body string) error {
	return os.WriteFile(path, []byte(body), 0o644)
}
