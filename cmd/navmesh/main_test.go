package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const planeOBJ = `v -10 -10 0
v 10 -10 0
v 10 10 0
v -10 10 0
f 1 2 3 4
`

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	dir := t.TempDir()
	obj := filepath.Join(dir, "plane.obj")
	require.NoError(t, os.WriteFile(obj, []byte(planeOBJ), 0o644))

	var out bytes.Buffer
	c := rootCmd()
	c.SetOut(&out)
	c.SetArgs(append(args, "--obj", obj))
	err := c.Execute()
	return out.String(), err
}

func TestPathCommand(t *testing.T) {
	out, err := run(t, "path", "--from", "-5,0,0", "--to", "5,0,0")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.GreaterOrEqual(t, len(lines), 2)
	assert.True(t, strings.HasPrefix(lines[0], "-5.000,"))
	assert.True(t, strings.HasPrefix(lines[len(lines)-1], "5.000,"))

	_, err = run(t, "path", "--crossings", "sideways")
	assert.Error(t, err)
}

func TestBuildCommandWritesFile(t *testing.T) {
	dest := filepath.Join(t.TempDir(), "meshes.bin")
	out, err := run(t, "build", "--out", dest)
	require.NoError(t, err)
	assert.Contains(t, out, "ground_NavMesh")
	info, err := os.Stat(dest)
	require.NoError(t, err)
	assert.NotZero(t, info.Size())
}

func TestWallCommand(t *testing.T) {
	out, err := run(t, "wall", "--at", "8,0,0")
	require.NoError(t, err)
	assert.NotEmpty(t, strings.TrimSpace(out))
}

func TestMissingOBJ(t *testing.T) {
	c := rootCmd()
	c.SetOut(&bytes.Buffer{})
	c.SetArgs([]string{"wall"})
	assert.Error(t, c.Execute())
}
