package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func withIsolatedXDGConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	orig := os.Getenv("XDG_CONFIG_HOME")
	require.NoError(t, os.Setenv("XDG_CONFIG_HOME", dir))
	t.Cleanup(func() { os.Setenv("XDG_CONFIG_HOME", orig) })
	return dir
}

func TestConfigPathCmd_PrintsUserConfigPath(t *testing.T) {
	dir := withIsolatedXDGConfig(t)

	root := NewRootCmd()
	buf := &bytes.Buffer{}
	root.SetOut(buf)
	root.SetArgs([]string{"config", "path"})
	require.NoError(t, root.Execute())

	assert.Equal(t, filepath.Join(dir, "twilogd", "config.yaml")+"\n", buf.String())
}

func TestConfigInitCmd_CreatesFileThenWarnsWithoutForce(t *testing.T) {
	withIsolatedXDGConfig(t)

	root := NewRootCmd()
	buf := &bytes.Buffer{}
	root.SetOut(buf)
	root.SetArgs([]string{"config", "init"})
	require.NoError(t, root.Execute())
	assert.Contains(t, buf.String(), "Created user configuration")

	buf.Reset()
	root = NewRootCmd()
	root.SetOut(buf)
	root.SetArgs([]string{"config", "init"})
	require.NoError(t, root.Execute())
	assert.Contains(t, buf.String(), "already exists")
}

func TestConfigInitCmd_ForceBacksUpAndRewrites(t *testing.T) {
	withIsolatedXDGConfig(t)

	root := NewRootCmd()
	buf := &bytes.Buffer{}
	root.SetOut(buf)
	root.SetArgs([]string{"config", "init"})
	require.NoError(t, root.Execute())

	buf.Reset()
	root = NewRootCmd()
	root.SetOut(buf)
	root.SetArgs([]string{"config", "init", "--force"})
	require.NoError(t, root.Execute())
	assert.Contains(t, buf.String(), "Configuration upgraded")
	assert.Contains(t, buf.String(), "Backup:")
}

func TestConfigShowCmd_JSONIncludesDefaults(t *testing.T) {
	withIsolatedXDGConfig(t)
	dir := chdirTemp(t)
	writeProjectConfig(t, dir)

	root := NewRootCmd()
	buf := &bytes.Buffer{}
	root.SetOut(buf)
	root.SetArgs([]string{"config", "show", "--json"})
	require.NoError(t, root.Execute())

	assert.Contains(t, buf.String(), `"model": "nomic-embed-text"`)
}
