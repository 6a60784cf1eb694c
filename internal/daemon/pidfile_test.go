package daemon

import (
	"os"
	"path/filepath"
	"syscall"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPIDFile_WriteReadRemove(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "daemon.pid")
	p := NewPIDFile(path)

	require.NoError(t, p.Write())

	pid, err := p.Read()
	require.NoError(t, err)
	assert.Equal(t, os.Getpid(), pid)

	assert.True(t, p.IsRunning())

	require.NoError(t, p.Remove())
	_, err = p.Read()
	assert.ErrorIs(t, err, ErrPIDFileNotFound)
	assert.False(t, p.IsRunning())
}

func TestPIDFile_Remove_MissingFileIsNotAnError(t *testing.T) {
	p := NewPIDFile(filepath.Join(t.TempDir(), "daemon.pid"))
	assert.NoError(t, p.Remove())
}

func TestPIDFile_IsRunning_FalseForStalePID(t *testing.T) {
	path := filepath.Join(t.TempDir(), "daemon.pid")
	require.NoError(t, os.WriteFile(path, []byte("999999"), 0644))

	p := NewPIDFile(path)
	assert.False(t, p.IsRunning())
}

func TestPIDFile_Signal_SelfProcessReceivesSignal0(t *testing.T) {
	path := filepath.Join(t.TempDir(), "daemon.pid")
	p := NewPIDFile(path)
	require.NoError(t, p.Write())

	assert.NoError(t, p.Signal(syscall.Signal(0)))
}
