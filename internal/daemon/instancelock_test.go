package daemon

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInstanceLock_SecondLockFails(t *testing.T) {
	path := filepath.Join(t.TempDir(), "daemon.pid")

	first := NewInstanceLock(path)
	ok, err := first.TryLock()
	require.NoError(t, err)
	require.True(t, ok)
	defer first.Unlock()

	second := NewInstanceLock(path)
	ok, err = second.TryLock()
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestInstanceLock_UnlockAllowsReacquire(t *testing.T) {
	path := filepath.Join(t.TempDir(), "daemon.pid")

	first := NewInstanceLock(path)
	ok, err := first.TryLock()
	require.NoError(t, err)
	require.True(t, ok)
	require.NoError(t, first.Unlock())

	second := NewInstanceLock(path)
	ok, err = second.TryLock()
	require.NoError(t, err)
	assert.True(t, ok)
	defer second.Unlock()
}
