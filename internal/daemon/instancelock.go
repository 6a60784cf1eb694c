package daemon

import (
	"fmt"

	"github.com/gofrs/flock"
)

// InstanceLock is an advisory, whole-file lock on the PID file path.
// StartDetached takes it before the port-holding handshake begins and
// releases it when it returns, so two concurrent starts never race to
// bind the same socket. The running daemon process does not hold it.
type InstanceLock struct {
	fl *flock.Flock
}

// NewInstanceLock returns a lock guarding path (typically Config.PIDPath).
func NewInstanceLock(path string) *InstanceLock {
	return &InstanceLock{fl: flock.New(path)}
}

// TryLock attempts to acquire the lock without blocking. ok is false if
// another process already holds it.
func (l *InstanceLock) TryLock() (ok bool, err error) {
	ok, err = l.fl.TryLock()
	if err != nil {
		return false, fmt.Errorf("acquire instance lock: %w", err)
	}
	return ok, nil
}

// Unlock releases the lock.
func (l *InstanceLock) Unlock() error {
	return l.fl.Unlock()
}
