package runner

import (
	"github.com/gofrs/flock"

	"github.com/devqik/solarboat/internal/errors"
)

// RunLock is an advisory file lock held for the duration of an apply run,
// so two concurrent `solarboat apply` invocations against the same tree
// refuse to race each other.
type RunLock struct {
	flock *flock.Flock
}

// AcquireRunLock tries to take an exclusive, non-blocking lock on path.
// Callers must call Release when the run finishes.
func AcquireRunLock(path string) (*RunLock, error) {
	f := flock.New(path)

	locked, err := f.TryLock()
	if err != nil {
		return nil, errors.WithStackTraceAndPrefix(err, "failed to acquire run lock %s", path)
	}

	if !locked {
		return nil, errors.Errorf("another solarboat run holds the lock %s", path)
	}

	return &RunLock{flock: f}, nil
}

// Release unlocks the file.
func (l *RunLock) Release() error {
	return errors.WithStackTrace(l.flock.Unlock())
}
