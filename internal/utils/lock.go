package utils

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
	homedir "github.com/mitchellh/go-homedir"
)

const (
	lockFileName = ".scopediff.lock"
)

// RunLock makes sure only one run writes to a snapshot store at a time.
type RunLock struct {
	lock *flock.Flock
	path string
}

// NewRunLock creates a lock file inside the given store directory.
func NewRunLock(storeDir string) (*RunLock, error) {
	absPath, err := GetAbsDataDir(storeDir)
	if err != nil {
		return nil, fmt.Errorf("could not get absolute data dir: %w", err)
	}
	if err := os.MkdirAll(absPath, 0o755); err != nil {
		return nil, fmt.Errorf("could not create data dir %s: %w", absPath, err)
	}
	lockPath := filepath.Join(absPath, lockFileName)
	return &RunLock{
		lock: flock.New(lockPath),
		path: lockPath,
	}, nil
}

// Lock acquires the lock, waiting if another run holds it.
func (l *RunLock) Lock() error {
	locked, err := l.lock.TryLock()
	if err != nil {
		return fmt.Errorf("failed to acquire lock on %s: %w", l.path, err)
	}

	if !locked {
		Log.Warnf("Another scopediff run holds %s, waiting for it to finish...", l.path)
		if err := l.lock.Lock(); err != nil {
			return fmt.Errorf("failed to acquire lock on %s after waiting: %w", l.path, err)
		}
	}
	return nil
}

// TryLock acquires the lock without waiting.
func (l *RunLock) TryLock() (bool, error) {
	return l.lock.TryLock()
}

// Unlock releases the lock.
func (l *RunLock) Unlock() error {
	if err := l.lock.Unlock(); err != nil {
		// Suppress error if the lock file doesn't exist, as it means we don't hold the lock.
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to release lock on %s: %w", l.path, err)
	}
	return nil
}

// GetAbsDataDir resolves the snapshot directory, defaulting to ~/.config/scopediff/data.
func GetAbsDataDir(dir string) (string, error) {
	if dir == "" {
		home, err := homedir.Dir()
		if err != nil {
			return "", err
		}
		return filepath.Join(home, ".config", "scopediff", "data"), nil
	}
	expanded, err := homedir.Expand(dir)
	if err != nil {
		return "", err
	}
	return filepath.Abs(expanded)
}
