// Package transaction guards an install root against concurrent installer runs.
package transaction

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/shirou/gopsutil/v4/process"
)

const (
	// LockFileName is created inside the guarded directory.
	LockFileName = ".provision.lock"
	// StaleLockThreshold is the maximum age of a lock before it's considered stale.
	StaleLockThreshold = 10 * time.Minute
	// DefaultPollInterval is how often AcquireLock retries a held lock.
	DefaultPollInterval = 200 * time.Millisecond
)

// ErrLockExists is returned while another run holds the lock.
var ErrLockExists = errors.New("install lock exists: another install may be in progress")

// Lock represents a held install lock.
type Lock struct {
	path string
	file *os.File
}

// TryAcquireLock makes a single attempt to lock dir. It returns ErrLockExists
// when a fresh lock is held by someone else. owner is recorded in the lock
// file for diagnostics.
// Uses O_CREATE|O_EXCL for atomic lock creation.
func TryAcquireLock(dir, owner string) (*Lock, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create lock directory: %w", err)
	}

	lockPath := filepath.Join(dir, LockFileName)

	file, err := createExclusive(lockPath)
	if err != nil {
		if !os.IsExist(err) {
			return nil, fmt.Errorf("create lock file: %w", err)
		}
		if stale, _ := isLockStale(lockPath); !stale {
			return nil, ErrLockExists
		}
		// Remove stale lock and retry once
		os.Remove(lockPath)
		if file, err = createExclusive(lockPath); err != nil {
			return nil, ErrLockExists
		}
	}

	lockData := fmt.Sprintf("pid=%d\nowner=%s\ntimestamp=%s\n",
		os.Getpid(), owner, time.Now().UTC().Format(time.RFC3339))
	if _, err := file.WriteString(lockData); err != nil {
		file.Close()
		os.Remove(lockPath)
		return nil, fmt.Errorf("write lock data: %w", err)
	}

	if err := file.Sync(); err != nil {
		file.Close()
		os.Remove(lockPath)
		return nil, fmt.Errorf("sync lock file: %w", err)
	}

	return &Lock{
		path: lockPath,
		file: file,
	}, nil
}

// AcquireLock waits for the lock on dir, polling every DefaultPollInterval
// until it is acquired or ctx ends. onWait, if non-nil, is called once with
// the lock path when the first attempt finds the lock held.
func AcquireLock(ctx context.Context, dir, owner string, onWait func(path string)) (*Lock, error) {
	return acquire(ctx, dir, owner, DefaultPollInterval, onWait)
}

func acquire(ctx context.Context, dir, owner string, interval time.Duration, onWait func(string)) (*Lock, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for waited := false; ; waited = true {
		lock, err := TryAcquireLock(dir, owner)
		if !errors.Is(err, ErrLockExists) {
			return lock, err
		}
		if !waited && onWait != nil {
			onWait(filepath.Join(dir, LockFileName))
		}

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: %w", ErrLockExists, ctx.Err())
		case <-ticker.C:
		}
	}
}

// Path returns the lock file path.
func (l *Lock) Path() string {
	return l.path
}

// Release releases the lock. It is safe to call more than once.
func (l *Lock) Release() error {
	if l.file != nil {
		l.file.Close()
		l.file = nil
	}

	if l.path != "" {
		if err := os.Remove(l.path); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("remove lock file: %w", err)
		}
		l.path = ""
	}

	return nil
}

func createExclusive(path string) (*os.File, error) {
	return os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_RDWR, 0o600)
}

// isLockStale reports whether a lock was left behind: it is older than
// StaleLockThreshold, or the process recorded in it no longer exists.
func isLockStale(lockPath string) (bool, error) {
	info, err := os.Stat(lockPath)
	if err != nil {
		return false, err
	}
	if time.Since(info.ModTime()) > StaleLockThreshold {
		return true, nil
	}

	pid, ok := lockPID(lockPath)
	if !ok || pid == os.Getpid() {
		return false, nil
	}
	exists, err := process.PidExists(int32(pid))
	if err != nil {
		return false, nil
	}
	return !exists, nil
}

// lockPID returns the pid= entry of a lock file.
func lockPID(lockPath string) (int, bool) {
	f, err := os.Open(lockPath)
	if err != nil {
		return 0, false
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		value, found := strings.CutPrefix(scanner.Text(), "pid=")
		if !found {
			continue
		}
		pid, err := strconv.Atoi(strings.TrimSpace(value))
		if err != nil || pid <= 0 {
			return 0, false
		}
		return pid, true
	}
	return 0, false
}
