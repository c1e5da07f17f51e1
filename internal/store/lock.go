// ABOUTME: Cross-process exclusive lock on the store's lock file
// ABOUTME: Polls a non-blocking OS lock until it is granted or the context ends

package store

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/mauromedda/gitstaller/internal/log"
)

// ErrLocked is returned when the store lock could not be acquired before the
// context ended.
var ErrLocked = errors.New("store is locked by another process")

// errBusy is returned by tryLock when another holder owns the lock.
var errBusy = errors.New("lock busy")

const lockPollInterval = 100 * time.Millisecond

type fileLock struct {
	f *os.File
}

func acquire(ctx context.Context, path string) (*fileLock, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0o600)
	if err != nil {
		return nil, fmt.Errorf("opening lock file: %w", err)
	}

	ticker := time.NewTicker(lockPollInterval)
	defer ticker.Stop()

	waiting := false
	for {
		err := tryLock(f)
		if err == nil {
			return &fileLock{f: f}, nil
		}
		if !errors.Is(err, errBusy) {
			f.Close()
			return nil, fmt.Errorf("locking %s: %w", path, err)
		}
		if !waiting {
			waiting = true
			log.Warn("waiting for another gitstaller process to release %s", path)
		}

		select {
		case <-ctx.Done():
			f.Close()
			return nil, fmt.Errorf("%w: %v", ErrLocked, ctx.Err())
		case <-ticker.C:
		}
	}
}

func (l *fileLock) release() error {
	if err := unlock(l.f); err != nil {
		l.f.Close()
		return fmt.Errorf("unlocking store: %w", err)
	}
	return l.f.Close()
}
