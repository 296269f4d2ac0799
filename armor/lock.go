// Copyright 2026 The Autoarmor Authors
// SPDX-License-Identifier: Apache-2.0

package armor

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/sys/unix"
)

// ProfileLock is an advisory lock serializing install and activation of
// one profile name across processes. Without it, two generator runs
// activating the same profile in different modes would interleave their
// loader invocations; with it, the runs are ordered and the last one to
// acquire the lock determines the final mode.
type ProfileLock struct {
	file *os.File
}

// lockDirectoryMode keeps the lock directory writable only by root.
const lockDirectoryMode = 0o700

// LockProfile blocks until it holds the exclusive lock for name in
// directory. The lock file is created if absent and never removed:
// removing it would let two processes lock different inodes.
func LockProfile(directory, name string) (*ProfileLock, error) {
	if err := validateProfileName(name); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(directory, lockDirectoryMode); err != nil && !errors.Is(err, os.ErrExist) {
		return nil, &Error{Kind: KindDirectory, Err: fmt.Errorf("creating lock directory %s: %w", directory, err)}
	}

	lockPath := filepath.Join(directory, name+".lock")
	file, err := os.OpenFile(lockPath, os.O_RDWR|os.O_CREATE|unix.O_NOFOLLOW|unix.O_CLOEXEC, 0o600)
	if err != nil {
		return nil, &Error{Kind: KindFilesystem, Err: fmt.Errorf("opening lock %s: %w", lockPath, err)}
	}

	for {
		err = unix.Flock(int(file.Fd()), unix.LOCK_EX)
		if !errors.Is(err, unix.EINTR) {
			break
		}
	}
	if err != nil {
		file.Close()
		return nil, &Error{Kind: KindFilesystem, Err: fmt.Errorf("locking %s: %w", lockPath, err)}
	}
	return &ProfileLock{file: file}, nil
}

// Release drops the lock. It is safe to call more than once.
func (l *ProfileLock) Release() error {
	if l == nil || l.file == nil {
		return nil
	}
	file := l.file
	l.file = nil
	// Closing the descriptor releases the flock.
	return file.Close()
}
