// Copyright 2026 The Autoarmor Authors
// SPDX-License-Identifier: Apache-2.0

package armor

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"golang.org/x/sys/unix"

	"github.com/autoarmor/autoarmor/lib/digest"
)

// InstallResult reports what a [Store.Write] did.
type InstallResult int

const (
	// Installed means this call created the file and wrote the body.
	Installed InstallResult = iota + 1

	// AlreadyPresent means a file with this name existed before the
	// call. Its content was left untouched.
	AlreadyPresent
)

func (r InstallResult) String() string {
	switch r {
	case Installed:
		return "installed"
	case AlreadyPresent:
		return "already-present"
	default:
		return fmt.Sprintf("InstallResult(%d)", int(r))
	}
}

const (
	// profileFileMode lets only the installer (root) and the policy
	// loaders it spawns read profile files.
	profileFileMode = 0o600

	// profileDirectoryMode is the mode of a directory created by
	// [Store.EnsureDirectory].
	profileDirectoryMode = 0o755
)

// Store manages the on-disk profile directory. Files are created
// exactly once and never rewritten or deleted, so a process confined
// by a profile cannot have its policy file changed underneath it.
type Store struct {
	directory string
	logger    *slog.Logger
}

// NewStore creates a store rooted at directory. A [Privilege] is
// required: only a verified privileged process installs profiles.
func NewStore(privilege *Privilege, directory string, logger *slog.Logger) (*Store, error) {
	if err := privilege.check(); err != nil {
		return nil, err
	}
	if !filepath.IsAbs(directory) {
		return nil, newError(KindDirectory, "profile directory %q is not absolute", directory)
	}
	return &Store{directory: directory, logger: logger}, nil
}

// Directory returns the profile directory.
func (s *Store) Directory() string { return s.directory }

// Path returns the file path for a profile name.
func (s *Store) Path(name string) string {
	return filepath.Join(s.directory, name)
}

// EnsureDirectory creates the profile directory if it does not exist.
// A directory created concurrently by another process counts as
// success.
func (s *Store) EnsureDirectory() error {
	info, err := os.Stat(s.directory)
	if err == nil {
		if !info.IsDir() {
			return newError(KindDirectory, "profile directory %s exists and is not a directory", s.directory)
		}
		return nil
	}
	if !errors.Is(err, os.ErrNotExist) {
		return &Error{Kind: KindDirectory, Err: fmt.Errorf("checking profile directory %s: %w", s.directory, err)}
	}

	err = os.Mkdir(s.directory, profileDirectoryMode)
	switch {
	case err == nil:
		s.logger.Info("profile directory created", "directory", s.directory)
		return nil
	case errors.Is(err, os.ErrExist):
		return nil
	default:
		return &Error{Kind: KindDirectory, Err: fmt.Errorf("creating profile directory %s: %w", s.directory, err)}
	}
}

// Write installs body under name if no file of that name exists. The
// existence check and the creation are one O_CREAT|O_EXCL open, so of
// any number of concurrent writers exactly one sees [Installed]; the
// rest see [AlreadyPresent] and their body is discarded.
func (s *Store) Write(name, body string) (InstallResult, error) {
	if err := validateProfileName(name); err != nil {
		return 0, err
	}
	target := s.Path(name)

	file, err := os.OpenFile(target, os.O_WRONLY|os.O_CREATE|os.O_EXCL|unix.O_NOFOLLOW|unix.O_CLOEXEC, profileFileMode)
	if errors.Is(err, os.ErrExist) {
		s.checkDrift(name, target, body)
		return AlreadyPresent, nil
	}
	if err != nil {
		return 0, &Error{Kind: KindFilesystem, Err: fmt.Errorf("creating profile %s: %w", target, err)}
	}

	if err := writeAndSync(file, body); err != nil {
		// The file exists but is incomplete. Removing it lets a later
		// run install the full body instead of observing AlreadyPresent
		// on a torn file.
		if removeErr := os.Remove(target); removeErr != nil {
			s.logger.Error("removing partially written profile", "path", target, "error", removeErr)
		}
		return 0, &Error{Kind: KindFilesystem, Err: fmt.Errorf("writing profile %s: %w", target, err)}
	}

	s.logger.Info("profile installed", "profile", name, "path", target, "blake3", digest.Format(digest.Sum([]byte(body))))
	return Installed, nil
}

func writeAndSync(file *os.File, body string) error {
	written, err := io.WriteString(file, body)
	if err == nil && written != len(body) {
		err = io.ErrShortWrite
	}
	if err == nil {
		err = file.Sync()
	}
	if closeErr := file.Close(); err == nil {
		err = closeErr
	}
	return err
}

// checkDrift warns when an existing profile differs from the body this
// build would have written. The file is never replaced: it may be in
// use by a confined process.
func (s *Store) checkDrift(name, target, body string) {
	existing, err := os.ReadFile(target)
	if err != nil {
		s.logger.Warn("profile already present but unreadable", "profile", name, "path", target, "error", err)
		return
	}
	onDisk, requested := digest.Sum(existing), digest.Sum([]byte(body))
	if onDisk != requested {
		s.logger.Warn("profile already present with different content; keeping existing file",
			"profile", name,
			"path", target,
			"on_disk_blake3", digest.Short(onDisk),
			"requested_blake3", digest.Short(requested),
		)
		return
	}
	s.logger.Debug("profile already present", "profile", name, "path", target)
}
