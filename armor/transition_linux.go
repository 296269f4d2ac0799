// Copyright 2026 The Autoarmor Authors
// SPDX-License-Identifier: Apache-2.0

//go:build linux

package armor

import (
	"errors"
	"fmt"
	"io"
	"os"

	"golang.org/x/sys/unix"
)

// writeProcAttr writes command to the first attribute file that exists.
// The kernel parses the whole command from a single write, so a short
// write is a failure.
func writeProcAttr(candidates []string, command string) error {
	var lastErr error
	for _, attrPath := range candidates {
		file, err := os.OpenFile(attrPath, os.O_WRONLY|unix.O_CLOEXEC, 0)
		if errors.Is(err, os.ErrNotExist) {
			lastErr = err
			continue
		}
		if err != nil {
			return fmt.Errorf("opening %s: %w", attrPath, err)
		}

		written, err := io.WriteString(file, command)
		closeErr := file.Close()
		switch {
		case err != nil:
			return fmt.Errorf("writing %q to %s: %w", command, attrPath, err)
		case written != len(command):
			return fmt.Errorf("writing %q to %s: %w", command, attrPath, io.ErrShortWrite)
		case closeErr != nil:
			return fmt.Errorf("closing %s: %w", attrPath, closeErr)
		}
		return nil
	}
	return fmt.Errorf("no AppArmor process attribute interface: %w", lastErr)
}
