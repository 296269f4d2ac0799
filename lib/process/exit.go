// Copyright 2026 The Autoarmor Authors
// SPDX-License-Identifier: Apache-2.0

package process

import (
	"errors"
	"fmt"
	"io"
	"os"
)

// Report writes "component: err" to w.
func Report(w io.Writer, component string, err error) {
	fmt.Fprintf(w, "%s: %v\n", component, err)
}

// Fatal writes "component: err" to stdout and exits with the code from
// [ExitCode]. Use it in main() for errors returned by run().
func Fatal(component string, err error) {
	Report(os.Stdout, component, err)
	os.Exit(ExitCode(err))
}

// ExitCode returns the exit status for err: 0 for nil, the code carried
// by an error implementing ExitCode() int, and 1 otherwise.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	var coder interface{ ExitCode() int }
	if errors.As(err, &coder) {
		return coder.ExitCode()
	}
	return 1
}
