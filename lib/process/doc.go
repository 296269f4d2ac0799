// Copyright 2026 The Autoarmor Authors
// SPDX-License-Identifier: Apache-2.0

// Package process provides binary entrypoint helpers for autoarmor
// binaries. These functions centralize the user-visible diagnostic
// format: one line on stdout, prefixed with the component name, and a
// process exit status that is the only machine-readable signal (0 for
// success, 1 for any failure).
//
// Structured logs go to stderr through lib/logging; this package is
// for the final word a CI system shows its operator.
package process
