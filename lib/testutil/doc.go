// Copyright 2026 The Autoarmor Authors
// SPDX-License-Identifier: Apache-2.0

// Package testutil provides shared test helpers for autoarmor packages.
//
// [Config] returns a validated configuration whose profile and lock
// directories live under t.TempDir(), with short profile names (base,
// denyall, job-) so assertions read like the on-disk layout.
//
// [RequireReceive] and [RequireClosed] bound every channel wait in a
// test by a timeout, so a deadlock fails the test instead of hanging it.
//
// [UniqueID] generates monotonically increasing identifiers for test
// disambiguation, for example distinct job names in parallel tests.
//
// All helpers call t.Fatalf on failure rather than returning errors,
// since test setup failures are not recoverable.
package testutil
