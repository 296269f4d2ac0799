// Copyright 2026 The Autoarmor Authors
// SPDX-License-Identifier: Apache-2.0

// Autoarmor-wrapper runs a CI job under its pre-installed AppArmor
// profile. It never gains privilege: it asks the kernel to apply the
// job profile to the next program it executes and then replaces itself
// with the job command. If the request fails the command is never run.
//
// Usage:
//
//	autoarmor-wrapper --self-test
//	autoarmor-wrapper <job_name> <command> [args...]
package main
