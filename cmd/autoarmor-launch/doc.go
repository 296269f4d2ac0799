// Copyright 2026 The Autoarmor Authors
// SPDX-License-Identifier: Apache-2.0

// Autoarmor-launch is the CI-side glue. For each job it runs the
// wrapper self-test, provisions the job's profile through the setuid
// generator, and runs the job command through the wrapper, passing the
// job's exit status through. The check subcommand reports whether the
// host can confine jobs at all.
//
// Usage:
//
//	autoarmor-launch run [--mode M] [--ignore-no-apparmor] <workspace_root> <job_name> -- <command> [args...]
//	autoarmor-launch check
//	autoarmor-launch version
package main
