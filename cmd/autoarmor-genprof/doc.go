// Copyright 2026 The Autoarmor Authors
// SPDX-License-Identifier: Apache-2.0

// Autoarmor-genprof is the privileged profile generator. Installed
// setuid root, it verifies it holds root, installs the shared base
// snippet and the deny-all canary, enforces the canary, and then
// installs and activates the profile for one job.
//
// Usage:
//
//	autoarmor-genprof --self-test
//	autoarmor-genprof <workspace_root> <job_name> <complain|enforce>
//
// Diagnostics are written to stdout prefixed with the binary name and
// name the stage that failed; the exit status is 0 or 1.
package main
