// Copyright 2026 The Autoarmor Authors
// SPDX-License-Identifier: Apache-2.0

// Package armor confines untrusted build jobs under AppArmor.
//
// The package is split along a privilege boundary. The privileged half
// runs inside the setuid-root generator: [Provisioner] verifies it holds
// root ([AcquirePrivilege]), ensures the profile directory exists,
// installs the shared base snippet and the deny-all canary through a
// [Store], enforces the canary through an [Activator], and only then
// installs and activates the requested job profile. The unprivileged
// half is [Wrapper], which asks the kernel to confine the next program
// image and then replaces itself with the job command.
//
// Profile bodies come from a [Catalog]. Bodies are assembled by
// substitution, so every identifier is checked against an allow-list
// ([ValidateJobName], [ValidateWorkspaceRoot]) before it reaches the
// catalog. A job profile grants read, write, lock, and execute on
// exactly workspace_root/job_name/**; [ScopeCovers] evaluates that
// pattern.
//
// The store never overwrites a profile. [Store.Write] creates files with
// O_CREAT|O_EXCL: of any number of concurrent writers exactly one sees
// [Installed], the rest see [AlreadyPresent], and a confined process
// never has its policy file rewritten underneath it. Install and
// activation of one profile name are additionally serialized across
// processes by a [ProfileLock].
//
// The wrapper fails closed. [Wrapper.RequestTransition] returns an
// [Armed] value only when the confinement request succeeded, and
// [Armed.Exec] is the only way to run the job, so a failed request can
// never be followed by an unconfined exec.
//
// [SelfTest] cross-checks both halves on a host: it runs the
// generator's self-test, confines a thread under the canary, and
// requires that reading /etc/passwd is denied. [Launcher] is the CI
// glue that runs the self-test, provisions a job, and prefixes the job
// command with the wrapper. [Validator] and [DetectCapabilities]
// provide pre-flight checks for operators.
//
// Every failure is an [Error] with an [ErrorKind]; provisioning failures
// are additionally wrapped in a [StageError] naming the stage that
// failed. Nothing is retried.
package armor
