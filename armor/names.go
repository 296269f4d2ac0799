// Copyright 2026 The Autoarmor Authors
// SPDX-License-Identifier: Apache-2.0

package armor

import (
	"path"
	"regexp"
	"strings"
)

// Profile bodies are assembled by plain substitution, so every value
// that reaches the catalog must be free of AppArmor path-glob and
// policy metacharacters. These allow-lists are the only escaping.
var (
	jobNamePattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]{0,127}$`)
	safePathChars  = regexp.MustCompile(`^/[A-Za-z0-9._/+-]*$`)
)

// ValidateJobName checks a job name against the allow-list. The name
// becomes part of a profile name, a filename, and a path rule.
func ValidateJobName(name string) error {
	if !jobNamePattern.MatchString(name) {
		return Usage("invalid job name %q: must match %s", name, jobNamePattern)
	}
	if strings.Contains(name, "..") {
		return Usage("invalid job name %q: must not contain \"..\"", name)
	}
	return nil
}

// ValidateWorkspaceRoot checks that root is an absolute, clean path made
// only of characters that carry no meaning in AppArmor path rules.
func ValidateWorkspaceRoot(root string) error {
	if !validPolicyPath(root) {
		return Usage("invalid workspace root %q: must be an absolute, clean path matching %s", root, safePathChars)
	}
	return nil
}

func validPolicyPath(p string) bool {
	return safePathChars.MatchString(p) && path.Clean(p) == p
}

// validateProfileName guards the store against names that would escape
// the profile directory.
func validateProfileName(name string) error {
	switch {
	case name == "", name == ".", name == "..":
		return newError(KindFilesystem, "invalid profile name %q", name)
	case strings.ContainsAny(name, "/\x00"):
		return newError(KindFilesystem, "invalid profile name %q: contains a path separator or NUL", name)
	}
	return nil
}

// JobIdentity pairs a job name with the workspace root its directory
// lives under. It exists for the duration of one provisioning call.
type JobIdentity struct {
	Name          string
	WorkspaceRoot string
}

// Validate checks both identifiers against their allow-lists.
func (j JobIdentity) Validate() error {
	if err := ValidateWorkspaceRoot(j.WorkspaceRoot); err != nil {
		return err
	}
	return ValidateJobName(j.Name)
}

// Directory returns the job's workspace directory, workspace_root/job_name.
func (j JobIdentity) Directory() string {
	return path.Join(j.WorkspaceRoot, j.Name)
}

// Scope returns the single path rule pattern granted to the job:
// workspace_root/job_name/**.
func (j JobIdentity) Scope() string {
	return j.Directory() + "/**"
}
