// Copyright 2026 The Autoarmor Authors
// SPDX-License-Identifier: Apache-2.0

package armor

import (
	"path/filepath"
)

// Transitioner asks the policy subsystem to confine the calling thread.
// Both operations act on the current OS thread only; callers must hold
// runtime.LockOSThread across the request and whatever depends on it.
type Transitioner interface {
	// ExecTransition confines the next program image the calling thread
	// loads (apply-on-exec). The current image keeps running
	// unconfined until it calls exec.
	ExecTransition(profile string) error

	// ChangeProfile confines the calling thread immediately.
	ChangeProfile(profile string) error
}

// ProcTransitioner requests transitions through the AppArmor procfs
// attribute interface, the same files libapparmor writes.
type ProcTransitioner struct {
	// Root is the procfs mount point. Empty means /proc.
	Root string
}

// ExecTransition writes "exec <profile>" to the thread's exec attribute.
func (p ProcTransitioner) ExecTransition(profile string) error {
	return writeProcAttr(p.attrPaths("exec"), "exec "+profile)
}

// ChangeProfile writes "changeprofile <profile>" to the thread's current
// attribute.
func (p ProcTransitioner) ChangeProfile(profile string) error {
	return writeProcAttr(p.attrPaths("current"), "changeprofile "+profile)
}

// attrPaths returns the LSM-specific attribute path first and the
// legacy shared path second. Kernels with LSM stacking expose only the
// former for AppArmor; older kernels only the latter.
func (p ProcTransitioner) attrPaths(attribute string) []string {
	root := p.Root
	if root == "" {
		root = "/proc"
	}
	return []string{
		filepath.Join(root, "thread-self", "attr", "apparmor", attribute),
		filepath.Join(root, "thread-self", "attr", attribute),
	}
}
