// Copyright 2026 The Autoarmor Authors
// SPDX-License-Identifier: Apache-2.0

package armor

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// Identity is the process credential interface used by
// [AcquirePrivilege]. [HostIdentity] is the real one; tests substitute
// their own.
type Identity interface {
	Setuid(uid int) error
	Getuid() int
	Geteuid() int
}

// HostIdentity reads and changes the credentials of the current process.
// Setuid applies to every thread of the process.
type HostIdentity struct{}

func (HostIdentity) Setuid(uid int) error { return unix.Setuid(uid) }
func (HostIdentity) Getuid() int          { return unix.Getuid() }
func (HostIdentity) Geteuid() int         { return unix.Geteuid() }

// Privilege is proof that the process verified it runs as root. The
// zero value and nil are not valid; the only way to obtain a usable
// Privilege is [AcquirePrivilege]. Components that modify host-wide
// policy state take one as a constructor argument.
type Privilege struct {
	verified bool
}

// AcquirePrivilege switches the real uid to root (the generator is
// installed setuid-root, so only the effective uid starts as 0) and
// verifies that both the real and the effective uid are now 0.
func AcquirePrivilege(identity Identity) (*Privilege, error) {
	if err := identity.Setuid(0); err != nil {
		return nil, &Error{Kind: KindPrivilege, Err: fmt.Errorf("setuid(0): %w (is the generator installed setuid root?)", err)}
	}
	uid, euid := identity.Getuid(), identity.Geteuid()
	if uid != 0 || euid != 0 {
		return nil, newError(KindPrivilege, "not running as root after setuid(0): uid=%d euid=%d", uid, euid)
	}
	return &Privilege{verified: true}, nil
}

func (p *Privilege) check() error {
	if p == nil || !p.verified {
		return newError(KindPrivilege, "operation requires a verified root privilege")
	}
	return nil
}
