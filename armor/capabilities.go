// Copyright 2026 The Autoarmor Authors
// SPDX-License-Identifier: Apache-2.0

package armor

import (
	"os"
	"os/exec"
	"strings"

	"golang.org/x/sys/unix"

	"github.com/autoarmor/autoarmor/lib/config"
)

// HostPaths locates the kernel interfaces capability probing reads.
// Tests point them into a temporary directory.
type HostPaths struct {
	// Enabled is the AppArmor module parameter; it reads "Y" when the
	// LSM is active.
	Enabled string

	// SecurityFS is the AppArmor securityfs directory the loaders use.
	SecurityFS string
}

// DefaultHostPaths returns the standard Linux locations.
func DefaultHostPaths() HostPaths {
	return HostPaths{
		Enabled:    "/sys/module/apparmor/parameters/enabled",
		SecurityFS: "/sys/kernel/security/apparmor",
	}
}

// Capabilities describes what confinement features are available on
// this host.
type Capabilities struct {
	// AppArmorEnabled is true if the AppArmor LSM is active.
	AppArmorEnabled bool

	// SecurityFSMounted is true if the policy management interface is
	// reachable.
	SecurityFSMounted bool

	// EnforceLoaderPath and ComplainLoaderPath are the resolved loader
	// executables, empty when not found.
	EnforceLoaderPath  string
	ComplainLoaderPath string

	// GeneratorPath and WrapperPath are the resolved autoarmor binaries,
	// empty when not found.
	GeneratorPath string
	WrapperPath   string

	// GeneratorSetuid is true if the generator is owned by root with the
	// setuid bit set.
	GeneratorSetuid bool
}

// DetectCapabilities checks what confinement features are available.
func DetectCapabilities(cfg *config.Config) *Capabilities {
	return detectCapabilities(cfg, DefaultHostPaths())
}

func detectCapabilities(cfg *config.Config, paths HostPaths) *Capabilities {
	caps := &Capabilities{
		AppArmorEnabled: appArmorEnabled(paths.Enabled),
	}
	if info, err := os.Stat(paths.SecurityFS); err == nil && info.IsDir() {
		caps.SecurityFSMounted = true
	}

	if argv, err := cfg.Loader.EnforceCommand(); err == nil {
		caps.EnforceLoaderPath = lookPath(argv[0])
	}
	if argv, err := cfg.Loader.ComplainCommand(); err == nil {
		caps.ComplainLoaderPath = lookPath(argv[0])
	}

	caps.GeneratorPath = lookPath(cfg.Binaries.Generator)
	caps.WrapperPath = lookPath(cfg.Binaries.Wrapper)
	if caps.GeneratorPath != "" {
		caps.GeneratorSetuid = isSetuidRoot(caps.GeneratorPath)
	}
	return caps
}

func appArmorEnabled(parameterPath string) bool {
	data, err := os.ReadFile(parameterPath)
	return err == nil && strings.HasPrefix(strings.TrimSpace(string(data)), "Y")
}

func lookPath(name string) string {
	if name == "" {
		return ""
	}
	resolved, err := exec.LookPath(name)
	if err != nil {
		return ""
	}
	return resolved
}

// isSetuidRoot reports whether the file at path is owned by root and
// carries the setuid bit.
func isSetuidRoot(path string) bool {
	var stat unix.Stat_t
	if err := unix.Stat(path, &stat); err != nil {
		return false
	}
	return stat.Uid == 0 && stat.Mode&unix.S_ISUID != 0
}

// CanConfine returns true if jobs can be provisioned and confined.
func (c *Capabilities) CanConfine() bool {
	return c.SkipReason() == ""
}

// SkipReason returns a human-readable reason why confinement isn't
// available, or empty string if it is.
func (c *Capabilities) SkipReason() string {
	switch {
	case !c.AppArmorEnabled:
		return "AppArmor is not enabled in the kernel"
	case !c.SecurityFSMounted:
		return "AppArmor securityfs is not mounted"
	case c.EnforceLoaderPath == "" || c.ComplainLoaderPath == "":
		return "AppArmor policy loaders not installed (apparmor-utils)"
	case c.GeneratorPath == "":
		return "profile generator not installed"
	case !c.GeneratorSetuid:
		return "profile generator is not setuid root"
	case c.WrapperPath == "":
		return "confinement wrapper not installed"
	}
	return ""
}
