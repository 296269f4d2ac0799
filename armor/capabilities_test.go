// Copyright 2026 The Autoarmor Authors
// SPDX-License-Identifier: Apache-2.0

package armor

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/autoarmor/autoarmor/lib/config"
	"github.com/autoarmor/autoarmor/lib/testutil"
)

// fakeHost lays out the kernel interfaces and executables a capability
// probe looks for.
func fakeHost(t *testing.T, enabled string, securityFS bool) (*config.Config, HostPaths) {
	t.Helper()
	root := t.TempDir()

	paths := HostPaths{
		Enabled:    filepath.Join(root, "enabled"),
		SecurityFS: filepath.Join(root, "securityfs"),
	}
	if enabled != "" {
		if err := os.WriteFile(paths.Enabled, []byte(enabled), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	if securityFS {
		if err := os.Mkdir(paths.SecurityFS, 0o755); err != nil {
			t.Fatal(err)
		}
	}

	executable := func(name string) string {
		path := filepath.Join(root, name)
		if err := os.WriteFile(path, []byte("#!/bin/sh\nexit 0\n"), 0o755); err != nil {
			t.Fatal(err)
		}
		return path
	}

	cfg := testutil.Config(t)
	cfg.Loader.Enforce = executable("aa-enforce")
	cfg.Loader.Complain = executable("aa-complain") + " --verbose"
	cfg.Binaries.Generator = executable("autoarmor-genprof")
	cfg.Binaries.Wrapper = executable("autoarmor-wrapper")
	return cfg, paths
}

func TestDetectCapabilities(t *testing.T) {
	t.Parallel()

	cfg, paths := fakeHost(t, "Y\n", true)
	caps := detectCapabilities(cfg, paths)

	if !caps.AppArmorEnabled {
		t.Error("AppArmorEnabled should be true when the parameter reads Y")
	}
	if !caps.SecurityFSMounted {
		t.Error("SecurityFSMounted should be true")
	}
	if caps.EnforceLoaderPath != cfg.Loader.Enforce {
		t.Errorf("EnforceLoaderPath = %q", caps.EnforceLoaderPath)
	}
	if caps.ComplainLoaderPath == "" {
		t.Error("ComplainLoaderPath should resolve the first word of the command line")
	}
	if caps.GeneratorPath == "" || caps.WrapperPath == "" {
		t.Error("binaries should resolve")
	}
	// A test-created file is never setuid root.
	if caps.GeneratorSetuid {
		t.Error("GeneratorSetuid should be false for an ordinary file")
	}
	if caps.CanConfine() {
		t.Error("CanConfine should be false without a setuid generator")
	}
	if reason := caps.SkipReason(); reason != "profile generator is not setuid root" {
		t.Errorf("SkipReason = %q", reason)
	}
}

func TestDetectCapabilitiesDisabled(t *testing.T) {
	t.Parallel()

	for _, enabled := range []string{"", "N\n"} {
		cfg, paths := fakeHost(t, enabled, false)
		caps := detectCapabilities(cfg, paths)
		if caps.AppArmorEnabled {
			t.Errorf("AppArmorEnabled should be false for parameter %q", enabled)
		}
		if reason := caps.SkipReason(); reason != "AppArmor is not enabled in the kernel" {
			t.Errorf("SkipReason = %q", reason)
		}
	}
}

func TestSkipReason(t *testing.T) {
	t.Parallel()

	ready := Capabilities{
		AppArmorEnabled:    true,
		SecurityFSMounted:  true,
		EnforceLoaderPath:  "/usr/sbin/aa-enforce",
		ComplainLoaderPath: "/usr/sbin/aa-complain",
		GeneratorPath:      "/usr/bin/autoarmor-genprof",
		GeneratorSetuid:    true,
		WrapperPath:        "/usr/bin/autoarmor-wrapper",
	}
	if !ready.CanConfine() {
		t.Errorf("fully capable host reports %q", ready.SkipReason())
	}

	tests := []struct {
		mutate func(*Capabilities)
		want   string
	}{
		{func(c *Capabilities) { c.SecurityFSMounted = false }, "AppArmor securityfs is not mounted"},
		{func(c *Capabilities) { c.ComplainLoaderPath = "" }, "AppArmor policy loaders not installed (apparmor-utils)"},
		{func(c *Capabilities) { c.GeneratorPath = "" }, "profile generator not installed"},
		{func(c *Capabilities) { c.WrapperPath = "" }, "confinement wrapper not installed"},
	}
	for _, test := range tests {
		caps := ready
		test.mutate(&caps)
		if got := caps.SkipReason(); got != test.want {
			t.Errorf("SkipReason = %q, want %q", got, test.want)
		}
	}
}
