// Copyright 2026 The Autoarmor Authors
// SPDX-License-Identifier: Apache-2.0

package testutil

import (
	"path/filepath"
	"testing"

	"github.com/autoarmor/autoarmor/lib/config"
)

// Config returns a configuration rooted in a fresh temporary directory.
// The profile directory is not created, so tests observe the generator
// creating it. Profile names are base, denyall, and job-<name>.
func Config(t *testing.T) *config.Config {
	t.Helper()

	root := t.TempDir()
	cfg := config.Default()
	cfg.Profiles.Directory = filepath.Join(root, "profiles")
	cfg.Profiles.LockDirectory = filepath.Join(root, "locks")
	cfg.Profiles.Base = "base"
	cfg.Profiles.DenyAll = "denyall"
	cfg.Profiles.JobPrefix = "job-"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("test configuration is invalid: %v", err)
	}
	return cfg
}
