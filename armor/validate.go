// Copyright 2026 The Autoarmor Authors
// SPDX-License-Identifier: Apache-2.0

package armor

import (
	"fmt"
	"io"
	"os"

	"github.com/autoarmor/autoarmor/lib/config"
	"github.com/autoarmor/autoarmor/lib/digest"
)

// ValidationResult holds the result of a validation check.
type ValidationResult struct {
	Name    string
	Passed  bool
	Message string
	Warning bool // True if this is a warning, not an error.
}

// Validator performs pre-flight validation of a host before jobs are
// launched under confinement.
type Validator struct {
	results []ValidationResult
	errors  int
}

// NewValidator creates a new validator.
func NewValidator() *Validator {
	return &Validator{
		results: make([]ValidationResult, 0),
	}
}

// Results returns all validation results.
func (v *Validator) Results() []ValidationResult {
	return v.results
}

// HasErrors returns true if any validation failed.
func (v *Validator) HasErrors() bool {
	return v.errors > 0
}

func (v *Validator) pass(name, message string) {
	v.results = append(v.results, ValidationResult{Name: name, Passed: true, Message: message})
}

func (v *Validator) warn(name, message string) {
	v.results = append(v.results, ValidationResult{Name: name, Passed: true, Message: message, Warning: true})
}

func (v *Validator) fail(name, message string) {
	v.results = append(v.results, ValidationResult{Name: name, Passed: false, Message: message})
	v.errors++
}

// ValidateAll runs every check against the detected capabilities and the
// configuration.
func (v *Validator) ValidateAll(cfg *config.Config, caps *Capabilities) {
	v.ValidateAppArmor(caps)
	v.ValidateLoaders(cfg, caps)
	v.ValidateProfileDirectory(cfg.Profiles.Directory)
	v.ValidateBinaries(cfg, caps)
}

// ValidateAppArmor checks that the LSM is active and manageable.
func (v *Validator) ValidateAppArmor(caps *Capabilities) {
	if !caps.AppArmorEnabled {
		v.fail("apparmor", "AppArmor is not enabled (check the apparmor= kernel parameter)")
		return
	}
	if !caps.SecurityFSMounted {
		v.fail("apparmor", "enabled but securityfs is not mounted at /sys/kernel/security")
		return
	}
	v.pass("apparmor", "enabled")
}

// ValidateLoaders checks that both policy loaders resolve.
func (v *Validator) ValidateLoaders(cfg *config.Config, caps *Capabilities) {
	check := func(mode, command, resolved string) {
		name := "loader-" + mode
		if resolved == "" {
			v.fail(name, fmt.Sprintf("%q not found (install apparmor-utils)", command))
			return
		}
		v.pass(name, fmt.Sprintf("available: %s", resolved))
	}
	check(string(Enforce), cfg.Loader.Enforce, caps.EnforceLoaderPath)
	check(string(Complain), cfg.Loader.Complain, caps.ComplainLoaderPath)
}

// ValidateProfileDirectory checks the profile directory. A missing
// directory is only a warning: the generator creates it on first run.
func (v *Validator) ValidateProfileDirectory(directory string) {
	info, err := os.Stat(directory)
	if err != nil {
		if os.IsNotExist(err) {
			v.warn("profiles", fmt.Sprintf("%s does not exist yet (created on first provisioning)", directory))
		} else {
			v.fail("profiles", fmt.Sprintf("cannot access %s: %v", directory, err))
		}
		return
	}
	if !info.IsDir() {
		v.fail("profiles", fmt.Sprintf("not a directory: %s", directory))
		return
	}
	if info.Mode().Perm()&0o002 != 0 {
		v.fail("profiles", fmt.Sprintf("%s is world-writable", directory))
		return
	}
	v.pass("profiles", fmt.Sprintf("exists: %s", directory))
}

// ValidateBinaries checks the generator and the wrapper.
func (v *Validator) ValidateBinaries(cfg *config.Config, caps *Capabilities) {
	switch {
	case caps.GeneratorPath == "":
		v.fail("generator", fmt.Sprintf("%q not found", cfg.Binaries.Generator))
	case !caps.GeneratorSetuid:
		v.fail("generator", fmt.Sprintf("%s is not owned by root with the setuid bit set", caps.GeneratorPath))
	default:
		sum, err := digest.HashFile(caps.GeneratorPath)
		if err != nil {
			v.warn("generator", fmt.Sprintf("available: %s (setuid root) but unreadable: %v", caps.GeneratorPath, err))
			break
		}
		v.pass("generator", fmt.Sprintf("available: %s (setuid root, blake3 %s)", caps.GeneratorPath, digest.Short(sum)))
	}

	if caps.WrapperPath == "" {
		v.fail("wrapper", fmt.Sprintf("%q not found", cfg.Binaries.Wrapper))
		return
	}
	v.pass("wrapper", fmt.Sprintf("available: %s", caps.WrapperPath))
}

// PrintResults writes validation results to a writer.
func (v *Validator) PrintResults(w io.Writer) {
	for _, r := range v.results {
		var prefix string
		if r.Passed {
			if r.Warning {
				prefix = "⚠"
			} else {
				prefix = "✓"
			}
		} else {
			prefix = "✗"
		}
		fmt.Fprintf(w, "%s %s: %s\n", prefix, r.Name, r.Message)
	}

	fmt.Fprintln(w)
	if v.HasErrors() {
		fmt.Fprintf(w, "Validation failed with %d error(s)\n", v.errors)
	} else {
		fmt.Fprintln(w, "Ready to confine jobs")
	}
}
