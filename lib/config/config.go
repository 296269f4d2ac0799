// Copyright 2026 The Autoarmor Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/google/shlex"
	"golang.org/x/sys/unix"
	"gopkg.in/yaml.v3"
)

// SystemPath is the only configuration file the privileged generator and
// the wrapper consult. It must be owned by root and not writable by group
// or others; see [LoadTrusted].
const SystemPath = "/etc/autoarmor/autoarmor.yaml"

// EnvironmentVariable names the variable [Load] reads. Only unprivileged
// tooling (autoarmor-launch) honours it.
const EnvironmentVariable = "AUTOARMOR_CONFIG"

// Launch modes. The disabled mode is only meaningful to the launcher;
// the generator accepts complain and enforce.
const (
	LaunchDisabled = "disabled"
	LaunchComplain = "complain"
	LaunchEnforce  = "enforce"
)

// Config is the master configuration for autoarmor. It is constructed
// once at startup and passed by pointer to every component; nothing
// mutates it afterwards.
type Config struct {
	// Profiles configures profile naming and the on-disk profile directory.
	Profiles ProfilesConfig `yaml:"profiles"`

	// Loader configures the external policy-loading programs.
	Loader LoaderConfig `yaml:"loader"`

	// Binaries locates the autoarmor executables for self-test and launch.
	Binaries BinariesConfig `yaml:"binaries"`

	// Launch configures the CI launch glue (autoarmor-launch).
	Launch LaunchConfig `yaml:"launch"`
}

// ProfilesConfig configures profile names and locations.
type ProfilesConfig struct {
	// Directory holds one file per profile. Files are created once and
	// never deleted by autoarmor.
	// Default: /etc/apparmor.d/autoarmor
	Directory string `yaml:"directory"`

	// JobPrefix is prepended to a job name to form the job's profile name.
	// The generator and the wrapper both derive names through
	// [ProfilesConfig.JobProfileName].
	// Default: autoarmor-job-
	JobPrefix string `yaml:"job_prefix"`

	// Base is the name of the shared include snippet.
	// Default: autoarmor-base
	Base string `yaml:"base"`

	// DenyAll is the name of the canary profile.
	// Default: autoarmor-denyall
	DenyAll string `yaml:"deny_all"`

	// LockDirectory holds per-profile advisory lock files that serialize
	// install and activation of a single profile across processes.
	// Default: /run/autoarmor
	LockDirectory string `yaml:"lock_directory"`
}

// JobProfileName returns the profile name for a job. This is the naming
// contract shared by the generator and the wrapper.
func (p ProfilesConfig) JobProfileName(job string) string {
	return p.JobPrefix + job
}

// LoaderConfig configures the external policy loaders. Each value is a
// command line; the profile file path is appended as the final argument.
type LoaderConfig struct {
	// Enforce switches a profile to enforce mode.
	// Default: /usr/sbin/aa-enforce
	Enforce string `yaml:"enforce"`

	// Complain switches a profile to complain mode.
	// Default: /usr/sbin/aa-complain
	Complain string `yaml:"complain"`
}

// EnforceCommand returns the enforce loader split into argv.
func (l LoaderConfig) EnforceCommand() ([]string, error) {
	return splitCommand("loader.enforce", l.Enforce)
}

// ComplainCommand returns the complain loader split into argv.
func (l LoaderConfig) ComplainCommand() ([]string, error) {
	return splitCommand("loader.complain", l.Complain)
}

func splitCommand(field, line string) ([]string, error) {
	fields, err := shlex.Split(line)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", field, err)
	}
	if len(fields) == 0 {
		return nil, fmt.Errorf("%s is empty", field)
	}
	return fields, nil
}

// BinariesConfig locates the autoarmor executables. Bare names are
// resolved through PATH.
type BinariesConfig struct {
	// Generator is the setuid-root profile generator.
	// Default: autoarmor-genprof
	Generator string `yaml:"generator"`

	// Wrapper is the unprivileged confinement wrapper.
	// Default: autoarmor-wrapper
	Wrapper string `yaml:"wrapper"`
}

// LaunchConfig configures how autoarmor-launch decorates CI commands.
type LaunchConfig struct {
	// Mode is disabled, complain, or enforce.
	// Default: disabled
	Mode string `yaml:"mode"`

	// IgnoreNoAppArmor runs jobs unconfined (with a warning) when
	// AppArmor is not enabled on the host, instead of failing them.
	// Default: true
	IgnoreNoAppArmor bool `yaml:"ignore_no_apparmor"`
}

// Default returns the default configuration. Paths match a stock
// AppArmor installation on Debian and Ubuntu.
func Default() *Config {
	return &Config{
		Profiles: ProfilesConfig{
			Directory:     "/etc/apparmor.d/autoarmor",
			JobPrefix:     "autoarmor-job-",
			Base:          "autoarmor-base",
			DenyAll:       "autoarmor-denyall",
			LockDirectory: "/run/autoarmor",
		},
		Loader: LoaderConfig{
			Enforce:  "/usr/sbin/aa-enforce",
			Complain: "/usr/sbin/aa-complain",
		},
		Binaries: BinariesConfig{
			Generator: "autoarmor-genprof",
			Wrapper:   "autoarmor-wrapper",
		},
		Launch: LaunchConfig{
			Mode:             LaunchDisabled,
			IgnoreNoAppArmor: true,
		},
	}
}

// Load loads configuration for unprivileged tooling. AUTOARMOR_CONFIG
// names the file when set; otherwise [SystemPath] is read through
// [LoadTrusted].
func Load() (*Config, error) {
	if path := os.Getenv(EnvironmentVariable); path != "" {
		return LoadFile(path)
	}
	return LoadTrusted(SystemPath)
}

// LoadFile loads configuration from a specific file path on top of
// [Default]. ${VAR} and ${VAR:-default} patterns in path fields are
// expanded from the environment. Never use this from a privileged
// process: the caller controls both the file and the environment.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	cfg.expandVariables()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration in %s: %w", path, err)
	}
	return cfg, nil
}

// LoadTrusted loads configuration for the setuid generator and the
// wrapper. The file must be a regular file owned by root and not
// writable by group or others; ownership is checked on the opened
// descriptor so the file cannot be swapped between check and read. A
// missing file yields [Default]. No environment expansion is performed.
func LoadTrusted(path string) (*Config, error) {
	file, err := os.OpenFile(path, os.O_RDONLY|unix.O_NOFOLLOW, 0)
	if errors.Is(err, os.ErrNotExist) {
		return Default(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer file.Close()

	var stat unix.Stat_t
	if err := unix.Fstat(int(file.Fd()), &stat); err != nil {
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}
	if err := checkTrustedOwnership(path, &stat); err != nil {
		return nil, err
	}

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration in %s: %w", path, err)
	}
	return cfg, nil
}

func checkTrustedOwnership(path string, stat *unix.Stat_t) error {
	if stat.Mode&unix.S_IFMT != unix.S_IFREG {
		return fmt.Errorf("%s is not a regular file", path)
	}
	if stat.Uid != 0 {
		return fmt.Errorf("%s must be owned by root (owner uid %d)", path, stat.Uid)
	}
	if stat.Mode&0o022 != 0 {
		return fmt.Errorf("%s must not be writable by group or others (mode %#o)", path, stat.Mode&0o777)
	}
	return nil
}

// expandVars expands ${VAR} and ${VAR:-default} patterns.
var varPattern = regexp.MustCompile(`\$\{([^}:]+)(?::-([^}]*))?\}`)

func (c *Config) expandVariables() {
	c.Profiles.Directory = expandVars(c.Profiles.Directory)
	c.Profiles.LockDirectory = expandVars(c.Profiles.LockDirectory)
	c.Binaries.Generator = expandVars(c.Binaries.Generator)
	c.Binaries.Wrapper = expandVars(c.Binaries.Wrapper)
}

func expandVars(s string) string {
	return varPattern.ReplaceAllStringFunc(s, func(match string) string {
		parts := varPattern.FindStringSubmatch(match)
		if len(parts) < 2 {
			return match
		}
		if value := os.Getenv(parts[1]); value != "" {
			return value
		}
		if len(parts) >= 3 {
			return parts[2]
		}
		return ""
	})
}

// profileNamePattern restricts profile names and prefixes to characters
// that need no quoting in AppArmor policy or on the filesystem.
var profileNamePattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]*$`)

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	var errs []error

	if !filepath.IsAbs(c.Profiles.Directory) {
		errs = append(errs, fmt.Errorf("profiles.directory must be an absolute path, got %q", c.Profiles.Directory))
	}
	if !filepath.IsAbs(c.Profiles.LockDirectory) {
		errs = append(errs, fmt.Errorf("profiles.lock_directory must be an absolute path, got %q", c.Profiles.LockDirectory))
	}
	for field, name := range map[string]string{
		"profiles.job_prefix": c.Profiles.JobPrefix,
		"profiles.base":       c.Profiles.Base,
		"profiles.deny_all":   c.Profiles.DenyAll,
	} {
		if !profileNamePattern.MatchString(name) {
			errs = append(errs, fmt.Errorf("%s must match %s, got %q", field, profileNamePattern, name))
		}
	}
	if c.Profiles.Base == c.Profiles.DenyAll {
		errs = append(errs, fmt.Errorf("profiles.base and profiles.deny_all must differ"))
	}
	if strings.HasPrefix(c.Profiles.Base, c.Profiles.JobPrefix) || strings.HasPrefix(c.Profiles.DenyAll, c.Profiles.JobPrefix) {
		errs = append(errs, fmt.Errorf("profiles.job_prefix %q must not prefix the base or deny-all profile names", c.Profiles.JobPrefix))
	}

	if _, err := c.Loader.EnforceCommand(); err != nil {
		errs = append(errs, err)
	}
	if _, err := c.Loader.ComplainCommand(); err != nil {
		errs = append(errs, err)
	}

	if c.Binaries.Generator == "" {
		errs = append(errs, fmt.Errorf("binaries.generator is required"))
	}
	if c.Binaries.Wrapper == "" {
		errs = append(errs, fmt.Errorf("binaries.wrapper is required"))
	}

	launchModes := []string{LaunchDisabled, LaunchComplain, LaunchEnforce}
	if !contains(launchModes, c.Launch.Mode) {
		errs = append(errs, fmt.Errorf("launch.mode must be one of: %v", launchModes))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

func contains(slice []string, s string) bool {
	for _, v := range slice {
		if v == s {
			return true
		}
	}
	return false
}
