// Copyright 2026 The Autoarmor Authors
// SPDX-License-Identifier: Apache-2.0

package armor

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"runtime"

	"golang.org/x/sys/unix"

	"github.com/autoarmor/autoarmor/lib/config"
)

// Execer replaces the current process image. On success it does not
// return.
type Execer interface {
	Exec(argv []string, env []string) error
}

// ProcessExecer resolves argv[0] through PATH and calls execve.
type ProcessExecer struct{}

func (ProcessExecer) Exec(argv []string, env []string) error {
	binary, err := exec.LookPath(argv[0])
	if err != nil {
		return err
	}
	return unix.Exec(binary, argv, env)
}

// Wrapper is the unprivileged confinement entry point. It never gains
// privilege: it asks the already-loaded policy to apply a pre-installed
// job profile to the next program it executes.
//
// Running a command is a two-step contract. [Wrapper.RequestTransition]
// returns an [Armed] value only when the transition request succeeded,
// and [Armed.Exec] is the only way to run the command, so a command can
// never be started after a failed request.
type Wrapper struct {
	profiles     config.ProfilesConfig
	transitioner Transitioner
	execer       Execer
	logger       *slog.Logger
}

// WrapperConfig holds the collaborators of a [Wrapper].
type WrapperConfig struct {
	Profiles config.ProfilesConfig

	// Transitioner defaults to [ProcTransitioner] on /proc.
	Transitioner Transitioner

	// Execer defaults to [ProcessExecer].
	Execer Execer

	Logger *slog.Logger
}

// NewWrapper creates a wrapper.
func NewWrapper(cfg WrapperConfig) *Wrapper {
	wrapper := &Wrapper{
		profiles:     cfg.Profiles,
		transitioner: cfg.Transitioner,
		execer:       cfg.Execer,
		logger:       cfg.Logger,
	}
	if wrapper.transitioner == nil {
		wrapper.transitioner = ProcTransitioner{}
	}
	if wrapper.execer == nil {
		wrapper.execer = ProcessExecer{}
	}
	if wrapper.logger == nil {
		wrapper.logger = slog.Default()
	}
	return wrapper
}

// Armed is a successful transition request. The goroutine that called
// RequestTransition stays locked to its OS thread, and Exec must be
// called from that same goroutine: the request applies to that thread
// only.
type Armed struct {
	profile string
	execer  Execer
	logger  *slog.Logger
}

// Profile returns the profile the next exec will be confined to.
func (a *Armed) Profile() string { return a.profile }

// RequestTransition asks for the job's profile to be applied on the next
// exec. On error the caller must exit without running anything.
func (w *Wrapper) RequestTransition(job string) (*Armed, error) {
	if err := ValidateJobName(job); err != nil {
		return nil, err
	}
	profile := w.profiles.JobProfileName(job)

	// Held until exec on success. On a failed request the thread is
	// returned to the scheduler; nothing was confined.
	runtime.LockOSThread()
	if err := w.transitioner.ExecTransition(profile); err != nil {
		runtime.UnlockOSThread()
		return nil, &Error{Kind: KindTransition, Err: fmt.Errorf("requesting confinement under %s: %w", profile, err)}
	}

	w.logger.Debug("confinement requested", "profile", profile)
	return &Armed{profile: profile, execer: w.execer, logger: w.logger}, nil
}

// Exec replaces the process with argv under the armed profile. It
// returns only on failure. No confinement state is undone: the failing
// process is about to exit.
func (a *Armed) Exec(argv []string) error {
	if a == nil || a.execer == nil {
		return newError(KindTransition, "exec without a successful confinement request")
	}
	if len(argv) == 0 {
		return Usage("no command to run")
	}

	a.logger.Debug("executing confined command", "profile", a.profile, "command", argv[0])
	err := a.execer.Exec(argv, os.Environ())
	if err == nil {
		err = errors.New("exec returned without replacing the process")
	}
	return &Error{Kind: KindExec, Err: fmt.Errorf("executing %s under %s: %w", argv[0], a.profile, err)}
}

// Run is RequestTransition followed by Exec.
func (w *Wrapper) Run(job string, argv []string) error {
	if len(argv) == 0 {
		return Usage("no command to run")
	}
	armed, err := w.RequestTransition(job)
	if err != nil {
		return err
	}
	return armed.Exec(argv)
}
