// Copyright 2026 The Autoarmor Authors
// SPDX-License-Identifier: Apache-2.0

package armor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"

	"github.com/google/uuid"

	"github.com/autoarmor/autoarmor/lib/config"
)

// LaunchRequest describes one CI job to run.
type LaunchRequest struct {
	WorkspaceRoot string
	Job           string
	Command       []string

	// Mode is disabled, complain, or enforce.
	Mode string

	// IgnoreNoAppArmor runs the job unconfined, with a warning, when
	// AppArmor is not enabled on the host.
	IgnoreNoAppArmor bool
}

// LauncherConfig holds the collaborators of a [Launcher].
type LauncherConfig struct {
	Config *config.Config

	// Runner runs the wrapper self-test, the generator, and the job.
	// Defaults to an [ExecRunner] sharing this process's stdio.
	Runner Runner

	// AppArmorEnabled reports whether the LSM is active. Defaults to
	// reading the kernel module parameter.
	AppArmorEnabled func() bool

	Logger *slog.Logger
}

// Launcher decorates CI job commands: it checks confinement works on
// this host, provisions the job's profile through the setuid generator,
// and prefixes the command with the wrapper.
type Launcher struct {
	config  *config.Config
	runner  Runner
	enabled func() bool
	logger  *slog.Logger
}

// NewLauncher creates a launcher.
func NewLauncher(cfg LauncherConfig) *Launcher {
	launcher := &Launcher{
		config:  cfg.Config,
		runner:  cfg.Runner,
		enabled: cfg.AppArmorEnabled,
		logger:  cfg.Logger,
	}
	if launcher.runner == nil {
		launcher.runner = InheritStdio()
	}
	if launcher.enabled == nil {
		launcher.enabled = func() bool { return appArmorEnabled(DefaultHostPaths().Enabled) }
	}
	if launcher.logger == nil {
		launcher.logger = slog.Default()
	}
	return launcher
}

// Prepare provisions the job and returns the argv to run. In disabled
// mode, or when AppArmor is absent and IgnoreNoAppArmor is set, the
// command is returned unchanged and runs unconfined.
func (l *Launcher) Prepare(ctx context.Context, request LaunchRequest) ([]string, error) {
	if len(request.Command) == 0 {
		return nil, Usage("no command to run")
	}
	logger := l.logger.With("run_id", uuid.NewString(), "job", request.Job)

	switch request.Mode {
	case config.LaunchDisabled:
		logger.Debug("confinement disabled; running unconfined")
		return request.Command, nil
	case config.LaunchComplain, config.LaunchEnforce:
	default:
		return nil, Usage("invalid launch mode %q: must be %s, %s, or %s",
			request.Mode, config.LaunchDisabled, config.LaunchComplain, config.LaunchEnforce)
	}

	if !l.enabled() {
		if !request.IgnoreNoAppArmor {
			return nil, errors.New("AppArmor is not enabled on this host; refusing to run the job unconfined")
		}
		logger.Warn("AppArmor is not enabled on this host; running the job unconfined")
		return request.Command, nil
	}

	job := JobIdentity{Name: request.Job, WorkspaceRoot: request.WorkspaceRoot}
	if err := job.Validate(); err != nil {
		return nil, err
	}

	wrapper, generator := l.config.Binaries.Wrapper, l.config.Binaries.Generator

	if outcome := l.runner.Run(ctx, []string{wrapper, "--self-test"}); !outcome.Success() {
		return nil, newError(KindSelfTest, "confinement self-test (%s --self-test) %s", wrapper, outcome)
	}
	logger.Debug("confinement self-test passed")

	provision := []string{generator, job.WorkspaceRoot, job.Name, request.Mode}
	if outcome := l.runner.Run(ctx, provision); !outcome.Success() {
		return nil, newError(KindActivation, "provisioning profile for job %s (%s) %s", job.Name, generator, outcome)
	}
	logger.Info("job profile provisioned", "profile", l.config.Profiles.JobProfileName(job.Name), "mode", request.Mode)

	return append([]string{wrapper, job.Name}, slices.Clone(request.Command)...), nil
}

// Run prepares the job and runs it. A job that exits non-zero is
// reported as an *[ExitStatus] carrying its code.
func (l *Launcher) Run(ctx context.Context, request LaunchRequest) error {
	argv, err := l.Prepare(ctx, request)
	if err != nil {
		return err
	}

	outcome := l.runner.Run(ctx, argv)
	switch outcome.Kind {
	case Exited:
		if outcome.Code == 0 {
			return nil
		}
		return &ExitStatus{Code: outcome.Code}
	case Signaled:
		return &ExitStatus{Code: 128 + int(outcome.Signal), Signal: outcome.Signal.String()}
	default:
		return &Error{Kind: KindExec, Err: fmt.Errorf("starting %s: %w", argv[0], outcome.Err)}
	}
}

// ExitStatus is a job that ran and failed. Its code becomes the
// launcher's own exit code.
type ExitStatus struct {
	Code   int
	Signal string
}

func (e *ExitStatus) Error() string {
	if e.Signal != "" {
		return fmt.Sprintf("job killed by signal %s", e.Signal)
	}
	return fmt.Sprintf("job exited with status %d", e.Code)
}

// ExitCode returns the process exit code to propagate.
func (e *ExitStatus) ExitCode() int { return e.Code }
