// Copyright 2026 The Autoarmor Authors
// SPDX-License-Identifier: Apache-2.0

package armor

import (
	"context"
	"log/slog"
	"path/filepath"
	"slices"

	"github.com/autoarmor/autoarmor/lib/config"
)

// Mode is an activation mode. It belongs to the activation, not to the
// stored profile.
type Mode string

const (
	// Complain logs policy violations without blocking them.
	Complain Mode = "complain"

	// Enforce blocks policy violations.
	Enforce Mode = "enforce"
)

// ParseMode accepts exactly "complain" or "enforce".
func ParseMode(token string) (Mode, error) {
	switch Mode(token) {
	case Complain, Enforce:
		return Mode(token), nil
	default:
		return "", Usage("invalid mode %q: must be %q or %q", token, Complain, Enforce)
	}
}

// ActivationRequest names an installed profile and the mode to load it
// in.
type ActivationRequest struct {
	Profile string
	Mode    Mode
}

// ProfileActivator loads an installed profile into the kernel.
type ProfileActivator interface {
	Activate(ctx context.Context, request ActivationRequest) error
}

// Activator switches installed profiles between complain and enforce by
// running the configured external loader with the profile file path as
// its final argument.
type Activator struct {
	directory string
	enforce   []string
	complain  []string
	runner    Runner
	logger    *slog.Logger
}

// NewActivator creates an activator for the profiles in cfg.
func NewActivator(cfg *config.Config, runner Runner, logger *slog.Logger) (*Activator, error) {
	enforce, err := cfg.Loader.EnforceCommand()
	if err != nil {
		return nil, err
	}
	complain, err := cfg.Loader.ComplainCommand()
	if err != nil {
		return nil, err
	}
	return &Activator{
		directory: cfg.Profiles.Directory,
		enforce:   enforce,
		complain:  complain,
		runner:    runner,
		logger:    logger,
	}, nil
}

// Activate blocks until the loader exits. Only a normal exit with
// status 0 is success; the caller must not assume the profile is in
// force after any error.
func (a *Activator) Activate(ctx context.Context, request ActivationRequest) error {
	var loader []string
	switch request.Mode {
	case Enforce:
		loader = a.enforce
	case Complain:
		loader = a.complain
	default:
		return newError(KindActivation, "cannot activate %s: unknown mode %q", request.Profile, request.Mode)
	}
	if err := validateProfileName(request.Profile); err != nil {
		return err
	}

	profilePath := filepath.Join(a.directory, request.Profile)
	argv := append(slices.Clone(loader), profilePath)

	a.logger.Debug("running policy loader", "loader", loader[0], "profile", request.Profile, "mode", request.Mode)
	outcome := a.runner.Run(ctx, argv)
	if !outcome.Success() {
		return newError(KindActivation, "loader %s for %s %s", loader[0], profilePath, outcome)
	}

	a.logger.Info("profile activated", "profile", request.Profile, "mode", request.Mode)
	return nil
}
