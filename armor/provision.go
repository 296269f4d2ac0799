// Copyright 2026 The Autoarmor Authors
// SPDX-License-Identifier: Apache-2.0

package armor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path"

	"github.com/google/uuid"

	"github.com/autoarmor/autoarmor/lib/config"
)

// ProvisionerConfig holds the collaborators of a [Provisioner].
type ProvisionerConfig struct {
	// Config supplies profile names and directories. Required.
	Config *config.Config

	// Identity is checked and elevated in the identity-check stage.
	// Defaults to [HostIdentity].
	Identity Identity

	// Activator loads profiles. Required.
	Activator ProfileActivator

	// Home is the invoking user's home directory, used for the job
	// profile's cache rules. Usually os.Getenv("HOME").
	Home string

	Logger *slog.Logger
}

// ProvisionRequest is one generator invocation.
type ProvisionRequest struct {
	// SelfTest stops after the baseline is activated.
	SelfTest bool

	// Args are the raw positional arguments: workspace root, job name,
	// mode. Ignored when SelfTest is set.
	Args []string
}

// Provisioner is the privileged generator's entry sequence. Stages run
// in a fixed order and the first failure ends the run; nothing is
// retried. The deny-all canary is always installed and activated before
// any job profile is touched, so a broken policy subsystem is detected
// before a job is allowed to rely on it.
type Provisioner struct {
	config    *config.Config
	identity  Identity
	activator ProfileActivator
	catalog   *Catalog
	logger    *slog.Logger
}

// NewProvisioner creates a provisioner.
func NewProvisioner(cfg ProvisionerConfig) (*Provisioner, error) {
	if cfg.Config == nil {
		return nil, errors.New("provisioner requires a config")
	}
	if cfg.Activator == nil {
		return nil, errors.New("provisioner requires an activator")
	}
	identity := cfg.Identity
	if identity == nil {
		identity = HostIdentity{}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Provisioner{
		config:    cfg.Config,
		identity:  identity,
		activator: cfg.Activator,
		catalog:   NewCatalog(cfg.Config.Profiles, cfg.Home),
		logger:    logger,
	}, nil
}

// Run executes the stage sequence. A failure is returned as a
// *[StageError] naming the stage. A request with neither SelfTest nor
// arguments is rejected before any privileged step.
func (p *Provisioner) Run(ctx context.Context, request ProvisionRequest) error {
	if !request.SelfTest && len(request.Args) == 0 {
		return &StageError{Stage: StageArgumentValidation, Err: Usage("no job arguments given")}
	}
	logger := p.logger.With("run_id", uuid.NewString())

	privilege, err := AcquirePrivilege(p.identity)
	if err != nil {
		return &StageError{Stage: StageIdentity, Err: err}
	}

	store, err := NewStore(privilege, p.config.Profiles.Directory, logger)
	if err != nil {
		return &StageError{Stage: StageDirectory, Err: err}
	}
	if err := store.EnsureDirectory(); err != nil {
		return &StageError{Stage: StageDirectory, Err: err}
	}

	if err := p.installBase(store); err != nil {
		return &StageError{Stage: StageBaselineInstalled, Err: err}
	}
	if err := p.installAndActivate(ctx, store, p.catalog.DenyAll(), Enforce,
		StageBaselineInstalled, StageBaselineActivated, logger); err != nil {
		return err
	}

	if request.SelfTest {
		logger.Info("self-test passed: baseline installed and deny-all enforced")
		return nil
	}

	job, mode, err := parseJobArguments(request.Args)
	if err != nil {
		return &StageError{Stage: StageArgumentValidation, Err: err}
	}
	logger = logger.With("job", job.Name, "workspace_root", job.WorkspaceRoot)

	profile, err := p.catalog.Job(job)
	if err != nil {
		return &StageError{Stage: StageArgumentValidation, Err: err}
	}
	if err := p.installAndActivate(ctx, store, profile, mode,
		StageJobInstalled, StageJobActivated, logger); err != nil {
		return err
	}

	logger.Info("job profile ready", "profile", profile.Name, "mode", mode, "scope", job.Scope())
	return nil
}

func (p *Provisioner) installBase(store *Store) error {
	base := p.catalog.Base()
	lock, err := LockProfile(p.config.Profiles.LockDirectory, base.Name)
	if err != nil {
		return err
	}
	defer lock.Release()

	_, err = store.Write(base.Name, base.Body)
	return err
}

// installAndActivate writes a profile and loads it while holding the
// profile's lock, so concurrent runs for the same name take turns.
func (p *Provisioner) installAndActivate(ctx context.Context, store *Store, profile Profile, mode Mode,
	installStage, activateStage Stage, logger *slog.Logger) error {
	lock, err := LockProfile(p.config.Profiles.LockDirectory, profile.Name)
	if err != nil {
		return &StageError{Stage: installStage, Err: err}
	}
	defer lock.Release()

	result, err := store.Write(profile.Name, profile.Body)
	if err != nil {
		return &StageError{Stage: installStage, Err: err}
	}
	logger.Debug("profile stored", "profile", profile.Name, "result", result)

	// Activation runs even for an existing file: the mode is asserted
	// on every run.
	if err := p.activator.Activate(ctx, ActivationRequest{Profile: profile.Name, Mode: mode}); err != nil {
		return &StageError{Stage: activateStage, Err: err}
	}
	return nil
}

// parseJobArguments validates <workspace_root> <job_name> <mode>.
func parseJobArguments(args []string) (JobIdentity, Mode, error) {
	if len(args) != 3 {
		return JobIdentity{}, "", Usage("expected <workspace_root> <job_name> <mode>, got %d argument(s)", len(args))
	}
	mode, err := ParseMode(args[2])
	if err != nil {
		return JobIdentity{}, "", err
	}

	job := JobIdentity{WorkspaceRoot: args[0], Name: args[1]}
	if err := job.Validate(); err != nil {
		return JobIdentity{}, "", err
	}

	info, err := os.Stat(job.WorkspaceRoot)
	if err != nil {
		return JobIdentity{}, "", &Error{Kind: KindUsage, Err: fmt.Errorf("workspace root: %w", err)}
	}
	if !info.IsDir() {
		return JobIdentity{}, "", Usage("workspace root %s is not a directory", job.WorkspaceRoot)
	}

	if err := checkScopeIsolation(job); err != nil {
		return JobIdentity{}, "", err
	}
	return job, mode, nil
}

// checkScopeIsolation asserts that the catalog's scope rule covers the
// job directory and stops at its boundary: a sibling whose name extends
// the job name must stay outside it. For an identity that passed
// Validate it holds; it fails only if the scope rule itself regresses.
func checkScopeIsolation(job JobIdentity) error {
	inside := path.Join(job.Directory(), "workspace-probe")
	sibling := path.Join(job.WorkspaceRoot, job.Name+"-sibling", "workspace-probe")
	if !ScopeCovers(job, inside) || ScopeCovers(job, sibling) {
		return Usage("job %q does not produce an isolated scope under %s", job.Name, job.WorkspaceRoot)
	}
	return nil
}
