// Copyright 2026 The Autoarmor Authors
// SPDX-License-Identifier: Apache-2.0

package armor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"runtime"

	"github.com/autoarmor/autoarmor/lib/config"
)

// SelfTestConfig holds the collaborators of a [SelfTest].
type SelfTestConfig struct {
	Config *config.Config

	// Runner spawns the generator. Defaults to an [ExecRunner] sharing
	// this process's stdio.
	Runner Runner

	// Transitioner confines the probing thread. Defaults to
	// [ProcTransitioner] on /proc.
	Transitioner Transitioner

	// Probe attempts to read a file. Defaults to opening it for reading.
	Probe func(path string) error

	Logger *slog.Logger
}

// SelfTest cross-checks both halves of the system on this host: the
// privileged generator installs and enforces the deny-all canary, and
// a thread confined by that canary is really denied the credential
// database. There is no partial result; any failing step fails the
// test.
type SelfTest struct {
	config       *config.Config
	runner       Runner
	transitioner Transitioner
	probe        func(string) error
	logger       *slog.Logger
}

// NewSelfTest creates a self-test.
func NewSelfTest(cfg SelfTestConfig) *SelfTest {
	selfTest := &SelfTest{
		config:       cfg.Config,
		runner:       cfg.Runner,
		transitioner: cfg.Transitioner,
		probe:        cfg.Probe,
		logger:       cfg.Logger,
	}
	if selfTest.runner == nil {
		selfTest.runner = InheritStdio()
	}
	if selfTest.transitioner == nil {
		selfTest.transitioner = ProcTransitioner{}
	}
	if selfTest.probe == nil {
		selfTest.probe = openForRead
	}
	if selfTest.logger == nil {
		selfTest.logger = slog.Default()
	}
	return selfTest
}

func openForRead(path string) error {
	file, err := os.Open(path)
	if err != nil {
		return err
	}
	return file.Close()
}

// Run executes the three steps in order.
func (s *SelfTest) Run(ctx context.Context) error {
	generator := s.config.Binaries.Generator
	outcome := s.runner.Run(ctx, []string{generator, "--self-test"})
	if !outcome.Success() {
		return newError(KindSelfTest, "generator self-test (%s --self-test) %s", generator, outcome)
	}
	s.logger.Debug("generator self-test passed", "generator", generator)

	if err := s.probeUnderCanary(); err != nil {
		return err
	}
	s.logger.Info("self-test passed", "profile", s.config.Profiles.DenyAll, "denied", CredentialDatabase)
	return nil
}

// probeUnderCanary confines a dedicated OS thread under the deny-all
// profile and reads the credential database from it. The goroutine
// exits without unlocking, so the runtime discards the confined thread
// instead of reusing it.
func (s *SelfTest) probeUnderCanary() error {
	result := make(chan error, 1)
	go func() {
		runtime.LockOSThread()

		profile := s.config.Profiles.DenyAll
		if err := s.transitioner.ChangeProfile(profile); err != nil {
			result <- &Error{Kind: KindSelfTest, Err: fmt.Errorf("changing to profile %s: %w", profile, err)}
			return
		}

		err := s.probe(CredentialDatabase)
		if err == nil {
			result <- newError(KindSelfTest, "read of %s succeeded under %s: confinement is not in effect", CredentialDatabase, profile)
			return
		}
		if !errors.Is(err, os.ErrPermission) {
			s.logger.Warn("credential probe failed with an unexpected error", "path", CredentialDatabase, "error", err)
		}
		result <- nil
	}()
	return <-result
}
