// Copyright 2026 The Autoarmor Authors
// SPDX-License-Identifier: Apache-2.0

package armor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"syscall"
)

// OutcomeKind classifies how a child process ended.
type OutcomeKind int

const (
	// Exited: the child ran and exited normally with Outcome.Code.
	Exited OutcomeKind = iota + 1

	// Signaled: the child was terminated by Outcome.Signal.
	Signaled

	// SpawnFailed: the child could not be started; Outcome.Err says why.
	SpawnFailed
)

// Outcome is the typed result of spawning a child and waiting for it.
type Outcome struct {
	Kind   OutcomeKind
	Code   int
	Signal syscall.Signal
	Err    error
}

// Success reports whether the child exited normally with status 0.
func (o Outcome) Success() bool {
	return o.Kind == Exited && o.Code == 0
}

func (o Outcome) String() string {
	switch o.Kind {
	case Exited:
		return fmt.Sprintf("exited with status %d", o.Code)
	case Signaled:
		return fmt.Sprintf("killed by signal %v", o.Signal)
	case SpawnFailed:
		return fmt.Sprintf("could not be started: %v", o.Err)
	default:
		return "unknown outcome"
	}
}

// Runner spawns a child process and blocks until it terminates. There
// is no timeout: a hung child hangs the caller.
type Runner interface {
	Run(ctx context.Context, argv []string) Outcome
}

// ExecRunner runs children on the host with os/exec. Nil streams are
// connected to the null device, as with exec.Cmd.
type ExecRunner struct {
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer

	// Env is the child environment; nil inherits the parent's.
	Env []string
}

// InheritStdio returns a runner whose children share this process's
// standard streams.
func InheritStdio() *ExecRunner {
	return &ExecRunner{Stdin: os.Stdin, Stdout: os.Stdout, Stderr: os.Stderr}
}

// LoaderEnvironment is the complete environment of loaders spawned by
// the privileged generator. The caller's environment is not passed on:
// once the real uid is root the dynamic linker no longer runs the child
// in secure mode and would honour LD_PRELOAD and friends.
var LoaderEnvironment = []string{
	"PATH=/usr/sbin:/usr/bin:/sbin:/bin",
	"LC_ALL=C",
}

// LoaderRunner returns the runner the generator uses for policy
// loaders: shared stdout and stderr, no stdin, a fixed environment.
func LoaderRunner() *ExecRunner {
	return &ExecRunner{Stdout: os.Stdout, Stderr: os.Stderr, Env: LoaderEnvironment}
}

// Run starts argv and waits for it.
func (r *ExecRunner) Run(ctx context.Context, argv []string) Outcome {
	if len(argv) == 0 {
		return Outcome{Kind: SpawnFailed, Err: errors.New("empty command")}
	}

	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Stdin = r.Stdin
	cmd.Stdout = r.Stdout
	cmd.Stderr = r.Stderr
	cmd.Env = r.Env

	if err := cmd.Start(); err != nil {
		return Outcome{Kind: SpawnFailed, Err: err}
	}
	return classifyWait(cmd.Wait())
}

func classifyWait(err error) Outcome {
	if err == nil {
		return Outcome{Kind: Exited, Code: 0}
	}
	var exitErr *exec.ExitError
	if !errors.As(err, &exitErr) {
		// Wait failed without the child's status (I/O copy error).
		return Outcome{Kind: SpawnFailed, Err: err}
	}
	if status, ok := exitErr.Sys().(syscall.WaitStatus); ok && status.Signaled() {
		return Outcome{Kind: Signaled, Signal: status.Signal()}
	}
	return Outcome{Kind: Exited, Code: exitErr.ExitCode()}
}
