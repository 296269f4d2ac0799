// Copyright 2026 The Autoarmor Authors
// SPDX-License-Identifier: Apache-2.0

package armor

import (
	"errors"
	"fmt"
)

// ErrorKind classifies autoarmor failures. Every kind is fatal to the
// command that detects it; nothing is retried.
type ErrorKind string

const (
	// KindPrivilege: the generator is not running with real and
	// effective uid 0.
	KindPrivilege ErrorKind = "privilege"

	// KindDirectory: the profile directory could not be created.
	KindDirectory ErrorKind = "directory"

	// KindFilesystem: an exclusive create or full write of a profile
	// failed for a reason other than the file already existing.
	KindFilesystem ErrorKind = "filesystem"

	// KindActivation: an external loader was missing, exited non-zero,
	// or was killed by a signal.
	KindActivation ErrorKind = "activation"

	// KindUsage: wrong argument count, invalid mode token, invalid
	// identifier, or a nonexistent workspace root.
	KindUsage ErrorKind = "usage"

	// KindTransition: the wrapper's confinement request failed. The
	// target command is never started.
	KindTransition ErrorKind = "transition"

	// KindExec: the target command could not be loaded after a
	// successful transition.
	KindExec ErrorKind = "exec"

	// KindSelfTest: a self-test step did not hold.
	KindSelfTest ErrorKind = "self-test"
)

// Error is a categorized autoarmor error. It wraps an inner error,
// preserving the chain for errors.Is and errors.As while adding the
// kind that callers use to pick help text and exit behaviour.
type Error struct {
	// Kind classifies the error.
	Kind ErrorKind

	// Err is the underlying error with the human-readable message.
	Err error
}

// Error returns the underlying error message.
func (e *Error) Error() string { return e.Err.Error() }

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error { return e.Err }

func newError(kind ErrorKind, format string, args ...any) *Error {
	return &Error{Kind: kind, Err: fmt.Errorf(format, args...)}
}

// Usage creates a usage error: the caller supplied bad arguments.
func Usage(format string, args ...any) *Error {
	return newError(KindUsage, format, args...)
}

// KindOf returns the kind of the first [Error] in err's chain, or the
// empty string when there is none.
func KindOf(err error) ErrorKind {
	var categorized *Error
	if errors.As(err, &categorized) {
		return categorized.Kind
	}
	return ""
}

// IsUsage reports whether err is a usage error.
func IsUsage(err error) bool {
	return KindOf(err) == KindUsage
}

// Stage names one step of the provisioning sequence. Stages run in the
// order declared here; each is a precondition for the next.
type Stage string

const (
	StageIdentity           Stage = "identity-check"
	StageDirectory          Stage = "directory-ready"
	StageBaselineInstalled  Stage = "baseline-installed"
	StageBaselineActivated  Stage = "baseline-activated"
	StageSelfTest           Stage = "self-test"
	StageArgumentValidation Stage = "argument-validation"
	StageJobInstalled       Stage = "job-installed"
	StageJobActivated       Stage = "job-activated"
)

// StageError reports which provisioning stage failed. No assumption
// should be made about stages after the failed one.
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

// FailedStage returns the stage recorded in err's chain.
func FailedStage(err error) (Stage, bool) {
	var stageErr *StageError
	if errors.As(err, &stageErr) {
		return stageErr.Stage, true
	}
	return "", false
}
