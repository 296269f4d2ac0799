// Copyright 2026 The Autoarmor Authors
// SPDX-License-Identifier: Apache-2.0

package armor

import (
	"errors"
	"fmt"
	"os"
	"testing"
)

func TestErrorChain(t *testing.T) {
	t.Parallel()

	inner := &Error{Kind: KindFilesystem, Err: fmt.Errorf("creating profile: %w", os.ErrPermission)}
	staged := &StageError{Stage: StageJobInstalled, Err: inner}
	wrapped := fmt.Errorf("autoarmor-genprof: %w", staged)

	if kind := KindOf(wrapped); kind != KindFilesystem {
		t.Errorf("KindOf = %q, want %q", kind, KindFilesystem)
	}
	if !errors.Is(wrapped, os.ErrPermission) {
		t.Error("errors.Is should reach the underlying os error")
	}
	stage, ok := FailedStage(wrapped)
	if !ok || stage != StageJobInstalled {
		t.Errorf("FailedStage = %q, %v", stage, ok)
	}
	if got := staged.Error(); got != "job-installed: creating profile: permission denied" {
		t.Errorf("StageError.Error() = %q", got)
	}
}

func TestKindOfPlainError(t *testing.T) {
	t.Parallel()

	if kind := KindOf(errors.New("plain")); kind != "" {
		t.Errorf("KindOf(plain) = %q, want empty", kind)
	}
	if IsUsage(nil) {
		t.Error("IsUsage(nil) should be false")
	}
	if _, ok := FailedStage(errors.New("plain")); ok {
		t.Error("FailedStage(plain) should report no stage")
	}
}

func TestUsage(t *testing.T) {
	t.Parallel()

	err := Usage("expected %d arguments", 3)
	if !IsUsage(err) {
		t.Error("Usage should produce a usage error")
	}
	if err.Error() != "expected 3 arguments" {
		t.Errorf("message = %q", err.Error())
	}
}
