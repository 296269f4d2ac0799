// Copyright 2026 The Autoarmor Authors
// SPDX-License-Identifier: Apache-2.0

package version

import (
	"bytes"
	"runtime"
	"strings"
	"testing"
)

func TestInfoMarksDirtyBuilds(t *testing.T) {
	originalDirty, originalCommit := GitDirty, GitCommit
	t.Cleanup(func() {
		GitDirty, GitCommit = originalDirty, originalCommit
	})

	GitCommit = "abc1234"
	GitDirty = "true"
	if info := Info(); !strings.Contains(info, "abc1234-dirty") {
		t.Errorf("expected dirty marker in %q", info)
	}

	GitDirty = "false"
	if info := Info(); strings.Contains(info, "-dirty") {
		t.Errorf("unexpected dirty marker in %q", info)
	}
}

func TestPrint(t *testing.T) {
	var buffer bytes.Buffer
	Print(&buffer, "autoarmor-genprof")

	output := buffer.String()
	if !strings.HasPrefix(output, "autoarmor-genprof "+Version) {
		t.Errorf("unexpected version line %q", output)
	}
	if !strings.HasSuffix(output, "\n") {
		t.Error("version line should end with a newline")
	}
}

func TestFullNamesToolchain(t *testing.T) {
	full := Full()
	if !strings.HasPrefix(full, Info()) {
		t.Errorf("Full() = %q, want it to start with Info()", full)
	}
	if !strings.Contains(full, runtime.Version()) || !strings.Contains(full, runtime.GOOS+"/"+runtime.GOARCH) {
		t.Errorf("Full() = %q lacks toolchain or platform", full)
	}
}
