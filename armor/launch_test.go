// Copyright 2026 The Autoarmor Authors
// SPDX-License-Identifier: Apache-2.0

package armor

import (
	"context"
	"errors"
	"slices"
	"syscall"
	"testing"

	"github.com/autoarmor/autoarmor/lib/config"
	"github.com/autoarmor/autoarmor/lib/logging"
	"github.com/autoarmor/autoarmor/lib/process"
	"github.com/autoarmor/autoarmor/lib/testutil"
)

func newTestLauncher(t *testing.T, runner Runner, enabled bool) *Launcher {
	t.Helper()
	cfg := testutil.Config(t)
	cfg.Binaries.Generator = "/usr/bin/autoarmor-genprof"
	cfg.Binaries.Wrapper = "/usr/bin/autoarmor-wrapper"
	return NewLauncher(LauncherConfig{
		Config:          cfg,
		Runner:          runner,
		AppArmorEnabled: func() bool { return enabled },
		Logger:          logging.Discard(),
	})
}

func launchRequest(mode string) LaunchRequest {
	return LaunchRequest{
		WorkspaceRoot: "/srv/ci",
		Job:           "build42",
		Command:       []string{"make", "-j4", "test"},
		Mode:          mode,
	}
}

func TestLaunchPrepareConfined(t *testing.T) {
	t.Parallel()

	runner := &fakeRunner{}
	argv, err := newTestLauncher(t, runner, true).Prepare(context.Background(), launchRequest(config.LaunchEnforce))
	if err != nil {
		t.Fatalf("Prepare: %v", err)
	}

	want := []string{"/usr/bin/autoarmor-wrapper", "build42", "make", "-j4", "test"}
	if !slices.Equal(argv, want) {
		t.Errorf("argv = %q, want %q", argv, want)
	}

	wantCalls := [][]string{
		{"/usr/bin/autoarmor-wrapper", "--self-test"},
		{"/usr/bin/autoarmor-genprof", "/srv/ci", "build42", "enforce"},
	}
	if calls := runner.Calls(); !slices.EqualFunc(calls, wantCalls, slices.Equal[[]string]) {
		t.Errorf("runner calls = %q, want %q", calls, wantCalls)
	}
}

func TestLaunchPrepareDisabled(t *testing.T) {
	t.Parallel()

	runner := &fakeRunner{}
	request := launchRequest(config.LaunchDisabled)
	argv, err := newTestLauncher(t, runner, true).Prepare(context.Background(), request)
	if err != nil {
		t.Fatalf("Prepare: %v", err)
	}
	if !slices.Equal(argv, request.Command) {
		t.Errorf("argv = %q, want the unchanged command", argv)
	}
	if calls := runner.Calls(); len(calls) != 0 {
		t.Errorf("disabled mode must not run anything, got %q", calls)
	}
}

func TestLaunchPrepareWithoutAppArmor(t *testing.T) {
	t.Parallel()

	runner := &fakeRunner{}
	launcher := newTestLauncher(t, runner, false)

	request := launchRequest(config.LaunchComplain)
	if _, err := launcher.Prepare(context.Background(), request); err == nil {
		t.Error("expected an error when AppArmor is absent and not ignored")
	}

	request.IgnoreNoAppArmor = true
	argv, err := launcher.Prepare(context.Background(), request)
	if err != nil {
		t.Fatalf("Prepare: %v", err)
	}
	if !slices.Equal(argv, request.Command) {
		t.Errorf("argv = %q, want the unchanged command", argv)
	}
	if calls := runner.Calls(); len(calls) != 0 {
		t.Errorf("nothing should run without AppArmor, got %q", calls)
	}
}

func TestLaunchPrepareFailures(t *testing.T) {
	t.Parallel()

	t.Run("self-test fails", func(t *testing.T) {
		t.Parallel()
		runner := &fakeRunner{respond: func([]string) Outcome { return Outcome{Kind: Exited, Code: 1} }}
		_, err := newTestLauncher(t, runner, true).Prepare(context.Background(), launchRequest(config.LaunchEnforce))
		if KindOf(err) != KindSelfTest {
			t.Fatalf("Prepare = %v, want self-test error", err)
		}
		if calls := runner.Calls(); len(calls) != 1 {
			t.Errorf("the generator must not run after a failed self-test, got %q", calls)
		}
	})

	t.Run("generator fails", func(t *testing.T) {
		t.Parallel()
		runner := &fakeRunner{respond: func(argv []string) Outcome {
			if argv[0] == "/usr/bin/autoarmor-genprof" {
				return Outcome{Kind: Exited, Code: 1}
			}
			return Outcome{Kind: Exited}
		}}
		_, err := newTestLauncher(t, runner, true).Prepare(context.Background(), launchRequest(config.LaunchEnforce))
		if KindOf(err) != KindActivation {
			t.Fatalf("Prepare = %v, want activation error", err)
		}
	})

	t.Run("invalid job", func(t *testing.T) {
		t.Parallel()
		runner := &fakeRunner{}
		request := launchRequest(config.LaunchEnforce)
		request.Job = "build 42"
		if _, err := newTestLauncher(t, runner, true).Prepare(context.Background(), request); !IsUsage(err) {
			t.Fatalf("Prepare = %v, want usage error", err)
		}
		if calls := runner.Calls(); len(calls) != 0 {
			t.Errorf("nothing should run for an invalid job, got %q", calls)
		}
	})

	t.Run("invalid mode", func(t *testing.T) {
		t.Parallel()
		if _, err := newTestLauncher(t, &fakeRunner{}, true).Prepare(context.Background(), launchRequest("sometimes")); !IsUsage(err) {
			t.Fatalf("Prepare = %v, want usage error", err)
		}
	})

	t.Run("empty command", func(t *testing.T) {
		t.Parallel()
		request := launchRequest(config.LaunchEnforce)
		request.Command = nil
		if _, err := newTestLauncher(t, &fakeRunner{}, true).Prepare(context.Background(), request); !IsUsage(err) {
			t.Fatalf("Prepare = %v, want usage error", err)
		}
	})
}

func TestLaunchRunPropagatesExitStatus(t *testing.T) {
	t.Parallel()

	jobOutcome := func(outcome Outcome) *fakeRunner {
		return &fakeRunner{respond: func(argv []string) Outcome {
			if argv[0] == "/usr/bin/autoarmor-wrapper" && len(argv) > 1 && argv[1] == "build42" {
				return outcome
			}
			return Outcome{Kind: Exited}
		}}
	}

	tests := []struct {
		name    string
		outcome Outcome
		code    int
	}{
		{"success", Outcome{Kind: Exited}, 0},
		{"failure", Outcome{Kind: Exited, Code: 2}, 2},
		{"signal", Outcome{Kind: Signaled, Signal: syscall.SIGTERM}, 128 + int(syscall.SIGTERM)},
		{"spawn failure", Outcome{Kind: SpawnFailed, Err: errors.New("no such file")}, 1},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			t.Parallel()
			err := newTestLauncher(t, jobOutcome(test.outcome), true).
				Run(context.Background(), launchRequest(config.LaunchEnforce))
			if code := process.ExitCode(err); code != test.code {
				t.Errorf("exit code = %d (%v), want %d", code, err, test.code)
			}
		})
	}
}
