// Copyright 2026 The Autoarmor Authors
// SPDX-License-Identifier: Apache-2.0

package armor

import (
	"context"
	"slices"
	"sync"
	"sync/atomic"
)

// testPrivilege stands in for a successful AcquirePrivilege so store
// tests run without root.
func testPrivilege() *Privilege {
	return &Privilege{verified: true}
}

// fakeIdentity reports fixed credentials.
type fakeIdentity struct {
	setuidErr   error
	setuidCalls atomic.Int32
	uid         int
	euid        int
}

func (f *fakeIdentity) Setuid(int) error {
	f.setuidCalls.Add(1)
	return f.setuidErr
}
func (f *fakeIdentity) Getuid() int  { return f.uid }
func (f *fakeIdentity) Geteuid() int { return f.euid }

// rootIdentity behaves like a correctly installed setuid-root binary.
func rootIdentity() *fakeIdentity { return &fakeIdentity{} }

// recordingActivator records every activation in order and fails for
// profiles listed in failures.
type recordingActivator struct {
	mu       sync.Mutex
	calls    []ActivationRequest
	failures map[string]error
}

func (a *recordingActivator) Activate(_ context.Context, request ActivationRequest) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.calls = append(a.calls, request)
	return a.failures[request.Profile]
}

func (a *recordingActivator) Calls() []ActivationRequest {
	a.mu.Lock()
	defer a.mu.Unlock()
	return slices.Clone(a.calls)
}

// fakeRunner records argv and answers with respond, or success when
// respond is nil.
type fakeRunner struct {
	mu      sync.Mutex
	calls   [][]string
	respond func(argv []string) Outcome
}

func (r *fakeRunner) Run(_ context.Context, argv []string) Outcome {
	r.mu.Lock()
	r.calls = append(r.calls, slices.Clone(argv))
	respond := r.respond
	r.mu.Unlock()
	if respond == nil {
		return Outcome{Kind: Exited}
	}
	return respond(argv)
}

func (r *fakeRunner) Calls() [][]string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.calls)
}

// fakeTransitioner records requested profiles.
type fakeTransitioner struct {
	mu          sync.Mutex
	execErr     error
	changeErr   error
	execCalls   []string
	changeCalls []string
}

func (f *fakeTransitioner) ExecTransition(profile string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.execCalls = append(f.execCalls, profile)
	return f.execErr
}

func (f *fakeTransitioner) ChangeProfile(profile string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.changeCalls = append(f.changeCalls, profile)
	return f.changeErr
}

// fakeExecer records the command instead of replacing the process.
type fakeExecer struct {
	calls [][]string
	err   error
}

func (f *fakeExecer) Exec(argv []string, _ []string) error {
	f.calls = append(f.calls, slices.Clone(argv))
	return f.err
}
