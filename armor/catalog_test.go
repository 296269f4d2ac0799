// Copyright 2026 The Autoarmor Authors
// SPDX-License-Identifier: Apache-2.0

package armor

import (
	"strings"
	"testing"

	"github.com/autoarmor/autoarmor/lib/config"
)

func testProfiles() config.ProfilesConfig {
	profiles := config.Default().Profiles
	profiles.Base = "base"
	profiles.DenyAll = "denyall"
	profiles.JobPrefix = "job-"
	return profiles
}

func TestJobProfileScope(t *testing.T) {
	t.Parallel()

	catalog := NewCatalog(testProfiles(), "/home/ci")
	profile, err := catalog.Job(JobIdentity{Name: "build42", WorkspaceRoot: "/srv/ci"})
	if err != nil {
		t.Fatalf("Job: %v", err)
	}

	if profile.Name != "job-build42" {
		t.Errorf("profile name = %q, want job-build42", profile.Name)
	}
	if !strings.Contains(profile.Body, "profile job-build42 {") {
		t.Errorf("body does not declare the profile:\n%s", profile.Body)
	}
	if !strings.Contains(profile.Body, "  /srv/ci/build42/** rwkix,\n") {
		t.Errorf("body lacks the exact scope rule:\n%s", profile.Body)
	}
	// The workspace root must appear only inside the job's scope rule.
	if count := strings.Count(profile.Body, "/srv/ci"); count != 1 {
		t.Errorf("workspace root appears %d times, want 1:\n%s", count, profile.Body)
	}
	for _, want := range []string{"capability setuid,", "capability setgid,", "/usr/lib/gcc/** rix,", "/etc/ssl/** r,"} {
		if !strings.Contains(profile.Body, want) {
			t.Errorf("body lacks %q", want)
		}
	}
}

func TestJobProfilesNeverShareScope(t *testing.T) {
	t.Parallel()

	catalog := NewCatalog(testProfiles(), "")
	first := JobIdentity{Name: "build", WorkspaceRoot: "/srv/ci"}
	second := JobIdentity{Name: "build2", WorkspaceRoot: "/srv/ci"}

	firstProfile, err := catalog.Job(first)
	if err != nil {
		t.Fatalf("Job(first): %v", err)
	}
	secondProfile, err := catalog.Job(second)
	if err != nil {
		t.Fatalf("Job(second): %v", err)
	}

	if strings.Contains(firstProfile.Body, second.Scope()) {
		t.Error("first job profile grants the second job's scope")
	}
	if strings.Contains(secondProfile.Body, first.Scope()) {
		t.Error("second job profile grants the first job's scope")
	}
	if ScopeCovers(first, "/srv/ci/build2/output.o") {
		t.Error("job build must not cover build2's directory")
	}
	if ScopeCovers(second, "/srv/ci/build/output.o") {
		t.Error("job build2 must not cover build's directory")
	}
}

func TestScopeCovers(t *testing.T) {
	t.Parallel()

	job := JobIdentity{Name: "build42", WorkspaceRoot: "/srv/ci"}
	tests := []struct {
		path string
		want bool
	}{
		{"/srv/ci/build42/main.go", true},
		{"/srv/ci/build42/src/deep/file.c", true},
		{"/srv/ci/build420/main.go", false},
		{"/srv/ci/other/main.go", false},
		{"/srv/ci/secrets", false},
		{"/srv/build42/main.go", false},
		{"/etc/passwd", false},
	}
	for _, test := range tests {
		t.Run(test.path, func(t *testing.T) {
			t.Parallel()
			if got := ScopeCovers(job, test.path); got != test.want {
				t.Errorf("ScopeCovers(%q) = %v, want %v", test.path, got, test.want)
			}
		})
	}
}

func TestJobRejectsUnsafeIdentity(t *testing.T) {
	t.Parallel()

	catalog := NewCatalog(testProfiles(), "")
	for _, job := range []JobIdentity{
		{Name: "..", WorkspaceRoot: "/srv/ci"},
		{Name: "a/b", WorkspaceRoot: "/srv/ci"},
		{Name: "x", WorkspaceRoot: "/srv/**"},
		{Name: "x", WorkspaceRoot: "srv"},
	} {
		if _, err := catalog.Job(job); !IsUsage(err) {
			t.Errorf("Job(%+v) = %v, want usage error", job, err)
		}
	}
}

func TestJobCacheRules(t *testing.T) {
	t.Parallel()

	job := JobIdentity{Name: "build42", WorkspaceRoot: "/srv/ci"}

	withHome, err := NewCatalog(testProfiles(), "/home/ci").Job(job)
	if err != nil {
		t.Fatalf("Job: %v", err)
	}
	for _, want := range []string{
		"owner /home/ci/.cache/go-build{,/**} rwk,",
		"owner /home/ci/.npm{,/**} rwk,",
		"owner /home/ci/.m2/repository{,/**} rwk,",
	} {
		if !strings.Contains(withHome.Body, want) {
			t.Errorf("body lacks %q", want)
		}
	}

	for _, home := range []string{"", "/", "relative", "/home/c i", "/home/*"} {
		profile, err := NewCatalog(testProfiles(), home).Job(job)
		if err != nil {
			t.Fatalf("Job with HOME=%q: %v", home, err)
		}
		if strings.Contains(profile.Body, "package manager caches") {
			t.Errorf("HOME=%q should omit cache rules:\n%s", home, profile.Body)
		}
	}
}

func TestBaseIncludeDirective(t *testing.T) {
	t.Parallel()

	job := JobIdentity{Name: "build42", WorkspaceRoot: "/srv/ci"}

	system := config.Default().Profiles
	profile, err := NewCatalog(system, "").Job(job)
	if err != nil {
		t.Fatalf("Job: %v", err)
	}
	if !strings.Contains(profile.Body, "#include <autoarmor/autoarmor-base>") {
		t.Errorf("system profile directory should use a search-path include:\n%s", profile.Body)
	}

	custom := testProfiles()
	custom.Directory = "/var/lib/autoarmor/profiles"
	profile, err = NewCatalog(custom, "").Job(job)
	if err != nil {
		t.Fatalf("Job: %v", err)
	}
	if !strings.Contains(profile.Body, `#include "/var/lib/autoarmor/profiles/base"`) {
		t.Errorf("custom profile directory should use an absolute include:\n%s", profile.Body)
	}
}

func TestBaseAndDenyAll(t *testing.T) {
	t.Parallel()

	catalog := NewCatalog(testProfiles(), "/home/ci")

	base := catalog.Base()
	if base.Name != "base" {
		t.Errorf("base name = %q", base.Name)
	}
	for _, want := range []string{"#include <abstractions/base>", "audit deny /etc/passwd r,", "/usr/{,s}bin/* rix,"} {
		if !strings.Contains(base.Body, want) {
			t.Errorf("base body lacks %q", want)
		}
	}

	denyAll := catalog.DenyAll()
	want := "profile denyall {\n  /dev/null rw,\n  deny /etc/passwd r,\n}\n"
	if denyAll.Name != "denyall" || denyAll.Body != want {
		t.Errorf("DenyAll() = %q %q, want denyall %q", denyAll.Name, denyAll.Body, want)
	}
}
