// Copyright 2026 The Autoarmor Authors
// SPDX-License-Identifier: Apache-2.0

package armor

import (
	"bytes"
	"path"
	"strings"
	"text/template"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/autoarmor/autoarmor/lib/config"
)

// CredentialDatabase is the file every autoarmor profile denies read
// access to. A successful read under confinement means enforcement is
// not in effect.
const CredentialDatabase = "/etc/passwd"

// systemProfileRoot is where AppArmor resolves angle-bracket includes.
const systemProfileRoot = "/etc/apparmor.d"

// Profile is a named policy unit ready to be stored. Its activation
// mode is not part of the profile: the same body can be loaded in
// either mode.
type Profile struct {
	Name string
	Body string
}

// cacheDirectories are per-user package-manager caches, relative to
// HOME, that build tools write to. Each is granted rwk to its owner.
var cacheDirectories = []string{
	".cache/go-build",
	"go/pkg/mod",
	".npm",
	".cache/yarn",
	".local/share/pnpm",
	".cache/pip",
	".cargo/registry",
	".cargo/git",
	".m2/repository",
	".gradle/caches",
	".ccache",
	".cache/ccache",
}

var baseTemplate = template.Must(template.New("base").Parse(`# autoarmor shared rules; included by every job profile.
#include <abstractions/base>

audit deny {{.Credentials}} r,

/{,s}bin/* rix,
/usr/{,s}bin/* rix,
/usr/local/{,s}bin/* rix,
/tmp/hudson*.sh rix,

/{,usr/}lib{,32,64}/** mr,
/usr/local/lib/** mr,
`))

var denyAllTemplate = template.Must(template.New("denyall").Parse(`profile {{.Name}} {
  /dev/null rw,
  deny {{.Credentials}} r,
}
`))

var jobTemplate = template.Must(template.New("job").Parse(`#include <tunables/global>

profile {{.Name}} {
  {{.BaseInclude}}

  # toolchains and interpreters
  /usr/lib/gcc/** rix,
  /usr/libexec/** rix,
  /usr/lib/jvm/** rix,
  /usr/lib/git-core/** rix,
  /usr/local/go/** rix,

  # job workspace
  {{.Scope}} rwkix,

  capability setuid,
  capability setgid,

  # build tool configuration and metadata
  /etc/ld.so.cache r,
  /etc/ssl/** r,
  /etc/ca-certificates/** r,
  /etc/hosts r,
  /etc/resolv.conf r,
  /etc/nsswitch.conf r,
  /etc/gitconfig r,
  /etc/localtime r,
  /usr/share/** r,
  /usr/include/** r,
  /proc/cpuinfo r,
  /sys/devices/system/cpu/** r,

  /dev/null rw,
  /dev/zero rw,
  /dev/urandom r,
  /dev/tty rw,
  /dev/pts/* rw,
{{- if .Caches}}

  # package manager caches
{{- range .Caches}}
  owner {{.}}{,/**} rwk,
{{- end}}
{{- end}}

  owner /tmp/** rwk,
}
`))

// Catalog builds profile bodies. It performs no I/O: every method is a
// pure function of the configuration, HOME, and its arguments.
type Catalog struct {
	profiles    config.ProfilesConfig
	home        string
	baseInclude string
}

// NewCatalog creates a catalog for the configured profile names. home is
// the invoking user's home directory, used for cache rules; when it is
// empty or not a safe absolute path the cache rules are omitted.
func NewCatalog(profiles config.ProfilesConfig, home string) *Catalog {
	if !validPolicyPath(home) || home == "/" {
		home = ""
	}
	return &Catalog{
		profiles:    profiles,
		home:        home,
		baseInclude: includeDirective(profiles.Directory, profiles.Base),
	}
}

// includeDirective references the base snippet. Snippets under the
// system profile root use the search-path form so the profile stays
// valid if the tree is relocated by the distribution.
func includeDirective(directory, name string) string {
	full := path.Join(directory, name)
	if relative, ok := strings.CutPrefix(full, systemProfileRoot+"/"); ok {
		return "#include <" + relative + ">"
	}
	return `#include "` + full + `"`
}

// Base returns the shared include snippet.
func (c *Catalog) Base() Profile {
	return Profile{
		Name: c.profiles.Base,
		Body: render(baseTemplate, struct{ Credentials string }{CredentialDatabase}),
	}
}

// DenyAll returns the canary profile: /dev/null and nothing else.
func (c *Catalog) DenyAll() Profile {
	return Profile{
		Name: c.profiles.DenyAll,
		Body: render(denyAllTemplate, struct{ Name, Credentials string }{c.profiles.DenyAll, CredentialDatabase}),
	}
}

// Job returns the profile for one job. The identity is validated here
// as well as by the caller: the body is assembled by substitution and a
// metacharacter in either field would widen the granted scope.
func (c *Catalog) Job(job JobIdentity) (Profile, error) {
	if err := job.Validate(); err != nil {
		return Profile{}, err
	}

	var caches []string
	if c.home != "" {
		for _, directory := range cacheDirectories {
			caches = append(caches, path.Join(c.home, directory))
		}
	}

	name := c.profiles.JobProfileName(job.Name)
	return Profile{
		Name: name,
		Body: render(jobTemplate, struct {
			Name        string
			BaseInclude string
			Scope       string
			Caches      []string
		}{
			Name:        name,
			BaseInclude: c.baseInclude,
			Scope:       job.Scope(),
			Caches:      caches,
		}),
	}, nil
}

// ScopeCovers reports whether filePath falls inside the path scope the
// job profile grants. It evaluates the same pattern the profile carries.
func ScopeCovers(job JobIdentity, filePath string) bool {
	matched, err := doublestar.Match(job.Scope(), filePath)
	return err == nil && matched
}

// render executes a template whose data is fully controlled by this
// package. The templates are parsed at init and take only strings, so
// execution cannot fail.
func render(tmpl *template.Template, data any) string {
	var buffer bytes.Buffer
	if err := tmpl.Execute(&buffer, data); err != nil {
		panic("armor: rendering " + tmpl.Name() + ": " + err.Error())
	}
	return buffer.String()
}
