// Copyright 2026 The Autoarmor Authors
// SPDX-License-Identifier: Apache-2.0

// Package version reports which build of an autoarmor binary is
// running. [GitCommit], [GitDirty], [BuildTime] and [Version] are set by
// the release build:
//
//	go build -ldflags "-X github.com/autoarmor/autoarmor/lib/version.GitCommit=$(git rev-parse --short HEAD)"
//
// Unset, they read "unknown" and "0.1.0-dev". [Print] produces the
// --version line shared by all three binaries.
package version
