// Copyright 2026 The Autoarmor Authors
// SPDX-License-Identifier: Apache-2.0

// Package config provides YAML configuration loading for autoarmor.
//
// A [Config] is built once at startup and passed by pointer to every
// component. It carries the profile directory, the profile naming rule
// shared by the generator and the wrapper, the external loader command
// lines, and the launcher's mode.
//
// There are two entry points with different trust models:
//
//   - [LoadTrusted] is used by the setuid generator and the wrapper. It
//     reads only a root-owned file that group and others cannot write,
//     performs no environment expansion, and falls back to [Default]
//     when the file does not exist.
//   - [LoadFile] (and [Load], which honours AUTOARMOR_CONFIG) is for
//     unprivileged tooling and expands ${VAR} and ${VAR:-default}
//     patterns in path fields.
//
// Loader command lines are split into argv with shlex rules, so a
// loader may carry its own arguments ("apparmor_parser -r -W").
//
// This package depends on no other autoarmor packages.
package config
