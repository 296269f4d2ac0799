// Copyright 2026 The Autoarmor Authors
// SPDX-License-Identifier: Apache-2.0

// Package digest provides BLAKE3 content hashing for profile bodies and
// installed binaries.
//
// Autoarmor never rewrites a profile file, so when a newer build would
// produce a different body for an existing profile the only signal is a
// digest mismatch between the file on disk and the body the catalog
// just rendered. The same digests identify which generator binary a
// host runs in pre-flight reports.
//
// The API surface is small:
//
//   - [Sum] -- hashes an in-memory body
//   - [HashFile] -- streams a file through BLAKE3 with constant memory
//     usage regardless of file size
//   - [Format] and [Short] -- the canonical hex encoding, full and
//     abbreviated for log output
//
// This package has no dependencies on other autoarmor packages.
package digest
