// Copyright 2026 The Autoarmor Authors
// SPDX-License-Identifier: Apache-2.0

package digest

import (
	"encoding/hex"
	"fmt"
	"io"
	"os"

	"github.com/zeebo/blake3"
)

// Size is the digest length in bytes.
const Size = 32

// Digest is a BLAKE3-256 content hash.
type Digest [Size]byte

// shortLength is the number of bytes [Short] keeps. Eight bytes are
// plenty to tell two profile bodies apart in a log line.
const shortLength = 8

// Sum returns the digest of data.
func Sum(data []byte) Digest {
	return blake3.Sum256(data)
}

// HashFile computes the digest of the file at path. The file is
// streamed through the hash function in chunks (via io.Copy) to keep
// memory usage constant regardless of file size.
func HashFile(path string) (Digest, error) {
	file, err := os.Open(path)
	if err != nil {
		return Digest{}, fmt.Errorf("opening %s for hashing: %w", path, err)
	}
	defer file.Close()

	hasher := blake3.New()
	if _, err := io.Copy(hasher, file); err != nil {
		return Digest{}, fmt.Errorf("hashing %s: %w", path, err)
	}

	var digest Digest
	copy(digest[:], hasher.Sum(nil))
	return digest, nil
}

// Format returns the hex-encoded string representation of a digest.
func Format(digest Digest) string {
	return hex.EncodeToString(digest[:])
}

// Short returns the first bytes of the digest, hex-encoded, for logs.
func Short(digest Digest) string {
	return hex.EncodeToString(digest[:shortLength])
}
