// Copyright 2026 The Autoarmor Authors
// SPDX-License-Identifier: Apache-2.0

//go:build !linux

package armor

import (
	"fmt"
	"runtime"
)

func writeProcAttr(_ []string, command string) error {
	return fmt.Errorf("cannot request %q: AppArmor is not available on %s", command, runtime.GOOS)
}
