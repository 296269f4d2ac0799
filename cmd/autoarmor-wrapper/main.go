// Copyright 2026 The Autoarmor Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/pflag"

	"github.com/autoarmor/autoarmor/armor"
	"github.com/autoarmor/autoarmor/lib/config"
	"github.com/autoarmor/autoarmor/lib/logging"
	"github.com/autoarmor/autoarmor/lib/process"
	"github.com/autoarmor/autoarmor/lib/version"
)

const component = "autoarmor-wrapper"

func main() {
	if err := run(os.Args[1:], os.Stdout, nil); err != nil {
		process.Fatal(component, err)
	}
}

// run parses args and either runs the self-test or confines and execs
// the job command. wrapperConfig overrides the host transition and exec
// primitives in tests; nil means the real ones.
func run(args []string, stdout io.Writer, wrapperConfig *armor.WrapperConfig) error {
	var selfTest, showVersion, showHelp bool

	flagSet := pflag.NewFlagSet(component, pflag.ContinueOnError)
	flagSet.SetOutput(io.Discard)
	// Flags after the job name belong to the job's command.
	flagSet.SetInterspersed(false)
	flagSet.BoolVar(&selfTest, "self-test", false, "verify that confinement works on this host")
	flagSet.BoolVar(&showVersion, "version", false, "print version information")
	flagSet.BoolVarP(&showHelp, "help", "h", false, "show help")

	if err := flagSet.Parse(args); err != nil {
		printUsage(stdout)
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return armor.Usage("%v", err)
	}

	switch {
	case showHelp:
		printUsage(stdout)
		return nil
	case showVersion:
		version.Print(stdout, component)
		return nil
	}

	cfg, err := config.LoadTrusted(config.SystemPath)
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}
	logger := logging.New(component)
	positional := flagSet.Args()

	if selfTest {
		if len(positional) != 0 {
			printUsage(stdout)
			return armor.Usage("--self-test takes no arguments")
		}
		return armor.NewSelfTest(armor.SelfTestConfig{Config: cfg, Logger: logger}).Run(context.Background())
	}

	if len(positional) < 2 {
		printUsage(stdout)
		return armor.Usage("expected <job_name> <command> [args...]")
	}

	settings := armor.WrapperConfig{}
	if wrapperConfig != nil {
		settings = *wrapperConfig
	}
	settings.Profiles = cfg.Profiles
	settings.Logger = logger

	// Returns only on failure; on success the job replaces this process.
	err = armor.NewWrapper(settings).Run(positional[0], positional[1:])
	if armor.IsUsage(err) {
		printUsage(stdout)
	}
	return err
}

func printUsage(w io.Writer) {
	fmt.Fprint(w, `autoarmor-wrapper - run a CI job confined by its AppArmor profile

USAGE
    autoarmor-wrapper --self-test
    autoarmor-wrapper <job_name> <command> [args...]

The job's profile must already be installed and active (see
autoarmor-genprof). If confinement cannot be requested the command is
not run and the exit status is 1. On success the command replaces this
process and its exit status is the job's.

FLAGS
    --self-test     run the generator self-test and verify that the
                    deny-all profile blocks reading /etc/passwd
    --version       print version information
    -h, --help      show this help
`)
}
