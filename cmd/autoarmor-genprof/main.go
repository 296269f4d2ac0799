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

const component = "autoarmor-genprof"

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		process.Fatal(component, err)
	}
}

func run(args []string, stdout io.Writer) error {
	var selfTest, showVersion, showHelp bool

	flagSet := pflag.NewFlagSet(component, pflag.ContinueOnError)
	flagSet.SetOutput(io.Discard)
	flagSet.BoolVar(&selfTest, "self-test", false, "install and enforce the deny-all canary, then stop")
	flagSet.BoolVar(&showVersion, "version", false, "print version information")
	flagSet.BoolVarP(&showHelp, "help", "h", false, "show help")

	if err := flagSet.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			printUsage(stdout)
			return nil
		}
		printUsage(stdout)
		return armor.Usage("%v", err)
	}

	switch {
	case showHelp:
		printUsage(stdout)
		return nil
	case showVersion:
		version.Print(stdout, component)
		return nil
	case !selfTest && flagSet.NArg() == 0:
		printUsage(stdout)
		return armor.Usage("no job arguments given")
	}

	// Only the root-owned system file is consulted; the caller controls
	// the environment of this setuid process.
	cfg, err := config.LoadTrusted(config.SystemPath)
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}
	logger := logging.New(component)

	activator, err := armor.NewActivator(cfg, armor.LoaderRunner(), logger)
	if err != nil {
		return err
	}
	provisioner, err := armor.NewProvisioner(armor.ProvisionerConfig{
		Config:    cfg,
		Identity:  armor.HostIdentity{},
		Activator: activator,
		Home:      os.Getenv("HOME"),
		Logger:    logger,
	})
	if err != nil {
		return err
	}

	err = provisioner.Run(context.Background(), armor.ProvisionRequest{
		SelfTest: selfTest,
		Args:     flagSet.Args(),
	})
	if armor.IsUsage(err) {
		printUsage(stdout)
	}
	return err
}

func printUsage(w io.Writer) {
	fmt.Fprint(w, `autoarmor-genprof - install and activate AppArmor profiles for CI jobs

USAGE
    autoarmor-genprof --self-test
    autoarmor-genprof <workspace_root> <job_name> <mode>

ARGUMENTS
    workspace_root  existing directory holding job workspaces
    job_name        job identifier; the job may use workspace_root/job_name
    mode            complain or enforce

FLAGS
    --self-test     install the baseline profiles and enforce the deny-all canary
    --version       print version information
    -h, --help      show this help

Must be installed setuid root. Configuration is read from
/etc/autoarmor/autoarmor.yaml when present (root-owned, not group or
world writable). Exit status is 0 on success and 1 on any failure.
`)
}
