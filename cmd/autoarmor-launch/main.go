// Copyright 2026 The Autoarmor Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/autoarmor/autoarmor/armor"
	"github.com/autoarmor/autoarmor/lib/config"
	"github.com/autoarmor/autoarmor/lib/logging"
	"github.com/autoarmor/autoarmor/lib/process"
	"github.com/autoarmor/autoarmor/lib/version"
)

const component = "autoarmor-launch"

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		// A failed job's exit status is passed through without noise.
		var status *armor.ExitStatus
		if errors.As(err, &status) {
			os.Exit(status.ExitCode())
		}
		process.Fatal(component, err)
	}
}

func run(args []string, stdout io.Writer) error {
	if len(args) == 0 {
		printUsage(stdout)
		return armor.Usage("no command given")
	}

	command, rest := args[0], args[1:]
	switch command {
	case "version", "--version":
		fmt.Fprintf(stdout, "%s %s\n", component, version.Full())
		return nil
	case "help", "--help", "-h":
		printUsage(stdout)
		return nil
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}
	logger := logging.New(component)

	switch command {
	case "run":
		return runCommand(rest, stdout, cfg, logger)
	case "check":
		return checkCommand(rest, stdout, cfg, armor.DetectCapabilities(cfg))
	default:
		printUsage(stdout)
		return armor.Usage("unknown command %q", command)
	}
}

func runCommand(args []string, stdout io.Writer, cfg *config.Config, logger *slog.Logger) error {
	request := armor.LaunchRequest{
		Mode:             cfg.Launch.Mode,
		IgnoreNoAppArmor: cfg.Launch.IgnoreNoAppArmor,
	}

	flagSet := pflag.NewFlagSet(component+" run", pflag.ContinueOnError)
	flagSet.SetOutput(io.Discard)
	flagSet.StringVar(&request.Mode, "mode", request.Mode, "disabled, complain, or enforce")
	flagSet.BoolVar(&request.IgnoreNoAppArmor, "ignore-no-apparmor", request.IgnoreNoAppArmor,
		"run unconfined with a warning when AppArmor is not enabled")

	if err := flagSet.Parse(args); err != nil {
		printUsage(stdout)
		return armor.Usage("%v", err)
	}

	dash := flagSet.ArgsLenAtDash()
	positional := flagSet.Args()
	if dash != 2 || len(positional) == dash {
		printUsage(stdout)
		return armor.Usage("expected <workspace_root> <job_name> -- <command> [args...]")
	}
	request.WorkspaceRoot = positional[0]
	request.Job = positional[1]
	request.Command = positional[dash:]

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	launcher := armor.NewLauncher(armor.LauncherConfig{Config: cfg, Logger: logger})
	return launcher.Run(ctx, request)
}

func checkCommand(args []string, stdout io.Writer, cfg *config.Config, caps *armor.Capabilities) error {
	if len(args) != 0 {
		return armor.Usage("check takes no arguments")
	}

	validator := armor.NewValidator()
	validator.ValidateAll(cfg, caps)
	validator.PrintResults(stdout)
	if !caps.CanConfine() {
		return fmt.Errorf("host cannot confine jobs: %s", caps.SkipReason())
	}
	if validator.HasErrors() {
		return errors.New("host is not ready to confine jobs")
	}
	return nil
}

func printUsage(w io.Writer) {
	fmt.Fprint(w, `autoarmor-launch - run CI jobs under AppArmor confinement

USAGE
    autoarmor-launch <command> [flags] [-- <args>...]

COMMANDS
    run       Provision a job profile and run the job under it
    check     Validate that this host can confine jobs
    version   Show version

RUN
    autoarmor-launch run [--mode M] [--ignore-no-apparmor] <workspace_root> <job_name> -- <command> [args...]

    --mode                 disabled, complain, or enforce (default from config)
    --ignore-no-apparmor   run unconfined with a warning when AppArmor is
                           not enabled (default from config)

The job's exit status becomes autoarmor-launch's exit status.

ENVIRONMENT
    AUTOARMOR_CONFIG   configuration file (default /etc/autoarmor/autoarmor.yaml)
    AUTOARMOR_DEBUG    enable debug logging
`)
}
