// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// mbconfig validates, formats and serves project configuration files.
//
// Usage:
//
//	mbconfig validate project.yaml
//	mbconfig fmt project.json --to yaml
//	mbconfig serve --listen :8088
//
// Exit codes:
//   - 0: success, every document is valid
//   - 1: a document is invalid or the command failed
//   - 2: usage error
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	xglog "github.com/ManuGH/mbconfig/internal/log"
	"github.com/ManuGH/mbconfig/internal/validate"
)

const (
	exitOK      = 0
	exitInvalid = 1
	exitUsage   = 2
)

// exitError carries the process exit code; a nil err means nothing is printed.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string {
	if e.err == nil {
		return fmt.Sprintf("exit %d", e.code)
	}
	return e.err.Error()
}

func (e *exitError) Unwrap() error { return e.err }

func usageError(err error) error {
	return &exitError{code: exitUsage, err: err}
}

func silentExit(code int) error {
	return &exitError{code: code}
}

// usageArgs marks argument validation failures as usage errors.
func usageArgs(check cobra.PositionalArgs) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if err := check(cmd, args); err != nil {
			return usageError(err)
		}
		return nil
	}
}

type globalOptions struct {
	logLevel  string
	logFormat string
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	opts := &globalOptions{}

	root := &cobra.Command{
		Use:           "mbconfig",
		Short:         "Validate and manage project configuration files",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.ArbitraryArgs,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return configureLogging(opts, stderr)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) > 0 {
				return usageError(fmt.Errorf("unknown command %q for %q", args[0], cmd.CommandPath()))
			}
			_ = cmd.Help()
			return silentExit(exitUsage)
		},
	}
	root.SetOut(stdout)
	root.SetErr(stderr)
	root.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return usageError(err)
	})

	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "log level (trace, debug, info, warn, error); defaults to $MBCONFIG_LOG_LEVEL or info")
	root.PersistentFlags().StringVar(&opts.logFormat, "log-format", "console", "log format (json or console)")

	root.AddCommand(
		newValidateCmd(),
		newSchemaCmd(),
		newFmtCmd(),
		newExpandCmd(),
		newWatchCmd(),
		newServeCmd(),
		newVersionCmd(),
	)
	return root
}

// positive rejects numeric flag values below one.
func positive(value any) error {
	switch n := value.(type) {
	case int:
		if n >= 1 {
			return nil
		}
	case int64:
		if n >= 1 {
			return nil
		}
	case time.Duration:
		if n > 0 {
			return nil
		}
	}
	return errors.New("must be positive")
}

func configureLogging(opts *globalOptions, stderr io.Writer) error {
	v := validate.New()
	if opts.logLevel != "" {
		if _, err := validate.ParseLogLevel(opts.logLevel); err != nil {
			v.AddError("--log-level", err.Error(), opts.logLevel)
		}
	}
	v.OneOf("--log-format", opts.logFormat, []string{"json", "console"})
	if err := v.Err(); err != nil {
		return usageError(err)
	}

	xglog.Configure(xglog.Config{
		Level:   opts.logLevel,
		Output:  stderr,
		Console: opts.logFormat == "console",
	})
	return nil
}

// run executes the command line and returns the process exit code.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	root := newRootCmd(stdout, stderr)
	root.SetArgs(args)

	err := root.ExecuteContext(ctx)
	if err == nil {
		return exitOK
	}

	var ee *exitError
	if errors.As(err, &ee) {
		if ee.err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", ee.err)
		}
		return ee.code
	}
	fmt.Fprintf(stderr, "Error: %v\n", err)
	return exitInvalid
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}
