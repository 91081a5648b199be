// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package main

import (
	"encoding/json"
	"fmt"
	"io"
	"runtime"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	xglog "github.com/ManuGH/mbconfig/internal/log"
	"github.com/ManuGH/mbconfig/internal/metrics"
	"github.com/ManuGH/mbconfig/internal/project"
	"github.com/ManuGH/mbconfig/internal/validate"
)

// finding is a violation or warning with its source position, when known.
type finding struct {
	validate.Error
	Line   int `json:"line,omitempty"`
	Column int `json:"column,omitempty"`
}

func (f finding) location(file string) string {
	if f.Line > 0 {
		return fmt.Sprintf("%s:%d:%d", file, f.Line, f.Column)
	}
	return file
}

func (f finding) pointer() string {
	if f.Field == "" {
		return "/"
	}
	return f.Field
}

// fileReport is the outcome of validating one file.
type fileReport struct {
	File       string    `json:"file"`
	Valid      bool      `json:"valid"`
	Error      string    `json:"error,omitempty"`
	Violations []finding `json:"violations,omitempty"`
	Warnings   []finding `json:"warnings,omitempty"`
}

func (r fileReport) failed(strict bool) bool {
	return !r.Valid || (strict && len(r.Warnings) > 0)
}

type validateOptions struct {
	jobs   int
	output string
	strict bool
}

func newValidateCmd() *cobra.Command {
	opts := &validateOptions{}
	cmd := &cobra.Command{
		Use:   "validate FILE...",
		Short: "Validate project files against the schema",
		Long: `Validate one or more project files (.json, .yaml, .yml, .toml).

Every violation is reported with its JSON pointer and, for JSON and YAML
files, its line and column.`,
		Args: usageArgs(cobra.MinimumNArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(cmd, args, opts)
		},
	}
	cmd.Flags().IntVarP(&opts.jobs, "jobs", "j", runtime.NumCPU(), "number of files validated concurrently")
	cmd.Flags().StringVarP(&opts.output, "output", "o", "text", "output format (text or json)")
	cmd.Flags().BoolVar(&opts.strict, "strict", false, "treat warnings as failures")
	return cmd
}

func runValidate(cmd *cobra.Command, files []string, opts *validateOptions) error {
	v := validate.New()
	v.OneOf("--output", opts.output, []string{"text", "json"})
	v.Custom("--jobs", opts.jobs, positive)
	if err := v.Err(); err != nil {
		return usageError(err)
	}

	reports := make([]fileReport, len(files))
	g, ctx := errgroup.WithContext(cmd.Context())
	g.SetLimit(opts.jobs)
	for i, file := range files {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			reports[i] = validateFile(file)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	logger := xglog.FromContext(cmd.Context())
	failed := 0
	for _, r := range reports {
		logger.Debug().
			Str(xglog.FieldPath, r.File).
			Bool("valid", r.Valid).
			Int(xglog.FieldViolations, len(r.Violations)).
			Int(xglog.FieldWarnings, len(r.Warnings)).
			Msg("validated project file")
		if r.failed(opts.strict) {
			failed++
		}
	}

	if opts.output == "json" {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		if err := enc.Encode(reports); err != nil {
			return fmt.Errorf("write report: %w", err)
		}
	} else {
		for _, r := range reports {
			printReport(cmd.OutOrStdout(), cmd.ErrOrStderr(), r, opts.strict)
		}
	}

	if failed > 0 {
		return silentExit(exitInvalid)
	}
	return nil
}

func validateFile(file string) fileReport {
	r := fileReport{File: file}

	src, err := project.ReadSource(file)
	if err != nil {
		r.Error = err.Error()
		return r
	}

	start := time.Now()
	cfg, err := src.Parse()
	project.Observe(metrics.SourceFile, start, err)
	if err != nil {
		vs := project.Violations(err)
		if vs == nil {
			r.Error = err.Error()
			return r
		}
		r.Violations = locateAll(src, vs)
		return r
	}

	r.Valid = true
	r.Warnings = locateAll(src, project.Lint(cfg))
	return r
}

func locateAll(src *project.Source, errs []validate.Error) []finding {
	if len(errs) == 0 {
		return nil
	}
	out := make([]finding, len(errs))
	for i, e := range errs {
		out[i] = finding{Error: e}
		if pos, ok := src.Locate(e.Field); ok {
			out[i].Line, out[i].Column = pos.Line, pos.Column
		}
	}
	return out
}

func printReport(stdout, stderr io.Writer, r fileReport, strict bool) {
	switch {
	case r.Error != "":
		fmt.Fprintf(stderr, "Configuration error in %s:\n  %s\n", r.File, r.Error)
	case !r.Valid:
		fmt.Fprintf(stderr, "Validation error in %s:\n", r.File)
		for _, f := range r.Violations {
			fmt.Fprintf(stderr, "  %s: %s: %s\n", f.location(r.File), f.pointer(), f.Message)
		}
	default:
		for _, f := range r.Warnings {
			fmt.Fprintf(stderr, "  %s: warning: %s: %s\n", f.location(r.File), f.pointer(), f.Message)
		}
		if r.failed(strict) {
			fmt.Fprintf(stderr, "✗ %s has warnings (strict mode)\n", r.File)
			return
		}
		fmt.Fprintf(stdout, "✓ %s is valid\n", r.File)
	}
}
