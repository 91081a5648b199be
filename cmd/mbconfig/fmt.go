// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package main

import (
	"bytes"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ManuGH/mbconfig/internal/project"
)

func newFmtCmd() *cobra.Command {
	var (
		to    string
		write bool
	)
	cmd := &cobra.Command{
		Use:   "fmt FILE",
		Short: "Re-encode a valid project file",
		Long: `Re-encode a valid project file in canonical form.

Known keys come first, unknown task, app and family keys are kept.
With --to the document is converted; -w rewrites FILE in place and
requires the target format to match the file extension.`,
		Args: usageArgs(cobra.ExactArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			file := args[0]
			src, err := project.ReadSource(file)
			if err != nil {
				return err
			}

			target := src.Format
			if to != "" {
				if target, err = project.ParseFormat(to); err != nil {
					return usageError(err)
				}
			}
			if write && target != src.Format {
				return usageError(fmt.Errorf("-w cannot convert %s to %s in place", src.Format, target))
			}

			cfg, err := src.Parse()
			if err != nil {
				return fmt.Errorf("%s: %w", file, err)
			}

			var buf bytes.Buffer
			if err := project.Encode(&buf, cfg, target); err != nil {
				return err
			}
			if write {
				return writeFileAtomic(cmd.Context(), src.Path, buf.Bytes())
			}
			_, err = cmd.OutOrStdout().Write(buf.Bytes())
			return err
		},
	}
	cmd.Flags().StringVar(&to, "to", "", "output format (json, yaml or toml); defaults to the input format")
	cmd.Flags().BoolVarP(&write, "write", "w", false, "rewrite FILE in place")
	return cmd
}
