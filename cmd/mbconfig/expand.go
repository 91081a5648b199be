// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ManuGH/mbconfig/internal/project"
)

func newExpandCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "expand FILE TEMPLATE [key=value...]",
		Short: "Format a path template from a project file",
		Example: `  mbconfig expand project.yaml work root=/projects project=hulk asset=bruce \
      silo=assets task=modeling user=marcus app=maya`,
		Args: usageArgs(cobra.MinimumNArgs(2)),
		RunE: func(cmd *cobra.Command, args []string) error {
			fields, err := parseFields(args[2:])
			if err != nil {
				return usageError(err)
			}

			cfg, err := project.Load(args[0])
			if err != nil {
				return err
			}
			out, err := cfg.Format(args[1], fields)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), out)
			return err
		},
	}
}

func parseFields(pairs []string) (map[string]string, error) {
	fields := make(map[string]string, len(pairs))
	for _, p := range pairs {
		k, v, ok := strings.Cut(p, "=")
		if !ok || k == "" {
			return nil, fmt.Errorf("invalid field %q (expected key=value)", p)
		}
		fields[k] = v
	}
	return fields, nil
}
