// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/ManuGH/mbconfig/internal/project"
)

func newWatchCmd() *cobra.Command {
	var debounce time.Duration
	cmd := &cobra.Command{
		Use:   "watch FILE",
		Short: "Revalidate a project file whenever it changes",
		Long: `Watch FILE and revalidate it on every change until interrupted.

A change that makes the file invalid is reported and the last valid
configuration is kept.`,
		Args: usageArgs(cobra.ExactArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			h, err := project.NewHolder(args[0])
			if err != nil {
				return err
			}
			h.Debounce = debounce

			updates := make(chan *project.Config, 1)
			h.RegisterListener(updates)

			ctx := cmd.Context()
			if err := h.StartWatcher(ctx); err != nil {
				return err
			}
			defer h.Stop()

			out := cmd.OutOrStdout()
			printSummary := func(verb string, cfg *project.Config) {
				fmt.Fprintf(out, "✓ %s %s (%d tasks, %d apps, %d families, %d templates)\n",
					h.Path(), verb, len(cfg.Tasks), len(cfg.Apps), len(cfg.Families), len(cfg.Template))
			}
			printSummary("is valid", h.Get())

			for {
				select {
				case <-ctx.Done():
					return nil
				case cfg := <-updates:
					printSummary("reloaded", cfg)
				}
			}
		},
	}
	cmd.Flags().DurationVar(&debounce, "debounce", project.DefaultDebounce, "quiet period after a change before revalidating")
	return cmd
}
