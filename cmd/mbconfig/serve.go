// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package main

import (
	"context"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	xglog "github.com/ManuGH/mbconfig/internal/log"
	"github.com/ManuGH/mbconfig/internal/project"
	"github.com/ManuGH/mbconfig/internal/server"
	"github.com/ManuGH/mbconfig/internal/telemetry"
	"github.com/ManuGH/mbconfig/internal/validate"
	"github.com/ManuGH/mbconfig/internal/version"
)

const shutdownTimeout = 10 * time.Second

func newServeCmd() *cobra.Command {
	cfg := server.Config{}
	tel := telemetry.Config{ServiceName: "mbconfig"}
	var projectFile string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the validation HTTP API",
		Long: `Serve the validation HTTP API until interrupted.

Routes: GET /healthz, GET /readyz, GET /v1/schema, POST /v1/validate,
GET /v1/project (with --project) and GET /metrics.`,
		Args: usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, _ []string) error {
			v := validate.New()
			v.Custom("--rate-limit", cfg.RateLimit, positive)
			v.Custom("--rate-window", cfg.RateWindow, positive)
			v.Custom("--max-body-bytes", cfg.MaxBodyBytes, positive)
			v.OneOf("--otlp-exporter", tel.ExporterType, []string{telemetry.ExporterGRPC, telemetry.ExporterHTTP})
			if tel.SamplingRate < 0 || tel.SamplingRate > 1 {
				v.AddError("--trace-sampling", "must be between 0 and 1", tel.SamplingRate)
			}
			if err := v.Err(); err != nil {
				return usageError(err)
			}

			tel.ServiceVersion = version.Version
			provider, err := telemetry.NewProvider(cmd.Context(), tel)
			if err != nil {
				return err
			}
			defer func() {
				_ = provider.Shutdown(context.Background())
			}()

			cfg.Logger = xglog.Derive(func(c zerolog.Context) zerolog.Context {
				c = c.Str(xglog.FieldComponent, "server")
				if projectFile != "" {
					c = c.Str(xglog.FieldProject, projectFile)
				}
				return c
			})
			cfg.Version = version.String()

			g, ctx := errgroup.WithContext(cmd.Context())

			// The project watcher is best-effort: the API still serves if it cannot start.
			if projectFile != "" {
				h, err := project.NewHolder(projectFile)
				if err != nil {
					return err
				}
				if err := h.StartWatcher(ctx); err != nil {
					cfg.Logger.Warn().Err(err).Str(xglog.FieldEvent, "config.watcher_start_failed").Msg("failed to start project watcher")
				}
				defer h.Stop()
				cfg.Project = h
			}

			srv := server.New(cfg)
			g.Go(srv.Start)
			g.Go(func() error {
				<-ctx.Done()
				shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
				defer cancel()
				return srv.Shutdown(shutdownCtx)
			})
			return g.Wait()
		},
	}

	listen := os.Getenv("MBCONFIG_LISTEN")
	if listen == "" {
		listen = server.DefaultListenAddr
	}
	cmd.Flags().StringVar(&cfg.ListenAddr, "listen", listen, "listen address (env MBCONFIG_LISTEN)")
	cmd.Flags().StringVar(&projectFile, "project", "", "watch a project file and serve it at /v1/project")
	cmd.Flags().IntVar(&cfg.RateLimit, "rate-limit", server.DefaultRateLimit, "requests per client within --rate-window")
	cmd.Flags().DurationVar(&cfg.RateWindow, "rate-window", server.DefaultRateWindow, "rate limit window")
	cmd.Flags().Int64Var(&cfg.MaxBodyBytes, "max-body-bytes", server.DefaultMaxBodyBytes, "maximum size of a posted document")
	cmd.Flags().StringVar(&tel.Endpoint, "otlp-endpoint", os.Getenv("MBCONFIG_OTLP_ENDPOINT"), "OTLP collector endpoint; tracing is off when empty (env MBCONFIG_OTLP_ENDPOINT)")
	cmd.Flags().StringVar(&tel.ExporterType, "otlp-exporter", telemetry.ExporterGRPC, "OTLP exporter: grpc or http")
	cmd.Flags().BoolVar(&tel.Insecure, "otlp-insecure", false, "disable TLS towards the collector")
	cmd.Flags().Float64Var(&tel.SamplingRate, "trace-sampling", 1.0, "trace sampling rate between 0 and 1")
	return cmd
}
