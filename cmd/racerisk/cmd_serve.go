// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"context"
	"errors"
	"time"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/racerisk/services/incidents"
)

func newServeCmd(st *cliState) *cobra.Command {
	var port int
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP prediction service",
		Long: `Serve the incident prediction API.

Endpoints:
  GET  /health
  GET  /metrics
  GET  /api/incidents/race/:race_id
  GET  /api/incidents/pilot/:pilot_id?race_id=N
  POST /api/incidents/predict/drivers

SIGINT or SIGTERM triggers a graceful shutdown bounded by
server.shutdown_timeout.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := st.cfg
			if port > 0 {
				cfg.Server.Port = port
			}
			return runServe(cmd.Context(), cfg, st)
		},
	}
	cmd.Flags().IntVarP(&port, "port", "p", 0, "Override server.port")
	return cmd
}

func runServe(ctx context.Context, cfg incidents.Config, st *cliState) error {
	logger := st.logger.Slog()
	svc, err := incidents.New(ctx, cfg, logger)
	if err != nil {
		return err
	}

	errCh := make(chan error, 1)
	go func() { errCh <- svc.Run() }()

	select {
	case err := <-errCh:
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		return errors.Join(err, svc.Shutdown(shutdownCtx))
	case <-ctx.Done():
	}

	logger.Info("shutting down", "timeout", cfg.Server.ShutdownTimeout)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	start := time.Now()
	if err := svc.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil {
		return err
	}
	logger.Info("server stopped", "duration", time.Since(start))
	return nil
}
