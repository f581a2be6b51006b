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
	"io"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/racerisk/pkg/ux"
	"github.com/AleutianAI/racerisk/services/incidents/records"
)

func newSeedCmd(st *cliState) *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load a YAML fixture into the configured record store",
		Long: `Upsert circuits, teams, pilots, races and results from a YAML fixture
into the configured record store. Intended for development and demos;
the memory backend discards everything on exit.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if file == "" {
				file = st.cfg.Records.SeedFile
			}
			if file == "" {
				return errors.New("no fixture given (use --file or records.seed_file)")
			}
			cfg := st.cfg.Records
			cfg.SeedFile = ""
			cfg.Logger = st.logger.Slog()
			return runSeed(cmd.Context(), cfg, file, cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "Fixture file (default records.seed_file)")
	return cmd
}

func runSeed(ctx context.Context, cfg records.Config, file string, out io.Writer) error {
	fixture, err := records.LoadFixture(file)
	if err != nil {
		return err
	}
	store, err := records.Open(ctx, cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	if err := fixture.Apply(ctx, store); err != nil {
		return err
	}

	p := ux.NewPrinter(out)
	p.Title("Seeded " + cfg.Backend + " store")
	counts := fixture.Counts()
	for _, kind := range []string{"circuits", "teams", "pilots", "races", "results"} {
		p.Field(kind, counts[kind])
	}
	return nil
}
