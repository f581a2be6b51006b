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
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/racerisk/pkg/ux"
	"github.com/AleutianAI/racerisk/services/incidents/analysis"
	"github.com/AleutianAI/racerisk/services/incidents/datatypes"
	"github.com/AleutianAI/racerisk/services/incidents/predictor"
	"github.com/AleutianAI/racerisk/services/incidents/records"
)

// Output formats.
const (
	outputTable = "table"
	outputJSON  = "json"
)

type predictOptions struct {
	input  string
	raceID int64
	pilot  int64
	output string
}

func newPredictCmd(st *cliState) *cobra.Command {
	opts := predictOptions{}
	cmd := &cobra.Command{
		Use:   "predict",
		Short: "Predict incident risk for a field of drivers or a stored race",
		Long: `Predict incident risk without starting the server.

With --race the drivers come from the configured record store; add
--pilot to report one driver. Otherwise a driver prediction request is read
as JSON from --input (or stdin when --input is "-"):

  {"drivers": [{"pilot_name": "Max Verstappen",
                "pilot": {"code": "VER", "team_slug": "red-bull"},
                "circuit": {"slug": "bahrain"},
                "lap_times": [93210, 92877],
                "race": {"grid_position": 1, "year": 2024}}]}`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if opts.output != outputTable && opts.output != outputJSON {
				return fmt.Errorf("unknown output format %q (want table or json)", opts.output)
			}
			if opts.pilot > 0 && opts.raceID <= 0 {
				return errors.New("--pilot requires --race")
			}
			return runPredict(cmd.Context(), st, opts, cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringVarP(&opts.input, "input", "i", "-", "Driver request JSON file, or - for stdin")
	cmd.Flags().Int64Var(&opts.raceID, "race", 0, "Predict a stored race by id")
	cmd.Flags().Int64Var(&opts.pilot, "pilot", 0, "With --race, predict one pilot by id")
	cmd.Flags().StringVarP(&opts.output, "output", "o", outputTable, "Output format: table or json")
	return cmd
}

func runPredict(ctx context.Context, st *cliState, opts predictOptions, stdin io.Reader, out io.Writer) error {
	pred := st.newPredictor()

	if opts.raceID > 0 {
		store, err := records.Open(ctx, st.cfg.Records)
		if err != nil {
			return err
		}
		defer store.Close()
		an := analysis.NewAnalyzer(store, pred)

		if opts.pilot > 0 {
			result, err := an.AnalyzePilot(ctx, opts.pilot, opts.raceID)
			if err != nil {
				return err
			}
			if opts.output == outputJSON {
				return writeJSON(out, result)
			}
			p := ux.NewPrinter(out)
			p.Title(result.RaceName)
			printModel(p, result.ModelInfo)
			printPredictions(p, []predictor.PredictionRecord{result.PredictionRecord})
			return nil
		}

		result, err := an.AnalyzeRace(ctx, opts.raceID)
		if err != nil {
			return err
		}
		if opts.output == outputJSON {
			return writeJSON(out, result)
		}
		p := ux.NewPrinter(out)
		p.Title(fmt.Sprintf("%s (%s)", result.RaceName, result.CircuitName))
		printModel(p, result.ModelInfo)
		printPredictions(p, result.Predictions)
		printStatistics(p, result.Statistics)
		return nil
	}

	req, err := readRequest(opts.input, stdin)
	if err != nil {
		return err
	}
	result, err := analysis.NewAnalyzer(nil, pred).AnalyzeField(ctx, req.FieldEntries())
	if err != nil {
		return err
	}
	if opts.output == outputJSON {
		return writeJSON(out, datatypes.DriverPredictionResponse{
			RequestID:     req.RequestID,
			Timestamp:     req.Timestamp,
			FieldAnalysis: result,
		})
	}
	p := ux.NewPrinter(out)
	p.Title("Driver field")
	printModel(p, result.ModelInfo)
	printPredictions(p, result.Predictions)
	printStatistics(p, result.Statistics)
	return nil
}

func readRequest(path string, stdin io.Reader) (*datatypes.DriverPredictionRequest, error) {
	var r io.Reader = stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("open input: %w", err)
		}
		defer f.Close()
		r = f
	}

	var req datatypes.DriverPredictionRequest
	if err := json.NewDecoder(r).Decode(&req); err != nil {
		return nil, fmt.Errorf("decode driver request: %w", err)
	}
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("invalid driver request: %w", err)
	}
	req.EnsureDefaults()
	return &req, nil
}

func writeJSON(out io.Writer, v any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printModel(p *ux.Printer, m analysis.ModelSummary) {
	p.Field("Mode", m.Mode.Label())
	p.Field("Model", m.Version)
}

func printPredictions(p *ux.Printer, preds []predictor.PredictionRecord) {
	rows := make([][]string, len(preds))
	for i, r := range preds {
		name := r.PilotName
		if name == "" {
			name = r.PilotCode
		}
		rows[i] = []string{
			name,
			r.TeamName,
			strconv.FormatFloat(r.Risks.TotalRisk, 'f', 3, 64),
			string(r.RiskLevel),
			string(r.Source),
			r.Recommendation,
		}
	}
	p.Table([]string{"Pilot", "Team", "Total Risk", "Level", "Source", "Recommendation"}, rows, 3)
}

func printStatistics(p *ux.Printer, s predictor.FieldStatistics) {
	p.Muted(fmt.Sprintf("%d pilots, average risk %.3f", s.TotalPilots, s.AverageRisk))
	for _, level := range predictor.RiskLevels {
		p.Field(p.Level(string(level)), s.Count(level))
	}
}
