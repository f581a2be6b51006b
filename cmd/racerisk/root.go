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
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/racerisk/pkg/logging"
	"github.com/AleutianAI/racerisk/services/incidents"
	"github.com/AleutianAI/racerisk/services/incidents/predictor"
)

const serviceName = "racerisk"

// cliState is shared by every subcommand. It is filled in by the root
// command's PersistentPreRunE.
type cliState struct {
	configPath string
	logLevel   string

	cfg    incidents.Config
	logger *logging.Logger
}

func newRootCmd() *cobra.Command {
	st := &cliState{}

	root := &cobra.Command{
		Use:   "racerisk",
		Short: "Race incident risk prediction",
		Long: `Predict per-driver incident risk for motorsport races.

Each driver gets a probability per incident class (collision, engine
failure, tire issue, off-track, safety car), a total risk and a tier
(LOW, MODERATE, HIGH, CRITICAL) with a recommendation.

Without model artifacts every prediction comes from the heuristic
generator and the service reports "Test Mode".

Examples:
  racerisk serve --config configs/racerisk.yaml
  racerisk init-model --dir ./resources
  racerisk predict --input drivers.json
  racerisk predict --race 1 --output json
  racerisk model-info`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return st.init(cmd)
		},
		PersistentPostRunE: func(*cobra.Command, []string) error {
			if st.logger != nil {
				return st.logger.Close()
			}
			return nil
		},
	}

	root.PersistentFlags().StringVarP(&st.configPath, "config", "c", "",
		"Path to the YAML config file (defaults plus environment when empty)")
	root.PersistentFlags().StringVar(&st.logLevel, "log-level", "",
		"Override logging.level: debug, info, warn, error")

	root.AddCommand(
		newServeCmd(st),
		newPredictCmd(st),
		newModelInfoCmd(st),
		newInitModelCmd(st),
		newSeedCmd(st),
	)
	return root
}

func (st *cliState) init(cmd *cobra.Command) error {
	cfg, err := incidents.LoadConfig(st.configPath)
	if err != nil {
		return err
	}
	if st.logLevel != "" {
		cfg.Logging.Level = st.logLevel
	}
	lc, err := cfg.Logging.LoggerConfig(serviceName)
	if err != nil {
		return err
	}
	lc.Output = cmd.ErrOrStderr()
	logger, err := logging.New(lc)
	if err != nil {
		return err
	}
	slog.SetDefault(logger.Slog())

	st.cfg = cfg
	st.logger = logger
	return nil
}

// newPredictor builds a predictor from the loaded configuration and loads
// it eagerly.
func (st *cliState) newPredictor() *predictor.Service {
	svc := predictor.NewService(predictor.Config{
		ResourceDir: st.cfg.Predictor.ResourceDir,
		Load: predictor.LoadOptions{
			ClassifierEndpoint: st.cfg.Predictor.ClassifierEndpoint,
			ClassifierTimeout:  st.cfg.Predictor.ClassifierTimeout,
		},
		SerializeClassifier: st.cfg.Predictor.SerializeClassifier,
		MaxParallel:         st.cfg.Predictor.MaxParallel,
		Logger:              st.logger.Slog(),
	})
	_ = svc.Load()
	return svc
}
