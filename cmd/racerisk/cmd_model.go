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
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/racerisk/pkg/ux"
	"github.com/AleutianAI/racerisk/services/incidents/predictor"
)

// errTestMode is returned by model-info when no model could be loaded.
var errTestMode = errors.New("model not loaded, predictions use the heuristic")

func newModelInfoCmd(st *cliState) *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "model-info",
		Short: "Load the model artifacts and report their metadata",
		Long: `Load the configured model artifacts once and print the model metadata.

Exits non-zero when the artifacts cannot be loaded, so it doubles as a
deployment check.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runModelInfo(st.newPredictor(), st.cfg.Predictor.ResourceDir, output, cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", outputTable, "Output format: table or json")
	return cmd
}

func runModelInfo(pred *predictor.Service, dir, output string, out io.Writer) error {
	info, ok := pred.Info()
	if output == outputJSON {
		if err := writeJSON(out, struct {
			Mode      predictor.Mode       `json:"mode"`
			State     string               `json:"state"`
			ModelInfo *predictor.ModelInfo `json:"model_info,omitempty"`
			Error     string               `json:"error,omitempty"`
		}{
			Mode:      pred.Mode(),
			State:     pred.State().String(),
			ModelInfo: modelInfoPtr(info, ok),
			Error:     errString(pred.LoadError()),
		}); err != nil {
			return err
		}
	} else {
		p := ux.NewPrinter(out)
		p.Title("Incident model")
		p.Field("Resources", dir)
		p.Field("Mode", pred.Mode().Label())
		p.Field("State", pred.State())
		if ok {
			p.Field("Version", info.Version)
			p.Field("Accuracy", fmt.Sprintf("%.3f", info.Accuracy))
			p.Field("Trained", info.TrainedDate)
			p.Field("Seq length", info.SeqLength)
			p.Field("Classes", strings.Join(info.Classes, ", "))
		} else if err := pred.LoadError(); err != nil {
			p.Field("Error", err)
		}
	}

	if !ok {
		return fmt.Errorf("%w: %v", errTestMode, pred.LoadError())
	}
	return nil
}

func modelInfoPtr(info predictor.ModelInfo, ok bool) *predictor.ModelInfo {
	if !ok {
		return nil
	}
	return &info
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

func newInitModelCmd(st *cliState) *cobra.Command {
	var (
		dir       string
		seqLength int
		force     bool
	)
	cmd := &cobra.Command{
		Use:   "init-model",
		Short: "Write the baseline model artifacts",
		Long: `Write a small hand-weighted baseline model into a resource directory
so the service can run in AI mode before a trained model is installed.

Refuses to overwrite existing artifacts unless --force is given.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if dir == "" {
				dir = st.cfg.Predictor.ResourceDir
			}
			return runInitModel(dir, seqLength, force, cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringVarP(&dir, "dir", "d", "", "Target directory (default predictor.resource_dir)")
	cmd.Flags().IntVar(&seqLength, "seq-length", 10, "Lap window length")
	cmd.Flags().BoolVarP(&force, "force", "f", false, "Overwrite existing artifacts")
	return cmd
}

func runInitModel(dir string, seqLength int, force bool, out io.Writer) error {
	if seqLength <= 0 {
		return fmt.Errorf("--seq-length must be positive, got %d", seqLength)
	}
	if _, err := os.Stat(filepath.Join(dir, predictor.MetadataFile)); err == nil && !force {
		return fmt.Errorf("%s already holds model artifacts (use --force to overwrite)", dir)
	}
	if err := predictor.WriteArtifacts(dir, predictor.BaselineArtifacts(seqLength)); err != nil {
		return err
	}
	if _, err := predictor.LoadResources(dir, predictor.LoadOptions{}); err != nil {
		return fmt.Errorf("written artifacts do not load: %w", err)
	}
	ux.NewPrinter(out).Field("Wrote", dir)
	return nil
}
