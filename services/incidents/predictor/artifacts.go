// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package predictor

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// ArtifactSet is everything LoadResources reads, in memory.
type ArtifactSet struct {
	Metadata       Metadata
	StaticScaler   ScalerParams
	SequenceScaler ScalerParams
	Encoders       map[CategoryType]map[string]int
	Classifier     DenseClassifierParams
}

// WriteArtifacts writes set into dir using the file names LoadResources
// expects. dir is created if needed.
func WriteArtifacts(dir string, set ArtifactSet) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create resource directory: %w", err)
	}

	jsonFiles := map[string]any{
		MetadataFile:       set.Metadata,
		StaticScalerFile:   set.StaticScaler,
		SequenceScalerFile: set.SequenceScaler,
		ClassifierFile:     set.Classifier,
	}
	for name, v := range jsonFiles {
		data, err := json.MarshalIndent(v, "", "  ")
		if err != nil {
			return fmt.Errorf("marshal %s: %w", name, err)
		}
		if err := os.WriteFile(filepath.Join(dir, name), data, 0o644); err != nil {
			return fmt.Errorf("write %s: %w", name, err)
		}
	}

	enc, err := EncodeEncoderTables(set.Encoders)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", EncoderFile, err)
	}
	if err := os.WriteFile(filepath.Join(dir, EncoderFile), enc, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", EncoderFile, err)
	}
	return nil
}

// BaselineArtifacts returns a small hand-weighted model over DefaultClasses.
//
// # Description
//
// Collision and off-track scores rise with grid position, engine failure
// with lap count and tyre issues with pit stops. The sequence weights
// favour slower recent laps. It exists so a fresh install can run in AI
// mode before a trained model is dropped in.
func BaselineArtifacts(seqLength int) ArtifactSet {
	if seqLength <= 0 {
		seqLength = 10
	}

	seqWeights := func(w float64) []float64 {
		row := make([]float64, seqLength)
		for i := range row {
			row[i] = w * float64(i+1) / float64(seqLength)
		}
		return row
	}
	seqMean := make([]float64, seqLength)
	seqScale := make([]float64, seqLength)
	for i := range seqMean {
		seqMean[i] = DefaultLapTimeMs
		seqScale[i] = 2500
	}

	return ArtifactSet{
		Metadata: Metadata{
			Classes:      append([]string(nil), DefaultClasses...),
			SeqLength:    seqLength,
			ModelVersion: "baseline-1",
			TestAccuracy: 0,
			TrainedDate:  "2024-01-01",
			NeutralClass: DefaultNeutralClass,
		},
		StaticScaler: ScalerParams{
			Mean:  []float64{10, 12, 10, 5, 2022, 50, 1.5, 0},
			Scale: []float64{5.8, 7, 6, 3, 2, 15, 1, 4},
		},
		SequenceScaler: ScalerParams{Mean: seqMean, Scale: seqScale},
		Encoders: map[CategoryType]map[string]int{
			CategoryDriver:      {"VER": 1, "PER": 2, "HAM": 3, "RUS": 4, "LEC": 5, "SAI": 6, "NOR": 7, "PIA": 8, "ALO": 9, "STR": 10},
			CategoryCircuit:     {"bahrain": 1, "jeddah": 2, "melbourne": 3, "suzuka": 4, "monaco": 5, "monza": 6, "spa": 7, "silverstone": 8},
			CategoryConstructor: {"red-bull": 1, "mercedes": 2, "ferrari": 3, "mclaren": 4, "aston-martin": 5},
		},
		Classifier: DenseClassifierParams{
			StaticWeights: [][]float64{
				{0.45, 0.05, 0, 0, 0, 0, 0.1, -0.2},
				{0.05, 0, 0, -0.05, -0.1, 0.3, 0, 0},
				{0.1, 0.1, 0, 0, 0, 0.1, 0.35, 0},
				{0.3, 0.15, 0, 0, 0, 0, 0, -0.1},
				{-0.2, 0, 0, 0, 0, -0.1, -0.1, 0.1},
			},
			SequenceWeights: [][]float64{
				seqWeights(0.1),
				seqWeights(0.05),
				seqWeights(0.15),
				seqWeights(0.1),
				seqWeights(-0.1),
			},
			Bias: []float64{-0.6, -1.0, -0.7, -0.9, 0.9},
		},
	}
}
