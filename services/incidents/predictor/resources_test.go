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
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeBaseline(t *testing.T, seqLength int) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, WriteArtifacts(dir, BaselineArtifacts(seqLength)))
	return dir
}

func TestLoadResources_Baseline(t *testing.T) {
	dir := writeBaseline(t, 6)

	res, err := LoadResources(dir, LoadOptions{})
	require.NoError(t, err)

	assert.Equal(t, DefaultClasses, res.Metadata.Classes)
	assert.Equal(t, 6, res.Metadata.SeqLength)
	assert.Equal(t, DefaultNeutralClass, res.Metadata.NeutralClass)
	assert.Equal(t, StaticFeatureCount, res.StaticScaler.Width())
	assert.Equal(t, 6, res.SequenceScaler.Width())
	assert.Equal(t, 1, res.Encoder.Encode(CategoryDriver, "VER"))
	assert.IsType(t, &DenseClassifier{}, res.Classifier)

	info := res.Metadata.Info()
	assert.Equal(t, "baseline-1", info.Version)
	assert.Equal(t, 6, info.SeqLength)
}

func TestLoadResources_RemoteClassifier(t *testing.T) {
	dir := writeBaseline(t, 4)
	require.NoError(t, os.Remove(filepath.Join(dir, ClassifierFile)))

	res, err := LoadResources(dir, LoadOptions{ClassifierEndpoint: "http://model:8000/predict"})
	require.NoError(t, err)

	remote, ok := res.Classifier.(*HTTPClassifier)
	require.True(t, ok)
	assert.Equal(t, "http://model:8000/predict", remote.Endpoint())
}

func TestLoadResources_Failures(t *testing.T) {
	tests := []struct {
		name     string
		mutate   func(t *testing.T, dir string)
		resource string
	}{
		{
			name:     "missing metadata",
			mutate:   func(t *testing.T, dir string) { require.NoError(t, os.Remove(filepath.Join(dir, MetadataFile))) },
			resource: "metadata",
		},
		{
			name: "metadata without seq_length",
			mutate: func(t *testing.T, dir string) {
				writeFile(t, dir, MetadataFile, `{"classes":["collision","safety_car"],"model_version":"x","test_accuracy":0.5,"trained_date":"2024-01-01"}`)
			},
			resource: "metadata",
		},
		{
			name: "neutral class not listed",
			mutate: func(t *testing.T, dir string) {
				writeFile(t, dir, MetadataFile, `{"classes":["collision"],"seq_length":4,"model_version":"x","test_accuracy":0.5,"trained_date":"2024-01-01"}`)
			},
			resource: "metadata",
		},
		{
			name:     "missing encoders",
			mutate:   func(t *testing.T, dir string) { require.NoError(t, os.Remove(filepath.Join(dir, EncoderFile))) },
			resource: "encoders",
		},
		{
			name:     "corrupt static scaler",
			mutate:   func(t *testing.T, dir string) { writeFile(t, dir, StaticScalerFile, `{"mean": [1,`) },
			resource: "scaler_static",
		},
		{
			name:     "sequence scaler wrong width",
			mutate:   func(t *testing.T, dir string) { writeFile(t, dir, SequenceScalerFile, `{"mean":[1,2],"scale":[1,1]}`) },
			resource: "scaler_seq",
		},
		{
			name:     "missing classifier",
			mutate:   func(t *testing.T, dir string) { require.NoError(t, os.Remove(filepath.Join(dir, ClassifierFile))) },
			resource: "classifier",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := writeBaseline(t, 4)
			tt.mutate(t, dir)

			_, err := LoadResources(dir, LoadOptions{})
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrResourceMissing)

			var re *ResourceError
			require.True(t, errors.As(err, &re))
			assert.Equal(t, tt.resource, re.Resource)
		})
	}
}

func TestLoadResources_ClassifierShapeMismatch(t *testing.T) {
	dir := t.TempDir()
	set := BaselineArtifacts(4)
	set.Metadata.SeqLength = 5
	set.SequenceScaler = ScalerParams{Mean: make([]float64, 5), Scale: []float64{1, 1, 1, 1, 1}}
	require.NoError(t, WriteArtifacts(dir, set))

	_, err := LoadResources(dir, LoadOptions{})
	assert.ErrorIs(t, err, ErrResourceMissing)
	assert.ErrorIs(t, err, ErrDimensionMismatch)
}

func TestLoadResources_BadDirectory(t *testing.T) {
	_, err := LoadResources("", LoadOptions{})
	assert.ErrorIs(t, err, ErrResourceMissing)

	_, err = LoadResources(filepath.Join(t.TempDir(), "absent"), LoadOptions{})
	assert.ErrorIs(t, err, ErrResourceMissing)
}

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}
