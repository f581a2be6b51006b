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
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"slices"
	"time"
)

// Artifact file names inside a resource directory.
const (
	MetadataFile       = "metadata.json"
	StaticScalerFile   = "scaler_static.json"
	SequenceScalerFile = "scaler_seq.json"
	EncoderFile        = "encoders.msgpack"
	ClassifierFile     = "classifier.json"
)

// Metadata describes the trained model.
type Metadata struct {
	Classes      []string `json:"classes"`
	SeqLength    int      `json:"seq_length"`
	ModelVersion string   `json:"model_version"`
	TestAccuracy float64  `json:"test_accuracy"`
	TrainedDate  string   `json:"trained_date"`
	NeutralClass string   `json:"neutral_class,omitempty"`
}

// ModelInfo is the public view of Metadata.
type ModelInfo struct {
	Version     string   `json:"version"`
	Accuracy    float64  `json:"accuracy"`
	Classes     []string `json:"classes"`
	SeqLength   int      `json:"seq_length"`
	TrainedDate string   `json:"trained_date"`
}

// Info returns the public view of m.
func (m Metadata) Info() ModelInfo {
	return ModelInfo{
		Version:     m.ModelVersion,
		Accuracy:    m.TestAccuracy,
		Classes:     append([]string(nil), m.Classes...),
		SeqLength:   m.SeqLength,
		TrainedDate: m.TrainedDate,
	}
}

// rawMetadata uses pointers so absent keys can be told apart from zeros.
type rawMetadata struct {
	Classes      []string `json:"classes"`
	SeqLength    *int     `json:"seq_length"`
	ModelVersion *string  `json:"model_version"`
	TestAccuracy *float64 `json:"test_accuracy"`
	TrainedDate  *string  `json:"trained_date"`
	NeutralClass string   `json:"neutral_class"`
}

// Resources is the full set of loaded artifacts.
type Resources struct {
	Classifier     Classifier
	StaticScaler   *Scaler
	SequenceScaler *Scaler
	Encoder        *Encoder
	Metadata       Metadata
}

// LoadOptions controls where the classifier comes from.
type LoadOptions struct {
	// ClassifierEndpoint, when set, replaces classifier.json with a remote
	// model server.
	ClassifierEndpoint string

	// ClassifierTimeout bounds each remote call.
	ClassifierTimeout time.Duration

	// HTTPClient is used for remote calls. Nil means http.DefaultClient.
	HTTPClient *http.Client
}

// LoadResources reads and cross-checks every artifact in dir.
//
// # Description
//
// Reads metadata, both scalers, the encoder tables and the classifier.
// Shapes must agree: the static scaler has 8 features, the sequence
// scaler and the classifier's sequence input have seq_length, and the
// classifier outputs one value per class.
//
// # Outputs
//
//   - *Resources: Loaded artifacts.
//   - error: A *ResourceError naming the first artifact that failed.
func LoadResources(dir string, opts LoadOptions) (*Resources, error) {
	if dir == "" {
		return nil, &ResourceError{Resource: "directory", Err: errors.New("resource directory not configured")}
	}
	info, err := os.Stat(dir)
	if err != nil {
		return nil, &ResourceError{Resource: "directory", Path: dir, Err: err}
	}
	if !info.IsDir() {
		return nil, &ResourceError{Resource: "directory", Path: dir, Err: errors.New("not a directory")}
	}

	meta, err := loadMetadata(filepath.Join(dir, MetadataFile))
	if err != nil {
		return nil, err
	}

	static, err := loadScaler("scaler_static", filepath.Join(dir, StaticScalerFile), StaticFeatureCount)
	if err != nil {
		return nil, err
	}
	sequence, err := loadScaler("scaler_seq", filepath.Join(dir, SequenceScalerFile), meta.SeqLength)
	if err != nil {
		return nil, err
	}

	encPath := filepath.Join(dir, EncoderFile)
	encData, err := os.ReadFile(encPath)
	if err != nil {
		return nil, &ResourceError{Resource: "encoders", Path: encPath, Err: err}
	}
	enc, err := decodeEncoder(encData)
	if err != nil {
		return nil, &ResourceError{Resource: "encoders", Path: encPath, Err: err}
	}

	classifier, err := loadClassifier(dir, meta, opts)
	if err != nil {
		return nil, err
	}

	return &Resources{
		Classifier:     classifier,
		StaticScaler:   static,
		SequenceScaler: sequence,
		Encoder:        enc,
		Metadata:       meta,
	}, nil
}

func loadMetadata(path string) (Metadata, error) {
	var raw rawMetadata
	if err := readJSON(path, &raw); err != nil {
		return Metadata{}, &ResourceError{Resource: "metadata", Path: path, Err: err}
	}

	fail := func(format string, args ...any) (Metadata, error) {
		return Metadata{}, &ResourceError{Resource: "metadata", Path: path, Err: fmt.Errorf(format, args...)}
	}
	switch {
	case len(raw.Classes) == 0:
		return fail("classes missing or empty")
	case raw.SeqLength == nil:
		return fail("seq_length missing")
	case *raw.SeqLength <= 0:
		return fail("seq_length must be positive, got %d", *raw.SeqLength)
	case raw.ModelVersion == nil:
		return fail("model_version missing")
	case raw.TestAccuracy == nil:
		return fail("test_accuracy missing")
	case raw.TrainedDate == nil:
		return fail("trained_date missing")
	}

	neutral := raw.NeutralClass
	if neutral == "" {
		neutral = DefaultNeutralClass
	}
	if !slices.Contains(raw.Classes, neutral) {
		return fail("neutral class %q not in classes", neutral)
	}

	return Metadata{
		Classes:      raw.Classes,
		SeqLength:    *raw.SeqLength,
		ModelVersion: *raw.ModelVersion,
		TestAccuracy: *raw.TestAccuracy,
		TrainedDate:  *raw.TrainedDate,
		NeutralClass: neutral,
	}, nil
}

func loadScaler(name, path string, width int) (*Scaler, error) {
	var params ScalerParams
	if err := readJSON(path, &params); err != nil {
		return nil, &ResourceError{Resource: name, Path: path, Err: err}
	}
	s, err := NewScaler(params.Mean, params.Scale)
	if err != nil {
		return nil, &ResourceError{Resource: name, Path: path, Err: err}
	}
	if s.Width() != width {
		return nil, &ResourceError{Resource: name, Path: path,
			Err: fmt.Errorf("%w: scaler has %d features, want %d", ErrDimensionMismatch, s.Width(), width)}
	}
	return s, nil
}

func loadClassifier(dir string, meta Metadata, opts LoadOptions) (Classifier, error) {
	if opts.ClassifierEndpoint != "" {
		c, err := NewHTTPClassifier(opts.ClassifierEndpoint, opts.HTTPClient, opts.ClassifierTimeout)
		if err != nil {
			return nil, &ResourceError{Resource: "classifier", Path: opts.ClassifierEndpoint, Err: err}
		}
		return c, nil
	}

	path := filepath.Join(dir, ClassifierFile)
	var params DenseClassifierParams
	if err := readJSON(path, &params); err != nil {
		return nil, &ResourceError{Resource: "classifier", Path: path, Err: err}
	}
	c, err := NewDenseClassifier(params)
	if err != nil {
		return nil, &ResourceError{Resource: "classifier", Path: path, Err: err}
	}

	var shapeErr error
	switch {
	case c.Classes() != len(meta.Classes):
		shapeErr = fmt.Errorf("classifier has %d outputs, metadata lists %d classes", c.Classes(), len(meta.Classes))
	case c.StaticWidth() != StaticFeatureCount:
		shapeErr = fmt.Errorf("classifier static input is %d wide, want %d", c.StaticWidth(), StaticFeatureCount)
	case c.SequenceWidth() != meta.SeqLength:
		shapeErr = fmt.Errorf("classifier sequence input is %d long, want %d", c.SequenceWidth(), meta.SeqLength)
	}
	if shapeErr != nil {
		return nil, &ResourceError{Resource: "classifier", Path: path, Err: fmt.Errorf("%w: %v", ErrDimensionMismatch, shapeErr)}
	}
	return c, nil
}

func readJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("parse %s: %w", filepath.Base(path), err)
	}
	return nil
}
