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
	"context"
	"errors"
	"fmt"
	"math"
	"sync"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// Classifier scores one driver: scaled static features plus a scaled lap
// time window in, one probability per active class out.
type Classifier interface {
	Predict(ctx context.Context, static, sequence []float64) ([]float64, error)
}

// ClassifierFunc adapts a function to the Classifier interface.
type ClassifierFunc func(ctx context.Context, static, sequence []float64) ([]float64, error)

func (f ClassifierFunc) Predict(ctx context.Context, static, sequence []float64) ([]float64, error) {
	return f(ctx, static, sequence)
}

// =============================================================================
// Dense classifier
// =============================================================================

// DenseClassifierParams is the on-disk form of a DenseClassifier.
//
// Each row of StaticWeights and SequenceWeights belongs to one class, in
// metadata class order.
type DenseClassifierParams struct {
	StaticWeights   [][]float64 `json:"static_weights"`
	SequenceWeights [][]float64 `json:"sequence_weights"`
	Bias            []float64   `json:"bias"`
}

// DenseClassifier is a single linear layer over both inputs followed by a
// softmax. It is immutable and safe for concurrent use.
type DenseClassifier struct {
	static   *mat.Dense
	sequence *mat.Dense
	bias     *mat.VecDense
}

// NewDenseClassifier validates params and builds the classifier.
func NewDenseClassifier(params DenseClassifierParams) (*DenseClassifier, error) {
	classes := len(params.Bias)
	if classes == 0 {
		return nil, errors.New("classifier has no classes")
	}
	static, err := denseFromRows("static_weights", params.StaticWeights, classes)
	if err != nil {
		return nil, err
	}
	sequence, err := denseFromRows("sequence_weights", params.SequenceWeights, classes)
	if err != nil {
		return nil, err
	}
	return &DenseClassifier{
		static:   static,
		sequence: sequence,
		bias:     mat.NewVecDense(classes, append([]float64(nil), params.Bias...)),
	}, nil
}

func denseFromRows(name string, rows [][]float64, classes int) (*mat.Dense, error) {
	if len(rows) != classes {
		return nil, fmt.Errorf("%w: %s has %d rows, want %d", ErrDimensionMismatch, name, len(rows), classes)
	}
	width := len(rows[0])
	if width == 0 {
		return nil, fmt.Errorf("%s has empty rows", name)
	}
	data := make([]float64, 0, classes*width)
	for i, row := range rows {
		if len(row) != width {
			return nil, fmt.Errorf("%w: %s row %d has %d columns, want %d",
				ErrDimensionMismatch, name, i, len(row), width)
		}
		data = append(data, row...)
	}
	return mat.NewDense(classes, width, data), nil
}

// Classes returns the number of output classes.
func (c *DenseClassifier) Classes() int { return c.bias.Len() }

// StaticWidth returns the expected static vector length.
func (c *DenseClassifier) StaticWidth() int {
	_, w := c.static.Dims()
	return w
}

// SequenceWidth returns the expected sequence length.
func (c *DenseClassifier) SequenceWidth() int {
	_, w := c.sequence.Dims()
	return w
}

func (c *DenseClassifier) Predict(ctx context.Context, static, sequence []float64) ([]float64, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(static) != c.StaticWidth() {
		return nil, fmt.Errorf("%w: static input has %d values, want %d",
			ErrDimensionMismatch, len(static), c.StaticWidth())
	}
	if len(sequence) != c.SequenceWidth() {
		return nil, fmt.Errorf("%w: sequence input has %d values, want %d",
			ErrDimensionMismatch, len(sequence), c.SequenceWidth())
	}

	var logits, seqPart mat.VecDense
	logits.MulVec(c.static, mat.NewVecDense(len(static), static))
	seqPart.MulVec(c.sequence, mat.NewVecDense(len(sequence), sequence))
	logits.AddVec(&logits, &seqPart)
	logits.AddVec(&logits, c.bias)

	out := make([]float64, c.Classes())
	copy(out, logits.RawVector().Data)
	softmax(out)
	return out, nil
}

func softmax(v []float64) {
	floats.AddConst(-floats.Max(v), v)
	for i, x := range v {
		v[i] = math.Exp(x)
	}
	floats.Scale(1/floats.Sum(v), v)
}

// =============================================================================
// Invocation
// =============================================================================

// Serialize wraps c so that at most one Predict runs at a time. Use it for
// classifiers that are not safe for concurrent use.
func Serialize(c Classifier) Classifier {
	return &serializedClassifier{inner: c}
}

type serializedClassifier struct {
	mu    sync.Mutex
	inner Classifier
}

func (s *serializedClassifier) Predict(ctx context.Context, static, sequence []float64) ([]float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inner.Predict(ctx, static, sequence)
}

// invokeClassifier calls c and checks its output. Every failure, including
// a panic inside c, comes back as a *ClassifierError.
func invokeClassifier(ctx context.Context, c Classifier, static, sequence []float64, classes int) (probs []float64, err error) {
	defer func() {
		if r := recover(); r != nil {
			probs = nil
			err = &ClassifierError{Err: fmt.Errorf("panic: %v", r)}
		}
	}()

	probs, err = c.Predict(ctx, static, sequence)
	if err != nil {
		return nil, &ClassifierError{Err: err}
	}
	if err := validateProbabilities(probs, classes); err != nil {
		return nil, &ClassifierError{Err: err}
	}
	return probs, nil
}

func validateProbabilities(probs []float64, classes int) error {
	if len(probs) != classes {
		return fmt.Errorf("%w: classifier returned %d probabilities, want %d",
			ErrDimensionMismatch, len(probs), classes)
	}
	for i, p := range probs {
		if math.IsNaN(p) || p < 0 || p > 1 {
			return fmt.Errorf("probability %d out of range: %v", i, p)
		}
	}
	return nil
}
