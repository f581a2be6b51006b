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
	"fmt"

	"gonum.org/v1/gonum/floats"
)

// Scaler standardizes a vector with per-feature mean and scale.
//
// A zero scale is treated as 1 so constant features pass through centred.
type Scaler struct {
	mean  []float64
	scale []float64
}

// ScalerParams is the on-disk form of a Scaler.
type ScalerParams struct {
	Mean  []float64 `json:"mean"`
	Scale []float64 `json:"scale"`
}

// NewScaler builds a Scaler from equal-length, non-empty parameters.
func NewScaler(mean, scale []float64) (*Scaler, error) {
	if len(mean) == 0 {
		return nil, errors.New("scaler has no features")
	}
	if len(mean) != len(scale) {
		return nil, fmt.Errorf("%w: mean has %d values, scale has %d",
			ErrDimensionMismatch, len(mean), len(scale))
	}

	s := &Scaler{
		mean:  make([]float64, len(mean)),
		scale: make([]float64, len(scale)),
	}
	copy(s.mean, mean)
	for i, v := range scale {
		if v == 0 {
			v = 1
		}
		s.scale[i] = v
	}
	return s, nil
}

// Width returns the number of features the scaler was fitted on.
func (s *Scaler) Width() int { return len(s.mean) }

// Transform returns (x - mean) / scale element-wise. x is not modified.
func (s *Scaler) Transform(x []float64) ([]float64, error) {
	if len(x) != len(s.mean) {
		return nil, fmt.Errorf("%w: scaler expects %d features, got %d",
			ErrDimensionMismatch, len(s.mean), len(x))
	}
	out := make([]float64, len(x))
	floats.SubTo(out, x, s.mean)
	floats.Div(out, s.scale)
	return out, nil
}
