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
	"math"
)

const (
	// TotalRiskKey is the map key under which TotalRisk is serialized.
	TotalRiskKey = "total_risk"

	// DistributionTolerance bounds the difference between TotalRisk and
	// the sum of non-neutral probabilities.
	DistributionTolerance = 1e-6
)

// RiskDistribution is a probability per incident class plus total_risk.
//
// # Description
//
// Classes and Probabilities are parallel slices in the order of the active
// class list. TotalRisk is the sum of every probability except Neutral's.
// It serializes to JSON as a flat object: one key per class plus
// "total_risk".
type RiskDistribution struct {
	Classes       []string
	Probabilities []float64
	Neutral       string
	TotalRisk     float64
}

// NewRiskDistribution builds a distribution and derives TotalRisk.
func NewRiskDistribution(classes []string, probs []float64, neutral string) (RiskDistribution, error) {
	if len(classes) != len(probs) {
		return RiskDistribution{}, fmt.Errorf("%w: %d classes, %d probabilities",
			ErrDimensionMismatch, len(classes), len(probs))
	}
	d := RiskDistribution{
		Classes:       append([]string(nil), classes...),
		Probabilities: append([]float64(nil), probs...),
		Neutral:       neutral,
	}
	d.TotalRisk = d.nonNeutralSum()
	return d, nil
}

// Probability returns the probability of class.
func (d RiskDistribution) Probability(class string) (float64, bool) {
	for i, c := range d.Classes {
		if c == class {
			return d.Probabilities[i], true
		}
	}
	return 0, false
}

// Map returns the flat class → probability view including total_risk.
func (d RiskDistribution) Map() map[string]float64 {
	out := make(map[string]float64, len(d.Classes)+1)
	for i, c := range d.Classes {
		out[c] = d.Probabilities[i]
	}
	out[TotalRiskKey] = d.TotalRisk
	return out
}

func (d RiskDistribution) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.Map())
}

// Validate checks range and total_risk consistency.
func (d RiskDistribution) Validate() error {
	if len(d.Classes) != len(d.Probabilities) {
		return fmt.Errorf("%w: %d classes, %d probabilities",
			ErrDimensionMismatch, len(d.Classes), len(d.Probabilities))
	}
	for i, p := range d.Probabilities {
		if math.IsNaN(p) || p < 0 || p > 1 {
			return fmt.Errorf("probability for %q out of range: %v", d.Classes[i], p)
		}
	}
	if diff := math.Abs(d.TotalRisk - d.nonNeutralSum()); diff > DistributionTolerance {
		return fmt.Errorf("total_risk %v differs from non-neutral sum by %v", d.TotalRisk, diff)
	}
	return nil
}

func (d RiskDistribution) nonNeutralSum() float64 {
	var sum float64
	for i, c := range d.Classes {
		if c == d.Neutral {
			continue
		}
		sum += d.Probabilities[i]
	}
	return sum
}
