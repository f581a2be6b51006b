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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassifyRisk(t *testing.T) {
	tests := []struct {
		total float64
		want  RiskLevel
	}{
		{0.36, RiskCritical},
		{0.35, RiskHigh},
		{0.2501, RiskHigh},
		{0.25, RiskModerate},
		{0.1501, RiskModerate},
		{0.15, RiskLow},
		{0, RiskLow},
		{0.95, RiskCritical},
	}
	for _, tt := range tests {
		t.Run(string(tt.want), func(t *testing.T) {
			assert.Equal(t, tt.want, ClassifyRisk(tt.total), "total=%v", tt.total)
		})
	}
}

func TestRiskLevel_Exceeds(t *testing.T) {
	tests := []struct {
		level     RiskLevel
		threshold RiskLevel
		want      bool
	}{
		{RiskLow, RiskLow, false},
		{RiskModerate, RiskLow, true},
		{RiskHigh, RiskModerate, true},
		{RiskCritical, RiskHigh, true},
		{RiskLow, RiskHigh, false},
		{RiskModerate, RiskCritical, false},
	}
	for _, tt := range tests {
		t.Run(string(tt.level)+"_exceeds_"+string(tt.threshold), func(t *testing.T) {
			if got := tt.level.Exceeds(tt.threshold); got != tt.want {
				t.Errorf("RiskLevel(%s).Exceeds(%s) = %v, want %v",
					tt.level, tt.threshold, got, tt.want)
			}
		})
	}
}

func TestParseRiskLevel(t *testing.T) {
	level, ok := ParseRiskLevel(" critical ")
	assert.True(t, ok)
	assert.Equal(t, RiskCritical, level)

	_, ok = ParseRiskLevel("MEDIUM")
	assert.False(t, ok)
}

func TestAssess(t *testing.T) {
	d, err := NewRiskDistribution(
		[]string{ClassCollision, ClassEngineFailure, ClassSafetyCar},
		[]float64{0.2, 0.1, 0.7},
		ClassSafetyCar,
	)
	require.NoError(t, err)
	assert.InDelta(t, 0.3, d.TotalRisk, 1e-9)

	a := Assess(d)
	assert.Equal(t, RiskHigh, a.Level)
	assert.Equal(t, Recommendations[RiskHigh], a.Recommendation)
	for _, level := range RiskLevels {
		assert.NotEmpty(t, Recommendations[level])
	}
}

func TestRiskDistribution_JSON(t *testing.T) {
	d, err := NewRiskDistribution(
		[]string{ClassCollision, ClassSafetyCar},
		[]float64{0.25, 0.75},
		ClassSafetyCar,
	)
	require.NoError(t, err)

	data, err := json.Marshal(d)
	require.NoError(t, err)

	var got map[string]float64
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, map[string]float64{
		ClassCollision: 0.25,
		ClassSafetyCar: 0.75,
		TotalRiskKey:   0.25,
	}, got)
}

func TestRiskDistribution_Validate(t *testing.T) {
	classes := []string{ClassCollision, ClassSafetyCar}

	valid := RiskDistribution{Classes: classes, Probabilities: []float64{0.2, 0.8}, Neutral: ClassSafetyCar, TotalRisk: 0.2}
	assert.NoError(t, valid.Validate())

	badTotal := valid
	badTotal.TotalRisk = 0.3
	assert.Error(t, badTotal.Validate())

	outOfRange := RiskDistribution{Classes: classes, Probabilities: []float64{1.2, 0}, Neutral: ClassSafetyCar, TotalRisk: 1.2}
	assert.Error(t, outOfRange.Validate())

	_, err := NewRiskDistribution(classes, []float64{1}, ClassSafetyCar)
	assert.ErrorIs(t, err, ErrDimensionMismatch)
}

func recordWithTotal(total float64) PredictionRecord {
	d := RiskDistribution{
		Classes:       []string{ClassCollision, ClassSafetyCar},
		Probabilities: []float64{total, 1 - total},
		Neutral:       ClassSafetyCar,
		TotalRisk:     total,
	}
	a := Assess(d)
	return PredictionRecord{Risks: d, RiskLevel: a.Level, Recommendation: a.Recommendation}
}

func TestComputeFieldStatistics(t *testing.T) {
	stats := ComputeFieldStatistics([]PredictionRecord{
		recordWithTotal(0.4),
		recordWithTotal(0.3),
		recordWithTotal(0.1),
	})

	assert.Equal(t, FieldStatistics{
		TotalPilots:   3,
		CriticalCount: 1,
		HighCount:     1,
		ModerateCount: 0,
		LowCount:      1,
		AverageRisk:   0.267,
	}, stats)

	sum := 0
	for _, level := range RiskLevels {
		sum += stats.Count(level)
	}
	assert.Equal(t, stats.TotalPilots, sum)
}

func TestComputeFieldStatistics_Empty(t *testing.T) {
	assert.Equal(t, FieldStatistics{}, ComputeFieldStatistics(nil))
}
