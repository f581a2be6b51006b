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
	"gonum.org/v1/gonum/floats/scalar"
	"gonum.org/v1/gonum/stat"
)

// Source records which path produced a distribution.
type Source string

const (
	SourceClassifier Source = "classifier"
	SourceHeuristic  Source = "heuristic"
)

// PredictionRecord is one driver's prediction with identity attached.
type PredictionRecord struct {
	PilotID        int64            `json:"pilot_id"`
	PilotName      string           `json:"pilot_name"`
	PilotCode      string           `json:"pilot_code"`
	TeamName       string           `json:"team_name"`
	Risks          RiskDistribution `json:"risks"`
	RiskLevel      RiskLevel        `json:"risk_level"`
	Recommendation string           `json:"recommendation"`
	Source         Source           `json:"source"`
}

// FieldStatistics summarizes the tiers across a set of drivers.
type FieldStatistics struct {
	TotalPilots   int     `json:"total_pilots"`
	CriticalCount int     `json:"critical_count"`
	HighCount     int     `json:"high_count"`
	ModerateCount int     `json:"moderate_count"`
	LowCount      int     `json:"low_count"`
	AverageRisk   float64 `json:"average_risk"`
}

// Count returns the number of drivers at level.
func (s FieldStatistics) Count(level RiskLevel) int {
	switch level {
	case RiskCritical:
		return s.CriticalCount
	case RiskHigh:
		return s.HighCount
	case RiskModerate:
		return s.ModerateCount
	case RiskLow:
		return s.LowCount
	}
	return 0
}

// ComputeFieldStatistics counts tiers and averages total_risk.
//
// AverageRisk is rounded to three decimals and is 0 for an empty set.
func ComputeFieldStatistics(records []PredictionRecord) FieldStatistics {
	stats := FieldStatistics{TotalPilots: len(records)}
	if len(records) == 0 {
		return stats
	}

	totals := make([]float64, len(records))
	for i, r := range records {
		totals[i] = r.Risks.TotalRisk
		switch r.RiskLevel {
		case RiskCritical:
			stats.CriticalCount++
		case RiskHigh:
			stats.HighCount++
		case RiskModerate:
			stats.ModerateCount++
		default:
			stats.LowCount++
		}
	}
	stats.AverageRisk = scalar.Round(stat.Mean(totals, nil), probabilityDecimals)
	return stats
}
