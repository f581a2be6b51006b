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

import "strings"

// Risk level thresholds. A total strictly greater than the threshold enters
// the tier.
const (
	ThresholdCritical = 0.35
	ThresholdHigh     = 0.25
	ThresholdModerate = 0.15
)

// RiskLevel is the discrete tier derived from total_risk.
type RiskLevel string

const (
	RiskLow      RiskLevel = "LOW"
	RiskModerate RiskLevel = "MODERATE"
	RiskHigh     RiskLevel = "HIGH"
	RiskCritical RiskLevel = "CRITICAL"
)

// RiskLevels lists every tier from most to least severe.
var RiskLevels = []RiskLevel{RiskCritical, RiskHigh, RiskModerate, RiskLow}

var riskLevelOrder = map[RiskLevel]int{
	RiskLow:      0,
	RiskModerate: 1,
	RiskHigh:     2,
	RiskCritical: 3,
}

// ParseRiskLevel parses a case-insensitive tier name.
func ParseRiskLevel(s string) (RiskLevel, bool) {
	level := RiskLevel(strings.ToUpper(strings.TrimSpace(s)))
	if _, ok := riskLevelOrder[level]; !ok {
		return "", false
	}
	return level, true
}

// Order returns the numeric order of this risk level.
func (r RiskLevel) Order() int {
	return riskLevelOrder[r]
}

// Exceeds returns true if this risk level exceeds the threshold.
func (r RiskLevel) Exceeds(threshold RiskLevel) bool {
	return r.Order() > threshold.Order()
}

// Recommendations for each risk level.
var Recommendations = map[RiskLevel]string{
	RiskCritical: "Early pit stop recommended. Reduce pace immediately.",
	RiskHigh:     "Heightened monitoring. Prepare an alternate strategy.",
	RiskModerate: "Normal vigilance. Situation under control.",
	RiskLow:      "Continue current strategy. Situation stable.",
}

// ClassifyRisk maps a total risk to its tier.
func ClassifyRisk(totalRisk float64) RiskLevel {
	switch {
	case totalRisk > ThresholdCritical:
		return RiskCritical
	case totalRisk > ThresholdHigh:
		return RiskHigh
	case totalRisk > ThresholdModerate:
		return RiskModerate
	default:
		return RiskLow
	}
}

// RiskAssessment is the tier and advice for one distribution.
type RiskAssessment struct {
	TotalRisk      float64   `json:"total_risk"`
	Level          RiskLevel `json:"risk_level"`
	Recommendation string    `json:"recommendation"`
}

// Assess classifies d.TotalRisk and attaches the tier's recommendation.
func Assess(d RiskDistribution) RiskAssessment {
	level := ClassifyRisk(d.TotalRisk)
	return RiskAssessment{
		TotalRisk:      d.TotalRisk,
		Level:          level,
		Recommendation: Recommendations[level],
	}
}
