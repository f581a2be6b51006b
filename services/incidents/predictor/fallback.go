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
	"math"
	"math/rand/v2"
	"sync"

	"gonum.org/v1/gonum/floats/scalar"
	"gonum.org/v1/gonum/stat/distuv"
)

// Incident classes.
const (
	ClassCollision     = "collision"
	ClassEngineFailure = "engine_failure"
	ClassTireIssue     = "tire_issue"
	ClassOffTrack      = "off_track"
	ClassSafetyCar     = "safety_car"

	// DefaultNeutralClass is excluded from total_risk.
	DefaultNeutralClass = ClassSafetyCar
)

// DefaultClasses is the class list used when no metadata is loaded.
var DefaultClasses = []string{
	ClassCollision,
	ClassEngineFailure,
	ClassTireIssue,
	ClassOffTrack,
	ClassSafetyCar,
}

const (
	collisionBase        = 0.05
	collisionPerGridSlot = 0.012
	collisionCap         = 0.45

	// normalizedIncidentMass is the non-neutral total after rescaling a
	// draw whose components sum above 1.
	normalizedIncidentMass = 0.95

	probabilityDecimals = 3
)

// HeuristicGenerator produces plausible distributions without a classifier.
//
// # Description
//
// Collision risk grows with grid position; the other components are
// independent uniform draws. Components are rescaled to a total of 0.95
// when their raw sum exceeds 1, rounded to three decimals, and the
// neutral class receives the remainder.
//
// # Thread Safety
//
// Safe for concurrent use. A nil source draws from the runtime's global
// generator; an injected source is wrapped so concurrent draws do not race.
type HeuristicGenerator struct {
	src rand.Source
}

// NewHeuristicGenerator returns a generator drawing from src, or from the
// global generator when src is nil.
func NewHeuristicGenerator(src rand.Source) *HeuristicGenerator {
	if src != nil {
		src = &lockedSource{src: src}
	}
	return &HeuristicGenerator{src: src}
}

// Generate returns a distribution over classes for a driver starting at
// gridPosition. Classes the heuristic does not model get 0.
func (g *HeuristicGenerator) Generate(gridPosition int, classes []string, neutral string) RiskDistribution {
	collision := collisionBase + collisionPerGridSlot*float64(gridPosition) + g.uniform(-0.05, 0.1)
	components := map[string]float64{
		ClassCollision:     math.Max(0, math.Min(collisionCap, collision)),
		ClassEngineFailure: g.uniform(0.05, 0.25),
		ClassTireIssue:     g.uniform(0.05, 0.40),
		ClassOffTrack:      g.uniform(0.05, 0.20),
	}

	var sum float64
	for _, v := range components {
		sum += v
	}
	if sum > 1 {
		factor := normalizedIncidentMass / sum
		for k, v := range components {
			components[k] = v * factor
		}
	}

	probs := make([]float64, len(classes))
	neutralIdx := -1
	var total float64
	for i, class := range classes {
		if class == neutral {
			neutralIdx = i
			continue
		}
		probs[i] = scalar.Round(components[class], probabilityDecimals)
		total += probs[i]
	}
	total = scalar.Round(total, probabilityDecimals)
	if neutralIdx >= 0 {
		probs[neutralIdx] = math.Max(0, scalar.Round(1-total, probabilityDecimals))
	}

	return RiskDistribution{
		Classes:       append([]string(nil), classes...),
		Probabilities: probs,
		Neutral:       neutral,
		TotalRisk:     total,
	}
}

func (g *HeuristicGenerator) uniform(lo, hi float64) float64 {
	return distuv.Uniform{Min: lo, Max: hi, Src: g.src}.Rand()
}

type lockedSource struct {
	mu  sync.Mutex
	src rand.Source
}

func (s *lockedSource) Uint64() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.src.Uint64()
}
