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
	"math/rand/v2"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// constSource always returns the same value, pinning every uniform draw to
// one end of its range.
type constSource uint64

func (c constSource) Uint64() uint64 { return uint64(c) }

const (
	lowDraws  = constSource(0)
	highDraws = constSource(^uint64(0))
)

func sumProbabilities(d RiskDistribution) float64 {
	var s float64
	for _, p := range d.Probabilities {
		s += p
	}
	return s
}

func TestHeuristicGenerator_MinimumDraws(t *testing.T) {
	g := NewHeuristicGenerator(lowDraws)

	d := g.Generate(1, DefaultClasses, DefaultNeutralClass)
	require.NoError(t, d.Validate())

	collision, _ := d.Probability(ClassCollision)
	engine, _ := d.Probability(ClassEngineFailure)
	neutral, _ := d.Probability(ClassSafetyCar)
	assert.InDelta(t, 0.012, collision, 1e-9)
	assert.InDelta(t, 0.05, engine, 1e-9)
	assert.InDelta(t, 0.162, d.TotalRisk, 1e-9)
	assert.InDelta(t, 0.838, neutral, 1e-9)
	assert.Equal(t, RiskModerate, Assess(d).Level)
}

func TestHeuristicGenerator_NormalizesLargeDraws(t *testing.T) {
	g := NewHeuristicGenerator(highDraws)

	d := g.Generate(30, DefaultClasses, DefaultNeutralClass)
	require.NoError(t, d.Validate())

	neutral, _ := d.Probability(ClassSafetyCar)
	assert.InDelta(t, 0.95, d.TotalRisk, 0.002)
	assert.InDelta(t, 0.05, neutral, 0.002)
	assert.InDelta(t, 1.0, sumProbabilities(d), 0.002)
}

func TestHeuristicGenerator_CollisionCapped(t *testing.T) {
	classes := []string{ClassCollision, ClassSafetyCar}

	t.Run("cap without rescale", func(t *testing.T) {
		// 0.45 + 3 * 0.05 stays below 1.
		d := NewHeuristicGenerator(lowDraws).Generate(200, classes, ClassSafetyCar)
		collision, _ := d.Probability(ClassCollision)
		assert.InDelta(t, collisionCap, collision, 1e-9)
		assert.InDelta(t, collisionCap, d.TotalRisk, 1e-9)
	})

	t.Run("capped value is rescaled with the rest", func(t *testing.T) {
		// 0.45 + 0.25 + 0.40 + 0.20 = 1.30, scaled to 0.95.
		d := NewHeuristicGenerator(highDraws).Generate(200, classes, ClassSafetyCar)
		collision, _ := d.Probability(ClassCollision)
		assert.InDelta(t, 0.329, collision, 1e-9)
	})
}

func TestHeuristicGenerator_UnmodelledClassesAreZero(t *testing.T) {
	g := NewHeuristicGenerator(lowDraws)

	d := g.Generate(5, []string{ClassCollision, "debris", ClassSafetyCar}, ClassSafetyCar)
	debris, ok := d.Probability("debris")
	require.True(t, ok)
	assert.Zero(t, debris)
	assert.NoError(t, d.Validate())
}

func TestHeuristicGenerator_Properties(t *testing.T) {
	g := NewHeuristicGenerator(rand.NewPCG(1, 2))

	for grid := 1; grid <= 20; grid++ {
		for i := 0; i < 50; i++ {
			d := g.Generate(grid, DefaultClasses, DefaultNeutralClass)
			require.NoError(t, d.Validate(), "grid=%d", grid)
			assert.InDelta(t, 1.0, sumProbabilities(d), 0.002)
			assert.LessOrEqual(t, d.TotalRisk, 1.0)
		}
	}
}

func TestHeuristicGenerator_Concurrent(t *testing.T) {
	generators := []*HeuristicGenerator{
		NewHeuristicGenerator(nil),
		NewHeuristicGenerator(rand.NewPCG(3, 4)),
	}
	for _, g := range generators {
		var wg sync.WaitGroup
		errs := make(chan error, 64)
		for i := 0; i < 64; i++ {
			wg.Add(1)
			go func(grid int) {
				defer wg.Done()
				errs <- g.Generate(grid, DefaultClasses, DefaultNeutralClass).Validate()
			}(i%20 + 1)
		}
		wg.Wait()
		close(errs)
		for err := range errs {
			assert.NoError(t, err)
		}
	}
}
