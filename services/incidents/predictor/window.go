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

import "gonum.org/v1/gonum/stat"

// WindowLapTimes produces a sequence of exactly seqLength lap times.
//
// # Description
//
// An empty input yields DefaultLapTimeMs repeated. A short input is
// left-padded with its own mean. A long input keeps its last seqLength
// values. Lap order is preserved in every case.
//
// # Outputs
//
//   - []float64: New slice of length seqLength, or nil when seqLength <= 0.
func WindowLapTimes(lapTimes []int, seqLength int) []float64 {
	if seqLength <= 0 {
		return nil
	}

	out := make([]float64, seqLength)
	if len(lapTimes) == 0 {
		for i := range out {
			out[i] = DefaultLapTimeMs
		}
		return out
	}

	values := make([]float64, len(lapTimes))
	for i, v := range lapTimes {
		values[i] = float64(v)
	}

	if len(values) >= seqLength {
		copy(out, values[len(values)-seqLength:])
		return out
	}

	pad := seqLength - len(values)
	mean := stat.Mean(values, nil)
	for i := 0; i < pad; i++ {
		out[i] = mean
	}
	copy(out[pad:], values)
	return out
}
