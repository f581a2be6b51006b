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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testEncoder() *Encoder {
	return NewEncoder(map[CategoryType]map[string]int{
		CategoryDriver:      {"VER": 1, "HAM": 3},
		CategoryCircuit:     {"monaco": 5},
		CategoryConstructor: {"red-bull": 1, "mercedes": 2},
	})
}

func TestEncoder_Encode(t *testing.T) {
	enc := testEncoder()

	tests := []struct {
		name     string
		category CategoryType
		raw      string
		want     int
	}{
		{"known driver", CategoryDriver, "HAM", 3},
		{"known circuit", CategoryCircuit, "monaco", 5},
		{"unseen value", CategoryDriver, "XYZ", UnknownCode},
		{"empty value", CategoryConstructor, "", UnknownCode},
		{"unknown category", CategoryType("season"), "VER", UnknownCode},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, enc.Encode(tt.category, tt.raw))
		})
	}
}

func TestEncoder_Lookup(t *testing.T) {
	enc := testEncoder()

	got := enc.Lookup(CategoryDriver, "VER")
	assert.Equal(t, CategoryCode{Category: CategoryDriver, Raw: "VER", Code: 1, Known: true}, got)

	miss := enc.Lookup(CategoryDriver, "ZZZ")
	assert.False(t, miss.Known)
	assert.Equal(t, UnknownCode, miss.Code)

	var nilEnc *Encoder
	assert.Equal(t, UnknownCode, nilEnc.Encode(CategoryDriver, "VER"))
	assert.Equal(t, 0, nilEnc.Size(CategoryDriver))
}

func TestEncoder_MsgpackRoundTrip(t *testing.T) {
	tables := map[CategoryType]map[string]int{
		CategoryDriver:      {"VER": 1},
		CategoryCircuit:     {"spa": 7},
		CategoryConstructor: {"ferrari": 3},
	}
	data, err := EncodeEncoderTables(tables)
	require.NoError(t, err)

	enc, err := decodeEncoder(data)
	require.NoError(t, err)
	assert.Equal(t, 7, enc.Encode(CategoryCircuit, "spa"))
	assert.Equal(t, 1, enc.Size(CategoryConstructor))
}

func TestEncoder_DecodeRequiresAllCategories(t *testing.T) {
	data, err := EncodeEncoderTables(map[CategoryType]map[string]int{
		CategoryDriver: {"VER": 1},
	})
	require.NoError(t, err)

	_, err = decodeEncoder(data)
	assert.ErrorContains(t, err, "circuit")

	_, err = decodeEncoder([]byte("not msgpack"))
	assert.Error(t, err)
}

func TestBuildStaticFeatures(t *testing.T) {
	enc := testEncoder()

	t.Run("full input", func(t *testing.T) {
		in := DriverInput{
			Pilot:    PilotInput{Code: "VER", TeamSlug: "red-bull"},
			Circuit:  CircuitInput{Slug: "monaco"},
			LapTimes: []int{80000, 81000, 82000},
			Race: RaceInput{
				GridPosition:   IntPtr(3),
				Year:           IntPtr(2023),
				NumPitStops:    IntPtr(2),
				PositionChange: IntPtr(-1),
			},
		}
		got := BuildStaticFeatures(in, enc)
		assert.Equal(t, StaticFeatureVector{3, 5, 1, 1, 2023, 3, 2, -1}, got)
	})

	t.Run("defaults", func(t *testing.T) {
		got := BuildStaticFeatures(DriverInput{}, enc)
		assert.Equal(t, StaticFeatureVector{10, 0, 0, 0, 2024, 0, 0, 0}, got)
	})

	t.Run("unknown literal trained", func(t *testing.T) {
		withUnknown := NewEncoder(map[CategoryType]map[string]int{
			CategoryDriver: {"unknown": 9},
		})
		got := BuildStaticFeatures(DriverInput{}, withUnknown)
		assert.Equal(t, float64(9), got[2])
	})

	t.Run("slice is a copy", func(t *testing.T) {
		v := BuildStaticFeatures(DriverInput{}, enc)
		s := v.Slice()
		s[0] = 99
		assert.Equal(t, float64(DefaultGridPosition), v[0])
		assert.Len(t, s, StaticFeatureCount)
	})
}

func TestStaticFeatureOrder(t *testing.T) {
	assert.Equal(t, [StaticFeatureCount]string{
		"grid_position",
		"circuit_encoded",
		"driver_encoded",
		"constructor_encoded",
		"year",
		"lap_count",
		"num_pit_stops",
		"position_change",
	}, StaticFeatureNames)

	// The baseline scaler must line up with the same slots.
	mean := BaselineArtifacts(10).StaticScaler.Mean
	assert.Equal(t, 50.0, mean[5], "lap_count mean")
	assert.Equal(t, 1.5, mean[6], "num_pit_stops mean")
}

func TestScaler_Transform(t *testing.T) {
	s, err := NewScaler([]float64{1, 2}, []float64{2, 0})
	require.NoError(t, err)

	x := []float64{5, 7}
	got, err := s.Transform(x)
	require.NoError(t, err)
	assert.Equal(t, []float64{2, 5}, got)
	assert.Equal(t, []float64{5, 7}, x)

	_, err = s.Transform([]float64{1, 2, 3})
	assert.ErrorIs(t, err, ErrDimensionMismatch)
}

func TestNewScaler_Invalid(t *testing.T) {
	_, err := NewScaler(nil, nil)
	assert.Error(t, err)

	_, err = NewScaler([]float64{1, 2}, []float64{1})
	assert.ErrorIs(t, err, ErrDimensionMismatch)
}

func TestWindowLapTimes(t *testing.T) {
	tests := []struct {
		name      string
		lapTimes  []int
		seqLength int
		want      []float64
	}{
		{"empty uses default", nil, 3, []float64{90000, 90000, 90000}},
		{"short is left padded with mean", []int{80000, 82000}, 5, []float64{81000, 81000, 81000, 80000, 82000}},
		{"long keeps most recent", []int{1, 2, 3, 4, 5}, 3, []float64{3, 4, 5}},
		{"fifteen laps into ten", []int{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15}, 10,
			[]float64{6, 7, 8, 9, 10, 11, 12, 13, 14, 15}},
		{"exact length", []int{7, 8, 9}, 3, []float64{7, 8, 9}},
		{"zero length", []int{1}, 0, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := WindowLapTimes(tt.lapTimes, tt.seqLength)
			assert.Equal(t, tt.want, got)
		})
	}
}
