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
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func zeroRows(rows, cols int) [][]float64 {
	out := make([][]float64, rows)
	for i := range out {
		out[i] = make([]float64, cols)
	}
	return out
}

func TestDenseClassifier_Predict(t *testing.T) {
	c, err := NewDenseClassifier(DenseClassifierParams{
		StaticWeights:   zeroRows(2, 3),
		SequenceWeights: zeroRows(2, 2),
		Bias:            []float64{0, 0},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, c.Classes())
	assert.Equal(t, 3, c.StaticWidth())
	assert.Equal(t, 2, c.SequenceWidth())

	got, err := c.Predict(context.Background(), []float64{1, 2, 3}, []float64{4, 5})
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float64{0.5, 0.5}, got, 1e-12)

	_, err = c.Predict(context.Background(), []float64{1}, []float64{4, 5})
	assert.ErrorIs(t, err, ErrDimensionMismatch)
}

func TestDenseClassifier_Softmax(t *testing.T) {
	c, err := NewDenseClassifier(DenseClassifierParams{
		StaticWeights:   [][]float64{{1}, {0}},
		SequenceWeights: [][]float64{{0}, {0}},
		Bias:            []float64{0, 0},
	})
	require.NoError(t, err)

	got, err := c.Predict(context.Background(), []float64{math.Log(3)}, []float64{0})
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float64{0.75, 0.25}, got, 1e-12)
}

func TestNewDenseClassifier_Invalid(t *testing.T) {
	_, err := NewDenseClassifier(DenseClassifierParams{})
	assert.Error(t, err)

	_, err = NewDenseClassifier(DenseClassifierParams{
		StaticWeights:   zeroRows(1, 3),
		SequenceWeights: zeroRows(2, 2),
		Bias:            []float64{0, 0},
	})
	assert.ErrorIs(t, err, ErrDimensionMismatch)

	_, err = NewDenseClassifier(DenseClassifierParams{
		StaticWeights:   [][]float64{{1, 2}, {1}},
		SequenceWeights: zeroRows(2, 2),
		Bias:            []float64{0, 0},
	})
	assert.ErrorIs(t, err, ErrDimensionMismatch)
}

func TestInvokeClassifier_Failures(t *testing.T) {
	tests := []struct {
		name string
		c    ClassifierFunc
	}{
		{"error", func(context.Context, []float64, []float64) ([]float64, error) {
			return nil, errors.New("boom")
		}},
		{"panic", func(context.Context, []float64, []float64) ([]float64, error) {
			panic("kaboom")
		}},
		{"wrong length", func(context.Context, []float64, []float64) ([]float64, error) {
			return []float64{1}, nil
		}},
		{"nan", func(context.Context, []float64, []float64) ([]float64, error) {
			return []float64{math.NaN(), 0.5}, nil
		}},
		{"above one", func(context.Context, []float64, []float64) ([]float64, error) {
			return []float64{1.5, 0}, nil
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			probs, err := invokeClassifier(context.Background(), tt.c, nil, nil, 2)
			assert.Nil(t, probs)
			assert.ErrorIs(t, err, ErrClassifierInvocation)

			var ce *ClassifierError
			assert.ErrorAs(t, err, &ce)
		})
	}
}

func TestSerialize(t *testing.T) {
	var active, peak atomic.Int32
	inner := ClassifierFunc(func(context.Context, []float64, []float64) ([]float64, error) {
		n := active.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(time.Millisecond)
		active.Add(-1)
		return []float64{1}, nil
	})

	c := Serialize(inner)
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := c.Predict(context.Background(), nil, nil)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), peak.Load())
}

func TestHTTPClassifier_Predict(t *testing.T) {
	var got classifierRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_ = json.NewEncoder(w).Encode(classifierResponse{Probabilities: []float64{0.1, 0.9}})
	}))
	defer srv.Close()

	c, err := NewHTTPClassifier(srv.URL, srv.Client(), time.Second)
	require.NoError(t, err)

	probs, err := c.Predict(context.Background(), []float64{1, 2}, []float64{3, 4, 5})
	require.NoError(t, err)
	assert.Equal(t, []float64{0.1, 0.9}, probs)
	assert.Equal(t, []float64{1, 2}, got.Static)
	assert.Equal(t, [][]float64{{3}, {4}, {5}}, got.Sequence)
}

func TestHTTPClassifier_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not loaded", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c, err := NewHTTPClassifier(srv.URL, nil, 0)
	require.NoError(t, err)

	_, err = c.Predict(context.Background(), nil, nil)
	assert.ErrorContains(t, err, "503")
}

func TestNewHTTPClassifier_InvalidEndpoint(t *testing.T) {
	for _, endpoint := range []string{"ftp://model", "http://", "::bad"} {
		_, err := NewHTTPClassifier(endpoint, nil, 0)
		assert.Error(t, err, endpoint)
	}
}
