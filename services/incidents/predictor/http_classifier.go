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
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// DefaultClassifierTimeout bounds a single remote classifier call.
const DefaultClassifierTimeout = 2 * time.Second

// HTTPClassifier forwards scoring requests to an external model server.
//
// # Description
//
// POSTs {"static": [...], "sequence": [[...], ...]} to the endpoint and
// expects {"probabilities": [...]} back. The sequence is sent as
// seq_length rows of one channel each.
//
// # Limitations
//
//   - Every request pays one network round trip bounded by the timeout.
type HTTPClassifier struct {
	endpoint string
	client   *http.Client
	timeout  time.Duration
}

type classifierRequest struct {
	Static   []float64   `json:"static"`
	Sequence [][]float64 `json:"sequence"`
}

type classifierResponse struct {
	Probabilities []float64 `json:"probabilities"`
}

// NewHTTPClassifier validates endpoint and returns a classifier calling it.
// A nil client uses http.DefaultClient; a zero timeout uses
// DefaultClassifierTimeout.
func NewHTTPClassifier(endpoint string, client *http.Client, timeout time.Duration) (*HTTPClassifier, error) {
	u, err := url.Parse(endpoint)
	if err != nil {
		return nil, fmt.Errorf("parse classifier endpoint: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("classifier endpoint %q must use http or https", endpoint)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("classifier endpoint %q has no host", endpoint)
	}
	if client == nil {
		client = http.DefaultClient
	}
	if timeout <= 0 {
		timeout = DefaultClassifierTimeout
	}
	return &HTTPClassifier{endpoint: endpoint, client: client, timeout: timeout}, nil
}

// Endpoint returns the model server URL.
func (c *HTTPClassifier) Endpoint() string { return c.endpoint }

func (c *HTTPClassifier) Predict(ctx context.Context, static, sequence []float64) ([]float64, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	rows := make([][]float64, len(sequence))
	for i, v := range sequence {
		rows[i] = []float64{v}
	}
	body, err := json.Marshal(classifierRequest{Static: static, Sequence: rows})
	if err != nil {
		return nil, fmt.Errorf("marshal classifier request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build classifier request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("call classifier: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("classifier returned status %d: %s", resp.StatusCode, bytes.TrimSpace(snippet))
	}

	var out classifierResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode classifier response: %w", err)
	}
	return out.Probabilities, nil
}
