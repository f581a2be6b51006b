// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package ux

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPrinter_PlainOutputHasNoEscapes(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	p.Title("Race 1")
	p.Field("Mode", "AI Powered")
	p.Muted("3 drivers")
	p.Table([]string{"Pilot", "Risk", "Level"}, [][]string{
		{"VER", "0.120", "LOW"},
		{"HAM", "0.410", "CRITICAL"},
	}, 2)

	out := buf.String()
	assert.NotContains(t, out, "\x1b[")
	assert.Contains(t, out, "Race 1")
	assert.Contains(t, out, "AI Powered")
	for _, cell := range []string{"Pilot", "Risk", "Level", "VER", "0.120", "HAM", "CRITICAL"} {
		assert.Contains(t, out, cell)
	}
}

func TestPrinter_TableRowOrder(t *testing.T) {
	var buf bytes.Buffer
	NewPrinterWithColor(&buf, false).Table([]string{"Pilot"}, [][]string{{"AAA"}, {"BBB"}}, -1)

	out := buf.String()
	assert.Less(t, strings.Index(out, "AAA"), strings.Index(out, "BBB"))
}

func TestPrinter_Level(t *testing.T) {
	p := NewPrinterWithColor(&bytes.Buffer{}, false)
	for _, level := range []string{"CRITICAL", "HIGH", "MODERATE", "LOW", "OTHER"} {
		assert.Equal(t, level, p.Level(level))
	}
}
