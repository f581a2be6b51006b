// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package ux renders CLI output: styled titles, risk tiers and tables.
//
// Colour is used only when the destination is a terminal and NO_COLOR is
// unset, so piped output stays plain.
package ux

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/mattn/go-isatty"
)

// Palette.
var (
	ColorTealBright  = lipgloss.Color("#2CD7C7")
	ColorTealPrimary = lipgloss.Color("#20B9B4")
	ColorTealDeep    = lipgloss.Color("#16858E")
	ColorSlate       = lipgloss.Color("#2C4A54")

	ColorSuccess = lipgloss.Color("#2CD7C7")
	ColorWarning = lipgloss.Color("#F4D03F")
	ColorAlert   = lipgloss.Color("#E67E22")
	ColorError   = lipgloss.Color("#E74C3C")
)

// Printer writes styled output to one destination.
type Printer struct {
	out   io.Writer
	color bool
	r     *lipgloss.Renderer
}

// NewPrinter returns a Printer for out. Colour is enabled when out is a
// terminal and NO_COLOR is unset.
func NewPrinter(out io.Writer) *Printer {
	return NewPrinterWithColor(out, isTerminal(out) && os.Getenv("NO_COLOR") == "")
}

// NewPrinterWithColor returns a Printer with colour forced on or off.
func NewPrinterWithColor(out io.Writer, color bool) *Printer {
	return &Printer{out: out, color: color, r: lipgloss.NewRenderer(out)}
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

func (p *Printer) style() lipgloss.Style { return p.r.NewStyle() }

func (p *Printer) paint(s lipgloss.Style, text string) string {
	if !p.color {
		return text
	}
	return s.Render(text)
}

// Title prints a bold heading.
func (p *Printer) Title(text string) {
	fmt.Fprintln(p.out, p.paint(p.style().Bold(true).Foreground(ColorTealBright), text))
}

// Muted prints secondary text.
func (p *Printer) Muted(text string) {
	fmt.Fprintln(p.out, p.paint(p.style().Foreground(ColorSlate), text))
}

// Field prints an aligned "label: value" line.
func (p *Printer) Field(label string, value any) {
	fmt.Fprintf(p.out, "%-14s %v\n", p.paint(p.style().Bold(true), label+":"), value)
}

// Level renders a risk tier name in its tier colour.
func (p *Printer) Level(level string) string {
	return p.paint(p.levelStyle(level), level)
}

func (p *Printer) levelStyle(level string) lipgloss.Style {
	switch strings.ToUpper(level) {
	case "CRITICAL":
		return p.style().Bold(true).Foreground(ColorError)
	case "HIGH":
		return p.style().Foreground(ColorAlert)
	case "MODERATE":
		return p.style().Foreground(ColorWarning)
	case "LOW":
		return p.style().Foreground(ColorSuccess)
	}
	return p.style()
}

// Table prints rows under headers. levelCol, when non-negative, names the
// column holding a risk tier to colour.
func (p *Printer) Table(headers []string, rows [][]string, levelCol int) {
	t := table.New().
		Border(lipgloss.RoundedBorder()).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			s := p.style().Padding(0, 1)
			if !p.color {
				return s
			}
			if row == table.HeaderRow {
				return s.Bold(true).Foreground(ColorTealPrimary)
			}
			if col == levelCol && row >= 0 && row < len(rows) {
				return p.levelStyle(rows[row][col]).Padding(0, 1)
			}
			return s
		})
	if p.color {
		t = t.BorderStyle(p.style().Foreground(ColorTealDeep))
	}
	fmt.Fprintln(p.out, t.String())
}
