// Package report prints the thresholds of a finished test, either as a
// bordered table for a terminal or as tab-separated values for other tools.
package report

import (
	"fmt"
	"io"
	"math"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"CSF/internal/trial"
)

// Format selects the output layout.
type Format int

const (
	Table Format = iota
	TSV
)

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39"))
	mutedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
)

var headers = []string{"c/deg", "thresholds", "mean", "sd", "sensitivity"}

// Meta describes the run that produced the results.
type Meta struct {
	Title     string
	SessionID string
	Seed      int64
	Responses int
	Correct   int
	// Elapsed is zero when unknown.
	Elapsed time.Duration
}

// Write renders results to w in the given format.
func Write(w io.Writer, results trial.Results, meta Meta, format Format) error {
	var out string
	switch format {
	case TSV:
		out = tsv(results.Summary())
	case Table:
		out = render(results.Summary(), meta)
	default:
		return fmt.Errorf("unknown report format %d", format)
	}
	_, err := io.WriteString(w, out)
	return err
}

func rows(points []trial.Point) [][]string {
	out := make([][]string, 0, len(points))
	for _, p := range points {
		th := make([]string, len(p.Thresholds))
		for i, v := range p.Thresholds {
			th[i] = fmt.Sprintf("%.4f", v)
		}
		out = append(out, []string{
			fmt.Sprintf("%.3g", p.Frequency),
			strings.Join(th, " "),
			fmt.Sprintf("%.4f", p.Mean),
			fmt.Sprintf("%.4f", p.Spread),
			sensitivity(p.Sensitivity),
		})
	}
	return out
}

func sensitivity(s float64) string {
	if math.IsInf(s, 1) {
		return "inf"
	}
	return fmt.Sprintf("%.1f", s)
}

func tsv(points []trial.Point) string {
	var b strings.Builder
	b.WriteString(strings.Join(headers, "\t"))
	b.WriteByte('\n')
	for _, r := range rows(points) {
		b.WriteString(strings.Join(r, "\t"))
		b.WriteByte('\n')
	}
	return b.String()
}

func render(points []trial.Point, meta Meta) string {
	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(mutedStyle).
		Headers(headers...).
		Rows(rows(points)...).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		})

	var b strings.Builder
	title := meta.Title
	if title == "" {
		title = "Contrast sensitivity"
	}
	b.WriteString(titleStyle.Render(title))
	b.WriteByte('\n')
	if line := metaLine(meta); line != "" {
		b.WriteString(mutedStyle.Render(line))
		b.WriteByte('\n')
	}
	b.WriteString(t.Render())
	b.WriteByte('\n')
	return b.String()
}

func metaLine(meta Meta) string {
	var parts []string
	if meta.SessionID != "" {
		parts = append(parts, "session "+meta.SessionID)
	}
	if meta.Seed != 0 {
		parts = append(parts, fmt.Sprintf("seed %d", meta.Seed))
	}
	if meta.Responses > 0 {
		parts = append(parts, fmt.Sprintf("%d/%d correct", meta.Correct, meta.Responses))
	}
	if meta.Elapsed > 0 {
		parts = append(parts, meta.Elapsed.Round(time.Second).String())
	}
	return strings.Join(parts, "  ")
}
