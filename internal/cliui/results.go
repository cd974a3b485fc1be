package cliui

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/mr-nozko/rag-mcp/internal/search"
)

// Score color bands, lifted from the lime-green accent palette: high scores
// read lime, mid scores dim lime, low scores gray.
const (
	colorLime    = "154"
	colorLimeDim = "106"
	colorGray    = "245"
	colorDim     = "238"
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(colorLime))
	pathStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color(colorGray))
	dimStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color(colorDim))
)

func scoreStyle(score float64) lipgloss.Style {
	switch {
	case score >= 0.7:
		return lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(colorLime))
	case score >= 0.4:
		return lipgloss.NewStyle().Foreground(lipgloss.Color(colorLimeDim))
	default:
		return lipgloss.NewStyle().Foreground(lipgloss.Color(colorGray))
	}
}

// PrintResults renders search results to w, column-aligned and score-colored
// when w is a terminal, plain tab-separated text otherwise (§10.5).
func PrintResults(w io.Writer, query string, results []search.Result) {
	if len(results) == 0 {
		fmt.Fprintf(w, "no results for %q\n", query)
		return
	}

	styled := UseStyling(w)

	maxPath := 0
	for _, r := range results {
		if len(r.DocPath) > maxPath {
			maxPath = len(r.DocPath)
		}
	}

	if styled {
		fmt.Fprintln(w, headerStyle.Render(fmt.Sprintf("%d results for %q", len(results), query)))
	} else {
		fmt.Fprintf(w, "%d results for %q\n", len(results), query)
	}

	for i, r := range results {
		section := r.SectionHeader
		if section != "" {
			section = " § " + section
		}

		if !styled {
			fmt.Fprintf(w, "%d.\t%s\t%.3f\t%s%s\n", i+1, r.DocPath, r.Score, r.RetrievalMethod, section)
			continue
		}

		path := pathStyle.Render(padRight(r.DocPath, maxPath))
		score := scoreStyle(r.Score).Render(fmt.Sprintf("%.3f", r.Score))
		meta := dimStyle.Render(string(r.RetrievalMethod) + section)
		fmt.Fprintf(w, "%2d. %s  %s  %s\n", i+1, path, score, meta)
	}
}

func padRight(s string, width int) string {
	if len(s) >= width {
		return s
	}
	return s + strings.Repeat(" ", width-len(s))
}
