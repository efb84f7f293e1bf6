package cli

import (
	"fmt"

	"github.com/fatih/color"

	"wheelstrat/internal/analysis/patterns"
)

var (
	headerColor = color.New(color.Bold)
	goodColor   = color.New(color.FgGreen)
	badColor    = color.New(color.FgRed)
	warnColor   = color.New(color.FgYellow)
)

// headerText renders a section header.
func headerText(s string) string {
	return headerColor.Sprint(s)
}

// formatSignedPct formats a fractional return as a signed, colored percent.
func formatSignedPct(value float64) string {
	text := fmt.Sprintf("%+.2f%%", value*100)
	if value > 0 {
		return goodColor.Sprint(text)
	}
	if value < 0 {
		return badColor.Sprint(text)
	}
	return text
}

// formatWinRate colors a win rate green above 70%, yellow above 50%.
func formatWinRate(winRate float64) string {
	text := fmt.Sprintf("%.0f%%", winRate*100)
	switch {
	case winRate >= 0.70:
		return goodColor.Sprint(text)
	case winRate >= 0.50:
		return warnColor.Sprint(text)
	default:
		return badColor.Sprint(text)
	}
}

// formatGrade colors a premium richness grade.
func formatGrade(g patterns.Grade) string {
	switch g {
	case patterns.GradeA, patterns.GradeB:
		return goodColor.Sprint(string(g))
	case patterns.GradeC:
		return badColor.Sprint(string(g))
	case patterns.GradeD:
		return warnColor.Sprint(string(g))
	default:
		return string(g)
	}
}
