// Package common holds the pieces shared by the dashboard pages: the colour
// bands, number formatting and the page layout.
package common

import (
	"fmt"
)

// Band is a traffic-light classification of a ratio in [0,1].
type Band string

// Bands, worst first. BandNone marks a region without a value.
const (
	BandNone   Band = "none"
	BandRed    Band = "red"
	BandYellow Band = "yellow"
	BandGreen  Band = "green"
)

// Band thresholds.
const (
	RedBelow    = 0.70
	YellowBelow = 0.85
)

// BandFor classifies v. Nil means no data.
func BandFor(v *float64) Band {
	switch {
	case v == nil:
		return BandNone
	case *v < RedBelow:
		return BandRed
	case *v < YellowBelow:
		return BandYellow
	default:
		return BandGreen
	}
}

// Color is the fill colour for the band. Regions without a value are drawn
// outline-only, so BandNone is transparent.
func (b Band) Color() string {
	switch b {
	case BandRed:
		return "#d73027"
	case BandYellow:
		return "#fee08b"
	case BandGreen:
		return "#1a9850"
	default:
		return "transparent"
	}
}

// Percent formats a ratio as a percentage with one decimal, "n/a" for nil.
func Percent(v *float64) string {
	if v == nil {
		return "n/a"
	}
	return fmt.Sprintf("%.1f%%", *v*100)
}

// BarWidth is the CSS width of a KPI bar for v, clamped to [0,100] percent.
func BarWidth(v *float64) string {
	if v == nil {
		return "0%"
	}
	pct := max(0, min(*v*100, 100))
	return fmt.Sprintf("%.1f%%", pct)
}
