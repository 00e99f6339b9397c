package model

import (
	"fmt"
	"math"
)

// FormatMinutes renders a wait time in minutes as "N min", "Nh" or "Nh Mmin"
func FormatMinutes(minutes float64) string {
	if math.IsNaN(minutes) {
		return "0 min"
	}
	n := int(math.Round(minutes))
	if n <= 0 {
		return "0 min"
	}
	if n < 60 {
		return fmt.Sprintf("%d min", n)
	}
	hours, rest := n/60, n%60
	if rest == 0 {
		return fmt.Sprintf("%dh", hours)
	}
	return fmt.Sprintf("%dh %dmin", hours, rest)
}

// FormatDistanceMeters renders a distance as kilometers with one decimal from 1000 m, integer meters below
func FormatDistanceMeters(meters float64) string {
	if math.IsNaN(meters) || meters <= 0 {
		return "N/A"
	}
	if meters >= 1000 {
		return fmt.Sprintf("%.1f km", meters/1000)
	}
	return fmt.Sprintf("%d m", int(math.Round(meters)))
}
