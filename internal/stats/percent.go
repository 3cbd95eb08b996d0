package stats

import (
	"math"
	"strconv"
)

// FormatPercent formats a percentage with one decimal. The value is scaled by
// ten and rounded half away from zero, so ties go up: 6.25 is "6.3", and so
// does 1.15, whose binary value sits just below the tie but scales to 11.5.
// A rounded 100.0 is written as "100".
func FormatPercent(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		v = 0
	}
	r := math.Round(v*10) / 10
	if r == 0 {
		r = 0 // drop negative zero
	}
	s := strconv.FormatFloat(r, 'f', 1, 64)
	if s == "100.0" {
		return "100"
	}
	return s
}

// Ratio returns part/whole*100, or 0 when whole is not positive.
func Ratio(part, whole float64) float64 {
	if whole <= 0 {
		return 0
	}
	return part / whole * 100
}
