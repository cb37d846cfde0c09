package service

import "strconv"

// FormatTonnes renders a scope or total value the way the calculator shows it.
func FormatTonnes(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64) + " tCO₂e"
}

// FormatIntensity renders an intensity with three decimals.
func FormatIntensity(v float64) string {
	return strconv.FormatFloat(v, 'f', 3, 64)
}
