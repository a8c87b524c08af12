package colmap

import "strconv"

// formatFloat writes the shortest decimal that parses back to v, never in
// exponent form. Negative zero is written as 0.
func formatFloat(v float64) string {
	if v == 0 {
		return "0"
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}
