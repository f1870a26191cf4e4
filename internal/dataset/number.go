package dataset

import (
	"math"
	"strconv"
	"strings"
)

// Number coerces a cell to a float. Blank, non-numeric, hex and non-finite
// values report false.
func Number(cell string) (float64, bool) {
	s := strings.TrimSpace(cell)
	if s == "" {
		return 0, false
	}
	if strings.ContainsAny(s, "xXpP_") {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// Blank reports whether a cell is missing.
func Blank(cell string) bool { return strings.TrimSpace(cell) == "" }
