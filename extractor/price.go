package extractor

import (
	"strconv"
	"strings"
)

// CleanPrice parses a price string into a float, disambiguating the
// Argentine ("$1.234,56") and US ("$1,234.56") decimal conventions.
//
// When both separators appear, whichever comes later in the string is the
// decimal separator and the other is stripped as a thousands separator.
// A lone comma is decimal. A lone dot is a thousands separator only when
// exactly three digits follow the last dot; otherwise it is decimal.
//
// Non-numeric residue means no price: the second return is false and no
// error is ever raised.
func CleanPrice(raw string) (float64, bool) {
	// Strip everything except digits and separators.
	var b strings.Builder
	for _, r := range raw {
		if (r >= '0' && r <= '9') || r == '.' || r == ',' {
			b.WriteRune(r)
		}
	}
	clean := b.String()
	if clean == "" {
		return 0, false
	}

	lastDot := strings.LastIndexByte(clean, '.')
	lastComma := strings.LastIndexByte(clean, ',')

	switch {
	case lastDot >= 0 && lastComma >= 0:
		if lastComma > lastDot {
			// AR convention: dot thousands, comma decimal.
			clean = strings.ReplaceAll(clean, ".", "")
			clean = strings.Replace(clean, ",", ".", 1)
		} else {
			// US convention: comma thousands, dot decimal.
			clean = strings.ReplaceAll(clean, ",", "")
		}
	case lastComma >= 0:
		clean = strings.ReplaceAll(clean, ",", ".")
		// More than one comma can only have been thousands separators.
		if strings.Count(clean, ".") > 1 {
			clean = strings.ReplaceAll(clean, ".", "")
		}
	case lastDot >= 0:
		if len(clean)-lastDot-1 == 3 {
			clean = strings.ReplaceAll(clean, ".", "")
		} else if strings.Count(clean, ".") > 1 {
			clean = strings.ReplaceAll(clean, ".", "")
		}
	}

	value, err := strconv.ParseFloat(clean, 64)
	if err != nil {
		return 0, false
	}
	return value, true
}
