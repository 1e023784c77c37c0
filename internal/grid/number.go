package grid

import (
	"math"
	"math/big"
	"strconv"
	"strings"
)

// leadingFloat parses the longest numeric prefix of s, skipping leading
// whitespace. Non-finite results are rejected.
func leadingFloat(s string) (float64, bool) {
	s = strings.TrimLeft(s, " \t\r\n\f\v")
	end := 0
	if end < len(s) && (s[end] == '+' || s[end] == '-') {
		end++
	}
	digits := 0
	for end < len(s) && isDigit(s[end]) {
		end++
		digits++
	}
	if end < len(s) && s[end] == '.' {
		end++
		for end < len(s) && isDigit(s[end]) {
			end++
			digits++
		}
	}
	if digits == 0 {
		return 0, false
	}
	if end < len(s) && (s[end] == 'e' || s[end] == 'E') {
		exp := end + 1
		if exp < len(s) && (s[exp] == '+' || s[exp] == '-') {
			exp++
		}
		start := exp
		for exp < len(s) && isDigit(s[exp]) {
			exp++
		}
		if exp > start {
			end = exp
		}
	}
	prefix := strings.TrimSuffix(s[:end], ".")
	value, err := strconv.ParseFloat(prefix, 64)
	if err != nil || math.IsInf(value, 0) || math.IsNaN(value) {
		return 0, false
	}
	return value, true
}

func isDigit(b byte) bool {
	return b >= '0' && b <= '9'
}

// fixed formats v with exactly digits fractional places, rounding half away
// from zero on the exact binary value.
func fixed(v float64, digits int) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return ""
	}
	if digits < 0 {
		digits = 0
	}
	sign := ""
	if v < 0 {
		sign = "-"
		v = -v
	}
	exact := new(big.Float).SetFloat64(v).Text('f', 1100)
	intPart, frac, _ := strings.Cut(exact, ".")
	frac = strings.TrimRight(frac, "0")
	if len(frac) <= digits {
		frac += strings.Repeat("0", digits-len(frac))
		return sign + joinFixed(intPart, frac)
	}
	roundUp := frac[digits] >= '5'
	frac = frac[:digits]
	if roundUp {
		all := []byte(intPart + frac)
		i := len(all) - 1
		for ; i >= 0; i-- {
			if all[i] == '9' {
				all[i] = '0'
				continue
			}
			all[i]++
			break
		}
		carried := string(all)
		if i < 0 {
			carried = "1" + carried
		}
		intPart = carried[:len(carried)-digits]
		frac = carried[len(carried)-digits:]
	}
	return sign + joinFixed(intPart, frac)
}

func joinFixed(intPart, frac string) string {
	if frac == "" {
		return intPart
	}
	return intPart + "." + frac
}

func padded(v float64, width int) string {
	rounded := fixed(v, 0)
	if strings.HasPrefix(rounded, "-") {
		return rounded
	}
	if len(rounded) < width {
		rounded = strings.Repeat("0", width-len(rounded)) + rounded
	}
	return rounded
}
