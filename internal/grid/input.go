package grid

import (
	"strings"
	"unicode"
)

const digits = "0123456789"

// Constrain filters in-progress text for a column and returns the reduced
// value together with the caret (a rune offset) moved to match. It never
// fails: whatever arrives is reduced to a valid, possibly empty, value.
func Constrain(col Column, text string, caret int) (string, int) {
	runes := []rune(text)
	if caret < 0 || caret > len(runes) {
		caret = len(runes)
	}
	switch col.Kind {
	case Integer, Position:
		allowed := col.Allowed
		if allowed == "" {
			allowed = digits
		}
		limit := col.MaxLength
		if limit == 0 {
			limit = col.IntDigits
		}
		return keep(runes, caret, func(r rune, kept []rune) bool {
			return strings.ContainsRune(allowed, r) && (limit == 0 || len(kept) < limit)
		})
	case Decimal:
		return constrainDecimal(col, runes, caret)
	case Enum:
		out := canonicalOption(col, text)
		return out, len([]rune(out))
	case Mirror, Computed:
		return text, caret
	default:
		out := capitalizeWords(runes)
		if col.MaxLength > 0 && len(out) > col.MaxLength {
			out = out[:col.MaxLength]
			if caret > col.MaxLength {
				caret = col.MaxLength
			}
		}
		return string(out), caret
	}
}

// Sanitize is Constrain without caret bookkeeping.
func Sanitize(col Column, text string) string {
	out, _ := Constrain(col, text, -1)
	return out
}

func keep(runes []rune, caret int, accept func(r rune, kept []rune) bool) (string, int) {
	kept := make([]rune, 0, len(runes))
	newCaret := 0
	for i, r := range runes {
		if accept(r, kept) {
			kept = append(kept, r)
			if i < caret {
				newCaret++
			}
		}
	}
	return string(kept), newCaret
}

func constrainDecimal(col Column, runes []rune, caret int) (string, int) {
	seenDot := false
	intDigits := 0
	fracDigits := 0
	return keep(runes, caret, func(r rune, _ []rune) bool {
		switch {
		case r == '.':
			if seenDot || col.Precision == 0 {
				return false
			}
			seenDot = true
			return true
		case r >= '0' && r <= '9':
			if seenDot {
				if fracDigits >= col.Precision {
					return false
				}
				fracDigits++
				return true
			}
			if col.IntDigits > 0 && intDigits >= col.IntDigits {
				return false
			}
			intDigits++
			return true
		default:
			return false
		}
	})
}

func capitalizeWords(runes []rune) []rune {
	out := make([]rune, len(runes))
	prevWord := false
	for i, r := range runes {
		word := r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
		if word && !prevWord {
			r = unicode.ToUpper(r)
		}
		out[i] = r
		prevWord = word
	}
	return out
}

// CapitalizeWords upper-cases the first letter of every word.
func CapitalizeWords(s string) string {
	return string(capitalizeWords([]rune(s)))
}

func canonicalOption(col Column, value string) string {
	value = strings.TrimSpace(value)
	for _, option := range col.Options {
		if strings.EqualFold(option, value) {
			return option
		}
	}
	return ""
}

// Commit renders a finished value the way it is shown after blur or Enter.
func Commit(col Column, text string) string {
	text = Sanitize(col, text)
	switch col.Kind {
	case Decimal:
		value, ok := leadingFloat(text)
		if !ok {
			if col.EmptyAsZero {
				return col.ZeroDisplay()
			}
			return ""
		}
		return fixed(value, col.Precision)
	case Integer:
		if text == "" {
			if col.EmptyAsZero {
				return col.ZeroDisplay()
			}
			return ""
		}
		if col.Allowed != "" && col.Allowed != digits {
			return text
		}
		trimmed := strings.TrimLeft(text, "0")
		if trimmed == "" {
			return "0"
		}
		return trimmed
	default:
		return text
	}
}
