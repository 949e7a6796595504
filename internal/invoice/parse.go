package invoice

import (
	"math"
	"strconv"
	"strings"
	"unicode"
)

// ParseNumber converts operator input to a number using parse-or-zero rules:
// leading whitespace is skipped, the longest leading decimal literal is parsed
// and anything unparsable or non-finite yields 0. "12.5kg" is 12.5, "kg" is 0.
func ParseNumber(raw string) float64 {
	s := strings.TrimLeftFunc(raw, unicode.IsSpace)
	end := numericPrefix(s)
	if end == 0 {
		return 0
	}
	v, err := strconv.ParseFloat(strings.TrimSuffix(s[:end], "."), 64)
	if err != nil {
		return 0
	}
	return finite(v)
}

// numericPrefix returns the length of the leading [sign]digits[.digits][e[sign]digits]
// literal in s, or 0 when s does not start with one.
func numericPrefix(s string) int {
	i := 0
	if i < len(s) && (s[i] == '+' || s[i] == '-') {
		i++
	}
	intDigits := countDigits(s[i:])
	i += intDigits
	fracDigits := 0
	if i < len(s) && s[i] == '.' {
		fracDigits = countDigits(s[i+1:])
		if intDigits > 0 || fracDigits > 0 {
			i += 1 + fracDigits
		}
	}
	if intDigits == 0 && fracDigits == 0 {
		return 0
	}
	if i < len(s) && (s[i] == 'e' || s[i] == 'E') {
		j := i + 1
		if j < len(s) && (s[j] == '+' || s[j] == '-') {
			j++
		}
		if n := countDigits(s[j:]); n > 0 {
			i = j + n
		}
	}
	return i
}

func countDigits(s string) int {
	n := 0
	for n < len(s) && s[n] >= '0' && s[n] <= '9' {
		n++
	}
	return n
}

func finite(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}
