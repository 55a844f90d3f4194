package extract

import (
	"regexp"
	"strconv"
	"strings"
)

// ParseLocaleNumber parses a pt-BR formatted amount ("R$ 1.234,56") into a
// float. Everything except digits, ',', '.' and '-' is dropped, '.' is a
// thousands separator, the first ',' is the decimal separator, and the
// longest leading decimal is parsed. Unparseable input yields 0.
func ParseLocaleNumber(s string) float64 {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if (r >= '0' && r <= '9') || r == ',' || r == '.' || r == '-' {
			b.WriteRune(r)
		}
	}
	cleaned := strings.ReplaceAll(b.String(), ".", "")
	cleaned = strings.Replace(cleaned, ",", ".", 1)
	return parseFloatPrefix(cleaned)
}

// parseFloatPrefix parses [-]digits[.digits] at the start of s and ignores
// the rest ("1.5.3" → 1.5, "12-3" → 12).
func parseFloatPrefix(s string) float64 {
	i, digits := 0, 0
	if i < len(s) && s[i] == '-' {
		i++
	}
	for i < len(s) && isDigit(s[i]) {
		i++
		digits++
	}
	if i < len(s) && s[i] == '.' {
		j := i + 1
		for j < len(s) && isDigit(s[j]) {
			j++
			digits++
		}
		i = j
	}
	if digits == 0 {
		return 0
	}
	v, err := strconv.ParseFloat(strings.TrimSuffix(s[:i], "."), 64)
	if err != nil || v == 0 {
		return 0
	}
	return v
}

var dottedThousands = regexp.MustCompile(`^-?\d{1,3}(\.\d{3})+$`)

// ParseCount parses an order or customer count. Leading/trailing space is
// ignored, "1.234" is read as 1234, and any trailing text after the leading
// integer is dropped ("12 pedidos" → 12). No leading integer yields 0.
func ParseCount(s string) int {
	s = strings.TrimSpace(s)
	if dottedThousands.MatchString(s) {
		s = strings.ReplaceAll(s, ".", "")
	}
	i := 0
	if i < len(s) && (s[i] == '-' || s[i] == '+') {
		i++
	}
	start := i
	for i < len(s) && isDigit(s[i]) {
		i++
	}
	if i == start {
		return 0
	}
	n, err := strconv.Atoi(s[:i])
	if err != nil {
		return 0
	}
	return n
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }
