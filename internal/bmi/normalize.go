package bmi

import "strings"

// Normalize оставляет во введённом тексте только ASCII-цифры и первую точку.
// Порядок символов сохраняется, остальные точки отбрасываются.
func Normalize(raw string) string {
	var b strings.Builder
	b.Grow(len(raw))
	seenDot := false
	for _, r := range raw {
		switch {
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '.' && !seenDot:
			seenDot = true
			b.WriteRune(r)
		}
	}
	return b.String()
}
