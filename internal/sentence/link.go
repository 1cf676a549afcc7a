package sentence

import (
	"strings"
	"unicode"
)

var connectors = map[string]struct{}{
	"and":     {},
	"or":      {},
	"but":     {},
	"because": {},
	"so":      {},
	"yet":     {},
	"for":     {},
	"nor":     {},
	"while":   {},
}

// ShouldConnect reports whether next continues the sentence of current.
// Rules are evaluated in order and the first applicable one decides.
func ShouldConnect(current, next string) bool {
	current = strings.TrimSpace(current)
	next = strings.TrimSpace(next)
	if current == "" || next == "" {
		return false
	}

	if strings.HasSuffix(current, ellipsis) {
		if startsLower(next) {
			return true
		}
		if strings.HasPrefix(next, ellipsis) {
			rest := strings.TrimLeftFunc(strings.TrimPrefix(next, ellipsis), unicode.IsSpace)
			return rest != "" && startsLower(rest)
		}
	}

	// members are lower-case, so an exact match also rejects "And" or "BUT"
	if word := firstWord(next); word != "" {
		if _, ok := connectors[word]; ok {
			return true
		}
	}
	return false
}

// firstWord returns the first whitespace-delimited word of s.
func firstWord(s string) string {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}
