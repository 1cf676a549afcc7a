package termmap

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// Match filters the term map to the terms that appear as whole words in the
// given texts. Matching is case-sensitive, which suits proper nouns.
func Match(tm TermMap, texts []string) MatchResult {
	matched := make(TermMap)

	for source, target := range tm {
		for _, text := range texts {
			if ContainsWord(text, source) {
				matched[source] = target
				break
			}
		}
	}

	return MatchResult{Matched: matched}
}

// ContainsWord reports whether term occurs in text with a word boundary on
// both sides.
func ContainsWord(text, term string) bool {
	if term == "" {
		return false
	}
	for offset := 0; offset <= len(text)-len(term); {
		idx := strings.Index(text[offset:], term)
		if idx < 0 {
			return false
		}
		start := offset + idx
		end := start + len(term)
		if boundaryBefore(text, start) && boundaryAfter(text, end) {
			return true
		}
		_, size := utf8.DecodeRuneInString(text[start:])
		offset = start + size
	}
	return false
}

// ContainsWordFold is ContainsWord ignoring case.
func ContainsWordFold(text, term string) bool {
	return ContainsWord(strings.ToLower(text), strings.ToLower(term))
}

func boundaryBefore(text string, i int) bool {
	if i == 0 {
		return true
	}
	r, _ := utf8.DecodeLastRuneInString(text[:i])
	return !isWordRune(r)
}

func boundaryAfter(text string, i int) bool {
	if i >= len(text) {
		return true
	}
	r, _ := utf8.DecodeRuneInString(text[i:])
	return !isWordRune(r)
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r)
}
