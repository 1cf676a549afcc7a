// Package sentence holds the lexical heuristics used to decide where a
// subtitle sentence starts, ends and continues into the next cue.
package sentence

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

const ellipsis = "..."

// startExclusions are leading tokens that disqualify a sentence start. The
// connector words are compared in lower case, so together with the upper-case
// check in IsSentenceStart none of them can match.
var startExclusions = []string{"♪", "[", "(", ",", ";", ":", "and", "or", "but"}

// sentenceEnders are the trailing characters that close a sentence.
var sentenceEnders = []string{".", "!", "?", "\"", "”"}

// IsSentenceStart reports whether text looks like the first cue of a sentence.
func IsSentenceStart(text string) bool {
	text = strings.TrimLeftFunc(text, unicode.IsSpace)
	if text == "" {
		return false
	}
	if !startsUpper(text) {
		return false
	}
	for _, token := range startExclusions {
		if strings.HasPrefix(text, token) {
			return false
		}
	}
	return true
}

// IsSentenceEnd reports whether text looks like the last cue of a sentence.
// A trailing ellipsis means the sentence goes on.
func IsSentenceEnd(text string) bool {
	text = strings.TrimRightFunc(text, unicode.IsSpace)
	if text == "" {
		return false
	}
	if strings.HasSuffix(text, ellipsis) {
		return false
	}
	for _, ender := range sentenceEnders {
		if strings.HasSuffix(text, ender) {
			return true
		}
	}
	return false
}

func startsUpper(s string) bool {
	r, _ := utf8.DecodeRuneInString(s)
	return r != utf8.RuneError && unicode.IsUpper(r)
}

func startsLower(s string) bool {
	r, _ := utf8.DecodeRuneInString(s)
	return r != utf8.RuneError && unicode.IsLower(r)
}
