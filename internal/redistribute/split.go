// Package redistribute spreads a translated sentence back over the cues it
// was merged from.
package redistribute

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/MimeLyc/sentence-sub-translator/internal/subtitle"
)

const ellipsis = "..."

// Split assigns the words of translated to cues in order. Each cue receives
// wordsPerCue words, computed from the word count of the original group text,
// and the last cue takes whatever remains. cues must be the group's own slice;
// only their Text fields are rewritten.
func Split(translated, original string, cues []subtitle.Cue) {
	if len(cues) == 0 {
		return
	}
	for i, chunk := range Chunks(translated, original, len(cues)) {
		cues[i].Text = PreserveFormatting(cues[i].Text, chunk)
	}
}

// Chunks returns the per-cue word runs of translated for a group of n cues.
// Joining the chunks with single spaces yields the translated word sequence.
func Chunks(translated, original string, n int) []string {
	if n <= 0 {
		return nil
	}
	words := strings.Fields(translated)
	wordsPerCue := len(strings.Fields(original)) / n

	chunks := make([]string, n)
	for k := 0; k < n; k++ {
		from := min(k*wordsPerCue, len(words))
		to := len(words)
		if k < n-1 {
			to = min(from+wordsPerCue, len(words))
		}
		chunks[k] = strings.Join(words[from:to], " ")
	}
	return chunks
}

// PreserveFormatting carries the leading capital and a trailing ellipsis of
// original over to translated.
func PreserveFormatting(original, translated string) string {
	if original == "" || translated == "" {
		return translated
	}

	if first, _ := utf8.DecodeRuneInString(original); unicode.IsUpper(first) {
		r, size := utf8.DecodeRuneInString(translated)
		translated = string(unicode.ToUpper(r)) + translated[size:]
	}

	if strings.HasSuffix(original, ellipsis) && !strings.HasSuffix(translated, ellipsis) {
		translated = strings.TrimRight(translated, ".") + ellipsis
	}

	return translated
}
