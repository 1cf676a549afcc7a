// Package grouping partitions a cue sequence into runs of cues that form one
// logical sentence.
package grouping

import (
	"strings"

	"github.com/MimeLyc/sentence-sub-translator/internal/sentence"
)

// Group is an inclusive cue index range and the space-joined trimmed text of
// those cues. An empty Text marks a pass-through cue that is not translated.
type Group struct {
	Start int    `json:"start"`
	End   int    `json:"end"`
	Text  string `json:"text"`
}

// Len returns the number of cues in the group.
func (g Group) Len() int {
	return g.End - g.Start + 1
}

// Translatable reports whether the group carries text worth sending out.
func (g Group) Translatable() bool {
	return strings.TrimSpace(g.Text) != ""
}

// Find scans forward from start and returns the index of the last cue of the
// sentence beginning there together with the joined text. An empty text means
// the cue at start should have been absorbed by the previous group and is
// skipped; start >= len(texts) also yields an empty text.
func Find(texts []string, start int) (int, string) {
	if start >= len(texts) {
		return start, ""
	}

	cur := start
	if cur > 0 && !sentence.IsSentenceStart(texts[cur]) && !sentence.ShouldConnect(texts[cur-1], texts[cur]) {
		return start, ""
	}

	last := len(texts) - 1
	var parts []string
	for cur < len(texts) {
		text := strings.TrimSpace(texts[cur])
		parts = append(parts, text)

		if cur < last && sentence.ShouldConnect(text, texts[cur+1]) {
			cur++
			continue
		}

		if cur == last || sentence.IsSentenceEnd(text) {
			break
		}

		// Absorb the next cue unless it clearly opens a sentence of its own.
		cur++
		if sentence.IsSentenceStart(texts[cur]) && !sentence.ShouldConnect(texts[cur-1], texts[cur]) {
			cur--
			break
		}
	}

	return cur, strings.Join(parts, " ")
}

// Partition runs Find over the whole sequence. The returned groups cover every
// index exactly once, in order.
func Partition(texts []string) []Group {
	groups := make([]Group, 0, len(texts))
	for idx := 0; idx < len(texts); {
		end, text := Find(texts, idx)
		groups = append(groups, Group{Start: idx, End: end, Text: text})
		idx = end + 1
	}
	return groups
}
