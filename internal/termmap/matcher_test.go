package termmap

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMatch(t *testing.T) {
	tm := TermMap{
		"Jon Snow":      "Jon Schnee",
		"Night's Watch": "Nachtwache",
		"Winterfell":    "Winterfell",
		"White Walkers": "Weiße Wanderer",
	}

	texts := []string{
		"Jon Snow, look out!",
		"He joined the Night's Watch.",
		"This is just a regular line.",
	}

	result := Match(tm, texts)

	assert.Len(t, result.Matched, 2)
	assert.Equal(t, "Jon Schnee", result.Matched["Jon Snow"])
	assert.Equal(t, "Nachtwache", result.Matched["Night's Watch"])

	_, hasWinterfell := result.Matched["Winterfell"]
	assert.False(t, hasWinterfell)
}

func TestMatch_EmptyInputs(t *testing.T) {
	assert.Empty(t, Match(TermMap{}, []string{"some text"}).Matched)
	assert.Empty(t, Match(TermMap{"hello": "hallo"}, []string{}).Matched)
	assert.Empty(t, Match(TermMap{"": "nothing"}, []string{"some text"}).Matched)
}

func TestMatch_CaseSensitive(t *testing.T) {
	tm := TermMap{"Arya": "Arya"}

	assert.Empty(t, Match(tm, []string{"arya is here"}).Matched)
	assert.Len(t, Match(tm, []string{"Arya is here"}).Matched, 1)
}

func TestMatch_WordBoundary(t *testing.T) {
	tm := TermMap{"elf": "Elf"}

	tests := []struct {
		text  string
		match bool
	}{
		{"She found herself alone.", false},
		{"The elf cast a spell.", true},
		{"She met an elf", true},
		{"elf warriors attacked", true},
		{"shelf and elf", true},
		{"Look, an elf!", true},
		{"(elf)", true},
		{`"elf"`, true},
		{"elf2 is a name", false},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			assert.Equal(t, tt.match, len(Match(tm, []string{tt.text}).Matched) == 1)
		})
	}
}

func TestMatch_NonASCIIBoundaries(t *testing.T) {
	tm := TermMap{"Königsmund": "King's Landing"}

	assert.Len(t, Match(tm, []string{"Wir reiten nach Königsmund."}).Matched, 1)
	assert.Empty(t, Match(tm, []string{"Königsmunde"}).Matched)
}

func TestMatch_MultipleTextsOneTerm(t *testing.T) {
	tm := TermMap{"Hodor": "Hodor"}

	result := Match(tm, []string{"Hodor here", "Hodor there"})
	assert.Len(t, result.Matched, 1)
}

func TestContainsWordFold(t *testing.T) {
	assert.True(t, ContainsWordFold("The Elf is here", "elf"))
	assert.True(t, ContainsWordFold("the elf is here", "Elf"))
	assert.False(t, ContainsWordFold("herself", "elf"))
	assert.False(t, ContainsWordFold("HERSELF", "elf"))
}
