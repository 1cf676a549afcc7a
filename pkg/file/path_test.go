package file

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStem(t *testing.T) {
	assert.Equal(t, "Movie", Stem("/subs/Movie.srt"))
	assert.Equal(t, "Movie.en", Stem("Movie.en.srt"))
	assert.Equal(t, "Movie", Stem("Movie"))
	assert.Equal(t, ".hidden", Stem(".hidden"))
}

func TestReplaceExt(t *testing.T) {
	tests := []struct {
		path string
		ext  string
		want string
	}{
		{"Movie.srt", ".de.srt", "Movie.de.srt"},
		{"Movie.srt", "txt", "Movie.txt"},
		{filepath.Join("subs", "Movie.srt"), ".fr.srt", filepath.Join("subs", "Movie.fr.srt")},
		{"Movie", ".srt", "Movie.srt"},
		{"", ".srt", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ReplaceExt(tt.path, tt.ext), tt.path)
	}
}
