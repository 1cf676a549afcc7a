package subtitle

import (
	"errors"
	"time"

	"golang.org/x/text/language"
)

// SRTExt is the only accepted subtitle extension.
const SRTExt = ".srt"

// ErrMalformed marks input that cannot be read as a cue sequence.
var ErrMalformed = errors.New("malformed subtitle file")

// Reader reads a subtitle file from its configured source.
type Reader interface {
	Read() (*File, error)
}

// Writer serializes a subtitle file to path.
type Writer interface {
	Write(path string, file *File) error
}

// Cue is one timestamped text entry. Start and End are passed through untouched.
type Cue struct {
	Index int           `json:"index"`
	Start time.Duration `json:"start"`
	End   time.Duration `json:"end"`
	Text  string        `json:"text"`
}

// File is an ordered cue sequence in file order.
type File struct {
	Cues     []Cue        `json:"cues"`
	Language language.Tag `json:"language"`
	Format   string       `json:"format"` // e.g. SRT
	Path     string       `json:"path"`
}

// Texts returns the cue texts in order.
func (f *File) Texts() []string {
	ret := make([]string, len(f.Cues))
	for i, cue := range f.Cues {
		ret[i] = cue.Text
	}
	return ret
}

// Clone copies the file so the cue texts can be rewritten without touching f.
func (f *File) Clone() *File {
	if f == nil {
		return nil
	}
	ret := *f
	ret.Cues = make([]Cue, len(f.Cues))
	copy(ret.Cues, f.Cues)
	return &ret
}
