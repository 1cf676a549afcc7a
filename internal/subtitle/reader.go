package subtitle

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/abadojack/whatlanggo"
	"golang.org/x/text/language"
)

// SRT time format: 00:02:16,612 --> 00:02:19,376
var srtTimeRe = regexp.MustCompile(`(\d{2}):(\d{2}):(\d{2})[,.](\d{3})\s*-->\s*(\d{2}):(\d{2}):(\d{2})[,.](\d{3})`)

// DefaultReader reads an SRT file from disk.
type DefaultReader struct {
	path string
}

func NewReader(path string) Reader {
	return &DefaultReader{
		path: path,
	}
}

func (r *DefaultReader) Read() (*File, error) {
	if !IsSRTName(r.path) {
		return nil, fmt.Errorf("only SRT format subtitle files are supported: %s: %w", r.path, ErrMalformed)
	}

	file, err := os.Open(r.path)
	if err != nil {
		return nil, fmt.Errorf("failed to open subtitle file: %w", err)
	}
	defer file.Close()

	return ReadSRT(file, r.path)
}

// IsSRTName reports whether name carries the .srt extension.
func IsSRTName(name string) bool {
	return strings.HasSuffix(strings.ToLower(name), SRTExt)
}

// ReadSRTBytes parses in-memory SRT content; path is kept as a hint only.
func ReadSRTBytes(data []byte, path string) (*File, error) {
	return ReadSRT(bytes.NewReader(data), path)
}

// ReadSRT parses SRT content. Blocks without a numeric index are skipped, a
// bad timing line or an input without any cue is reported as ErrMalformed.
func ReadSRT(in io.Reader, path string) (*File, error) {
	var cues []Cue
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	current := Cue{}
	state := "index" // index, time, text
	var textLines []string
	first := true

	for scanner.Scan() {
		line := scanner.Text()
		if first {
			line = strings.TrimPrefix(line, "\ufeff")
			first = false
		}
		line = strings.TrimSpace(line)

		switch state {
		case "index":
			if line == "" {
				continue
			}
			index, err := strconv.Atoi(line)
			if err != nil {
				continue
			}
			current.Index = index
			state = "time"

		case "time":
			if line == "" {
				continue
			}
			start, end, err := parseSRTTime(line)
			if err != nil {
				return nil, fmt.Errorf("cue %d: %v: %w", current.Index, err, ErrMalformed)
			}
			current.Start = start
			current.End = end
			state = "text"
			textLines = []string{}

		case "text":
			if line == "" {
				current.Text = strings.Join(textLines, "\n")
				cues = append(cues, current)
				current = Cue{}
				state = "index"
				textLines = nil
			} else {
				textLines = append(textLines, line)
			}
		}
	}

	if state == "text" {
		current.Text = strings.Join(textLines, "\n")
		cues = append(cues, current)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read subtitle file: %v: %w", err, ErrMalformed)
	}
	if len(cues) == 0 {
		return nil, fmt.Errorf("no subtitle cues found: %w", ErrMalformed)
	}
	for i := 1; i < len(cues); i++ {
		if cues[i].Index <= cues[i-1].Index {
			return nil, fmt.Errorf("cue index %d follows %d: %w", cues[i].Index, cues[i-1].Index, ErrMalformed)
		}
	}

	return &File{
		Cues:     cues,
		Language: DetectLanguage(cues),
		Format:   "SRT",
		Path:     path,
	}, nil
}

func parseSRTTime(timeString string) (time.Duration, time.Duration, error) {
	matches := srtTimeRe.FindStringSubmatch(timeString)
	if len(matches) != 9 {
		return 0, 0, fmt.Errorf("invalid time format: %s", timeString)
	}

	parseTime := func(hours, minutes, seconds, milliseconds string) time.Duration {
		h, _ := strconv.Atoi(hours)
		m, _ := strconv.Atoi(minutes)
		s, _ := strconv.Atoi(seconds)
		ms, _ := strconv.Atoi(milliseconds)

		return time.Duration(h)*time.Hour +
			time.Duration(m)*time.Minute +
			time.Duration(s)*time.Second +
			time.Duration(ms)*time.Millisecond
	}

	return parseTime(matches[1], matches[2], matches[3], matches[4]),
		parseTime(matches[5], matches[6], matches[7], matches[8]),
		nil
}

// DetectLanguage returns the most frequent language over all cues, or Und.
func DetectLanguage(cues []Cue) language.Tag {
	if len(cues) == 0 {
		return language.Und
	}

	langMap := make(map[string]int)
	for _, cue := range cues {
		lang := whatlanggo.DetectLang(cue.Text).Iso6391()
		if lang == "" {
			continue
		}
		langMap[lang]++
	}

	var topLang string
	var topCount int
	for lang, count := range langMap {
		if count > topCount || (count == topCount && lang < topLang) {
			topLang = lang
			topCount = count
		}
	}
	if topLang == "" {
		return language.Und
	}

	return language.All.Make(topLang)
}
