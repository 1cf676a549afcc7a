package service

import (
	"path/filepath"
	"strings"
	"time"

	"github.com/MimeLyc/sentence-sub-translator/internal/subtitle"
	"github.com/MimeLyc/sentence-sub-translator/pkg/file"
)

// TranslationRequest is one uploaded subtitle file.
type TranslationRequest struct {
	UserID         string
	FileName       string
	TargetLanguage string
	Content        []byte
}

// TranslationResult represents translation result
type TranslationResult struct {
	RecordID       string
	FileName       string
	Content        []byte
	TranslatedFile *subtitle.File
	Metadata       TranslationMetadata
}

// TranslationMetadata contains translation metadata
type TranslationMetadata struct {
	SourceLanguage   string
	TargetLanguage   string
	CharCount        int64
	CueCount         int
	GroupCount       int
	TranslatedGroups int
	TranslationTime  time.Duration
}

// OutputFileName names the translated file: "movie.srt" to "de" gives
// "movie.de.srt".
func OutputFileName(fileName, targetLanguage string) string {
	return file.ReplaceExt(filepath.Base(fileName), "."+strings.ToLower(targetLanguage)+subtitle.SRTExt)
}
