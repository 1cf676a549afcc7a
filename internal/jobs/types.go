package jobs

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"
)

type Status string

const (
	StatusPending Status = "pending"
	StatusRunning Status = "running"
	StatusSuccess Status = "success"
	StatusFailed  Status = "failed"
)

func (s Status) Terminal() bool {
	return s == StatusSuccess || s == StatusFailed
}

type EnqueueRequest struct {
	Source    string
	DedupeKey string
	Payload   JobPayload
}

// JobPayload is one subtitle file waiting for translation. Content is dropped
// once the job reaches a terminal state.
type JobPayload struct {
	UserID         string `json:"user_id"`
	FileName       string `json:"file_name"`
	TargetLanguage string `json:"target_language"`
	Content        []byte `json:"-"`
}

type JobResult struct {
	RecordID       string `json:"record_id"`
	FileName       string `json:"filename"`
	CharacterCount int64  `json:"character_count"`
	Content        []byte `json:"-"`
}

type TranslationJob struct {
	ID        string     `json:"id"`
	Source    string     `json:"source"`
	DedupeKey string     `json:"dedupe_key"`
	Payload   JobPayload `json:"payload"`
	Status    Status     `json:"status"`
	Result    *JobResult `json:"result,omitempty"`
	Error     string     `json:"error,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// DedupeKey identifies identical submissions: same user, file name, target
// language and content.
func DedupeKey(p JobPayload) string {
	sum := sha256.Sum256(p.Content)
	return strings.Join([]string{
		p.UserID,
		p.FileName,
		strings.ToLower(p.TargetLanguage),
		hex.EncodeToString(sum[:8]),
	}, "|")
}
