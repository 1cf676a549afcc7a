// Package history records every translation a user starts.
package history

import (
	"context"
	"errors"
	"time"
)

type Status string

const (
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

func (s Status) Valid() bool {
	switch s {
	case StatusInProgress, StatusCompleted, StatusFailed:
		return true
	}
	return false
}

var ErrRecordNotFound = errors.New("translation record not found")

// Record is one translation attempt.
type Record struct {
	ID             string    `json:"id"`
	UserID         string    `json:"user_id"`
	FileName       string    `json:"original_filename"`
	SourceLanguage string    `json:"source_language"`
	TargetLanguage string    `json:"target_language"`
	CharacterCount int64     `json:"character_count"`
	Status         Status    `json:"status"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// Store persists records. ListRecords returns newest first together with the
// user's total record count.
type Store interface {
	CreateRecord(ctx context.Context, rec Record) (string, error)
	UpdateStatus(ctx context.Context, id string, status Status) error
	ListRecords(ctx context.Context, userID string, skip, limit int) ([]Record, int, error)
}
