package history

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]Record
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[string]Record)}
}

func (s *MemoryStore) CreateRecord(_ context.Context, rec Record) (string, error) {
	if rec.UserID == "" {
		return "", fmt.Errorf("user id is required")
	}
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.Status == "" {
		rec.Status = StatusInProgress
	}
	if !rec.Status.Valid() {
		return "", fmt.Errorf("invalid status %q", rec.Status)
	}
	now := time.Now().UTC()
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = now
	}
	rec.UpdatedAt = now

	s.mu.Lock()
	s.records[rec.ID] = rec
	s.mu.Unlock()
	return rec.ID, nil
}

func (s *MemoryStore) UpdateStatus(_ context.Context, id string, status Status) error {
	if !status.Valid() {
		return fmt.Errorf("invalid status %q", status)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrRecordNotFound, id)
	}
	rec.Status = status
	rec.UpdatedAt = time.Now().UTC()
	s.records[id] = rec
	return nil
}

func (s *MemoryStore) ListRecords(_ context.Context, userID string, skip, limit int) ([]Record, int, error) {
	s.mu.RLock()
	mine := make([]Record, 0)
	for _, rec := range s.records {
		if rec.UserID == userID {
			mine = append(mine, rec)
		}
	}
	s.mu.RUnlock()

	sort.Slice(mine, func(i, j int) bool {
		if mine[i].CreatedAt.Equal(mine[j].CreatedAt) {
			return mine[i].ID > mine[j].ID
		}
		return mine[i].CreatedAt.After(mine[j].CreatedAt)
	})
	return Page(mine, skip, limit), len(mine), nil
}

// Page applies skip/limit to an already ordered slice. limit <= 0 means no limit.
func Page(records []Record, skip, limit int) []Record {
	if skip < 0 {
		skip = 0
	}
	if skip >= len(records) {
		return []Record{}
	}
	end := len(records)
	if limit > 0 && skip+limit < end {
		end = skip + limit
	}
	return records[skip:end]
}
