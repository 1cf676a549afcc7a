package quota

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

type account struct {
	plan      Plan
	used      int64
	reserved  int64
	updatedAt time.Time
}

// MemoryStore keeps counters in process memory. One mutex guards all users.
type MemoryStore struct {
	mu           sync.Mutex
	accounts     map[string]*account
	reservations map[string]Reservation
	now          func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		accounts:     make(map[string]*account),
		reservations: make(map[string]Reservation),
		now:          time.Now,
	}
}

func (s *MemoryStore) SetPlan(_ context.Context, userID string, plan Plan) error {
	if strings.TrimSpace(userID) == "" {
		return fmt.Errorf("user id is required")
	}
	if plan.Limit < 0 {
		return fmt.Errorf("limit must not be negative")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	acc, ok := s.accounts[userID]
	if !ok {
		acc = &account{}
		s.accounts[userID] = acc
	}
	acc.plan = plan
	acc.updatedAt = s.now()
	return nil
}

func (s *MemoryStore) CheckAndReserve(_ context.Context, userID string, chars int64) (Reservation, error) {
	if chars < 0 {
		return Reservation{}, fmt.Errorf("negative character count %d", chars)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	acc, ok := s.accounts[userID]
	if !ok || !acc.plan.Active {
		return Reservation{}, ErrNoActiveSubscription
	}
	if acc.used+acc.reserved+chars > acc.plan.Limit {
		return Reservation{}, &LimitError{
			Requested: chars,
			Used:      acc.used,
			Reserved:  acc.reserved,
			Limit:     acc.plan.Limit,
		}
	}

	now := s.now()
	acc.reserved += chars
	acc.updatedAt = now
	r := Reservation{
		ID:        uuid.NewString(),
		UserID:    userID,
		Chars:     chars,
		CreatedAt: now,
	}
	s.reservations[r.ID] = r
	return r, nil
}

func (s *MemoryStore) Commit(_ context.Context, r Reservation) error {
	return s.settle(r.ID, true)
}

func (s *MemoryStore) Rollback(_ context.Context, r Reservation) error {
	return s.settle(r.ID, false)
}

func (s *MemoryStore) settle(id string, commit bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.settleLocked(id, commit)
}

func (s *MemoryStore) settleLocked(id string, commit bool) error {
	r, ok := s.reservations[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrReservationNotFound, id)
	}
	delete(s.reservations, id)

	acc, ok := s.accounts[r.UserID]
	if !ok {
		return nil
	}
	acc.reserved -= r.Chars
	if commit {
		acc.used += r.Chars
	}
	acc.updatedAt = s.now()
	return nil
}

func (s *MemoryStore) Usage(_ context.Context, userID string) (Usage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	acc, ok := s.accounts[userID]
	if !ok {
		return Usage{UserID: userID}, ErrNoActiveSubscription
	}
	return Usage{
		UserID:    userID,
		PlanType:  acc.plan.Type,
		Active:    acc.plan.Active,
		Used:      acc.used,
		Reserved:  acc.reserved,
		Limit:     acc.plan.Limit,
		UpdatedAt: acc.updatedAt,
	}, nil
}

func (s *MemoryStore) ReleaseStale(_ context.Context, olderThan time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	released := 0
	for id, r := range s.reservations {
		if r.CreatedAt.Before(olderThan) {
			if err := s.settleLocked(id, false); err != nil {
				return released, err
			}
			released++
		}
	}
	return released, nil
}
