// Package quota accounts for the characters each user may translate.
//
// A translation reserves its whole character count up front, then either
// commits the reservation into the used counter or rolls it back. Used only
// ever grows.
package quota

import (
	"context"
	"errors"
	"fmt"
	"time"
)

var (
	// ErrQuotaExceeded is returned by Gate.Reserve for any refusal. It wraps
	// one of the more specific errors below.
	ErrQuotaExceeded = errors.New("translation quota exceeded")

	ErrNoActiveSubscription = errors.New("no active subscription")
	ErrLimitExceeded        = errors.New("character limit exceeded")
	ErrReservationNotFound  = errors.New("reservation not found")
)

// LimitError describes a refused reservation.
type LimitError struct {
	Requested int64
	Used      int64
	Reserved  int64
	Limit     int64
}

func (e *LimitError) Error() string {
	return fmt.Sprintf("character limit exceeded: requested %d, used %d, reserved %d, limit %d",
		e.Requested, e.Used, e.Reserved, e.Limit)
}

func (e *LimitError) Unwrap() error {
	return ErrLimitExceeded
}

// Plan is a user's subscription.
type Plan struct {
	Type   string
	Limit  int64
	Active bool
}

// Usage is a snapshot of a user's counters.
type Usage struct {
	UserID    string
	PlanType  string
	Active    bool
	Used      int64
	Reserved  int64
	Limit     int64
	UpdatedAt time.Time
}

// Remaining is the allowance still free for new reservations.
func (u Usage) Remaining() int64 {
	return max(u.Limit-u.Used-u.Reserved, 0)
}

// Reservation holds characters against a user's limit until it is committed
// or rolled back.
type Reservation struct {
	ID        string
	UserID    string
	Chars     int64
	CreatedAt time.Time
}

// Store is the per-user counter backend. CheckAndReserve must be atomic per
// user: two concurrent reservations can never jointly exceed the limit.
type Store interface {
	CheckAndReserve(ctx context.Context, userID string, chars int64) (Reservation, error)
	Commit(ctx context.Context, r Reservation) error
	Rollback(ctx context.Context, r Reservation) error
	// Usage returns ErrNoActiveSubscription when the user has no plan at all.
	Usage(ctx context.Context, userID string) (Usage, error)
	// ReleaseStale rolls back reservations created before olderThan.
	ReleaseStale(ctx context.Context, olderThan time.Time) (int, error)
}

// PlanStore manages subscriptions.
type PlanStore interface {
	SetPlan(ctx context.Context, userID string, plan Plan) error
}
