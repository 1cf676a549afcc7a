package persistence

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"

	"github.com/MimeLyc/sentence-sub-translator/internal/quota"
)

var (
	_ quota.Store     = (*SQLiteStore)(nil)
	_ quota.PlanStore = (*SQLiteStore)(nil)
)

func (s *SQLiteStore) SetPlan(ctx context.Context, userID string, plan quota.Plan) error {
	if strings.TrimSpace(userID) == "" {
		return fmt.Errorf("user id is required")
	}
	if plan.Limit < 0 {
		return fmt.Errorf("limit must not be negative")
	}
	_, err := s.db.ExecContext(
		ctx,
		`INSERT INTO subscriptions (user_id, plan_type, is_active, characters_limit, updated_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(user_id) DO UPDATE SET
			plan_type=excluded.plan_type,
			is_active=excluded.is_active,
			characters_limit=excluded.characters_limit,
			updated_at=excluded.updated_at`,
		userID,
		plan.Type,
		boolToInt(plan.Active),
		plan.Limit,
		s.now().UTC(),
	)
	return err
}

// CheckAndReserve increments characters_reserved with a single conditional
// UPDATE, so the limit check and the increment cannot interleave with another
// reservation for the same user.
func (s *SQLiteStore) CheckAndReserve(ctx context.Context, userID string, chars int64) (quota.Reservation, error) {
	if chars < 0 {
		return quota.Reservation{}, fmt.Errorf("negative character count %d", chars)
	}
	now := s.now().UTC()
	r := quota.Reservation{
		ID:        uuid.NewString(),
		UserID:    userID,
		Chars:     chars,
		CreatedAt: now,
	}

	err := s.withTx(ctx, func(tx *sql.Tx) error {
		sqlStr, args, err := s.sq.Update("subscriptions").
			Set("characters_reserved", sq.Expr("characters_reserved + ?", chars)).
			Set("updated_at", now).
			Where(sq.Eq{"user_id": userID, "is_active": 1}).
			Where("characters_used + characters_reserved + ? <= characters_limit", chars).
			ToSql()
		if err != nil {
			return err
		}
		res, err := tx.ExecContext(ctx, sqlStr, args...)
		if err != nil {
			return err
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if affected == 0 {
			return refusal(ctx, tx, userID, chars)
		}
		sqlStr, args, err = s.sq.Insert("quota_reservations").
			Columns("id", "user_id", "characters", "created_unix_ms").
			Values(r.ID, r.UserID, r.Chars, now.UnixMilli()).
			ToSql()
		if err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx, sqlStr, args...)
		return err
	})
	if err != nil {
		return quota.Reservation{}, err
	}
	return r, nil
}

// refusal explains why the conditional update matched no row.
func refusal(ctx context.Context, tx *sql.Tx, userID string, chars int64) error {
	var active int
	limitErr := &quota.LimitError{Requested: chars}
	err := tx.QueryRowContext(
		ctx,
		`SELECT is_active, characters_used, characters_reserved, characters_limit
		 FROM subscriptions WHERE user_id = ?`,
		userID,
	).Scan(&active, &limitErr.Used, &limitErr.Reserved, &limitErr.Limit)
	if errors.Is(err, sql.ErrNoRows) {
		return quota.ErrNoActiveSubscription
	}
	if err != nil {
		return err
	}
	if active == 0 {
		return quota.ErrNoActiveSubscription
	}
	return limitErr
}

func (s *SQLiteStore) Commit(ctx context.Context, r quota.Reservation) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		return s.settle(ctx, tx, r.ID, true)
	})
}

func (s *SQLiteStore) Rollback(ctx context.Context, r quota.Reservation) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		return s.settle(ctx, tx, r.ID, false)
	})
}

// settle removes a reservation and moves its characters out of
// characters_reserved, into characters_used when commit is set.
func (s *SQLiteStore) settle(ctx context.Context, tx *sql.Tx, id string, commit bool) error {
	var userID string
	var chars int64
	err := tx.QueryRowContext(
		ctx,
		`SELECT user_id, characters FROM quota_reservations WHERE id = ?`,
		id,
	).Scan(&userID, &chars)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: %s", quota.ErrReservationNotFound, id)
	}
	if err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM quota_reservations WHERE id = ?`, id); err != nil {
		return err
	}

	used := int64(0)
	if commit {
		used = chars
	}
	_, err = tx.ExecContext(
		ctx,
		`UPDATE subscriptions
		 SET characters_reserved = MAX(characters_reserved - ?, 0),
			characters_used = characters_used + ?,
			updated_at = ?
		 WHERE user_id = ?`,
		chars, used, s.now().UTC(), userID,
	)
	return err
}

func (s *SQLiteStore) Usage(ctx context.Context, userID string) (quota.Usage, error) {
	usage := quota.Usage{UserID: userID}
	sqlStr, args, err := s.sq.Select("plan_type", "is_active", "characters_used", "characters_reserved", "characters_limit", "updated_at").
		From("subscriptions").
		Where(sq.Eq{"user_id": userID}).
		ToSql()
	if err != nil {
		return usage, err
	}
	var active int
	err = s.db.QueryRowContext(ctx, sqlStr, args...).Scan(&usage.PlanType, &active, &usage.Used, &usage.Reserved, &usage.Limit, &usage.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return usage, quota.ErrNoActiveSubscription
	}
	if err != nil {
		return usage, err
	}
	usage.Active = active == 1
	return usage, nil
}

func (s *SQLiteStore) ReleaseStale(ctx context.Context, olderThan time.Time) (int, error) {
	released := 0
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		sqlStr, args, err := s.sq.Select("id").
			From("quota_reservations").
			Where(sq.Lt{"created_unix_ms": olderThan.UnixMilli()}).
			ToSql()
		if err != nil {
			return err
		}
		rows, err := tx.QueryContext(ctx, sqlStr, args...)
		if err != nil {
			return err
		}
		var ids []string
		for rows.Next() {
			var id string
			if err := rows.Scan(&id); err != nil {
				rows.Close()
				return err
			}
			ids = append(ids, id)
		}
		if err := rows.Err(); err != nil {
			rows.Close()
			return err
		}
		rows.Close()

		for _, id := range ids {
			if err := s.settle(ctx, tx, id, false); err != nil {
				return err
			}
		}
		released = len(ids)
		return nil
	})
	return released, err
}
