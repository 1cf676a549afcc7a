package persistence

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"

	"github.com/MimeLyc/sentence-sub-translator/internal/history"
)

var _ history.Store = (*SQLiteStore)(nil)

var historyColumns = []string{
	"id", "user_id", "original_filename", "source_language", "target_language",
	"character_count", "status", "created_at", "updated_at",
}

func (s *SQLiteStore) CreateRecord(ctx context.Context, rec history.Record) (string, error) {
	if rec.UserID == "" {
		return "", fmt.Errorf("user id is required")
	}
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.Status == "" {
		rec.Status = history.StatusInProgress
	}
	if !rec.Status.Valid() {
		return "", fmt.Errorf("invalid status %q", rec.Status)
	}
	now := s.now().UTC()
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = now
	}

	q := s.sq.Insert("translation_history").
		Columns(historyColumns...).
		Values(
			rec.ID,
			rec.UserID,
			rec.FileName,
			rec.SourceLanguage,
			rec.TargetLanguage,
			rec.CharacterCount,
			string(rec.Status),
			rec.CreatedAt.UTC(),
			now,
		)
	sqlStr, args, err := q.ToSql()
	if err != nil {
		return "", err
	}
	if _, err := s.db.ExecContext(ctx, sqlStr, args...); err != nil {
		return "", err
	}
	return rec.ID, nil
}

func (s *SQLiteStore) UpdateStatus(ctx context.Context, id string, status history.Status) error {
	if !status.Valid() {
		return fmt.Errorf("invalid status %q", status)
	}
	sqlStr, args, err := s.sq.Update("translation_history").
		Set("status", string(status)).
		Set("updated_at", s.now().UTC()).
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx, sqlStr, args...)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("%w: %s", history.ErrRecordNotFound, id)
	}
	return nil
}

// ListRecords returns a page of the user's records, newest first. limit <= 0
// returns everything after skip.
func (s *SQLiteStore) ListRecords(ctx context.Context, userID string, skip, limit int) ([]history.Record, int, error) {
	countSQL, countArgs, err := s.sq.Select("COUNT(*)").
		From("translation_history").
		Where(sq.Eq{"user_id": userID}).
		ToSql()
	if err != nil {
		return nil, 0, err
	}
	var total int
	if err := s.db.QueryRowContext(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		return nil, 0, err
	}

	if skip < 0 {
		skip = 0
	}
	q := s.sq.Select(historyColumns...).
		From("translation_history").
		Where(sq.Eq{"user_id": userID}).
		OrderBy("created_at DESC", "id DESC")
	if limit > 0 {
		q = q.Limit(uint64(limit)).Offset(uint64(skip))
	} else if skip > 0 {
		// sqlite only accepts OFFSET after a LIMIT
		q = q.Suffix("LIMIT -1 OFFSET ?", skip)
	}
	sqlStr, args, err := q.ToSql()
	if err != nil {
		return nil, 0, err
	}
	rows, err := s.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	ret := make([]history.Record, 0)
	for rows.Next() {
		var rec history.Record
		var status string
		if err := rows.Scan(
			&rec.ID,
			&rec.UserID,
			&rec.FileName,
			&rec.SourceLanguage,
			&rec.TargetLanguage,
			&rec.CharacterCount,
			&status,
			&rec.CreatedAt,
			&rec.UpdatedAt,
		); err != nil {
			return nil, 0, err
		}
		rec.Status = history.Status(status)
		ret = append(ret, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return ret, total, nil
}
