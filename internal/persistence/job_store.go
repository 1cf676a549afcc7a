package persistence

import (
	"context"
	"encoding/json"
	"fmt"

	sq "github.com/Masterminds/squirrel"

	"github.com/MimeLyc/sentence-sub-translator/internal/jobs"
)

var _ jobs.Store = (*SQLiteStore)(nil)

var jobColumns = []string{
	"id", "source", "dedupe_key", "user_id", "file_name", "target_language", "content",
	"status", "error", "result_json", "result_content", "created_at", "updated_at",
}

const jobUpsertSuffix = `ON CONFLICT(id) DO UPDATE SET
	source=excluded.source,
	dedupe_key=excluded.dedupe_key,
	user_id=excluded.user_id,
	file_name=excluded.file_name,
	target_language=excluded.target_language,
	content=excluded.content,
	status=excluded.status,
	error=excluded.error,
	result_json=excluded.result_json,
	result_content=excluded.result_content,
	updated_at=excluded.updated_at`

func (s *SQLiteStore) LoadJobs(ctx context.Context) ([]*jobs.TranslationJob, error) {
	sqlStr, args, err := s.sq.Select(jobColumns...).
		From("jobs").
		OrderBy("created_at ASC").
		ToSql()
	if err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ret := make([]*jobs.TranslationJob, 0)
	for rows.Next() {
		var item jobs.TranslationJob
		var status string
		var resultJSON string
		var resultContent []byte
		if err := rows.Scan(
			&item.ID,
			&item.Source,
			&item.DedupeKey,
			&item.Payload.UserID,
			&item.Payload.FileName,
			&item.Payload.TargetLanguage,
			&item.Payload.Content,
			&status,
			&item.Error,
			&resultJSON,
			&resultContent,
			&item.CreatedAt,
			&item.UpdatedAt,
		); err != nil {
			return nil, err
		}
		item.Status = jobs.Status(status)
		if resultJSON != "" {
			var result jobs.JobResult
			if err := json.Unmarshal([]byte(resultJSON), &result); err != nil {
				return nil, fmt.Errorf("decode result of job %s: %w", item.ID, err)
			}
			result.Content = resultContent
			item.Result = &result
		}
		ret = append(ret, &item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return ret, nil
}

func (s *SQLiteStore) DeleteJob(ctx context.Context, jobID string) error {
	sqlStr, args, err := s.sq.Delete("jobs").Where(sq.Eq{"id": jobID}).ToSql()
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, sqlStr, args...)
	return err
}

func (s *SQLiteStore) UpsertJob(ctx context.Context, job *jobs.TranslationJob) error {
	if job == nil {
		return fmt.Errorf("job is nil")
	}
	var resultJSON string
	var resultContent []byte
	if job.Result != nil {
		encoded, err := json.Marshal(job.Result)
		if err != nil {
			return err
		}
		resultJSON = string(encoded)
		resultContent = job.Result.Content
	}
	sqlStr, args, err := s.sq.Insert("jobs").
		Columns(jobColumns...).
		Values(
			job.ID,
			job.Source,
			job.DedupeKey,
			job.Payload.UserID,
			job.Payload.FileName,
			job.Payload.TargetLanguage,
			job.Payload.Content,
			string(job.Status),
			job.Error,
			resultJSON,
			resultContent,
			job.CreatedAt.UTC(),
			job.UpdatedAt.UTC(),
		).
		Suffix(jobUpsertSuffix).
		ToSql()
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, sqlStr, args...)
	return err
}
