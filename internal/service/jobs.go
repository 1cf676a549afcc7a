package service

import (
	"context"

	"github.com/MimeLyc/sentence-sub-translator/internal/jobs"
)

// JobSource marks jobs submitted through the async upload endpoint.
const JobSource = "upload"

// NewJobRequest builds the queue request for an async translation.
func NewJobRequest(req TranslationRequest) jobs.EnqueueRequest {
	payload := jobs.JobPayload{
		UserID:         req.UserID,
		FileName:       req.FileName,
		TargetLanguage: req.TargetLanguage,
		Content:        req.Content,
	}
	return jobs.EnqueueRequest{
		Source:    JobSource,
		DedupeKey: jobs.DedupeKey(payload),
		Payload:   payload,
	}
}

// ExecuteJob runs a queued job through Translate. It satisfies jobs.Executor.
func (p *Pipeline) ExecuteJob(ctx context.Context, job *jobs.TranslationJob) (*jobs.JobResult, error) {
	result, err := p.Translate(ctx, TranslationRequest{
		UserID:         job.Payload.UserID,
		FileName:       job.Payload.FileName,
		TargetLanguage: job.Payload.TargetLanguage,
		Content:        job.Payload.Content,
	})
	if err != nil {
		return nil, err
	}
	return &jobs.JobResult{
		RecordID:       result.RecordID,
		FileName:       result.FileName,
		CharacterCount: result.Metadata.CharCount,
		Content:        result.Content,
	}, nil
}
