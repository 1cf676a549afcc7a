package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/text/language"

	"github.com/MimeLyc/sentence-sub-translator/internal/grouping"
	"github.com/MimeLyc/sentence-sub-translator/internal/history"
	"github.com/MimeLyc/sentence-sub-translator/internal/quota"
	"github.com/MimeLyc/sentence-sub-translator/internal/redistribute"
	"github.com/MimeLyc/sentence-sub-translator/internal/subtitle"
	"github.com/MimeLyc/sentence-sub-translator/internal/translator"
	"github.com/MimeLyc/sentence-sub-translator/pkg/log"
)

const (
	DefaultConcurrency = 4
	unknownLanguage    = "auto"
)

// Pipeline runs a subtitle file through quota reservation, sentence grouping,
// translation and redistribution. A run either succeeds for every cue and
// charges the quota once, or fails without output and without a charge.
type Pipeline struct {
	translator  translator.Translator
	gate        *quota.Gate
	history     history.Store
	concurrency int
}

type PipelineOption func(*Pipeline)

// WithConcurrency bounds the number of groups translated at once. 1 dispatches
// the groups strictly in order.
func WithConcurrency(n int) PipelineOption {
	return func(p *Pipeline) {
		if n > 0 {
			p.concurrency = n
		}
	}
}

func NewPipeline(
	tr translator.Translator,
	quotaStore quota.Store,
	historyStore history.Store,
	opts ...PipelineOption,
) (*Pipeline, error) {
	if tr == nil {
		return nil, NewError(ErrConfig, "translator is required")
	}
	if quotaStore == nil {
		return nil, NewError(ErrConfig, "quota store is required")
	}
	if historyStore == nil {
		return nil, NewError(ErrConfig, "history store is required")
	}
	p := &Pipeline{
		translator:  tr,
		gate:        quota.NewGate(quotaStore),
		history:     historyStore,
		concurrency: DefaultConcurrency,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

func (r TranslationRequest) validate() (language.Tag, error) {
	if strings.TrimSpace(r.UserID) == "" {
		return language.Und, NewError(ErrValidation, "user id is required")
	}
	if !subtitle.IsSRTName(r.FileName) {
		return language.Und, NewError(ErrValidation, "only SRT files are supported").
			WithContext("file", r.FileName)
	}
	if strings.TrimSpace(r.TargetLanguage) == "" {
		return language.Und, NewError(ErrValidation, "target language is required")
	}
	// the remote translator decides which codes it accepts
	tag, err := language.Parse(strings.TrimSpace(r.TargetLanguage))
	if err != nil {
		tag = language.Und
	}
	return tag, nil
}

// Translate translates one SRT file for a user.
func (p *Pipeline) Translate(ctx context.Context, req TranslationRequest) (*TranslationResult, error) {
	startTime := time.Now()

	targetTag, err := req.validate()
	if err != nil {
		return nil, err
	}

	file, err := subtitle.ReadSRTBytes(req.Content, req.FileName)
	if err != nil {
		return nil, WrapError(err, ErrMalformedInput, "failed to read subtitle file").
			WithContext("file", req.FileName)
	}

	reservation, err := p.gate.Reserve(ctx, req.UserID, file.Cues)
	if err != nil {
		if errors.Is(err, quota.ErrQuotaExceeded) {
			return nil, WrapError(err, ErrQuotaExceeded, "translation quota exceeded").
				WithContext("user", req.UserID)
		}
		return nil, WrapError(err, ErrStorage, "failed to reserve quota")
	}

	// cleanup must survive a cancelled caller
	cleanupCtx := context.WithoutCancel(ctx)

	sourceLanguage := unknownLanguage
	if file.Language != language.Und {
		sourceLanguage = file.Language.String()
	}

	recordID, err := p.history.CreateRecord(ctx, history.Record{
		UserID:         req.UserID,
		FileName:       req.FileName,
		SourceLanguage: sourceLanguage,
		TargetLanguage: req.TargetLanguage,
		CharacterCount: reservation.Chars,
		Status:         history.StatusInProgress,
	})
	if err != nil {
		p.rollback(cleanupCtx, reservation)
		return nil, WrapError(err, ErrStorage, "failed to create translation record")
	}

	log.Info("Translating %s for user %s: %d cues, %d characters, %s -> %s",
		req.FileName, req.UserID, len(file.Cues), reservation.Chars, sourceLanguage, req.TargetLanguage)

	translated, groups, err := p.translateFile(ctx, file, req.TargetLanguage)
	if err != nil {
		p.rollback(cleanupCtx, reservation)
		p.setStatus(cleanupCtx, recordID, history.StatusFailed)

		errType := ErrTranslation
		if errors.Is(err, translator.ErrQuotaExceeded) {
			errType = ErrQuotaExceeded
		}
		return nil, WrapError(err, errType, "failed to translate subtitles").
			WithContext("file", req.FileName).
			WithContext("record", recordID)
	}
	translated.Language = targetTag

	if err := p.gate.Commit(cleanupCtx, reservation); err != nil {
		p.rollback(cleanupCtx, reservation)
		p.setStatus(cleanupCtx, recordID, history.StatusFailed)
		return nil, WrapError(err, ErrStorage, "failed to commit quota").
			WithContext("record", recordID)
	}
	p.setStatus(cleanupCtx, recordID, history.StatusCompleted)

	translatedGroups := 0
	for _, g := range groups {
		if g.Translatable() {
			translatedGroups++
		}
	}

	result := &TranslationResult{
		RecordID:       recordID,
		FileName:       OutputFileName(req.FileName, req.TargetLanguage),
		Content:        subtitle.MarshalSRT(translated),
		TranslatedFile: translated,
		Metadata: TranslationMetadata{
			SourceLanguage:   sourceLanguage,
			TargetLanguage:   req.TargetLanguage,
			CharCount:        reservation.Chars,
			CueCount:         len(translated.Cues),
			GroupCount:       len(groups),
			TranslatedGroups: translatedGroups,
			TranslationTime:  time.Since(startTime),
		},
	}
	log.Info("Translated %s for user %s in %v (%d groups)",
		req.FileName, req.UserID, result.Metadata.TranslationTime, translatedGroups)
	return result, nil
}

// translateFile groups the cues of a copy of file, translates every group and
// writes the results back into that copy. Each dispatch writes only into its
// own group's cue range, so no lock is needed. The first failure cancels the
// groups not yet sent and the copy is dropped.
func (p *Pipeline) translateFile(
	ctx context.Context,
	file *subtitle.File,
	targetLanguage string,
) (*subtitle.File, []grouping.Group, error) {
	work := file.Clone()
	groups := grouping.Partition(work.Texts())

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.concurrency)
	for _, group := range groups {
		if !group.Translatable() {
			continue
		}
		cues := work.Cues[group.Start : group.End+1]
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			out, err := p.translator.Translate(gctx, group.Text, targetLanguage)
			if err != nil {
				return fmt.Errorf("cues %d-%d: %w", cues[0].Index, cues[len(cues)-1].Index, err)
			}
			redistribute.Split(out, group.Text, cues)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return work, groups, nil
}

func (p *Pipeline) rollback(ctx context.Context, r quota.Reservation) {
	if err := p.gate.Rollback(ctx, r); err != nil {
		log.Error("Failed to roll back reservation %s for user %s: %v", r.ID, r.UserID, err)
	}
}

func (p *Pipeline) setStatus(ctx context.Context, recordID string, status history.Status) {
	if err := p.history.UpdateStatus(ctx, recordID, status); err != nil {
		log.Error("Failed to mark record %s as %s: %v", recordID, status, err)
	}
}

// Usage returns the user's counters.
func (p *Pipeline) Usage(ctx context.Context, userID string) (quota.Usage, error) {
	return p.gate.Usage(ctx, userID)
}

// History lists the user's records, newest first.
func (p *Pipeline) History(ctx context.Context, userID string, skip, limit int) ([]history.Record, int, error) {
	recs, total, err := p.history.ListRecords(ctx, userID, skip, limit)
	if err != nil {
		return nil, 0, WrapError(err, ErrStorage, "failed to list translation history")
	}
	return recs, total, nil
}
