package persistence

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MimeLyc/sentence-sub-translator/internal/history"
	"github.com/MimeLyc/sentence-sub-translator/internal/jobs"
	"github.com/MimeLyc/sentence-sub-translator/internal/quota"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "subtrans.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestSQLiteStore_ReopenKeepsData(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "data", "subtrans.db")
	store, err := NewSQLiteStore(path)
	require.NoError(t, err)
	require.NoError(t, store.SetPlan(context.Background(), "u1", quota.Plan{Type: "basic", Limit: 10, Active: true}))
	require.NoError(t, store.Close())

	store, err = NewSQLiteStore(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	usage, err := store.Usage(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, "basic", usage.PlanType)
	assert.Equal(t, int64(10), usage.Limit)
}

func TestMigrationVersion(t *testing.T) {
	assert.Equal(t, 1, migrationVersion("001_init.sql"))
	assert.Equal(t, 12, migrationVersion("12_more.sql"))
	assert.Equal(t, 0, migrationVersion("init.sql"))
}

func TestSQLiteStore_QuotaReserveCommitRollback(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, store.SetPlan(ctx, "u1", quota.Plan{Type: "basic", Limit: 10000, Active: true}))

	r, err := store.CheckAndReserve(ctx, "u1", 9800)
	require.NoError(t, err)
	require.NoError(t, store.Commit(ctx, r))

	_, err = store.CheckAndReserve(ctx, "u1", 5000)
	require.ErrorIs(t, err, quota.ErrLimitExceeded)
	var limitErr *quota.LimitError
	require.ErrorAs(t, err, &limitErr)
	assert.Equal(t, int64(9800), limitErr.Used)
	assert.Equal(t, int64(10000), limitErr.Limit)

	r2, err := store.CheckAndReserve(ctx, "u1", 150)
	require.NoError(t, err)
	usage, err := store.Usage(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, int64(150), usage.Reserved)

	require.NoError(t, store.Rollback(ctx, r2))
	require.ErrorIs(t, store.Rollback(ctx, r2), quota.ErrReservationNotFound)

	usage, err = store.Usage(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, int64(9800), usage.Used)
	assert.Zero(t, usage.Reserved)
	assert.True(t, usage.Active)
}

func TestSQLiteStore_NoActiveSubscription(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	ctx := context.Background()

	_, err := store.CheckAndReserve(ctx, "ghost", 1)
	require.ErrorIs(t, err, quota.ErrNoActiveSubscription)
	_, err = store.Usage(ctx, "ghost")
	require.ErrorIs(t, err, quota.ErrNoActiveSubscription)

	require.NoError(t, store.SetPlan(ctx, "paused", quota.Plan{Type: "pro", Limit: 100, Active: false}))
	_, err = store.CheckAndReserve(ctx, "paused", 1)
	require.ErrorIs(t, err, quota.ErrNoActiveSubscription)
}

func TestSQLiteStore_ConcurrentReservationsNeverOvershoot(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, store.SetPlan(ctx, "u1", quota.Plan{Limit: 1000, Active: true}))

	var wg sync.WaitGroup
	var mu sync.Mutex
	granted := 0
	for range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r, err := store.CheckAndReserve(ctx, "u1", 70)
			if err != nil {
				return
			}
			if err := store.Commit(ctx, r); err == nil {
				mu.Lock()
				granted++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	usage, err := store.Usage(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 14, granted)
	assert.Equal(t, int64(980), usage.Used)
	assert.Zero(t, usage.Reserved)
}

func TestSQLiteStore_ReleaseStale(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, store.SetPlan(ctx, "u1", quota.Plan{Limit: 100, Active: true}))

	base := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return base }
	_, err := store.CheckAndReserve(ctx, "u1", 40)
	require.NoError(t, err)

	store.now = func() time.Time { return base.Add(time.Hour) }
	fresh, err := store.CheckAndReserve(ctx, "u1", 10)
	require.NoError(t, err)

	released, err := store.ReleaseStale(ctx, base.Add(30*time.Minute))
	require.NoError(t, err)
	assert.Equal(t, 1, released)

	usage, err := store.Usage(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, int64(10), usage.Reserved)
	assert.Zero(t, usage.Used)

	require.NoError(t, store.Commit(ctx, fresh))
}

func TestSQLiteStore_History(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	ctx := context.Background()
	base := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)

	var ids []string
	for i := range 3 {
		id, err := store.CreateRecord(ctx, history.Record{
			UserID:         "u1",
			FileName:       fmt.Sprintf("ep%d.srt", i),
			SourceLanguage: "en",
			TargetLanguage: "de",
			CharacterCount: int64(100 * i),
			CreatedAt:      base.Add(time.Duration(i) * time.Hour),
		})
		require.NoError(t, err)
		ids = append(ids, id)
	}
	_, err := store.CreateRecord(ctx, history.Record{UserID: "u2", FileName: "other.srt"})
	require.NoError(t, err)

	require.NoError(t, store.UpdateStatus(ctx, ids[2], history.StatusCompleted))
	require.ErrorIs(t, store.UpdateStatus(ctx, "missing", history.StatusFailed), history.ErrRecordNotFound)

	recs, total, err := store.ListRecords(ctx, "u1", 0, 2)
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	require.Len(t, recs, 2)
	assert.Equal(t, "ep2.srt", recs[0].FileName)
	assert.Equal(t, history.StatusCompleted, recs[0].Status)
	assert.Equal(t, int64(200), recs[0].CharacterCount)
	assert.Equal(t, "ep1.srt", recs[1].FileName)
	assert.Equal(t, history.StatusInProgress, recs[1].Status)

	recs, _, err = store.ListRecords(ctx, "u1", 2, 0)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "ep0.srt", recs[0].FileName)
}

func TestSQLiteStore_JobsRoundTrip(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Millisecond)
	job := &jobs.TranslationJob{
		ID:        "job-1",
		Source:    "api",
		DedupeKey: "u1|a.srt|de|00",
		Payload: jobs.JobPayload{
			UserID:         "u1",
			FileName:       "a.srt",
			TargetLanguage: "de",
			Content:        []byte("1\n00:00:01,000 --> 00:00:02,000\nHi.\n"),
		},
		Status:    jobs.StatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	require.NoError(t, store.UpsertJob(ctx, job))

	all, err := store.LoadJobs(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, job.ID, all[0].ID)
	assert.Equal(t, job.Status, all[0].Status)
	assert.Equal(t, job.Payload, all[0].Payload)
	assert.Nil(t, all[0].Result)

	job.Status = jobs.StatusSuccess
	job.Payload.Content = nil
	job.Result = &jobs.JobResult{RecordID: "rec-1", FileName: "a.de.srt", CharacterCount: 3, Content: []byte("translated")}
	require.NoError(t, store.UpsertJob(ctx, job))

	all, err = store.LoadJobs(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	require.NotNil(t, all[0].Result)
	assert.Equal(t, "rec-1", all[0].Result.RecordID)
	assert.Equal(t, []byte("translated"), all[0].Result.Content)
	assert.Empty(t, all[0].Payload.Content)

	require.NoError(t, store.DeleteJob(ctx, job.ID))
	all, err = store.LoadJobs(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestSQLiteStore_BacksJobQueue(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	q := jobs.NewQueue(1, store)
	q.Start(func(_ context.Context, job *jobs.TranslationJob) (*jobs.JobResult, error) {
		return &jobs.JobResult{FileName: job.Payload.FileName, Content: []byte("ok")}, nil
	})
	defer q.Stop()

	job, created := q.Enqueue(jobs.EnqueueRequest{
		Source:    "api",
		DedupeKey: "k",
		Payload:   jobs.JobPayload{UserID: "u1", FileName: "a.srt", Content: []byte("x")},
	})
	require.True(t, created)

	require.Eventually(t, func() bool {
		loaded, err := store.LoadJobs(context.Background())
		if err != nil || len(loaded) != 1 {
			return false
		}
		return loaded[0].ID == job.ID && loaded[0].Status == jobs.StatusSuccess && loaded[0].Result != nil
	}, 2*time.Second, 20*time.Millisecond)
}
