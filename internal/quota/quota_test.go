package quota

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MimeLyc/sentence-sub-translator/internal/subtitle"
)

func cuesWithChars(n int) []subtitle.Cue {
	return []subtitle.Cue{
		{Index: 1, Text: strings.Repeat("a", n/2)},
		{Index: 2, Text: strings.Repeat("b", n-n/2)},
	}
}

func TestCountCharacters(t *testing.T) {
	cues := []subtitle.Cue{
		{Text: "Hello"},
		{Text: "Grüße!"},
		{Text: ""},
		{Text: "日本語"},
	}
	assert.Equal(t, int64(5+6+0+3), CountCharacters(cues))
	assert.Equal(t, int64(0), CountCharacters(nil))
}

func TestGate_RejectsOverLimit(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	require.NoError(t, store.SetPlan(ctx, "u1", Plan{Type: "basic", Limit: 10000, Active: true}))

	gate := NewGate(store)
	r, err := gate.Reserve(ctx, "u1", cuesWithChars(9800))
	require.NoError(t, err)
	require.NoError(t, gate.Commit(ctx, r))

	_, err = gate.Reserve(ctx, "u1", cuesWithChars(5000))
	require.ErrorIs(t, err, ErrQuotaExceeded)
	require.ErrorIs(t, err, ErrLimitExceeded)

	var limitErr *LimitError
	require.ErrorAs(t, err, &limitErr)
	assert.Equal(t, int64(5000), limitErr.Requested)

	usage, err := gate.Usage(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, int64(9800), usage.Used)
	assert.Equal(t, int64(0), usage.Reserved)
	assert.Equal(t, int64(200), usage.Remaining())
}

func TestGate_NoSubscription(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	gate := NewGate(store)

	_, err := gate.Reserve(ctx, "ghost", cuesWithChars(10))
	require.ErrorIs(t, err, ErrQuotaExceeded)
	require.ErrorIs(t, err, ErrNoActiveSubscription)

	require.NoError(t, store.SetPlan(ctx, "paused", Plan{Type: "pro", Limit: 100, Active: false}))
	_, err = gate.Reserve(ctx, "paused", cuesWithChars(10))
	require.ErrorIs(t, err, ErrNoActiveSubscription)
}

func TestMemoryStore_ExactLimitAllowed(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	require.NoError(t, store.SetPlan(ctx, "u1", Plan{Limit: 100, Active: true}))

	r, err := store.CheckAndReserve(ctx, "u1", 100)
	require.NoError(t, err)
	require.NoError(t, store.Commit(ctx, r))

	usage, err := store.Usage(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, int64(100), usage.Used)
}

func TestMemoryStore_RollbackReleases(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	require.NoError(t, store.SetPlan(ctx, "u1", Plan{Limit: 100, Active: true}))

	r, err := store.CheckAndReserve(ctx, "u1", 80)
	require.NoError(t, err)

	_, err = store.CheckAndReserve(ctx, "u1", 30)
	require.ErrorIs(t, err, ErrLimitExceeded)

	require.NoError(t, store.Rollback(ctx, r))
	usage, err := store.Usage(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, int64(0), usage.Used)
	assert.Equal(t, int64(0), usage.Reserved)

	require.ErrorIs(t, store.Commit(ctx, r), ErrReservationNotFound)
}

func TestMemoryStore_ConcurrentReservationsNeverOvershoot(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	require.NoError(t, store.SetPlan(ctx, "u1", Plan{Limit: 1000, Active: true}))

	var granted atomic.Int64
	var wg sync.WaitGroup
	for range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r, err := store.CheckAndReserve(ctx, "u1", 70)
			if err != nil {
				return
			}
			granted.Add(1)
			_ = store.Commit(ctx, r)
		}()
	}
	wg.Wait()

	usage, err := store.Usage(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, int64(14), granted.Load())
	assert.Equal(t, int64(980), usage.Used)
	assert.LessOrEqual(t, usage.Used, usage.Limit)
}

func TestMemoryStore_UsedNeverDecreases(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	require.NoError(t, store.SetPlan(ctx, "u1", Plan{Limit: 500, Active: true}))

	var last int64
	for i := range 20 {
		r, err := store.CheckAndReserve(ctx, "u1", int64(i*3))
		if err != nil {
			continue
		}
		if i%2 == 0 {
			require.NoError(t, store.Commit(ctx, r))
		} else {
			require.NoError(t, store.Rollback(ctx, r))
		}
		usage, err := store.Usage(ctx, "u1")
		require.NoError(t, err)
		assert.GreaterOrEqual(t, usage.Used, last)
		assert.LessOrEqual(t, usage.Used, usage.Limit)
		last = usage.Used
	}
}

func TestMemoryStore_ReleaseStale(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	require.NoError(t, store.SetPlan(ctx, "u1", Plan{Limit: 100, Active: true}))

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
	require.NoError(t, store.Commit(ctx, fresh))
}
