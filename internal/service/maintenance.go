package service

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"golang.org/x/sync/singleflight"

	"github.com/MimeLyc/sentence-sub-translator/internal/quota"
	"github.com/MimeLyc/sentence-sub-translator/pkg/icron"
	"github.com/MimeLyc/sentence-sub-translator/pkg/log"
)

// Maintenance periodically rolls back reservations left behind by requests
// that never reached commit or rollback, e.g. after a crash.
type Maintenance struct {
	store    quota.Store
	cron     *cron.Cron
	cronExpr string
	ttl      time.Duration
	now      func() time.Time
	group    singleflight.Group
}

func NewMaintenance(store quota.Store, c *cron.Cron, cronExpr string, ttl time.Duration) *Maintenance {
	return &Maintenance{
		store:    store,
		cron:     c,
		cronExpr: cronExpr,
		ttl:      ttl,
		now:      time.Now,
	}
}

// Schedule registers the cleanup with the cron runner.
func (m *Maintenance) Schedule(ctx context.Context) error {
	log.Info("Scheduling reservation cleanup (%s, ttl %v)", m.cronExpr, m.ttl)

	_, err := m.cron.AddFunc(m.cronExpr, func() {
		if _, err := m.ReleaseStale(ctx); err != nil {
			log.Error("Failed to release stale reservations: %v", err)
		}
		if info, err := icron.GetTriggerInfo(m.cronExpr, m.now()); err == nil {
			log.Debug("Next reservation cleanup at %s", info.Next.Format(time.RFC3339))
		}
	})
	if err != nil {
		return WrapError(err, ErrConfig, "invalid cleanup schedule").WithContext("cron", m.cronExpr)
	}
	return nil
}

// ReleaseStale rolls back reservations older than the TTL. Concurrent calls
// share one run.
func (m *Maintenance) ReleaseStale(ctx context.Context) (int, error) {
	v, err, _ := m.group.Do("release", func() (any, error) {
		released, err := m.store.ReleaseStale(ctx, m.now().Add(-m.ttl))
		if err != nil {
			return 0, WrapError(err, ErrStorage, "failed to release stale reservations")
		}
		if released > 0 {
			log.Warn("Released %d stale reservations", released)
		}
		return released, nil
	})
	if err != nil {
		return 0, err
	}
	return v.(int), nil
}
