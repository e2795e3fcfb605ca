package metrics

import (
	"context"
	"time"

	"github.com/go-linegate/linegate/internal/cache"
)

// gaugeStore defines the count queries the gauge sampler needs. An
// interface here keeps the sampler testable without a full datastore.
type gaugeStore interface {
	CountUsers() (int64, error)
	CountActiveNotifyGrants() (int64, error)
}

// GaugeSampler feeds the population gauges through a read-through
// count cache, so scrapes do not hammer the datastore.
type GaugeSampler struct {
	store    gaugeStore
	cache    cache.Cache[int64]
	recorder Recorder
	ttl      time.Duration
}

func NewGaugeSampler(
	store gaugeStore,
	countCache cache.Cache[int64],
	recorder Recorder,
	ttl time.Duration,
) *GaugeSampler {
	return &GaugeSampler{
		store:    store,
		cache:    countCache,
		recorder: recorder,
		ttl:      ttl,
	}
}

// Sample refreshes the user and grant gauges. Count errors leave the
// previous gauge value in place.
func (g *GaugeSampler) Sample(ctx context.Context) error {
	users, err := cache.GetWithFetch(ctx, g.cache, "count:users", g.ttl,
		func(ctx context.Context, _ string) (int64, error) {
			return g.store.CountUsers()
		})
	if err != nil {
		return err
	}
	g.recorder.SetUsersCount(int(users))

	grants, err := cache.GetWithFetch(ctx, g.cache, "count:notify_grants", g.ttl,
		func(ctx context.Context, _ string) (int64, error) {
			return g.store.CountActiveNotifyGrants()
		})
	if err != nil {
		return err
	}
	g.recorder.SetActiveGrantsCount(int(grants))
	return nil
}

// Run samples on a fixed interval until the context is cancelled.
func (g *GaugeSampler) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			_ = g.Sample(ctx)
		}
	}
}
