package fetch

import (
	"context"
	"time"

	"github.com/wonny/macropulse/internal/contracts"
	"github.com/wonny/macropulse/pkg/logger"
	"github.com/wonny/macropulse/pkg/redis"
)

// CachedProvider serves observations from Redis before hitting the provider.
// Cache failures fall through to the provider.
type CachedProvider struct {
	inner  contracts.Provider
	cache  *redis.Cache
	logger *logger.Logger
	now    func() time.Time
}

type cachedObservation struct {
	Value      float64   `json:"value"`
	Change     *float64  `json:"change,omitempty"`
	Label      string    `json:"label,omitempty"`
	ObservedAt time.Time `json:"observed_at"`
}

// NewCachedProvider wraps inner with the observation cache
func NewCachedProvider(inner contracts.Provider, cache *redis.Cache, log *logger.Logger) *CachedProvider {
	return &CachedProvider{
		inner:  inner,
		cache:  cache,
		logger: log.WithComponent("fetch_cache"),
		now:    time.Now,
	}
}

// Name returns the wrapped provider's name
func (c *CachedProvider) Name() string {
	return c.inner.Name()
}

// Fetch implements contracts.Provider
func (c *CachedProvider) Fetch(ctx context.Context, def contracts.IndicatorDefinition) (contracts.Observation, error) {
	key := redis.ObservationKey(def.Key, c.now())

	var cached cachedObservation
	found, err := c.cache.Get(ctx, key, &cached)
	if err != nil {
		c.logger.WithError(err).WithField("indicator", def.Key).Debug("Cache read failed")
	}
	if found {
		return contracts.Observation{
			Value:      cached.Value,
			Change:     cached.Change,
			Label:      cached.Label,
			ObservedAt: cached.ObservedAt,
		}, nil
	}

	obs, err := c.inner.Fetch(ctx, def)
	if err != nil {
		return obs, err
	}

	entry := cachedObservation{Value: obs.Value, Change: obs.Change, Label: obs.Label, ObservedAt: obs.ObservedAt}
	if err := c.cache.Set(ctx, key, entry, TTLFor(def.Frequency)); err != nil {
		c.logger.WithError(err).WithField("indicator", def.Key).Debug("Cache write failed")
	}
	return obs, nil
}

// TTLFor returns the cache lifetime of an observation by release frequency
func TTLFor(f contracts.Frequency) time.Duration {
	switch f {
	case contracts.FrequencyWeekly:
		return redis.TTLWeekly
	case contracts.FrequencyMonthly:
		return redis.TTLMonthly
	default:
		return redis.TTLDaily
	}
}
