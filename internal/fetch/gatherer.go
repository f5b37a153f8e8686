package fetch

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/wonny/macropulse/internal/contracts"
	"github.com/wonny/macropulse/pkg/config"
	"github.com/wonny/macropulse/pkg/logger"
)

// ReasonTimeout marks a fetch that exceeded its per-fetch bound
const ReasonTimeout = "timeout exceeded"

// Gatherer runs the fetch phase: bounded concurrency, paced by a token
// bucket, each fetch under its own timeout
type Gatherer struct {
	fetcher     contracts.Fetcher
	concurrency int
	timeout     time.Duration
	limiter     *rate.Limiter
	inflight    chan struct{} // 진행 중인 provider 호출 슬롯 (반환 시까지 점유)
	metrics     contracts.MetricsRecorder
	logger      *logger.Logger
}

// NewGatherer creates a gatherer from fetch configuration
func NewGatherer(fetcher contracts.Fetcher, cfg config.FetchConfig, log *logger.Logger) *Gatherer {
	concurrency := cfg.Concurrency
	if concurrency < 1 {
		concurrency = 1
	}
	return &Gatherer{
		fetcher:     fetcher,
		concurrency: concurrency,
		timeout:     cfg.Timeout,
		limiter:     rate.NewLimiter(rate.Limit(cfg.RatePerSecond), concurrency),
		inflight:    make(chan struct{}, concurrency),
		logger:      log.WithComponent("gather"),
	}
}

// WithMetrics records every fetch outcome
func (g *Gatherer) WithMetrics(m contracts.MetricsRecorder) *Gatherer {
	g.metrics = m
	return g
}

// Gather fetches defs and returns only after every fetch settled.
// Each goroutine writes only its own slot. A cancelled ctx discards the
// partial result and returns ctx.Err().
func (g *Gatherer) Gather(ctx context.Context, defs []contracts.IndicatorDefinition) (contracts.SnapshotSet, error) {
	start := time.Now()
	slots := make([]contracts.Snapshot, len(defs))

	var eg errgroup.Group
	eg.SetLimit(g.concurrency)

	for i, def := range defs {
		i, def := i, def
		eg.Go(func() error {
			if err := g.limiter.Wait(ctx); err != nil {
				slots[i] = contracts.UnavailableSnapshot(def.Key, "cancelled", time.Now().UTC())
				return nil
			}
			slots[i] = g.fetchOne(ctx, def)
			return nil
		})
	}
	_ = eg.Wait() // 개별 fetch는 에러를 반환하지 않음

	if err := ctx.Err(); err != nil {
		g.logger.WithError(err).Warn("Fetch phase cancelled, discarding partial snapshots")
		return nil, err
	}

	set := make(contracts.SnapshotSet, len(slots))
	available := 0
	for _, s := range slots {
		set[s.Key] = s
		if s.Available() {
			available++
		}
		if g.metrics != nil {
			g.metrics.RecordFetch(s.Key, s.Available())
		}
	}

	g.logger.WithFields(map[string]interface{}{
		"requested": len(defs),
		"available": available,
		"duration":  time.Since(start).String(),
	}).Info("Fetch phase completed")

	return set, nil
}

// fetchOne bounds one fetch by the timeout without waiting for a slow
// provider to return. The in-flight slot is held until the provider call
// itself returns, so timed-out calls still count against the limit; waiting
// for a slot counts against the timeout.
func (g *Gatherer) fetchOne(ctx context.Context, def contracts.IndicatorDefinition) contracts.Snapshot {
	fctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	select {
	case g.inflight <- struct{}{}:
	case <-fctx.Done():
		return g.timedOut(def)
	}

	done := make(chan contracts.Snapshot, 1)
	go func() {
		defer func() { <-g.inflight }()
		done <- g.fetcher.Fetch(fctx, def)
	}()

	select {
	case snap := <-done:
		return snap
	case <-fctx.Done():
		return g.timedOut(def)
	}
}

func (g *Gatherer) timedOut(def contracts.IndicatorDefinition) contracts.Snapshot {
	g.logger.WithFields(map[string]interface{}{
		"indicator": def.Key,
		"timeout":   g.timeout.String(),
	}).Warn("Fetch timed out")
	return contracts.UnavailableSnapshot(def.Key, ReasonTimeout, time.Now().UTC())
}
