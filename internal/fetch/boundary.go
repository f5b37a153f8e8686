package fetch

import (
	"context"
	"fmt"
	"time"

	"github.com/wonny/macropulse/internal/contracts"
	"github.com/wonny/macropulse/pkg/logger"
)

// Boundary routes fetches to providers by source prefix and converts every
// failure into an unavailable snapshot
// ⭐ SSOT: 외부 에러는 여기서 데이터(unavailable)로 변환됨
type Boundary struct {
	providers map[string]contracts.Provider
	logger    *logger.Logger
	now       func() time.Time
}

// NewBoundary registers providers under their Name()
func NewBoundary(log *logger.Logger, providers ...contracts.Provider) *Boundary {
	idx := make(map[string]contracts.Provider, len(providers))
	for _, p := range providers {
		idx[p.Name()] = p
	}
	return &Boundary{
		providers: idx,
		logger:    log.WithComponent("fetch"),
		now:       time.Now,
	}
}

// Fetch never errors and never panics past this boundary
func (b *Boundary) Fetch(ctx context.Context, def contracts.IndicatorDefinition) (snap contracts.Snapshot) {
	defer func() {
		if r := recover(); r != nil {
			snap = b.unavailable(def, fmt.Sprintf("provider panic: %v", r))
		}
	}()

	provider, ok := b.providers[def.Provider()]
	if !ok {
		return b.unavailable(def, fmt.Sprintf("unknown provider %q", def.Provider()))
	}

	obs, err := provider.Fetch(ctx, def)
	if err != nil {
		return b.unavailable(def, err.Error())
	}

	value := contracts.Available(obs.Value * def.Scale)
	if !value.Valid {
		return b.unavailable(def, "non-finite value")
	}

	ts := obs.ObservedAt
	if ts.IsZero() {
		ts = b.now().UTC()
	}

	snap = contracts.Snapshot{
		Key:       def.Key,
		Value:     value,
		Label:     obs.Label,
		Timestamp: ts,
	}
	if obs.Change != nil {
		change := *obs.Change
		// % 변화는 단위 무관, 절대 변화만 스케일 적용
		if def.ChangeUnits == contracts.ChangeAbsolute {
			change *= def.Scale
		}
		snap.Change = &change
	}
	return snap
}

func (b *Boundary) unavailable(def contracts.IndicatorDefinition, reason string) contracts.Snapshot {
	b.logger.WithFields(map[string]interface{}{
		"indicator": def.Key,
		"source":    def.Source,
		"reason":    reason,
	}).Warn("Indicator unavailable")
	return contracts.UnavailableSnapshot(def.Key, reason, b.now().UTC())
}
