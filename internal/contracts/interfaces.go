package contracts

import (
	"context"
	"time"
)

// Observation is what a provider returns for one series
type Observation struct {
	Value      float64
	Change     *float64
	Label      string
	ObservedAt time.Time
}

// Provider fetches raw observations from one data source. May error.
// ⭐ SSOT: 외부 데이터 소스 인터페이스
type Provider interface {
	Name() string
	Fetch(ctx context.Context, def IndicatorDefinition) (Observation, error)
}

// Fetcher is the fetch boundary. Never errors: failures become unavailable snapshots.
type Fetcher interface {
	Fetch(ctx context.Context, def IndicatorDefinition) Snapshot
}

// ReportRepository persists finalized reports keyed by date
type ReportRepository interface {
	Save(ctx context.Context, report *Report) error
	GetByDate(ctx context.Context, date time.Time) (*Report, error)
}

// Notifier delivers a report's alerts
type Notifier interface {
	Notify(ctx context.Context, report *Report) error
}

// MetricsRecorder receives run telemetry
type MetricsRecorder interface {
	RecordFetch(indicator string, available bool)
	RecordAlert(severity, rule string)
	RecordScores(composite, liquidity float64)
	RecordRun(mode string, d time.Duration)
}
