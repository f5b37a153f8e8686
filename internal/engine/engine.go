package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/wonny/macropulse/internal/alerting"
	"github.com/wonny/macropulse/internal/catalog"
	"github.com/wonny/macropulse/internal/contracts"
	"github.com/wonny/macropulse/internal/modelconfig"
	"github.com/wonny/macropulse/internal/scoring"
	"github.com/wonny/macropulse/internal/signal"
	"github.com/wonny/macropulse/pkg/logger"
)

// Gatherer runs the fetch phase (implemented by fetch.Gatherer)
type Gatherer interface {
	Gather(ctx context.Context, defs []contracts.IndicatorDefinition) (contracts.SnapshotSet, error)
}

// Engine coordinates one run: fetch, score, classify, alert, hand over
// ⭐ SSOT: 실행 파이프라인 조율은 여기서만
type Engine struct {
	catalog    *catalog.Catalog
	model      *modelconfig.Config
	modelHash  string
	gatherer   Gatherer
	scorer     *scoring.Scorer
	classifier *signal.Classifier
	alertRules []alerting.Rule

	// 선택 구성요소 (nil이면 생략)
	repo     contracts.ReportRepository
	notifier contracts.Notifier
	metrics  contracts.MetricsRecorder

	logger *logger.Logger
	now    func() time.Time
}

// RunOptions selects what a run computes and hands over
type RunOptions struct {
	Mode    contracts.Mode
	Persist bool
	Notify  bool
}

// New validates the model against the catalog and compiles alert rules.
// Every failure is a *contracts.ConfigError, raised before any fetch.
func New(cat *catalog.Catalog, model *modelconfig.Config, gatherer Gatherer, log *logger.Logger) (*Engine, error) {
	if err := modelconfig.Validate(model); err != nil {
		return nil, err
	}

	for _, key := range modelconfig.ReferencedIndicators(model) {
		if _, ok := cat.Lookup(key); !ok {
			return nil, &contracts.ConfigError{
				Source:  "model",
				Field:   "indicators",
				Message: fmt.Sprintf("unknown indicator %q (not in catalog)", key),
			}
		}
	}

	alertRules, err := alerting.BuildRules(model.Alerts, model.Levels)
	if err != nil {
		return nil, err
	}

	hash, err := modelconfig.Hash(model)
	if err != nil {
		return nil, &contracts.ConfigError{Source: "model", Message: "hash model", Err: err}
	}

	return &Engine{
		catalog:    cat,
		model:      model,
		modelHash:  hash,
		gatherer:   gatherer,
		scorer:     scoring.NewScorer(model, log),
		classifier: signal.NewClassifier(model.Signal),
		alertRules: alertRules,
		logger:     log.WithComponent("engine"),
		now:        time.Now,
	}, nil
}

// WithRepository enables persistence of finalized reports
func (e *Engine) WithRepository(repo contracts.ReportRepository) *Engine {
	e.repo = repo
	return e
}

// WithNotifier enables alert delivery
func (e *Engine) WithNotifier(n contracts.Notifier) *Engine {
	e.notifier = n
	return e
}

// WithMetrics enables run telemetry
func (e *Engine) WithMetrics(m contracts.MetricsRecorder) *Engine {
	e.metrics = m
	return e
}

// ModelHash returns the fingerprint stored with each report
func (e *Engine) ModelHash() string {
	return e.modelHash
}

// Indicators returns the definitions a mode fetches, in catalog order.
// Alerts mode fetches only what alert rules read.
func (e *Engine) Indicators(mode contracts.Mode) []contracts.IndicatorDefinition {
	if mode == contracts.ModeAlerts {
		defs, _ := e.catalog.Select(modelconfig.AlertIndicators(e.model))
		return defs
	}
	return e.catalog.All()
}

// Run executes one invocation. Only configuration failures and
// cancellation return an error; persistence and delivery failures are logged.
func (e *Engine) Run(ctx context.Context, opts RunOptions) (*contracts.Report, error) {
	start := time.Now()
	mode := opts.Mode
	if mode == "" {
		mode = contracts.ModeFull
	}
	if !mode.Valid() {
		return nil, &contracts.ConfigError{Field: "mode", Message: fmt.Sprintf("unknown mode %q", mode)}
	}

	defs := e.Indicators(mode)
	e.logger.WithFields(map[string]interface{}{
		"mode":       mode,
		"indicators": len(defs),
		"model_hash": e.modelHash[:12],
	}).Info("Starting run")

	// 1. Fetch phase
	snaps, err := e.gatherer.Gather(ctx, defs)
	if err != nil {
		return nil, fmt.Errorf("fetch phase: %w", err)
	}

	// 2. Compute phase (순수)
	report, err := e.Evaluate(mode, snaps, e.now())
	if err != nil {
		return nil, err
	}

	// 3. Hand-over (리포트 확정 이후)
	e.record(report, time.Since(start))
	if opts.Persist {
		e.persist(ctx, report)
	}
	if opts.Notify {
		e.notify(ctx, report)
	}

	fields := map[string]interface{}{
		"mode":     mode,
		"alerts":   len(report.Alerts),
		"coverage": fmt.Sprintf("%d/%d", report.Coverage.Available, report.Coverage.Requested),
		"duration": time.Since(start).String(),
	}
	if report.Composite != nil {
		fields["composite"] = report.Composite.Value
		fields["signal"] = report.Signal.Label
		fields["liquidity"] = report.Liquidity.Status
	}
	e.logger.WithFields(fields).Info("Run completed")

	return report, nil
}

// Evaluate computes a report from a snapshot set. Pure: the same snapshots
// and timestamp always produce the same report.
func (e *Engine) Evaluate(mode contracts.Mode, snaps contracts.SnapshotSet, at time.Time) (*contracts.Report, error) {
	keys := make([]string, 0, len(snaps))
	for _, def := range e.Indicators(mode) {
		keys = append(keys, def.Key)
	}

	report := &contracts.Report{
		Date:        contracts.ReportDate(at),
		GeneratedAt: at.UTC(),
		Mode:        mode,
		Alerts:      alerting.Evaluate(snaps, e.alertRules),
		Snapshots:   snaps,
		Coverage:    snaps.Coverage(keys),
		ModelHash:   e.modelHash,
	}

	if mode == contracts.ModeAlerts {
		return report, nil
	}

	scores := e.scorer.ScoreAll(snaps)
	composite, err := scoring.Combine(scores, e.model.Weights, at.UTC())
	if err != nil {
		return nil, fmt.Errorf("composite score: %w", err)
	}
	sig := e.classifier.Classify(composite.Value)
	liquidity := scoring.ClassifyLiquidity(scores[contracts.CategoryLiquidity], e.model.Liquidity)
	pulse := e.scorer.Pulse(snaps)

	report.Composite = &composite
	report.Signal = &sig
	report.Liquidity = &liquidity
	report.Pulse = &pulse
	return report, nil
}

func (e *Engine) record(report *contracts.Report, d time.Duration) {
	if e.metrics == nil {
		return
	}
	for _, a := range report.Alerts {
		e.metrics.RecordAlert(string(a.Severity), a.RuleID)
	}
	if report.Composite != nil {
		e.metrics.RecordScores(report.Composite.Value, report.Liquidity.Score)
	}
	e.metrics.RecordRun(string(report.Mode), d)
}

func (e *Engine) persist(ctx context.Context, report *contracts.Report) {
	if e.repo == nil {
		e.logger.Warn("Persistence requested but no repository configured")
		return
	}
	// 알림 전용 실행은 일일 리포트를 덮어쓰지 않음
	if report.Mode != contracts.ModeFull {
		e.logger.Debug("Skipping persistence for alerts-only run")
		return
	}
	if err := e.repo.Save(ctx, report); err != nil {
		e.logger.WithError(err).WithField("date", report.Date.Format("2006-01-02")).Error("Failed to persist report")
		return
	}
	e.logger.WithField("date", report.Date.Format("2006-01-02")).Info("Report persisted")
}

func (e *Engine) notify(ctx context.Context, report *contracts.Report) {
	if e.notifier == nil {
		e.logger.Warn("Notification requested but no notifier configured")
		return
	}
	if report.Mode == contracts.ModeAlerts && len(report.Alerts) == 0 {
		return
	}
	if err := e.notifier.Notify(ctx, report); err != nil {
		e.logger.WithError(err).Error("Failed to deliver notification")
		return
	}
	e.logger.WithField("alerts", len(report.Alerts)).Info("Notification delivered")
}
