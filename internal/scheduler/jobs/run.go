package jobs

import (
	"context"

	"github.com/wonny/macropulse/internal/contracts"
	"github.com/wonny/macropulse/internal/engine"
	"github.com/wonny/macropulse/pkg/logger"
)

// Runner executes one engine run (implemented by engine.Engine)
type Runner interface {
	Run(ctx context.Context, opts engine.RunOptions) (*contracts.Report, error)
}

// Hook runs after a successful run (e.g. metrics push)
type Hook func(ctx context.Context, report *contracts.Report)

// RunJob drives the engine on a schedule
type RunJob struct {
	name     string
	schedule string
	runner   Runner
	opts     engine.RunOptions
	hooks    []Hook
	logger   *logger.Logger
}

// NewDailyReportJob runs the full report: scores, signal, alerts
func NewDailyReportJob(runner Runner, schedule string, persist, notify bool, log *logger.Logger) *RunJob {
	return &RunJob{
		name:     "daily_report",
		schedule: schedule,
		runner:   runner,
		opts:     engine.RunOptions{Mode: contracts.ModeFull, Persist: persist, Notify: notify},
		logger:   log,
	}
}

// NewAlertScanJob fetches only alert inputs and notifies when rules fire
func NewAlertScanJob(runner Runner, schedule string, notify bool, log *logger.Logger) *RunJob {
	return &RunJob{
		name:     "alert_scan",
		schedule: schedule,
		runner:   runner,
		opts:     engine.RunOptions{Mode: contracts.ModeAlerts, Notify: notify},
		logger:   log,
	}
}

// WithHook appends a post-run hook
func (j *RunJob) WithHook(h Hook) *RunJob {
	j.hooks = append(j.hooks, h)
	return j
}

// Name returns the job name
func (j *RunJob) Name() string {
	return j.name
}

// Schedule returns the cron schedule
func (j *RunJob) Schedule() string {
	return j.schedule
}

// Run executes the engine in the job's mode
func (j *RunJob) Run(ctx context.Context) error {
	j.logger.WithField("job", j.name).Debug("Starting scheduled run")

	report, err := j.runner.Run(ctx, j.opts)
	if err != nil {
		return err
	}

	for _, h := range j.hooks {
		h(ctx, report)
	}

	j.logger.WithFields(map[string]interface{}{
		"job":    j.name,
		"alerts": len(report.Alerts),
	}).Info("Scheduled run finished")

	return nil
}
