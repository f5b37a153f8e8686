package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/macropulse/internal/contracts"
	"github.com/wonny/macropulse/internal/scheduler"
	"github.com/wonny/macropulse/internal/scheduler/jobs"
)

// schedulerCmd represents the scheduler command
var schedulerCmd = &cobra.Command{
	Use:   "scheduler",
	Short: "스케줄러 관리",
	Long: `스케줄러를 시작하거나 작업을 관리합니다.

Subcommands:
  start   - 스케줄러 시작
  list    - 등록된 작업 목록
  run     - 특정 작업 즉시 실행

Example:
  go run ./cmd/macro scheduler start
  go run ./cmd/macro scheduler list
  go run ./cmd/macro scheduler run alert_scan`,
}

var (
	schedulerStartCmd = &cobra.Command{
		Use:   "start",
		Short: "스케줄러 시작",
		Long: `스케줄러를 시작하고 등록된 모든 작업을 스케줄합니다.

등록되는 작업:
- daily_report: 전체 리포트 (SCHEDULE_DAILY_REPORT, 기본 평일 22:00)
- alert_scan:   알림 전용 스캔 (SCHEDULE_ALERT_SCAN, 기본 매시 정각)

DATABASE_URL이 설정되면 리포트를 저장하고, Telegram이 설정되면 알림을 전송합니다.
스케줄러는 Ctrl+C로 종료할 수 있습니다.`,
		RunE: runScheduler,
	}

	schedulerListCmd = &cobra.Command{
		Use:   "list",
		Short: "등록된 작업 목록",
		RunE:  listJobs,
	}

	schedulerRunCmd = &cobra.Command{
		Use:   "run [job_name]",
		Short: "특정 작업 즉시 실행 (완료까지 대기)",
		Args:  cobra.ExactArgs(1),
		RunE:  runScheduledJob,
	}
)

func init() {
	rootCmd.AddCommand(schedulerCmd)
	schedulerCmd.AddCommand(schedulerStartCmd)
	schedulerCmd.AddCommand(schedulerListCmd)
	schedulerCmd.AddCommand(schedulerRunCmd)
}

func runScheduler(cmd *cobra.Command, args []string) error {
	sched, a, err := initScheduler(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	sched.Start()

	out := cmd.OutOrStdout()
	PrintHeader(out, "MacroPulse Scheduler")
	printJobs(cmd, sched)
	PrintSuccess(out, "Scheduler started. Press Ctrl+C to stop")

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	PrintInfo(out, "Shutting down scheduler...")
	sched.Stop()
	return nil
}

func listJobs(cmd *cobra.Command, args []string) error {
	sched, a, err := initScheduler(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	printJobs(cmd, sched)
	return nil
}

func runScheduledJob(cmd *cobra.Command, args []string) error {
	sched, a, err := initScheduler(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	out := cmd.OutOrStdout()
	PrintInfo(out, fmt.Sprintf("Running job: %s", args[0]))

	result, err := sched.RunJob(args[0])
	if err != nil {
		return err
	}
	PrintKeyValue(out, "Duration", result.Duration.Round(time.Millisecond).String(), 10)
	PrintKeyValue(out, "Attempts", fmt.Sprintf("%d", result.Attempts), 10)
	if !result.Success {
		PrintError(out, result.Error)
		return fmt.Errorf("job %s failed: %s", result.JobName, result.Error)
	}
	PrintSuccess(out, "Job completed")
	return nil
}

func printJobs(cmd *cobra.Command, sched *scheduler.Scheduler) {
	out := cmd.OutOrStdout()
	stats := sched.GetJobStats()
	widths := []int{14, 18, 20}
	PrintTableHeader(out, []string{"JOB", "SCHEDULE", "NEXT RUN"}, widths)
	for _, name := range sched.GetAllJobs() {
		next := "-"
		if t, ok := sched.NextRun(name); ok && !t.IsZero() {
			next = t.Format("2006-01-02 15:04")
		}
		PrintTableRow(out, []string{name, stats[name].Schedule, next}, widths)
	}
}

// initScheduler wires the engine and registers the run jobs.
// Persistence and notification follow what is configured.
func initScheduler(ctx context.Context) (*scheduler.Scheduler, *app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}
	persist := cfg.Database.Enabled()
	notify := cfg.Telegram.Enabled()

	a, err := newApp(ctx, appOptions{persist: persist, notify: notify})
	if err != nil {
		return nil, nil, err
	}

	loc, err := time.LoadLocation(a.cfg.Scheduler.Timezone)
	if err != nil {
		a.Close()
		return nil, nil, &contracts.ConfigError{Source: "env", Field: "SCHEDULE_TIMEZONE", Err: err}
	}

	sched := scheduler.New(a.log, scheduler.Options{
		MaxRetries: 2,
		RetryDelay: time.Minute,
		Timeout:    10 * time.Minute,
		Location:   loc,
	})

	pushHook := func(job string) jobs.Hook {
		return func(ctx context.Context, _ *contracts.Report) {
			a.pushMetrics(ctx, job)
		}
	}

	registered := []scheduler.Job{
		jobs.NewDailyReportJob(a.engine, a.cfg.Scheduler.DailyReport, persist, notify, a.log).
			WithHook(pushHook("macro_daily_report")),
		jobs.NewAlertScanJob(a.engine, a.cfg.Scheduler.AlertScan, notify, a.log).
			WithHook(pushHook("macro_alert_scan")),
	}
	for _, job := range registered {
		if err := sched.AddJob(job); err != nil {
			a.Close()
			return nil, nil, err
		}
	}

	return sched, a, nil
}
