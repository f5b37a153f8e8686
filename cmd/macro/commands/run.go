package commands

import (
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/wonny/macropulse/internal/catalog"
	"github.com/wonny/macropulse/internal/contracts"
	"github.com/wonny/macropulse/internal/engine"
	"github.com/wonny/macropulse/internal/report"
)

var (
	runMode    string
	runPersist bool
	runNotify  bool
	runJSON    bool
)

// runCmd performs a single evaluation
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "지표 수집 → 스코어링 → 시그널/알림 1회 실행",
	Long: `매크로 지표를 수집하고 리포트를 생성합니다.

Modes:
  full    - 카테고리 점수, 종합 점수, 시그널, 유동성, 펄스, 알림
  alerts  - 알림 규칙이 참조하는 지표만 수집해 알림만 평가

Example:
  go run ./cmd/macro run
  go run ./cmd/macro run --mode alerts --notify
  go run ./cmd/macro run --persist --json`,
	RunE: runReport,
}

func init() {
	rootCmd.AddCommand(runCmd)
	runCmd.Flags().StringVar(&runMode, "mode", string(contracts.ModeFull), "full | alerts")
	runCmd.Flags().BoolVar(&runPersist, "persist", false, "save the full report to PostgreSQL")
	runCmd.Flags().BoolVar(&runNotify, "notify", false, "send the report to Telegram")
	runCmd.Flags().BoolVar(&runJSON, "json", false, "print the report as JSON")
}

func runReport(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, appOptions{persist: runPersist, notify: runNotify})
	if err != nil {
		return err
	}
	defer a.Close()

	r, err := a.engine.Run(ctx, engine.RunOptions{
		Mode:    contracts.Mode(runMode),
		Persist: runPersist,
		Notify:  runNotify,
	})
	if err != nil {
		return err
	}
	a.pushMetrics(ctx, "macro_"+string(r.Mode))

	return writeReport(cmd, r, a.catalog)
}

func writeReport(cmd *cobra.Command, r *contracts.Report, cat *catalog.Catalog) error {
	out := cmd.OutOrStdout()
	if runJSON {
		data, err := json.MarshalIndent(r, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to encode report: %w", err)
		}
		_, err = fmt.Fprintln(out, string(data))
		return err
	}
	_, err := fmt.Fprintln(out, report.Summary(r, cat))
	return err
}
