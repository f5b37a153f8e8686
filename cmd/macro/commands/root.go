package commands

import (
	"context"
	"errors"

	"github.com/spf13/cobra"

	"github.com/wonny/macropulse/internal/contracts"
)

var (
	// Global flags
	catalogPath string
	modelPath   string
	verbose     bool
)

// Exit codes
const (
	ExitOK          = 0
	ExitFailure     = 1
	ExitConfigError = 2
	ExitInterrupted = 130
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "macro",
	Short: "MacroPulse - 미국 매크로 지표 스코어링 & 알림 엔진",
	Long: `MacroPulse Unified CLI

유동성, 통화정책, 경기, 시장심리, 원자재 지표를 수집해
카테고리 점수 → 종합 점수 → 투자 시그널, 그리고 임계값 알림을 생성합니다.

Usage:
  go run ./cmd/macro [command]

Examples:
  go run ./cmd/macro run --mode full
  go run ./cmd/macro run --mode alerts --notify
  go run ./cmd/macro catalog validate
  go run ./cmd/macro show --date 2024-03-15
  go run ./cmd/macro scheduler start`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

// ExitCode maps a command error to the process exit status.
// Configuration failures are distinguishable from everything else.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return ExitOK
	case contracts.IsConfigError(err):
		return ExitConfigError
	case errors.Is(err, context.Canceled):
		return ExitInterrupted
	default:
		return ExitFailure
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&catalogPath, "catalog", "", "indicator catalog YAML (default $MACRO_CATALOG_PATH)")
	rootCmd.PersistentFlags().StringVar(&modelPath, "model", "", "model config YAML (default $MACRO_MODEL_PATH, built-in defaults when empty)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")
}
