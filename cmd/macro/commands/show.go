package commands

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/macropulse/internal/catalog"
	"github.com/wonny/macropulse/internal/report"
	"github.com/wonny/macropulse/pkg/database"
)

var showDate string

// showCmd prints a persisted daily report
var showCmd = &cobra.Command{
	Use:   "show",
	Short: "저장된 일일 리포트 조회",
	Long: `PostgreSQL에 저장된 일일 리포트를 출력합니다 (DATABASE_URL 필요).

Example:
  go run ./cmd/macro show
  go run ./cmd/macro show --date 2024-03-15 --json`,
	RunE: showReport,
}

func init() {
	rootCmd.AddCommand(showCmd)
	showCmd.Flags().StringVar(&showDate, "date", "", "report date YYYY-MM-DD (default: today, UTC)")
	showCmd.Flags().BoolVar(&runJSON, "json", false, "print the report as JSON")
}

func showReport(cmd *cobra.Command, args []string) error {
	day := time.Now().UTC()
	if showDate != "" {
		parsed, err := time.Parse("2006-01-02", showDate)
		if err != nil {
			return fmt.Errorf("invalid --date %q: %w", showDate, err)
		}
		day = parsed
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	cat, err := catalog.Load(cfg.CatalogPath)
	if err != nil {
		return err
	}
	if !cfg.Database.Enabled() {
		return fmt.Errorf("DATABASE_URL is required to read stored reports")
	}

	ctx := cmd.Context()
	db, err := database.New(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer db.Close()

	r, err := report.NewRepository(db.Pool).GetByDate(ctx, day)
	if errors.Is(err, report.ErrNotFound) {
		PrintWarning(cmd.ErrOrStderr(), fmt.Sprintf("No report stored for %s", day.Format("2006-01-02")))
		return err
	}
	if err != nil {
		return err
	}

	return writeReport(cmd, r, cat)
}
