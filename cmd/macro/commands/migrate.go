package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/wonny/macropulse/pkg/database"
)

var migrateDir string

// migrateCmd applies SQL migrations
var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "리포트 저장소 스키마 마이그레이션",
	Long: `migrations/ 디렉터리의 SQL 파일을 이름 순으로 적용합니다 (DATABASE_URL 필요).

Example:
  go run ./cmd/macro migrate
  go run ./cmd/macro migrate --dir ./migrations`,
	RunE: runMigrate,
}

func init() {
	rootCmd.AddCommand(migrateCmd)
	migrateCmd.Flags().StringVar(&migrateDir, "dir", "migrations", "directory of *.sql files")
}

func runMigrate(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if !cfg.Database.Enabled() {
		return fmt.Errorf("DATABASE_URL is required")
	}

	ctx := cmd.Context()
	db, err := database.New(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer db.Close()

	applied, err := db.Migrate(ctx, migrateDir)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	PrintHeader(out, "Migrations")
	PrintList(out, applied)
	PrintSuccess(out, fmt.Sprintf("%d migration(s) applied", len(applied)))
	return nil
}
