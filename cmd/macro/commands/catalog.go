package commands

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/wonny/macropulse/internal/contracts"
	"github.com/wonny/macropulse/internal/engine"
	"github.com/wonny/macropulse/internal/modelconfig"
	"github.com/wonny/macropulse/pkg/logger"
)

// catalogCmd groups catalog/model inspection commands
var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "지표 카탈로그 / 모델 설정 검증 및 조회",
}

var (
	catalogValidateCmd = &cobra.Command{
		Use:   "validate",
		Short: "카탈로그와 모델 설정 검증 (데이터 수집 없음)",
		RunE:  validateCatalog,
	}

	catalogListCmd = &cobra.Command{
		Use:   "list",
		Short: "등록된 지표 목록",
		RunE:  listCatalog,
	}
)

func init() {
	rootCmd.AddCommand(catalogCmd)
	catalogCmd.AddCommand(catalogValidateCmd)
	catalogCmd.AddCommand(catalogListCmd)
}

func validateCatalog(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	cat, model, err := loadModel(cfg)
	if err != nil {
		return err
	}

	// 엔진 생성 = 모델 검증 + 카탈로그 참조 검증 + 알림 규칙 컴파일
	eng, err := engine.New(cat, model, nil, logger.Nop())
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	PrintHeader(out, "Model Validation")
	PrintKeyValue(out, "Catalog", cfg.CatalogPath, 12)
	PrintKeyValue(out, "Model", modelSource(cfg.ModelPath), 12)
	PrintKeyValue(out, "Indicators", fmt.Sprintf("%d", cat.Len()), 12)
	PrintKeyValue(out, "Alert rules", fmt.Sprintf("%d", len(model.Alerts)), 12)
	PrintKeyValue(out, "Model hash", eng.ModelHash(), 12)
	PrintSeparator(out)

	unused := unusedIndicators(cat.Keys(), modelconfig.ReferencedIndicators(model))
	if len(unused) > 0 {
		PrintWarning(out, "Indicators not referenced by any rule (display only):")
		PrintList(out, unused)
	}
	PrintSuccess(out, "Configuration is valid")
	return nil
}

func listCatalog(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	cat, model, err := loadModel(cfg)
	if err != nil {
		return err
	}

	alerting := make(map[string]bool)
	for _, key := range modelconfig.AlertIndicators(model) {
		alerting[key] = true
	}

	out := cmd.OutOrStdout()
	widths := []int{20, 16, 22, 9, 5}
	PrintTableHeader(out, []string{"KEY", "CATEGORY", "SOURCE", "FREQ", "ALERT"}, widths)
	for _, def := range cat.All() {
		flag := ""
		if alerting[def.Key] {
			flag = "yes"
		}
		PrintTableRow(out, []string{
			def.Key,
			string(def.Category),
			def.Source,
			string(def.Frequency),
			flag,
		}, widths)
	}
	PrintInfo(out, fmt.Sprintf("%d indicators in %d categories", cat.Len(), len(contracts.Categories())))
	return nil
}

func modelSource(path string) string {
	if path == "" {
		return "(built-in defaults)"
	}
	return path
}

func unusedIndicators(keys, referenced []string) []string {
	used := make(map[string]bool, len(referenced))
	for _, k := range referenced {
		used[k] = true
	}
	var unused []string
	for _, k := range keys {
		if !used[k] {
			unused = append(unused, k)
		}
	}
	sort.Strings(unused)
	return unused
}
