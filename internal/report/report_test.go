package report

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/macropulse/internal/catalog"
	"github.com/wonny/macropulse/internal/contracts"
	"github.com/wonny/macropulse/pkg/config"
	"github.com/wonny/macropulse/pkg/database"
)

var testTime = time.Date(2024, 3, 15, 13, 30, 0, 0, time.UTC)

func ptr(v float64) *float64 { return &v }

func sampleReport() *contracts.Report {
	scores := map[contracts.Category]contracts.CategoryScore{
		contracts.CategoryLiquidity: {
			Category: contracts.CategoryLiquidity, Score: 7, Evaluated: 5,
			RulesFired: []string{"fed_balance_sheet_trend", "m2_yoy"}, RulesSkipped: []string{},
		},
		contracts.CategoryMonetaryPolicy:  {Category: contracts.CategoryMonetaryPolicy, Score: 50, Fallback: true},
		contracts.CategoryEconomicGrowth:  {Category: contracts.CategoryEconomicGrowth, Score: 50, Fallback: true},
		contracts.CategoryMarketSentiment: {Category: contracts.CategoryMarketSentiment, Score: 50, Fallback: true},
		contracts.CategoryCommodities:     {Category: contracts.CategoryCommodities, Score: 50, Fallback: true},
	}
	weights := map[contracts.Category]float64{
		contracts.CategoryLiquidity: 0.30, contracts.CategoryMonetaryPolicy: 0.25,
		contracts.CategoryEconomicGrowth: 0.25, contracts.CategoryMarketSentiment: 0.15,
		contracts.CategoryCommodities: 0.05,
	}
	contributions := make([]contracts.Contribution, 0, 5)
	for _, c := range contracts.Categories() {
		contributions = append(contributions, contracts.Contribution{
			Category: c, Weight: weights[c], Score: scores[c].Score, Weighted: weights[c] * scores[c].Score,
		})
	}

	return &contracts.Report{
		Date:        contracts.ReportDate(testTime),
		GeneratedAt: testTime,
		Mode:        contracts.ModeFull,
		Composite: &contracts.CompositeScore{
			Value: 37.1, Timestamp: testTime, CategoryScores: scores, Contributions: contributions,
		},
		Signal:    &contracts.Signal{Label: contracts.SignalBearish, Display: "看跌", Recommendation: "降低股票仓位，增加现金和债券"},
		Liquidity: &contracts.LiquidityAssessment{Score: 7, Status: contracts.LiquidityDepleted, Display: "枯竭", Description: "流动性枯竭"},
		Pulse:     &contracts.PulseAssessment{Score: -3, Status: "tight", Display: "紧张", Recommendation: "降低风险敞口", Evaluated: 4, RulesFired: []string{"m2"}, RulesSkipped: []string{}},
		Alerts: []contracts.Alert{
			{Severity: contracts.SeverityWarning, Message: "⚠️ 美联储资产负债表快速缩减 (-0.60%)，市场流动性承压", RuleID: "fed_balance_sheet_contraction", TriggeringIndicator: "fed_balance_sheet"},
		},
		Snapshots: contracts.SnapshotSet{
			"fed_balance_sheet": {Key: "fed_balance_sheet", Value: contracts.Available(7.5), Change: ptr(-0.6), Timestamp: testTime},
			"vix_index":         contracts.UnavailableSnapshot("vix_index", "timeout exceeded", testTime),
		},
		Coverage:  contracts.Coverage{Requested: 2, Available: 1, Missing: []string{"vix_index"}},
		ModelHash: "0123456789abcdef0123456789abcdef0123456789abcdef0123456789abcdef",
	}
}

func TestNewReportRow_RoundTrip(t *testing.T) {
	original := sampleReport()

	row, err := newReportRow(original)
	require.NoError(t, err)
	assert.Equal(t, "bearish", row.Signal)
	require.NotNil(t, row.PulseScore)
	assert.Equal(t, -3.0, *row.PulseScore)

	var raw map[string]map[string]interface{}
	require.NoError(t, json.Unmarshal(row.Snapshots, &raw))
	assert.Equal(t, "unavailable", raw["vix_index"]["value"], "absence is never stored as zero")

	restored, err := row.toReport()
	require.NoError(t, err)
	assert.Equal(t, original.Composite.Value, restored.Composite.Value)
	assert.Equal(t, original.Signal, restored.Signal)
	assert.Equal(t, original.Liquidity, restored.Liquidity)
	assert.Equal(t, original.Pulse, restored.Pulse)
	assert.Equal(t, original.Coverage, restored.Coverage)
	assert.False(t, restored.Snapshots.Available("vix_index"))
	v, ok := restored.Snapshots.Value("fed_balance_sheet")
	assert.True(t, ok)
	assert.Equal(t, 7.5, v)
}

func TestNewReportRow_RejectsAlertsOnlyReport(t *testing.T) {
	r := sampleReport()
	r.Mode = contracts.ModeAlerts
	r.Composite = nil

	_, err := newReportRow(r)
	assert.Error(t, err)

	_, err = newReportRow(nil)
	assert.Error(t, err)
}

func TestCategoryRows_CanonicalOrder(t *testing.T) {
	rows := categoryRows(sampleReport().Composite)
	require.Len(t, rows, 5)

	for i, c := range contracts.Categories() {
		assert.Equal(t, c, rows[i].Category)
	}
	assert.Equal(t, 5, rows[0].Evaluated)
	assert.False(t, rows[0].Fallback)
	assert.True(t, rows[1].Fallback)
	assert.InDelta(t, 2.1, rows[0].Weighted, 1e-9)
}

func TestSummary_Full(t *testing.T) {
	cat, err := catalog.Load(filepath.Join("..", "..", "config", "catalog.yaml"))
	require.NoError(t, err)

	out := Summary(sampleReport(), cat)

	assert.Contains(t, out, "📅 报告日期: 2024-03-15")
	assert.Contains(t, out, "综合评分: 37.1 / 100 → 看跌")
	assert.Contains(t, out, "流动性状态: 枯竭 (评分: 7)\n")
	assert.Contains(t, out, "流动性脉冲: -3 (紧张)")
	assert.Contains(t, out, "monetary_policy: 50.0 × 0.25 = 12.50 (数据不足, 使用默认值)")
	assert.Contains(t, out, "Fed Total Assets: 7.50 trillions USD (变化: -0.60%)")
	assert.Contains(t, out, "CBOE Volatility Index: 数据不可用")
	assert.Contains(t, out, "[warning] ⚠️ 美联储资产负债表快速缩减")
	assert.Contains(t, out, "数据覆盖: 1/2 (50%) (缺失: vix_index)")
}

func TestSummary_NoDataReadingsAreMarked(t *testing.T) {
	r := sampleReport()
	r.Liquidity = &contracts.LiquidityAssessment{Score: 50, Status: contracts.LiquidityNeutral, Display: "中性", Fallback: true}
	r.Pulse = &contracts.PulseAssessment{Status: contracts.PulseUnavailable, Display: "数据不足", RulesFired: []string{}, RulesSkipped: []string{"m2_direction"}}

	out := Summary(r, nil)
	assert.Contains(t, out, "流动性状态: 中性 (评分: 50) (数据不足, 使用默认值)")
	assert.Contains(t, out, "流动性脉冲: 数据不可用")
	assert.NotContains(t, out, "偏紧")
}

func TestNewReportRow_UnavailablePulseHasNoScore(t *testing.T) {
	r := sampleReport()
	r.Pulse = &contracts.PulseAssessment{Status: contracts.PulseUnavailable, RulesFired: []string{}, RulesSkipped: []string{}}

	row, err := newReportRow(r)
	require.NoError(t, err)
	assert.Nil(t, row.PulseScore)

	restored, err := row.toReport()
	require.NoError(t, err)
	assert.False(t, restored.Pulse.Available())
	assert.Equal(t, contracts.PulseUnavailable, restored.Pulse.Status)
}

func TestSummary_AlertsOnly(t *testing.T) {
	r := &contracts.Report{
		Mode:     contracts.ModeAlerts,
		Alerts:   []contracts.Alert{},
		Coverage: contracts.Coverage{Requested: 3, Available: 3, Missing: []string{}},
	}
	out := Summary(r, nil)
	assert.Contains(t, out, "✅ 无异常警报")
	assert.Contains(t, out, "数据覆盖: 3/3 (100%)")

	r.Alerts = sampleReport().Alerts
	out = Summary(r, nil)
	assert.Contains(t, out, "🚨 实时警报")
	assert.NotContains(t, out, "✅")
}

func TestRepository_SaveAndGet(t *testing.T) {
	// Skip if DATABASE_URL is not set
	if os.Getenv("DATABASE_URL") == "" {
		t.Skip("DATABASE_URL not set, skipping integration test")
	}

	cfg, err := config.Load()
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	db, err := database.New(ctx, cfg.Database)
	require.NoError(t, err)
	defer db.Close()

	_, err = db.Migrate(ctx, filepath.Join("..", "..", "migrations"))
	require.NoError(t, err)

	repo := NewRepository(db.Pool)
	original := sampleReport()

	// 같은 날짜 재저장은 교체 (idempotent)
	require.NoError(t, repo.Save(ctx, original))
	require.NoError(t, repo.Save(ctx, original))

	got, err := repo.GetByDate(ctx, testTime)
	require.NoError(t, err)
	assert.Equal(t, original.Composite.Value, got.Composite.Value)
	assert.Equal(t, original.Composite.Contributions, got.Composite.Contributions)
	assert.Equal(t, original.Alerts, got.Alerts)
	assert.Equal(t, original.Liquidity, got.Liquidity)
	assert.Equal(t, original.ModelHash, got.ModelHash)

	_, err = repo.GetByDate(ctx, time.Date(1999, 1, 1, 0, 0, 0, 0, time.UTC))
	assert.ErrorIs(t, err, ErrNotFound)
}
