package alerting

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/macropulse/internal/contracts"
	"github.com/wonny/macropulse/internal/modelconfig"
)

var testTime = time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)

func ptr(v float64) *float64 { return &v }

func available(key string, value float64, change *float64, label string) contracts.Snapshot {
	return contracts.Snapshot{Key: key, Value: contracts.Available(value), Change: change, Label: label, Timestamp: testTime}
}

func defaultRules(t *testing.T) []Rule {
	t.Helper()
	model := modelconfig.Default()
	ruleset, err := BuildRules(model.Alerts, model.Levels)
	require.NoError(t, err)
	return ruleset
}

func ruleIDs(alerts []contracts.Alert) []string {
	ids := make([]string, len(alerts))
	for i, a := range alerts {
		ids[i] = a.RuleID
	}
	return ids
}

func stressSnapshots() contracts.SnapshotSet {
	return contracts.SnapshotSet{
		"fed_balance_sheet": available("fed_balance_sheet", 7.5, ptr(-0.6), ""),
		"m2_money_supply":   available("m2_money_supply", 20800, ptr(-3.5), ""),
		"repo_market":       available("repo_market", 5.3, nil, "高"),
		"etf_net_flow":      available("etf_net_flow", -2, nil, "负向"),
		"margin_debt":       available("margin_debt", 760, nil, "高"),
	}
}

func TestEvaluate_StressScenario(t *testing.T) {
	alerts := Evaluate(stressSnapshots(), defaultRules(t))

	assert.Equal(t, []string{
		"fed_balance_sheet_contraction",
		"m2_contraction",
		"repo_market_stress",
		"margin_debt_leverage",
	}, ruleIDs(alerts))

	assert.Equal(t, contracts.SeverityWarning, alerts[0].Severity)
	assert.Equal(t, "fed_balance_sheet", alerts[0].TriggeringIndicator)
	assert.Equal(t, "⚠️ 美联储资产负债表快速缩减 (-0.60%)，市场流动性承压", alerts[0].Message)
	assert.Equal(t, "⚠️ M2货币供应量同比收缩 -3.50% (阈值 -3.00%)，流动性紧张风险上升", alerts[1].Message)
	assert.Equal(t, "⚠️ 回购市场压力高，短期融资成本上升", alerts[2].Message)
}

func TestEvaluate_OutflowReportedAsMagnitude(t *testing.T) {
	snaps := contracts.SnapshotSet{
		"etf_net_flow": available("etf_net_flow", -6, nil, "负向"),
	}
	alerts := Evaluate(snaps, defaultRules(t))

	require.Equal(t, []string{"equity_etf_outflow"}, ruleIDs(alerts))
	assert.Equal(t, "⚠️ 股票ETF资金大幅流出 (流出规模 6.00)，风险偏好下降", alerts[0].Message)
}

func TestEvaluate_NothingFiresOnCalmData(t *testing.T) {
	snaps := contracts.SnapshotSet{
		"fed_balance_sheet": available("fed_balance_sheet", 7.5, ptr(0.1), ""),
		"m2_money_supply":   available("m2_money_supply", 21000, ptr(2.0), ""),
		"repo_market":       available("repo_market", 5.3, ptr(0.01), ""),
		"vix_index":         available("vix_index", 14, ptr(-0.5), ""),
		"high_yield_spread": available("high_yield_spread", 3.2, nil, ""),
	}
	assert.Empty(t, Evaluate(snaps, defaultRules(t)))
}

func TestEvaluate_AnyConditions(t *testing.T) {
	ruleset := defaultRules(t)

	// 금리 수준은 정상, 일간 변화만 급등
	alerts := Evaluate(contracts.SnapshotSet{
		"repo_market": available("repo_market", 5.3, ptr(0.6), ""),
	}, ruleset)
	assert.Equal(t, []string{"repo_market_stress", "repo_rate_spike"}, ruleIDs(alerts), "change 0.6 also bands as 高")
	assert.Equal(t, contracts.SeverityCritical, alerts[1].Severity)
	assert.Contains(t, alerts[1].Message, "0.60 > 0.50")

	alerts = Evaluate(contracts.SnapshotSet{
		"vix_index": available("vix_index", 35, nil, ""),
	}, ruleset)
	assert.Equal(t, []string{"vix_spike"}, ruleIDs(alerts))
}

func TestEvaluate_AllConditions(t *testing.T) {
	ruleset := defaultRules(t)

	// 负向 + |flow| > 5 → 발동
	alerts := Evaluate(contracts.SnapshotSet{
		"etf_net_flow": available("etf_net_flow", -7.5, nil, ""),
	}, ruleset)
	assert.Equal(t, []string{"equity_etf_outflow"}, ruleIDs(alerts))
	assert.Contains(t, alerts[0].Message, "7.50")

	// 负向 이지만 규모 작음 → 미발동
	alerts = Evaluate(contracts.SnapshotSet{
		"etf_net_flow": available("etf_net_flow", -3, nil, ""),
	}, ruleset)
	assert.Empty(t, alerts)

	// 규모 크지만 유입 → 미발동
	alerts = Evaluate(contracts.SnapshotSet{
		"etf_net_flow": available("etf_net_flow", 9, nil, ""),
	}, ruleset)
	assert.Empty(t, alerts)
}

func TestEvaluate_CrossIndicatorSpread(t *testing.T) {
	ruleset := defaultRules(t)
	snaps := contracts.SnapshotSet{
		"commercial_paper": available("commercial_paper", 6.6, nil, ""),
		"treasury_10y":     available("treasury_10y", 4.2, nil, ""),
	}

	alerts := Evaluate(snaps, ruleset)
	require.Equal(t, []string{"commercial_paper_spread"}, ruleIDs(alerts))
	assert.Contains(t, alerts[0].Message, "2.40")

	// 10년물 부재 → 0으로 대체하지 않고 skip
	snaps["treasury_10y"] = contracts.UnavailableSnapshot("treasury_10y", "no data", testTime)
	assert.Empty(t, Evaluate(snaps, ruleset))
}

func TestEvaluate_RequiresAllIndicators(t *testing.T) {
	snaps := stressSnapshots()
	snaps["fed_balance_sheet"] = contracts.UnavailableSnapshot("fed_balance_sheet", "timeout", testTime)

	alerts := Evaluate(snaps, defaultRules(t))
	assert.NotContains(t, ruleIDs(alerts), "fed_balance_sheet_contraction")
	assert.Contains(t, ruleIDs(alerts), "m2_contraction")
}

func TestEvaluate_DeterministicAndIdempotent(t *testing.T) {
	ruleset := defaultRules(t)
	base := stressSnapshots()
	base["vix_index"] = available("vix_index", 42, ptr(9), "")
	base["yield_curve_2s10s"] = available("yield_curve_2s10s", -1.2, nil, "")
	base["high_yield_spread"] = available("high_yield_spread", 6.1, nil, "")

	first := Evaluate(base, ruleset)
	require.NotEmpty(t, first)

	for i := 0; i < 100; i++ {
		// 삽입 순서를 바꿔 새 map 구성
		rebuilt := contracts.SnapshotSet{}
		keys := []string{"yield_curve_2s10s", "margin_debt", "vix_index", "etf_net_flow", "high_yield_spread", "repo_market", "m2_money_supply", "fed_balance_sheet"}
		if i%2 == 1 {
			for l, r := 0, len(keys)-1; l < r; l, r = l+1, r-1 {
				keys[l], keys[r] = keys[r], keys[l]
			}
		}
		for _, k := range keys {
			rebuilt[k] = base[k]
		}
		assert.Equal(t, first, Evaluate(rebuilt, ruleset))
	}
}

func TestBuildRules_TemplateErrors(t *testing.T) {
	tests := []struct {
		name    string
		message string
	}{
		{"parse error", "{{.Value"},
		{"unknown field", "{{.Nope}}"},
		{"unknown func", "{{pct .Value}}"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := modelconfig.Default().Alerts
			cfg[0].Message = tt.message

			_, err := BuildRules(cfg, nil)
			require.Error(t, err)

			var cfgErr *contracts.ConfigError
			require.ErrorAs(t, err, &cfgErr)
			assert.Equal(t, "alerts[0].message", cfgErr.Field)
		})
	}
}

func TestBuildRules_RequiredIndicators(t *testing.T) {
	ruleset := defaultRules(t)
	for _, r := range ruleset {
		if r.ID == "commercial_paper_spread" {
			assert.Equal(t, []string{"commercial_paper", "treasury_10y"}, r.Required)
			return
		}
	}
	t.Fatal("commercial_paper_spread rule not built")
}
