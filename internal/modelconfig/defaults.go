package modelconfig

import "github.com/wonny/macropulse/internal/contracts"

func f(v float64) *float64 { return &v }

func when(op string, threshold, delta float64) Branch {
	return Branch{Op: op, Threshold: f(threshold), Delta: delta}
}

func labeled(label string, delta float64) Branch {
	return Branch{Op: OpEQ, Label: label, Delta: delta}
}

func bounded(baseline float64, rules ...Rule) CategoryConfig {
	return CategoryConfig{
		Baseline: baseline,
		Bounds:   Bounds{Min: f(0), Max: f(100)},
		Fallback: f(50), // 중립 기준점
		Rules:    rules,
	}
}

// Default returns the built-in model
// ⭐ SSOT: config/model.yaml 은 이 값의 미러
func Default() *Config {
	return &Config{
		Meta: Meta{ModelID: "us_macro_liquidity", Version: "1.0.0"},
		Weights: Weights{
			Liquidity:       0.30,
			MonetaryPolicy:  0.25,
			EconomicGrowth:  0.25,
			MarketSentiment: 0.15,
			Commodities:     0.05,
		},
		Categories: Categories{
			// 순서 고정: 연준 B/S → M2 → 레포 → ETF → 신용잔고
			Liquidity: bounded(50,
				Rule{ID: "fed_balance_sheet_trend", Operand: Operand{Indicator: "fed_balance_sheet", Field: FieldChange},
					Branches: []Branch{when(OpGT, 0, 10), when(OpLT, 0, -8)}},
				Rule{ID: "m2_yoy", Operand: Operand{Indicator: "m2_money_supply", Field: FieldChange},
					Branches: []Branch{when(OpGT, 0, 8), when(OpLT, -2, -10)}},
				Rule{ID: "repo_stress", Operand: Operand{Indicator: "repo_market", Field: FieldLabel},
					Branches: []Branch{labeled("低", 5), labeled("高", -12)}},
				Rule{ID: "etf_flow_direction", Operand: Operand{Indicator: "etf_net_flow", Field: FieldLabel},
					Branches: []Branch{labeled("正向", 7), labeled("负向", -5)}},
				Rule{ID: "margin_debt_risk", Operand: Operand{Indicator: "margin_debt", Field: FieldLabel},
					Branches: []Branch{labeled("低", 5), labeled("高", -8)}},
			),
			MonetaryPolicy: bounded(50,
				Rule{ID: "fed_funds_trend", Operand: Operand{Indicator: "federal_funds_rate", Field: FieldChange},
					Branches: []Branch{when(OpGT, 0, -8), when(OpLT, 0, 8)}},
				Rule{ID: "long_rate_level", Operand: Operand{Indicator: "treasury_10y"},
					Branches: []Branch{when(OpGT, 5.0, -10), when(OpGT, 4.5, -5), when(OpLT, 3.0, 5)}},
				Rule{ID: "yield_curve_shape", Operand: Operand{Indicator: "yield_curve_2s10s"},
					Branches: []Branch{when(OpLT, 0, -10), when(OpGT, 1.0, 5)}},
				Rule{ID: "dollar_trend", Operand: Operand{Indicator: "dxy_index", Field: FieldChange},
					Branches: []Branch{when(OpGT, 1.0, -5), when(OpLT, -1.0, 5)}},
			),
			EconomicGrowth: bounded(50,
				Rule{ID: "gdp_growth", Operand: Operand{Indicator: "gdp_us", Field: FieldChange},
					Branches: []Branch{when(OpGT, 2.5, 10), when(OpGT, 1.0, 5), when(OpLT, 0, -15)}},
				Rule{ID: "unemployment_level", Operand: Operand{Indicator: "unemployment_rate"},
					Branches: []Branch{when(OpLT, 4.0, 8), when(OpGT, 5.5, -10)}},
				Rule{ID: "unemployment_trend", Operand: Operand{Indicator: "unemployment_rate", Field: FieldChange},
					Branches: []Branch{when(OpGT, 0.3, -8), when(OpLT, 0, 3)}},
				Rule{ID: "payrolls_momentum", Operand: Operand{Indicator: "nonfarm_payrolls", Field: FieldChange},
					Branches: []Branch{when(OpGT, 200, 7), when(OpLT, 0, -10)}},
				Rule{ID: "inflation_pressure", Operand: Operand{Indicator: "cpi_us", Field: FieldChange},
					Branches: []Branch{when(OpGT, 4.0, -10), when(OpGT, 3.0, -5), when(OpLTE, 2.5, 5)}},
			),
			MarketSentiment: bounded(50,
				Rule{ID: "vix_level", Operand: Operand{Indicator: "vix_index"},
					Branches: []Branch{when(OpGT, 30, -15), when(OpGT, 20, -5), when(OpLT, 15, 8)}},
				Rule{ID: "vix_spike", Operand: Operand{Indicator: "vix_index", Field: FieldChange},
					Branches: []Branch{when(OpGT, 5, -5)}},
				Rule{ID: "credit_spread", Operand: Operand{Indicator: "high_yield_spread"},
					Branches: []Branch{when(OpGT, 5, -12), when(OpLT, 3.5, 6)}},
				Rule{ID: "put_call_skew", Operand: Operand{Indicator: "put_call_ratio"},
					Branches: []Branch{when(OpGT, 1.0, -5), when(OpLT, 0.7, 3)}},
			),
			Commodities: bounded(50,
				Rule{ID: "oil_level", Operand: Operand{Indicator: "wti_oil"},
					Branches: []Branch{when(OpGT, 100, -10), when(OpGT, 85, -5), when(OpGTE, 60, 5), when(OpLT, 50, -5)}},
				Rule{ID: "gold_trend", Operand: Operand{Indicator: "gold_price", Field: FieldChange},
					Branches: []Branch{when(OpGT, 3, -5), when(OpLT, -3, 3)}},
			),
		},
		Levels: []LevelRule{
			{Indicator: "repo_market", Field: FieldChange, Bands: []LevelBand{
				{Label: "高", Min: f(0.25)},
				{Label: "中等", Min: f(0.10)},
				{Label: "低"},
			}},
			{Indicator: "etf_net_flow", Field: FieldValue, Bands: []LevelBand{
				{Label: "正向", Min: f(0)},
				{Label: "负向"},
			}},
			{Indicator: "margin_debt", Field: FieldValue, Bands: []LevelBand{
				{Label: "高", Min: f(700)},
				{Label: "中等", Min: f(550)},
				{Label: "低"},
			}},
		},
		Signal: SignalConfig{Bands: []SignalBand{
			{Label: contracts.SignalBullish, Display: "看涨", Min: f(65), Recommendation: "增加股票仓位，关注成长股"},
			{Label: contracts.SignalNeutral, Display: "中性", Min: f(45), Recommendation: "维持现有仓位，精选个股"},
			{Label: contracts.SignalBearish, Display: "看跌", Recommendation: "降低股票仓位，增加现金和债券"},
		}},
		Liquidity: LiquidityConfig{Bands: []LiquidityBand{
			{Status: contracts.LiquidityAbundant, Display: "充裕", Min: f(70), Description: "市场资金流动性充足，有利于风险资产"},
			{Status: contracts.LiquidityNeutral, Display: "中性", Min: f(50), Description: "市场资金流动性适中，需关注变化趋势"},
			{Status: contracts.LiquidityTight, Display: "紧张", Min: f(30), Description: "市场资金流动性偏紧，可能压制风险偏好"},
			{Status: contracts.LiquidityDepleted, Display: "枯竭", Description: "市场资金流动性严重不足，高风险环境"},
		}},
		Pulse: PulseConfig{
			Baseline: 0,
			Rules: []Rule{
				{ID: "m2_direction", Operand: Operand{Indicator: "m2_money_supply", Field: FieldChange},
					Branches: []Branch{when(OpGT, 0, 1), when(OpLTE, 0, -1)}},
				{ID: "fed_balance_sheet_direction", Operand: Operand{Indicator: "fed_balance_sheet", Field: FieldChange},
					Branches: []Branch{when(OpLT, 0, -1), when(OpGTE, 0, 1)}},
				{ID: "ted_spread", Operand: Operand{Indicator: "ted_spread"},
					Branches: []Branch{when(OpGT, 0.5, -2), when(OpGT, 0.3, -1), when(OpLTE, 0.3, 1)}},
				{ID: "commercial_paper_spread", Operand: Operand{Indicator: "commercial_paper", Minus: &Operand{Indicator: "treasury_3m"}},
					Branches: []Branch{when(OpGT, 1.0, -1), when(OpLTE, 1.0, 1)}},
				{ID: "reverse_repo_level", Operand: Operand{Indicator: "reverse_repo"},
					Branches: []Branch{when(OpGT, 2000, -1), when(OpLTE, 2000, 1)}},
			},
			Bands: []PulseBand{
				{Status: "abundant", Display: "充裕", Min: f(3), Recommendation: "📈 流动性充裕，可适当增加风险资产配置，关注成长股和小盘股"},
				{Status: "moderate", Display: "适中", Min: f(1), Recommendation: "📊 流动性适中，维持均衡配置，关注盈利确定性强的优质公司"},
				{Status: "tightening", Display: "偏紧", Min: f(-1), Recommendation: "⚠️ 流动性偏紧，降低仓位至60-70%，增加现金和防御性资产"},
				{Status: "tight", Display: "紧张", Recommendation: "📉 流动性紧张，大幅降低风险敞口至40%以下，重点关注高股息和必需消费品"},
			},
		},
		Alerts: []AlertRule{
			{ID: "fed_balance_sheet_contraction", Severity: "warning", Indicator: "fed_balance_sheet",
				Conditions: []Condition{{Operand: Operand{Indicator: "fed_balance_sheet", Field: FieldChange}, Op: OpLT, Threshold: f(-0.5)}},
				Message:    "⚠️ 美联储资产负债表快速缩减 ({{num .Value}}%)，市场流动性承压"},
			{ID: "m2_contraction", Severity: "warning", Indicator: "m2_money_supply",
				Conditions: []Condition{{Operand: Operand{Indicator: "m2_money_supply", Field: FieldChange}, Op: OpLT, Threshold: f(-3)}},
				Message:    "⚠️ M2货币供应量同比收缩 {{num .Value}}% (阈值 {{num .Threshold}}%)，流动性紧张风险上升"},
			{ID: "repo_market_stress", Severity: "warning", Indicator: "repo_market",
				Conditions: []Condition{{Operand: Operand{Indicator: "repo_market", Field: FieldLabel}, Op: OpEQ, Label: "高"}},
				Message:    "⚠️ 回购市场压力{{.Label}}，短期融资成本上升"},
			{ID: "equity_etf_outflow", Severity: "warning", Indicator: "etf_net_flow", Match: MatchAll,
				Conditions: []Condition{
					{Operand: Operand{Indicator: "etf_net_flow", Field: FieldLabel}, Op: OpEQ, Label: "负向"},
					{Operand: Operand{Indicator: "etf_net_flow", Abs: true}, Op: OpGT, Threshold: f(5)},
				},
				Message: "⚠️ 股票ETF资金大幅流出 (流出规模 {{num .Value}})，风险偏好下降"},
			{ID: "repo_rate_spike", Severity: "critical", Indicator: "repo_market",
				Conditions: []Condition{
					{Operand: Operand{Indicator: "repo_market"}, Op: OpGT, Threshold: f(6.0)},
					{Operand: Operand{Indicator: "repo_market", Field: FieldChange}, Op: OpGT, Threshold: f(0.5)},
				},
				Message: "🚨 回购市场利率飙升 ({{num .Value}} > {{num .Threshold}})，短期流动性出现压力"},
			{ID: "commercial_paper_spread", Severity: "critical", Indicator: "commercial_paper",
				Conditions: []Condition{{Operand: Operand{Indicator: "commercial_paper", Minus: &Operand{Indicator: "treasury_10y"}}, Op: OpGT, Threshold: f(2.0)}},
				Message:    "🚨 商业票据与国债利差扩大至 {{num .Value}}，信用市场流动性紧张"},
			{ID: "vix_spike", Severity: "critical", Indicator: "vix_index",
				Conditions: []Condition{
					{Operand: Operand{Indicator: "vix_index"}, Op: OpGT, Threshold: f(30)},
					{Operand: Operand{Indicator: "vix_index", Field: FieldChange}, Op: OpGT, Threshold: f(5)},
				},
				Message: "🚨 VIX恐慌指数激增 ({{num .Value}})，市场波动性急剧上升"},
			{ID: "high_yield_spread", Severity: "critical", Indicator: "high_yield_spread",
				Conditions: []Condition{{Operand: Operand{Indicator: "high_yield_spread"}, Op: OpGT, Threshold: f(5)}},
				Message:    "🚨 高收益债利差 {{num .Value}}% 超过 {{num .Threshold}}%，信用风险上升"},
			{ID: "yield_curve_inversion", Severity: "critical", Indicator: "yield_curve_2s10s",
				Conditions: []Condition{{Operand: Operand{Indicator: "yield_curve_2s10s"}, Op: OpLT, Threshold: f(-1)}},
				Message:    "🚨 2年-10年收益率曲线倒挂 {{num .Value}}，衰退风险高"},
			{ID: "margin_debt_leverage", Severity: "warning", Indicator: "margin_debt",
				Conditions: []Condition{{Operand: Operand{Indicator: "margin_debt"}, Op: OpGT, Threshold: f(700)}},
				Message:    "⚠️ 保证金债务 {{num .Value}} 十亿美元超过阈值，杠杆风险增加"},
		},
	}
}
