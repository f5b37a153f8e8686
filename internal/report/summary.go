package report

import (
	"fmt"
	"strings"

	"github.com/wonny/macropulse/internal/catalog"
	"github.com/wonny/macropulse/internal/contracts"
)

var categoryTitles = map[contracts.Category]string{
	contracts.CategoryLiquidity:       "💧 市场资金流动性",
	contracts.CategoryMonetaryPolicy:  "🏦 货币政策",
	contracts.CategoryEconomicGrowth:  "📈 经济增长",
	contracts.CategoryMarketSentiment: "🌡️ 市场情绪",
	contracts.CategoryCommodities:     "🛢️ 大宗商品",
}

// Summary renders a report as plain text. With a catalog, indicator readings
// are listed per category in catalog order.
func Summary(r *contracts.Report, cat *catalog.Catalog) string {
	var b strings.Builder

	if r.Mode == contracts.ModeAlerts {
		writeAlerts(&b, r.Alerts, "🚨 实时警报")
		if len(r.Alerts) == 0 {
			b.WriteString("✅ 无异常警报\n")
		}
		writeCoverage(&b, r)
		return b.String()
	}

	b.WriteString("📊 美股宏观指标每日报告\n")
	fmt.Fprintf(&b, "📅 报告日期: %s (生成 %s UTC)\n\n", r.Date.Format("2006-01-02"), r.GeneratedAt.UTC().Format("15:04"))

	if r.Composite != nil && r.Signal != nil {
		b.WriteString("🎯 综合投资信号\n")
		fmt.Fprintf(&b, "• 综合评分: %.1f / 100 → %s\n", r.Composite.Value, r.Signal.Display)
		fmt.Fprintf(&b, "• 建议: %s\n", r.Signal.Recommendation)
		for _, c := range r.Composite.Contributions {
			cs := r.Composite.CategoryScores[c.Category]
			line := fmt.Sprintf("  - %s: %.1f × %.2f = %.2f", c.Category, c.Score, c.Weight, c.Weighted)
			if cs.Fallback {
				line += " (数据不足, 使用默认值)"
			}
			b.WriteString(line + "\n")
		}
		b.WriteString("\n")
	}

	if r.Liquidity != nil {
		line := fmt.Sprintf("💧 流动性状态: %s (评分: %.0f)", r.Liquidity.Display, r.Liquidity.Score)
		if r.Liquidity.Fallback {
			line += " (数据不足, 使用默认值)"
		}
		b.WriteString(line + "\n")
		if r.Liquidity.Description != "" {
			fmt.Fprintf(&b, "  %s\n", r.Liquidity.Description)
		}
	}
	switch {
	case r.Pulse == nil:
	case !r.Pulse.Available():
		b.WriteString("🔄 流动性脉冲: 数据不可用\n")
	default:
		fmt.Fprintf(&b, "🔄 流动性脉冲: %+.0f (%s) %s\n", r.Pulse.Score, r.Pulse.Display, r.Pulse.Recommendation)
	}
	b.WriteString("\n")

	if cat != nil {
		for _, c := range contracts.Categories() {
			defs := cat.IndicatorsIn(c)
			if len(defs) == 0 {
				continue
			}
			b.WriteString(categoryTitles[c] + "\n")
			for _, def := range defs {
				b.WriteString("• " + indicatorLine(def, r.Snapshots[def.Key]) + "\n")
			}
			b.WriteString("\n")
		}
	}

	if len(r.Alerts) > 0 {
		writeAlerts(&b, r.Alerts, "⚠️ 风险警报")
		b.WriteString("\n")
	}

	writeCoverage(&b, r)
	return b.String()
}

func indicatorLine(def contracts.IndicatorDefinition, s contracts.Snapshot) string {
	if !s.Available() {
		return fmt.Sprintf("%s: 数据不可用", def.Name)
	}
	line := fmt.Sprintf("%s: %.2f", def.Name, s.Value.Number)
	if def.Unit != "" {
		line += " " + def.Unit
	}
	if s.Change != nil {
		suffix := ""
		if def.ChangeUnits != contracts.ChangeAbsolute {
			suffix = "%"
		}
		line += fmt.Sprintf(" (变化: %+.2f%s)", *s.Change, suffix)
	}
	if s.Label != "" {
		line += " [" + s.Label + "]"
	}
	return line
}

func writeAlerts(b *strings.Builder, alerts []contracts.Alert, title string) {
	if len(alerts) == 0 {
		return
	}
	b.WriteString(title + "\n")
	for _, a := range alerts {
		fmt.Fprintf(b, "• [%s] %s\n", a.Severity, a.Message)
	}
}

func writeCoverage(b *strings.Builder, r *contracts.Report) {
	fmt.Fprintf(b, "数据覆盖: %d/%d (%.0f%%)", r.Coverage.Available, r.Coverage.Requested, r.Coverage.Ratio()*100)
	if len(r.Coverage.Missing) > 0 {
		fmt.Fprintf(b, " (缺失: %s)", strings.Join(r.Coverage.Missing, ", "))
	}
	b.WriteString("\n")
}
