package contracts

import "strings"

// Category groups indicators into one weighted sub-score
// ⭐ SSOT: 카테고리 목록과 정렬 순서
type Category string

const (
	CategoryLiquidity       Category = "liquidity"
	CategoryMonetaryPolicy  Category = "monetary_policy"
	CategoryEconomicGrowth  Category = "economic_growth"
	CategoryMarketSentiment Category = "market_sentiment"
	CategoryCommodities     Category = "commodities"
)

// canonicalOrder is the fixed iteration order for every deterministic pass
var canonicalOrder = []Category{
	CategoryLiquidity,
	CategoryMonetaryPolicy,
	CategoryEconomicGrowth,
	CategoryMarketSentiment,
	CategoryCommodities,
}

// Categories returns all categories in canonical order
func Categories() []Category {
	out := make([]Category, len(canonicalOrder))
	copy(out, canonicalOrder)
	return out
}

// Valid reports whether c is a known category
func (c Category) Valid() bool {
	for _, k := range canonicalOrder {
		if c == k {
			return true
		}
	}
	return false
}

// Frequency is the release cadence of an indicator
type Frequency string

const (
	FrequencyDaily   Frequency = "daily"
	FrequencyWeekly  Frequency = "weekly"
	FrequencyMonthly Frequency = "monthly"
)

// Valid reports whether f is a known frequency
func (f Frequency) Valid() bool {
	switch f {
	case FrequencyDaily, FrequencyWeekly, FrequencyMonthly:
		return true
	}
	return false
}

// ChangeUnits selects how a provider derives the change of a series
type ChangeUnits string

const (
	ChangeAbsolute   ChangeUnits = "chg" // 전기 대비 절대 변화
	ChangePercent    ChangeUnits = "pch" // 전기 대비 % 변화
	ChangeYearOnYear ChangeUnits = "pc1" // 전년 동기 대비 % 변화
)

// Valid reports whether u is a known change transform
func (u ChangeUnits) Valid() bool {
	switch u {
	case ChangeAbsolute, ChangePercent, ChangeYearOnYear:
		return true
	}
	return false
}

// IndicatorDefinition describes one catalog entry
// ⭐ SSOT: 지표 정의 (카탈로그 로드 후 불변)
type IndicatorDefinition struct {
	Key         string      `json:"key" yaml:"key"`
	Name        string      `json:"name" yaml:"name"`
	Category    Category    `json:"category" yaml:"category"`
	Source      string      `json:"source" yaml:"source"` // provider:series (e.g. fred:WALCL)
	Frequency   Frequency   `json:"frequency" yaml:"frequency"`
	Unit        string      `json:"unit" yaml:"unit"`
	Scale       float64     `json:"scale" yaml:"scale"` // value/절대 변화에 곱함 (기본 1)
	ChangeUnits ChangeUnits `json:"change_units" yaml:"change_units"`
}

// Provider returns the provider part of the source identifier
func (d IndicatorDefinition) Provider() string {
	provider, _, _ := SplitSource(d.Source)
	return provider
}

// Series returns the series part of the source identifier
func (d IndicatorDefinition) Series() string {
	_, series, _ := SplitSource(d.Source)
	return series
}

// SplitSource splits "provider:series". Both parts must be non-empty.
func SplitSource(source string) (provider, series string, ok bool) {
	provider, series, found := strings.Cut(source, ":")
	if !found || provider == "" || series == "" {
		return "", "", false
	}
	return provider, series, true
}
