package modelconfig

import "github.com/wonny/macropulse/internal/contracts"

// Config is the full scoring and alerting model
// 주의: map 대신 struct 사용 (Hash 재현성)
type Config struct {
	Meta       Meta            `yaml:"meta" json:"meta"`
	Weights    Weights         `yaml:"weights" json:"weights"`
	Categories Categories      `yaml:"categories" json:"categories"`
	Levels     []LevelRule     `yaml:"levels" json:"levels"`
	Signal     SignalConfig    `yaml:"signal" json:"signal"`
	Liquidity  LiquidityConfig `yaml:"liquidity" json:"liquidity"`
	Pulse      PulseConfig     `yaml:"pulse" json:"pulse"`
	Alerts     []AlertRule     `yaml:"alerts" json:"alerts"`
}

// Meta 모델 식별 정보
type Meta struct {
	ModelID string `yaml:"model_id" json:"model_id"`
	Version string `yaml:"version" json:"version"`
}

// Weights composite 가중치 (합 = 1.0)
type Weights struct {
	Liquidity       float64 `yaml:"liquidity" json:"liquidity"`
	MonetaryPolicy  float64 `yaml:"monetary_policy" json:"monetary_policy"`
	EconomicGrowth  float64 `yaml:"economic_growth" json:"economic_growth"`
	MarketSentiment float64 `yaml:"market_sentiment" json:"market_sentiment"`
	Commodities     float64 `yaml:"commodities" json:"commodities"`
}

// For returns the weight of a category
func (w Weights) For(c contracts.Category) float64 {
	switch c {
	case contracts.CategoryLiquidity:
		return w.Liquidity
	case contracts.CategoryMonetaryPolicy:
		return w.MonetaryPolicy
	case contracts.CategoryEconomicGrowth:
		return w.EconomicGrowth
	case contracts.CategoryMarketSentiment:
		return w.MarketSentiment
	case contracts.CategoryCommodities:
		return w.Commodities
	}
	return 0
}

// Sum adds the weights in canonical category order
func (w Weights) Sum() float64 {
	var sum float64
	for _, c := range contracts.Categories() {
		sum += w.For(c)
	}
	return sum
}

// Categories per-category scoring configuration
type Categories struct {
	Liquidity       CategoryConfig `yaml:"liquidity" json:"liquidity"`
	MonetaryPolicy  CategoryConfig `yaml:"monetary_policy" json:"monetary_policy"`
	EconomicGrowth  CategoryConfig `yaml:"economic_growth" json:"economic_growth"`
	MarketSentiment CategoryConfig `yaml:"market_sentiment" json:"market_sentiment"`
	Commodities     CategoryConfig `yaml:"commodities" json:"commodities"`
}

// For returns the configuration of a category
func (c Categories) For(cat contracts.Category) CategoryConfig {
	switch cat {
	case contracts.CategoryLiquidity:
		return c.Liquidity
	case contracts.CategoryMonetaryPolicy:
		return c.MonetaryPolicy
	case contracts.CategoryEconomicGrowth:
		return c.EconomicGrowth
	case contracts.CategoryMarketSentiment:
		return c.MarketSentiment
	case contracts.CategoryCommodities:
		return c.Commodities
	}
	return CategoryConfig{}
}

// CategoryConfig baseline-then-adjust 규칙 집합
type CategoryConfig struct {
	Baseline float64  `yaml:"baseline" json:"baseline"`
	Bounds   Bounds   `yaml:"bounds" json:"bounds"`
	Fallback *float64 `yaml:"fallback" json:"fallback"` // nil: fallback 없음 (평가 규칙 0개면 에러)
	Rules    []Rule   `yaml:"rules" json:"rules"`
}

// Bounds clamps a score. A nil side is unbounded.
type Bounds struct {
	Min *float64 `yaml:"min" json:"min"`
	Max *float64 `yaml:"max" json:"max"`
}

// Clamp applies the bounds to v
func (b Bounds) Clamp(v float64) float64 {
	if b.Min != nil && v < *b.Min {
		return *b.Min
	}
	if b.Max != nil && v > *b.Max {
		return *b.Max
	}
	return v
}

// Operand fields
const (
	FieldValue  = "value"
	FieldChange = "change"
	FieldLabel  = "label"
)

// Operand selects one reading from the snapshot set
type Operand struct {
	Indicator string   `yaml:"indicator" json:"indicator"`
	Field     string   `yaml:"field" json:"field"`                     // value | change | label (기본 value)
	Minus     *Operand `yaml:"minus,omitempty" json:"minus,omitempty"` // 지표 간 스프레드
	Abs       bool     `yaml:"abs,omitempty" json:"abs,omitempty"`
}

// FieldOrDefault returns Field, defaulting to value
func (o Operand) FieldOrDefault() string {
	if o.Field == "" {
		return FieldValue
	}
	return o.Field
}

// Indicators lists every indicator the operand reads, in reference order
func (o Operand) Indicators() []string {
	keys := []string{o.Indicator}
	if o.Minus != nil {
		keys = append(keys, o.Minus.Indicators()...)
	}
	return keys
}

// Comparison operators
const (
	OpGT  = "gt"
	OpGTE = "gte"
	OpLT  = "lt"
	OpLTE = "lte"
	OpEQ  = "eq"
	OpNE  = "ne"
)

// Rule adjusts a running score by the delta of its first matching branch
type Rule struct {
	ID       string   `yaml:"id" json:"id"`
	Operand  Operand  `yaml:",inline" json:"operand"`
	Branches []Branch `yaml:"branches" json:"branches"`
}

// Branch is one comparison and its score delta
type Branch struct {
	Op        string   `yaml:"op" json:"op"`
	Threshold *float64 `yaml:"threshold,omitempty" json:"threshold,omitempty"`
	Label     string   `yaml:"label,omitempty" json:"label,omitempty"`
	Delta     float64  `yaml:"delta" json:"delta"`
}

// LevelRule derives a qualitative label from a numeric field
// (예: SOFR 일간 변화 → 레포 압력 高/中等/低)
type LevelRule struct {
	Indicator string      `yaml:"indicator" json:"indicator"`
	Field     string      `yaml:"field" json:"field"` // value | change
	Bands     []LevelBand `yaml:"bands" json:"bands"` // high→low, 마지막은 catch-all
}

// LevelBand labels readings >= Min. A nil Min matches everything.
type LevelBand struct {
	Label string   `yaml:"label" json:"label"`
	Min   *float64 `yaml:"min" json:"min"`
}

// SignalConfig composite → 투자 시그널 밴드
type SignalConfig struct {
	Bands []SignalBand `yaml:"bands" json:"bands"` // high→low, 마지막은 catch-all
}

// SignalBand one signal band
type SignalBand struct {
	Label          contracts.SignalLabel `yaml:"label" json:"label"`
	Display        string                `yaml:"display" json:"display"`
	Min            *float64              `yaml:"min" json:"min"`
	Recommendation string                `yaml:"recommendation" json:"recommendation"`
}

// LiquidityConfig 유동성 점수 → 상태 밴드
type LiquidityConfig struct {
	Bands []LiquidityBand `yaml:"bands" json:"bands"`
}

// LiquidityBand one liquidity status band
type LiquidityBand struct {
	Status      contracts.LiquidityStatus `yaml:"status" json:"status"`
	Display     string                    `yaml:"display" json:"display"`
	Min         *float64                  `yaml:"min" json:"min"`
	Description string                    `yaml:"description" json:"description"`
}

// PulseConfig signed liquidity delta (baseline 0, 무한대 범위)
type PulseConfig struct {
	Baseline float64     `yaml:"baseline" json:"baseline"`
	Rules    []Rule      `yaml:"rules" json:"rules"`
	Bands    []PulseBand `yaml:"bands" json:"bands"`
}

// PulseBand one pulse status band
type PulseBand struct {
	Status         string   `yaml:"status" json:"status"`
	Display        string   `yaml:"display" json:"display"`
	Min            *float64 `yaml:"min" json:"min"`
	Recommendation string   `yaml:"recommendation" json:"recommendation"`
}

// Alert condition combinators
const (
	MatchAny = "any"
	MatchAll = "all"
)

// AlertRule one risk-threshold rule
type AlertRule struct {
	ID         string      `yaml:"id" json:"id"`
	Severity   string      `yaml:"severity" json:"severity"`   // warning | critical
	Indicator  string      `yaml:"indicator" json:"indicator"` // triggering indicator
	Match      string      `yaml:"match" json:"match"`         // any | all (기본 any)
	Conditions []Condition `yaml:"conditions" json:"conditions"`
	Message    string      `yaml:"message" json:"message"` // text/template
}

// MatchOrDefault returns Match, defaulting to any
func (a AlertRule) MatchOrDefault() string {
	if a.Match == "" {
		return MatchAny
	}
	return a.Match
}

// RequiredIndicators lists the distinct indicators read by the conditions,
// in first-reference order
func (a AlertRule) RequiredIndicators() []string {
	seen := make(map[string]bool)
	var keys []string
	for _, cond := range a.Conditions {
		for _, k := range cond.Operand.Indicators() {
			if !seen[k] {
				seen[k] = true
				keys = append(keys, k)
			}
		}
	}
	return keys
}

// Condition compares one operand against a threshold or label
type Condition struct {
	Operand   Operand  `yaml:",inline" json:"operand"`
	Op        string   `yaml:"op" json:"op"`
	Threshold *float64 `yaml:"threshold,omitempty" json:"threshold,omitempty"`
	Label     string   `yaml:"label,omitempty" json:"label,omitempty"`
}
