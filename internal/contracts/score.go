package contracts

import "time"

// CategoryScore is the 0-100 sub-score of one category
type CategoryScore struct {
	Category     Category `json:"category"`
	Score        float64  `json:"score"`
	RulesFired   []string `json:"rules_fired"`   // 적용된 규칙 ID (선언 순서)
	RulesSkipped []string `json:"rules_skipped"` // 데이터 부재로 건너뛴 규칙
	Evaluated    int      `json:"evaluated"`     // 입력이 확보된 규칙 수 (분기 불일치 포함)
	Fallback     bool     `json:"fallback"`      // 모든 규칙이 skip되어 fallback 사용
}

// Contribution is one category's weighted share of the composite
type Contribution struct {
	Category Category `json:"category"`
	Weight   float64  `json:"weight"`
	Score    float64  `json:"score"`
	Weighted float64  `json:"weighted"`
}

// CompositeScore is the weighted combination of category scores
// ⭐ SSOT: 종합 점수 (0~100)
type CompositeScore struct {
	Value          float64                    `json:"value"`
	Timestamp      time.Time                  `json:"timestamp"`
	CategoryScores map[Category]CategoryScore `json:"category_scores"`
	Contributions  []Contribution             `json:"contributions"` // canonical 순서
}

// SignalLabel is the discrete investment stance
type SignalLabel string

const (
	SignalBullish SignalLabel = "bullish"
	SignalNeutral SignalLabel = "neutral"
	SignalBearish SignalLabel = "bearish"
)

// Signal is the classification of a composite value
type Signal struct {
	Label          SignalLabel `json:"label"`
	Display        string      `json:"display"`
	Recommendation string      `json:"recommendation"`
}

// LiquidityStatus is the band of the liquidity category score
type LiquidityStatus string

const (
	LiquidityAbundant LiquidityStatus = "abundant"
	LiquidityNeutral  LiquidityStatus = "neutral"
	LiquidityTight    LiquidityStatus = "tight"
	LiquidityDepleted LiquidityStatus = "depleted"
)

// LiquidityAssessment is the liquidity score with its status band.
// Fallback is set when the score is the category fallback, not a reading.
type LiquidityAssessment struct {
	Score       float64         `json:"score"`
	Status      LiquidityStatus `json:"status"`
	Display     string          `json:"display"`
	Description string          `json:"description"`
	Fallback    bool            `json:"fallback"`
}

// PulseUnavailable is the pulse status when no pulse rule could be evaluated
const PulseUnavailable = "unavailable"

// PulseAssessment is the signed liquidity-delta reading.
// Reported next to the composite, never part of it.
type PulseAssessment struct {
	Score          float64  `json:"score"`
	Status         string   `json:"status"`
	Display        string   `json:"display"`
	Recommendation string   `json:"recommendation"`
	Evaluated      int      `json:"evaluated"` // 평가된 규칙 수 (0 = 데이터 없음)
	RulesFired     []string `json:"rules_fired"`
	RulesSkipped   []string `json:"rules_skipped"`
}

// Available reports whether at least one pulse input was evaluated
func (p PulseAssessment) Available() bool {
	return p.Evaluated > 0
}
