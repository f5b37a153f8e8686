package scoring

import (
	"github.com/wonny/macropulse/internal/contracts"
	"github.com/wonny/macropulse/internal/modelconfig"
)

// ClassifyLiquidity maps the liquidity category score to its status band.
// Bands are evaluated high→low with >=; the last band catches the rest.
// A fallback category score stays flagged as fallback.
func ClassifyLiquidity(cs contracts.CategoryScore, cfg modelconfig.LiquidityConfig) contracts.LiquidityAssessment {
	for _, b := range cfg.Bands {
		if b.Min == nil || cs.Score >= *b.Min {
			return contracts.LiquidityAssessment{
				Score:       cs.Score,
				Status:      b.Status,
				Display:     b.Display,
				Description: b.Description,
				Fallback:    cs.Fallback,
			}
		}
	}
	// validate 통과한 설정에서는 도달 불가
	return contracts.LiquidityAssessment{Score: cs.Score, Status: contracts.LiquidityDepleted, Fallback: cs.Fallback}
}

// Pulse runs the signed liquidity-delta analyzer: baseline (0), unbounded,
// each available input nudging the score by its first matching branch.
// With no evaluated input the status is PulseUnavailable, never a band.
func (s *Scorer) Pulse(snaps contracts.SnapshotSet) contracts.PulseAssessment {
	pc := s.model.Pulse
	out := s.apply("pulse", pc.Baseline, pc.Rules, snaps)

	pa := contracts.PulseAssessment{
		Score:        out.score,
		Evaluated:    out.evaluated,
		RulesFired:   out.fired,
		RulesSkipped: out.skipped,
	}

	// 입력 전무 → baseline을 실측값처럼 분류하지 않음
	if out.evaluated == 0 {
		pa.Status = contracts.PulseUnavailable
		pa.Display = "数据不足"
		s.logger.Warn("No pulse input available, pulse unavailable")
		return pa
	}
	for _, b := range pc.Bands {
		if b.Min == nil || out.score >= *b.Min {
			pa.Status = b.Status
			pa.Display = b.Display
			pa.Recommendation = b.Recommendation
			break
		}
	}
	return pa
}
