package scoring

import (
	"github.com/wonny/macropulse/internal/contracts"
	"github.com/wonny/macropulse/internal/modelconfig"
	"github.com/wonny/macropulse/internal/rules"
	"github.com/wonny/macropulse/pkg/logger"
)

// Scorer maps snapshots to per-category sub-scores
// ⭐ SSOT: 카테고리 점수 계산은 여기서만 (순수 함수, I/O 없음)
type Scorer struct {
	model    *modelconfig.Config
	resolver *rules.Resolver
	logger   *logger.Logger
}

// NewScorer creates a scorer for a validated model
func NewScorer(model *modelconfig.Config, log *logger.Logger) *Scorer {
	return &Scorer{
		model:    model,
		resolver: rules.NewResolver(model.Levels),
		logger:   log.WithComponent("scoring"),
	}
}

// outcome is the result of running a rule list
type outcome struct {
	score     float64
	fired     []string
	skipped   []string
	evaluated int
}

// Score evaluates one category: baseline, then each rule's first matching
// branch in declared order, then clamp. Unavailable inputs skip the rule.
func (s *Scorer) Score(category contracts.Category, snaps contracts.SnapshotSet) contracts.CategoryScore {
	cc := s.model.Categories.For(category)
	out := s.apply(string(category), cc.Baseline, cc.Rules, snaps)

	cs := contracts.CategoryScore{
		Category:     category,
		Score:        cc.Bounds.Clamp(out.score),
		RulesFired:   out.fired,
		RulesSkipped: out.skipped,
		Evaluated:    out.evaluated,
	}

	// 모든 입력 부재 → 명시적 fallback (암묵적 0 금지)
	if out.evaluated == 0 && cc.Fallback != nil {
		cs.Score = *cc.Fallback
		cs.Fallback = true
		s.logger.WithFields(map[string]interface{}{
			"category": category,
			"fallback": *cc.Fallback,
			"skipped":  len(out.skipped),
		}).Warn("No rule evaluated, using category fallback")
	}

	return cs
}

// ScoreAll scores every category in canonical order
func (s *Scorer) ScoreAll(snaps contracts.SnapshotSet) map[contracts.Category]contracts.CategoryScore {
	scores := make(map[contracts.Category]contracts.CategoryScore, len(contracts.Categories()))
	for _, c := range contracts.Categories() {
		scores[c] = s.Score(c, snaps)
	}
	return scores
}

func (s *Scorer) apply(scope string, baseline float64, ruleset []modelconfig.Rule, snaps contracts.SnapshotSet) outcome {
	out := outcome{
		score:   baseline,
		fired:   []string{},
		skipped: []string{},
	}

	for _, rule := range ruleset {
		branch, resolved := s.firstMatch(rule, snaps)
		if !resolved {
			out.skipped = append(out.skipped, rule.ID)
			s.logger.WithFields(map[string]interface{}{
				"scope":     scope,
				"rule":      rule.ID,
				"indicator": rule.Operand.Indicator,
			}).Debug("Rule skipped: input unavailable")
			continue
		}

		out.evaluated++
		if branch == nil {
			continue
		}
		out.score += branch.Delta
		out.fired = append(out.fired, rule.ID)
	}

	return out
}

// firstMatch returns the first matching branch; resolved=false if the
// operand could not be read
func (s *Scorer) firstMatch(rule modelconfig.Rule, snaps contracts.SnapshotSet) (*modelconfig.Branch, bool) {
	if _, ok := s.resolver.Resolve(snaps, rule.Operand); !ok {
		return nil, false
	}
	for i := range rule.Branches {
		b := &rule.Branches[i]
		matched, _, _ := s.resolver.Match(snaps, rule.Operand, b.Op, b.Threshold, b.Label)
		if matched {
			return b, true
		}
	}
	return nil, true
}
