package scoring

import (
	"fmt"
	"time"

	"github.com/wonny/macropulse/internal/contracts"
	"github.com/wonny/macropulse/internal/modelconfig"
)

// Combine computes the weighted composite.
// Summation runs in canonical category order so identical inputs give
// bit-identical results. A category that is absent, or that evaluated no
// rule without a fallback, is an error wrapping *contracts.ConfigError.
func Combine(scores map[contracts.Category]contracts.CategoryScore, weights modelconfig.Weights, at time.Time) (contracts.CompositeScore, error) {
	composite := contracts.CompositeScore{
		Timestamp:      at,
		CategoryScores: make(map[contracts.Category]contracts.CategoryScore, len(scores)),
		Contributions:  make([]contracts.Contribution, 0, len(scores)),
	}

	var total float64
	for _, c := range contracts.Categories() {
		cs, ok := scores[c]
		if !ok {
			return contracts.CompositeScore{}, fmt.Errorf("combine: %w", &contracts.ConfigError{
				Source:  "model",
				Field:   fmt.Sprintf("categories.%s", c),
				Message: "category score missing",
			})
		}
		if cs.Evaluated == 0 && !cs.Fallback {
			return contracts.CompositeScore{}, fmt.Errorf("combine: %w", &contracts.ConfigError{
				Source:  "model",
				Field:   fmt.Sprintf("categories.%s.fallback", c),
				Message: "no indicator available and no fallback declared",
			})
		}

		w := weights.For(c)
		weighted := w * cs.Score
		total += weighted

		composite.CategoryScores[c] = cs
		composite.Contributions = append(composite.Contributions, contracts.Contribution{
			Category: c,
			Weight:   w,
			Score:    cs.Score,
			Weighted: weighted,
		})
	}

	composite.Value = clamp(total, 0, 100)
	return composite, nil
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
