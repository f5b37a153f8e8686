package signal

import (
	"math"

	"github.com/wonny/macropulse/internal/contracts"
	"github.com/wonny/macropulse/internal/modelconfig"
)

// Classifier maps a composite value to an investment signal
// ⭐ SSOT: 시그널 밴드 판정은 여기서만
type Classifier struct {
	bands []modelconfig.SignalBand
}

// NewClassifier creates a classifier over validated bands (high→low)
func NewClassifier(cfg modelconfig.SignalConfig) *Classifier {
	bands := make([]modelconfig.SignalBand, len(cfg.Bands))
	copy(bands, cfg.Bands)
	return &Classifier{bands: bands}
}

// Classify is total over the real line: the value is clamped to [0,100],
// then the first band with value >= min wins
func (c *Classifier) Classify(value float64) contracts.Signal {
	v := value
	switch {
	case math.IsNaN(v):
		v = 0
	case v < 0:
		v = 0
	case v > 100:
		v = 100
	}

	for _, b := range c.bands {
		if b.Min == nil || v >= *b.Min {
			return contracts.Signal{
				Label:          b.Label,
				Display:        b.Display,
				Recommendation: b.Recommendation,
			}
		}
	}

	// 마지막 밴드가 catch-all 이므로 도달 불가
	last := c.bands[len(c.bands)-1]
	return contracts.Signal{Label: last.Label, Display: last.Display, Recommendation: last.Recommendation}
}
