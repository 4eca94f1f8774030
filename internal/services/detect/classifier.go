package detect

import (
	"sort"

	"FlowTrack/internal/domain/models"
)

// Classification is the roll-up of one event's raw signals: the highest
// priority type present, the majority direction, and the premium tier of
// the largest premium observed across the signals.
type Classification struct {
	DominantType models.SignalType
	Direction    models.Direction
	PremiumTier  models.PremiumTier
	Premium      float64
}

// Classifier folds a batch of raw signals into a single classification.
type Classifier struct {
	minPremium float64
}

func NewClassifier(minPremium float64) *Classifier {
	if minPremium <= 0 {
		minPremium = Defaults().MinPremium
	}
	return &Classifier{minPremium: minPremium}
}

// Classify picks the dominant type by fixed priority, the direction by
// majority vote among directional signals, and the tier from the largest
// premium any signal carries. An empty batch classifies to nothing.
func (c *Classifier) Classify(signals []models.RawSignal) (Classification, bool) {
	if len(signals) == 0 {
		return Classification{}, false
	}

	sorted := make([]models.RawSignal, len(signals))
	copy(sorted, signals)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Type.Priority() < sorted[j].Type.Priority()
	})

	var bulls, bears int
	var maxPremium float64
	for _, s := range sorted {
		switch s.Direction {
		case models.Bullish:
			bulls++
		case models.Bearish:
			bears++
		}
		if p, ok := s.Metrics["premium"]; ok && p > maxPremium {
			maxPremium = p
		}
	}

	dir := models.Neutral
	switch {
	case bulls > bears:
		dir = models.Bullish
	case bears > bulls:
		dir = models.Bearish
	}

	return Classification{
		DominantType: sorted[0].Type,
		Direction:    dir,
		PremiumTier:  models.ClassifyPremium(maxPremium, c.minPremium),
		Premium:      maxPremium,
	}, true
}
