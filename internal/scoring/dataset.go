package scoring

import (
	"math"
	"math/rand/v2"
)

// Sample is one labelled training row.
type Sample struct {
	X     [featureCount]float64
	Label int
}

// GenerateDataset simulates booking history. Longer trips and meal orders
// signal commitment, last-minute trips are rarely dropped, far-ahead and
// weekend trips are cancelled more often.
func GenerateDataset(n int, rng *rand.Rand) []Sample {
	samples := make([]Sample, 0, n)

	for i := 0; i < n; i++ {
		f := Features{
			Distance:    rng.IntN(10) + 1,
			HasMeal:     rng.IntN(2),
			DaysAdvance: rng.IntN(46),
			IsWeekend:   rng.IntN(2),
		}

		score := syntheticLogit(f) + rng.NormFloat64()*0.5
		label := 0
		if rng.Float64() < sigmoid(score) {
			label = 1
		}

		samples = append(samples, Sample{X: f.vector(), Label: label})
	}

	return samples
}

func syntheticLogit(f Features) float64 {
	score := float64(f.Distance) * 0.15
	score += float64(f.HasMeal) * 0.6

	if f.IsWeekend == 1 {
		score -= 0.2
	} else {
		score += 0.1
	}

	switch {
	case f.DaysAdvance < 3:
		score += 0.5
	case f.DaysAdvance > 14:
		score -= 0.2
	}

	return score
}

func sigmoid(x float64) float64 {
	return 1 / (1 + math.Exp(-x))
}
