package reconcile

import (
	"github.com/shopspring/decimal"

	"estimate_recon/pkg/core/normalize"
)

// descriptionSimilarity is the normalized edit-distance ratio between
// two already-normalized descriptions, in [0,1].
func descriptionSimilarity(a, b string) float64 {
	return normalize.Similarity(a, b)
}

// priceProximity scores how close two unit prices are, in [0,1].
// Two zero prices are maximally close; one zero price against a nonzero
// one is maximally far.
func priceProximity(a, b decimal.Decimal) float64 {
	if a.Equal(b) {
		return 1
	}
	maxAbs := decimal.Max(a.Abs(), b.Abs())
	if maxAbs.IsZero() {
		return 1
	}
	ratio, _ := a.Sub(b).Abs().Div(maxAbs).Float64()
	if ratio > 1 {
		ratio = 1
	}
	return 1 - ratio
}

// Composite score weights. Description similarity dominates; category
// agreement and price proximity break near-ties between rewordings.
const (
	weightDescription = 0.70
	weightCategory    = 0.15
	weightPrice       = 0.15
)

func compositeScore(descSim float64, categoryMatch bool, priceProx float64) float64 {
	score := weightDescription * descSim
	if categoryMatch {
		score += weightCategory
	}
	score += weightPrice * priceProx
	return score
}
