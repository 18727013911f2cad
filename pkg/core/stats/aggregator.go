// Package stats rolls per-item variance records into category
// subtotals, change distributions, and descriptive statistics. All
// summation is exact decimal arithmetic; floating point only enters for
// the final square root of the standard deviation, where no decimal
// primitive exists.
package stats

import (
	"math"
	"sort"

	"github.com/shopspring/decimal"

	"estimate_recon/pkg/core/config"
	"estimate_recon/pkg/models"
)

// Aggregator computes VarianceStatistics under one configuration.
type Aggregator struct {
	precision     int32
	calcTolerance decimal.Decimal
}

// NewAggregator builds an aggregator from a validated config.
func NewAggregator(cfg config.EngineConfig) *Aggregator {
	return &Aggregator{
		precision:     cfg.MoneyPrecision,
		calcTolerance: decimal.RequireFromString(cfg.CalcTolerance),
	}
}

// Aggregate produces the full statistical view for one analysis.
func (a *Aggregator) Aggregate(original, supplement []models.ClassifiedLineItem, variances []models.VarianceRecord) models.VarianceStatistics {
	return models.VarianceStatistics{
		GrandTotal:    a.grandTotal(original, supplement),
		Categories:    a.categorySubtotals(original, supplement, variances),
		Distribution:  distribution(variances),
		TotalVariance: a.describe(variances),
		DataQuality:   a.dataQuality(original, supplement),
	}
}

func sumTotals(items []models.ClassifiedLineItem) decimal.Decimal {
	sum := decimal.Zero
	for _, it := range items {
		sum = sum.Add(it.Total)
	}
	return sum
}

// grandTotal computes the net change from the unrounded side sums, so
// it equals the sum of the per-item total deltas exactly. Only the
// displayed side totals are rounded. Percent change divides by the
// baseline magnitude; its sign tracks the net change.
func (a *Aggregator) grandTotal(original, supplement []models.ClassifiedLineItem) models.GrandTotal {
	origSum := sumTotals(original)
	suppSum := sumTotals(supplement)
	net := suppSum.Sub(origSum)

	gt := models.GrandTotal{
		OriginalTotal:   origSum.Round(a.precision),
		SupplementTotal: suppSum.Round(a.precision),
		NetChange:       net,
	}
	if !origSum.IsZero() {
		pct := net.Div(origSum.Abs()).Mul(decimal.NewFromInt(100)).Round(4)
		gt.PctChange = &pct
	}
	return gt
}

// categorySubtotals walks models.AllCategories in fixed order; output
// never depends on map iteration.
func (a *Aggregator) categorySubtotals(original, supplement []models.ClassifiedLineItem, variances []models.VarianceRecord) []models.CategorySubtotal {
	origByCat := make(map[models.CostCategory]decimal.Decimal)
	suppByCat := make(map[models.CostCategory]decimal.Decimal)
	for _, it := range original {
		origByCat[it.Category] = origByCat[it.Category].Add(it.Total)
	}
	for _, it := range supplement {
		suppByCat[it.Category] = suppByCat[it.Category].Add(it.Total)
	}

	counts := make(map[models.CostCategory]int)
	significant := make(map[models.CostCategory]int)
	for _, v := range variances {
		counts[v.Category]++
		if models.TierRank(v.Tier) >= models.TierRank(models.TierModerate) {
			significant[v.Category]++
		}
	}

	out := make([]models.CategorySubtotal, 0, len(models.AllCategories))
	for _, cat := range models.AllCategories {
		orig := origByCat[cat]
		supp := suppByCat[cat]
		out = append(out, models.CategorySubtotal{
			Category:         cat,
			OriginalTotal:    orig.Round(a.precision),
			SupplementTotal:  supp.Round(a.precision),
			NetChange:        supp.Sub(orig),
			ItemCount:        counts[cat],
			SignificantCount: significant[cat],
		})
	}
	return out
}

func distribution(variances []models.VarianceRecord) models.ChangeDistribution {
	var d models.ChangeDistribution
	for _, v := range variances {
		switch v.Kind {
		case models.ChangeIncrease:
			d.Increases++
		case models.ChangeDecrease:
			d.Decreases++
		case models.ChangeNew:
			d.New++
		case models.ChangeRemoved:
			d.Removed++
		case models.ChangeUnchanged:
			d.Unchanged++
		}
	}
	return d
}

// describe computes mean, median, population standard deviation, and
// range over the signed total deltas. Values are sorted before any
// aggregation so results do not depend on record order.
func (a *Aggregator) describe(variances []models.VarianceRecord) models.DescriptiveStats {
	n := len(variances)
	if n == 0 {
		return models.DescriptiveStats{}
	}

	values := make([]decimal.Decimal, n)
	for i, v := range variances {
		values[i] = v.TotalDelta
	}
	sort.Slice(values, func(i, j int) bool { return values[i].LessThan(values[j]) })

	sum := decimal.Zero
	for _, v := range values {
		sum = sum.Add(v)
	}
	count := decimal.NewFromInt(int64(n))
	mean := sum.DivRound(count, 6)

	var median decimal.Decimal
	if n%2 == 1 {
		median = values[n/2]
	} else {
		median = values[n/2-1].Add(values[n/2]).DivRound(decimal.NewFromInt(2), a.precision)
	}

	sqSum := decimal.Zero
	for _, v := range values {
		dev := v.Sub(mean)
		sqSum = sqSum.Add(dev.Mul(dev))
	}
	popVariance, _ := sqSum.DivRound(count, 8).Float64()
	stdDev := decimal.NewFromFloat(math.Sqrt(popVariance)).Round(4)

	return models.DescriptiveStats{
		Count:  n,
		Mean:   mean.Round(a.precision),
		Median: median,
		StdDev: stdDev,
		Min:    values[0],
		Max:    values[n-1],
	}
}

// Data quality composite weights.
const (
	weightCompleteness = 0.40
	weightConsistency  = 0.35
	weightConfidence   = 0.25
)

func (a *Aggregator) dataQuality(original, supplement []models.ClassifiedLineItem) models.DataQualityScore {
	all := make([]models.ClassifiedLineItem, 0, len(original)+len(supplement))
	all = append(all, original...)
	all = append(all, supplement...)
	if len(all) == 0 {
		return models.DataQualityScore{Completeness: 1, Consistency: 1, AvgConfidence: 1, Score: 1}
	}

	complete := 0
	consistent := 0
	validCount := 0
	confSum := 0.0
	for _, it := range all {
		confSum += it.Confidence
		if it.Valid && it.Description != "" {
			complete++
		}
		if !it.Valid {
			continue
		}
		validCount++
		gap := it.Quantity.Mul(it.UnitPrice).Sub(it.Total).Abs()
		if gap.LessThanOrEqual(a.calcTolerance) {
			consistent++
		}
	}

	q := models.DataQualityScore{
		Completeness:  float64(complete) / float64(len(all)),
		AvgConfidence: confSum / float64(len(all)),
	}
	if validCount > 0 {
		q.Consistency = float64(consistent) / float64(validCount)
	} else {
		q.Consistency = 0
	}
	q.Score = weightCompleteness*q.Completeness + weightConsistency*q.Consistency + weightConfidence*q.AvgConfidence
	return q
}
