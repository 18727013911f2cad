// Package variance computes the quantity, price, and total deltas for
// matched pairs and residual items, and assigns each delta a
// significance tier. All functions are pure.
package variance

import (
	"github.com/shopspring/decimal"

	"estimate_recon/pkg/core/config"
	"estimate_recon/pkg/models"
)

// Calculator evaluates variances under one configuration. Deltas are
// kept at full precision; rounding happens only on display surfaces so
// that summing per-item deltas reproduces the aggregate net change
// exactly.
type Calculator struct {
	tiers tierThresholds
}

type tierThresholds struct {
	minorPct, moderatePct, majorPct, extremePct decimal.Decimal
	minorAbs, moderateAbs, majorAbs, extremeAbs decimal.Decimal
}

// NewCalculator builds a calculator from a validated config.
func NewCalculator(cfg config.EngineConfig) *Calculator {
	s := cfg.Significance
	return &Calculator{
		tiers: tierThresholds{
			minorPct:    decimal.NewFromFloat(s.MinorPct),
			moderatePct: decimal.NewFromFloat(s.ModeratePct),
			majorPct:    decimal.NewFromFloat(s.MajorPct),
			extremePct:  decimal.NewFromFloat(s.ExtremePct),
			minorAbs:    decimal.RequireFromString(s.MinorAbs),
			moderateAbs: decimal.RequireFromString(s.ModerateAbs),
			majorAbs:    decimal.RequireFromString(s.MajorAbs),
			extremeAbs:  decimal.RequireFromString(s.ExtremeAbs),
		},
	}
}

// percentChange returns delta/baseline as a percentage, or nil when the
// baseline is exactly zero. Nil is the only representation of a missing
// baseline; there is no "100%" or infinity convention. Division is by
// the baseline magnitude, so the sign of the result always tracks the
// delta even when the baseline is negative.
func percentChange(delta, baseline decimal.Decimal) *decimal.Decimal {
	if baseline.IsZero() {
		return nil
	}
	pct := delta.Div(baseline.Abs()).Mul(decimal.NewFromInt(100)).Round(4)
	return &pct
}

// ForPair computes the variance record for one matched pair.
func (c *Calculator) ForPair(pair models.MatchedItemPair) models.VarianceRecord {
	qtyDelta := pair.Supplement.Quantity.Sub(pair.Original.Quantity)
	priceDelta := pair.Supplement.UnitPrice.Sub(pair.Original.UnitPrice)
	totalDelta := pair.Supplement.Total.Sub(pair.Original.Total)

	kind := models.ChangeUnchanged
	switch {
	case totalDelta.IsPositive():
		kind = models.ChangeIncrease
	case totalDelta.IsNegative():
		kind = models.ChangeDecrease
	}

	return models.VarianceRecord{
		OriginalID:    pair.Original.ID,
		SupplementID:  pair.Supplement.ID,
		Category:      pair.Supplement.Category,
		Kind:          kind,
		QuantityDelta: qtyDelta,
		PriceDelta:    priceDelta,
		TotalDelta:    totalDelta,
		QuantityPct:   percentChange(qtyDelta, pair.Original.Quantity),
		PricePct:      percentChange(priceDelta, pair.Original.UnitPrice),
		TotalPct:      percentChange(totalDelta, pair.Original.Total),
		Tier:          c.tier(totalDelta, percentChange(totalDelta, pair.Original.Total)),
	}
}

// ForResidual computes the variance record for an unmatched item. A
// removed item contributes the negative of its total, a new item its
// total; percentage fields stay nil because no baseline exists.
func (c *Calculator) ForResidual(res models.ResidualItem) models.VarianceRecord {
	rec := models.VarianceRecord{
		Category: res.Item.Category,
	}
	switch res.Kind {
	case models.ResidualRemoved:
		rec.OriginalID = res.Item.ID
		rec.Kind = models.ChangeRemoved
		rec.QuantityDelta = res.Item.Quantity.Neg()
		rec.PriceDelta = res.Item.UnitPrice.Neg()
		rec.TotalDelta = res.Item.Total.Neg()
	default:
		rec.SupplementID = res.Item.ID
		rec.Kind = models.ChangeNew
		rec.QuantityDelta = res.Item.Quantity
		rec.PriceDelta = res.Item.UnitPrice
		rec.TotalDelta = res.Item.Total
	}
	rec.Tier = c.tier(rec.TotalDelta, nil)
	return rec
}

// ForResult computes variance records for every pair and residual in a
// reconciliation result, in deterministic order: matched pairs first
// (already ordered by original index), then removed, then new residuals.
func (c *Calculator) ForResult(r *models.ReconciliationResult) []models.VarianceRecord {
	out := make([]models.VarianceRecord, 0, len(r.Matched)+len(r.UnmatchedOriginal)+len(r.NewSupplement))
	for _, pair := range r.Matched {
		out = append(out, c.ForPair(pair))
	}
	for _, res := range r.UnmatchedOriginal {
		out = append(out, c.ForResidual(res))
	}
	for _, res := range r.NewSupplement {
		out = append(out, c.ForResidual(res))
	}
	return out
}

// tier assigns the significance tier. Each tier is reached when either
// its percentage threshold or its absolute-amount threshold is crossed:
// a small percentage on a large amount matters as much as a large
// percentage on a small one. pct may be nil (no baseline); then only
// the absolute ladder applies.
func (c *Calculator) tier(totalDelta decimal.Decimal, pct *decimal.Decimal) models.SignificanceTier {
	abs := totalDelta.Abs()
	absPct := decimal.Zero
	if pct != nil {
		absPct = pct.Abs()
	}

	at := func(pctThreshold, absThreshold decimal.Decimal) bool {
		if pct != nil && absPct.GreaterThanOrEqual(pctThreshold) {
			return true
		}
		return abs.GreaterThanOrEqual(absThreshold)
	}

	switch {
	case at(c.tiers.extremePct, c.tiers.extremeAbs):
		return models.TierExtreme
	case at(c.tiers.majorPct, c.tiers.majorAbs):
		return models.TierMajor
	case at(c.tiers.moderatePct, c.tiers.moderateAbs):
		return models.TierModerate
	case at(c.tiers.minorPct, c.tiers.minorAbs):
		return models.TierMinor
	default:
		return models.TierNegligible
	}
}
