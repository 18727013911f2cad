// Package discrepancy scans the reconciled, variance-annotated item set
// for anomalies that deserve human review: calculation errors,
// duplicate entries, suspicious pricing patterns, and category coverage
// gaps. Each check is independent and composable; the detector runs all
// of them and returns a deterministically ordered list.
package discrepancy

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"estimate_recon/pkg/core/config"
	"estimate_recon/pkg/core/normalize"
	"estimate_recon/pkg/models"
)

// Baselines for the round-number bias check. Legitimate estimates carry
// some round prices (book rates, flat fees); the check fires only when
// the observed rate clearly exceeds what unremarkable data shows.
const (
	roundPriceBaseline = 0.30
	roundPriceMargin   = 0.20
	roundPriceMinItems = 5
)

// Markup outlier gate: a category needs at least this many priced items
// before its distribution is trusted.
const markupMinGroup = 4

// Coverage check: categories below this original total are too small to
// flag as coverage gaps.
var coverageFloor = decimal.NewFromInt(100)

// Detector runs the discrepancy checks under one configuration.
type Detector struct {
	calcTolerance decimal.Decimal
	precision     int32
}

// NewDetector builds a detector from a validated config.
func NewDetector(cfg config.EngineConfig) *Detector {
	return &Detector{
		calcTolerance: decimal.RequireFromString(cfg.CalcTolerance),
		precision:     cfg.MoneyPrecision,
	}
}

// Detect runs every check over both classified item sets and the
// reconciliation result, returning discrepancies ordered by severity,
// then impact, then type, then first affected item.
func (d *Detector) Detect(original, supplement []models.ClassifiedLineItem, recon *models.ReconciliationResult) []models.Discrepancy {
	var out []models.Discrepancy
	out = append(out, d.checkCalculationErrors(original)...)
	out = append(out, d.checkCalculationErrors(supplement)...)
	out = append(out, d.checkDuplicates(original)...)
	out = append(out, d.checkDuplicates(supplement)...)
	out = append(out, d.checkDataInconsistencies(original)...)
	out = append(out, d.checkDataInconsistencies(supplement)...)
	out = append(out, d.checkRoundPricing(models.SideOriginal, original)...)
	out = append(out, d.checkRoundPricing(models.SideSupplement, supplement)...)
	out = append(out, d.checkMarkupOutliers(supplement)...)
	out = append(out, d.checkMissingCoverage(original, supplement, recon)...)

	sort.SliceStable(out, func(i, j int) bool {
		if models.SeverityRank(out[i].Severity) != models.SeverityRank(out[j].Severity) {
			return models.SeverityRank(out[i].Severity) > models.SeverityRank(out[j].Severity)
		}
		if !out[i].Impact.Equal(out[j].Impact) {
			return out[i].Impact.GreaterThan(out[j].Impact)
		}
		if out[i].Type != out[j].Type {
			return out[i].Type < out[j].Type
		}
		return firstID(out[i]) < firstID(out[j])
	})
	return out
}

func firstID(d models.Discrepancy) string {
	if len(d.ItemIDs) == 0 {
		return ""
	}
	return d.ItemIDs[0]
}

// severityFor grades by monetary impact, discounted by detection
// confidence: a tentative signal on a big number reads as one grade
// lower than a certain one.
func severityFor(impact decimal.Decimal, confidence float64) models.DiscrepancySeverity {
	weighted := impact.Abs().InexactFloat64() * confidence
	switch {
	case weighted >= 2500:
		return models.SeverityCritical
	case weighted >= 500:
		return models.SeverityHigh
	case weighted >= 100:
		return models.SeverityMedium
	default:
		return models.SeverityLow
	}
}

// checkCalculationErrors flags items where quantity x unit price
// disagrees with the stated line total beyond tolerance.
func (d *Detector) checkCalculationErrors(items []models.ClassifiedLineItem) []models.Discrepancy {
	var out []models.Discrepancy
	for _, it := range items {
		expected := it.Quantity.Mul(it.UnitPrice)
		gap := expected.Sub(it.Total).Abs()
		if gap.LessThanOrEqual(d.calcTolerance) {
			continue
		}
		impact := gap.Round(d.precision)
		out = append(out, models.Discrepancy{
			Type:       models.DiscrepancyCalculationError,
			Severity:   severityFor(impact, 1),
			ItemIDs:    []string{it.ID},
			Impact:     impact,
			Confidence: 1,
			Description: fmt.Sprintf("%q: %s x %s = %s but line total is %s",
				it.Description, it.Quantity, it.UnitPrice, expected.Round(d.precision), it.Total),
			RecommendedAction: "Verify the line total against quantity and unit price",
		})
	}
	return out
}

// checkDataInconsistencies flags items whose fields disagree in shape:
// missing descriptions and sign mismatches between price and total.
// These were already downgraded at ingestion; the discrepancy record
// makes them visible to reviewers instead of only to the quality score.
func (d *Detector) checkDataInconsistencies(items []models.ClassifiedLineItem) []models.Discrepancy {
	var out []models.Discrepancy
	for _, it := range items {
		var problems []string
		if it.Description == "" {
			problems = append(problems, "missing description")
		}
		if it.UnitPrice.IsNegative() && !it.Total.IsNegative() {
			problems = append(problems, "negative unit price with non-negative total")
		}
		if len(problems) == 0 {
			continue
		}
		impact := it.Total.Abs().Round(d.precision)
		out = append(out, models.Discrepancy{
			Type:              models.DiscrepancyDataInconsistency,
			Severity:          severityFor(impact, 0.6),
			ItemIDs:           []string{it.ID},
			Impact:            impact,
			Confidence:        0.6,
			Description:       fmt.Sprintf("%s item %d: %s", it.Side, it.Index, strings.Join(problems, "; ")),
			RecommendedAction: "Re-extract or manually correct the flagged fields",
		})
	}
	return out
}

// Minimum normalized-description similarity for two same-priced items
// to count as duplicate entries. High enough that only rewordings of
// the same operation qualify (trailing plurals, a swapped word), not
// merely related work.
const duplicateSimilarity = 0.9

// checkDuplicates flags clusters of items within one estimate sharing a
// unit price and a near-identical normalized description. Clustering is
// greedy in input order: each item joins the first open cluster it
// resembles, so output never depends on map iteration. These may be
// legitimate repeated operations, so they are surfaced for review
// rather than merged.
func (d *Detector) checkDuplicates(items []models.ClassifiedLineItem) []models.Discrepancy {
	type cluster struct {
		desc  string
		price decimal.Decimal
		items []models.ClassifiedLineItem
	}
	var clusters []*cluster
	for _, it := range items {
		desc := normalize.Description(it.Description)
		joined := false
		for _, c := range clusters {
			if !c.price.Equal(it.UnitPrice) {
				continue
			}
			if c.desc == desc || normalize.Similarity(c.desc, desc) >= duplicateSimilarity {
				c.items = append(c.items, it)
				joined = true
				break
			}
		}
		if !joined {
			clusters = append(clusters, &cluster{desc: desc, price: it.UnitPrice, items: []models.ClassifiedLineItem{it}})
		}
	}

	var out []models.Discrepancy
	for _, c := range clusters {
		if len(c.items) < 2 {
			continue
		}
		ids := make([]string, 0, len(c.items))
		impact := decimal.Zero
		for _, it := range c.items[1:] {
			impact = impact.Add(it.Total)
		}
		for _, it := range c.items {
			ids = append(ids, it.ID)
		}
		impact = impact.Round(d.precision)
		out = append(out, models.Discrepancy{
			Type:       models.DiscrepancyDuplicateItem,
			Severity:   severityFor(impact, 0.8),
			ItemIDs:    ids,
			Impact:     impact,
			Confidence: 0.8,
			Description: fmt.Sprintf("%d near-identical entries of %q at the same unit price on the %s estimate",
				len(c.items), c.items[0].Description, c.items[0].Side),
			RecommendedAction: "Confirm whether the repeated entries are distinct operations",
		})
	}
	return out
}

// isRoundPrice reports whether a price is a whole multiple of ten
// dollars, the shape round-number padding takes on estimates.
func isRoundPrice(p decimal.Decimal) bool {
	if p.IsZero() {
		return false
	}
	return p.Mod(decimal.NewFromInt(10)).IsZero()
}

// checkRoundPricing fires when the share of round-number prices on one
// side clearly exceeds the statistical baseline. It runs per side so a
// padded original is as visible as a padded supplement.
func (d *Detector) checkRoundPricing(side models.EstimateSide, items []models.ClassifiedLineItem) []models.Discrepancy {
	var priced []models.ClassifiedLineItem
	for _, it := range items {
		if !it.UnitPrice.IsZero() {
			priced = append(priced, it)
		}
	}
	if len(priced) < roundPriceMinItems {
		return nil
	}

	var roundIDs []string
	impact := decimal.Zero
	for _, it := range priced {
		if isRoundPrice(it.UnitPrice) {
			roundIDs = append(roundIDs, it.ID)
			impact = impact.Add(it.Total)
		}
	}
	rate := float64(len(roundIDs)) / float64(len(priced))
	if rate <= roundPriceBaseline+roundPriceMargin {
		return nil
	}

	excess := (rate - roundPriceBaseline) / (1 - roundPriceBaseline)
	confidence := math.Min(0.9, 0.5+excess/2)
	impact = impact.Round(d.precision)
	return []models.Discrepancy{{
		Type:       models.DiscrepancySuspiciousPricing,
		Severity:   severityFor(impact, confidence),
		ItemIDs:    roundIDs,
		Impact:     impact,
		Confidence: confidence,
		Description: fmt.Sprintf("%.0f%% of priced %s items carry round-number prices (baseline %.0f%%)",
			rate*100, side, roundPriceBaseline*100),
		RecommendedAction: "Spot-check round-priced items against published rates",
	}}
}

// checkMarkupOutliers flags items priced far outside their category's
// observed distribution (beyond three standard deviations).
func (d *Detector) checkMarkupOutliers(items []models.ClassifiedLineItem) []models.Discrepancy {
	byCat := make(map[models.CostCategory][]models.ClassifiedLineItem)
	for _, it := range items {
		if !it.UnitPrice.IsZero() {
			byCat[it.Category] = append(byCat[it.Category], it)
		}
	}

	var out []models.Discrepancy
	for _, cat := range models.AllCategories {
		group := byCat[cat]
		if len(group) < markupMinGroup {
			continue
		}
		var sum, sqSum float64
		for _, it := range group {
			p := it.UnitPrice.InexactFloat64()
			sum += p
			sqSum += p * p
		}
		n := float64(len(group))
		mean := sum / n
		stddev := math.Sqrt(sqSum/n - mean*mean)
		if stddev == 0 {
			continue
		}
		for _, it := range group {
			p := it.UnitPrice.InexactFloat64()
			z := (p - mean) / stddev
			if z <= 3 {
				continue
			}
			impact := it.UnitPrice.Sub(decimal.NewFromFloat(mean)).Mul(it.Quantity).Round(d.precision)
			confidence := math.Min(0.9, 0.5+(z-3)/10)
			out = append(out, models.Discrepancy{
				Type:       models.DiscrepancySuspiciousPricing,
				Severity:   severityFor(impact, confidence),
				ItemIDs:    []string{it.ID},
				Impact:     impact,
				Confidence: confidence,
				Description: fmt.Sprintf("%q priced at %s, %.1f standard deviations above the %s category mean",
					it.Description, it.UnitPrice, z, cat),
				RecommendedAction: "Compare the unit price against category norms",
			})
		}
	}
	return out
}

// checkMissingCoverage flags categories with a non-trivial original
// total and no supplement coverage at all, where no removed residual
// accounts for the loss. That pattern usually means a reconciliation
// gap worth surfacing, not an intentional removal.
func (d *Detector) checkMissingCoverage(original, supplement []models.ClassifiedLineItem, recon *models.ReconciliationResult) []models.Discrepancy {
	origByCat := make(map[models.CostCategory]decimal.Decimal)
	origIDs := make(map[models.CostCategory][]string)
	for _, it := range original {
		origByCat[it.Category] = origByCat[it.Category].Add(it.Total)
		origIDs[it.Category] = append(origIDs[it.Category], it.ID)
	}
	suppByCat := make(map[models.CostCategory]decimal.Decimal)
	for _, it := range supplement {
		suppByCat[it.Category] = suppByCat[it.Category].Add(it.Total)
	}
	removedByCat := make(map[models.CostCategory]decimal.Decimal)
	for _, res := range recon.UnmatchedOriginal {
		removedByCat[res.Item.Category] = removedByCat[res.Item.Category].Add(res.Item.Total)
	}

	var out []models.Discrepancy
	for _, cat := range models.AllCategories {
		origTotal := origByCat[cat]
		if origTotal.LessThan(coverageFloor) || !suppByCat[cat].IsZero() {
			continue
		}
		// Fully explained by explicit removals: an ordinary (large)
		// variance, not a gap.
		if removedByCat[cat].Equal(origTotal) {
			continue
		}
		impact := origTotal.Round(d.precision)
		out = append(out, models.Discrepancy{
			Type:       models.DiscrepancyMissingItem,
			Severity:   severityFor(impact, 0.7),
			ItemIDs:    origIDs[cat],
			Impact:     impact,
			Confidence: 0.7,
			Description: fmt.Sprintf("category %s had %s on the original estimate and no supplement coverage",
				cat, origTotal),
			RecommendedAction: "Confirm the category was intentionally dropped from the supplement",
		})
	}
	return out
}
