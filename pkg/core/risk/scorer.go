// Package risk combines variance magnitude, discrepancy severity, and
// anomaly confidence into a single 0-100 composite score with a
// categorical level and ranked recommendations.
package risk

import (
	"math"
	"sort"

	"estimate_recon/pkg/models"
)

// Component weights of the composite score.
const (
	weightVariance    = 0.45
	weightSeverity    = 0.35
	weightSuspicion   = 0.20
	severityPointsCap = 20.0
)

// Level cut points on the 0-100 scale.
const (
	cutLow      = 10.0
	cutModerate = 25.0
	cutHigh     = 50.0
	cutCritical = 75.0
)

func severityPoints(s models.DiscrepancySeverity) float64 {
	switch s {
	case models.SeverityCritical:
		return 8
	case models.SeverityHigh:
		return 4
	case models.SeverityMedium:
		return 2
	default:
		return 1
	}
}

// Score computes the composite risk assessment for one analysis.
func Score(statistics models.VarianceStatistics, discrepancies []models.Discrepancy) models.RiskAssessment {
	// Normalized aggregate variance magnitude: |net change| relative to
	// the original total, capped at 1. A supplement appearing against an
	// empty original (or wiping out the whole original) is full-scale
	// movement by definition.
	varianceMagnitude := 0.0
	gt := statistics.GrandTotal
	switch {
	case gt.OriginalTotal.IsZero() && gt.SupplementTotal.IsZero():
		varianceMagnitude = 0
	case gt.OriginalTotal.IsZero():
		varianceMagnitude = 1
	default:
		ratio := gt.NetChange.Abs().Div(gt.OriginalTotal.Abs()).InexactFloat64()
		varianceMagnitude = math.Min(1, ratio)
	}

	// Discrepancy severity, summed and capped so a long tail of minor
	// findings cannot dominate.
	points := 0.0
	for _, d := range discrepancies {
		points += severityPoints(d.Severity)
	}
	severityScore := math.Min(1, points/severityPointsCap)

	// Suspicious patterns: confidence-weighted count of pricing and
	// duplicate anomalies.
	suspicion := 0.0
	for _, d := range discrepancies {
		if d.Type == models.DiscrepancySuspiciousPricing || d.Type == models.DiscrepancyDuplicateItem {
			suspicion += d.Confidence
		}
	}
	suspicionScore := math.Min(1, suspicion/3)

	factors := []models.RiskFactor{
		{Name: "variance_magnitude", Weight: weightVariance, Value: varianceMagnitude, Contribution: weightVariance * varianceMagnitude * 100},
		{Name: "discrepancy_severity", Weight: weightSeverity, Value: severityScore, Contribution: weightSeverity * severityScore * 100},
		{Name: "suspicious_patterns", Weight: weightSuspicion, Value: suspicionScore, Contribution: weightSuspicion * suspicionScore * 100},
	}

	score := 0.0
	for _, f := range factors {
		score += f.Contribution
	}
	score = math.Round(score*100) / 100

	return models.RiskAssessment{
		Score:           score,
		Level:           levelFor(score),
		Factors:         factors,
		Recommendations: recommendations(factors, statistics, discrepancies),
	}
}

func levelFor(score float64) models.RiskLevel {
	switch {
	case score >= cutCritical:
		return models.RiskCritical
	case score >= cutHigh:
		return models.RiskHigh
	case score >= cutModerate:
		return models.RiskModerate
	case score >= cutLow:
		return models.RiskLow
	default:
		return models.RiskMinimal
	}
}

// recommendations emits human-readable guidance ranked by the factors
// that contributed most to the score.
func recommendations(factors []models.RiskFactor, statistics models.VarianceStatistics, discrepancies []models.Discrepancy) []string {
	ranked := make([]models.RiskFactor, len(factors))
	copy(ranked, factors)
	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].Contribution != ranked[j].Contribution {
			return ranked[i].Contribution > ranked[j].Contribution
		}
		return ranked[i].Name < ranked[j].Name
	})

	var out []string
	for _, f := range ranked {
		if f.Contribution < 1 {
			continue
		}
		switch f.Name {
		case "variance_magnitude":
			if statistics.GrandTotal.NetChange.IsNegative() {
				out = append(out, "Review the overall reduction against the original scope of repair")
			} else {
				out = append(out, "Review the overall supplement increase against documented additional damage")
			}
		case "discrepancy_severity":
			high := 0
			for _, d := range discrepancies {
				if models.SeverityRank(d.Severity) >= models.SeverityRank(models.SeverityHigh) {
					high++
				}
			}
			if high > 0 {
				out = append(out, "Resolve high-severity discrepancies before approving the supplement")
			} else {
				out = append(out, "Work through the flagged discrepancies during line-item review")
			}
		case "suspicious_patterns":
			out = append(out, "Audit flagged pricing patterns and duplicate entries against shop documentation")
		}
	}
	if len(out) == 0 {
		out = append(out, "No elevated risk signals; standard review is sufficient")
	}
	return out
}
