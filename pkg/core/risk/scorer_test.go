package risk

import (
	"math"
	"strings"
	"testing"

	"github.com/shopspring/decimal"

	"estimate_recon/pkg/models"
)

func statsWith(original, supplement string) models.VarianceStatistics {
	orig := decimal.RequireFromString(original)
	supp := decimal.RequireFromString(supplement)
	return models.VarianceStatistics{
		GrandTotal: models.GrandTotal{
			OriginalTotal:   orig,
			SupplementTotal: supp,
			NetChange:       supp.Sub(orig),
		},
	}
}

func disc(typ models.DiscrepancyType, sev models.DiscrepancySeverity, confidence float64) models.Discrepancy {
	return models.Discrepancy{Type: typ, Severity: sev, Confidence: confidence, Impact: decimal.NewFromInt(100)}
}

func TestScoreNoSignals(t *testing.T) {
	a := Score(statsWith("1000", "1000"), nil)
	if a.Score != 0 {
		t.Errorf("score = %f, want 0", a.Score)
	}
	if a.Level != models.RiskMinimal {
		t.Errorf("level = %s, want minimal", a.Level)
	}
	if len(a.Recommendations) != 1 || !strings.Contains(a.Recommendations[0], "standard review") {
		t.Errorf("recommendations = %v", a.Recommendations)
	}
}

func TestScoreBothSidesEmpty(t *testing.T) {
	a := Score(statsWith("0", "0"), nil)
	if a.Score != 0 {
		t.Errorf("score = %f, want 0 for two empty estimates", a.Score)
	}
}

func TestScoreTotalCoverageLoss(t *testing.T) {
	// The whole original disappears: variance magnitude saturates at 1
	// and contributes its full 45 points.
	a := Score(statsWith("1000", "0"), nil)
	if math.Abs(a.Score-45) > 0.01 {
		t.Errorf("score = %f, want 45", a.Score)
	}
	if a.Level != models.RiskModerate {
		t.Errorf("level = %s, want moderate", a.Level)
	}
	found := false
	for _, rec := range a.Recommendations {
		if strings.Contains(rec, "reduction") {
			found = true
		}
	}
	if !found {
		t.Errorf("expected a reduction-focused recommendation, got %v", a.Recommendations)
	}
}

func TestScoreEmptyOriginalSaturates(t *testing.T) {
	// A supplement with no original baseline is full-scale movement.
	a := Score(statsWith("0", "800"), nil)
	if math.Abs(a.Score-45) > 0.01 {
		t.Errorf("score = %f, want 45", a.Score)
	}
}

func TestScoreLevels(t *testing.T) {
	cases := []struct {
		supplement string
		want       models.RiskLevel
	}{
		// |net|/1000 scaled by 0.45*100.
		{"1010", models.RiskMinimal},  // 1% -> 0.45
		{"1250", models.RiskLow},      // 25% -> 11.25
		{"1600", models.RiskModerate}, // 60% -> 27
	}
	for _, c := range cases {
		a := Score(statsWith("1000", c.supplement), nil)
		if a.Level != c.want {
			t.Errorf("supplement %s: level = %s, want %s", c.supplement, a.Level, c.want)
		}
	}
}

func TestScoreSeverityComponent(t *testing.T) {
	// Three high-severity findings: 12 of 20 points -> 0.6 -> 21 added
	// to a saturated variance component.
	discs := []models.Discrepancy{
		disc(models.DiscrepancyCalculationError, models.SeverityHigh, 1),
		disc(models.DiscrepancyMissingItem, models.SeverityHigh, 0.7),
		disc(models.DiscrepancyCalculationError, models.SeverityHigh, 1),
	}
	a := Score(statsWith("1000", "0"), discs)
	if math.Abs(a.Score-(45+21)) > 0.01 {
		t.Errorf("score = %f, want 66", a.Score)
	}
	if a.Level != models.RiskHigh {
		t.Errorf("level = %s, want high", a.Level)
	}
}

func TestScoreCriticalComposite(t *testing.T) {
	// Saturated variance, capped severity, strong suspicious patterns.
	discs := []models.Discrepancy{
		disc(models.DiscrepancySuspiciousPricing, models.SeverityCritical, 0.9),
		disc(models.DiscrepancySuspiciousPricing, models.SeverityCritical, 0.9),
		disc(models.DiscrepancyDuplicateItem, models.SeverityCritical, 0.9),
	}
	a := Score(statsWith("1000", "0"), discs)
	// 45 + 35 (24 points capped at 20) + 0.2*100*(2.7/3) = 98.
	if math.Abs(a.Score-98) > 0.01 {
		t.Errorf("score = %f, want 98", a.Score)
	}
	if a.Level != models.RiskCritical {
		t.Errorf("level = %s, want critical", a.Level)
	}
}

func TestScoreFactorsSumToScore(t *testing.T) {
	discs := []models.Discrepancy{
		disc(models.DiscrepancyDuplicateItem, models.SeverityMedium, 0.8),
		disc(models.DiscrepancyCalculationError, models.SeverityLow, 1),
	}
	a := Score(statsWith("1000", "1300"), discs)

	sum := 0.0
	for _, f := range a.Factors {
		sum += f.Contribution
		if f.Value < 0 || f.Value > 1 {
			t.Errorf("factor %s value %f outside [0,1]", f.Name, f.Value)
		}
	}
	if math.Abs(sum-a.Score) > 0.01 {
		t.Errorf("factor contributions sum to %f, score is %f", sum, a.Score)
	}
	if len(a.Factors) != 3 {
		t.Errorf("expected 3 factors, got %d", len(a.Factors))
	}
}

func TestScoreSuspicionRecommendation(t *testing.T) {
	discs := []models.Discrepancy{
		disc(models.DiscrepancySuspiciousPricing, models.SeverityLow, 0.9),
		disc(models.DiscrepancyDuplicateItem, models.SeverityLow, 0.8),
	}
	a := Score(statsWith("1000", "1000"), discs)

	found := false
	for _, rec := range a.Recommendations {
		if strings.Contains(rec, "pricing patterns") {
			found = true
		}
	}
	if !found {
		t.Errorf("expected a pricing-pattern recommendation, got %v", a.Recommendations)
	}
}
