package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// SignificanceTier buckets a variance by how much review attention it
// deserves.
type SignificanceTier string

const (
	TierNegligible SignificanceTier = "negligible"
	TierMinor      SignificanceTier = "minor"
	TierModerate   SignificanceTier = "moderate"
	TierMajor      SignificanceTier = "major"
	TierExtreme    SignificanceTier = "extreme"
)

// TierRank orders tiers for comparisons; higher is more significant.
func TierRank(t SignificanceTier) int {
	switch t {
	case TierMinor:
		return 1
	case TierModerate:
		return 2
	case TierMajor:
		return 3
	case TierExtreme:
		return 4
	default:
		return 0
	}
}

// ChangeKind classifies the direction of a variance.
type ChangeKind string

const (
	ChangeIncrease  ChangeKind = "increase"
	ChangeDecrease  ChangeKind = "decrease"
	ChangeUnchanged ChangeKind = "unchanged"
	ChangeNew       ChangeKind = "new"
	ChangeRemoved   ChangeKind = "removed"
)

// VarianceRecord captures the deltas for one matched pair or one
// residual item. Percentage fields are nil exactly when the baseline
// amount is zero; they never encode division-by-zero as a number.
type VarianceRecord struct {
	OriginalID   string `json:"original_id,omitempty"`
	SupplementID string `json:"supplement_id,omitempty"`
	Category     CostCategory `json:"category"`
	Kind         ChangeKind   `json:"kind"`

	QuantityDelta decimal.Decimal `json:"quantity_delta"`
	PriceDelta    decimal.Decimal `json:"price_delta"`
	TotalDelta    decimal.Decimal `json:"total_delta"`

	QuantityPct *decimal.Decimal `json:"quantity_pct"`
	PricePct    *decimal.Decimal `json:"price_pct"`
	TotalPct    *decimal.Decimal `json:"total_pct"`

	Tier SignificanceTier `json:"tier"`
}

// CategorySubtotal rolls one cost category up for chart rendering.
type CategorySubtotal struct {
	Category         CostCategory    `json:"category"`
	OriginalTotal    decimal.Decimal `json:"original_total"`
	SupplementTotal  decimal.Decimal `json:"supplement_total"`
	NetChange        decimal.Decimal `json:"net_change"`
	ItemCount        int             `json:"item_count"`
	SignificantCount int             `json:"significant_count"`
}

// GrandTotal summarizes the whole-estimate money movement.
type GrandTotal struct {
	OriginalTotal   decimal.Decimal  `json:"original_total"`
	SupplementTotal decimal.Decimal  `json:"supplement_total"`
	NetChange       decimal.Decimal  `json:"net_change"`
	PctChange       *decimal.Decimal `json:"pct_change"`
}

// ChangeDistribution counts variance records by change kind.
type ChangeDistribution struct {
	Increases int `json:"increases"`
	Decreases int `json:"decreases"`
	New       int `json:"new"`
	Removed   int `json:"removed"`
	Unchanged int `json:"unchanged"`
}

// DescriptiveStats holds exact-decimal summary statistics over the
// signed total variances of every item.
type DescriptiveStats struct {
	Count  int             `json:"count"`
	Mean   decimal.Decimal `json:"mean"`
	Median decimal.Decimal `json:"median"`
	StdDev decimal.Decimal `json:"std_dev"`
	Min    decimal.Decimal `json:"min"`
	Max    decimal.Decimal `json:"max"`
}

// DataQualityScore is a weighted composite of input health signals.
type DataQualityScore struct {
	Completeness  float64 `json:"completeness"`
	Consistency   float64 `json:"consistency"`
	AvgConfidence float64 `json:"avg_confidence"`
	Score         float64 `json:"score"`
}

// VarianceStatistics is the aggregated statistical view of one analysis.
type VarianceStatistics struct {
	GrandTotal    GrandTotal         `json:"grand_total"`
	Categories    []CategorySubtotal `json:"categories"`
	Distribution  ChangeDistribution `json:"distribution"`
	TotalVariance DescriptiveStats   `json:"total_variance"`
	DataQuality   DataQualityScore   `json:"data_quality"`
}

// DiscrepancyType identifies the anomaly a check detected.
type DiscrepancyType string

const (
	DiscrepancyCalculationError  DiscrepancyType = "calculation_error"
	DiscrepancyDuplicateItem     DiscrepancyType = "duplicate_item"
	DiscrepancyMissingItem       DiscrepancyType = "missing_item"
	DiscrepancySuspiciousPricing DiscrepancyType = "suspicious_pricing"
	DiscrepancyDataInconsistency DiscrepancyType = "data_inconsistency"
)

// DiscrepancySeverity grades a discrepancy for triage.
type DiscrepancySeverity string

const (
	SeverityLow      DiscrepancySeverity = "low"
	SeverityMedium   DiscrepancySeverity = "medium"
	SeverityHigh     DiscrepancySeverity = "high"
	SeverityCritical DiscrepancySeverity = "critical"
)

// SeverityRank orders severities; higher is worse.
func SeverityRank(s DiscrepancySeverity) int {
	switch s {
	case SeverityMedium:
		return 1
	case SeverityHigh:
		return 2
	case SeverityCritical:
		return 3
	default:
		return 0
	}
}

// Discrepancy is a detected anomaly distinct from an ordinary variance.
type Discrepancy struct {
	Type              DiscrepancyType     `json:"type"`
	Severity          DiscrepancySeverity `json:"severity"`
	ItemIDs           []string            `json:"item_ids"`
	Impact            decimal.Decimal     `json:"impact"`
	Confidence        float64             `json:"confidence"`
	Description       string              `json:"description"`
	RecommendedAction string              `json:"recommended_action"`
}

// RiskLevel is the categorical view of the composite risk score.
type RiskLevel string

const (
	RiskMinimal  RiskLevel = "minimal"
	RiskLow      RiskLevel = "low"
	RiskModerate RiskLevel = "moderate"
	RiskHigh     RiskLevel = "high"
	RiskCritical RiskLevel = "critical"
)

// RiskFactor explains one weighted contributor to the composite score.
type RiskFactor struct {
	Name         string  `json:"name"`
	Weight       float64 `json:"weight"`
	Value        float64 `json:"value"`
	Contribution float64 `json:"contribution"`
}

// RiskAssessment is the 0-100 composite score with its breakdown and
// ranked recommendations.
type RiskAssessment struct {
	Score           float64      `json:"score"`
	Level           RiskLevel    `json:"level"`
	Factors         []RiskFactor `json:"factors"`
	Recommendations []string     `json:"recommendations"`
}

// ProcessingMetadata records when and how long an analysis ran. It is
// the only part of a ComparisonAnalysis that varies between identical
// invocations; determinism guarantees are defined over everything else.
type ProcessingMetadata struct {
	GeneratedAt   time.Time     `json:"generated_at"`
	Duration      time.Duration `json:"duration_ns"`
	EngineVersion string        `json:"engine_version"`
}

// ComparisonAnalysis is the root output object. Built once per
// invocation and never mutated by consumers.
type ComparisonAnalysis struct {
	ClaimID        string               `json:"claim_id"`
	Original       []ClassifiedLineItem `json:"original"`
	Supplement     []ClassifiedLineItem `json:"supplement"`
	Reconciliation ReconciliationResult `json:"reconciliation"`
	Variances      []VarianceRecord     `json:"variances"`
	Statistics     VarianceStatistics   `json:"statistics"`
	Discrepancies  []Discrepancy        `json:"discrepancies"`
	Risk           RiskAssessment       `json:"risk"`
	Metadata       ProcessingMetadata   `json:"metadata"`
}
