// Package models defines the shared data structures for the estimate
// comparison workflow: raw line items as delivered by the document
// extraction service, classified items, and the reconciliation types
// built on top of them.
package models

import "github.com/shopspring/decimal"

// CostCategory buckets a line item by the kind of cost it represents.
type CostCategory string

const (
	CategoryLabor     CostCategory = "labor"
	CategoryParts     CostCategory = "parts"
	CategoryMaterials CostCategory = "materials"
	CategoryEquipment CostCategory = "equipment"
	CategoryOverhead  CostCategory = "overhead"
	CategoryOther     CostCategory = "other"
)

// AllCategories lists every cost category in fixed presentation order.
// Aggregations iterate this slice rather than ranging over maps so that
// output ordering never depends on map iteration.
var AllCategories = []CostCategory{
	CategoryLabor,
	CategoryParts,
	CategoryMaterials,
	CategoryEquipment,
	CategoryOverhead,
	CategoryOther,
}

// ParseCategory maps a free-form category hint to a known category.
// Unknown hints return ("", false).
func ParseCategory(s string) (CostCategory, bool) {
	switch CostCategory(s) {
	case CategoryLabor, CategoryParts, CategoryMaterials, CategoryEquipment, CategoryOverhead, CategoryOther:
		return CostCategory(s), true
	}
	return "", false
}

// EstimateSide identifies which document a line item came from.
type EstimateSide string

const (
	SideOriginal   EstimateSide = "original"
	SideSupplement EstimateSide = "supplement"
)

// RawLineItem is one priced entry on a repair estimate, exactly as
// supplied by the extraction service. Never mutated after ingestion.
type RawLineItem struct {
	Description  string          `json:"description"`
	Quantity     decimal.Decimal `json:"quantity"`
	UnitPrice    decimal.Decimal `json:"unit_price"`
	Total        decimal.Decimal `json:"total"`
	CategoryHint string          `json:"category_hint,omitempty"`
}

// ClassifiedLineItem is a raw item with a stable identity and a cost
// category attached. IDs are derived from the item's content and input
// position, so the same input always yields the same IDs.
type ClassifiedLineItem struct {
	RawLineItem

	ID         string       `json:"id"`
	Side       EstimateSide `json:"side"`
	Index      int          `json:"index"`
	Category   CostCategory `json:"category"`
	Confidence float64      `json:"confidence"`

	// Warnings collects item-level validation problems. Items with
	// warnings still flow through reconciliation but are excluded from
	// strict quality calculations.
	Warnings []string `json:"warnings,omitempty"`
	Valid    bool     `json:"valid"`
}

// MatchStage records which reconciliation stage produced a match.
type MatchStage string

const (
	StageExact    MatchStage = "exact"
	StageFuzzy    MatchStage = "fuzzy"
	StageFallback MatchStage = "category_price"
)

// MatchSignals holds the per-field similarity signals behind a match
// score, kept for review-UI explanation.
type MatchSignals struct {
	DescriptionSimilarity float64 `json:"description_similarity"`
	CategoryMatch         bool    `json:"category_match"`
	PriceProximity        float64 `json:"price_proximity"`
}

// MatchedItemPair links an original item and a supplement item judged to
// represent the same repair operation.
type MatchedItemPair struct {
	Original   ClassifiedLineItem `json:"original"`
	Supplement ClassifiedLineItem `json:"supplement"`
	Score      float64            `json:"score"`
	Stage      MatchStage         `json:"stage"`
	Signals    MatchSignals       `json:"signals"`
}

// ResidualKind tags an unmatched item by which side it was left on.
type ResidualKind string

const (
	ResidualRemoved ResidualKind = "removed"
	ResidualNew     ResidualKind = "new"
)

// ResidualItem is a line item with no counterpart after reconciliation.
type ResidualItem struct {
	Item ClassifiedLineItem `json:"item"`
	Kind ResidualKind       `json:"kind"`
}

// ReconciliationResult partitions both input lists: every original item
// is either matched or removed, every supplement item either matched or
// new.
type ReconciliationResult struct {
	Matched           []MatchedItemPair `json:"matched"`
	UnmatchedOriginal []ResidualItem    `json:"unmatched_original"`
	NewSupplement     []ResidualItem    `json:"new_supplement"`
}
