package ingest

import (
	"fmt"

	"github.com/shopspring/decimal"

	"estimate_recon/pkg/models"
)

// ValidationError reports structurally impossible input, the only
// item-level problem that aborts an analysis rather than degrading it.
type ValidationError struct {
	Side   models.EstimateSide
	Index  int
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s item %d: %s", e.Side, e.Index, e.Reason)
}

// CheckStructural rejects input no valid estimate can contain. Negative
// quantities cannot reconcile into any valid total; everything milder
// is a warning, not an error.
func CheckStructural(side models.EstimateSide, items []models.RawLineItem) error {
	for i, it := range items {
		if it.Quantity.IsNegative() {
			return &ValidationError{Side: side, Index: i, Reason: fmt.Sprintf("negative quantity %s", it.Quantity)}
		}
	}
	return nil
}

// ItemWarnings returns the non-fatal shape problems for one item.
// Items with warnings stay in the reconciliation (so partition
// invariants hold) but are excluded from strict quality calculations.
func ItemWarnings(item models.RawLineItem, calcTolerance decimal.Decimal) []string {
	var warnings []string
	if item.Description == "" {
		warnings = append(warnings, "missing description")
	}
	if item.UnitPrice.IsNegative() && !item.Total.IsNegative() {
		warnings = append(warnings, "negative unit price with non-negative total")
	}
	gap := item.Quantity.Mul(item.UnitPrice).Sub(item.Total).Abs()
	if gap.GreaterThan(calcTolerance) {
		warnings = append(warnings, fmt.Sprintf("quantity x price differs from total by %s", gap))
	}
	return warnings
}
