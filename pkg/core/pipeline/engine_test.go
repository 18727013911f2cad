package pipeline

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"estimate_recon/pkg/core/config"
	"estimate_recon/pkg/core/ingest"
	"estimate_recon/pkg/models"
)

func raw(desc, qty, price, total string) models.RawLineItem {
	return models.RawLineItem{
		Description: desc,
		Quantity:    decimal.RequireFromString(qty),
		UnitPrice:   decimal.RequireFromString(price),
		Total:       decimal.RequireFromString(total),
	}
}

func newEngine(t *testing.T) *ComparisonEngine {
	t.Helper()
	e, err := NewComparisonEngine(config.Default())
	require.NoError(t, err)
	return e
}

func TestNewComparisonEngineRejectsBadConfig(t *testing.T) {
	cfg := config.Default()
	cfg.FuzzyThreshold = 1.5
	_, err := NewComparisonEngine(cfg)
	require.Error(t, err)
}

func TestCompareRepricedItem(t *testing.T) {
	e := newEngine(t)

	// One line repriced from $50 to $75.
	original := []models.RawLineItem{raw("Engine oil change", "1", "50", "50")}
	supplement := []models.RawLineItem{raw("Engine oil change", "1", "75", "75")}

	a, err := e.Compare("CLM-1001", original, supplement)
	require.NoError(t, err)

	assert.Equal(t, "CLM-1001", a.ClaimID)
	require.Len(t, a.Reconciliation.Matched, 1)
	assert.Equal(t, models.StageExact, a.Reconciliation.Matched[0].Stage)
	assert.Empty(t, a.Reconciliation.UnmatchedOriginal)
	assert.Empty(t, a.Reconciliation.NewSupplement)

	require.Len(t, a.Variances, 1)
	v := a.Variances[0]
	assert.True(t, v.TotalDelta.Equal(decimal.RequireFromString("25")), "TotalDelta = %s", v.TotalDelta)
	require.NotNil(t, v.TotalPct)
	assert.True(t, v.TotalPct.Equal(decimal.RequireFromString("50")), "TotalPct = %s", v.TotalPct)

	assert.True(t, a.Statistics.GrandTotal.NetChange.Equal(decimal.RequireFromString("25")))
	assert.Empty(t, a.Discrepancies)
	assert.Equal(t, EngineVersion, a.Metadata.EngineVersion)
}

func TestCompareNewLineItem(t *testing.T) {
	e := newEngine(t)

	original := []models.RawLineItem{raw("Engine oil change", "1", "50", "50")}
	supplement := []models.RawLineItem{
		raw("Engine oil change", "1", "50", "50"),
		raw("Additional diagnostic service", "1", "120", "120"),
	}

	a, err := e.Compare("CLM-1002", original, supplement)
	require.NoError(t, err)

	require.Len(t, a.Reconciliation.Matched, 1)
	require.Len(t, a.Reconciliation.NewSupplement, 1)
	assert.Equal(t, models.CategoryLabor, a.Reconciliation.NewSupplement[0].Item.Category)

	// The added line shows up as a baseline-less variance record.
	var added *models.VarianceRecord
	for i := range a.Variances {
		if a.Variances[i].Kind == models.ChangeNew {
			added = &a.Variances[i]
		}
	}
	require.NotNil(t, added)
	assert.True(t, added.TotalDelta.Equal(decimal.RequireFromString("120")))
	assert.Nil(t, added.TotalPct)
	assert.Equal(t, 1, a.Statistics.Distribution.New)
	assert.True(t, a.Statistics.GrandTotal.NetChange.Equal(decimal.RequireFromString("120")))
}

func TestCompareEmptySupplement(t *testing.T) {
	e := newEngine(t)

	// The supplement drops everything: $1,000 of coverage vanishes and
	// the risk score must reflect full-scale movement.
	original := []models.RawLineItem{
		raw("Body labor repair", "1", "400", "400"),
		raw("Front bumper cover", "1", "350", "350"),
		raw("Paint supplies", "1", "250", "250"),
	}

	a, err := e.Compare("CLM-1003", original, nil)
	require.NoError(t, err)

	assert.Empty(t, a.Reconciliation.Matched)
	require.Len(t, a.Reconciliation.UnmatchedOriginal, 3)
	assert.Equal(t, 3, a.Statistics.Distribution.Removed)
	assert.True(t, a.Statistics.GrandTotal.NetChange.Equal(decimal.RequireFromString("-1000")))
	require.NotNil(t, a.Statistics.GrandTotal.PctChange)
	assert.True(t, a.Statistics.GrandTotal.PctChange.Equal(decimal.RequireFromString("-100")))

	assert.GreaterOrEqual(t, a.Risk.Score, 25.0)
	assert.Equal(t, models.RiskModerate, a.Risk.Level)
}

func TestCompareBothEmpty(t *testing.T) {
	e := newEngine(t)

	a, err := e.Compare("CLM-1004", nil, nil)
	require.NoError(t, err)
	assert.Empty(t, a.Variances)
	assert.Equal(t, 0.0, a.Risk.Score)
	assert.Equal(t, models.RiskMinimal, a.Risk.Level)
	assert.Equal(t, 1.0, a.Statistics.DataQuality.Score)
}

func TestCompareDuplicateEntries(t *testing.T) {
	e := newEngine(t)

	original := []models.RawLineItem{raw("Body labor repair", "1", "400", "400")}
	supplement := []models.RawLineItem{
		raw("Body labor repair", "1", "400", "400"),
		raw("Hazardous waste disposal", "1", "50", "50"),
		raw("Hazardous waste disposal", "1", "50", "50"),
	}

	a, err := e.Compare("CLM-1005", original, supplement)
	require.NoError(t, err)

	var dup *models.Discrepancy
	for i := range a.Discrepancies {
		if a.Discrepancies[i].Type == models.DiscrepancyDuplicateItem {
			dup = &a.Discrepancies[i]
		}
	}
	require.NotNil(t, dup, "duplicate supplement entries should be flagged")
	assert.Len(t, dup.ItemIDs, 2)
	assert.True(t, dup.Impact.Equal(decimal.RequireFromString("50")))
}

func TestCompareCalculationErrorSurfaces(t *testing.T) {
	e := newEngine(t)

	// 2 x 50 stated as 90: the item is downgraded and the discrepancy
	// list carries the arithmetic gap.
	original := []models.RawLineItem{raw("Paint supplies", "2", "50", "90")}

	a, err := e.Compare("CLM-1006", original, nil)
	require.NoError(t, err)

	require.Len(t, a.Original, 1)
	assert.False(t, a.Original[0].Valid)
	assert.NotEmpty(t, a.Original[0].Warnings)
	assert.LessOrEqual(t, a.Original[0].Confidence, 0.25)

	found := false
	for _, d := range a.Discrepancies {
		if d.Type == models.DiscrepancyCalculationError {
			found = true
		}
	}
	assert.True(t, found, "calculation error should be reported")
}

func TestCompareRejectsNegativeQuantity(t *testing.T) {
	e := newEngine(t)

	_, err := e.Compare("CLM-1007", []models.RawLineItem{raw("Body labor repair", "-1", "400", "-400")}, nil)
	require.Error(t, err)

	var vErr *ingest.ValidationError
	require.True(t, errors.As(err, &vErr))
	assert.Equal(t, models.SideOriginal, vErr.Side)
	assert.Equal(t, 0, vErr.Index)
}

func TestCompareStableIDs(t *testing.T) {
	e := newEngine(t)

	supplement := []models.RawLineItem{
		raw("Hazardous waste disposal", "1", "50", "50"),
		raw("Hazardous waste disposal", "1", "50", "50"),
	}
	a, err := e.Compare("CLM-1008", nil, supplement)
	require.NoError(t, err)

	// Identical descriptions still get distinct, position-derived IDs.
	require.Len(t, a.Supplement, 2)
	assert.NotEqual(t, a.Supplement[0].ID, a.Supplement[1].ID)

	// The same input yields the same IDs on a fresh engine.
	b, err := newEngine(t).Compare("CLM-1008", nil, supplement)
	require.NoError(t, err)
	assert.Equal(t, a.Supplement[0].ID, b.Supplement[0].ID)
	assert.Equal(t, a.Supplement[1].ID, b.Supplement[1].ID)
}

func TestCompareDeterministic(t *testing.T) {
	e := newEngine(t)

	original := []models.RawLineItem{
		raw("Body labor repair", "4", "100", "400"),
		raw("Front bumper cover", "1", "350", "350"),
		raw("Paint labor blend fender", "1", "180", "180"),
		raw("Shop supplies", "1", "50", "50"),
	}
	supplement := []models.RawLineItem{
		raw("Paint labor blend front fender", "1", "180", "180"),
		raw("Body labor repair", "6", "100", "600"),
		raw("Additional diagnostic service", "1", "120", "120"),
		raw("Hazardous waste disposal", "1", "50", "50"),
		raw("Hazardous waste disposal", "1", "50", "50"),
	}

	first, err := e.Compare("CLM-1009", original, supplement)
	require.NoError(t, err)
	second, err := e.Compare("CLM-1009", original, supplement)
	require.NoError(t, err)

	// Everything except processing metadata must be bit-identical.
	first.Metadata = models.ProcessingMetadata{}
	second.Metadata = models.ProcessingMetadata{}
	firstJSON, err := json.Marshal(first)
	require.NoError(t, err)
	secondJSON, err := json.Marshal(second)
	require.NoError(t, err)
	assert.Equal(t, string(firstJSON), string(secondJSON))
}

func TestCompareSubCentReconstruction(t *testing.T) {
	e := newEngine(t)

	// Ten lines each repriced by $0.004. Per-item rounding would report
	// every delta as zero while the grand total moves by $0.04; the net
	// change must instead equal the bottom-up sum of the deltas exactly.
	descs := []string{
		"Door trim clip",
		"Fender liner rivet",
		"Bumper grommet",
		"Hood insulator pin",
		"Wheel arch screw",
		"Tailgate bumper stop",
		"Mirror gasket",
		"Grille retainer",
		"Splash shield bolt",
		"Cowl seal strip",
	}
	original := make([]models.RawLineItem, 0, len(descs))
	supplement := make([]models.RawLineItem, 0, len(descs))
	for _, d := range descs {
		original = append(original, raw(d, "1", "10.37", "10.37"))
		supplement = append(supplement, raw(d, "1", "10.374", "10.374"))
	}

	a, err := e.Compare("CLM-1011", original, supplement)
	require.NoError(t, err)
	require.Len(t, a.Reconciliation.Matched, len(descs))

	bottomUp := decimal.Zero
	for _, v := range a.Variances {
		bottomUp = bottomUp.Add(v.TotalDelta)
	}
	assert.True(t, bottomUp.Equal(decimal.RequireFromString("0.04")), "bottom-up sum = %s", bottomUp)
	assert.True(t, a.Statistics.GrandTotal.NetChange.Equal(bottomUp),
		"net change %s disagrees with bottom-up sum %s", a.Statistics.GrandTotal.NetChange, bottomUp)
}

func TestComparePartitionAccountsForEveryItem(t *testing.T) {
	e := newEngine(t)

	original := []models.RawLineItem{
		raw("Body labor repair", "4", "100", "400"),
		raw("Front bumper cover", "1", "350", "350"),
		raw("Paint supplies", "1", "120", "120"),
	}
	supplement := []models.RawLineItem{
		raw("Body labor repair", "6", "100", "600"),
		raw("Frame machine setup", "1", "200", "200"),
	}

	a, err := e.Compare("CLM-1010", original, supplement)
	require.NoError(t, err)

	r := a.Reconciliation
	assert.Equal(t, len(original), len(r.Matched)+len(r.UnmatchedOriginal))
	assert.Equal(t, len(supplement), len(r.Matched)+len(r.NewSupplement))

	// One variance record per item disposition.
	assert.Len(t, a.Variances, len(r.Matched)+len(r.UnmatchedOriginal)+len(r.NewSupplement))
}
