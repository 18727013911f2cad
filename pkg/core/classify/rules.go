package classify

import (
	"regexp"

	"github.com/shopspring/decimal"

	"estimate_recon/pkg/models"
)

// Rule is one entry in the ordered classification table. A rule triggers
// when at least one of its keywords or its pattern matches the
// normalized description; price bounds and the supplied category hint
// act as extra agreement signals that raise confidence but cannot
// trigger a rule on their own.
type Rule struct {
	Name     string
	Category models.CostCategory
	Priority int

	Keywords []string
	Pattern  *regexp.Regexp

	// Optional unit-price range hint, inclusive.
	PriceMin *decimal.Decimal
	PriceMax *decimal.Decimal
}

func dec(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

// DefaultRules is the shipped rule table for collision repair estimates.
// Rules are evaluated in ascending priority; the first triggered rule
// wins. Keeping this as data rather than conditional chains lets each
// rule be unit-tested on its own.
func DefaultRules() []Rule {
	return []Rule{
		{
			Name:     "labor-operations",
			Category: models.CategoryLabor,
			Priority: 10,
			Keywords: []string{
				"labor", "lbr", "r&i", "r & i", "remove and install",
				"refinish", "blend", "repair hrs", "body labor",
				"paint labor", "frame labor", "mechanical labor",
				"diagnostic", "aim headlamp", "calibrat",
			},
			Pattern: regexp.MustCompile(`\b\d+(\.\d+)?\s*(hrs?|hours)\b`),
		},
		{
			Name:     "replacement-parts",
			Category: models.CategoryParts,
			Priority: 20,
			Keywords: []string{
				"bumper", "fender", "grille", "hood", "door shell",
				"quarter panel", "headlamp", "tail lamp", "mirror",
				"radiator", "condenser", "absorber", "bracket",
				"molding", "emblem", "wheel", "tire", "sensor",
				"oem part", "a/m part", "assembly",
			},
			Pattern: regexp.MustCompile(`\bpart(s)?\b|\boem\b|\baftermarket\b`),
		},
		{
			Name:     "shop-materials",
			Category: models.CategoryMaterials,
			Priority: 30,
			Keywords: []string{
				"paint supplies", "paint materials", "shop supplies",
				"clear coat", "clearcoat", "primer", "sealant",
				"seam sealer", "adhesive", "corrosion protection",
				"flex additive", "materials",
			},
		},
		{
			Name:     "equipment-usage",
			Category: models.CategoryEquipment,
			Priority: 40,
			Keywords: []string{
				"frame machine", "measuring system", "spray booth",
				"welder", "equipment", "machine setup", "set up bench",
				"rental", "lift time",
			},
		},
		{
			Name:     "overhead-fees",
			Category: models.CategoryOverhead,
			Priority: 50,
			Keywords: []string{
				"hazardous waste", "disposal", "storage", "towing",
				"administrative", "admin fee", "sublet fee",
				"tax", "surcharge", "fee",
			},
			// Fees are rarely big-ticket; the range is an agreement
			// signal, not a gate.
			PriceMin: dec("0"),
			PriceMax: dec("500"),
		},
	}
}
