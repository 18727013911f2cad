package reconcile

import (
	"math"
	"testing"

	"github.com/shopspring/decimal"
)

func TestDescriptionSimilarity(t *testing.T) {
	cases := []struct {
		a, b string
		want float64
	}{
		{"front bumper cover", "front bumper cover", 1},
		{"", "", 1},
		// Distance 1 over max length 25.
		{"install rear bumper cover", "instal rear bumper cover", 1 - 1.0/25},
		// Distance 4 over max length 18.
		{"replace hood panel", "replace hood hinge", 1 - 4.0/18},
		{"abc", "xyz", 0},
	}
	for _, c := range cases {
		got := descriptionSimilarity(c.a, c.b)
		if math.Abs(got-c.want) > 0.0001 {
			t.Errorf("descriptionSimilarity(%q, %q) = %f, want %f", c.a, c.b, got, c.want)
		}
	}
}

func TestPriceProximity(t *testing.T) {
	d := decimal.RequireFromString

	if got := priceProximity(d("50"), d("50")); got != 1 {
		t.Errorf("equal prices: got %f", got)
	}
	if got := priceProximity(d("0"), d("0")); got != 1 {
		t.Errorf("both zero: got %f", got)
	}
	if got := priceProximity(d("0"), d("50")); got != 0 {
		t.Errorf("zero vs nonzero: got %f", got)
	}
	// |120-180| / 180 = 1/3 away.
	if got := priceProximity(d("120"), d("180")); math.Abs(got-2.0/3) > 0.0001 {
		t.Errorf("120 vs 180: got %f, want 2/3", got)
	}
}

func TestCompositeScore(t *testing.T) {
	// 0.70*0.8 + 0.15 + 0.15*0.5 = 0.785
	got := compositeScore(0.8, true, 0.5)
	if math.Abs(got-0.785) > 0.0001 {
		t.Errorf("compositeScore = %f, want 0.785", got)
	}
	// Without the category bonus: 0.56 + 0.075 = 0.635
	got = compositeScore(0.8, false, 0.5)
	if math.Abs(got-0.635) > 0.0001 {
		t.Errorf("compositeScore = %f, want 0.635", got)
	}
}
