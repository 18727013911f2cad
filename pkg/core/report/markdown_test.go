package report

import (
	"strings"
	"testing"

	"github.com/shopspring/decimal"

	"estimate_recon/pkg/core/config"
	"estimate_recon/pkg/core/pipeline"
	"estimate_recon/pkg/models"
)

func analysisFixture(t *testing.T) *models.ComparisonAnalysis {
	t.Helper()
	engine, err := pipeline.NewComparisonEngine(config.Default())
	if err != nil {
		t.Fatal(err)
	}
	raw := func(desc, qty, price, total string) models.RawLineItem {
		return models.RawLineItem{
			Description: desc,
			Quantity:    decimal.RequireFromString(qty),
			UnitPrice:   decimal.RequireFromString(price),
			Total:       decimal.RequireFromString(total),
		}
	}
	a, err := engine.Compare("CLM-99",
		[]models.RawLineItem{
			raw("Body labor repair", "4", "100", "400"),
			raw("Front bumper cover", "1", "350", "350"),
		},
		[]models.RawLineItem{
			raw("Body labor repair", "6", "100", "600"),
			raw("Additional diagnostic service", "1", "120", "120"),
		})
	if err != nil {
		t.Fatal(err)
	}
	return a
}

func TestMarkdownContent(t *testing.T) {
	a := analysisFixture(t)
	out := Markdown(a)

	for _, want := range []string{
		"# Supplement Review - Claim CLM-99",
		"| Original | $750.00 |",
		"| Supplement | $720.00 |",
		"## Categories",
		"## Reconciliation",
		string(a.Risk.Level),
		a.Metadata.EngineVersion,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("markdown missing %q", want)
		}
	}
}

func TestMarkdownDeterministic(t *testing.T) {
	a := analysisFixture(t)
	if Markdown(a) != Markdown(a) {
		t.Error("rendering the same analysis twice produced different output")
	}
}

func TestHTMLRendersTables(t *testing.T) {
	a := analysisFixture(t)
	html, err := HTML(a)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(html, "<h1") {
		t.Error("expected an h1 heading in the HTML output")
	}
	if !strings.Contains(html, "<table") {
		t.Error("expected the totals table to render as an HTML table")
	}
}
