// Package report renders a comparison analysis as a markdown summary,
// with an HTML conversion for callers that want something viewable
// directly. Rendering is deterministic: the same analysis always
// produces the same bytes.
package report

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"estimate_recon/pkg/models"
)

// md renders GFM so the summary tables survive conversion.
var md = goldmark.New(goldmark.WithExtensions(extension.GFM))

// Markdown renders the analysis summary.
func Markdown(a *models.ComparisonAnalysis) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# Supplement Review - Claim %s\n\n", a.ClaimID)
	fmt.Fprintf(&b, "Risk: **%.1f / 100 (%s)**\n\n", a.Risk.Score, a.Risk.Level)

	gt := a.Statistics.GrandTotal
	fmt.Fprintf(&b, "## Totals\n\n")
	fmt.Fprintf(&b, "| | Amount |\n|---|---|\n")
	fmt.Fprintf(&b, "| Original | $%s |\n", gt.OriginalTotal.StringFixed(2))
	fmt.Fprintf(&b, "| Supplement | $%s |\n", gt.SupplementTotal.StringFixed(2))
	if gt.PctChange != nil {
		fmt.Fprintf(&b, "| Net change | $%s (%s%%) |\n\n", gt.NetChange.StringFixed(2), gt.PctChange.StringFixed(2))
	} else {
		fmt.Fprintf(&b, "| Net change | $%s |\n\n", gt.NetChange.StringFixed(2))
	}

	fmt.Fprintf(&b, "## Categories\n\n")
	fmt.Fprintf(&b, "| Category | Original | Supplement | Net | Items | Significant |\n")
	fmt.Fprintf(&b, "|---|---|---|---|---|---|\n")
	for _, c := range a.Statistics.Categories {
		if c.ItemCount == 0 && c.OriginalTotal.IsZero() && c.SupplementTotal.IsZero() {
			continue
		}
		fmt.Fprintf(&b, "| %s | $%s | $%s | $%s | %d | %d |\n",
			c.Category, c.OriginalTotal.StringFixed(2), c.SupplementTotal.StringFixed(2),
			c.NetChange.StringFixed(2), c.ItemCount, c.SignificantCount)
	}
	b.WriteString("\n")

	d := a.Statistics.Distribution
	fmt.Fprintf(&b, "## Reconciliation\n\n")
	fmt.Fprintf(&b, "%d matched, %d removed, %d new (%d increases, %d decreases, %d unchanged)\n\n",
		len(a.Reconciliation.Matched), d.Removed, d.New, d.Increases, d.Decreases, d.Unchanged)

	if len(a.Discrepancies) > 0 {
		fmt.Fprintf(&b, "## Discrepancies\n\n")
		for _, disc := range a.Discrepancies {
			fmt.Fprintf(&b, "- **%s** [%s, $%s]: %s\n",
				disc.Type, disc.Severity, disc.Impact.StringFixed(2), disc.Description)
		}
		b.WriteString("\n")
	}

	if len(a.Risk.Recommendations) > 0 {
		fmt.Fprintf(&b, "## Recommendations\n\n")
		for i, rec := range a.Risk.Recommendations {
			fmt.Fprintf(&b, "%d. %s\n", i+1, rec)
		}
		b.WriteString("\n")
	}

	fmt.Fprintf(&b, "---\nGenerated %s by engine %s\n",
		a.Metadata.GeneratedAt.Format("2006-01-02 15:04:05 UTC"), a.Metadata.EngineVersion)
	return b.String()
}

// HTML converts the markdown summary to HTML.
func HTML(a *models.ComparisonAnalysis) (string, error) {
	var buf bytes.Buffer
	if err := md.Convert([]byte(Markdown(a)), &buf); err != nil {
		return "", fmt.Errorf("could not render report HTML: %w", err)
	}
	return buf.String(), nil
}
