package ingest

import (
	"fmt"
	"io"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/shopspring/decimal"

	"estimate_recon/pkg/models"
)

// ImportHTMLTable extracts line items from an HTML estimate export.
// Estimating systems commonly hand adjusters an HTML table with
// description, quantity, unit price, and total columns, in that order;
// rows that don't parse as line items (headers, section dividers,
// subtotal rows) are skipped.
func ImportHTMLTable(r io.Reader) ([]models.RawLineItem, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("could not parse HTML estimate: %w", err)
	}

	var items []models.RawLineItem
	doc.Find("table tr").Each(func(_ int, row *goquery.Selection) {
		cells := row.Find("td")
		if cells.Length() < 4 {
			return
		}
		desc := strings.TrimSpace(cells.Eq(0).Text())
		if desc == "" {
			return
		}
		qty, err1 := parseMoneyText(cells.Eq(1).Text())
		price, err2 := parseMoneyText(cells.Eq(2).Text())
		total, err3 := parseMoneyText(cells.Eq(3).Text())
		if err1 != nil || err2 != nil || err3 != nil {
			return
		}
		items = append(items, models.RawLineItem{
			Description: desc,
			Quantity:    qty,
			UnitPrice:   price,
			Total:       total,
		})
	})

	if len(items) == 0 {
		return nil, fmt.Errorf("no line items found in HTML estimate")
	}
	return items, nil
}

// parseMoneyText strips currency formatting ("$1,234.50") and parses
// the remainder as a decimal.
func parseMoneyText(s string) (decimal.Decimal, error) {
	cleaned := strings.TrimSpace(s)
	cleaned = strings.ReplaceAll(cleaned, "$", "")
	cleaned = strings.ReplaceAll(cleaned, ",", "")
	if cleaned == "" {
		return decimal.Zero, fmt.Errorf("empty cell")
	}
	return decimal.NewFromString(cleaned)
}
