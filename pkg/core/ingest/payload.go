// Package ingest turns extraction-service output into RawLineItems.
// The upstream document-understanding service is outside our control
// and its payloads arrive sloppy often enough that parsing is tolerant:
// malformed JSON gets one repair pass before we give up, and malformed
// individual items are flagged rather than fatal.
package ingest

import (
	"encoding/json"
	"fmt"
	"strings"

	jsonrepair "github.com/RealAlexandreAI/json-repair"
	"github.com/shopspring/decimal"

	"estimate_recon/pkg/models"
)

// ComparisonRequest is the wire shape the extraction collaborator (and
// the HTTP API) delivers: two ordered raw item lists for one claim.
// Config optionally carries per-request engine overrides; it stays raw
// here so the caller's fields overlay the server configuration instead
// of replacing it wholesale.
type ComparisonRequest struct {
	ClaimID    string          `json:"claim_id"`
	Original   []RawItemJSON   `json:"original"`
	Supplement []RawItemJSON   `json:"supplement"`
	Config     json.RawMessage `json:"config,omitempty"`
}

// RawItemJSON accepts numbers as JSON numbers or strings, since the
// extraction service emits both depending on the source document.
type RawItemJSON struct {
	Description  string     `json:"description"`
	Quantity     FlexNumber `json:"quantity"`
	UnitPrice    FlexNumber `json:"unit_price"`
	Total        FlexNumber `json:"total"`
	CategoryHint string     `json:"category_hint,omitempty"`
}

// FlexNumber decodes a numeric field whether it arrives bare (50) or
// quoted ("50"). Validation of the content is deferred to conversion.
type FlexNumber string

func (n *FlexNumber) UnmarshalJSON(data []byte) error {
	*n = FlexNumber(strings.Trim(string(data), `"`))
	return nil
}

// ParseRequest decodes a comparison request, attempting a JSON repair
// pass (trailing commas, single quotes, fence blocks) before failing.
func ParseRequest(data []byte) (*ComparisonRequest, error) {
	var req ComparisonRequest
	if err := json.Unmarshal(data, &req); err != nil {
		repaired, repairErr := jsonrepair.RepairJSON(string(data))
		if repairErr != nil {
			return nil, fmt.Errorf("could not parse comparison request: %w", err)
		}
		if err := json.Unmarshal([]byte(repaired), &req); err != nil {
			return nil, fmt.Errorf("could not parse repaired comparison request: %w", err)
		}
	}
	return &req, nil
}

// ParseItemList decodes a bare array of line items, with the same
// repair fallback as ParseRequest.
func ParseItemList(data []byte) ([]RawItemJSON, error) {
	var items []RawItemJSON
	if err := json.Unmarshal(data, &items); err != nil {
		repaired, repairErr := jsonrepair.RepairJSON(string(data))
		if repairErr != nil {
			return nil, fmt.Errorf("could not parse item list: %w", err)
		}
		if err := json.Unmarshal([]byte(repaired), &items); err != nil {
			return nil, fmt.Errorf("could not parse repaired item list: %w", err)
		}
	}
	return items, nil
}

// ToRawLineItems converts wire items to domain items. Unparseable
// numbers become zero values; the per-item warning surfaces later
// through validation instead of aborting the run.
func ToRawLineItems(items []RawItemJSON) []models.RawLineItem {
	out := make([]models.RawLineItem, 0, len(items))
	for _, it := range items {
		out = append(out, models.RawLineItem{
			Description:  it.Description,
			Quantity:     parseNumber(it.Quantity),
			UnitPrice:    parseNumber(it.UnitPrice),
			Total:        parseNumber(it.Total),
			CategoryHint: it.CategoryHint,
		})
	}
	return out
}

func parseNumber(n FlexNumber) decimal.Decimal {
	if n == "" || n == "null" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(string(n))
	if err != nil {
		return decimal.Zero
	}
	return d
}
