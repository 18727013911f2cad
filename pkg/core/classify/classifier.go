// Package classify assigns cost categories to raw line items using an
// ordered, inspectable rule table. Classification is a pure function:
// same item and rule set in, same category and confidence out.
package classify

import (
	"sort"
	"strings"

	"estimate_recon/pkg/core/normalize"
	"estimate_recon/pkg/models"
)

// Classifier evaluates a rule table in priority order.
type Classifier struct {
	rules   []Rule
	weights map[models.CostCategory]float64
}

// NewClassifier builds a classifier over the given rules. Rules are
// sorted by (priority, name) once so evaluation order is deterministic
// regardless of how the table was assembled. weights may be nil.
func NewClassifier(rules []Rule, weights map[string]float64) *Classifier {
	sorted := make([]Rule, len(rules))
	copy(sorted, rules)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Priority != sorted[j].Priority {
			return sorted[i].Priority < sorted[j].Priority
		}
		return sorted[i].Name < sorted[j].Name
	})

	w := make(map[models.CostCategory]float64, len(weights))
	for name, v := range weights {
		if cat, ok := models.ParseCategory(name); ok {
			w[cat] = v
		}
	}
	return &Classifier{rules: sorted, weights: w}
}

// Classify returns the category and confidence for one raw item.
// The first rule whose trigger conditions are satisfied wins; no match
// yields CategoryOther with confidence 0.
func (c *Classifier) Classify(item models.RawLineItem) (models.CostCategory, float64) {
	desc := strings.ToLower(item.Description)

	for _, rule := range c.rules {
		signals := 0
		agreed := 0

		keywordHit := false
		if len(rule.Keywords) > 0 {
			signals++
			for _, kw := range rule.Keywords {
				if strings.Contains(desc, kw) {
					keywordHit = true
					break
				}
			}
			if keywordHit {
				agreed++
			}
		}

		patternHit := false
		if rule.Pattern != nil {
			signals++
			if rule.Pattern.MatchString(desc) {
				patternHit = true
				agreed++
			}
		}

		// A rule only triggers on textual evidence.
		if !keywordHit && !patternHit {
			continue
		}

		if rule.PriceMin != nil && rule.PriceMax != nil {
			signals++
			if item.UnitPrice.GreaterThanOrEqual(*rule.PriceMin) &&
				item.UnitPrice.LessThanOrEqual(*rule.PriceMax) {
				agreed++
			}
		}

		if item.CategoryHint != "" {
			signals++
			if hint, ok := models.ParseCategory(item.CategoryHint); ok && hint == rule.Category {
				agreed++
			}
		}

		confidence := float64(agreed) / float64(signals)
		if w, ok := c.weights[rule.Category]; ok {
			confidence *= w
		}
		if confidence > 1 {
			confidence = 1
		}
		return rule.Category, confidence
	}

	return models.CategoryOther, 0
}

// ClassifyAll classifies a full item list, assigning side, index, and a
// content-derived stable ID to each entry. Input order is preserved.
func (c *Classifier) ClassifyAll(items []models.RawLineItem, side models.EstimateSide) []models.ClassifiedLineItem {
	out := make([]models.ClassifiedLineItem, 0, len(items))
	for i, item := range items {
		cat, conf := c.Classify(item)
		out = append(out, models.ClassifiedLineItem{
			RawLineItem: item,
			ID:          normalize.ItemID(side, i, item.Description),
			Side:        side,
			Index:       i,
			Category:    cat,
			Confidence:  conf,
			Valid:       true,
		})
	}
	return out
}
