// Package reconcile pairs original-estimate line items with
// supplement-estimate line items through strictly ordered matching
// stages. The matcher is deterministic by construction: identical input
// (including input order) produces identical output on every run, with
// no randomness, no map-iteration dependence, and no clock-derived
// identity anywhere in the path.
package reconcile

import (
	"fmt"
	"sort"

	"github.com/shopspring/decimal"

	"estimate_recon/pkg/core/config"
	"estimate_recon/pkg/core/normalize"
	"estimate_recon/pkg/models"
)

// ReconciliationError reports an internal invariant violation in
// matching. It should never fire given the stage design; it exists so a
// bug surfaces loudly instead of corrupting the partition.
type ReconciliationError struct {
	OriginalCount   int
	SupplementCount int
	Reason          string
}

func (e *ReconciliationError) Error() string {
	return fmt.Sprintf("reconciliation invariant violated (%d original, %d supplement items): %s",
		e.OriginalCount, e.SupplementCount, e.Reason)
}

// Matcher runs the staged reconciliation.
type Matcher struct {
	cfg config.EngineConfig
}

// NewMatcher creates a matcher for one validated configuration.
func NewMatcher(cfg config.EngineConfig) *Matcher {
	return &Matcher{cfg: cfg}
}

// Reconcile partitions both lists into matched pairs and residuals.
// Empty inputs are valid and yield all-residual results.
func (m *Matcher) Reconcile(original, supplement []models.ClassifiedLineItem) (*models.ReconciliationResult, error) {
	st := newMatchState(original, supplement)

	if err := m.exactStage(st); err != nil {
		return nil, err
	}
	if m.cfg.EnableFuzzyMatching {
		if err := m.fuzzyStage(st); err != nil {
			return nil, err
		}
	}
	if err := m.fallbackStage(st); err != nil {
		return nil, err
	}

	result := st.finish()
	if err := verifyPartition(original, supplement, result); err != nil {
		return nil, err
	}
	return result, nil
}

// matchState tracks stage progress over both lists.
type matchState struct {
	original   []models.ClassifiedLineItem
	supplement []models.ClassifiedLineItem

	// Normalized descriptions, computed once.
	normOrig []string
	normSupp []string

	usedOrig []bool
	usedSupp []bool

	matched []models.MatchedItemPair
}

func newMatchState(original, supplement []models.ClassifiedLineItem) *matchState {
	st := &matchState{
		original:   original,
		supplement: supplement,
		normOrig:   make([]string, len(original)),
		normSupp:   make([]string, len(supplement)),
		usedOrig:   make([]bool, len(original)),
		usedSupp:   make([]bool, len(supplement)),
	}
	for i, it := range original {
		st.normOrig[i] = normalize.Description(it.Description)
	}
	for j, it := range supplement {
		st.normSupp[j] = normalize.Description(it.Description)
	}
	return st
}

// consume records a match, asserting neither side was already taken.
func (st *matchState) consume(i, j int, pair models.MatchedItemPair) error {
	if st.usedOrig[i] || st.usedSupp[j] {
		return &ReconciliationError{
			OriginalCount:   len(st.original),
			SupplementCount: len(st.supplement),
			Reason:          fmt.Sprintf("item consumed twice (original %d, supplement %d)", i, j),
		}
	}
	st.usedOrig[i] = true
	st.usedSupp[j] = true
	st.matched = append(st.matched, pair)
	return nil
}

// finish collects residuals and orders matched pairs by original input
// position for stable presentation.
func (st *matchState) finish() *models.ReconciliationResult {
	sort.SliceStable(st.matched, func(a, b int) bool {
		return st.matched[a].Original.Index < st.matched[b].Original.Index
	})

	result := &models.ReconciliationResult{
		Matched:           st.matched,
		UnmatchedOriginal: make([]models.ResidualItem, 0),
		NewSupplement:     make([]models.ResidualItem, 0),
	}
	for i, it := range st.original {
		if !st.usedOrig[i] {
			result.UnmatchedOriginal = append(result.UnmatchedOriginal,
				models.ResidualItem{Item: it, Kind: models.ResidualRemoved})
		}
	}
	for j, it := range st.supplement {
		if !st.usedSupp[j] {
			result.NewSupplement = append(result.NewSupplement,
				models.ResidualItem{Item: it, Kind: models.ResidualNew})
		}
	}
	return result
}

// exactStage pairs items with identical normalized description and
// identical category. Ties between identical-description candidates are
// broken by closest total amount, then by input order.
func (m *Matcher) exactStage(st *matchState) error {
	for i := range st.original {
		if st.usedOrig[i] {
			continue
		}
		best := -1
		var bestGap decimal.Decimal
		for j := range st.supplement {
			if st.usedSupp[j] {
				continue
			}
			if st.normOrig[i] != st.normSupp[j] || st.original[i].Category != st.supplement[j].Category {
				continue
			}
			gap := st.original[i].Total.Sub(st.supplement[j].Total).Abs()
			if best == -1 || gap.LessThan(bestGap) {
				best = j
				bestGap = gap
			}
		}
		if best == -1 {
			continue
		}
		prox := priceProximity(st.original[i].UnitPrice, st.supplement[best].UnitPrice)
		pair := models.MatchedItemPair{
			Original:   st.original[i],
			Supplement: st.supplement[best],
			Score:      1,
			Stage:      models.StageExact,
			Signals: models.MatchSignals{
				DescriptionSimilarity: 1,
				CategoryMatch:         true,
				PriceProximity:        prox,
			},
		}
		if err := st.consume(i, best, pair); err != nil {
			return err
		}
	}
	return nil
}

// fuzzyCandidate is one scored original/supplement pairing.
type fuzzyCandidate struct {
	i, j    int
	score   float64
	signals models.MatchSignals
}

// fuzzyStage scores every remaining cross pairing and assigns greedily
// in descending score order, so each item is consumed at most once and
// conflicts always resolve the same way.
func (m *Matcher) fuzzyStage(st *matchState) error {
	var candidates []fuzzyCandidate
	for i := range st.original {
		if st.usedOrig[i] {
			continue
		}
		for j := range st.supplement {
			if st.usedSupp[j] {
				continue
			}
			categoryMatch := st.original[i].Category == st.supplement[j].Category
			if m.cfg.RequireCategoryMatch && !categoryMatch {
				continue
			}
			descSim := descriptionSimilarity(st.normOrig[i], st.normSupp[j])
			if descSim < m.cfg.FuzzyThreshold {
				continue
			}
			prox := priceProximity(st.original[i].UnitPrice, st.supplement[j].UnitPrice)
			score := compositeScore(descSim, categoryMatch, prox)
			if score < m.cfg.FuzzyThreshold {
				continue
			}
			candidates = append(candidates, fuzzyCandidate{
				i: i, j: j, score: score,
				signals: models.MatchSignals{
					DescriptionSimilarity: descSim,
					CategoryMatch:         categoryMatch,
					PriceProximity:        prox,
				},
			})
		}
	}

	sort.SliceStable(candidates, func(a, b int) bool {
		if candidates[a].score != candidates[b].score {
			return candidates[a].score > candidates[b].score
		}
		if candidates[a].i != candidates[b].i {
			return candidates[a].i < candidates[b].i
		}
		return candidates[a].j < candidates[b].j
	})

	for _, c := range candidates {
		if st.usedOrig[c.i] || st.usedSupp[c.j] {
			continue
		}
		pair := models.MatchedItemPair{
			Original:   st.original[c.i],
			Supplement: st.supplement[c.j],
			Score:      c.score,
			Stage:      models.StageFuzzy,
			Signals:    c.signals,
		}
		if err := st.consume(c.i, c.j, pair); err != nil {
			return err
		}
	}
	return nil
}

// fallbackStage catches rewordings the fuzzy threshold rejected: same
// category, unchanged quantity, price within the configured relative
// tolerance.
func (m *Matcher) fallbackStage(st *matchState) error {
	tolerance := decimal.NewFromFloat(m.cfg.PriceTolerance)
	for i := range st.original {
		if st.usedOrig[i] {
			continue
		}
		orig := st.original[i]
		best := -1
		var bestGap decimal.Decimal
		for j := range st.supplement {
			if st.usedSupp[j] {
				continue
			}
			supp := st.supplement[j]
			if orig.Category != supp.Category || !orig.Quantity.Equal(supp.Quantity) {
				continue
			}
			gap := orig.UnitPrice.Sub(supp.UnitPrice).Abs()
			if orig.UnitPrice.IsZero() {
				// No relative window exists on a zero baseline.
				if !supp.UnitPrice.IsZero() {
					continue
				}
			} else if gap.GreaterThan(orig.UnitPrice.Abs().Mul(tolerance)) {
				continue
			}
			if best == -1 || gap.LessThan(bestGap) {
				best = j
				bestGap = gap
			}
		}
		if best == -1 {
			continue
		}
		descSim := descriptionSimilarity(st.normOrig[i], st.normSupp[best])
		prox := priceProximity(orig.UnitPrice, st.supplement[best].UnitPrice)
		pair := models.MatchedItemPair{
			Original:   orig,
			Supplement: st.supplement[best],
			Score:      compositeScore(descSim, true, prox),
			Stage:      models.StageFallback,
			Signals: models.MatchSignals{
				DescriptionSimilarity: descSim,
				CategoryMatch:         true,
				PriceProximity:        prox,
			},
		}
		if err := st.consume(i, best, pair); err != nil {
			return err
		}
	}
	return nil
}

// verifyPartition asserts the partition invariants: every item lands in
// exactly one bucket and no ID appears twice.
func verifyPartition(original, supplement []models.ClassifiedLineItem, r *models.ReconciliationResult) error {
	fail := func(reason string) error {
		return &ReconciliationError{
			OriginalCount:   len(original),
			SupplementCount: len(supplement),
			Reason:          reason,
		}
	}

	if len(r.Matched)+len(r.UnmatchedOriginal) != len(original) {
		return fail("original items not fully partitioned")
	}
	if len(r.Matched)+len(r.NewSupplement) != len(supplement) {
		return fail("supplement items not fully partitioned")
	}

	seen := make(map[string]bool, len(original)+len(supplement))
	mark := func(id string) error {
		if seen[id] {
			return fail(fmt.Sprintf("item %s appears in two partitions", id))
		}
		seen[id] = true
		return nil
	}
	for _, p := range r.Matched {
		if err := mark(p.Original.ID); err != nil {
			return err
		}
		if err := mark(p.Supplement.ID); err != nil {
			return err
		}
	}
	for _, res := range r.UnmatchedOriginal {
		if err := mark(res.Item.ID); err != nil {
			return err
		}
	}
	for _, res := range r.NewSupplement {
		if err := mark(res.Item.ID); err != nil {
			return err
		}
	}
	return nil
}
