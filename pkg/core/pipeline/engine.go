// Package pipeline wires the comparison stages together:
// classify -> reconcile -> variance -> statistics -> discrepancy -> risk.
// The engine is a pure transformation over its inputs; it performs no
// I/O, holds no state across invocations, and concurrent calls for
// different claims need no locking.
package pipeline

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"estimate_recon/pkg/core/classify"
	"estimate_recon/pkg/core/config"
	"estimate_recon/pkg/core/discrepancy"
	"estimate_recon/pkg/core/ingest"
	"estimate_recon/pkg/core/reconcile"
	"estimate_recon/pkg/core/risk"
	"estimate_recon/pkg/core/stats"
	"estimate_recon/pkg/core/variance"
	"estimate_recon/pkg/models"
)

// EngineVersion is stamped into processing metadata.
const EngineVersion = "1.2.0"

// ComparisonEngine runs the full analysis for one claim.
type ComparisonEngine struct {
	cfg        config.EngineConfig
	classifier *classify.Classifier
	matcher    *reconcile.Matcher
	calculator *variance.Calculator
	aggregator *stats.Aggregator
	detector   *discrepancy.Detector

	calcTolerance decimal.Decimal
}

// NewComparisonEngine validates the configuration and builds all
// stages. The returned engine is safe for concurrent use.
func NewComparisonEngine(cfg config.EngineConfig) (*ComparisonEngine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid engine config: %w", err)
	}
	return &ComparisonEngine{
		cfg:           cfg,
		classifier:    classify.NewClassifier(classify.DefaultRules(), cfg.RuleWeights),
		matcher:       reconcile.NewMatcher(cfg),
		calculator:    variance.NewCalculator(cfg),
		aggregator:    stats.NewAggregator(cfg),
		detector:      discrepancy.NewDetector(cfg),
		calcTolerance: decimal.RequireFromString(cfg.CalcTolerance),
	}, nil
}

// Compare reconciles an original estimate against its supplement and
// returns the complete analysis. Empty lists are valid input; only
// structurally impossible items or an internal matching invariant
// breach produce an error.
func (e *ComparisonEngine) Compare(claimID string, original, supplement []models.RawLineItem) (*models.ComparisonAnalysis, error) {
	start := time.Now()

	if err := ingest.CheckStructural(models.SideOriginal, original); err != nil {
		return nil, err
	}
	if err := ingest.CheckStructural(models.SideSupplement, supplement); err != nil {
		return nil, err
	}

	classifiedOrig := e.classifyAndFlag(original, models.SideOriginal)
	classifiedSupp := e.classifyAndFlag(supplement, models.SideSupplement)

	recon, err := e.matcher.Reconcile(classifiedOrig, classifiedSupp)
	if err != nil {
		return nil, err
	}

	variances := e.calculator.ForResult(recon)
	statistics := e.aggregator.Aggregate(classifiedOrig, classifiedSupp, variances)
	discrepancies := e.detector.Detect(classifiedOrig, classifiedSupp, recon)
	assessment := risk.Score(statistics, discrepancies)

	return &models.ComparisonAnalysis{
		ClaimID:        claimID,
		Original:       classifiedOrig,
		Supplement:     classifiedSupp,
		Reconciliation: *recon,
		Variances:      variances,
		Statistics:     statistics,
		Discrepancies:  discrepancies,
		Risk:           assessment,
		Metadata: models.ProcessingMetadata{
			GeneratedAt:   start.UTC(),
			Duration:      time.Since(start),
			EngineVersion: EngineVersion,
		},
	}, nil
}

// classifyAndFlag classifies a side and attaches validation warnings.
// Items with warnings stay in the pipeline (the partition invariants
// cover them) but drop out of strict quality calculations.
func (e *ComparisonEngine) classifyAndFlag(items []models.RawLineItem, side models.EstimateSide) []models.ClassifiedLineItem {
	classified := e.classifier.ClassifyAll(items, side)
	for i := range classified {
		warnings := ingest.ItemWarnings(classified[i].RawLineItem, e.calcTolerance)
		if len(warnings) > 0 {
			classified[i].Warnings = warnings
			classified[i].Valid = false
			// Low confidence mirrors low trust in the extraction.
			if classified[i].Confidence > 0.25 {
				classified[i].Confidence = 0.25
			}
		}
	}
	return classified
}
