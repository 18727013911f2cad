package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"estimate_recon/pkg/models"
)

// AnalysisRepo persists comparison analyses for the review UI. The
// engine itself never touches storage; callers that want persistence
// hand completed analyses to this repository.
type AnalysisRepo struct{}

// NewAnalysisRepo creates a new repository instance.
func NewAnalysisRepo() *AnalysisRepo {
	return &AnalysisRepo{}
}

// Save upserts the analysis for a claim. The risk score is broken out
// into its own column so the review queue can sort without unpacking
// the JSONB blob.
//
// Schema assumption (managed by migrations elsewhere):
//
//	CREATE TABLE IF NOT EXISTS estimate_comparisons (
//	  claim_id TEXT PRIMARY KEY,
//	  risk_score DOUBLE PRECISION,
//	  risk_level TEXT,
//	  analysis_json JSONB,
//	  updated_at TIMESTAMPTZ
//	);
func (r *AnalysisRepo) Save(ctx context.Context, analysis *models.ComparisonAnalysis) error {
	pool := GetPool()
	if pool == nil {
		return fmt.Errorf("database pool not initialized")
	}

	jsonData, err := json.Marshal(analysis)
	if err != nil {
		return fmt.Errorf("failed to marshal analysis: %w", err)
	}

	query := `
		INSERT INTO estimate_comparisons (claim_id, risk_score, risk_level, analysis_json, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (claim_id)
		DO UPDATE SET
			risk_score = EXCLUDED.risk_score,
			risk_level = EXCLUDED.risk_level,
			analysis_json = EXCLUDED.analysis_json,
			updated_at = EXCLUDED.updated_at;
	`

	_, err = pool.Exec(ctx, query,
		analysis.ClaimID, analysis.Risk.Score, string(analysis.Risk.Level), jsonData, time.Now())
	if err != nil {
		return fmt.Errorf("failed to save analysis: %w", err)
	}
	return nil
}

// Load retrieves the stored analysis for a claim. Returns (nil, nil)
// when no analysis exists yet.
func (r *AnalysisRepo) Load(ctx context.Context, claimID string) (*models.ComparisonAnalysis, error) {
	pool := GetPool()
	if pool == nil {
		return nil, fmt.Errorf("database pool not initialized")
	}

	var jsonData []byte
	query := `SELECT analysis_json FROM estimate_comparisons WHERE claim_id = $1`
	err := pool.QueryRow(ctx, query, claimID).Scan(&jsonData)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load analysis for %s: %w", claimID, err)
	}

	var analysis models.ComparisonAnalysis
	if err := json.Unmarshal(jsonData, &analysis); err != nil {
		return nil, fmt.Errorf("failed to unmarshal analysis for %s: %w", claimID, err)
	}
	return &analysis, nil
}
