// Package comparison exposes the estimate comparison engine over HTTP
// for the review UI. Handlers are thin: decode, run, persist when a
// store is available, respond.
package comparison

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"

	"estimate_recon/pkg/core/config"
	"estimate_recon/pkg/core/ingest"
	"estimate_recon/pkg/core/pipeline"
	"estimate_recon/pkg/core/report"
	"estimate_recon/pkg/core/store"
)

var (
	engineConfig config.EngineConfig
	analysisRepo *store.AnalysisRepo
)

// InitHandler sets the shared configuration and optional repository.
// repo may be nil when persistence is not configured.
func InitHandler(cfg config.EngineConfig, repo *store.AnalysisRepo) {
	engineConfig = cfg
	analysisRepo = repo
}

// HandleCompare runs the engine for one claim.
// POST /api/compare with an ingest.ComparisonRequest body; responds
// with the full ComparisonAnalysis JSON.
func HandleCompare(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusOK)
		return
	}
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	// Request IDs exist for log correlation only; nothing inside the
	// analysis derives from them.
	requestID := uuid.NewString()
	start := time.Now()

	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	req, err := ingest.ParseRequest(body)
	if err != nil {
		fmt.Printf("[COMPARE] %s rejected: %v\n", requestID, err)
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	fmt.Printf("[COMPARE] %s claim=%s original=%d supplement=%d\n",
		requestID, req.ClaimID, len(req.Original), len(req.Supplement))

	// Per-request overrides overlay the server configuration.
	cfg := engineConfig
	if len(req.Config) > 0 {
		if err := json.Unmarshal(req.Config, &cfg); err != nil {
			http.Error(w, fmt.Sprintf("invalid config override: %v", err), http.StatusBadRequest)
			return
		}
	}
	engine, err := pipeline.NewComparisonEngine(cfg)
	if err != nil {
		status := http.StatusInternalServerError
		if len(req.Config) > 0 {
			// The caller supplied the bad knobs, not the server.
			status = http.StatusBadRequest
		}
		http.Error(w, err.Error(), status)
		return
	}

	analysis, err := engine.Compare(req.ClaimID,
		ingest.ToRawLineItems(req.Original), ingest.ToRawLineItems(req.Supplement))
	if err != nil {
		var vErr *ingest.ValidationError
		status := http.StatusInternalServerError
		if errors.As(err, &vErr) {
			status = http.StatusUnprocessableEntity
		}
		fmt.Printf("[COMPARE] %s failed: %v\n", requestID, err)
		http.Error(w, err.Error(), status)
		return
	}

	if analysisRepo != nil {
		if err := analysisRepo.Save(r.Context(), analysis); err != nil {
			// Persistence is best-effort; the caller still gets the analysis.
			fmt.Printf("[COMPARE] %s save failed: %v\n", requestID, err)
		}
	}

	fmt.Printf("[COMPARE] %s done in %v (risk %.1f %s)\n",
		requestID, time.Since(start), analysis.Risk.Score, analysis.Risk.Level)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(analysis)
}

// HandleReport returns the stored analysis for a claim rendered as an
// HTML summary.
// GET /api/report?claim_id=...
func HandleReport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if analysisRepo == nil {
		http.Error(w, "persistence not configured", http.StatusServiceUnavailable)
		return
	}

	claimID := r.URL.Query().Get("claim_id")
	if claimID == "" {
		http.Error(w, "claim_id is required", http.StatusBadRequest)
		return
	}

	analysis, err := analysisRepo.Load(r.Context(), claimID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if analysis == nil {
		http.Error(w, fmt.Sprintf("no analysis for claim %s", claimID), http.StatusNotFound)
		return
	}

	html, err := report.HTML(analysis)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	io.WriteString(w, html)
}
