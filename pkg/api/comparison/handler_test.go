package comparison

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"estimate_recon/pkg/core/config"
	"estimate_recon/pkg/models"
)

func setup() {
	InitHandler(config.Default(), nil)
}

func TestHandleCompare(t *testing.T) {
	setup()

	body := `{
		"claim_id": "CLM-321",
		"original": [{"description": "Engine oil change", "quantity": 1, "unit_price": 50, "total": 50}],
		"supplement": [{"description": "Engine oil change", "quantity": 1, "unit_price": 75, "total": 75}]
	}`
	req := httptest.NewRequest(http.MethodPost, "/api/compare", strings.NewReader(body))
	rec := httptest.NewRecorder()

	HandleCompare(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var analysis models.ComparisonAnalysis
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &analysis))
	assert.Equal(t, "CLM-321", analysis.ClaimID)
	assert.Len(t, analysis.Reconciliation.Matched, 1)
}

func TestHandleCompareMethodNotAllowed(t *testing.T) {
	setup()

	req := httptest.NewRequest(http.MethodGet, "/api/compare", nil)
	rec := httptest.NewRecorder()
	HandleCompare(rec, req)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestHandleCompareOptions(t *testing.T) {
	setup()

	req := httptest.NewRequest(http.MethodOptions, "/api/compare", nil)
	rec := httptest.NewRecorder()
	HandleCompare(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestHandleCompareStructurallyInvalidInput(t *testing.T) {
	setup()

	body := `{
		"claim_id": "CLM-322",
		"original": [{"description": "Body labor repair", "quantity": -1, "unit_price": 400, "total": -400}],
		"supplement": []
	}`
	req := httptest.NewRequest(http.MethodPost, "/api/compare", strings.NewReader(body))
	rec := httptest.NewRecorder()

	HandleCompare(rec, req)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestHandleCompareConfigOverride(t *testing.T) {
	setup()

	// A partial override overlays the server defaults.
	body := `{
		"claim_id": "CLM-323",
		"original": [],
		"supplement": [],
		"config": {"fuzzy_threshold": 0.8}
	}`
	req := httptest.NewRequest(http.MethodPost, "/api/compare", strings.NewReader(body))
	rec := httptest.NewRecorder()
	HandleCompare(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	// An invalid override is the caller's fault.
	body = `{
		"claim_id": "CLM-324",
		"original": [],
		"supplement": [],
		"config": {"fuzzy_threshold": 2.0}
	}`
	req = httptest.NewRequest(http.MethodPost, "/api/compare", strings.NewReader(body))
	rec = httptest.NewRecorder()
	HandleCompare(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// Unparseable decimal knobs must come back as a 400, not take down
	// the request goroutine.
	body = `{
		"claim_id": "CLM-325",
		"original": [],
		"supplement": [],
		"config": {"calc_tolerance": "oops"}
	}`
	req = httptest.NewRequest(http.MethodPost, "/api/compare", strings.NewReader(body))
	rec = httptest.NewRecorder()
	HandleCompare(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleReportWithoutStore(t *testing.T) {
	setup()

	req := httptest.NewRequest(http.MethodGet, "/api/report?claim_id=CLM-321", nil)
	rec := httptest.NewRecorder()
	HandleReport(rec, req)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
