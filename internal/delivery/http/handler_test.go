package http

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/pawlens/backend/config"
	"github.com/pawlens/backend/internal/domain"
	"github.com/pawlens/backend/internal/knowledge"
)

type fakeAnalysis struct {
	analyzeText func(ctx context.Context, req *domain.AnalysisRequest) (*domain.ScoreBreakdown, error)
	scan        func(ctx context.Context, barcode string, req *domain.AnalysisRequest) <-chan domain.PipelineState
	recentScans func(ctx context.Context, limit int) ([]domain.ScanRecord, error)
}

func (f *fakeAnalysis) AnalyzeText(ctx context.Context, req *domain.AnalysisRequest) (*domain.ScoreBreakdown, error) {
	return f.analyzeText(ctx, req)
}

func (f *fakeAnalysis) Scan(ctx context.Context, barcode string, req *domain.AnalysisRequest) <-chan domain.PipelineState {
	return f.scan(ctx, barcode, req)
}

func (f *fakeAnalysis) RecentScans(ctx context.Context, limit int) ([]domain.ScanRecord, error) {
	return f.recentScans(ctx, limit)
}

func newTestRouter(t *testing.T, analysis AnalysisRunner) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	kb, err := knowledge.Load()
	if err != nil {
		t.Fatalf("knowledge.Load() failed: %v", err)
	}

	cfg := &config.Config{}
	cfg.Server.Environment = "test"
	cfg.Server.AllowedOrigins = []string{"http://localhost:*"}

	return SetupRouter(cfg, NewHandler(analysis, kb))
}

func TestHealthCheck(t *testing.T) {
	router := newTestRouter(t, &fakeAnalysis{})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}

	var body map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if body["status"] != "healthy" {
		t.Errorf("status field = %v, want healthy", body["status"])
	}
	if body["ingredients"].(float64) <= 0 {
		t.Errorf("ingredients = %v, want > 0", body["ingredients"])
	}
}

func TestAnalyzeTextEndpoint(t *testing.T) {
	analysis := &fakeAnalysis{
		analyzeText: func(_ context.Context, req *domain.AnalysisRequest) (*domain.ScoreBreakdown, error) {
			if req.Species != domain.SpeciesDog || req.Category != domain.CategoryFood {
				t.Errorf("request context = %s/%s, want dog/food", req.Species, req.Category)
			}
			return &domain.ScoreBreakdown{Total: 92, Rating: domain.RatingExcellent, Source: req.Source}, nil
		},
	}
	router := newTestRouter(t, analysis)

	payload := `{"text":"Chicken, Rice","species":"dog","category":"food"}`
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/analyze", strings.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", w.Code, w.Body.String())
	}

	var breakdown domain.ScoreBreakdown
	if err := json.Unmarshal(w.Body.Bytes(), &breakdown); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if breakdown.Total != 92 || breakdown.Rating != domain.RatingExcellent {
		t.Errorf("breakdown = %+v", breakdown)
	}
}

func TestAnalyzeTextValidationErrors(t *testing.T) {
	router := newTestRouter(t, &fakeAnalysis{
		analyzeText: func(_ context.Context, _ *domain.AnalysisRequest) (*domain.ScoreBreakdown, error) {
			t.Fatal("service must not be called on invalid input")
			return nil, nil
		},
	})

	tests := []struct {
		name    string
		payload string
	}{
		{"missing text", `{"species":"dog","category":"food"}`},
		{"missing species", `{"text":"Chicken","category":"food"}`},
		{"unknown species", `{"text":"Chicken","species":"ferret","category":"food"}`},
		{"unknown category", `{"text":"Chicken","species":"dog","category":"toy"}`},
		{"unknown source", `{"text":"Chicken","species":"dog","category":"food","source":"psychic"}`},
		{"malformed json", `{"text":`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodPost, "/api/v1/analyze", strings.NewReader(tt.payload))
			req.Header.Set("Content-Type", "application/json")
			router.ServeHTTP(w, req)

			if w.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", w.Code)
			}
		})
	}
}

func TestScanEndpointStreamsNDJSON(t *testing.T) {
	states := []domain.PipelineState{
		{Step: domain.StepLookupBarcode},
		{Step: domain.StepSearchProduct, Completed: []domain.PipelineStep{domain.StepLookupBarcode}},
		{Step: domain.StepFailed, Error: domain.ClassProductNotFound,
			Completed: []domain.PipelineStep{domain.StepLookupBarcode}},
	}
	analysis := &fakeAnalysis{
		scan: func(_ context.Context, barcode string, _ *domain.AnalysisRequest) <-chan domain.PipelineState {
			if barcode != "0012345678905" {
				t.Errorf("barcode = %q", barcode)
			}
			ch := make(chan domain.PipelineState, len(states))
			for _, s := range states {
				ch <- s
			}
			close(ch)
			return ch
		},
	}
	router := newTestRouter(t, analysis)

	payload := `{"barcode":"0012345678905","species":"dog","category":"food"}`
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/scan", strings.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/x-ndjson" {
		t.Errorf("content type = %q, want application/x-ndjson", ct)
	}

	var decoded []domain.PipelineState
	scanner := bufio.NewScanner(bytes.NewReader(w.Body.Bytes()))
	for scanner.Scan() {
		var state domain.PipelineState
		if err := json.Unmarshal(scanner.Bytes(), &state); err != nil {
			t.Fatalf("line %q: %v", scanner.Text(), err)
		}
		decoded = append(decoded, state)
	}
	if len(decoded) != len(states) {
		t.Fatalf("decoded %d states, want %d", len(decoded), len(states))
	}
	if decoded[2].Step != domain.StepFailed || decoded[2].Error != domain.ClassProductNotFound {
		t.Errorf("terminal state = %+v", decoded[2])
	}
}

func TestScanEndpointValidation(t *testing.T) {
	router := newTestRouter(t, &fakeAnalysis{})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/scan", strings.NewReader(`{"species":"dog","category":"food"}`))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestGetIngredient(t *testing.T) {
	router := newTestRouter(t, &fakeAnalysis{})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/ingredients/tea_tree_oil", nil)
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	var ingredient domain.Ingredient
	if err := json.Unmarshal(w.Body.Bytes(), &ingredient); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if ingredient.ID != "tea_tree_oil" || ingredient.CommonName == "" {
		t.Errorf("ingredient = %+v", ingredient)
	}
}

func TestGetIngredientNotFound(t *testing.T) {
	router := newTestRouter(t, &fakeAnalysis{})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/ingredients/unobtainium", nil)
	router.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}
}

func TestRecentScansEndpoint(t *testing.T) {
	analysis := &fakeAnalysis{
		recentScans: func(_ context.Context, limit int) ([]domain.ScanRecord, error) {
			if limit != 5 {
				t.Errorf("limit = %d, want 5", limit)
			}
			return []domain.ScanRecord{{ProductName: "Acme Dog Food"}}, nil
		},
	}
	router := newTestRouter(t, analysis)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/scans?limit=5", nil)
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	var body struct {
		Scans []domain.ScanRecord `json:"scans"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if len(body.Scans) != 1 || body.Scans[0].ProductName != "Acme Dog Food" {
		t.Errorf("scans = %+v", body.Scans)
	}
}
