package http

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/pawlens/backend/internal/domain"
	"github.com/pawlens/backend/internal/knowledge"
)

// AnalysisRunner is the usecase surface the handlers depend on.
type AnalysisRunner interface {
	AnalyzeText(ctx context.Context, req *domain.AnalysisRequest) (*domain.ScoreBreakdown, error)
	Scan(ctx context.Context, barcode string, req *domain.AnalysisRequest) <-chan domain.PipelineState
	RecentScans(ctx context.Context, limit int) ([]domain.ScanRecord, error)
}

// Handler holds dependencies for HTTP handlers
type Handler struct {
	analysis AnalysisRunner
	kb       *knowledge.Base
}

// NewHandler creates a new HTTP handler
func NewHandler(analysis AnalysisRunner, kb *knowledge.Base) *Handler {
	return &Handler{analysis: analysis, kb: kb}
}

// HealthCheck returns the health status of the API
func (h *Handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":      "healthy",
		"service":     "pawlens-backend",
		"version":     "1.0.0",
		"ingredients": h.kb.Len(),
	})
}

type analyzeRequest struct {
	Text          string   `json:"text" binding:"required"`
	Species       string   `json:"species" binding:"required"`
	Category      string   `json:"category" binding:"required"`
	Allergens     []string `json:"allergens"`
	Source        string   `json:"source"`
	OCRConfidence *float64 `json:"ocrConfidence"`
}

// AnalyzeText scores raw ingredient text for a species/category context.
func (h *Handler) AnalyzeText(c *gin.Context) {
	var req analyzeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "text, species and category are required"})
		return
	}

	analysisReq, ok := buildAnalysisRequest(req.Species, req.Category, req.Allergens)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown species or category"})
		return
	}
	analysisReq.Text = req.Text
	analysisReq.OCRConfidence = req.OCRConfidence
	switch domain.ScoreSource(req.Source) {
	case domain.SourceVerifiedDatabase, domain.SourceOCREstimated, domain.SourceManualEntry:
		analysisReq.Source = domain.ScoreSource(req.Source)
	case "":
		analysisReq.Source = domain.SourceManualEntry
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown score source"})
		return
	}

	breakdown, err := h.analysis.AnalyzeText(c.Request.Context(), analysisReq)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, breakdown)
}

type scanRequest struct {
	Barcode   string   `json:"barcode" binding:"required"`
	Species   string   `json:"species" binding:"required"`
	Category  string   `json:"category" binding:"required"`
	Allergens []string `json:"allergens"`
}

// Scan runs the product resolution pipeline for a barcode and streams state
// transitions as NDJSON. The terminal line carries the scored result or the
// failure classification.
func (h *Handler) Scan(c *gin.Context) {
	var req scanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "barcode, species and category are required"})
		return
	}

	analysisReq, ok := buildAnalysisRequest(req.Species, req.Category, req.Allergens)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown species or category"})
		return
	}

	c.Header("Content-Type", "application/x-ndjson")
	c.Header("Cache-Control", "no-cache")
	c.Status(http.StatusOK)

	encoder := json.NewEncoder(c.Writer)
	for state := range h.analysis.Scan(c.Request.Context(), req.Barcode, analysisReq) {
		if err := encoder.Encode(state); err != nil {
			return
		}
		c.Writer.Flush()
	}
}

// GetIngredient exposes knowledge-base records so callers can show why an
// ingredient was flagged.
func (h *Handler) GetIngredient(c *gin.Context) {
	ingredient, ok := h.kb.Ingredient(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": domain.ErrIngredientNotFound.Error()})
		return
	}
	c.JSON(http.StatusOK, ingredient)
}

// RecentScans returns the newest persisted scan records.
func (h *Handler) RecentScans(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))

	records, err := h.analysis.RecentScans(c.Request.Context(), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load scan history"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"scans": records})
}

func buildAnalysisRequest(species, category string, allergens []string) (*domain.AnalysisRequest, bool) {
	sp, ok := domain.ParseSpecies(species)
	if !ok {
		return nil, false
	}
	cat, ok := domain.ParseCategory(category)
	if !ok {
		return nil, false
	}
	return &domain.AnalysisRequest{
		Species:   sp,
		Category:  cat,
		Allergens: allergens,
		Source:    domain.SourceVerifiedDatabase,
	}, true
}
