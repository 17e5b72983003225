package usecase

import (
	"context"
	"fmt"
	"log"
	"sort"
	"strings"
	"time"

	"github.com/pawlens/backend/internal/domain"
	"github.com/pawlens/backend/internal/knowledge"
)

// AnalysisServiceConfig holds configuration for the analysis service
type AnalysisServiceConfig struct {
	CacheTTL           time.Duration
	EnableDebugLogging bool
}

// AnalysisService orchestrates the matcher, scorer and resolution pipeline.
// Flow for text analysis: check cache -> match -> score -> cache -> return.
// Flow for scans: check offline product cache -> run pipeline -> score ->
// persist history and write the product through to the offline cache.
type AnalysisService struct {
	cache              domain.CacheRepository
	offline            domain.OfflineProductCache
	history            domain.ScanHistoryStore
	pipeline           *ResolutionPipeline
	matcher            *MatcherService
	scorer             *ScoreService
	cacheTTL           time.Duration
	enableDebugLogging bool
}

// NewAnalysisService creates the orchestrating service with dependencies.
// The offline cache and history store may be nil in reduced deployments.
func NewAnalysisService(
	cache domain.CacheRepository,
	offline domain.OfflineProductCache,
	history domain.ScanHistoryStore,
	pipeline *ResolutionPipeline,
	matcher *MatcherService,
	scorer *ScoreService,
	config AnalysisServiceConfig,
) *AnalysisService {
	cacheTTL := config.CacheTTL
	if cacheTTL == 0 {
		cacheTTL = 24 * time.Hour
	}
	return &AnalysisService{
		cache:              cache,
		offline:            offline,
		history:            history,
		pipeline:           pipeline,
		matcher:            matcher,
		scorer:             scorer,
		cacheTTL:           cacheTTL,
		enableDebugLogging: config.EnableDebugLogging,
	}
}

// AnalyzeText scores raw ingredient text for a species/category context.
// The matcher and scorer never fail; the only error here is an invalid
// request.
func (s *AnalysisService) AnalyzeText(ctx context.Context, req *domain.AnalysisRequest) (*domain.ScoreBreakdown, error) {
	if req == nil || req.Species == "" || req.Category == "" {
		return nil, domain.ErrInvalidRequest
	}
	if req.Source == "" {
		req.Source = domain.SourceManualEntry
	}

	cacheKey := s.analysisCacheKey(req)
	if s.cache != nil {
		if value, err := s.cache.Get(ctx, cacheKey); err == nil {
			if breakdown, ok := value.(*domain.ScoreBreakdown); ok {
				if s.enableDebugLogging {
					log.Printf("[ANALYZE] cache hit for %q", cacheKey)
				}
				return breakdown, nil
			}
		}
	}

	matches := s.matcher.Match(req.Text)
	breakdown := s.scorer.Calculate(req.Species, req.Category, matches, domain.NewAllergenSet(req.Allergens), req.Source, req.OCRConfidence)

	if s.cache != nil {
		if err := s.cache.Set(ctx, cacheKey, &breakdown, s.cacheTTL); err != nil && s.enableDebugLogging {
			log.Printf("[ANALYZE] cache set failed: %v", err)
		}
	}
	return &breakdown, nil
}

// Scan resolves a barcode to a scored product, streaming pipeline state
// transitions. A hit in the offline product cache skips the network steps
// entirely. The final Complete state carries the scored result.
func (s *AnalysisService) Scan(ctx context.Context, barcode string, req *domain.AnalysisRequest) <-chan domain.PipelineState {
	out := make(chan domain.PipelineState, 8)
	go func() {
		defer close(out)

		if cached := s.lookupOffline(ctx, barcode); cached != nil {
			s.scanFromCache(ctx, barcode, cached, req, out)
			return
		}

		for state := range s.pipeline.Run(ctx, barcode) {
			if state.Step == domain.StepComplete && state.Result != nil {
				s.finishScan(ctx, barcode, state.Result, req)
			}
			select {
			case out <- state:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}

// lookupOffline consults the offline product cache; any error is a miss.
func (s *AnalysisService) lookupOffline(ctx context.Context, barcode string) *domain.CachedProduct {
	if s.offline == nil {
		return nil
	}
	cached, err := s.offline.LookupCached(ctx, barcode)
	if err != nil || cached == nil {
		return nil
	}
	if s.enableDebugLogging {
		log.Printf("[SCAN] offline cache hit for barcode %s", barcode)
	}
	return cached
}

// scanFromCache replays the terminal pipeline states for an offline hit:
// only matching runs; the network steps are reported as already completed.
func (s *AnalysisService) scanFromCache(ctx context.Context, barcode string, cached *domain.CachedProduct, req *domain.AnalysisRequest, out chan<- domain.PipelineState) {
	completed := []domain.PipelineStep{
		domain.StepLookupBarcode,
		domain.StepSearchProduct,
		domain.StepExtractIngredients,
	}
	select {
	case out <- domain.PipelineState{Step: domain.StepMatchIngredients, Completed: completed}:
	case <-ctx.Done():
		return
	}

	result := &domain.ScanResult{
		Product: domain.ProductInfo{
			Barcode:   barcode,
			Name:      cached.Name,
			Brand:     cached.Brand,
			ImageURL:  cached.ImageURL,
			SourceTag: "offline_cache",
		},
		IngredientsText: cached.IngredientsText,
		Matches:         s.matcher.Match(cached.IngredientsText),
		FromCache:       true,
	}
	s.score(result, req)
	s.saveHistory(ctx, barcode, result, req)

	completed = append(completed, domain.StepMatchIngredients)
	select {
	case out <- domain.PipelineState{Step: domain.StepComplete, Completed: completed, Result: result}:
	case <-ctx.Done():
	}
}

// finishScan scores a completed pipeline result and performs the deferred
// writes. No write happens before match-ingredients fully completes.
func (s *AnalysisService) finishScan(ctx context.Context, barcode string, result *domain.ScanResult, req *domain.AnalysisRequest) {
	s.score(result, req)

	if s.offline != nil {
		product := &domain.CachedProduct{
			Name:            result.Product.Name,
			Brand:           result.Product.Brand,
			IngredientsText: result.IngredientsText,
			ImageURL:        result.Product.ImageURL,
		}
		if err := s.offline.StoreProduct(ctx, barcode, product); err != nil && s.enableDebugLogging {
			log.Printf("[SCAN] offline cache write failed: %v", err)
		}
	}
	s.saveHistory(ctx, barcode, result, req)
}

func (s *AnalysisService) score(result *domain.ScanResult, req *domain.AnalysisRequest) {
	breakdown := s.scorer.Calculate(
		req.Species,
		req.Category,
		result.Matches,
		domain.NewAllergenSet(req.Allergens),
		domain.SourceVerifiedDatabase,
		nil,
	)
	result.Breakdown = &breakdown
}

func (s *AnalysisService) saveHistory(ctx context.Context, barcode string, result *domain.ScanResult, req *domain.AnalysisRequest) {
	if s.history == nil || result.Breakdown == nil {
		return
	}
	record := &domain.ScanRecord{
		Barcode:     barcode,
		ProductName: result.Product.Name,
		Species:     req.Species,
		Category:    req.Category,
		Breakdown:   *result.Breakdown,
		CreatedAt:   time.Now().UTC(),
	}
	if err := s.history.SaveScan(ctx, record); err != nil && s.enableDebugLogging {
		log.Printf("[SCAN] history write failed: %v", err)
	}
}

// RecentScans exposes persisted scan history.
func (s *AnalysisService) RecentScans(ctx context.Context, limit int) ([]domain.ScanRecord, error) {
	if s.history == nil {
		return nil, nil
	}
	return s.history.RecentScans(ctx, limit)
}

// analysisCacheKey builds a normalized cache key covering every input that
// affects the breakdown.
func (s *AnalysisService) analysisCacheKey(req *domain.AnalysisRequest) string {
	allergens := make([]string, 0, len(req.Allergens))
	for _, a := range req.Allergens {
		a = strings.ToLower(strings.TrimSpace(a))
		if a != "" {
			allergens = append(allergens, a)
		}
	}
	sort.Strings(allergens)
	text := knowledge.NormalizePhrase(req.Text)
	return fmt.Sprintf("analysis:%s:%s:%s:%s:%s", req.Species, req.Category, req.Source, strings.Join(allergens, "+"), text)
}
