package main

import (
	"fmt"
	"log"
	"os"

	"github.com/pawlens/backend/config"
	httpDelivery "github.com/pawlens/backend/internal/delivery/http"
	"github.com/pawlens/backend/internal/domain"
	"github.com/pawlens/backend/internal/infrastructure/barcode"
	"github.com/pawlens/backend/internal/infrastructure/cache"
	"github.com/pawlens/backend/internal/infrastructure/productstore"
	"github.com/pawlens/backend/internal/infrastructure/retailer"
	"github.com/pawlens/backend/internal/knowledge"
	"github.com/pawlens/backend/internal/usecase"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	log.Printf("Starting PawLens Backend v1.0.0")
	log.Printf("Environment: %s", cfg.Server.Environment)
	log.Printf("Port: %s", cfg.Server.Port)

	// Load the ingredient knowledge base
	kb, err := knowledge.Load()
	if err != nil {
		log.Fatalf("Failed to load knowledge base: %v", err)
	}
	log.Printf("Knowledge base: %d ingredients, %d rules", kb.Len(), kb.Rules().Len())

	// Initialize infrastructure dependencies
	memoryCache := cache.NewMemoryCache()
	log.Printf("Cache TTL: %s", cfg.Cache.TTL)

	store, err := productstore.Open(cfg.Store.Path)
	if err != nil {
		log.Fatalf("Failed to open product store: %v", err)
	}
	defer store.Close()
	log.Printf("Product store: %s", cfg.Store.Path)

	debug := cfg.Server.Environment == "development"

	barcodeClient := barcode.NewClient(cfg.Providers.BarcodeBaseURL)
	barcodeClient.SetDebug(debug)

	sources := make([]retailer.Source, 0, len(cfg.Providers.RetailerSources))
	for _, s := range cfg.Providers.RetailerSources {
		sources = append(sources, retailer.Source{
			Name:      s.Name,
			SearchURL: s.SearchURL,
			MaxHits:   s.MaxHits,
		})
	}
	searchClient := retailer.NewSearchClient(sources)
	searchClient.SetDebug(debug)
	extractor := retailer.NewExtractor()
	extractor.SetDebug(debug)
	log.Printf("Retailer sources: %d", len(sources))

	// Initialize usecase layer
	matcher := usecase.NewMatcherService(kb, usecase.MatcherConfig{
		EnableFuzzyMatching: cfg.Matching.EnableFuzzyMatching,
		FuzzyEditDistance:   cfg.Matching.FuzzyEditDistance,
		EnableDebugLogging:  cfg.Matching.EnableDebugLogging,
	})

	scorer := usecase.NewScoreService(kb, usecase.ScoringConfig{
		DecayBase:           cfg.Scoring.DecayBase,
		CriticalCap:         cfg.Scoring.CriticalCap,
		UnknownPenaltyTop:   cfg.Scoring.UnknownPenaltyTop,
		UnknownPenaltyTail:  cfg.Scoring.UnknownPenaltyTail,
		AllergenPenaltyTop:  cfg.Scoring.AllergenPenaltyTop,
		AllergenPenaltyTail: cfg.Scoring.AllergenPenaltyTail,
		ToxicRiskImpact:     cfg.Scoring.ToxicRiskImpact,
		CautionRiskImpact:   cfg.Scoring.CautionRiskImpact,
		CategoryWeights:     categoryWeights(cfg.Scoring.Weights),
		EnableDebugLogging:  cfg.Matching.EnableDebugLogging,
	})

	pipeline := usecase.NewResolutionPipeline(barcodeClient, searchClient, extractor, matcher, debug)

	analysisService := usecase.NewAnalysisService(
		memoryCache,
		store,
		store,
		pipeline,
		matcher,
		scorer,
		usecase.AnalysisServiceConfig{
			CacheTTL:           cfg.Cache.TTL,
			EnableDebugLogging: cfg.Matching.EnableDebugLogging,
		},
	)

	log.Printf("Scoring: decay=%.2f cap=%.0f fuzzy=%v",
		cfg.Scoring.DecayBase, cfg.Scoring.CriticalCap, cfg.Matching.EnableFuzzyMatching)

	// Create HTTP handler with dependencies
	handler := httpDelivery.NewHandler(analysisService, kb)

	// Setup router
	router := httpDelivery.SetupRouter(cfg, handler)

	// Start server
	addr := fmt.Sprintf(":%s", cfg.Server.Port)
	log.Printf("Server listening on %s", addr)

	if err := router.Run(addr); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}

// categoryWeights converts the configured weight tables to domain keys.
func categoryWeights(weights map[string]config.CategoryWeights) map[domain.ProductCategory]usecase.Weights {
	out := make(map[domain.ProductCategory]usecase.Weights, len(weights))
	for name, w := range weights {
		category, ok := domain.ParseCategory(name)
		if !ok {
			log.Printf("WARNING: ignoring weights for unknown category %q", name)
			continue
		}
		out[category] = usecase.Weights{
			Safety:      w.Safety,
			Suitability: w.Suitability,
			Processing:  w.Processing,
		}
	}
	return out
}

func init() {
	// Set log flags for better debugging
	log.SetFlags(log.Ldate | log.Ltime | log.Lshortfile)
	log.SetOutput(os.Stdout)
}
