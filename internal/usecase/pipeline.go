package usecase

import (
	"context"
	"errors"
	"log"
	"strings"

	"github.com/pawlens/backend/internal/domain"
)

// ResolutionPipeline locates ingredient text for a scanned barcode by trying
// ordered external sources, then hands the text to the matcher. It is a
// finite state machine: lookup-barcode -> search-product ->
// extract-ingredients -> match-ingredients -> complete, with a terminal
// failed state reachable from any non-terminal step. Exactly one state is
// active at a time; concurrency stays inside a single state's execution.
type ResolutionPipeline struct {
	barcodes           domain.BarcodeClient
	searcher           domain.ProductSearcher
	extractor          domain.IngredientExtractor
	matcher            *MatcherService
	enableDebugLogging bool
}

// NewResolutionPipeline wires the pipeline's collaborators.
func NewResolutionPipeline(
	barcodes domain.BarcodeClient,
	searcher domain.ProductSearcher,
	extractor domain.IngredientExtractor,
	matcher *MatcherService,
	enableDebugLogging bool,
) *ResolutionPipeline {
	return &ResolutionPipeline{
		barcodes:           barcodes,
		searcher:           searcher,
		extractor:          extractor,
		matcher:            matcher,
		enableDebugLogging: enableDebugLogging,
	}
}

// Run executes the pipeline for one barcode and streams state transitions.
// The channel closes after a terminal state, or without one when ctx is
// cancelled; cancellation abandons in-flight work with no partial writes.
func (p *ResolutionPipeline) Run(ctx context.Context, barcode string) <-chan domain.PipelineState {
	states := make(chan domain.PipelineState, 8)
	go func() {
		defer close(states)
		p.run(ctx, barcode, states)
	}()
	return states
}

func (p *ResolutionPipeline) run(ctx context.Context, barcode string, states chan<- domain.PipelineState) {
	var completed []domain.PipelineStep

	emit := func(state domain.PipelineState) bool {
		state.Completed = append([]domain.PipelineStep(nil), completed...)
		select {
		case states <- state:
			return true
		case <-ctx.Done():
			return false
		}
	}
	advance := func(step domain.PipelineStep) bool {
		return emit(domain.PipelineState{Step: step})
	}
	fail := func(class domain.ErrorClassification) {
		if p.enableDebugLogging {
			log.Printf("[PIPELINE] barcode %s failed: %s", barcode, class)
		}
		emit(domain.PipelineState{Step: domain.StepFailed, Error: class})
	}
	finish := func(step domain.PipelineStep) {
		completed = append(completed, step)
	}

	// lookup-barcode
	if !advance(domain.StepLookupBarcode) {
		return
	}
	product, err := p.barcodes.Lookup(ctx, barcode)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		fail(classify(err, domain.ClassBarcodeNotFound))
		return
	}
	if strings.TrimSpace(product.SearchQuery) == "" {
		// Recognized response without a usable query is still a dead end.
		fail(domain.ClassBarcodeNotFound)
		return
	}
	finish(domain.StepLookupBarcode)

	// search-product
	if !advance(domain.StepSearchProduct) {
		return
	}
	results, err := p.searcher.Search(ctx, product.SearchQuery)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		fail(classify(err, domain.ClassProductNotFound))
		return
	}
	if len(results) == 0 {
		fail(domain.ClassProductNotFound)
		return
	}
	finish(domain.StepSearchProduct)

	// extract-ingredients: race all candidates, first success wins.
	if !advance(domain.StepExtractIngredients) {
		return
	}
	extracted, sourceTag, err := p.extractFirst(ctx, results)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		fail(classify(err, domain.ClassIngredientsNotFound))
		return
	}
	finish(domain.StepExtractIngredients)

	// match-ingredients: synchronous, always succeeds (empty list is valid).
	if !advance(domain.StepMatchIngredients) {
		return
	}
	matches := p.matcher.Match(extracted.IngredientsText)
	finish(domain.StepMatchIngredients)

	name := extracted.Name
	if name == "" {
		name = product.DisplayName
	}
	brand := extracted.Brand
	if brand == "" {
		brand = product.Brand
	}
	emit(domain.PipelineState{
		Step: domain.StepComplete,
		Result: &domain.ScanResult{
			Product: domain.ProductInfo{
				Barcode:   barcode,
				Name:      name,
				Brand:     brand,
				ImageURL:  extracted.ImageURL,
				SourceTag: sourceTag,
			},
			IngredientsText: extracted.IngredientsText,
			Matches:         matches,
		},
	})
}

// extractFirst fans out extraction over every candidate concurrently and
// returns the first one that yields non-empty ingredient text, cancelling
// the losers. Racing is safe: all sources are read-only and idempotent.
func (p *ResolutionPipeline) extractFirst(ctx context.Context, results []domain.SearchResult) (*domain.ExtractedProduct, string, error) {
	fanCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	type outcome struct {
		product   *domain.ExtractedProduct
		sourceTag string
		err       error
	}
	outcomes := make(chan outcome, len(results))

	for _, r := range results {
		go func(r domain.SearchResult) {
			product, err := p.extractor.Extract(fanCtx, r.URL)
			if err == nil && strings.TrimSpace(product.IngredientsText) == "" {
				// Empty ingredient text fails this candidate only.
				err = domain.ErrIngredientsNotFound
			}
			outcomes <- outcome{product: product, sourceTag: r.SourceTag, err: err}
		}(r)
	}

	var lastErr error = domain.ErrIngredientsNotFound
	for range results {
		select {
		case <-ctx.Done():
			return nil, "", ctx.Err()
		case out := <-outcomes:
			if out.err == nil {
				return out.product, out.sourceTag, nil
			}
			if p.enableDebugLogging {
				log.Printf("[PIPELINE] candidate failed: %v", out.err)
			}
			if !errors.Is(out.err, context.Canceled) {
				lastErr = out.err
			}
		}
	}
	return nil, "", lastErr
}

// classify maps provider errors to the caller-facing error taxonomy.
// Transient transport problems and rate limits surface as network errors;
// everything else takes the step's not-found classification.
func classify(err error, fallback domain.ErrorClassification) domain.ErrorClassification {
	switch {
	case errors.Is(err, domain.ErrNetwork), errors.Is(err, domain.ErrRateLimited):
		return domain.ClassNetworkError
	default:
		return fallback
	}
}
