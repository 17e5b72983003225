package domain

import "errors"

var (
	// ErrBarcodeNotFound is returned when no provider recognizes a barcode
	ErrBarcodeNotFound = errors.New("barcode not found")

	// ErrInvalidBarcode is returned when a barcode fails basic validation
	ErrInvalidBarcode = errors.New("invalid barcode")

	// ErrProductNotFound is returned when no retailer source has the product
	ErrProductNotFound = errors.New("product not found")

	// ErrIngredientsNotFound is returned when a product page carries no ingredient list
	ErrIngredientsNotFound = errors.New("ingredients not found")

	// ErrNoResults is returned when a search query yields zero candidates
	ErrNoResults = errors.New("no search results")

	// ErrBlocked is returned when a retailer source refuses the request
	ErrBlocked = errors.New("source blocked request")

	// ErrParsingFailed is returned when a provider response cannot be parsed
	ErrParsingFailed = errors.New("response parsing failed")

	// ErrRateLimited is returned when a provider rate limit is exceeded
	ErrRateLimited = errors.New("rate limit exceeded")

	// ErrNetwork is returned for transient transport failures
	ErrNetwork = errors.New("network error")

	// ErrCacheMiss is returned when data is not found in cache
	ErrCacheMiss = errors.New("cache miss")

	// ErrInvalidRequest is returned when request parameters are invalid
	ErrInvalidRequest = errors.New("invalid request parameters")

	// ErrIngredientNotFound is returned when an identifier is absent from the knowledge base
	ErrIngredientNotFound = errors.New("ingredient not in knowledge base")
)

// OCR collaborator errors. The engine consumes OCR output as a text+confidence
// pair; it never runs OCR itself.
var (
	ErrNoText           = errors.New("no text detected in image")
	ErrLowOCRConfidence = errors.New("ocr confidence below threshold")
	ErrImageTooSmall    = errors.New("image too small for ocr")
	ErrOCRFailed        = errors.New("ocr processing failed")
)
