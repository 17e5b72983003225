package domain

// PipelineStep names one state of the product resolution pipeline.
// Non-terminal steps run in fixed order; Failed is reachable from any of them.
type PipelineStep string

const (
	StepLookupBarcode      PipelineStep = "lookup_barcode"
	StepSearchProduct      PipelineStep = "search_product"
	StepExtractIngredients PipelineStep = "extract_ingredients"
	StepMatchIngredients   PipelineStep = "match_ingredients"
	StepComplete           PipelineStep = "complete"
	StepFailed             PipelineStep = "failed"
)

// Terminal reports whether the pipeline stops at this step.
func (s PipelineStep) Terminal() bool {
	return s == StepComplete || s == StepFailed
}

// ErrorClassification is the caller-facing failure category, distinct from
// raw provider errors. Not-found classifications offer manual entry as the
// recovery path; network errors offer retry.
type ErrorClassification string

const (
	ClassBarcodeNotFound     ErrorClassification = "barcode_not_found"
	ClassProductNotFound     ErrorClassification = "product_not_found"
	ClassIngredientsNotFound ErrorClassification = "ingredients_not_found"
	ClassNetworkError        ErrorClassification = "network_error"
)

// Retryable reports whether the caller should offer a retry for this
// classification. Not-found outcomes are expected conditions, not faults.
func (c ErrorClassification) Retryable() bool {
	return c == ClassNetworkError
}

// ScanResult carries the score inputs produced by a completed pipeline run,
// plus the breakdown once the orchestrating service has scored them.
type ScanResult struct {
	Product         ProductInfo         `json:"product"`
	IngredientsText string              `json:"ingredientsText"`
	Matches         []MatchedIngredient `json:"matches"`
	Breakdown       *ScoreBreakdown     `json:"breakdown,omitempty"`
	FromCache       bool                `json:"fromCache,omitempty"`
}

// PipelineState is one externally observable snapshot of the pipeline.
// Completed grows monotonically; exactly one step is active at a time.
type PipelineState struct {
	Step      PipelineStep        `json:"step"`
	Completed []PipelineStep      `json:"completed,omitempty"`
	Error     ErrorClassification `json:"error,omitempty"`
	Result    *ScanResult         `json:"result,omitempty"`
}
