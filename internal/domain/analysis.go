package domain

import (
	"fmt"
	"strings"
)

// ScoreSource tags the provenance of the analyzed ingredient text.
type ScoreSource string

const (
	SourceVerifiedDatabase ScoreSource = "verified_database"
	SourceOCREstimated     ScoreSource = "ocr_estimated"
	SourceManualEntry      ScoreSource = "manual_entry"
)

// RawLabel is one ingredient-list entry as it appeared on the label.
// Rank is the 1-based position; rank 1 is typically the most abundant
// ingredient by regulatory convention.
type RawLabel struct {
	Text string `json:"text"`
	Rank int    `json:"rank"`
}

// MatchedIngredient is the matcher's verdict for one raw label.
// An empty IngredientID means the label could not be resolved.
type MatchedIngredient struct {
	Label           RawLabel `json:"label"`
	IngredientID    string   `json:"ingredientId,omitempty"`
	ProcessingLevel int      `json:"processingLevel,omitempty"` // cached for display
}

// Matched reports whether the label resolved to a knowledge-base ingredient.
func (m *MatchedIngredient) Matched() bool {
	return m.IngredientID != ""
}

// AllergenSet is the normalized set of a pet's known allergens.
// Empty set means no pet selected, so no allergen penalties apply.
type AllergenSet map[string]bool

// NewAllergenSet lowercases and trims the given allergen strings, dropping
// empties.
func NewAllergenSet(allergens []string) AllergenSet {
	set := make(AllergenSet, len(allergens))
	for _, a := range allergens {
		a = strings.ToLower(strings.TrimSpace(a))
		if a != "" {
			set[a] = true
		}
	}
	return set
}

// WarningType distinguishes how a warning was produced.
type WarningType string

const (
	WarningAllergen WarningType = "allergen"
	WarningRule     WarningType = "rule"
	WarningGeneral  WarningType = "general"
)

// WarningFlag is a single caller-facing safety or suitability warning.
type WarningFlag struct {
	Severity     Severity    `json:"severity"`
	Title        string      `json:"title"`
	Explanation  string      `json:"explanation"`
	IngredientID string      `json:"ingredientId,omitempty"`
	Citation     string      `json:"citation,omitempty"`
	Type         WarningType `json:"type"`
}

// DisplayKey derives the identity consumers use to collapse duplicate
// warnings. The engine does not deduplicate generation; two flags with the
// same key should render once.
func (w WarningFlag) DisplayKey() string {
	subject := w.IngredientID
	if subject == "" {
		subject = w.Title
	}
	return fmt.Sprintf("%s|%s|%s", w.Severity, w.Type, subject)
}

// Rating is the coarse label derived from the total score.
type Rating string

const (
	RatingExcellent Rating = "excellent"
	RatingGood      Rating = "good"
	RatingCaution   Rating = "caution"
	RatingAvoid     Rating = "avoid"
)

var ratingOrder = map[Rating]int{
	RatingAvoid:     0,
	RatingCaution:   1,
	RatingGood:      2,
	RatingExcellent: 3,
}

// RatingFromScore maps a total score to its rating band.
func RatingFromScore(total float64) Rating {
	switch {
	case total >= 75:
		return RatingExcellent
	case total >= 50:
		return RatingGood
	case total >= 25:
		return RatingCaution
	default:
		return RatingAvoid
	}
}

// WorseRating returns the lower of two ratings in the order
// avoid < caution < good < excellent.
func WorseRating(a, b Rating) Rating {
	if ratingOrder[a] <= ratingOrder[b] {
		return a
	}
	return b
}

// SubScoreExplanation documents how one sub-score was derived. A non-empty
// RatingOverride forces the final rating down to at most that value.
type SubScoreExplanation struct {
	Component      string `json:"component"`
	Summary        string `json:"summary"`
	RatingOverride Rating `json:"ratingOverride,omitempty"`
}

// ScoreBreakdown is the complete, immutable result of one analysis.
// All sub-scores and the total are clamped to [0,100].
type ScoreBreakdown struct {
	Total        float64               `json:"total"`
	Safety       float64               `json:"safety"`
	Suitability  float64               `json:"suitability"`
	Processing   *float64              `json:"processing,omitempty"`
	Rating       Rating                `json:"rating"`
	Warnings     []WarningFlag         `json:"warnings,omitempty"`
	Unmatched    []string              `json:"unmatched,omitempty"`
	MatchedCount int                   `json:"matchedCount"`
	TotalCount   int                   `json:"totalCount"`
	Source       ScoreSource           `json:"source"`
	OCRConfidence *float64             `json:"ocrConfidence,omitempty"`
	Explanations []SubScoreExplanation `json:"explanations,omitempty"`
}

// MatchRate is matchedCount/totalCount, or zero for an empty label list.
// It informs confidence presentation and never alters the score.
func (b *ScoreBreakdown) MatchRate() float64 {
	if b.TotalCount == 0 {
		return 0
	}
	return float64(b.MatchedCount) / float64(b.TotalCount)
}

// AnalysisRequest carries everything the score calculator needs for one run.
type AnalysisRequest struct {
	Text          string
	Species       Species
	Category      ProductCategory
	Allergens     []string
	Source        ScoreSource
	OCRConfidence *float64
}
