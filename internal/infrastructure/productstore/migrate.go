package productstore

import (
	"encoding/json"
	"fmt"

	"github.com/pawlens/backend/internal/domain"
)

// breakdownSchemaVersion is the shape new rows are written at.
const breakdownSchemaVersion = 2

// legacyBreakdownV1 is the historical breakdown shape: the processing
// sub-score was called "nutrition" before the engine stopped pretending to
// assess nutrition. Kept only for decoding old rows.
type legacyBreakdownV1 struct {
	Total        float64                      `json:"total"`
	Safety       float64                      `json:"safety"`
	Suitability  float64                      `json:"suitability"`
	Nutrition    *float64                     `json:"nutrition,omitempty"`
	Rating       domain.Rating                `json:"rating"`
	Warnings     []domain.WarningFlag         `json:"warnings,omitempty"`
	Unmatched    []string                     `json:"unmatched,omitempty"`
	MatchedCount int                          `json:"matchedCount"`
	TotalCount   int                          `json:"totalCount"`
	Source       domain.ScoreSource           `json:"source"`
	Explanations []domain.SubScoreExplanation `json:"explanations,omitempty"`
}

// encodeBreakdown serializes a breakdown at the current schema version.
func encodeBreakdown(breakdown *domain.ScoreBreakdown) ([]byte, error) {
	return json.Marshal(breakdown)
}

// DecodeBreakdown parses a stored breakdown payload, migrating historical
// shapes to the current one. Versioned migration lives here, at the
// persistence boundary, never inside the scoring core.
func DecodeBreakdown(version int, payload []byte) (*domain.ScoreBreakdown, error) {
	switch version {
	case 1:
		var legacy legacyBreakdownV1
		if err := json.Unmarshal(payload, &legacy); err != nil {
			return nil, fmt.Errorf("decode v1 breakdown: %w", err)
		}
		return migrateV1(&legacy), nil
	case breakdownSchemaVersion:
		var breakdown domain.ScoreBreakdown
		if err := json.Unmarshal(payload, &breakdown); err != nil {
			return nil, fmt.Errorf("decode v%d breakdown: %w", version, err)
		}
		return &breakdown, nil
	default:
		return nil, fmt.Errorf("unknown breakdown schema version %d", version)
	}
}

// migrateV1 renames the legacy "nutrition" sub-score to "processing".
func migrateV1(legacy *legacyBreakdownV1) *domain.ScoreBreakdown {
	breakdown := &domain.ScoreBreakdown{
		Total:        legacy.Total,
		Safety:       legacy.Safety,
		Suitability:  legacy.Suitability,
		Processing:   legacy.Nutrition,
		Rating:       legacy.Rating,
		Warnings:     legacy.Warnings,
		Unmatched:    legacy.Unmatched,
		MatchedCount: legacy.MatchedCount,
		TotalCount:   legacy.TotalCount,
		Source:       legacy.Source,
		Explanations: legacy.Explanations,
	}
	if breakdown.Source == "" {
		breakdown.Source = domain.SourceVerifiedDatabase
	}
	for i := range breakdown.Explanations {
		if breakdown.Explanations[i].Component == "nutrition" {
			breakdown.Explanations[i].Component = "processing"
		}
	}
	return breakdown
}
