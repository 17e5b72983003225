package usecase

import (
	"log"

	"github.com/pawlens/backend/internal/domain"
	"github.com/pawlens/backend/internal/knowledge"
)

// MatcherConfig holds configuration for the ingredient matcher
type MatcherConfig struct {
	EnableFuzzyMatching bool
	FuzzyEditDistance   int
	EnableDebugLogging  bool
}

// MatcherService resolves raw ingredient label text to knowledge-base
// identifiers. Matching is deterministic and rule-based; an ambiguous
// candidate always resolves to "unmatched", never a guess.
type MatcherService struct {
	kb                  *knowledge.Base
	enableFuzzyMatching bool
	fuzzyEditDistance   int
	enableDebugLogging  bool
}

// NewMatcherService creates a new matcher with the given configuration
func NewMatcherService(kb *knowledge.Base, config MatcherConfig) *MatcherService {
	fuzzyDist := config.FuzzyEditDistance
	if fuzzyDist <= 0 {
		fuzzyDist = 1 // Default edit distance of 1
	}

	return &MatcherService{
		kb:                  kb,
		enableFuzzyMatching: config.EnableFuzzyMatching,
		fuzzyEditDistance:   fuzzyDist,
		enableDebugLogging:  config.EnableDebugLogging,
	}
}

// Match tokenizes raw ingredient text into ranked labels and resolves each
// one. The result preserves original label order, keeps duplicate labels as
// separate ranked entries, and is empty (not an error) for empty input.
func (s *MatcherService) Match(rawText string) []domain.MatchedIngredient {
	labels := splitLabels(rawText)
	matches := make([]domain.MatchedIngredient, 0, len(labels))

	for _, label := range labels {
		id := s.resolve(normalizeLabel(label.Text))

		m := domain.MatchedIngredient{Label: label, IngredientID: id}
		if id != "" {
			if ing, ok := s.kb.Ingredient(id); ok {
				m.ProcessingLevel = ing.ProcessingLevel
			}
		}

		if s.enableDebugLogging {
			if id != "" {
				log.Printf("[MATCH] rank %d: %q -> %s", label.Rank, label.Text, id)
			} else {
				log.Printf("[MATCH] rank %d: %q unmatched", label.Rank, label.Text)
			}
		}

		matches = append(matches, m)
	}

	return matches
}

// resolve attempts resolution in fixed order: exact phrase, exact after
// descriptor stripping, unambiguous longest-phrase partial, then optional
// fuzzy lookup. Returns "" when the label stays unmatched.
func (s *MatcherService) resolve(norm string) string {
	if norm == "" {
		return ""
	}

	ix := s.kb.Synonyms()

	if id, ok := ix.LookupExact(norm); ok {
		return id
	}

	stripped := stripDescriptors(norm)
	if stripped != norm {
		if id, ok := ix.LookupExact(stripped); ok {
			return id
		}
	}

	if id, ok := ix.LookupPartial(stripped); ok {
		return id
	}

	if s.enableFuzzyMatching {
		if id, ok := ix.LookupFuzzy(stripped, s.fuzzyEditDistance); ok {
			return id
		}
	}

	return ""
}
