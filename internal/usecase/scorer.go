package usecase

import (
	"fmt"
	"log"
	"math"
	"sort"
	"strings"

	"github.com/pawlens/backend/internal/domain"
	"github.com/pawlens/backend/internal/knowledge"
)

// Rank-tier boundary: the first topRankCount ingredients dominate a recipe
// by regulatory listing convention, so unknowns and allergens found there
// are penalized harder than tail entries.
const topRankCount = 5

// processingLevelScores maps the informational 1-4 processing classification
// to a descriptive sub-score contribution. Level 1 is fresh/whole, level 4
// is synthetic/ultra-processed.
var processingLevelScores = map[int]float64{
	1: 100,
	2: 85,
	3: 60,
	4: 30,
}

// Weights combines sub-scores into the total. Must sum to 1 per category.
type Weights struct {
	Safety      float64 `mapstructure:"safety"`
	Suitability float64 `mapstructure:"suitability"`
	Processing  float64 `mapstructure:"processing"`
}

// ScoringConfig holds every tuning parameter of the score calculator.
// Values are configuration, not hidden constants; zero fields fall back to
// the documented defaults.
type ScoringConfig struct {
	// DecayBase is the rank decay base in (0,1): w(rank) = base^(rank-1).
	DecayBase float64
	// CriticalCap is the hard ceiling applied to safety and total when a
	// critical-severity signal fires.
	CriticalCap float64
	// Unknown-ingredient penalties, by rank tier. Unrecognized ingredients
	// must not silently produce a perfect score.
	UnknownPenaltyTop  float64
	UnknownPenaltyTail float64
	// Allergen penalties, by rank tier.
	AllergenPenaltyTop  float64
	AllergenPenaltyTail float64
	// Risk-map fallback impacts for matched ingredients with no firing rule.
	ToxicRiskImpact   float64
	CautionRiskImpact float64
	// CategoryWeights fixes the sub-score combination per product category.
	CategoryWeights    map[domain.ProductCategory]Weights
	EnableDebugLogging bool
}

// DefaultScoringConfig returns the calibrated defaults.
func DefaultScoringConfig() ScoringConfig {
	return ScoringConfig{
		DecayBase:           0.8,
		CriticalCap:         10,
		UnknownPenaltyTop:   6,
		UnknownPenaltyTail:  2,
		AllergenPenaltyTop:  15,
		AllergenPenaltyTail: 8,
		ToxicRiskImpact:     60,
		CautionRiskImpact:   10,
		CategoryWeights:     DefaultCategoryWeights(),
	}
}

// DefaultCategoryWeights weights suitability more heavily for grooming
// products, where allergen contact matters more than ingestion safety.
func DefaultCategoryWeights() map[domain.ProductCategory]Weights {
	return map[domain.ProductCategory]Weights{
		domain.CategoryFood:       {Safety: 0.60, Suitability: 0.30, Processing: 0.10},
		domain.CategoryTreat:      {Safety: 0.60, Suitability: 0.30, Processing: 0.10},
		domain.CategoryGrooming:   {Safety: 0.50, Suitability: 0.40, Processing: 0.10},
		domain.CategorySupplement: {Safety: 0.55, Suitability: 0.35, Processing: 0.10},
	}
}

// ScoreService combines matched ingredients, the rule set and a pet's
// allergen profile into an explainable score breakdown. It raises no
// errors: every input, including garbage text, produces a valid result.
type ScoreService struct {
	kb                 *knowledge.Base
	cfg                ScoringConfig
	enableDebugLogging bool
}

// NewScoreService creates a score calculator, filling unset config fields
// with defaults.
func NewScoreService(kb *knowledge.Base, cfg ScoringConfig) *ScoreService {
	def := DefaultScoringConfig()
	if cfg.DecayBase <= 0 || cfg.DecayBase >= 1 {
		cfg.DecayBase = def.DecayBase
	}
	if cfg.CriticalCap <= 0 {
		cfg.CriticalCap = def.CriticalCap
	}
	if cfg.UnknownPenaltyTop <= 0 {
		cfg.UnknownPenaltyTop = def.UnknownPenaltyTop
	}
	if cfg.UnknownPenaltyTail <= 0 {
		cfg.UnknownPenaltyTail = def.UnknownPenaltyTail
	}
	if cfg.AllergenPenaltyTop <= 0 {
		cfg.AllergenPenaltyTop = def.AllergenPenaltyTop
	}
	if cfg.AllergenPenaltyTail <= 0 {
		cfg.AllergenPenaltyTail = def.AllergenPenaltyTail
	}
	if cfg.ToxicRiskImpact <= 0 {
		cfg.ToxicRiskImpact = def.ToxicRiskImpact
	}
	if cfg.CautionRiskImpact <= 0 {
		cfg.CautionRiskImpact = def.CautionRiskImpact
	}
	if len(cfg.CategoryWeights) == 0 {
		cfg.CategoryWeights = def.CategoryWeights
	}
	return &ScoreService{kb: kb, cfg: cfg, enableDebugLogging: cfg.EnableDebugLogging}
}

// Calculate produces the score breakdown for one analysis. Deterministic:
// identical inputs yield identical results.
func (s *ScoreService) Calculate(
	species domain.Species,
	category domain.ProductCategory,
	matched []domain.MatchedIngredient,
	allergens domain.AllergenSet,
	source domain.ScoreSource,
	ocrConfidence *float64,
) domain.ScoreBreakdown {
	safety, warnings, unmatchedLabels, criticalFired := s.safetyScore(species, category, matched)

	suitability, allergenWarnings := s.suitabilityScore(matched, allergens)
	warnings = append(warnings, allergenWarnings...)

	processing := s.processingScore(matched)

	weights := s.weightsFor(category, processing != nil)
	total := weights.Safety * safety
	total += weights.Suitability * suitability
	if processing != nil {
		total += weights.Processing * *processing
	}
	total = clampScore(total)
	if criticalFired {
		total = math.Min(total, s.cfg.CriticalCap)
	}

	matchedCount := 0
	for i := range matched {
		if matched[i].Matched() {
			matchedCount++
		}
	}

	explanations := s.explain(safety, suitability, processing, len(warnings), len(unmatchedLabels), criticalFired)

	rating := domain.RatingFromScore(total)
	for _, e := range explanations {
		if e.RatingOverride != "" {
			rating = domain.WorseRating(rating, e.RatingOverride)
		}
	}

	if s.enableDebugLogging {
		log.Printf("[SCORE] species=%s category=%s safety=%.1f suitability=%.1f total=%.1f rating=%s critical=%v",
			species, category, safety, suitability, total, rating, criticalFired)
	}

	return domain.ScoreBreakdown{
		Total:         total,
		Safety:        safety,
		Suitability:   suitability,
		Processing:    processing,
		Rating:        rating,
		Warnings:      warnings,
		Unmatched:     unmatchedLabels,
		MatchedCount:  matchedCount,
		TotalCount:    len(matched),
		Source:        source,
		OCRConfidence: ocrConfidence,
		Explanations:  explanations,
	}
}

// safetyScore starts at 100 and subtracts rank-decayed rule impacts, risk-map
// fallbacks, and unknown-ingredient penalties.
func (s *ScoreService) safetyScore(
	species domain.Species,
	category domain.ProductCategory,
	matched []domain.MatchedIngredient,
) (float64, []domain.WarningFlag, []string, bool) {
	score := 100.0
	var warnings []domain.WarningFlag
	var unmatchedLabels []string
	criticalFired := false

	for i := range matched {
		m := &matched[i]
		w := s.decayWeight(m.Label.Rank)

		if !m.Matched() {
			if m.Label.Rank <= topRankCount {
				score -= s.cfg.UnknownPenaltyTop
			} else {
				score -= s.cfg.UnknownPenaltyTail
			}
			unmatchedLabels = append(unmatchedLabels, m.Label.Text)
			continue
		}

		fired := s.kb.Rules().For(m.IngredientID, species, category)
		for _, rule := range fired {
			score -= rule.ScoreImpact * w
			if rule.Severity == domain.SeverityCritical {
				criticalFired = true
			}
			warnings = append(warnings, s.ruleWarning(rule, m))
		}

		if len(fired) == 0 {
			flag, impact, critical := s.riskFallback(species, m)
			if impact > 0 {
				score -= impact * w
				warnings = append(warnings, flag)
				if critical {
					criticalFired = true
				}
			}
		}
	}

	if n := len(unmatchedLabels); n > 0 {
		warnings = append(warnings, domain.WarningFlag{
			Severity:    domain.SeverityInfo,
			Title:       "Unrecognized ingredients",
			Explanation: fmt.Sprintf("%d ingredient(s) could not be identified; the safety score is reduced to reflect that uncertainty.", n),
			Type:        domain.WarningGeneral,
		})
	}

	score = clampScore(score)
	if criticalFired {
		score = math.Min(score, s.cfg.CriticalCap)
	}
	return score, warnings, unmatchedLabels, criticalFired
}

// ruleWarning converts a fired rule into its caller-facing flag.
func (s *ScoreService) ruleWarning(rule domain.Rule, m *domain.MatchedIngredient) domain.WarningFlag {
	title := rule.IngredientID
	citation := ""
	if ing, ok := s.kb.Ingredient(rule.IngredientID); ok {
		title = ing.CommonName
		if len(ing.Citations) > 0 {
			citation = ing.Citations[0]
		}
	}
	return domain.WarningFlag{
		Severity:     rule.Severity,
		Title:        title,
		Explanation:  rule.Explanation,
		IngredientID: rule.IngredientID,
		Citation:     citation,
		Type:         domain.WarningRule,
	}
}

// riskFallback covers matched ingredients whose per-species risk level is
// elevated but which no rule targets in this context. Keeps a toxic entry
// from scoring clean just because the rule set has a gap.
func (s *ScoreService) riskFallback(species domain.Species, m *domain.MatchedIngredient) (domain.WarningFlag, float64, bool) {
	ing, ok := s.kb.Ingredient(m.IngredientID)
	if !ok {
		return domain.WarningFlag{}, 0, false
	}
	risk, known := ing.RiskFor(species)
	if !known {
		return domain.WarningFlag{}, 0, false
	}

	switch risk {
	case domain.RiskToxic:
		explanation := fmt.Sprintf("%s is classified as toxic to %ss.", ing.CommonName, species)
		if dose, ok := ing.ToxicDose[species]; ok {
			explanation += " " + dose + "."
		}
		citation := ""
		if len(ing.Citations) > 0 {
			citation = ing.Citations[0]
		}
		return domain.WarningFlag{
			Severity:     domain.SeverityCritical,
			Title:        ing.CommonName,
			Explanation:  explanation,
			IngredientID: ing.ID,
			Citation:     citation,
			Type:         domain.WarningGeneral,
		}, s.cfg.ToxicRiskImpact, true
	case domain.RiskCaution:
		return domain.WarningFlag{
			Severity:     domain.SeverityWarn,
			Title:        ing.CommonName,
			Explanation:  fmt.Sprintf("%s warrants caution for %ss.", ing.CommonName, species),
			IngredientID: ing.ID,
			Type:         domain.WarningGeneral,
		}, s.cfg.CautionRiskImpact, false
	}
	return domain.WarningFlag{}, 0, false
}

// suitabilityScore starts at 100 and subtracts a rank-tiered penalty for
// every matched ingredient whose name or synonyms contain one of the pet's
// allergens. An empty allergen set leaves the score untouched.
func (s *ScoreService) suitabilityScore(matched []domain.MatchedIngredient, allergens domain.AllergenSet) (float64, []domain.WarningFlag) {
	score := 100.0
	if len(allergens) == 0 {
		return score, nil
	}

	sorted := make([]string, 0, len(allergens))
	for a := range allergens {
		sorted = append(sorted, a)
	}
	sort.Strings(sorted)

	var warnings []domain.WarningFlag
	for i := range matched {
		m := &matched[i]
		if !m.Matched() {
			continue
		}
		allergen, hit := s.allergenHit(m.IngredientID, sorted)
		if !hit {
			continue
		}

		if m.Label.Rank <= topRankCount {
			score -= s.cfg.AllergenPenaltyTop
		} else {
			score -= s.cfg.AllergenPenaltyTail
		}

		title := m.IngredientID
		if ing, ok := s.kb.Ingredient(m.IngredientID); ok {
			title = ing.CommonName
		}
		warnings = append(warnings, domain.WarningFlag{
			Severity:     domain.SeverityHigh,
			Title:        title,
			Explanation:  fmt.Sprintf("%s matches this pet's %q allergen (listed at position %d).", title, allergen, m.Label.Rank),
			IngredientID: m.IngredientID,
			Type:         domain.WarningAllergen,
		})
	}

	return clampScore(score), warnings
}

// allergenHit checks the ingredient's normalized common name and every
// registered synonym against the sorted allergen list.
func (s *ScoreService) allergenHit(ingredientID string, sortedAllergens []string) (string, bool) {
	ing, ok := s.kb.Ingredient(ingredientID)
	if !ok {
		return "", false
	}
	name := knowledge.NormalizePhrase(ing.CommonName)
	synonyms := s.kb.SynonymsOf(ingredientID)

	for _, allergen := range sortedAllergens {
		if strings.Contains(name, allergen) {
			return allergen, true
		}
		for _, syn := range synonyms {
			if strings.Contains(syn, allergen) {
				return allergen, true
			}
		}
	}
	return "", false
}

// processingScore derives the optional informational sub-score from the
// processing-level distribution of matched ingredients. It never gates
// safety or suitability.
func (s *ScoreService) processingScore(matched []domain.MatchedIngredient) *float64 {
	sum := 0.0
	count := 0
	for i := range matched {
		if lvl := matched[i].ProcessingLevel; lvl >= 1 && lvl <= 4 {
			sum += processingLevelScores[lvl]
			count++
		}
	}
	if count == 0 {
		return nil
	}
	mean := clampScore(sum / float64(count))
	return &mean
}

// weightsFor returns the category weight table, folding the processing
// weight into safety when no processing sub-score exists so weights still
// sum to 1.
func (s *ScoreService) weightsFor(category domain.ProductCategory, hasProcessing bool) Weights {
	w, ok := s.cfg.CategoryWeights[category]
	if !ok {
		w = s.cfg.CategoryWeights[domain.CategoryFood]
	}
	if !hasProcessing {
		w.Safety += w.Processing
		w.Processing = 0
	}
	return w
}

func (s *ScoreService) explain(safety, suitability float64, processing *float64, warningCount, unmatchedCount int, criticalFired bool) []domain.SubScoreExplanation {
	explanations := make([]domain.SubScoreExplanation, 0, 3)

	safetyExpl := domain.SubScoreExplanation{
		Component: "safety",
		Summary:   fmt.Sprintf("Safety %.0f/100 from %d warning(s) and %d unrecognized ingredient(s).", safety, warningCount, unmatchedCount),
	}
	if criticalFired {
		safetyExpl.Summary = fmt.Sprintf("Safety capped at %.0f: a critical toxicity signal dominates this product.", safety)
		safetyExpl.RatingOverride = domain.RatingAvoid
	}
	explanations = append(explanations, safetyExpl)

	explanations = append(explanations, domain.SubScoreExplanation{
		Component: "suitability",
		Summary:   fmt.Sprintf("Suitability %.0f/100 after allergen screening.", suitability),
	})

	if processing != nil {
		explanations = append(explanations, domain.SubScoreExplanation{
			Component: "processing",
			Summary:   fmt.Sprintf("Processing %.0f/100; informational only, does not gate safety.", *processing),
		})
	}
	return explanations
}

// decayWeight implements w(rank) = base^(rank-1): earlier-listed ingredients
// are present in greater quantity and dominate the impact.
func (s *ScoreService) decayWeight(rank int) float64 {
	if rank < 1 {
		rank = 1
	}
	return math.Pow(s.cfg.DecayBase, float64(rank-1))
}

func clampScore(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
