package knowledge

import "github.com/pawlens/backend/internal/domain"

// RuleSet holds safety rules grouped by target ingredient.
type RuleSet struct {
	byIngredient map[string][]domain.Rule
	total        int
}

func newRuleSet(rules []domain.Rule) *RuleSet {
	rs := &RuleSet{
		byIngredient: make(map[string][]domain.Rule),
		total:        len(rules),
	}
	for _, r := range rules {
		rs.byIngredient[r.IngredientID] = append(rs.byIngredient[r.IngredientID], r)
	}
	return rs
}

// For returns the rules that fire for an ingredient in the given analysis
// context, preserving dataset order.
func (rs *RuleSet) For(ingredientID string, species domain.Species, category domain.ProductCategory) []domain.Rule {
	var fired []domain.Rule
	for _, r := range rs.byIngredient[ingredientID] {
		if r.AppliesTo(species, category) {
			fired = append(fired, r)
		}
	}
	return fired
}

// Len returns the total number of loaded rules.
func (rs *RuleSet) Len() int {
	return rs.total
}
