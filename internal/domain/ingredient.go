package domain

// Species is the closed set of animals the engine scores for.
type Species string

const (
	SpeciesDog Species = "dog"
	SpeciesCat Species = "cat"
)

// AllSpecies lists every supported species in a stable order.
var AllSpecies = []Species{SpeciesDog, SpeciesCat}

// ParseSpecies validates a species string from an API request.
func ParseSpecies(s string) (Species, bool) {
	switch Species(s) {
	case SpeciesDog, SpeciesCat:
		return Species(s), true
	}
	return "", false
}

// RiskLevel is the per-species toxicity classification of an ingredient.
// Toxicity differs by species, so an ingredient carries one level per
// applicable species, never a single scalar.
type RiskLevel string

const (
	RiskSafe    RiskLevel = "safe"
	RiskCaution RiskLevel = "caution"
	RiskToxic   RiskLevel = "toxic"
)

// ProductCategory determines which rules apply and how sub-scores are weighted.
type ProductCategory string

const (
	CategoryFood       ProductCategory = "food"
	CategoryTreat      ProductCategory = "treat"
	CategoryGrooming   ProductCategory = "grooming"
	CategorySupplement ProductCategory = "supplement"
)

// ParseCategory validates a category string from an API request.
func ParseCategory(s string) (ProductCategory, bool) {
	switch ProductCategory(s) {
	case CategoryFood, CategoryTreat, CategoryGrooming, CategorySupplement:
		return ProductCategory(s), true
	}
	return "", false
}

// Ingredient is a single knowledge-base record. Immutable once loaded.
type Ingredient struct {
	ID              string                `json:"id"`
	CommonName      string                `json:"commonName"`
	ScientificName  string                `json:"scientificName,omitempty"`
	Species         []Species             `json:"species"`
	Categories      []ProductCategory     `json:"categories"`
	Risk            map[Species]RiskLevel `json:"risk"`
	AllergenNote    string                `json:"allergenNote,omitempty"`
	ProcessingLevel int                   `json:"processingLevel,omitempty"` // 1-4, informational only
	ToxicDose       map[Species]string    `json:"toxicDose,omitempty"`
	Citations       []string              `json:"citations,omitempty"` // ordered, deduplicated at load
}

// RiskFor returns the risk level for a species. The second return is false
// when the ingredient carries no classification for that species.
func (i *Ingredient) RiskFor(s Species) (RiskLevel, bool) {
	r, ok := i.Risk[s]
	return r, ok
}

// AppliesTo reports whether the ingredient record covers the given species.
func (i *Ingredient) AppliesTo(s Species) bool {
	for _, sp := range i.Species {
		if sp == s {
			return true
		}
	}
	return false
}

// Severity orders safety signals from informational to critical.
type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarn     Severity = "warn"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

var severityOrder = map[Severity]int{
	SeverityInfo:     0,
	SeverityWarn:     1,
	SeverityHigh:     2,
	SeverityCritical: 3,
}

// AtLeast reports whether s is as severe as other.
func (s Severity) AtLeast(other Severity) bool {
	return severityOrder[s] >= severityOrder[other]
}

// Rule is a species- and category-scoped safety rule for one ingredient.
// A rule only fires when its target ingredient is matched AND its scope
// includes the current analysis context.
type Rule struct {
	ID           string            `json:"id"`
	IngredientID string            `json:"ingredientId"`
	Species      []Species         `json:"species"`
	Categories   []ProductCategory `json:"categories"`
	Severity     Severity          `json:"severity"`
	ScoreImpact  float64           `json:"scoreImpact"`
	Explanation  string            `json:"explanation"`
	Evidence     string            `json:"evidence,omitempty"`
}

// AppliesTo reports whether the rule's scope includes the analysis context.
// An empty species or category list means "all".
func (r *Rule) AppliesTo(species Species, category ProductCategory) bool {
	if len(r.Species) > 0 {
		found := false
		for _, s := range r.Species {
			if s == species {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if len(r.Categories) > 0 {
		found := false
		for _, c := range r.Categories {
			if c == category {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}
