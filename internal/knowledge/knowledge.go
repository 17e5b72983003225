// Package knowledge loads the curated ingredient knowledge base embedded in
// the binary. The base is read-only after Load and safe for concurrent use.
package knowledge

import (
	"embed"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/pawlens/backend/internal/domain"
)

//go:embed data/ingredients.yaml data/rules.yaml
var dataFS embed.FS

// Base is the loaded knowledge base: ingredient records, the synonym index
// built from them, and the safety rule set.
type Base struct {
	ingredients  map[string]*domain.Ingredient
	synonymsByID map[string][]string
	index        *SynonymIndex
	rules        *RuleSet
}

type ingredientsFile struct {
	Ingredients []ingredientRecord `yaml:"ingredients"`
}

type ingredientRecord struct {
	ID              string            `yaml:"id"`
	Name            string            `yaml:"name"`
	Scientific      string            `yaml:"scientific"`
	Species         []string          `yaml:"species"`
	Categories      []string          `yaml:"categories"`
	Risk            map[string]string `yaml:"risk"`
	AllergenNote    string            `yaml:"allergen_note"`
	ProcessingLevel int               `yaml:"processing_level"`
	ToxicDose       map[string]string `yaml:"toxic_dose"`
	Synonyms        []string          `yaml:"synonyms"`
	Citations       []string          `yaml:"citations"`
}

type rulesFile struct {
	Rules []ruleRecord `yaml:"rules"`
}

type ruleRecord struct {
	ID          string   `yaml:"id"`
	Ingredient  string   `yaml:"ingredient"`
	Species     []string `yaml:"species"`
	Categories  []string `yaml:"categories"`
	Severity    string   `yaml:"severity"`
	ScoreImpact float64  `yaml:"score_impact"`
	Explanation string   `yaml:"explanation"`
	Evidence    string   `yaml:"evidence"`
}

// Load parses and validates the embedded datasets.
func Load() (*Base, error) {
	rawIngredients, err := dataFS.ReadFile("data/ingredients.yaml")
	if err != nil {
		return nil, fmt.Errorf("read ingredients dataset: %w", err)
	}
	var ingFile ingredientsFile
	if err := yaml.Unmarshal(rawIngredients, &ingFile); err != nil {
		return nil, fmt.Errorf("parse ingredients dataset: %w", err)
	}

	rawRules, err := dataFS.ReadFile("data/rules.yaml")
	if err != nil {
		return nil, fmt.Errorf("read rules dataset: %w", err)
	}
	var rulesF rulesFile
	if err := yaml.Unmarshal(rawRules, &rulesF); err != nil {
		return nil, fmt.Errorf("parse rules dataset: %w", err)
	}

	return build(ingFile.Ingredients, rulesF.Rules)
}

func build(records []ingredientRecord, ruleRecords []ruleRecord) (*Base, error) {
	base := &Base{
		ingredients:  make(map[string]*domain.Ingredient, len(records)),
		synonymsByID: make(map[string][]string, len(records)),
	}
	phraseOwner := make(map[string]string)

	for _, rec := range records {
		if rec.ID == "" || rec.Name == "" {
			return nil, fmt.Errorf("ingredient %q: id and name are required", rec.ID)
		}
		if _, dup := base.ingredients[rec.ID]; dup {
			return nil, fmt.Errorf("ingredient %q: duplicate id", rec.ID)
		}
		if len(rec.Species) == 0 {
			return nil, fmt.Errorf("ingredient %q: species set must be non-empty", rec.ID)
		}

		ing := &domain.Ingredient{
			ID:              rec.ID,
			CommonName:      rec.Name,
			ScientificName:  rec.Scientific,
			AllergenNote:    rec.AllergenNote,
			ProcessingLevel: rec.ProcessingLevel,
			Risk:            make(map[domain.Species]domain.RiskLevel, len(rec.Risk)),
			Citations:       dedupeOrdered(rec.Citations),
		}
		if rec.ProcessingLevel < 0 || rec.ProcessingLevel > 4 {
			return nil, fmt.Errorf("ingredient %q: processing level %d out of range", rec.ID, rec.ProcessingLevel)
		}

		for _, s := range rec.Species {
			sp, ok := domain.ParseSpecies(s)
			if !ok {
				return nil, fmt.Errorf("ingredient %q: unknown species %q", rec.ID, s)
			}
			ing.Species = append(ing.Species, sp)
			risk, present := rec.Risk[s]
			if !present {
				return nil, fmt.Errorf("ingredient %q: missing risk level for species %q", rec.ID, s)
			}
			level, ok := parseRisk(risk)
			if !ok {
				return nil, fmt.Errorf("ingredient %q: unknown risk level %q", rec.ID, risk)
			}
			ing.Risk[sp] = level
		}

		for _, c := range rec.Categories {
			cat, ok := domain.ParseCategory(c)
			if !ok {
				return nil, fmt.Errorf("ingredient %q: unknown category %q", rec.ID, c)
			}
			ing.Categories = append(ing.Categories, cat)
		}

		if len(rec.ToxicDose) > 0 {
			ing.ToxicDose = make(map[domain.Species]string, len(rec.ToxicDose))
			for s, dose := range rec.ToxicDose {
				sp, ok := domain.ParseSpecies(s)
				if !ok {
					return nil, fmt.Errorf("ingredient %q: toxic dose for unknown species %q", rec.ID, s)
				}
				ing.ToxicDose[sp] = dose
			}
		}

		if len(rec.Synonyms) == 0 {
			return nil, fmt.Errorf("ingredient %q: at least one synonym phrase is required", rec.ID)
		}
		for _, raw := range rec.Synonyms {
			phrase := NormalizePhrase(raw)
			if phrase == "" {
				return nil, fmt.Errorf("ingredient %q: synonym %q normalizes to empty", rec.ID, raw)
			}
			if owner, taken := phraseOwner[phrase]; taken && owner != rec.ID {
				return nil, fmt.Errorf("synonym %q maps to both %q and %q", phrase, owner, rec.ID)
			}
			phraseOwner[phrase] = rec.ID
			base.synonymsByID[rec.ID] = append(base.synonymsByID[rec.ID], phrase)
		}

		base.ingredients[rec.ID] = ing
	}

	rules := make([]domain.Rule, 0, len(ruleRecords))
	for _, rec := range ruleRecords {
		if rec.ID == "" {
			return nil, fmt.Errorf("rule with empty id")
		}
		if _, known := base.ingredients[rec.Ingredient]; !known {
			return nil, fmt.Errorf("rule %q: unknown ingredient %q", rec.ID, rec.Ingredient)
		}
		sev, ok := parseSeverity(rec.Severity)
		if !ok {
			return nil, fmt.Errorf("rule %q: unknown severity %q", rec.ID, rec.Severity)
		}
		if rec.ScoreImpact <= 0 {
			return nil, fmt.Errorf("rule %q: score impact must be positive", rec.ID)
		}
		rule := domain.Rule{
			ID:           rec.ID,
			IngredientID: rec.Ingredient,
			Severity:     sev,
			ScoreImpact:  rec.ScoreImpact,
			Explanation:  rec.Explanation,
			Evidence:     rec.Evidence,
		}
		for _, s := range rec.Species {
			sp, ok := domain.ParseSpecies(s)
			if !ok {
				return nil, fmt.Errorf("rule %q: unknown species %q", rec.ID, s)
			}
			rule.Species = append(rule.Species, sp)
		}
		for _, c := range rec.Categories {
			cat, ok := domain.ParseCategory(c)
			if !ok {
				return nil, fmt.Errorf("rule %q: unknown category %q", rec.ID, c)
			}
			rule.Categories = append(rule.Categories, cat)
		}
		rules = append(rules, rule)
	}

	base.index = newSynonymIndex(phraseOwner)
	base.rules = newRuleSet(rules)
	return base, nil
}

// Ingredient returns the record for an identifier.
func (b *Base) Ingredient(id string) (*domain.Ingredient, bool) {
	ing, ok := b.ingredients[id]
	return ing, ok
}

// SynonymsOf returns the normalized phrases registered for an ingredient.
func (b *Base) SynonymsOf(id string) []string {
	return b.synonymsByID[id]
}

// Synonyms returns the phrase index.
func (b *Base) Synonyms() *SynonymIndex {
	return b.index
}

// Rules returns the safety rule set.
func (b *Base) Rules() *RuleSet {
	return b.rules
}

// Len returns the number of ingredient records.
func (b *Base) Len() int {
	return len(b.ingredients)
}

func parseRisk(s string) (domain.RiskLevel, bool) {
	switch domain.RiskLevel(s) {
	case domain.RiskSafe, domain.RiskCaution, domain.RiskToxic:
		return domain.RiskLevel(s), true
	}
	return "", false
}

func parseSeverity(s string) (domain.Severity, bool) {
	switch domain.Severity(s) {
	case domain.SeverityInfo, domain.SeverityWarn, domain.SeverityHigh, domain.SeverityCritical:
		return domain.Severity(s), true
	}
	return "", false
}

func dedupeOrdered(values []string) []string {
	if len(values) == 0 {
		return nil
	}
	seen := make(map[string]bool, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		if !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	return out
}
