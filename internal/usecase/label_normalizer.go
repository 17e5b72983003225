package usecase

import (
	"regexp"
	"strings"

	"github.com/pawlens/backend/internal/domain"
	"github.com/pawlens/backend/internal/knowledge"
)

// Package-level compiled regex patterns for performance
var (
	// Matches parenthetical qualifiers like "(a source of vitamin E)"
	parentheticalRegex = regexp.MustCompile(`\([^)]*\)|\[[^\]]*\]`)

	// Matches percentage tokens like "4%", "12.5 %"
	percentTokenRegex = regexp.MustCompile(`\b\d+(?:\.\d+)?\s*%`)

	// Matches bare numeric tokens left over after percent stripping
	bareNumberRegex = regexp.MustCompile(`\b\d+(?:\.\d+)?\b`)

	// Fallback list separators when the label uses no commas
	altSeparatorRegex = regexp.MustCompile(`[;\n\x{2022}\x{00b7}]`)

	labelSpacesRegex = regexp.MustCompile(`\s+`)
)

// descriptorWords is the fixed vocabulary of packaging/processing descriptors
// stripped before synonym lookup. These words describe preparation, not
// identity: "dried chicken" is still chicken.
var descriptorWords = map[string]bool{
	// Preparation/processing
	"dried": true, "dehydrated": true, "fresh": true, "frozen": true,
	"raw": true, "cooked": true, "roasted": true, "steamed": true,
	"ground": true, "whole": true, "minced": true, "diced": true,
	"powdered": true, "concentrated": true, "hydrolyzed": true,
	// Marketing/quality descriptors
	"organic": true, "natural": true, "premium": true, "quality": true,
	"real": true, "certified": true, "grade": true, "human-grade": true,
	"farm-raised": true, "wild-caught": true, "cage-free": true,
	"free-range": true, "grass-fed": true, "pasture-raised": true,
	"sustainably": true, "sourced": true, "locally": true, "non-gmo": true,
	// Cut/processing qualifiers that never change ingredient identity
	"by-product": true, "boneless": true, "skinless": true,
}

// splitLabels splits raw ingredient text into ordered, trimmed labels with
// 1-based ranks. Commas are the primary separator; semicolons, newlines and
// bullet characters are the fallback when no comma is present. Empty input
// yields an empty slice, never an error.
func splitLabels(rawText string) []domain.RawLabel {
	rawText = strings.TrimSpace(rawText)
	if rawText == "" {
		return []domain.RawLabel{}
	}

	var parts []string
	if strings.Contains(rawText, ",") {
		parts = strings.Split(rawText, ",")
	} else {
		parts = altSeparatorRegex.Split(rawText, -1)
	}

	labels := make([]domain.RawLabel, 0, len(parts))
	rank := 0
	for _, part := range parts {
		text := strings.TrimSpace(part)
		text = strings.Trim(text, ".")
		if text == "" {
			continue
		}
		rank++
		labels = append(labels, domain.RawLabel{Text: text, Rank: rank})
	}
	return labels
}

// normalizeLabel produces the canonical lookup form of one label: lowercase,
// parentheticals dropped, percentage and bare numeric tokens removed,
// punctuation stripped, whitespace collapsed.
func normalizeLabel(text string) string {
	cleaned := parentheticalRegex.ReplaceAllString(text, " ")
	cleaned = percentTokenRegex.ReplaceAllString(cleaned, " ")
	cleaned = knowledge.NormalizePhrase(cleaned)
	cleaned = bareNumberRegex.ReplaceAllString(cleaned, " ")
	cleaned = labelSpacesRegex.ReplaceAllString(cleaned, " ")
	return strings.TrimSpace(cleaned)
}

// stripDescriptors removes descriptor vocabulary words from a normalized
// label. Removal never collapses a label to the empty string; if every word
// is a descriptor the label is returned unchanged.
func stripDescriptors(label string) string {
	words := strings.Fields(label)
	kept := make([]string, 0, len(words))
	for _, w := range words {
		if !descriptorWords[w] {
			kept = append(kept, w)
		}
	}
	if len(kept) == 0 {
		return label
	}
	return strings.Join(kept, " ")
}
