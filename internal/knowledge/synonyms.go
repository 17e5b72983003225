package knowledge

import (
	"regexp"
	"sort"
	"strings"

	"github.com/agnivade/levenshtein"
)

// minPartialLen keeps very short phrases out of substring matching, where a
// generic fragment like "oil" would shadow everything.
const minPartialLen = 4

var phraseCharsRegex = regexp.MustCompile(`[^a-z0-9&\-\s]`)
var phraseSpacesRegex = regexp.MustCompile(`\s+`)

// NormalizePhrase lowercases, strips punctuation and collapses whitespace.
// Synonym keys and matcher lookups must go through the same normalization.
func NormalizePhrase(s string) string {
	s = strings.ToLower(s)
	s = phraseCharsRegex.ReplaceAllString(s, " ")
	s = phraseSpacesRegex.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

type phraseEntry struct {
	phrase       string
	ingredientID string
}

// SynonymIndex maps normalized label phrases to ingredient identifiers.
// Many phrases may map to one ingredient; one phrase never maps to two.
type SynonymIndex struct {
	exact   map[string]string
	phrases []phraseEntry // sorted longest first for partial matching
}

func newSynonymIndex(phraseOwner map[string]string) *SynonymIndex {
	ix := &SynonymIndex{
		exact:   make(map[string]string, len(phraseOwner)),
		phrases: make([]phraseEntry, 0, len(phraseOwner)),
	}
	for phrase, id := range phraseOwner {
		ix.exact[phrase] = id
		ix.phrases = append(ix.phrases, phraseEntry{phrase: phrase, ingredientID: id})
	}
	sort.Slice(ix.phrases, func(i, j int) bool {
		if len(ix.phrases[i].phrase) != len(ix.phrases[j].phrase) {
			return len(ix.phrases[i].phrase) > len(ix.phrases[j].phrase)
		}
		return ix.phrases[i].phrase < ix.phrases[j].phrase
	})
	return ix
}

// LookupExact resolves a normalized phrase to an ingredient identifier.
func (ix *SynonymIndex) LookupExact(phrase string) (string, bool) {
	id, ok := ix.exact[phrase]
	return id, ok
}

// LookupPartial resolves a label that contains a known phrase. Phrases are
// tried longest first so a specific phrase ("chicken meal") wins over a
// generic one ("chicken"). The match is accepted only when every candidate
// at the winning length maps to the same ingredient; ambiguous partials
// resolve to no match, never a guess.
func (ix *SynonymIndex) LookupPartial(label string) (string, bool) {
	bestLen := 0
	candidates := make(map[string]bool)
	for _, e := range ix.phrases {
		if len(e.phrase) < minPartialLen {
			break
		}
		if bestLen > 0 && len(e.phrase) < bestLen {
			break
		}
		if containsPhrase(label, e.phrase) {
			bestLen = len(e.phrase)
			candidates[e.ingredientID] = true
		}
	}
	if len(candidates) != 1 {
		return "", false
	}
	for id := range candidates {
		return id, true
	}
	return "", false
}

// LookupFuzzy resolves a label within a small edit distance of a known
// phrase, to absorb OCR noise and label typos. Short phrases are excluded
// to avoid false positives, and an ambiguous result resolves to no match.
func (ix *SynonymIndex) LookupFuzzy(label string, maxDistance int) (string, bool) {
	if maxDistance <= 0 || len(label) <= 4 {
		return "", false
	}
	bestDist := maxDistance + 1
	candidates := make(map[string]bool)
	for _, e := range ix.phrases {
		if len(e.phrase) <= 4 {
			continue
		}
		lenDiff := len(e.phrase) - len(label)
		if lenDiff < 0 {
			lenDiff = -lenDiff
		}
		if lenDiff > maxDistance {
			continue
		}
		dist := levenshtein.ComputeDistance(label, e.phrase)
		if dist > maxDistance {
			continue
		}
		if dist < bestDist {
			bestDist = dist
			candidates = map[string]bool{e.ingredientID: true}
		} else if dist == bestDist {
			candidates[e.ingredientID] = true
		}
	}
	if len(candidates) != 1 {
		return "", false
	}
	for id := range candidates {
		return id, true
	}
	return "", false
}

// containsPhrase checks for a word-boundary substring match.
func containsPhrase(label, phrase string) bool {
	return strings.Contains(" "+label+" ", " "+phrase+" ")
}
