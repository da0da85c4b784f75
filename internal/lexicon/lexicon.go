// Package lexicon tokenizes feedback text and classifies words into
// categories and sentiment valences using fixed tables.
package lexicon

import (
	"strings"
	"unicode"

	"github.com/rbergman/wordwall/internal/domain"
)

const (
	minWordLength         = 2
	maxWordsPerSubmission = 8
)

// stopwords are filtered before aggregation. Matching is case-insensitive
// (tokens are lowercased first).
var stopwords = map[string]struct{}{
	"a": {}, "an": {}, "and": {}, "are": {}, "as": {}, "at": {}, "be": {},
	"but": {}, "by": {}, "for": {}, "from": {}, "has": {}, "he": {}, "in": {},
	"is": {}, "it": {}, "its": {}, "of": {}, "on": {}, "or": {}, "so": {},
	"that": {}, "the": {}, "this": {}, "to": {}, "was": {}, "we": {},
	"were": {}, "with": {}, "you": {}, "your": {}, "very": {}, "really": {},
	"just": {}, "too": {},
}

var categories = map[string]domain.Category{
	// positive
	"fire": domain.CategoryPositive, "love": domain.CategoryPositive,
	"amazing": domain.CategoryPositive, "great": domain.CategoryPositive,
	"awesome": domain.CategoryPositive, "beautiful": domain.CategoryPositive,
	"perfect": domain.CategoryPositive, "banger": domain.CategoryPositive,
	// negative
	"boring": domain.CategoryNegative, "loud": domain.CategoryNegative,
	"quiet": domain.CategoryNegative, "slow": domain.CategoryNegative,
	"repetitive": domain.CategoryNegative, "messy": domain.CategoryNegative,
	"flat": domain.CategoryNegative, "harsh": domain.CategoryNegative,
	// technical
	"bass": domain.CategoryTechnical, "treble": domain.CategoryTechnical,
	"mix": domain.CategoryTechnical, "drop": domain.CategoryTechnical,
	"tempo": domain.CategoryTechnical, "vocals": domain.CategoryTechnical,
	"synth": domain.CategoryTechnical, "beat": domain.CategoryTechnical,
	// mood
	"chill": domain.CategoryMood, "hype": domain.CategoryMood,
	"dark": domain.CategoryMood, "dreamy": domain.CategoryMood,
	"energetic": domain.CategoryMood, "melancholic": domain.CategoryMood,
	// genre
	"techno": domain.CategoryGenre, "house": domain.CategoryGenre,
	"ambient": domain.CategoryGenre, "jazz": domain.CategoryGenre,
	"funk": domain.CategoryGenre, "trance": domain.CategoryGenre,
	// element
	"melody": domain.CategoryElement, "rhythm": domain.CategoryElement,
	"harmony": domain.CategoryElement, "groove": domain.CategoryElement,
	"breakdown": domain.CategoryElement, "hook": domain.CategoryElement,
}

var valences = map[string]float64{
	"fire": 1, "love": 1, "amazing": 1, "great": 0.8, "awesome": 1,
	"beautiful": 0.8, "perfect": 1, "banger": 1, "hype": 0.6, "chill": 0.3,
	"groove": 0.4, "boring": -1, "loud": -0.4, "quiet": -0.3, "slow": -0.4,
	"repetitive": -0.8, "messy": -0.8, "flat": -0.6, "harsh": -0.6,
}

// Tokenize lowercases the text, strips punctuation, splits on whitespace,
// drops stopwords and short tokens, and caps the token count. Duplicate
// tokens are preserved so repeated words count multiple times.
func Tokenize(text string) []string {
	cleaned := strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsNumber(r) || unicode.IsSpace(r) {
			return r
		}
		return ' '
	}, text)
	fields := strings.Fields(strings.ToLower(cleaned))

	words := make([]string, 0, len(fields))
	for _, w := range fields {
		if len([]rune(w)) < minWordLength {
			continue
		}
		if _, skip := stopwords[w]; skip {
			continue
		}
		words = append(words, w)
		if len(words) == maxWordsPerSubmission {
			break
		}
	}
	return words
}

// Categorize returns the category for a word, defaulting to general.
func Categorize(word string) domain.Category {
	if cat, ok := categories[strings.ToLower(word)]; ok {
		return cat
	}
	return domain.CategoryGeneral
}

// Valence returns the sentiment weight of a word in [-1, 1]; unknown words
// are neutral.
func Valence(word string) float64 {
	return valences[strings.ToLower(word)]
}

// Classify tokenizes text and attaches category and valence to each token.
func Classify(text string) []domain.ScoredWord {
	tokens := Tokenize(text)
	scored := make([]domain.ScoredWord, 0, len(tokens))
	for _, t := range tokens {
		scored = append(scored, domain.ScoredWord{
			Word:     t,
			Category: Categorize(t),
			Valence:  Valence(t),
		})
	}
	return scored
}
