package layout

import (
	"testing"

	"github.com/rbergman/wordwall/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func entry(word string, count int, cat domain.Category) domain.WordEntry {
	return domain.WordEntry{Word: word, Count: count, Category: cat}
}

func TestFontSize_LinearInterpolation(t *testing.T) {
	assert.Equal(t, MinFontSize, FontSize(1, 1, 11))
	assert.Equal(t, MaxFontSize, FontSize(11, 1, 11))
	assert.InDelta(t, (MinFontSize+MaxFontSize)/2, FontSize(6, 1, 11), 0.001)
}

func TestFontSize_UniformCountsGetMaximum(t *testing.T) {
	assert.Equal(t, MaxFontSize, FontSize(3, 3, 3))
	assert.Equal(t, MaxFontSize, FontSize(1, 1, 1))
}

func TestCompute_EmptyAndDegenerateInputs(t *testing.T) {
	assert.Nil(t, Compute(nil, 800, 600))
	assert.Nil(t, Compute([]domain.WordEntry{entry("fire", 1, domain.CategoryPositive)}, 0, 600))
	assert.Nil(t, Compute([]domain.WordEntry{entry("fire", 1, domain.CategoryPositive)}, 800, 0))
}

func TestCompute_HighestCountClaimsCenter(t *testing.T) {
	words := []domain.WordEntry{
		entry("fire", 10, domain.CategoryPositive),
		entry("bass", 1, domain.CategoryTechnical),
	}
	positions := Compute(words, 800, 600)
	require.Len(t, positions, 2)

	// The first word is placed at the spiral origin: centered.
	first := positions[0]
	assert.Equal(t, "fire", first.Word)
	assert.InDelta(t, 400-first.Width/2, first.X, 0.001)
	assert.InDelta(t, 300-first.Height/2, first.Y, 0.001)

	// The lower-count word ends up strictly further from the center.
	second := positions[1]
	firstDist := centerDistance(first, 400, 300)
	secondDist := centerDistance(second, 400, 300)
	assert.Greater(t, secondDist, firstDist)
}

func centerDistance(p domain.WordPosition, cx, cy float64) float64 {
	dx := p.X + p.Width/2 - cx
	dy := p.Y + p.Height/2 - cy
	return dx*dx + dy*dy
}

func TestCompute_NoOverlaps(t *testing.T) {
	words := []domain.WordEntry{
		entry("fire", 9, domain.CategoryPositive),
		entry("bass", 7, domain.CategoryTechnical),
		entry("love", 5, domain.CategoryPositive),
		entry("chill", 4, domain.CategoryMood),
		entry("techno", 3, domain.CategoryGenre),
		entry("melody", 2, domain.CategoryElement),
		entry("loud", 1, domain.CategoryNegative),
	}
	positions := Compute(words, 800, 600)
	require.Len(t, positions, len(words))

	for i := 0; i < len(positions); i++ {
		for j := i + 1; j < len(positions); j++ {
			a, b := positions[i], positions[j]
			overlaps := a.X < b.X+b.Width && b.X < a.X+a.Width &&
				a.Y < b.Y+b.Height && b.Y < a.Y+a.Height
			assert.False(t, overlaps, "%s and %s overlap", a.Word, b.Word)
		}
	}
}

func TestCompute_AllWordsInsideBounds(t *testing.T) {
	words := []domain.WordEntry{
		entry("fire", 5, domain.CategoryPositive),
		entry("bass", 3, domain.CategoryTechnical),
		entry("love", 1, domain.CategoryPositive),
	}
	width, height := 400.0, 300.0
	for _, p := range Compute(words, width, height) {
		assert.GreaterOrEqual(t, p.X, 0.0, "%s left edge", p.Word)
		assert.GreaterOrEqual(t, p.Y, 0.0, "%s top edge", p.Word)
		assert.LessOrEqual(t, p.X+p.Width, width, "%s right edge", p.Word)
		assert.LessOrEqual(t, p.Y+p.Height, height, "%s bottom edge", p.Word)
	}
}

func TestCompute_Deterministic(t *testing.T) {
	words := []domain.WordEntry{
		entry("fire", 8, domain.CategoryPositive),
		entry("bass", 5, domain.CategoryTechnical),
		entry("chill", 2, domain.CategoryMood),
	}
	first := Compute(words, 800, 600)
	second := Compute(words, 800, 600)
	assert.Equal(t, first, second)
}

func TestCompute_OmitsUnplaceableWords(t *testing.T) {
	// A surface barely larger than one word: later words exhaust the
	// placement budget and are skipped without error.
	words := []domain.WordEntry{
		entry("aa", 5, domain.CategoryGeneral),
		entry("bb", 4, domain.CategoryGeneral),
		entry("cc", 3, domain.CategoryGeneral),
	}
	positions := Compute(words, 120, 80)
	require.NotEmpty(t, positions)
	assert.Less(t, len(positions), len(words))
	assert.Equal(t, "aa", positions[0].Word)
}

func TestColor_KnownAndFallback(t *testing.T) {
	assert.Equal(t, "#4ade80", Color(domain.CategoryPositive))
	assert.Equal(t, Color(domain.CategoryGeneral), Color(domain.Category("nonsense")))
}
