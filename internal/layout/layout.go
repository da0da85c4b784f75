// Package layout computes collision-free, frequency-scaled 2D positions
// for a canonical word list using a deterministic spiral search.
package layout

import (
	"math"

	"github.com/rbergman/wordwall/internal/domain"
	"github.com/rbergman/wordwall/internal/metrics"
)

const (
	MinFontSize = 14.0
	MaxFontSize = 48.0

	// Bounding-box estimation factors. The drawing surface measures real
	// glyphs; these approximations only need to be conservative enough for
	// overlap checks.
	glyphWidthFactor = 0.6
	lineHeightFactor = 1.2

	// Spiral search parameters.
	angleStep   = 0.35 // radians
	radiusStep  = 1.5
	maxAttempts = 500
	margin      = 10.0
	padding     = 4.0
)

var categoryColors = map[domain.Category]string{
	domain.CategoryPositive:  "#4ade80",
	domain.CategoryNegative:  "#f87171",
	domain.CategoryTechnical: "#60a5fa",
	domain.CategoryMood:      "#c084fc",
	domain.CategoryGenre:     "#facc15",
	domain.CategoryElement:   "#2dd4bf",
	domain.CategoryGeneral:   "#d1d5db",
}

// Color returns the display color for a category.
func Color(cat domain.Category) string {
	if c, ok := categoryColors[cat]; ok {
		return c
	}
	return categoryColors[domain.CategoryGeneral]
}

// FontSize maps a count linearly within [minCount, maxCount] onto the
// fixed size range. A single word or uniform counts map to the maximum.
func FontSize(count, minCount, maxCount int) float64 {
	if maxCount <= minCount {
		return MaxFontSize
	}
	t := float64(count-minCount) / float64(maxCount-minCount)
	return MinFontSize + t*(MaxFontSize-MinFontSize)
}

type box struct {
	x, y, w, h float64
}

func (b box) overlaps(o box) bool {
	return b.x < o.x+o.w+padding &&
		o.x < b.x+b.w+padding &&
		b.y < o.y+o.h+padding &&
		o.y < b.y+b.h+padding
}

func (b box) inside(width, height float64) bool {
	return b.x >= margin && b.y >= margin &&
		b.x+b.w <= width-margin && b.y+b.h <= height-margin
}

// Compute places the words of a canonical list (sorted descending by
// count) on a width×height surface. Words are processed strictly in list
// order so higher-frequency words claim central positions. A word whose
// placement budget is exhausted is omitted from this pass; that is not an
// error and may resolve on a later pass.
func Compute(words []domain.WordEntry, width, height float64) []domain.WordPosition {
	if len(words) == 0 || width <= 0 || height <= 0 {
		return nil
	}

	minCount, maxCount := words[len(words)-1].Count, words[0].Count
	for _, w := range words {
		if w.Count < minCount {
			minCount = w.Count
		}
		if w.Count > maxCount {
			maxCount = w.Count
		}
	}

	centerX, centerY := width/2, height/2
	placed := make([]box, 0, len(words))
	positions := make([]domain.WordPosition, 0, len(words))

	for _, entry := range words {
		fontSize := FontSize(entry.Count, minCount, maxCount)
		w := fontSize * glyphWidthFactor * float64(len([]rune(entry.Word)))
		h := fontSize * lineHeightFactor

		pos, ok := place(centerX, centerY, w, h, width, height, placed)
		if !ok {
			metrics.LayoutWordsOmitted.Inc()
			continue
		}

		placed = append(placed, pos)
		positions = append(positions, domain.WordPosition{
			Word:     entry.Word,
			X:        pos.x,
			Y:        pos.y,
			FontSize: fontSize,
			Width:    w,
			Height:   h,
			Color:    Color(entry.Category),
		})
	}

	return positions
}

// place runs the outward spiral search from the surface center. No
// randomness: identical inputs always produce identical placements.
func place(centerX, centerY, w, h, width, height float64, placed []box) (box, bool) {
	angle, radius := 0.0, 0.0

	for attempt := 0; attempt < maxAttempts; attempt++ {
		candidate := box{
			x: centerX + radius*math.Cos(angle) - w/2,
			y: centerY + radius*math.Sin(angle) - h/2,
			w: w,
			h: h,
		}

		if candidate.inside(width, height) && !overlapsAny(candidate, placed) {
			return candidate, true
		}

		angle += angleStep
		radius += radiusStep
	}

	return box{}, false
}

func overlapsAny(candidate box, placed []box) bool {
	for _, b := range placed {
		if candidate.overlaps(b) {
			return true
		}
	}
	return false
}
