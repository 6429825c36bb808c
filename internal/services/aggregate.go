package services

import (
	"sort"

	"github.com/abrezinsky/pitchvote/internal/models"
)

// Average returns the arithmetic mean of ratings, or 0 when there are none
func Average(ratings []float64) float64 {
	if len(ratings) == 0 {
		return 0
	}
	var sum float64
	for _, r := range ratings {
		sum += r
	}
	return sum / float64(len(ratings))
}

// WithAverage returns p with Rating recomputed from its raw ratings
func WithAverage(p models.Pitch) models.Pitch {
	if p.Ratings == nil {
		p.Ratings = []float64{}
	}
	p.Rating = Average(p.Ratings)
	return p
}

// WithAverages applies WithAverage to every pitch in place
func WithAverages(pitches []models.Pitch) []models.Pitch {
	for i := range pitches {
		pitches[i] = WithAverage(pitches[i])
	}
	return pitches
}

// WinnerOf returns the highest-rated pitch in category among pitches that
// have at least one rating. Ties go to more ratings, then the smaller id.
// Visibility is ignored. Returns nil when no pitch in the category is rated.
func WinnerOf(category string, pitches []models.Pitch) *models.Pitch {
	var best *models.Pitch
	var bestAvg float64
	for i := range pitches {
		p := pitches[i]
		if p.Category != category || len(p.Ratings) == 0 {
			continue
		}
		avg := Average(p.Ratings)
		if best == nil || beats(avg, p, bestAvg, *best) {
			winner := WithAverage(p)
			best, bestAvg = &winner, avg
		}
	}
	return best
}

func beats(avg float64, p models.Pitch, bestAvg float64, best models.Pitch) bool {
	if avg != bestAvg {
		return avg > bestAvg
	}
	if len(p.Ratings) != len(best.Ratings) {
		return len(p.Ratings) > len(best.Ratings)
	}
	return p.ID < best.ID
}

// SortedVisiblePitches filters to visible pitches and orders them by the
// position of their category in categoryOrder, unknown categories last,
// then by title, then by id. The order is total.
func SortedVisiblePitches(pitches []models.Pitch, categoryOrder []string) []models.Pitch {
	rank := make(map[string]int, len(categoryOrder))
	for i, name := range categoryOrder {
		if _, seen := rank[name]; !seen {
			rank[name] = i
		}
	}
	position := func(category string) int {
		if i, ok := rank[category]; ok {
			return i
		}
		return len(categoryOrder)
	}

	visible := make([]models.Pitch, 0, len(pitches))
	for _, p := range pitches {
		if p.Visible {
			visible = append(visible, p)
		}
	}

	sort.SliceStable(visible, func(i, j int) bool {
		a, b := visible[i], visible[j]
		if pa, pb := position(a.Category), position(b.Category); pa != pb {
			return pa < pb
		}
		if a.Title != b.Title {
			return a.Title < b.Title
		}
		return a.ID < b.ID
	})
	return visible
}

// Direction is a live-mode advance direction
type Direction string

const (
	Next     Direction = "next"
	Previous Direction = "previous"
)

// Valid reports whether d is a known direction
func (d Direction) Valid() bool {
	return d == Next || d == Previous
}

// Neighbor returns the id adjacent to currentID in sequence. It returns
// false at either end; sequences never wrap. When currentID is nil or not
// in sequence, Next yields the first pitch and Previous yields nothing.
func Neighbor(sequence []models.Pitch, currentID *string, dir Direction) (string, bool) {
	idx := -1
	if currentID != nil {
		for i, p := range sequence {
			if p.ID == *currentID {
				idx = i
				break
			}
		}
	}

	switch dir {
	case Next:
		if idx < len(sequence)-1 {
			return sequence[idx+1].ID, true
		}
	case Previous:
		if idx > 0 {
			return sequence[idx-1].ID, true
		}
	}
	return "", false
}
