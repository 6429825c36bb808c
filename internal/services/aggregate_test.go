package services

import (
	"testing"

	"github.com/abrezinsky/pitchvote/internal/models"
)

func pitch(id, category string, visible bool, ratings ...float64) models.Pitch {
	if ratings == nil {
		ratings = []float64{}
	}
	return models.Pitch{ID: id, Title: "Pitch " + id, Category: category, Visible: visible, Ratings: ratings}
}

func ids(pitches []models.Pitch) []string {
	out := make([]string, len(pitches))
	for i, p := range pitches {
		out[i] = p.ID
	}
	return out
}

func equalIDs(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestAverage(t *testing.T) {
	tests := []struct {
		name    string
		ratings []float64
		want    float64
	}{
		{"empty", nil, 0},
		{"single", []float64{3.5}, 3.5},
		{"two", []float64{4, 5}, 4.5},
		{"after append", []float64{4, 5, 3}, 4.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Average(tt.ratings); got != tt.want {
				t.Errorf("Average(%v) = %v, want %v", tt.ratings, got, tt.want)
			}
		})
	}
}

func TestWithAverage_NormalizesNilRatings(t *testing.T) {
	p := WithAverage(models.Pitch{ID: "a"})
	if p.Ratings == nil || p.Rating != 0 {
		t.Errorf("expected empty ratings and zero average, got %+v", p)
	}
}

func TestWinnerOf(t *testing.T) {
	pitches := []models.Pitch{
		pitch("a", "VFX", true, 3, 3),
		pitch("b", "VFX", true, 5, 4),
		pitch("c", "VFX", false, 5, 5), // hidden pitches can still win
		pitch("d", "Web", true, 5),
		pitch("e", "VFX", true), // unrated
	}

	w := WinnerOf("VFX", pitches)
	if w == nil || w.ID != "c" {
		t.Fatalf("expected c to win, got %+v", w)
	}
	if w.Rating != 5 {
		t.Errorf("expected winner average 5, got %v", w.Rating)
	}

	again := WinnerOf("VFX", pitches)
	if again == nil || again.ID != w.ID {
		t.Error("expected WinnerOf to be idempotent")
	}
}

func TestWinnerOf_NoneWhenUnrated(t *testing.T) {
	pitches := []models.Pitch{pitch("a", "VFX", true), pitch("b", "VFX", true)}

	if w := WinnerOf("VFX", pitches); w != nil {
		t.Errorf("expected no winner, got %+v", w)
	}
	if w := WinnerOf("Missing", pitches); w != nil {
		t.Errorf("expected no winner for empty category, got %+v", w)
	}
}

func TestWinnerOf_TieBreak(t *testing.T) {
	tests := []struct {
		name    string
		pitches []models.Pitch
		want    string
	}{
		{
			"more ratings wins equal average",
			[]models.Pitch{pitch("a", "X", true, 4), pitch("b", "X", true, 4, 4)},
			"b",
		},
		{
			"smaller id wins full tie",
			[]models.Pitch{pitch("z", "X", true, 4, 5), pitch("m", "X", true, 5, 4)},
			"m",
		},
		{
			"order of input does not matter",
			[]models.Pitch{pitch("m", "X", true, 5, 4), pitch("z", "X", true, 4, 5)},
			"m",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := WinnerOf("X", tt.pitches)
			if w == nil || w.ID != tt.want {
				t.Errorf("expected %s, got %+v", tt.want, w)
			}
		})
	}
}

func TestSortedVisiblePitches_CategoryOrder(t *testing.T) {
	pitches := []models.Pitch{
		pitch("1", "B", true),
		pitch("2", "A", true),
	}

	got := ids(SortedVisiblePitches(pitches, []string{"A", "B"}))
	if !equalIDs(got, []string{"2", "1"}) {
		t.Errorf("expected [2 1], got %v", got)
	}
}

func TestSortedVisiblePitches_FiltersAndOrders(t *testing.T) {
	pitches := []models.Pitch{
		{ID: "u", Title: "Zeta", Category: "Orphan", Visible: true},
		{ID: "h", Title: "Alpha", Category: "A", Visible: false},
		{ID: "b2", Title: "Same", Category: "B", Visible: true},
		{ID: "b1", Title: "Same", Category: "B", Visible: true},
		{ID: "a", Title: "Beta", Category: "A", Visible: true},
		{ID: "a0", Title: "Aardvark", Category: "A", Visible: true},
	}

	sorted := SortedVisiblePitches(pitches, []string{"A", "B"})
	got := ids(sorted)
	want := []string{"a0", "a", "b1", "b2", "u"}
	if !equalIDs(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}

	// Sorting an already sorted sequence is a no-op
	if again := ids(SortedVisiblePitches(sorted, []string{"A", "B"})); !equalIDs(again, want) {
		t.Errorf("expected re-sort to be stable, got %v", again)
	}
}

func TestNeighbor(t *testing.T) {
	seq := []models.Pitch{pitch("a", "X", true), pitch("b", "X", true), pitch("c", "X", true)}
	str := models.StringPtr

	tests := []struct {
		name    string
		current *string
		dir     Direction
		want    string
		wantOK  bool
	}{
		{"next from middle", str("b"), Next, "c", true},
		{"previous from middle", str("b"), Previous, "a", true},
		{"next at end does not wrap", str("c"), Next, "", false},
		{"previous at start does not wrap", str("a"), Previous, "", false},
		{"next with no current starts at first", nil, Next, "a", true},
		{"previous with no current is a no-op", nil, Previous, "", false},
		{"next from unknown starts at first", str("gone"), Next, "a", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Neighbor(seq, tt.current, tt.dir)
			if got != tt.want || ok != tt.wantOK {
				t.Errorf("Neighbor() = %q, %v; want %q, %v", got, ok, tt.want, tt.wantOK)
			}
		})
	}

	if _, ok := Neighbor(nil, nil, Next); ok {
		t.Error("expected no neighbor in an empty sequence")
	}
}

func TestDirection_Valid(t *testing.T) {
	if !Next.Valid() || !Previous.Valid() || Direction("sideways").Valid() {
		t.Error("unexpected direction validity")
	}
}
