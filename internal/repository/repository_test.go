package repository

import (
	"context"
	"errors"
	"testing"

	"github.com/abrezinsky/pitchvote/internal/models"
)

func newMemoryRepo(t *testing.T) *Repository {
	t.Helper()
	repo, err := New(":memory:")
	if err != nil {
		t.Fatalf("failed to create repository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func validPitch(title string) models.Pitch {
	return models.Pitch{
		Title:       title,
		Description: "A project",
		Presenter:   "Sam",
		ImageURL:    "https://example.com/" + title + ".png",
		Category:    "Web Development",
		Visible:     true,
	}
}

func TestPitch_CreateGetList(t *testing.T) {
	repo := newMemoryRepo(t)
	ctx := context.Background()

	idA, err := repo.CreatePitch(ctx, validPitch("A"))
	if err != nil {
		t.Fatalf("CreatePitch failed: %v", err)
	}
	idB, _ := repo.CreatePitch(ctx, validPitch("B"))

	p, err := repo.GetPitch(ctx, idA)
	if err != nil {
		t.Fatalf("GetPitch failed: %v", err)
	}
	if p.Title != "A" || !p.Visible || p.Ratings == nil || len(p.Ratings) != 0 {
		t.Errorf("unexpected pitch: %+v", p)
	}

	pitches, err := repo.ListPitches(ctx)
	if err != nil {
		t.Fatalf("ListPitches failed: %v", err)
	}
	if len(pitches) != 2 || pitches[0].ID != idA || pitches[1].ID != idB {
		t.Errorf("expected creation order [A B], got %+v", pitches)
	}
}

func TestPitch_GetMissing(t *testing.T) {
	repo := newMemoryRepo(t)

	if _, err := repo.GetPitch(context.Background(), "nope"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestPitch_UpdatePartial(t *testing.T) {
	repo := newMemoryRepo(t)
	ctx := context.Background()
	id, _ := repo.CreatePitch(ctx, validPitch("A"))

	hidden := false
	if err := repo.UpdatePitch(ctx, id, PitchUpdate{Visible: &hidden}); err != nil {
		t.Fatalf("UpdatePitch failed: %v", err)
	}

	p, _ := repo.GetPitch(ctx, id)
	if p.Visible {
		t.Error("expected pitch to be hidden")
	}
	if p.Title != "A" {
		t.Errorf("expected title untouched, got %q", p.Title)
	}

	if err := repo.UpdatePitch(ctx, "nope", PitchUpdate{}); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound for empty update on missing pitch, got %v", err)
	}
}

func TestRatings_AppendKeepsOrder(t *testing.T) {
	repo := newMemoryRepo(t)
	ctx := context.Background()
	id, _ := repo.CreatePitch(ctx, validPitch("A"))

	for _, s := range []float64{4, 5, 3} {
		if _, err := repo.AppendRating(ctx, id, s); err != nil {
			t.Fatalf("AppendRating failed: %v", err)
		}
	}

	p, _ := repo.GetPitch(ctx, id)
	if !RatingsEqual(p.Ratings, []float64{4, 5, 3}) {
		t.Errorf("expected [4 5 3], got %v", p.Ratings)
	}

	pitches, _ := repo.ListPitches(ctx)
	if !RatingsEqual(pitches[0].Ratings, []float64{4, 5, 3}) {
		t.Errorf("expected listed ratings [4 5 3], got %v", pitches[0].Ratings)
	}
}

func TestRatings_CompareAndAppend(t *testing.T) {
	repo := newMemoryRepo(t)
	ctx := context.Background()
	id, _ := repo.CreatePitch(ctx, validPitch("A"))
	repo.AppendRating(ctx, id, 4)

	got, err := repo.CompareAndAppendRatings(ctx, id, []float64{4}, []float64{5, 2})
	if err != nil {
		t.Fatalf("CompareAndAppendRatings failed: %v", err)
	}
	if !RatingsEqual(got, []float64{4, 5, 2}) {
		t.Errorf("expected [4 5 2], got %v", got)
	}

	if _, err := repo.CompareAndAppendRatings(ctx, id, []float64{4}, []float64{1}); !errors.Is(err, ErrRatingsChanged) {
		t.Errorf("expected ErrRatingsChanged, got %v", err)
	}
	if _, err := repo.CompareAndAppendRatings(ctx, "nope", nil, []float64{1}); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestRatings_Clear(t *testing.T) {
	repo := newMemoryRepo(t)
	ctx := context.Background()
	a, _ := repo.CreatePitch(ctx, validPitch("A"))
	b, _ := repo.CreatePitch(ctx, validPitch("B"))
	repo.AppendRating(ctx, a, 1)
	repo.AppendRating(ctx, a, 2)
	repo.AppendRating(ctx, b, 3)

	if err := repo.ClearRatings(ctx, a); err != nil {
		t.Fatalf("ClearRatings failed: %v", err)
	}
	pa, _ := repo.GetPitch(ctx, a)
	if len(pa.Ratings) != 0 {
		t.Errorf("expected A cleared, got %v", pa.Ratings)
	}

	n, err := repo.ClearAllRatings(ctx)
	if err != nil {
		t.Fatalf("ClearAllRatings failed: %v", err)
	}
	if n != 1 {
		t.Errorf("expected 1 rated pitch reset, got %d", n)
	}
}

func TestDeletePitch_CascadesRatings(t *testing.T) {
	repo := newMemoryRepo(t)
	ctx := context.Background()
	id, _ := repo.CreatePitch(ctx, validPitch("A"))
	repo.AppendRating(ctx, id, 5)

	if err := repo.DeletePitch(ctx, id); err != nil {
		t.Fatalf("DeletePitch failed: %v", err)
	}

	var count int
	repo.DB().QueryRow(`SELECT COUNT(*) FROM ratings`).Scan(&count)
	if count != 0 {
		t.Errorf("expected ratings removed with pitch, got %d", count)
	}
	if err := repo.DeletePitch(ctx, id); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound on second delete, got %v", err)
	}
}

func TestCategories_SeedOnceAndOrder(t *testing.T) {
	repo := newMemoryRepo(t)
	ctx := context.Background()

	n, err := repo.SeedCategories(ctx, models.DefaultCategories)
	if err != nil {
		t.Fatalf("SeedCategories failed: %v", err)
	}
	if n != len(models.DefaultCategories) {
		t.Errorf("expected %d seeded, got %d", len(models.DefaultCategories), n)
	}
	if n, _ := repo.SeedCategories(ctx, models.DefaultCategories); n != 0 {
		t.Errorf("expected second seed to be a no-op, got %d", n)
	}

	c, err := repo.CreateCategory(ctx, "Game Design")
	if err != nil {
		t.Fatalf("CreateCategory failed: %v", err)
	}
	if c.DisplayOrder != len(models.DefaultCategories)+1 {
		t.Errorf("expected display order %d, got %d", len(models.DefaultCategories)+1, c.DisplayOrder)
	}

	cats, _ := repo.ListCategories(ctx)
	if len(cats) != 5 || cats[0].Name != "Web Development" || cats[4].Name != "Game Design" {
		t.Errorf("unexpected category order: %+v", cats)
	}
}

func TestCategories_DuplicateAndDelete(t *testing.T) {
	repo := newMemoryRepo(t)
	ctx := context.Background()

	c, _ := repo.CreateCategory(ctx, "VFX")
	if _, err := repo.CreateCategory(ctx, "VFX"); !errors.Is(err, ErrDuplicate) {
		t.Errorf("expected ErrDuplicate, got %v", err)
	}

	if err := repo.DeleteCategory(ctx, c.ID); err != nil {
		t.Fatalf("DeleteCategory failed: %v", err)
	}
	if _, err := repo.GetCategory(ctx, c.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound after delete, got %v", err)
	}
}

func TestSettings(t *testing.T) {
	repo := newMemoryRepo(t)
	ctx := context.Background()

	if _, err := repo.GetSetting(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}

	repo.SetSetting(ctx, "audience_base_url", "http://a")
	repo.SetSetting(ctx, "audience_base_url", "http://b")
	v, err := repo.GetSetting(ctx, "audience_base_url")
	if err != nil || v != "http://b" {
		t.Errorf("expected http://b, got %q (%v)", v, err)
	}
}
