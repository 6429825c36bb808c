package testutil

import (
	"context"
	"testing"

	"github.com/abrezinsky/pitchvote/internal/models"
	"github.com/abrezinsky/pitchvote/internal/repository"
)

// NewTestRepository creates a new in-memory repository for testing.
// Each call creates a fresh database with all migrations applied.
func NewTestRepository(t *testing.T) *repository.Repository {
	t.Helper()

	repo, err := repository.New(":memory:")
	if err != nil {
		t.Fatalf("failed to create test repository: %v", err)
	}

	t.Cleanup(func() {
		repo.Close()
	})

	return repo
}

// SeedPitch inserts a visible pitch in category and returns its id
func SeedPitch(t *testing.T, repo repository.PitchRepository, title, category string, ratings ...float64) string {
	t.Helper()
	ctx := context.Background()

	id, err := repo.CreatePitch(ctx, models.Pitch{
		Title:       title,
		Description: title + " description",
		Presenter:   "Presenter " + title,
		ImageURL:    "https://img.example.com/" + title + ".png",
		Category:    category,
		Visible:     true,
	})
	if err != nil {
		t.Fatalf("failed to seed pitch %q: %v", title, err)
	}
	for _, r := range ratings {
		if _, err := repo.AppendRating(ctx, id, r); err != nil {
			t.Fatalf("failed to seed rating for %q: %v", title, err)
		}
	}
	return id
}

// SeedCategories inserts the default categories
func SeedCategories(t *testing.T, repo repository.CategoryRepository) []models.Category {
	t.Helper()
	ctx := context.Background()

	if _, err := repo.SeedCategories(ctx, models.DefaultCategories); err != nil {
		t.Fatalf("failed to seed categories: %v", err)
	}
	cats, err := repo.ListCategories(ctx)
	if err != nil {
		t.Fatalf("failed to list categories: %v", err)
	}
	return cats
}
