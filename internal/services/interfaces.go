package services

import (
	"context"

	"github.com/abrezinsky/pitchvote/internal/models"
	"github.com/abrezinsky/pitchvote/internal/repository"
)

// PitchServicer defines the interface for pitch and rating operations
type PitchServicer interface {
	ListPitches(ctx context.Context) ([]models.Pitch, error)
	GetPitch(ctx context.Context, id string) (*models.Pitch, error)
	CreatePitch(ctx context.Context, in PitchInput) (*models.Pitch, error)
	UpdatePitch(ctx context.Context, id string, u repository.PitchUpdate) (*models.Pitch, error)
	DeletePitch(ctx context.Context, id string) error
	SubmitRating(ctx context.Context, id string, score float64) (*models.Pitch, error)
	ReplaceRatings(ctx context.Context, id string, submitted []float64) (*models.Pitch, error)
	ClearRatings(ctx context.Context, id string) (*models.Pitch, error)
	ResetRatings(ctx context.Context) (int64, error)
	SetBroadcaster(b Broadcaster)
}

// CategoryServicer defines the interface for category operations
type CategoryServicer interface {
	ListCategories(ctx context.Context) ([]models.Category, error)
	GetCategory(ctx context.Context, id string) (*models.Category, error)
	CreateCategory(ctx context.Context, name string) (*models.Category, error)
	DeleteCategory(ctx context.Context, id string) error
	EnsureDefaultCategories(ctx context.Context) (int, error)
	CategoryOrder(ctx context.Context) ([]string, error)
}

// SettingsServicer defines the interface for settings operations
type SettingsServicer interface {
	GetBaseURL(ctx context.Context) (string, error)
	SetBaseURL(ctx context.Context, url string) error
	AllSettings(ctx context.Context) (map[string]interface{}, error)
	AudienceURL(ctx context.Context, fallback string) (string, error)
	AudienceQR(ctx context.Context, fallback string) ([]byte, error)
	SaveLiveState(ctx context.Context, state models.LiveState) error
	LoadLiveState(ctx context.Context) (*models.LiveState, error)
}

// LiveServicer defines the interface for live presentation control
type LiveServicer interface {
	State() models.LiveState
	Merge(ctx context.Context, patch models.LiveStatePatch) (models.LiveState, error)
	Sequence(ctx context.Context) ([]models.Pitch, error)
	StartLive(ctx context.Context) (models.LiveState, error)
	EndLive(ctx context.Context) (models.LiveState, error)
	Advance(ctx context.Context, dir Direction) (models.LiveState, error)
	StartShowcase(ctx context.Context, categoryID string) (models.LiveState, error)
	EndShowcase(ctx context.Context) (models.LiveState, error)
	ResetRatings(ctx context.Context) (int64, error)
}

// ResultsServicer defines the interface for results operations
type ResultsServicer interface {
	WinnerForCategory(ctx context.Context, categoryID string) (*CategoryWinner, error)
	Showcase(ctx context.Context) (*ShowcaseView, error)
	Leaderboard(ctx context.Context) ([]models.CategoryStanding, error)
}

// Ensure concrete types implement interfaces
var (
	_ PitchServicer    = (*PitchService)(nil)
	_ CategoryServicer = (*CategoryService)(nil)
	_ SettingsServicer = (*SettingsService)(nil)
	_ LiveServicer     = (*LiveService)(nil)
	_ ResultsServicer  = (*ResultsService)(nil)
)
