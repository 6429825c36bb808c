package mock

import (
	"context"

	"github.com/abrezinsky/pitchvote/internal/models"
	"github.com/abrezinsky/pitchvote/internal/repository"
)

// Repository wraps a real repository and allows injecting errors for testing.
// This provides a flexible way to test error paths without complex database manipulation.
//
// Usage:
//
//	realRepo := testutil.NewTestRepository(t)
//	mockRepo := mock.NewRepository(realRepo)
//	mockRepo.AppendRatingError = errors.New("database error")
//	svc := services.NewPitchService(log, mockRepo, broadcaster)
//	_, err := svc.SubmitRating(ctx, id, 4)
//	// err will now contain the injected error
type Repository struct {
	repository.FullRepository

	// ===== Pitch Errors =====
	ListPitchesError             error
	GetPitchError                error
	CreatePitchError             error
	UpdatePitchError             error
	DeletePitchError             error
	AppendRatingError            error
	CompareAndAppendRatingsError error
	ClearRatingsError            error
	ClearAllRatingsError         error

	// BeforeCompareAndAppend runs before each CompareAndAppendRatings call,
	// letting tests slip in a concurrent write
	BeforeCompareAndAppend func()

	// ===== Category Errors =====
	ListCategoriesError error
	GetCategoryError    error
	CreateCategoryError error
	DeleteCategoryError error
	SeedCategoriesError error

	// ===== Settings Errors =====
	GetSettingError error
	SetSettingError error
}

// NewRepository creates a mock repository wrapping a real one
func NewRepository(real repository.FullRepository) *Repository {
	return &Repository{
		FullRepository: real,
	}
}

// ===== Pitch Methods =====

func (m *Repository) ListPitches(ctx context.Context) ([]models.Pitch, error) {
	if m.ListPitchesError != nil {
		return nil, m.ListPitchesError
	}
	return m.FullRepository.ListPitches(ctx)
}

func (m *Repository) GetPitch(ctx context.Context, id string) (*models.Pitch, error) {
	if m.GetPitchError != nil {
		return nil, m.GetPitchError
	}
	return m.FullRepository.GetPitch(ctx, id)
}

func (m *Repository) CreatePitch(ctx context.Context, p models.Pitch) (string, error) {
	if m.CreatePitchError != nil {
		return "", m.CreatePitchError
	}
	return m.FullRepository.CreatePitch(ctx, p)
}

func (m *Repository) UpdatePitch(ctx context.Context, id string, u repository.PitchUpdate) error {
	if m.UpdatePitchError != nil {
		return m.UpdatePitchError
	}
	return m.FullRepository.UpdatePitch(ctx, id, u)
}

func (m *Repository) DeletePitch(ctx context.Context, id string) error {
	if m.DeletePitchError != nil {
		return m.DeletePitchError
	}
	return m.FullRepository.DeletePitch(ctx, id)
}

func (m *Repository) AppendRating(ctx context.Context, id string, score float64) ([]float64, error) {
	if m.AppendRatingError != nil {
		return nil, m.AppendRatingError
	}
	return m.FullRepository.AppendRating(ctx, id, score)
}

func (m *Repository) CompareAndAppendRatings(ctx context.Context, id string, expected, additions []float64) ([]float64, error) {
	if m.BeforeCompareAndAppend != nil {
		m.BeforeCompareAndAppend()
	}
	if m.CompareAndAppendRatingsError != nil {
		return nil, m.CompareAndAppendRatingsError
	}
	return m.FullRepository.CompareAndAppendRatings(ctx, id, expected, additions)
}

func (m *Repository) ClearRatings(ctx context.Context, id string) error {
	if m.ClearRatingsError != nil {
		return m.ClearRatingsError
	}
	return m.FullRepository.ClearRatings(ctx, id)
}

func (m *Repository) ClearAllRatings(ctx context.Context) (int64, error) {
	if m.ClearAllRatingsError != nil {
		return 0, m.ClearAllRatingsError
	}
	return m.FullRepository.ClearAllRatings(ctx)
}

// ===== Category Methods =====

func (m *Repository) ListCategories(ctx context.Context) ([]models.Category, error) {
	if m.ListCategoriesError != nil {
		return nil, m.ListCategoriesError
	}
	return m.FullRepository.ListCategories(ctx)
}

func (m *Repository) GetCategory(ctx context.Context, id string) (*models.Category, error) {
	if m.GetCategoryError != nil {
		return nil, m.GetCategoryError
	}
	return m.FullRepository.GetCategory(ctx, id)
}

func (m *Repository) CreateCategory(ctx context.Context, name string) (*models.Category, error) {
	if m.CreateCategoryError != nil {
		return nil, m.CreateCategoryError
	}
	return m.FullRepository.CreateCategory(ctx, name)
}

func (m *Repository) DeleteCategory(ctx context.Context, id string) error {
	if m.DeleteCategoryError != nil {
		return m.DeleteCategoryError
	}
	return m.FullRepository.DeleteCategory(ctx, id)
}

func (m *Repository) SeedCategories(ctx context.Context, names []string) (int, error) {
	if m.SeedCategoriesError != nil {
		return 0, m.SeedCategoriesError
	}
	return m.FullRepository.SeedCategories(ctx, names)
}

// ===== Settings Methods =====

func (m *Repository) GetSetting(ctx context.Context, key string) (string, error) {
	if m.GetSettingError != nil {
		return "", m.GetSettingError
	}
	return m.FullRepository.GetSetting(ctx, key)
}

func (m *Repository) SetSetting(ctx context.Context, key, value string) error {
	if m.SetSettingError != nil {
		return m.SetSettingError
	}
	return m.FullRepository.SetSetting(ctx, key, value)
}
