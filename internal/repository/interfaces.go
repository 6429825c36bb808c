package repository

import (
	"context"

	"github.com/abrezinsky/pitchvote/internal/models"
)

// PitchUpdate holds the mutable pitch fields; nil fields are left unchanged
type PitchUpdate struct {
	Title       *string
	Description *string
	Presenter   *string
	ImageURL    *string
	Category    *string
	Visible     *bool
}

// Empty reports whether the update changes nothing
func (u PitchUpdate) Empty() bool {
	return u.Title == nil && u.Description == nil && u.Presenter == nil &&
		u.ImageURL == nil && u.Category == nil && u.Visible == nil
}

// PitchRepository defines pitch data operations. Ratings are only ever
// written through the append primitives so concurrent writers cannot
// overwrite each other.
type PitchRepository interface {
	ListPitches(ctx context.Context) ([]models.Pitch, error)
	GetPitch(ctx context.Context, id string) (*models.Pitch, error)
	CreatePitch(ctx context.Context, p models.Pitch) (string, error)
	UpdatePitch(ctx context.Context, id string, u PitchUpdate) error
	DeletePitch(ctx context.Context, id string) error
	// AppendRating atomically appends one score and returns the full sequence
	AppendRating(ctx context.Context, id string, score float64) ([]float64, error)
	// CompareAndAppendRatings appends additions only if the stored sequence
	// equals expected. On mismatch it returns the current sequence and
	// ErrRatingsChanged.
	CompareAndAppendRatings(ctx context.Context, id string, expected, additions []float64) ([]float64, error)
	ClearRatings(ctx context.Context, id string) error
	// ClearAllRatings empties every pitch's ratings and returns how many
	// pitches had at least one
	ClearAllRatings(ctx context.Context) (int64, error)
}

// CategoryRepository defines category data operations
type CategoryRepository interface {
	ListCategories(ctx context.Context) ([]models.Category, error)
	GetCategory(ctx context.Context, id string) (*models.Category, error)
	CreateCategory(ctx context.Context, name string) (*models.Category, error)
	DeleteCategory(ctx context.Context, id string) error
	// SeedCategories inserts names in order only when no category exists.
	// It returns how many were inserted.
	SeedCategories(ctx context.Context, names []string) (int, error)
}

// SettingsRepository defines settings data operations
type SettingsRepository interface {
	GetSetting(ctx context.Context, key string) (string, error)
	SetSetting(ctx context.Context, key, value string) error
}

// FullRepository combines all repository interfaces
// Use this when a service needs access to multiple domains
type FullRepository interface {
	PitchRepository
	CategoryRepository
	SettingsRepository
}

// Store is a FullRepository backed by a live connection
type Store interface {
	FullRepository
	Ping(ctx context.Context) error
	Close() error
}

// Ensure Repository implements all interfaces
var _ Store = (*Repository)(nil)

// RatingsEqual reports whether two score sequences are identical
func RatingsEqual(a, b []float64) bool {
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
