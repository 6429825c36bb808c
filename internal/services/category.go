package services

import (
	"context"
	stderrors "errors"
	"strings"

	"github.com/abrezinsky/pitchvote/internal/errors"
	"github.com/abrezinsky/pitchvote/internal/logger"
	"github.com/abrezinsky/pitchvote/internal/models"
	"github.com/abrezinsky/pitchvote/internal/repository"
)

// CategoryService handles category-related business logic
type CategoryService struct {
	log  logger.Logger
	repo repository.CategoryRepository
	live LiveStateStore
}

// NewCategoryService creates a new CategoryService
func NewCategoryService(log logger.Logger, repo repository.CategoryRepository) *CategoryService {
	return &CategoryService{log: log, repo: repo}
}

// SetLiveState lets deletes end a showcase of the deleted category
func (s *CategoryService) SetLiveState(live LiveStateStore) {
	s.live = live
}

// ListCategories returns all categories in display order
func (s *CategoryService) ListCategories(ctx context.Context) ([]models.Category, error) {
	categories, err := s.repo.ListCategories(ctx)
	if err != nil {
		return nil, storeErr(err, ErrCategoryNotFound)
	}
	return categories, nil
}

// GetCategory returns one category
func (s *CategoryService) GetCategory(ctx context.Context, id string) (*models.Category, error) {
	c, err := s.repo.GetCategory(ctx, id)
	if err != nil {
		return nil, storeErr(err, ErrCategoryNotFound)
	}
	return c, nil
}

// CreateCategory adds a category after the existing ones
func (s *CategoryService) CreateCategory(ctx context.Context, name string) (*models.Category, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, errors.ValidationFields("invalid category", map[string]string{"name": "required"})
	}

	c, err := s.repo.CreateCategory(ctx, name)
	if stderrors.Is(err, repository.ErrDuplicate) {
		return nil, errors.Conflictf("category %q already exists", name)
	}
	if err != nil {
		return nil, storeErr(err, ErrCategoryNotFound)
	}
	s.log.Info("Category created", "category_id", c.ID, "name", c.Name)
	return c, nil
}

// DeleteCategory removes a category. Pitches keep their category label.
// A showcase of the category is ended.
func (s *CategoryService) DeleteCategory(ctx context.Context, id string) error {
	if err := s.repo.DeleteCategory(ctx, id); err != nil {
		return storeErr(err, ErrCategoryNotFound)
	}
	s.log.Info("Category deleted", "category_id", id)
	if s.live != nil {
		s.live.ClearCategory(ctx, id)
	}
	return nil
}

// EnsureDefaultCategories seeds the default categories when none exist.
// It is safe to call on every startup.
func (s *CategoryService) EnsureDefaultCategories(ctx context.Context) (int, error) {
	n, err := s.repo.SeedCategories(ctx, models.DefaultCategories)
	if err != nil {
		return 0, storeErr(err, ErrCategoryNotFound)
	}
	if n > 0 {
		s.log.Info("Seeded default categories", "count", n)
	}
	return n, nil
}

// CategoryOrder returns category names in display order
func (s *CategoryService) CategoryOrder(ctx context.Context) ([]string, error) {
	categories, err := s.ListCategories(ctx)
	if err != nil {
		return nil, err
	}
	names := make([]string, len(categories))
	for i, c := range categories {
		names[i] = c.Name
	}
	return names, nil
}
