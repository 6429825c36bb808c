package services

import (
	"context"
	"sort"

	"github.com/abrezinsky/pitchvote/internal/logger"
	"github.com/abrezinsky/pitchvote/internal/models"
	"github.com/abrezinsky/pitchvote/internal/repository"
)

// ResultsServiceRepository defines the repository methods needed by ResultsService
type ResultsServiceRepository interface {
	repository.PitchRepository
	repository.CategoryRepository
}

// ResultsService resolves winners and standings
type ResultsService struct {
	log  logger.Logger
	repo ResultsServiceRepository
	live LiveStateStore
}

// NewResultsService creates a new ResultsService
func NewResultsService(log logger.Logger, repo ResultsServiceRepository, live LiveStateStore) *ResultsService {
	return &ResultsService{log: log, repo: repo, live: live}
}

// CategoryWinner is a category with its current winner, if any
type CategoryWinner struct {
	Category models.Category `json:"category"`
	Winner   *models.Pitch   `json:"winner"`
}

// ShowcaseView is what the showcase page renders
type ShowcaseView struct {
	Live     bool             `json:"live"`
	Category *models.Category `json:"category,omitempty"`
	Winner   *models.Pitch    `json:"winner"`
}

// WinnerForCategory resolves the winner of one category by id
func (s *ResultsService) WinnerForCategory(ctx context.Context, categoryID string) (*CategoryWinner, error) {
	category, err := s.repo.GetCategory(ctx, categoryID)
	if err != nil {
		return nil, storeErr(err, ErrCategoryNotFound)
	}
	pitches, err := s.repo.ListPitches(ctx)
	if err != nil {
		return nil, storeErr(err, ErrPitchNotFound)
	}
	return &CategoryWinner{Category: *category, Winner: WinnerOf(category.Name, pitches)}, nil
}

// Showcase returns the showcased category and its winner, or Live=false
// when no showcase is running
func (s *ResultsService) Showcase(ctx context.Context) (*ShowcaseView, error) {
	state := s.live.Get()
	if !state.IsWinnerShowcaseLive || state.ShowcasedCategoryID == nil {
		return &ShowcaseView{Live: false}, nil
	}

	result, err := s.WinnerForCategory(ctx, *state.ShowcasedCategoryID)
	if err != nil {
		return nil, err
	}
	return &ShowcaseView{Live: true, Category: &result.Category, Winner: result.Winner}, nil
}

// Leaderboard returns every category in display order with its winner and
// its pitches ranked by average. Pitches whose category label no longer
// matches a category are grouped under that label at the end.
func (s *ResultsService) Leaderboard(ctx context.Context) ([]models.CategoryStanding, error) {
	categories, err := s.repo.ListCategories(ctx)
	if err != nil {
		return nil, storeErr(err, ErrCategoryNotFound)
	}
	pitches, err := s.repo.ListPitches(ctx)
	if err != nil {
		return nil, storeErr(err, ErrPitchNotFound)
	}
	pitches = WithAverages(pitches)

	byCategory := make(map[string][]models.Pitch)
	var orphanLabels []string
	known := make(map[string]bool, len(categories))
	for _, c := range categories {
		known[c.Name] = true
	}
	for _, p := range pitches {
		if !known[p.Category] && byCategory[p.Category] == nil {
			orphanLabels = append(orphanLabels, p.Category)
		}
		byCategory[p.Category] = append(byCategory[p.Category], p)
	}
	sort.Strings(orphanLabels)
	for _, label := range orphanLabels {
		categories = append(categories, models.Category{Name: label})
	}

	standings := make([]models.CategoryStanding, 0, len(categories))
	for _, c := range categories {
		ranked := byCategory[c.Name]
		if ranked == nil {
			ranked = []models.Pitch{}
		}
		sort.SliceStable(ranked, func(i, j int) bool {
			a, b := ranked[i], ranked[j]
			if a.Rating != b.Rating {
				return a.Rating > b.Rating
			}
			if len(a.Ratings) != len(b.Ratings) {
				return len(a.Ratings) > len(b.Ratings)
			}
			return a.ID < b.ID
		})
		standings = append(standings, models.CategoryStanding{
			Category: c,
			Winner:   WinnerOf(c.Name, ranked),
			Pitches:  ranked,
		})
	}
	return standings, nil
}
