package services

import (
	"context"
	stderrors "errors"

	"github.com/abrezinsky/pitchvote/internal/errors"
	"github.com/abrezinsky/pitchvote/internal/logger"
	"github.com/abrezinsky/pitchvote/internal/models"
	"github.com/abrezinsky/pitchvote/internal/repository"
)

// maxAdvanceAttempts bounds retries when another admin moves the live
// pitch between our read and our conditional merge
const maxAdvanceAttempts = 3

// LiveServiceRepository defines the repository methods needed by LiveService
type LiveServiceRepository interface {
	repository.PitchRepository
	repository.CategoryRepository
}

// RatingResetter clears every pitch's ratings
type RatingResetter interface {
	ResetRatings(ctx context.Context) (int64, error)
}

// LiveService drives live presentation and the winner showcase
type LiveService struct {
	log     logger.Logger
	repo    LiveServiceRepository
	store   LiveStateStore
	ratings RatingResetter
}

// NewLiveService creates a new LiveService
func NewLiveService(log logger.Logger, repo LiveServiceRepository, store LiveStateStore, ratings RatingResetter) *LiveService {
	return &LiveService{log: log, repo: repo, store: store, ratings: ratings}
}

// State returns the current live state
func (s *LiveService) State() models.LiveState {
	return s.store.Get()
}

// Merge validates the ids in patch and merges it into the live state
func (s *LiveService) Merge(ctx context.Context, patch models.LiveStatePatch) (models.LiveState, error) {
	if patch.CurrentPitchID.Set && patch.CurrentPitchID.Value != nil {
		p, err := s.repo.GetPitch(ctx, *patch.CurrentPitchID.Value)
		if stderrors.Is(err, repository.ErrNotFound) {
			return models.LiveState{}, errors.ValidationFields("invalid live state", map[string]string{"currentPitchId": "unknown pitch"})
		}
		if err != nil {
			return models.LiveState{}, storeErr(err, ErrPitchNotFound)
		}
		if !p.Visible {
			return models.LiveState{}, errors.ValidationFields("invalid live state", map[string]string{"currentPitchId": "pitch is hidden"})
		}
	}
	if patch.ShowcasedCategoryID.Set && patch.ShowcasedCategoryID.Value != nil {
		if _, err := s.repo.GetCategory(ctx, *patch.ShowcasedCategoryID.Value); err != nil {
			return models.LiveState{}, storeErr(err, ErrCategoryNotFound)
		}
	}
	return s.store.Merge(ctx, patch)
}

// Sequence returns the visible pitches in presentation order
func (s *LiveService) Sequence(ctx context.Context) ([]models.Pitch, error) {
	pitches, err := s.repo.ListPitches(ctx)
	if err != nil {
		return nil, storeErr(err, ErrPitchNotFound)
	}
	categories, err := s.repo.ListCategories(ctx)
	if err != nil {
		return nil, storeErr(err, ErrCategoryNotFound)
	}
	order := make([]string, len(categories))
	for i, c := range categories {
		order[i] = c.Name
	}
	return WithAverages(SortedVisiblePitches(pitches, order)), nil
}

// StartLive turns live mode on at the first pitch in sequence, or with no
// current pitch when nothing is visible
func (s *LiveService) StartLive(ctx context.Context) (models.LiveState, error) {
	seq, err := s.Sequence(ctx)
	if err != nil {
		return models.LiveState{}, err
	}

	var first *string
	if len(seq) > 0 {
		first = models.StringPtr(seq[0].ID)
	}
	state, err := s.store.Merge(ctx, models.LiveStatePatch{
		IsLive:         models.BoolPtr(true),
		CurrentPitchID: models.SetID(first),
	})
	if err != nil {
		return models.LiveState{}, err
	}
	s.log.Info("Live mode started", "pitches", len(seq))
	return state, nil
}

// EndLive turns live mode off and clears the current pitch
func (s *LiveService) EndLive(ctx context.Context) (models.LiveState, error) {
	state, err := s.store.Merge(ctx, models.LiveStatePatch{
		IsLive:         models.BoolPtr(false),
		CurrentPitchID: models.SetID(nil),
	})
	if err != nil {
		return models.LiveState{}, err
	}
	s.log.Info("Live mode ended")
	return state, nil
}

// Advance moves the current pitch one step in dir. At either end of the
// sequence, or while live mode is off, it is a no-op and returns the
// unchanged state.
func (s *LiveService) Advance(ctx context.Context, dir Direction) (models.LiveState, error) {
	if !dir.Valid() {
		return models.LiveState{}, ErrInvalidDirection
	}

	for attempt := 1; ; attempt++ {
		seq, err := s.Sequence(ctx)
		if err != nil {
			return models.LiveState{}, err
		}

		current := s.store.Get()
		if !current.IsLive {
			return current, nil
		}
		target, ok := Neighbor(seq, current.CurrentPitchID, dir)
		if !ok {
			return current, nil
		}

		version := current.Version
		state, err := s.store.Merge(ctx, models.LiveStatePatch{
			CurrentPitchID:  models.SetID(models.StringPtr(target)),
			ExpectedVersion: &version,
		})
		if errors.Is(err, errors.ErrConflict) && attempt < maxAdvanceAttempts {
			continue
		}
		if err != nil {
			return models.LiveState{}, err
		}
		s.log.Info("Live pitch advanced", "direction", dir, "pitch_id", target)
		return state, nil
	}
}

// StartShowcase shows the winner of categoryID on every client
func (s *LiveService) StartShowcase(ctx context.Context, categoryID string) (models.LiveState, error) {
	if _, err := s.repo.GetCategory(ctx, categoryID); err != nil {
		return models.LiveState{}, storeErr(err, ErrCategoryNotFound)
	}
	state, err := s.store.Merge(ctx, models.LiveStatePatch{
		IsWinnerShowcaseLive: models.BoolPtr(true),
		ShowcasedCategoryID:  models.SetID(models.StringPtr(categoryID)),
	})
	if err != nil {
		return models.LiveState{}, err
	}
	s.log.Info("Winner showcase started", "category_id", categoryID)
	return state, nil
}

// EndShowcase stops the winner showcase
func (s *LiveService) EndShowcase(ctx context.Context) (models.LiveState, error) {
	state, err := s.store.Merge(ctx, models.LiveStatePatch{
		IsWinnerShowcaseLive: models.BoolPtr(false),
		ShowcasedCategoryID:  models.SetID(nil),
	})
	if err != nil {
		return models.LiveState{}, err
	}
	s.log.Info("Winner showcase ended")
	return state, nil
}

// ResetRatings clears every pitch's ratings, which invalidates any
// winner currently on show
func (s *LiveService) ResetRatings(ctx context.Context) (int64, error) {
	return s.ratings.ResetRatings(ctx)
}
