package services

import (
	"context"
	stderrors "errors"
	"math"
	"strings"

	"github.com/abrezinsky/pitchvote/internal/errors"
	"github.com/abrezinsky/pitchvote/internal/logger"
	"github.com/abrezinsky/pitchvote/internal/metrics"
	"github.com/abrezinsky/pitchvote/internal/models"
	"github.com/abrezinsky/pitchvote/internal/repository"
)

// maxReplaceAttempts bounds the optimistic retry loop in ReplaceRatings
const maxReplaceAttempts = 5

// Broadcaster defines the interface for broadcasting rating updates to clients
type Broadcaster interface {
	BroadcastPitchRated(update models.PitchRated)
	BroadcastRatingsReset()
}

// LiveStateStore is the subset of the live state store the services use
type LiveStateStore interface {
	Get() models.LiveState
	Merge(ctx context.Context, patch models.LiveStatePatch) (models.LiveState, error)
	ClearPitch(ctx context.Context, id string) (models.LiveState, bool)
	ClearCategory(ctx context.Context, id string) (models.LiveState, bool)
}

// PitchInput holds the fields for creating a pitch
type PitchInput struct {
	Title       string
	Description string
	Presenter   string
	ImageURL    string
	Category    string
	Visible     *bool // defaults to true
}

// PitchService handles pitch and rating business logic
type PitchService struct {
	log         logger.Logger
	repo        repository.PitchRepository
	metrics     *metrics.Metrics
	broadcaster Broadcaster
	live        LiveStateStore
}

// NewPitchService creates a new PitchService
func NewPitchService(log logger.Logger, repo repository.PitchRepository, m *metrics.Metrics) *PitchService {
	return &PitchService{log: log, repo: repo, metrics: m}
}

// SetBroadcaster sets the broadcaster for sending rating updates to clients
func (s *PitchService) SetBroadcaster(b Broadcaster) {
	s.broadcaster = b
}

// SetLiveState lets the service clear the current pitch when it is hidden or deleted
func (s *PitchService) SetLiveState(live LiveStateStore) {
	s.live = live
}

// ListPitches returns every pitch with its average rating
func (s *PitchService) ListPitches(ctx context.Context) ([]models.Pitch, error) {
	pitches, err := s.repo.ListPitches(ctx)
	if err != nil {
		return nil, storeErr(err, ErrPitchNotFound)
	}
	return WithAverages(pitches), nil
}

// GetPitch returns one pitch with its average rating
func (s *PitchService) GetPitch(ctx context.Context, id string) (*models.Pitch, error) {
	p, err := s.repo.GetPitch(ctx, id)
	if err != nil {
		return nil, storeErr(err, ErrPitchNotFound)
	}
	withAvg := WithAverage(*p)
	return &withAvg, nil
}

// CreatePitch validates and stores a new pitch with no ratings
func (s *PitchService) CreatePitch(ctx context.Context, in PitchInput) (*models.Pitch, error) {
	p := models.Pitch{
		Title:       strings.TrimSpace(in.Title),
		Description: strings.TrimSpace(in.Description),
		Presenter:   strings.TrimSpace(in.Presenter),
		ImageURL:    strings.TrimSpace(in.ImageURL),
		Category:    strings.TrimSpace(in.Category),
		Visible:     true,
		Ratings:     []float64{},
	}
	if in.Visible != nil {
		p.Visible = *in.Visible
	}

	fields := map[string]string{}
	required := []struct{ name, value string }{
		{"title", p.Title},
		{"description", p.Description},
		{"presenter", p.Presenter},
		{"imageUrl", p.ImageURL},
		{"category", p.Category},
	}
	for _, f := range required {
		if f.value == "" {
			fields[f.name] = "required"
		}
	}
	if len(fields) > 0 {
		return nil, errors.ValidationFields("missing required pitch fields", fields)
	}

	id, err := s.repo.CreatePitch(ctx, p)
	if err != nil {
		return nil, storeErr(err, ErrPitchNotFound)
	}
	p.ID = id
	s.log.Info("Pitch created", "pitch_id", id, "title", p.Title, "category", p.Category)
	return &p, nil
}

// UpdatePitch applies a partial update. Hiding the pitch that is currently
// live clears it from the live state.
func (s *PitchService) UpdatePitch(ctx context.Context, id string, u repository.PitchUpdate) (*models.Pitch, error) {
	fields := map[string]string{}
	for name, v := range map[string]*string{
		"title":       u.Title,
		"description": u.Description,
		"presenter":   u.Presenter,
		"imageUrl":    u.ImageURL,
		"category":    u.Category,
	} {
		if v == nil {
			continue
		}
		trimmed := strings.TrimSpace(*v)
		if trimmed == "" {
			fields[name] = "must not be empty"
		}
		*v = trimmed
	}
	if len(fields) > 0 {
		return nil, errors.ValidationFields("invalid pitch update", fields)
	}

	if err := s.repo.UpdatePitch(ctx, id, u); err != nil {
		return nil, storeErr(err, ErrPitchNotFound)
	}
	if u.Visible != nil && !*u.Visible {
		s.clearFromLive(ctx, id)
	}
	return s.GetPitch(ctx, id)
}

// DeletePitch removes a pitch and its ratings
func (s *PitchService) DeletePitch(ctx context.Context, id string) error {
	if err := s.repo.DeletePitch(ctx, id); err != nil {
		return storeErr(err, ErrPitchNotFound)
	}
	s.log.Info("Pitch deleted", "pitch_id", id)
	s.clearFromLive(ctx, id)
	return nil
}

func (s *PitchService) clearFromLive(ctx context.Context, id string) {
	if s.live == nil {
		return
	}
	s.live.ClearPitch(ctx, id)
}

// SubmitRating appends one score atomically and returns the pitch with
// its new average. No bounds are enforced; any finite number is accepted.
func (s *PitchService) SubmitRating(ctx context.Context, id string, score float64) (*models.Pitch, error) {
	if math.IsNaN(score) || math.IsInf(score, 0) {
		return nil, errors.ValidationFields("invalid rating", map[string]string{"score": "must be a finite number"})
	}

	p, err := s.repo.GetPitch(ctx, id)
	if err != nil {
		return nil, storeErr(err, ErrPitchNotFound)
	}

	ratings, err := s.repo.AppendRating(ctx, id, score)
	if err != nil {
		return nil, storeErr(err, ErrPitchNotFound)
	}
	p.Ratings = ratings
	rated := WithAverage(*p)

	s.log.Debug("Rating recorded", "pitch_id", id, "score", score, "count", len(ratings), "average", rated.Rating)
	s.metrics.RatingAccepted(rated.Category)
	s.broadcastRated(rated)
	return &rated, nil
}

// ReplaceRatings accepts a full ratings array. The stored ratings must be
// a prefix of submitted; only the new suffix is appended, conditional on
// the stored ratings not having changed. An empty submitted array clears
// the pitch. Anything else is a Conflict carrying the current pitch.
func (s *PitchService) ReplaceRatings(ctx context.Context, id string, submitted []float64) (*models.Pitch, error) {
	for _, r := range submitted {
		if math.IsNaN(r) || math.IsInf(r, 0) {
			return nil, errors.ValidationFields("invalid ratings", map[string]string{"ratings": "must be finite numbers"})
		}
	}

	if len(submitted) == 0 {
		return s.ClearRatings(ctx, id)
	}

	for attempt := 1; attempt <= maxReplaceAttempts; attempt++ {
		p, err := s.repo.GetPitch(ctx, id)
		if err != nil {
			return nil, storeErr(err, ErrPitchNotFound)
		}

		if !isPrefix(p.Ratings, submitted) {
			s.metrics.RatingConflict()
			current := WithAverage(*p)
			return nil, errors.Conflict("ratings changed since they were read; retry against the current pitch").WithDetail(current)
		}

		additions := submitted[len(p.Ratings):]
		if len(additions) == 0 {
			unchanged := WithAverage(*p)
			return &unchanged, nil
		}

		ratings, err := s.repo.CompareAndAppendRatings(ctx, id, p.Ratings, additions)
		if stderrors.Is(err, repository.ErrRatingsChanged) {
			s.log.Debug("Ratings moved during replace, retrying", "pitch_id", id, "attempt", attempt)
			continue
		}
		if err != nil {
			return nil, storeErr(err, ErrPitchNotFound)
		}

		p.Ratings = ratings
		rated := WithAverage(*p)
		for range additions {
			s.metrics.RatingAccepted(rated.Category)
		}
		s.log.Debug("Ratings extended", "pitch_id", id, "added", len(additions), "count", len(ratings))
		s.broadcastRated(rated)
		return &rated, nil
	}

	s.metrics.RatingConflict()
	current, err := s.GetPitch(ctx, id)
	if err != nil {
		return nil, err
	}
	return nil, errors.Conflict("ratings are changing too quickly; retry").WithDetail(*current)
}

// ClearRatings empties one pitch's ratings
func (s *PitchService) ClearRatings(ctx context.Context, id string) (*models.Pitch, error) {
	if err := s.repo.ClearRatings(ctx, id); err != nil {
		return nil, storeErr(err, ErrPitchNotFound)
	}
	p, err := s.GetPitch(ctx, id)
	if err != nil {
		return nil, err
	}
	s.log.Info("Ratings cleared", "pitch_id", id)
	s.broadcastRated(*p)
	return p, nil
}

// ResetRatings clears every pitch's ratings
func (s *PitchService) ResetRatings(ctx context.Context) (int64, error) {
	n, err := s.repo.ClearAllRatings(ctx)
	if err != nil {
		return 0, storeErr(err, ErrPitchNotFound)
	}
	s.log.Info("All ratings reset", "pitches", n)
	s.metrics.RatingsReset()
	if s.broadcaster != nil {
		s.broadcaster.BroadcastRatingsReset()
	}
	return n, nil
}

func (s *PitchService) broadcastRated(p models.Pitch) {
	if s.broadcaster == nil {
		return
	}
	s.broadcaster.BroadcastPitchRated(models.PitchRated{
		PitchID: p.ID,
		Average: p.Rating,
		Count:   len(p.Ratings),
	})
}

// isPrefix reports whether prefix is a leading subsequence of seq
func isPrefix(prefix, seq []float64) bool {
	if len(prefix) > len(seq) {
		return false
	}
	return repository.RatingsEqual(prefix, seq[:len(prefix)])
}
