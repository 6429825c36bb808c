// Package livestate owns the process-wide live state record. Every write
// is a partial merge applied under one lock, so concurrent admins only
// overwrite the fields they actually send.
package livestate

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/abrezinsky/pitchvote/internal/errors"
	"github.com/abrezinsky/pitchvote/internal/logger"
	"github.com/abrezinsky/pitchvote/internal/metrics"
	"github.com/abrezinsky/pitchvote/internal/models"
)

// Publisher receives every new state after a successful merge
type Publisher interface {
	PublishLiveState(state models.LiveState)
}

// Snapshotter persists the state so it survives a restart
type Snapshotter interface {
	SaveLiveState(ctx context.Context, state models.LiveState) error
	LoadLiveState(ctx context.Context) (*models.LiveState, error)
}

// Store is the live state store
type Store struct {
	log       logger.Logger
	metrics   *metrics.Metrics
	snapshots Snapshotter

	mu        sync.Mutex
	state     models.LiveState
	publisher Publisher
}

// New creates a store in the idle state
func New(log logger.Logger, m *metrics.Metrics) *Store {
	return &Store{
		log:     log,
		metrics: m,
		state:   models.LiveState{Mode: models.ModeIdle, Epoch: uuid.NewString()},
	}
}

// SetPublisher sets where merged states are sent
func (s *Store) SetPublisher(p Publisher) {
	s.mu.Lock()
	s.publisher = p
	s.mu.Unlock()
}

// SetSnapshotter enables persistence and restores the last saved state
func (s *Store) SetSnapshotter(ctx context.Context, snap Snapshotter) error {
	saved, err := snap.LoadLiveState(ctx)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshots = snap
	if saved != nil {
		epoch := s.state.Epoch
		s.state = saved.Clone()
		s.state.Mode = s.state.DeriveMode()
		s.state.Epoch = epoch
		s.log.Info("Restored live state", "version", s.state.Version, "mode", s.state.Mode)
	}
	return nil
}

// Get returns a copy of the current state
func (s *Store) Get() models.LiveState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Clone()
}

// Merge applies the fields present in patch and returns the full new state.
// An empty patch returns the current state without bumping the version.
// When patch.ExpectedVersion is set and stale the merge fails with Conflict.
func (s *Store) Merge(ctx context.Context, patch models.LiveStatePatch) (models.LiveState, error) {
	s.mu.Lock()

	if patch.ExpectedVersion != nil && *patch.ExpectedVersion != s.state.Version {
		current := s.state.Clone()
		s.mu.Unlock()
		return current, errors.Conflictf("live state is at version %d, not %d", current.Version, *patch.ExpectedVersion).WithDetail(current)
	}
	if patch.Empty() {
		current := s.state.Clone()
		s.mu.Unlock()
		return current, nil
	}

	next := s.state.Clone()
	if patch.IsLive != nil {
		next.IsLive = *patch.IsLive
	}
	if patch.CurrentPitchID.Set {
		next.CurrentPitchID = patch.CurrentPitchID.Value
	}
	if patch.IsWinnerShowcaseLive != nil {
		next.IsWinnerShowcaseLive = *patch.IsWinnerShowcaseLive
	}
	if patch.ShowcasedCategoryID.Set {
		next.ShowcasedCategoryID = patch.ShowcasedCategoryID.Value
	}

	result, publisher := s.commitLocked(ctx, next)
	s.mu.Unlock()

	s.log.Info("Live state merged", "version", result.Version, "mode", result.Mode)
	if publisher != nil {
		publisher.PublishLiveState(result)
	}
	return result, nil
}

// ClearPitch unsets currentPitchId when it refers to id. It reports whether
// anything changed.
func (s *Store) ClearPitch(ctx context.Context, id string) (models.LiveState, bool) {
	s.mu.Lock()
	if s.state.CurrentPitchID == nil || *s.state.CurrentPitchID != id {
		current := s.state.Clone()
		s.mu.Unlock()
		return current, false
	}

	next := s.state.Clone()
	next.CurrentPitchID = nil
	result, publisher := s.commitLocked(ctx, next)
	s.mu.Unlock()

	s.log.Info("Cleared current pitch from live state", "pitch_id", id, "version", result.Version)
	if publisher != nil {
		publisher.PublishLiveState(result)
	}
	return result, true
}

// ClearCategory ends the winner showcase when it shows category id. It
// reports whether anything changed.
func (s *Store) ClearCategory(ctx context.Context, id string) (models.LiveState, bool) {
	s.mu.Lock()
	if s.state.ShowcasedCategoryID == nil || *s.state.ShowcasedCategoryID != id {
		current := s.state.Clone()
		s.mu.Unlock()
		return current, false
	}

	next := s.state.Clone()
	next.IsWinnerShowcaseLive = false
	next.ShowcasedCategoryID = nil
	result, publisher := s.commitLocked(ctx, next)
	s.mu.Unlock()

	s.log.Info("Ended showcase of deleted category", "category_id", id, "version", result.Version)
	if publisher != nil {
		publisher.PublishLiveState(result)
	}
	return result, true
}

// commitLocked stores next as the new state. Callers hold s.mu.
func (s *Store) commitLocked(ctx context.Context, next models.LiveState) (models.LiveState, Publisher) {
	next.Version = s.state.Version + 1
	next.Mode = next.DeriveMode()
	s.state = next

	if s.snapshots != nil {
		if err := s.snapshots.SaveLiveState(ctx, next); err != nil {
			// In-memory state stays authoritative; the next merge retries the save
			s.log.Warn("Failed to persist live state", "version", next.Version, "error", err)
		}
	}
	s.metrics.LiveStateMerged(string(next.Mode))
	return next.Clone(), s.publisher
}
