package services_test

import (
	"sync"
	"testing"

	"github.com/abrezinsky/pitchvote/internal/livestate"
	"github.com/abrezinsky/pitchvote/internal/logger"
	"github.com/abrezinsky/pitchvote/internal/models"
	"github.com/abrezinsky/pitchvote/internal/repository"
	"github.com/abrezinsky/pitchvote/internal/services"
	"github.com/abrezinsky/pitchvote/internal/testutil"
)

type mockBroadcaster struct {
	mu     sync.Mutex
	rated  []models.PitchRated
	resets int
}

func (m *mockBroadcaster) BroadcastPitchRated(update models.PitchRated) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rated = append(m.rated, update)
}

func (m *mockBroadcaster) BroadcastRatingsReset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.resets++
}

func (m *mockBroadcaster) ratedCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.rated)
}

// stack wires the services over one in-memory repository
type stack struct {
	repo        repository.FullRepository
	live        *livestate.Store
	broadcaster *mockBroadcaster
	pitches     *services.PitchService
	categories  *services.CategoryService
	liveSvc     *services.LiveService
	results     *services.ResultsService
}

func newStack(t *testing.T) *stack {
	t.Helper()
	return newStackWith(t, testutil.NewTestRepository(t))
}

func newStackWith(t *testing.T, repo repository.FullRepository) *stack {
	t.Helper()
	log := logger.Discard()

	live := livestate.New(log, nil)
	b := &mockBroadcaster{}

	pitches := services.NewPitchService(log, repo, nil)
	pitches.SetBroadcaster(b)
	pitches.SetLiveState(live)
	categories := services.NewCategoryService(log, repo)
	categories.SetLiveState(live)

	return &stack{
		repo:        repo,
		live:        live,
		broadcaster: b,
		pitches:     pitches,
		categories:  categories,
		liveSvc:     services.NewLiveService(log, repo, live, pitches),
		results:     services.NewResultsService(log, repo, live),
	}
}
