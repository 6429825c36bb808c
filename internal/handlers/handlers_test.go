package handlers_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/abrezinsky/pitchvote/internal/auth"
	"github.com/abrezinsky/pitchvote/internal/handlers"
	"github.com/abrezinsky/pitchvote/internal/livestate"
	"github.com/abrezinsky/pitchvote/internal/logger"
	"github.com/abrezinsky/pitchvote/internal/metrics"
	"github.com/abrezinsky/pitchvote/internal/repository"
	"github.com/abrezinsky/pitchvote/internal/repository/mock"
	"github.com/abrezinsky/pitchvote/internal/services"
	"github.com/abrezinsky/pitchvote/internal/testutil"
	"github.com/abrezinsky/pitchvote/internal/websocket"
)

type testSetup struct {
	repo       repository.FullRepository
	handlers   *handlers.Handlers
	router     chi.Router
	authCookie *http.Cookie
	live       *livestate.Store
	hub        *websocket.Hub
	metrics    *metrics.Metrics
}

// newTestSetup creates a new test setup with in-memory repository
func newTestSetup(t *testing.T) *testSetup {
	t.Helper()
	return newTestSetupWithRepo(t, testutil.NewTestRepository(t))
}

// newTestSetupWithMockRepo wraps the in-memory repository for error injection
func newTestSetupWithMockRepo(t *testing.T) (*testSetup, *mock.Repository) {
	t.Helper()
	mockRepo := mock.NewRepository(testutil.NewTestRepository(t))
	return newTestSetupWithRepo(t, mockRepo), mockRepo
}

func newTestSetupWithRepo(t *testing.T, repo repository.FullRepository) *testSetup {
	t.Helper()
	log := logger.Discard()
	m := metrics.New()

	live := livestate.New(log, m)
	hub := websocket.New(log, m, live, 50*time.Millisecond)
	hub.Start()
	t.Cleanup(hub.Stop)
	live.SetPublisher(hub)

	pitchService := services.NewPitchService(log, repo, m)
	pitchService.SetBroadcaster(hub)
	pitchService.SetLiveState(live)
	categoryService := services.NewCategoryService(log, repo)
	categoryService.SetLiveState(live)

	h := handlers.NewForTesting(handlers.Services{
		Pitch:    pitchService,
		Category: categoryService,
		Settings: services.NewSettingsService(log, repo),
		Live:     services.NewLiveService(log, repo, live, pitchService),
		Results:  services.NewResultsService(log, repo, live),
	})
	h.Hub = hub
	h.Options.Metrics = m

	// Login to get a session cookie for authenticated requests
	token, _ := h.Auth.Login("test-password")
	authCookie := &http.Cookie{
		Name:  auth.CookieName,
		Value: token,
	}

	return &testSetup{
		repo:       repo,
		handlers:   h,
		router:     h.Router(),
		authCookie: authCookie,
		live:       live,
		hub:        hub,
		metrics:    m,
	}
}

// do sends a request through the router, with the admin cookie when admin is set
func (s *testSetup) do(t *testing.T, method, path string, body interface{}, admin bool) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		data, err := json.Marshal(b)
		if err != nil {
			t.Fatalf("failed to marshal body: %v", err)
		}
		reader = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if admin {
		req.AddCookie(s.authCookie)
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, target interface{}) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), target); err != nil {
		t.Fatalf("failed to decode response %q: %v", rec.Body.String(), err)
	}
}

func expectStatus(t *testing.T, rec *httptest.ResponseRecorder, want int) {
	t.Helper()
	if rec.Code != want {
		t.Fatalf("expected status %d, got %d: %s", want, rec.Code, rec.Body.String())
	}
}
