package handlers_test

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/abrezinsky/pitchvote/internal/models"
	"github.com/abrezinsky/pitchvote/internal/services"
	"github.com/abrezinsky/pitchvote/internal/testutil"
)

func TestCategories_CreateListDelete(t *testing.T) {
	setup := newTestSetup(t)
	testutil.SeedCategories(t, setup.repo)

	rec := setup.do(t, http.MethodPost, "/api/categories", map[string]string{"name": "Game Design"}, false)
	expectStatus(t, rec, http.StatusUnauthorized)

	rec = setup.do(t, http.MethodPost, "/api/categories", map[string]string{"name": "Game Design"}, true)
	expectStatus(t, rec, http.StatusCreated)
	var created models.Category
	decodeBody(t, rec, &created)
	if created.ID == "" || created.Name != "Game Design" {
		t.Fatalf("unexpected category: %+v", created)
	}

	rec = setup.do(t, http.MethodPost, "/api/categories", map[string]string{"name": "Game Design"}, true)
	expectStatus(t, rec, http.StatusConflict)

	rec = setup.do(t, http.MethodGet, "/api/categories", nil, false)
	expectStatus(t, rec, http.StatusOK)
	var list []models.Category
	decodeBody(t, rec, &list)
	if len(list) != 5 || list[0].Name != "Web Development" || list[4].Name != "Game Design" {
		t.Errorf("unexpected category order: %+v", list)
	}

	rec = setup.do(t, http.MethodDelete, "/api/categories/"+created.ID, nil, true)
	expectStatus(t, rec, http.StatusNoContent)

	rec = setup.do(t, http.MethodDelete, "/api/categories/"+created.ID, nil, true)
	expectStatus(t, rec, http.StatusNotFound)
}

func TestCategoryWinner(t *testing.T) {
	setup := newTestSetup(t)
	cats := testutil.SeedCategories(t, setup.repo)
	web := cats[0]

	rec := setup.do(t, http.MethodGet, "/api/categories/"+web.ID+"/winner", nil, false)
	expectStatus(t, rec, http.StatusOK)
	var result services.CategoryWinner
	decodeBody(t, rec, &result)
	if result.Winner != nil {
		t.Errorf("expected no winner without pitches, got %+v", result.Winner)
	}

	testutil.SeedPitch(t, setup.repo, "Alpha", web.Name, 3)
	beta := testutil.SeedPitch(t, setup.repo, "Beta", web.Name, 5, 4)

	rec = setup.do(t, http.MethodGet, "/api/categories/"+web.ID+"/winner", nil, false)
	expectStatus(t, rec, http.StatusOK)
	decodeBody(t, rec, &result)
	if result.Winner == nil || result.Winner.ID != beta {
		t.Errorf("expected Beta to win, got %+v", result.Winner)
	}

	rec = setup.do(t, http.MethodGet, "/api/categories/missing/winner", nil, false)
	expectStatus(t, rec, http.StatusNotFound)
}

func TestLeaderboard(t *testing.T) {
	setup := newTestSetup(t)
	testutil.SeedCategories(t, setup.repo)
	testutil.SeedPitch(t, setup.repo, "Alpha", "VFX", 3)
	top := testutil.SeedPitch(t, setup.repo, "Beta", "VFX", 5)

	rec := setup.do(t, http.MethodGet, "/api/leaderboard", nil, false)
	expectStatus(t, rec, http.StatusOK)

	var standings []models.CategoryStanding
	decodeBody(t, rec, &standings)
	if len(standings) != 4 {
		t.Fatalf("expected 4 categories, got %d", len(standings))
	}
	vfx := standings[3]
	if vfx.Category.Name != "VFX" || vfx.Winner == nil || vfx.Winner.ID != top {
		t.Errorf("unexpected VFX standing: %+v", vfx)
	}
	if len(vfx.Pitches) != 2 || vfx.Pitches[0].ID != top {
		t.Errorf("expected pitches ranked by average, got %+v", vfx.Pitches)
	}
	if standings[0].Winner != nil {
		t.Errorf("expected no winner in empty category, got %+v", standings[0].Winner)
	}
}

func TestCategories_StoreFailure(t *testing.T) {
	setup, mockRepo := newTestSetupWithMockRepo(t)
	mockRepo.ListCategoriesError = fmt.Errorf("database error")

	rec := setup.do(t, http.MethodGet, "/api/categories", nil, false)
	expectStatus(t, rec, http.StatusInternalServerError)
}
