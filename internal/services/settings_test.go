package services_test

import (
	"context"
	"errors"
	"testing"

	apperrors "github.com/abrezinsky/pitchvote/internal/errors"
	"github.com/abrezinsky/pitchvote/internal/logger"
	"github.com/abrezinsky/pitchvote/internal/models"
	"github.com/abrezinsky/pitchvote/internal/repository/mock"
	"github.com/abrezinsky/pitchvote/internal/services"
	"github.com/abrezinsky/pitchvote/internal/testutil"
)

func TestSettingsService_BaseURL(t *testing.T) {
	repo := testutil.NewTestRepository(t)
	svc := services.NewSettingsService(logger.Discard(), repo)
	ctx := context.Background()

	got, err := svc.GetBaseURL(ctx)
	if err != nil || got != "" {
		t.Errorf("expected empty default, got %q, %v", got, err)
	}

	if err := svc.SetBaseURL(ctx, "https://pitch.example.com/"); err != nil {
		t.Fatalf("SetBaseURL failed: %v", err)
	}
	got, _ = svc.GetBaseURL(ctx)
	if got != "https://pitch.example.com" {
		t.Errorf("expected trailing slash trimmed, got %q", got)
	}

	if err := svc.SetBaseURL(ctx, "not a url"); !apperrors.Is(err, apperrors.ErrValidation) {
		t.Errorf("expected validation error, got %v", err)
	}
}

func TestSettingsService_LiveStateSnapshot(t *testing.T) {
	repo := testutil.NewTestRepository(t)
	svc := services.NewSettingsService(logger.Discard(), repo)
	ctx := context.Background()

	saved, err := svc.LoadLiveState(ctx)
	if err != nil || saved != nil {
		t.Fatalf("expected no snapshot, got %+v, %v", saved, err)
	}

	state := models.LiveState{IsLive: true, CurrentPitchID: models.StringPtr("p1"), Mode: models.ModePresenting, Version: 4}
	if err := svc.SaveLiveState(ctx, state); err != nil {
		t.Fatalf("SaveLiveState failed: %v", err)
	}

	saved, err = svc.LoadLiveState(ctx)
	if err != nil || saved == nil {
		t.Fatalf("LoadLiveState = %+v, %v", saved, err)
	}
	if saved.Version != 4 || *saved.CurrentPitchID != "p1" || !saved.IsLive {
		t.Errorf("unexpected snapshot %+v", saved)
	}
}

func TestSettingsService_CorruptSnapshotIsIgnored(t *testing.T) {
	repo := testutil.NewTestRepository(t)
	svc := services.NewSettingsService(logger.Discard(), repo)
	ctx := context.Background()
	repo.SetSetting(ctx, services.SettingLiveState, "{not json")

	saved, err := svc.LoadLiveState(ctx)
	if err != nil || saved != nil {
		t.Errorf("expected corrupt snapshot to be ignored, got %+v, %v", saved, err)
	}
}

func TestSettingsService_GetError(t *testing.T) {
	mockRepo := mock.NewRepository(testutil.NewTestRepository(t))
	mockRepo.GetSettingError = errors.New("database error")
	svc := services.NewSettingsService(logger.Discard(), mockRepo)

	if _, err := svc.GetBaseURL(context.Background()); err == nil {
		t.Error("expected error")
	}
	if _, err := svc.AllSettings(context.Background()); err == nil {
		t.Error("expected error")
	}
}

func TestSettingsService_AudienceQR(t *testing.T) {
	repo := testutil.NewTestRepository(t)
	svc := services.NewSettingsService(logger.Discard(), repo)
	ctx := context.Background()

	if _, err := svc.AudienceQR(ctx, ""); !apperrors.Is(err, apperrors.ErrValidation) {
		t.Errorf("expected validation error without a base URL, got %v", err)
	}

	target, err := svc.AudienceURL(ctx, "http://localhost:8081")
	if err != nil || target != "http://localhost:8081/live" {
		t.Errorf("expected fallback URL, got %q, %v", target, err)
	}

	svc.SetBaseURL(ctx, "https://pitch.example.com")
	target, _ = svc.AudienceURL(ctx, "http://localhost:8081")
	if target != "https://pitch.example.com/live" {
		t.Errorf("expected stored base URL to win, got %q", target)
	}

	png, err := svc.AudienceQR(ctx, "")
	if err != nil {
		t.Fatalf("AudienceQR failed: %v", err)
	}
	if len(png) < 8 || string(png[1:4]) != "PNG" {
		t.Error("expected PNG data")
	}
}
