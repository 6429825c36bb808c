package services

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"net/url"
	"strings"

	"github.com/skip2/go-qrcode"

	"github.com/abrezinsky/pitchvote/internal/errors"
	"github.com/abrezinsky/pitchvote/internal/logger"
	"github.com/abrezinsky/pitchvote/internal/models"
	"github.com/abrezinsky/pitchvote/internal/repository"
)

// Settings keys
const (
	SettingBaseURL   = "base_url"
	SettingLiveState = "live_state"
)

// SettingsService handles settings-related business logic
type SettingsService struct {
	log  logger.Logger
	repo repository.SettingsRepository
}

// NewSettingsService creates a new SettingsService
func NewSettingsService(log logger.Logger, repo repository.SettingsRepository) *SettingsService {
	return &SettingsService{log: log, repo: repo}
}

// GetBaseURL returns the public base URL used for the audience QR code
func (s *SettingsService) GetBaseURL(ctx context.Context) (string, error) {
	value, err := s.repo.GetSetting(ctx, SettingBaseURL)
	if err != nil {
		if stderrors.Is(err, repository.ErrNotFound) {
			return "", nil // No default - setting not yet configured
		}
		return "", storeErr(err, nil)
	}
	return value, nil
}

// SetBaseURL saves the public base URL
func (s *SettingsService) SetBaseURL(ctx context.Context, raw string) error {
	raw = strings.TrimRight(strings.TrimSpace(raw), "/")
	if raw != "" {
		u, err := url.Parse(raw)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return errors.ValidationFields("invalid base URL", map[string]string{"baseUrl": "must be an absolute http(s) URL"})
		}
	}
	return storeErr(s.repo.SetSetting(ctx, SettingBaseURL, raw), nil)
}

// AllSettings returns the admin-editable settings
func (s *SettingsService) AllSettings(ctx context.Context) (map[string]interface{}, error) {
	baseURL, err := s.GetBaseURL(ctx)
	if err != nil {
		return nil, err
	}
	return map[string]interface{}{"baseUrl": baseURL}, nil
}

// AudienceURL returns the page audience devices should open. The stored
// base URL wins over fallback.
func (s *SettingsService) AudienceURL(ctx context.Context, fallback string) (string, error) {
	baseURL, err := s.GetBaseURL(ctx)
	if err != nil {
		return "", err
	}
	if baseURL == "" {
		baseURL = fallback
	}
	if baseURL == "" {
		return "", errors.Validation("base URL not configured")
	}
	return strings.TrimSuffix(baseURL, "/") + "/live", nil
}

// AudienceQR renders a QR code PNG pointing at the audience live page
func (s *SettingsService) AudienceQR(ctx context.Context, fallback string) ([]byte, error) {
	target, err := s.AudienceURL(ctx, fallback)
	if err != nil {
		return nil, err
	}
	png, err := qrcode.Encode(target, qrcode.Medium, 256)
	if err != nil {
		return nil, errors.Internal(err)
	}
	return png, nil
}

// SaveLiveState persists a live state snapshot
func (s *SettingsService) SaveLiveState(ctx context.Context, state models.LiveState) error {
	data, err := json.Marshal(state)
	if err != nil {
		return err
	}
	return s.repo.SetSetting(ctx, SettingLiveState, string(data))
}

// LoadLiveState returns the last snapshot, or nil when there is none
func (s *SettingsService) LoadLiveState(ctx context.Context) (*models.LiveState, error) {
	value, err := s.repo.GetSetting(ctx, SettingLiveState)
	if stderrors.Is(err, repository.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var state models.LiveState
	if err := json.Unmarshal([]byte(value), &state); err != nil {
		s.log.Warn("Ignoring unreadable live state snapshot", "error", err)
		return nil, nil
	}
	return &state, nil
}
