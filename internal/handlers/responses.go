package handlers

import "github.com/abrezinsky/pitchvote/internal/models"

// ResetResponse is the response for the ratings reset
type ResetResponse struct {
	PitchesReset int64 `json:"pitchesReset"`
}

// SettingsResponse is the response for settings
type SettingsResponse struct {
	BaseURL     string `json:"baseUrl"`
	AudienceURL string `json:"audienceUrl,omitempty"`
}

// SequenceResponse lists the live presentation order
type SequenceResponse struct {
	Pitches []models.Pitch `json:"pitches"`
}

// HealthResponse is the response for the health check
type HealthResponse struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}
